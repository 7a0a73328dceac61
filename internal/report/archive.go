package report

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Bundle writes a tar.gz archive at target holding each source directory
// under its base name. Missing sources are skipped and returned in skipped.
// The archive never contains itself, even when target sits inside a source.
func Bundle(target string, sources ...string) (skipped []string, err error) {
	self, err := filepath.Abs(target)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return nil, err
	}
	file, err := os.Create(target)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()

	gzWriter := gzip.NewWriter(file)
	tarWriter := tar.NewWriter(gzWriter)

	for _, source := range sources {
		info, statErr := os.Stat(source)
		if errors.Is(statErr, os.ErrNotExist) {
			skipped = append(skipped, source)
			continue
		}
		if statErr != nil {
			return skipped, statErr
		}
		if !info.IsDir() {
			return skipped, fmt.Errorf("%s is not a directory", source)
		}
		if err := addDirectory(tarWriter, source, filepath.Base(filepath.Clean(source)), self); err != nil {
			return skipped, fmt.Errorf("archive %s: %w", source, err)
		}
	}

	if err := tarWriter.Close(); err != nil {
		return skipped, err
	}
	return skipped, gzWriter.Close()
}

func addDirectory(tw *tar.Writer, source, prefix, skip string) error {
	absSource, err := filepath.Abs(source)
	if err != nil {
		return err
	}
	return filepath.Walk(source, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		header, err := tar.FileInfoHeader(info, info.Name())
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}
		if filepath.Join(absSource, relPath) == skip {
			return nil
		}
		header.Name = filepath.ToSlash(filepath.Join(prefix, relPath))
		if info.IsDir() {
			header.Name += "/"
		}

		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		_, err = io.Copy(tw, file)
		return err
	})
}

// Extract unpacks a Bundle archive into target. Entries escaping target are rejected.
func Extract(source, target string) error {
	file, err := os.Open(source)
	if err != nil {
		return err
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return err
	}
	defer gzReader.Close()

	root, err := filepath.Abs(target)
	if err != nil {
		return err
	}
	tarReader := tar.NewReader(gzReader)

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		targetPath := filepath.Join(root, filepath.FromSlash(header.Name))
		if targetPath != root && !strings.HasPrefix(targetPath, root+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry %q escapes %s", header.Name, target)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(targetPath, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
				return err
			}
			if err := writeEntry(targetPath, tarReader); err != nil {
				return err
			}
		}
	}
}

func writeEntry(path string, r io.Reader) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
