// Package jsonutil reads JSON test data and compares documents.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strconv"
)

// Difference is one mismatch found by Compare. Missing is set when the
// actual document has no value at Path.
type Difference struct {
	Path     string `json:"path"`
	Expected any    `json:"expected"`
	Actual   any    `json:"actual"`
	Missing  bool   `json:"missing,omitempty"`
}

func (d Difference) String() string {
	if d.Missing {
		return fmt.Sprintf("%s: expected %v, missing", d.Path, d.Expected)
	}
	return fmt.Sprintf("%s: expected %v, got %v", d.Path, d.Expected, d.Actual)
}

// ReadFile decodes a JSON file into a generic value
func ReadFile(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON file %s: %w", path, err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to read JSON file %s: %w", path, err)
	}
	return v, nil
}

// Normalize round-trips v through encoding/json so structs and typed maps
// compare like decoded documents.
func Normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Compare walks expected and reports every path whose value differs in
// actual. Keys present only in actual are ignored. Paths use dots for
// object keys and [i] for array indexes.
func Compare(expected, actual any) ([]Difference, error) {
	exp, err := Normalize(expected)
	if err != nil {
		return nil, fmt.Errorf("expected: %w", err)
	}
	act, err := Normalize(actual)
	if err != nil {
		return nil, fmt.Errorf("actual: %w", err)
	}
	var diffs []Difference
	compare(exp, act, "", &diffs)
	return diffs, nil
}

// CompareFile compares the JSON document at expectedPath against actual
func CompareFile(expectedPath string, actual any) ([]Difference, error) {
	expected, err := ReadFile(expectedPath)
	if err != nil {
		return nil, err
	}
	return Compare(expected, actual)
}

func compare(expected, actual any, path string, diffs *[]Difference) {
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			*diffs = append(*diffs, Difference{Path: rootPath(path), Expected: expected, Actual: actual})
			return
		}
		keys := make([]string, 0, len(exp))
		for k := range exp {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			child := k
			if path != "" {
				child = path + "." + k
			}
			v, present := act[k]
			if !present {
				*diffs = append(*diffs, Difference{Path: child, Expected: exp[k], Missing: true})
				continue
			}
			compare(exp[k], v, child, diffs)
		}
	case []any:
		act, ok := actual.([]any)
		if !ok {
			*diffs = append(*diffs, Difference{Path: rootPath(path), Expected: expected, Actual: actual})
			return
		}
		for i := range exp {
			child := path + "[" + strconv.Itoa(i) + "]"
			if i >= len(act) {
				*diffs = append(*diffs, Difference{Path: child, Expected: exp[i], Missing: true})
				continue
			}
			compare(exp[i], act[i], child, diffs)
		}
	default:
		if !reflect.DeepEqual(expected, actual) {
			*diffs = append(*diffs, Difference{Path: rootPath(path), Expected: expected, Actual: actual})
		}
	}
}

func rootPath(p string) string {
	if p == "" {
		return "$"
	}
	return p
}
