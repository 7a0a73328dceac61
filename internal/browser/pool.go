package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const cdpPort = "3000/tcp"

// Endpoint is a containerised browser reachable over CDP
type Endpoint struct {
	ContainerID string
	Port        string
	WSURL       string
}

// RemotePool runs browsers in docker containers so scenarios do not need a
// local browser install.
type RemotePool struct {
	client       *client.Client
	image        string
	readyTimeout time.Duration
	logger       *zap.Logger
}

func NewRemotePool(imageName string, readyTimeout time.Duration, logger *zap.Logger) (*RemotePool, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	if readyTimeout <= 0 {
		readyTimeout = 10 * time.Second
	}

	return &RemotePool{
		client:       cli,
		image:        imageName,
		readyTimeout: readyTimeout,
		logger:       logger,
	}, nil
}

// Launch starts a browser container for one scenario session
func (p *RemotePool) Launch(ctx context.Context, sessionID string) (*Endpoint, error) {
	containerConfig := &container.Config{
		Image: p.image,
		Labels: map[string]string{
			"session-id": sessionID,
			"managed-by": "browserbase-e2e",
		},
		Env: []string{
			"CONNECTION_TIMEOUT=-1",
			"MAX_CONCURRENT_SESSIONS=1",
			"PREBOOT_CHROME=true",
			"EXIT_ON_HEALTH_FAILURE=false",
		},
		ExposedPorts: nat.PortSet{
			cdpPort: struct{}{},
		},
	}

	hostConfig := &container.HostConfig{
		PortBindings: nat.PortMap{
			cdpPort: []nat.PortBinding{
				{
					HostIP:   "127.0.0.1",
					HostPort: "0",
				},
			},
		},
		AutoRemove: false,
	}

	name := sessionID
	if len(name) > 8 {
		name = name[:8]
	}
	resp, err := p.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, "e2e-"+name)
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}

	if err := p.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		p.remove(resp.ID)
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	inspect, err := p.client.ContainerInspect(ctx, resp.ID)
	if err != nil {
		p.remove(resp.ID)
		return nil, fmt.Errorf("failed to inspect container: %w", err)
	}

	bindings := inspect.NetworkSettings.Ports[cdpPort]
	if len(bindings) == 0 {
		p.remove(resp.ID)
		return nil, fmt.Errorf("container %s exposes no CDP port", resp.ID)
	}
	port := bindings[0].HostPort

	endpoint := &Endpoint{
		ContainerID: resp.ID,
		Port:        port,
		WSURL:       fmt.Sprintf("ws://127.0.0.1:%s", port),
	}

	if err := p.waitForBrowserReady(ctx, endpoint); err != nil {
		p.remove(resp.ID)
		return nil, fmt.Errorf("browser failed to become ready: %w", err)
	}

	p.logger.Info("remote browser ready",
		zap.String("container", resp.ID[:12]),
		zap.String("endpoint", endpoint.WSURL))
	return endpoint, nil
}

// Stop stops and removes a browser container
func (p *RemotePool) Stop(ctx context.Context, containerID string) error {
	timeout := 10
	if err := p.client.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("failed to stop container: %w", err)
	}

	if err := p.client.ContainerRemove(ctx, containerID, container.RemoveOptions{}); err != nil {
		return fmt.Errorf("failed to remove container: %w", err)
	}
	return nil
}

func (p *RemotePool) remove(containerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := p.client.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}); err != nil {
		p.logger.Warn("failed to remove container", zap.String("container", containerID), zap.Error(err))
	}
}

// EnsureImage pulls the browser image unless it is already present
func (p *RemotePool) EnsureImage(ctx context.Context) error {
	images, err := p.client.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return err
	}

	for _, img := range images {
		for _, tag := range img.RepoTags {
			if tag == p.image {
				return nil
			}
		}
	}

	p.logger.Info("pulling browser image", zap.String("image", p.image))
	reader, err := p.client.ImagePull(ctx, p.image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image: %w", err)
	}
	defer reader.Close()

	_, err = io.Copy(io.Discard, reader)
	return err
}

func (p *RemotePool) Close() error {
	return p.client.Close()
}

// waitForBrowserReady polls /json/version, then confirms the CDP websocket accepts a handshake.
func (p *RemotePool) waitForBrowserReady(ctx context.Context, endpoint *Endpoint) error {
	ctx, cancel := context.WithTimeout(ctx, p.readyTimeout)
	defer cancel()

	versionURL := fmt.Sprintf("http://127.0.0.1:%s/json/version", endpoint.Port)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		if probeHTTP(ctx, versionURL) && probeWebSocket(ctx, endpoint.WSURL) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("browser did not become ready within %s: %w", p.readyTimeout, ctx.Err())
		case <-ticker.C:
		}
	}
}

func probeHTTP(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func probeWebSocket(ctx context.Context, url string) bool {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
