package oauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/tidwall/gjson"

	"github.com/giantswarm/mcp-brightspace/internal/logging"
)

// errNoHTTPSTunnel is returned while ngrok has not published an https tunnel yet.
var errNoHTTPSTunnel = errors.New("no https tunnel published yet")

// Tunnel is a running ngrok process exposing the local callback port.
type Tunnel struct {
	PublicURL string
	cmd       *exec.Cmd
}

// TunnelOptions configures StartTunnel.
type TunnelOptions struct {
	Port int
	// APIURL is ngrok's local inspection API, e.g. http://127.0.0.1:4040.
	APIURL string
	// Binary defaults to "ngrok".
	Binary string
	// Attempts and Delay bound the wait for the public URL.
	Attempts uint
	Delay    time.Duration
	Logger   *logging.Logger
}

// StartTunnel runs `ngrok http <port>` and waits until its API lists an https
// public URL.
func StartTunnel(ctx context.Context, opts TunnelOptions) (*Tunnel, error) {
	binary := opts.Binary
	if binary == "" {
		binary = "ngrok"
	}
	cmd := exec.CommandContext(ctx, binary, "http", strconv.Itoa(opts.Port))
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", binary, err)
	}

	t := &Tunnel{cmd: cmd}
	publicURL, err := WaitForPublicURL(ctx, &http.Client{Timeout: 2 * time.Second}, opts)
	if err != nil {
		t.Close()
		return nil, err
	}
	t.PublicURL = publicURL
	return t, nil
}

// WaitForPublicURL polls the ngrok API until an https public URL appears.
func WaitForPublicURL(ctx context.Context, client *http.Client, opts TunnelOptions) (string, error) {
	attempts := opts.Attempts
	if attempts == 0 {
		attempts = 60
	}
	delay := opts.Delay
	if delay == 0 {
		delay = 500 * time.Millisecond
	}
	endpoint := strings.TrimRight(opts.APIURL, "/") + "/api/tunnels"

	var publicURL string
	err := retry.Do(func() error {
		u, err := fetchPublicURL(ctx, client, endpoint)
		if err != nil {
			return err
		}
		publicURL = u
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			opts.Logger.Debug("waiting for ngrok tunnel (attempt %d): %v", n+1, err)
		}),
	)
	if err != nil {
		return "", fmt.Errorf("ngrok did not expose an https tunnel on %s: %w", opts.APIURL, err)
	}
	return publicURL, nil
}

func fetchPublicURL(ctx context.Context, client *http.Client, endpoint string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", retry.Unrecoverable(err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ngrok API answered %d", resp.StatusCode)
	}

	for _, u := range gjson.GetBytes(body, "tunnels.#.public_url").Array() {
		if strings.HasPrefix(u.String(), "https://") {
			return u.String(), nil
		}
	}
	return "", errNoHTTPSTunnel
}

// Close stops the ngrok process.
func (t *Tunnel) Close() error {
	if t == nil || t.cmd == nil || t.cmd.Process == nil {
		return nil
	}
	if err := t.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	_ = t.cmd.Wait()
	return nil
}
