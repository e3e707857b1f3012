// Package overpass downloads OpenStreetMap extracts from an Overpass API
// endpoint.
package overpass

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/geobake/internal/raster"
)

// DefaultEndpoint is the public Overpass interpreter.
const DefaultEndpoint = "https://overpass-api.de/api/interpreter"

// ErrStatus is returned when the endpoint answers with a non-200 status.
var ErrStatus = errors.New("overpass: unexpected status")

// Client fetches extracts from one endpoint.
type Client struct {
	endpoint string
	http     *http.Client
	log      *zap.Logger
}

// New returns a client for endpoint. A zero timeout means no limit.
func New(endpoint string, timeout time.Duration, log *zap.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		log:      log,
	}
}

// Query returns the Overpass QL selecting every node in b, the ways and
// relations using them, and the nodes of those ways.
func Query(b raster.Bounds, timeout time.Duration) string {
	seconds := int(timeout.Seconds())
	if seconds <= 0 {
		seconds = 60
	}
	bbox := fmt.Sprintf("%f,%f,%f,%f", b.South, b.West, b.North, b.East)
	return fmt.Sprintf("[out:xml][timeout:%d];\n(\n  node(%s);\n  <;\n  >;\n);\nout body;\n", seconds, bbox)
}

// Fetch downloads the extract for b and writes it to w.
func (c *Client) Fetch(ctx context.Context, b raster.Bounds, w io.Writer) (int64, error) {
	form := url.Values{"data": {Query(b, c.http.Timeout)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.log.Info("fetching osm extract",
		zap.String("endpoint", c.endpoint),
		zap.Float64("south", b.South),
		zap.Float64("west", b.West),
		zap.Float64("north", b.North),
		zap.Float64("east", b.East))

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("overpass: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("%w: %s: %s", ErrStatus, resp.Status, strings.TrimSpace(string(msg)))
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("overpass: reading response: %w", err)
	}
	c.log.Info("osm extract fetched", zap.Int64("bytes", n))
	return n, nil
}

// FetchFile downloads the extract for b to path. The file only appears once
// the download has completed.
func (c *Client) FetchFile(ctx context.Context, b raster.Bounds, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.part")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := c.Fetch(ctx, b, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// EnsureFile fetches the extract to path unless the file already exists.
// It reports whether a download happened.
func (c *Client) EnsureFile(ctx context.Context, b raster.Bounds, path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	if err := c.FetchFile(ctx, b, path); err != nil {
		return false, err
	}
	return true, nil
}
