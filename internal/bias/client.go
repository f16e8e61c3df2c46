package bias

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/micro-nova/bias-go/internal/models"
)

const (
	// DefaultPort is the amplifier's HTTP control port.
	DefaultPort = 80

	// DefaultTimeout bounds one wire round trip.
	DefaultTimeout = 5 * time.Second

	endpoint = "/am"

	// maxRequestsPerSec bounds traffic to the amplifier's control plane.
	maxRequestsPerSec = 20
)

// Client is one long-lived HTTP session to a Bias amplifier. It is safe
// for concurrent use: wire calls are serialized against the shared
// session, so writes to the same path reach the device in caller-issue
// order, but callers' logical intents are never reordered or merged.
type Client struct {
	baseURL  string
	clientID string
	hc       *http.Client
	limiter  *rate.Limiter

	mu sync.Mutex // serializes wire round trips
}

// New creates a client for the amplifier at host:port. A zero port or
// timeout selects the default.
func New(host string, port int, timeout time.Duration) *Client {
	if port == 0 {
		port = DefaultPort
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:  fmt.Sprintf("http://%s:%d", host, port),
		clientID: "biasd-" + uuid.NewString()[:8],
		hc:       &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Limit(maxRequestsPerSec), maxRequestsPerSec),
	}
}

// ClientID returns the identifier sent with every request.
func (c *Client) ClientID() string { return c.clientID }

// Close releases the session's idle connections.
func (c *Client) Close() { c.hc.CloseIdleConnections() }

// Read fetches the given paths in one wire round trip. The returned
// slice is aligned with paths; per-value rejections are reported per
// element while transport and protocol failures fail the whole call.
func (c *Client) Read(ctx context.Context, paths []string) ([]Result, error) {
	specs := make([]ReadSpec, len(paths))
	for i, p := range paths {
		specs[i] = ReadSpec{Path: p}
	}
	body, err := EncodeRead(c.clientID, specs)
	if err != nil {
		return nil, err
	}
	respBody, err := c.post(ctx, body)
	if err != nil {
		return nil, err
	}
	return DecodeBatch(respBody, paths)
}

// Write issues one batched write in one wire round trip. Result values
// carry only the per-element outcome; the written values are not echoed.
func (c *Client) Write(ctx context.Context, writes []Write) ([]Result, error) {
	body, err := EncodeWrite(c.clientID, writes)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(writes))
	for i, w := range writes {
		paths[i] = w.Path
	}
	respBody, err := c.post(ctx, body)
	if err != nil {
		return nil, err
	}
	return DecodeBatch(respBody, paths)
}

// DeviceInfo reads the amplifier's identifying attributes. Rejected
// elements leave the corresponding field empty.
func (c *Client) DeviceInfo(ctx context.Context) (models.Info, error) {
	paths := []string{PathModelName, PathModelSerial, PathManufacturer}
	results, err := c.Read(ctx, paths)
	if err != nil {
		return models.Info{}, err
	}
	info := models.Info{Manufacturer: "Powersoft"}
	for _, r := range results {
		if r.Err != nil || r.Value.Kind != models.KindString {
			continue
		}
		switch r.Path {
		case PathModelName:
			info.Model = r.Value.Str
		case PathModelSerial:
			info.Serial = r.Value.Str
		case PathManufacturer:
			info.Manufacturer = r.Value.Str
		}
	}
	return info, nil
}

func (c *Client) post(ctx context.Context, body []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &models.TransportError{Op: "rate wait", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &models.TransportError{Op: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, &models.TransportError{Op: "post " + endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &models.TransportError{Op: "post " + endpoint, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &models.TransportError{Op: "read response", Err: err}
	}
	return data, nil
}
