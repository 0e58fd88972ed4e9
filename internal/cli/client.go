package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/richardctrimble/ha-emulated-hue/internal/domain/model"
)

// DefaultAddr is where huectl looks for the bridge if nothing else is given.
const DefaultAddr = "http://127.0.0.1:80"

// Device is a device as listed by the admin API.
type Device struct {
	model.DeviceRecord
	EntityID string `json:"entity_id,omitempty"`
	UniqueID string `json:"uniqueid"`
}

// APIError is a non 2xx answer of the admin API.
type APIError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("bridge answered with status %d", e.Status)
	}
	return fmt.Sprintf("bridge answered with status %d: %s", e.Status, e.Message)
}

// Client talks to the admin API of a running bridge.
type Client struct {
	base       string
	httpClient *http.Client
}

func NewClient(addr string, timeout time.Duration) (*Client, error) {
	if addr == "" {
		addr = DefaultAddr
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("illegal bridge address %q: %w", addr, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("illegal bridge address %q: no host", addr)
	}
	return &Client{
		base:       strings.TrimSuffix(u.String(), "/"),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	var out []Device
	return out, c.call(ctx, http.MethodGet, "/admin/devices", nil, &out)
}

func (c *Client) Device(ctx context.Context, id string) (*Device, error) {
	var out Device
	if err := c.call(ctx, http.MethodGet, "/admin/devices/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateDevice(ctx context.Context, name, entityID string) (*Device, error) {
	body := map[string]string{"name": name}
	if entityID != "" {
		body["entity_id"] = entityID
	}
	var out Device
	if err := c.call(ctx, http.MethodPost, "/admin/devices", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateDevice sends a partial update. A nil value in changes is sent as
// JSON null.
func (c *Client) UpdateDevice(ctx context.Context, id string, changes map[string]any) (*Device, error) {
	var out Device
	if err := c.call(ctx, http.MethodPatch, "/admin/devices/"+url.PathEscape(id), changes, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteDevice(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/admin/devices/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Reload(ctx context.Context) (model.Stats, error) {
	var out model.Stats
	return out, c.call(ctx, http.MethodPost, "/admin/reload", nil, &out)
}

func (c *Client) Stats(ctx context.Context) (model.Stats, error) {
	var out model.Stats
	return out, c.call(ctx, http.MethodGet, "/admin/stats", nil, &out)
}

func (c *Client) Entities(ctx context.Context) ([]model.Entity, error) {
	var out []model.Entity
	return out, c.call(ctx, http.MethodGet, "/admin/entities", nil, &out)
}

func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cannot reach bridge at %s: %w", c.base, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		apiErr.Status = resp.StatusCode
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("cannot decode answer of %s %s: %w", method, path, err)
	}
	return nil
}
