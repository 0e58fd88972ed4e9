package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richardctrimble/ha-emulated-hue/internal/domain/model"
)

type recorded struct {
	method string
	path   string
	body   map[string]any
}

type fakeBridge struct {
	mu       sync.Mutex
	requests []recorded
}

func (f *fakeBridge) record(r *http.Request) map[string]any {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, recorded{method: r.Method, path: r.URL.Path, body: body})
	return body
}

func (f *fakeBridge) last(t *testing.T) recorded {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newFakeBridge(t *testing.T) (*fakeBridge, *httptest.Server) {
	f := &fakeBridge{}
	lamp := Device{
		DeviceRecord: model.DeviceRecord{
			HueID:      "1",
			Name:       "Lamp",
			Target:     &model.TargetRef{Domain: model.DomainLight, ObjectID: "lamp"},
			Capability: model.CapabilityDimmable,
			CreatedAt:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			ModifiedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		EntityID: "light.lamp",
		UniqueID: "00:aa:bb:cc:dd:ee:ff:00-11",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /admin/devices", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		writeJSON(w, http.StatusOK, []Device{lamp})
	})
	mux.HandleFunc("POST /admin/devices", func(w http.ResponseWriter, r *http.Request) {
		body := f.record(r)
		d := lamp
		d.HueID = "2"
		d.Name, _ = body["name"].(string)
		d.EntityID, _ = body["entity_id"].(string)
		writeJSON(w, http.StatusCreated, d)
	})
	mux.HandleFunc("PATCH /admin/devices/{id}", func(w http.ResponseWriter, r *http.Request) {
		body := f.record(r)
		d := lamp
		d.HueID = r.PathValue("id")
		if v, ok := body["entity_id"]; ok && v == nil {
			d.EntityID = ""
			d.Target = nil
		}
		writeJSON(w, http.StatusOK, d)
	})
	mux.HandleFunc("DELETE /admin/devices/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		if r.PathValue("id") != "1" {
			writeJSON(w, http.StatusNotFound, APIError{Status: http.StatusNotFound, Message: "device " + r.PathValue("id") + " not found"})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /admin/reload", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		writeJSON(w, http.StatusOK, model.Stats{Devices: 1, Linked: 1, Retired: 2, NextID: "4"})
	})
	mux.HandleFunc("GET /admin/stats", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		writeJSON(w, http.StatusOK, model.Stats{Devices: 1, Linked: 1, NextID: "2"})
	})
	mux.HandleFunc("GET /admin/entities", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		writeJSON(w, http.StatusOK, []model.Entity{{EntityID: "light.lamp", Name: "Lamp"}})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func execute(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := RootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--addr", srv.URL))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDeviceCreate(t *testing.T) {
	f, srv := newFakeBridge(t)

	out, err := execute(t, srv, "device", "create", "--name", "Kitchen", "--entity", "light.kitchen")
	require.NoError(t, err)

	req := f.last(t)
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/admin/devices", req.path)
	assert.Equal(t, map[string]any{"name": "Kitchen", "entity_id": "light.kitchen"}, req.body)
	assert.Contains(t, out, "Created light 2: Kitchen")
	assert.Contains(t, out, "light.kitchen")
}

func TestDeviceCreateRequiresName(t *testing.T) {
	f, srv := newFakeBridge(t)

	_, err := execute(t, srv, "device", "create")
	require.Error(t, err)
	assert.Empty(t, f.requests)
}

func TestDeviceList(t *testing.T) {
	_, srv := newFakeBridge(t)

	out, err := execute(t, srv, "device", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "Lamp")
	assert.Contains(t, out, "light.lamp")
	assert.Contains(t, out, "dimmable")
}

func TestDeviceUpdate(t *testing.T) {
	f, srv := newFakeBridge(t)

	out, err := execute(t, srv, "device", "update", "1", "--unlink", "--reset-scale")
	require.NoError(t, err)
	req := f.last(t)
	assert.Equal(t, http.MethodPatch, req.method)
	assert.Equal(t, "/admin/devices/1", req.path)
	assert.Equal(t, map[string]any{"entity_id": nil, "scale": nil}, req.body)
	assert.Contains(t, out, "(unlinked)")

	_, err = execute(t, srv, "device", "update", "1", "--name", "Desk", "--to-hue", "x/2", "--to-native", "x*2")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"name":  "Desk",
		"scale": map[string]any{"to_hue": "x/2", "to_native": "x*2"},
	}, f.last(t).body)
}

func TestDeviceUpdateRejectsContradictions(t *testing.T) {
	f, srv := newFakeBridge(t)

	_, err := execute(t, srv, "device", "update", "1", "--unlink", "--entity", "light.x")
	assert.EqualError(t, err, "--entity and --unlink cannot be combined")

	_, err = execute(t, srv, "device", "update", "1", "--reset-scale", "--to-hue", "x")
	assert.Error(t, err)

	_, err = execute(t, srv, "device", "update", "1")
	assert.EqualError(t, err, "nothing to update")

	assert.Empty(t, f.requests)
}

func TestDeviceDelete(t *testing.T) {
	_, srv := newFakeBridge(t)

	out, err := execute(t, srv, "device", "delete", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted light 1")

	_, err = execute(t, srv, "device", "delete", "9")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "device 9 not found", apiErr.Message)
}

func TestReloadStatsAndEntities(t *testing.T) {
	_, srv := newFakeBridge(t)

	out, err := execute(t, srv, "reload")
	require.NoError(t, err)
	assert.Contains(t, out, "Reloaded")
	assert.Contains(t, out, "Retired: 2")
	assert.Contains(t, out, "Next id: 4")

	out, err = execute(t, srv, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Devices: 1 (1 linked)")

	out, err = execute(t, srv, "entities")
	require.NoError(t, err)
	assert.Contains(t, out, "light.lamp")
}

func TestNewClient(t *testing.T) {
	c, err := NewClient("192.168.1.2:8080", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "http://192.168.1.2:8080", c.base)

	c, err = NewClient("", time.Second)
	require.NoError(t, err)
	assert.Equal(t, DefaultAddr, c.base)

	_, err = NewClient("http://", time.Second)
	assert.Error(t, err)
}

func TestClientReportsPlainErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "Only local IPs allowed", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, time.Second)
	require.NoError(t, err)
	_, err = c.Stats(context.Background())
	assert.EqualError(t, err, "bridge answered with status 401: Only local IPs allowed")
}
