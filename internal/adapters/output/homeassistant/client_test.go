package homeassistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richardctrimble/ha-emulated-hue/internal/domain/model"
)

type fakeHA struct {
	*httptest.Server
	statesCalls atomic.Int32
	calls       chan call
}

type call struct {
	path    string
	payload map[string]any
}

func newFakeHA(t *testing.T) *fakeHA {
	f := &fakeHA{calls: make(chan call, 10)}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"message":"API running."}`))
	})
	mux.HandleFunc("/api/states", func(w http.ResponseWriter, r *http.Request) {
		f.statesCalls.Add(1)
		_, _ = w.Write([]byte(`[
			{"entity_id":"light.kitchen","state":"on","attributes":{"friendly_name":"Kitchen","brightness":128,"entity_picture":"/big.png"}},
			{"entity_id":"fan.ceiling","state":"off","attributes":{}},
			{"entity_id":"sensor.temp","state":"21","attributes":{}}
		]`))
	})
	mux.HandleFunc("/api/services/", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if payload["entity_id"] == "fan.ceiling" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		f.calls <- call{path: r.URL.Path, payload: payload}
		_, _ = w.Write([]byte(`[]`))
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func TestClient_TargetReadsState(t *testing.T) {
	ha := newFakeHA(t)
	c := NewClient(ha.URL, "secret", time.Second)

	target, err := c.Target(context.Background(), model.TargetRef{Domain: model.DomainLight, ObjectID: "kitchen"})
	require.NoError(t, err)

	s, err := target.CurrentState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.StateOn, s.State)
	v, ok := s.Float("brightness")
	assert.True(t, ok)
	assert.Equal(t, 128.0, v)
	assert.NotContains(t, s.Attributes, "entity_picture")

	// both reads were served by one fetch
	assert.Equal(t, int32(1), ha.statesCalls.Load())
}

func TestClient_UnknownEntityIsUnreachable(t *testing.T) {
	ha := newFakeHA(t)
	c := NewClient(ha.URL, "secret", time.Second)

	_, err := c.Target(context.Background(), model.TargetRef{Domain: model.DomainLight, ObjectID: "nope"})
	assert.ErrorIs(t, err, model.ErrTargetUnreachable)
}

func TestClient_DownServerIsUnreachable(t *testing.T) {
	ha := newFakeHA(t)
	url := ha.URL
	ha.Close()
	c := NewClient(url, "secret", time.Second)

	_, err := c.Target(context.Background(), model.TargetRef{Domain: model.DomainLight, ObjectID: "kitchen"})
	assert.ErrorIs(t, err, model.ErrTargetUnreachable)
}

func TestClient_Apply(t *testing.T) {
	ha := newFakeHA(t)
	c := NewClient(ha.URL, "secret", time.Second)
	target, err := c.Target(context.Background(), model.TargetRef{Domain: model.DomainLight, ObjectID: "kitchen"})
	require.NoError(t, err)

	err = target.Apply(context.Background(), model.NativeCommand{
		Domain:  "light",
		Service: "turn_on",
		Data:    map[string]any{"brightness": 200},
	})
	require.NoError(t, err)

	got := <-ha.calls
	assert.Equal(t, "/api/services/light/turn_on", got.path)
	assert.Equal(t, "light.kitchen", got.payload["entity_id"])
	assert.Equal(t, 200.0, got.payload["brightness"])

	// the cache was dropped by the call
	_, err = target.CurrentState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), ha.statesCalls.Load())
}

func TestClient_ApplyReportsServerErrors(t *testing.T) {
	ha := newFakeHA(t)
	c := NewClient(ha.URL, "secret", time.Second)

	err := c.CallService(context.Background(), "fan.ceiling", model.NativeCommand{Domain: "fan", Service: "turn_on"})
	assert.ErrorContains(t, err, "500")
}

func TestClient_Entities(t *testing.T) {
	ha := newFakeHA(t)
	c := NewClient(ha.URL, "secret", time.Second)

	entities, err := c.Entities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Entity{
		{EntityID: "fan.ceiling", Name: "fan.ceiling"},
		{EntityID: "light.kitchen", Name: "Kitchen"},
	}, entities)
}

func TestClient_Check(t *testing.T) {
	ha := newFakeHA(t)

	assert.NoError(t, NewClient(ha.URL, "secret", time.Second).Check(context.Background()))
	assert.ErrorContains(t, NewClient(ha.URL, "wrong", time.Second).Check(context.Background()), "rejected")
	assert.False(t, NewClient("", "", time.Second).IsConfigured())
}
