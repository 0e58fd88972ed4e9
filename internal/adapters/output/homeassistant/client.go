package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	log "github.com/echocat/slf4g"

	"github.com/richardctrimble/ha-emulated-hue/internal/domain/model"
	"github.com/richardctrimble/ha-emulated-hue/internal/ports"
)

// DefaultStatesTTL bounds how often the full state list is fetched.
const DefaultStatesTTL = 2 * time.Second

// Client talks to the Home Assistant REST API. It is also the
// ports.TargetProvider for home assistant entities.
type Client struct {
	url        string
	token      string
	httpClient *http.Client
	statesTTL  time.Duration

	mu          sync.RWMutex
	cacheStates map[string]*model.TargetState
	cacheTime   time.Time
}

func NewClient(url, token string, timeout time.Duration) *Client {
	return &Client{
		url:        strings.TrimSuffix(url, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		statesTTL:  DefaultStatesTTL,
	}
}

func (c *Client) IsConfigured() bool {
	return c.url != "" && c.token != ""
}

// Check verifies that the server is reachable and accepts the token.
func (c *Client) Check(ctx context.Context) error {
	rsp, err := c.do(ctx, http.MethodGet, "/api/", nil)
	if err != nil {
		return err
	}
	defer func() { _ = rsp.Body.Close() }()
	switch rsp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("home assistant at %s rejected the access token", c.url)
	default:
		return fmt.Errorf("home assistant at %s answered with %d", c.url, rsp.StatusCode)
	}
}

// Target resolves ref; the entity must currently exist.
func (c *Client) Target(ctx context.Context, ref model.TargetRef) (ports.Target, error) {
	if _, err := c.state(ctx, ref.EntityID()); err != nil {
		return nil, err
	}
	return &entity{client: c, ref: ref}, nil
}

// Entities lists all entities of the supported domains.
func (c *Client) Entities(ctx context.Context) ([]model.Entity, error) {
	states, err := c.States(ctx)
	if err != nil {
		return nil, err
	}
	var entities []model.Entity
	for id, s := range states {
		ref, err := model.ParseTargetRef(id)
		if err != nil || !ref.Domain.IsSupported() {
			continue
		}
		name, _ := s.Attributes["friendly_name"].(string)
		if name == "" {
			name = id
		}
		entities = append(entities, model.Entity{EntityID: id, Name: name})
	}
	model.SortEntities(entities)
	return entities, nil
}

// States returns all entity states, served from a short lived cache.
func (c *Client) States(ctx context.Context) (map[string]*model.TargetState, error) {
	c.mu.RLock()
	if c.cacheStates != nil && time.Since(c.cacheTime) < c.statesTTL {
		res := c.cacheStates
		c.mu.RUnlock()
		return res, nil
	}
	c.mu.RUnlock()

	if !c.IsConfigured() {
		return nil, fmt.Errorf("home assistant is not configured")
	}
	rsp, err := c.do(ctx, http.MethodGet, "/api/states", nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rsp.Body.Close() }()
	if rsp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("home assistant api error: %d", rsp.StatusCode)
	}

	var states []*model.TargetState
	if err := json.NewDecoder(rsp.Body).Decode(&states); err != nil {
		return nil, fmt.Errorf("cannot decode states: %w", err)
	}
	byID := make(map[string]*model.TargetState, len(states))
	for _, s := range states {
		// large attributes nobody here needs
		delete(s.Attributes, "entity_picture")
		delete(s.Attributes, "entity_picture_local")
		delete(s.Attributes, "source_list")
		delete(s.Attributes, "sound_mode_list")
		byID[s.EntityID] = s
	}

	c.mu.Lock()
	c.cacheStates = byID
	c.cacheTime = time.Now()
	c.mu.Unlock()
	return byID, nil
}

// CallService invokes domain.service for entityID.
func (c *Client) CallService(ctx context.Context, entityID string, cmd model.NativeCommand) error {
	if !c.IsConfigured() {
		return fmt.Errorf("home assistant is not configured")
	}
	payload := make(map[string]any, len(cmd.Data)+1)
	for k, v := range cmd.Data {
		payload[k] = v
	}
	payload["entity_id"] = entityID
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	rsp, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/services/%s/%s", cmd.Domain, cmd.Service), body)
	if err != nil {
		return err
	}
	defer func() { _ = rsp.Body.Close() }()
	if rsp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(rsp.Body, 512))
		return fmt.Errorf("home assistant api error: %d %s", rsp.StatusCode, strings.TrimSpace(string(msg)))
	}

	// the next read must see the effect of the call
	c.mu.Lock()
	c.cacheStates = nil
	c.mu.Unlock()
	return nil
}

func (c *Client) state(ctx context.Context, entityID string) (*model.TargetState, error) {
	states, err := c.States(ctx)
	if err != nil {
		return nil, &model.TargetUnreachableError{EntityID: entityID, Err: err}
	}
	s, ok := states[entityID]
	if !ok {
		return nil, &model.TargetUnreachableError{EntityID: entityID, Err: fmt.Errorf("unknown entity")}
	}
	return s, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url+path, r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rsp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithError(err).
			With("path", path).
			Debug("Home Assistant request failed.")
		return nil, err
	}
	return rsp, nil
}

type entity struct {
	client *Client
	ref    model.TargetRef
}

func (e *entity) Ref() model.TargetRef {
	return e.ref
}

func (e *entity) CurrentState(ctx context.Context) (*model.TargetState, error) {
	return e.client.state(ctx, e.ref.EntityID())
}

func (e *entity) Apply(ctx context.Context, cmd model.NativeCommand) error {
	return e.client.CallService(ctx, e.ref.EntityID(), cmd)
}
