package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/richardctrimble/ha-emulated-hue/internal/domain/model"
)

const storeVersion = 1

// JSONStore keeps the ledger in a single JSON file that is replaced
// atomically on every save.
type JSONStore struct {
	path string
	mu   sync.Mutex
}

type storedLedger struct {
	Version int `json:"version"`
	*model.LedgerState
}

// legacyStore is the layout of the Home Assistant integration storage file,
// which can be imported as is.
type legacyStore struct {
	Version int    `json:"version"`
	Key     string `json:"key"`
	Data    *struct {
		Devices       map[string]*legacyDevice `json:"devices"`
		RetiredIDs    []string                 `json:"retired_ids"`
		NextIDCounter uint64                   `json:"next_id_counter"`
	} `json:"data"`
}

type legacyDevice struct {
	HueID          string  `json:"hue_id"`
	Name           string  `json:"name"`
	EntityID       *string `json:"entity_id"`
	CreatedAt      string  `json:"created_at"`
	ModifiedAt     string  `json:"modified_at"`
	LastAccessedAt *string `json:"last_accessed_at"`
	LastAccessedBy *string `json:"last_accessed_by"`
}

func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

func (s *JSONStore) Path() string {
	return s.path
}

func (s *JSONStore) Load(context.Context) (*model.LedgerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var probe struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("cannot parse %s: %w", s.path, err)
	}
	if len(probe.Data) > 0 {
		return s.migrate(data)
	}

	stored := storedLedger{LedgerState: &model.LedgerState{}}
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("cannot parse %s: %w", s.path, err)
	}
	if stored.Version > storeVersion {
		return nil, fmt.Errorf("%s has version %d, only up to %d is supported", s.path, stored.Version, storeVersion)
	}
	return stored.LedgerState, nil
}

func (s *JSONStore) migrate(data []byte) (*model.LedgerState, error) {
	var legacy legacyStore
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("cannot parse legacy storage %s: %w", s.path, err)
	}
	if legacy.Data == nil {
		return nil, nil
	}
	state := &model.LedgerState{
		Retired:       legacy.Data.RetiredIDs,
		NextCandidate: legacy.Data.NextIDCounter,
	}
	for id, d := range legacy.Data.Devices {
		if d.HueID == "" {
			d.HueID = id
		}
		record := &model.DeviceRecord{
			HueID:      d.HueID,
			Name:       d.Name,
			Capability: model.CapabilityOnOff,
			CreatedAt:  parseTime(d.CreatedAt),
			ModifiedAt: parseTime(d.ModifiedAt),
		}
		if d.EntityID != nil && *d.EntityID != "" {
			ref, err := model.ParseTargetRef(*d.EntityID)
			if err != nil {
				return nil, fmt.Errorf("device %s: %w", id, err)
			}
			record.Target = ref
			record.Capability = model.CapabilityOf(ref.Domain)
		}
		if d.LastAccessedAt != nil {
			if at := parseTime(*d.LastAccessedAt); !at.IsZero() {
				record.LastAccessedAt = &at
			}
		}
		if d.LastAccessedBy != nil {
			record.LastAccessedBy = *d.LastAccessedBy
		}
		state.Devices = append(state.Devices, record)
	}
	// the legacy layout has no order; ids were handed out ascending
	sort.Slice(state.Devices, func(i, j int) bool {
		a, _ := strconv.ParseUint(state.Devices[i].HueID, 10, 64)
		b, _ := strconv.ParseUint(state.Devices[j].HueID, 10, 64)
		return a < b
	})
	return state, nil
}

// Save writes to a temporary file next to the target, syncs it and renames
// it over the target so a crash never leaves a truncated file behind.
func (s *JSONStore) Save(_ context.Context, state *model.LedgerState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(storedLedger{Version: storeVersion, LedgerState: state}, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return err
	}
	return syncDir(dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()
	// not every platform can fsync a directory
	_ = d.Sync()
	return nil
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
