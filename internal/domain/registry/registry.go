// Package registry holds the virtual devices and keeps them in sync with
// the store.
package registry

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	log "github.com/echocat/slf4g"

	"github.com/richardctrimble/ha-emulated-hue/internal/domain/ledger"
	"github.com/richardctrimble/ha-emulated-hue/internal/domain/model"
	"github.com/richardctrimble/ha-emulated-hue/internal/ports"
)

// MaxNameLength is the longest light name Hue clients accept.
const MaxNameLength = 32

type Registry struct {
	store ports.Store
	now   func() time.Time

	mu      sync.RWMutex
	ledger  *ledger.Ledger
	devices []*model.DeviceRecord
	// access info recorded since the last save
	dirty bool
}

func New(store ports.Store) *Registry {
	return &Registry{
		store:  store,
		now:    time.Now,
		ledger: ledger.New(),
	}
}

// Reload replaces the in-memory state with what is stored. Unsaved access
// info is discarded. The write lock is held from load to swap so no
// mutation can commit in between and be lost.
func (r *Registry) Reload(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := r.store.Load(ctx)
	if err != nil {
		return &model.PersistenceError{Op: "load", Err: err}
	}
	l, err := ledger.FromState(state)
	if err != nil {
		return &model.PersistenceError{Op: "load", Err: err}
	}
	var devices []*model.DeviceRecord
	if state != nil {
		devices = make([]*model.DeviceRecord, 0, len(state.Devices))
		for _, d := range state.Devices {
			c := d.Clone()
			if c.Target != nil {
				c.Capability = model.CapabilityOf(c.Target.Domain)
			} else {
				c.Capability = model.CapabilityOnOff
			}
			devices = append(devices, c)
		}
	}

	r.ledger = l
	r.devices = devices
	r.dirty = false

	log.With("devices", len(devices)).
		With("retired", len(l.Retired())).
		With("nextId", l.Peek()).
		Info("Device registry loaded.")
	return nil
}

func (r *Registry) Create(ctx context.Context, name string, target *model.TargetRef) (*model.DeviceRecord, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	if err := validateTarget(target); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var created *model.DeviceRecord
	err = r.mutate(ctx, func(l *ledger.Ledger, devices []*model.DeviceRecord) ([]*model.DeviceRecord, error) {
		if err := checkNotLinked(devices, target, ""); err != nil {
			return nil, err
		}
		now := r.now()
		created = &model.DeviceRecord{
			HueID:      l.Allocate(),
			Name:       name,
			Capability: model.CapabilityOnOff,
			CreatedAt:  now,
			ModifiedAt: now,
		}
		if target != nil {
			t := *target
			created.Target = &t
			created.Capability = model.CapabilityOf(t.Domain)
		}
		return append(devices, created), nil
	})
	if err != nil {
		return nil, err
	}

	log.With("hueId", created.HueID).
		With("name", created.Name).
		With("target", created.EntityID()).
		Info("Device created.")
	return created.Clone(), nil
}

func (r *Registry) Update(ctx context.Context, id string, upd model.DeviceUpdate) (*model.DeviceRecord, error) {
	var name string
	if upd.Name != nil {
		n, err := validateName(*upd.Name)
		if err != nil {
			return nil, err
		}
		name = n
	}
	if upd.Target != nil {
		if err := validateTarget(*upd.Target); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var updated *model.DeviceRecord
	err := r.mutate(ctx, func(l *ledger.Ledger, devices []*model.DeviceRecord) ([]*model.DeviceRecord, error) {
		d := find(devices, id)
		if d == nil {
			return nil, &model.NotFoundError{ID: id}
		}
		if upd.Name != nil {
			d.Name = name
		}
		if upd.Target != nil {
			target := *upd.Target
			if err := checkNotLinked(devices, target, id); err != nil {
				return nil, err
			}
			if target == nil {
				d.Target = nil
				d.Capability = model.CapabilityOnOff
			} else {
				t := *target
				d.Target = &t
				d.Capability = model.CapabilityOf(t.Domain)
			}
		}
		if upd.Scale != nil {
			if s := *upd.Scale; s != nil && (s.ToHue != "" || s.ToNative != "") {
				c := *s
				d.Scale = &c
			} else {
				d.Scale = nil
			}
		}
		d.ModifiedAt = r.now()
		updated = d
		return devices, nil
	})
	if err != nil {
		return nil, err
	}

	log.With("hueId", updated.HueID).
		With("name", updated.Name).
		With("target", updated.EntityID()).
		Info("Device updated.")
	return updated.Clone(), nil
}

// Delete removes the device and retires its id for good.
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.mutate(ctx, func(l *ledger.Ledger, devices []*model.DeviceRecord) ([]*model.DeviceRecord, error) {
		for i, d := range devices {
			if d.HueID == id {
				if err := l.Retire(id); err != nil {
					return nil, err
				}
				return append(devices[:i], devices[i+1:]...), nil
			}
		}
		return nil, &model.NotFoundError{ID: id}
	})
	if err != nil {
		return err
	}

	log.With("hueId", id).
		Info("Device deleted, id retired.")
	return nil
}

// List returns copies of all devices in creation order.
func (r *Registry) List(context.Context) []*model.DeviceRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneAll(r.devices)
}

func (r *Registry) Get(_ context.Context, id string) (*model.DeviceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d := find(r.devices, id)
	if d == nil {
		return nil, &model.NotFoundError{ID: id}
	}
	return d.Clone(), nil
}

// RecordAccess notes that remote read or commanded the device. It is
// persisted with the next mutation or Flush.
func (r *Registry) RecordAccess(id, remote string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := find(r.devices, id)
	if d == nil {
		return
	}
	at := r.now()
	d.LastAccessedAt = &at
	d.LastAccessedBy = remote
	r.dirty = true
}

// Flush saves pending access info.
func (r *Registry) Flush(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.dirty {
		return nil
	}
	if err := r.store.Save(ctx, r.ledger.Snapshot(r.devices)); err != nil {
		return &model.PersistenceError{Op: "save", Err: err}
	}
	r.dirty = false
	return nil
}

func (r *Registry) Stats(context.Context) model.Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := model.Stats{
		Devices: len(r.devices),
		Retired: len(r.ledger.Retired()),
		NextID:  r.ledger.Peek(),
	}
	for _, d := range r.devices {
		if d.IsLinked() {
			s.Linked++
		}
	}
	return s
}

// mutate applies fn to copies of the ledger and devices, saves the result
// and only then makes it current. Callers hold the write lock.
func (r *Registry) mutate(ctx context.Context, fn func(*ledger.Ledger, []*model.DeviceRecord) ([]*model.DeviceRecord, error)) error {
	l := r.ledger.Clone()
	devices, err := fn(l, cloneAll(r.devices))
	if err != nil {
		return err
	}
	if err := r.store.Save(ctx, l.Snapshot(devices)); err != nil {
		log.WithError(err).
			Error("Cannot save device registry, change discarded.")
		return &model.PersistenceError{Op: "save", Err: err}
	}
	r.ledger = l
	r.devices = devices
	r.dirty = false
	return nil
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &model.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", &model.ValidationError{Field: "name", Reason: "must not be longer than 32 characters"}
	}
	return name, nil
}

func validateTarget(target *model.TargetRef) error {
	if target == nil {
		return nil
	}
	if target.ObjectID == "" {
		return &model.ValidationError{Field: "target", Reason: "object id is missing"}
	}
	if !target.Domain.IsSupported() {
		return &model.ValidationError{Field: "target", Reason: "unsupported domain " + string(target.Domain)}
	}
	return nil
}

func checkNotLinked(devices []*model.DeviceRecord, target *model.TargetRef, except string) error {
	if target == nil {
		return nil
	}
	for _, d := range devices {
		if d.HueID != except && d.Target != nil && *d.Target == *target {
			return &model.ValidationError{Field: "target", Reason: target.EntityID() + " is already linked to device " + d.HueID}
		}
	}
	return nil
}

func find(devices []*model.DeviceRecord, id string) *model.DeviceRecord {
	for _, d := range devices {
		if d.HueID == id {
			return d
		}
	}
	return nil
}

func cloneAll(devices []*model.DeviceRecord) []*model.DeviceRecord {
	out := make([]*model.DeviceRecord, 0, len(devices))
	for _, d := range devices {
		out = append(out, d.Clone())
	}
	return out
}
