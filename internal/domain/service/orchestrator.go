package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/echocat/slf4g"

	"github.com/richardctrimble/ha-emulated-hue/internal/domain/model"
	"github.com/richardctrimble/ha-emulated-hue/internal/ports"
)

// Orchestrator owns the lifecycle of the bridge: the registry is loaded
// first, then the listeners are started in the order they were added and
// stopped in the same order.
type Orchestrator struct {
	bridge *BridgeService

	mu        sync.Mutex
	listeners []ports.Listener
	started   []ports.Listener
}

func NewOrchestrator(bridge *BridgeService) *Orchestrator {
	return &Orchestrator{bridge: bridge}
}

// Use adds listeners. Discovery goes first so that it is also the first
// to stop answering on shutdown.
func (o *Orchestrator) Use(listeners ...ports.Listener) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.listeners = append(o.listeners, listeners...)
}

func (o *Orchestrator) Start(ctx context.Context) error {
	if err := o.bridge.Reload(ctx); err != nil {
		return fmt.Errorf("cannot load devices: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	for _, l := range o.listeners {
		if err := l.Start(ctx); err != nil {
			for _, s := range o.started {
				if serr := s.Shutdown(ctx); serr != nil {
					log.WithError(serr).
						Warn("Cannot stop listener after failed start.")
				}
			}
			o.started = nil
			return err
		}
		o.started = append(o.started, l)
	}
	log.With("listeners", len(o.started)).
		Info("Bridge started.")
	return nil
}

// Shutdown stops the listeners and flushes pending registry state. It
// keeps going on errors and reports all of them.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	started := o.started
	o.started = nil
	o.mu.Unlock()

	var errs []error
	for _, l := range started {
		if err := l.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := o.bridge.Flush(ctx); err != nil {
		errs = append(errs, err)
	}
	log.Info("Bridge stopped.")
	return errors.Join(errs...)
}

func (o *Orchestrator) Reload(ctx context.Context) error {
	return o.bridge.Reload(ctx)
}

func (o *Orchestrator) CreateDevice(ctx context.Context, name string, target *model.TargetRef) (*model.DeviceRecord, error) {
	return o.bridge.CreateDevice(ctx, name, target)
}

// ListDevices also writes every device to the log.
func (o *Orchestrator) ListDevices(ctx context.Context) ([]*model.DeviceRecord, error) {
	devices, err := o.bridge.ListDevices(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range devices {
		log.With("hueId", d.HueID).
			With("name", d.Name).
			With("target", d.EntityID()).
			With("capability", d.Capability).
			Info("Device.")
	}
	return devices, nil
}

func (o *Orchestrator) GetDevice(ctx context.Context, id string) (*model.DeviceRecord, error) {
	return o.bridge.GetDevice(ctx, id)
}

func (o *Orchestrator) UpdateDevice(ctx context.Context, id string, upd model.DeviceUpdate) (*model.DeviceRecord, error) {
	return o.bridge.UpdateDevice(ctx, id, upd)
}

func (o *Orchestrator) DeleteDevice(ctx context.Context, id string) error {
	return o.bridge.DeleteDevice(ctx, id)
}

func (o *Orchestrator) Stats(ctx context.Context) (model.Stats, error) {
	return o.bridge.Stats(ctx)
}

func (o *Orchestrator) Entities(ctx context.Context) ([]model.Entity, error) {
	return o.bridge.Entities(ctx)
}
