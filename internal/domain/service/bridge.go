package service

import (
	"context"

	log "github.com/echocat/slf4g"

	"github.com/richardctrimble/ha-emulated-hue/internal/domain/model"
	"github.com/richardctrimble/ha-emulated-hue/internal/domain/registry"
	"github.com/richardctrimble/ha-emulated-hue/internal/domain/translator"
	"github.com/richardctrimble/ha-emulated-hue/internal/ports"
)

// BridgeService answers Hue clients and manages the virtual devices.
type BridgeService struct {
	registry   *registry.Registry
	translator *translator.Translator
	targets    ports.TargetProvider
	recorder   ports.CommandRecorder
}

// NewBridgeService wires the service; recorder may be nil.
func NewBridgeService(reg *registry.Registry, tr *translator.Translator, targets ports.TargetProvider, recorder ports.CommandRecorder) *BridgeService {
	return &BridgeService{
		registry:   reg,
		translator: tr,
		targets:    targets,
		recorder:   recorder,
	}
}

func (s *BridgeService) Lights(ctx context.Context) ([]*model.LightView, error) {
	devices := s.registry.List(ctx)
	views := make([]*model.LightView, 0, len(devices))
	for _, d := range devices {
		views = append(views, s.translator.ToHue(ctx, d, s.resolve(ctx, d)))
	}
	return views, nil
}

func (s *BridgeService) Light(ctx context.Context, id, remote string) (*model.LightView, error) {
	d, err := s.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.registry.RecordAccess(id, remote)
	return s.translator.ToHue(ctx, d, s.resolve(ctx, d)), nil
}

func (s *BridgeService) SetLightState(ctx context.Context, id, remote string, cmd *model.LightCommand) ([]model.FieldResult, error) {
	d, err := s.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.registry.RecordAccess(id, remote)
	results := s.translator.Apply(ctx, d, s.resolve(ctx, d), cmd)
	if s.recorder != nil {
		s.recorder.Record(ctx, d, cmd, results)
	}
	return results, nil
}

func (s *BridgeService) CreateDevice(ctx context.Context, name string, target *model.TargetRef) (*model.DeviceRecord, error) {
	return s.registry.Create(ctx, name, target)
}

func (s *BridgeService) ListDevices(ctx context.Context) ([]*model.DeviceRecord, error) {
	return s.registry.List(ctx), nil
}

func (s *BridgeService) GetDevice(ctx context.Context, id string) (*model.DeviceRecord, error) {
	return s.registry.Get(ctx, id)
}

func (s *BridgeService) UpdateDevice(ctx context.Context, id string, upd model.DeviceUpdate) (*model.DeviceRecord, error) {
	if upd.Scale != nil {
		if err := translator.ValidateScale(*upd.Scale); err != nil {
			return nil, err
		}
	}
	before, err := s.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := s.registry.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	if upd.Target != nil {
		s.translator.Forget(before)
	}
	return updated, nil
}

func (s *BridgeService) DeleteDevice(ctx context.Context, id string) error {
	before, err := s.registry.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.registry.Delete(ctx, id); err != nil {
		return err
	}
	s.translator.Forget(before)
	return nil
}

func (s *BridgeService) Reload(ctx context.Context) error {
	return s.registry.Reload(ctx)
}

func (s *BridgeService) Stats(ctx context.Context) (model.Stats, error) {
	return s.registry.Stats(ctx), nil
}

// Entities lists what the target provider offers for linking. Providers
// that cannot enumerate their entities yield an empty list.
func (s *BridgeService) Entities(ctx context.Context) ([]model.Entity, error) {
	catalog, ok := s.targets.(ports.EntityCatalog)
	if !ok {
		return []model.Entity{}, nil
	}
	return catalog.Entities(ctx)
}

// Flush saves state that is not written on every request.
func (s *BridgeService) Flush(ctx context.Context) error {
	return s.registry.Flush(ctx)
}

func (s *BridgeService) resolve(ctx context.Context, d *model.DeviceRecord) ports.Target {
	if !d.IsLinked() || s.targets == nil {
		return nil
	}
	t, err := s.targets.Target(ctx, *d.Target)
	if err != nil {
		log.WithError(err).
			With("hueId", d.HueID).
			With("target", d.EntityID()).
			Debug("Cannot resolve target.")
		return nil
	}
	return t
}
