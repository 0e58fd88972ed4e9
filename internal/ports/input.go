package ports

import (
	"context"

	"github.com/richardctrimble/ha-emulated-hue/internal/domain/model"
)

// BridgePort is what the Hue API serves to clients.
type BridgePort interface {
	Lights(ctx context.Context) ([]*model.LightView, error)
	Light(ctx context.Context, id, remote string) (*model.LightView, error)
	SetLightState(ctx context.Context, id, remote string, cmd *model.LightCommand) ([]model.FieldResult, error)
}

// AdminPort manages the virtual devices.
type AdminPort interface {
	CreateDevice(ctx context.Context, name string, target *model.TargetRef) (*model.DeviceRecord, error)
	ListDevices(ctx context.Context) ([]*model.DeviceRecord, error)
	GetDevice(ctx context.Context, id string) (*model.DeviceRecord, error)
	UpdateDevice(ctx context.Context, id string, upd model.DeviceUpdate) (*model.DeviceRecord, error)
	DeleteDevice(ctx context.Context, id string) error
	Reload(ctx context.Context) error
	Stats(ctx context.Context) (model.Stats, error)
	Entities(ctx context.Context) ([]model.Entity, error)
}

// ConfigPort describes the bridge itself.
type ConfigPort interface {
	Info() model.BridgeInfo
	HueConfig() *model.HueConfig
}
