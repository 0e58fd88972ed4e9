package ports

import (
	"context"

	"github.com/richardctrimble/ha-emulated-hue/internal/domain/model"
)

// Store persists the ledger. Load returns nil and no error when nothing
// was stored yet.
type Store interface {
	Load(ctx context.Context) (*model.LedgerState, error)
	Save(ctx context.Context, state *model.LedgerState) error
}

// TargetProvider resolves references to controllable targets.
type TargetProvider interface {
	Target(ctx context.Context, ref model.TargetRef) (Target, error)
}

// Target is a controlled entity. CurrentState returns a
// *model.TargetUnreachableError when the entity cannot be read.
type Target interface {
	Ref() model.TargetRef
	CurrentState(ctx context.Context) (*model.TargetState, error)
	Apply(ctx context.Context, cmd model.NativeCommand) error
}

// CommandRecorder receives every applied light command.
type CommandRecorder interface {
	Record(ctx context.Context, device *model.DeviceRecord, cmd *model.LightCommand, results []model.FieldResult)
}

// Listener is a network facing component with a start/stop lifecycle.
type Listener interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// EntityCatalog is implemented by providers that can list what they offer.
type EntityCatalog interface {
	Entities(ctx context.Context) ([]model.Entity, error)
}
