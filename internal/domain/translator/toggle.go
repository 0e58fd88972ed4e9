package translator

import (
	"github.com/amimof/huego"

	"github.com/richardctrimble/ha-emulated-hue/internal/domain/model"
)

// ToggleStrategy handles plain on/off targets through the generic
// homeassistant turn_on and turn_off services.
type ToggleStrategy struct {
	domain model.Domain
}

func NewToggleStrategy(domain model.Domain) *ToggleStrategy {
	return &ToggleStrategy{domain: domain}
}

func (s *ToggleStrategy) Domain() model.Domain { return s.domain }
func (s *ToggleStrategy) DefaultScale() *Scale { return PercentScale }
func (s *ToggleStrategy) Sticky() bool { return false }

func (s *ToggleStrategy) IsOn(state *model.TargetState) bool {
	return state != nil && state.State == model.StateOn
}

func (s *ToggleStrategy) Kind(*model.TargetState) model.LightKind {
	return model.KindOnOff
}

func (s *ToggleStrategy) Read(state *model.TargetState, _ *Scale) huego.State {
	return huego.State{On: s.IsOn(state)}
}

func (s *ToggleStrategy) Plan(req *Request) *Plan {
	return &Plan{
		On:       req.On,
		Accepted: []string{model.FieldOn},
		Steps: []Step{{
			Command: model.NativeCommand{Domain: "homeassistant", Service: serviceFor(req.On)},
			Fields:  []string{model.FieldOn},
		}},
	}
}
