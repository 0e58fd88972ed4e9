package translator

import (
	"github.com/amimof/huego"

	"github.com/richardctrimble/ha-emulated-hue/internal/domain/model"
)

// TriggerStrategy handles scripts and scenes. Both are started for on and
// off alike; scripts get the requested state and level as variables.
type TriggerStrategy struct {
	domain    model.Domain
	variables bool
}

func NewScriptStrategy() *TriggerStrategy {
	return &TriggerStrategy{domain: model.DomainScript, variables: true}
}

func NewSceneStrategy() *TriggerStrategy {
	return &TriggerStrategy{domain: model.DomainScene}
}

func (s *TriggerStrategy) Domain() model.Domain { return s.domain }
func (s *TriggerStrategy) DefaultScale() *Scale { return PercentScale }
func (s *TriggerStrategy) Sticky() bool { return true }

func (s *TriggerStrategy) IsOn(state *model.TargetState) bool {
	return state != nil && state.State != model.StateOff
}

func (s *TriggerStrategy) Kind(*model.TargetState) model.LightKind {
	return model.KindOnOff
}

func (s *TriggerStrategy) Read(state *model.TargetState, _ *Scale) huego.State {
	return huego.State{On: s.IsOn(state)}
}

func (s *TriggerStrategy) Plan(req *Request) *Plan {
	plan := &Plan{On: req.On, Accepted: []string{model.FieldOn}}
	cmd := model.NativeCommand{Domain: string(s.domain), Service: "turn_on"}
	fields := []string{model.FieldOn}

	if s.variables {
		if req.Command.Bri != nil {
			plan.On = true
		}
		requested := model.StateOff
		if plan.On {
			requested = model.StateOn
		}
		vars := map[string]any{"requested_state": requested}
		if req.Command.Bri != nil {
			vars["requested_level"] = int(req.Scale.Native(int(*req.Command.Bri)))
			plan.Accepted = append(plan.Accepted, model.FieldBri)
			fields = append(fields, model.FieldBri)
		}
		cmd.Data = map[string]any{"variables": vars}
	} else if req.Command.Bri != nil {
		plan.On = true
	}

	plan.Steps = []Step{{Command: cmd, Fields: fields}}
	return plan
}
