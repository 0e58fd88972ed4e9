package translator

import (
	"github.com/amimof/huego"

	"github.com/richardctrimble/ha-emulated-hue/internal/domain/model"
)

// Strategy knows how one target domain looks and behaves as a Hue light.
type Strategy interface {
	Domain() model.Domain
	IsOn(state *model.TargetState) bool
	Kind(state *model.TargetState) model.LightKind
	// Read renders on, bri and colour; values are not clamped yet.
	Read(state *model.TargetState, scale *Scale) huego.State
	Plan(req *Request) *Plan
	DefaultScale() *Scale
	// Sticky strategies keep serving the last command, their targets have
	// no meaningful on/off state of their own.
	Sticky() bool
}

// Request is a command with its on/off already resolved.
type Request struct {
	Command *model.LightCommand
	On      bool
	Current *model.TargetState
	Scale   *Scale
}

// Plan is the list of native calls a command turns into.
type Plan struct {
	Steps []Step
	// Accepted lists the fields the target can honour.
	Accepted []string
	// On is the state the target ends up in.
	On bool
}

// Step is one native call and the fields that depend on it.
type Step struct {
	Command model.NativeCommand
	Fields  []string
}

func (p *Plan) accepts(field string) bool {
	for _, f := range p.Accepted {
		if f == field {
			return true
		}
	}
	return false
}

func serviceFor(on bool) string {
	if on {
		return "turn_on"
	}
	return "turn_off"
}
