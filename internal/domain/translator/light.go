package translator

import (
	"math"

	"github.com/amimof/huego"

	"github.com/richardctrimble/ha-emulated-hue/internal/domain/model"
)

const lightSupportTransition = 32

type LightStrategy struct{}

func (s *LightStrategy) Domain() model.Domain { return model.DomainLight }
func (s *LightStrategy) DefaultScale() *Scale { return BrightnessScale }
func (s *LightStrategy) Sticky() bool { return false }

func (s *LightStrategy) IsOn(state *model.TargetState) bool {
	return state != nil && state.State == model.StateOn
}

func (s *LightStrategy) Kind(state *model.TargetState) model.LightKind {
	m := colorModesOf(state)
	switch {
	case m.color && m.temperature:
		return model.KindExtendedColor
	case m.color:
		return model.KindColor
	case m.temperature:
		return model.KindColorTemperature
	case m.brightness:
		return model.KindDimmable
	default:
		return model.KindOnOff
	}
}

func (s *LightStrategy) Read(state *model.TargetState, scale *Scale) huego.State {
	result := huego.State{On: s.IsOn(state)}
	if !result.On {
		return result
	}
	b, _ := state.Float("brightness")
	result.Bri = uint8(clamp(scale.Hue(b), model.HueBriMin, model.HueBriMax))
	if h, sat, ok := state.Pair("hs_color"); ok {
		result.Hue = uint16(clamp(int(h/360*model.HueHueMax), 0, model.HueHueMax))
		result.Sat = uint8(clamp(int(sat/100*model.HueSatMax), 0, model.HueSatMax))
	}
	if k, ok := state.Float("color_temp_kelvin"); ok && k > 0 {
		result.Ct = uint16(clamp(int(math.Floor(1e6/k)), model.HueCtMin, model.HueCtMax))
	}
	return result
}

func (s *LightStrategy) Plan(req *Request) *Plan {
	cmd := req.Command
	m := colorModesOf(req.Current)
	features, _ := req.Current.Float("supported_features")

	on := req.On
	if cmd.On == nil && cmd.Bri != nil && m.brightness {
		on = *cmd.Bri > 0
	}

	plan := &Plan{On: on, Accepted: []string{model.FieldOn}}
	data := map[string]any{}
	if m.brightness {
		plan.Accepted = append(plan.Accepted, model.FieldBri)
	}
	if m.color {
		plan.Accepted = append(plan.Accepted, model.FieldHue, model.FieldSat, model.FieldXy)
	}
	if m.temperature {
		plan.Accepted = append(plan.Accepted, model.FieldCt)
	}
	if int(features)&lightSupportTransition != 0 {
		plan.Accepted = append(plan.Accepted, model.FieldTransitionTime)
		if cmd.TransitionTime != nil {
			data["transition"] = float64(*cmd.TransitionTime) / 10
		}
	}

	if on {
		if m.brightness && cmd.Bri != nil {
			data["brightness"] = int(req.Scale.Native(int(*cmd.Bri)))
		}
		if m.color {
			var hue, sat int
			if cmd.Hue != nil {
				hue = int(*cmd.Hue)
			}
			if cmd.Sat != nil {
				sat = int(*cmd.Sat)
			}
			if hue != 0 || sat != 0 {
				data["hs_color"] = []int{
					int(float64(hue) / model.HueHueMax * 360),
					int(float64(sat) / model.HueSatMax * 100),
				}
			}
			if len(cmd.Xy) == 2 {
				data["xy_color"] = []float64{float64(cmd.Xy[0]), float64(cmd.Xy[1])}
			}
		}
		if m.temperature && cmd.Ct != nil && *cmd.Ct > 0 {
			data["color_temp_kelvin"] = int(math.Floor(1e6 / float64(*cmd.Ct)))
		}
	}

	plan.Steps = []Step{{
		Command: model.NativeCommand{Domain: string(model.DomainLight), Service: serviceFor(on), Data: data},
		Fields:  plan.Accepted,
	}}
	return plan
}

type colorModes struct {
	brightness  bool
	color       bool
	temperature bool
}

func colorModesOf(state *model.TargetState) colorModes {
	var m colorModes
	for _, mode := range state.Strings("supported_color_modes") {
		switch mode {
		case "hs", "xy", "rgb", "rgbw", "rgbww":
			m.color = true
			m.brightness = true
		case "color_temp":
			m.temperature = true
			m.brightness = true
		case "brightness", "white":
			m.brightness = true
		}
	}
	return m
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
