package model

import (
	"github.com/amimof/huego"
)

// Value ranges of the Hue light state.
const (
	HueBriMin = 1
	HueBriMax = 254
	HueHueMax = 65535
	HueSatMax = 254
	HueCtMin  = 153
	HueCtMax  = 500
)

// Hue API error types.
const (
	HueErrUnauthorized      = 1
	HueErrInvalidJSON       = 2
	HueErrNotAvailable      = 3
	HueErrParamNotAvailable = 6
	HueErrInvalidValue      = 7
	HueErrInternal          = 901
)

// HueError is the body of a Hue {"error": ...} object.
type HueError struct {
	Type        int    `json:"type"`
	Address     string `json:"address"`
	Description string `json:"description"`
}

// LightKind is the Hue light type a device is presented as.
type LightKind string

const (
	KindExtendedColor    LightKind = "Extended color light"
	KindColor            LightKind = "Color light"
	KindColorTemperature LightKind = "Color temperature light"
	KindDimmable         LightKind = "Dimmable light"
	KindOnOff            LightKind = "On/Off light"
)

// ModelID returns the model id reported for the kind.
func (k LightKind) ModelID() string {
	switch k {
	case KindExtendedColor:
		return "HASS231"
	case KindColor:
		return "HASS213"
	case KindColorTemperature:
		return "HASS312"
	case KindOnOff:
		return "HASS321"
	default:
		return "HASS123"
	}
}

// LightView is a device rendered as a Hue light.
type LightView struct {
	HueID string
	Name  string
	Kind  LightKind
	State huego.State
}

// LightCommand is a parsed PUT .../state body. Nil fields were not sent.
type LightCommand struct {
	On             *bool
	Bri            *uint8
	Hue            *uint16
	Sat            *uint8
	Ct             *uint16
	Xy             []float32
	TransitionTime *uint16
}

// Command field names in the order results are reported.
const (
	FieldOn             = "on"
	FieldBri            = "bri"
	FieldHue            = "hue"
	FieldSat            = "sat"
	FieldCt             = "ct"
	FieldXy             = "xy"
	FieldTransitionTime = "transitiontime"
)

// Fields lists the fields present in the command.
func (c *LightCommand) Fields() []string {
	var out []string
	if c.On != nil {
		out = append(out, FieldOn)
	}
	if c.Bri != nil {
		out = append(out, FieldBri)
	}
	if c.Hue != nil {
		out = append(out, FieldHue)
	}
	if c.Sat != nil {
		out = append(out, FieldSat)
	}
	if c.Ct != nil {
		out = append(out, FieldCt)
	}
	if c.Xy != nil {
		out = append(out, FieldXy)
	}
	if c.TransitionTime != nil {
		out = append(out, FieldTransitionTime)
	}
	return out
}

// Value returns the value sent for field, or nil.
func (c *LightCommand) Value(field string) any {
	switch field {
	case FieldOn:
		if c.On != nil {
			return *c.On
		}
	case FieldBri:
		if c.Bri != nil {
			return *c.Bri
		}
	case FieldHue:
		if c.Hue != nil {
			return *c.Hue
		}
	case FieldSat:
		if c.Sat != nil {
			return *c.Sat
		}
	case FieldCt:
		if c.Ct != nil {
			return *c.Ct
		}
	case FieldXy:
		if c.Xy != nil {
			return c.Xy
		}
	case FieldTransitionTime:
		if c.TransitionTime != nil {
			return *c.TransitionTime
		}
	}
	return nil
}

// State folds the command into a huego.State. Absent fields stay zero.
func (c *LightCommand) State() huego.State {
	var s huego.State
	if c.On != nil {
		s.On = *c.On
	}
	if c.Bri != nil {
		s.Bri = *c.Bri
	}
	if c.Hue != nil {
		s.Hue = *c.Hue
	}
	if c.Sat != nil {
		s.Sat = *c.Sat
	}
	if c.Ct != nil {
		s.Ct = *c.Ct
	}
	s.Xy = c.Xy
	if c.TransitionTime != nil {
		s.TransitionTime = *c.TransitionTime
	}
	return s
}

// FieldResult is the outcome of one command field.
type FieldResult struct {
	Field string
	Value any
	Error *HueError
}

// OK reports whether the field was applied.
func (r FieldResult) OK() bool {
	return r.Error == nil
}
