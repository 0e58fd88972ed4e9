package http

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/richardctrimble/ha-emulated-hue/internal/domain/model"
)

// fieldError reports a command field with a value of the wrong type.
type fieldError struct {
	field string
	value json.RawMessage
}

func (e *fieldError) Error() string {
	return fmt.Sprintf("invalid value, %s, for parameter, %s", string(e.value), e.field)
}

// parseCommand decodes a PUT .../state body. Numbers may also be sent as
// numeric strings; out of range values are clamped. Unknown keys are
// ignored.
func parseCommand(body map[string]json.RawMessage) (*model.LightCommand, error) {
	cmd := &model.LightCommand{}

	if raw, ok := body[model.FieldOn]; ok {
		var on bool
		if err := json.Unmarshal(raw, &on); err != nil {
			return nil, &fieldError{field: model.FieldOn, value: raw}
		}
		cmd.On = &on
	}

	ranged := []struct {
		field    string
		min, max float64
		set      func(float64)
	}{
		{model.FieldBri, 0, model.HueBriMax, func(v float64) { b := uint8(v); cmd.Bri = &b }},
		{model.FieldHue, 0, model.HueHueMax, func(v float64) { h := uint16(v); cmd.Hue = &h }},
		{model.FieldSat, 0, model.HueSatMax, func(v float64) { s := uint8(v); cmd.Sat = &s }},
		{model.FieldCt, model.HueCtMin, model.HueCtMax, func(v float64) { c := uint16(v); cmd.Ct = &c }},
		{model.FieldTransitionTime, 0, math.MaxUint16, func(v float64) { t := uint16(v); cmd.TransitionTime = &t }},
	}
	for _, r := range ranged {
		raw, ok := body[r.field]
		if !ok {
			continue
		}
		v, err := number(raw)
		if err != nil {
			return nil, &fieldError{field: r.field, value: raw}
		}
		r.set(math.Max(r.min, math.Min(r.max, math.Trunc(v))))
	}

	if raw, ok := body[model.FieldXy]; ok {
		var xy []json.RawMessage
		if err := json.Unmarshal(raw, &xy); err != nil || len(xy) != 2 {
			return nil, &fieldError{field: model.FieldXy, value: raw}
		}
		cmd.Xy = make([]float32, 2)
		for i, c := range xy {
			v, err := number(c)
			if err != nil {
				return nil, &fieldError{field: model.FieldXy, value: raw}
			}
			cmd.Xy[i] = float32(math.Max(0, math.Min(1, v)))
		}
	}
	return cmd, nil
}

func number(raw json.RawMessage) (float64, error) {
	var v float64
	if err := json.Unmarshal(raw, &v); err == nil {
		return v, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number: %s", s)
	}
	return v, nil
}
