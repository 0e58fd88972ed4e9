package http

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/richardctrimble/ha-emulated-hue/internal/domain/model"
)

const (
	manufacturerName = "Home Assistant"
	softwareVersion  = "123"
	stateMode        = "homeautomation"
)

type member struct {
	key   string
	value any
}

// object is a JSON object that keeps its key order. Hue clients show
// lights in the order the bridge lists them.
type object []member

func (o object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(m.key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(m.value)
		if err != nil {
			return nil, fmt.Errorf("cannot encode %q: %w", m.key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// uniqueID derives a stable Hue style unique id, 00:xx:xx:xx:xx:xx:xx:xx-xx.
func uniqueID(hueID string) string {
	sum := md5.Sum([]byte("ha_emulated_hue_" + hueID))
	h := hex.EncodeToString(sum[:])
	return fmt.Sprintf("00:%s:%s:%s:%s:%s:%s:%s-%s",
		h[0:2], h[2:4], h[4:6], h[6:8], h[8:10], h[10:12], h[12:14], h[14:16])
}

func renderState(v *model.LightView) object {
	s := v.State
	o := object{
		{"on", s.On},
		{"reachable", s.Reachable},
		{"mode", stateMode},
	}
	switch v.Kind {
	case model.KindExtendedColor:
		o = append(o,
			member{"bri", s.Bri},
			member{"hue", s.Hue},
			member{"sat", s.Sat},
			member{"ct", s.Ct},
			member{"effect", s.Effect},
			member{"colormode", s.ColorMode},
		)
	case model.KindColor:
		o = append(o,
			member{"bri", s.Bri},
			member{"colormode", s.ColorMode},
			member{"hue", s.Hue},
			member{"sat", s.Sat},
			member{"effect", s.Effect},
		)
	case model.KindColorTemperature:
		o = append(o,
			member{"colormode", s.ColorMode},
			member{"ct", s.Ct},
			member{"bri", s.Bri},
		)
	case model.KindDimmable:
		o = append(o, member{"bri", s.Bri})
	}
	return o
}

func renderLight(v *model.LightView) object {
	o := object{
		{"state", renderState(v)},
		{"name", v.Name},
		{"uniqueid", uniqueID(v.HueID)},
		{"manufacturername", manufacturerName},
		{"swversion", softwareVersion},
		{"type", string(v.Kind)},
	}
	if v.Kind == model.KindOnOff {
		o = append(o, member{"productname", string(v.Kind)})
	}
	return append(o, member{"modelid", v.Kind.ModelID()})
}

func renderLights(views []*model.LightView) object {
	o := make(object, 0, len(views))
	for _, v := range views {
		o = append(o, member{v.HueID, renderLight(v)})
	}
	return o
}

type hueError struct {
	Error *model.HueError `json:"error"`
}

func hueErrors(errType int, address, description string) []hueError {
	return []hueError{{Error: &model.HueError{Type: errType, Address: address, Description: description}}}
}

func notAvailable(id string) []hueError {
	address := "/lights/" + id
	return hueErrors(model.HueErrNotAvailable, address, fmt.Sprintf("resource, %s, not available", address))
}

func renderResults(id string, results []model.FieldResult) []any {
	out := make([]any, 0, len(results))
	for _, r := range results {
		if r.Error != nil {
			out = append(out, hueError{Error: r.Error})
			continue
		}
		out = append(out, map[string]map[string]any{
			"success": {fmt.Sprintf("/lights/%s/state/%s", id, r.Field): r.Value},
		})
	}
	return out
}
