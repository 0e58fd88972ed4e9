package translator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richardctrimble/ha-emulated-hue/internal/domain/model"
)

type fakeTarget struct {
	ref      model.TargetRef
	state    *model.TargetState
	readErr  error
	failOn   string
	applied  []model.NativeCommand
	simulate bool
}

func newFakeTarget(entityID, state string, attrs map[string]any) *fakeTarget {
	ref, _ := model.ParseTargetRef(entityID)
	if attrs == nil {
		attrs = map[string]any{}
	}
	return &fakeTarget{
		ref:      *ref,
		state:    &model.TargetState{EntityID: entityID, State: state, Attributes: attrs},
		simulate: true,
	}
}

func (f *fakeTarget) Ref() model.TargetRef { return f.ref }

func (f *fakeTarget) CurrentState(context.Context) (*model.TargetState, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.state, nil
}

func (f *fakeTarget) Apply(_ context.Context, cmd model.NativeCommand) error {
	f.applied = append(f.applied, cmd)
	if cmd.String() == f.failOn {
		return errors.New("service call failed")
	}
	if f.simulate {
		f.react(cmd)
	}
	return nil
}

// react mimics how the controlled entity changes after a service call.
func (f *fakeTarget) react(cmd model.NativeCommand) {
	attrs := f.state.Attributes
	switch cmd.Service {
	case "turn_on", "open_cover":
		if f.ref.Domain != model.DomainClimate {
			f.state.State = model.StateOn
		}
	case "turn_off":
		f.state.State = model.StateOff
	case "close_cover":
		f.state.State = model.StateClosed
	case "set_cover_position":
		f.state.State = "open"
	}
	for k, v := range cmd.Data {
		switch k {
		case "brightness":
			attrs["brightness"] = float64(v.(int))
		case "percentage":
			attrs["percentage"] = float64(v.(int))
		case "position":
			attrs["current_position"] = float64(v.(int))
		case "volume_level":
			attrs["volume_level"] = v.(float64)
		case "temperature":
			attrs["temperature"] = float64(v.(int))
		}
	}
}

func device(id string, entityID string) *model.DeviceRecord {
	d := &model.DeviceRecord{HueID: id, Name: "Device " + id, Capability: model.CapabilityOnOff}
	if entityID != "" {
		ref, _ := model.ParseTargetRef(entityID)
		d.Target = ref
		d.Capability = model.CapabilityOf(ref.Domain)
	}
	return d
}

func on(v bool) *bool { return &v }
func bri(v uint8) *uint8 { return &v }
func u16(v uint16) *uint16 { return &v }
func sat(v uint8) *uint8 { return &v }
func ctx() context.Context { return context.Background() }
func colorLight() map[string]any {
	return map[string]any{
		"supported_color_modes": []any{"hs", "color_temp"},
		"supported_features":    float64(32),
	}
}

func TestToHue_Light(t *testing.T) {
	attrs := colorLight()
	attrs["brightness"] = float64(128)
	attrs["hs_color"] = []any{180.0, 50.0}
	attrs["color_temp_kelvin"] = float64(4000)
	target := newFakeTarget("light.kitchen", model.StateOn, attrs)

	view := New().ToHue(ctx(), device("1", "light.kitchen"), target)

	assert.Equal(t, model.KindExtendedColor, view.Kind)
	assert.Equal(t, "HASS231", view.Kind.ModelID())
	assert.True(t, view.State.On)
	assert.True(t, view.State.Reachable)
	assert.Equal(t, uint8(127), view.State.Bri)
	assert.Equal(t, uint16(32767), view.State.Hue)
	assert.Equal(t, uint8(127), view.State.Sat)
	assert.Equal(t, uint16(250), view.State.Ct)
	assert.Equal(t, "hs", view.State.ColorMode)
	assert.Equal(t, "none", view.State.Effect)
}

func TestToHue_LightOffIsClamped(t *testing.T) {
	target := newFakeTarget("light.kitchen", model.StateOff, colorLight())
	view := New().ToHue(ctx(), device("1", "light.kitchen"), target)

	assert.False(t, view.State.On)
	assert.Equal(t, uint8(model.HueBriMin), view.State.Bri)
	assert.Equal(t, uint16(model.HueCtMin), view.State.Ct)
	assert.Equal(t, "ct", view.State.ColorMode)
}

func TestLightStrategy_Kind(t *testing.T) {
	s := &LightStrategy{}
	kind := func(modes ...any) model.LightKind {
		return s.Kind(&model.TargetState{Attributes: map[string]any{"supported_color_modes": modes}})
	}
	assert.Equal(t, model.KindExtendedColor, kind("xy", "color_temp"))
	assert.Equal(t, model.KindColor, kind("rgb"))
	assert.Equal(t, model.KindColorTemperature, kind("color_temp"))
	assert.Equal(t, model.KindDimmable, kind("brightness"))
	assert.Equal(t, model.KindOnOff, kind("onoff"))
	assert.Equal(t, model.KindOnOff, kind())
}

func TestUnlinkedDevice(t *testing.T) {
	tr := New(WithStrictCommands(true))
	d := device("7", "")

	view := tr.ToHue(ctx(), d, nil)
	assert.False(t, view.State.On)
	assert.False(t, view.State.Reachable)
	assert.Equal(t, uint8(0), view.State.Bri)
	assert.Equal(t, model.KindDimmable, view.Kind)

	results := tr.Apply(ctx(), d, nil, &model.LightCommand{On: on(true), Bri: bri(100), Hue: u16(5)})
	require.Len(t, results, 3)
	for _, r := range results {
		assert.True(t, r.OK(), r.Field)
	}
	assert.Equal(t, true, results[0].Value)
	assert.Equal(t, uint8(100), results[1].Value)
}

func TestRoundTripForDimmableDomains(t *testing.T) {
	cases := []struct {
		entityID string
		state    string
		attrs    map[string]any
	}{
		{"light.lamp", model.StateOff, map[string]any{"supported_color_modes": []any{"brightness"}}},
		{"fan.ceiling", model.StateOff, map[string]any{"supported_features": float64(1)}},
		{"cover.blind", model.StateClosed, map[string]any{"supported_features": float64(4)}},
		{"media_player.tv", model.StateOff, map[string]any{"supported_features": float64(4)}},
		{"climate.hall", "heat", map[string]any{"supported_features": float64(1)}},
	}
	for _, c := range cases {
		t.Run(c.entityID, func(t *testing.T) {
			target := newFakeTarget(c.entityID, c.state, c.attrs)
			d := device("3", c.entityID)

			results := New().Apply(ctx(), d, target, &model.LightCommand{On: on(true), Bri: bri(128)})
			require.Len(t, results, 2)
			assert.True(t, results[0].OK())
			assert.True(t, results[1].OK())

			// fresh translator, nothing cached
			view := New().ToHue(ctx(), d, target)
			assert.True(t, view.State.On)
			assert.InDelta(t, 128, int(view.State.Bri), 2)
			assert.Equal(t, model.KindDimmable, view.Kind)
		})
	}
}

func TestApply_LightCommand(t *testing.T) {
	target := newFakeTarget("light.kitchen", model.StateOff, colorLight())
	target.simulate = false
	d := device("1", "light.kitchen")

	results := New().Apply(ctx(), d, target, &model.LightCommand{
		On: on(true), Bri: bri(254), Hue: u16(65535), Sat: sat(254), Ct: u16(250), TransitionTime: u16(15),
	})
	require.Len(t, results, 6)
	require.Len(t, target.applied, 1)

	cmd := target.applied[0]
	assert.Equal(t, "light.turn_on", cmd.String())
	assert.Equal(t, 255, cmd.Data["brightness"])
	assert.Equal(t, []int{360, 100}, cmd.Data["hs_color"])
	assert.Equal(t, 4000, cmd.Data["color_temp_kelvin"])
	assert.Equal(t, 1.5, cmd.Data["transition"])
}

func TestApply_LightBrightnessZeroTurnsOff(t *testing.T) {
	target := newFakeTarget("light.kitchen", model.StateOn, colorLight())
	New().Apply(ctx(), device("1", "light.kitchen"), target, &model.LightCommand{Bri: bri(0)})
	require.Len(t, target.applied, 1)
	assert.Equal(t, "light.turn_off", target.applied[0].String())
}

func TestApply_OnDefaultsToCurrentState(t *testing.T) {
	target := newFakeTarget("fan.ceiling", model.StateOn, map[string]any{"supported_features": float64(1)})
	target.simulate = false
	New().Apply(ctx(), device("2", "fan.ceiling"), target, &model.LightCommand{Hue: u16(1)})
	require.Len(t, target.applied, 1)
	assert.Equal(t, "fan.turn_on", target.applied[0].String())
}

func TestApply_PartialFailure(t *testing.T) {
	target := newFakeTarget("media_player.tv", model.StateOff, nil)
	target.failOn = "media_player.volume_set"

	results := New().Apply(ctx(), device("4", "media_player.tv"), target, &model.LightCommand{On: on(true), Bri: bri(127)})
	require.Len(t, results, 2)
	assert.True(t, results[0].OK())
	require.False(t, results[1].OK())
	assert.Equal(t, model.HueErrInternal, results[1].Error.Type)
	assert.Equal(t, "/lights/4/state/bri", results[1].Error.Address)

	require.Len(t, target.applied, 2)
	assert.Equal(t, "media_player.turn_on", target.applied[0].String())
	assert.InDelta(t, 0.5, target.applied[1].Data["volume_level"], 0.001)
}

func TestApply_UnsupportedFields(t *testing.T) {
	cmd := &model.LightCommand{On: on(true), Bri: bri(100)}

	target := newFakeTarget("switch.plug", model.StateOff, nil)
	results := New().Apply(ctx(), device("5", "switch.plug"), target, cmd)
	require.Len(t, results, 2)
	assert.True(t, results[1].OK(), "ignored by default")
	assert.Equal(t, "homeassistant.turn_on", target.applied[0].String())

	target = newFakeTarget("switch.plug", model.StateOff, nil)
	results = New(WithStrictCommands(true)).Apply(ctx(), device("5", "switch.plug"), target, cmd)
	require.Len(t, results, 2)
	assert.True(t, results[0].OK())
	require.False(t, results[1].OK())
	assert.Equal(t, model.HueErrParamNotAvailable, results[1].Error.Type)
}

func TestApply_ScriptOffMapsToOn(t *testing.T) {
	target := newFakeTarget("script.goodnight", model.StateOff, nil)
	d := device("6", "script.goodnight")
	tr := New()

	results := tr.Apply(ctx(), d, target, &model.LightCommand{On: on(false)})
	require.Len(t, results, 1)
	require.Len(t, target.applied, 1)
	assert.Equal(t, "script.turn_on", target.applied[0].String())
	assert.Equal(t, map[string]any{"requested_state": "off"}, target.applied[0].Data["variables"])

	target.applied = nil
	tr.Apply(ctx(), d, target, &model.LightCommand{Bri: bri(254)})
	assert.Equal(t, map[string]any{"requested_state": "on", "requested_level": 100}, target.applied[0].Data["variables"])
}

func TestApply_SceneIgnoresOff(t *testing.T) {
	target := newFakeTarget("scene.movie", "2024-01-01T00:00:00", nil)
	New().Apply(ctx(), device("8", "scene.movie"), target, &model.LightCommand{On: on(false)})
	require.Len(t, target.applied, 1)
	assert.Equal(t, "scene.turn_on", target.applied[0].String())
	assert.Nil(t, target.applied[0].Data)
}

func TestCommandedStateIsServedBriefly(t *testing.T) {
	target := newFakeTarget("light.kitchen", model.StateOff, colorLight())
	target.simulate = false
	d := device("1", "light.kitchen")
	now := time.Now()
	tr := New()
	tr.now = func() time.Time { return now }

	tr.Apply(ctx(), d, target, &model.LightCommand{On: on(true), Bri: bri(200)})

	// target has not caught up yet and still reports off
	view := tr.ToHue(ctx(), d, target)
	assert.False(t, view.State.On)

	tr.Apply(ctx(), d, target, &model.LightCommand{On: on(true), Bri: bri(200)})
	target.state.State = model.StateOn
	target.state.Attributes["brightness"] = float64(10)

	view = tr.ToHue(ctx(), d, target)
	assert.Equal(t, uint8(200), view.State.Bri)

	now = now.Add(DefaultCacheTTL)
	view = tr.ToHue(ctx(), d, target)
	assert.Equal(t, uint8(10), view.State.Bri)
}

func TestCommandedColorIsServed(t *testing.T) {
	target := newFakeTarget("light.kitchen", model.StateOn, colorLight())
	target.simulate = false
	d := device("1", "light.kitchen")
	tr := New()

	tr.Apply(ctx(), d, target, &model.LightCommand{On: on(true), Bri: bri(100), Hue: u16(1000), Sat: sat(50)})

	view := tr.ToHue(ctx(), d, target)
	assert.True(t, view.State.On)
	assert.Equal(t, uint8(100), view.State.Bri)
	assert.Equal(t, uint16(1000), view.State.Hue)
	assert.Equal(t, uint8(50), view.State.Sat)
}

func TestUnreachableTargetKeepsLastKnownState(t *testing.T) {
	attrs := map[string]any{"supported_features": float64(4), "current_position": float64(100)}
	target := newFakeTarget("cover.blind", "open", attrs)
	d := device("2", "cover.blind")
	tr := New()

	view := tr.ToHue(ctx(), d, target)
	require.True(t, view.State.Reachable)

	target.readErr = &model.TargetUnreachableError{EntityID: "cover.blind"}
	view = tr.ToHue(ctx(), d, target)
	assert.False(t, view.State.Reachable)
	assert.True(t, view.State.On)
	assert.Equal(t, uint8(254), view.State.Bri)

	target.readErr = nil
	target.state.State = model.StateUnavailable
	view = tr.ToHue(ctx(), d, target)
	assert.False(t, view.State.Reachable)
	assert.True(t, view.State.On)

	// never seen: off, not fabricated
	view = tr.ToHue(ctx(), device("9", "cover.other"), nil)
	assert.False(t, view.State.Reachable)
	assert.False(t, view.State.On)
}

func TestApply_UnresolvedTarget(t *testing.T) {
	results := New().Apply(ctx(), device("2", "fan.gone"), nil, &model.LightCommand{On: on(true)})
	require.Len(t, results, 1)
	require.False(t, results[0].OK())
	assert.Equal(t, model.HueErrInternal, results[0].Error.Type)
}

func TestScaleOverride(t *testing.T) {
	target := newFakeTarget("fan.ceiling", model.StateOn, map[string]any{"percentage": float64(10)})
	d := device("2", "fan.ceiling")
	d.Scale = &model.ScaleOverride{ToHue: "min(x * 10, 254)"}

	view := New().ToHue(ctx(), d, target)
	assert.Equal(t, uint8(100), view.State.Bri)

	d.Scale = &model.ScaleOverride{ToHue: "x +"}
	view = New().ToHue(ctx(), d, target)
	assert.Equal(t, uint8(25), view.State.Bri, "falls back to the default scale")
}

func TestScale(t *testing.T) {
	s := MustScale("round(x * 2.54)", "max(0, x / 2.54)", 100)
	assert.Equal(t, 127, s.Hue(50))
	assert.Equal(t, 50.0, s.Native(127))
	assert.Equal(t, 100.0, s.Native(1000))

	_, err := NewScale("x *", "x", 1)
	assert.Error(t, err)

	// evaluation errors leave the value alone
	s = MustScale("round(x, x)", "x", 100)
	assert.Equal(t, 5, s.Hue(5))

	assert.NoError(t, ValidateScale(&model.ScaleOverride{ToHue: "x * 2"}))
	assert.ErrorIs(t, ValidateScale(&model.ScaleOverride{ToNative: "x +"}), model.ErrValidation)
}

func TestFactory(t *testing.T) {
	f := NewFactory()
	assert.IsType(t, &LightStrategy{}, f.ForDomain(model.DomainLight))
	assert.IsType(t, &LevelStrategy{}, f.ForDomain(model.DomainCover))
	assert.IsType(t, &LevelStrategy{}, f.ForDomain(model.DomainClimate))
	assert.IsType(t, &ToggleStrategy{}, f.ForDomain(model.DomainInputBoolean))
	assert.IsType(t, &TriggerStrategy{}, f.ForDomain(model.DomainScene))
	assert.IsType(t, &ToggleStrategy{}, f.ForDomain("vacuum"))
	for _, d := range model.SupportedDomains {
		assert.Equal(t, d, f.ForDomain(d).Domain())
	}
}

func TestStrategyIsPickedOncePerLink(t *testing.T) {
	tr := New()
	d := device("3", "sensor.door")

	first := tr.strategyFor(d)
	assert.Same(t, first, tr.strategyFor(d))
	assert.Equal(t, model.Domain("sensor"), first.Domain())

	relinked := device("3", "fan.ceiling")
	assert.Equal(t, model.DomainFan, tr.strategyFor(relinked).Domain())

	tr.Forget(relinked)
	assert.NotContains(t, tr.linked, "3")
}
