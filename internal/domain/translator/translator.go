// Package translator renders controlled targets as Hue lights and turns
// Hue light commands into native calls.
package translator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/amimof/huego"
	log "github.com/echocat/slf4g"

	"github.com/richardctrimble/ha-emulated-hue/internal/domain/model"
	"github.com/richardctrimble/ha-emulated-hue/internal/ports"
)

// DefaultCacheTTL is how long a commanded state is served while the target
// catches up.
const DefaultCacheTTL = 2 * time.Second

type Option func(*Translator)

// WithStrictCommands makes fields a target cannot honour fail with Hue
// error 6 instead of being ignored.
func WithStrictCommands(strict bool) Option {
	return func(t *Translator) { t.strict = strict }
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(t *Translator) { t.cacheTTL = ttl }
}

type Translator struct {
	factory  *Factory
	strict   bool
	cacheTTL time.Duration
	now      func() time.Time

	mu        sync.Mutex
	commanded map[string]commandedState
	lastKnown map[string]lastKnown
	scales    map[model.ScaleOverride]*Scale
	// strategy chosen when a hue id was first seen linked to its target
	linked map[string]Strategy
}

type commandedState struct {
	cmd    model.LightCommand
	on     bool
	at     time.Time
	sticky bool
}

type lastKnown struct {
	kind  model.LightKind
	state huego.State
}

func New(opts ...Option) *Translator {
	t := &Translator{
		factory:   NewFactory(),
		cacheTTL:  DefaultCacheTTL,
		now:       time.Now,
		commanded: map[string]commandedState{},
		lastKnown: map[string]lastKnown{},
		scales:    map[model.ScaleOverride]*Scale{},
		linked:    map[string]Strategy{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ToHue renders the device. target is nil when the device is unlinked or
// its target could not be resolved.
func (t *Translator) ToHue(ctx context.Context, d *model.DeviceRecord, target ports.Target) *model.LightView {
	view := &model.LightView{HueID: d.HueID, Name: d.Name, Kind: model.KindDimmable}
	if !d.IsLinked() {
		return view
	}

	var state *model.TargetState
	err := error(&model.TargetUnreachableError{EntityID: d.EntityID()})
	if target != nil {
		state, err = target.CurrentState(ctx)
	}
	if err == nil && state.State == model.StateUnavailable {
		err = &model.TargetUnreachableError{EntityID: d.EntityID()}
	}
	if err != nil {
		log.WithError(err).
			With("hueId", d.HueID).
			Debug("Target not readable, reporting last known state.")
		t.mu.Lock()
		last, ok := t.lastKnown[d.HueID]
		t.mu.Unlock()
		if ok {
			view.Kind = last.kind
			view.State = last.state
		}
		view.State.Reachable = false
		return view
	}

	strategy := t.strategyFor(d)
	s := strategy.Read(state, t.scaleFor(d, strategy))
	s = t.overlayCommanded(d.EntityID(), strategy, state, s)
	view.Kind = strategy.Kind(state)
	finish(&s, view.Kind)
	s.Reachable = true
	view.State = s

	t.mu.Lock()
	t.lastKnown[d.HueID] = lastKnown{kind: view.Kind, state: s}
	t.mu.Unlock()
	return view
}

// Apply executes cmd against the target and reports one result per field
// that was sent. Unlinked devices accept everything without effect.
func (t *Translator) Apply(ctx context.Context, d *model.DeviceRecord, target ports.Target, cmd *model.LightCommand) []model.FieldResult {
	fields := cmd.Fields()
	if !d.IsLinked() {
		results := make([]model.FieldResult, 0, len(fields))
		for _, f := range fields {
			results = append(results, success(cmd, f))
		}
		return results
	}
	if target == nil {
		err := &model.TargetUnreachableError{EntityID: d.EntityID()}
		return failAll(d.HueID, fields, err)
	}

	strategy := t.strategyFor(d)
	current, err := target.CurrentState(ctx)
	if err != nil {
		log.WithError(err).
			With("hueId", d.HueID).
			Debug("Cannot read target before command, assuming off.")
		current = nil
	}
	on := strategy.IsOn(current)
	if cmd.On != nil {
		on = *cmd.On
	}
	plan := strategy.Plan(&Request{
		Command: cmd,
		On:      on,
		Current: current,
		Scale:   t.scaleFor(d, strategy),
	})

	failed := map[string]error{}
	for _, step := range plan.Steps {
		if err := target.Apply(ctx, step.Command); err != nil {
			log.WithError(err).
				With("hueId", d.HueID).
				With("command", step.Command.String()).
				Warn("Target rejected command.")
			for _, f := range step.Fields {
				if _, seen := failed[f]; !seen {
					failed[f] = err
				}
			}
			continue
		}
		log.With("hueId", d.HueID).
			With("command", step.Command.String()).
			With("data", step.Command.Data).
			Debug("Command sent to target.")
	}

	results := make([]model.FieldResult, 0, len(fields))
	for _, f := range fields {
		switch {
		case !plan.accepts(f) && t.strict:
			results = append(results, model.FieldResult{Field: f, Error: &model.HueError{
				Type:        model.HueErrParamNotAvailable,
				Address:     address(d.HueID, f),
				Description: fmt.Sprintf("parameter, %s, not available", f),
			}})
		case failed[f] != nil:
			results = append(results, failure(d.HueID, f, failed[f]))
		default:
			results = append(results, success(cmd, f))
		}
	}

	if len(failed) == 0 {
		t.mu.Lock()
		t.commanded[d.EntityID()] = commandedState{cmd: *cmd, on: plan.On, at: t.now(), sticky: strategy.Sticky()}
		t.mu.Unlock()
	}
	return results
}

// Forget drops everything remembered about a device, e.g. after it was
// deleted or relinked.
func (t *Translator) Forget(d *model.DeviceRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.lastKnown, d.HueID)
	delete(t.linked, d.HueID)
	if d.IsLinked() {
		delete(t.commanded, d.EntityID())
	}
}

// strategyFor returns the strategy of a linked device. It is picked once
// per hue id and dropped again by Forget when the link changes.
func (t *Translator) strategyFor(d *model.DeviceRecord) Strategy {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.linked[d.HueID]; ok && s.Domain() == d.Target.Domain {
		return s
	}
	s := t.factory.ForDomain(d.Target.Domain)
	t.linked[d.HueID] = s
	return s
}

// ValidateScale checks the formulas of a scale override.
func ValidateScale(o *model.ScaleOverride) error {
	if o == nil {
		return nil
	}
	for _, formula := range []string{o.ToHue, o.ToNative} {
		if formula == "" {
			continue
		}
		if _, err := NewScale(formula, formula, 0); err != nil {
			return &model.ValidationError{Field: "scale", Reason: err.Error()}
		}
	}
	return nil
}

func (t *Translator) scaleFor(d *model.DeviceRecord, strategy Strategy) *Scale {
	def := strategy.DefaultScale()
	if d.Scale == nil || (d.Scale.ToHue == "" && d.Scale.ToNative == "") {
		return def
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.scales[*d.Scale]; ok {
		return s
	}
	toHue, toNative := d.Scale.ToHue, d.Scale.ToNative
	if toHue == "" {
		toHue = def.ToHueFormula()
	}
	if toNative == "" {
		toNative = def.ToNativeFormula()
	}
	s, err := NewScale(toHue, toNative, def.nativeMax)
	if err != nil {
		log.WithError(err).
			With("hueId", d.HueID).
			Warn("Invalid scale formula, using the default scale.")
		s = def
	}
	t.scales[*d.Scale] = s
	return s
}

// overlayCommanded serves the last command while it is fresh and the target
// agrees on on/off, so clients see their change immediately.
func (t *Translator) overlayCommanded(entityID string, strategy Strategy, state *model.TargetState, read huego.State) huego.State {
	t.mu.Lock()
	c, ok := t.commanded[entityID]
	if ok && !c.sticky && (t.now().Sub(c.at) >= t.cacheTTL || c.on != strategy.IsOn(state)) {
		delete(t.commanded, entityID)
		ok = false
	}
	t.mu.Unlock()
	if !ok {
		return read
	}

	sent := c.cmd.State()
	result := read
	result.On = c.on
	switch {
	case c.cmd.Bri != nil:
		result.Bri = sent.Bri
	case c.on:
		result.Bri = model.HueBriMax
	default:
		result.Bri = 0
	}
	if c.cmd.Hue != nil && c.cmd.Sat != nil {
		result.Hue, result.Sat = sent.Hue, sent.Sat
	} else {
		result.Hue, result.Sat = 0, 0
	}
	if result.Bri == 0 {
		result.Hue, result.Sat = 0, 0
	}
	if c.cmd.Ct != nil {
		result.Ct = sent.Ct
	}
	return result
}

// finish clamps the state to Hue ranges and fills the fields implied by kind.
func finish(s *huego.State, kind model.LightKind) {
	s.Bri = uint8(clamp(int(s.Bri), model.HueBriMin, model.HueBriMax))
	s.Sat = uint8(clamp(int(s.Sat), 0, model.HueSatMax))
	s.Ct = uint16(clamp(int(s.Ct), model.HueCtMin, model.HueCtMax))
	switch kind {
	case model.KindExtendedColor:
		s.Effect = "none"
		if s.Hue > 0 || s.Sat > 0 {
			s.ColorMode = "hs"
		} else {
			s.ColorMode = "ct"
		}
	case model.KindColor:
		s.Effect = "none"
		s.ColorMode = "hs"
	case model.KindColorTemperature:
		s.ColorMode = "ct"
	}
}

func address(hueID, field string) string {
	return "/lights/" + hueID + "/state/" + field
}

func success(cmd *model.LightCommand, field string) model.FieldResult {
	return model.FieldResult{Field: field, Value: cmd.Value(field)}
}

func failure(hueID, field string, err error) model.FieldResult {
	description := "Internal error, " + err.Error()
	if errors.Is(err, model.ErrTargetUnreachable) {
		description = fmt.Sprintf("device, %s, is not reachable", hueID)
	}
	return model.FieldResult{Field: field, Error: &model.HueError{
		Type:        model.HueErrInternal,
		Address:     address(hueID, field),
		Description: description,
	}}
}

func failAll(hueID string, fields []string, err error) []model.FieldResult {
	results := make([]model.FieldResult, 0, len(fields))
	for _, f := range fields {
		results = append(results, failure(hueID, f, err))
	}
	return results
}
