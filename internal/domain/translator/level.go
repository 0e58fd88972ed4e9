package translator

import (
	"github.com/amimof/huego"

	"github.com/richardctrimble/ha-emulated-hue/internal/domain/model"
)

// LevelStrategy covers targets with a single level that is presented as
// brightness: fans, covers, media players and thermostats.
type LevelStrategy struct {
	domain   model.Domain
	offState string
	// attribute holds the level, in percent once multiplied by factor
	attribute string
	factor    float64
	// missing is the level used when the attribute is absent, by on state
	missing func(on bool) float64
	// feature is the supported_features bit needed to set the level
	feature int

	levelService string
	levelField   string
	onService    string
	offService   string
	// turnOnFirst issues an explicit turn_on before setting the level
	turnOnFirst bool
}

func NewFanStrategy() *LevelStrategy {
	return &LevelStrategy{
		domain:       model.DomainFan,
		offState:     model.StateOff,
		attribute:    "percentage",
		factor:       1,
		feature:      1,
		levelService: "turn_on",
		levelField:   "percentage",
		onService:    "turn_on",
		offService:   "turn_off",
	}
}

func NewCoverStrategy() *LevelStrategy {
	return &LevelStrategy{
		domain:       model.DomainCover,
		offState:     model.StateClosed,
		attribute:    "current_position",
		factor:       1,
		feature:      4,
		levelService: "set_cover_position",
		levelField:   "position",
		onService:    "open_cover",
		offService:   "close_cover",
	}
}

func NewMediaPlayerStrategy() *LevelStrategy {
	return &LevelStrategy{
		domain:    model.DomainMediaPlayer,
		offState:  model.StateOff,
		attribute: "volume_level",
		factor:    100,
		missing: func(on bool) float64 {
			if on {
				return 1
			}
			return 0
		},
		feature:      4,
		levelService: "volume_set",
		levelField:   "volume_level",
		onService:    "turn_on",
		offService:   "turn_off",
		turnOnFirst:  true,
	}
}

// NewClimateStrategy presents the set temperature as a pseudo brightness,
// read as a percentage.
func NewClimateStrategy() *LevelStrategy {
	return &LevelStrategy{
		domain:       model.DomainClimate,
		offState:     model.StateOff,
		attribute:    "temperature",
		factor:       1,
		feature:      1,
		levelService: "set_temperature",
		levelField:   "temperature",
		onService:    "turn_on",
		offService:   "turn_off",
	}
}

func (s *LevelStrategy) Domain() model.Domain { return s.domain }
func (s *LevelStrategy) DefaultScale() *Scale { return PercentScale }
func (s *LevelStrategy) Sticky() bool { return false }

func (s *LevelStrategy) IsOn(state *model.TargetState) bool {
	return state != nil && state.State != s.offState
}

// Kind is dimmable unless the target says it cannot set its level.
func (s *LevelStrategy) Kind(state *model.TargetState) model.LightKind {
	if s.settable(state) {
		return model.KindDimmable
	}
	return model.KindOnOff
}

func (s *LevelStrategy) Read(state *model.TargetState, scale *Scale) huego.State {
	on := s.IsOn(state)
	level, ok := state.Float(s.attribute)
	if !ok {
		level = 0
		if s.missing != nil {
			level = s.missing(on)
		}
	}
	percent := level * s.factor
	if percent > 100 && s.factor != 1 {
		percent = 100
	}
	return huego.State{
		On:  on,
		Bri: uint8(clamp(scale.Hue(percent), 0, model.HueBriMax)),
	}
}

func (s *LevelStrategy) Plan(req *Request) *Plan {
	plan := &Plan{On: req.On, Accepted: []string{model.FieldOn}}
	domain := string(s.domain)

	if req.Command.Bri == nil || !s.settable(req.Current) {
		plan.Steps = []Step{{
			Command: model.NativeCommand{Domain: domain, Service: s.service(req.On)},
			Fields:  []string{model.FieldOn},
		}}
		return plan
	}

	// a level implies on
	plan.On = true
	plan.Accepted = append(plan.Accepted, model.FieldBri)
	percent := req.Scale.Native(int(*req.Command.Bri))
	level := model.NativeCommand{
		Domain:  domain,
		Service: s.levelService,
		Data:    map[string]any{s.levelField: nativeLevel(percent, s.factor)},
	}
	if s.turnOnFirst {
		plan.Steps = []Step{
			{Command: model.NativeCommand{Domain: domain, Service: s.onService}, Fields: []string{model.FieldOn}},
			{Command: level, Fields: []string{model.FieldBri}},
		}
		return plan
	}
	plan.Steps = []Step{{Command: level, Fields: []string{model.FieldOn, model.FieldBri}}}
	return plan
}

func (s *LevelStrategy) service(on bool) string {
	if on {
		return s.onService
	}
	return s.offService
}

func (s *LevelStrategy) settable(state *model.TargetState) bool {
	features, ok := state.Float("supported_features")
	if !ok {
		return true
	}
	return int(features)&s.feature != 0
}

func nativeLevel(percent, factor float64) any {
	if factor == 1 {
		return int(percent)
	}
	return percent / factor
}
