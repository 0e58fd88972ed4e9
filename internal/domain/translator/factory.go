package translator

import (
	"github.com/richardctrimble/ha-emulated-hue/internal/domain/model"
)

type Factory struct {
	strategies map[model.Domain]Strategy
}

func NewFactory() *Factory {
	f := &Factory{strategies: map[model.Domain]Strategy{}}
	for _, s := range []Strategy{
		&LightStrategy{},
		NewToggleStrategy(model.DomainSwitch),
		NewToggleStrategy(model.DomainInputBoolean),
		NewFanStrategy(),
		NewCoverStrategy(),
		NewMediaPlayerStrategy(),
		NewClimateStrategy(),
		NewScriptStrategy(),
		NewSceneStrategy(),
	} {
		f.strategies[s.Domain()] = s
	}
	return f
}

// ForDomain returns the strategy of domain. Unknown domains are handled
// as plain on/off.
func (f *Factory) ForDomain(domain model.Domain) Strategy {
	if s, ok := f.strategies[domain]; ok {
		return s
	}
	return NewToggleStrategy(domain)
}
