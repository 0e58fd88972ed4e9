package model

// Domain is the entity domain of a controlled target.
type Domain string

const (
	DomainLight        Domain = "light"
	DomainSwitch       Domain = "switch"
	DomainFan          Domain = "fan"
	DomainCover        Domain = "cover"
	DomainClimate      Domain = "climate"
	DomainMediaPlayer  Domain = "media_player"
	DomainScript       Domain = "script"
	DomainScene        Domain = "scene"
	DomainInputBoolean Domain = "input_boolean"
)

// SupportedDomains lists every domain a device can be linked to.
var SupportedDomains = []Domain{
	DomainLight,
	DomainSwitch,
	DomainFan,
	DomainCover,
	DomainClimate,
	DomainMediaPlayer,
	DomainScript,
	DomainScene,
	DomainInputBoolean,
}

// IsSupported reports whether d is one of SupportedDomains.
func (d Domain) IsSupported() bool {
	for _, s := range SupportedDomains {
		if s == d {
			return true
		}
	}
	return false
}

// CapabilityOf derives the capability a device gets when linked to domain d.
// Unlinked devices and unknown domains are on-off.
func CapabilityOf(d Domain) Capability {
	switch d {
	case DomainLight:
		return CapabilityColor
	case DomainFan, DomainCover, DomainMediaPlayer:
		return CapabilityDimmable
	case DomainClimate:
		return CapabilityThermostat
	case DomainScript, DomainScene:
		return CapabilitySceneTrigger
	default:
		return CapabilityOnOff
	}
}
