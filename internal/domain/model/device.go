package model

import (
	"strings"
	"time"
)

// Capability is the subset of the Hue light state a linked target can honour.
type Capability string

const (
	CapabilityOnOff        Capability = "on-off"
	CapabilityDimmable     Capability = "dimmable"
	CapabilityColor        Capability = "color"
	CapabilityThermostat   Capability = "thermostat"
	CapabilitySceneTrigger Capability = "scene-trigger"
)

// TargetRef points at a controlled entity, e.g. light.kitchen.
type TargetRef struct {
	Domain   Domain `json:"domain"`
	ObjectID string `json:"object_id"`
}

// ParseTargetRef splits an entity id of the form domain.object_id.
func ParseTargetRef(entityID string) (*TargetRef, error) {
	entityID = strings.TrimSpace(entityID)
	domain, object, ok := strings.Cut(entityID, ".")
	if !ok || domain == "" || object == "" {
		return nil, &ValidationError{Field: "entity_id", Reason: "expected <domain>.<object_id>, got " + quote(entityID)}
	}
	return &TargetRef{Domain: Domain(domain), ObjectID: object}, nil
}

// EntityID renders the reference back to domain.object_id.
func (r TargetRef) EntityID() string {
	return string(r.Domain) + "." + r.ObjectID
}

func (r TargetRef) String() string {
	return r.EntityID()
}

// ScaleOverride replaces the default brightness scale of a device with
// custom formulas over the variable x.
type ScaleOverride struct {
	ToHue    string `json:"to_hue,omitempty"`
	ToNative string `json:"to_native,omitempty"`
}

// DeviceRecord is a virtual Hue light.
type DeviceRecord struct {
	HueID          string         `json:"hue_id"`
	Name           string         `json:"name"`
	Target         *TargetRef     `json:"target,omitempty"`
	Capability     Capability     `json:"capability"`
	Scale          *ScaleOverride `json:"scale,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	ModifiedAt     time.Time      `json:"modified_at"`
	LastAccessedAt *time.Time     `json:"last_accessed_at,omitempty"`
	LastAccessedBy string         `json:"last_accessed_by,omitempty"`
}

// IsLinked reports whether the device controls a target.
func (d *DeviceRecord) IsLinked() bool {
	return d.Target != nil
}

// EntityID returns the linked entity id or an empty string.
func (d *DeviceRecord) EntityID() string {
	if d.Target == nil {
		return ""
	}
	return d.Target.EntityID()
}

// Clone returns a deep copy.
func (d *DeviceRecord) Clone() *DeviceRecord {
	if d == nil {
		return nil
	}
	c := *d
	if d.Target != nil {
		t := *d.Target
		c.Target = &t
	}
	if d.Scale != nil {
		s := *d.Scale
		c.Scale = &s
	}
	if d.LastAccessedAt != nil {
		at := *d.LastAccessedAt
		c.LastAccessedAt = &at
	}
	return &c
}

func quote(s string) string {
	return "\"" + s + "\""
}
