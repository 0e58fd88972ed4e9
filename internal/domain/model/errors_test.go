package model

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_UnwrapToSentinels(t *testing.T) {
	assert.ErrorIs(t, &ValidationError{Field: "name", Reason: "empty"}, ErrValidation)
	assert.ErrorIs(t, &NotFoundError{ID: "3"}, ErrNotFound)

	pe := &PersistenceError{Op: "save", Err: io.ErrShortWrite}
	assert.ErrorIs(t, pe, ErrPersistence)
	assert.ErrorIs(t, pe, io.ErrShortWrite)

	bc := &BindConflictError{Addr: ":80", Reason: "in use"}
	assert.ErrorIs(t, bc, ErrBindConflict)
	assert.Equal(t, "cannot listen on :80: in use", bc.Error())

	var nf *NotFoundError
	assert.True(t, errors.As(error(&NotFoundError{ID: "7"}), &nf))
	assert.Equal(t, "7", nf.ID)
}

func TestParseTargetRef(t *testing.T) {
	ref, err := ParseTargetRef(" light.kitchen ")
	assert.NoError(t, err)
	assert.Equal(t, DomainLight, ref.Domain)
	assert.Equal(t, "light.kitchen", ref.EntityID())

	for _, bad := range []string{"", "light", ".x", "light."} {
		_, err := ParseTargetRef(bad)
		assert.ErrorIs(t, err, ErrValidation, bad)
	}
}

func TestCapabilityOf(t *testing.T) {
	assert.Equal(t, CapabilityColor, CapabilityOf(DomainLight))
	assert.Equal(t, CapabilityDimmable, CapabilityOf(DomainCover))
	assert.Equal(t, CapabilityThermostat, CapabilityOf(DomainClimate))
	assert.Equal(t, CapabilitySceneTrigger, CapabilityOf(DomainScene))
	assert.Equal(t, CapabilityOnOff, CapabilityOf(DomainInputBoolean))
	assert.Equal(t, CapabilityOnOff, CapabilityOf("sensor"))
	assert.False(t, Domain("sensor").IsSupported())
	assert.True(t, DomainMediaPlayer.IsSupported())
}

func TestDeviceRecord_CloneIsDeep(t *testing.T) {
	d := &DeviceRecord{HueID: "1", Target: &TargetRef{Domain: DomainLight, ObjectID: "a"}}
	c := d.Clone()
	c.Target.ObjectID = "b"
	assert.Equal(t, "a", d.Target.ObjectID)
}

func TestLightCommand_State(t *testing.T) {
	on, bri, hue := true, uint8(120), uint16(4000)
	c := &LightCommand{On: &on, Bri: &bri, Hue: &hue, Xy: []float32{0.3, 0.4}}

	s := c.State()
	assert.True(t, s.On)
	assert.Equal(t, uint8(120), s.Bri)
	assert.Equal(t, uint16(4000), s.Hue)
	assert.Equal(t, uint8(0), s.Sat)
	assert.Equal(t, []float32{0.3, 0.4}, s.Xy)
	assert.Equal(t, []string{FieldOn, FieldBri, FieldHue, FieldXy}, c.Fields())
}
