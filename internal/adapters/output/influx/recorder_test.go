package influx

import (
	"context"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richardctrimble/ha-emulated-hue/internal/domain/model"
)

type memWriter struct {
	lines   []string
	flushed bool
}

func (m *memWriter) WritePoint(p *write.Point) {
	m.lines = append(m.lines, write.PointToLineProtocol(p, time.Second))
}

func (m *memWriter) Flush() {
	m.flushed = true
}

func TestRecorder_WritesOnePointPerField(t *testing.T) {
	w := &memWriter{}
	r := &Recorder{writer: w, now: func() time.Time { return time.Unix(1700000000, 0) }}

	on, bri := true, uint8(128)
	device := &model.DeviceRecord{HueID: "3", Target: &model.TargetRef{Domain: model.DomainFan, ObjectID: "ceiling"}}
	r.Record(context.Background(), device, &model.LightCommand{On: &on, Bri: &bri}, []model.FieldResult{
		{Field: model.FieldOn, Value: true},
		{Field: model.FieldBri, Error: &model.HueError{Type: model.HueErrInternal}},
	})

	require.Len(t, w.lines, 2)
	assert.Contains(t, w.lines[0], "hue_command,field=on,hue_id=3,ok=true,target=fan.ceiling")
	assert.Contains(t, w.lines[0], "value=1")
	assert.Contains(t, w.lines[0], "error_type=0i")
	assert.Contains(t, w.lines[1], "ok=false")
	assert.Contains(t, w.lines[1], "value=128")
	assert.Contains(t, w.lines[1], "error_type=901i")
	assert.Contains(t, w.lines[1], "1700000000")

	require.NoError(t, r.Close())
	assert.True(t, w.flushed)
}

func TestRecorder_UnlinkedDeviceHasEmptyTarget(t *testing.T) {
	w := &memWriter{}
	r := &Recorder{writer: w, now: time.Now}

	on := false
	r.Record(context.Background(), &model.DeviceRecord{HueID: "1"}, &model.LightCommand{On: &on}, []model.FieldResult{
		{Field: model.FieldOn, Value: false},
	})

	require.Len(t, w.lines, 1)
	assert.Contains(t, w.lines[0], "value=0")
	assert.NotContains(t, w.lines[0], "target=")
}
