// Package influx records applied light commands as InfluxDB points.
package influx

import (
	"context"
	"fmt"
	"strconv"
	"time"

	log "github.com/echocat/slf4g"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/richardctrimble/ha-emulated-hue/internal/domain/model"
)

const (
	measurement   = "hue_command"
	pingTimeout   = 5 * time.Second
	batchSize     = 100
	flushInterval = 10_000 // milliseconds
)

// Options configures the InfluxDB connection.
type Options struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

type pointWriter interface {
	WritePoint(point *write.Point)
	Flush()
}

// Recorder writes one point per command field. Writes are batched and
// never block the request that produced them.
type Recorder struct {
	client influxdb2.Client
	writer pointWriter
	now    func() time.Time
}

// Connect creates the client and checks that the server is healthy.
func Connect(ctx context.Context, o Options) (*Recorder, error) {
	client := influxdb2.NewClientWithOptions(o.URL, o.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(batchSize).
			SetFlushInterval(flushInterval))

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	healthy, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("cannot reach influxdb at %s: %w", o.URL, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("influxdb at %s is not healthy", o.URL)
	}

	writeAPI := client.WriteAPI(o.Org, o.Bucket)
	go func() {
		for err := range writeAPI.Errors() {
			log.WithError(err).
				Warn("Cannot write command metrics.")
		}
	}()

	return &Recorder{client: client, writer: writeAPI, now: time.Now}, nil
}

func (r *Recorder) Record(_ context.Context, device *model.DeviceRecord, cmd *model.LightCommand, results []model.FieldResult) {
	ts := r.now()
	for _, res := range results {
		tags := map[string]string{
			"hue_id": device.HueID,
			"field":  res.Field,
			"ok":     strconv.FormatBool(res.OK()),
		}
		if device.Target != nil {
			tags["target"] = device.Target.EntityID()
		}
		fields := map[string]any{}
		if v, ok := numeric(cmd.Value(res.Field)); ok {
			fields["value"] = v
		}
		errType := 0
		if res.Error != nil {
			errType = res.Error.Type
		}
		fields["error_type"] = errType

		r.writer.WritePoint(write.NewPoint(measurement, tags, fields, ts))
	}
}

// Close flushes pending points.
func (r *Recorder) Close() error {
	if r.writer != nil {
		r.writer.Flush()
	}
	if r.client != nil {
		r.client.Close()
	}
	return nil
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
