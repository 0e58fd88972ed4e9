package http

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode"

	gnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

// Holder is a process listening on a port.
type Holder struct {
	Pid     int32
	Name    string
	Cmdline string
}

func (h *Holder) String() string {
	if h.Pid == 0 {
		return "an unknown process"
	}
	if h.Name == "" {
		return fmt.Sprintf("pid %d", h.Pid)
	}
	return fmt.Sprintf("%s (pid %d)", h.Name, h.Pid)
}

// IsHueEmulator reports whether the holder looks like the built-in
// emulated_hue integration of Home Assistant.
func (h *Holder) IsHueEmulator() bool {
	s := strings.ToLower(h.Name + " " + h.Cmdline)
	if strings.Contains(s, "emulated_hue") || strings.Contains(s, "homeassistant") {
		return true
	}
	// hass only as a whole word, e.g. a /srv/hass/bin/python path
	for _, word := range strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if word == "hass" {
			return true
		}
	}
	return false
}

// ConflictDetector finds out who else listens on a TCP port.
type ConflictDetector struct {
	connections func(ctx context.Context) ([]gnet.ConnectionStat, error)
	describe    func(ctx context.Context, pid int32) (*Holder, error)
	self        int32
}

func NewConflictDetector() *ConflictDetector {
	return &ConflictDetector{
		connections: func(ctx context.Context) ([]gnet.ConnectionStat, error) {
			return gnet.ConnectionsWithContext(ctx, "tcp")
		},
		describe: describeProcess,
		self:     int32(os.Getpid()),
	}
}

// Holder returns the process listening on port, or nil if there is none
// or it cannot be seen.
func (d *ConflictDetector) Holder(ctx context.Context, port int) *Holder {
	conns, err := d.connections(ctx)
	if err != nil {
		return nil
	}
	for _, c := range conns {
		if c.Status != "LISTEN" || int(c.Laddr.Port) != port || c.Pid == d.self {
			continue
		}
		if c.Pid == 0 {
			return &Holder{}
		}
		h, err := d.describe(ctx, c.Pid)
		if err != nil {
			return &Holder{Pid: c.Pid}
		}
		return h
	}
	return nil
}

func describeProcess(ctx context.Context, pid int32) (*Holder, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return nil, err
	}
	h := &Holder{Pid: pid}
	h.Name, _ = p.NameWithContext(ctx)
	h.Cmdline, _ = p.CmdlineWithContext(ctx)
	return h, nil
}
