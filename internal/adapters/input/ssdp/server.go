// Package ssdp answers UPnP discovery probes so that Hue clients find
// the bridge.
package ssdp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	log "github.com/echocat/slf4g"
	"golang.org/x/net/ipv4"

	"github.com/richardctrimble/ha-emulated-hue/internal/ports"
)

const (
	multicastGroup = "239.255.255.250"
	multicastPort  = 1900
)

type Options struct {
	// Interface limits the group join to one interface name; empty joins
	// every multicast capable IPv4 interface.
	Interface string
}

// Server is the discovery responder. It keeps no state beyond its socket.
type Server struct {
	opts   Options
	config ports.ConfigPort

	mu   sync.Mutex
	conn net.PacketConn
	done chan struct{}
}

func NewServer(opts Options, config ports.ConfigPort) *Server {
	return &Server{opts: opts, config: config}
}

func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return errors.New("discovery responder already running")
	}

	lc := net.ListenConfig{Control: reuseAddr}
	conn, err := lc.ListenPacket(ctx, "udp4", fmt.Sprintf("0.0.0.0:%d", multicastPort))
	if err != nil {
		return fmt.Errorf("cannot listen for discovery probes: %w", err)
	}

	joined, err := joinGroup(ipv4.NewPacketConn(conn), s.opts.Interface)
	if err != nil {
		_ = conn.Close()
		return err
	}

	s.conn = conn
	s.done = make(chan struct{})
	go s.serve(conn, s.done)

	log.With("interfaces", joined).
		With("advertise", s.config.Info().Address()).
		Info("Discovery responder started.")
	return nil
}

func (s *Server) Shutdown(context.Context) error {
	s.mu.Lock()
	conn, done := s.conn, s.done
	s.conn = nil
	s.mu.Unlock()
	if conn == nil {
		return nil
	}
	err := conn.Close()
	<-done
	log.Info("Discovery responder stopped.")
	return err
}

func joinGroup(pc *ipv4.PacketConn, only string) ([]string, error) {
	group := &net.UDPAddr{IP: net.ParseIP(multicastGroup)}
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("cannot list interfaces: %w", err)
	}
	var joined []string
	for i := range ifaces {
		iface := &ifaces[i]
		if only != "" && iface.Name != only {
			continue
		}
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagMulticast == 0 || !hasIPv4(iface) {
			continue
		}
		if err := pc.JoinGroup(iface, group); err != nil {
			log.WithError(err).
				With("interface", iface.Name).
				Warn("Cannot join discovery group.")
			continue
		}
		joined = append(joined, iface.Name)
	}
	if len(joined) == 0 {
		if only != "" {
			return nil, fmt.Errorf("cannot join discovery group on interface %q", only)
		}
		return nil, errors.New("cannot join discovery group on any interface")
	}
	return joined, nil
}

func hasIPv4(iface *net.Interface) bool {
	addrs, err := iface.Addrs()
	if err != nil {
		return false
	}
	for _, a := range addrs {
		if ipnet, ok := a.(*net.IPNet); ok && ipnet.IP.To4() != nil {
			return true
		}
	}
	return false
}

func (s *Server) serve(conn net.PacketConn, done chan struct{}) {
	defer close(done)
	buf := make([]byte, 2048)
	for {
		n, src, err := conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.WithError(err).
				Debug("Cannot read discovery probe.")
			continue
		}
		rsp, ok := Response(buf[:n], s.config.Info())
		if !ok {
			continue
		}
		if _, err := conn.WriteTo(rsp, src); err != nil {
			log.WithError(err).
				With("remote", src.String()).
				Debug("Cannot answer discovery probe.")
			continue
		}
		log.With("remote", src.String()).
			Trace("Answered discovery probe.")
	}
}
