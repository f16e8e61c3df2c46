// Package zeroconf registers the biasd API as an mDNS/DNS-SD service so
// control surfaces can find it on the LAN without configuration.
package zeroconf

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/grandcat/zeroconf"
)

// Service manages mDNS service registration.
type Service struct {
	name   string // instance name, usually the hostname
	port   int
	model  string // amplifier model for the TXT record
	server *zeroconf.Server
}

// New creates a zeroconf Service advertising on the given port.
func New(name string, port int, model string) *Service {
	return &Service{
		name:  name,
		port:  port,
		model: model,
	}
}

// Start registers the mDNS service and blocks until ctx is cancelled,
// at which point it shuts down the server cleanly.
func (s *Service) Start(ctx context.Context) error {
	txt := []string{"service=biasd", "amp=" + s.model}

	server, err := zeroconf.Register(
		s.name,       // instance name
		"_http._tcp", // service type
		"local.",     // domain
		s.port,       // port
		txt,          // TXT records
		nil,          // ifaces — nil means all interfaces
	)
	if err != nil {
		return fmt.Errorf("zeroconf register: %w", err)
	}
	s.server = server
	slog.Info("zeroconf: registered mDNS service",
		"name", s.name,
		"port", s.port,
		"txt", txt,
	)

	<-ctx.Done()

	server.Shutdown()
	slog.Info("zeroconf: mDNS service unregistered")
	return nil
}
