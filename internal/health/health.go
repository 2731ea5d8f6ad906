// Package health exposes the standard gRPC health service so orchestrators can probe
// the café API without going through HTTP.
package health

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Service is the name probes ask about besides the empty overall name.
const Service = "cafe.api"

type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	grpc   *grpc.Server
	health *health.Server
	lis    net.Listener
	log    logrus.FieldLogger
}

// Listen binds addr and registers the health service. Both names start NOT_SERVING.
func Listen(addr string, log logrus.FieldLogger) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "grpc health listen %s", addr)
	}
	hs := health.NewServer()
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	s := &Server{grpc: gs, health: hs, lis: lis, log: log}
	s.SetServing(false)
	return s, nil
}

func (s *Server) Addr() string { return s.lis.Addr().String() }

// Serve blocks until Stop is called.
func (s *Server) Serve() error {
	s.log.WithField("addr", s.Addr()).Info("[health] grpc listening")
	if err := s.grpc.Serve(s.lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return errors.Wrap(err, "grpc health serve")
	}
	return nil
}

func (s *Server) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(Service, st)
}

// Watch pings the store every interval and flips the serving status accordingly.
// It returns when ctx is done.
func (s *Server) Watch(ctx context.Context, p Pinger, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	last := true
	for {
		pctx, cancel := context.WithTimeout(ctx, interval)
		err := p.Ping(pctx)
		cancel()
		if ok := err == nil; ok != last {
			if ok {
				s.log.Info("[health] store reachable again")
			} else {
				s.log.WithError(err).Warn("[health] store unreachable")
			}
			last = ok
		}
		s.SetServing(err == nil)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
