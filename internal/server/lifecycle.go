// Package server runs the realm's long-lived services and shuts them down in
// reverse order on a signal, a service failure, or context cancellation.
package server

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// DefaultStopTimeout bounds each service's Stop during shutdown.
const DefaultStopTimeout = 10 * time.Second

// Service is a long-running component.
type Service interface {
	// Start blocks until the service stops or fails. ctx is cancelled when
	// the lifecycle begins shutting down.
	Start(ctx context.Context) error
	// Stop asks the service to finish within ctx's deadline.
	Stop(ctx context.Context)
}

// FuncService adapts a start/stop function pair into a Service.
type FuncService struct {
	StartFn func(ctx context.Context) error
	StopFn  func(ctx context.Context)
}

// Start calls StartFn.
func (f *FuncService) Start(ctx context.Context) error { return f.StartFn(ctx) }

// Stop calls StopFn when set.
func (f *FuncService) Stop(ctx context.Context) {
	if f.StopFn != nil {
		f.StopFn(ctx)
	}
}

// Lifecycle starts services in registration order and stops them in reverse.
type Lifecycle struct {
	logger      *zap.Logger
	stopTimeout time.Duration

	mu       sync.Mutex
	services []namedService
}

type namedService struct {
	name    string
	service Service
}

// NewLifecycle creates a Lifecycle. A non-positive stopTimeout uses
// DefaultStopTimeout.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger, stopTimeout time.Duration) *Lifecycle {
	if stopTimeout <= 0 {
		stopTimeout = DefaultStopTimeout
	}
	return &Lifecycle{logger: logger, stopTimeout: stopTimeout}
}

// Add registers a named service.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = append(l.services, namedService{name: name, service: svc})
}

// Run starts every service and blocks until SIGINT or SIGTERM, a service
// failure, or ctx cancellation, then stops all services in reverse order.
//
// Postcondition: every service has been stopped; the first service failure
// is returned.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()
	l.mu.Lock()
	services := append([]namedService(nil), l.services...)
	l.mu.Unlock()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(services))
	var wg sync.WaitGroup
	for _, ns := range services {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.logger.Info("starting service", zap.String("service", ns.name))
			svcStart := time.Now()
			err := ns.service.Start(runCtx)
			if err != nil && !errors.Is(err, context.Canceled) {
				l.logger.Error("service failed",
					zap.String("service", ns.name),
					zap.Error(err),
					zap.Duration("uptime", time.Since(svcStart)),
				)
				errCh <- fmt.Errorf("service %s: %w", ns.name, err)
			}
		}()
	}
	l.logger.Info("all services started",
		zap.Int("count", len(services)),
		zap.Duration("startup", time.Since(start)),
	)

	var failure error
	select {
	case failure = <-errCh:
		l.logger.Error("service error, shutting down", zap.Error(failure))
	case <-ctx.Done():
		l.logger.Info("shutting down", zap.NamedError("cause", context.Cause(ctx)))
	}
	cancel()
	l.shutdown(services)
	wg.Wait()

	l.logger.Info("shutdown complete", zap.Duration("total_uptime", time.Since(start)))
	return failure
}

func (l *Lifecycle) shutdown(services []namedService) {
	shutdownStart := time.Now()
	for i := len(services) - 1; i >= 0; i-- {
		ns := services[i]
		svcStart := time.Now()
		l.logger.Info("stopping service", zap.String("service", ns.name))
		ctx, cancel := context.WithTimeout(context.Background(), l.stopTimeout)
		ns.service.Stop(ctx)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			l.logger.Warn("service stop timed out", zap.String("service", ns.name))
		}
		cancel()
		l.logger.Info("service stopped",
			zap.String("service", ns.name),
			zap.Duration("elapsed", time.Since(svcStart)),
		)
	}
	l.logger.Info("all services stopped", zap.Duration("shutdown_elapsed", time.Since(shutdownStart)))
}
