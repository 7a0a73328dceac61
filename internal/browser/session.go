package browser

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shehryarbajwa/browserbase-e2e/pkg/models"
)

var (
	ErrSessionClosed     = errors.New("session is closed")
	ErrTracingNotStarted = errors.New("tracing was not started")
)

// Session owns the browser instance, context and page of one scenario.
// The page is owned by the context, the context by the instance.
type Session struct {
	mu   sync.Mutex
	info models.Session

	instance Instance
	context  Context
	page     Page
	tracing  bool

	pageClosed     bool
	contextClosed  bool
	instanceClosed bool

	logger *zap.Logger
}

// Info returns a snapshot of the session record
func (s *Session) Info() models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

func (s *Session) ID() string {
	return s.info.ID
}

// Page returns the live page, or nil once it has been closed
func (s *Session) Page() Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pageClosed {
		return nil
	}
	return s.page
}

// Tracing reports whether a tracing session is still running
func (s *Session) Tracing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracing
}

// StopTracing stops tracing exactly once. An empty path discards the archive.
func (s *Session) StopTracing(path string) error {
	s.mu.Lock()
	if !s.tracing {
		s.mu.Unlock()
		return ErrTracingNotStarted
	}
	if s.contextClosed {
		s.tracing = false
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.tracing = false
	ctx := s.context
	s.mu.Unlock()

	return ctx.StopTracing(path)
}

// ClosePage closes the page ahead of full teardown. Closing twice is a no-op.
func (s *Session) ClosePage() error {
	s.mu.Lock()
	if s.pageClosed || s.page == nil {
		s.mu.Unlock()
		return nil
	}
	s.pageClosed = true
	page := s.page
	s.mu.Unlock()

	return page.Close()
}

// Close releases page, context and instance in that order. Every step runs
// even if an earlier one failed; the errors are returned for logging.
func (s *Session) Close() []error {
	var errs []error

	if err := s.ClosePage(); err != nil {
		errs = append(errs, fmt.Errorf("close page: %w", err))
	}

	s.mu.Lock()
	ctx, closeCtx := s.context, !s.contextClosed && s.context != nil
	s.contextClosed = true
	s.tracing = false
	inst, closeInst := s.instance, !s.instanceClosed && s.instance != nil
	s.instanceClosed = true
	s.mu.Unlock()

	if closeCtx {
		if err := ctx.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close context: %w", err))
		}
	}
	if closeInst {
		if err := inst.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}

	s.mu.Lock()
	if s.info.Status == models.StatusRunning {
		s.info.ClosedAt = time.Now()
		if len(errs) > 0 {
			s.info.Status = models.StatusError
		} else {
			s.info.Status = models.StatusClosed
		}
	}
	s.mu.Unlock()

	for _, err := range errs {
		s.logger.Warn("error during browser closure", zap.String("session", s.info.ID), zap.Error(err))
	}
	return errs
}

// Closed reports whether the session has been torn down
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.instanceClosed
}
