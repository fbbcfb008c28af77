package exception

import (
	"errors"
	"sync"
)

// Sink accumulates exceptions raised during an operation. Warnings are
// collected without aborting anything; the caller decides what to do with
// error-level entries.
//
// A nil *Sink discards everything, so helpers can accept an optional sink.
// Sink is safe for concurrent use.
type Sink struct {
	mu         sync.Mutex
	exceptions []*Exception
}

// Add records err. Non-Exception errors are recorded at ErrorLevel.
func (s *Sink) Add(err error) {
	if s == nil || err == nil {
		return
	}
	var e *Exception
	if !errors.As(err, &e) {
		e = &Exception{Severity: ErrorLevel, Err: err}
	}
	s.mu.Lock()
	s.exceptions = append(s.exceptions, e)
	s.mu.Unlock()
}

// Throw records a new exception and returns it.
func (s *Sink) Throw(severity Severity, sentinel error, description string) *Exception {
	e := New(severity, sentinel, description)
	s.Add(e)
	return e
}

// Severity returns the highest severity recorded so far.
func (s *Sink) Severity() Severity {
	if s == nil {
		return UndefinedSeverity
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	max := UndefinedSeverity
	for _, e := range s.exceptions {
		if e.Severity > max {
			max = e.Severity
		}
	}
	return max
}

// Exceptions returns a copy of everything recorded.
func (s *Sink) Exceptions() []*Exception {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Exception(nil), s.exceptions...)
}

// Warnings returns the warning-level exceptions.
func (s *Sink) Warnings() []*Exception {
	var out []*Exception
	for _, e := range s.Exceptions() {
		if e.Severity.IsWarning() {
			out = append(out, e)
		}
	}
	return out
}

// Err returns the first recorded exception with the highest severity, or
// nil when nothing at error level or above was recorded.
func (s *Sink) Err() error {
	var worst *Exception
	for _, e := range s.Exceptions() {
		if e.Severity.IsError() && (worst == nil || e.Severity > worst.Severity) {
			worst = e
		}
	}
	if worst == nil {
		return nil
	}
	return worst
}

// Clear drops all recorded exceptions.
func (s *Sink) Clear() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.exceptions = nil
	s.mu.Unlock()
}
