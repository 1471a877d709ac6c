package messages

import (
	"sync"

	"github.com/zeromicro/go-zero/core/logx"
)

// Sink receives user-facing warnings and errors produced while ingesting
// remote data. Calls are fire-and-forget: implementations never block and
// never fail the caller.
type Sink interface {
	AddWarning(msg string)
	AddError(msg string)
}

// Aggregator is a thread-safe Sink collecting messages until a consumer
// (typically the API layer) drains them. Messages are mirrored to the log.
type Aggregator struct {
	mu       sync.Mutex
	warnings []string
	errors   []string
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// AddWarning records a warning message.
func (a *Aggregator) AddWarning(msg string) {
	if msg == "" {
		return
	}
	logx.Infof("messages: warning: %s", msg)
	a.mu.Lock()
	a.warnings = append(a.warnings, msg)
	a.mu.Unlock()
}

// AddError records an error message.
func (a *Aggregator) AddError(msg string) {
	if msg == "" {
		return
	}
	logx.Errorf("messages: %s", msg)
	a.mu.Lock()
	a.errors = append(a.errors, msg)
	a.mu.Unlock()
}

// ConsumeWarnings drains and returns all collected warnings.
func (a *Aggregator) ConsumeWarnings() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.warnings
	a.warnings = nil
	return out
}

// ConsumeErrors drains and returns all collected errors.
func (a *Aggregator) ConsumeErrors() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.errors
	a.errors = nil
	return out
}
