// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dispatch

import (
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultCapacity is the default bound of the request channel.
	DefaultCapacity = 256
	// DefaultCallTimeout bounds every blocking call.
	DefaultCallTimeout = 30 * time.Second
	// DefaultDrainTimeout bounds a graceful Close before it escalates.
	DefaultDrainTimeout = 5 * time.Second
)

// ShutdownMode selects how Close treats queued requests.
type ShutdownMode uint8

const (
	// Fast stops the worker after its current request.
	// Queued requests are dropped and complete with ErrClosed.
	Fast ShutdownMode = iota
	// Graceful lets the worker finish every admitted request, up to the
	// drain timeout, and then behaves like Fast.
	Graceful
)

func (m ShutdownMode) String() string {
	switch m {
	case Fast:
		return "fast"
	case Graceful:
		return "graceful"
	default:
		return "unknown"
	}
}

// ParseShutdownMode parses "fast" or "graceful".
func ParseShutdownMode(s string) (ShutdownMode, error) {
	switch s {
	case "", "fast":
		return Fast, nil
	case "graceful":
		return Graceful, nil
	default:
		return Fast, ErrInvalidParam
	}
}

type options struct {
	capacity     int
	callTimeout  time.Duration
	shutdown     ShutdownMode
	drainTimeout time.Duration
	logger       zerolog.Logger
	lockThread   bool
}

func defaultOptions() options {
	return options{
		capacity:     DefaultCapacity,
		callTimeout:  DefaultCallTimeout,
		shutdown:     Fast,
		drainTimeout: DefaultDrainTimeout,
		logger:       zerolog.Nop(),
		lockThread:   true,
	}
}

// Option configures a Handle.
type Option func(*options)

// WithCapacity sets the request channel bound. Values below 1 are ignored.
func WithCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.capacity = n
		}
	}
}

// WithCallTimeout sets the bound on each blocking call.
func WithCallTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.callTimeout = d
		}
	}
}

// WithShutdown sets the Close behavior.
func WithShutdown(mode ShutdownMode) Option {
	return func(o *options) {
		o.shutdown = mode
	}
}

// WithDrainTimeout bounds a Graceful Close.
func WithDrainTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.drainTimeout = d
		}
	}
}

// WithLogger sets the logger for worker and lifecycle events.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithoutThreadLock keeps the worker goroutine unpinned.
// Use it only with executors that have no thread affinity.
func WithoutThreadLock() Option {
	return func(o *options) {
		o.lockThread = false
	}
}
