package dispatch

import (
	"fmt"
	"time"

	"github.com/joeycumines/logiface"
)

// DefaultBackpressureLogRates limit warnings logged when a clone cannot be
// allocated, per handler.
var DefaultBackpressureLogRates = map[time.Duration]int{
	time.Second: 1,
	time.Minute: 10,
}

type dispatcherOptions struct {
	logger      *logiface.Logger[logiface.Event]
	logRates    map[time.Duration]int
	name        string
	concurrency int
	negate      bool
}

// Option configures a Dispatcher.
type Option interface {
	applyDispatcher(*dispatcherOptions) error
}

type optionImpl struct {
	applyDispatcherFunc func(*dispatcherOptions) error
}

func (o *optionImpl) applyDispatcher(opts *dispatcherOptions) error {
	return o.applyDispatcherFunc(opts)
}

// WithNegate inverts the filter, delivering each message to every handler
// that does NOT match.
func WithNegate(negate bool) Option {
	return &optionImpl{func(opts *dispatcherOptions) error {
		opts.negate = negate
		return nil
	}}
}

// WithConcurrency sets the number of dispatch instances, i.e. the number of
// messages that may be dispatched concurrently. Defaults to 1.
func WithConcurrency(n int) Option {
	return &optionImpl{func(opts *dispatcherOptions) error {
		if n < 1 {
			return fmt.Errorf("%w: concurrency must be positive, got %d", ErrInvalidOption, n)
		}
		opts.concurrency = n
		return nil
	}}
}

// WithName sets the name of the dispatcher, used to name its flows, and in
// logs. Defaults to `dispatch`.
func WithName(name string) Option {
	return &optionImpl{func(opts *dispatcherOptions) error {
		opts.name = name
		return nil
	}}
}

// WithLogger sets the logger. A nil logger disables logging, which is the
// default.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *dispatcherOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithBackpressureLogRates configures the rate limits (see
// github.com/joeycumines/go-catrate) for warnings logged on clone allocation
// failure, per handler. A nil or empty map disables rate limiting.
func WithBackpressureLogRates(rates map[time.Duration]int) Option {
	return &optionImpl{func(opts *dispatcherOptions) error {
		opts.logRates = rates
		return nil
	}}
}

func resolveOptions(opts []Option) (*dispatcherOptions, error) {
	cfg := &dispatcherOptions{
		name:        `dispatch`,
		concurrency: 1,
		logRates:    DefaultBackpressureLogRates,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyDispatcher(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
