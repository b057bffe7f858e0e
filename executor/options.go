package executor

import (
	"fmt"

	eventloop "github.com/joeycumines/go-eventloop"
	"github.com/joeycumines/logiface"
)

// DefaultPriorities is the number of priority run queues, if unspecified.
const DefaultPriorities = 4

// DefaultLoopBatch is the maximum number of flow steps run per event loop
// task, if unspecified.
const DefaultLoopBatch = 64

// executorOptions holds configuration options for Executor creation.
type executorOptions struct {
	loop       *eventloop.Loop
	observer   Observer
	logger     *logiface.Logger[logiface.Event]
	priorities int
	loopBatch  int
}

// Option configures an Executor instance.
type Option interface {
	applyExecutor(*executorOptions) error
}

// optionImpl implements Option.
type optionImpl struct {
	applyExecutorFunc func(*executorOptions) error
}

func (o *optionImpl) applyExecutor(opts *executorOptions) error {
	return o.applyExecutorFunc(opts)
}

// WithPriorities sets the number of priority run queues, which must be
// positive. Flow priorities are clamped to [0, n-1], where 0 is the highest.
func WithPriorities(n int) Option {
	return &optionImpl{func(opts *executorOptions) error {
		if n < 1 {
			return fmt.Errorf("%w: priorities must be positive, got %d", ErrInvalidOption, n)
		}
		opts.priorities = n
		return nil
	}}
}

// WithLoop configures the executor to be driven by the given event loop.
// Whenever work is enqueued, a task is submitted to the loop, which drains
// at most the configured batch of steps (see WithLoopBatch) before yielding
// back to the loop.
func WithLoop(loop *eventloop.Loop) Option {
	return &optionImpl{func(opts *executorOptions) error {
		if loop == nil {
			return fmt.Errorf("%w: nil loop", ErrInvalidOption)
		}
		opts.loop = loop
		return nil
	}}
}

// WithLoopBatch sets the maximum number of steps run per event loop task.
// Only relevant in combination with WithLoop.
func WithLoopBatch(n int) Option {
	return &optionImpl{func(opts *executorOptions) error {
		if n < 1 {
			return fmt.Errorf("%w: loop batch must be positive, got %d", ErrInvalidOption, n)
		}
		opts.loopBatch = n
		return nil
	}}
}

// WithObserver registers an Observer, which is notified around each step.
func WithObserver(observer Observer) Option {
	return &optionImpl{func(opts *executorOptions) error {
		opts.observer = observer
		return nil
	}}
}

// WithLogger sets the logger used by the executor. A nil logger disables
// logging, which is the default.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *executorOptions) error {
		opts.logger = logger
		return nil
	}}
}

// resolveOptions applies Option instances to executorOptions.
func resolveOptions(opts []Option) (*executorOptions, error) {
	cfg := &executorOptions{
		priorities: DefaultPriorities,
		loopBatch:  DefaultLoopBatch,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyExecutor(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
