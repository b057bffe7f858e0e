// Package cpuload estimates how busy an executor is, by periodic sampling,
// and attributes the busy samples to the flow that was running.
package cpuload

import (
	"context"
	"math/bits"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-dispatchflow/boundedmap"
	"github.com/joeycumines/go-dispatchflow/executor"
	"github.com/joeycumines/logiface"
)

type (
	// Config models optional configuration, for New.
	Config struct {
		// Logger is used to report keys that could not be tracked.
		// **Defaults to nil (no logging).**
		Logger *logiface.Logger[logiface.Event]

		// Interval is the sampling period used by Monitor.Run.
		// **Defaults to 10ms, if 0, or Config is nil.**
		Interval time.Duration

		// MaxKeys is the number of distinct keys (flow names) that are
		// tracked. Samples for further keys are counted by Monitor.Overflow.
		// **Defaults to 32, if 0, or Config is nil.**
		MaxKeys int
	}

	// Monitor samples what an executor is doing. It implements
	// executor.Observer. Instances must be initialized using the New factory.
	Monitor struct {
		// betteralign:ignore

		logger   *logiface.Logger[logiface.Event] // configurable
		interval time.Duration                    // configurable
		ctx      context.Context
		cancel   context.CancelFunc
		current  atomic.Pointer[string] // nil while idle

		mu             sync.Mutex
		keys           *boundedmap.Map[string, keyInfo]
		ticks          uint64
		overflow       uint64
		avg            uint32 // EWMA, fixed point, 1<<24 is 1.0
		last16         uint16
		consecutive    uint8
		maxConsecutive uint8
		peakOver16     uint8
	}

	// Utilization is the number of busy samples attributed to a key.
	Utilization struct {
		Key         string
		Description string
		Ticks       uint32
	}

	keyInfo struct {
		description string
		rolling     uint32
		last        uint32
	}
)

const (
	avgOne   = 1 << 24
	avgShift = 7 // alpha = 1/128
)

var _ executor.Observer = (*Monitor)(nil)

// New initializes a new Monitor. The provided config may be nil. A panic
// will occur if invalid config is provided.
//
// The Monitor.Close method should be called when the Monitor is no longer
// needed, if Monitor.Run was used.
func New(config *Config) *Monitor {
	x := Monitor{
		interval: time.Millisecond * 10,
	}
	maxKeys := 32

	if config != nil {
		x.logger = config.Logger
		if config.Interval != 0 {
			x.interval = config.Interval
		}
		if config.MaxKeys != 0 {
			maxKeys = config.MaxKeys
		}
	}

	if x.interval < 0 {
		panic(`cpuload: negative interval`)
	}
	if maxKeys < 0 {
		panic(`cpuload: negative max keys`)
	}

	x.keys = boundedmap.New[string, keyInfo](maxKeys)
	x.ctx, x.cancel = context.WithCancel(context.Background())

	return &x
}

// StepBegin implements executor.Observer.
func (x *Monitor) StepBegin(name string) {
	x.current.Store(&name)
}

// StepEnd implements executor.Observer.
func (x *Monitor) StepEnd() {
	x.current.Store(nil)
}

// Run calls Tick every interval, until ctx is canceled (returning its
// error), or Close is called (returning nil).
func (x *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(x.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-x.ctx.Done():
			return nil
		case <-ticker.C:
			x.Tick()
		}
	}
}

// Close stops Run. It is safe to call multiple times.
func (x *Monitor) Close() error {
	x.cancel()
	return nil
}

// Tick takes a sample.
func (x *Monitor) Tick() {
	key := x.current.Load()
	busy := key != nil

	x.mu.Lock()
	defer x.mu.Unlock()

	x.ticks++

	x.avg -= x.avg >> avgShift
	x.last16 <<= 1
	if !busy {
		x.consecutive = 0
	} else {
		x.avg += avgOne >> avgShift
		x.last16 |= 1
		if x.consecutive < 255 {
			x.consecutive++
		}
		if x.consecutive > x.maxConsecutive {
			x.maxConsecutive = x.consecutive
		}
	}
	if n := uint8(bits.OnesCount16(x.last16)); n > x.peakOver16 {
		x.peakOver16 = n
	}

	if !busy {
		return
	}
	if info := x.keys.Ptr(*key); info != nil {
		info.rolling++
		return
	}
	if x.keys.Set(*key, keyInfo{description: *key, rolling: 1}) {
		return
	}
	x.overflow++
	if x.overflow == 1 {
		x.logger.Warning().
			Str(`key`, *key).
			Int(`max_keys`, x.keys.Cap()).
			Log(`too many keys, further keys are not tracked`)
	}
}

// Load returns the average load, between 0 and 100.
func (x *Monitor) Load() uint8 {
	x.mu.Lock()
	defer x.mu.Unlock()
	return uint8(min(uint64(x.avg)*100>>24, 100))
}

// MaxConsecutive returns the longest streak of busy samples, clipped to 255.
func (x *Monitor) MaxConsecutive() uint8 {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.maxConsecutive
}

// ClearMaxConsecutive resets MaxConsecutive.
func (x *Monitor) ClearMaxConsecutive() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.maxConsecutive = 0
}

// PeakOver16 returns the largest number of busy samples, within any window
// of 16 consecutive samples.
func (x *Monitor) PeakOver16() uint8 {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.peakOver16
}

// ClearPeakOver16 resets PeakOver16.
func (x *Monitor) ClearPeakOver16() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.peakOver16 = 0
}

// Ticks returns the total number of samples.
func (x *Monitor) Ticks() uint64 {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.ticks
}

// Overflow returns the number of busy samples that could not be attributed,
// because MaxKeys was reached.
func (x *Monitor) Overflow() uint64 {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.overflow
}

// SetKeyDescription sets how a key is described by UtilizationDelta,
// defaulting to the key itself. It returns false if the key could not be
// tracked.
func (x *Monitor) SetKeyDescription(key, description string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if info := x.keys.Ptr(key); info != nil {
		info.description = description
		return true
	}
	return x.keys.Set(key, keyInfo{description: description})
}

// UtilizationDelta returns the busy samples per key since the last call,
// omitting keys with none, in ascending key order.
func (x *Monitor) UtilizationDelta() (delta []Utilization) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for key := range x.keys.All() {
		info := x.keys.Ptr(key)
		diff := info.rolling - info.last
		info.last = info.rolling
		if diff > 0 {
			delta = append(delta, Utilization{
				Key:         key,
				Description: info.description,
				Ticks:       diff,
			})
		}
	}
	return delta
}
