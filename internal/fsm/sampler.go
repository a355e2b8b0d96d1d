package fsm

import (
	"math"
	"sync/atomic"
	"time"

	"gopkg.in/tomb.v2"
)

// ReadWeight reads the load cell once, in grams.
type ReadWeight func() float32

// DefaultSampleInterval is the load-cell sampling period.
const DefaultSampleInterval = 100 * time.Millisecond

const readyBit = uint64(1) << 32

// Sampler periodically reads the load cell on its own goroutine and
// publishes the latest reading for the control loop.
//
// The reading and its "new sample" flag share one 64-bit word: the low 32
// bits hold the float32 bits, bit 32 is the flag. Publishing is a single
// atomic store and Take clears the flag with a compare-and-swap, so the
// loop never sees a value from one sample paired with the flag of another.
type Sampler struct {
	read     ReadWeight
	interval time.Duration
	word     atomic.Uint64
	t        tomb.Tomb
	started  atomic.Bool
}

// NewSampler creates a stopped sampler.
func NewSampler(read ReadWeight, interval time.Duration) *Sampler {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return &Sampler{read: read, interval: interval}
}

// Start launches the sampling goroutine.
func (s *Sampler) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	s.t.Go(s.loop)
}

func (s *Sampler) loop() error {
	tk := time.NewTicker(s.interval)
	defer tk.Stop()
	for {
		select {
		case <-s.t.Dying():
			return nil
		case <-tk.C:
			s.Publish(s.read())
		}
	}
}

// Publish stores w as the latest sample and marks it ready. Only the
// sampling goroutine calls it outside tests.
func (s *Sampler) Publish(w float32) {
	s.word.Store(uint64(math.Float32bits(w)) | readyBit)
}

// Take returns the latest sample if one arrived since the previous Take.
func (s *Sampler) Take() (float32, bool) {
	for {
		v := s.word.Load()
		if v&readyBit == 0 {
			return 0, false
		}
		if s.word.CompareAndSwap(v, v&^readyBit) {
			return math.Float32frombits(uint32(v)), true
		}
	}
}

// Stop terminates the sampling goroutine and waits for it.
func (s *Sampler) Stop() error {
	if !s.started.Load() {
		return nil
	}
	s.t.Kill(nil)
	return s.t.Wait()
}
