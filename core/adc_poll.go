package core

import "runtime"

// Error is a constant error value.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrUnresponsive   = Error("adc: peripheral unresponsive")
	ErrCanceled       = Error("adc: wait canceled")
	ErrBusy           = Error("adc: continuous sampling active")
	ErrNotRunning     = Error("adc: sampler not running")
	ErrNoSample       = Error("adc: no completed sample bank yet")
	ErrTornSnapshot   = Error("adc: snapshot torn by DMA")
	ErrBufferSize     = Error("adc: invalid buffer size")
	ErrBadCalibration = Error("adc: vref reading is zero")
)

// DefaultPollLimit bounds every hardware wait. A conversion at the slowest
// setting is 492 ADC clocks, well under this many status reads.
const DefaultPollLimit = 1_000_000

// Poller waits for hardware flags. Between reads it calls Yield so other
// goroutines get to run under the TinyGo cooperative scheduler.
type Poller struct {
	// Limit is the number of reads before giving up. Zero means DefaultPollLimit.
	Limit uint32

	// Yield is called between reads. Nil means runtime.Gosched.
	Yield func()

	// Done aborts the wait when closed.
	Done <-chan struct{}
}

// Wait polls cond until it reports true.
func (p *Poller) Wait(cond func() bool) error {
	limit := p.Limit
	if limit == 0 {
		limit = DefaultPollLimit
	}
	yield := p.Yield
	if yield == nil {
		yield = runtime.Gosched
	}
	for i := uint32(0); i < limit; i++ {
		if cond() {
			return nil
		}
		if p.Done != nil {
			select {
			case <-p.Done:
				return ErrCanceled
			default:
			}
		}
		yield()
	}
	if cond() {
		return nil
	}
	return ErrUnresponsive
}
