package core

import "sync/atomic"

// SamplerState is the lifecycle state of a continuous sampling session.
type SamplerState uint8

const (
	SamplerIdle SamplerState = iota
	SamplerRunning
	SamplerStopped
)

func (s SamplerState) String() string {
	switch s {
	case SamplerIdle:
		return "idle"
	case SamplerRunning:
		return "running"
	case SamplerStopped:
		return "stopped"
	}
	return "unknown"
}

// SnapshotRetries is how often Snapshot re-copies a bank that DMA
// overwrote during the copy.
const SnapshotRetries = 4

// Sampler is a free-running scan of the programmed sequence, streamed by
// DMA into two banks. While DMA fills one bank the other holds the last
// complete scan window.
type Sampler struct {
	adc      *ADC
	transfer DMATransfer
	banks    [2][]uint16
	state    SamplerState

	// seq is written only by the DMA completion callback:
	// generation<<1 | index of the bank that was just filled.
	seq uint32

	// copyBank replaces the builtin copy when set; tests use it to land a
	// DMA completion in the middle of a copy.
	copyBank func(dst, src []uint16) int
}

// StartReadContinuous starts continuous conversion of the programmed
// sequence into buf. buf is split into two equal banks, so its length must
// be even and non-zero; a multiple of the sequence length keeps every bank
// aligned to whole scans.
func (a *ADC) StartReadContinuous(dma DMAChannel, buf []uint16) (*Sampler, error) {
	if a.sampler != nil && a.sampler.state == SamplerRunning {
		return nil, ErrBusy
	}
	if len(buf) == 0 || len(buf)%2 != 0 {
		return nil, ErrBufferSize
	}
	half := len(buf) / 2
	s := &Sampler{
		adc:   a,
		banks: [2][]uint16{buf[:half:half], buf[half:]},
	}

	opts := TransferOptions{
		PeripheralBurst:     BurstSingle,
		MemoryBurst:         BurstSingle,
		FlowControl:         FlowControlDMA,
		Circular:            true,
		HalfTransferIRQ:     false,
		CompleteTransferIRQ: true,
		DoubleBuffer:        true,
	}
	s.transfer = dma.ReadRaw(dma.Request(), a.regs.DRAddr, s.banks, opts, s.complete)

	if a.IsOn() {
		a.regs.CR2.ClearBits(ADC_CR2_ADON)
	}

	a.regs.CR1.SetBits(ADC_CR1_SCAN | ADC_CR1_EOCIE)
	a.regs.CR1.ClearBits(ADC_CR1_DISCEN)

	// continuous conversion goes with circular DMA
	a.regs.CR2.ClearBits(ADC_CR2_SWSTART)
	a.regs.CR2.SetBits(ADC_CR2_CONT | ADC_CR2_DMA | ADC_CR2_DDS | ADC_CR2_EOCS)

	a.regs.CR2.SetBits(ADC_CR2_ADON | ADC_CR2_SWSTART)

	s.state = SamplerRunning
	a.sampler = s
	RecordEvent(EvtSamplerStart, 0, uint32(len(buf)), uint32(a.SequenceLength()))
	DebugPrintln("[ADC] continuous sampling started")
	return s, nil
}

// complete runs in interrupt context when DMA finished filling a bank.
func (s *Sampler) complete(bank int) {
	seq := atomic.LoadUint32(&s.seq)
	gen := seq>>1 + 1
	atomic.StoreUint32(&s.seq, gen<<1|uint32(bank&1))
}

// State returns the session state.
func (s *Sampler) State() SamplerState {
	return s.state
}

// Generation returns how many banks DMA has completed.
func (s *Sampler) Generation() uint32 {
	return atomic.LoadUint32(&s.seq) >> 1
}

// BankSize returns the number of samples per bank.
func (s *Sampler) BankSize() int {
	return len(s.banks[0])
}

// Snapshot copies the most recently completed bank into dst and returns
// its generation. dst may be shorter than a bank; the leading samples are
// copied. A copy that raced with DMA is retried, and ErrTornSnapshot is
// returned when every retry raced.
func (s *Sampler) Snapshot(dst []uint16) (uint32, error) {
	if s.state != SamplerRunning {
		return 0, ErrNotRunning
	}
	if len(dst) == 0 || len(dst) > s.BankSize() {
		return 0, ErrBufferSize
	}

	gen, err := s.copyStable(dst)

	// DMA stops on overrun; put it and the ADC back to work.
	if !s.transfer.IsRunning() {
		s.adc.regs.SR.ClearBits(ADC_SR_OVR)
		s.transfer.RequestRestart()
		s.adc.regs.CR2.SetBits(ADC_CR2_ADON | ADC_CR2_SWSTART)
		RecordEvent(EvtSamplerRestart, 0, gen, 0)
	}
	return gen, err
}

func (s *Sampler) copyStable(dst []uint16) (uint32, error) {
	for attempt := 0; attempt <= SnapshotRetries; attempt++ {
		before := atomic.LoadUint32(&s.seq)
		if before == 0 {
			return 0, ErrNoSample
		}
		if s.copyBank != nil {
			s.copyBank(dst, s.banks[before&1])
		} else {
			copy(dst, s.banks[before&1])
		}
		after := atomic.LoadUint32(&s.seq)
		// Any completion during the copy means DMA may have moved on to
		// the bank being read.
		if after == before {
			return before >> 1, nil
		}
		RecordEvent(EvtSnapshotRetry, 0, before>>1, after>>1)
	}
	return 0, ErrTornSnapshot
}

// Stop ends continuous sampling and waits for the ADC to power down.
func (s *Sampler) Stop() error {
	if s.state != SamplerRunning {
		return ErrNotRunning
	}
	a := s.adc
	a.regs.CR2.ClearBits(ADC_CR2_ADON)
	a.regs.CR2.ClearBits(ADC_CR2_SWSTART | ADC_CR2_DMA | ADC_CR2_CONT)
	a.regs.CR1.ClearBits(ADC_CR1_EOCIE)
	s.transfer.RequestStop()
	s.state = SamplerStopped

	err := a.poll.Wait(func() bool {
		return !a.regs.CR2.HasBits(ADC_CR2_ADON)
	})
	RecordEvent(EvtSamplerStop, 0, s.Generation(), 0)
	return err
}

// StopContinuousConversion stops the running sampler, if any.
func (a *ADC) StopContinuousConversion() error {
	if a.sampler == nil {
		return ErrNotRunning
	}
	return a.sampler.Stop()
}
