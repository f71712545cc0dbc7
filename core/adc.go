// Package core drives the STM32F2/F4/F7 ("v2") ADC peripheral.
//
// It owns power and clock sequencing, the regular conversion sequence,
// per-channel sample times, single-shot conversions, DMA-backed continuous
// capture and the internal reference calibration. Registers, DMA streams,
// pins, delays and the bus clock are supplied by the target.
package core

// PowerUpTimeUS is the analog settle time after setting ADON.
const PowerUpTimeUS = 3

// Prescaler is the ADCPRE encoding of the PCLK2 divider.
type Prescaler uint8

const (
	PrescalerDiv2 Prescaler = iota
	PrescalerDiv4
	PrescalerDiv6
	PrescalerDiv8
)

// Divisor returns the clock divisor.
func (p Prescaler) Divisor() uint32 {
	return 2 * (uint32(p&0x3) + 1)
}

// PrescalerFor returns the smallest divider that keeps the ADC clock at or
// below maxHz. It panics when even /8 is too fast: that is a clock tree
// misconfiguration, not something the firmware can recover from.
func PrescalerFor(busHz, maxHz uint32) Prescaler {
	for p := PrescalerDiv2; p <= PrescalerDiv8; p++ {
		if uint64(busHz) <= uint64(maxHz)*uint64(p.Divisor()) {
			return p
		}
	}
	panic("adc: PCLK2 frequency too high for largest ADC prescaler")
}

// ADCConfig is the board-level configuration of one ADC.
type ADCConfig struct {
	// Variant selects chip family constants. Nil means VariantF40x.
	Variant *Variant

	// Clock reports PCLK2. Required.
	Clock Clock

	// Delay is used once for the power-up settle time. Required.
	Delay Delayer

	// Poll bounds every status flag wait.
	Poll Poller
}

// ADC is exclusive ownership of one ADC instance.
// It is not safe for concurrent use.
type ADC struct {
	regs    *ADCRegisters
	periph  Peripheral
	variant *Variant
	clock   Clock
	poll    Poller

	prescaler  Prescaler
	sampleTime SampleTime
	seqLen     uint8 // highest sequence position programmed so far (1-based)

	sampler *Sampler
	closed  bool
}

// NewADC powers up the ADC: clock gate and reset, prescaler, ADON, settle.
func NewADC(regs *ADCRegisters, periph Peripheral, cfg ADCConfig) *ADC {
	if cfg.Variant == nil {
		cfg.Variant = VariantF40x
	}
	if cfg.Clock == nil {
		panic("adc: clock not configured")
	}
	if cfg.Delay == nil {
		panic("adc: delay not configured")
	}
	if regs.Common == nil {
		panic("adc: common registers not configured")
	}

	periph.EnableAndReset()

	bus := cfg.Clock.BusFrequency()
	presc := PrescalerFor(bus, cfg.Variant.MaxFrequency)
	regs.Common.CCR.ReplaceBits(uint32(presc)<<ADC_CCR_ADCPRE_Pos, ADC_CCR_ADCPRE_Msk, 0)
	regs.CR2.SetBits(ADC_CR2_ADON)

	cfg.Delay.DelayUS(PowerUpTimeUS)

	a := &ADC{
		regs:       regs,
		periph:     periph,
		variant:    cfg.Variant,
		clock:      cfg.Clock,
		poll:       cfg.Poll,
		prescaler:  presc,
		sampleTime: SampleTimeCycles3,
	}
	RecordEvent(EvtPowerOn, 0, bus, presc.Divisor())
	if IsDebugEnabled() {
		DebugPrintln("[ADC] " + cfg.Variant.Name + " pclk2=" + utoa(bus) + " div=" + utoa(presc.Divisor()))
	}
	return a
}

// Close stops any running sampler, powers the ADC down and gates its clock.
// Calling Close more than once is harmless.
func (a *ADC) Close() error {
	if a.closed {
		return nil
	}
	var err error
	if a.sampler != nil && a.sampler.State() == SamplerRunning {
		err = a.sampler.Stop()
	}
	a.regs.CR2.ClearBits(ADC_CR2_ADON)
	a.periph.Disable()
	a.closed = true
	RecordEvent(EvtPowerOff, 0, 0, 0)
	return err
}

// Variant returns the chip variant the ADC was created with.
func (a *ADC) Variant() *Variant {
	return a.variant
}

// Prescaler returns the selected PCLK2 divider.
func (a *ADC) Prescaler() Prescaler {
	return a.prescaler
}

// Frequency returns the ADC clock in Hz.
func (a *ADC) Frequency() uint32 {
	return a.clock.BusFrequency() / a.prescaler.Divisor()
}

// Resolution reads the programmed resolution.
func (a *ADC) Resolution() Resolution {
	return Resolution((a.regs.CR1.Get() & ADC_CR1_RES_Msk) >> ADC_CR1_RES_Pos)
}

// SetResolution programs CR1.RES with the ADC powered down.
func (a *ADC) SetResolution(res Resolution) error {
	if a.Resolution() == res {
		return nil
	}
	return a.withPowerOff(func() {
		a.regs.CR1.ReplaceBits(uint32(res&0x3)<<ADC_CR1_RES_Pos, ADC_CR1_RES_Msk, 0)
	})
}

// DefaultSampleTime returns the sample time most recently applied.
func (a *ADC) DefaultSampleTime() SampleTime {
	return a.sampleTime
}

// SetDefaultSampleTime changes the sample time Read programs for the channel
// it converts. Already configured channels keep their sample time.
func (a *ADC) SetDefaultSampleTime(st SampleTime) {
	a.sampleTime = st
}

// IsOn reports whether ADON is set.
func (a *ADC) IsOn() bool {
	return a.regs.CR2.HasBits(ADC_CR2_ADON)
}

func (a *ADC) startADC() {
	a.regs.CR2.SetBits(ADC_CR2_ADON)
}

func (a *ADC) stopADC() error {
	a.regs.CR2.ClearBits(ADC_CR2_ADON)
	return a.poll.Wait(func() bool {
		return !a.regs.CR2.HasBits(ADC_CR2_ADON)
	})
}

// withPowerOff runs fn with ADON cleared, restoring ADON afterwards if it
// was set. ADON is restored even when fn panics or the ADC never reports
// off, in which case fn is skipped.
func (a *ADC) withPowerOff(fn func()) error {
	if a.IsOn() {
		defer a.startADC()
		if err := a.stopADC(); err != nil {
			return err
		}
	}
	fn()
	return nil
}

// withPowerOn runs fn with ADON set, clearing it afterwards if it was clear.
func (a *ADC) withPowerOn(fn func()) error {
	wasOn := a.IsOn()
	if !wasOn {
		a.startADC()
	}
	fn()
	if !wasOn {
		return a.stopADC()
	}
	return nil
}
