package core

// Read converts one channel: it programs a one-element sequence, applies
// the default sample time to the channel and runs a single conversion. It fails with ErrBusy while continuous sampling owns
// the ADC.
func (a *ADC) Read(pin AnalogPin) (uint16, error) {
	if a.sampler != nil && a.sampler.State() == SamplerRunning {
		return 0, ErrBusy
	}
	if err := a.SetChannelSampleSequence([]uint8{pin.Channel()}); err != nil {
		return 0, err
	}
	if err := a.SetSampleTime(pin, a.sampleTime); err != nil {
		return 0, err
	}
	return a.convert()
}

// convert performs a single software-triggered conversion.
func (a *ADC) convert() (uint16, error) {
	a.regs.SR.ClearBits(ADC_SR_EOC)
	a.regs.CR2.SetBits(ADC_CR2_ADON | ADC_CR2_SWSTART)

	// wait for the conversion to actually start, then finish
	err := a.poll.Wait(func() bool {
		return a.regs.SR.HasBits(ADC_SR_STRT)
	})
	if err != nil {
		return 0, err
	}
	err = a.poll.Wait(func() bool {
		return a.regs.SR.HasBits(ADC_SR_EOC)
	})
	if err != nil {
		return 0, err
	}

	return uint16(a.regs.DR.Get() & ADC_DR_DATA_Msk), nil
}
