package core

// Sequence is a 1-based position in the regular conversion sequence.
type Sequence uint8

const (
	SequenceMin Sequence = 1
	SequenceMax Sequence = 16

	// MaxBulkSequence is the longest list SetChannelSampleSequence accepts.
	MaxBulkSequence = 8
)

func mustChannel(ch uint8) {
	if ch > MaxChannel {
		panic("adc: invalid channel " + utoa(uint32(ch)))
	}
}

// smprSlot returns the sample-time register and bit offset of a channel.
func (a *ADC) smprSlot(ch uint8) (Register, uint8) {
	mustChannel(ch)
	if ch < ADC_SMPR1_Base {
		return a.regs.SMPR2, ch * ADC_SMPR_Width
	}
	return a.regs.SMPR1, (ch - ADC_SMPR1_Base) * ADC_SMPR_Width
}

// sqrSlot returns the sequence register and bit offset of a position.
func (a *ADC) sqrSlot(pos Sequence) (Register, uint8) {
	switch {
	case pos >= 1 && pos <= 6:
		return a.regs.SQR3, uint8(pos-1) * ADC_SQR_Width
	case pos >= 7 && pos <= 12:
		return a.regs.SQR2, uint8(pos-7) * ADC_SQR_Width
	case pos >= 13 && pos <= 16:
		return a.regs.SQR1, uint8(pos-13) * ADC_SQR_Width
	}
	panic("adc: invalid sequence position " + utoa(uint32(pos)))
}

// SampleTimeOf reads the sample time programmed for a channel.
func (a *ADC) SampleTimeOf(ch uint8) SampleTime {
	reg, pos := a.smprSlot(ch)
	return SampleTime((reg.Get() >> pos) & ADC_SMPR_Msk)
}

// setChannelSampleTime writes the SMPx field. ADON must be clear.
func (a *ADC) setChannelSampleTime(ch uint8, st SampleTime) {
	reg, pos := a.smprSlot(ch)
	reg.ReplaceBits(uint32(st&ADC_SMPR_Msk), ADC_SMPR_Msk, pos)
}

// SetSampleTime programs the sample time of one channel. The hardware only
// accepts the write with ADON clear, so a powered ADC is switched off for
// the write and back on afterwards.
func (a *ADC) SetSampleTime(pin AnalogPin, st SampleTime) error {
	ch := pin.Channel()
	if a.SampleTimeOf(ch) == st {
		return nil
	}
	err := a.withPowerOff(func() {
		a.setChannelSampleTime(ch, st)
	})
	if err != nil {
		return err
	}
	a.sampleTime = st
	RecordEvent(EvtSampleTime, ch, st.Clocks(), 0)
	return nil
}

// SequenceLength returns the number of conversions in the sequence, as
// stored in SQR1.L.
func (a *ADC) SequenceLength() uint8 {
	return uint8((a.regs.SQR1.Get()&ADC_SQR1_L_Msk)>>ADC_SQR1_L_Pos) + 1
}

// MaxProgrammedSequence returns the highest position programmed through
// SetSampleSequence since the ADC was created.
func (a *ADC) MaxProgrammedSequence() uint8 {
	return a.seqLen
}

// SetSampleSequence places a channel at a sequence position and sets its
// sample time. The sequence length is raised to cover pos but never lowered.
func (a *ADC) SetSampleSequence(pos Sequence, pin AnalogPin, st SampleTime) error {
	ch := pin.Channel()
	mustChannel(ch)
	reg, shift := a.sqrSlot(pos)

	err := a.withPowerOn(func() {
		prev := Sequence(a.SequenceLength())
		if prev < pos {
			a.regs.SQR1.ReplaceBits(uint32(pos-1)<<ADC_SQR1_L_Pos, ADC_SQR1_L_Msk, 0)
		}
		if uint8(pos) > a.seqLen {
			a.seqLen = uint8(pos)
		}

		pin.SetAsAnalog()
		reg.ReplaceBits(uint32(ch), ADC_SQR_Msk, shift)
	})
	if err != nil {
		return err
	}
	RecordEvent(EvtSequence, ch, uint32(pos), uint32(a.SequenceLength()))

	return a.SetSampleTime(pin, st)
}

// SetChannelSampleSequence replaces the whole sequence with channels, in
// order. At most MaxBulkSequence channels are accepted.
func (a *ADC) SetChannelSampleSequence(channels []uint8) error {
	if len(channels) == 0 || len(channels) > MaxBulkSequence {
		panic("adc: sequence must hold 1 to 8 channels")
	}
	for _, ch := range channels {
		mustChannel(ch)
	}

	return a.withPowerOn(func() {
		a.regs.SQR1.ReplaceBits(uint32(len(channels)-1)<<ADC_SQR1_L_Pos, ADC_SQR1_L_Msk, 0)

		banks := [...]struct {
			reg   Register
			slots int
		}{
			{a.regs.SQR3, 6},
			{a.regs.SQR2, 6},
			{a.regs.SQR1, 4},
		}
		rest := channels
		for _, b := range banks {
			n := b.slots
			if n > len(rest) {
				n = len(rest)
			}
			for i, ch := range rest[:n] {
				b.reg.ReplaceBits(uint32(ch), ADC_SQR_Msk, uint8(i)*ADC_SQR_Width)
			}
			rest = rest[n:]
		}
	})
}
