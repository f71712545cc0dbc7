package core

// simReg is an in-memory register with an optional write hook.
type simReg struct {
	v       uint32
	writes  int
	onWrite func(old, new uint32)
}

func (r *simReg) Get() uint32           { return r.v }
func (r *simReg) Set(v uint32)          { r.write(v) }
func (r *simReg) SetBits(v uint32)      { r.write(r.v | v) }
func (r *simReg) ClearBits(v uint32)    { r.write(r.v &^ v) }
func (r *simReg) HasBits(v uint32) bool { return r.v&v > 0 }
func (r *simReg) ReplaceBits(value uint32, mask uint32, pos uint8) {
	r.write(r.v&^(mask<<pos) | value<<pos)
}

func (r *simReg) write(v uint32) {
	old := r.v
	r.v = v
	r.writes++
	if r.onWrite != nil {
		r.onWrite(old, v)
	}
}

// field extracts a bit field.
func (r *simReg) field(pos, width uint8) uint32 {
	return (r.v >> pos) & (1<<width - 1)
}

type simPeriph struct {
	enabled bool
	resets  int
}

func (p *simPeriph) EnableAndReset() {
	p.enabled = true
	p.resets++
}

func (p *simPeriph) Disable() {
	p.enabled = false
}

type simClock uint32

func (c simClock) BusFrequency() uint32 { return uint32(c) }

type simDelay struct {
	total uint32
}

func (d *simDelay) DelayUS(us uint32) { d.total += us }

type fakePin struct {
	ch     uint8
	analog bool
}

func (p *fakePin) Channel() uint8 { return p.ch }
func (p *fakePin) SetAsAnalog()   { p.analog = true }

// simADC models the parts of the ADC the driver relies on: a software start
// with ADON set converts the first sequence slot, sets STRT and EOC and
// latches a per-channel value into DR.
type simADC struct {
	sr, cr1, cr2, smpr1, smpr2, sqr1, sqr2, sqr3, dr, ccr simReg

	regs   *ADCRegisters
	periph simPeriph
	delay  simDelay

	samples     map[uint8]uint16
	stuck       bool // never report STRT/EOC
	conversions int

	smprWritesWhileOn int
}

const simDRAddr = 0x4001204C

func newSimADC() *simADC {
	s := &simADC{samples: make(map[uint8]uint16)}
	s.regs = &ADCRegisters{
		SR:     &s.sr,
		CR1:    &s.cr1,
		CR2:    &s.cr2,
		SMPR1:  &s.smpr1,
		SMPR2:  &s.smpr2,
		SQR1:   &s.sqr1,
		SQR2:   &s.sqr2,
		SQR3:   &s.sqr3,
		DR:     &s.dr,
		DRAddr: simDRAddr,
		Common: NewCommon(&s.ccr),
	}
	s.cr2.onWrite = func(old, new uint32) {
		if s.stuck {
			return
		}
		if new&ADC_CR2_SWSTART != 0 && new&ADC_CR2_ADON != 0 {
			ch := uint8(s.sqr3.v & ADC_SQR_Msk)
			s.dr.v = uint32(s.samples[ch])
			s.sr.v |= ADC_SR_STRT | ADC_SR_EOC
			s.cr2.v &^= ADC_CR2_SWSTART // cleared by hardware once started
			s.conversions++
		}
	}
	smprHook := func(old, new uint32) {
		if s.cr2.v&ADC_CR2_ADON != 0 {
			s.smprWritesWhileOn++
		}
	}
	s.smpr1.onWrite = smprHook
	s.smpr2.onWrite = smprHook
	return s
}

// testPoll never sleeps and gives up quickly.
var testPoll = Poller{Limit: 64, Yield: func() {}}

func (s *simADC) open(busHz uint32, v *Variant) *ADC {
	return NewADC(s.regs, &s.periph, ADCConfig{
		Variant: v,
		Clock:   simClock(busHz),
		Delay:   &s.delay,
		Poll:    testPoll,
	})
}

// fakeDMA records the transfer request and lets tests complete banks.
type fakeDMA struct {
	request    uint8
	src        uintptr
	banks      [2][]uint16
	opts       TransferOptions
	onComplete func(bank int)
	transfer   *fakeTransfer
}

type fakeTransfer struct {
	running  bool
	restarts int
	stops    int
}

func (t *fakeTransfer) IsRunning() bool { return t.running }
func (t *fakeTransfer) RequestRestart() { t.restarts++; t.running = true }
func (t *fakeTransfer) RequestStop()    { t.stops++; t.running = false }

func (d *fakeDMA) Request() uint8 { return 0 }

func (d *fakeDMA) ReadRaw(request uint8, src uintptr, banks [2][]uint16, opts TransferOptions, onComplete func(bank int)) DMATransfer {
	d.request = request
	d.src = src
	d.banks = banks
	d.opts = opts
	d.onComplete = onComplete
	d.transfer = &fakeTransfer{running: true}
	return d.transfer
}

// fill writes v into every sample of a bank and reports it complete.
func (d *fakeDMA) fill(bank int, v uint16) {
	for i := range d.banks[bank] {
		d.banks[bank][i] = v + uint16(i)
	}
	d.onComplete(bank)
}
