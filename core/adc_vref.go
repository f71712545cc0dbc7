package core

// CalibrationUV is the VDDA at which VrefCalibrated was measured.
const CalibrationUV = 3_000_000

// TemperatureStartTimeUS is how long the temperature sensor needs after
// being enabled before its readings settle.
const TemperatureStartTimeUS = 10

// acquire bumps a user count and sets bit in CCR while it is nonzero.
func (c *Common) acquire(users *uint32, bit uint32) {
	cs := enterCritical()
	*users++
	c.CCR.SetBits(bit)
	exitCritical(cs)
}

// release drops a user count and clears bit in CCR when it reaches zero.
func (c *Common) release(users *uint32, bit uint32) {
	cs := enterCritical()
	if *users > 0 {
		*users--
	}
	if *users == 0 {
		c.CCR.ClearBits(bit)
	}
	exitCritical(cs)
}

// VrefUsers returns how many handles currently hold TSVREFE on.
func (c *Common) VrefUsers() uint32 {
	cs := enterCritical()
	n := c.vrefUsers
	exitCritical(cs)
	return n
}

// Vref is a handle on the internal voltage reference channel.
// TSVREFE stays set until every Vref and Temperature handle is closed.
type Vref struct {
	common  *Common
	channel uint8
	cal     uint16
	closed  bool
}

// EnableVref turns on the internal reference and returns a handle to it.
// The handle must be closed when no longer needed.
func (a *ADC) EnableVref() *Vref {
	a.regs.Common.acquire(&a.regs.Common.vrefUsers, ADC_CCR_TSVREFE)
	return &Vref{
		common:  a.regs.Common,
		channel: a.variant.VrefChannel,
		cal:     a.variant.VrefCalibrated,
	}
}

// WithVref runs fn with an enabled reference, releasing it on every exit path.
func (a *ADC) WithVref(fn func(v *Vref) error) error {
	v := a.EnableVref()
	defer v.Close()
	return fn(v)
}

func (v *Vref) Channel() uint8 { return v.channel }
func (v *Vref) SetAsAnalog()   {}

// CalibratedValue is what the reference would read if VDDA were 3.000 V.
func (v *Vref) CalibratedValue() uint16 {
	return v.cal
}

// Calibrate measures the reference once.
func (v *Vref) Calibrate(a *ADC) (Calibration, error) {
	val, err := a.Read(v)
	if err != nil {
		return Calibration{}, err
	}
	if val == 0 {
		return Calibration{}, ErrBadCalibration
	}
	return Calibration{VrefCal: v.cal, VrefVal: val}, nil
}

// Close releases the reference. Only the first call has an effect.
func (v *Vref) Close() error {
	if v.closed {
		return nil
	}
	v.closed = true
	v.common.release(&v.common.vrefUsers, ADC_CCR_TSVREFE)
	return nil
}

// Calibration pairs the expected and measured reference codes.
type Calibration struct {
	VrefCal uint16
	VrefVal uint16
}

// VddaUV returns the measured analog supply in microvolts.
func (c Calibration) VddaUV() uint32 {
	if c.VrefVal == 0 {
		return 0
	}
	uv := uint64(CalibrationUV) * uint64(c.VrefCal) / uint64(c.VrefVal)
	if uv > 0xFFFFFFFF {
		return 0xFFFFFFFF
	}
	return uint32(uv)
}

// VddaF32 returns the measured analog supply in volts.
func (c Calibration) VddaF32() float32 {
	if c.VrefVal == 0 {
		return 0
	}
	return float32(CalibrationUV) / 1e6 * (float32(c.VrefCal) / float32(c.VrefVal))
}

// CalUV converts a raw code to microvolts against the measured supply.
func (c Calibration) CalUV(raw uint16, res Resolution) uint32 {
	return RawToUV(raw, c.VddaUV(), res)
}

// RawToUV scales a raw code to microvolts for a known supply.
func RawToUV(raw uint16, vddaUV uint32, res Resolution) uint32 {
	uv := uint64(raw) * uint64(vddaUV) / uint64(res.MaxCount())
	if uv > 0xFFFFFFFF {
		return 0xFFFFFFFF
	}
	return uint32(uv)
}

// CalF32 converts a raw code to volts against the measured supply.
func (c Calibration) CalF32(raw uint16, res Resolution) float32 {
	return float32(raw) * c.VddaF32() / float32(res.MaxCount())
}

// Temperature is a handle on the internal temperature sensor. Converting
// its readings to degrees is left to the caller.
type Temperature struct {
	common  *Common
	channel uint8
	closed  bool
}

// EnableTemperature turns on the temperature sensor. TSVREFE gates both the
// sensor and the reference, so this shares the reference user count.
// Wait TemperatureStartTimeUS before the first read.
//
// On parts where the sensor shares channel 18 with VBAT, an enabled Vbat
// takes precedence and the sensor reads the battery voltage instead.
func (a *ADC) EnableTemperature() *Temperature {
	a.regs.Common.acquire(&a.regs.Common.vrefUsers, ADC_CCR_TSVREFE)
	return &Temperature{
		common:  a.regs.Common,
		channel: a.variant.TemperatureChannel,
	}
}

func (t *Temperature) Channel() uint8 { return t.channel }
func (t *Temperature) SetAsAnalog()   {}

// Close releases the sensor. Only the first call has an effect.
func (t *Temperature) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	t.common.release(&t.common.vrefUsers, ADC_CCR_TSVREFE)
	return nil
}

// Vbat is a handle on the battery voltage divider input.
type Vbat struct {
	common  *Common
	channel uint8
	closed  bool
}

// EnableVbat turns on the VBAT divider. The channel reads VBAT/2 on F40x
// and VBAT/4 on F42x and later.
func (a *ADC) EnableVbat() *Vbat {
	a.regs.Common.acquire(&a.regs.Common.vbatUsers, ADC_CCR_VBATE)
	return &Vbat{
		common:  a.regs.Common,
		channel: a.variant.VbatChannel,
	}
}

func (b *Vbat) Channel() uint8 { return b.channel }
func (b *Vbat) SetAsAnalog()   {}

// Close turns the divider off once every Vbat handle is closed.
func (b *Vbat) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.common.release(&b.common.vbatUsers, ADC_CCR_VBATE)
	return nil
}
