package core

import "tinygo.org/x/drivers"

// SupplySensor measures VDDA through the internal reference, exposing it
// through the tinygo.org/x/drivers sensor interface.
type SupplySensor struct {
	adc *ADC
	cal Calibration
}

var _ drivers.Sensor = (*SupplySensor)(nil)

// NewSupplySensor returns a sensor bound to adc. The reference is only
// enabled for the duration of each Update.
func NewSupplySensor(adc *ADC) *SupplySensor {
	return &SupplySensor{adc: adc}
}

// Update refreshes the supply reading when which includes drivers.Voltage.
// Other measurements are ignored.
func (s *SupplySensor) Update(which drivers.Measurement) error {
	if which&drivers.Voltage == 0 {
		return nil
	}
	return s.adc.WithVref(func(v *Vref) error {
		cal, err := v.Calibrate(s.adc)
		if err != nil {
			return err
		}
		s.cal = cal
		return nil
	})
}

// Voltage returns the last measured VDDA in microvolts.
func (s *SupplySensor) Voltage() int32 {
	return int32(s.cal.VddaUV())
}

// Calibration returns the reading behind the last update.
func (s *SupplySensor) Calibration() Calibration {
	return s.cal
}
