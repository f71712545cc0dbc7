package core

import "testing"

func TestPrescalerFor(t *testing.T) {
	testCases := []struct {
		name  string
		busHz uint32
		maxHz uint32
		want  Prescaler
	}{
		{"30MHz", 30_000_000, 36_000_000, PrescalerDiv2},
		{"60MHz", 60_000_000, 36_000_000, PrescalerDiv2},
		{"72MHz boundary", 72_000_000, 36_000_000, PrescalerDiv2},
		{"84MHz", 84_000_000, 36_000_000, PrescalerDiv4},
		{"130MHz", 130_000_000, 36_000_000, PrescalerDiv4},
		{"200MHz", 200_000_000, 36_000_000, PrescalerDiv6},
		{"280MHz", 280_000_000, 36_000_000, PrescalerDiv8},
		{"F2 120MHz", 120_000_000, 30_000_000, PrescalerDiv4},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := PrescalerFor(tc.busHz, tc.maxHz)
			if got != tc.want {
				t.Errorf("Expected divisor %d, got %d", tc.want.Divisor(), got.Divisor())
			}
			if tc.busHz/got.Divisor() > tc.maxHz {
				t.Errorf("ADC clock %d exceeds max %d", tc.busHz/got.Divisor(), tc.maxHz)
			}
		})
	}
}

func TestPrescalerForTooFast(t *testing.T) {
	for _, busHz := range []uint32{290_000_000, 400_000_000} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("Expected panic for bus clock %d", busHz)
				}
			}()
			PrescalerFor(busHz, 36_000_000)
		}()
	}
}

func TestNewADCPowerUp(t *testing.T) {
	sim := newSimADC()
	adc := sim.open(84_000_000, VariantF40x)

	if !sim.periph.enabled || sim.periph.resets != 1 {
		t.Errorf("Expected peripheral enabled and reset once, got enabled=%v resets=%d", sim.periph.enabled, sim.periph.resets)
	}
	if got := sim.ccr.field(ADC_CCR_ADCPRE_Pos, 2); got != uint32(PrescalerDiv4) {
		t.Errorf("Expected ADCPRE %d, got %d", PrescalerDiv4, got)
	}
	if !adc.IsOn() {
		t.Error("Expected ADON set after power up")
	}
	if sim.delay.total != PowerUpTimeUS {
		t.Errorf("Expected %dus settle delay, got %d", PowerUpTimeUS, sim.delay.total)
	}
	if adc.Frequency() != 21_000_000 {
		t.Errorf("Expected 21MHz ADC clock, got %d", adc.Frequency())
	}
	if adc.DefaultSampleTime() != SampleTimeCycles3 {
		t.Errorf("Expected default sample time Cycles3, got %v", adc.DefaultSampleTime())
	}
}

func TestNewADCDefaultsVariant(t *testing.T) {
	sim := newSimADC()
	adc := NewADC(sim.regs, &sim.periph, ADCConfig{
		Clock: simClock(60_000_000),
		Delay: &sim.delay,
	})
	if adc.Variant() != VariantF40x {
		t.Errorf("Expected default variant %s, got %s", VariantF40x.Name, adc.Variant().Name)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	sim := newSimADC()
	adc := sim.open(84_000_000, nil)

	if err := adc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if adc.IsOn() {
		t.Error("Expected ADON clear after Close")
	}
	if sim.periph.enabled {
		t.Error("Expected peripheral clock disabled after Close")
	}

	sim.periph.enabled = true
	if err := adc.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if !sim.periph.enabled {
		t.Error("second Close touched the peripheral")
	}
}

func TestSetResolution(t *testing.T) {
	sim := newSimADC()
	adc := sim.open(84_000_000, nil)

	if adc.Resolution() != Resolution12Bit {
		t.Fatalf("Expected 12-bit after reset, got %v", adc.Resolution())
	}
	for _, res := range []Resolution{Resolution10Bit, Resolution8Bit, Resolution6Bit, Resolution12Bit} {
		if err := adc.SetResolution(res); err != nil {
			t.Fatalf("SetResolution(%v) failed: %v", res, err)
		}
		if adc.Resolution() != res {
			t.Errorf("Expected %v, got %v", res, adc.Resolution())
		}
		if !adc.IsOn() {
			t.Errorf("Expected ADON restored after SetResolution(%v)", res)
		}
	}
}

func TestResolutionTable(t *testing.T) {
	testCases := []struct {
		res    Resolution
		bits   uint8
		clocks uint32
		max    uint32
	}{
		{Resolution12Bit, 12, 12, 4095},
		{Resolution10Bit, 10, 11, 1023},
		{Resolution8Bit, 8, 9, 255},
		{Resolution6Bit, 6, 7, 63},
	}
	for _, tc := range testCases {
		t.Run(tc.res.String(), func(t *testing.T) {
			if tc.res.Bits() != tc.bits || tc.res.Clocks() != tc.clocks || tc.res.MaxCount() != tc.max {
				t.Errorf("Got bits=%d clocks=%d max=%d", tc.res.Bits(), tc.res.Clocks(), tc.res.MaxCount())
			}
			got, ok := ResolutionFromBits(tc.bits)
			if !ok || got != tc.res {
				t.Errorf("ResolutionFromBits(%d) = %v, %v", tc.bits, got, ok)
			}
		})
	}
	if _, ok := ResolutionFromBits(16); ok {
		t.Error("Expected 16 bits to be rejected")
	}
}

func TestLookupVariant(t *testing.T) {
	v, ok := LookupVariant("stm32f42x")
	if !ok || v.TemperatureChannel != 18 {
		t.Errorf("Expected F42x with temperature channel 18, got %+v", v)
	}
	v, ok = LookupVariant("stm32f2")
	if !ok || v.MaxFrequency != 30_000_000 || v.TemperatureChannel != 16 {
		t.Errorf("Unexpected F2 variant %+v", v)
	}
	if _, ok := LookupVariant("stm32h7"); ok {
		t.Error("Expected unknown variant to be rejected")
	}
}
