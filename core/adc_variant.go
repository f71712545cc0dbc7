package core

// Variant describes the chip family differences the ADC driver cares about.
// One is picked when the ADC is created; the driver never branches on the
// family anywhere else.
type Variant struct {
	Name string

	// MaxFrequency is the highest ADC clock the datasheet allows (Hz).
	MaxFrequency uint32

	// TemperatureChannel is the channel the internal sensor is wired to.
	TemperatureChannel uint8

	// VrefChannel and VbatChannel are the other internal inputs.
	VrefChannel uint8
	VbatChannel uint8

	// VrefCalibrated is the code VREFINT reads when VDDA is exactly 3.000 V.
	VrefCalibrated uint16
}

var (
	// VariantF2 covers STM32F2xx (30 MHz max with VDDA 2.4-3.6 V).
	VariantF2 = &Variant{
		Name:               "stm32f2",
		MaxFrequency:       30_000_000,
		TemperatureChannel: 16,
		VrefChannel:        17,
		VbatChannel:        18,
		VrefCalibrated:     4095,
	}

	// VariantF40x covers STM32F40x and STM32F41x.
	VariantF40x = &Variant{
		Name:               "stm32f40x",
		MaxFrequency:       36_000_000,
		TemperatureChannel: 16,
		VrefChannel:        17,
		VbatChannel:        18,
		VrefCalibrated:     4095,
	}

	// VariantF42x covers STM32F42x/F43x and later F4 parts, where the
	// temperature sensor shares channel 18 with VBAT.
	VariantF42x = &Variant{
		Name:               "stm32f42x",
		MaxFrequency:       36_000_000,
		TemperatureChannel: 18,
		VrefChannel:        17,
		VbatChannel:        18,
		VrefCalibrated:     4095,
	}

	// VariantF7 covers STM32F7xx.
	VariantF7 = &Variant{
		Name:               "stm32f7",
		MaxFrequency:       36_000_000,
		TemperatureChannel: 18,
		VrefChannel:        17,
		VbatChannel:        18,
		VrefCalibrated:     4095,
	}
)

// Variants lists every known variant, keyed by name.
var Variants = map[string]*Variant{
	VariantF2.Name:   VariantF2,
	VariantF40x.Name: VariantF40x,
	VariantF42x.Name: VariantF42x,
	VariantF7.Name:   VariantF7,
}

// LookupVariant finds a variant by name.
func LookupVariant(name string) (*Variant, bool) {
	v, ok := Variants[name]
	return v, ok
}
