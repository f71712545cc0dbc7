package core

// SampleTime is the number of ADC clock cycles spent charging the sample
// capacitor. The values are the SMPx field encodings.
type SampleTime uint8

const (
	SampleTimeCycles3 SampleTime = iota
	SampleTimeCycles15
	SampleTimeCycles28
	SampleTimeCycles56
	SampleTimeCycles84
	SampleTimeCycles112
	SampleTimeCycles144
	SampleTimeCycles480
)

var sampleTimeClocks = [...]uint32{3, 15, 28, 56, 84, 112, 144, 480}

// Clocks returns the sample phase length in ADC clock cycles.
func (s SampleTime) Clocks() uint32 {
	if int(s) >= len(sampleTimeClocks) {
		panic("invalid sample time")
	}
	return sampleTimeClocks[s]
}

func (s SampleTime) String() string {
	if int(s) >= len(sampleTimeClocks) {
		return "Cycles?"
	}
	return "Cycles" + utoa(sampleTimeClocks[s])
}

// Resolution is the conversion bit depth. Values are the CR1.RES encodings.
type Resolution uint8

const (
	Resolution12Bit Resolution = iota
	Resolution10Bit
	Resolution8Bit
	Resolution6Bit
)

var resolutionInfo = [...]struct {
	bits   uint8
	clocks uint32
}{
	Resolution12Bit: {12, 12},
	Resolution10Bit: {10, 11},
	Resolution8Bit:  {8, 9},
	Resolution6Bit:  {6, 7},
}

// Bits returns the bit depth.
func (r Resolution) Bits() uint8 {
	return resolutionInfo[r&0x3].bits
}

// Clocks returns the conversion overhead in ADC clock cycles.
func (r Resolution) Clocks() uint32 {
	return resolutionInfo[r&0x3].clocks
}

// MaxCount returns the largest code the resolution produces.
func (r Resolution) MaxCount() uint32 {
	return 1<<r.Bits() - 1
}

func (r Resolution) String() string {
	return itoa(int(r.Bits())) + "bit"
}

// ResolutionFromBits maps 6/8/10/12 to a Resolution.
func ResolutionFromBits(bits uint8) (Resolution, bool) {
	for r, info := range resolutionInfo {
		if info.bits == bits {
			return Resolution(r), true
		}
	}
	return 0, false
}

// SampleTimeForUS returns the shortest sample time that keeps a full
// conversion at least us microseconds long at the given ADC clock.
// Falls back to the longest sample time when none is long enough.
func SampleTimeForUS(res Resolution, adcHz uint32, us uint32) SampleTime {
	clks := uint64(us) * uint64(adcHz) / 1_000_000
	over := uint64(res.Clocks())
	if clks > over {
		clks -= over
	} else {
		clks = 0
	}
	for st, c := range sampleTimeClocks {
		if uint64(c) >= clks {
			return SampleTime(st)
		}
	}
	return SampleTimeCycles480
}

// USForConfig returns the conversion time in microseconds, rounded up.
func USForConfig(res Resolution, st SampleTime, adcHz uint32) uint32 {
	clks := uint64(res.Clocks() + st.Clocks())
	return uint32(divCeil(clks*1_000_000, uint64(adcHz)))
}

// NSForConfig returns the conversion time in nanoseconds, rounded up.
func NSForConfig(res Resolution, st SampleTime, adcHz uint32) uint64 {
	clks := uint64(res.Clocks() + st.Clocks())
	return divCeil(clks*1_000_000_000, uint64(adcHz))
}

func divCeil(n, d uint64) uint64 {
	return (n + d - 1) / d
}

// SampleTimeForUS picks a sample time for this ADC's clock and resolution.
func (a *ADC) SampleTimeForUS(us uint32) SampleTime {
	return SampleTimeForUS(a.Resolution(), a.Frequency(), us)
}

// USForConfig converts a configuration to microseconds at this ADC's clock.
func (a *ADC) USForConfig(res Resolution, st SampleTime) uint32 {
	return USForConfig(res, st, a.Frequency())
}

// NSForConfig converts a configuration to nanoseconds at this ADC's clock.
func (a *ADC) NSForConfig(res Resolution, st SampleTime) uint64 {
	return NSForConfig(res, st, a.Frequency())
}
