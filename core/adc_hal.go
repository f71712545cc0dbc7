package core

// Register is a single 32-bit memory-mapped register.
// The method set matches TinyGo's runtime/volatile.Register32, so targets
// pass real hardware registers straight through.
type Register interface {
	Get() uint32
	Set(value uint32)
	SetBits(value uint32)
	ClearBits(value uint32)
	HasBits(value uint32) bool
	ReplaceBits(value uint32, mask uint32, pos uint8)
}

// ADCRegisters is the register block of one ADC instance plus the
// common control register shared by all instances on the chip.
type ADCRegisters struct {
	SR    Register
	CR1   Register
	CR2   Register
	SMPR1 Register
	SMPR2 Register
	SQR1  Register
	SQR2  Register
	SQR3  Register
	DR    Register

	// DRAddr is the bus address of DR, used as the DMA source.
	DRAddr uintptr

	// Common is shared between every ADC bound to the same CCR.
	Common *Common
}

// Common holds the shared ADC common register and the reference-enable
// counter of every handle created on it.
type Common struct {
	CCR Register

	vrefUsers uint32
	vbatUsers uint32
}

// NewCommon wraps the common control register.
func NewCommon(ccr Register) *Common {
	return &Common{CCR: ccr}
}

// Peripheral controls the bus clock gate of one ADC instance.
type Peripheral interface {
	// EnableAndReset turns the peripheral clock on and pulses its reset line.
	EnableAndReset()

	// Disable gates the peripheral clock.
	Disable()
}

// Clock reports the frequency of the bus the ADC hangs off (PCLK2).
type Clock interface {
	BusFrequency() uint32
}

// Delayer blocks for a number of microseconds.
type Delayer interface {
	DelayUS(us uint32)
}

// AnalogPin is an ADC input: a GPIO routed to a channel or an internal source.
type AnalogPin interface {
	// Channel returns the ADC channel id (0-18).
	Channel() uint8

	// SetAsAnalog puts the backing pin in analog mode.
	// Internal channels implement this as a no-op.
	SetAsAnalog()
}

// Burst is the DMA burst size.
type Burst uint8

const (
	BurstSingle Burst = iota
	BurstIncr4
	BurstIncr8
	BurstIncr16
)

// FlowControl selects which side ends a DMA transfer.
type FlowControl uint8

const (
	FlowControlDMA FlowControl = iota
	FlowControlPeripheral
)

// TransferOptions configures a peripheral-to-memory DMA transfer.
type TransferOptions struct {
	PeripheralBurst     Burst
	MemoryBurst         Burst
	FlowControl         FlowControl
	Circular            bool
	HalfTransferIRQ     bool
	CompleteTransferIRQ bool

	// DoubleBuffer alternates between both banks, switching on every
	// completed transfer.
	DoubleBuffer bool
}

// DMAChannel is a DMA stream able to serve the ADC request line.
type DMAChannel interface {
	// Request returns the request line (channel selection) for the ADC.
	Request() uint8

	// ReadRaw starts a transfer of 16-bit words from src into the banks.
	// onComplete is called from interrupt context with the index of the
	// bank that was just filled.
	ReadRaw(request uint8, src uintptr, banks [2][]uint16, opts TransferOptions, onComplete func(bank int)) DMATransfer
}

// DMATransfer is a running DMA transfer.
type DMATransfer interface {
	IsRunning() bool
	RequestRestart()
	RequestStop()
}
