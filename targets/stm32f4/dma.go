//go:build stm32f4

package main

import (
	"device/stm32"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"

	"stm32adc/core"
)

const (
	dma2Base = 0x40026400

	dmaLISR  = 0x00
	dmaLIFCR = 0x08

	// Stream x registers start at 0x10 + 0x18*x
	dmaStreamBase   = 0x10
	dmaStreamStride = 0x18
	dmaSxCR         = 0x00
	dmaSxNDTR       = 0x04
	dmaSxPAR        = 0x08
	dmaSxM0AR       = 0x0C
	dmaSxM1AR       = 0x10
	dmaSxFCR        = 0x14

	// SxCR
	dmaCR_EN         = 1 << 0
	dmaCR_TEIE       = 1 << 2
	dmaCR_HTIE       = 1 << 3
	dmaCR_TCIE       = 1 << 4
	dmaCR_PFCTRL     = 1 << 5
	dmaCR_CIRC       = 1 << 8
	dmaCR_MINC       = 1 << 10
	dmaCR_PSIZE_16   = 1 << 11
	dmaCR_MSIZE_16   = 1 << 13
	dmaCR_PL_High    = 2 << 16
	dmaCR_DBM        = 1 << 18
	dmaCR_CT         = 1 << 19
	dmaCR_PBURST_Pos = 21
	dmaCR_MBURST_Pos = 23
	dmaCR_CHSEL_Pos  = 25

	// LISR/LIFCR flags of stream 0
	dmaFEIF0  = 1 << 0
	dmaDMEIF0 = 1 << 2
	dmaTEIF0  = 1 << 3
	dmaHTIF0  = 1 << 4
	dmaTCIF0  = 1 << 5
	dmaAll0   = dmaFEIF0 | dmaDMEIF0 | dmaTEIF0 | dmaHTIF0 | dmaTCIF0

	// ADC1 is wired to DMA2 stream 0, channel 0.
	adc1DMAChannel = 0
)

// dmaStream0 is DMA2 stream 0. Only stream 0 is used, so the flag layout of
// LISR is fixed.
type dmaStream0 struct {
	isr  *volatile.Register32
	ifcr *volatile.Register32
	cr   *volatile.Register32
	ndtr *volatile.Register32
	par  *volatile.Register32
	m0ar *volatile.Register32
	m1ar *volatile.Register32
	fcr  *volatile.Register32

	intr       interrupt.Interrupt
	bankLen    uint32
	onComplete func(bank int)
	errors     uint32
}

var dma2Stream0 = newDMAStream0()

func newDMAStream0() *dmaStream0 {
	s := uintptr(dma2Base + dmaStreamBase)
	return &dmaStream0{
		isr:  reg32(dma2Base + dmaLISR),
		ifcr: reg32(dma2Base + dmaLIFCR),
		cr:   reg32(s + dmaSxCR),
		ndtr: reg32(s + dmaSxNDTR),
		par:  reg32(s + dmaSxPAR),
		m0ar: reg32(s + dmaSxM0AR),
		m1ar: reg32(s + dmaSxM1AR),
		fcr:  reg32(s + dmaSxFCR),
	}
}

// initDMA2 clocks DMA2 and hooks the stream 0 interrupt.
func initDMA2() {
	ahb1ENR.SetBits(rccAHB1ENR_DMA2EN)
	_ = ahb1ENR.Get()
	dma2Stream0.intr = interrupt.New(stm32.IRQ_DMA2_Stream0, func(interrupt.Interrupt) {
		dma2Stream0.handleInterrupt()
	})
	dma2Stream0.intr.SetPriority(0xC0)
}

func (d *dmaStream0) Request() uint8 {
	return adc1DMAChannel
}

func (d *dmaStream0) ReadRaw(request uint8, src uintptr, banks [2][]uint16, opts core.TransferOptions, onComplete func(bank int)) core.DMATransfer {
	d.disable()
	d.ifcr.Set(dmaAll0)

	d.par.Set(uint32(src))
	d.m0ar.Set(uint32(uintptr(unsafe.Pointer(&banks[0][0]))))
	d.m1ar.Set(uint32(uintptr(unsafe.Pointer(&banks[1][0]))))
	d.bankLen = uint32(len(banks[0]))
	d.ndtr.Set(d.bankLen)
	d.fcr.Set(0) // direct mode

	cr := uint32(request)<<dmaCR_CHSEL_Pos |
		uint32(opts.PeripheralBurst)<<dmaCR_PBURST_Pos |
		uint32(opts.MemoryBurst)<<dmaCR_MBURST_Pos |
		dmaCR_PSIZE_16 | dmaCR_MSIZE_16 | dmaCR_MINC | dmaCR_PL_High | dmaCR_TEIE
	if opts.FlowControl == core.FlowControlPeripheral {
		cr |= dmaCR_PFCTRL
	}
	if opts.Circular {
		cr |= dmaCR_CIRC
	}
	if opts.DoubleBuffer {
		cr |= dmaCR_DBM
	}
	if opts.HalfTransferIRQ {
		cr |= dmaCR_HTIE
	}
	if opts.CompleteTransferIRQ {
		cr |= dmaCR_TCIE
	}
	d.cr.Set(cr)

	d.onComplete = onComplete
	d.intr.Enable()
	d.cr.SetBits(dmaCR_EN)
	return d
}

func (d *dmaStream0) handleInterrupt() {
	flags := d.isr.Get() & dmaAll0
	d.ifcr.Set(flags)

	if flags&dmaTEIF0 != 0 {
		// hardware cleared EN; Snapshot notices and restarts
		d.errors++
		core.RecordEvent(core.EvtDMAError, 0, d.errors, flags)
	}
	if flags&dmaTCIF0 != 0 && d.onComplete != nil {
		// CT already points at the bank DMA moved on to
		bank := 0
		if !d.cr.HasBits(dmaCR_CT) {
			bank = 1
		}
		d.onComplete(bank)
	}
}

func (d *dmaStream0) disable() {
	d.cr.ClearBits(dmaCR_EN)
	for d.cr.HasBits(dmaCR_EN) {
	}
}

func (d *dmaStream0) IsRunning() bool {
	return d.cr.HasBits(dmaCR_EN)
}

func (d *dmaStream0) RequestRestart() {
	d.disable()
	d.ifcr.Set(dmaAll0)
	d.ndtr.Set(d.bankLen)
	d.cr.SetBits(dmaCR_EN)
}

func (d *dmaStream0) RequestStop() {
	d.cr.ClearBits(dmaCR_EN)
	d.intr.Disable()
	d.ifcr.Set(dmaAll0)
}
