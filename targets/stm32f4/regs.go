//go:build stm32f4

package main

import (
	"machine"
	"runtime/volatile"
	"time"
	"unsafe"

	"stm32adc/core"
)

// STM32F4 memory map (RM0090 section 2.3)
const (
	adc1Base      = 0x40012000
	adcCommonBase = 0x40012300
	rccBase       = 0x40023800

	adcSR    = 0x00
	adcCR1   = 0x04
	adcCR2   = 0x08
	adcSMPR1 = 0x0C
	adcSMPR2 = 0x10
	adcSQR1  = 0x2C
	adcSQR2  = 0x30
	adcSQR3  = 0x34
	adcDR    = 0x4C
	adcCCR   = 0x04 // from adcCommonBase

	rccAHB1ENR  = rccBase + 0x30
	rccAPB2RSTR = rccBase + 0x24
	rccAPB2ENR  = rccBase + 0x44

	rccAHB1ENR_DMA2EN  = 1 << 22
	rccAPB2ENR_ADC1EN  = 1 << 8
	rccAPB2RSTR_ADCRST = 1 << 8
)

func reg32(addr uintptr) *volatile.Register32 {
	return (*volatile.Register32)(unsafe.Pointer(addr))
}

var (
	apb2ENR  = reg32(rccAPB2ENR)
	apb2RSTR = reg32(rccAPB2RSTR)
	ahb1ENR  = reg32(rccAHB1ENR)

	adcCommon = core.NewCommon(reg32(adcCommonBase + adcCCR))
)

// adcRegisters maps the register block of the ADC at base.
func adcRegisters(base uintptr) *core.ADCRegisters {
	return &core.ADCRegisters{
		SR:     reg32(base + adcSR),
		CR1:    reg32(base + adcCR1),
		CR2:    reg32(base + adcCR2),
		SMPR1:  reg32(base + adcSMPR1),
		SMPR2:  reg32(base + adcSMPR2),
		SQR1:   reg32(base + adcSQR1),
		SQR2:   reg32(base + adcSQR2),
		SQR3:   reg32(base + adcSQR3),
		DR:     reg32(base + adcDR),
		DRAddr: base + adcDR,
		Common: adcCommon,
	}
}

// adc1Peripheral gates ADC1 on APB2. The reset line is shared by every ADC.
type adc1Peripheral struct{}

func (adc1Peripheral) EnableAndReset() {
	apb2ENR.SetBits(rccAPB2ENR_ADC1EN)
	_ = apb2ENR.Get() // read back so the clock is running before the reset
	apb2RSTR.SetBits(rccAPB2RSTR_ADCRST)
	apb2RSTR.ClearBits(rccAPB2RSTR_ADCRST)
}

func (adc1Peripheral) Disable() {
	apb2ENR.ClearBits(rccAPB2ENR_ADC1EN)
}

// pclk2 reports APB2, which TinyGo runs at half the core clock.
type pclk2 struct{}

func (pclk2) BusFrequency() uint32 {
	return machine.CPUFrequency() / 2
}

type sleepDelay struct{}

func (sleepDelay) DelayUS(us uint32) {
	time.Sleep(time.Duration(us) * time.Microsecond)
}
