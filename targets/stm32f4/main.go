//go:build stm32f4

package main

import (
	"machine"
	"time"

	"tinygo.org/x/drivers"

	"stm32adc/core"
	"stm32adc/protocol"
)

const (
	telemetryBaud = 115200
	framePeriod   = 100 * time.Millisecond

	// minimum conversion time per channel
	sampleUS = 10

	// frames between supply calibrations
	calibrateEvery = 50

	scansPerBank = 4
	bankSamples  = scansPerBank * len(scanChannelsInit)
)

// Same scan as the host's default profile. PA2/PA3 carry the UART.
var scanChannelsInit = [...]uint8{0, 1, 8, 9}

var (
	uart *machine.UART

	sampleBuf [2 * bankSamples]uint16
	frameBuf  [bankSamples]uint16

	framesSent   uint32
	framesFailed uint32
)

func main() {
	uart = machine.DefaultUART
	uart.Configure(machine.UARTConfig{BaudRate: telemetryBaud})

	initDMA2()

	adc := core.NewADC(adcRegisters(adc1Base), adc1Peripheral{}, core.ADCConfig{
		Variant: core.VariantF40x,
		Clock:   pclk2{},
		Delay:   sleepDelay{},
	})
	if err := configureScan(adc); err != nil {
		halt(err)
	}

	supply := core.NewSupplySensor(adc)
	out := protocol.NewWriterOutput(uart)
	enc := protocol.NewEncoder(out)

	// lets the host synchronize on the first block
	uart.WriteByte(protocol.MessageValueSync)

	for {
		sampler, err := calibrateAndStart(adc, supply)
		if err != nil {
			halt(err)
		}

		for i := 0; i < calibrateEvery; i++ {
			time.Sleep(framePeriod)

			gen, err := sampler.Snapshot(frameBuf[:])
			if err == core.ErrNoSample || err == core.ErrTornSnapshot {
				framesFailed++
				continue
			} else if err != nil {
				halt(err)
			}

			err = enc.Encode(&protocol.SampleFrame{
				Generation:     gen,
				VddaUV:         uint32(supply.Voltage()),
				ResolutionBits: adc.Resolution().Bits(),
				Samples:        frameBuf[:],
			})
			if err != nil || out.Err() != nil {
				framesFailed++
				continue
			}
			framesSent++
		}

		if err := sampler.Stop(); err != nil {
			halt(err)
		}
	}
}

// configureScan programs resolution, sample times and the scan sequence.
func configureScan(adc *core.ADC) error {
	if err := adc.SetResolution(core.Resolution12Bit); err != nil {
		return err
	}
	st := adc.SampleTimeForUS(sampleUS)
	adc.SetDefaultSampleTime(st)
	for i, ch := range scanChannelsInit {
		pin, ok := pinForChannel(ch)
		if !ok {
			return core.Error("no pin for channel")
		}
		if err := adc.SetSampleSequence(core.Sequence(i+1), pin, st); err != nil {
			return err
		}
	}
	return nil
}

// calibrateAndStart measures VDDA with the ADC idle, then restores the scan
// sequence the reference conversion replaced and starts sampling.
func calibrateAndStart(adc *core.ADC, supply *core.SupplySensor) (*core.Sampler, error) {
	if err := supply.Update(drivers.Voltage); err != nil {
		return nil, err
	}
	if err := adc.SetChannelSampleSequence(scanChannelsInit[:]); err != nil {
		return nil, err
	}
	return adc.StartReadContinuous(dma2Stream0, sampleBuf[:])
}

// halt dumps the event ring after a sync byte, so the host resyncs past it,
// and blinks the LED forever.
func halt(err error) {
	core.SetDebugWriter(func(s string) {
		uart.Write([]byte(s))
		uart.Write([]byte("\r\n"))
	})
	core.SetDebugEnabled(true)
	uart.WriteByte(protocol.MessageValueSync)
	core.DebugPrintln("[ADC] halted: " + err.Error())
	core.DumpEventRing()
	uart.WriteByte(protocol.MessageValueSync)

	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for {
		led.High()
		time.Sleep(150 * time.Millisecond)
		led.Low()
		time.Sleep(850 * time.Millisecond)
	}
}
