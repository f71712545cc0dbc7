//go:build stm32f4

package main

import "machine"

// analogPin is a GPIO routed to an ADC1 input.
type analogPin struct {
	pin     machine.Pin
	channel uint8
}

func (p analogPin) Channel() uint8 {
	return p.channel
}

func (p analogPin) SetAsAnalog() {
	p.pin.Configure(machine.PinConfig{Mode: machine.PinInputAnalog})
}

// ADC123_INx pin assignment (STM32F40x datasheet table 7)
var analogPins = [...]analogPin{
	{machine.PA0, 0},
	{machine.PA1, 1},
	{machine.PA2, 2},
	{machine.PA3, 3},
	{machine.PA4, 4},
	{machine.PA5, 5},
	{machine.PA6, 6},
	{machine.PA7, 7},
	{machine.PB0, 8},
	{machine.PB1, 9},
	{machine.PC0, 10},
	{machine.PC1, 11},
	{machine.PC2, 12},
	{machine.PC3, 13},
	{machine.PC4, 14},
	{machine.PC5, 15},
}

// pinForChannel returns the GPIO input for an external channel.
func pinForChannel(ch uint8) (analogPin, bool) {
	if int(ch) >= len(analogPins) {
		return analogPin{}, false
	}
	return analogPins[ch], true
}
