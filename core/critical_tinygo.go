//go:build tinygo

package core

import "runtime/interrupt"

type criticalState = interrupt.State

// enterCritical masks interrupts so DMA and ADC handlers never observe a
// half-updated reference count or event slot.
func enterCritical() criticalState {
	return interrupt.Disable()
}

func exitCritical(s criticalState) {
	interrupt.Restore(s)
}
