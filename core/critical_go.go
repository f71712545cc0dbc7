//go:build !tinygo

package core

import "sync"

type criticalState struct{}

// Host builds have no interrupt controller; a mutex gives tests the same
// exclusion. Sections must not nest.
var criticalMu sync.Mutex

func enterCritical() criticalState {
	criticalMu.Lock()
	return criticalState{}
}

func exitCritical(criticalState) {
	criticalMu.Unlock()
}
