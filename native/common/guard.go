// Package common holds the transaction-surface pause guard shared by the
// ledger's engine frontends.
package common

import (
	"errors"
	"fmt"
)

// ErrModulePaused marks operations rejected while a module's transaction
// surface is halted by governance.
var ErrModulePaused = errors.New("module transactions paused")

// PauseView reports the governance pause state by module name.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects a mutating call when the named module is halted. It sits in
// front of every engine entry point on the node surface; reads bypass it.
func Guard(view PauseView, module string) error {
	if view == nil || module == "" {
		return nil
	}
	if view.IsPaused(module) {
		return fmt.Errorf("%s: %w", module, ErrModulePaused)
	}
	return nil
}
