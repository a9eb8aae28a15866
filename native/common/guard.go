package common

import "errors"

// ErrModulePaused is returned by every state-changing operation of a module
// the host has halted.
var ErrModulePaused = errors.New("module paused")

// PauseView reports whether a module is halted. Engines consult it without
// knowing how the host stores the flag; config.Pauses is the usual backing.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects an operation when its module is paused. Hosts that never
// pause anything wire a nil view and every module runs.
func Guard(view PauseView, module string) error {
	if view == nil || module == "" {
		return nil
	}
	if view.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
