package config

import "sync/atomic"

// Runtime holds the settings that may change while the process runs.
// It is shared process-wide and safe for concurrent use.
type Runtime struct {
	displayOrderAlerts atomic.Bool
}

// NewRuntime seeds the runtime settings from the loaded configuration
func NewRuntime(cfg TradeConfig) *Runtime {
	r := &Runtime{}
	r.displayOrderAlerts.Store(cfg.DisplayOrderAlerts)
	return r
}

// DisplayOrderAlerts reports whether closed-order alerts should be shown
func (r *Runtime) DisplayOrderAlerts() bool {
	return r.displayOrderAlerts.Load()
}

// SetDisplayOrderAlerts updates the flag and returns the previous value
func (r *Runtime) SetDisplayOrderAlerts(enabled bool) bool {
	return r.displayOrderAlerts.Swap(enabled)
}
