package sim

import "log"

// A LogHook is a hook that records simulation activity to a logger.
type LogHook interface {
	Hook
}

// LogHookBase carries the logger shared by all LogHooks.
type LogHookBase struct {
	*log.Logger
}
