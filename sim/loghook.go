package sim

import (
	"log"
)

// A LogHook is a hook that writes what happens in the simulation to a log.
type LogHook interface {
	Hook
}

// LogHookBase provides the logger shared by all the LogHooks.
type LogHookBase struct {
	*log.Logger
}
