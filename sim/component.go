package sim

import "sync"

// A Named object can report its name.
type Named interface {
	Name() string
}

// A Component is an element that is being simulated. It is controlled by
// events and can send and receive messages through ports.
type Component interface {
	Named
	Handler
	Hookable
	PortOwner

	NotifyRecv(port Port)
	NotifyPortFree(port Port)
}

// ComponentBase provides the naming, locking, and port bookkeeping shared by
// all components.
type ComponentBase struct {
	HookableBase
	*PortOwnerBase
	sync.Mutex

	name string
}

// NewComponentBase creates a new ComponentBase.
func NewComponentBase(name string) *ComponentBase {
	NameMustBeValid(name)

	return &ComponentBase{
		name:          name,
		PortOwnerBase: NewPortOwnerBase(),
	}
}

// Name returns the name of the component.
func (c *ComponentBase) Name() string {
	return c.name
}
