package sim

import (
	"fmt"
	"os"
	"sort"
)

// A PortOwner is an element that communicates with others through ports.
type PortOwner interface {
	AddPort(name string, port Port)
	GetPortByName(name string) Port
	Ports() []Port
}

// PortOwnerBase implements PortOwner with a name-keyed port table.
type PortOwnerBase struct {
	ports map[string]Port
}

// NewPortOwnerBase creates an empty PortOwnerBase.
func NewPortOwnerBase() *PortOwnerBase {
	return &PortOwnerBase{
		ports: make(map[string]Port),
	}
}

// AddPort registers a port under the given local name. Names must be unique
// within the owner.
func (po *PortOwnerBase) AddPort(name string, port Port) {
	if _, taken := po.ports[name]; taken {
		panic(fmt.Sprintf("port %s already registered", name))
	}

	po.ports[name] = port
}

// GetPortByName returns the port registered under the given name. It panics
// when no such port exists, after listing the known names on stderr.
func (po PortOwnerBase) GetPortByName(name string) Port {
	port, found := po.ports[name]
	if !found {
		po.reportUnknownPort(name)
	}

	return port
}

func (po PortOwnerBase) reportUnknownPort(name string) {
	fmt.Fprintf(os.Stderr, "Port %s is not available.\n", name)
	fmt.Fprintln(os.Stderr, "Available ports include:")
	for _, n := range po.portNames() {
		fmt.Fprintf(os.Stderr, "\t%s\n", n)
	}

	panic("port not found")
}

// Ports returns all the ports of the owner, sorted by local name so that the
// order is stable across runs.
func (po PortOwnerBase) Ports() []Port {
	list := make([]Port, 0, len(po.ports))
	for _, n := range po.portNames() {
		list = append(list, po.ports[n])
	}

	return list
}

func (po PortOwnerBase) portNames() []string {
	names := make([]string, 0, len(po.ports))
	for n := range po.ports {
		names = append(names, n)
	}
	sort.Strings(names)

	return names
}
