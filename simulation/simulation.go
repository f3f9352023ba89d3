// Package simulation bundles the services that together define a simulation
// run: the event engine, the data recorder, the optional monitoring server,
// the visualization tracer, and a registry of all the components and ports.
package simulation

import (
	"github.com/chat2snack/snacksim/datarecording"
	"github.com/chat2snack/snacksim/monitoring"
	"github.com/chat2snack/snacksim/sim"
	"github.com/chat2snack/snacksim/tracing"
)

// A Simulation provides the services required to define a simulation.
type Simulation struct {
	id string

	engine       sim.Engine
	dataRecorder datarecording.DataRecorder
	monitor      *monitoring.Monitor
	visTracer    *tracing.DBTracer

	compByName map[string]sim.Component
	compOrder  []sim.Component
	portByName map[string]sim.Port
}

// ID returns the unique ID of the simulation run.
func (s *Simulation) ID() string {
	return s.id
}

// GetEngine returns the engine used in the simulation.
func (s *Simulation) GetEngine() sim.Engine {
	return s.engine
}

// GetDataRecorder returns the data recorder used in the simulation.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetMonitor returns the monitor used in the simulation. It is nil when the
// simulation is built without monitoring.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// GetVisTracer returns the tracer that records tasks into the simulation
// database.
func (s *Simulation) GetVisTracer() *tracing.DBTracer {
	return s.visTracer
}

// RegisterComponent registers a component and all its ports with the
// simulation. Component and port names must be unique across the run.
func (s *Simulation) RegisterComponent(c sim.Component) {
	name := c.Name()
	if _, taken := s.compByName[name]; taken {
		panic("component " + name + " already registered")
	}

	s.compByName[name] = c
	s.compOrder = append(s.compOrder, c)

	for _, p := range c.Ports() {
		s.registerPort(p)
	}
}

func (s *Simulation) registerPort(p sim.Port) {
	name := p.Name()
	if _, taken := s.portByName[name]; taken {
		panic("port " + name + " already registered")
	}

	s.portByName[name] = p
}

// Components returns all the registered components, in registration order.
func (s *Simulation) Components() []sim.Component {
	return s.compOrder
}

// GetComponentByName returns the component with the given name.
func (s *Simulation) GetComponentByName(name string) sim.Component {
	return s.compByName[name]
}

// GetPortByName returns the port with the given name.
func (s *Simulation) GetPortByName(name string) sim.Port {
	return s.portByName[name]
}

// Terminate terminates the simulation.
func (s *Simulation) Terminate() {
	s.dataRecorder.Close()
}
