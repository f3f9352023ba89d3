package simulation

import (
	"github.com/rs/xid"

	"github.com/chat2snack/snacksim/datarecording"
	"github.com/chat2snack/snacksim/monitoring"
	"github.com/chat2snack/snacksim/sim"
	"github.com/chat2snack/snacksim/tracing"
)

// Builder can be used to build a simulation.
type Builder struct {
	monitorOn      bool
	monitorPort    int
	openBrowser    bool
	outputFileName string
}

// MakeBuilder creates a new builder with the default configuration.
func MakeBuilder() Builder {
	return Builder{
		monitorOn: true,
	}
}

// WithoutMonitoring sets the simulation to not start a monitoring server.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithBrowserOpen lets the monitor open the dashboard in the default browser
// when the server starts.
func (b Builder) WithBrowserOpen() Builder {
	b.openBrowser = true
	return b
}

// WithOutputFileName sets the custom output file name for the data recorder,
// without the extension.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

func (b Builder) parametersMustBeValid() {
	switch {
	case !b.monitorOn && b.monitorPort != 0:
		panic("monitor port cannot be set when monitoring is disabled")
	case !b.monitorOn && b.openBrowser:
		panic("browser cannot be opened when monitoring is disabled")
	}
}

// Build builds the simulation.
func (b Builder) Build() *Simulation {
	b.parametersMustBeValid()

	s := &Simulation{
		id:         xid.New().String(),
		compByName: make(map[string]sim.Component),
		portByName: make(map[string]sim.Port),
	}

	s.engine = sim.NewSerialEngine()
	s.dataRecorder = datarecording.New(b.outputPath(s.id))
	s.visTracer = tracing.NewDBTracer(
		s.engine,
		tracing.NewDataRecorderBackend(s.dataRecorder),
	)

	if b.monitorOn {
		s.monitor = b.newMonitor(s.engine)
	}

	return s
}

// outputPath returns the base name of the result database.
func (b Builder) outputPath(id string) string {
	if b.outputFileName != "" {
		return b.outputFileName
	}

	return "snacksim_" + id
}

func (b Builder) newMonitor(engine sim.Engine) *monitoring.Monitor {
	m := monitoring.NewMonitor()

	if b.monitorPort > 0 {
		m.WithPortNumber(b.monitorPort)
	}

	if b.openBrowser {
		m.WithBrowserOpen()
	}

	m.RegisterEngine(engine)
	m.StartServer()

	return m
}
