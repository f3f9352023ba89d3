// Package analysis reports performance metrics of a running board model. It
// records the message traffic through ports, the levels of port buffers, and
// the duty cycles of board wires into CSV or SQLite files.
package analysis

import (
	"encoding/json"
	"reflect"
	"sort"
	"strings"
	"unsafe"

	"github.com/chat2snack/snacksim/sim"
	"github.com/chat2snack/snacksim/sim/wiring"
)

// PerfAnalyzerEntry is a single entry in the performance database.
type PerfAnalyzerEntry struct {
	Start       sim.VTimeInSec
	End         sim.VTimeInSec
	Where       string
	WhereRemote string
	EntryType   string
	What        string
	Value       float64
	Unit        string
}

// PerfLogger is the interface that provides the service that can record
// performance data entries.
type PerfLogger interface {
	AddDataEntry(entry PerfAnalyzerEntry)
}

// PerfAnalyzer can report performance metrics during simulation.
type PerfAnalyzer struct {
	usePeriod bool
	period    sim.VTimeInSec
	engine    sim.Engine
	backend   PerfAnalyzerBackend

	portAnalyzers map[string]*PortAnalyzer
}

// RegisterEngine registers the engine that is used in the simulation.
func (p *PerfAnalyzer) RegisterEngine(e sim.Engine) {
	p.engine = e
}

// RegisterComponent registers a component to be monitored. All the ports of
// the component and all the buffers found in the component and its ports are
// also registered.
func (p *PerfAnalyzer) RegisterComponent(c sim.Component) {
	p.collectBuffers(c)

	for _, port := range c.Ports() {
		p.collectBuffers(port)
		p.RegisterPort(port)
	}
}

var bufferType = reflect.TypeOf((*sim.Buffer)(nil)).Elem()

// collectBuffers finds the sim.Buffer fields of a component or port through
// reflection and registers each of them.
func (p *PerfAnalyzer) collectBuffers(owner any) {
	v := reflect.ValueOf(owner).Elem()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if field.Type() != bufferType {
			continue
		}

		addr := unsafe.Pointer(field.UnsafeAddr())
		buf := reflect.NewAt(bufferType, addr).Elem().Interface().(sim.Buffer)
		p.RegisterBuffer(buf)
	}
}

// RegisterBuffer registers a buffer to be monitored.
func (p *PerfAnalyzer) RegisterBuffer(buf sim.Buffer) {
	builder := MakeBufferAnalyzerBuilder().
		WithTimeTeller(p.engine).
		WithPerfLogger(p).
		WithBuffer(buf)

	if p.usePeriod {
		builder = builder.WithPeriod(p.period)
	}

	buf.AcceptHook(builder.Build())
}

// RegisterPort registers a port to be monitored.
func (p *PerfAnalyzer) RegisterPort(port sim.Port) {
	builder := MakePortAnalyzerBuilder().
		WithTimeTeller(p.engine).
		WithPerfLogger(p).
		WithPort(port)

	if p.usePeriod {
		builder = builder.WithPeriod(p.period)
	}

	analyzer := builder.Build()

	port.AcceptHook(analyzer)
	p.portAnalyzers[port.Name()] = analyzer
}

// RegisterSignal registers a board wire to be monitored for its duty cycle.
func (p *PerfAnalyzer) RegisterSignal(s *wiring.Signal) {
	builder := MakeSignalAnalyzerBuilder().
		WithTimeTeller(p.engine).
		WithPerfLogger(p).
		WithSignal(s)

	if p.usePeriod {
		builder = builder.WithPeriod(p.period)
	}

	s.AcceptHook(builder.Build())
}

// AddDataEntry adds a data entry to the backend database.
func (p *PerfAnalyzer) AddDataEntry(entry PerfAnalyzerEntry) {
	p.backend.AddDataEntry(entry)
}

// GetCurrentTraffic returns a JSON string that describes the traffic seen in
// the current sampling window by all the ports of the named component.
func (p *PerfAnalyzer) GetCurrentTraffic(componentName string) string {
	snapshots := []TrafficSnapshot{}

	for _, name := range p.sortedPortNames() {
		if !strings.HasPrefix(name, componentName) {
			continue
		}

		snapshots = append(snapshots,
			p.portAnalyzers[name].CurrentTraffic()...)
	}

	encoded, err := json.Marshal(snapshots)
	if err != nil {
		panic(err)
	}

	return string(encoded)
}

func (p *PerfAnalyzer) sortedPortNames() []string {
	names := make([]string, 0, len(p.portAnalyzers))
	for name := range p.portAnalyzers {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// PerfAnalyzerBuilder is a builder that can build a PerfAnalyzer.
type PerfAnalyzerBuilder struct {
	usePeriod   bool
	period      sim.VTimeInSec
	backendType string
	dbFilename  string
}

// MakePerfAnalyzerBuilder creates a new PerfAnalyzerBuilder.
func MakePerfAnalyzerBuilder() PerfAnalyzerBuilder {
	return PerfAnalyzerBuilder{
		backendType: "csv",
		dbFilename:  "perf",
	}
}

// WithPeriod sets the period of the PerfAnalyzer.
func (b PerfAnalyzerBuilder) WithPeriod(
	period sim.VTimeInSec,
) PerfAnalyzerBuilder {
	b.usePeriod = true
	b.period = period
	return b
}

// WithSQLiteBackend sets the backend of the PerfAnalyzer to be a SQLite
// database.
func (b PerfAnalyzerBuilder) WithSQLiteBackend() PerfAnalyzerBuilder {
	b.backendType = "sqlite"
	return b
}

// WithDBFilename sets the filename of the database file, without the
// extension.
func (b PerfAnalyzerBuilder) WithDBFilename(
	filename string,
) PerfAnalyzerBuilder {
	b.dbFilename = filename
	return b
}

// Build creates a PerfAnalyzer.
func (b PerfAnalyzerBuilder) Build() *PerfAnalyzer {
	return &PerfAnalyzer{
		usePeriod:     b.usePeriod,
		period:        b.period,
		backend:       b.newBackend(),
		portAnalyzers: make(map[string]*PortAnalyzer),
	}
}

func (b PerfAnalyzerBuilder) newBackend() PerfAnalyzerBackend {
	switch b.backendType {
	case "csv":
		return NewCSVPerfAnalyzerBackend(b.dbFilename)
	case "sqlite":
		return NewSQLitePerfAnalyzerBackend(b.dbFilename)
	default:
		panic("unknown backend type " + b.backendType)
	}
}
