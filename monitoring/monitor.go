// Package monitoring turns a running simulation into a web server, so that
// the state of the modeled machine can be inspected and controlled from a
// browser while the simulation runs.
package monitoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"reflect"
	"runtime/pprof"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unsafe"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/chat2snack/snacksim/analysis"
	"github.com/chat2snack/snacksim/monitoring/web"
	"github.com/chat2snack/snacksim/sim"
)

// A SummaryProvider can report a snapshot of the state of the modeled
// machine. The snapshot must be JSON-serializable.
type SummaryProvider interface {
	Summary() any
}

// Monitor can turn a simulation into a server and allows external monitoring
// and controlling of the simulation.
type Monitor struct {
	engine          sim.Engine
	components      []sim.Component
	buffers         []sim.Buffer
	portNumber      int
	openBrowser     bool
	perfAnalyzer    *analysis.PerfAnalyzer
	summaryProvider SummaryProvider

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n",
			portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithBrowserOpen lets the monitor open the dashboard in the default browser
// when the server starts.
func (m *Monitor) WithBrowserOpen() *Monitor {
	m.openBrowser = true
	return m
}

// RegisterEngine registers the engine that is used in the simulation.
func (m *Monitor) RegisterEngine(e sim.Engine) {
	m.engine = e
}

// RegisterPerfAnalyzer sets the performance analyzer to be used in the
// monitor.
func (m *Monitor) RegisterPerfAnalyzer(pa *analysis.PerfAnalyzer) {
	m.perfAnalyzer = pa
}

// RegisterSummaryProvider sets the provider that serves the machine summary
// endpoint.
func (m *Monitor) RegisterSummaryProvider(sp SummaryProvider) {
	m.summaryProvider = sp
}

// RegisterComponent registers a component to be monitored.
func (m *Monitor) RegisterComponent(c sim.Component) {
	m.components = append(m.components, c)

	m.registerBuffers(c)
}

func (m *Monitor) registerBuffers(c sim.Component) {
	m.collectBufferFields(c)

	for _, p := range c.Ports() {
		m.collectBufferFields(p)
	}
}

var bufferType = reflect.TypeOf((*sim.Buffer)(nil)).Elem()

// collectBufferFields finds the sim.Buffer fields of a component or port
// through reflection, including the unexported ones.
func (m *Monitor) collectBufferFields(owner any) {
	v := reflect.ValueOf(owner).Elem()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if field.Type() != bufferType {
			continue
		}

		addr := unsafe.Pointer(field.UnsafeAddr())
		buf := reflect.NewAt(bufferType, addr).Elem().Interface().(sim.Buffer)
		m.buffers = append(m.buffers, buf)
	}
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        sim.GetIDGenerator().Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar from the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	remaining := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			remaining = append(remaining, b)
		}
	}

	m.progressBars = remaining
}

// StartServer starts the monitor as a web server, on the configured port if
// one is set.
func (m *Monitor) StartServer() {
	r := mux.NewRouter()

	routes := []struct {
		path    string
		handler http.HandlerFunc
	}{
		{"/api/pause", m.pauseEngine},
		{"/api/continue", m.continueEngine},
		{"/api/now", m.now},
		{"/api/run", m.run},
		{"/api/tick/{name}", m.tick},
		{"/api/machine", m.machineSummary},
		{"/api/list_components", m.listComponents},
		{"/api/component/{name}", m.listComponentDetails},
		{"/api/field/{json}", m.listFieldValue},
		{"/api/hangdetector/buffers", m.hangDetectorBuffers},
		{"/api/progress", m.listProgressBars},
		{"/api/resource", m.listResources},
		{"/api/profile", m.collectProfile},
		{"/api/traffic/{name}", m.reportTraffic},
	}
	for _, route := range routes {
		r.HandleFunc(route.path, route.handler)
	}

	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))
	http.Handle("/", r)

	listener, err := net.Listen("tcp", m.listenAddr())
	must(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	if m.openBrowser {
		go openDashboard(url)
	}

	go func() {
		must(http.Serve(listener, nil))
	}()
}

func (m *Monitor) listenAddr() string {
	if m.portNumber > 1000 {
		return ":" + strconv.Itoa(m.portNumber)
	}

	return ":0"
}

func openDashboard(url string) {
	if err := browser.OpenURL(url); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open browser: %s\n", err)
	}
}

func (m *Monitor) pauseEngine(w http.ResponseWriter, _ *http.Request) {
	m.engine.Pause()
	_, err := w.Write(nil)
	must(err)
}

func (m *Monitor) continueEngine(w http.ResponseWriter, _ *http.Request) {
	m.engine.Continue()
	_, err := w.Write(nil)
	must(err)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprintf(w, "{\"now\":%.10f}", m.engine.CurrentTime())
}

func (m *Monitor) run(_ http.ResponseWriter, _ *http.Request) {
	go func() {
		err := m.engine.Run()
		if err != nil {
			panic(err)
		}
	}()
}

func (m *Monitor) machineSummary(w http.ResponseWriter, _ *http.Request) {
	if m.summaryProvider == nil {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("No machine registered"))
		must(err)

		return
	}

	writeJSON(w, m.summaryProvider.Summary())
}

func (m *Monitor) listComponents(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(m.components))
	for _, c := range m.components {
		names = append(names, c.Name())
	}

	writeJSON(w, names)
}

type tickingComponent interface {
	TickLater()
}

func (m *Monitor) tick(w http.ResponseWriter, r *http.Request) {
	compName := mux.Vars(r)["name"]

	comp := m.findComponentOr404(w, compName)
	if comp == nil {
		return
	}

	tickingComp, ok := comp.(tickingComponent)
	if !ok {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	tickingComp.TickLater()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) listComponentDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	component := m.findComponentOr404(w, name)
	if component == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(component)
	serializer.SetMaxDepth(1)

	must(serializer.Serialize(w))
}

type fieldReq struct {
	CompName  string `json:"comp_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	req := fieldReq{}
	must(json.Unmarshal([]byte(mux.Vars(r)["json"]), &req))

	component := m.findComponentOr404(w, req.CompName)
	if component == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(component)
	serializer.SetMaxDepth(1)

	must(serializer.SetEntryPoint(strings.Split(req.FieldName, ".")))
	must(serializer.Serialize(w))
}

type bufferLevel struct {
	Buffer string `json:"buffer"`
	Level  int    `json:"level"`
	Cap    int    `json:"cap"`
}

func (m *Monitor) hangDetectorBuffers(w http.ResponseWriter, r *http.Request) {
	sortMethod, limit, offset, err := bufferQueryParams(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	selected := m.sortAndSelectBuffers(sortMethod, limit, offset)

	levels := make([]bufferLevel, 0, len(selected))
	for _, b := range selected {
		levels = append(levels, bufferLevel{
			Buffer: b.Name(),
			Level:  b.Size(),
			Cap:    b.Capacity(),
		})
	}

	writeJSON(w, levels)
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}

	return strconv.Atoi(raw)
}

func bufferQueryParams(
	r *http.Request,
) (sortMethod string, limit, offset int, err error) {
	sortMethod = r.URL.Query().Get("sort")
	if sortMethod == "" {
		sortMethod = "percent"
	}

	if sortMethod != "level" && sortMethod != "percent" {
		return "", 0, 0, fmt.Errorf(
			"invalid sort method %s, allowed values are `level` and `percent`",
			sortMethod)
	}

	limit, err = queryInt(r, "limit")
	if err != nil {
		return sortMethod, 0, 0, err
	}

	offset, err = queryInt(r, "offset")
	if err != nil {
		return sortMethod, limit, 0, err
	}

	return sortMethod, limit, offset, nil
}

func bufferPercent(b sim.Buffer) float64 {
	return float64(b.Size()) / float64(b.Capacity())
}

func levelFirst(a, b sim.Buffer) bool {
	if a.Size() != b.Size() {
		return a.Size() > b.Size()
	}

	return bufferPercent(a) > bufferPercent(b)
}

func percentFirst(a, b sim.Buffer) bool {
	if bufferPercent(a) != bufferPercent(b) {
		return bufferPercent(a) > bufferPercent(b)
	}

	return a.Size() > b.Size()
}

func (m *Monitor) sortAndSelectBuffers(
	sortMethod string,
	limit, offset int,
) []sim.Buffer {
	sorted := make([]sim.Buffer, len(m.buffers))
	copy(sorted, m.buffers)

	var less func(a, b sim.Buffer) bool

	switch sortMethod {
	case "level":
		less = levelFirst
	case "percent":
		less = percentFirst
	default:
		panic("invalid sort method " + sortMethod)
	}

	sort.Slice(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j])
	})

	if offset > len(sorted) {
		offset = len(sorted)
	}

	end := len(sorted)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	return sorted[offset:end]
}

var errBadFieldPath = errors.New("malformed field path")

// walkFields resolves a dot-separated path, e.g. "ports.0.name", to a value
// inside the component.
func (m *Monitor) walkFields(
	comp any,
	fields string,
) (reflect.Value, error) {
	value := reflect.ValueOf(comp)
	path := strings.Split(fields, ".")

	for len(path) > 0 {
		switch value.Kind() {
		case reflect.Ptr, reflect.Interface:
			value = value.Elem()
		case reflect.Struct:
			value = value.FieldByName(path[0])
			path = path[1:]
		case reflect.Slice:
			index, err := strconv.Atoi(path[0])
			if err != nil {
				return value, errBadFieldPath
			}

			value = value.Index(index)
			path = path[1:]
		default:
			panic(fmt.Sprintf("cannot walk into a %s value", value.Kind()))
		}
	}

	if value.Kind() == reflect.Ptr {
		value = value.Elem()
	}

	return value, nil
}

func (m *Monitor) findComponentOr404(
	w http.ResponseWriter,
	name string,
) sim.Component {
	for _, c := range m.components {
		if c.Name() == name {
			return c
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Component not found"))
	must(err)

	return nil
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	writeJSON(w, m.progressBars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	self, err := process.NewProcess(int32(os.Getpid()))
	must(err)

	cpuPercent, err := self.CPUPercent()
	must(err)

	memory, err := self.MemoryInfo()
	must(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memory.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	var sample bytes.Buffer

	must(pprof.StartCPUProfile(&sample))
	time.Sleep(time.Second)
	pprof.StopCPUProfile()

	parsed, err := profile.ParseData(sample.Bytes())
	must(err)

	writeJSON(w, parsed)
}

func (m *Monitor) reportTraffic(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	traffic := m.perfAnalyzer.GetCurrentTraffic(name)

	_, err := w.Write([]byte(traffic))
	must(err)
}

func writeJSON(w http.ResponseWriter, v any) {
	encoded, err := json.Marshal(v)
	must(err)

	_, err = w.Write(encoded)
	must(err)
}

func must(err error) {
	if err != nil {
		log.Panic(err)
	}
}
