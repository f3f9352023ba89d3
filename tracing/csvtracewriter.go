package tracing

import (
	"fmt"
	"os"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

const csvTraceHeader = "ID, ParentID, Kind, What, Where, Start, End\n"

// CSVTraceWriter dumps finished tasks into a CSV file, buffering rows in
// memory between flushes.
type CSVTraceWriter struct {
	path string
	file *os.File

	pending        []Task
	flushThreshold int
}

// NewCSVTraceWriter creates a writer that will store tasks in path + ".csv".
// An empty path picks a unique "snacksim_trace_" name.
func NewCSVTraceWriter(path string) *CSVTraceWriter {
	return &CSVTraceWriter{
		path:           path,
		flushThreshold: 1000,
	}
}

// Init creates the trace file and registers a flush on exit. Init panics if
// the file already exists.
func (t *CSVTraceWriter) Init() {
	if t.path == "" {
		t.path = "snacksim_trace_" + xid.New().String()
	}

	filename := t.path + ".csv"
	if _, err := os.Stat(filename); err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	file, err := os.Create(filename)
	if err != nil {
		panic(err)
	}
	t.file = file

	fmt.Fprint(file, csvTraceHeader)

	atexit.Register(func() {
		t.Flush()
		if err := t.file.Close(); err != nil {
			panic(err)
		}
	})
}

// Write buffers a task, flushing when the buffer is full.
func (t *CSVTraceWriter) Write(task Task) {
	t.pending = append(t.pending, task)
	if len(t.pending) >= t.flushThreshold {
		t.Flush()
	}
}

// Flush writes the buffered tasks to the file.
func (t *CSVTraceWriter) Flush() {
	for _, task := range t.pending {
		t.writeRow(task)
	}

	t.pending = nil
}

func (t *CSVTraceWriter) writeRow(task Task) {
	fmt.Fprintf(t.file, "%s, %s, %s, %s, %s, %.10f, %.10f\n",
		task.ID, task.ParentID, task.Kind, task.What, task.Where,
		task.StartTime, task.EndTime)
}
