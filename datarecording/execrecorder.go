package datarecording

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

const execTimeFormat = "2006-01-02 15:04:05.000000000"

type execInfo struct {
	Property string
	Value    string
}

// execRecorder captures metadata about the current process so that a
// recording can be traced back to the run that produced it.
type execRecorder struct {
	tablename string
	recorder  DataRecorder
	entries   []execInfo
}

func newExecRecorder(recorder DataRecorder) *execRecorder {
	e := &execRecorder{
		tablename: "exec_info",
		recorder:  recorder,
	}

	e.recorder.CreateTable(e.tablename, execInfo{})

	return e
}

func (e *execRecorder) record(property, value string) {
	e.entries = append(e.entries, execInfo{property, value})
}

// Start captures the start time, the command line, and the location of
// the running executable.
func (e *execRecorder) Start() {
	e.record("Start Time", time.Now().Format(execTimeFormat))
	e.record("Command", strings.Join(os.Args, " "))

	executable, err := os.Executable()
	if err != nil {
		panic(err)
	}

	e.record("Working Directory", filepath.Dir(executable))
}

// End stamps the exit time and writes everything collected so far.
func (e *execRecorder) End() {
	e.record("End Time", time.Now().Format(execTimeFormat))

	for _, entry := range e.entries {
		e.recorder.InsertData(e.tablename, entry)
	}

	e.entries = nil

	e.recorder.Flush()
}
