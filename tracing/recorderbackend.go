package tracing

import "github.com/chat2snack/snacksim/datarecording"

type taskTableEntry struct {
	ID        string
	ParentID  string
	Kind      string
	What      string
	Location  string
	StartTime float64
	EndTime   float64
}

// DataRecorderBackend stores tasks through a datarecording.DataRecorder, so
// that the trace shares one database with the other recorded tables.
type DataRecorderBackend struct {
	recorder datarecording.DataRecorder
}

// NewDataRecorderBackend creates a backend that writes into the trace table
// of the given recorder.
func NewDataRecorderBackend(
	recorder datarecording.DataRecorder,
) *DataRecorderBackend {
	return &DataRecorderBackend{recorder: recorder}
}

// Init creates the trace table.
func (b *DataRecorderBackend) Init() {
	b.recorder.CreateTable("trace", taskTableEntry{})
}

// Write writes one task into the trace table.
func (b *DataRecorderBackend) Write(task Task) {
	b.recorder.InsertData("trace", taskTableEntry{
		ID:        task.ID,
		ParentID:  task.ParentID,
		Kind:      task.Kind,
		What:      task.What,
		Location:  task.Where,
		StartTime: float64(task.StartTime),
		EndTime:   float64(task.EndTime),
	})
}

// Flush flushes the recorder.
func (b *DataRecorderBackend) Flush() {
	b.recorder.Flush()
}
