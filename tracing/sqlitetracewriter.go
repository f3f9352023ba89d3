package tracing

import (
	"database/sql"
	"fmt"
	"os"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

const traceWriterBatchSize = 100000

// A SQLiteTraceWriter is a tracer backend that stores tasks in a SQLite
// database, one row per task.
type SQLiteTraceWriter struct {
	DB     *sql.DB
	insert *sql.Stmt

	path      string
	queue     []Task
	batchSize int
}

// NewSQLiteTraceWriter creates a writer for the database at the given path,
// or for a fresh randomly named one when the path is empty.
func NewSQLiteTraceWriter(path string) *SQLiteTraceWriter {
	w := &SQLiteTraceWriter{
		path:      path,
		batchSize: traceWriterBatchSize,
	}

	atexit.Register(w.Flush)

	return w
}

// Init opens the database and prepares the trace table.
func (t *SQLiteTraceWriter) Init() {
	t.connect()
	t.createSchema()
	t.prepareInsert()
}

// Write queues a task. Tasks reach the database in batches, or on Flush.
func (t *SQLiteTraceWriter) Write(task Task) {
	t.queue = append(t.queue, task)

	if len(t.queue) >= t.batchSize {
		t.Flush()
	}
}

// Flush writes all the queued tasks to the database.
func (t *SQLiteTraceWriter) Flush() {
	if len(t.queue) == 0 {
		return
	}

	t.mustExecute("BEGIN TRANSACTION")
	defer t.mustExecute("COMMIT TRANSACTION")

	for _, task := range t.queue {
		_, err := t.insert.Exec(
			task.ID, task.ParentID,
			task.Kind, task.What, task.Where,
			task.StartTime, task.EndTime,
		)
		if err != nil {
			panic(err)
		}
	}

	t.queue = nil
}

func (t *SQLiteTraceWriter) connect() {
	if t.path == "" {
		t.path = "snacksim_trace_" + xid.New().String()
	}

	filename := t.path + ".sqlite3"
	if _, err := os.Stat(filename); err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	t.DB = db
}

func (t *SQLiteTraceWriter) createSchema() {
	t.mustExecute(`
		CREATE TABLE trace (
			task_id    varchar(200) not null,
			parent_id  varchar(200),
			kind       varchar(100),
			what       varchar(100),
			location   varchar(100),
			start_time float not null,
			end_time   float default 0
		);
	`)

	for _, column := range []string{
		"task_id", "kind", "start_time", "end_time",
	} {
		t.mustExecute(fmt.Sprintf(
			"CREATE INDEX trace_%s_index ON trace (%s);", column, column))
	}
}

func (t *SQLiteTraceWriter) prepareInsert() {
	stmt, err := t.DB.Prepare(`INSERT INTO trace VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		panic(err)
	}

	t.insert = stmt
}

func (t *SQLiteTraceWriter) mustExecute(query string) {
	if _, err := t.DB.Exec(query); err != nil {
		panic(query + " " + err.Error())
	}
}
