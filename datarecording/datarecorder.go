// Package datarecording persists simulation measurements, one table per
// entry type, into SQLite or ClickHouse databases.
package datarecording

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// defaultBatchSize is the number of entries buffered before an automatic
// flush.
const defaultBatchSize = 100000

// DataRecorder is a backend that can record and store data
type DataRecorder interface {
	// CreateTable creates a new table using the fields of the sample entry
	// as columns.
	CreateTable(tableName string, sampleEntry any)

	// InsertData writes a same-type entry into a table that already exists.
	InsertData(tableName string, entry any)

	// ListTables returns a slice containing names of all tables.
	ListTables() []string

	// Flush flushes all the buffered entries into the database.
	Flush()

	// Close flushes and closes the database.
	Close()
}

// New creates a DataRecorder that writes into the file at the given path,
// with ".sqlite3" appended. It also records the execution metadata of the
// current process into the exec_info table.
func New(path string) DataRecorder {
	return newSQLiteRecorder(path, 0)
}

func newSQLiteRecorder(path string, batchSize int) DataRecorder {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	w := &sqliteRecorder{
		dbName:    path,
		batchSize: batchSize,
		tables:    make(map[string]*table),
	}

	w.connect()

	e := newExecRecorder(w)
	e.Start()

	atexit.Register(func() {
		e.End()
		w.Flush()
	})

	return w
}

// NewWithDB creates a DataRecorder that writes into the given database.
func NewWithDB(db *sql.DB) DataRecorder {
	w := &sqliteRecorder{
		db:        db,
		batchSize: defaultBatchSize,
		tables:    make(map[string]*table),
	}

	atexit.Register(func() { w.Flush() })

	return w
}

// RecorderConfig selects and parameterizes a DataRecorder backend.
type RecorderConfig struct {
	// Type names the backend, either "sqlite" (the default) or
	// "clickhouse".
	Type string

	// Path is the output file for the sqlite backend, without extension.
	Path string

	// ConnStr is a ClickHouse DSN such as
	// "clickhouse://localhost:9000/snacksim?username=default". When set,
	// it overrides the individual connection fields below.
	ConnStr string

	Host     string
	Port     int
	Database string
	Username string
	Password string

	// BatchSize is the number of entries buffered before an automatic
	// flush. 0 selects the backend default.
	BatchSize int
}

// NewWithConfig creates a DataRecorder for the backend the config names.
func NewWithConfig(cfg RecorderConfig) DataRecorder {
	switch cfg.Type {
	case "", "sqlite":
		return newSQLiteRecorder(cfg.Path, cfg.BatchSize)
	case "clickhouse":
		return newClickHouseRecorder(cfg)
	default:
		panic(fmt.Sprintf("unknown recorder type %q", cfg.Type))
	}
}

// table buffers the entries of one database table until the next flush.
type table struct {
	structType reflect.Type
	entries    []any
}

// sqliteRecorder writes buffered entries into a SQLite database.
type sqliteRecorder struct {
	db *sql.DB

	dbName     string
	tables     map[string]*table
	batchSize  int
	entryCount int
	closed     bool
}

// connect opens the database file, refusing to overwrite an existing one.
func (w *sqliteRecorder) connect() {
	if w.dbName == "" {
		w.dbName = "snacksim_data_recording_" + xid.New().String()
	}

	filename := w.dbName + ".sqlite3"
	if _, err := os.Stat(filename); err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	fmt.Fprintf(os.Stderr, "Database created for recording: %s\n", filename)

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	w.db = db
}

func recordableKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Bool,
		reflect.Int,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Uint64,
		reflect.Float32,
		reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

// mustBeRecordable panics unless every field of the entry is a plain
// value that maps onto a database column.
func mustBeRecordable(entry any) {
	entryType := reflect.TypeOf(entry)

	for i := 0; i < entryType.NumField(); i++ {
		field := entryType.Field(i)
		if !recordableKind(field.Type.Kind()) {
			panic(errors.New(
				"entry field " + field.Name + " is not a recordable type"))
		}
	}
}

// CreateTable creates a new table using the fields of the sample entry as
// columns.
func (w *sqliteRecorder) CreateTable(tableName string, sampleEntry any) {
	mustBeRecordable(sampleEntry)

	columns := strings.Join(structs.Names(sampleEntry), ", \n\t")
	w.mustExecute(
		"CREATE TABLE " + tableName + " (\n\t" + columns + "\n);")

	w.tables[tableName] = &table{
		structType: reflect.TypeOf(sampleEntry),
	}
}

// InsertData writes an entry into a table that already exists.
func (w *sqliteRecorder) InsertData(tableName string, entry any) {
	tb, ok := w.tables[tableName]
	if !ok {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	tb.entries = append(tb.entries, entry)

	w.entryCount++
	if w.entryCount >= w.batchSize {
		w.Flush()
	}
}

// ListTables returns the names of all the tables created so far.
func (w *sqliteRecorder) ListTables() []string {
	names := make([]string, 0, len(w.tables))
	for name := range w.tables {
		names = append(names, name)
	}

	return names
}

// Flush writes all the buffered entries into the database in a single
// transaction. Flushing after Close is a no-op, so that exit handlers can
// run after the recorder is already terminated.
func (w *sqliteRecorder) Flush() {
	if w.closed || w.entryCount == 0 {
		return
	}

	w.mustExecute("BEGIN TRANSACTION")
	defer w.mustExecute("COMMIT TRANSACTION")

	for name, tb := range w.tables {
		if len(tb.entries) > 0 {
			w.writeTable(name, tb)
		}
	}

	w.entryCount = 0
}

func (w *sqliteRecorder) writeTable(name string, tb *table) {
	stmt := w.insertStmt(name, tb.entries[0])
	defer stmt.Close()

	for _, entry := range tb.entries {
		value := reflect.ValueOf(entry)

		row := make([]any, 0, value.NumField())
		for i := 0; i < value.NumField(); i++ {
			row = append(row, value.Field(i).Interface())
		}

		if _, err := stmt.Exec(row...); err != nil {
			panic(err)
		}
	}

	tb.entries = nil
}

// Close flushes and closes the database.
func (w *sqliteRecorder) Close() {
	if w.closed {
		return
	}

	w.Flush()
	w.closed = true

	if err := w.db.Close(); err != nil {
		panic(err)
	}
}

func (w *sqliteRecorder) mustExecute(query string) sql.Result {
	result, err := w.db.Exec(query)
	if err != nil {
		fmt.Printf("Failed to execute: %s\n", query)
		panic(err)
	}

	return result
}

func (w *sqliteRecorder) insertStmt(tableName string, entry any) *sql.Stmt {
	marks := make([]string, len(structs.Names(entry)))
	for i := range marks {
		marks[i] = "?"
	}

	stmt, err := w.db.Prepare(
		"INSERT INTO " + tableName +
			" VALUES (" + strings.Join(marks, ", ") + ")")
	if err != nil {
		panic(err)
	}

	return stmt
}
