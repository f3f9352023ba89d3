package datarecording

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/tebeka/atexit"
)

// clickHouseRecorder buffers entries in memory and bulk-inserts them into
// a ClickHouse database. Unlike the SQLite backend it is safe for
// concurrent use, so collectors on different goroutines can share one
// recorder.
type clickHouseRecorder struct {
	conn clickhouse.Conn
	mu   sync.Mutex

	tables     map[string]*table
	batchSize  int
	entryCount int
	closed     bool
}

func newClickHouseRecorder(cfg RecorderConfig) DataRecorder {
	conn, err := clickhouse.Open(clickHouseOptions(cfg))
	if err != nil {
		panic(fmt.Errorf("failed to connect to ClickHouse: %w", err))
	}

	if err := conn.Ping(context.Background()); err != nil {
		panic(fmt.Errorf("failed to ping ClickHouse: %w", err))
	}

	r := &clickHouseRecorder{
		conn:      conn,
		batchSize: cfg.BatchSize,
		tables:    make(map[string]*table),
	}
	if r.batchSize <= 0 {
		r.batchSize = defaultBatchSize
	}

	e := newExecRecorder(r)
	e.Start()

	atexit.Register(func() {
		e.End()
		r.Flush()
	})

	return r
}

func clickHouseOptions(cfg RecorderConfig) *clickhouse.Options {
	if cfg.ConnStr != "" {
		opts, err := clickhouse.ParseDSN(cfg.ConnStr)
		if err != nil {
			panic(fmt.Errorf("invalid ClickHouse DSN: %w", err))
		}

		return opts
	}

	return &clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:      30 * time.Second,
		MaxOpenConns:     5,
		MaxIdleConns:     5,
		ConnMaxLifetime:  time.Hour,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
		BlockBufferSize:  10,
	}
}

// CreateTable creates a MergeTree table using the fields of the sample
// entry as columns, ordered by the first column.
func (r *clickHouseRecorder) CreateTable(tableName string, sampleEntry any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mustBeRecordable(sampleEntry)

	err := r.conn.Exec(context.Background(),
		clickHouseSchema(tableName, sampleEntry))
	if err != nil {
		panic(fmt.Errorf("failed to create table %s: %w", tableName, err))
	}

	r.tables[tableName] = &table{
		structType: reflect.TypeOf(sampleEntry),
	}
}

func clickHouseSchema(tableName string, sampleEntry any) string {
	entryType := reflect.TypeOf(sampleEntry)

	columns := make([]string, 0, entryType.NumField())
	for i := 0; i < entryType.NumField(); i++ {
		field := entryType.Field(i)
		columns = append(columns,
			"\t"+field.Name+" "+clickHouseColumnType(field.Type.Kind()))
	}

	return "CREATE TABLE IF NOT EXISTS " + tableName + " (\n" +
		strings.Join(columns, ",\n") + "\n" +
		") ENGINE = MergeTree()\n" +
		"ORDER BY " + entryType.Field(0).Name
}

func clickHouseColumnType(kind reflect.Kind) string {
	switch kind {
	case reflect.Bool:
		return "Bool"
	case reflect.Int, reflect.Int8, reflect.Int16,
		reflect.Int32, reflect.Int64:
		return "Int64"
	case reflect.Uint, reflect.Uint8, reflect.Uint16,
		reflect.Uint32, reflect.Uint64:
		return "UInt64"
	case reflect.Float32, reflect.Float64:
		return "Float64"
	default:
		return "String"
	}
}

// InsertData writes an entry into a table that already exists.
func (r *clickHouseRecorder) InsertData(tableName string, entry any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tb, ok := r.tables[tableName]
	if !ok {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	tb.entries = append(tb.entries, entry)

	r.entryCount++
	if r.entryCount >= r.batchSize {
		r.flush()
	}
}

// ListTables returns the names of all the tables created so far.
func (r *clickHouseRecorder) ListTables() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}

	return names
}

// Flush sends all the buffered entries to the server, one batch per
// table.
func (r *clickHouseRecorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.flush()
}

func (r *clickHouseRecorder) flush() {
	if r.closed || r.entryCount == 0 {
		return
	}

	ctx := context.Background()

	for name, tb := range r.tables {
		if len(tb.entries) > 0 {
			r.sendBatch(ctx, name, tb)
		}
	}

	r.entryCount = 0
}

func (r *clickHouseRecorder) sendBatch(
	ctx context.Context,
	tableName string,
	tb *table,
) {
	batch, err := r.conn.PrepareBatch(ctx, "INSERT INTO "+tableName)
	if err != nil {
		panic(fmt.Errorf("failed to prepare batch for %s: %w",
			tableName, err))
	}

	for _, entry := range tb.entries {
		value := reflect.ValueOf(entry)

		row := make([]any, 0, value.NumField())
		for i := 0; i < value.NumField(); i++ {
			row = append(row, clickHouseValue(value.Field(i)))
		}

		if err := batch.Append(row...); err != nil {
			panic(fmt.Errorf("failed to append to batch: %w", err))
		}
	}

	if err := batch.Send(); err != nil {
		panic(fmt.Errorf("failed to send batch: %w", err))
	}

	tb.entries = tb.entries[:0]
}

// clickHouseValue widens a field value to the type of its declared
// column, as the driver does not convert between integer widths.
func clickHouseValue(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Bool:
		return v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16,
		reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16,
		reflect.Uint32, reflect.Uint64:
		return v.Uint()
	case reflect.Float32, reflect.Float64:
		return v.Float()
	default:
		return v.String()
	}
}

// Close flushes and closes the connection.
func (r *clickHouseRecorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	r.flush()
	r.closed = true

	if err := r.conn.Close(); err != nil {
		panic(err)
	}
}
