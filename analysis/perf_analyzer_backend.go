package analysis

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/tebeka/atexit"
)

// PerfAnalyzerBackend stores performance data entries.
type PerfAnalyzerBackend interface {
	AddDataEntry(entry PerfAnalyzerEntry)
	Flush()
}

var perfCSVHeader = []string{
	"Start", "End",
	"Where", "WhereRemote",
	"EntryType", "What",
	"Value", "Unit",
}

// CSVBackend writes performance data entries to a CSV file.
type CSVBackend struct {
	file   *os.File
	writer *csv.Writer
}

// NewCSVPerfAnalyzerBackend creates a CSVBackend writing to dbFilename +
// ".csv".
func NewCSVPerfAnalyzerBackend(dbFilename string) *CSVBackend {
	p := new(CSVBackend)

	file, err := os.Create(dbFilename + ".csv")
	if err != nil {
		panic(err)
	}

	p.file = file
	p.writer = csv.NewWriter(file)

	if err := p.writer.Write(perfCSVHeader); err != nil {
		panic(err)
	}

	atexit.Register(func() { p.Flush() })

	return p
}

// AddDataEntry appends one row to the CSV file.
func (p *CSVBackend) AddDataEntry(entry PerfAnalyzerEntry) {
	if err := p.writer.Write(csvRecord(entry)); err != nil {
		panic(err)
	}
}

// Flush flushes buffered rows to the file.
func (p *CSVBackend) Flush() {
	p.writer.Flush()
}

func csvRecord(entry PerfAnalyzerEntry) []string {
	return []string{
		fmt.Sprintf("%.10f", entry.Start),
		fmt.Sprintf("%.10f", entry.End),
		entry.Where,
		entry.WhereRemote,
		entry.EntryType,
		entry.What,
		fmt.Sprintf("%.10f", entry.Value),
		entry.Unit,
	}
}

const perfTableSchema = `
create table perf (
	id integer not null primary key,
	start_time real,
	end_time real,
	location text,
	remote text,
	entry_type text,
	what text,
	value real,
	unit text
);
`

const perfInsertStmt = `
insert into perf(
	start_time, end_time,
	location, remote,
	entry_type, what,
	value, unit
) values (?, ?, ?, ?, ?, ?, ?, ?)
`

// SQLiteBackend writes performance data entries to a SQLite database,
// committing them in batches.
type SQLiteBackend struct {
	*sql.DB
	insert *sql.Stmt

	batchCap int
	pending  []PerfAnalyzerEntry
}

// NewSQLitePerfAnalyzerBackend creates a SQLiteBackend writing to dbFilename
// + ".sqlite3". An existing file with that name is replaced.
func NewSQLitePerfAnalyzerBackend(dbFilename string) *SQLiteBackend {
	p := &SQLiteBackend{
		batchCap: 50000,
	}

	p.createDatabase(dbFilename + ".sqlite3")

	atexit.Register(func() {
		p.Flush()

		if err := p.Close(); err != nil {
			panic(err)
		}
	})

	return p
}

// AddDataEntry buffers one entry, committing when the batch is full.
func (p *SQLiteBackend) AddDataEntry(entry PerfAnalyzerEntry) {
	p.pending = append(p.pending, entry)
	if len(p.pending) >= p.batchCap {
		p.Flush()
	}
}

// Flush commits all buffered entries in one transaction.
func (p *SQLiteBackend) Flush() {
	if len(p.pending) == 0 {
		return
	}

	tx, err := p.Begin()
	if err != nil {
		panic(err)
	}

	defer func() {
		if err := tx.Commit(); err != nil {
			panic(err)
		}
	}()

	for _, entry := range p.pending {
		_, err = tx.Stmt(p.insert).Exec(
			entry.Start,
			entry.End,
			entry.Where,
			entry.WhereRemote,
			entry.EntryType,
			entry.What,
			entry.Value,
			entry.Unit,
		)
		if err != nil {
			panic(err)
		}
	}

	p.pending = p.pending[:0]
}

func (p *SQLiteBackend) createDatabase(filename string) {
	if _, err := os.Stat(filename); err == nil {
		if err := os.Remove(filename); err != nil {
			panic(err)
		}
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}
	p.DB = db

	if _, err := p.Exec(perfTableSchema); err != nil {
		panic(err)
	}

	p.insert, err = p.Prepare(perfInsertStmt)
	if err != nil {
		panic(err)
	}
}
