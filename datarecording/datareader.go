package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
)

// QueryParams narrows, orders, and paginates a table query.
type QueryParams struct {
	// Where is the WHERE clause without the keyword itself, with "?"
	// placeholders for the values in Args.
	Where string

	// Args holds the values for the placeholders in Where.
	Args []any

	// Limit caps the number of records returned. 0 means no cap.
	Limit int

	// Offset is the number of records to skip before the first one
	// returned.
	Offset int

	// OrderBy is the ORDER BY clause without the keywords, e.g.,
	// "start_time DESC".
	OrderBy string
}

// DataReader can read the data written by a DataRecorder.
type DataReader interface {
	// MapTable establishes a mapping between a database table and a Go
	// struct type. This mapping is required before querying a table.
	MapTable(tableName string, sampleEntry any)

	// ListTables returns a list of all tables that have been mapped.
	ListTables() []string

	// Query executes a query on a table and returns the results.
	Query(ctx context.Context, tableName string, params QueryParams) (
		results []any,
		totalCount int,
		err error,
	)

	// Close closes the reader
	Close() error
}

// tableReader reads recorded tables back from a SQLite database.
type tableReader struct {
	db *sql.DB

	typeMap map[string]reflect.Type
}

// NewReader creates a new DataReader.
func NewReader(dbFilename string) DataReader {
	db, err := sql.Open("sqlite3", dbFilename)
	if err != nil {
		panic(err)
	}

	return &tableReader{
		db:      db,
		typeMap: make(map[string]reflect.Type),
	}
}

// NewReaderWithDB creates a new DataReader with a given database.
func NewReaderWithDB(db *sql.DB) DataReader {
	return &tableReader{
		db:      db,
		typeMap: make(map[string]reflect.Type),
	}
}

func (r *tableReader) MapTable(tableName string, sampleEntry any) {
	r.typeMap[tableName] = reflect.TypeOf(sampleEntry)
}

func (r *tableReader) ListTables() []string {
	names := make([]string, 0, len(r.typeMap))
	for name := range r.typeMap {
		names = append(names, name)
	}

	return names
}

func (r *tableReader) Query(
	ctx context.Context,
	tableName string,
	params QueryParams,
) ([]any, int, error) {
	structType, ok := r.typeMap[tableName]
	if !ok {
		return nil, 0, fmt.Errorf("no mapping found for table: %s", tableName)
	}

	totalCount, err := r.countRows(ctx, tableName, params)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		buildSelect(tableName, params), params.Args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	return r.decodeRows(rows, structType), totalCount, nil
}

func (r *tableReader) Close() error {
	return r.db.Close()
}

// buildSelect assembles the SELECT statement for one query. The total
// count is queried separately so that Limit and Offset do not distort it.
func buildSelect(tableName string, params QueryParams) string {
	query := "SELECT * FROM " + tableName

	if params.Where != "" {
		query += " WHERE " + params.Where
	}

	if params.OrderBy != "" {
		query += " ORDER BY " + params.OrderBy
	}

	if params.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", params.Limit)
		if params.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", params.Offset)
		}
	}

	return query
}

func (r *tableReader) countRows(
	ctx context.Context,
	tableName string,
	params QueryParams,
) (int, error) {
	query := "SELECT COUNT(*) FROM " + tableName
	if params.Where != "" {
		query += " WHERE " + params.Where
	}

	var count int

	err := r.db.QueryRowContext(ctx, query, params.Args...).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// decodeRows materializes each row as a pointer to a fresh struct of the
// mapped type. Columns without a matching field are discarded.
func (r *tableReader) decodeRows(
	rows *sql.Rows,
	structType reflect.Type,
) []any {
	columns, err := rows.Columns()
	if err != nil {
		panic(err)
	}

	fieldOfColumn := fieldIndexes(structType, columns)

	results := []any{}

	for rows.Next() {
		entryPtr := reflect.New(structType)
		entry := entryPtr.Elem()

		targets := make([]any, len(columns))
		for i, f := range fieldOfColumn {
			if f >= 0 {
				targets[i] = entry.Field(f).Addr().Interface()
			} else {
				targets[i] = new(any)
			}
		}

		if err := rows.Scan(targets...); err != nil {
			panic(err)
		}

		results = append(results, entryPtr.Interface())
	}

	if err := rows.Err(); err != nil {
		panic(err)
	}

	return results
}

// fieldIndexes maps each column to the index of the struct field with the
// same name, or -1 for columns the struct does not carry.
func fieldIndexes(structType reflect.Type, columns []string) []int {
	byName := make(map[string]int)
	for i := 0; i < structType.NumField(); i++ {
		byName[structType.Field(i).Name] = i
	}

	indexes := make([]int, len(columns))
	for i, column := range columns {
		if f, ok := byName[column]; ok {
			indexes[i] = f
		} else {
			indexes[i] = -1
		}
	}

	return indexes
}
