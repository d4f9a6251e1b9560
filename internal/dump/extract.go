// Package dump parses the row-insertion statements of a relational export.
//
// It recognizes only the flat shape a bulk export produces:
//
//	INSERT INTO `tbl` (`a`, `b`) VALUES (1,'x'),(2,NULL);
//
// Extraction locates the header for one table, the tokenizer turns the text
// that follows into typed tuples, and the materializer zips each tuple with
// the column list into a Record.
package dump

import (
	"errors"
	"fmt"
	"iter"
	"regexp"
	"strings"
)

var (
	// ErrNoInsertHeader means the export carries no INSERT header for the
	// requested table. Callers treat it as zero rows.
	ErrNoInsertHeader = errors.New("insert header not found")

	// ErrRowArity means a tuple's field count differs from the column count.
	ErrRowArity = errors.New("tuple arity does not match column count")
)

// Table is the extracted header of one table plus the text following it.
type Table struct {
	Name    string
	Columns []string

	body string
}

// Record maps column name to value for one exported row.
type Record map[string]Value

// Get returns the value of col, or NULL when the column is absent.
func (r Record) Get(col string) Value {
	if v, ok := r[col]; ok {
		return v
	}
	return NullValue()
}

// Text returns the textual form of col ("" for NULL or absent).
func (r Record) Text(col string) string {
	return r.Get(col).Text()
}

// Result is the outcome of parsing one table out of an export.
type Result struct {
	Table       string
	Columns     []string
	Records     []Record
	HeaderFound bool
	Tuples      int // well-formed tuples seen, including dropped ones
	Dropped     int // tuples discarded for arity mismatch
}

// anyHeader matches the start of an INSERT header for any table and
// captures the table name.
var anyHeader = regexp.MustCompile("(?i:INSERT\\s+INTO)\\s+`?([^`\\s(]+)`?")

func headerPattern(table string) *regexp.Regexp {
	return regexp.MustCompile(
		`(?i:INSERT\s+INTO)\s+` + "`?" + regexp.QuoteMeta(table) + "`?" +
			`\s*\(([^)]+)\)\s*(?i:VALUES)`,
	)
}

// Extract locates the first INSERT header for table in text and takes its
// column list. The body covers the VALUES of every INSERT statement for
// table; each one ends where the next INSERT header begins.
// Returns ErrNoInsertHeader if there is none.
func Extract(text, table string) (*Table, error) {
	header := headerPattern(table)
	loc := header.FindStringSubmatchIndex(text)
	if loc == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoInsertHeader, table)
	}

	return &Table{
		Name:    table,
		Columns: splitColumns(text[loc[2]:loc[3]]),
		body:    tableBody(text[loc[0]:], table, header),
	}, nil
}

// tableBody joins the text following each INSERT header for table, cut at
// the next INSERT header of any table.
func tableBody(text, table string, header *regexp.Regexp) string {
	starts := anyHeader.FindAllStringSubmatchIndex(text, -1)

	var b strings.Builder
	for i, m := range starts {
		if text[m[2]:m[3]] != table {
			continue
		}
		end := len(text)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}

		stmt := text[m[0]:end]
		h := header.FindStringIndex(stmt)
		if h == nil || h[0] != 0 {
			continue
		}
		b.WriteString(stmt[h[1]:])
		b.WriteByte('\n')
	}
	return b.String()
}

// splitColumns turns "`id`, `nom`" into ["id", "nom"].
func splitColumns(list string) []string {
	parts := strings.Split(list, ",")
	cols := make([]string, 0, len(parts))
	for _, p := range parts {
		cols = append(cols, strings.Trim(strings.TrimSpace(p), "`\""))
	}
	return cols
}

// Tuples returns the tuples following the header, in text order.
// The sequence rescans from the start each time it is ranged over.
func (t *Table) Tuples() iter.Seq[Tuple] {
	return func(yield func(Tuple) bool) {
		s := newScanner(t.body, len(t.Columns))
		for {
			tuple, ok := s.next()
			if !ok || !yield(tuple) {
				return
			}
		}
	}
}

// Materialize pairs a tuple positionally with the column list.
// A tuple of the wrong width is rejected whole with ErrRowArity.
func (t *Table) Materialize(tuple Tuple) (Record, error) {
	if len(tuple) != len(t.Columns) {
		return nil, fmt.Errorf("%w: got %d fields, want %d", ErrRowArity, len(tuple), len(t.Columns))
	}

	rec := make(Record, len(t.Columns))
	for i, col := range t.Columns {
		rec[col] = tuple[i]
	}
	return rec, nil
}

// Records returns the materialized rows, silently skipping arity mismatches.
func (t *Table) Records() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for tuple := range t.Tuples() {
			rec, err := t.Materialize(tuple)
			if err != nil {
				continue
			}
			if !yield(rec) {
				return
			}
		}
	}
}

// Parse extracts and materializes every row of table. A missing header
// is not an error: the result is simply empty with HeaderFound false.
func Parse(text, table string) Result {
	res := Result{Table: table}

	t, err := Extract(text, table)
	if err != nil {
		return res
	}
	res.HeaderFound = true
	res.Columns = t.Columns

	for tuple := range t.Tuples() {
		res.Tuples++
		rec, err := t.Materialize(tuple)
		if err != nil {
			res.Dropped++
			continue
		}
		res.Records = append(res.Records, rec)
	}

	return res
}
