package reading

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Delimiter separates fields in uploaded files.
const Delimiter = ';'

const utf8BOM = "\ufeff"

// Parse reads a semicolon-delimited table with a header row. Identifier and
// label columns are dropped before numeric parsing, so their content is never
// inspected. All failures are returned as *LoadError.
func Parse(r io.Reader) (Table, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.Comma = Delimiter
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Table{}, &LoadError{Err: ErrEmpty}
	}
	if err != nil {
		return Table{}, malformed(err)
	}

	var (
		columns []string
		keep    []int
		seen    = make(map[string]struct{}, len(header))
	)
	for i, name := range header {
		name = strings.TrimSpace(name)
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		if _, dup := seen[name]; dup {
			return Table{}, &LoadError{Line: 1, Column: name, Err: ErrDuplicateColumn}
		}
		seen[name] = struct{}{}
		if isDropped(name) {
			continue
		}
		columns = append(columns, name)
		keep = append(keep, i)
	}
	if len(columns) == 0 {
		return Table{}, &LoadError{Line: 1, Err: ErrNoColumns}
	}

	t := Table{Columns: columns}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, malformed(err)
		}
		line, _ := cr.FieldPos(0)
		row := make([]float64, len(keep))
		for j, i := range keep {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
			if err == nil && (math.IsNaN(v) || math.IsInf(v, 0)) {
				err = errors.New("not finite")
			}
			if err != nil {
				return Table{}, &LoadError{Line: line, Column: columns[j], Err: fmt.Errorf("%w: %q", ErrBadValue, rec[i])}
			}
			row[j] = v
		}
		t.Rows = append(t.Rows, row)
	}
	if len(t.Rows) == 0 {
		return Table{}, &LoadError{Err: ErrNoRows}
	}
	return t, nil
}

// malformed converts csv reader errors into a LoadError keeping the line.
func malformed(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &LoadError{Line: pe.Line, Err: fmt.Errorf("%w: %w", ErrMalformed, pe.Err)}
	}
	return &LoadError{Err: fmt.Errorf("%w: %w", ErrMalformed, err)}
}

// Encode writes t in the upload format accepted by Parse.
func Encode(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	cw.Comma = Delimiter
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	rec := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, v := range row {
			rec[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("encode row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
