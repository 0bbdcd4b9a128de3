package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"pdf-extractor/internal/models"
)

var (
	ErrNoTable        = errors.New("no pipe-delimited table found")
	ErrNoColumns      = errors.New("table header has no columns")
	ErrMalformedRow   = errors.New("line is not a table row")
	ErrColumnMismatch = errors.New("row has more cells than the header")
)

// ParseError reports the 1-based line of the response where parsing failed.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

const cellDelimiter = "|"

var alignCellRe = regexp.MustCompile(`^:?-+:?$`)

// ParseMarkdownTable interprets a model response as a pipe-delimited
// Markdown table. The first table line is the header. The first and last
// fields of every line are the empty artifacts of the outer delimiters and
// are dropped. A GFM alignment row is skipped, code fences and blank lines
// are ignored. Anything else that is not a table row is an error.
func ParseMarkdownTable(text string) (*models.Table, error) {
	if !strings.Contains(text, cellDelimiter) {
		return nil, ErrNoTable
	}

	var table *models.Table
	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		if !strings.Contains(line, cellDelimiter) {
			return nil, &ParseError{Line: i + 1, Err: ErrMalformedRow}
		}

		cells := splitRow(line)
		if table == nil {
			if len(cells) == 0 {
				return nil, &ParseError{Line: i + 1, Err: ErrNoColumns}
			}
			table = &models.Table{Columns: cells}
			continue
		}
		if len(table.Rows) == 0 && isAlignmentRow(cells) {
			continue
		}
		if len(cells) > len(table.Columns) {
			return nil, &ParseError{Line: i + 1, Err: ErrColumnMismatch}
		}
		for len(cells) < len(table.Columns) {
			cells = append(cells, "")
		}
		table.Rows = append(table.Rows, cells)
	}

	if table == nil {
		return nil, ErrNoTable
	}
	return table, nil
}

// splitRow splits on the delimiter and drops the edge fields. An escaped
// delimiter (\|) stays in its cell as a literal pipe.
func splitRow(line string) []string {
	var fields []string
	var cell strings.Builder
	for i := 0; i < len(line); i++ {
		switch {
		case line[i] == '\\' && i+1 < len(line) && line[i+1] == '|':
			cell.WriteByte('|')
			i++
		case line[i] == '|':
			fields = append(fields, cell.String())
			cell.Reset()
		default:
			cell.WriteByte(line[i])
		}
	}
	fields = append(fields, cell.String())

	if len(fields) < 3 {
		return nil
	}
	fields = fields[1 : len(fields)-1]
	cells := make([]string, len(fields))
	for i, f := range fields {
		cells[i] = strings.TrimSpace(f)
	}
	return cells
}

func isAlignmentRow(cells []string) bool {
	for _, c := range cells {
		if !alignCellRe.MatchString(c) {
			return false
		}
	}
	return len(cells) > 0
}
