package models

import "time"

// Document is an uploaded PDF held for the duration of a session.
type Document struct {
	Name string
	Data []byte
}

func (d *Document) Empty() bool {
	return d == nil || len(d.Data) == 0
}

// PageImage is one rendered preview page. Number is 1-based.
type PageImage struct {
	Number int
	PNG    []byte
	Text   string
}

// Table is the row/column structure parsed from a model response.
type Table struct {
	Columns []string
	Rows    [][]string
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Extraction is the outcome of one successful extract action.
type Extraction struct {
	Fields   string
	Raw      string
	Table    *Table
	XLSX     []byte
	Created  time.Time
	FileName string
}
