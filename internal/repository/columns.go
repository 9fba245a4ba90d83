// Package repository implements data persistence using PostgreSQL.
package repository

import (
	"strconv"
	"strings"
)

// LeadCaptureColumns defines the columns for the lead_captures table. The
// list must match the database schema exactly; queries derive their column
// lists and placeholders from it so the two cannot drift.
var LeadCaptureColumns = TableColumns{
	TableName: "lead_captures",
	Columns: []string{
		"id",
		"session_key",
		"name",
		"business_name",
		"email",
		"phone",
		"trade",
		"team_size",
		"call_handling",
		"call_volume_display",
		"ticket_value_display",
		"hesitation",
		"missed_calls",
		"potential_loss",
		"qualification_notes",
		"is_qualified",
		"captured_at",
		"is_partial",
	},
}

// TableColumns holds a table name and its column list, with helpers for
// building queries.
type TableColumns struct {
	TableName string
	Columns   []string
}

// Select returns a comma-separated column list.
func (tc TableColumns) Select() string {
	return strings.Join(tc.Columns, ", ")
}

// Placeholders returns numbered placeholders for the columns.
// Example: "$1, $2, $3, $4" for 4 columns
func (tc TableColumns) Placeholders() string {
	placeholders := make([]string, len(tc.Columns))
	for i := range tc.Columns {
		placeholders[i] = "$" + strconv.Itoa(i+1)
	}
	return strings.Join(placeholders, ", ")
}

// InsertColumns returns a comma-separated list of columns for INSERT queries.
// Same as Select() but explicitly named for clarity.
func (tc TableColumns) InsertColumns() string {
	return tc.Select()
}

// Count returns the number of columns.
func (tc TableColumns) Count() int {
	return len(tc.Columns)
}
