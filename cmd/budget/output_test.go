package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_AlignsStyledCells(t *testing.T) {
	const (
		red  = "\x1b[38;2;255;107;107m-120.00\x1b[0m"
		bold = "\x1b[1mNet\x1b[0m"
	)

	tests := []struct {
		name string
		rows [][]string
	}{
		{
			name: "styled amount next to plain amounts",
			rows: [][]string{
				{"cc_payment", red, "#1"},
				{"income", "1500.00", "#2"},
			},
		},
		{
			name: "styled label in the first column",
			rows: [][]string{
				{"transfer_to_savings", "-300.00", "#1"},
				{bold, red, "#2"},
			},
		},
		{
			name: "short row is padded",
			rows: [][]string{
				{"expense", "-50.00", "#1"},
				{"other", "0.00"},
				{"interest", red, "#3"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			tbl := newTable(&out)
			tbl.header("Kind", "Total", "Count")
			for _, r := range tt.rows {
				tbl.row(r...)
			}
			require.NoError(t, tbl.flush())

			lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
			require.Len(t, lines, len(tt.rows)+2)

			width := lipgloss.Width(lines[0])
			for _, line := range lines {
				assert.Equal(t, width, lipgloss.Width(line), "%q", line)
			}

			column := -1
			for _, line := range lines[2:] {
				i := strings.Index(line, "#")
				if i < 0 {
					continue
				}
				at := lipgloss.Width(line[:i])
				if column < 0 {
					column = at
				}
				assert.Equal(t, column, at, "%q", line)
			}
			assert.Positive(t, column)
		})
	}
}

func TestTable_FlushResetsRows(t *testing.T) {
	var out bytes.Buffer
	tbl := newTable(&out)
	tbl.row("a", "b")
	require.NoError(t, tbl.flush())
	require.NoError(t, tbl.flush())
	assert.Equal(t, "a  b\n", out.String())
}
