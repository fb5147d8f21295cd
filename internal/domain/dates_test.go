package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{input: "2024-02-29"},
		{input: "1999-12-31"},
		{input: "2023-02-29", wantErr: true},
		{input: "2024-2-01", wantErr: true},
		{input: "2024-02-01T00:00:00Z", wantErr: true},
		{input: "01/02/2024", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDateFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, got)
		})
	}
}

func TestPrevDay(t *testing.T) {
	got, err := PrevDay("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", got)

	got, err = PrevDay("2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, "2023-12-31", got)

	_, err = PrevDay("yesterday")
	assert.ErrorIs(t, err, ErrInvalidDateFormat)
}

func TestParseMonth(t *testing.T) {
	tests := []struct {
		input    string
		expected Month
		wantErr  bool
	}{
		{input: "2024-03", expected: "2024-03"},
		{input: "2024-03-01", expected: "2024-03"},
		{input: "2024-13", wantErr: true},
		{input: "2024-3", wantErr: true},
		{input: "2024-02-30", wantErr: true},
		{input: "March", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMonth(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDateFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestMonth_Navigation(t *testing.T) {
	m := Month("2024-01")

	assert.Equal(t, Month("2023-12"), m.Prev())
	assert.Equal(t, Month("2024-02"), m.Next())
	assert.Equal(t, "2024-01-01", m.FirstDay())
	assert.Equal(t, "2024-01-31", m.LastDay())
	assert.Equal(t, "2024-02-29", Month("2024-02").LastDay())
	assert.Equal(t, 1, m.MonthNumber())
	assert.True(t, m.Contains("2024-01-31"))
	assert.False(t, m.Contains("2024-02-01"))
	assert.Equal(t, Month("2024-05"), MonthOf("2024-05-17"))
}

func TestMonthsBetween(t *testing.T) {
	assert.Equal(t, []Month{"2023-11", "2023-12", "2024-01"}, MonthsBetween("2023-11", "2024-01"))
	assert.Equal(t, []Month{"2024-01"}, MonthsBetween("2024-01", "2024-01"))
	assert.Nil(t, MonthsBetween("2024-02", "2024-01"))
}
