package dataprocessing

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRecords(t *testing.T) {
	header, rows, err := ReadRecords(strings.NewReader("\ufeff POSITION_T ,a\n0,1\n1\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"POSITION_T", "a"}, header)
	assert.Equal(t, [][]string{{"0", "1"}, {"1"}}, rows)
	assert.Equal(t, 1, HeaderIndex(header, "a"))
	assert.Equal(t, -1, HeaderIndex(header, "b"))
	assert.Equal(t, "", Cell(rows[1], 1))

	_, _, err = ReadRecords(strings.NewReader(""))
	assert.Error(t, err)
}

func TestParseWhole(t *testing.T) {
	tests := []struct {
		input string
		want  int
		ok    bool
	}{
		{"3", 3, true},
		{" 3.0 ", 3, true},
		{"-2", -2, true},
		{"2.5", 0, false},
		{"Frame", 0, false},
		{"", 0, false},
		{"1e12", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseWhole(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, 1.5, ParseValue(" 1.5 "))
	assert.True(t, math.IsNaN(ParseValue("")))
	assert.True(t, math.IsNaN(ParseValue("n/a")))
}
