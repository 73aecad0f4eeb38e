package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDelimited_QuotedDelimiters(t *testing.T) {
	rows := ParseDelimited("Timestamp,Name\n12/15/2025 21:41:07,\"Doe, Jane\"\n")

	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Timestamp", "Name"}, rows[0])
	assert.Equal(t, []string{"12/15/2025 21:41:07", "Doe, Jane"}, rows[1])
}

func TestParseDelimited_EscapedQuoteAndNewlineInCell(t *testing.T) {
	rows := ParseDelimited("a,b\r\n\"say \"\"hi\"\"\",\"two\nlines\"\r\n")

	require.Len(t, rows, 2)
	assert.Equal(t, `say "hi"`, rows[1][0])
	assert.Equal(t, "two\nlines", rows[1][1])
}

func TestParseDelimited_DropsBlankRowsAndTrims(t *testing.T) {
	rows := ParseDelimited("h1, h2\n,\n   \n x , y \n\n")

	require.Len(t, rows, 2)
	assert.Equal(t, []string{"h1", "h2"}, rows[0])
	assert.Equal(t, []string{"x", "y"}, rows[1])
}

func TestParseDelimited_NoTrailingNewline(t *testing.T) {
	rows := ParseDelimited("a,b\nc,d")
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}}, rows)
}

func TestLocateColumns_OrderIndependent(t *testing.T) {
	layout := locateColumns([]string{"Portion Type", "Pepper Level", "Name or Nickname", "Timestamp"})

	assert.Equal(t, columnLayout{Timestamp: 3, Name: 2, Spice: 1, Portion: 0}, layout)
}

func TestLocateColumns_CaseInsensitive(t *testing.T) {
	layout := locateColumns([]string{"DATE", "NICKNAME", "SPICE", "SIZE"})

	assert.Equal(t, columnLayout{Timestamp: 0, Name: 1, Spice: 2, Portion: 3}, layout)
}

func TestLocateColumns_FallsBackToPositions(t *testing.T) {
	layout := locateColumns([]string{"a", "b", "c", "d"})

	assert.Equal(t, columnLayout{Timestamp: 0, Name: 1, Spice: 2, Portion: 3}, layout)
}
