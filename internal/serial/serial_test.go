package serial

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	testCases := []struct {
		name     string
		prefix   string
		start    string
		suffix   string
		total    int
		expected []string
	}{
		{
			name:     "padded start",
			prefix:   "A",
			start:    "007",
			suffix:   "X",
			total:    3,
			expected: []string{"A-007-X", "A-008-X", "A-009-X"},
		},
		{
			name:     "crosses width",
			prefix:   "P",
			start:    "99",
			suffix:   "S",
			total:    2,
			expected: []string{"P-99-S", "P-100-S"},
		},
		{
			name:     "zero devices",
			prefix:   "P",
			start:    "1",
			suffix:   "S",
			total:    0,
			expected: []string{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Generate(tc.prefix, tc.start, tc.suffix, tc.total)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestGenerate_Errors(t *testing.T) {
	_, err := Generate("A", "abc", "X", 1)
	assert.Error(t, err)

	_, err = Generate("A", "001", "X", -1)
	assert.Error(t, err)

	_, err = Generate("A", "9223372036854775807", "X", 2)
	assert.ErrorIs(t, err, ErrOutOfRange)

	got, err := Generate("A", "9223372036854775806", "X", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"A-9223372036854775806-X", "A-9223372036854775807-X"}, got)
}

func TestLast(t *testing.T) {
	last, err := Last(7, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(9), last)

	last, err = Last(math.MaxInt64, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), last)

	_, err = Last(math.MaxInt64-1, 3)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestEnd(t *testing.T) {
	assert.Equal(t, "009", End("007", "3"))
	// Grow-width policy: the pad never truncates.
	assert.Equal(t, "100", End("99", "2"))
	assert.Equal(t, "0005", End("0001", "5"))
	assert.Equal(t, "", End("", "5"))
	assert.Equal(t, "", End("001", "x"))
	assert.Equal(t, "", End("001", "0"))
	assert.Equal(t, "", End("-5", "2"))
	assert.Equal(t, "", End("0", "-9223372036854775807"))
	assert.Equal(t, "", End("9223372036854775807", "2"))
	assert.Equal(t, "9223372036854775807", End("9223372036854775807", "1"))
}

func TestZeroPad(t *testing.T) {
	assert.Equal(t, "042", ZeroPad(42, 3))
	assert.Equal(t, "1000", ZeroPad(1000, 3))
	assert.Equal(t, "0", ZeroPad(0, 0))
	assert.Equal(t, "-1", ZeroPad(-1, 1))
	assert.Equal(t, "-01", ZeroPad(-1, 3))
	assert.Equal(t, "-9223372036854775808", ZeroPad(math.MinInt64, 4))
}

func TestSplitManual(t *testing.T) {
	input := "SN-1\nSN-2\n\n  \nSN-1\r\n  SN-3  \n"
	got := SplitManual(input)
	assert.Equal(t, []string{"SN-1", "SN-2", "SN-1", "SN-3"}, got)

	// Pasting the same block twice keeps every line, duplicates included.
	twice := SplitManual("A\nB\n\n\nA\nB")
	assert.Equal(t, []string{"A", "B", "A", "B"}, twice)

	assert.Empty(t, SplitManual("\n \n"))
}
