// Package serial generates the serial-number sequences attached to a job.
package serial

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"device-tracking-backend/internal/validate"
)

// ErrOutOfRange is returned when the last number of a sequence does not fit
// in an int64.
var ErrOutOfRange = errors.New("serial numbers out of range")

// ZeroPad renders n with leading zeros up to width digits. A value that
// already has width or more digits is returned unpadded; it is never
// truncated, so 99+1 at width 2 becomes "100".
func ZeroPad(n int64, width int) string {
	if width < 1 {
		width = 1
	}
	if n >= 0 {
		return fmt.Sprintf("%0*d", width, n)
	}
	digits := strconv.FormatUint(uint64(-(n+1))+1, 10)
	if pad := width - 1 - len(digits); pad > 0 {
		digits = strings.Repeat("0", pad) + digits
	}
	return "-" + digits
}

// Last returns the number of the last serial in a sequence of total
// starting at first, or ErrOutOfRange when it overflows.
func Last(first int64, total int) (int64, error) {
	if total <= 0 {
		return first, nil
	}
	if first > math.MaxInt64-int64(total-1) {
		return 0, ErrOutOfRange
	}
	return first + int64(total-1), nil
}

// Format joins the three parts of an automatically generated serial.
func Format(prefix string, number int64, width int, suffix string) string {
	return prefix + "-" + ZeroPad(number, width) + "-" + suffix
}

// Generate returns total serials starting at start. The length of start
// fixes the zero-padding width.
func Generate(prefix, start, suffix string, total int) ([]string, error) {
	if total < 0 {
		return nil, fmt.Errorf("total devices must not be negative, got %d", total)
	}
	first, err := strconv.ParseInt(start, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid start %q: %w", start, err)
	}
	if first < 0 {
		return nil, fmt.Errorf("invalid start %q: must not be negative", start)
	}
	if _, err := Last(first, total); err != nil {
		return nil, fmt.Errorf("start %q with %d devices: %w", start, total, err)
	}

	width := len(start)
	out := make([]string, total)
	for i := 0; i < total; i++ {
		out[i] = Format(prefix, first+int64(i), width, suffix)
	}
	return out, nil
}

// End is the last number of an automatic sequence, as shown on the form.
// It is empty unless start is all digits and total is a positive count
// whose last number fits.
func End(start, total string) string {
	start = strings.TrimSpace(start)
	if !validate.IsDigits(start) {
		return ""
	}
	s, err := strconv.ParseInt(start, 10, 64)
	if err != nil {
		return ""
	}
	t, err := strconv.Atoi(strings.TrimSpace(total))
	if err != nil || t < 1 {
		return ""
	}
	last, err := Last(s, t)
	if err != nil {
		return ""
	}
	return ZeroPad(last, len(start))
}

// SplitManual turns pasted input into one serial per non-blank line, trimmed,
// keeping order and duplicates.
func SplitManual(input string) []string {
	var out []string
	for _, line := range strings.Split(input, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			out = append(out, s)
		}
	}
	return out
}
