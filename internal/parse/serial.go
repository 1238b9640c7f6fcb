package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"device-tracking-backend/internal/serial"
)

var digitsRe = regexp.MustCompile(`^\d+$`)

// ParsedSerial holds the parts of an automatically generated serial.
type ParsedSerial struct {
	Prefix string
	Number string // digits as stored, padding included
	Value  int64
	Suffix string
}

// ParseSerial splits a "prefix-number-suffix" serial. Only the middle part
// has to be numeric; anything after the second dash belongs to the suffix.
func ParseSerial(raw string) (ParsedSerial, error) {
	parts := strings.Split(raw, "-")
	if len(parts) < 2 || !digitsRe.MatchString(parts[1]) {
		return ParsedSerial{}, fmt.Errorf("unable to parse serial: %q", raw)
	}

	n, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return ParsedSerial{}, fmt.Errorf("serial number out of range in %q: %w", raw, err)
	}

	return ParsedSerial{
		Prefix: parts[0],
		Number: parts[1],
		Value:  n,
		Suffix: strings.Join(parts[2:], "-"),
	}, nil
}

// NextStart returns the start value that continues a sequence: the largest
// parsed number plus one, padded to the width of the first parsed number.
// ok is false when no serial in the list parses.
func NextStart(serials []string) (string, bool) {
	width := 0
	var max int64 = -1
	for _, s := range serials {
		p, err := ParseSerial(s)
		if err != nil {
			continue
		}
		if width == 0 {
			width = len(p.Number)
		}
		if p.Value > max {
			max = p.Value
		}
	}
	if width == 0 {
		return "", false
	}
	return serial.ZeroPad(max+1, width), true
}
