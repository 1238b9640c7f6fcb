// Package jobs implements job creation: the two serial sequences of a job
// form, continuation of a previous job's numbering and jobId allocation.
package jobs

import (
	"fmt"
	"strconv"
	"strings"

	"device-tracking-backend/internal/catalog"
	"device-tracking-backend/internal/serial"
	"device-tracking-backend/internal/validate"
)

// Mode selects how a sequence's serials are produced.
type Mode string

const (
	Automatic Mode = "automatic"
	Manual    Mode = "manual"
)

// Form keys, as posted by the create-job page.
const (
	KeyMode                   = "mode"
	KeyFinalMode              = "finalMode"
	KeyJobName                = "jobName"
	KeyJobType                = "jobType"
	KeyPrefix                 = "prefix"
	KeySuffix                 = "suffix"
	KeyStart                  = "start"
	KeyTotalDevices           = "totalDevices"
	KeyManualSerialInput      = "manualSerialInput"
	KeyFinalPrefix            = "finalPrefix"
	KeyFinalSuffix            = "finalSuffix"
	KeyFinalStart             = "finalStart"
	KeyFinalTotalDevices      = "finalTotalDevices"
	KeyManualFinalSerialInput = "manualFinalSerialInput"
)

// FieldOrder is the order fields are validated and focused in.
var FieldOrder = []string{
	KeyMode, KeyFinalMode,
	KeyJobName, KeyJobType,
	KeyPrefix, KeySuffix, KeyStart, KeyTotalDevices, KeyManualSerialInput,
	KeyFinalPrefix, KeyFinalSuffix, KeyFinalStart, KeyFinalTotalDevices, KeyManualFinalSerialInput,
}

type seqField int

const (
	fieldPrefix seqField = iota
	fieldSuffix
	fieldStart
	fieldTotal
	fieldManual
	fieldMode
)

// autoFields is what a sequence remembers while it is in manual mode.
type autoFields struct {
	Prefix       string `json:"prefix"`
	Start        string `json:"start"`
	Suffix       string `json:"suffix"`
	TotalDevices string `json:"totalDevices"`
}

// Sequence is one of the two serial sequences of a job.
type Sequence struct {
	Mode         Mode   `json:"mode"`
	Prefix       string `json:"prefix"`
	Start        string `json:"start"`
	Suffix       string `json:"suffix"`
	TotalDevices string `json:"totalDevices"`
	ManualInput  string `json:"manualInput"`

	saved autoFields
}

// SetMode switches the sequence. Leaving automatic mode stashes and clears
// the automatic fields; returning restores them. Setting the current mode
// again changes nothing.
func (s *Sequence) SetMode(m Mode) {
	if m == s.Mode {
		return
	}
	switch m {
	case Manual:
		s.saved = autoFields{Prefix: s.Prefix, Start: s.Start, Suffix: s.Suffix, TotalDevices: s.TotalDevices}
		s.Prefix, s.Start, s.Suffix, s.TotalDevices = "", "", "", ""
	case Automatic:
		s.Prefix, s.Start, s.Suffix, s.TotalDevices = s.saved.Prefix, s.saved.Start, s.saved.Suffix, s.saved.TotalDevices
	}
	s.Mode = m
}

// End is the last number of the automatic sequence, "" in manual mode or
// while start/total are incomplete.
func (s *Sequence) End() string {
	if s.Mode != Automatic {
		return ""
	}
	return serial.End(s.Start, s.TotalDevices)
}

// ManualCount is the number of serials the pasted input yields.
func (s *Sequence) ManualCount() int {
	return len(serial.SplitManual(s.ManualInput))
}

// Count is the device count shown on the form: the typed total in automatic
// mode, the manual line count otherwise.
func (s *Sequence) Count() int {
	if s.Mode == Manual {
		return s.ManualCount()
	}
	n, err := strconv.Atoi(strings.TrimSpace(s.TotalDevices))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Serials produces the sequence. The form must have been validated.
func (s *Sequence) Serials() ([]string, error) {
	if s.Mode == Manual {
		return serial.SplitManual(s.ManualInput), nil
	}
	total, err := strconv.Atoi(strings.TrimSpace(s.TotalDevices))
	if err != nil {
		return nil, fmt.Errorf("invalid total devices %q: %w", s.TotalDevices, err)
	}
	return serial.Generate(s.Prefix, s.Start, s.Suffix, total)
}

// Form is the state of a create-job page.
type Form struct {
	JobName string   `json:"jobName"`
	JobType string   `json:"jobType"`
	Primary Sequence `json:"primary"`
	Final   Sequence `json:"final"`

	// MaxDevices bounds totalDevices and finalTotalDevices.
	MaxDevices int `json:"-"`
}

// NewForm returns an empty form with both sequences in automatic mode.
func NewForm() *Form {
	return &Form{
		Primary:    Sequence{Mode: Automatic},
		Final:      Sequence{Mode: Automatic},
		MaxDevices: DefaultMaxDevices,
	}
}

// FormFromValues builds a form from posted key/values. Modes are applied
// first so the remaining values land in the right mode.
func FormFromValues(values map[string]string) (*Form, error) {
	f := NewForm()
	for _, key := range FieldOrder {
		v, ok := values[key]
		if !ok {
			continue
		}
		if err := f.Set(key, v); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *Form) locate(key string) (*Sequence, seqField, bool) {
	switch key {
	case KeyMode:
		return &f.Primary, fieldMode, true
	case KeyPrefix:
		return &f.Primary, fieldPrefix, true
	case KeySuffix:
		return &f.Primary, fieldSuffix, true
	case KeyStart:
		return &f.Primary, fieldStart, true
	case KeyTotalDevices:
		return &f.Primary, fieldTotal, true
	case KeyManualSerialInput:
		return &f.Primary, fieldManual, true
	case KeyFinalMode:
		return &f.Final, fieldMode, true
	case KeyFinalPrefix:
		return &f.Final, fieldPrefix, true
	case KeyFinalSuffix:
		return &f.Final, fieldSuffix, true
	case KeyFinalStart:
		return &f.Final, fieldStart, true
	case KeyFinalTotalDevices:
		return &f.Final, fieldTotal, true
	case KeyManualFinalSerialInput:
		return &f.Final, fieldManual, true
	}
	return nil, 0, false
}

// Set changes one field. Mode keys accept only "automatic" or "manual".
func (f *Form) Set(key, value string) error {
	switch key {
	case KeyJobName:
		f.JobName = value
		return nil
	case KeyJobType:
		f.JobType = value
		return nil
	}

	seq, field, ok := f.locate(key)
	if !ok {
		return fmt.Errorf("unknown job form field %q", key)
	}
	switch field {
	case fieldMode:
		m := Mode(value)
		if m != Automatic && m != Manual {
			return fmt.Errorf("invalid %s %q", key, value)
		}
		seq.SetMode(m)
	case fieldPrefix:
		seq.Prefix = value
	case fieldSuffix:
		seq.Suffix = value
	case fieldStart:
		seq.Start = value
	case fieldTotal:
		seq.TotalDevices = value
	case fieldManual:
		seq.ManualInput = value
	}
	return nil
}

// Value returns the current value of key.
func (f *Form) Value(key string) string {
	switch key {
	case KeyJobName:
		return f.JobName
	case KeyJobType:
		return f.JobType
	}
	seq, field, ok := f.locate(key)
	if !ok {
		return ""
	}
	switch field {
	case fieldMode:
		return string(seq.Mode)
	case fieldPrefix:
		return seq.Prefix
	case fieldSuffix:
		return seq.Suffix
	case fieldStart:
		return seq.Start
	case fieldTotal:
		return seq.TotalDevices
	default:
		return seq.ManualInput
	}
}

// Values returns every field keyed by form key.
func (f *Form) Values() map[string]string {
	out := make(map[string]string, len(FieldOrder))
	for _, key := range FieldOrder {
		out[key] = f.Value(key)
	}
	return out
}

// Active reports whether key takes part in validation under the current
// modes.
func (f *Form) Active(key string) bool {
	seq, field, ok := f.locate(key)
	if !ok || field == fieldMode {
		return true
	}
	if field == fieldManual {
		return seq.Mode == Manual
	}
	return seq.Mode == Automatic
}

// ValidateField returns the message for key's current value, or "".
// Inactive fields are always valid.
func (f *Form) ValidateField(key string) string {
	if !f.Active(key) {
		return ""
	}
	value := f.Value(key)

	switch key {
	case KeyMode, KeyFinalMode:
		if Mode(value) != Automatic && Mode(value) != Manual {
			return validate.MsgChoice
		}
	case KeyJobType:
		if strings.TrimSpace(value) == "" {
			return validate.MsgRequired
		}
		if !catalog.ValidDeviceType(catalog.DeviceType(value)) {
			return validate.MsgChoice
		}
	case KeyJobName, KeyPrefix, KeySuffix, KeyFinalPrefix, KeyFinalSuffix:
		return validateToken(value)
	case KeyStart, KeyFinalStart:
		if msg := validateToken(value); msg != "" {
			return msg
		}
		if !validate.IsDigits(value) {
			return validate.MsgDigits
		}
		seq, _, _ := f.locate(key)
		return validateRange(value, seq.TotalDevices, f.MaxDevices)
	case KeyTotalDevices, KeyFinalTotalDevices:
		return validateCount(value, f.MaxDevices)
	case KeyManualSerialInput, KeyManualFinalSerialInput:
		if strings.TrimSpace(value) == "" {
			return validate.MsgRequired
		}
		for _, line := range serial.SplitManual(value) {
			if validate.HasSpace(line) {
				return validate.MsgSerialsWS
			}
		}
	}
	return ""
}

// Validate checks every active field in FieldOrder.
func (f *Form) Validate() validate.Errors {
	var errs validate.Errors
	for _, key := range FieldOrder {
		if msg := f.ValidateField(key); msg != "" {
			errs.Add(key, msg)
		}
	}
	return errs
}

func validateToken(value string) string {
	if strings.TrimSpace(value) == "" {
		return validate.MsgRequired
	}
	if validate.HasSpace(value) {
		return validate.MsgNoSpaces
	}
	return ""
}

func validateCount(value string, limit int) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return validate.MsgRequired
	}
	n, err := catalog.ParseNumber(v)
	if err != nil || n < 0 {
		return validate.MsgNonNeg
	}
	if limit <= 0 {
		limit = DefaultMaxDevices
	}
	if n > float64(limit) {
		return validate.TooMany(limit)
	}
	if _, err := strconv.Atoi(v); err != nil {
		return validate.MsgInteger
	}
	return ""
}

// validateRange checks that a digit-only start, and the last serial it
// leads to, fit the serial number range. A total that fails its own
// validation is ignored here.
func validateRange(start, total string, limit int) string {
	first, err := strconv.ParseInt(start, 10, 64)
	if err != nil {
		return validate.MsgRange
	}
	if validateCount(total, limit) != "" {
		return ""
	}
	n, err := strconv.Atoi(strings.TrimSpace(total))
	if err != nil || n < 1 {
		return ""
	}
	if _, err := serial.Last(first, n); err != nil {
		return validate.MsgRange
	}
	return ""
}
