package catalog

import (
	"math"
	"strconv"
	"strings"

	"device-tracking-backend/internal/validate"
)

// DeviceType discriminates the calibration field set of a configuration.
type DeviceType string

const (
	MultiMode  DeviceType = "MM"
	SingleMode DeviceType = "SM"
)

// FieldType is the input type of a catalog field.
type FieldType string

const (
	Text   FieldType = "text"
	Number FieldType = "number"
)

// Scope marks which device type a field belongs to.
type Scope string

const (
	ScopeMM   Scope = "MM"
	ScopeSM   Scope = "SM"
	ScopeBoth Scope = "both"
)

// Keys of the fields every configuration carries.
const (
	KeyName            = "name"
	KeyHardwareVersion = "hardwareVersion"
	KeyADCResolution   = "adcResolution"
	KeyUniqueDeviceID  = "uniqueDeviceId"
	KeyTIARegister     = "tiaRegister"
	KeyDeviceType      = "deviceType"
	KeyCreatedOn       = "createdOn"
)

// Field is one entry of the catalog.
type Field struct {
	Key   string    `json:"key"`
	Label string    `json:"label"`
	Type  FieldType `json:"type"`
	Scope Scope     `json:"scope"`
}

var fields = []Field{
	{KeyName, "Configuration Name", Text, ScopeBoth},
	{KeyHardwareVersion, "Hardware Version", Text, ScopeBoth},
	{KeyADCResolution, "ADC Resolution", Number, ScopeBoth},
	{KeyUniqueDeviceID, "Unique Device ID", Text, ScopeBoth},

	{"autoTestLongLengthConfig_LR1300", "Auto Test Long Length Config (LR 1300)", Number, ScopeMM},
	{"autoTestLongLengthConfig_LR850", "Auto Test Long Length Config (LR 850)", Number, ScopeMM},
	{"autoTestLongLengthConfig_UR1300", "Auto Test Long Length Config (UR 1300)", Number, ScopeMM},
	{"autoTestLongLengthConfig_UR850", "Auto Test Long Length Config (UR 850)", Number, ScopeMM},
	{"autoTestShortLengthConfig_LR1300", "Auto Test Short Length Config (LR 1300)", Number, ScopeMM},
	{"autoTestShortLengthConfig_LR850", "Auto Test Short Length Config (LR 850)", Number, ScopeMM},
	{"autoTestShortLengthConfig_UR1300", "Auto Test Short Length Config (UR 1300)", Number, ScopeMM},
	{"autoTestShortLengthConfig_UR850", "Auto Test Short Length Config (UR 850)", Number, ScopeMM},
	{"autotestLongLossConfig_LR1300", "Auto Test Long Loss Config (LR 1300)", Number, ScopeMM},
	{"autotestLongLossConfig_LR850", "Auto Test Long Loss Config (LR 850)", Number, ScopeMM},
	{"autotestLongLossConfig_UR1300", "Auto Test Long Loss Config (UR 1300)", Number, ScopeMM},
	{"autotestLongLossConfig_UR850", "Auto Test Long Loss Config (UR 850)", Number, ScopeMM},
	{"autotestShortLossConfig_LR1300", "Auto Test Short Loss Config (LR 1300)", Number, ScopeMM},
	{"autotestShortLossConfig_LR850", "Auto Test Short Loss Config (LR 850)", Number, ScopeMM},
	{"autotestShortLossConfig_UR1300", "Auto Test Short Loss Config (UR 1300)", Number, ScopeMM},
	{"autotestShortLossConfig_UR850", "Auto Test Short Loss Config (UR 850)", Number, ScopeMM},
	{"setRefLossConfig_LR850", "Set Reference Loss Config (LR 850)", Number, ScopeMM},
	{"setRefLossConfig_LR1300", "Set Reference Loss Config (LR 1300)", Number, ScopeMM},
	{"setRefLossConfig_UR1300", "Set Reference Loss Config (UR 1300)", Number, ScopeMM},
	{"setRefLossConfig_UR850", "Set Reference Loss Config (UR 850)", Number, ScopeMM},
	{"responsivity850", "Responsivity @ 850 nm", Number, ScopeMM},
	{"responsivity1300", "Responsivity @ 1300 nm", Number, ScopeMM},

	{"autoTestLongLengthConfig_LR1310", "Auto Test Long Length Config (LR 1310)", Number, ScopeSM},
	{"autoTestLongLengthConfig_LR1550", "Auto Test Long Length Config (LR 1550)", Number, ScopeSM},
	{"autoTestLongLengthConfig_UR1310", "Auto Test Long Length Config (UR 1310)", Number, ScopeSM},
	{"autoTestLongLengthConfig_UR1550", "Auto Test Long Length Config (UR 1550)", Number, ScopeSM},
	{"autoTestShortLengthConfig_LR1310", "Auto Test Short Length Config (LR 1310)", Number, ScopeSM},
	{"autoTestShortLengthConfig_LR1550", "Auto Test Short Length Config (LR 1550)", Number, ScopeSM},
	{"autoTestShortLengthConfig_UR1310", "Auto Test Short Length Config (UR 1310)", Number, ScopeSM},
	{"autoTestShortLengthConfig_UR1550", "Auto Test Short Length Config (UR 1550)", Number, ScopeSM},
	{"autotestLongLossConfig_LR1310", "Auto Test Long Loss Config (LR 1310)", Number, ScopeSM},
	{"autotestLongLossConfig_LR1550", "Auto Test Long Loss Config (LR 1550)", Number, ScopeSM},
	{"autotestLongLossConfig_UR1310", "Auto Test Long Loss Config (UR 1310)", Number, ScopeSM},
	{"autotestLongLossConfig_UR1550", "Auto Test Long Loss Config (UR 1550)", Number, ScopeSM},
	{"autotestShortLossConfig_LR1310", "Auto Test Short Loss Config (LR 1310)", Number, ScopeSM},
	{"autotestShortLossConfig_LR1550", "Auto Test Short Loss Config (LR 1550)", Number, ScopeSM},
	{"autotestShortLossConfig_UR1310", "Auto Test Short Loss Config (UR 1310)", Number, ScopeSM},
	{"autotestShortLossConfig_UR1550", "Auto Test Short Loss Config (UR 1550)", Number, ScopeSM},
	{"setRefLossConfig_LR1310", "Set Reference Loss Config (LR 1310)", Number, ScopeSM},
	{"setRefLossConfig_LR1550", "Set Reference Loss Config (LR 1550)", Number, ScopeSM},
	{"setRefLossConfig_UR1310", "Set Reference Loss Config (UR 1310)", Number, ScopeSM},
	{"setRefLossConfig_UR1550", "Set Reference Loss Config (UR 1550)", Number, ScopeSM},
	{"responsivity1310", "Responsivity @ 1310 nm", Number, ScopeSM},
	{"responsivity1550", "Responsivity @ 1550 nm", Number, ScopeSM},
}

var systemLabels = map[string]string{
	KeyTIARegister: "TIA Register",
	KeyDeviceType:  "Device Type",
	KeyCreatedOn:   "Created On",
}

var index = func() map[string]int {
	m := make(map[string]int, len(fields))
	for i, f := range fields {
		m[f.Key] = i
	}
	return m
}()

// tiaRegisters holds the fixed TIA register value per device type.
var tiaRegisters = map[DeviceType]float64{
	MultiMode:  124000,
	SingleMode: 1240,
}

// ValidDeviceType reports whether dt is MM or SM.
func ValidDeviceType(dt DeviceType) bool {
	_, ok := tiaRegisters[dt]
	return ok
}

// TIARegister returns the TIA register constant for dt.
func TIARegister(dt DeviceType) (float64, bool) {
	v, ok := tiaRegisters[dt]
	return v, ok
}

// All returns a copy of the whole catalog in order.
func All() []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

// Lookup returns the catalog entry for key.
func Lookup(key string) (Field, bool) {
	i, ok := index[key]
	if !ok {
		return Field{}, false
	}
	return fields[i], true
}

// Label returns the display label of any catalog or system key.
func Label(key string) string {
	if f, ok := Lookup(key); ok {
		return f.Label
	}
	if l, ok := systemLabels[key]; ok {
		return l
	}
	return key
}

// Common returns the fields shared by every device type.
func Common() []Field {
	return filter(func(f Field) bool { return f.Scope == ScopeBoth })
}

// Scoped returns only the fields that belong to dt.
func Scoped(dt DeviceType) []Field {
	return filter(func(f Field) bool { return string(f.Scope) == string(dt) })
}

// Visible returns the common fields followed by the fields scoped to dt.
func Visible(dt DeviceType) []Field {
	return filter(func(f Field) bool {
		return f.Scope == ScopeBoth || string(f.Scope) == string(dt)
	})
}

// IsVisible reports whether key is shown for dt.
func IsVisible(dt DeviceType, key string) bool {
	f, ok := Lookup(key)
	return ok && (f.Scope == ScopeBoth || string(f.Scope) == string(dt))
}

// OrderedKeys is the display order of a configuration document: common
// fields, system fields, scoped fields, then createdOn.
func OrderedKeys(dt DeviceType) []string {
	keys := make([]string, 0, len(fields)/2+4)
	for _, f := range Common() {
		keys = append(keys, f.Key)
	}
	keys = append(keys, KeyTIARegister, KeyDeviceType)
	for _, f := range Scoped(dt) {
		keys = append(keys, f.Key)
	}
	return append(keys, KeyCreatedOn)
}

func filter(keep func(Field) bool) []Field {
	var out []Field
	for _, f := range fields {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}

// ParseNumber parses a number field value.
func ParseNumber(value string) (float64, error) {
	n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}

// ValidateField returns the message for an invalid value, or "".
func ValidateField(f Field, value string) string {
	if strings.TrimSpace(value) == "" {
		return validate.MsgRequired
	}
	switch f.Type {
	case Text:
		if validate.HasSpace(value) {
			return validate.MsgNoSpaces
		}
	case Number:
		n, err := ParseNumber(value)
		if err != nil {
			return validate.MsgNumber
		}
		if n < 0 {
			return validate.MsgNonNeg
		}
	}
	return ""
}

// Validate checks every visible field of dt in catalog order. Values for
// fields outside the visible set are ignored.
func Validate(dt DeviceType, values map[string]string) validate.Errors {
	var errs validate.Errors
	for _, f := range Visible(dt) {
		if msg := ValidateField(f, values[f.Key]); msg != "" {
			errs.Add(f.Key, msg)
		}
	}
	return errs
}
