// Package configs implements the create, edit and view flows over
// calibration configurations.
package configs

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"device-tracking-backend/internal/catalog"
	"device-tracking-backend/internal/model"
	"device-tracking-backend/internal/store"
	"device-tracking-backend/internal/validate"
)

// FieldView is one labelled row of a configuration's info page.
type FieldView struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// Manager owns the Configurations collection.
type Manager struct {
	store store.Store
	loc   *time.Location
	log   *zap.Logger
}

// NewManager creates a Manager that renders times in loc.
func NewManager(s store.Store, loc *time.Location, log *zap.Logger) *Manager {
	if loc == nil {
		loc = time.UTC
	}
	return &Manager{store: s, loc: loc, log: log}
}

// Create validates values against the fields visible for deviceType and
// writes a new configuration. A validate.Errors is returned when any field
// fails; nothing is written in that case.
func (m *Manager) Create(ctx context.Context, deviceType string, values map[string]string) (*model.Configuration, error) {
	dt := catalog.DeviceType(deviceType)
	if !catalog.ValidDeviceType(dt) {
		var errs validate.Errors
		errs.Add(catalog.KeyDeviceType, validate.MsgChoice)
		return nil, errs
	}
	if errs := catalog.Validate(dt, values); len(errs) > 0 {
		return nil, errs
	}

	tia, _ := catalog.TIARegister(dt)
	cfg := &model.Configuration{
		DeviceType:  deviceType,
		TIARegister: tia,
		Calibration: datatypes.JSONMap{},
	}
	applyCommon(cfg, values)
	for _, f := range catalog.Scoped(dt) {
		n, _ := catalog.ParseNumber(values[f.Key])
		cfg.Calibration[f.Key] = n
	}

	if err := m.store.CreateConfiguration(ctx, cfg); err != nil {
		m.log.Error("failed to add configuration", zap.String("name", cfg.Name), zap.Error(err))
		return nil, err
	}
	m.log.Info("configuration created", zap.String("id", cfg.ID), zap.String("deviceType", deviceType))
	return cfg, nil
}

// Update merges values over the stored configuration, validates the result
// with the field set of the stored device type and writes the common and
// scoped fields back. Device type, TIA register and creation time are never
// changed, whatever values contains.
func (m *Manager) Update(ctx context.Context, id string, values map[string]string) (*model.Configuration, error) {
	current, err := m.store.GetConfiguration(ctx, id)
	if err != nil {
		return nil, err
	}
	dt := catalog.DeviceType(current.DeviceType)

	merged := formValues(current)
	for _, f := range catalog.Visible(dt) {
		if v, ok := values[f.Key]; ok {
			merged[f.Key] = v
		}
	}
	if errs := catalog.Validate(dt, merged); len(errs) > 0 {
		return nil, errs
	}

	next := &model.Configuration{}
	applyCommon(next, merged)

	calibration := datatypes.JSONMap{}
	for k, v := range current.Calibration {
		calibration[k] = v
	}
	for _, f := range catalog.Scoped(dt) {
		n, _ := catalog.ParseNumber(merged[f.Key])
		calibration[f.Key] = n
	}

	fields := map[string]any{
		"name":             next.Name,
		"hardware_version": next.HardwareVersion,
		"adc_resolution":   next.ADCResolution,
		"unique_device_id": next.UniqueDeviceID,
		"calibration":      calibration,
	}
	if err := m.store.UpdateConfiguration(ctx, id, fields); err != nil {
		m.log.Error("failed to update configuration", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	current.Name = next.Name
	current.HardwareVersion = next.HardwareVersion
	current.ADCResolution = next.ADCResolution
	current.UniqueDeviceID = next.UniqueDeviceID
	current.Calibration = calibration
	return current, nil
}

func (m *Manager) Get(ctx context.Context, id string) (*model.Configuration, error) {
	return m.store.GetConfiguration(ctx, id)
}

// List returns every configuration, newest first.
func (m *Manager) List(ctx context.Context) ([]model.Configuration, error) {
	return m.store.ListConfigurations(ctx)
}

// View returns the configuration's fields in display order. Keys the
// document does not carry are left out.
func (m *Manager) View(ctx context.Context, id string) ([]FieldView, error) {
	cfg, err := m.store.GetConfiguration(ctx, id)
	if err != nil {
		return nil, err
	}
	doc := cfg.Document()

	var rows []FieldView
	for _, key := range catalog.OrderedKeys(catalog.DeviceType(cfg.DeviceType)) {
		v, ok := doc[key]
		if !ok {
			continue
		}
		var value string
		if key == catalog.KeyCreatedOn {
			value = m.FormatTime(cfg.CreatedOn)
		} else {
			value = formatValue(v)
		}
		rows = append(rows, FieldView{Key: key, Label: catalog.Label(key), Value: value})
	}
	return rows, nil
}

// EditForm returns the initial values of the edit page together with the
// fields it shows.
func (m *Manager) EditForm(ctx context.Context, id string) (*model.Configuration, map[string]string, []catalog.Field, error) {
	cfg, err := m.store.GetConfiguration(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, formValues(cfg), catalog.Visible(catalog.DeviceType(cfg.DeviceType)), nil
}

// FormatTime renders t in the display timezone.
func (m *Manager) FormatTime(t time.Time) string {
	return model.FormatTime(t, m.loc)
}

func applyCommon(cfg *model.Configuration, values map[string]string) {
	cfg.Name = strings.TrimSpace(values[catalog.KeyName])
	cfg.HardwareVersion = strings.TrimSpace(values[catalog.KeyHardwareVersion])
	cfg.ADCResolution, _ = catalog.ParseNumber(values[catalog.KeyADCResolution])
	cfg.UniqueDeviceID = strings.TrimSpace(values[catalog.KeyUniqueDeviceID])
}

// formValues stringifies every visible field the document carries.
func formValues(cfg *model.Configuration) map[string]string {
	doc := cfg.Document()
	out := make(map[string]string)
	for _, f := range catalog.Visible(catalog.DeviceType(cfg.DeviceType)) {
		if v, ok := doc[f.Key]; ok {
			out[f.Key] = formatValue(v)
		}
	}
	return out
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(x)
	}
}
