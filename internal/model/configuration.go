package model

import (
	"time"

	"gorm.io/datatypes"
)

// Configuration is a named calibration parameter set for one device type.
// The device-type scoped fields live in Calibration, keyed by catalog key.
type Configuration struct {
	ID              string            `gorm:"primaryKey;size:36" json:"id"`
	Name            string            `gorm:"size:256;not null;index" json:"name"`
	HardwareVersion string            `gorm:"size:128;not null" json:"hardwareVersion"`
	ADCResolution   float64           `gorm:"not null" json:"adcResolution"`
	UniqueDeviceID  string            `gorm:"size:128;not null" json:"uniqueDeviceId"`
	DeviceType      string            `gorm:"size:8;not null" json:"deviceType"`
	TIARegister     float64           `gorm:"not null" json:"tiaRegister"`
	Calibration     datatypes.JSONMap `json:"calibration"`
	CreatedOn       time.Time         `gorm:"not null;index" json:"createdOn"`
}

// Document flattens the configuration into a single key/value map, the
// shape the views and the API expose.
func (c *Configuration) Document() map[string]any {
	doc := make(map[string]any, len(c.Calibration)+7)
	for k, v := range c.Calibration {
		doc[k] = v
	}
	doc["name"] = c.Name
	doc["hardwareVersion"] = c.HardwareVersion
	doc["adcResolution"] = c.ADCResolution
	doc["uniqueDeviceId"] = c.UniqueDeviceID
	doc["deviceType"] = c.DeviceType
	doc["tiaRegister"] = c.TIARegister
	doc["createdOn"] = c.CreatedOn
	return doc
}
