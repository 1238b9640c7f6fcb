package model

import (
	"time"

	"gorm.io/datatypes"
)

// JobStatusDraft is the status every job is created with.
const JobStatusDraft = "DRAFT"

// SerialEntry is one device of a job. ManufacturedOn is filled in later by
// the manufacturing line.
type SerialEntry struct {
	Serial         string     `json:"serial"`
	ManufacturedOn *time.Time `json:"manufacturedOn"`
}

// Job is a manufacturing batch.
type Job struct {
	ID                string                           `gorm:"primaryKey;size:36" json:"id"`
	JobID             int64                            `gorm:"not null;index" json:"jobId"`
	Name              string                           `gorm:"size:256;not null;index" json:"name"`
	JobType           string                           `gorm:"size:8;not null" json:"jobType"`
	SerialNumber      datatypes.JSONSlice[SerialEntry] `json:"serialNumber"`
	FinalSerialNumber datatypes.JSONSlice[SerialEntry] `json:"finalSerialNumber"`
	NoOfDevices       int                              `gorm:"not null" json:"noOfDevices"`
	JobStatus         string                           `gorm:"size:32;not null" json:"jobStatus"`
	CreatedOn         time.Time                        `gorm:"not null;index" json:"createdOn"`
}

// Serials returns the primary serial strings.
func (j *Job) Serials() []string {
	return serialStrings(j.SerialNumber)
}

// FinalSerials returns the final serial strings.
func (j *Job) FinalSerials() []string {
	return serialStrings(j.FinalSerialNumber)
}

// Manufactured counts the primary entries that have a manufacture time.
func (j *Job) Manufactured() int {
	n := 0
	for _, e := range j.SerialNumber {
		if e.ManufacturedOn != nil {
			n++
		}
	}
	return n
}

func serialStrings(entries []SerialEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Serial
	}
	return out
}

// NewSerialEntries wraps serial strings as not-yet-manufactured entries.
func NewSerialEntries(serials []string) datatypes.JSONSlice[SerialEntry] {
	out := make(datatypes.JSONSlice[SerialEntry], len(serials))
	for i, s := range serials {
		out[i] = SerialEntry{Serial: s}
	}
	return out
}
