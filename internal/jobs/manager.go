package jobs

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"device-tracking-backend/internal/model"
	"device-tracking-backend/internal/parse"
	"device-tracking-backend/internal/store"
)

// Progress bands of the dashboard.
const (
	BandDanger  = "danger"
	BandWarning = "warning"
	BandSuccess = "success"
)

// Continuation is the numbering a new job inherits from the latest job with
// the same name. Start and FinalStart are empty when the matching sequence
// holds no parseable serial.
type Continuation struct {
	Found      bool   `json:"found"`
	JobID      int64  `json:"jobId,omitempty"`
	Start      string `json:"start"`
	FinalStart string `json:"finalStart"`
}

// DashboardRow is one job on the dashboard.
type DashboardRow struct {
	ID           string `json:"id"`
	JobID        int64  `json:"jobId"`
	Name         string `json:"name"`
	JobType      string `json:"jobType"`
	NoOfDevices  int    `json:"noOfDevices"`
	Manufactured int    `json:"manufactured"`
	Progress     int    `json:"progress"`
	Band         string `json:"band"`
	JobStatus    string `json:"jobStatus"`
	CreatedOn    string `json:"createdOn"`
}

// DeviceRow is one serial of a job's info page.
type DeviceRow struct {
	JobID          int64  `json:"jobId"`
	Serial         string `json:"serial"`
	ManufacturedOn string `json:"manufacturedOn"`
}

// JobInfo is the job info page.
type JobInfo struct {
	Job          *model.Job  `json:"job"`
	CreatedOn    string      `json:"createdOn"`
	Devices      []DeviceRow `json:"devices"`
	FinalDevices []DeviceRow `json:"finalDevices"`
}

// Manager owns the Jobs collection.
type Manager struct {
	store store.Store
	loc   *time.Location
	log   *zap.Logger
	opts  options
}

// NewManager creates a Manager that renders times in loc.
func NewManager(s store.Store, loc *time.Location, log *zap.Logger, opts ...Option) *Manager {
	if loc == nil {
		loc = time.UTC
	}
	return &Manager{store: s, loc: loc, log: log, opts: applyOptions(opts)}
}

// Create validates the form, generates both sequences and writes the job
// with jobId one above the current maximum.
//
// The maximum is read and the job written in two separate statements. Two
// concurrent creations can therefore both observe the same maximum and
// store the same jobId.
func (m *Manager) Create(ctx context.Context, form *Form) (*model.Job, error) {
	form.MaxDevices = m.opts.maxDevices
	if errs := form.Validate(); len(errs) > 0 {
		return nil, errs
	}

	primary, err := form.Primary.Serials()
	if err != nil {
		return nil, err
	}
	final, err := form.Final.Serials()
	if err != nil {
		return nil, err
	}

	latest, err := m.store.MaxJobID(ctx)
	if err != nil {
		m.log.Error("failed to read latest job id", zap.Error(err))
		return nil, err
	}

	job := &model.Job{
		JobID:             latest + 1,
		Name:              form.JobName,
		JobType:           form.JobType,
		SerialNumber:      model.NewSerialEntries(primary),
		FinalSerialNumber: model.NewSerialEntries(final),
		NoOfDevices:       len(primary),
		JobStatus:         model.JobStatusDraft,
	}
	if err := m.store.CreateJob(ctx, job); err != nil {
		m.log.Error("error saving job", zap.String("name", job.Name), zap.Error(err))
		return nil, err
	}

	m.log.Info("job created",
		zap.Int64("jobId", job.JobID),
		zap.String("name", job.Name),
		zap.Int("serials", len(primary)),
		zap.Int("finalSerials", len(final)),
	)
	return job, nil
}

// Continuation looks up the most recent job named exactly name.
func (m *Manager) Continuation(ctx context.Context, name string) (Continuation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Continuation{}, nil
	}

	job, err := m.store.LatestJobByName(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return Continuation{}, nil
	}
	if err != nil {
		return Continuation{}, err
	}

	c := Continuation{Found: true, JobID: job.JobID}
	c.Start, _ = parse.NextStart(job.Serials())
	c.FinalStart, _ = parse.NextStart(job.FinalSerials())
	return c, nil
}

func (m *Manager) Get(ctx context.Context, id string) (*model.Job, error) {
	return m.store.GetJob(ctx, id)
}

// List returns every job ordered by jobId.
func (m *Manager) List(ctx context.Context) ([]model.Job, error) {
	return m.store.ListJobs(ctx)
}

// Dashboard returns one row per job, ordered by jobId.
func (m *Manager) Dashboard(ctx context.Context) ([]DashboardRow, error) {
	jobs, err := m.store.ListJobs(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]DashboardRow, 0, len(jobs))
	for i := range jobs {
		j := &jobs[i]
		manufactured := j.Manufactured()
		progress := Progress(manufactured, j.NoOfDevices)
		rows = append(rows, DashboardRow{
			ID:           j.ID,
			JobID:        j.JobID,
			Name:         j.Name,
			JobType:      j.JobType,
			NoOfDevices:  j.NoOfDevices,
			Manufactured: manufactured,
			Progress:     progress,
			Band:         ProgressBand(progress),
			JobStatus:    j.JobStatus,
			CreatedOn:    m.formatTime(j.CreatedOn),
		})
	}
	return rows, nil
}

// Info returns a job and its device rows.
func (m *Manager) Info(ctx context.Context, id string) (*JobInfo, error) {
	job, err := m.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	return &JobInfo{
		Job:          job,
		CreatedOn:    m.formatTime(job.CreatedOn),
		Devices:      m.deviceRows(job.JobID, job.SerialNumber),
		FinalDevices: m.deviceRows(job.JobID, job.FinalSerialNumber),
	}, nil
}

func (m *Manager) deviceRows(jobID int64, entries []model.SerialEntry) []DeviceRow {
	rows := make([]DeviceRow, len(entries))
	for i, e := range entries {
		row := DeviceRow{JobID: jobID, Serial: e.Serial, ManufacturedOn: "-"}
		if row.Serial == "" {
			row.Serial = "-"
		}
		if e.ManufacturedOn != nil {
			row.ManufacturedOn = m.formatTime(*e.ManufacturedOn)
		}
		rows[i] = row
	}
	return rows
}

func (m *Manager) formatTime(t time.Time) string {
	return model.FormatTime(t, m.loc)
}

// Progress is the manufactured share in whole percent, halves rounded up.
func Progress(manufactured, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Floor(float64(manufactured)/float64(total)*100 + 0.5))
}

// ProgressBand buckets a percentage for display.
func ProgressBand(percent int) string {
	switch {
	case percent <= 33:
		return BandDanger
	case percent <= 66:
		return BandWarning
	default:
		return BandSuccess
	}
}
