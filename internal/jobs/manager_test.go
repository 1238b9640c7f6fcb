package jobs

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"device-tracking-backend/internal/db"
	"device-tracking-backend/internal/model"
	"device-tracking-backend/internal/store"
	"device-tracking-backend/internal/validate"
)

var ist = time.FixedZone("IST", 5*3600+30*60)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	testDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(testDB))

	current := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		current = current.Add(time.Minute)
		return current
	}
	return store.NewGormStore(testDB, store.WithClock(clock))
}

func TestCreate_SequentialJobIDs(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newTestStore(t), ist, zap.NewNop())

	for i := 1; i <= 5; i++ {
		job, err := m.Create(ctx, validForm())
		require.NoError(t, err)
		assert.Equal(t, int64(i), job.JobID)
	}

	jobs, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 5)
	for i, j := range jobs {
		assert.Equal(t, int64(i+1), j.JobID)
	}
}

func TestCreate_WritesDocument(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newTestStore(t), ist, zap.NewNop())

	job, err := m.Create(ctx, validForm())
	require.NoError(t, err)

	stored, err := m.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "Batch1", stored.Name)
	assert.Equal(t, "MM", stored.JobType)
	assert.Equal(t, []string{"A-007-X", "A-008-X", "A-009-X"}, stored.Serials())
	assert.Equal(t, []string{"F-1", "F-2"}, stored.FinalSerials())
	assert.Equal(t, 3, stored.NoOfDevices)
	assert.Equal(t, model.JobStatusDraft, stored.JobStatus)
	assert.False(t, stored.CreatedOn.IsZero())
	for _, e := range stored.SerialNumber {
		assert.Nil(t, e.ManufacturedOn)
	}
}

func TestCreate_ZeroDevices(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newTestStore(t), ist, zap.NewNop())

	f := validForm()
	f.Primary.TotalDevices = "0"
	job, err := m.Create(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 0, job.NoOfDevices)
	assert.Empty(t, job.SerialNumber)
}

func TestCreate_InvalidFormWritesNothing(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newTestStore(t), ist, zap.NewNop())

	f := validForm()
	f.JobName = "Batch 1"
	_, err := m.Create(ctx, f)

	var errs validate.Errors
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, KeyJobName, errs.First())

	jobs, err := m.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestCreate_EnforcesDeviceLimit(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newTestStore(t), ist, zap.NewNop(), WithMaxDevices(2))

	_, err := m.Create(ctx, validForm())
	var errs validate.Errors
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, KeyTotalDevices, errs.First())
	assert.Equal(t, validate.TooMany(2), errs[0].Message)

	f := validForm()
	f.Primary.Start = "9223372036854775807"
	f.Primary.TotalDevices = "2"
	_, err = m.Create(ctx, f)
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, KeyStart, errs.First())

	jobs, err := m.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestContinuation(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newTestStore(t), ist, zap.NewNop())

	first := validForm()
	first.Primary = Sequence{Mode: Automatic, Prefix: "B", Start: "040", Suffix: "X", TotalDevices: "3"}
	_, err := m.Create(ctx, first)
	require.NoError(t, err)

	c, err := m.Continuation(ctx, "Batch1")
	require.NoError(t, err)
	assert.True(t, c.Found)
	assert.Equal(t, int64(1), c.JobID)
	assert.Equal(t, "043", c.Start)
	assert.Equal(t, "", c.FinalStart, "manual final serials do not parse")

	// A newer job with the same name wins.
	second := validForm()
	second.Primary = Sequence{Mode: Automatic, Prefix: "B", Start: "043", Suffix: "X", TotalDevices: "2"}
	second.Final = Sequence{Mode: Automatic, Prefix: "F", Start: "9", Suffix: "Z", TotalDevices: "2"}
	_, err = m.Create(ctx, second)
	require.NoError(t, err)

	c, err = m.Continuation(ctx, " Batch1 ")
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.JobID)
	assert.Equal(t, "045", c.Start)
	assert.Equal(t, "11", c.FinalStart)

	c, err = m.Continuation(ctx, "Batch2")
	require.NoError(t, err)
	assert.False(t, c.Found)

	c, err = m.Continuation(ctx, "  ")
	require.NoError(t, err)
	assert.False(t, c.Found)
}

func TestDashboardAndInfo(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	m := NewManager(s, ist, zap.NewNop())

	made := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	entries := model.NewSerialEntries([]string{"S-1-X", "S-2-X", "S-3-X"})
	entries[0].ManufacturedOn = &made
	require.NoError(t, s.CreateJob(ctx, &model.Job{
		JobID: 2, Name: "B", JobType: "SM", SerialNumber: entries, NoOfDevices: 3, JobStatus: model.JobStatusDraft,
	}))
	require.NoError(t, s.CreateJob(ctx, &model.Job{
		JobID: 1, Name: "A", JobType: "MM", NoOfDevices: 0, JobStatus: model.JobStatusDraft,
	}))

	rows, err := m.Dashboard(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0].JobID)
	assert.Equal(t, 0, rows[0].Progress)
	assert.Equal(t, BandDanger, rows[0].Band)
	assert.Equal(t, 1, rows[1].Manufactured)
	assert.Equal(t, 33, rows[1].Progress)
	assert.Equal(t, BandDanger, rows[1].Band)

	info, err := m.Info(ctx, rows[1].ID)
	require.NoError(t, err)
	require.Len(t, info.Devices, 3)
	assert.Equal(t, DeviceRow{JobID: 2, Serial: "S-1-X", ManufacturedOn: "19 Oct 2026, 3:30:00 pm"}, info.Devices[0])
	assert.Equal(t, "-", info.Devices[1].ManufacturedOn)
	assert.Empty(t, info.FinalDevices)

	_, err = m.Info(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestProgress(t *testing.T) {
	testCases := []struct {
		manufactured, total, percent int
		band                         string
	}{
		{0, 0, 0, BandDanger},
		{1, 3, 33, BandDanger},
		{1, 2, 50, BandWarning},
		{2, 3, 67, BandSuccess},
		{1, 200, 1, BandDanger},
		{1, 8, 13, BandDanger},
		{3, 3, 100, BandSuccess},
	}
	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%d/%d", tc.manufactured, tc.total), func(t *testing.T) {
			p := Progress(tc.manufactured, tc.total)
			assert.Equal(t, tc.percent, p)
			assert.Equal(t, tc.band, ProgressBand(p))
		})
	}
}
