package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"device-tracking-backend/internal/model"
)

func newSQLiteStore(t *testing.T, opts ...Option) Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	testDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, testDB.AutoMigrate(&model.Configuration{}, &model.Job{}, &model.User{}))
	return NewGormStore(testDB, opts...)
}

// steppingClock returns a clock that advances one second per call.
func steppingClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func TestConfigurationLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t, WithClock(steppingClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))))

	cfg := &model.Configuration{
		Name:            "Cfg-A",
		HardwareVersion: "v1",
		ADCResolution:   16,
		UniqueDeviceID:  "DEV-1",
		DeviceType:      "MM",
		TIARegister:     124000,
		Calibration:     datatypes.JSONMap{"responsivity850": 0.5},
	}
	require.NoError(t, s.CreateConfiguration(ctx, cfg))
	require.NotEmpty(t, cfg.ID)
	assert.False(t, cfg.CreatedOn.IsZero())

	got, err := s.GetConfiguration(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cfg-A", got.Name)
	assert.Equal(t, 0.5, got.Calibration["responsivity850"])

	err = s.UpdateConfiguration(ctx, cfg.ID, map[string]any{
		"hardware_version": "v2",
		"calibration":      datatypes.JSONMap{"responsivity850": 0.75},
	})
	require.NoError(t, err)

	got, err = s.GetConfiguration(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.HardwareVersion)
	assert.Equal(t, "MM", got.DeviceType)
	assert.Equal(t, 0.75, got.Calibration["responsivity850"])

	second := &model.Configuration{Name: "Cfg-B", DeviceType: "SM", TIARegister: 1240}
	require.NoError(t, s.CreateConfiguration(ctx, second))

	all, err := s.ListConfigurations(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Cfg-B", all[0].Name, "newest first")

	_, err = s.GetConfiguration(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.UpdateConfiguration(ctx, "missing", map[string]any{"name": "x"}), ErrNotFound)
}

func TestJobQueries(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t, WithClock(steppingClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))))

	max, err := s.MaxJobID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), max)

	for i, name := range []string{"Batch1", "Batch2", "Batch1"} {
		job := &model.Job{
			JobID:        int64(i + 1),
			Name:         name,
			JobType:      "MM",
			SerialNumber: model.NewSerialEntries([]string{fmt.Sprintf("B-%03d-X", i)}),
			NoOfDevices:  1,
			JobStatus:    model.JobStatusDraft,
		}
		require.NoError(t, s.CreateJob(ctx, job))
	}

	max, err = s.MaxJobID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), max)

	latest, err := s.LatestJobByName(ctx, "Batch1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), latest.JobID)
	assert.Equal(t, []string{"B-002-X"}, latest.Serials())
	assert.Nil(t, latest.SerialNumber[0].ManufacturedOn)

	_, err = s.LatestJobByName(ctx, "batch1")
	assert.ErrorIs(t, err, ErrNotFound, "name match is exact")

	jobs, err := s.ListJobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, int64(1), jobs[0].JobID)

	got, err := s.GetJob(ctx, latest.ID)
	require.NoError(t, err)
	assert.Equal(t, "Batch1", got.Name)
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	u := &model.User{PhoneNumber: "+919876543210", DisplayName: "Asha"}
	require.NoError(t, s.CreateUser(ctx, u))

	got, err := s.GetUserByPhone(ctx, "+919876543210")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.False(t, got.Admin)

	_, err = s.GetUserByPhone(ctx, "+10000000000")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, s.CreateUser(ctx, &model.User{PhoneNumber: "+919876543210"}), "phone numbers are unique")
}
