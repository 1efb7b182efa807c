package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"owlet-sync/internal/aggregator"
	"owlet-sync/internal/config"
	"owlet-sync/internal/models"
	"owlet-sync/internal/owlet"
	"owlet-sync/internal/repository"
	"owlet-sync/internal/sleep"
	"owlet-sync/internal/timeutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDevice struct {
	snapshot  *owlet.DeviceSnapshot
	authErr   error
	fetchErr  error
	authCalls int
	closed    bool
}

func (f *fakeDevice) Authenticate(ctx context.Context) error {
	f.authCalls++
	return f.authErr
}

func (f *fakeDevice) FetchDeviceData(ctx context.Context) (*owlet.DeviceSnapshot, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.snapshot, nil
}

func (f *fakeDevice) Close() { f.closed = true }

type fakeCreator struct {
	allow   bool
	created []string
}

func (f *fakeCreator) ShouldCreate(ctx context.Context, eventType string) bool { return f.allow }

func (f *fakeCreator) Create(ctx context.Context, eventType, icon, notes string) error {
	f.created = append(f.created, eventType)
	return nil
}

func floatPtr(v float64) *float64 { return &v }

func newTestService(t *testing.T, device *fakeDevice, creator *fakeCreator, clock *timeutil.FixedClock) *SyncService {
	logger := zap.NewNop()
	tz := timeutil.NewConverter("UTC", logger)

	repo, err := repository.NewFileRepository(t.TempDir(), logger)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := repository.NewRealtimeCache(redisClient, time.Minute, 100, logger)

	cfg := &config.Config{}
	cfg.Events.AutoCreate = true
	cfg.Sync.BackfillMaxDays = 30
	cfg.Sync.HistoryIntervalSeconds = 0

	summarizer := aggregator.NewSummarizer(tz, repo, logger)

	return &SyncService{
		config:      cfg,
		logger:      logger,
		tz:          tz,
		clock:       clock,
		device:      device,
		repo:        repo,
		cache:       cache,
		minutes:     aggregator.NewMinuteAggregator(tz, repo, logger),
		hourly:      aggregator.NewHourlyUpdater(tz, repo, clock, logger),
		backfill:    aggregator.NewBackfill(tz, summarizer, repo, clock, logger),
		tracker:     sleep.NewTracker(logger),
		creator:     creator,
		redisClient: redisClient,
	}
}

func snapshotWithState(state int) *owlet.DeviceSnapshot {
	return &owlet.DeviceSnapshot{
		DSN:              "AC000W000000001",
		HeartRate:        floatPtr(120),
		OxygenSaturation: floatPtr(97),
		SleepState:       state,
	}
}

func TestSync_PersistsAndCachesLatestReading(t *testing.T) {
	clock := &timeutil.FixedClock{Time: time.Date(2024, 1, 15, 8, 5, 10, 0, time.UTC)}
	device := &fakeDevice{snapshot: snapshotWithState(models.SleepStateAwake)}
	creator := &fakeCreator{allow: true}
	svc := newTestService(t, device, creator, clock)

	require.NoError(t, svc.Sync(context.Background()))

	latest, err := svc.cache.GetLatest(context.Background())
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, floatPtr(120), latest.HeartRate)
	assert.Equal(t, clock.Time, latest.Timestamp)

	// 首个周期即触发了清理和小时聚合的时间戳
	assert.False(t, svc.lastCleanupTime.IsZero())
	assert.False(t, svc.lastHourlyUpdate.IsZero())
	assert.Equal(t, 1, device.authCalls)
}

func TestSync_MinuteRecordEmittedAcrossBoundary(t *testing.T) {
	clock := &timeutil.FixedClock{Time: time.Date(2024, 1, 15, 8, 5, 59, 0, time.UTC)}
	device := &fakeDevice{snapshot: snapshotWithState(models.SleepStateAwake)}
	svc := newTestService(t, device, &fakeCreator{allow: true}, clock)

	require.NoError(t, svc.Sync(context.Background()))

	clock.Time = time.Date(2024, 1, 15, 8, 6, 0, 0, time.UTC)
	require.NoError(t, svc.Sync(context.Background()))

	records := svc.repo.LoadMinutes("2024-01-15")
	require.Len(t, records, 1)
	assert.Equal(t, time.Date(2024, 1, 15, 8, 5, 0, 0, time.UTC), records[0].Timestamp)
}

func TestSync_SleepTransitionsCreateEvents(t *testing.T) {
	clock := &timeutil.FixedClock{Time: time.Date(2024, 1, 15, 20, 0, 0, 0, time.UTC)}
	device := &fakeDevice{snapshot: snapshotWithState(models.SleepStateAwake)}
	creator := &fakeCreator{allow: true}
	svc := newTestService(t, device, creator, clock)

	ctx := context.Background()
	require.NoError(t, svc.Sync(ctx))

	device.snapshot = snapshotWithState(models.SleepStateAsleep)
	clock.Time = clock.Time.Add(time.Minute)
	require.NoError(t, svc.Sync(ctx))

	device.snapshot = snapshotWithState(models.SleepStateAwake)
	clock.Time = clock.Time.Add(time.Minute)
	require.NoError(t, svc.Sync(ctx))

	assert.Equal(t, []string{models.EventSleepStart, models.EventSleepEnd}, creator.created)
}

func TestSync_RepeatedStateCreatesNoEvents(t *testing.T) {
	clock := &timeutil.FixedClock{Time: time.Date(2024, 1, 15, 20, 0, 0, 0, time.UTC)}
	device := &fakeDevice{snapshot: snapshotWithState(models.SleepStateAsleep)}
	creator := &fakeCreator{allow: true}
	svc := newTestService(t, device, creator, clock)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Sync(ctx))
		clock.Time = clock.Time.Add(time.Minute)
	}
	assert.Empty(t, creator.created)
}

func TestSync_DuplicateSuppressionBlocksCreate(t *testing.T) {
	clock := &timeutil.FixedClock{Time: time.Date(2024, 1, 15, 20, 0, 0, 0, time.UTC)}
	device := &fakeDevice{snapshot: snapshotWithState(models.SleepStateAwake)}
	creator := &fakeCreator{allow: false}
	svc := newTestService(t, device, creator, clock)

	ctx := context.Background()
	require.NoError(t, svc.Sync(ctx))

	device.snapshot = snapshotWithState(models.SleepStateAsleep)
	clock.Time = clock.Time.Add(time.Minute)
	require.NoError(t, svc.Sync(ctx))

	assert.Empty(t, creator.created)
}

func TestSync_AutoCreateDisabledSkipsSleepCheck(t *testing.T) {
	clock := &timeutil.FixedClock{Time: time.Date(2024, 1, 15, 20, 0, 0, 0, time.UTC)}
	device := &fakeDevice{snapshot: snapshotWithState(models.SleepStateAwake)}
	creator := &fakeCreator{allow: true}
	svc := newTestService(t, device, creator, clock)
	svc.config.Events.AutoCreate = false

	ctx := context.Background()
	require.NoError(t, svc.Sync(ctx))
	device.snapshot = snapshotWithState(models.SleepStateAsleep)
	require.NoError(t, svc.Sync(ctx))

	assert.Empty(t, creator.created)
}

func TestSync_FetchFailureAbortsCycle(t *testing.T) {
	clock := &timeutil.FixedClock{Time: time.Date(2024, 1, 15, 20, 0, 0, 0, time.UTC)}
	device := &fakeDevice{fetchErr: errors.New("device unavailable")}
	creator := &fakeCreator{allow: true}
	svc := newTestService(t, device, creator, clock)

	err := svc.Sync(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch device data")

	latest, err := svc.cache.GetLatest(context.Background())
	require.NoError(t, err)
	assert.Nil(t, latest)
	assert.Empty(t, creator.created)
}

func TestSync_AuthFailureAbortsCycle(t *testing.T) {
	clock := &timeutil.FixedClock{Time: time.Date(2024, 1, 15, 20, 0, 0, 0, time.UTC)}
	device := &fakeDevice{authErr: errors.New("bad credentials")}
	svc := newTestService(t, device, &fakeCreator{}, clock)

	err := svc.Sync(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication failed")
}

func TestStop_FlushesPartialMinuteBucket(t *testing.T) {
	clock := &timeutil.FixedClock{Time: time.Date(2024, 1, 15, 8, 5, 10, 0, time.UTC)}
	device := &fakeDevice{snapshot: snapshotWithState(models.SleepStateAwake)}
	svc := newTestService(t, device, &fakeCreator{allow: true}, clock)

	require.NoError(t, svc.Sync(context.Background()))
	svc.Stop()

	assert.True(t, device.closed)
	records := svc.repo.LoadMinutes("2024-01-15")
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].DataPoints)
}

func TestNewSyncService_ClosesRedisWhenArchiveConnectFails(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := &config.Config{}
	cfg.Sync.DataDir = t.TempDir()
	cfg.Redis.Addr = mr.Addr()
	cfg.Archive.Enabled = true
	cfg.Archive.Database.Host = "127.0.0.1"
	cfg.Archive.Database.Port = 1
	cfg.Archive.Database.User = "postgres"
	cfg.Archive.Database.Database = "baby_monitor"
	cfg.Archive.Database.SSLMode = "disable"

	svc, err := NewSyncService(cfg, zap.NewNop())
	require.Error(t, err)
	assert.Nil(t, svc)
	assert.Contains(t, err.Error(), "failed to connect to database")

	// 失败路径不能泄漏已建立的 Redis 连接
	assert.Eventually(t, func() bool {
		return mr.CurrentConnectionCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSync_CleanupGeneratesMissingSummary(t *testing.T) {
	clock := &timeutil.FixedClock{Time: time.Date(2024, 1, 16, 0, 5, 0, 0, time.UTC)}
	device := &fakeDevice{snapshot: snapshotWithState(models.SleepStateAwake)}
	svc := newTestService(t, device, &fakeCreator{allow: true}, clock)

	// 昨天留下的分钟数据还没有日汇总
	require.NoError(t, svc.repo.SaveMinutes("2024-01-15", []models.MinuteRecord{
		{
			Timestamp:           time.Date(2024, 1, 15, 20, 5, 0, 0, time.UTC),
			HeartRateAvg:        floatPtr(110),
			OxygenSaturationAvg: floatPtr(96),
			DataPoints:          4,
		},
	}))

	require.NoError(t, svc.Sync(context.Background()))
	assert.True(t, svc.repo.SummaryExists("2024-01-15"))
}
