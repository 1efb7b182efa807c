package events_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"owlet-sync/internal/events"
	"owlet-sync/internal/models"
	"owlet-sync/internal/timeutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeStoreClient 仅用于单元测试的事件库客户端
type fakeStoreClient struct {
	events    []models.SleepEvent
	recentErr error
	createErr error
	created   []models.SleepEvent
}

func (f *fakeStoreClient) Recent(ctx context.Context) ([]models.SleepEvent, error) {
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	return f.events, nil
}

func (f *fakeStoreClient) Create(ctx context.Context, event models.SleepEvent) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, event)
	return nil
}

type fakeArchiver struct {
	archived []models.SleepEvent
	err      error
}

func (f *fakeArchiver) Archive(ctx context.Context, event models.SleepEvent) error {
	if f.err != nil {
		return f.err
	}
	f.archived = append(f.archived, event)
	return nil
}

func TestShouldCreate_SuppressesDuplicateWithinWindow(t *testing.T) {
	now := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	clock := &timeutil.FixedClock{Time: now}

	store := &fakeStoreClient{events: []models.SleepEvent{
		{Type: models.EventSleepStart, Time: now.Add(-100 * time.Second)},
	}}
	creator := events.NewCreator(store, nil, clock, zap.NewNop())

	// 最近一条同类型事件在 300 秒内，抑制
	assert.False(t, creator.ShouldCreate(context.Background(), models.EventSleepStart))

	// 200 秒后仍在窗口内
	clock.Time = now.Add(200 * time.Second)
	assert.False(t, creator.ShouldCreate(context.Background(), models.EventSleepStart))

	// 301 秒后窗口已过
	clock.Time = now.Add(301 * time.Second)
	assert.True(t, creator.ShouldCreate(context.Background(), models.EventSleepStart))
}

func TestShouldCreate_DifferentTypeNotSuppressed(t *testing.T) {
	now := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	store := &fakeStoreClient{events: []models.SleepEvent{
		{Type: models.EventSleepStart, Time: now.Add(-10 * time.Second)},
	}}
	creator := events.NewCreator(store, nil, &timeutil.FixedClock{Time: now}, zap.NewNop())

	assert.True(t, creator.ShouldCreate(context.Background(), models.EventSleepEnd))
}

func TestShouldCreate_UnreachableStoreAssumesNoDuplicate(t *testing.T) {
	store := &fakeStoreClient{recentErr: errors.New("connection refused")}
	creator := events.NewCreator(store, nil, timeutil.NewClock(), zap.NewNop())

	assert.True(t, creator.ShouldCreate(context.Background(), models.EventSleepStart))
}

func TestShouldCreate_EmptyStore(t *testing.T) {
	store := &fakeStoreClient{}
	creator := events.NewCreator(store, nil, timeutil.NewClock(), zap.NewNop())

	assert.True(t, creator.ShouldCreate(context.Background(), models.EventSleepEnd))
}

func TestCreate_PostsEventWithMillisID(t *testing.T) {
	now := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	store := &fakeStoreClient{}
	creator := events.NewCreator(store, nil, &timeutil.FixedClock{Time: now}, zap.NewNop())

	require.NoError(t, creator.Create(context.Background(), models.EventSleepStart, "😴", "Detected by Owlet"))

	require.Len(t, store.created, 1)
	event := store.created[0]
	assert.Equal(t, now.UnixMilli(), event.ID)
	assert.Equal(t, models.EventSleepStart, event.Type)
	assert.Equal(t, "😴", event.Icon)
	assert.Equal(t, now, event.Time)
	assert.Equal(t, "Detected by Owlet", event.Notes)
}

func TestCreate_ArchivesAfterSuccess(t *testing.T) {
	archive := &fakeArchiver{}
	store := &fakeStoreClient{}
	creator := events.NewCreator(store, archive, timeutil.NewClock(), zap.NewNop())

	require.NoError(t, creator.Create(context.Background(), models.EventSleepEnd, "😴", ""))
	require.Len(t, archive.archived, 1)
	assert.Equal(t, models.EventSleepEnd, archive.archived[0].Type)
}

func TestCreate_ArchiveFailureIsNonFatal(t *testing.T) {
	archive := &fakeArchiver{err: errors.New("db down")}
	store := &fakeStoreClient{}
	creator := events.NewCreator(store, archive, timeutil.NewClock(), zap.NewNop())

	assert.NoError(t, creator.Create(context.Background(), models.EventSleepEnd, "😴", ""))
}

func TestCreate_StoreFailurePropagates(t *testing.T) {
	store := &fakeStoreClient{createErr: errors.New("500")}
	creator := events.NewCreator(store, nil, timeutil.NewClock(), zap.NewNop())

	assert.Error(t, creator.Create(context.Background(), models.EventSleepStart, "😴", ""))
}
