package reminders

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pathakanu/forgetMeNot/internal/database"
	"github.com/pathakanu/forgetMeNot/internal/due"
	"github.com/pathakanu/forgetMeNot/internal/kv"
	"github.com/pathakanu/forgetMeNot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2024, time.March, 4, 8, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T, backend kv.Store) *Store {
	t.Helper()
	s := New(backend)
	s.now = func() time.Time { return fixedNow }
	require.NoError(t, s.Init(context.Background()))
	return s
}

func newSQLiteBackend(t *testing.T) kv.Store {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "open sqlite memory")
	require.NoError(t, database.Migrate(db))
	return kv.NewGormStore(db)
}

func sampleReminder(text string) model.Reminder {
	return model.Reminder{Text: text, TimeWindowStart: "09:00", TimeWindowEnd: "17:00", Cadence: 60}
}

func backends(t *testing.T) map[string]kv.Store {
	return map[string]kv.Store{
		"memory": kv.NewMemoryStore(),
		"sqlite": newSQLiteBackend(t),
	}
}

func TestInitWritesDefaults(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemoryStore()
	newTestStore(t, backend)

	var list []model.Reminder
	found, err := backend.Get(ctx, KeyReminders, &list)
	require.NoError(t, err)
	assert.True(t, found)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	var last model.LastNotified
	found, err = backend.Get(ctx, KeyLastNotified, &last)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, last)
}

func TestInitKeepsExistingData(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemoryStore()
	s := newTestStore(t, backend)

	added, err := s.Add(ctx, sampleReminder("water plants"))
	require.NoError(t, err)
	require.NoError(t, s.SaveLastNotified(ctx, model.LastNotified{added.ID: fixedNow.UnixMilli()}))

	require.NoError(t, s.Init(ctx))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	last, err := s.LastNotified(ctx)
	require.NoError(t, err)
	assert.Contains(t, last, added.ID)
}

func TestAddListDelete(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newTestStore(t, backend)

			first, err := s.Add(ctx, sampleReminder("stand up"))
			require.NoError(t, err)
			second, err := s.Add(ctx, sampleReminder("drink water"))
			require.NoError(t, err)

			assert.Equal(t, fixedNow.UnixMilli(), first.ID)
			assert.Equal(t, first.ID+1, second.ID)
			assert.True(t, fixedNow.Equal(first.Created))

			list, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "stand up", list[0].Text)
			assert.Equal(t, "drink water", list[1].Text)

			got, err := s.Get(ctx, second.ID)
			require.NoError(t, err)
			assert.Equal(t, "drink water", got.Text)

			require.NoError(t, s.Delete(ctx, first.ID))
			list, err = s.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, second.ID, list[0].ID)

			_, err = s.Get(ctx, first.ID)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, s.Delete(ctx, first.ID), ErrNotFound)
		})
	}
}

func TestDeletedReminderIsNoLongerEvaluated(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, kv.NewMemoryStore())
	now := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)

	keep, err := s.Add(ctx, sampleReminder("keep"))
	require.NoError(t, err)
	drop, err := s.Add(ctx, sampleReminder("drop"))
	require.NoError(t, err)

	list, err := s.List(ctx)
	require.NoError(t, err)
	fired := due.Evaluate(now, list, nil)
	require.Len(t, fired, 2)
	require.NoError(t, s.SaveLastNotified(ctx, due.Fire(now, fired, nil)))

	require.NoError(t, s.Delete(ctx, drop.ID))

	last, err := s.LastNotified(ctx)
	require.NoError(t, err)
	assert.NotContains(t, last, drop.ID)
	assert.Contains(t, last, keep.ID)

	list, err = s.List(ctx)
	require.NoError(t, err)
	later := now.Add(time.Hour)
	fired = due.Evaluate(later, list, last)
	require.Len(t, fired, 1)
	assert.Equal(t, keep.ID, fired[0].ID)
}

// slowStore widens the gap between reading and writing a key.
type slowStore struct {
	kv.Store
}

func (s slowStore) Get(ctx context.Context, key string, dst any) (bool, error) {
	time.Sleep(time.Millisecond)
	return s.Store.Get(ctx, key, dst)
}

func TestConcurrentAddKeepsEveryReminder(t *testing.T) {
	ctx := context.Background()
	s := New(slowStore{Store: kv.NewMemoryStore()})
	require.NoError(t, s.Init(ctx))

	const writers = 10
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Add(ctx, sampleReminder(fmt.Sprintf("reminder %d", i)))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, writers)

	ids := make(map[int64]bool, writers)
	for _, r := range list {
		ids[r.ID] = true
	}
	assert.Len(t, ids, writers)
}

func TestConcurrentAddAndDelete(t *testing.T) {
	ctx := context.Background()
	s := New(slowStore{Store: kv.NewMemoryStore()})
	require.NoError(t, s.Init(ctx))

	var doomed []model.Reminder
	for i := 0; i < 5; i++ {
		r, err := s.Add(ctx, sampleReminder(fmt.Sprintf("old %d", i)))
		require.NoError(t, err)
		doomed = append(doomed, r)
	}

	var wg sync.WaitGroup
	for i, r := range doomed {
		wg.Add(2)
		go func(id int64) {
			defer wg.Done()
			assert.NoError(t, s.Delete(ctx, id))
		}(r.ID)
		go func(i int) {
			defer wg.Done()
			_, err := s.Add(ctx, sampleReminder(fmt.Sprintf("new %d", i)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 5)
	for _, r := range list {
		assert.True(t, strings.HasPrefix(r.Text, "new "), r.Text)
	}
}

func TestUpdateLastNotifiedSeesDeletes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, kv.NewMemoryStore())
	now := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)

	keep, err := s.Add(ctx, sampleReminder("keep"))
	require.NoError(t, err)
	drop, err := s.Add(ctx, sampleReminder("drop"))
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, drop.ID))

	err = s.UpdateLastNotified(ctx, func(list []model.Reminder, last model.LastNotified) bool {
		fired := due.Evaluate(now, list, last)
		due.Fire(now, fired, last)
		return len(fired) > 0
	})
	require.NoError(t, err)

	last, err := s.LastNotified(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.LastNotified{keep.ID: now.UnixMilli()}, last)

	err = s.UpdateLastNotified(ctx, func([]model.Reminder, model.LastNotified) bool { return false })
	require.NoError(t, err)
}

func TestLastNotifiedRoundTrip(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newTestStore(t, backend)

			want := model.LastNotified{1700000000000: 1700000060000, 42: 1700000120000}
			require.NoError(t, s.SaveLastNotified(ctx, want))

			got, err := s.LastNotified(ctx)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestListWithoutInit(t *testing.T) {
	s := New(kv.NewMemoryStore())

	list, err := s.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	last, err := s.LastNotified(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, last)
}

func TestValidate(t *testing.T) {
	valid := sampleReminder("ok")
	require.NoError(t, Validate(valid))

	cases := map[string]func(r *model.Reminder){
		"text":            func(r *model.Reminder) { r.Text = "  " },
		"timeWindowStart": func(r *model.Reminder) { r.TimeWindowStart = "+9:+5" },
		"timeWindowEnd":   func(r *model.Reminder) { r.TimeWindowStart, r.TimeWindowEnd = "18:00", "17:00" },
		"cadence":         func(r *model.Reminder) { r.Cadence = 0 },
	}
	for field, mutate := range cases {
		r := valid
		mutate(&r)
		err := Validate(r)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, field)
		assert.Equal(t, field, verr.Field)
	}
}
