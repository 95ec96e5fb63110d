package watcher

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fiffu/bonuswatch/lib/history"
	"github.com/fiffu/bonuswatch/lib/models"
	"github.com/fiffu/bonuswatch/lib/pushover"
	"github.com/fiffu/bonuswatch/lib/sazka"
	"github.com/fiffu/bonuswatch/senders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type fakeScraper struct {
	calendars []*models.Calendar
	err       error
}

func (f *fakeScraper) Calendars(ctx context.Context) ([]*models.Calendar, error) {
	return f.calendars, f.err
}

type fakeSender struct {
	mu    sync.Mutex
	sent  []int
	calls int
	fail  func(call int, alert *models.BonusAlert) error
}

func (f *fakeSender) Send(ctx context.Context, alert *models.BonusAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail != nil {
		if err := f.fail(f.calls, alert); err != nil {
			return err
		}
	}
	f.sent = append(f.sent, alert.Bonus.ID)
	return nil
}

func (f *fakeSender) sentIDs() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.sent...)
}

func bonus(id, state int) *models.Bonus {
	b := models.NewBonus(id, time.Date(2024, 12, id%28+1, 23, 59, 0, 0, time.UTC))
	b.Title = "Bonus"
	b.Text = "Text"
	b.State = state
	return b
}

func calendar(t *testing.T, title string, bonuses ...*models.Bonus) *models.Calendar {
	cal, err := models.NewCalendar(title, "", "", "https://example.com/bonusy/"+title, bonuses)
	require.NoError(t, err)
	return cal
}

func newTestWatcher(t *testing.T, scraper *fakeScraper, registry senders.Registry) (*Watcher, *history.FileStore) {
	store := history.NewFileStore(filepath.Join(t.TempDir(), "metadata.txt"), zap.NewNop())
	connect := func(ctx context.Context) (Scraper, error) { return scraper, nil }
	w := newWatcher(zap.NewNop(), connect, store, registry, 3, time.Millisecond)
	return w, store
}

func storedIDs(t *testing.T, store history.Store) []int {
	list, err := store.List(context.Background())
	require.NoError(t, err)
	ids := make([]int, 0, len(list))
	for _, n := range list {
		ids = append(ids, n.BonusID)
	}
	return ids
}

func TestRunNotifiesNewActiveBonuses(t *testing.T) {
	scraper := &fakeScraper{calendars: []*models.Calendar{
		calendar(t, "advent", bonus(1, models.BonusStateActive), bonus(2, 0), bonus(3, models.BonusStateActive)),
		calendar(t, "summer", bonus(4, 2), bonus(5, models.BonusStateActive)),
	}}
	push := &fakeSender{}
	w, store := newTestWatcher(t, scraper, senders.Registry{"pushover": push})

	report, err := w.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{1, 3, 5}, push.sentIDs())
	assert.Equal(t, []int{1, 3, 5}, storedIDs(t, store))
	assert.Equal(t, 2, report.Calendars)
	assert.Equal(t, 3, report.Active)
	assert.Equal(t, 3, report.Notified)
	assert.Equal(t, 0, report.Skipped)
	assert.NotEmpty(t, report.RunID)

	report, err = w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 5}, push.sentIDs(), "nothing is sent twice")
	assert.Equal(t, 3, report.Skipped)
	assert.Equal(t, 0, report.Notified)

	last, ok := w.LastReport()
	require.True(t, ok)
	assert.Equal(t, report.RunID, last.RunID)
}

func TestRunSkipsPreviouslyRecordedBonuses(t *testing.T) {
	scraper := &fakeScraper{calendars: []*models.Calendar{
		calendar(t, "advent", bonus(1, models.BonusStateActive), bonus(2, models.BonusStateActive)),
	}}
	push := &fakeSender{}
	w, store := newTestWatcher(t, scraper, senders.Registry{"pushover": push})
	require.NoError(t, store.Append(context.Background(), models.BonusNotification{BonusID: 2, NotifiedAt: time.Now()}))

	_, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1}, push.sentIDs())
	assert.Equal(t, []int{2, 1}, storedIDs(t, store))
}

func TestRunNotifiesSharedBonusOnce(t *testing.T) {
	shared := bonus(7, models.BonusStateActive)
	scraper := &fakeScraper{calendars: []*models.Calendar{
		calendar(t, "a", shared),
		calendar(t, "b", bonus(7, models.BonusStateActive)),
	}}
	push := &fakeSender{}
	w, _ := newTestWatcher(t, scraper, senders.Registry{"pushover": push})

	_, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{7}, push.sentIDs())
}

func TestRunRetriesTransientFailures(t *testing.T) {
	scraper := &fakeScraper{calendars: []*models.Calendar{
		calendar(t, "advent", bonus(1, models.BonusStateActive)),
	}}
	push := &fakeSender{fail: func(call int, _ *models.BonusAlert) error {
		if call < 3 {
			return &pushover.ConnectionError{Op: "send message", Err: errors.New("connection reset")}
		}
		return nil
	}}
	w, store := newTestWatcher(t, scraper, senders.Registry{"pushover": push})

	_, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, push.calls)
	assert.Equal(t, []int{1}, storedIDs(t, store))
}

func TestRunDoesNotRetryPermanentFailures(t *testing.T) {
	scraper := &fakeScraper{calendars: []*models.Calendar{
		calendar(t, "advent", bonus(1, models.BonusStateActive), bonus(2, models.BonusStateActive)),
	}}
	push := &fakeSender{fail: func(_ int, alert *models.BonusAlert) error {
		if alert.Bonus.ID == 1 {
			return &pushover.APIError{Message: "Message cannot be blank"}
		}
		return nil
	}}
	w, store := newTestWatcher(t, scraper, senders.Registry{"pushover": push})

	report, err := w.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Message cannot be blank")
	assert.Equal(t, 2, push.calls, "the failed bonus is tried once and the next one still goes out")
	assert.Equal(t, []int{2}, storedIDs(t, store))
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Notified)

	last, ok := w.LastReport()
	require.True(t, ok)
	assert.NotEmpty(t, last.Error)
}

func TestRunRecordsWhenAnyChannelDelivers(t *testing.T) {
	scraper := &fakeScraper{calendars: []*models.Calendar{
		calendar(t, "advent", bonus(1, models.BonusStateActive)),
	}}
	push := &fakeSender{}
	mail := &fakeSender{fail: func(int, *models.BonusAlert) error { return errors.New("mailbox full") }}
	w, store := newTestWatcher(t, scraper, senders.Registry{"pushover": push, "email": mail})

	_, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1}, push.sentIDs())
	assert.Equal(t, []int{1}, storedIDs(t, store))
}

func TestRunAbortsOnScraperErrors(t *testing.T) {
	loginErr := &sazka.AuthError{Message: "wrong password"}
	push := &fakeSender{}
	store := history.NewFileStore(filepath.Join(t.TempDir(), "metadata.txt"), zap.NewNop())

	connect := func(ctx context.Context) (Scraper, error) { return nil, loginErr }
	w := newWatcher(zap.NewNop(), connect, store, senders.Registry{"pushover": push}, 3, time.Millisecond)
	_, err := w.Run(context.Background())
	assert.ErrorIs(t, err, loginErr)
	assert.True(t, sazka.IsAuthError(err))

	scraper := &fakeScraper{err: &sazka.DataError{Message: "could not find a matching bonus popup for bonus 5"}}
	w, _ = newTestWatcher(t, scraper, senders.Registry{"pushover": push})
	_, err = w.Run(context.Background())
	assert.True(t, sazka.IsDataError(err))

	assert.Empty(t, push.sentIDs())
}

type fakeShutdowner struct {
	calls int
}

func (f *fakeShutdowner) Shutdown(...fx.ShutdownOption) error {
	f.calls++
	return nil
}

func TestRunOnceShutsDown(t *testing.T) {
	scraper := &fakeScraper{calendars: []*models.Calendar{
		calendar(t, "advent", bonus(1, models.BonusStateActive)),
	}}
	push := &fakeSender{}
	w, _ := newTestWatcher(t, scraper, senders.Registry{"pushover": push})

	shutdowner := &fakeShutdowner{}
	w.runOnce(shutdowner)

	assert.Equal(t, 1, shutdowner.calls)
	assert.Equal(t, []int{1}, push.sentIDs())
}

func TestStartRunsImmediately(t *testing.T) {
	scraper := &fakeScraper{calendars: []*models.Calendar{
		calendar(t, "advent", bonus(1, models.BonusStateActive)),
	}}
	push := &fakeSender{}
	w, _ := newTestWatcher(t, scraper, senders.Registry{"pushover": push})

	w.Start(context.Background(), time.Hour)
	assert.Eventually(t, func() bool { return len(push.sentIDs()) == 1 }, 5*time.Second, 10*time.Millisecond)
	w.Stop()
}

func TestAlarmClock(t *testing.T) {
	clock := newAlarmClock(20 * time.Millisecond)
	c := clock.Start(context.Background())

	first := <-c
	assert.WithinDuration(t, time.Now(), first.Timestamp(), time.Second)
	second := <-c
	assert.True(t, second.Timestamp().After(first.Timestamp()))

	clock.Stop()
	for range c {
	}
}
