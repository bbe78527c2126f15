package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/pathakanu/forgetMeNot/internal/model"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	got []Notification
	err error
}

func (r *recordingNotifier) Notify(_ context.Context, n Notification) error {
	r.got = append(r.got, n)
	return r.err
}

type fakeSender struct {
	to, body string
	err      error
}

func (f *fakeSender) SendWhatsAppMessage(to, body string) error {
	f.to, f.body = to, body
	return f.err
}

func testLogger() (*logrus.Entry, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logrus.NewEntry(logger), hook
}

func TestForReminder(t *testing.T) {
	n := ForReminder(model.Reminder{ID: 1700000000000, Text: "stretch"})
	assert.Equal(t, "reminder-1700000000000", n.ID)
	assert.Equal(t, Title, n.Title)
	assert.Equal(t, "stretch", n.Message)
}

func TestDispatchContinuesPastFailures(t *testing.T) {
	logger, hook := testLogger()
	failing := &recordingNotifier{err: errors.New("tab closed")}
	healthy := &recordingNotifier{}
	d := NewDispatcher(logger, failing, nil, healthy)

	d.Dispatch(context.Background(), ForReminder(model.Reminder{ID: 7, Text: "walk"}))

	require.Len(t, failing.got, 1)
	require.Len(t, healthy.got, 1)
	assert.Equal(t, "walk", healthy.got[0].Message)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.DebugLevel, hook.LastEntry().Level)
}

func TestLogNotifier(t *testing.T) {
	logger, hook := testLogger()
	require.NoError(t, NewLogNotifier(logger).Notify(context.Background(), ForReminder(model.Reminder{ID: 3, Text: "blink"})))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "blink", entry.Message)
	assert.Equal(t, "reminder-3", entry.Data["notification"])
}

func TestWhatsAppNotifier(t *testing.T) {
	sender := &fakeSender{}
	n := NewWhatsAppNotifier(sender, "+15550002")

	require.NoError(t, n.Notify(context.Background(), ForReminder(model.Reminder{ID: 3, Text: "blink"})))
	assert.Equal(t, "+15550002", sender.to)
	assert.Equal(t, "Forget-me-not Reminder: blink", sender.body)

	assert.Error(t, NewWhatsAppNotifier(sender, "").Notify(context.Background(), Notification{}))
}

func TestBroadcasterDelivers(t *testing.T) {
	b := NewBroadcaster(2)
	ch, cancel := b.Subscribe()
	defer cancel()

	require.NoError(t, b.Notify(context.Background(), ForReminder(model.Reminder{ID: 9, Text: "hydrate"})))

	msg := <-ch
	assert.Equal(t, MessageShowReminder, msg.Type)
	assert.Equal(t, "hydrate", msg.Notification.Message)
}

func TestBroadcasterSkipsFullSubscriber(t *testing.T) {
	b := NewBroadcaster(1)
	slow, cancelSlow := b.Subscribe()
	defer cancelSlow()
	fast, cancelFast := b.Subscribe()
	defer cancelFast()

	ctx := context.Background()
	require.NoError(t, b.Notify(ctx, ForReminder(model.Reminder{ID: 1, Text: "one"})))
	<-fast
	require.NoError(t, b.Notify(ctx, ForReminder(model.Reminder{ID: 2, Text: "two"})))

	assert.Equal(t, "two", (<-fast).Notification.Message)
	assert.Equal(t, "one", (<-slow).Notification.Message)
	select {
	case msg := <-slow:
		t.Fatalf("slow subscriber should have missed %q", msg.Notification.Message)
	default:
	}
}

func TestBroadcasterCancel(t *testing.T) {
	b := NewBroadcaster(1)
	ch, cancel := b.Subscribe()
	assert.Equal(t, 1, b.Subscribers())

	cancel()
	cancel()
	assert.Equal(t, 0, b.Subscribers())
	_, open := <-ch
	assert.False(t, open)

	require.NoError(t, b.Notify(context.Background(), Notification{}))
}
