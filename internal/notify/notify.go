// Package notify delivers fired reminders to every configured target.
// Delivery is fire-and-forget: a target that cannot be reached is skipped.
package notify

import (
	"context"
	"fmt"

	"github.com/pathakanu/forgetMeNot/internal/model"
	"github.com/sirupsen/logrus"
)

// Title is shown on every reminder notification.
const Title = "Forget-me-not Reminder"

// Notification is the one-shot signal produced when a reminder fires.
type Notification struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Message  string         `json:"message"`
	Reminder model.Reminder `json:"reminder"`
}

// ForReminder builds the notification for r.
func ForReminder(r model.Reminder) Notification {
	return Notification{
		ID:       fmt.Sprintf("reminder-%d", r.ID),
		Title:    Title,
		Message:  r.Text,
		Reminder: r,
	}
}

// Notifier is a delivery target.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Dispatcher sends each notification to all of its targets.
type Dispatcher struct {
	targets []Notifier
	logger  *logrus.Entry
}

// NewDispatcher returns a Dispatcher over targets. Nil targets are ignored.
func NewDispatcher(logger *logrus.Entry, targets ...Notifier) *Dispatcher {
	d := &Dispatcher{logger: logger}
	for _, t := range targets {
		if t != nil {
			d.targets = append(d.targets, t)
		}
	}
	return d
}

// Dispatch delivers n to every target. Failures are logged and otherwise ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notification) {
	for _, target := range d.targets {
		if err := target.Notify(ctx, n); err != nil {
			d.logger.WithError(err).WithField("notification", n.ID).Debug("delivery target unreachable")
		}
	}
}

// LogNotifier writes notifications to the log.
type LogNotifier struct {
	logger *logrus.Entry
}

// NewLogNotifier returns a LogNotifier writing to logger.
func NewLogNotifier(logger *logrus.Entry) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the notification message at info level.
func (l *LogNotifier) Notify(_ context.Context, n Notification) error {
	l.logger.WithFields(logrus.Fields{
		"notification": n.ID,
		"title":        n.Title,
	}).Info(n.Message)
	return nil
}
