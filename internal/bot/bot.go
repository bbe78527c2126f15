package bot

import (
	"context"
	"time"

	"github.com/pathakanu/forgetMeNot/internal/config"
	"github.com/pathakanu/forgetMeNot/internal/due"
	"github.com/pathakanu/forgetMeNot/internal/model"
	"github.com/pathakanu/forgetMeNot/internal/notify"
	myopenai "github.com/pathakanu/forgetMeNot/internal/openai"
	"github.com/pathakanu/forgetMeNot/internal/reminders"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Bot coordinates reminder persistence, delivery, and scheduling.
type Bot struct {
	cfg        *config.Config
	store      *reminders.Store
	openAI     *myopenai.Client
	dispatcher *notify.Dispatcher
	cron       *cron.Cron
	now        func() time.Time
	logger     *logrus.Entry
}

// New creates a fully configured Bot instance.
func New(cfg *config.Config, store *reminders.Store, openAI *myopenai.Client, dispatcher *notify.Dispatcher, logger *logrus.Entry) *Bot {
	cronLogger := cron.PrintfLogger(logger.WithField("component", "cron"))
	c := cron.New(
		cron.WithLocation(cfg.LocalTimezone),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	return &Bot{
		cfg:        cfg,
		store:      store,
		openAI:     openAI,
		dispatcher: dispatcher,
		cron:       c,
		now:        time.Now,
		logger:     logger,
	}
}

// StartScheduler registers the poll job and starts the scheduler loop.
func (b *Bot) StartScheduler() error {
	_, err := b.cron.AddFunc(b.cfg.PollSchedule, func() {
		if _, err := b.CheckReminders(context.Background()); err != nil {
			b.logger.WithError(err).Error("scheduler: check reminders")
		}
	})
	if err != nil {
		return err
	}
	b.cron.Start()
	b.logger.Infof("scheduler started with schedule %q in %s", b.cfg.PollSchedule, b.cfg.LocalTimezone)
	return nil
}

// StopScheduler stops the cron scheduler and waits for a running tick to finish.
func (b *Bot) StopScheduler() {
	ctx := b.cron.Stop()
	<-ctx.Done()
}

// CheckReminders runs one evaluation pass: every due reminder has its firing
// recorded and is then dispatched. It returns the reminders that fired.
func (b *Bot) CheckReminders(ctx context.Context) ([]model.Reminder, error) {
	now := b.now().In(b.cfg.LocalTimezone)

	var fired []model.Reminder
	err := b.store.UpdateLastNotified(ctx, func(list []model.Reminder, last model.LastNotified) bool {
		fired = due.Evaluate(now, list, last)
		due.Fire(now, fired, last)
		return len(fired) > 0
	})
	if err != nil {
		return nil, err
	}
	if len(fired) == 0 {
		return nil, nil
	}

	for _, r := range fired {
		b.dispatcher.Dispatch(ctx, notify.ForReminder(r))
	}

	b.logger.WithField("count", len(fired)).Debugf("fired reminders at %s", now.Format("15:04"))
	return fired, nil
}
