package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pathakanu/forgetMeNot/internal/api"
	"github.com/pathakanu/forgetMeNot/internal/bot"
	"github.com/pathakanu/forgetMeNot/internal/config"
	"github.com/pathakanu/forgetMeNot/internal/database"
	"github.com/pathakanu/forgetMeNot/internal/kv"
	"github.com/pathakanu/forgetMeNot/internal/notify"
	myopenai "github.com/pathakanu/forgetMeNot/internal/openai"
	"github.com/pathakanu/forgetMeNot/internal/reminders"
	"github.com/pathakanu/forgetMeNot/internal/twilio"
	"github.com/sirupsen/logrus"
)

const serviceName = "forget-me-not"

func main() {
	cfg := config.Load()
	logger := newLogger(cfg)

	backend, err := newBackend(cfg)
	if err != nil {
		logger.WithError(err).Fatal("storage init failed")
	}

	store := reminders.New(backend)
	if err := store.Init(context.Background()); err != nil {
		logger.WithError(err).Fatal("reminder store init failed")
	}

	broadcaster := notify.NewBroadcaster(cfg.SubscriberBuffer)
	targets := []notify.Notifier{
		notify.NewLogNotifier(logger.WithField("component", "notify")),
		broadcaster,
	}
	if cfg.TwilioEnabled() {
		twilioClient := twilio.New(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppNumber, logger.WithField("component", "twilio"))
		targets = append(targets, notify.NewWhatsAppNotifier(twilioClient, cfg.NotifyWhatsAppTo))
		logger.Infof("whatsapp delivery enabled from %s", cfg.TwilioWhatsAppNumber)
	}
	dispatcher := notify.NewDispatcher(logger.WithField("component", "dispatcher"), targets...)

	openAIClient := myopenai.New(cfg.OpenAIAPIKey)
	reminderBot := bot.New(cfg, store, openAIClient, dispatcher, logger.WithField("component", "bot"))
	if err := reminderBot.StartScheduler(); err != nil {
		logger.WithError(err).Fatal("scheduler start")
	}

	apiServer := api.NewServer(store, broadcaster, cfg.LocalTimezone, logger.WithField("component", "api"))
	// Cancelled on shutdown so open event streams end.
	baseCtx, cancelStreams := context.WithCancel(context.Background())
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     apiServer.Router(reminderBot.Handler()),
		BaseContext: func(net.Listener) context.Context { return baseCtx },
	}
	server.RegisterOnShutdown(cancelStreams)

	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server error")
		}
	}()

	waitForShutdown(server, reminderBot, logger)
}

func newLogger(cfg *config.Config) *logrus.Entry {
	if cfg.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "severity",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.Warnf("invalid LOG_LEVEL %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stdout)

	return logrus.WithField("service", serviceName)
}

func newBackend(cfg *config.Config) (kv.Store, error) {
	if cfg.Storage == config.StorageMemory {
		logrus.Warn("using in-memory storage, reminders are lost on restart")
		return kv.NewMemoryStore(), nil
	}
	db, err := database.New(cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	return kv.NewGormStore(db), nil
}

func waitForShutdown(server *http.Server, reminderBot *bot.Bot, logger *logrus.Entry) {
	stopCtx := make(chan os.Signal, 1)
	signal.Notify(stopCtx, syscall.SIGINT, syscall.SIGTERM)
	<-stopCtx
	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Warn("server shutdown error")
	}
	reminderBot.StopScheduler()
}
