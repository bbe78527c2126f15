// Package api exposes reminder management and the tab event stream over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/pathakanu/forgetMeNot/internal/due"
	"github.com/pathakanu/forgetMeNot/internal/model"
	"github.com/pathakanu/forgetMeNot/internal/notify"
	"github.com/pathakanu/forgetMeNot/internal/reminders"
	"github.com/sirupsen/logrus"
)

// ReminderStore is the subset of the reminder store used by the API.
type ReminderStore interface {
	List(ctx context.Context) ([]model.Reminder, error)
	Get(ctx context.Context, id int64) (model.Reminder, error)
	Add(ctx context.Context, r model.Reminder) (model.Reminder, error)
	Delete(ctx context.Context, id int64) error
	LastNotified(ctx context.Context) (model.LastNotified, error)
}

// Server holds the HTTP handlers.
type Server struct {
	store       ReminderStore
	broadcaster *notify.Broadcaster
	location    *time.Location
	now         func() time.Time
	logger      *logrus.Entry
}

// NewServer returns a Server evaluating countdowns in location.
func NewServer(store ReminderStore, broadcaster *notify.Broadcaster, location *time.Location, logger *logrus.Entry) *Server {
	return &Server{
		store:       store,
		broadcaster: broadcaster,
		location:    location,
		now:         time.Now,
		logger:      logger,
	}
}

// ReminderView is a reminder together with its next firing.
type ReminderView struct {
	model.Reminder
	Next      *time.Time `json:"next,omitempty"`
	Countdown string     `json:"countdown"`
}

// Router builds the mux router. webhook, when non-nil, is mounted at /twilio/webhook.
func (s *Server) Router(webhook http.Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.HandleFunc("/reminders", s.createReminder).Methods(http.MethodPost)
	r.HandleFunc("/reminders", s.listReminders).Methods(http.MethodGet)
	r.HandleFunc("/reminders/{id:[0-9]+}", s.getReminder).Methods(http.MethodGet)
	r.HandleFunc("/reminders/{id:[0-9]+}", s.deleteReminder).Methods(http.MethodDelete)
	r.HandleFunc("/events", s.events).Methods(http.MethodGet)

	if webhook != nil {
		r.Handle("/twilio/webhook", webhook).Methods(http.MethodPost)
	}
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"tabs":   s.broadcaster.Subscribers(),
	})
}

func (s *Server) createReminder(w http.ResponseWriter, r *http.Request) {
	var in model.Reminder
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("decode reminder: %v", err))
		return
	}
	in.ID = 0

	if err := reminders.Validate(in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := s.store.Add(r.Context(), in)
	if err != nil {
		s.logger.WithError(err).Error("create reminder")
		writeError(w, http.StatusInternalServerError, "could not save reminder")
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) listReminders(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("list reminders")
		writeError(w, http.StatusInternalServerError, "could not load reminders")
		return
	}
	last, err := s.store.LastNotified(r.Context())
	if err != nil {
		s.logger.WithError(err).Warn("list reminders: last notified")
	}

	now := s.now().In(s.location)
	views := make([]ReminderView, 0, len(list))
	for _, rem := range list {
		views = append(views, view(now, rem, last))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) getReminder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	rem, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.storeError(w, "get reminder", err)
		return
	}
	last, err := s.store.LastNotified(r.Context())
	if err != nil {
		s.logger.WithError(err).Warn("get reminder: last notified")
	}
	writeJSON(w, http.StatusOK, view(s.now().In(s.location), rem, last))
}

func (s *Server) deleteReminder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.storeError(w, "delete reminder", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) storeError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, reminders.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.logger.WithError(err).Error(op)
	writeError(w, http.StatusInternalServerError, "storage error")
}

func view(now time.Time, r model.Reminder, last model.LastNotified) ReminderView {
	v := ReminderView{Reminder: r, Countdown: "unknown"}
	if next, err := due.Next(now, r, last); err == nil {
		v.Next = &next
		v.Countdown = due.FormatCountdown(next.Sub(now))
	}
	return v
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid reminder id")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Debug("request")
	})
}
