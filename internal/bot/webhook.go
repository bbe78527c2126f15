package bot

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/pathakanu/forgetMeNot/internal/due"
	"github.com/pathakanu/forgetMeNot/internal/model"
	myopenai "github.com/pathakanu/forgetMeNot/internal/openai"
	"github.com/pathakanu/forgetMeNot/internal/reminders"
)

// Handler returns the HTTP handler for incoming Twilio messages.
func (b *Bot) Handler() http.HandlerFunc {
	return b.handleIncomingMessage
}

// handleIncomingMessage processes Twilio webhook POST requests.
func (b *Bot) handleIncomingMessage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		b.logger.WithError(err).Warn("webhook: parse form")
		b.writeTwilioResponse(w, "Sorry, I couldn't understand that request.")
		return
	}

	body := strings.TrimSpace(r.FormValue("Body"))
	if r.FormValue("From") == "" || body == "" {
		b.writeTwilioResponse(w, "I need a message to work with. Please try again.")
		return
	}

	b.writeTwilioResponse(w, b.reply(r.Context(), body))
}

func (b *Bot) reply(ctx context.Context, body string) string {
	lowerBody := strings.ToLower(body)

	switch {
	case isHelpRequest(lowerBody):
		return helpResponse()
	case isListRequest(lowerBody):
		return b.listReminders(ctx)
	}
	if target, ok := extractDeleteTarget(body); ok {
		return b.deleteReminder(ctx, target)
	}
	if draft, ok := parseAddCommand(body); ok {
		return b.addReminder(ctx, draft)
	}

	return b.replyWithModel(ctx, body)
}

// replyWithModel handles messages the command rules did not recognise.
func (b *Bot) replyWithModel(ctx context.Context, body string) string {
	intent, err := b.openAI.ClassifyIntent(ctx, body)
	if err != nil {
		if !errors.Is(err, myopenai.ErrClientNotInitialised) {
			b.logger.WithError(err).Warn("intent classification")
		}
		return "I didn't catch that. " + helpResponse()
	}

	switch intent {
	case myopenai.IntentListReminders:
		return b.listReminders(ctx)
	case myopenai.IntentHelp:
		return helpResponse()
	case myopenai.IntentDeleteReminder:
		return "Tell me which reminder to delete, e.g. 'delete 2'."
	case myopenai.IntentAddReminder:
		draft, err := b.openAI.ExtractReminder(ctx, body)
		if err != nil {
			b.logger.WithError(err).Warn("reminder extraction")
			return "I couldn't work out that reminder. Try: add stretch 09:00-17:00 every 60"
		}
		return b.addReminder(ctx, model.Reminder{
			Text:            draft.Text,
			TimeWindowStart: normalizeClock(draft.TimeWindowStart),
			TimeWindowEnd:   normalizeClock(draft.TimeWindowEnd),
			Cadence:         draft.Cadence,
		})
	default:
		return "I didn't catch that. " + helpResponse()
	}
}

func (b *Bot) addReminder(ctx context.Context, r model.Reminder) string {
	if err := reminders.Validate(r); err != nil {
		return fmt.Sprintf("That reminder isn't valid: %v.", err)
	}
	saved, err := b.store.Add(ctx, r)
	if err != nil {
		b.logger.WithError(err).Error("add reminder")
		return "I couldn't save the reminder. Please try again."
	}
	return fmt.Sprintf("Got it! I'll remind you to %s between %s and %s every %d minutes.",
		saved.Text, saved.TimeWindowStart, saved.TimeWindowEnd, saved.Cadence)
}

// listReminders returns a human-readable list of reminders with their countdowns.
func (b *Bot) listReminders(ctx context.Context) string {
	list, err := b.store.List(ctx)
	if err != nil {
		b.logger.WithError(err).Error("list reminders")
		return "I couldn't load your reminders. Please try again later."
	}
	if len(list) == 0 {
		return "No reminders yet. Add one to get started!"
	}
	last, err := b.store.LastNotified(ctx)
	if err != nil {
		b.logger.WithError(err).Warn("list reminders: last notified")
	}

	now := b.now().In(b.cfg.LocalTimezone)
	var sb strings.Builder
	sb.WriteString("Here are your reminders:\n")
	for i, r := range list {
		countdown := "unknown"
		if next, err := due.Next(now, r, last); err == nil {
			countdown = due.FormatCountdown(next.Sub(now))
		}
		fmt.Fprintf(&sb, "%d. %s (%s - %s, every %d minutes) next: %s\n",
			i+1, r.Text, r.TimeWindowStart, r.TimeWindowEnd, r.Cadence, countdown)
	}
	return sb.String()
}

// deleteReminder removes a reminder by its 1-based list position or by its ID.
func (b *Bot) deleteReminder(ctx context.Context, target int64) string {
	list, err := b.store.List(ctx)
	if err != nil {
		b.logger.WithError(err).Error("delete reminder")
		return "I couldn't load your reminders. Please try again later."
	}

	id := target
	if target >= 1 && target <= int64(len(list)) {
		id = list[target-1].ID
	}

	if err := b.store.Delete(ctx, id); err != nil {
		if errors.Is(err, reminders.ErrNotFound) {
			return "I couldn't find that reminder."
		}
		b.logger.WithError(err).Error("delete reminder")
		return "I couldn't delete that reminder. Please try again."
	}
	return fmt.Sprintf("Deleted reminder %d.", target)
}

func (b *Bot) writeTwilioResponse(w http.ResponseWriter, message string) {
	twiml := struct {
		XMLName xml.Name `xml:"Response"`
		Message string   `xml:"Message"`
	}{
		Message: message,
	}

	w.Header().Set("Content-Type", "application/xml")
	if err := xml.NewEncoder(w).Encode(twiml); err != nil {
		b.logger.WithError(err).Warn("twilio response encode")
	}
}

func isListRequest(body string) bool {
	return body == "list" ||
		strings.Contains(body, "show my reminders") ||
		strings.Contains(body, "list my reminders") ||
		strings.Contains(body, "show reminders") ||
		strings.Contains(body, "list reminders")
}

func isHelpRequest(body string) bool {
	return body == "help" || body == "?"
}

func helpResponse() string {
	return "You can say things like:\n- \"add stretch 09:00-17:00 every 60\" to add a reminder\n- \"list\" to see your reminders\n- \"delete 2\" to remove one"
}

var (
	deleteRegex = regexp.MustCompile(`(?i)^\s*(?:delete|remove)(?:\s+reminder)?\s+#?(\d+)\s*$`)
	addRegex    = regexp.MustCompile(`(?i)^\s*(?:add|remind me(?:\s+to)?)\s+(.+?)\s+(\d{1,2}:\d{2})\s*-\s*(\d{1,2}:\d{2})\s+every\s+(\d+)\s*(?:m|min|mins|minutes?)?\s*$`)
)

func extractDeleteTarget(message string) (int64, bool) {
	matches := deleteRegex.FindStringSubmatch(message)
	if len(matches) < 2 {
		return 0, false
	}
	target, err := strconv.ParseInt(matches[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return target, true
}

func parseAddCommand(message string) (model.Reminder, bool) {
	matches := addRegex.FindStringSubmatch(message)
	if len(matches) < 5 {
		return model.Reminder{}, false
	}
	cadence, err := strconv.Atoi(matches[4])
	if err != nil {
		return model.Reminder{}, false
	}
	return model.Reminder{
		Text:            strings.TrimSpace(matches[1]),
		TimeWindowStart: normalizeClock(matches[2]),
		TimeWindowEnd:   normalizeClock(matches[3]),
		Cadence:         cadence,
	}, true
}

// normalizeClock pads single-digit hours, "9:00" becomes "09:00".
func normalizeClock(value string) string {
	value = strings.TrimSpace(value)
	if hh, _, ok := strings.Cut(value, ":"); ok && len(hh) == 1 {
		return "0" + value
	}
	return value
}
