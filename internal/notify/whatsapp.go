package notify

import (
	"context"
	"fmt"
)

// WhatsAppSender sends a WhatsApp message body to a recipient number.
type WhatsAppSender interface {
	SendWhatsAppMessage(to, body string) error
}

// WhatsAppNotifier forwards notifications to a single WhatsApp recipient.
type WhatsAppNotifier struct {
	sender WhatsAppSender
	to     string
}

// NewWhatsAppNotifier returns a notifier sending through sender to the number to.
func NewWhatsAppNotifier(sender WhatsAppSender, to string) *WhatsAppNotifier {
	return &WhatsAppNotifier{sender: sender, to: to}
}

// Notify sends the notification title and message as one WhatsApp message.
func (w *WhatsAppNotifier) Notify(_ context.Context, n Notification) error {
	if w.to == "" {
		return fmt.Errorf("whatsapp recipient not configured")
	}
	return w.sender.SendWhatsAppMessage(w.to, fmt.Sprintf("%s: %s", n.Title, n.Message))
}
