// AngelaMos | 2026
// notifier.go

package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"time"

	"github.com/carterperez-dev/eventhub/internal/bus"
)

const (
	queueGroup     = "notify"
	defaultTimeout = 10 * time.Second
)

// Notifier mails a receipt for every booked ticket. Delivery is best
// effort; a failed send is logged and never affects the booking.
type Notifier struct {
	sender  Sender
	timeout time.Duration
}

func NewNotifier(sender Sender, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Notifier{sender: sender, timeout: timeout}
}

func (n *Notifier) Subscribe(sub bus.Subscriber) error {
	if err := sub.QueueSubscribe(bus.TicketBooked, queueGroup, n.handleBooked); err != nil {
		return fmt.Errorf("notify subscribe: %w", err)
	}
	return nil
}

func (n *Notifier) handleBooked(ctx context.Context, msg *bus.Message) {
	var p bus.TicketBookedPayload
	if err := msg.Decode(&p); err != nil {
		slog.WarnContext(ctx, "malformed booking message",
			"message_id", msg.ID,
			"error", err,
		)
		return
	}
	if p.Email == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	if err := n.sender.Send(ctx, BookingReceipt(p)); err != nil {
		slog.ErrorContext(ctx, "booking receipt failed",
			"ticket_code", p.TicketCode,
			"to", p.Email,
			"error", err,
		)
		return
	}

	slog.InfoContext(ctx, "booking receipt sent",
		"ticket_code", p.TicketCode,
		"to", p.Email,
	)
}

func BookingReceipt(p bus.TicketBookedPayload) Email {
	subject := "Your ticket for " + p.EventName

	text := fmt.Sprintf(
		"Booked! Your Ticket ID: %s\n\nEvent: %s\nShow this ID at the door to check in.",
		p.TicketCode,
		p.EventName,
	)

	body := fmt.Sprintf(`
		<h2>You're going to %s</h2>
		<p>Your Ticket ID is <strong style="font-size: 20px;">%s</strong></p>
		<p>Show this ID at the door to check in.</p>
	`, html.EscapeString(p.EventName), html.EscapeString(p.TicketCode))

	return Email{
		To:      p.Email,
		Subject: subject,
		Text:    text,
		HTML:    body,
	}
}
