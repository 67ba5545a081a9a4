package service

import (
	"context"
	"fmt"
	"strings"

	"tourdesk/internal/domain"
	"tourdesk/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const notificationQueueSize = 64

type notification struct {
	eventType string
	payload   events.BookingEventPayload
}

// TelegramNotifier messages staff chats about booking lifecycle events.
// Publishing only queues the event; Run sends the messages.
type TelegramNotifier struct {
	bot     domain.TelegramSender
	chatIDs []int64
	queue   chan notification
	logger  *zerolog.Logger
}

func NewTelegramNotifier(bot domain.TelegramSender, chatIDs []int64, logger *zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		bot:     bot,
		chatIDs: chatIDs,
		queue:   make(chan notification, notificationQueueSize),
		logger:  logger,
	}
}

// Subscribe registers the notifier for every booking event on bus.
func (n *TelegramNotifier) Subscribe(bus *events.EventBus) {
	bus.SubscribeBooking(n.enqueue, events.BookingEvents...)
}

// enqueue never blocks the publisher. When the queue is full the event is
// dropped.
func (n *TelegramNotifier) enqueue(eventType string, payload events.BookingEventPayload) error {
	select {
	case n.queue <- notification{eventType: eventType, payload: payload}:
	default:
		n.logger.Warn().Str("event_type", eventType).Int64("booking_id", payload.BookingID).Msg("telegram queue full, notification dropped")
	}
	return nil
}

// Run sends queued notifications until ctx is done.
func (n *TelegramNotifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case note := <-n.queue:
			_ = n.Notify(note.eventType, note.payload)
		}
	}
}

// Notify sends one message per configured chat. Delivery failures are logged
// and the last one is returned.
func (n *TelegramNotifier) Notify(eventType string, payload events.BookingEventPayload) error {
	text := formatBookingEvent(eventType, payload)
	if text == "" {
		return nil
	}

	var lastErr error
	for _, chatID := range n.chatIDs {
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := n.bot.Send(msg); err != nil {
			n.logger.Error().Err(err).Int64("chat_id", chatID).Str("event_type", eventType).Msg("telegram send failed")
			lastErr = err
		}
	}
	return lastErr
}

func formatBookingEvent(eventType string, payload events.BookingEventPayload) string {
	var title string
	switch eventType {
	case events.EventBookingCreated:
		title = "New booking"
	case events.EventBookingUpdated:
		title = "Booking updated"
	case events.EventBookingCancelled:
		title = "Booking cancelled"
	case events.EventBookingDeleted:
		title = "Booking deleted"
	default:
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s #%d", title, payload.BookingID)
	if booking := payload.Booking; booking != nil {
		fmt.Fprintf(&b, "\nTour: %s (%s)", booking.Destination, booking.TourStartDate)
		fmt.Fprintf(&b, "\nCustomer: %s <%s>", booking.CustomerName, booking.CustomerEmail)
		fmt.Fprintf(&b, "\nGuests: %d, date %s", booking.NumGuests, booking.BookingDate)
		fmt.Fprintf(&b, "\nStatus: %s / %s, total %.2f", booking.Status, booking.PaymentStatus, booking.TotalAmount)
	}
	if payload.ChangedBy != "" {
		fmt.Fprintf(&b, "\nBy: %s", payload.ChangedBy)
	}
	return b.String()
}
