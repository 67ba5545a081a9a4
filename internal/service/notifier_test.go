package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"tourdesk/internal/events"
	"tourdesk/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTelegramSender struct {
	mock.Mock
}

func (m *mockTelegramSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

// blockingSender holds every Send until release is closed.
type blockingSender struct {
	release chan struct{}
	sent    chan tgbotapi.Chattable
}

func newBlockingSender() *blockingSender {
	return &blockingSender{release: make(chan struct{}), sent: make(chan tgbotapi.Chattable, notificationQueueSize)}
}

func (s *blockingSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	<-s.release
	s.sent <- c
	return tgbotapi.Message{}, nil
}

func samplePayload() events.BookingEventPayload {
	return events.BookingEventPayload{
		BookingID: 12,
		Booking: &models.BookingDetails{
			Booking: models.Booking{
				ID: 12, NumGuests: 3, BookingDate: "2026-11-01",
				Status: models.StatusPending, PaymentStatus: models.PaymentUnpaid, TotalAmount: 300,
			},
			Destination:   "Lake Bled",
			TourStartDate: "2026-12-01",
			CustomerName:  "Ana Novak",
			CustomerEmail: "ana@example.com",
		},
		ChangedBy: models.RoleCustomer,
	}
}

func TestTelegramNotifier(t *testing.T) {
	bot := new(mockTelegramSender)
	bot.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		msg, ok := c.(tgbotapi.MessageConfig)
		return ok && msg.ChatID == 10
	})).Return(tgbotapi.Message{}, nil)
	bot.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		msg, ok := c.(tgbotapi.MessageConfig)
		return ok && msg.ChatID == 20
	})).Return(tgbotapi.Message{}, errors.New("chat not found"))

	err := NewTelegramNotifier(bot, []int64{10, 20}, &testLogger).Notify(events.EventBookingCreated, samplePayload())
	assert.EqualError(t, err, "chat not found")
	bot.AssertNumberOfCalls(t, "Send", 2)

	msg := bot.Calls[0].Arguments.Get(0).(tgbotapi.MessageConfig)
	assert.Contains(t, msg.Text, "New booking #12")
	assert.Contains(t, msg.Text, "Tour: Lake Bled (2026-12-01)")
	assert.Contains(t, msg.Text, "Customer: Ana Novak <ana@example.com>")
	assert.Contains(t, msg.Text, "Guests: 3, date 2026-11-01")
	assert.Contains(t, msg.Text, "By: customer")
}

func TestFormatBookingEvent(t *testing.T) {
	assert.Empty(t, formatBookingEvent("tour_created", samplePayload()))

	text := formatBookingEvent(events.EventBookingDeleted, events.BookingEventPayload{BookingID: 5})
	assert.Equal(t, "Booking deleted #5", text)

	text = formatBookingEvent(events.EventBookingCancelled, samplePayload())
	require.NotEmpty(t, text)
	assert.Contains(t, text, "Booking cancelled #12")
	assert.Contains(t, text, "Status: pending / unpaid, total 300.00")
}

func TestTelegramNotifierDeliversInBackground(t *testing.T) {
	sender := newBlockingSender()
	notifier := NewTelegramNotifier(sender, []int64{10}, &testLogger)
	bus := events.NewEventBus()
	notifier.Subscribe(bus)

	start := time.Now()
	require.NoError(t, bus.PublishJSON(events.EventBookingCreated, samplePayload()))
	assert.Less(t, time.Since(start), 200*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		notifier.Run(ctx)
		close(done)
	}()
	close(sender.release)

	select {
	case c := <-sender.sent:
		msg := c.(tgbotapi.MessageConfig)
		assert.Equal(t, int64(10), msg.ChatID)
		assert.Contains(t, msg.Text, "New booking #12")
	case <-time.After(time.Second):
		t.Fatal("notification was not delivered")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestTelegramNotifierDropsWhenQueueFull(t *testing.T) {
	sender := newBlockingSender()
	notifier := NewTelegramNotifier(sender, []int64{10}, &testLogger)
	bus := events.NewEventBus()
	notifier.Subscribe(bus)

	for i := 0; i < notificationQueueSize+5; i++ {
		require.NoError(t, bus.PublishJSON(events.EventBookingUpdated, samplePayload()))
	}
	assert.Len(t, notifier.queue, notificationQueueSize)
}
