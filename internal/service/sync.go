package service

import (
	"context"
	"time"

	"tourdesk/internal/domain"
	"tourdesk/internal/events"
	"tourdesk/internal/models"

	"github.com/rs/zerolog"
)

const syncEnqueueTimeout = 5 * time.Second

// SyncEnqueuer turns booking events into spreadsheet sync tasks.
type SyncEnqueuer struct {
	worker domain.SyncWorker
	logger *zerolog.Logger
}

func NewSyncEnqueuer(worker domain.SyncWorker, logger *zerolog.Logger) *SyncEnqueuer {
	return &SyncEnqueuer{worker: worker, logger: logger}
}

func (e *SyncEnqueuer) Subscribe(bus *events.EventBus) {
	bus.SubscribeBooking(e.Enqueue, events.BookingEvents...)
}

func (e *SyncEnqueuer) Enqueue(eventType string, payload events.BookingEventPayload) error {
	taskType := syncTaskFor(eventType)
	if taskType == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), syncEnqueueTimeout)
	defer cancel()

	if err := e.worker.EnqueueTask(ctx, taskType, payload.BookingID, payload.Booking); err != nil {
		e.logger.Error().Err(err).Int64("booking_id", payload.BookingID).Str("task", taskType).Msg("sheets enqueue error")
		return err
	}
	return nil
}

func syncTaskFor(eventType string) string {
	switch eventType {
	case events.EventBookingCreated, events.EventBookingUpdated:
		return models.SyncTaskUpsert
	case events.EventBookingCancelled:
		return models.SyncTaskUpdateStatus
	case events.EventBookingDeleted:
		return models.SyncTaskDelete
	default:
		return ""
	}
}
