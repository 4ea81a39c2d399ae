package listener

import (
	"context"
	"encoding/json"
	"time"

	"github.com/stocktrackerst/stock-tracker/internal/ledger"
	"github.com/stocktrackerst/stock-tracker/internal/ledger/dto"
	"github.com/stocktrackerst/stock-tracker/internal/model"
	"github.com/stocktrackerst/stock-tracker/pkg/broker"
	"github.com/stocktrackerst/stock-tracker/pkg/logger"
	"go.uber.org/zap"
)

// MovementListener ingests movement commands from the broker. It is a thin
// caller of the same usecase the HTTP API uses; the balance rules live in one
// place only.
type MovementListener struct {
	consumer *broker.KafkaConsumer
	uc       ledger.UseCase
	logger   logger.ZapLogger
}

func NewMovementListener(consumer *broker.KafkaConsumer, uc ledger.UseCase, logger logger.ZapLogger) *MovementListener {
	return &MovementListener{
		consumer: consumer,
		uc:       uc,
		logger:   logger,
	}
}

func (l *MovementListener) Start(ctx context.Context) {
	l.logger.Info("Starting movement Kafka listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping movement Kafka listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				// Don't log context canceled error as error
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

type MovementRequestedEvent struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Payload   MovementPayload `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

type MovementPayload struct {
	TenantID        string `json:"tenant_id"`
	Type            string `json:"type"`
	Model           string `json:"model"`
	Category        string `json:"category"`
	Quantity        int64  `json:"quantity"`
	Supplier        string `json:"supplier"`
	BillNo          string `json:"bill_no"`
	CustomerName    string `json:"customer_name"`
	BookingID       string `json:"booking_id"`
	Status          string `json:"status"`
	DispatchID      string `json:"dispatch_id"`
	LinkedBookingID string `json:"linked_booking_id"`
	EnteredBy       string `json:"entered_by"`
	Date            string `json:"date"`
	Remarks         string `json:"remarks"`
}

func (l *MovementListener) processMessage(ctx context.Context, value []byte) {
	var event MovementRequestedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}

	if event.EventType != "MovementRequested" {
		return
	}

	l.logger.Info("Processing MovementRequested event",
		zap.String("event_id", event.EventID),
		zap.String("type", event.Payload.Type),
		zap.String("model", event.Payload.Model),
	)

	p := event.Payload
	var err error
	switch p.Type {
	case model.MovementOrder:
		_, err = l.uc.Order(ctx, &dto.OrderInput{
			TenantID: p.TenantID, Model: p.Model, Category: p.Category,
			Quantity: p.Quantity, Supplier: p.Supplier, BillNo: p.BillNo,
			OrderedBy: p.EnteredBy, Date: p.Date, Remarks: p.Remarks,
		})
	case model.MovementReceive:
		_, err = l.uc.Receive(ctx, &dto.ReceiveInput{
			TenantID: p.TenantID, Model: p.Model, Category: p.Category,
			Quantity: p.Quantity, ReceivedBy: p.EnteredBy,
			Date: p.Date, Remarks: p.Remarks,
		})
	case model.MovementBook:
		_, err = l.uc.Book(ctx, &dto.BookInput{
			TenantID: p.TenantID, Model: p.Model, Category: p.Category,
			Quantity: p.Quantity, Status: p.Status, CustomerName: p.CustomerName,
			BookingID: p.BookingID, EnteredBy: p.EnteredBy,
			DueDate: p.Date, Remarks: p.Remarks,
		})
	case model.MovementDispatch:
		_, err = l.uc.Dispatch(ctx, &dto.DispatchInput{
			TenantID: p.TenantID, Model: p.Model, Category: p.Category,
			Quantity: p.Quantity, CustomerName: p.CustomerName,
			DispatchID: p.DispatchID, DispatchedBy: p.EnteredBy,
			LinkedBookingID: p.LinkedBookingID, Date: p.Date, Remarks: p.Remarks,
		})
	default:
		l.logger.Warn("Skipping movement with unknown type",
			zap.String("event_id", event.EventID), zap.String("type", p.Type))
		return
	}

	if err != nil {
		l.logger.Error("Failed to apply movement from broker",
			zap.String("event_id", event.EventID),
			zap.String("model", p.Model),
			zap.Error(err),
		)
	}
}
