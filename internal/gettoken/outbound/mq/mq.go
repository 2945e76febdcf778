package mq

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/shandysiswandi/gettoken/internal/gettoken/entity"
	"github.com/shandysiswandi/gettoken/internal/pkg/instrument"
	"github.com/shandysiswandi/gettoken/internal/pkg/messaging"
	"github.com/shandysiswandi/gettoken/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
)

const keyOfCorrelationID string = "cID"

type Messaging struct {
	client      messaging.Messaging
	destination string
	ins         instrument.Instrumentation
}

// NewMessaging publishes to destination, or to event.RetrievalAuditDestination when empty.
func NewMessaging(client messaging.Messaging, destination string, ins instrument.Instrumentation) *Messaging {
	if destination == "" {
		destination = event.RetrievalAuditDestination
	}

	return &Messaging{client: client, destination: destination, ins: ins}
}

func (m *Messaging) PublishRetrievalAudit(ctx context.Context, rec entity.AuditRecord) error {
	ctx, span := m.ins.Tracer("gettoken.outbound.mq").Start(ctx, "PublishRetrievalAudit")
	defer span.End()

	body, err := json.Marshal(event.RetrievalAuditMessage{
		ID:            rec.ID,
		Action:        rec.Action,
		Administrator: rec.Administrator,
		Client:        rec.Client,
		Serial:        rec.Serial,
		TokenType:     rec.TokenType,
		User:          rec.User,
		Realm:         rec.Realm,
		Success:       rec.Success,
		Info:          rec.Info,
		At:            rec.At.Unix(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	cID := instrument.GetCorrelationID(ctx)
	if _, err := m.client.Publish(ctx, m.destination, messaging.OutgoingMessage{
		Body:    body,
		Key:     []byte(rec.Serial),
		Headers: []messaging.Header{{Key: keyOfCorrelationID, Value: []byte(cID)}},
		Attributes: map[string]string{
			"action":  rec.Action,
			"success": strconv.FormatBool(rec.Success),
		},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
