package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/paylume/productsync/internal/metrics"
	"github.com/paylume/productsync/pkg/model"
)

// Sink forwards bus notices to NATS as canonical envelopes. Publishing is
// strictly best-effort: a broken connection must never stall or fail the
// sync path, so errors are logged and dropped.
type Sink struct {
	logger  *zap.Logger
	nc      *nats.Conn
	subject string
	service string
}

// NewSink creates a NATS sink publishing on subject.
func NewSink(logger *zap.Logger, nc *nats.Conn, subject, service string) *Sink {
	return &Sink{logger: logger, nc: nc, subject: subject, service: service}
}

// Attach subscribes the sink to bus.
func (s *Sink) Attach(bus *Bus) {
	bus.OnNotice(s.publishNotice)
}

func (s *Sink) publishNotice(n Notice) {
	eventType := "notice." + string(n.Level)
	env := model.Envelope{
		ID:            uuid.New(),
		CorrelationID: n.ID,
		ProductID:     n.ProductID,
		Resource:      n.Resource,
		EventType:     eventType,
		Timestamp:     time.Now().UTC(),
	}
	if payload, err := json.Marshal(map[string]string{"message": n.Message}); err == nil {
		env.Payload = payload
	}

	data, err := json.Marshal(env)
	if err != nil {
		s.logger.Warn("events.sink.marshal_failed", zap.Error(err))
		metrics.IncError("events_sink", "marshal_failed")
		return
	}

	msg := &nats.Msg{
		Subject: s.subject,
		Data:    data,
		Header: nats.Header{
			"event_type":     []string{eventType},
			"correlation_id": []string{n.ID.String()},
			"service":        []string{s.service},
			"content_type":   []string{"application/json"},
			"product_id":     []string{n.ProductID},
		},
	}
	if err := s.nc.PublishMsg(msg); err != nil {
		s.logger.Warn("events.sink.publish_failed",
			zap.String("subject", s.subject),
			zap.Error(err))
		metrics.IncError("events_sink", "publish_failed")
	}
}
