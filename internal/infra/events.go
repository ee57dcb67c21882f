package infra

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// NATSPublisher emits tender lifecycle events as JSON on "tenders.<event>".
// Publishing is best effort: a failure is logged and never fails the request.
type NATSPublisher struct {
	nc *nats.Conn
}

// NewNATSPublisher connects to url. An empty url returns a nil publisher.
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	if url == "" {
		return nil, nil
	}
	nc, err := nats.Connect(url,
		nats.Name("nakl-tenders"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{nc: nc}, nil
}

func (p *NATSPublisher) Publish(_ context.Context, event string, payload any) {
	if p == nil || p.nc == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("events: marshal failed")
		return
	}
	if err := p.nc.Publish("tenders."+event, data); err != nil {
		log.Warn().Err(err).Str("event", event).Msg("events: publish failed")
	}
}

func (p *NATSPublisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	_ = p.nc.Drain()
}
