package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"traffic-worker-go/internal/config"
	"traffic-worker-go/internal/models"
)

var ErrNotConnected = errors.New("nats connection not established")

type Service struct {
	conn *nats.Conn
	cfg  *config.Config

	// closed is closed by the connection's ClosedHandler once a drain completes
	closed chan struct{}
}

func NewService(cfg *config.Config) (*Service, error) {
	closed := make(chan struct{})
	opts := []nats.Option{
		nats.Name("traffic-worker-" + cfg.WorkerID),
		nats.Timeout(cfg.NatsConnectTimeout),
		nats.ReconnectWait(cfg.NatsReconnectWait),
		nats.MaxReconnects(cfg.NatsMaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			close(closed)
		}),
	}
	if cfg.NatsDrainTimeout > 0 {
		opts = append(opts, nats.DrainTimeout(cfg.NatsDrainTimeout))
	}

	conn, err := nats.Connect(cfg.NatsURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", cfg.NatsURL, err)
	}

	log.Info().Str("url", cfg.NatsURL).Msg("NATS connection established")

	return &Service{
		conn:   conn,
		cfg:    cfg,
		closed: closed,
	}, nil
}

func (s *Service) Publish(subject string, data interface{}) error {
	if !s.IsConnected() {
		return ErrNotConnected
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	return s.conn.Publish(subject, payload)
}

// PublishCounts sends one frame's lane counts on the configured subject
func (s *Service) PublishCounts(payload models.LaneCountsPayload) error {
	return s.Publish(s.cfg.CountsSubject, payload)
}

func (s *Service) IsConnected() bool {
	return s != nil && s.conn != nil && s.conn.IsConnected()
}

// Shutdown drains the connection so published counts reach the server, and
// waits for the close until ctx ends.
func (s *Service) Shutdown(ctx context.Context) error {
	if s.conn == nil || s.conn.IsClosed() {
		return nil
	}

	// Drain returns once draining has started; the ClosedHandler marks the end
	if err := s.conn.Drain(); err != nil {
		log.Warn().Err(err).Msg("Failed to drain NATS connection gracefully, closing immediately")
		s.conn.Close()
		return fmt.Errorf("drain nats: %w", err)
	}

	select {
	case <-s.closed:
		log.Info().Msg("NATS connection drained")
		return nil
	case <-ctx.Done():
		s.conn.Close()
		return ctx.Err()
	}
}

// NoopPublisher is used when NATS is disabled
type NoopPublisher struct{}

func (NoopPublisher) PublishCounts(models.LaneCountsPayload) error { return nil }
