package messaging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traffic-worker-go/internal/config"
	"traffic-worker-go/internal/models"
)

func TestPublishWithoutConnection(t *testing.T) {
	s := &Service{cfg: &config.Config{CountsSubject: "traffic.lane_counts"}}

	assert.False(t, s.IsConnected())
	assert.ErrorIs(t, s.PublishCounts(models.LaneCountsPayload{}), ErrNotConnected)
	assert.NoError(t, s.Shutdown(context.Background()))
}

func TestNewServiceUnreachable(t *testing.T) {
	cfg := &config.Config{
		WorkerID:          "traffic-test",
		NatsURL:           "nats://127.0.0.1:1",
		NatsMaxReconnects: 0,
	}
	_, err := NewService(cfg)
	assert.Error(t, err)
}

func TestNoopPublisher(t *testing.T) {
	assert.NoError(t, NoopPublisher{}.PublishCounts(models.LaneCountsPayload{}))
}

func runNATSServer(t *testing.T) *server.Server {
	t.Helper()
	ns, err := server.NewServer(&server.Options{
		Host:   "127.0.0.1",
		Port:   server.RANDOM_PORT,
		NoLog:  true,
		NoSigs: true,
	})
	require.NoError(t, err)
	go ns.Start()
	require.True(t, ns.ReadyForConnections(5*time.Second), "nats server not ready")
	t.Cleanup(ns.Shutdown)
	return ns
}

func TestShutdownDeliversPublishedCounts(t *testing.T) {
	ns := runNATSServer(t)

	sub, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	defer sub.Close()
	msgs, err := sub.SubscribeSync("traffic.lane_counts")
	require.NoError(t, err)
	require.NoError(t, sub.Flush())

	svc, err := NewService(&config.Config{
		WorkerID:           "traffic-test",
		NatsURL:            ns.ClientURL(),
		NatsConnectTimeout: 2 * time.Second,
		NatsReconnectWait:  100 * time.Millisecond,
		NatsDrainTimeout:   2 * time.Second,
		CountsSubject:      "traffic.lane_counts",
	})
	require.NoError(t, err)

	require.NoError(t, svc.PublishCounts(models.LaneCountsPayload{
		RunID:  "run-1",
		Counts: models.CountRecord{1, 0, 2, 0},
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, svc.Shutdown(ctx))
	assert.True(t, svc.conn.IsClosed(), "shutdown returns only after the connection closed")
	assert.False(t, svc.IsConnected())

	msg, err := msgs.NextMsg(2 * time.Second)
	require.NoError(t, err)
	var got models.LaneCountsPayload
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, models.CountRecord{1, 0, 2, 0}, got.Counts)

	// a second shutdown is a no-op
	assert.NoError(t, svc.Shutdown(ctx))
}
