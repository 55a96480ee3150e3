package pipeline

import (
	"context"
	"errors"
	"image"
	"io"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traffic-worker-go/internal/models"
	"traffic-worker-go/internal/services/counting"
	"traffic-worker-go/internal/services/lanes"
	"traffic-worker-go/internal/services/telemetry"
)

type fakeFrame struct {
	id     int64
	closed bool
}

func (f *fakeFrame) Bounds() image.Rectangle { return image.Rect(0, 0, 640, 480) }

func (f *fakeFrame) FrameID() int64 { return f.id }

func (f *fakeFrame) CapturedAt() time.Time { return time.Unix(1700000000, 0).UTC() }

func (f *fakeFrame) Close() error { f.closed = true; return nil }

type fakeSource struct {
	frames []*fakeFrame
	next   int
	closed bool
}

func (s *fakeSource) Next(ctx context.Context) (*fakeFrame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.next]
	s.next++
	return f, nil
}

func (s *fakeSource) Close() error { s.closed = true; return nil }

type fakeDetector struct {
	dets map[int64][]models.Detection
	errs map[int64]error
}

func (d *fakeDetector) Detect(f *fakeFrame) ([]models.Detection, error) {
	if err := d.errs[f.id]; err != nil {
		return nil, err
	}
	return d.dets[f.id], nil
}

type fakeTransmitter struct {
	sent   []models.CountRecord
	err    error
	closed bool
}

func (t *fakeTransmitter) Send(rec models.CountRecord) error {
	if t.err != nil {
		return t.err
	}
	t.sent = append(t.sent, rec)
	return nil
}

func (t *fakeTransmitter) Close() error { t.closed = true; return nil }

type fakePublisher struct {
	payloads []models.LaneCountsPayload
}

func (p *fakePublisher) PublishCounts(payload models.LaneCountsPayload) error {
	p.payloads = append(p.payloads, payload)
	return nil
}

type fakeMarkers struct{ markers []lanes.Marker }

func (m fakeMarkers) Source(*fakeFrame) lanes.MarkerSource {
	return lanes.MarkerSourceFunc(func() ([]lanes.Marker, error) { return m.markers, nil })
}

type fakeRenderer struct{ calls int }

func (r *fakeRenderer) Render(*fakeFrame, lanes.Assigner, []models.Detection, models.CountRecord) ([]byte, error) {
	r.calls++
	return []byte{0xFF, 0xD8, 0xFF}, nil
}

func box(class string, cx, cy int) models.Detection {
	return models.Detection{X: cx - 10, Y: cy - 10, Width: 20, Height: 20, Score: 0.9, ClassName: class}
}

// one of each allowed lane except West, plus a person that is not counted
var frameDets = []models.Detection{
	box("car", 100, 400),
	box("car", 500, 400),
	box("truck", 500, 100),
	box("person", 100, 100),
}

func newRunner(t *testing.T, cfg Config, deps Deps[*fakeFrame]) *Runner[*fakeFrame] {
	t.Helper()
	if deps.Strategy == nil {
		deps.Strategy = lanes.NewQuadrantStrategy()
	}
	r, err := NewRunner(cfg, deps, zerolog.Nop())
	require.NoError(t, err)
	return r
}

func TestProcessFrameCountsAndSends(t *testing.T) {
	port := telemetry.NewTestableSerialPort()
	sender, err := telemetry.NewSender(telemetry.SenderConfig{Port: "/dev/ttyTEST", Format: telemetry.FormatText},
		telemetry.NewMockPortFactory(port), nil, zerolog.Nop())
	require.NoError(t, err)

	frame := &fakeFrame{id: 7}
	r := newRunner(t, Config{WorkerID: "traffic-1", RunID: "run-1"}, Deps[*fakeFrame]{
		Source:      &fakeSource{},
		Detector:    &fakeDetector{dets: map[int64][]models.Detection{7: frameDets}},
		Aggregator:  counting.NewAggregator(counting.DefaultAllowedClasses),
		Transmitter: sender,
	})

	payload, err := r.ProcessFrame(context.Background(), frame)
	require.NoError(t, err)

	assert.Equal(t, "1,1,1,0\n", string(port.GetWrittenData()))
	want := models.LaneCountsPayload{
		WorkerID: "traffic-1",
		RunID:    "run-1",
		Strategy: lanes.StrategyQuadrant,
		Frame: models.FrameMetadata{
			FrameID:     7,
			Timestamp:   time.Unix(1700000000, 0).UTC(),
			Width:       640,
			Height:      480,
			AllDetCount: 4,
		},
		Counts: models.CountRecord{1, 1, 1, 0},
		Total:  3,
		Sent:   true,
	}
	if diff := cmp.Diff(want, payload); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}

	latest, ok := r.Store().Latest()
	require.True(t, ok)
	assert.Equal(t, payload, latest)
}

func TestProcessFrameSerialDisabled(t *testing.T) {
	r := newRunner(t, Config{AbortOnTransportError: true}, Deps[*fakeFrame]{
		Source:      &fakeSource{},
		Detector:    &fakeDetector{dets: map[int64][]models.Detection{3: frameDets}},
		Transmitter: telemetry.NewDisabledSender(),
	})

	payload, err := r.ProcessFrame(context.Background(), &fakeFrame{id: 3})
	require.NoError(t, err, "a disabled link never aborts the run")

	assert.False(t, payload.Sent)
	assert.True(t, payload.SerialDisabled)
	assert.Empty(t, payload.SendError)
	assert.Equal(t, models.CountRecord{1, 1, 1, 0}, payload.Counts)

	st := r.Store().Stats()
	assert.Equal(t, uint64(1), st.FramesProcessed)
	assert.Zero(t, st.SendFailures)
}

func TestProcessFrameWithoutMarkersSendsNothing(t *testing.T) {
	tx := &fakeTransmitter{}
	r := newRunner(t, Config{}, Deps[*fakeFrame]{
		Source:      &fakeSource{},
		Detector:    &fakeDetector{dets: map[int64][]models.Detection{1: frameDets}},
		Markers:     fakeMarkers{},
		Strategy:    lanes.NewPolygonStrategy(lanes.DefaultLaneMarkers()),
		Transmitter: tx,
	})

	_, err := r.ProcessFrame(context.Background(), &fakeFrame{id: 1})
	assert.ErrorIs(t, err, lanes.ErrNoMarkers)
	assert.Empty(t, tx.sent)

	_, ok := r.Store().Latest()
	assert.False(t, ok)
}

func TestRunContinuesAfterTransportError(t *testing.T) {
	frames := []*fakeFrame{{id: 1}, {id: 2}}
	src := &fakeSource{frames: frames}
	portErr := &telemetry.SendError{Kind: telemetry.KindPortUnavailable, Port: "/dev/ttyUSB0", Err: errors.New("no such device")}
	tx := &fakeTransmitter{err: portErr}
	pub := &fakePublisher{}

	r := newRunner(t, Config{}, Deps[*fakeFrame]{
		Source:      src,
		Detector:    &fakeDetector{dets: map[int64][]models.Detection{1: frameDets, 2: frameDets[:1]}},
		Transmitter: tx,
		Publisher:   pub,
	})

	require.NoError(t, r.Run(context.Background()))

	require.Len(t, pub.payloads, 2)
	for _, p := range pub.payloads {
		assert.False(t, p.Sent)
		assert.Contains(t, p.SendError, "serial port unavailable")
	}
	assert.Equal(t, models.CountRecord{1, 0, 0, 0}, pub.payloads[1].Counts)

	st := r.Store().Stats()
	assert.Equal(t, uint64(2), st.FramesProcessed)
	assert.Equal(t, uint64(2), st.SendFailures)
	assert.Equal(t, models.CountRecord{2, 1, 1, 0}, st.Totals)

	assert.True(t, frames[0].closed)
	assert.True(t, frames[1].closed)
	assert.True(t, src.closed)
	assert.True(t, tx.closed)
}

func TestRunAbortsOnTransportError(t *testing.T) {
	src := &fakeSource{frames: []*fakeFrame{{id: 1}, {id: 2}}}
	tx := &fakeTransmitter{err: &telemetry.SendError{Kind: telemetry.KindWriteFailed, Err: errors.New("EIO")}}

	r := newRunner(t, Config{AbortOnTransportError: true}, Deps[*fakeFrame]{
		Source:      src,
		Detector:    &fakeDetector{},
		Transmitter: tx,
	})

	err := r.Run(context.Background())
	assert.ErrorIs(t, err, telemetry.ErrWriteFailed)
	assert.Equal(t, 1, src.next, "second frame never read")
	assert.True(t, src.closed)
	assert.True(t, tx.closed)
}

func TestRunSkipsFailedFrames(t *testing.T) {
	tx := &fakeTransmitter{}
	r := newRunner(t, Config{}, Deps[*fakeFrame]{
		Source: &fakeSource{frames: []*fakeFrame{{id: 1}, {id: 2}}},
		Detector: &fakeDetector{
			dets: map[int64][]models.Detection{2: frameDets},
			errs: map[int64]error{1: errors.New("forward failed")},
		},
		Transmitter: tx,
	})

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, []models.CountRecord{{1, 1, 1, 0}}, tx.sent)

	st := r.Store().Stats()
	assert.Equal(t, uint64(1), st.FramesFailed)
	assert.Equal(t, uint64(1), st.FramesProcessed)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &fakeSource{frames: []*fakeFrame{{id: 1}}}
	tx := &fakeTransmitter{}
	r := newRunner(t, Config{}, Deps[*fakeFrame]{Source: src, Detector: &fakeDetector{}, Transmitter: tx})

	require.NoError(t, r.Run(ctx))
	assert.Empty(t, tx.sent)
	assert.True(t, src.closed)
	assert.True(t, tx.closed)
}

func TestProcessFrameStoresSnapshot(t *testing.T) {
	rend := &fakeRenderer{}
	r := newRunner(t, Config{}, Deps[*fakeFrame]{
		Source:      &fakeSource{},
		Detector:    &fakeDetector{},
		Transmitter: &fakeTransmitter{},
		Renderer:    rend,
	})

	_, err := r.ProcessFrame(context.Background(), &fakeFrame{id: 3})
	require.NoError(t, err)

	snap, ok := r.Store().Snapshot()
	require.True(t, ok)
	assert.Equal(t, []byte{0xFF, 0xD8, 0xFF}, snap)
	assert.Equal(t, 1, rend.calls)
}

func TestNewRunnerRequiresDeps(t *testing.T) {
	_, err := NewRunner(Config{}, Deps[*fakeFrame]{}, zerolog.Nop())
	assert.Error(t, err)

	r := newRunner(t, Config{}, Deps[*fakeFrame]{Source: &fakeSource{}, Detector: &fakeDetector{}, Transmitter: &fakeTransmitter{}})
	assert.NotEmpty(t, r.RunID(), "run id generated")
}
