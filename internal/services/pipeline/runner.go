// Package pipeline runs the single-threaded frame loop: detect, assign,
// count, transmit, publish.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"traffic-worker-go/internal/logging"
	"traffic-worker-go/internal/models"
	"traffic-worker-go/internal/services/counting"
	"traffic-worker-go/internal/services/lanes"
	"traffic-worker-go/internal/services/telemetry"
)

// Frame is an image owned by the loop until Close
type Frame interface {
	Bounds() image.Rectangle
	FrameID() int64
	CapturedAt() time.Time
	Close() error
}

// Source yields frames until io.EOF
type Source[F Frame] interface {
	Next(ctx context.Context) (F, error)
	Close() error
}

type Detector[F Frame] interface {
	Detect(frame F) ([]models.Detection, error)
}

// MarkerDetector binds fiducial detection to one frame. It is only needed by
// the polygon strategy and is called lazily by it.
type MarkerDetector[F Frame] interface {
	Source(frame F) lanes.MarkerSource
}

type Renderer[F Frame] interface {
	Render(frame F, assigner lanes.Assigner, dets []models.Detection, counts models.CountRecord) ([]byte, error)
}

type CountsPublisher interface {
	PublishCounts(payload models.LaneCountsPayload) error
}

// Config tunes the loop
type Config struct {
	WorkerID string
	// RunID tags every payload; a UUID is generated when empty
	RunID         string
	FrameInterval time.Duration
	// AbortOnTransportError stops Run on the first failed send
	AbortOnTransportError bool
}

// Deps are the collaborators of one run. Markers, Publisher, Renderer and
// Store are optional.
type Deps[F Frame] struct {
	Source      Source[F]
	Detector    Detector[F]
	Markers     MarkerDetector[F]
	Strategy    lanes.Strategy
	Aggregator  *counting.Aggregator
	Transmitter telemetry.Transmitter
	Publisher   CountsPublisher
	Renderer    Renderer[F]
	Store       *Store
}

type Runner[F Frame] struct {
	cfg    Config
	deps   Deps[F]
	logger zerolog.Logger
}

func NewRunner[F Frame](cfg Config, deps Deps[F], logger zerolog.Logger) (*Runner[F], error) {
	switch {
	case deps.Source == nil:
		return nil, errors.New("pipeline: frame source is required")
	case deps.Detector == nil:
		return nil, errors.New("pipeline: detector is required")
	case deps.Strategy == nil:
		return nil, errors.New("pipeline: lane strategy is required")
	case deps.Transmitter == nil:
		return nil, errors.New("pipeline: transmitter is required")
	}
	if deps.Aggregator == nil {
		deps.Aggregator = counting.NewAggregator(counting.DefaultAllowedClasses)
	}
	if deps.Store == nil {
		deps.Store = NewStore()
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}

	return &Runner[F]{
		cfg:    cfg,
		deps:   deps,
		logger: logging.WithRun(logger, cfg.RunID, deps.Strategy.Name()),
	}, nil
}

func (r *Runner[F]) RunID() string { return r.cfg.RunID }

func (r *Runner[F]) Store() *Store { return r.deps.Store }

// ProcessFrame counts one frame and transmits the record. A strategy failure
// (for example no markers) means nothing is sent for the frame. A send failure
// is reported in the payload and returned only when the run should abort.
func (r *Runner[F]) ProcessFrame(ctx context.Context, frame F) (models.LaneCountsPayload, error) {
	if err := ctx.Err(); err != nil {
		return models.LaneCountsPayload{}, err
	}
	log := r.logger.With().Int64("frame_id", frame.FrameID()).Logger()
	bounds := frame.Bounds()

	dets, err := r.deps.Detector.Detect(frame)
	if err != nil {
		return models.LaneCountsPayload{}, fmt.Errorf("detect: %w", err)
	}
	for _, d := range dets {
		log.Debug().
			Str("class", d.ClassName).
			Float32("score", d.Score).
			Int("x", d.X).Int("y", d.Y).Int("w", d.Width).Int("h", d.Height).
			Msg("Detection")
	}

	in := lanes.FrameInput{Bounds: bounds}
	if r.deps.Markers != nil {
		in.Markers = r.deps.Markers.Source(frame)
	}
	assigner, err := r.deps.Strategy.Prepare(in)
	if err != nil {
		return models.LaneCountsPayload{}, fmt.Errorf("prepare lanes: %w", err)
	}
	if pa, ok := assigner.(*lanes.PolygonAssigner); ok {
		for _, pair := range pa.Overlaps() {
			log.Warn().Str("lane_a", pair[0].String()).Str("lane_b", pair[1].String()).Msg("Lane polygons overlap, first lane wins")
		}
	}

	res := r.deps.Aggregator.Count(dets, assigner)

	payload := models.LaneCountsPayload{
		WorkerID: r.cfg.WorkerID,
		RunID:    r.cfg.RunID,
		Strategy: r.deps.Strategy.Name(),
		Frame: models.FrameMetadata{
			FrameID:     frame.FrameID(),
			Timestamp:   frame.CapturedAt(),
			Width:       bounds.Dx(),
			Height:      bounds.Dy(),
			AllDetCount: len(dets),
		},
		Counts:     res.Counts,
		Total:      res.Counts.Total(),
		Unassigned: res.Unassigned,
	}

	var abortErr error
	if err := r.deps.Transmitter.Send(res.Counts); errors.Is(err, telemetry.ErrDisabled) {
		payload.SerialDisabled = true
	} else if err != nil {
		payload.SendError = err.Error()
		log.Warn().Err(err).Msg("Failed to send counts")
		if r.cfg.AbortOnTransportError {
			abortErr = err
		}
	} else {
		payload.Sent = true
	}

	if r.deps.Publisher != nil {
		if err := r.deps.Publisher.PublishCounts(payload); err != nil {
			log.Warn().Err(err).Msg("Failed to publish counts")
		}
	}

	if r.deps.Renderer != nil {
		jpeg, err := r.deps.Renderer.Render(frame, assigner, dets, res.Counts)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to render overlay")
		}
		if len(jpeg) > 0 {
			r.deps.Store.SetSnapshot(jpeg)
		}
	}

	r.deps.Store.Record(payload)

	lanesDict := zerolog.Dict()
	for _, l := range models.Lanes {
		lanesDict.Int(l.String(), res.Counts[l])
	}
	log.Info().
		Int("detections", len(dets)).
		Int("considered", res.Considered).
		Int("unassigned", res.Unassigned).
		Int("total", payload.Total).
		Dict("lanes", lanesDict).
		Bool("sent", payload.Sent).
		Msg("Frame counted")

	return payload, abortErr
}

// Run processes frames until the source is exhausted or ctx is cancelled.
// The source and transmitter are closed on every exit path.
func (r *Runner[F]) Run(ctx context.Context) error {
	defer func() {
		if cerr := r.deps.Source.Close(); cerr != nil {
			r.logger.Warn().Err(cerr).Msg("Failed to close frame source")
		}
		if cerr := r.deps.Transmitter.Close(); cerr != nil {
			r.logger.Warn().Err(cerr).Msg("Failed to close transmitter")
		}
	}()

	r.deps.Store.Begin(r.cfg.RunID, r.deps.Strategy.Name())
	r.logger.Info().Dur("frame_interval", r.cfg.FrameInterval).Msg("Pipeline started")

	for {
		frame, err := r.deps.Source.Next(ctx)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				r.logSummary("Frame source exhausted")
				return nil
			case ctx.Err() != nil:
				r.logSummary("Pipeline stopped")
				return nil
			default:
				return fmt.Errorf("read frame: %w", err)
			}
		}

		_, perr := r.ProcessFrame(ctx, frame)
		if cerr := frame.Close(); cerr != nil {
			r.logger.Debug().Err(cerr).Msg("Failed to release frame")
		}

		if perr != nil {
			var se *telemetry.SendError
			switch {
			case errors.As(perr, &se):
				r.logSummary("Pipeline aborted on transport error")
				return perr
			case ctx.Err() != nil:
				r.logSummary("Pipeline stopped")
				return nil
			default:
				r.deps.Store.Fail()
				r.logger.Warn().Err(perr).Int64("frame_id", frame.FrameID()).Msg("Frame skipped")
			}
		}

		if r.cfg.FrameInterval > 0 {
			select {
			case <-ctx.Done():
				r.logSummary("Pipeline stopped")
				return nil
			case <-time.After(r.cfg.FrameInterval):
			}
		}
	}
}

func (r *Runner[F]) logSummary(msg string) {
	st := r.deps.Store.Stats()
	lanesDict := zerolog.Dict()
	for _, l := range models.Lanes {
		lanesDict.Int(l.String(), st.Totals[l])
	}
	r.logger.Info().
		Uint64("frames_processed", st.FramesProcessed).
		Uint64("frames_failed", st.FramesFailed).
		Uint64("send_failures", st.SendFailures).
		Dict("totals", lanesDict).
		Msg(msg)
}
