package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"traffic-worker-go/internal/config"
	"traffic-worker-go/internal/helpers"
	"traffic-worker-go/internal/logging"
	"traffic-worker-go/internal/services/counting"
	"traffic-worker-go/internal/services/lanes"
	"traffic-worker-go/internal/services/messaging"
	"traffic-worker-go/internal/services/pipeline"
	"traffic-worker-go/internal/services/telemetry"
	"traffic-worker-go/internal/services/vision"
)

// ServiceContainer holds all services of one counting run
type ServiceContainer struct {
	Config       *config.Config
	Store        *pipeline.Store
	Runner       *pipeline.Runner[*vision.Frame]
	Sender       *telemetry.Sender
	MessagingSvc *messaging.Service

	detector *vision.Detector
	markers  *vision.MarkerDetector
}

// NewServiceContainer builds every service from cfg. Nothing touches the
// serial device until the first frame is sent.
func NewServiceContainer(cfg *config.Config) (_ *ServiceContainer, err error) {
	sc := &ServiceContainer{Config: cfg, Store: pipeline.NewStore()}
	defer func() {
		if err != nil {
			sc.release()
		}
	}()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	classNames, err := helpers.LoadClassNames(filepath.Join(cfg.ModelDir, cfg.ModelClasses))
	if err != nil {
		return nil, err
	}

	detCfg := vision.DetectorConfig{
		WeightsPath:   filepath.Join(cfg.ModelDir, cfg.ModelWeights),
		Format:        cfg.ModelFormat,
		InputSize:     cfg.ModelInputSize,
		ConfThreshold: cfg.ConfidenceThreshold,
		NMSThreshold:  cfg.NMSThreshold,
		ClassNames:    classNames,
	}
	if cfg.ModelFormat == vision.ModelDarknet {
		detCfg.ConfigPath = filepath.Join(cfg.ModelDir, cfg.ModelConfig)
	}
	sc.detector, err = vision.NewDetector(detCfg, logging.NewServiceLogger(cfg, "detector"))
	if err != nil {
		return nil, fmt.Errorf("detector: %w", err)
	}

	strategy, err := sc.newStrategy()
	if err != nil {
		return nil, err
	}

	source, err := newSource(cfg)
	if err != nil {
		return nil, err
	}

	transmitter, err := sc.newTransmitter()
	if err != nil {
		source.Close()
		return nil, err
	}

	var publisher pipeline.CountsPublisher = messaging.NoopPublisher{}
	if cfg.NatsEnabled {
		sc.MessagingSvc, err = messaging.NewService(cfg)
		if err != nil {
			source.Close()
			return nil, fmt.Errorf("messaging: %w", err)
		}
		publisher = sc.MessagingSvc
	}

	deps := pipeline.Deps[*vision.Frame]{
		Source:      source,
		Detector:    sc.detector,
		Strategy:    strategy,
		Aggregator:  counting.NewAggregator(cfg.AllowedClasses),
		Transmitter: transmitter,
		Publisher:   publisher,
		Store:       sc.Store,
	}
	if sc.markers != nil {
		deps.Markers = sc.markers
	}
	if cfg.APIEnabled || cfg.SnapshotPath != "" {
		deps.Renderer = vision.NewOverlay(cfg.SnapshotPath)
	}

	sc.Runner, err = pipeline.NewRunner(pipeline.Config{
		WorkerID:              cfg.WorkerID,
		FrameInterval:         cfg.FrameInterval,
		AbortOnTransportError: cfg.AbortOnTransportError,
	}, deps, logging.NewServiceLogger(cfg, "pipeline"))
	if err != nil {
		source.Close()
		return nil, err
	}

	log.Info().
		Str("run_id", sc.Runner.RunID()).
		Str("strategy", strategy.Name()).
		Str("wire_format", cfg.WireFormat).
		Bool("serial_enabled", cfg.SerialEnabled).
		Bool("nats_enabled", cfg.NatsEnabled).
		Msg("Service container ready")
	return sc, nil
}

func (sc *ServiceContainer) newStrategy() (lanes.Strategy, error) {
	cfg := sc.Config
	colors, err := cfg.ParseLaneColors()
	if err != nil {
		return nil, err
	}
	laneMarkers, err := cfg.ParseLaneMarkers()
	if err != nil {
		return nil, err
	}

	scfg := lanes.StrategyConfig{
		Name:        cfg.LaneStrategy,
		LaneMarkers: laneMarkers,
		LaneColors:  colors,
		Tolerance:   cfg.ColorTolerance,
	}
	switch cfg.LaneStrategy {
	case lanes.StrategyColorMask:
		if scfg.Mask, err = vision.LoadMask(cfg.MaskPath); err != nil {
			return nil, err
		}
	case lanes.StrategyPolygon:
		if sc.markers, err = vision.NewMarkerDetector(cfg.ArucoDictionary); err != nil {
			return nil, err
		}
	}

	strategy, err := lanes.NewStrategy(scfg)
	if err != nil {
		return nil, fmt.Errorf("lane strategy: %w", err)
	}
	return strategy, nil
}

func newSource(cfg *config.Config) (pipeline.Source[*vision.Frame], error) {
	if cfg.SingleImage() {
		return vision.NewImageSource(cfg.ImagePath), nil
	}
	camera, err := vision.OpenCamera(vision.CaptureConfig{
		URL:           cfg.CameraURL,
		Device:        cfg.CameraDevice,
		Width:         cfg.FrameWidth,
		Height:        cfg.FrameHeight,
		MaxReadErrors: cfg.MaxReadErrors,
	}, logging.NewServiceLogger(cfg, "capture"))
	if err != nil {
		return nil, fmt.Errorf("camera: %w", err)
	}
	return camera, nil
}

func (sc *ServiceContainer) newTransmitter() (telemetry.Transmitter, error) {
	cfg := sc.Config
	if !cfg.SerialEnabled {
		log.Warn().Msg("Serial telemetry disabled, counts will not reach the controller")
		return telemetry.NewDisabledSender(), nil
	}

	sender, err := telemetry.NewSender(telemetry.SenderConfig{
		Port:            cfg.SerialPort,
		AutoDetectMatch: cfg.SerialAutodetectMatch,
		Options: telemetry.PortOptions{
			BaudRate:    cfg.SerialBaud,
			ReadTimeout: cfg.SerialReadTimeout,
		},
		Format: cfg.WireFormat,
	}, telemetry.SerialPortFactory{}, telemetry.ListPorts, logging.NewServiceLogger(cfg, "telemetry"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	sc.Sender = sender
	return sender, nil
}

// LinkStatus reports the serial link state, nil when telemetry is disabled
func (sc *ServiceContainer) LinkStatus() func() bool {
	if sc.Sender == nil {
		return nil
	}
	return sc.Sender.Connected
}

// Run blocks until the frame source ends or ctx is cancelled
func (sc *ServiceContainer) Run(ctx context.Context) error {
	return sc.Runner.Run(ctx)
}

// Shutdown releases the network, detectors and the NATS connection. The
// runner closes the frame source and serial port itself when Run returns.
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	var errs []error
	if sc.MessagingSvc != nil {
		if err := sc.MessagingSvc.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("messaging: %w", err))
		}
	}
	if err := sc.release(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (sc *ServiceContainer) release() error {
	var errs []error
	if sc.markers != nil {
		errs = append(errs, sc.markers.Close())
		sc.markers = nil
	}
	if sc.detector != nil {
		errs = append(errs, sc.detector.Close())
		sc.detector = nil
	}
	return errors.Join(errs...)
}
