package telemetry

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"traffic-worker-go/internal/models"
)

// Transmitter delivers one count record per call
type Transmitter interface {
	Send(rec models.CountRecord) error
	Close() error
}

// SenderConfig configures the serial link to the signal controller
type SenderConfig struct {
	// Port is a device path or "auto"
	Port string
	// AutoDetectMatch is matched against device product names for "auto"
	AutoDetectMatch string
	Options         PortOptions
	Format          string
}

// Sender writes one encoded message per frame to a serial port. The port is
// opened lazily and closed after a failed write so the next frame reopens it.
type Sender struct {
	mu sync.Mutex

	cfg     SenderConfig
	factory PortFactory
	encoder Encoder
	list    PortLister
	logger  zerolog.Logger

	port     SerialPorter
	portPath string
	sent     uint64
}

// NewSender validates the configuration without touching the device
func NewSender(cfg SenderConfig, factory PortFactory, list PortLister, logger zerolog.Logger) (*Sender, error) {
	enc, err := NewEncoder(cfg.Format)
	if err != nil {
		return nil, err
	}
	opts, err := cfg.Options.Normalize()
	if err != nil {
		return nil, fmt.Errorf("serial options: %w", err)
	}
	cfg.Options = opts
	if factory == nil {
		factory = SerialPortFactory{}
	}

	return &Sender{
		cfg:     cfg,
		factory: factory,
		encoder: enc,
		list:    list,
		logger:  logger.With().Str("component", "telemetry").Str("format", enc.Format()).Logger(),
	}, nil
}

// Open resolves and opens the port if it is not already open
func (s *Sender) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openLocked()
}

func (s *Sender) openLocked() error {
	if s.port != nil {
		return nil
	}

	path, err := ResolvePort(s.cfg.Port, s.cfg.AutoDetectMatch, s.list)
	if err != nil {
		return &SendError{Kind: KindPortUnavailable, Port: s.cfg.Port, Err: err}
	}

	port, err := s.factory.Open(path, s.cfg.Options)
	if err != nil {
		return &SendError{Kind: KindPortUnavailable, Port: path, Err: err}
	}

	if tp, ok := port.(TimeoutSerialPorter); ok && s.cfg.Options.ReadTimeout > 0 {
		if err := tp.SetReadTimeout(s.cfg.Options.ReadTimeout); err != nil {
			s.logger.Warn().Err(err).Str("port", path).Msg("Failed to set serial read timeout")
		}
	}

	s.port = port
	s.portPath = path
	s.logger.Info().
		Str("port", path).
		Int("baud", s.cfg.Options.BaudRate).
		Msg("Serial port opened")
	return nil
}

// Send encodes rec and writes it in a single call. There is no retry within
// a frame; a failed write drops the port.
func (s *Sender) Send(rec models.CountRecord) error {
	msg, err := s.encoder.Encode(rec)
	if err != nil {
		return &SendError{Kind: KindEncode, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.openLocked(); err != nil {
		return err
	}

	n, err := s.port.Write(msg)
	if err == nil && n != len(msg) {
		err = fmt.Errorf("short write: %d of %d bytes", n, len(msg))
	}
	if err != nil {
		path := s.portPath
		s.dropLocked()
		return &SendError{Kind: KindWriteFailed, Port: path, Err: err}
	}

	s.sent++
	s.logger.Debug().
		Str("port", s.portPath).
		Str("counts", rec.String()).
		Int("bytes", n).
		Msg("Counts sent")
	return nil
}

// Close releases the port. It is safe to call more than once.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	s.logger.Info().Str("port", s.portPath).Uint64("sent", s.sent).Msg("Serial port closed")
	return err
}

// Sent is the number of records delivered so far
func (s *Sender) Sent() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent
}

// Connected reports whether the port is currently open
func (s *Sender) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port != nil
}

func (s *Sender) dropLocked() {
	if s.port == nil {
		return
	}
	if err := s.port.Close(); err != nil {
		s.logger.Debug().Err(err).Str("port", s.portPath).Msg("Close after failed write")
	}
	s.port = nil
}

// DisabledSender writes nothing and reports ErrDisabled for every record. It
// is used when the controller link is turned off.
type DisabledSender struct{}

func NewDisabledSender() *DisabledSender { return &DisabledSender{} }

func (*DisabledSender) Send(models.CountRecord) error { return ErrDisabled }

func (*DisabledSender) Close() error { return nil }
