package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traffic-worker-go/internal/models"
)

func newTestSender(t *testing.T, format string) (*Sender, *TestableSerialPort, *MockPortFactory) {
	t.Helper()
	port := NewTestableSerialPort()
	factory := NewMockPortFactory(port)
	s, err := NewSender(SenderConfig{
		Port:    "/dev/ttyTEST",
		Options: PortOptions{ReadTimeout: time.Second},
		Format:  format,
	}, factory, nil, zerolog.Nop())
	require.NoError(t, err)
	return s, port, factory
}

func TestSenderWritesOneMessagePerSend(t *testing.T) {
	s, port, factory := newTestSender(t, FormatText)

	require.NoError(t, s.Send(models.CountRecord{1, 0, 2, 0}))
	require.NoError(t, s.Send(models.CountRecord{0, 0, 0, 0}))

	assert.Equal(t, "1,0,2,0\n0,0,0,0\n", string(port.GetWrittenData()))
	assert.Equal(t, 2, port.WriteCalls)
	assert.Equal(t, 1, factory.Calls(), "port opened lazily once")
	assert.Equal(t, "/dev/ttyTEST", factory.OpenCalls[0].Path)
	assert.Equal(t, DefaultBaudRate, factory.OpenCalls[0].Opts.BaudRate)
	assert.Equal(t, time.Second, port.ReadTimeout)
	assert.Equal(t, uint64(2), s.Sent())
}

func TestSenderPortUnavailable(t *testing.T) {
	s, _, factory := newTestSender(t, FormatChecksum)
	factory.Error = errors.New("no such file or directory")

	err := s.Send(models.CountRecord{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPortUnavailable)

	var se *SendError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindPortUnavailable, se.Kind)
	assert.Equal(t, "/dev/ttyTEST", se.Port)
	assert.False(t, s.Connected())
}

func TestSenderWriteFailureDropsPort(t *testing.T) {
	s, port, factory := newTestSender(t, FormatChecksum)
	port.WriteError = errors.New("device disconnected")

	err := s.Send(models.CountRecord{1, 2, 3, 4})
	assert.ErrorIs(t, err, ErrWriteFailed)
	assert.True(t, port.Closed)
	assert.False(t, s.Connected())
	assert.Equal(t, 1, port.WriteCalls, "no retry within a frame")

	port.Reset()
	require.NoError(t, s.Send(models.CountRecord{1, 2, 3, 4}))
	assert.Equal(t, 2, factory.Calls(), "next frame reopens")
	assert.Len(t, port.GetWrittenData(), ChecksumPacketLen)
}

func TestSenderShortWrite(t *testing.T) {
	s, port, _ := newTestSender(t, FormatChecksum)
	port.ShortWrite = true

	err := s.Send(models.CountRecord{})
	assert.ErrorIs(t, err, ErrWriteFailed)
}

func TestSenderEncodeError(t *testing.T) {
	s, _, factory := newTestSender(t, FormatTransfer)

	err := s.Send(models.CountRecord{70000, 0, 0, 0})
	assert.ErrorIs(t, err, ErrEncode)

	var se *SendError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindEncode, se.Kind)
	assert.Zero(t, factory.Calls(), "encoding fails before the port is touched")
}

func TestSenderAutoPort(t *testing.T) {
	port := NewTestableSerialPort()
	factory := NewMockPortFactory(port)
	list := func() ([]PortInfo, error) {
		return []PortInfo{{Name: "/dev/ttyACM1", IsUSB: true, Product: "Arduino Mega"}}, nil
	}
	s, err := NewSender(SenderConfig{Port: AutoPort, AutoDetectMatch: "Arduino", Format: FormatText}, factory, list, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, s.Open())
	assert.Equal(t, "/dev/ttyACM1", factory.OpenCalls[0].Path)
}

func TestSenderCloseIdempotent(t *testing.T) {
	s, port, _ := newTestSender(t, FormatText)
	require.NoError(t, s.Open())

	require.NoError(t, s.Close())
	assert.True(t, port.Closed)
	require.NoError(t, s.Close())
}

func TestNewSenderRejectsBadConfig(t *testing.T) {
	_, err := NewSender(SenderConfig{Format: "xml"}, nil, nil, zerolog.Nop())
	assert.Error(t, err)

	_, err = NewSender(SenderConfig{Format: FormatText, Options: PortOptions{DataBits: 4}}, nil, nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestDisabledSender(t *testing.T) {
	var tx Transmitter = NewDisabledSender()
	err := tx.Send(models.CountRecord{1, 1, 1, 1})
	assert.ErrorIs(t, err, ErrDisabled)
	var se *SendError
	assert.False(t, errors.As(err, &se), "a disabled link is not a transport failure")
	assert.NoError(t, tx.Close())
}
