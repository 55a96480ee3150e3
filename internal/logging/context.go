package logging

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// gin context keys read by the request loggers
const (
	RequestIDKey = "request_id"
	StartTimeKey = "start_time"
	RunIDKey     = "run_id"
	FrameIDKey   = "frame_id"
)

// WithFrame tags the request with the pipeline run and frame it serves
func WithFrame(c *gin.Context, runID string, frameID int64) {
	if runID != "" {
		c.Set(RunIDKey, runID)
	}
	if frameID > 0 {
		c.Set(FrameIDKey, frameID)
	}
}

func withGinContext(c *gin.Context, e *zerolog.Event) *zerolog.Event {
	if c == nil {
		return e
	}
	if s := c.GetString(RequestIDKey); s != "" {
		e.Str("request_id", s)
	}
	if s := c.GetString(RunIDKey); s != "" {
		e.Str("run_id", s)
	}
	if id := c.GetInt64(FrameIDKey); id > 0 {
		e.Int64("frame_id", id)
	}
	if v, ok := c.Get(StartTimeKey); ok {
		if t, ok2 := v.(time.Time); ok2 {
			e.Dur("duration", time.Since(t))
		}
	}
	return e
}

func Info(c *gin.Context) *zerolog.Event  { return withGinContext(c, log.Info()) }
func Debug(c *gin.Context) *zerolog.Event { return withGinContext(c, log.Debug()) }
func Warn(c *gin.Context) *zerolog.Event  { return withGinContext(c, log.Warn()) }
func Error(c *gin.Context) *zerolog.Event { return withGinContext(c, log.Error()) }
