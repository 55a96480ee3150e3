package logging

import (
	"fmt"
	"strconv"

	"github.com/logdyhq/logdy-core/logdy"

	"traffic-worker-go/internal/config"
)

// LogdySink tees log lines into the embedded Logdy web UI
type LogdySink struct {
	URL    string
	logger logdy.Logdy
}

func (s *LogdySink) Write(p []byte) (n int, err error) {
	s.logger.LogString(string(p))
	return len(p), nil
}

// StartLogdy starts the Logdy UI on LOGDY_HOST:LOGDY_PORT
func StartLogdy(cfg *config.Config) (*LogdySink, error) {
	if cfg.LogdyPort <= 0 || cfg.LogdyPort > 65535 {
		return nil, fmt.Errorf("logdy: invalid port %d", cfg.LogdyPort)
	}
	portStr := strconv.Itoa(cfg.LogdyPort)
	ld := logdy.InitializeLogdy(logdy.Config{
		ServerIp:   cfg.LogdyHost,
		ServerPort: portStr,
	}, nil)

	return &LogdySink{
		URL:    fmt.Sprintf("http://%s:%s", cfg.LogdyHost, portStr),
		logger: ld,
	}, nil
}
