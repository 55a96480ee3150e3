package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"traffic-worker-go/internal/models"
)

type Config struct {
	// Application
	Version     string
	Environment string
	WorkerID    string
	Port        int
	LogLevel    string
	LogFile     string

	// Logdy (lightweight web log viewer)
	LogdyEnabled bool
	LogdyHost    string
	LogdyPort    int

	// Frame source. ImagePath wins over the camera; CameraURL wins over CameraDevice.
	ImagePath     string
	CameraDevice  int
	CameraURL     string
	FrameWidth    int
	FrameHeight   int
	FrameInterval time.Duration
	MaxReadErrors int

	// Detector
	ModelDir            string
	ModelWeights        string
	ModelConfig         string
	ModelClasses        string
	ModelFormat         string // darknet | yolov8
	ModelInputSize      int
	ConfidenceThreshold float32
	NMSThreshold        float32
	AllowedClasses      []string

	// Lanes
	LaneStrategy    string
	MaskPath        string
	ColorTolerance  float64
	LaneColors      string // north=#0000FF,south=...
	LaneMarkers     string // north=0:1:2:3,south=...
	ArucoDictionary string

	// Telemetry (serial link to the signal controller)
	SerialEnabled         bool
	SerialPort            string // device path or "auto"
	SerialAutodetectMatch string
	SerialBaud            int
	SerialReadTimeout     time.Duration
	WireFormat            string // checksum | transfer | text
	AbortOnTransportError bool

	// NATS (per-frame count publication)
	// Default: nats://localhost:4222, nats://nats:4222 inside Docker
	NatsEnabled        bool
	NatsURL            string
	NatsConnectTimeout time.Duration
	NatsReconnectWait  time.Duration
	NatsMaxReconnects  int
	NatsDrainTimeout   time.Duration
	CountsSubject      string

	// Status API
	APIEnabled   bool
	SnapshotPath string

	// Graceful Shutdown
	ShutdownTimeout time.Duration
}

var (
	validStrategies = []string{"quadrant", "polygon", "colormask", "corners"}
	validFormats    = []string{"checksum", "transfer", "text"}
	validModels     = []string{"darknet", "yolov8"}
)

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found or error loading .env file, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	return &Config{
		// Application
		Version:     getEnv("VERSION", "1.0.0"),
		Environment: getEnv("ENVIRONMENT", "development"),
		WorkerID:    getEnv("WORKER_ID", "traffic-1"),
		Port:        getEnvInt("PORT", 8000),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFile:     getEnv("LOG_FILE", ""),

		// Logdy
		LogdyEnabled: getEnvBool("LOGDY_ENABLED", false),
		LogdyHost:    getEnv("LOGDY_HOST", "localhost"),
		LogdyPort:    getEnvInt("LOGDY_PORT", 8080),

		// Frame source
		ImagePath:     getEnv("IMAGE_PATH", ""),
		CameraDevice:  getEnvInt("CAMERA_DEVICE", 0),
		CameraURL:     getEnv("CAMERA_URL", ""),
		FrameWidth:    getEnvInt("FRAME_WIDTH", 640),
		FrameHeight:   getEnvInt("FRAME_HEIGHT", 480),
		FrameInterval: getEnvDuration("FRAME_INTERVAL", 0),
		MaxReadErrors: getEnvInt("MAX_READ_ERRORS", 10),

		// Detector (YOLOv3 darknet defaults)
		ModelDir:            getEnv("MODEL_DIR", "./dependencies"),
		ModelWeights:        getEnv("MODEL_WEIGHTS", "yolov3.weights"),
		ModelConfig:         getEnv("MODEL_CONFIG", "yolov3.cfg"),
		ModelClasses:        getEnv("MODEL_CLASSES", "coco.names"),
		ModelFormat:         strings.ToLower(getEnv("MODEL_FORMAT", "darknet")),
		ModelInputSize:      getEnvInt("MODEL_INPUT_SIZE", 416),
		ConfidenceThreshold: float32(getEnvFloat("CONFIDENCE_THRESHOLD", 0.5)),
		NMSThreshold:        float32(getEnvFloat("NMS_THRESHOLD", 0.4)),
		AllowedClasses:      getEnvList("ALLOWED_CLASSES", []string{"car", "motorcycle", "bus", "truck"}),

		// Lanes
		LaneStrategy:    strings.ToLower(getEnv("LANE_STRATEGY", "quadrant")),
		MaskPath:        getEnv("MASK_PATH", ""),
		ColorTolerance:  getEnvFloat("COLOR_TOLERANCE", 20),
		LaneColors:      getEnv("LANE_COLORS", "north=#0000FF,south=#00FF00,east=#FF0000,west=#00FFFF"),
		LaneMarkers:     getEnv("LANE_MARKERS", "north=0:1:2:3,south=4:5:6:7,east=8:9:10:11,west=12:13:14:15"),
		ArucoDictionary: getEnv("ARUCO_DICTIONARY", "4x4_50"),

		// Telemetry
		SerialEnabled:         getEnvBool("SERIAL_ENABLED", true),
		SerialPort:            getEnv("SERIAL_PORT", "/dev/ttyUSB0"),
		SerialAutodetectMatch: getEnv("SERIAL_AUTODETECT_MATCH", "Arduino"),
		SerialBaud:            getEnvInt("SERIAL_BAUD", 115200),
		SerialReadTimeout:     getEnvDuration("SERIAL_READ_TIMEOUT", time.Second),
		WireFormat:            strings.ToLower(getEnv("WIRE_FORMAT", "checksum")),
		AbortOnTransportError: getEnvBool("ABORT_ON_TRANSPORT_ERROR", false),

		// NATS (configured for Docker Compose setup)
		NatsEnabled:        getEnvBool("NATS_ENABLED", false),
		NatsURL:            getNatsURL(),
		NatsConnectTimeout: getEnvDuration("NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:  getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:  getEnvInt("NATS_MAX_RECONNECTS", -1), // -1 = unlimited
		NatsDrainTimeout:   getEnvDuration("NATS_DRAIN_TIMEOUT", 5*time.Second),
		CountsSubject:      getEnv("COUNTS_SUBJECT", "traffic.lane_counts"),

		// Status API
		APIEnabled:   getEnvBool("API_ENABLED", true),
		SnapshotPath: getEnv("SNAPSHOT_PATH", ""),

		// Graceful Shutdown
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// Validate reports every configuration problem at once
func (c *Config) Validate() error {
	var errs []error

	if !contains(validStrategies, c.LaneStrategy) {
		errs = append(errs, fmt.Errorf("LANE_STRATEGY %q: expected one of %s", c.LaneStrategy, strings.Join(validStrategies, ", ")))
	}
	if !contains(validFormats, c.WireFormat) {
		errs = append(errs, fmt.Errorf("WIRE_FORMAT %q: expected one of %s", c.WireFormat, strings.Join(validFormats, ", ")))
	}
	if !contains(validModels, c.ModelFormat) {
		errs = append(errs, fmt.Errorf("MODEL_FORMAT %q: expected one of %s", c.ModelFormat, strings.Join(validModels, ", ")))
	}
	if c.ColorTolerance <= 0 {
		errs = append(errs, fmt.Errorf("COLOR_TOLERANCE must be positive, got %v", c.ColorTolerance))
	}
	if c.LaneStrategy == "colormask" && c.MaskPath == "" {
		errs = append(errs, errors.New("MASK_PATH is required for the colormask strategy"))
	}
	if c.ImagePath == "" && c.CameraURL == "" && c.CameraDevice < 0 {
		errs = append(errs, errors.New("no frame source: set IMAGE_PATH, CAMERA_URL or a non-negative CAMERA_DEVICE"))
	}
	if c.ModelInputSize <= 0 {
		errs = append(errs, fmt.Errorf("MODEL_INPUT_SIZE must be positive, got %d", c.ModelInputSize))
	}
	if _, err := c.ParseLaneColors(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.ParseLaneMarkers(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// SingleImage reports whether the run processes one still image
func (c *Config) SingleImage() bool {
	return c.ImagePath != ""
}

// ParseLaneColors decodes LANE_COLORS. Lanes not listed keep no colour and
// therefore never match.
func (c *Config) ParseLaneColors() ([models.NumLanes]color.RGBA, error) {
	var out [models.NumLanes]color.RGBA
	err := parseLaneMap("LANE_COLORS", c.LaneColors, func(l models.Lane, v string) error {
		rgba, err := parseHexColor(v)
		if err != nil {
			return err
		}
		out[l] = rgba
		return nil
	})
	return out, err
}

// ParseLaneMarkers decodes LANE_MARKERS into marker IDs per lane, in order
func (c *Config) ParseLaneMarkers() (map[models.Lane][]int, error) {
	out := make(map[models.Lane][]int, models.NumLanes)
	err := parseLaneMap("LANE_MARKERS", c.LaneMarkers, func(l models.Lane, v string) error {
		var ids []int
		for _, s := range strings.Split(v, ":") {
			id, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil || id < 0 {
				return fmt.Errorf("bad marker id %q", s)
			}
			ids = append(ids, id)
		}
		out[l] = ids
		return nil
	})
	return out, err
}

func parseLaneMap(key, raw string, set func(models.Lane, string) error) error {
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, value, ok := strings.Cut(entry, "=")
		if !ok {
			return fmt.Errorf("%s entry %q: expected lane=value", key, entry)
		}
		lane, err := models.ParseLane(strings.TrimSpace(name))
		if err != nil {
			return fmt.Errorf("%s entry %q: %w", key, entry, err)
		}
		if err := set(lane, strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("%s entry %q: %w", key, entry, err)
		}
	}
	return nil
}

func parseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("colour %q: expected #RRGGBB", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("colour %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Helper functions for Docker environment detection
func isRunningInDocker() bool {
	if os.Getenv("DOCKER_CONTAINER") == "true" {
		return true
	}

	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	return false
}

// getNatsURL returns the appropriate NATS URL based on environment
func getNatsURL() string {
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		return envURL
	}

	if isRunningInDocker() {
		return "nats://nats:4222"
	}

	return "nats://localhost:4222"
}
