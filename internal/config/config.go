package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the settings of both the publisher and the subscriber.
type Config struct {
	Broker     BrokerConfig
	Vision     VisionConfig
	Stabilizer StabilizerConfig
	Consumer   ConsumerConfig
	Store      StoreConfig
	Server     ServerConfig
	Log        LogConfig
}

// BrokerConfig holds MQTT connection settings.
type BrokerConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	TLS      bool
	Topic    string
	ClientID string // empty = generated
	QoS      byte
}

// VisionConfig holds camera and model settings for the publisher.
type VisionConfig struct {
	CameraIndex         int
	DetectorModelPath   string
	ClassifierModelPath string
	ShowWindow          bool
	IncludeImage        bool
	PublishQueue        int
}

// StabilizerConfig holds the decision thresholds of the publisher.
type StabilizerConfig struct {
	YoloConf      float64
	ClassConf     float64
	PredInterval  time.Duration
	Consensus     int
	NoneInterval  time.Duration
	StickyTimeout time.Duration
	ShapeFilter   bool
	MinAspect     float64
	MaxAspect     float64
	MinArea       float64 // fraction of frame area
	MaxArea       float64
}

// ConsumerConfig holds subscriber-side logging settings.
type ConsumerConfig struct {
	CSVPath         string
	NoneLogInterval time.Duration
}

// StoreConfig holds the optional secondary stores of the subscriber.
type StoreConfig struct {
	UseMongo         bool
	MongoURI         string
	MongoDB          string
	MongoCollection  string
	SQLitePath       string // empty disables the history store
	RedisAddr        string // empty = in-memory latest cache
	RedisPassword    string
	RedisDB          int
	ImageDirectory   string // empty disables snapshots
	ImageBufferLimit int
	FlushInterval    time.Duration
}

// ServerConfig holds the subscriber HTTP API settings.
type ServerConfig struct {
	Port     int
	APIToken string
}

// LogConfig holds logger settings.
type LogConfig struct {
	Directory string
	Level     string
}

// Load reads .env (if present) and the environment, applying defaults.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Broker: BrokerConfig{
			Host:     getEnv("BROKER_HOST", "localhost"),
			Port:     getEnvAsInt("BROKER_PORT", 8883),
			User:     os.Getenv("BROKER_USER"),
			Password: os.Getenv("BROKER_PASS"),
			TLS:      getEnvAsBool("BROKER_TLS", true),
			Topic:    getEnv("TOPIC", "smartdate/detections"),
			ClientID: os.Getenv("MQTT_CLIENT_ID"),
			QoS:      byte(getEnvAsInt("MQTT_QOS", 0)),
		},
		Vision: VisionConfig{
			CameraIndex:         getEnvAsInt("CAMERA_INDEX", 0),
			DetectorModelPath:   getEnv("DETECTOR_MODEL_PATH", filepath.Join(".", "models", "yolov8n.onnx")),
			ClassifierModelPath: getEnv("CLASSIFIER_MODEL_PATH", filepath.Join(".", "models", "smartdate_efficientnetb3.onnx")),
			ShowWindow:          getEnvAsBool("SHOW_WINDOW", true),
			IncludeImage:        getEnvAsBool("INCLUDE_IMAGE", true),
			PublishQueue:        getEnvAsInt("PUBLISH_QUEUE", 16),
		},
		Stabilizer: StabilizerConfig{
			YoloConf:      getEnvAsFloat("YOLO_CONF", 0.4),
			ClassConf:     getEnvAsFloat("CLASS_CONF", 0.80),
			PredInterval:  getEnvAsSeconds("PRED_INTERVAL", 0.3),
			Consensus:     getEnvAsInt("CONSENSUS", 3),
			NoneInterval:  getEnvAsSeconds("NONE_INTERVAL", 5.0),
			StickyTimeout: getEnvAsSeconds("STICKY_TIMEOUT", 1.5),
			ShapeFilter:   getEnvAsBool("SHAPE_FILTER", false),
			MinAspect:     getEnvAsFloat("MIN_ASPECT", 0.4),
			MaxAspect:     getEnvAsFloat("MAX_ASPECT", 2.5),
			MinArea:       getEnvAsFloat("MIN_AREA", 0.005),
			MaxArea:       getEnvAsFloat("MAX_AREA", 0.6),
		},
		Consumer: ConsumerConfig{
			CSVPath:         getEnv("CSV_PATH", "detections_log.csv"),
			NoneLogInterval: getEnvAsSeconds("NONE_LOG_INTERVAL", 5.0),
		},
		Store: StoreConfig{
			UseMongo:         getEnvAsBool("USE_MONGO", false),
			MongoURI:         os.Getenv("MONGO_URI"),
			MongoDB:          getEnv("MONGO_DB", "smartdate"),
			MongoCollection:  getEnv("MONGO_COLL", "detections"),
			SQLitePath:       getEnvOrEmpty("SQLITE_PATH", filepath.Join(".", "data", "detections.db")),
			RedisAddr:        os.Getenv("REDIS_ADDR"),
			RedisPassword:    os.Getenv("REDIS_PASSWORD"),
			RedisDB:          getEnvAsInt("REDIS_DB", 0),
			ImageDirectory:   getEnvOrEmpty("IMAGE_DIR", filepath.Join(".", "snapshots")),
			ImageBufferLimit: getEnvAsInt("IMAGE_BUFFER_LIMIT", 20),
			FlushInterval:    getEnvAsSeconds("FLUSH_INTERVAL", 10),
		},
		Server: ServerConfig{
			Port:     getEnvAsInt("PORT", 5000),
			APIToken: os.Getenv("API_TOKEN"),
		},
		Log: LogConfig{
			Directory: getEnv("LOG_DIR", filepath.Join(".", "logs")),
			Level:     getEnv("LOG_LEVEL", "info"),
		},
	}
}

// Validate rejects thresholds the stabilizer cannot work with.
func (c *Config) Validate() error {
	s := c.Stabilizer
	if s.Consensus < 1 {
		return fmt.Errorf("CONSENSUS must be >= 1, got %d", s.Consensus)
	}
	if s.YoloConf < 0 || s.YoloConf > 1 {
		return fmt.Errorf("YOLO_CONF must be within [0,1], got %v", s.YoloConf)
	}
	if s.ClassConf < 0 || s.ClassConf > 1 {
		return fmt.Errorf("CLASS_CONF must be within [0,1], got %v", s.ClassConf)
	}
	if s.PredInterval < 0 || s.NoneInterval < 0 || c.Consumer.NoneLogInterval < 0 {
		return fmt.Errorf("intervals must not be negative")
	}
	if s.ShapeFilter && (s.MinAspect > s.MaxAspect || s.MinArea > s.MaxArea) {
		return fmt.Errorf("shape filter bounds are inverted")
	}
	if c.Broker.QoS > 2 {
		return fmt.Errorf("MQTT_QOS must be 0, 1 or 2, got %d", c.Broker.QoS)
	}
	if c.Store.UseMongo && c.Store.MongoURI == "" {
		return fmt.Errorf("USE_MONGO requires MONGO_URI")
	}
	return nil
}

// BrokerURL returns the paho broker URL for the configured host and port.
func (b BrokerConfig) BrokerURL() string {
	scheme := "tcp"
	if b.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, b.Host, b.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrEmpty is like getEnv but lets an explicitly empty variable
// disable the feature.
func getEnvOrEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvAsSeconds reads fractional seconds ("0.3") into a Duration.
func getEnvAsSeconds(key string, defaultSeconds float64) time.Duration {
	return time.Duration(math.Round(getEnvAsFloat(key, defaultSeconds) * float64(time.Second)))
}
