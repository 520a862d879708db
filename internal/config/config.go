package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/shirou/gopsutil/v4/cpu"
)

// Transports supported for inbound and outbound notifications.
const (
	TransportKafka = "kafka"
	TransportNATS  = "nats"
)

// maxDefaultWorkers caps the hardware-derived worker count.
const maxDefaultWorkers = 6

// Config holds all service settings, populated from environment variables.
type Config struct {
	Transport string

	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string

	NATSURL           string
	NATSSourceSubject string
	NATSSinkSubject   string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Granule processing.
	OutputDir            string
	AreasFile            string
	AreaOfInterest       string
	TLEFile              string
	ServerName           string
	WorkerCount          int
	DedupWindow          time.Duration
	ReceiveTimeout       time.Duration
	DefaultGranuleLength time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	dedupWindow, err := parsePositiveDuration("DEDUP_WINDOW", "5m")
	if err != nil {
		return nil, err
	}
	receiveTimeout, err := parsePositiveDuration("RECEIVE_TIMEOUT", "90s")
	if err != nil {
		return nil, err
	}
	granuleLength, err := parsePositiveDuration("DEFAULT_GRANULE_LENGTH", "15m")
	if err != nil {
		return nil, err
	}

	workers, err := parseWorkerCount()
	if err != nil {
		return nil, err
	}

	serverName := os.Getenv("SERVER_NAME")
	if serverName == "" {
		serverName, _ = os.Hostname()
	}

	cfg := &Config{
		Transport: sharedcfg.EnvOrDefault("TRANSPORT", TransportKafka),

		KafkaBrokers:     sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic: sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "iasi-l2-hdf5"),
		KafkaSinkTopic:   sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "iasi-l2-netcdf"),
		KafkaGroupID:     sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "iasi-l2-converter"),

		NATSURL:           sharedcfg.EnvOrDefault("NATS_URL", "nats://localhost:4222"),
		NATSSourceSubject: sharedcfg.EnvOrDefault("NATS_SOURCE_SUBJECT", "iasi.l2.hdf5"),
		NATSSinkSubject:   sharedcfg.EnvOrDefault("NATS_SINK_SUBJECT", "IASI-L2.3.polar.regional"),

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		OutputDir:            os.Getenv("OUTPUT_DIR"),
		AreasFile:            sharedcfg.EnvOrDefault("AREAS_FILE", "configs/areas.yaml"),
		AreaOfInterest:       sharedcfg.EnvOrDefault("AREA_OF_INTEREST", "euron1"),
		TLEFile:              sharedcfg.EnvOrDefault("TLE_FILE", "configs/tle.txt"),
		ServerName:           serverName,
		WorkerCount:          workers,
		DedupWindow:          dedupWindow,
		ReceiveTimeout:       receiveTimeout,
		DefaultGranuleLength: granuleLength,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Transport {
	case TransportKafka:
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required")
		}
		if c.KafkaSourceTopic == "" {
			return errors.New("KAFKA_SOURCE_TOPIC is required")
		}
		if c.KafkaSinkTopic == "" {
			return errors.New("KAFKA_SINK_TOPIC is required")
		}
	case TransportNATS:
		if c.NATSURL == "" {
			return errors.New("NATS_URL is required")
		}
		if c.NATSSourceSubject == "" || c.NATSSinkSubject == "" {
			return errors.New("NATS_SOURCE_SUBJECT and NATS_SINK_SUBJECT are required")
		}
	default:
		return fmt.Errorf("invalid TRANSPORT %q: want %q or %q", c.Transport, TransportKafka, TransportNATS)
	}

	if c.OutputDir == "" {
		return errors.New("OUTPUT_DIR is required")
	}
	if c.AreaOfInterest == "" {
		return errors.New("AREA_OF_INTEREST is required")
	}
	return nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

// parseWorkerCount reads WORKER_COUNT, defaulting to the physical core count
// capped at maxDefaultWorkers.
func parseWorkerCount() (int, error) {
	if s := os.Getenv("WORKER_COUNT"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return 0, errors.New("invalid WORKER_COUNT")
		}
		return n, nil
	}
	return DefaultWorkerCount(), nil
}

// DefaultWorkerCount derives the pool size from the host's physical cores.
func DefaultWorkerCount() int {
	n, err := cpu.Counts(false)
	if err != nil || n <= 0 {
		n = 1
	}
	return min(n, maxDefaultWorkers)
}
