package utils

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/inkwell/portfolio/internal/constants"
	"github.com/inkwell/portfolio/pkg/file"
)

// Config represents the structure of the configuration file.
type Config struct {
	App struct {
		Env     string `yaml:"env"`     // "development" or "production"
		Version string `yaml:"version"` // Reported by /healthz
	} `yaml:"app"`

	Backend struct {
		URL        string `yaml:"url"`         // Blog API base URL
		WSURL      string `yaml:"ws_url"`      // Comment WebSocket URL handed to the browser
		MinVersion string `yaml:"min_version"` // Minimum backend version accepted by health checks
	} `yaml:"backend"`

	Timeouts struct {
		HealthCheck    time.Duration `yaml:"health_check"`    // Budget of one health probe
		HealthCacheTTL time.Duration `yaml:"health_cache"`    // How long a probe result is trusted
		Fetch          time.Duration `yaml:"fetch"`           // Single post or page
		ListFetch      time.Duration `yaml:"list_fetch"`      // Blog list and feed
		BackgroundSync time.Duration `yaml:"background_sync"` // Client-first background refresh
		Write          time.Duration `yaml:"write"`           // Batch sync calls
		RetryAttempts  int           `yaml:"retry_attempts"`  // Retries of batch sync calls
	} `yaml:"timeouts"`

	Server struct {
		Address           string        `yaml:"address"`             // Listen address
		H2C               bool          `yaml:"h2c"`                 // Serve HTTP/2 without TLS
		ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"` // Slowloris guard
		ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`    // Grace period for in-flight requests
	} `yaml:"server"`

	Content struct {
		PostsDir        string `yaml:"posts_dir"`        // Markdown posts with YAML frontmatter
		PagesDir        string `yaml:"pages_dir"`        // Editable pages (home.md, project.md)
		PhotosDir       string `yaml:"photos_dir"`       // Gallery images served under /photography_assets/
		Workers         int    `yaml:"workers"`          // Parallel markdown parsers, 0 = NumCPU
		SiteTitle       string `yaml:"site_title"`       // Feed and page title
		SiteDescription string `yaml:"site_description"` // RSS channel description
		SiteURL         string `yaml:"site_url"`         // Absolute site URL used in the feed
		FeedLanguage    string `yaml:"feed_language"`    // RSS channel language
	} `yaml:"content"`

	Storage struct {
		S3 struct {
			Enabled   bool   `yaml:"enabled"`    // List gallery photos from a bucket
			Endpoint  string `yaml:"endpoint"`   // host:port of the S3 API
			AccessKey string `yaml:"access_key"` // Access key id
			SecretKey string `yaml:"secret_key"` // Secret access key
			Bucket    string `yaml:"bucket"`     // Bucket holding the photos
			Prefix    string `yaml:"prefix"`     // Object key prefix
			UseSSL    bool   `yaml:"use_ssl"`    // HTTPS to the endpoint
			PublicURL string `yaml:"public_url"` // Base URL photos are served from
		} `yaml:"s3"`
	} `yaml:"storage"`

	Events struct {
		MQTT struct {
			Broker         string        `yaml:"broker"`          // Empty disables publishing
			ClientID       string        `yaml:"client_id"`       // MQTT client ID
			Topic          string        `yaml:"topic"`           // Topic content events are published to
			QOS            int           `yaml:"qos"`             // MQTT QoS level for events
			CACertificate  string        `yaml:"ca_certificate"`  // Optional CA bundle for TLS brokers
			PublishTimeout time.Duration `yaml:"publish_timeout"` // Budget of one publish
		} `yaml:"mqtt"`
	} `yaml:"events"`

	Services struct {
		HealthRefresh struct {
			Enabled  bool          `yaml:"enabled"`  // Enable/disable periodic health probes
			Interval time.Duration `yaml:"interval"` // Interval between probes
		} `yaml:"health_refresh"`
	} `yaml:"services"`

	Metrics struct {
		Enabled           bool `yaml:"enabled"`            // Serve /metrics
		MonitorCPU        bool `yaml:"monitor_cpu"`        // Host CPU gauge
		MonitorMemory     bool `yaml:"monitor_memory"`     // Host memory gauge
		MonitorDisk       bool `yaml:"monitor_disk"`       // Content filesystem gauge
		MonitorGoroutines bool `yaml:"monitor_goroutines"` // Goroutine gauge
	} `yaml:"metrics"`

	Features struct {
		DevSampleData bool `yaml:"dev_sample_data"` // Serve fixed sample posts in development
	} `yaml:"features"`

	Logging struct {
		Level     string `yaml:"level"`      // zerolog level name
		Pretty    bool   `yaml:"pretty"`     // Console writer instead of JSON
		AccessLog bool   `yaml:"access_log"` // One log line per HTTP request
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration that works without any file or environment.
func DefaultConfig() *Config {
	var c Config
	c.App.Env = "production"
	c.App.Version = "dev"

	c.Backend.URL = "http://localhost:8080"
	c.Backend.WSURL = "ws://localhost:8080"

	c.Timeouts.HealthCheck = constants.DefaultHealthCheckTimeout
	c.Timeouts.HealthCacheTTL = constants.DefaultHealthCacheTTL
	c.Timeouts.Fetch = constants.DefaultFetchTimeout
	c.Timeouts.ListFetch = constants.DefaultListFetchTimeout
	c.Timeouts.BackgroundSync = constants.DefaultBackgroundSyncTimeout
	c.Timeouts.Write = constants.DefaultWriteTimeout
	c.Timeouts.RetryAttempts = constants.DefaultRetryAttempts

	c.Server.Address = ":4321"
	c.Server.ReadHeaderTimeout = 5 * time.Second
	c.Server.ShutdownTimeout = 10 * time.Second

	c.Content.PostsDir = "content/posts"
	c.Content.PagesDir = "content/pages"
	c.Content.PhotosDir = "content/photography"
	c.Content.SiteTitle = "Inkwell"
	c.Content.SiteDescription = "Notes on software, photography and everyday life."
	c.Content.SiteURL = "http://localhost:4321"
	c.Content.FeedLanguage = constants.DefaultFeedLang

	c.Events.MQTT.ClientID = "portfolio"
	c.Events.MQTT.Topic = "portfolio/content"
	c.Events.MQTT.QOS = 1
	c.Events.MQTT.PublishTimeout = 2 * time.Second

	c.Services.HealthRefresh.Enabled = true
	c.Services.HealthRefresh.Interval = constants.DefaultHealthCacheTTL

	c.Metrics.Enabled = true
	c.Metrics.MonitorGoroutines = true

	c.Logging.Level = "info"
	c.Logging.AccessLog = true
	return &c
}

// LoadConfig loads the YAML configuration from the specified file on top of the defaults,
// then applies environment overrides. An empty filename skips the file.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	config := DefaultConfig()
	if filename != "" {
		// Use the ReadYamlFile method from fileClient
		if err := fileClient.ReadYamlFile(filename, config); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", filename, err)
		}
	}

	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides settings from the environment. Durations accept either a Go
// duration ("750ms") or a bare number of milliseconds ("750").
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PUBLIC_BACKEND_URL"); ok && v != "" {
		c.Backend.URL = v
	}
	if v, ok := lookup("PUBLIC_BACKEND_WS_URL"); ok && v != "" {
		c.Backend.WSURL = v
	}
	if v, ok := lookup("PUBLIC_APP_ENV"); ok && v != "" {
		c.App.Env = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Logging.Level = v
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"HEALTH_CHECK_TIMEOUT", &c.Timeouts.HealthCheck},
		{"HEALTH_CHECK_CACHE_DURATION", &c.Timeouts.HealthCacheTTL},
		{"FETCH_TIMEOUT", &c.Timeouts.Fetch},
		{"LIST_FETCH_TIMEOUT", &c.Timeouts.ListFetch},
		{"BACKGROUND_SYNC_TIMEOUT", &c.Timeouts.BackgroundSync},
	}
	for _, d := range durations {
		v, ok := lookup(d.key)
		if !ok || v == "" {
			continue
		}
		parsed, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	if v, ok := lookup("RETRY_ATTEMPTS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RETRY_ATTEMPTS: %w", err)
		}
		c.Timeouts.RetryAttempts = n
	}
	return nil
}

// Validate checks configuration correctness without mutating it.
func (c *Config) Validate() error {
	var errs []error

	if _, err := url.ParseRequestURI(c.Backend.URL); err != nil {
		errs = append(errs, fmt.Errorf("backend.url: %w", err))
	}

	budgets := map[string]time.Duration{
		"timeouts.health_check":    c.Timeouts.HealthCheck,
		"timeouts.health_cache":    c.Timeouts.HealthCacheTTL,
		"timeouts.fetch":           c.Timeouts.Fetch,
		"timeouts.list_fetch":      c.Timeouts.ListFetch,
		"timeouts.background_sync": c.Timeouts.BackgroundSync,
		"timeouts.write":           c.Timeouts.Write,
	}
	for name, d := range budgets {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if c.Timeouts.RetryAttempts < 0 {
		errs = append(errs, fmt.Errorf("timeouts.retry_attempts must not be negative, got %d", c.Timeouts.RetryAttempts))
	}

	if c.Storage.S3.Enabled && (c.Storage.S3.Endpoint == "" || c.Storage.S3.Bucket == "") {
		errs = append(errs, errors.New("storage.s3: endpoint and bucket are required when enabled"))
	}
	if c.Events.MQTT.Broker != "" && c.Events.MQTT.Topic == "" {
		errs = append(errs, errors.New("events.mqtt.topic is required when a broker is set"))
	}
	if c.Events.MQTT.QOS < 0 || c.Events.MQTT.QOS > 2 {
		errs = append(errs, fmt.Errorf("events.mqtt.qos must be 0, 1 or 2, got %d", c.Events.MQTT.QOS))
	}

	return errors.Join(errs...)
}

// IsDevelopment reports whether the site runs in development mode.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.App.Env, "development") || strings.EqualFold(c.App.Env, "dev")
}

func parseDuration(v string) (time.Duration, error) {
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(v)
}
