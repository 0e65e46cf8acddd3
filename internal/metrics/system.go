package metrics

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/disk"
	"github.com/shirou/gopsutil/mem"
)

// ResourceCollector samples a single resource figure.
type ResourceCollector interface {
	Name() string                                 // Metric name suffix, e.g. "memory_used_percent"
	Collect(ctx context.Context) (float64, error) // Sample the current value
	Description() string                          // Help text
}

// ResourceOptions selects which resource gauges are exported.
type ResourceOptions struct {
	MonitorCPU        bool
	MonitorMemory     bool
	MonitorDisk       bool
	MonitorGoroutines bool
	DiskPath          string        // Filesystem to report; the content directory
	Timeout           time.Duration // Budget of one scrape
}

// SystemCollector exposes registered ResourceCollectors as Prometheus gauges sampled
// at scrape time.
type SystemCollector struct {
	logger  zerolog.Logger
	timeout time.Duration

	mu         sync.Mutex
	collectors map[string]ResourceCollector
	descs      map[string]*prometheus.Desc
}

// NewSystemCollector returns a collector with the resource gauges enabled in opts.
func NewSystemCollector(opts ResourceOptions, logger zerolog.Logger) *SystemCollector {
	s := &SystemCollector{
		logger:     logger,
		timeout:    opts.Timeout,
		collectors: make(map[string]ResourceCollector),
		descs:      make(map[string]*prometheus.Desc),
	}
	if s.timeout <= 0 {
		s.timeout = 2 * time.Second
	}

	if opts.MonitorMemory {
		s.Register(&MemoryCollector{})
	}
	if opts.MonitorCPU {
		s.Register(&CPUCollector{})
	}
	if opts.MonitorDisk && opts.DiskPath != "" {
		s.Register(&DiskCollector{Path: opts.DiskPath})
	}
	if opts.MonitorGoroutines {
		s.Register(&GoroutineCollector{})
	}
	return s
}

// Register adds a collector, replacing any with the same name.
func (s *SystemCollector) Register(c ResourceCollector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collectors[c.Name()] = c
	s.descs[c.Name()] = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "system", c.Name()),
		c.Description(), nil, nil,
	)
}

// Describe implements prometheus.Collector.
func (s *SystemCollector) Describe(ch chan<- *prometheus.Desc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.descs {
		ch <- d
	}
}

// Collect implements prometheus.Collector. Collectors that fail are skipped for this scrape.
func (s *SystemCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	for name, c := range s.collectors {
		v, err := c.Collect(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Str("collector", name).Msg("Failed to collect resource metric")
			continue
		}
		ch <- prometheus.MustNewConstMetric(s.descs[name], prometheus.GaugeValue, v)
	}
}

// MemoryCollector reports the percentage of used virtual memory.
type MemoryCollector struct{}

func (m *MemoryCollector) Name() string { return "memory_used_percent" }

func (m *MemoryCollector) Collect(ctx context.Context) (float64, error) {
	stats, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return stats.UsedPercent, nil
}

func (m *MemoryCollector) Description() string {
	return "Percentage of used virtual memory."
}

// CPUCollector reports overall CPU utilization since the previous sample.
type CPUCollector struct{}

func (c *CPUCollector) Name() string { return "cpu_used_percent" }

func (c *CPUCollector) Collect(ctx context.Context) (float64, error) {
	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, err
	}
	if len(percents) == 0 {
		return 0, nil
	}
	return percents[0], nil
}

func (c *CPUCollector) Description() string {
	return "Percentage of CPU in use across all cores."
}

// DiskCollector reports how full the filesystem holding Path is. The local content tier
// lives there, so a full disk is worth alerting on.
type DiskCollector struct {
	Path string
}

func (d *DiskCollector) Name() string { return "disk_used_percent" }

func (d *DiskCollector) Collect(ctx context.Context) (float64, error) {
	stats, err := disk.UsageWithContext(ctx, d.Path)
	if err != nil {
		return 0, err
	}
	return stats.UsedPercent, nil
}

func (d *DiskCollector) Description() string {
	return "Percentage of disk space used on the filesystem holding the content directory."
}

// GoroutineCollector reports the number of live goroutines.
type GoroutineCollector struct{}

func (g *GoroutineCollector) Name() string { return "goroutines" }

func (g *GoroutineCollector) Collect(context.Context) (float64, error) {
	return float64(runtime.NumGoroutine()), nil
}

func (g *GoroutineCollector) Description() string {
	return "Number of active goroutines in the runtime."
}
