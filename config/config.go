// Package config holds the node configuration and its environment binding.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/strategist922/sensei/qparser"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("config: invalid")

// Snapshot store kinds.
const (
	StoreNone   = "none"
	StoreMemory = "memory"
	StoreLocal  = "local"
	StoreS3     = "s3"
	StoreMinIO  = "minio"
)

// Snapshot compression names.
const (
	CompressionNone = "none"
	CompressionLZ4  = "lz4"
	CompressionZSTD = "zstd"
)

// Config is the node configuration.
type Config struct {
	NodeID     int
	Partitions []int
	// PartitionGroups lists partitions served by one shared index.
	PartitionGroups [][]int

	DataDir      string
	ExtensionDir string

	Index  IndexConfig
	Loader LoaderConfig
	Store  StoreConfig
	Limits LimitsConfig

	// DefaultQueryField is searched by query terms without a field.
	DefaultQueryField string

	MetricsAddr string
	LogLevel    string
	LogFormat   string
}

// IndexConfig tunes the real-time partition indexes.
type IndexConfig struct {
	BatchSize    int
	BatchDelay   time.Duration
	MaxBatchSize int
	Realtime     bool
	Freshness    time.Duration
	Compression  string
}

// LoaderConfig tunes the stream loaders.
type LoaderConfig struct {
	// JournalDir holds the badger update journal. Empty keeps it in memory.
	JournalDir   string
	BatchSize    int
	PollInterval time.Duration
	// EventsPerSec caps each loader; zero is unlimited.
	EventsPerSec int
}

// StoreConfig selects where partition snapshots are written.
type StoreConfig struct {
	Kind        string
	Bucket      string
	Prefix      string
	Region      string
	Endpoint    string
	AccessKey   string
	SecretKey   string
	UseSSL      bool
	CommitTable string
	// CacheBytes sizes the snapshot read cache; zero disables it.
	CacheBytes int64
}

// LimitsConfig holds node-wide resource limits. Zero is unlimited.
type LimitsConfig struct {
	MemoryBytes           int64
	IngestEventsPerSec    int
	MaxConcurrentSearches int64
	SnapshotWorkers       int64
}

// Default returns the configuration of a single-partition node that keeps
// its snapshots under DataDir.
func Default() Config {
	return Config{
		NodeID:     0,
		Partitions: []int{0},
		DataDir:    "data",
		Index: IndexConfig{
			BatchSize:    10000,
			BatchDelay:   5 * time.Minute,
			MaxBatchSize: 10000,
			Realtime:     true,
			Freshness:    10 * time.Second,
			Compression:  CompressionZSTD,
		},
		Loader: LoaderConfig{
			BatchSize:    500,
			PollInterval: 100 * time.Millisecond,
		},
		Store: StoreConfig{
			Kind:   StoreLocal,
			Prefix: "sensei",
		},
		Limits: LimitsConfig{
			SnapshotWorkers: 1,
		},
		DefaultQueryField: qparser.DefaultField,
		MetricsAddr:       ":9090",
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// FromEnv returns Default overridden by environment variables named
// prefix + "_" + key, e.g. SENSEI_NODE_ID. Unset or unparsable variables
// keep their default; a malformed partition list is an error.
func FromEnv(prefix string) (Config, error) {
	c := Default()
	key := func(k string) string {
		if prefix == "" {
			return k
		}
		return prefix + "_" + k
	}

	c.NodeID = envInt(key("NODE_ID"), c.NodeID)
	if raw := envString(key("PARTITIONS"), ""); raw != "" {
		parts, err := ParsePartitions(raw)
		if err != nil {
			return c, err
		}
		c.Partitions = parts
	}
	if raw := envString(key("PARTITION_GROUPS"), ""); raw != "" {
		groups, err := ParsePartitionGroups(raw)
		if err != nil {
			return c, err
		}
		c.PartitionGroups = groups
	}
	c.DataDir = envString(key("DATA_DIR"), c.DataDir)
	c.ExtensionDir = envString(key("EXTENSION_DIR"), c.ExtensionDir)

	c.Index.BatchSize = envInt(key("BATCH_SIZE"), c.Index.BatchSize)
	c.Index.BatchDelay = envDuration(key("BATCH_DELAY"), c.Index.BatchDelay)
	c.Index.MaxBatchSize = envInt(key("MAX_BATCH_SIZE"), c.Index.MaxBatchSize)
	c.Index.Realtime = envBool(key("REALTIME"), c.Index.Realtime)
	c.Index.Freshness = envDuration(key("FRESHNESS"), c.Index.Freshness)
	c.Index.Compression = envString(key("COMPRESSION"), c.Index.Compression)

	c.Loader.JournalDir = envString(key("JOURNAL_DIR"), c.Loader.JournalDir)
	c.Loader.BatchSize = envInt(key("LOADER_BATCH_SIZE"), c.Loader.BatchSize)
	c.Loader.PollInterval = envDuration(key("LOADER_POLL_INTERVAL"), c.Loader.PollInterval)
	c.Loader.EventsPerSec = envInt(key("LOADER_RATE"), c.Loader.EventsPerSec)

	c.Store.Kind = envString(key("STORE"), c.Store.Kind)
	c.Store.Bucket = envString(key("STORE_BUCKET"), c.Store.Bucket)
	c.Store.Prefix = envString(key("STORE_PREFIX"), c.Store.Prefix)
	c.Store.Region = envString(key("STORE_REGION"), c.Store.Region)
	c.Store.Endpoint = envString(key("STORE_ENDPOINT"), c.Store.Endpoint)
	c.Store.AccessKey = envString(key("STORE_ACCESS_KEY"), c.Store.AccessKey)
	c.Store.SecretKey = envString(key("STORE_SECRET_KEY"), c.Store.SecretKey)
	c.Store.UseSSL = envBool(key("STORE_USE_SSL"), c.Store.UseSSL)
	c.Store.CommitTable = envString(key("STORE_COMMIT_TABLE"), c.Store.CommitTable)
	c.Store.CacheBytes = envInt64(key("STORE_CACHE_BYTES"), c.Store.CacheBytes)

	c.Limits.MemoryBytes = envInt64(key("MEMORY_LIMIT"), c.Limits.MemoryBytes)
	c.Limits.IngestEventsPerSec = envInt(key("INGEST_RATE"), c.Limits.IngestEventsPerSec)
	c.Limits.MaxConcurrentSearches = envInt64(key("MAX_SEARCHES"), c.Limits.MaxConcurrentSearches)
	c.Limits.SnapshotWorkers = envInt64(key("SNAPSHOT_WORKERS"), c.Limits.SnapshotWorkers)

	c.DefaultQueryField = envString(key("DEFAULT_QUERY_FIELD"), c.DefaultQueryField)
	c.MetricsAddr = envString(key("METRICS_ADDR"), c.MetricsAddr)
	c.LogLevel = envString(key("LOG_LEVEL"), c.LogLevel)
	c.LogFormat = envString(key("LOG_FORMAT"), c.LogFormat)
	return c, nil
}

// Validate reports the first inconsistency, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	if c.NodeID < 0 {
		return invalid("node id %d is negative", c.NodeID)
	}
	if len(c.Partitions) == 0 {
		return invalid("no partitions")
	}
	seen := make(map[int]bool, len(c.Partitions))
	for _, p := range c.Partitions {
		if p < 0 {
			return invalid("partition %d is negative", p)
		}
		if seen[p] {
			return invalid("partition %d listed twice", p)
		}
		seen[p] = true
	}
	grouped := map[int]bool{}
	for _, g := range c.PartitionGroups {
		for _, p := range g {
			if !seen[p] {
				return invalid("group partition %d is not served", p)
			}
			if grouped[p] {
				return invalid("partition %d is in more than one group", p)
			}
			grouped[p] = true
		}
	}

	if c.Index.BatchSize <= 0 {
		return invalid("index batch size must be positive")
	}
	if c.Index.MaxBatchSize < c.Index.BatchSize {
		return invalid("max batch size %d is below batch size %d", c.Index.MaxBatchSize, c.Index.BatchSize)
	}
	if c.Index.BatchDelay <= 0 || c.Index.Freshness <= 0 {
		return invalid("batch delay and freshness must be positive")
	}
	switch c.Index.Compression {
	case CompressionNone, CompressionLZ4, CompressionZSTD:
	default:
		return invalid("unknown compression %q", c.Index.Compression)
	}

	if c.Loader.BatchSize <= 0 {
		return invalid("loader batch size must be positive")
	}
	if c.Loader.EventsPerSec < 0 || c.Limits.IngestEventsPerSec < 0 {
		return invalid("rates must not be negative")
	}

	switch c.Store.Kind {
	case StoreNone, StoreMemory:
	case StoreLocal:
		if c.DataDir == "" {
			return invalid("local store needs a data dir")
		}
	case StoreS3, StoreMinIO:
		if c.Store.Bucket == "" {
			return invalid("%s store needs a bucket", c.Store.Kind)
		}
		if c.Store.Kind == StoreMinIO && c.Store.Endpoint == "" {
			return invalid("minio store needs an endpoint")
		}
	default:
		return invalid("unknown store %q", c.Store.Kind)
	}
	if c.Store.CommitTable != "" && c.Store.Kind != StoreS3 {
		return invalid("a commit table needs the s3 store")
	}

	if strings.TrimSpace(c.DefaultQueryField) == "" {
		return invalid("default query field is empty")
	}
	return nil
}

// ParsePartitions parses a comma separated list of partitions and
// inclusive ranges, e.g. "0,1,4-7". The result is sorted and unique.
func ParsePartitions(s string) ([]int, error) {
	var out []int
	for item := range strings.SplitSeq(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(item, "-")
		start, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil || start < 0 {
			return nil, fmt.Errorf("%w: bad partition %q", ErrInvalidConfig, item)
		}
		end := start
		if isRange {
			if end, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil || end < start {
				return nil, fmt.Errorf("%w: bad partition range %q", ErrInvalidConfig, item)
			}
		}
		for p := start; p <= end; p++ {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty partition list %q", ErrInvalidConfig, s)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// ParsePartitionGroups parses groups separated by ';', each in the
// ParsePartitions syntax, e.g. "0-3;4,5".
func ParsePartitionGroups(s string) ([][]int, error) {
	var out [][]int
	for item := range strings.SplitSeq(s, ";") {
		if strings.TrimSpace(item) == "" {
			continue
		}
		g, err := ParsePartitions(item)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}
