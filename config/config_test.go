package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, "contents", c.DefaultQueryField)
	assert.Equal(t, 10000, c.Index.BatchSize)
	assert.Equal(t, 5*time.Minute, c.Index.BatchDelay)
	assert.True(t, c.Index.Realtime)
}

func TestParsePartitions(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{in: "0", want: []int{0}},
		{in: "0,1,4-7", want: []int{0, 1, 4, 5, 6, 7}},
		{in: " 3 , 1, 2-3 ,", want: []int{1, 2, 3}},
		{in: "5-5", want: []int{5}},
		{in: "", wantErr: true},
		{in: "a", wantErr: true},
		{in: "4-2", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "1-x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePartitions(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePartitionGroups(t *testing.T) {
	got, err := ParsePartitionGroups("0-1; 2,3 ;")
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1}, {2, 3}}, got)

	_, err = ParsePartitionGroups("0;x")
	assert.Error(t, err)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("SENSEI_NODE_ID", "3")
	t.Setenv("SENSEI_PARTITIONS", "0-3")
	t.Setenv("SENSEI_PARTITION_GROUPS", "0,1")
	t.Setenv("SENSEI_BATCH_DELAY", "30")
	t.Setenv("SENSEI_FRESHNESS", "250ms")
	t.Setenv("SENSEI_REALTIME", "off")
	t.Setenv("SENSEI_STORE", "memory")
	t.Setenv("SENSEI_MEMORY_LIMIT", "1048576")
	t.Setenv("SENSEI_MAX_BATCH_SIZE", "not-a-number")

	c, err := FromEnv("SENSEI")
	require.NoError(t, err)
	assert.Equal(t, 3, c.NodeID)
	assert.Equal(t, []int{0, 1, 2, 3}, c.Partitions)
	assert.Equal(t, [][]int{{0, 1}}, c.PartitionGroups)
	assert.Equal(t, 30*time.Second, c.Index.BatchDelay)
	assert.Equal(t, 250*time.Millisecond, c.Index.Freshness)
	assert.False(t, c.Index.Realtime)
	assert.Equal(t, StoreMemory, c.Store.Kind)
	assert.Equal(t, int64(1<<20), c.Limits.MemoryBytes)
	assert.Equal(t, 10000, c.Index.MaxBatchSize)
	require.NoError(t, c.Validate())
}

func TestFromEnv_BadPartitions(t *testing.T) {
	t.Setenv("X_PARTITIONS", "1-")
	_, err := FromEnv("X")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative node", func(c *Config) { c.NodeID = -1 }},
		{"no partitions", func(c *Config) { c.Partitions = nil }},
		{"duplicate partition", func(c *Config) { c.Partitions = []int{1, 1} }},
		{"group outside partitions", func(c *Config) { c.PartitionGroups = [][]int{{0, 9}} }},
		{"overlapping groups", func(c *Config) {
			c.Partitions = []int{0, 1}
			c.PartitionGroups = [][]int{{0, 1}, {1}}
		}},
		{"zero batch", func(c *Config) { c.Index.BatchSize = 0 }},
		{"max below batch", func(c *Config) { c.Index.MaxBatchSize = 10 }},
		{"zero freshness", func(c *Config) { c.Index.Freshness = 0 }},
		{"bad compression", func(c *Config) { c.Index.Compression = "gzip" }},
		{"bad store", func(c *Config) { c.Store.Kind = "ftp" }},
		{"s3 without bucket", func(c *Config) { c.Store.Kind = StoreS3 }},
		{"minio without endpoint", func(c *Config) {
			c.Store.Kind = StoreMinIO
			c.Store.Bucket = "b"
		}},
		{"commit table without s3", func(c *Config) { c.Store.CommitTable = "t" }},
		{"empty query field", func(c *Config) { c.DefaultQueryField = " " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
		})
	}
}
