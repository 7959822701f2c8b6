// Package shard splits an ordered dataset into a fixed number of contiguous,
// near-equal partitions, one per worker ordinal, and persists them as
// per-ordinal files the workers bind at startup.
package shard

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidShardCount is returned when the requested shard count is below 1.
var ErrInvalidShardCount = errors.New("invalid shard count")

// Shard is one ordinal-indexed contiguous partition of the input dataset.
type Shard struct {
	Ordinal int
	Records []string
}

// Partition splits records into shardCount contiguous shards preserving input
// order. Sizes differ by at most one record: the first len(records)%shardCount
// shards absorb the remainder. A shardCount larger than the dataset yields
// empty shards for the excess ordinals, which is a valid outcome.
func Partition(records []string, shardCount int) ([]Shard, error) {
	if shardCount < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidShardCount, shardCount)
	}

	base := len(records) / shardCount
	remainder := len(records) % shardCount

	shards := make([]Shard, 0, shardCount)
	offset := 0
	for i := 0; i < shardCount; i++ {
		size := base
		if i < remainder {
			size++
		}
		shards = append(shards, Shard{
			Ordinal: i,
			Records: records[offset : offset+size],
		})
		offset += size
	}

	return shards, nil
}

// FileName is the fixed naming convention for a shard's on-disk form.
func FileName(ordinal int) string {
	return fmt.Sprintf("shard-%d", ordinal)
}

// Path returns the shard file location for an ordinal under dir.
func Path(dir string, ordinal int) string {
	return filepath.Join(dir, FileName(ordinal))
}

// WriteAll persists every shard under dir, one record per line. An empty
// shard still produces its (empty) file so the owning worker finds it.
func WriteAll(shards []Shard, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating shard dir: %w", err)
	}

	for _, s := range shards {
		var b strings.Builder
		for _, rec := range s.Records {
			b.WriteString(rec)
			b.WriteByte('\n')
		}
		if err := os.WriteFile(Path(dir, s.Ordinal), []byte(b.String()), 0o644); err != nil {
			return fmt.Errorf("writing shard %d: %w", s.Ordinal, err)
		}
	}

	return nil
}

// ReadRecords loads a dataset file as ordered records, one per line. Trailing
// carriage returns are stripped so CRLF datasets shard identically.
func ReadRecords(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	var records []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		records = append(records, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}

	return records, nil
}
