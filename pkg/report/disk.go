package report

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"
)

// DiskProbe measures the size of the worker data directory for the
// additional_disk_usage report field. Walking a model cache can touch tens
// of thousands of files, so results are cached and refreshed at most once
// per interval.
type DiskProbe struct {
	dir      string
	interval time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	usage    int64
	lastScan time.Time
}

// NewDiskProbe creates a probe over dir. An empty dir reports zero usage.
func NewDiskProbe(dir string, interval time.Duration) *DiskProbe {
	return &DiskProbe{
		dir:      dir,
		interval: interval,
		logger:   slog.Default().With("component", "report.disk"),
	}
}

// Usage returns the cached directory size in bytes, rescanning when the
// cache has expired.
func (p *DiskProbe) Usage() int64 {
	if p.dir == "" {
		return 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.lastScan.IsZero() && time.Since(p.lastScan) < p.interval {
		return p.usage
	}

	start := time.Now()
	total := p.scan()
	p.usage = total
	p.lastScan = time.Now()

	p.logger.Debug("data directory scanned",
		"dir", p.dir,
		"bytes", total,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return total
}

// scan walks the data directory summing regular file sizes. Unreadable
// entries are skipped: a partially downloaded model must not break
// reporting.
func (p *DiskProbe) scan() int64 {
	var total int64
	err := filepath.WalkDir(p.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		// WalkDir only returns the root error here; a missing data dir
		// just means nothing downloaded yet.
		p.logger.Debug("data directory walk failed", "dir", p.dir, "error", err)
		return 0
	}
	return total
}
