package journal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/ganymede/pkg/config"
)

// journalTables lists the tables retention applies to.
var journalTables = []string{"calibrations", "lifecycle"}

// Pruner bounds journal growth by age and by record count.
type Pruner struct {
	journal *Journal
	cfg     config.RetentionConfig
	cron    *cron.Cron
	mu      sync.Mutex
	logger  *slog.Logger
	running bool
}

// NewPruner creates a retention pruner for the journal.
func NewPruner(j *Journal, cfg config.RetentionConfig) *Pruner {
	return &Pruner{
		journal: j,
		cfg:     cfg,
		cron:    cron.New(),
		logger:  slog.Default().With("component", "journal.pruner"),
	}
}

// Prune deletes journal rows older than the retention period, then trims
// each table to its newest max_records rows. Both phases can run together.
// Returns the number of rows deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var total int64

	if p.cfg.Days > 0 {
		deleted, err := p.pruneByAge(ctx)
		if err != nil {
			return total, fmt.Errorf("prune by age failed: %w", err)
		}
		total += deleted
	}

	if p.cfg.MaxRecords > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return total, fmt.Errorf("prune by count failed: %w", err)
		}
		total += deleted
	}

	if total > 0 {
		p.logger.Info("journal pruning completed",
			"deleted", total,
			"retention_days", p.cfg.Days,
			"max_records", p.cfg.MaxRecords,
		)
	} else {
		p.logger.Debug("no journal rows pruned")
	}

	return total, nil
}

// pruneByAge deletes rows older than the retention period.
func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -p.cfg.Days)

	var total int64
	for _, table := range journalTables {
		deleted, err := p.journal.deleteOlderThan(ctx, table, cutoff)
		if err != nil {
			return total, err
		}
		total += deleted
	}

	return total, nil
}

// pruneByCount trims each table to the newest max_records rows.
func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	var total int64
	for _, table := range journalTables {
		deleted, err := p.journal.trimToNewest(ctx, table, p.cfg.MaxRecords)
		if err != nil {
			return total, err
		}
		total += deleted
	}

	return total, nil
}

// Start begins scheduled pruning. If no schedule is configured, Start does
// nothing.
func (p *Pruner) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cfg.PruneSchedule == "" {
		p.logger.Info("prune schedule not configured, skipping scheduler")
		return nil
	}

	// Validate cron expression
	if _, err := cron.ParseStandard(p.cfg.PruneSchedule); err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", p.cfg.PruneSchedule, err)
	}

	_, err := p.cron.AddFunc(p.cfg.PruneSchedule, func() {
		if _, err := p.Prune(ctx); err != nil {
			p.logger.Error("scheduled pruning failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}

	p.cron.Start()
	p.running = true

	p.logger.Info("journal pruning scheduled", "schedule", p.cfg.PruneSchedule)

	// Wait for context cancellation in background
	go func() {
		<-ctx.Done()
		p.Stop()
	}()

	return nil
}

// Stop stops the scheduler and waits for a running prune to finish.
func (p *Pruner) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cron != nil && p.running {
		ctx := p.cron.Stop()
		<-ctx.Done() // Wait for running jobs to finish
		p.running = false
		p.logger.Info("journal pruning scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (p *Pruner) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.running
}

// NextRun returns the next scheduled pruning time.
func (p *Pruner) NextRun() *time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cron == nil {
		return nil
	}

	entries := p.cron.Entries()
	if len(entries) == 0 {
		return nil
	}

	next := entries[0].Next
	return &next
}

// deleteOlderThan removes rows in table whose created_at is before cutoff.
func (j *Journal) deleteOlderThan(ctx context.Context, table string, cutoff time.Time) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	res, err := j.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE created_at < ?`, table), cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old rows from %s: %w", table, err)
	}

	return res.RowsAffected()
}

// trimToNewest keeps the newest max rows in table and deletes the rest.
func (j *Journal) trimToNewest(ctx context.Context, table string, max int64) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	res, err := j.db.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM %s WHERE rowid NOT IN (
			SELECT rowid FROM %s ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`, table, table), max)
	if err != nil {
		return 0, fmt.Errorf("failed to trim %s: %w", table, err)
	}

	return res.RowsAffected()
}
