package report

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/workload"
)

// CapacitySource provides the calibrated capacity for reports.
type CapacitySource interface {
	Current() (*workload.CapacityState, bool)
}

// Builder assembles status reports from the ledger, the capacity estimate,
// and worker identity. It owns the delivery watermarks: Build computes the
// windowed fields against the last committed delivery and Commit advances
// the window, so the Reporter calls Build, sends, and Commits only on
// success.
type Builder struct {
	workerID string
	token    string
	url      string
	maxWait  time.Duration
	ledger   *workload.Ledger
	capacity CapacitySource
	disk     *DiskProbe

	mu       sync.Mutex
	loadTime time.Duration
	errorMsg string

	// Committed watermarks: ledger totals at the last successful delivery.
	lastAccepted  float64
	lastCompleted float64
	lastAt        time.Time

	// Values captured by the most recent Build, promoted by Commit.
	pendingAccepted  float64
	pendingCompleted float64
	pendingAt        time.Time
}

// NewBuilder creates a report builder. A missing worker id is replaced with
// a generated one so the autoscaler can still distinguish instances.
func NewBuilder(workerCfg config.WorkerConfig, reportingCfg config.ReportingConfig, maxWait time.Duration, ledger *workload.Ledger, capacity CapacitySource, disk *DiskProbe) *Builder {
	id := workerCfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	return &Builder{
		workerID: id,
		token:    reportingCfg.AuthToken,
		url:      workerCfg.ExternalURL,
		maxWait:  maxWait,
		ledger:   ledger,
		capacity: capacity,
		disk:     disk,
	}
}

// WorkerID returns the effective worker id, generated or configured.
func (b *Builder) WorkerID() string {
	return b.workerID
}

// SetLoadTime records the measured time-to-ready carried in every report.
func (b *Builder) SetLoadTime(d time.Duration) {
	b.mu.Lock()
	b.loadTime = d
	b.mu.Unlock()
}

// SetError records a fatal error message carried in subsequent reports.
func (b *Builder) SetError(msg string) {
	b.mu.Lock()
	b.errorMsg = msg
	b.mu.Unlock()
}

// Build assembles a fresh report from the current ledger and capacity
// state. The windowed fields (new_load, cur_perf) are measured against the
// last committed delivery.
func (b *Builder) Build() *StatusReport {
	snap := b.ledger.Snapshot()

	var maxPerf float64
	if state, ok := b.capacity.Current(); ok {
		maxPerf = state.MaxThroughput
	}

	var diskUsage int64
	if b.disk != nil {
		diskUsage = b.disk.Usage()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()

	newLoad := snap.AcceptedTotal - b.lastAccepted

	var curPerf float64
	if !b.lastAt.IsZero() {
		if elapsed := now.Sub(b.lastAt).Seconds(); elapsed > 0 {
			curPerf = (snap.CompletedTotal - b.lastCompleted) / elapsed
		}
	}

	maxCapacity := maxPerf * b.maxWait.Seconds()
	curCapacity := maxCapacity - snap.CurLoad
	if curCapacity < 0 {
		curCapacity = 0
	}

	b.pendingAccepted = snap.AcceptedTotal
	b.pendingCompleted = snap.CompletedTotal
	b.pendingAt = now

	return &StatusReport{
		ID:                  b.workerID,
		MToken:              b.token,
		Version:             ProtocolVersion,
		LoadTime:            b.loadTime.Seconds(),
		NewLoad:             newLoad,
		CurLoad:             snap.CurLoad,
		RejLoad:             snap.RejLoad,
		MaxPerf:             maxPerf,
		CurPerf:             curPerf,
		ErrorMsg:            b.errorMsg,
		NumRequestsWorking:  snap.NumWorking,
		NumRequestsReceived: snap.NumReceived,
		AdditionalDiskUsage: diskUsage,
		WorkingRequestIDs:   snap.WorkingRequestIDs,
		CurCapacity:         curCapacity,
		MaxCapacity:         maxCapacity,
		URL:                 b.url,
	}
}

// Commit advances the delivery watermarks to the values captured by the
// most recent Build. Called after the report built from them was delivered.
func (b *Builder) Commit() {
	b.mu.Lock()
	b.lastAccepted = b.pendingAccepted
	b.lastCompleted = b.pendingCompleted
	b.lastAt = b.pendingAt
	b.mu.Unlock()
}

// Terminal builds the final report for a fatal exit: identity fields plus
// the error message, everything else zeroed so the autoscaler stops
// routing here.
func (b *Builder) Terminal(errMsg string) *StatusReport {
	return &StatusReport{
		ID:                b.workerID,
		MToken:            b.token,
		Version:           ProtocolVersion,
		ErrorMsg:          errMsg,
		WorkingRequestIDs: []string{},
		URL:               b.url,
	}
}
