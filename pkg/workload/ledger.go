package workload

import (
	"log/slog"
	"sort"
	"sync"
)

// Ledger is the process-wide load accounting state. All mutation goes through
// the atomic operations below; the mutex is held only for arithmetic and map
// updates, never across I/O.
type Ledger struct {
	mu             sync.Mutex
	curLoad        float64
	numWorking     int
	numReceived    int64
	rejLoad        float64
	acceptedTotal  float64
	completedTotal float64
	working        map[string]float64

	// onChange, when set, is invoked after every reserve, rejection, and
	// release, outside the mutex. Used to poke the status reporter.
	onChange func()

	logger *slog.Logger
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		working: make(map[string]float64),
		logger:  slog.Default().With("component", "workload.ledger"),
	}
}

// OnChange registers a callback invoked after every mutation that the status
// reporter should observe. The callback runs outside the ledger mutex and
// must not block.
func (l *Ledger) OnChange(fn func()) {
	l.mu.Lock()
	l.onChange = fn
	l.mu.Unlock()
}

// IncReceived increments the monotonic received counter and returns the new
// total. Called once per request submitted to admission, accepted or not.
func (l *Ledger) IncReceived() int64 {
	l.mu.Lock()
	l.numReceived++
	n := l.numReceived
	l.mu.Unlock()
	return n
}

// TryReserve atomically evaluates an admission decision and, if fits accepts,
// reserves amount under requestID. The fits callback runs under the ledger
// mutex with the load at the decision instant; it must be pure arithmetic.
//
// Returns the lease (nil unless accepted), the load the decision saw, and
// whether the reservation was made. On rejection the amount is added to the
// cumulative rejected-load counter.
func (l *Ledger) TryReserve(requestID string, amount float64, fits func(curLoad float64) bool) (*Lease, float64, bool) {
	l.mu.Lock()
	cur := l.curLoad
	if !fits(cur) {
		l.rejLoad += amount
		fn := l.onChange
		l.mu.Unlock()
		if fn != nil {
			fn()
		}
		return nil, cur, false
	}

	l.curLoad += amount
	l.numWorking++
	l.acceptedTotal += amount
	l.working[requestID] = amount
	fn := l.onChange
	l.mu.Unlock()

	if fn != nil {
		fn()
	}
	return &Lease{ledger: l, requestID: requestID, amount: amount}, cur, true
}

// Snapshot returns a consistent copy of the ledger state.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	snap := Snapshot{
		CurLoad:           l.curLoad,
		NumWorking:        l.numWorking,
		NumReceived:       l.numReceived,
		RejLoad:           l.rejLoad,
		AcceptedTotal:     l.acceptedTotal,
		CompletedTotal:    l.completedTotal,
		WorkingRequestIDs: make([]string, 0, len(l.working)),
	}
	for id := range l.working {
		snap.WorkingRequestIDs = append(snap.WorkingRequestIDs, id)
	}
	l.mu.Unlock()

	sort.Strings(snap.WorkingRequestIDs)
	return snap
}

// release undoes exactly one reservation. Called only through Lease.Release.
func (l *Ledger) release(requestID string, amount float64) {
	l.mu.Lock()
	l.curLoad -= amount
	l.numWorking--
	l.completedTotal += amount
	delete(l.working, requestID)

	// Accounting drift means a reservation was released more workload than
	// it reserved; clamp so admission math stays sane and make it visible.
	drifted := l.curLoad < 0 || l.numWorking < 0
	if l.curLoad < 0 {
		l.curLoad = 0
	}
	if l.numWorking < 0 {
		l.numWorking = 0
	}
	fn := l.onChange
	l.mu.Unlock()

	if drifted {
		l.logger.Warn("load accounting drift detected",
			"request_id", requestID,
			"released", amount,
		)
	}
	if fn != nil {
		fn()
	}
}

// Lease is one accepted reservation. Release is idempotent: every exit path
// of a request may call it and the ledger still moves exactly once.
type Lease struct {
	ledger    *Ledger
	requestID string
	amount    float64
	once      sync.Once
}

// Workload returns the reserved workload, after any default-cost substitution.
func (le *Lease) Workload() float64 { return le.amount }

// RequestID returns the id this reservation is held under.
func (le *Lease) RequestID() string { return le.requestID }

// Release returns the reserved workload to the ledger. Safe to call more
// than once; only the first call has an effect.
func (le *Lease) Release() {
	le.once.Do(func() {
		le.ledger.release(le.requestID, le.amount)
	})
}
