// Package report builds and delivers worker status reports.
//
// The fleet autoscaler sizes the worker pool from these reports: current
// load, rejected load, calibrated capacity, and request counts. Delivery is
// best-effort and fully decoupled from the traffic path: one background
// goroutine sends on a heartbeat interval and on coalesced load-change
// triggers, and a delivery failure costs nothing but a log line and a
// counter.
//
// Two fields are watermarked against the last successful delivery: new_load
// (workload accepted since then) and cur_perf (workload completed per second
// since then). The Builder advances those watermarks only when the Reporter
// confirms a send, so a flaky control plane sees the missed window folded
// into the next report rather than dropped.
package report
