// Package journal persists worker history in an embedded SQLite database.
//
// The journal records two kinds of history: calibration attempts and
// lifecycle events (process start, backend ready, fatal exit). The platform
// restores the data volume together with the journal on a resumed worker,
// so a prior ready event is the signal that model weights are already on
// disk and the shorter resume budget applies.
//
// Load and capacity state is never journaled. Admission state is only
// meaningful while the process lives; restarts start from zero.
//
// The journal is optional. With it disabled the worker runs normally, but
// start-mode auto-detection always picks a cold start and calibration
// history is lost on exit.
package journal
