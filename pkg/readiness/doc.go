// Package readiness detects when the backend has finished loading its model
// and is able to serve.
//
// Model servers take minutes to hours to become ready: weights are
// downloaded, loaded to GPU, and compiled before the first request can be
// answered. Until that happens the worker must hold all traffic and fail
// closed. Two signal sources cover the common backends:
//
//   - LogSource tails the backend's log file and matches configured
//     substring markers for "model loaded", "fatal error", and progress
//     lines. This is the primary source: most model servers announce
//     readiness in their logs long before their HTTP surface stabilizes.
//   - PollSource polls the backend health endpoint until it answers 2xx.
//
// Monitor.Await blocks on a source until it reports loaded, a fatal marker
// fires, or the start budget runs out. Cold starts and warm resumes carry
// separate budgets: a cold start includes the model download, a resume only
// reloads weights already on local disk.
package readiness
