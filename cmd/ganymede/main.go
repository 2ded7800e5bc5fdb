// Ganymede is a workload-aware reverse proxy for serverless GPU workers.
//
// It runs beside a single model-serving backend (LLM, image generation,
// reranking) and fronts all of its traffic, providing:
//   - Admission control from declared request cost and calibrated throughput
//   - Throughput calibration benchmarks run against the live backend
//   - Readiness detection for backends with long model loads
//   - Request-signature verification for fleet-router traffic
//   - Load and capacity reports to the fleet autoscaler
//
// Usage:
//
//	# Start the worker with default configuration
//	ganymede run
//
//	# Start with a custom configuration file
//	ganymede run --config /etc/ganymede/config.yaml
//
//	# Check a configuration file without starting the worker
//	ganymede validate --config config.yaml
//
//	# Measure backend throughput without starting the worker
//	ganymede benchmark --samples 3
//
//	# Show version information
//	ganymede version
package main

func main() {
	Execute()
}
