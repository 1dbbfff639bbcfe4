// Package metrics exports the counters of every session in a session.Registry to prometheus.
//
// The collector reads the atomic session counters on each scrape, so sessions created or
// released after registration are picked up without re-registering anything.
//
// Example Usage:
//
//	reg := metrics.NewRegistry(sessions)
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package metrics
