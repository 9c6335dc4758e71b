// Package prometheus exports goIdentity engine counters as a
// prometheus.Collector.
//
//	reg := prometheus.NewRegistry()
//	reg.MustRegister(goidprom.NewCollector(engine))
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package prometheus
