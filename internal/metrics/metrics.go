package metrics

import (
	"runtime"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/oshokin/mar-update-server/internal/version"
)

const namespace = "mar_update_server"

// Collector holds the server metrics and the registry they are registered in.
type Collector struct {
	registry       *prometheus.Registry
	requests       *prometheus.CounterVec
	responseBytes  *prometheus.CounterVec
	descriptorInfo *prometheus.GaugeVec
}

// New registers the server, runtime and build metrics in a fresh registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Number of answered requests by route and status code",
			},
			[]string{"route", "code"},
		),
		responseBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "response_bytes_total",
				Help:      "Number of response body bytes written by route",
			},
			[]string{"route"},
		),
		descriptorInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "descriptor_info",
				Help:      "The update currently advertised in update.xml",
			},
			[]string{"version", "build_id", "patch_type"},
		),
	}

	buildInfo := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			// Not namespaced, build_info has the same name in every service.
			Name: "build_info",
			Help: "Build and version information",
		},
		[]string{"goversion", "revision", "version"},
	)
	buildInfo.WithLabelValues(runtime.Version(), version.Commit, version.Version).Set(1)

	c.registry.MustRegister(
		c.requests,
		c.responseBytes,
		c.descriptorInfo,
		buildInfo,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// Gatherer returns the registry to expose.
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.registry
}

// ObserveRequest counts one answered request.
func (c *Collector) ObserveRequest(route string, code, written int) {
	c.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()

	if written > 0 {
		c.responseBytes.WithLabelValues(route).Add(float64(written))
	}
}

// SetDescriptor publishes the advertised update. Earlier values are dropped.
func (c *Collector) SetDescriptor(appVersion, buildID, patchType string) {
	c.descriptorInfo.Reset()
	c.descriptorInfo.WithLabelValues(appVersion, buildID, patchType).Set(1)
}
