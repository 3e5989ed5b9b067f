package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus metric descriptors for the game server. Every
// method is safe on a nil *Metrics so metrics can be left disabled.
type Metrics struct {
	registry  *prometheus.Registry
	startTime time.Time

	descriptors      prometheus.Gauge
	inPlay           prometheus.Gauge
	connectionsTotal *prometheus.CounterVec
	floodsTotal      prometheus.Counter
	commandsTotal    *prometheus.CounterVec
	unknownTotal     prometheus.Counter
	worldTicksTotal  prometheus.Counter
	bytesSentTotal   prometheus.Counter
	bytesRecvTotal   prometheus.Counter
	uptimeSeconds    prometheus.GaugeFunc
}

// NewMetrics creates the game metrics on a registry of their own, alongside
// the Go runtime and process collectors.
func NewMetrics(startTime time.Time) *Metrics {
	m := &Metrics{
		registry:  prometheus.NewRegistry(),
		startTime: startTime,
		descriptors: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gomud_descriptors",
			Help: "Number of open connections, onboarding or in play.",
		}),
		inPlay: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gomud_descriptors_in_play",
			Help: "Number of connections whose input is being processed.",
		}),
		connectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gomud_connections_total",
			Help: "Total connections accepted since server start.",
		}, []string{"transport"}),
		floodsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gomud_flood_disconnects_total",
			Help: "Connections closed for overflowing their input queue.",
		}),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gomud_commands_total",
			Help: "Commands dispatched, by command name.",
		}, []string{"command"}),
		unknownTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gomud_unrecognized_commands_total",
			Help: "Input lines that matched no command.",
		}),
		worldTicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gomud_world_ticks_total",
			Help: "World ticks broadcast since server start.",
		}),
		bytesSentTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gomud_bytes_sent_total",
			Help: "Total bytes sent to clients.",
		}),
		bytesRecvTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gomud_bytes_received_total",
			Help: "Total bytes received from clients.",
		}),
	}
	m.uptimeSeconds = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "gomud_uptime_seconds",
		Help: "Server uptime in seconds.",
	}, func() float64 { return time.Since(m.startTime).Seconds() })

	m.registry.MustRegister(
		m.descriptors,
		m.inPlay,
		m.connectionsTotal,
		m.floodsTotal,
		m.commandsTotal,
		m.unknownTotal,
		m.worldTicksTotal,
		m.bytesSentTotal,
		m.bytesRecvTotal,
		m.uptimeSeconds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) accepted(t TransportType) {
	if m == nil {
		return
	}
	m.connectionsTotal.WithLabelValues(t.String()).Inc()
}

func (m *Metrics) setConnections(open, inPlay int) {
	if m == nil {
		return
	}
	m.descriptors.Set(float64(open))
	m.inPlay.Set(float64(inPlay))
}

func (m *Metrics) sent(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesSentTotal.Add(float64(n))
}

func (m *Metrics) received(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesRecvTotal.Add(float64(n))
}

func (m *Metrics) flood() {
	if m == nil {
		return
	}
	m.floodsTotal.Inc()
}

// Command counts a dispatched command. Wired to the interpreter.
func (m *Metrics) Command(name string) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(name).Inc()
}

// Unknown counts a line that matched no command. Wired to the interpreter.
func (m *Metrics) Unknown(string) {
	if m == nil {
		return
	}
	m.unknownTotal.Inc()
}

func (m *Metrics) worldTick() {
	if m == nil {
		return
	}
	m.worldTicksTotal.Inc()
}

// Handler returns an http.Handler serving the metrics registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
