// Package stats adapts tgproto's event stream into Prometheus metrics
// (adapted from the teacher's stats package, which did the same for
// mtglib.Event).
package stats

import (
	"context"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/royna2544/tgbotd/events"
	"github.com/royna2544/tgbotd/tgproto"
)

type prometheusProcessor struct {
	streams map[string]*streamInfo
	factory *PrometheusFactory
}

func (p prometheusProcessor) EventConnStart(evt tgproto.EventConnStart) {
	info := acquireStreamInfo()
	info.startTime = evt.Timestamp()
	info.tags[TagIPFamily] = ipFamilyTag(evt.RemoteIP)

	p.streams[evt.StreamID()] = info

	p.factory.metricConnections.WithLabelValues(info.tags[TagIPFamily]).Inc()
}

func (p prometheusProcessor) EventConnFinish(evt tgproto.EventConnFinish) {
	info, ok := p.streams[evt.StreamID()]
	if !ok {
		return
	}

	defer func() {
		delete(p.streams, evt.StreamID())
		releaseStreamInfo(info)
	}()

	p.factory.metricConnections.WithLabelValues(info.tags[TagIPFamily]).Dec()

	if !info.startTime.IsZero() {
		p.factory.metricSessionDuration.Observe(evt.Timestamp().Sub(info.startTime).Seconds())
	}
}

func (p prometheusProcessor) EventSessionOpened(_ tgproto.EventSessionOpened) {
	p.factory.metricSessionsOpened.Inc()
}

func (p prometheusProcessor) EventSessionClosed(evt tgproto.EventSessionClosed) {
	p.factory.metricSessionsClosed.WithLabelValues(evt.Reason).Inc()
}

func (p prometheusProcessor) EventReplay(evt tgproto.EventReplay) {
	p.factory.metricReplayAttacks.WithLabelValues(evt.Result.String()).Inc()
}

func (p prometheusProcessor) EventCommand(evt tgproto.EventCommand) {
	p.factory.metricCommands.
		WithLabelValues(evt.Command.String(), evt.Result.String()).
		Inc()
	p.factory.metricCommandDuration.
		WithLabelValues(evt.Command.String()).
		Observe(evt.Elapsed.Seconds())
}

func (p prometheusProcessor) EventTransferBegin(_ tgproto.EventTransferBegin) {
	p.factory.metricTransfersBegin.Inc()
}

func (p prometheusProcessor) EventTransferChunk(evt tgproto.EventTransferChunk) {
	p.factory.metricTransferChunks.WithLabelValues(boolLabel(evt.OK)).Inc()
}

func (p prometheusProcessor) EventTransferEnd(evt tgproto.EventTransferEnd) {
	p.factory.metricTransfersEnd.WithLabelValues(evt.Ack.String()).Inc()
}

func (p prometheusProcessor) EventTransferAborted(_ tgproto.EventTransferAborted) {
	p.factory.metricTransfersAborted.Inc()
}

func (p prometheusProcessor) EventRateLimited(_ tgproto.EventRateLimited) {
	p.factory.metricRateLimited.Inc()
}

func (p prometheusProcessor) EventIPBlocked(evt tgproto.EventIPBlocked) {
	tag := TagIPListAllow
	if evt.IsBlocklist {
		tag = TagIPListBlock
	}

	p.factory.metricIPBlocked.WithLabelValues(tag).Inc()
}

func (p prometheusProcessor) EventTraffic(evt tgproto.EventTraffic) {
	info, ok := p.streams[evt.StreamID()]

	family := ""
	if ok {
		family = info.tags[TagIPFamily]
	}

	p.factory.metricTraffic.
		WithLabelValues(directionTag(evt.Read), family).
		Add(float64(evt.Bytes))
}

func (p prometheusProcessor) Shutdown() {
	for k, v := range p.streams {
		releaseStreamInfo(v)
		delete(p.streams, k)
	}
}

func boolLabel(ok bool) string {
	if ok {
		return "ok"
	}

	return "error"
}

// PrometheusFactory is a factory of [events.Observer] which collects
// daemon metrics in a format suitable for Prometheus.
//
// This factory can also serve on a given listener: it starts an HTTP
// server with a single endpoint, a Prometheus-compatible scrape output.
type PrometheusFactory struct {
	httpServer *http.Server

	metricConnections *prometheus.GaugeVec

	metricSessionsOpened prometheus.Counter
	metricSessionsClosed *prometheus.CounterVec
	metricSessionDuration prometheus.Histogram

	metricCommands        *prometheus.CounterVec
	metricCommandDuration *prometheus.HistogramVec

	metricTransfersBegin   prometheus.Counter
	metricTransferChunks   *prometheus.CounterVec
	metricTransfersEnd     *prometheus.CounterVec
	metricTransfersAborted prometheus.Counter

	metricReplayAttacks *prometheus.CounterVec
	metricRateLimited   prometheus.Counter
	metricIPBlocked     *prometheus.CounterVec

	metricTraffic *prometheus.CounterVec

	metricBuildInfo *prometheus.GaugeVec
}

// Make builds a new observer.
func (p *PrometheusFactory) Make() events.Observer {
	return prometheusProcessor{
		streams: make(map[string]*streamInfo),
		factory: p,
	}
}

// Serve starts an HTTP server on a given listener.
func (p *PrometheusFactory) Serve(listener net.Listener) error {
	return p.httpServer.Serve(listener) //nolint: wrapcheck
}

// Close stops a factory. The underlying listener is not closed.
func (p *PrometheusFactory) Close() error {
	return p.httpServer.Shutdown(context.Background()) //nolint: wrapcheck
}

// NewPrometheus builds an events.ObserverFactory which can serve an
// HTTP endpoint with Prometheus scrape data.
func NewPrometheus(metricPrefix, httpPath, version string) *PrometheusFactory { //nolint: funlen
	registry := prometheus.NewPedanticRegistry()
	httpHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	mux := http.NewServeMux()

	mux.Handle(httpPath, httpHandler)

	factory := &PrometheusFactory{
		httpServer: &http.Server{Handler: mux},

		metricConnections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricPrefix,
			Name:      MetricConnections,
			Help:      "A number of actively served client connections.",
		}, []string{TagIPFamily}),

		metricSessionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricPrefix,
			Name:      MetricSessionsOpened,
			Help:      "A number of sessions opened via OPEN_SESSION.",
		}),
		metricSessionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricPrefix,
			Name:      MetricSessionsClosed,
			Help:      "A number of sessions closed, by reason (close, expired).",
		}, []string{TagReason}),
		metricSessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricPrefix,
			Name:      MetricSessionDuration,
			Help:      "Duration of a served connection, in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}),

		metricCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricPrefix,
			Name:      MetricCommands,
			Help:      "A number of dispatched commands, by command and ack result.",
		}, []string{TagCommand, TagResult}),
		metricCommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricPrefix,
			Name:      MetricCommandDuration,
			Help:      "Handler latency per command, in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{TagCommand}),

		metricTransfersBegin: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricPrefix,
			Name:      MetricTransfersBegin,
			Help:      "A number of chunked transfers started.",
		}),
		metricTransferChunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricPrefix,
			Name:      MetricTransferChunks,
			Help:      "A number of transfer chunks processed, by outcome.",
		}, []string{"outcome"}),
		metricTransfersEnd: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricPrefix,
			Name:      MetricTransfersEnd,
			Help:      "A number of chunked transfers completed, by final ack.",
		}, []string{TagResult}),
		metricTransfersAborted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricPrefix,
			Name:      MetricTransfersAborted,
			Help:      "A number of chunked transfers aborted before completion.",
		}),

		metricReplayAttacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricPrefix,
			Name:      MetricReplayAttacks,
			Help:      "A number of rejected packets due to replay detection, by verify result.",
		}, []string{TagResult}),
		metricRateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricPrefix,
			Name:      MetricRateLimited,
			Help:      "A number of accepted connections rejected by the rate limiter.",
		}),
		metricIPBlocked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricPrefix,
			Name:      MetricIPBlocked,
			Help:      "A number of rejected connections due to ip allow/block listing.",
		}, []string{TagIPList}),

		metricTraffic: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricPrefix,
			Name:      MetricTraffic,
			Help:      "Bytes moved per connection, by direction and ip family.",
		}, []string{TagDirection, TagIPFamily}),

		metricBuildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricPrefix,
			Name:      MetricBuildInfo,
			Help:      "Build information about the daemon.",
		}, []string{"version"}),
	}

	registry.MustRegister(
		factory.metricConnections,
		factory.metricSessionsOpened,
		factory.metricSessionsClosed,
		factory.metricSessionDuration,
		factory.metricCommands,
		factory.metricCommandDuration,
		factory.metricTransfersBegin,
		factory.metricTransferChunks,
		factory.metricTransfersEnd,
		factory.metricTransfersAborted,
		factory.metricReplayAttacks,
		factory.metricRateLimited,
		factory.metricIPBlocked,
		factory.metricTraffic,
		factory.metricBuildInfo,
	)

	factory.metricBuildInfo.WithLabelValues(version).Set(1)

	return factory
}
