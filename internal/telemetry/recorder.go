// Recording helper functions for plugwatch telemetry events.
// Each function emits both an OTel log event (→ VictoriaLogs) and increments
// a metric counter (→ VictoriaMetrics).
package telemetry

import (
	"context"
	"os"
	"sync"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterRecorderName = "github.com/plugwatch/plugwatch"
	loggerName        = "plugwatch"
)

// recorderInstruments holds all lazy-initialized OTel metric instruments.
type recorderInstruments struct {
	// Counters
	sampleTotal metric.Int64Counter
	detectTotal metric.Int64Counter
	notifyTotal metric.Int64Counter
	guardTotal  metric.Int64Counter
	wipeTotal   metric.Int64Counter

	// Histograms
	sampleDurationHist metric.Float64Histogram

	// Gauges
	samplePowerGauge metric.Float64Gauge
}

var (
	instOnce sync.Once
	inst     recorderInstruments
)

// initInstruments registers all recorder metric instruments against the current
// global MeterProvider. Must be called after telemetry.Init so the real
// provider is set. Also called lazily on first use as a safety net.
func initInstruments() {
	instOnce.Do(func() {
		m := otel.GetMeterProvider().Meter(meterRecorderName)

		// Counters
		inst.sampleTotal, _ = m.Int64Counter("plugwatch.sample.polls.total",
			metric.WithDescription("Total smart plug poll attempts"),
		)
		inst.detectTotal, _ = m.Int64Counter("plugwatch.detect.events.total",
			metric.WithDescription("Total appliance cycle detections"),
		)
		inst.notifyTotal, _ = m.Int64Counter("plugwatch.notify.sends.total",
			metric.WithDescription("Total Telegram notification sends"),
		)
		inst.guardTotal, _ = m.Int64Counter("plugwatch.guard.runs.total",
			metric.WithDescription("Total logger session guard runs"),
		)
		inst.wipeTotal, _ = m.Int64Counter("plugwatch.session.wipes.total",
			metric.WithDescription("Total dead screen session wipes"),
		)

		// Histograms
		inst.sampleDurationHist, _ = m.Float64Histogram("plugwatch.sample.duration_ms",
			metric.WithDescription("Smart plug poll round-trip latency in milliseconds"),
			metric.WithUnit("ms"),
		)

		// Gauges
		inst.samplePowerGauge, _ = m.Float64Gauge("plugwatch.sample.power_watts",
			metric.WithDescription("Most recent active power reading per device"),
			metric.WithUnit("W"),
		)
	})
}

// statusStr returns "ok" or "error" depending on whether err is nil.
func statusStr(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// emit sends an OTel log event with the given body and key-value attributes.
func emit(ctx context.Context, body string, sev otellog.Severity, attrs ...otellog.KeyValue) {
	logger := global.GetLoggerProvider().Logger(loggerName)
	var r otellog.Record
	r.SetBody(otellog.StringValue(body))
	r.SetSeverity(sev)
	r.AddAttributes(attrs...)
	logger.Emit(ctx, r)
}

// errKV returns a log KeyValue with the error message, or empty string if nil.
func errKV(err error) otellog.KeyValue {
	if err != nil {
		return otellog.String("error", err.Error())
	}
	return otellog.String("error", "")
}

// severity returns SeverityInfo on success, SeverityError on failure.
func severity(err error) otellog.Severity {
	if err != nil {
		return otellog.SeverityError
	}
	return otellog.SeverityInfo
}

// maxMessageLog is the maximum number of bytes of notification text captured in logs.
const maxMessageLog = 1024

// truncateOutput trims s to max bytes and appends "…" when truncated.
// Avoids splitting multi-byte UTF-8 characters at the boundary.
func truncateOutput(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Walk back from the cut point to avoid splitting a multi-byte rune.
	truncated := s[:max]
	for len(truncated) > 0 && !utf8.ValidString(truncated) {
		truncated = truncated[:len(truncated)-1]
	}
	return truncated + "…"
}

// RecordSample records one smart plug poll with duration (metrics + log event).
// device is the configured or reported device name; addr is its IP address.
// power is the active power reading in watts, only gauged when err is nil.
// durationMs is the wall-clock time of the HTTP round trip in milliseconds.
func RecordSample(ctx context.Context, device, addr string, power, durationMs float64, err error) {
	initInstruments()
	status := statusStr(err)
	attrs := metric.WithAttributes(
		attribute.String("status", status),
		attribute.String("device", device),
	)
	inst.sampleTotal.Add(ctx, 1, attrs)
	inst.sampleDurationHist.Record(ctx, durationMs, attrs)
	if err == nil {
		inst.samplePowerGauge.Record(ctx, power,
			metric.WithAttributes(attribute.String("device", device)),
		)
	}
	emit(ctx, "sample.poll", severity(err),
		otellog.String("device", device),
		otellog.String("addr", addr),
		otellog.Float64("power_watts", power),
		otellog.Float64("duration_ms", durationMs),
		otellog.String("status", status),
		errKV(err),
	)
}

// RecordDetection records an appliance cycle detection (metrics + log event).
// kind is one of done, off, on.
func RecordDetection(ctx context.Context, device, kind string) {
	initInstruments()
	inst.detectTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
	emit(ctx, "detect.event", otellog.SeverityInfo,
		otellog.String("device", device),
		otellog.String("kind", kind),
	)
}

// RecordNotify records a Telegram notification send (metrics + log event).
// kind matches the detection kind that triggered the message.
//
// The message text is only included in the log event when PW_LOG_NOTIFY_TEXT=true.
// It is opt-in because notification text reveals household appliance activity.
func RecordNotify(ctx context.Context, kind, text string, loud bool, err error) {
	initInstruments()
	status := statusStr(err)
	inst.notifyTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("status", status),
			attribute.String("kind", kind),
		),
	)
	kvs := []otellog.KeyValue{
		otellog.String("kind", kind),
		otellog.Bool("loud", loud),
		otellog.String("status", status),
		errKV(err),
	}
	if os.Getenv("PW_LOG_NOTIFY_TEXT") == "true" {
		kvs = append(kvs,
			otellog.String("text", truncateOutput(text, maxMessageLog)),
		)
	}
	emit(ctx, "notify.send", severity(err), kvs...)
}

// RecordGuardRun records a logger session guard run (metrics + log event).
// outcome is one of created, already-running, skipped-create.
func RecordGuardRun(ctx context.Context, sessionName, outcome string, err error) {
	initInstruments()
	inst.guardTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("status", statusStr(err)),
			attribute.String("outcome", outcome),
		),
	)
	emit(ctx, "guard.run", severity(err),
		otellog.String("session", sessionName),
		otellog.String("outcome", outcome),
		otellog.String("status", statusStr(err)),
		errKV(err),
	)
}

// RecordWipe records a dead screen session wipe (metrics + log event).
func RecordWipe(ctx context.Context, err error) {
	initInstruments()
	status := statusStr(err)
	inst.wipeTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
	emit(ctx, "session.wipe", severity(err),
		otellog.String("status", status),
		errKV(err),
	)
}
