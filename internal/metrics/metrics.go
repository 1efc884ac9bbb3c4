package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	scansStartedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warden_scans_started_total",
		Help: "Total number of scan jobs started",
	})
	scansCompletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warden_scans_completed_total",
		Help: "Total number of scan jobs that completed successfully",
	})
	scansFailedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warden_scans_failed_total",
		Help: "Total number of scan jobs that ended in failure",
	})
	filesScannedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warden_files_scanned_total",
		Help: "Total number of files fed through the detection engine",
	})
	threatsDetectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_threats_detected_total",
		Help: "Total number of threats detected, by severity",
	}, []string{"severity"})
	quarantineOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_quarantine_operations_total",
		Help: "Total number of quarantine operations, by action",
	}, []string{"action"})
	scansRunning = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "warden_scans_running",
		Help: "Number of scan workers currently running",
	})
)

// Register registers Prometheus collectors. Call once at startup.
func Register(registry *prometheus.Registry) {
	registry.MustRegister(
		scansStartedTotal,
		scansCompletedTotal,
		scansFailedTotal,
		filesScannedTotal,
		threatsDetectedTotal,
		quarantineOpsTotal,
		scansRunning,
	)
}

// IncScanStarted increments the started scans counter and the running gauge.
func IncScanStarted() {
	scansStartedTotal.Inc()
	scansRunning.Inc()
}

// IncScanCompleted increments the completed counter and drops the running gauge.
func IncScanCompleted() {
	scansCompletedTotal.Inc()
	scansRunning.Dec()
}

// IncScanFailed increments the failed counter and drops the running gauge.
func IncScanFailed() {
	scansFailedTotal.Inc()
	scansRunning.Dec()
}

// AddFilesScanned adds n to the scanned files counter.
func AddFilesScanned(n int) { filesScannedTotal.Add(float64(n)) }

// IncThreatDetected increments the per-severity threat counter.
func IncThreatDetected(severity string) { threatsDetectedTotal.WithLabelValues(severity).Inc() }

// IncQuarantineOp increments the per-action quarantine counter.
func IncQuarantineOp(action string) { quarantineOpsTotal.WithLabelValues(action).Inc() }
