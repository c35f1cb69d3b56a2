package liveness

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// FramesTotal counts frames passed through the engine.
	FramesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "livecheck",
			Name:      "frames_total",
			Help:      "Total frames processed by the fusion engine.",
		},
	)

	// FacesTotal counts faces by processing result (processed, skipped).
	FacesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "livecheck",
			Name:      "faces_total",
			Help:      "Total faces seen by the fusion engine by result.",
		},
		[]string{"result"},
	)

	// VerdictsTotal counts per-face verdicts by label.
	VerdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "livecheck",
			Name:      "verdicts_total",
			Help:      "Total per-frame verdicts by label.",
		},
		[]string{"label"},
	)

	// ChallengesTotal counts challenge transitions by outcome.
	ChallengesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "livecheck",
			Name:      "challenges_total",
			Help:      "Total challenge transitions by outcome.",
		},
		[]string{"outcome"},
	)

	// AttendanceMarksTotal counts ledger calls by result.
	AttendanceMarksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "livecheck",
			Name:      "attendance_marks_total",
			Help:      "Total attendance ledger calls by result.",
		},
		[]string{"result"},
	)

	// FramesDroppedTotal counts captured frames replaced by a newer one before analysis.
	FramesDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "livecheck",
			Name:      "frames_dropped_total",
			Help:      "Total captured frames dropped because analysis was still busy.",
		},
	)

	// FrameDuration observes engine time per frame.
	FrameDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "livecheck",
			Name:      "frame_duration_seconds",
			Help:      "Fusion engine processing time per frame in seconds.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
		},
	)
)

func init() {
	prometheus.MustRegister(
		FramesTotal,
		FacesTotal,
		VerdictsTotal,
		ChallengesTotal,
		AttendanceMarksTotal,
		FramesDroppedTotal,
		FrameDuration,
	)
}

func observeChallenge(o ChallengeOutcome) {
	switch o {
	case ChallengeIssued, ChallengePassed, ChallengeExpired:
		ChallengesTotal.WithLabelValues(o.String()).Inc()
	}
}
