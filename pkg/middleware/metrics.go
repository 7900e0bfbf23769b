package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// 認証ゲートの判定結果。authgate_decisions_totalのoutcomeラベルに使う。
const (
	outcomePublic             = "public"
	outcomeVerified           = "verified"
	outcomeNoCredential       = "no_credential"
	outcomeInvalid            = "invalid"
	outcomeIntrospectionError = "introspection_error"
)

// GateMetrics は認証ゲートのPrometheusメトリクス。
//
// Metrics:
//   - authgate_decisions_total: 判定結果ごとのリクエスト数
//   - authgate_introspection_duration_seconds: イントロスペクション呼び出しの所要時間
type GateMetrics struct {
	decisions *prometheus.CounterVec
	duration  prometheus.Histogram
}

// NewGateMetrics はメトリクスを生成し、regに登録する。
func NewGateMetrics(reg prometheus.Registerer) *GateMetrics {
	m := &GateMetrics{
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "authgate",
				Name:      "decisions_total",
				Help:      "Total number of requests handled by the authentication gate, by outcome",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "authgate",
				Name:      "introspection_duration_seconds",
				Help:      "Duration of token introspection calls in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}

	for _, outcome := range []string{
		outcomePublic, outcomeVerified, outcomeNoCredential, outcomeInvalid, outcomeIntrospectionError,
	} {
		m.decisions.WithLabelValues(outcome)
	}

	reg.MustRegister(m.decisions, m.duration)
	return m
}

// observeDecision は判定結果を記録する。mがnilの場合は何もしない。
func (m *GateMetrics) observeDecision(outcome string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(outcome).Inc()
}

// observeIntrospection はイントロスペクションの所要時間を記録する。
func (m *GateMetrics) observeIntrospection(d time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(d.Seconds())
}
