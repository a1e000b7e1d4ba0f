package server

import "github.com/prometheus/client_golang/prometheus"

var (
	// 推荐接口延迟
	recommendLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "readrec_recommend_latency_seconds",
		Help:    "Latency of the recommend handler",
		Buckets: prometheus.DefBuckets,
	})

	// 各接口请求数
	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "readrec_requests_total",
		Help: "Total number of API requests",
	}, []string{"route", "outcome"})

	// 中性降级的推荐次数（模型未就绪/打分失败）
	degradedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "readrec_degraded_recommendations_total",
		Help: "Total number of recommendations served with neutral interest scores",
	})

	// 后端切换次数
	backendSwitches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "readrec_backend_switches_total",
		Help: "Total number of similarity backend switches",
	}, []string{"backend"})
)

// RegisterMetrics 注册指标到默认 Registry。进程内只应调用一次。
func RegisterMetrics() {
	prometheus.MustRegister(
		recommendLatency,
		requestsTotal,
		degradedTotal,
		backendSwitches,
	)
}
