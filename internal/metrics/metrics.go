package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var msBuckets = []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 3000}

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mapsvc_requests_total",
		Help: "Total number of API requests by route and status class",
	}, []string{"route", "status"})
	RequestDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mapsvc_request_duration_ms",
		Help:    "Request duration in milliseconds",
		Buckets: msBuckets,
	})
	SDKLoadTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mapsvc_sdk_load_total",
		Help: "Map SDK load attempts by provider and result",
	}, []string{"provider", "result"})
	SDKFetchDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mapsvc_sdk_fetch_duration_ms",
		Help:    "Map SDK script fetch duration in milliseconds",
		Buckets: msBuckets,
	}, []string{"provider"})
	AdapterOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mapsvc_adapter_ops_total",
		Help: "Map adapter operations by provider and op",
	}, []string{"provider", "op"})
	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mapsvc_sessions_active",
		Help: "Number of live map sessions",
	})
	PenaltyEvaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mapsvc_penalty_evaluations_total",
		Help: "Penalty evaluations by rule and severity",
	}, []string{"rule", "severity"})
	PenaltyUnknownTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mapsvc_penalty_unknown_total",
		Help: "Evaluations for violation labels without a rule",
	})
	RedisHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mapsvc_redis_hits_total",
		Help: "Total redis cache hits",
	})
	RedisMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mapsvc_redis_misses_total",
		Help: "Total redis cache misses",
	})
	CasesCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mapsvc_cases_created_total",
		Help: "Total penalty cases persisted",
	})
	LayerImportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mapsvc_layer_imports_total",
		Help: "Shapefile imports by result",
	}, []string{"result"})
	OverpassRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mapsvc_overpass_requests_total",
		Help: "Overpass land use queries by result",
	}, []string{"result"})
	OverpassDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mapsvc_overpass_duration_ms",
		Help:    "Overpass query duration in milliseconds",
		Buckets: msBuckets,
	})
	AMapRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mapsvc_amap_requests_total",
		Help: "Total amap REST requests",
	})
	AMapSuccessTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mapsvc_amap_success_total",
		Help: "Total amap REST successes",
	})
	AMapFailTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mapsvc_amap_fail_total",
		Help: "Total amap REST failures",
	})
	AMapDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mapsvc_amap_duration_ms",
		Help:    "AMap REST call duration in milliseconds",
		Buckets: msBuckets,
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(SDKLoadTotal)
	prometheus.MustRegister(SDKFetchDurationMs)
	prometheus.MustRegister(AdapterOpsTotal)
	prometheus.MustRegister(SessionsActive)
	prometheus.MustRegister(PenaltyEvaluationsTotal)
	prometheus.MustRegister(PenaltyUnknownTotal)
	prometheus.MustRegister(RedisHitsTotal)
	prometheus.MustRegister(RedisMissesTotal)
	prometheus.MustRegister(CasesCreatedTotal)
	prometheus.MustRegister(LayerImportsTotal)
	prometheus.MustRegister(OverpassRequestsTotal)
	prometheus.MustRegister(OverpassDurationMs)
	prometheus.MustRegister(AMapRequestsTotal)
	prometheus.MustRegister(AMapSuccessTotal)
	prometheus.MustRegister(AMapFailTotal)
	prometheus.MustRegister(AMapDurationMs)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标到 <API_BASE>/metrics 路径，供 Prometheus 抓取；在路由层挂载。
func Handler() http.Handler { return promhttp.Handler() }
