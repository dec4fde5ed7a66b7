package metrics

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once
	registerErr  error

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	loginAttemptsTotal     *prometheus.CounterVec
	accessCodesIssuedTotal *prometheus.CounterVec
	codeVerificationsTotal *prometheus.CounterVec
	consentsRecordedTotal  *prometheus.CounterVec
	renewalRunsTotal       *prometheus.CounterVec
	contactMessagesTotal   prometheus.Counter
)

type Config struct {
	Registry prometheus.Registerer
	// DB, when set, exposes connection pool stats.
	DB *sql.DB
}

// Register creates and registers every collector and returns the /metrics
// handler. Calling it again is a no-op.
func Register(cfg Config) (http.Handler, error) {
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests processed",
		}, []string{"method", "route", "status"})

		httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"})

		loginAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "site_login_attempts_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}) // code_issued|member|auth_failed|access_denied|error

		accessCodesIssuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "site_access_codes_issued_total",
			Help: "Access codes issued by path",
		}, []string{"path"}) // login|renewal

		codeVerificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "site_code_verifications_total",
			Help: "Access code verifications by outcome",
		}, []string{"outcome"}) // verified|rejected|rate_limited

		consentsRecordedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "site_consents_recorded_total",
			Help: "Consent records written by submission mode",
		}, []string{"mode"})

		renewalRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "site_code_renewals_total",
			Help: "Expired access codes processed by the renewal job",
		}, []string{"result"}) // renewed|failed

		contactMessagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "site_contact_messages_total",
			Help: "Contact form submissions stored",
		})

		for _, c := range []prometheus.Collector{
			httpRequestsTotal, httpRequestDuration,
			loginAttemptsTotal, accessCodesIssuedTotal, codeVerificationsTotal,
			consentsRecordedTotal, renewalRunsTotal, contactMessagesTotal,
		} {
			if err := registerCollector(registry, c); err != nil {
				registerErr = err
				return
			}
		}
	})
	if registerErr != nil {
		return nil, registerErr
	}

	if cfg.DB != nil {
		if err := registerCollector(registry, collectors.NewDBStatsCollector(cfg.DB, "site")); err != nil {
			return nil, err
		}
	}

	return promhttp.Handler(), nil
}

func registerCollector(reg prometheus.Registerer, collector prometheus.Collector) error {
	if err := reg.Register(collector); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}

// Middleware records request count and latency labelled by chi route pattern,
// so path parameters do not explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if httpRequestsTotal == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		method := strings.ToUpper(r.Method)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func RecordLogin(outcome string) {
	if loginAttemptsTotal != nil {
		loginAttemptsTotal.WithLabelValues(outcome).Inc()
	}
}

func RecordCodeIssued(path string) {
	if accessCodesIssuedTotal != nil {
		accessCodesIssuedTotal.WithLabelValues(path).Inc()
	}
}

func RecordCodeVerification(outcome string) {
	if codeVerificationsTotal != nil {
		codeVerificationsTotal.WithLabelValues(outcome).Inc()
	}
}

func RecordConsents(mode string, n int) {
	if consentsRecordedTotal != nil {
		consentsRecordedTotal.WithLabelValues(mode).Add(float64(n))
	}
}

func RecordRenewal(result string, n int) {
	if renewalRunsTotal != nil && n > 0 {
		renewalRunsTotal.WithLabelValues(result).Add(float64(n))
	}
}

func RecordContactMessage() {
	if contactMessagesTotal != nil {
		contactMessagesTotal.Inc()
	}
}
