// Package metrics 提供 Prometheus 指标集合与指标 HTTP 服务
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wyfcoding/storefront/pkg/logger"
)

const namespace = "storefront"

// Metrics 指标集合；所有记录方法对 nil 接收者安全
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	OrdersPlaced         *prometheus.CounterVec
	OrderTransitions     *prometheus.CounterVec
	PaymentVerifications *prometheus.CounterVec
	StockReservations    *prometheus.CounterVec
	Notifications        *prometheus.CounterVec
	OutboxRelayed        *prometheus.CounterVec
	OutboxPending        prometheus.Gauge
}

// New 创建指标实例
func New() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		OrdersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Orders placed by payment method and result",
		}, []string{"payment_method", "result"}),
		OrderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_status_transitions_total",
			Help:      "Order status transitions",
		}, []string{"from", "to"}),
		PaymentVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_verifications_total",
			Help:      "Payment callbacks by outcome",
		}, []string{"outcome"}),
		StockReservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_reservations_total",
			Help:      "Stock reservations and releases",
		}, []string{"op", "result"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification attempts by channel and status",
		}, []string{"channel", "kind", "status"}),
		OutboxRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_relayed_total",
			Help:      "Outbox messages relayed by result",
		}, []string{"topic", "result"}),
		OutboxPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outbox_pending",
			Help:      "Outbox messages waiting for delivery",
		}),
	}
}

// Register 将所有指标注册到 reg
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.OrdersPlaced,
		m.OrderTransitions,
		m.PaymentVerifications,
		m.StockReservations,
		m.Notifications,
		m.OutboxRelayed,
		m.OutboxPending,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			logger.Error(context.Background(), "Failed to register metric", "error", err)
			return err
		}
	}
	logger.Info(context.Background(), "Metrics registered successfully")
	return nil
}

// ObserveHTTP 记录 HTTP 请求
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// OrderPlaced 记录下单结果
func (m *Metrics) OrderPlaced(method, result string) {
	if m == nil {
		return
	}
	m.OrdersPlaced.WithLabelValues(method, result).Inc()
}

// OrderTransition 记录订单状态迁移
func (m *Metrics) OrderTransition(from, to string) {
	if m == nil {
		return
	}
	m.OrderTransitions.WithLabelValues(from, to).Inc()
}

// PaymentVerified 记录支付回调结果
func (m *Metrics) PaymentVerified(outcome string) {
	if m == nil {
		return
	}
	m.PaymentVerifications.WithLabelValues(outcome).Inc()
}

// Stock 记录库存预留/释放
func (m *Metrics) Stock(op, result string) {
	if m == nil {
		return
	}
	m.StockReservations.WithLabelValues(op, result).Inc()
}

// Notification 记录通知发送
func (m *Metrics) Notification(channel, kind, status string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(channel, kind, status).Inc()
}

// Relayed 记录 outbox 转发
func (m *Metrics) Relayed(topic, result string) {
	if m == nil {
		return
	}
	m.OutboxRelayed.WithLabelValues(topic, result).Inc()
}

// SetOutboxPending 更新 outbox 积压数量
func (m *Metrics) SetOutboxPending(n int64) {
	if m == nil {
		return
	}
	m.OutboxPending.Set(float64(n))
}

// NewHTTPServer 创建 Prometheus HTTP 服务器，由调用方负责启动与关闭
func NewHTTPServer(port int, path string, gatherer prometheus.Gatherer) *http.Server {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Serve 启动服务器直到 ctx 结束
func Serve(ctx context.Context, srv *http.Server) error {
	logger.Info(ctx, "Starting Prometheus HTTP server", "addr", srv.Addr)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
