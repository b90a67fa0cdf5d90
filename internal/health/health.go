package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

const (
	StateUp       = "up"
	StateDown     = "down"
	StateDisabled = "disabled"
)

// Status 健康状态
type Status struct {
	Service     string `json:"service"`
	Verifier    string `json:"verifier"`
	NATS        string `json:"nats"`
	Redis       string `json:"redis"`
	Database    string `json:"database"`
	Rooms       int    `json:"rooms"`
	Connections int    `json:"connections"`
}

// Counter 计数器接口
type Counter interface {
	Count() int
}

// ReadyProbe 答案校验引擎就绪状态
type ReadyProbe interface {
	Ready() bool
}

// Checker 健康检查器，未启用的依赖传 nil
type Checker struct {
	verifier    ReadyProbe
	nc          *nats.Conn
	redisClient *redis.Client
	db          *pgxpool.Pool
	rooms       Counter
	conns       Counter
}

// NewChecker 创建健康检查器
func NewChecker(verifier ReadyProbe, nc *nats.Conn, redisClient *redis.Client, db *pgxpool.Pool, rooms, conns Counter) *Checker {
	return &Checker{
		verifier:    verifier,
		nc:          nc,
		redisClient: redisClient,
		db:          db,
		rooms:       rooms,
		conns:       conns,
	}
}

// Check 执行健康检查
func (h *Checker) Check(ctx context.Context) *Status {
	status := &Status{
		Service:  "trivia",
		Verifier: StateDown,
		NATS:     StateDisabled,
		Redis:    StateDisabled,
		Database: StateDisabled,
	}

	if h.verifier != nil && h.verifier.Ready() {
		status.Verifier = StateUp
	}

	if h.nc != nil {
		if h.nc.IsConnected() {
			status.NATS = StateUp
		} else {
			status.NATS = StateDown
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if h.redisClient != nil {
		if err := h.redisClient.Ping(pingCtx).Err(); err == nil {
			status.Redis = StateUp
		} else {
			status.Redis = StateDown
		}
	}

	if h.db != nil {
		if err := h.db.Ping(pingCtx); err == nil {
			status.Database = StateUp
		} else {
			status.Database = StateDown
		}
	}

	if h.rooms != nil {
		status.Rooms = h.rooms.Count()
	}
	if h.conns != nil {
		status.Connections = h.conns.Count()
	}

	return status
}

// IsReady 校验引擎就绪且所有启用的依赖可用
func (s *Status) IsReady() bool {
	return s.Verifier == StateUp &&
		s.NATS != StateDown &&
		s.Redis != StateDown &&
		s.Database != StateDown
}

// ServeHTTP 存活检查，进程在即返回 200
func (h *Checker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, http.StatusOK, h.Check(r.Context()))
}

// Ready 就绪检查，未就绪返回 503
func (h *Checker) Ready(w http.ResponseWriter, r *http.Request) {
	status := h.Check(r.Context())
	code := http.StatusOK
	if !status.IsReady() {
		code = http.StatusServiceUnavailable
	}
	writeStatus(w, code, status)
}

func writeStatus(w http.ResponseWriter, code int, status *Status) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}

// Handler 健康检查路由
func (h *Checker) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/health", h)
	mux.HandleFunc("/ready", h.Ready)
	return mux
}
