package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lmittmann/tint"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"sudooom.trivia/internal/config"
	"sudooom.trivia/internal/connection"
	"sudooom.trivia/internal/handler"
	"sudooom.trivia/internal/health"
	"sudooom.trivia/internal/identity"
	"sudooom.trivia/internal/jwt"
	"sudooom.trivia/internal/leaderboard"
	"sudooom.trivia/internal/model"
	triviaNats "sudooom.trivia/internal/nats"
	"sudooom.trivia/internal/question"
	"sudooom.trivia/internal/repository"
	"sudooom.trivia/internal/result"
	"sudooom.trivia/internal/room"
	"sudooom.trivia/internal/router"
	"sudooom.trivia/internal/server"
	"sudooom.trivia/internal/snowflake"
	"sudooom.trivia/internal/task"
	"sudooom.trivia/internal/verify"
)

// @title           Trivia API
// @version         1.0
// @description     Multiplayer trivia rooms: registration, room state, leaderboard and realtime channel
// @BasePath        /api/v1
func main() {
	cfg, err := config.Load(config.GetEnv("TRIVIA_CONFIG", "configs/config.yaml"))
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 可选依赖：Redis / NATS / PostgreSQL
	var redisClient *redis.Client
	var board *leaderboard.Board
	if cfg.Redis.Enabled {
		redisClient = leaderboard.NewClient(cfg.Redis)
		defer redisClient.Close()
		board = leaderboard.New(redisClient)
		logger.Info("Connected to Redis", "host", cfg.Redis.Host)
	}

	var natsClient *triviaNats.Client
	if cfg.NATS.Enabled {
		natsClient, err = triviaNats.NewClient(cfg.NATS, cfg.App.Name)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
		logger.Info("Connected to NATS", "url", cfg.NATS.URL)
	}

	var db *pgxpool.Pool
	if cfg.Database.Enabled {
		db, err = connectDatabase(ctx, cfg.Database)
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		logger.Info("Connected to PostgreSQL", "host", cfg.Database.Host)
	}

	questions, err := loadQuestions(ctx, cfg, db)
	if err != nil {
		logger.Error("Failed to load question bank", "error", err)
		os.Exit(1)
	}

	// 答案校验引擎在对外服务前加载完成
	verifier := newVerifier(cfg.Verifier)
	start := time.Now()
	if err := verifier.Init(ctx); err != nil {
		logger.Error("Failed to init verifier", "error", err)
		os.Exit(1)
	}
	logger.Info("Verifier ready", "elapsed", time.Since(start))

	// 房间截止时间
	scheduler := task.NewScheduler(cfg.Timer.Tick, cfg.Timer.Slots, cfg.Timer.Workers)
	if err := scheduler.Start(); err != nil {
		logger.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer scheduler.Stop()

	// 对局结果分发
	results := result.NewDispatcher(cfg.Results.Workers, cfg.Results.QueueSize, cfg.Results.Timeout)
	var matches *repository.MatchRepository
	if db != nil {
		matches = repository.NewMatchRepository(db)
	}
	wireResults(results, board, natsClient, matches, cfg.App.NodeID)

	// 房间与身份
	sfNode := snowflake.NewNode(cfg.App.NodeID)
	tokens := jwt.NewService(cfg.JWT.SecretKey, cfg.JWT.Expire)
	store := identity.NewStore(tokens, func() string { return sfNode.Generate().Code() }, cfg.Server.MaxRooms)
	registry := connection.NewRegistry()

	manager := room.NewManager(room.Deps{
		Verifier:    verifier,
		Timer:       task.NewTimers(scheduler),
		Broadcaster: registry,
		Questions:   questions,
		Results:     results,
		Registrar:   store,
	}, room.Settings{
		QuestionTime:     cfg.Game.QuestionTime,
		ResultsTime:      cfg.Game.ResultsTime,
		ClosingTime:      cfg.Game.ClosingTime,
		ReactionCooldown: cfg.Game.ReactionCooldown,
		QueueSize:        cfg.Game.EventQueueSize,
	}, cfg.Game.IdleTimeout, time.Minute)

	rooms := room.NewService(store, manager, registry)

	heartbeat := connection.NewHeartbeatChecker(registry, cfg.Server.HeartbeatTimeout, cfg.Server.HeartbeatCheckInterval, logger.With("component", "heartbeat"))
	go heartbeat.Start(ctx)

	// HTTP
	var nc *nats.Conn
	if natsClient != nil {
		nc = natsClient.Conn()
	}
	checker := health.NewChecker(verifier, nc, redisClient, db, manager, registry)

	var lb handler.Leaderboard
	if board != nil {
		lb = board
	}
	var history handler.MatchHistory
	if matches != nil {
		history = matches
	}
	r := router.SetupRouter(cfg,
		handler.NewRoomHandler(rooms),
		handler.NewLeaderboardHandler(lb),
		handler.NewMatchHandler(history),
		handler.NewWSHandler(rooms, cfg.CORS.AllowedOrigins, cfg.Server.WriteQueue, cfg.Server.PingInterval),
		checker,
	)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP server started", "addr", cfg.Server.Addr, "mode", cfg.App.Mode)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	healthServer := &http.Server{
		Addr:              cfg.Server.HealthAddr,
		Handler:           checker.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Health check server started", "addr", cfg.Server.HealthAddr)
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health check server failed", "error", err)
		}
	}()

	var wt *server.Server
	if cfg.Server.WebTransport.Enabled {
		wt = server.New(cfg.Server.WebTransport, rooms, cfg.Server.WriteQueue, cfg.CORS.AllowedOrigins)
		go func() {
			if err := wt.Start(ctx); err != nil {
				logger.Error("WebTransport server failed", "error", err)
			}
		}()
	}

	logger.Info("Trivia service started", "name", cfg.App.Name, "questionSource", cfg.Question.Source)

	// 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown", "error", err)
	}
	healthServer.Shutdown(shutdownCtx)
	if wt != nil {
		wt.Shutdown()
	}
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Room manager shutdown", "error", err)
	}
	cancel()
	results.Shutdown()

	logger.Info("Trivia service stopped")
}

// newLogger json 用于生产，text 使用 tint 彩色输出
func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			AddSource:  true,
			TimeFormat: time.Kitchen,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}

func newVerifier(cfg config.VerifierConfig) *verify.Engine {
	var opts []verify.Option
	if cfg.Semantic {
		opts = append(opts, verify.WithVectorsPath(cfg.VectorsPath))
	} else {
		opts = append(opts, verify.WithoutSemantic())
	}
	if cfg.Lemmatizer {
		opts = append(opts, verify.WithEnglishLemmatizer())
	}
	return verify.NewEngine(opts...)
}

// loadQuestions 按配置选择题库
func loadQuestions(ctx context.Context, cfg *config.Config, db *pgxpool.Pool) (room.QuestionSource, error) {
	switch cfg.Question.Source {
	case "file":
		bank, err := question.LoadFile(cfg.Question.FilePath)
		if err != nil {
			return nil, err
		}
		slog.Info("Question bank loaded", "path", cfg.Question.FilePath, "questions", bank.Len())
		return bank, nil

	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("question source postgres requires database.enabled")
		}
		repo := repository.NewQuestionRepository(db)
		if cfg.Question.Seed && cfg.Question.FilePath != "" {
			bank, err := question.LoadFile(cfg.Question.FilePath)
			if err != nil {
				return nil, err
			}
			n, err := repo.Seed(ctx, bank.All())
			if err != nil {
				return nil, fmt.Errorf("seed questions: %w", err)
			}
			slog.Info("Seeded questions", "inserted", n)
		}
		count, err := repo.Count(ctx)
		if err != nil {
			return nil, err
		}
		slog.Info("Question repository ready", "questions", count)
		return repo, nil
	}
	return nil, fmt.Errorf("unknown question source %q", cfg.Question.Source)
}

// wireResults 注册已启用的结果下游
func wireResults(d *result.Dispatcher, board *leaderboard.Board, natsClient *triviaNats.Client, matches *repository.MatchRepository, nodeID int64) {
	if board != nil {
		d.OnFinished("leaderboard", board.Record)
	}
	if natsClient != nil {
		publisher := triviaNats.NewPublisher(natsClient.Conn(), fmt.Sprintf("trivia-%d", nodeID))
		d.OnFinished("nats", func(ctx context.Context, res model.GameResult) error {
			return publisher.PublishFinished(res)
		})
		d.OnClosed("nats", func(ctx context.Context, roomID, reason string) error {
			return publisher.PublishClosed(roomID, reason)
		})
	}
	if matches != nil {
		d.OnFinished("matches", func(ctx context.Context, res model.GameResult) error {
			_, err := matches.Save(ctx, res)
			return err
		})
	}
}

// connectDatabase 连接 PostgreSQL
func connectDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Name,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	poolConfig.MaxConnIdleTime = 10 * time.Minute

	return pgxpool.NewWithConfig(ctx, poolConfig)
}
