package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Game     GameConfig     `mapstructure:"game"`
	Timer    TimerConfig    `mapstructure:"timer"`
	Verifier VerifierConfig `mapstructure:"verifier"`
	Question QuestionConfig `mapstructure:"question"`
	Results  ResultsConfig  `mapstructure:"results"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Redis    RedisConfig    `mapstructure:"redis"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Database DatabaseConfig `mapstructure:"database"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Log      LogConfig      `mapstructure:"log"`
}

type AppConfig struct {
	Name   string `mapstructure:"name"`
	Mode   string `mapstructure:"mode"`
	NodeID int64  `mapstructure:"node_id"`
}

type ServerConfig struct {
	Addr         string             `mapstructure:"addr"`
	HealthAddr   string             `mapstructure:"health_addr"`
	MaxRooms     int                `mapstructure:"max_rooms"`
	WriteQueue   int                `mapstructure:"write_queue"`
	WebTransport WebTransportConfig `mapstructure:"webtransport"`

	HeartbeatTimeout       time.Duration `mapstructure:"heartbeat_timeout"`
	HeartbeatCheckInterval time.Duration `mapstructure:"heartbeat_check_interval"`
	PingInterval           time.Duration `mapstructure:"ping_interval"`
	ShutdownTimeout        time.Duration `mapstructure:"shutdown_timeout"`
}

type WebTransportConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Addr            string        `mapstructure:"addr"`
	CertFile        string        `mapstructure:"cert_file"`
	KeyFile         string        `mapstructure:"key_file"`
	MaxIdleTimeout  time.Duration `mapstructure:"max_idle_timeout"`
	KeepAlivePeriod time.Duration `mapstructure:"keep_alive_period"`
}

// GameConfig 对局节奏配置
type GameConfig struct {
	QuestionTime     time.Duration `mapstructure:"question_time"`
	ResultsTime      time.Duration `mapstructure:"results_time"`
	ClosingTime      time.Duration `mapstructure:"closing_time"`
	ReactionCooldown time.Duration `mapstructure:"reaction_cooldown"`
	EventQueueSize   int           `mapstructure:"event_queue_size"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
}

type TimerConfig struct {
	Tick    time.Duration `mapstructure:"tick"`
	Slots   int           `mapstructure:"slots"`
	Workers int           `mapstructure:"workers"`
}

// VerifierConfig 答案校验资源配置
// Semantic 关闭时不加载词向量，语义阶段永远不命中
type VerifierConfig struct {
	VectorsPath string `mapstructure:"vectors_path"`
	Semantic    bool   `mapstructure:"semantic"`
	Lemmatizer  bool   `mapstructure:"lemmatizer"`
}

// QuestionConfig 题库来源: file 或 postgres
type QuestionConfig struct {
	Source   string `mapstructure:"source"`
	FilePath string `mapstructure:"file_path"`
	Seed     bool   `mapstructure:"seed"` // postgres 模式下启动时把 file_path 中的题目导入数据库
}

// ResultsConfig 对局结果分发
type ResultsConfig struct {
	Workers   int           `mapstructure:"workers"`
	QueueSize int           `mapstructure:"queue_size"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type JWTConfig struct {
	SecretKey string        `mapstructure:"secret_key"`
	Expire    time.Duration `mapstructure:"expire"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type NATSConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	URL           string        `mapstructure:"url"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load 从指定路径加载配置
// 顺序: .env（可选）-> yaml -> 环境变量覆盖 -> 默认值补齐
func Load(configPath string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetDefault("verifier.semantic", true)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	return &cfg, nil
}

// applyEnv 从环境变量覆盖配置
func (c *Config) applyEnv() {
	// Server
	c.Server.Addr = GetEnv("TRIVIA_ADDR", c.Server.Addr)
	c.Server.WebTransport.Enabled = GetEnvBool("TRIVIA_WEBTRANSPORT", c.Server.WebTransport.Enabled)

	// Verifier
	c.Verifier.VectorsPath = GetEnv("TRIVIA_VECTORS_PATH", c.Verifier.VectorsPath)
	c.Verifier.Semantic = GetEnvBool("TRIVIA_SEMANTIC", c.Verifier.Semantic)

	// Question
	c.Question.Source = GetEnv("TRIVIA_QUESTION_SOURCE", c.Question.Source)
	c.Question.FilePath = GetEnv("TRIVIA_QUESTION_FILE", c.Question.FilePath)

	// JWT
	c.JWT.SecretKey = GetEnv("JWT_SECRET", c.JWT.SecretKey)
	c.JWT.Expire = GetEnvDuration("JWT_EXPIRE", c.JWT.Expire)

	// Redis
	c.Redis.Enabled = GetEnvBool("REDIS_ENABLED", c.Redis.Enabled)
	c.Redis.Host = GetEnv("REDIS_HOST", c.Redis.Host)
	c.Redis.Port = GetEnvInt("REDIS_PORT", c.Redis.Port)
	c.Redis.Password = GetEnv("REDIS_PASSWORD", c.Redis.Password)

	// NATS
	c.NATS.Enabled = GetEnvBool("NATS_ENABLED", c.NATS.Enabled)
	c.NATS.URL = GetEnv("NATS_URL", c.NATS.URL)

	// Database
	c.Database.Enabled = GetEnvBool("POSTGRES_ENABLED", c.Database.Enabled)
	c.Database.Host = GetEnv("POSTGRES_HOST", c.Database.Host)
	c.Database.Port = GetEnvInt("POSTGRES_PORT", c.Database.Port)
	c.Database.User = GetEnv("POSTGRES_USER", c.Database.User)
	c.Database.Password = GetEnv("POSTGRES_PASSWORD", c.Database.Password)
	c.Database.Name = GetEnv("POSTGRES_DB", c.Database.Name)

	// Log
	c.Log.Level = GetEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = GetEnv("LOG_FORMAT", c.Log.Format)
}

// applyDefaults 补齐零值配置
func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "trivia"
	}
	if c.App.Mode == "" {
		c.App.Mode = "release"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.HealthAddr == "" {
		c.Server.HealthAddr = ":8081"
	}
	if c.Server.MaxRooms <= 0 {
		c.Server.MaxRooms = 5000
	}
	if c.Server.WriteQueue <= 0 {
		c.Server.WriteQueue = 64
	}
	if c.Server.WebTransport.Addr == "" {
		c.Server.WebTransport.Addr = ":4433"
	}
	if c.Game.QuestionTime <= 0 {
		c.Game.QuestionTime = 20 * time.Second
	}
	if c.Game.ResultsTime <= 0 {
		c.Game.ResultsTime = 5 * time.Second
	}
	if c.Game.ClosingTime <= 0 {
		c.Game.ClosingTime = 30 * time.Second
	}
	if c.Game.ReactionCooldown <= 0 {
		c.Game.ReactionCooldown = 3000 * time.Millisecond
	}
	if c.Game.EventQueueSize <= 0 {
		c.Game.EventQueueSize = 256
	}
	if c.Game.IdleTimeout <= 0 {
		c.Game.IdleTimeout = 30 * time.Minute
	}
	if c.Timer.Tick <= 0 {
		c.Timer.Tick = 100 * time.Millisecond
	}
	if c.Timer.Slots <= 0 {
		c.Timer.Slots = 600
	}
	if c.Timer.Workers <= 0 {
		c.Timer.Workers = 8
	}
	if c.Server.HeartbeatTimeout <= 0 {
		c.Server.HeartbeatTimeout = 90 * time.Second
	}
	if c.Server.HeartbeatCheckInterval <= 0 {
		c.Server.HeartbeatCheckInterval = 30 * time.Second
	}
	// WebSocket ping 必须明显短于心跳超时，否则空闲玩家会被误判掉线
	if c.Server.PingInterval <= 0 || c.Server.PingInterval > c.Server.HeartbeatTimeout/2 {
		c.Server.PingInterval = c.Server.HeartbeatTimeout / 3
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Results.Workers <= 0 {
		c.Results.Workers = 2
	}
	if c.Results.QueueSize <= 0 {
		c.Results.QueueSize = 256
	}
	if c.Results.Timeout <= 0 {
		c.Results.Timeout = 5 * time.Second
	}
	if c.Question.Source == "" {
		c.Question.Source = "file"
	}
	if c.JWT.Expire <= 0 {
		c.JWT.Expire = 12 * time.Hour
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}
