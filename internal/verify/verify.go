package verify

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
)

// Mode 校验模式
type Mode int

const (
	ModeFreeText Mode = iota
	ModeMultipleChoice
)

// Stage 命中的校验阶段
type Stage string

const (
	StageNone     Stage = ""
	StageExact    Stage = "exact"
	StageNumeric  Stage = "numeric"
	StageFuzzy    Stage = "fuzzy"
	StageSemantic Stage = "semantic"
	StageLemma    Stage = "lemma"
	StageChoice   Stage = "choice"
)

const (
	// FuzzyThreshold 编辑相似度阈值
	FuzzyThreshold = 0.85
	// SemanticThreshold 余弦相似度阈值
	SemanticThreshold = 0.8
	// NumericEpsilon 数值比较的相对误差
	NumericEpsilon = 1e-9
)

var (
	ErrNotReady  = errors.New("VERIFIER_NOT_READY")
	ErrNoVectors = errors.New("semantic stage enabled but no word vectors configured")
)

// Result 校验结果
type Result struct {
	Correct bool
	Stage   Stage
}

// Verifier 答案校验能力
type Verifier interface {
	Verify(expected, submitted string, mode Mode) (Result, error)
	Ready() bool
}

// Embedder 词向量查询
type Embedder interface {
	Vector(word string) ([]float64, bool)
}

// Lemmatizer 词形还原
type Lemmatizer interface {
	Lemma(word string) string
}

// Option Engine 配置项
type Option func(*Engine)

// WithVectorsPath 指定 GloVe 格式词向量文件
func WithVectorsPath(path string) Option {
	return func(e *Engine) { e.vectorsPath = path }
}

// WithoutSemantic 显式关闭语义阶段，不再要求词向量
func WithoutSemantic() Option {
	return func(e *Engine) { e.semantic = false }
}

// WithEmbedder 直接注入词向量实现
func WithEmbedder(embedder Embedder) Option {
	return func(e *Engine) { e.embedder = embedder }
}

// WithLemmatizer 直接注入词形还原实现
func WithLemmatizer(lemmatizer Lemmatizer) Option {
	return func(e *Engine) { e.lemmatizer = lemmatizer }
}

// WithEnglishLemmatizer 初始化时加载 golem 英文词典
func WithEnglishLemmatizer() Option {
	return func(e *Engine) { e.loadEnglish = true }
}

// Engine 多阶段答案校验引擎
// Init 完成后只读，可被多个房间并发调用
type Engine struct {
	vectorsPath string
	loadEnglish bool
	semantic    bool

	embedder   Embedder
	lemmatizer Lemmatizer

	once    sync.Once
	initErr error
	ready   atomic.Bool
	logger  *slog.Logger
}

// NewEngine 创建校验引擎，需调用 Init 后才能校验自由文本
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		semantic: true,
		logger:   slog.Default().With("component", "verifier"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Init 一次性加载词向量与词典，重复调用返回首次结果
func (e *Engine) Init(ctx context.Context) error {
	e.once.Do(func() {
		e.initErr = e.load(ctx)
		if e.initErr == nil {
			e.ready.Store(true)
		}
	})
	return e.initErr
}

func (e *Engine) load(ctx context.Context) error {
	if !e.semantic {
		e.embedder = nil
		e.logger.Warn("Semantic stage disabled by configuration")
	} else if e.embedder == nil {
		if e.vectorsPath == "" {
			return ErrNoVectors
		}
		vectors, err := LoadVectors(ctx, e.vectorsPath)
		if err != nil {
			return err
		}
		e.embedder = vectors
		e.logger.Info("Word vectors loaded", "words", vectors.Len(), "dim", vectors.Dim())
	}

	if e.lemmatizer == nil && e.loadEnglish {
		lemmatizer, err := NewEnglishLemmatizer()
		if err != nil {
			return err
		}
		e.lemmatizer = lemmatizer
		e.logger.Info("English lemmatizer loaded")
	}
	if e.lemmatizer == nil {
		e.logger.Warn("No lemmatizer configured, lemma stage compares lowercase tokens")
	}

	return nil
}

// Ready 资源是否已加载
func (e *Engine) Ready() bool {
	return e.ready.Load()
}

// Verify 校验答案
// 选择题模式直接做区分大小写的精确比较，不经过多阶段流水线
func (e *Engine) Verify(expected, submitted string, mode Mode) (Result, error) {
	if mode == ModeMultipleChoice {
		return matchChoice(expected, submitted), nil
	}
	if !e.Ready() {
		return Result{}, ErrNotReady
	}

	exp := strings.TrimSpace(expected)
	sub := strings.TrimSpace(submitted)
	if sub == "" {
		return Result{}, nil
	}

	for _, stage := range e.pipeline() {
		if stage.match(exp, sub) {
			return Result{Correct: true, Stage: stage.name}, nil
		}
	}

	return Result{}, nil
}

type stage struct {
	name  Stage
	match func(expected, submitted string) bool
}

func (e *Engine) pipeline() []stage {
	return []stage{
		{StageExact, exactMatch},
		{StageNumeric, numericMatch},
		{StageFuzzy, fuzzyMatch},
		{StageSemantic, e.semanticMatch},
		{StageLemma, e.lemmaMatch},
	}
}

func matchChoice(expected, submitted string) Result {
	if strings.TrimSpace(expected) == strings.TrimSpace(submitted) {
		return Result{Correct: true, Stage: StageChoice}
	}
	return Result{}
}
