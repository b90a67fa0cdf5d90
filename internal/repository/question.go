package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sudooom.trivia/internal/model"
)

// QuestionRepository PostgreSQL 题库
type QuestionRepository struct {
	db *pgxpool.Pool
}

// NewQuestionRepository 创建题库仓库
func NewQuestionRepository(db *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// Pick 按条件随机选题
func (r *QuestionRepository) Pick(ctx context.Context, filter model.QuestionFilter) ([]model.Question, error) {
	query := `
		SELECT id, text, category, answer, options, difficulty, points, time_limit_ms
		FROM questions
		WHERE ($1 = '' OR difficulty = $1)
		  AND ($2 = '' OR lower(category) = lower($2))
		  AND (NOT $3 OR cardinality(options) >= 2)
		ORDER BY random()
		LIMIT $4
	`

	difficulty := string(filter.Difficulty)
	if filter.Difficulty == model.DifficultyMixed {
		difficulty = ""
	}

	rows, err := r.db.Query(ctx, query, difficulty, filter.Category, filter.MultipleChoice, filter.Count)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var difficultyStr string
		var timeLimitMs int64
		if err := rows.Scan(
			&q.ID,
			&q.Text,
			&q.Category,
			&q.Answer,
			&q.Options,
			&difficultyStr,
			&q.Points,
			&timeLimitMs,
		); err != nil {
			return nil, err
		}
		q.Difficulty = model.Difficulty(difficultyStr)
		q.TimeLimit = time.Duration(timeLimitMs) * time.Millisecond
		questions = append(questions, q)
	}

	return questions, rows.Err()
}

// Seed 批量导入题目，已存在的 ID 跳过
func (r *QuestionRepository) Seed(ctx context.Context, questions []model.Question) (int, error) {
	query := `
		INSERT INTO questions (id, text, category, answer, options, difficulty, points, time_limit_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`

	batch := &pgx.Batch{}
	for _, q := range questions {
		options := q.Options
		if options == nil {
			options = []string{}
		}
		batch.Queue(query,
			q.ID,
			q.Text,
			q.Category,
			q.Answer,
			options,
			string(q.Difficulty),
			q.Points,
			q.TimeLimit.Milliseconds(),
		)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for range questions {
		tag, err := results.Exec()
		if err != nil {
			return inserted, err
		}
		inserted += int(tag.RowsAffected())
	}

	return inserted, nil
}

// Count 题目总数
func (r *QuestionRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM questions`).Scan(&n)
	return n, err
}
