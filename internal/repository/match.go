package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"sudooom.trivia/internal/model"
)

// MatchRecord 历史对局
type MatchRecord struct {
	ID         int64          `json:"id"`
	RoomID     string         `json:"roomId"`
	Winner     string         `json:"winner"`
	Scores     map[string]int `json:"scores"`
	Questions  int            `json:"questions"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
}

// MatchRepository 对局历史
type MatchRepository struct {
	db *pgxpool.Pool
}

// NewMatchRepository 创建对局历史仓库
func NewMatchRepository(db *pgxpool.Pool) *MatchRepository {
	return &MatchRepository{db: db}
}

// Save 保存一局结果
func (r *MatchRepository) Save(ctx context.Context, result model.GameResult) (int64, error) {
	query := `
		INSERT INTO matches (room_id, winner, scores, config, question_count, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	scores, err := json.Marshal(result.Scores)
	if err != nil {
		return 0, err
	}
	config, err := json.Marshal(result.Config)
	if err != nil {
		return 0, err
	}

	var id int64
	err = r.db.QueryRow(ctx, query,
		result.RoomID,
		result.Winner,
		scores,
		config,
		result.Questions,
		time.UnixMilli(result.StartedAt),
		time.UnixMilli(result.FinishedAt),
	).Scan(&id)

	return id, err
}

// Recent 最近的对局
func (r *MatchRepository) Recent(ctx context.Context, limit int) ([]MatchRecord, error) {
	query := `
		SELECT id, room_id, winner, scores, question_count, started_at, finished_at
		FROM matches
		ORDER BY finished_at DESC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []MatchRecord
	for rows.Next() {
		var rec MatchRecord
		var scores []byte
		if err := rows.Scan(
			&rec.ID,
			&rec.RoomID,
			&rec.Winner,
			&scores,
			&rec.Questions,
			&rec.StartedAt,
			&rec.FinishedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(scores, &rec.Scores); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
