package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"treasurehunt-service/internal/domain"
)

// GameLoader loads game content and team records from Postgres (jsonb rows).
type GameLoader struct {
	pool *pgxpool.Pool
}

func NewGameLoader(pool *pgxpool.Pool) *GameLoader {
	return &GameLoader{pool: pool}
}

func (l *GameLoader) LoadCheckpoints(ctx context.Context) ([]domain.Checkpoint, error) {
	rows, err := l.pool.Query(ctx, `SELECT data FROM checkpoints ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load checkpoints: %w", err)
	}
	defer rows.Close()

	var checkpoints []domain.Checkpoint
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		var checkpoint domain.Checkpoint
		if err := json.Unmarshal(raw, &checkpoint); err != nil {
			return nil, fmt.Errorf("unmarshal checkpoint: %w", err)
		}
		checkpoints = append(checkpoints, checkpoint)
	}
	return checkpoints, rows.Err()
}

func (l *GameLoader) LoadQuestions(ctx context.Context) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, `SELECT data FROM questions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		var question domain.Question
		if err := json.Unmarshal(raw, &question); err != nil {
			return nil, fmt.Errorf("unmarshal question: %w", err)
		}
		questions = append(questions, question)
	}
	return questions, rows.Err()
}

func (l *GameLoader) LoadSettings(ctx context.Context) (domain.Settings, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM settings WHERE id='default'`).Scan(&raw)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	var settings domain.Settings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return domain.Settings{}, fmt.Errorf("unmarshal settings: %w", err)
	}
	return settings, nil
}

func (l *GameLoader) LoadTeams(ctx context.Context) ([]domain.Team, error) {
	rows, err := l.pool.Query(ctx, `SELECT data FROM teams ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load teams: %w", err)
	}
	defer rows.Close()

	var teams []domain.Team
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		var team domain.Team
		if err := json.Unmarshal(raw, &team); err != nil {
			return nil, fmt.Errorf("unmarshal team: %w", err)
		}
		teams = append(teams, team)
	}
	return teams, rows.Err()
}
