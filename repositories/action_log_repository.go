package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-manager/models"
	"github.com/lib/pq"
)

var ErrActionVersionConflict = errors.New("an action with this version is already logged")

type ActionLogRepository interface {
	Append(ctx context.Context, exec SQLExecutor, entry *models.ActionLogEntry) error
	ListByTournament(ctx context.Context, tournamentID string) ([]models.ActionLogEntry, error)
}

type postgresActionLogRepository struct {
	db *sql.DB
}

func NewPostgresActionLogRepository(db *sql.DB) ActionLogRepository {
	return &postgresActionLogRepository{db: db}
}

func (r *postgresActionLogRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresActionLogRepository) Append(ctx context.Context, exec SQLExecutor, entry *models.ActionLogEntry) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO tournament_actions (tournament_id, version, action_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := executor.QueryRowContext(ctx, query,
		entry.TournamentID, entry.Version, entry.ActionType, []byte(entry.Payload), entry.CreatedAt,
	).Scan(&entry.ID)
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return ErrActionVersionConflict
		case "23503":
			return ErrTournamentNotFound
		}
	}
	return fmt.Errorf("failed to append action for tournament %s: %w", entry.TournamentID, err)
}

func (r *postgresActionLogRepository) ListByTournament(ctx context.Context, tournamentID string) ([]models.ActionLogEntry, error) {
	query := `
		SELECT id, tournament_id, version, action_type, payload, created_at
		FROM tournament_actions
		WHERE tournament_id = $1
		ORDER BY version ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list actions for tournament %s: %w", tournamentID, err)
	}
	defer rows.Close()

	entries := make([]models.ActionLogEntry, 0)
	for rows.Next() {
		var e models.ActionLogEntry
		var payload []byte
		if scanErr := rows.Scan(&e.ID, &e.TournamentID, &e.Version, &e.ActionType, &payload, &e.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		e.Payload = payload
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
