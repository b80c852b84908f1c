package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/tournament-manager/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrTournamentExists   = errors.New("tournament with this id already exists")
	ErrVersionConflict    = errors.New("tournament was modified concurrently")
)

type ListTournamentsFilter struct {
	Sport  *models.Sport
	Status *models.TournamentStatus
	Limit  int
	Offset int
}

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, t *models.TournamentRecord) error
	GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.TournamentRecord, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.TournamentRecord, error)
	// Update stores t.State as version expectedVersion+1. It fails with
	// ErrVersionConflict when the stored version is no longer expectedVersion.
	Update(ctx context.Context, exec SQLExecutor, t *models.TournamentRecord, expectedVersion int) error
	UpdateArchiveKey(ctx context.Context, id string, archiveKey *string, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.TournamentRecord) error {
	executor := r.getExecutor(exec)
	state, err := json.Marshal(t.State)
	if err != nil {
		return fmt.Errorf("failed to encode tournament state: %w", err)
	}

	query := `
		INSERT INTO tournaments (id, name, sport, status, version, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = executor.ExecContext(ctx, query,
		t.ID, t.Name, t.Sport, t.Status, t.Version, state, t.CreatedAt, t.UpdatedAt,
	)
	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.TournamentRecord, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, name, sport, status, version, state, created_at, updated_at, archive_key
		FROM tournaments
		WHERE id = $1`

	t := &models.TournamentRecord{}
	var state []byte
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.Name, &t.Sport, &t.Status, &t.Version, &state, &t.CreatedAt, &t.UpdatedAt, &t.ArchiveKey,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(state, &t.State); err != nil {
		return nil, fmt.Errorf("failed to decode state of tournament %s: %w", id, err)
	}
	return t, nil
}

// List returns tournament headers without their state, newest first.
func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.TournamentRecord, error) {
	query := `
		SELECT id, name, sport, status, version, created_at, updated_at, archive_key
		FROM tournaments
		WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.Sport != nil {
		query += fmt.Sprintf(" AND sport = $%d", argID)
		args = append(args, *filter.Sport)
		argID++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}

	query += " ORDER BY updated_at DESC, created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]models.TournamentRecord, 0)
	for rows.Next() {
		var t models.TournamentRecord
		if scanErr := rows.Scan(
			&t.ID, &t.Name, &t.Sport, &t.Status, &t.Version, &t.CreatedAt, &t.UpdatedAt, &t.ArchiveKey,
		); scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) Update(ctx context.Context, exec SQLExecutor, t *models.TournamentRecord, expectedVersion int) error {
	executor := r.getExecutor(exec)
	state, err := json.Marshal(t.State)
	if err != nil {
		return fmt.Errorf("failed to encode tournament state: %w", err)
	}

	query := `
		UPDATE tournaments SET
			name = $1,
			sport = $2,
			status = $3,
			state = $4,
			version = version + 1,
			updated_at = $5
		WHERE id = $6 AND version = $7`

	result, err := executor.ExecContext(ctx, query,
		t.Name, t.Sport, t.Status, state, t.UpdatedAt, t.ID, expectedVersion,
	)
	if err != nil {
		return r.handleTournamentError(err)
	}

	if err := checkAffectedRows(result, ErrVersionConflict); err != nil {
		if !errors.Is(err, ErrVersionConflict) {
			return err
		}
		// Either the row is gone or someone else bumped the version.
		if _, getErr := r.GetByID(ctx, executor, t.ID); errors.Is(getErr, ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}
	t.Version = expectedVersion + 1
	return nil
}

func (r *postgresTournamentRepository) UpdateArchiveKey(ctx context.Context, id string, archiveKey *string, updatedAt time.Time) error {
	query := `UPDATE tournaments SET archive_key = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, archiveKey, updatedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament archive key: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM tournaments WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "tournaments_pkey" {
				return ErrTournamentExists
			}
		case "23514":
			return fmt.Errorf("tournament row rejected by %s: %w", pqErr.Constraint, err)
		}
	}
	return err
}
