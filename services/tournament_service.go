package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/tournament-manager/csvio"
	"github.com/Dosada05/tournament-manager/engine"
	"github.com/Dosada05/tournament-manager/events"
	"github.com/Dosada05/tournament-manager/hub"
	"github.com/Dosada05/tournament-manager/locks"
	"github.com/Dosada05/tournament-manager/models"
	"github.com/Dosada05/tournament-manager/repositories"
	"github.com/Dosada05/tournament-manager/standings"
	"github.com/Dosada05/tournament-manager/storage"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100

	// fanOutTimeout bounds the post-commit work; it runs after the request's own
	// context may have been cancelled.
	fanOutTimeout = 15 * time.Second
)

// Broadcaster pushes a message to every websocket client of a room.
type Broadcaster interface {
	BroadcastToRoom(roomID string, message interface{})
}

type TournamentService interface {
	Create(ctx context.Context, input CreateTournamentInput) (*models.TournamentRecord, error)
	Import(ctx context.Context, r io.Reader) (*models.TournamentRecord, error)
	Get(ctx context.Context, id string) (*models.TournamentRecord, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.TournamentRecord, error)
	Delete(ctx context.Context, id string) error

	// Dispatch applies one action under the tournament's lock and persists the result
	// as the next version.
	Dispatch(ctx context.Context, id string, action engine.Action) (*models.TournamentRecord, error)

	Standings(ctx context.Context, id string) (*models.StandingsView, error)
	History(ctx context.Context, id string) ([]models.ActionLogEntry, error)
	ExportCSV(ctx context.Context, id string, w io.Writer) (filename string, err error)
	Archive(ctx context.Context, id string) (*models.TournamentRecord, error)
}

type CreateTournamentInput struct {
	Name  string       `json:"name"`
	Sport models.Sport `json:"sport"`
	Teams []string     `json:"teams"`
}

type ListTournamentsFilter struct {
	Sport  *models.Sport
	Status *models.TournamentStatus
	Limit  int
	Offset int
}

type TournamentServiceDeps struct {
	Tx          repositories.Transactor
	Tournaments repositories.TournamentRepository
	Actions     repositories.ActionLogRepository
	Engine      *engine.Engine
	Locker      locks.Locker
	Publisher   events.Publisher
	Broadcaster Broadcaster
	// Uploader is optional; without it archiving is disabled.
	Uploader storage.FileUploader
	Clock    clockwork.Clock
	Logger   *slog.Logger
}

type tournamentService struct {
	tx          repositories.Transactor
	tournaments repositories.TournamentRepository
	actions     repositories.ActionLogRepository
	engine      *engine.Engine
	locker      locks.Locker
	publisher   events.Publisher
	broadcaster Broadcaster
	uploader    storage.FileUploader
	clock       clockwork.Clock
	logger      *slog.Logger
	newID       func() string
}

func NewTournamentService(deps TournamentServiceDeps) TournamentService {
	s := &tournamentService{
		tx:          deps.Tx,
		tournaments: deps.Tournaments,
		actions:     deps.Actions,
		engine:      deps.Engine,
		locker:      deps.Locker,
		publisher:   deps.Publisher,
		broadcaster: deps.Broadcaster,
		uploader:    deps.Uploader,
		clock:       deps.Clock,
		logger:      deps.Logger,
		newID:       uuid.NewString,
	}
	if s.engine == nil {
		s.engine = engine.New()
	}
	if s.locker == nil {
		s.locker = locks.NewLocalLocker()
	}
	if s.publisher == nil {
		s.publisher = events.NopPublisher{}
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

func (s *tournamentService) Create(ctx context.Context, input CreateTournamentInput) (*models.TournamentRecord, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrTournamentNameRequired
	}

	action := engine.SetupTournament{Name: name, TeamNames: input.Teams, Sport: input.Sport}
	initial := models.TournamentState{ID: s.newID(), Name: name, Status: models.StatusSetup}
	state, err := s.engine.Apply(initial, action)
	if err != nil {
		return nil, err
	}

	payload, err := engine.EncodeAction(action)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	rec := &models.TournamentRecord{
		ID:        state.ID,
		Name:      state.Name,
		Sport:     state.Sport,
		Status:    state.Status,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
		State:     state,
	}

	err = s.tx.InTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.tournaments.Create(ctx, exec, rec); err != nil {
			return fmt.Errorf("failed to create tournament: %w", err)
		}
		return s.actions.Append(ctx, exec, &models.ActionLogEntry{
			TournamentID: rec.ID,
			Version:      rec.Version,
			ActionType:   string(action.Type()),
			Payload:      payload,
			CreatedAt:    now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tournament created", slog.String("tournament_id", rec.ID), slog.String("sport", string(rec.Sport)))
	s.fanOut(ctx, rec, events.TypeCreated, action.Type(), false)
	return rec, nil
}

func (s *tournamentService) Import(ctx context.Context, r io.Reader) (*models.TournamentRecord, error) {
	parsed, err := csvio.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}
	return s.Create(ctx, CreateTournamentInput{Name: parsed.Name, Sport: parsed.Sport, Teams: parsed.Teams})
}

func (s *tournamentService) Get(ctx context.Context, id string) (*models.TournamentRecord, error) {
	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.populateArchiveURL(rec)
	return rec, nil
}

func (s *tournamentService) List(ctx context.Context, filter ListTournamentsFilter) ([]models.TournamentRecord, error) {
	if filter.Sport != nil && !filter.Sport.Valid() {
		return nil, fmt.Errorf("%w: unknown sport %q", ErrValidationFailed, *filter.Sport)
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidationFailed, *filter.Status)
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	filter.Limit = min(filter.Limit, maxListLimit)
	filter.Offset = max(filter.Offset, 0)

	records, err := s.tournaments.List(ctx, repositories.ListTournamentsFilter{
		Sport:  filter.Sport,
		Status: filter.Status,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	for i := range records {
		s.populateArchiveURL(&records[i])
	}
	return records, nil
}

func (s *tournamentService) Delete(ctx context.Context, id string) error {
	unlock, err := s.lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	rec, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.tournaments.Delete(ctx, id); err != nil {
		return s.mapRepositoryError(err)
	}

	if rec.ArchiveKey != nil && s.uploader != nil {
		csvKey, jsonKey := storage.ArchiveKeys(id)
		for _, key := range []string{csvKey, jsonKey} {
			if err := s.uploader.Delete(ctx, key); err != nil {
				s.logger.Warn("failed to delete archived object", slog.String("key", key), slog.Any("error", err))
			}
		}
	}

	s.logger.Info("tournament deleted", slog.String("tournament_id", id))
	if s.broadcaster != nil {
		s.broadcaster.BroadcastToRoom(hub.RoomFor(id), hub.WebSocketMessage{
			Type:    hub.MessageDeleted,
			Payload: map[string]string{"id": id},
			RoomID:  hub.RoomFor(id),
		})
	}
	s.publish(ctx, events.Event{Type: events.TypeDeleted, TournamentID: id, Version: rec.Version, OccurredAt: s.clock.Now().UTC()})
	return nil
}

func (s *tournamentService) Dispatch(ctx context.Context, id string, action engine.Action) (*models.TournamentRecord, error) {
	unlock, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}

	rec, prevStatus, err := s.applyLocked(ctx, id, action)
	unlock()
	if err != nil {
		return nil, err
	}

	finished := prevStatus != models.StatusFinished && rec.Status == models.StatusFinished
	s.logger.Info("tournament action applied",
		slog.String("tournament_id", id),
		slog.String("action", string(action.Type())),
		slog.Int("version", rec.Version),
		slog.String("status", string(rec.Status)),
	)
	s.fanOut(ctx, rec, events.TypeActionApplied, action.Type(), finished)
	return rec, nil
}

// applyLocked must run while the tournament's lock is held.
func (s *tournamentService) applyLocked(ctx context.Context, id string, action engine.Action) (*models.TournamentRecord, models.TournamentStatus, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, "", err
	}

	if _, ok := action.(engine.GeneratePlayoffs); ok &&
		current.State.Status == models.StatusGroupStage && current.State.Playoff == nil &&
		!current.State.GroupStageComplete() {
		return nil, "", ErrGroupStageIncomplete
	}

	next, err := s.engine.Apply(current.State, action)
	if err != nil {
		return nil, "", err
	}

	payload, err := engine.EncodeAction(action)
	if err != nil {
		return nil, "", err
	}

	now := s.clock.Now().UTC()
	updated := *current
	updated.State = next
	updated.Name = next.Name
	updated.Sport = next.Sport
	updated.Status = next.Status
	updated.UpdatedAt = now

	err = s.tx.InTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.tournaments.Update(ctx, exec, &updated, current.Version); err != nil {
			return err
		}
		return s.actions.Append(ctx, exec, &models.ActionLogEntry{
			TournamentID: id,
			Version:      updated.Version,
			ActionType:   string(action.Type()),
			Payload:      payload,
			CreatedAt:    now,
		})
	})
	if err != nil {
		return nil, "", s.mapRepositoryError(err)
	}
	return &updated, current.Status, nil
}

func (s *tournamentService) Standings(ctx context.Context, id string) (*models.StandingsView, error) {
	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	view := standings.View(&rec.State, s.engine.Ranking())
	return &view, nil
}

func (s *tournamentService) History(ctx context.Context, id string) ([]models.ActionLogEntry, error) {
	var entries []models.ActionLogEntry
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.load(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		entries, err = s.actions.ListByTournament(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *tournamentService) ExportCSV(ctx context.Context, id string, w io.Writer) (string, error) {
	rec, err := s.load(ctx, id)
	if err != nil {
		return "", err
	}
	if err := csvio.Export(w, &rec.State, s.engine.Ranking()); err != nil {
		return "", err
	}
	return csvio.FileName(&rec.State), nil
}

func (s *tournamentService) Archive(ctx context.Context, id string) (*models.TournamentRecord, error) {
	if s.uploader == nil {
		return nil, ErrArchiveDisabled
	}
	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.archive(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// archive uploads the CSV export and the JSON snapshot of rec and records the key.
func (s *tournamentService) archive(ctx context.Context, rec *models.TournamentRecord) error {
	var csvBuf bytes.Buffer
	if err := csvio.Export(&csvBuf, &rec.State, s.engine.Ranking()); err != nil {
		return err
	}
	snapshot, err := json.MarshalIndent(rec.State, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	csvKey, jsonKey := storage.ArchiveKeys(rec.ID)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.uploader.Upload(gctx, csvKey, "text/csv; charset=utf-8", &csvBuf)
		return err
	})
	g.Go(func() error {
		_, err := s.uploader.Upload(gctx, jsonKey, "application/json", bytes.NewReader(snapshot))
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to archive tournament %s: %w", rec.ID, err)
	}

	archivedAt := s.clock.Now().UTC()
	if err := s.tournaments.UpdateArchiveKey(ctx, rec.ID, &csvKey, archivedAt); err != nil {
		return s.mapRepositoryError(err)
	}
	rec.ArchiveKey = &csvKey
	rec.UpdatedAt = archivedAt
	s.populateArchiveURL(rec)

	s.logger.Info("tournament archived", slog.String("tournament_id", rec.ID), slog.String("key", csvKey))
	s.publish(ctx, events.Event{Type: events.TypeArchived, TournamentID: rec.ID, Version: rec.Version, Status: rec.Status, OccurredAt: s.clock.Now().UTC()})
	return nil
}

// fanOut notifies websocket clients and the event stream after a commit. Failures
// are logged; the change is already durable.
func (s *tournamentService) fanOut(ctx context.Context, rec *models.TournamentRecord, eventType events.Type, actionType engine.ActionType, finished bool) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fanOutTimeout)
	defer cancel()

	// A plain group: one failing notification must not cancel the others.
	var g errgroup.Group
	g.Go(func() error {
		if s.broadcaster != nil {
			room := hub.RoomFor(rec.ID)
			s.broadcaster.BroadcastToRoom(room, hub.WebSocketMessage{Type: hub.MessageUpdated, Payload: rec, RoomID: room})
		}
		return nil
	})
	g.Go(func() error {
		event := events.Event{
			Type:         eventType,
			TournamentID: rec.ID,
			Version:      rec.Version,
			Status:       rec.Status,
			ActionType:   string(actionType),
			OccurredAt:   s.clock.Now().UTC(),
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			return fmt.Errorf("publish %s: %w", eventType, err)
		}
		if finished {
			event.Type = events.TypeFinished
			if rec.State.Playoff != nil {
				event.ChampionID = rec.State.Playoff.ChampionID
			}
			if err := s.publisher.Publish(ctx, event); err != nil {
				return fmt.Errorf("publish %s: %w", events.TypeFinished, err)
			}
		}
		return nil
	})
	if finished && s.uploader != nil {
		archived := *rec
		g.Go(func() error {
			return s.archive(ctx, &archived)
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Warn("post-commit notification failed", slog.String("tournament_id", rec.ID), slog.Any("error", err))
	}
}

func (s *tournamentService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish tournament event", slog.String("type", string(event.Type)), slog.Any("error", err))
	}
}

func (s *tournamentService) lock(ctx context.Context, id string) (func(), error) {
	unlock, err := s.locker.Lock(ctx, id)
	if err != nil {
		if errors.Is(err, locks.ErrLockTimeout) {
			return nil, ErrTournamentBusy
		}
		return nil, fmt.Errorf("failed to lock tournament %s: %w", id, err)
	}
	return unlock, nil
}

func (s *tournamentService) load(ctx context.Context, id string) (*models.TournamentRecord, error) {
	rec, err := s.tournaments.GetByID(ctx, nil, id)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return rec, nil
}

func (s *tournamentService) populateArchiveURL(rec *models.TournamentRecord) {
	if rec.ArchiveKey == nil || s.uploader == nil {
		return
	}
	if url := s.uploader.GetPublicURL(*rec.ArchiveKey); url != "" {
		rec.ArchiveURL = &url
	}
}

func (s *tournamentService) mapRepositoryError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrVersionConflict),
		errors.Is(err, repositories.ErrActionVersionConflict):
		return ErrConcurrentModification
	default:
		return err
	}
}
