package services

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/tournament-manager/events"
	"github.com/Dosada05/tournament-manager/models"
	"github.com/Dosada05/tournament-manager/repositories"
	"github.com/Dosada05/tournament-manager/storage"
)

type fakeTx struct{}

func (fakeTx) InTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

type fakeTournamentRepo struct {
	mu        sync.Mutex
	records   map[string]models.TournamentRecord
	updateErr error
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{records: make(map[string]models.TournamentRecord)}
}

func (r *fakeTournamentRepo) Create(ctx context.Context, exec repositories.SQLExecutor, t *models.TournamentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[t.ID]; ok {
		return repositories.ErrTournamentExists
	}
	r.records[t.ID] = *t
	return nil
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id string) (*models.TournamentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return &rec, nil
}

func (r *fakeTournamentRepo) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.TournamentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.TournamentRecord, 0, len(r.records))
	for _, rec := range r.records {
		if filter.Status != nil && rec.Status != *filter.Status {
			continue
		}
		if filter.Sport != nil && rec.Sport != *filter.Sport {
			continue
		}
		rec.State = models.TournamentState{}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTournamentRepo) Update(ctx context.Context, exec repositories.SQLExecutor, t *models.TournamentRecord, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	stored, ok := r.records[t.ID]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	if stored.Version != expectedVersion {
		return repositories.ErrVersionConflict
	}
	t.Version = expectedVersion + 1
	t.ArchiveKey = stored.ArchiveKey
	r.records[t.ID] = *t
	return nil
}

func (r *fakeTournamentRepo) UpdateArchiveKey(ctx context.Context, id string, archiveKey *string, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	rec.ArchiveKey = archiveKey
	rec.UpdatedAt = updatedAt
	r.records[id] = rec
	return nil
}

func (r *fakeTournamentRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(r.records, id)
	return nil
}

type fakeActionLog struct {
	mu      sync.Mutex
	entries []models.ActionLogEntry
}

func (l *fakeActionLog) Append(ctx context.Context, exec repositories.SQLExecutor, entry *models.ActionLogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.TournamentID == entry.TournamentID && e.Version == entry.Version {
			return repositories.ErrActionVersionConflict
		}
	}
	entry.ID = int64(len(l.entries) + 1)
	l.entries = append(l.entries, *entry)
	return nil
}

func (l *fakeActionLog) ListByTournament(ctx context.Context, tournamentID string) ([]models.ActionLogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.ActionLogEntry
	for _, e := range l.entries {
		if e.TournamentID == tournamentID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *fakePublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type fakeBroadcaster struct {
	mu       sync.Mutex
	messages map[string]int
}

func (b *fakeBroadcaster) BroadcastToRoom(roomID string, message interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.messages == nil {
		b.messages = make(map[string]int)
	}
	b.messages[roomID]++
}

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{objects: make(map[string][]byte)}
}

func (u *fakeUploader) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.objects[key] = buf.Bytes()
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *fakeUploader) Delete(ctx context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return "https://cdn.example.com/" + key
}
