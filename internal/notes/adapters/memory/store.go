// Package memory содержит реализации репозиториев в памяти процесса.
// Используется в тестах сценариев и HTTP-слоя.
package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"notekeeper/internal/notes/domain/entities"
	"notekeeper/internal/notes/ports/repositories"
)

// Store хранит заметки, снимки и пользователей.
// mu защищает карты, noteLocks сериализует Mutate одной заметки.
type Store struct {
	mu        sync.Mutex
	notes     map[string]*entities.Note
	versions  map[string][]entities.Version
	users     map[string]entities.User
	noteLocks map[string]*sync.Mutex
	tick      time.Time
}

// NewStore создает пустое хранилище.
func NewStore() *Store {
	return &Store{
		notes:     make(map[string]*entities.Note),
		versions:  make(map[string][]entities.Version),
		users:     make(map[string]entities.User),
		noteLocks: make(map[string]*sync.Mutex),
		tick:      time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// AddUser регистрирует пользователя в справочнике.
func (s *Store) AddUser(u entities.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// Notes возвращает репозиторий заметок.
func (s *Store) Notes() repositories.NoteRepository { return noteRepo{s} }

// Versions возвращает репозиторий снимков.
func (s *Store) Versions() repositories.VersionRepository { return versionRepo{s} }

// Users возвращает справочник пользователей.
func (s *Store) Users() *UserDirectory { return &UserDirectory{s} }

// noteLock возвращает мьютекс заметки, создавая его при первом обращении.
func (s *Store) noteLock(noteID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.noteLocks[noteID]
	if !ok {
		l = &sync.Mutex{}
		s.noteLocks[noteID] = l
	}
	return l
}

// nextCreatedAt выдает строго возрастающее время создания снимков.
func (s *Store) nextCreatedAt() time.Time {
	s.tick = s.tick.Add(time.Millisecond)
	return s.tick
}

func cloneNote(n *entities.Note) *entities.Note {
	c := *n
	c.Tags = append([]string{}, n.Tags...)
	c.Attachments = append([]entities.Attachment{}, n.Attachments...)
	c.Shares = append([]entities.ShareGrant{}, n.Shares...)
	if n.Reminder.DueAt != nil {
		due := *n.Reminder.DueAt
		c.Reminder.DueAt = &due
	}
	if n.Link.ExpiresAt != nil {
		exp := *n.Link.ExpiresAt
		c.Link.ExpiresAt = &exp
	}
	return &c
}

type noteRepo struct{ s *Store }

func (r noteRepo) Create(ctx context.Context, note *entities.Note) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[note.OwnerID]; !ok {
		return "", entities.ErrUserNotFound
	}
	stored := cloneNote(note)
	stored.ID = uuid.NewString()
	r.s.notes[stored.ID] = stored
	return stored.ID, nil
}

func (r noteRepo) GetByID(ctx context.Context, noteID string) (*entities.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n, ok := r.s.notes[noteID]
	if !ok {
		return nil, entities.ErrNoteNotFound
	}
	return cloneNote(n), nil
}

// Mutate держит блокировку заметки на время чтения, fn и записи, как
// SELECT ... FOR UPDATE в postgres. Карты при этом не блокируются, поэтому fn
// может читать снимки и справочник пользователей.
func (r noteRepo) Mutate(ctx context.Context, noteID string, fn repositories.MutateFunc) (*entities.Note, error) {
	l := r.s.noteLock(noteID)
	l.Lock()
	defer l.Unlock()

	current, err := r.GetByID(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if err := fn(current); err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.notes[noteID]; !ok {
		return nil, entities.ErrNoteNotFound
	}
	current.Revision++
	r.s.notes[noteID] = cloneNote(current)
	return current, nil
}

func (r noteRepo) Delete(ctx context.Context, noteID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.notes[noteID]; !ok {
		return entities.ErrNoteNotFound
	}
	delete(r.s.notes, noteID)
	delete(r.s.versions, noteID)
	delete(r.s.noteLocks, noteID)
	return nil
}

func (r noteRepo) ListByOwner(ctx context.Context, ownerID string, filter repositories.NoteFilter) ([]*entities.Note, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	q := strings.ToLower(strings.TrimSpace(filter.Query))
	matched := make([]*entities.Note, 0)
	for _, n := range r.s.notes {
		if n.OwnerID != ownerID {
			continue
		}
		if filter.Archived != nil && n.Archived != *filter.Archived {
			continue
		}
		if filter.Pinned != nil && n.Pinned != *filter.Pinned {
			continue
		}
		if filter.Tag != "" && !slices.Contains(n.Tags, filter.Tag) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(n.Title), q) && !strings.Contains(strings.ToLower(n.Content), q) {
			continue
		}
		matched = append(matched, cloneNote(n))
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Pinned != matched[j].Pinned {
			return matched[i].Pinned
		}
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})

	total := len(matched)
	start := min(filter.Offset, total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}
	return matched[start:end], total, nil
}

func (r noteRepo) ListShared(ctx context.Context, userID string, status entities.GrantStatus) ([]repositories.SharedNote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	shared := make([]repositories.SharedNote, 0)
	for _, n := range r.s.notes {
		grant, ok := n.GrantFor(userID)
		if !ok || grant.Status != status {
			continue
		}
		shared = append(shared, repositories.SharedNote{
			Note:  cloneNote(n),
			Owner: r.s.users[n.OwnerID],
			Grant: grant,
		})
	}
	sort.Slice(shared, func(i, j int) bool {
		return shared[i].Note.UpdatedAt.After(shared[j].Note.UpdatedAt)
	})
	return shared, nil
}

func (r noteRepo) FindByLinkHash(ctx context.Context, tokenHash string) (*entities.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, n := range r.s.notes {
		if n.Link.TokenHash != "" && n.Link.TokenHash == tokenHash {
			return cloneNote(n), nil
		}
	}
	return nil, entities.ErrLinkNotFound
}

func (r noteRepo) LinkRevision(ctx context.Context, tokenHash string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, n := range r.s.notes {
		if n.Link.TokenHash != "" && n.Link.TokenHash == tokenHash {
			return n.Revision, nil
		}
	}
	return 0, entities.ErrLinkNotFound
}

func (r noteRepo) ListDueReminders(ctx context.Context, now time.Time, limit int) ([]*entities.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	due := make([]*entities.Note, 0)
	for _, n := range r.s.notes {
		if n.Reminder.IsDue(now) {
			due = append(due, cloneNote(n))
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].Reminder.DueAt.Before(*due[j].Reminder.DueAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

type versionRepo struct{ s *Store }

func (r versionRepo) Append(ctx context.Context, version *entities.Version, maxVersions int) (*entities.Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.notes[version.NoteID]; !ok {
		return nil, entities.ErrNoteNotFound
	}

	list := r.s.versions[version.NoteID]
	maxSequence := 0
	for _, v := range list {
		maxSequence = max(maxSequence, v.Sequence)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	for len(list) >= maxVersions {
		list = list[1:]
	}

	saved := *version
	saved.Tags = append([]string{}, version.Tags...)
	saved.ID = uuid.NewString()
	saved.Sequence = maxSequence + 1
	saved.CreatedAt = r.s.nextCreatedAt()

	r.s.versions[version.NoteID] = append(list, saved)
	return &saved, nil
}

func (r versionRepo) List(ctx context.Context, noteID string, limit int) ([]entities.VersionSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	list := append([]entities.Version{}, r.s.versions[noteID]...)
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}

	summaries := make([]entities.VersionSummary, 0, len(list))
	for _, v := range list {
		summaries = append(summaries, entities.VersionSummary{
			ID: v.ID, Sequence: v.Sequence, Title: v.Title, AuthorID: v.AuthorID, CreatedAt: v.CreatedAt,
		})
	}
	return summaries, nil
}

func (r versionRepo) Get(ctx context.Context, noteID, versionID string) (*entities.Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, v := range r.s.versions[noteID] {
		if v.ID == versionID {
			found := v
			found.Tags = append([]string{}, v.Tags...)
			return &found, nil
		}
	}
	return nil, entities.ErrVersionNotFound
}

// UserDirectory реализует services.UserDirectory поверх Store.
type UserDirectory struct{ s *Store }

// FindByEmail ищет пользователя по email без учета регистра.
func (d *UserDirectory) FindByEmail(ctx context.Context, email string) (*entities.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	for _, u := range d.s.users {
		if strings.EqualFold(u.Email, email) {
			found := u
			return &found, nil
		}
	}
	return nil, entities.ErrUserNotFound
}

// FindByID ищет пользователя по id.
func (d *UserDirectory) FindByID(ctx context.Context, userID string) (*entities.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	u, ok := d.s.users[userID]
	if !ok {
		return nil, entities.ErrUserNotFound
	}
	return &u, nil
}
