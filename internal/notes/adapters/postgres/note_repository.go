package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"notekeeper/internal/notes/domain/entities"
	"notekeeper/internal/notes/ports/repositories"
	"notekeeper/pkg/logger"
)

const noteColumns = `n.id, n.owner_id, n.title, n.content, n.tags, n.pinned, n.archived, n.attachments,
       n.reminder_at, n.reminder_status, n.shares, n.link_token_hash, n.link_expires_at,
       n.revision, n.created_at, n.updated_at`

// Константы для сообщений об ошибках.
const (
	errCreateNote     = "failed to create note"
	errGetNote        = "failed to get note"
	errLockNote       = "failed to lock note"
	errUpdateNote     = "failed to update note"
	errDeleteNote     = "failed to delete note"
	errCountNotes     = "failed to count notes"
	errListNotes      = "failed to list notes"
	errScanNote       = "failed to scan note"
	errIterateNotes   = "error iterating note rows"
	errEncodeNote     = "failed to encode note collections"
	errListShared     = "failed to list shared notes"
	errListReminders  = "failed to list due reminders"
	errFindByLinkHash = "failed to find note by link"
	errLinkRevision   = "failed to check link revision"
)

// NoteRepository реализует интерфейс repositories.NoteRepository.
type NoteRepository struct {
	pool PgxPoolInterface
}

// NewNoteRepository создает новый репозиторий заметок.
func NewNoteRepository(pool PgxPoolInterface) repositories.NoteRepository {
	return &NoteRepository{pool: pool}
}

// Create сохраняет новую заметку в БД.
func (r *NoteRepository) Create(ctx context.Context, note *entities.Note) (string, error) {
	log := logger.Log(ctx).With(zap.String("method", "NoteRepository.Create"))
	log.Debug(ctx, "creating new note", zap.String("ownerID", note.OwnerID))

	attachments, shares, err := encodeCollections(note)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errEncodeNote, err)
	}

	var noteID string
	err = r.pool.QueryRow(ctx,
		`INSERT INTO notes (owner_id, title, content, tags, pinned, archived, attachments,
                            reminder_at, reminder_status, shares, revision, created_at, updated_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`,
		note.OwnerID, note.Title, note.Content, note.Tags, note.Pinned, note.Archived, attachments,
		note.Reminder.DueAt, string(note.Reminder.Status), shares, note.Revision, note.CreatedAt, note.UpdatedAt,
	).Scan(&noteID)
	if err != nil {
		if code := pgErrorCode(err); code == pgCodeForeignKeyFailed || code == pgCodeInvalidText {
			log.Debug(ctx, "note owner not found", zap.String("ownerID", note.OwnerID))
			return "", entities.ErrUserNotFound
		}
		log.Error(ctx, errCreateNote, zap.Error(err))
		return "", fmt.Errorf("%s: %w", errCreateNote, err)
	}

	log.Debug(ctx, "note created", zap.String("noteID", noteID))
	return noteID, nil
}

// GetByID получает заметку по ID.
func (r *NoteRepository) GetByID(ctx context.Context, noteID string) (*entities.Note, error) {
	log := logger.Log(ctx).With(zap.String("method", "NoteRepository.GetByID"))
	log.Debug(ctx, "getting note", zap.String("noteID", noteID))

	note, err := scanNote(r.pool.QueryRow(ctx,
		`SELECT `+noteColumns+` FROM notes n WHERE n.id = $1`, noteID))
	if err != nil {
		if isMissing(err) {
			log.Debug(ctx, "note not found", zap.String("noteID", noteID))
			return nil, entities.ErrNoteNotFound
		}
		log.Error(ctx, errGetNote, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", errGetNote, err)
	}
	return note, nil
}

// Mutate блокирует строку, применяет fn и сохраняет результат в одной транзакции.
// FOR NO KEY UPDATE не мешает вставке снимков, ссылающихся на заметку.
func (r *NoteRepository) Mutate(ctx context.Context, noteID string, fn repositories.MutateFunc) (*entities.Note, error) {
	log := logger.Log(ctx).With(zap.String("method", "NoteRepository.Mutate"))
	log.Debug(ctx, "mutating note", zap.String("noteID", noteID))

	var note *entities.Note
	err := runInTx(ctx, r.pool, func(tx pgx.Tx) error {
		current, err := scanNote(tx.QueryRow(ctx,
			`SELECT `+noteColumns+` FROM notes n WHERE n.id = $1 FOR NO KEY UPDATE`, noteID))
		if err != nil {
			if isMissing(err) {
				return entities.ErrNoteNotFound
			}
			return fmt.Errorf("%s: %w", errLockNote, err)
		}

		if err := fn(current); err != nil {
			return err
		}

		attachments, shares, err := encodeCollections(current)
		if err != nil {
			return fmt.Errorf("%s: %w", errEncodeNote, err)
		}

		err = tx.QueryRow(ctx,
			`UPDATE notes
             SET title = $2, content = $3, tags = $4, pinned = $5, archived = $6, attachments = $7,
                 reminder_at = $8, reminder_status = $9, shares = $10, link_token_hash = $11,
                 link_expires_at = $12, updated_at = $13, revision = revision + 1
             WHERE id = $1
             RETURNING revision`,
			current.ID, current.Title, current.Content, current.Tags, current.Pinned, current.Archived,
			attachments, current.Reminder.DueAt, string(current.Reminder.Status), shares,
			nullableString(current.Link.TokenHash), current.Link.ExpiresAt, current.UpdatedAt,
		).Scan(&current.Revision)
		if err != nil {
			return fmt.Errorf("%s: %w", errUpdateNote, err)
		}

		note = current
		return nil
	})
	if err != nil {
		if entities.KindOf(err) == entities.KindInternal {
			log.Error(ctx, errUpdateNote, zap.String("noteID", noteID), zap.Error(err))
		}
		return nil, err
	}

	log.Debug(ctx, "note mutated", zap.String("noteID", noteID), zap.Int64("revision", note.Revision))
	return note, nil
}

// Delete удаляет заметку. Снимки удаляются каскадом.
func (r *NoteRepository) Delete(ctx context.Context, noteID string) error {
	log := logger.Log(ctx).With(zap.String("method", "NoteRepository.Delete"))
	log.Debug(ctx, "deleting note", zap.String("noteID", noteID))

	result, err := r.pool.Exec(ctx, `DELETE FROM notes WHERE id = $1`, noteID)
	if err != nil {
		if isMissing(err) {
			return entities.ErrNoteNotFound
		}
		log.Error(ctx, errDeleteNote, zap.Error(err))
		return fmt.Errorf("%s: %w", errDeleteNote, err)
	}

	if result.RowsAffected() == 0 {
		log.Debug(ctx, "note not found", zap.String("noteID", noteID))
		return entities.ErrNoteNotFound
	}
	return nil
}

// ListByOwner получает заметки владельца с фильтрами и пагинацией.
// Закрепленные идут первыми, затем по времени изменения.
func (r *NoteRepository) ListByOwner(ctx context.Context, ownerID string, filter repositories.NoteFilter) ([]*entities.Note, int, error) {
	log := logger.Log(ctx).With(zap.String("method", "NoteRepository.ListByOwner"))
	log.Debug(ctx, "listing notes", zap.String("ownerID", ownerID),
		zap.Int("limit", filter.Limit), zap.Int("offset", filter.Offset))

	where, args := ownerFilter(ownerID, filter)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notes n WHERE `+where, args...).Scan(&total); err != nil {
		if isMissing(err) {
			return []*entities.Note{}, 0, nil
		}
		log.Error(ctx, errCountNotes, zap.Error(err))
		return nil, 0, fmt.Errorf("%s: %w", errCountNotes, err)
	}

	query := fmt.Sprintf(`SELECT %s FROM notes n WHERE %s
         ORDER BY n.pinned DESC, n.updated_at DESC
         LIMIT $%d OFFSET $%d`, noteColumns, where, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		log.Error(ctx, errListNotes, zap.Error(err))
		return nil, 0, fmt.Errorf("%s: %w", errListNotes, err)
	}
	defer rows.Close()

	notes, err := collectNotes(rows)
	if err != nil {
		log.Error(ctx, errListNotes, zap.Error(err))
		return nil, 0, err
	}
	return notes, total, nil
}

func ownerFilter(ownerID string, filter repositories.NoteFilter) (string, []interface{}) {
	conds := []string{"n.owner_id = $1"}
	args := []interface{}{ownerID}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.Archived != nil {
		add("n.archived = $%d", *filter.Archived)
	}
	if filter.Pinned != nil {
		add("n.pinned = $%d", *filter.Pinned)
	}
	if filter.Tag != "" {
		add("$%d = ANY(n.tags)", filter.Tag)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		add("(n.title ILIKE $%[1]d OR n.content ILIKE $%[1]d)", "%"+escapeLike(q)+"%")
	}
	return strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ListShared получает заметки, где у пользователя есть приглашение в статусе status,
// вместе с данными владельца.
func (r *NoteRepository) ListShared(ctx context.Context, userID string, status entities.GrantStatus) ([]repositories.SharedNote, error) {
	log := logger.Log(ctx).With(zap.String("method", "NoteRepository.ListShared"))
	log.Debug(ctx, "listing shared notes", zap.String("userID", userID), zap.String("status", string(status)))

	containment, err := json.Marshal([]map[string]string{{"grantee_id": userID, "status": string(status)}})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errListShared, err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+noteColumns+`, u.id, u.email, u.username
         FROM notes n
         JOIN users u ON u.id = n.owner_id
         WHERE n.shares @> $1::jsonb
         ORDER BY n.updated_at DESC`, containment)
	if err != nil {
		log.Error(ctx, errListShared, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", errListShared, err)
	}
	defer rows.Close()

	shared := make([]repositories.SharedNote, 0)
	for rows.Next() {
		var owner entities.User
		note, err := scanNote(rows, &owner.ID, &owner.Email, &owner.Username)
		if err != nil {
			log.Error(ctx, errScanNote, zap.Error(err))
			return nil, fmt.Errorf("%s: %w", errScanNote, err)
		}
		grant, ok := note.GrantFor(userID)
		if !ok || grant.Status != status {
			continue
		}
		shared = append(shared, repositories.SharedNote{Note: note, Owner: owner, Grant: grant})
	}
	if err := rows.Err(); err != nil {
		log.Error(ctx, errIterateNotes, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", errIterateNotes, err)
	}
	return shared, nil
}

// FindByLinkHash ищет заметку по хешу токена публичной ссылки.
func (r *NoteRepository) FindByLinkHash(ctx context.Context, tokenHash string) (*entities.Note, error) {
	log := logger.Log(ctx).With(zap.String("method", "NoteRepository.FindByLinkHash"))

	note, err := scanNote(r.pool.QueryRow(ctx,
		`SELECT `+noteColumns+` FROM notes n WHERE n.link_token_hash = $1`, tokenHash))
	if err != nil {
		if isMissing(err) {
			log.Debug(ctx, "link not found")
			return nil, entities.ErrLinkNotFound
		}
		log.Error(ctx, errFindByLinkHash, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", errFindByLinkHash, err)
	}
	return note, nil
}

// LinkRevision проверяет, что хеш принадлежит действующей ссылке, и возвращает revision заметки.
func (r *NoteRepository) LinkRevision(ctx context.Context, tokenHash string) (int64, error) {
	log := logger.Log(ctx).With(zap.String("method", "NoteRepository.LinkRevision"))

	var revision int64
	err := r.pool.QueryRow(ctx,
		`SELECT revision FROM notes WHERE link_token_hash = $1`, tokenHash).Scan(&revision)
	if err != nil {
		if isMissing(err) {
			return 0, entities.ErrLinkNotFound
		}
		log.Error(ctx, errLinkRevision, zap.Error(err))
		return 0, fmt.Errorf("%s: %w", errLinkRevision, err)
	}
	return revision, nil
}

// ListDueReminders возвращает до limit заметок с наступившим pending-напоминанием,
// самые старые первыми.
func (r *NoteRepository) ListDueReminders(ctx context.Context, now time.Time, limit int) ([]*entities.Note, error) {
	log := logger.Log(ctx).With(zap.String("method", "NoteRepository.ListDueReminders"))

	rows, err := r.pool.Query(ctx,
		`SELECT `+noteColumns+` FROM notes n
         WHERE n.reminder_status = 'pending' AND n.reminder_at <= $1
         ORDER BY n.reminder_at ASC
         LIMIT $2`, now, limit)
	if err != nil {
		log.Error(ctx, errListReminders, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", errListReminders, err)
	}
	defer rows.Close()

	notes, err := collectNotes(rows)
	if err != nil {
		log.Error(ctx, errListReminders, zap.Error(err))
		return nil, err
	}
	return notes, nil
}

func collectNotes(rows pgx.Rows) ([]*entities.Note, error) {
	notes := make([]*entities.Note, 0)
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errScanNote, err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", errIterateNotes, err)
	}
	return notes, nil
}

// scanNote читает колонки noteColumns и, при необходимости, дополнительные поля extra.
func scanNote(row pgx.Row, extra ...interface{}) (*entities.Note, error) {
	var (
		note        entities.Note
		attachments []byte
		shares      []byte
		status      string
		linkHash    *string
	)

	dest := []interface{}{
		&note.ID, &note.OwnerID, &note.Title, &note.Content, &note.Tags, &note.Pinned, &note.Archived,
		&attachments, &note.Reminder.DueAt, &status, &shares, &linkHash, &note.Link.ExpiresAt,
		&note.Revision, &note.CreatedAt, &note.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	note.Reminder.Status = entities.ReminderStatus(status)
	if linkHash != nil {
		note.Link.TokenHash = *linkHash
	}
	if note.Tags == nil {
		note.Tags = []string{}
	}
	if err := decodeJSONList(attachments, &note.Attachments); err != nil {
		return nil, fmt.Errorf("decode attachments: %w", err)
	}
	if err := decodeJSONList(shares, &note.Shares); err != nil {
		return nil, fmt.Errorf("decode shares: %w", err)
	}
	if note.Attachments == nil {
		note.Attachments = []entities.Attachment{}
	}
	if note.Shares == nil {
		note.Shares = []entities.ShareGrant{}
	}
	return &note, nil
}

func decodeJSONList(raw []byte, v interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func encodeCollections(note *entities.Note) ([]byte, []byte, error) {
	attachments := note.Attachments
	if attachments == nil {
		attachments = []entities.Attachment{}
	}
	shares := note.Shares
	if shares == nil {
		shares = []entities.ShareGrant{}
	}

	a, err := json.Marshal(attachments)
	if err != nil {
		return nil, nil, err
	}
	s, err := json.Marshal(shares)
	if err != nil {
		return nil, nil, err
	}
	return a, s, nil
}
