package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"notekeeper/internal/notes/domain/entities"
	"notekeeper/internal/notes/ports/repositories"
	"notekeeper/pkg/logger"
)

// Константы для сообщений об ошибках.
const (
	errLockVersions    = "failed to lock note versions"
	errCountVersions   = "failed to count note versions"
	errEvictVersion    = "failed to evict oldest version"
	errInsertVersion   = "failed to insert version"
	errListVersions    = "failed to list versions"
	errGetVersion      = "failed to get version"
	errScanVersion     = "failed to scan version"
	errIterateVersions = "error iterating version rows"
)

// VersionRepository реализует интерфейс repositories.VersionRepository.
type VersionRepository struct {
	pool PgxPoolInterface
}

// NewVersionRepository создает новый репозиторий снимков.
func NewVersionRepository(pool PgxPoolInterface) repositories.VersionRepository {
	return &VersionRepository{pool: pool}
}

// Append сохраняет снимок. Вставки по одной заметке сериализуются
// транзакционной advisory-блокировкой, поэтому подсчет, вытеснение самого
// старого снимка и выбор номера выполняются атомарно.
func (r *VersionRepository) Append(ctx context.Context, version *entities.Version, maxVersions int) (*entities.Version, error) {
	log := logger.Log(ctx).With(zap.String("method", "VersionRepository.Append"))
	log.Debug(ctx, "appending version", zap.String("noteID", version.NoteID))

	saved := *version
	err := runInTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, version.NoteID); err != nil {
			return fmt.Errorf("%s: %w", errLockVersions, err)
		}

		var count, maxSequence int
		err := tx.QueryRow(ctx,
			`SELECT COUNT(*), COALESCE(MAX(sequence), 0) FROM note_versions WHERE note_id = $1`,
			version.NoteID,
		).Scan(&count, &maxSequence)
		if err != nil {
			return fmt.Errorf("%s: %w", errCountVersions, err)
		}

		if count >= maxVersions {
			_, err := tx.Exec(ctx,
				`DELETE FROM note_versions WHERE id IN (
                     SELECT id FROM note_versions WHERE note_id = $1
                     ORDER BY created_at ASC, sequence ASC
                     LIMIT $2)`,
				version.NoteID, count-maxVersions+1,
			)
			if err != nil {
				return fmt.Errorf("%s: %w", errEvictVersion, err)
			}
		}

		saved.Sequence = maxSequence + 1
		err = tx.QueryRow(ctx,
			`INSERT INTO note_versions (note_id, sequence, title, content, tags, author_id)
             VALUES ($1, $2, $3, $4, $5, $6)
             RETURNING id, created_at`,
			saved.NoteID, saved.Sequence, saved.Title, saved.Content, saved.Tags, saved.AuthorID,
		).Scan(&saved.ID, &saved.CreatedAt)
		if err != nil {
			if pgErrorCode(err) == pgCodeForeignKeyFailed {
				return entities.ErrNoteNotFound
			}
			return fmt.Errorf("%s: %w", errInsertVersion, err)
		}
		return nil
	})
	if err != nil {
		if entities.KindOf(err) == entities.KindInternal {
			log.Error(ctx, errInsertVersion, zap.String("noteID", version.NoteID), zap.Error(err))
		}
		return nil, err
	}

	log.Debug(ctx, "version appended", zap.String("noteID", saved.NoteID), zap.Int("sequence", saved.Sequence))
	return &saved, nil
}

// List возвращает краткие данные снимков, новые первыми.
func (r *VersionRepository) List(ctx context.Context, noteID string, limit int) ([]entities.VersionSummary, error) {
	log := logger.Log(ctx).With(zap.String("method", "VersionRepository.List"))

	rows, err := r.pool.Query(ctx,
		`SELECT id, sequence, title, author_id, created_at
         FROM note_versions
         WHERE note_id = $1
         ORDER BY created_at DESC, sequence DESC
         LIMIT $2`, noteID, limit)
	if err != nil {
		log.Error(ctx, errListVersions, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", errListVersions, err)
	}
	defer rows.Close()

	versions := make([]entities.VersionSummary, 0)
	for rows.Next() {
		var v entities.VersionSummary
		if err := rows.Scan(&v.ID, &v.Sequence, &v.Title, &v.AuthorID, &v.CreatedAt); err != nil {
			log.Error(ctx, errScanVersion, zap.Error(err))
			return nil, fmt.Errorf("%s: %w", errScanVersion, err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		log.Error(ctx, errIterateVersions, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", errIterateVersions, err)
	}
	return versions, nil
}

// Get возвращает снимок заметки noteID. Снимок другой заметки не находится.
func (r *VersionRepository) Get(ctx context.Context, noteID, versionID string) (*entities.Version, error) {
	log := logger.Log(ctx).With(zap.String("method", "VersionRepository.Get"))

	var v entities.Version
	err := r.pool.QueryRow(ctx,
		`SELECT id, note_id, sequence, title, content, tags, author_id, created_at
         FROM note_versions
         WHERE id = $1 AND note_id = $2`, versionID, noteID,
	).Scan(&v.ID, &v.NoteID, &v.Sequence, &v.Title, &v.Content, &v.Tags, &v.AuthorID, &v.CreatedAt)
	if err != nil {
		if isMissing(err) {
			log.Debug(ctx, "version not found", zap.String("versionID", versionID))
			return nil, entities.ErrVersionNotFound
		}
		log.Error(ctx, errGetVersion, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", errGetVersion, err)
	}
	if v.Tags == nil {
		v.Tags = []string{}
	}
	return &v, nil
}
