package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notekeeper/internal/notes/adapters/postgres"
	"notekeeper/internal/notes/domain/entities"
	"notekeeper/internal/notes/ports/repositories"
	"notekeeper/pkg/logger"
)

var errDatabaseConnection = errors.New("database connection failed")

var noteColumnNames = []string{
	"id", "owner_id", "title", "content", "tags", "pinned", "archived", "attachments",
	"reminder_at", "reminder_status", "shares", "link_token_hash", "link_expires_at",
	"revision", "created_at", "updated_at",
}

var testTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func testContext(t *testing.T) context.Context {
	t.Helper()
	testLogger, err := logger.NewLogger(logger.Development, "debug")
	require.NoError(t, err)
	return logger.NewContext(context.Background(), testLogger)
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func noteValues(id, shares string) []any {
	return []any{
		id, "owner-1", "Title", "body", []string{"go"}, false, false, []byte(`[]`),
		(*time.Time)(nil), "none", []byte(shares), (*string)(nil), (*time.Time)(nil),
		int64(1), testTime, testTime,
	}
}

func noteRows(ids ...string) *pgxmock.Rows {
	rows := pgxmock.NewRows(noteColumnNames)
	for _, id := range ids {
		rows.AddRow(noteValues(id, `[]`)...)
	}
	return rows
}

func TestNoteRepository_Create(t *testing.T) {
	ctx := testContext(t)
	note, err := entities.NewNote("owner-1", "Title", "body", []string{"go"}, testTime)
	require.NoError(t, err)

	t.Run("successful note creation", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery("INSERT INTO notes").
			WithArgs("owner-1", "Title", "body", []string{"go"}, false, false, pgxmock.AnyArg(),
				(*time.Time)(nil), "none", pgxmock.AnyArg(), int64(1), testTime, testTime).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("note-1"))

		id, err := postgres.NewNoteRepository(mock).Create(ctx, note)

		require.NoError(t, err)
		assert.Equal(t, "note-1", id)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown owner", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery("INSERT INTO notes").
			WillReturnError(&pgconn.PgError{Code: "23503"})

		id, err := postgres.NewNoteRepository(mock).Create(ctx, note)

		assert.Empty(t, id)
		require.ErrorIs(t, err, entities.ErrUserNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery("INSERT INTO notes").
			WillReturnError(errDatabaseConnection)

		_, err := postgres.NewNoteRepository(mock).Create(ctx, note)

		require.ErrorIs(t, err, errDatabaseConnection)
		assert.Contains(t, err.Error(), "failed to create note")
	})
}

func TestNoteRepository_GetByID(t *testing.T) {
	ctx := testContext(t)

	t.Run("found", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery("FROM notes n WHERE n.id = \\$1").
			WithArgs("note-1").
			WillReturnRows(noteRows("note-1"))

		note, err := postgres.NewNoteRepository(mock).GetByID(ctx, "note-1")

		require.NoError(t, err)
		assert.Equal(t, "note-1", note.ID)
		assert.Equal(t, entities.ReminderNone, note.Reminder.Status)
		assert.Empty(t, note.Shares)
		assert.False(t, note.Link.Active())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery("FROM notes n WHERE n.id = \\$1").
			WithArgs("missing").
			WillReturnError(pgx.ErrNoRows)

		note, err := postgres.NewNoteRepository(mock).GetByID(ctx, "missing")

		assert.Nil(t, note)
		require.ErrorIs(t, err, entities.ErrNoteNotFound)
	})

	t.Run("malformed id is not found", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery("FROM notes n WHERE n.id = \\$1").
			WithArgs("not-a-uuid").
			WillReturnError(&pgconn.PgError{Code: "22P02"})

		_, err := postgres.NewNoteRepository(mock).GetByID(ctx, "not-a-uuid")

		require.ErrorIs(t, err, entities.ErrNoteNotFound)
	})

	t.Run("database error", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery("FROM notes n WHERE n.id = \\$1").
			WithArgs("note-1").
			WillReturnError(errDatabaseConnection)

		_, err := postgres.NewNoteRepository(mock).GetByID(ctx, "note-1")

		require.ErrorIs(t, err, errDatabaseConnection)
		assert.Equal(t, entities.KindInternal, entities.KindOf(err))
	})
}

func TestNoteRepository_Mutate(t *testing.T) {
	ctx := testContext(t)

	t.Run("applies change and bumps revision", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery("FOR NO KEY UPDATE").
			WithArgs("note-1").
			WillReturnRows(noteRows("note-1"))
		mock.ExpectQuery("UPDATE notes").
			WithArgs("note-1", "Changed", "body", []string{"go"}, true, false, pgxmock.AnyArg(),
				(*time.Time)(nil), "none", pgxmock.AnyArg(), (*string)(nil), (*time.Time)(nil), testTime).
			WillReturnRows(pgxmock.NewRows([]string{"revision"}).AddRow(int64(2)))
		mock.ExpectCommit()

		note, err := postgres.NewNoteRepository(mock).Mutate(ctx, "note-1", func(n *entities.Note) error {
			n.Title = "Changed"
			n.Pinned = true
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, "Changed", note.Title)
		assert.Equal(t, int64(2), note.Revision)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("mutation error rolls back", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery("FOR NO KEY UPDATE").
			WithArgs("note-1").
			WillReturnRows(noteRows("note-1"))
		mock.ExpectRollback()

		note, err := postgres.NewNoteRepository(mock).Mutate(ctx, "note-1", func(*entities.Note) error {
			return entities.ErrNotOwner
		})

		assert.Nil(t, note)
		require.ErrorIs(t, err, entities.ErrNotOwner)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing note", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery("FOR NO KEY UPDATE").
			WithArgs("missing").
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectRollback()

		called := false
		_, err := postgres.NewNoteRepository(mock).Mutate(ctx, "missing", func(*entities.Note) error {
			called = true
			return nil
		})

		require.ErrorIs(t, err, entities.ErrNoteNotFound)
		assert.False(t, called)
	})

	t.Run("begin fails", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectBegin().WillReturnError(errDatabaseConnection)

		_, err := postgres.NewNoteRepository(mock).Mutate(ctx, "note-1", func(*entities.Note) error { return nil })

		require.ErrorIs(t, err, errDatabaseConnection)
		assert.Contains(t, err.Error(), "failed to begin transaction")
	})
}

func TestNoteRepository_Delete(t *testing.T) {
	ctx := testContext(t)

	t.Run("deleted", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec("DELETE FROM notes WHERE id = \\$1").
			WithArgs("note-1").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		require.NoError(t, postgres.NewNoteRepository(mock).Delete(ctx, "note-1"))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nothing deleted", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec("DELETE FROM notes WHERE id = \\$1").
			WithArgs("note-1").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		err := postgres.NewNoteRepository(mock).Delete(ctx, "note-1")
		require.ErrorIs(t, err, entities.ErrNoteNotFound)
	})
}

func TestNoteRepository_ListByOwner(t *testing.T) {
	ctx := testContext(t)
	archived := false

	mock := newMock(t)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM notes n WHERE").
		WithArgs("owner-1", false, "go", `%50\%%`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("ORDER BY n.pinned DESC, n.updated_at DESC").
		WithArgs("owner-1", false, "go", `%50\%%`, 2, 0).
		WillReturnRows(noteRows("note-1", "note-2"))

	notes, total, err := postgres.NewNoteRepository(mock).ListByOwner(ctx, "owner-1", repositories.NoteFilter{
		Archived: &archived,
		Tag:      "go",
		Query:    " 50% ",
		Limit:    2,
	})

	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, notes, 2)
	assert.Equal(t, "note-2", notes[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepository_ListShared(t *testing.T) {
	ctx := testContext(t)

	shares := `[{"grantee_id":"user-b","permission":"edit","status":"accepted","granted_at":"2025-03-01T12:00:00Z"}]`
	columns := append(append([]string{}, noteColumnNames...), "id", "email", "username")

	mock := newMock(t)
	mock.ExpectQuery("WHERE n.shares @> \\$1::jsonb").
		WithArgs([]byte(`[{"grantee_id":"user-b","status":"accepted"}]`)).
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow(append(noteValues("note-1", shares), "owner-1", "owner@example.com", "owner")...))

	shared, err := postgres.NewNoteRepository(mock).ListShared(ctx, "user-b", entities.GrantAccepted)

	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Equal(t, "owner@example.com", shared[0].Owner.Email)
	assert.Equal(t, entities.PermissionEdit, shared[0].Grant.Permission)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepository_FindByLinkHash(t *testing.T) {
	ctx := testContext(t)

	mock := newMock(t)
	mock.ExpectQuery("WHERE n.link_token_hash = \\$1").
		WithArgs("hash").
		WillReturnError(pgx.ErrNoRows)

	_, err := postgres.NewNoteRepository(mock).FindByLinkHash(ctx, "hash")
	require.ErrorIs(t, err, entities.ErrLinkNotFound)
}

func TestNoteRepository_LinkRevision(t *testing.T) {
	ctx := testContext(t)

	t.Run("current link", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery("SELECT revision FROM notes WHERE link_token_hash = \\$1").
			WithArgs("hash").
			WillReturnRows(pgxmock.NewRows([]string{"revision"}).AddRow(int64(7)))

		revision, err := postgres.NewNoteRepository(mock).LinkRevision(ctx, "hash")

		require.NoError(t, err)
		assert.Equal(t, int64(7), revision)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("replaced or revoked link", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery("SELECT revision FROM notes WHERE link_token_hash").
			WithArgs("old-hash").
			WillReturnError(pgx.ErrNoRows)

		_, err := postgres.NewNoteRepository(mock).LinkRevision(ctx, "old-hash")
		require.ErrorIs(t, err, entities.ErrLinkNotFound)
	})

	t.Run("database error", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery("SELECT revision FROM notes WHERE link_token_hash").
			WithArgs("hash").
			WillReturnError(errDatabaseConnection)

		_, err := postgres.NewNoteRepository(mock).LinkRevision(ctx, "hash")
		require.ErrorIs(t, err, errDatabaseConnection)
	})
}

func TestNoteRepository_ListDueReminders(t *testing.T) {
	ctx := testContext(t)

	mock := newMock(t)
	mock.ExpectQuery("n.reminder_status = 'pending' AND n.reminder_at <= \\$1").
		WithArgs(testTime, 50).
		WillReturnRows(noteRows("note-1"))

	notes, err := postgres.NewNoteRepository(mock).ListDueReminders(ctx, testTime, 50)

	require.NoError(t, err)
	require.Len(t, notes, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVersionRepository_Append(t *testing.T) {
	ctx := testContext(t)
	version := &entities.Version{NoteID: "note-1", Title: "T", Content: "c", Tags: []string{"go"}, AuthorID: "owner-1"}

	t.Run("evicts oldest at capacity", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec("pg_advisory_xact_lock").
			WithArgs("note-1").
			WillReturnResult(pgxmock.NewResult("SELECT", 1))
		mock.ExpectQuery("SELECT COUNT\\(\\*\\), COALESCE\\(MAX\\(sequence\\), 0\\)").
			WithArgs("note-1").
			WillReturnRows(pgxmock.NewRows([]string{"count", "max"}).AddRow(20, 25))
		mock.ExpectExec("DELETE FROM note_versions").
			WithArgs("note-1", 1).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		mock.ExpectQuery("INSERT INTO note_versions").
			WithArgs("note-1", 26, "T", "c", []string{"go"}, "owner-1").
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow("v-26", testTime))
		mock.ExpectCommit()

		saved, err := postgres.NewVersionRepository(mock).Append(ctx, version, entities.MaxVersionsPerNote)

		require.NoError(t, err)
		assert.Equal(t, 26, saved.Sequence)
		assert.Equal(t, "v-26", saved.ID)
		assert.Empty(t, version.ID, "input must not be modified")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("first snapshot starts at one", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec("pg_advisory_xact_lock").
			WithArgs("note-1").
			WillReturnResult(pgxmock.NewResult("SELECT", 1))
		mock.ExpectQuery("SELECT COUNT\\(\\*\\), COALESCE\\(MAX\\(sequence\\), 0\\)").
			WithArgs("note-1").
			WillReturnRows(pgxmock.NewRows([]string{"count", "max"}).AddRow(0, 0))
		mock.ExpectQuery("INSERT INTO note_versions").
			WithArgs("note-1", 1, "T", "c", []string{"go"}, "owner-1").
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow("v-1", testTime))
		mock.ExpectCommit()

		saved, err := postgres.NewVersionRepository(mock).Append(ctx, version, entities.MaxVersionsPerNote)

		require.NoError(t, err)
		assert.Equal(t, 1, saved.Sequence)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert failure rolls back", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec("pg_advisory_xact_lock").
			WithArgs("note-1").
			WillReturnResult(pgxmock.NewResult("SELECT", 1))
		mock.ExpectQuery("SELECT COUNT\\(\\*\\), COALESCE\\(MAX\\(sequence\\), 0\\)").
			WithArgs("note-1").
			WillReturnRows(pgxmock.NewRows([]string{"count", "max"}).AddRow(3, 3))
		mock.ExpectQuery("INSERT INTO note_versions").
			WillReturnError(errDatabaseConnection)
		mock.ExpectRollback()

		_, err := postgres.NewVersionRepository(mock).Append(ctx, version, entities.MaxVersionsPerNote)

		require.ErrorIs(t, err, errDatabaseConnection)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestVersionRepository_ListAndGet(t *testing.T) {
	ctx := testContext(t)

	t.Run("list", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery("FROM note_versions").
			WithArgs("note-1", 20).
			WillReturnRows(pgxmock.NewRows([]string{"id", "sequence", "title", "author_id", "created_at"}).
				AddRow("v-2", 2, "T2", "owner-1", testTime.Add(time.Minute)).
				AddRow("v-1", 1, "T1", "owner-1", testTime))

		versions, err := postgres.NewVersionRepository(mock).List(ctx, "note-1", 20)

		require.NoError(t, err)
		require.Len(t, versions, 2)
		assert.Equal(t, 2, versions[0].Sequence)
	})

	t.Run("version of another note", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery("WHERE id = \\$1 AND note_id = \\$2").
			WithArgs("v-1", "note-2").
			WillReturnError(pgx.ErrNoRows)

		_, err := postgres.NewVersionRepository(mock).Get(ctx, "note-2", "v-1")
		require.ErrorIs(t, err, entities.ErrVersionNotFound)
	})
}

func TestUserDirectory(t *testing.T) {
	ctx := testContext(t)

	t.Run("case-insensitive email lookup", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery("WHERE lower\\(email\\) = lower\\(\\$1\\)").
			WithArgs("bob@example.com").
			WillReturnRows(pgxmock.NewRows([]string{"id", "email", "username"}).
				AddRow("user-b", "Bob@Example.com", "bob"))

		user, err := postgres.NewUserDirectory(mock).FindByEmail(ctx, "bob@example.com")

		require.NoError(t, err)
		assert.Equal(t, "user-b", user.ID)
	})

	t.Run("unknown id", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery("FROM users WHERE id = \\$1").
			WithArgs("ghost").
			WillReturnError(pgx.ErrNoRows)

		_, err := postgres.NewUserDirectory(mock).FindByID(ctx, "ghost")
		require.ErrorIs(t, err, entities.ErrUserNotFound)
	})
}

func TestNewRepositoryFactory(t *testing.T) {
	mock := newMock(t)
	factory := postgres.NewRepositoryFactory(mock)

	assert.Implements(t, (*repositories.NoteRepository)(nil), factory.NoteRepository())
	assert.Implements(t, (*repositories.VersionRepository)(nil), factory.VersionRepository())
	assert.NotNil(t, factory.UserDirectory())
}
