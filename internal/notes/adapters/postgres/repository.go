package postgres

import (
	"notekeeper/internal/notes/ports/repositories"
	"notekeeper/internal/notes/ports/services"
)

// RepositoryFactory создает все необходимые репозитории для работы с PostgreSQL.
type RepositoryFactory struct {
	noteRepo    repositories.NoteRepository
	versionRepo repositories.VersionRepository
	users       services.UserDirectory
}

// NewRepositoryFactory создает новую фабрику репозиториев.
func NewRepositoryFactory(pool PgxPoolInterface) *RepositoryFactory {
	return &RepositoryFactory{
		noteRepo:    NewNoteRepository(pool),
		versionRepo: NewVersionRepository(pool),
		users:       NewUserDirectory(pool),
	}
}

// NoteRepository возвращает репозиторий заметок.
func (f *RepositoryFactory) NoteRepository() repositories.NoteRepository {
	return f.noteRepo
}

// VersionRepository возвращает репозиторий снимков.
func (f *RepositoryFactory) VersionRepository() repositories.VersionRepository {
	return f.versionRepo
}

// UserDirectory возвращает справочник пользователей.
func (f *RepositoryFactory) UserDirectory() services.UserDirectory {
	return f.users
}
