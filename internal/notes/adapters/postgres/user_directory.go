package postgres

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"notekeeper/internal/notes/domain/entities"
	"notekeeper/internal/notes/ports/services"
	"notekeeper/pkg/logger"
)

const errFindUser = "failed to find user"

// UserDirectory реализует services.UserDirectory поверх таблицы users.
type UserDirectory struct {
	pool PgxPoolInterface
}

// NewUserDirectory создает справочник пользователей.
func NewUserDirectory(pool PgxPoolInterface) services.UserDirectory {
	return &UserDirectory{pool: pool}
}

// FindByEmail ищет пользователя по email без учета регистра.
func (d *UserDirectory) FindByEmail(ctx context.Context, email string) (*entities.User, error) {
	log := logger.Log(ctx).With(zap.String("repository", "user"), zap.String("method", "FindByEmail"))

	var user entities.User
	err := d.pool.QueryRow(ctx,
		`SELECT id, email, username FROM users WHERE lower(email) = lower($1)`, email,
	).Scan(&user.ID, &user.Email, &user.Username)
	if err != nil {
		if isMissing(err) {
			log.Debug(ctx, "user not found by email")
			return nil, entities.ErrUserNotFound
		}
		log.Error(ctx, errFindUser, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", errFindUser, err)
	}
	return &user, nil
}

// FindByID ищет пользователя по id.
func (d *UserDirectory) FindByID(ctx context.Context, userID string) (*entities.User, error) {
	log := logger.Log(ctx).With(zap.String("repository", "user"), zap.String("method", "FindByID"))

	var user entities.User
	err := d.pool.QueryRow(ctx,
		`SELECT id, email, username FROM users WHERE id = $1`, userID,
	).Scan(&user.ID, &user.Email, &user.Username)
	if err != nil {
		if isMissing(err) {
			log.Debug(ctx, "user not found", zap.String("userID", userID))
			return nil, entities.ErrUserNotFound
		}
		log.Error(ctx, errFindUser, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", errFindUser, err)
	}
	return &user, nil
}
