package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Dosada05/tournament-registration/models"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserEmailConflict    = errors.New("user email conflict")
	ErrUserUsernameConflict = errors.New("user username conflict")
)

// UserRepository определяет интерфейс для работы с пользователями.
type UserRepository interface {
	// Create сохраняет пользователя. Занятый email или username дают ошибку конфликта.
	Create(ctx context.Context, user *models.User) error
	// GetByID возвращает пользователя по ID.
	GetByID(ctx context.Context, id int) (*models.User, error)
	// GetByEmail возвращает пользователя по email.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// UpdateLastLogin записывает время последнего входа.
	UpdateLastLogin(ctx context.Context, id int, at time.Time) error
}

type postgresUserRepository struct {
	db *sql.DB
}

// NewPostgresUserRepository создаёт репозиторий пользователей.
func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

func (r *postgresUserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, email, password_hash, first_name, last_name, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Role,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err, "users_email_key"):
			return ErrUserEmailConflict
		case isUniqueViolation(err, "users_username_key"):
			return ErrUserUsernameConflict
		}
		return err
	}
	return nil
}

const userSelect = `
	SELECT id, username, email, password_hash, first_name, last_name, role, last_login_at, created_at
	FROM users`

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user        models.User
		username    sql.NullString
		firstName   sql.NullString
		lastName    sql.NullString
		lastLoginAt sql.NullTime
	)
	err := row.Scan(
		&user.ID, &username, &user.Email, &user.PasswordHash, &firstName, &lastName,
		&user.Role, &lastLoginAt, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	user.Username = nullString(username)
	user.FirstName = nullString(firstName)
	user.LastName = nullString(lastName)
	if lastLoginAt.Valid {
		v := lastLoginAt.Time
		user.LastLoginAt = &v
	}
	return &user, nil
}

func (r *postgresUserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, userSelect+` WHERE id = $1`, id))
}

func (r *postgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, userSelect+` WHERE email = $1`, email))
}

func (r *postgresUserRepository) UpdateLastLogin(ctx context.Context, id int, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrUserNotFound)
}
