package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/addressbook/internal/common"
	"github.com/dmitrijs2005/addressbook/internal/dbx"
	"github.com/dmitrijs2005/addressbook/internal/server/models"
)

const userColumns = `id, username, email, password, created_at, avatar, refresh_token, confirmed`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	user := &models.User{}
	var avatar, refreshToken sql.NullString
	err := row.Scan(&user.ID, &user.UserName, &user.Email, &user.Password,
		&user.CreatedAt, &avatar, &refreshToken, &user.Confirmed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if avatar.Valid {
		user.Avatar = &avatar.String
	}
	if refreshToken.Valid {
		user.RefreshToken = &refreshToken.String
	}
	return user, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (username, email, password, avatar)
		 VALUES ($1, $2, $3, $4)
		 RETURNING ` + userColumns

	return scanUser(r.db.QueryRowContext(ctx, query,
		user.UserName, user.Email, user.Password, user.Avatar))
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) GetByEmailForUpdate(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 FOR UPDATE`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) UpdateRefreshToken(ctx context.Context, userID int64, token *string) error {
	query := `UPDATE users SET refresh_token = $1 WHERE id = $2`
	return r.execOne(ctx, query, token, userID)
}

func (r *PostgresRepository) ConfirmEmail(ctx context.Context, email string) error {
	query := `UPDATE users SET confirmed = true WHERE email = $1`
	return r.execOne(ctx, query, email)
}

func (r *PostgresRepository) UpdateAvatar(ctx context.Context, email, url string) (*models.User, error) {
	query := `UPDATE users SET avatar = $1 WHERE email = $2 RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, query, url, email))
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
