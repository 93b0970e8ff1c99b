package contacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/addressbook/internal/dbx"
	"github.com/dmitrijs2005/addressbook/internal/server/models"
)

const contactColumns = `id, first_name, last_name, email, phone, birthday, user_id`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanContact(row scanner) (*models.Contact, error) {
	c := &models.Contact{}
	var firstName, lastName, email, phone, birthday sql.NullString
	if err := row.Scan(&c.ID, &firstName, &lastName, &email, &phone, &birthday, &c.UserID); err != nil {
		return nil, err
	}
	c.FirstName = firstName.String
	c.LastName = lastName.String
	c.Email = email.String
	c.Phone = phone.String
	c.Birthday = birthday.String
	return c, nil
}

// scanOne maps a missing row to (nil, nil).
func scanOne(row *sql.Row) (*models.Contact, error) {
	c, err := scanContact(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) queryMany(ctx context.Context, query string, args ...any) ([]models.Contact, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) List(ctx context.Context, userID int64) ([]models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE user_id = $1 ORDER BY id`
	return r.queryMany(ctx, query, userID)
}

func (r *PostgresRepository) Get(ctx context.Context, userID, contactID int64) (*models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1 AND user_id = $2`
	return scanOne(r.db.QueryRowContext(ctx, query, contactID, userID))
}

// Create inserts the contact. A duplicate (first_name, last_name) for the
// same owner surfaces as the wrapped driver error.
func (r *PostgresRepository) Create(ctx context.Context, c *models.Contact) (*models.Contact, error) {
	query :=
		`INSERT INTO contacts (first_name, last_name, email, phone, birthday, user_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING ` + contactColumns

	created, err := scanContact(r.db.QueryRowContext(ctx, query,
		c.FirstName, c.LastName, c.Email, c.Phone, c.Birthday, c.UserID))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return created, nil
}

func (r *PostgresRepository) Update(ctx context.Context, c *models.Contact) (*models.Contact, error) {
	query :=
		`UPDATE contacts
		 SET first_name = $1, last_name = $2, email = $3, phone = $4, birthday = $5
		 WHERE id = $6 AND user_id = $7
		 RETURNING ` + contactColumns

	return scanOne(r.db.QueryRowContext(ctx, query,
		c.FirstName, c.LastName, c.Email, c.Phone, c.Birthday, c.ID, c.UserID))
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, contactID int64) (*models.Contact, error) {
	query := `DELETE FROM contacts WHERE id = $1 AND user_id = $2 RETURNING ` + contactColumns
	return scanOne(r.db.QueryRowContext(ctx, query, contactID, userID))
}

// Search matches query as a substring (LIKE, case-sensitive) of first name,
// last name or email. Wildcards in query are not escaped.
func (r *PostgresRepository) Search(ctx context.Context, userID int64, query string) ([]models.Contact, error) {
	q :=
		`SELECT ` + contactColumns + ` FROM contacts
		 WHERE user_id = $1
		   AND (first_name LIKE $2 OR last_name LIKE $2 OR email LIKE $2)
		 ORDER BY id`
	return r.queryMany(ctx, q, userID, "%"+query+"%")
}
