package contacts

import (
	"context"

	"github.com/dmitrijs2005/addressbook/internal/server/models"
)

// Repository stores contacts. Every method is scoped to one owner.
// Get, Update and Delete return (nil, nil) when the contact does not exist
// or belongs to someone else.
type Repository interface {
	List(ctx context.Context, userID int64) ([]models.Contact, error)
	Get(ctx context.Context, userID, contactID int64) (*models.Contact, error)
	Create(ctx context.Context, c *models.Contact) (*models.Contact, error)
	Update(ctx context.Context, c *models.Contact) (*models.Contact, error)
	Delete(ctx context.Context, userID, contactID int64) (*models.Contact, error)
	Search(ctx context.Context, userID int64, query string) ([]models.Contact, error)
}
