package users

import (
	"context"

	"github.com/dmitrijs2005/addressbook/internal/server/models"
)

// Repository is the user directory.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetByEmailForUpdate locks the row until the surrounding transaction ends.
	GetByEmailForUpdate(ctx context.Context, email string) (*models.User, error)
	// UpdateRefreshToken overwrites the stored token; nil clears it.
	UpdateRefreshToken(ctx context.Context, userID int64, token *string) error
	ConfirmEmail(ctx context.Context, email string) error
	UpdateAvatar(ctx context.Context, email, url string) (*models.User, error)
}
