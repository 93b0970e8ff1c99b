package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dmitrijs2005/addressbook/internal/server/models"
	"github.com/dmitrijs2005/addressbook/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/addressbook/internal/timex"
)

// AvatarStore normalizes and stores a profile picture under name and
// returns its public URL.
type AvatarStore interface {
	PutAvatar(ctx context.Context, name string, image io.Reader) (string, error)
}

type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	avatars     AvatarStore
	clock       func() time.Time
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, avatars AvatarStore) *UserService {
	return &UserService{db: db, repomanager: m, avatars: avatars, clock: timex.UTCNow}
}

// UpdateAvatar replaces the user's avatar. Pictures are keyed by user id since
// user names are not unique. The stored URL carries a version query so clients
// do not keep showing a cached picture.
func (s *UserService) UpdateAvatar(ctx context.Context, user *models.User, image io.Reader) (*models.User, error) {
	url, err := s.avatars.PutAvatar(ctx, strconv.FormatInt(user.ID, 10), image)
	if err != nil {
		return nil, fmt.Errorf("error storing avatar: %w", err)
	}
	url = fmt.Sprintf("%s?v=%d", url, s.clock().Unix())

	updated, err := s.repomanager.Users(s.db).UpdateAvatar(ctx, user.Email, url)
	if err != nil {
		return nil, fmt.Errorf("error updating avatar: %w", err)
	}
	return updated, nil
}
