package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/addressbook/internal/server/models"
	"github.com/dmitrijs2005/addressbook/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/addressbook/internal/timex"
)

// ContactService is the owner-scoped contact store. Get, Update and Delete
// return (nil, nil) for a contact the owner does not have.
type ContactService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	clock       func() time.Time
}

func NewContactService(db *sql.DB, m repomanager.RepositoryManager) *ContactService {
	return &ContactService{db: db, repomanager: m, clock: timex.UTCNow}
}

func (s *ContactService) List(ctx context.Context, userID int64) ([]models.Contact, error) {
	return s.repomanager.Contacts(s.db).List(ctx, userID)
}

func (s *ContactService) Get(ctx context.Context, userID, contactID int64) (*models.Contact, error) {
	return s.repomanager.Contacts(s.db).Get(ctx, userID, contactID)
}

func (s *ContactService) Create(ctx context.Context, userID int64, in models.Contact) (*models.Contact, error) {
	in.ID = 0
	in.UserID = userID
	return s.repomanager.Contacts(s.db).Create(ctx, &in)
}

func (s *ContactService) Update(ctx context.Context, userID, contactID int64, in models.Contact) (*models.Contact, error) {
	in.ID = contactID
	in.UserID = userID
	return s.repomanager.Contacts(s.db).Update(ctx, &in)
}

func (s *ContactService) Delete(ctx context.Context, userID, contactID int64) (*models.Contact, error) {
	return s.repomanager.Contacts(s.db).Delete(ctx, userID, contactID)
}

func (s *ContactService) Search(ctx context.Context, userID int64, query string) ([]models.Contact, error) {
	return s.repomanager.Contacts(s.db).Search(ctx, userID, query)
}

func (s *ContactService) UpcomingBirthdays(ctx context.Context, userID int64) ([]models.Contact, error) {
	all, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return UpcomingBirthdays(all, s.clock()), nil
}
