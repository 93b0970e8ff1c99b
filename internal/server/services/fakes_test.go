package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/addressbook/internal/common"
	"github.com/dmitrijs2005/addressbook/internal/dbx"
	"github.com/dmitrijs2005/addressbook/internal/server/models"
	"github.com/dmitrijs2005/addressbook/internal/server/repositories/contacts"
	"github.com/dmitrijs2005/addressbook/internal/server/repositories/users"
)

var errBoom = errors.New("boom")

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// fakeUsersRepo keeps users in memory, keyed by email.
type fakeUsersRepo struct {
	mu     sync.Mutex
	byMail map[string]*models.User
	nextID int64

	getErr    error
	createErr error
	updateErr error
	locked    int
}

func newFakeUsersRepo(us ...*models.User) *fakeUsersRepo {
	r := &fakeUsersRepo{byMail: map[string]*models.User{}}
	for _, u := range us {
		r.nextID++
		if u.ID == 0 {
			u.ID = r.nextID
		}
		r.byMail[u.Email] = u
	}
	return r
}

func (r *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.nextID++
	cp := *u
	cp.ID = r.nextID
	r.byMail[u.Email] = &cp
	out := cp
	return &out, nil
}

func (r *fakeUsersRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	u, ok := r.byMail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *u
	return &out, nil
}

func (r *fakeUsersRepo) GetByEmailForUpdate(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	r.locked++
	r.mu.Unlock()
	return r.GetByEmail(ctx, email)
}

func (r *fakeUsersRepo) find(id int64) *models.User {
	for _, u := range r.byMail {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (r *fakeUsersRepo) UpdateRefreshToken(_ context.Context, id int64, token *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	u := r.find(id)
	if u == nil {
		return common.ErrorNotFound
	}
	if token == nil {
		u.RefreshToken = nil
	} else {
		t := *token
		u.RefreshToken = &t
	}
	return nil
}

func (r *fakeUsersRepo) ConfirmEmail(_ context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	u, ok := r.byMail[email]
	if !ok {
		return common.ErrorNotFound
	}
	u.Confirmed = true
	return nil
}

func (r *fakeUsersRepo) UpdateAvatar(_ context.Context, email, url string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	u, ok := r.byMail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	u.Avatar = &url
	out := *u
	return &out, nil
}

func (r *fakeUsersRepo) stored(email string) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byMail[email]
}

// fakeContactsRepo is an owner-aware in-memory store.
type fakeContactsRepo struct {
	items  []models.Contact
	nextID int64
	err    error
}

func (r *fakeContactsRepo) List(_ context.Context, userID int64) ([]models.Contact, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make([]models.Contact, 0)
	for _, c := range r.items {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeContactsRepo) Get(_ context.Context, userID, id int64) (*models.Contact, error) {
	for _, c := range r.items {
		if c.ID == id && c.UserID == userID {
			out := c
			return &out, nil
		}
	}
	return nil, r.err
}

func (r *fakeContactsRepo) Create(_ context.Context, c *models.Contact) (*models.Contact, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.nextID++
	cp := *c
	cp.ID = r.nextID
	r.items = append(r.items, cp)
	return &cp, nil
}

func (r *fakeContactsRepo) Update(_ context.Context, c *models.Contact) (*models.Contact, error) {
	for i := range r.items {
		if r.items[i].ID == c.ID && r.items[i].UserID == c.UserID {
			r.items[i] = *c
			out := *c
			return &out, nil
		}
	}
	return nil, nil
}

func (r *fakeContactsRepo) Delete(_ context.Context, userID, id int64) (*models.Contact, error) {
	for i, c := range r.items {
		if c.ID == id && c.UserID == userID {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeContactsRepo) Search(ctx context.Context, userID int64, query string) ([]models.Contact, error) {
	return r.List(ctx, userID)
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	c *fakeContactsRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository             { return m.u }
func (m *fakeRepoManager) Contacts(dbx.DBTX) contacts.Repository       { return m.c }

type fakeMailer struct {
	mu   sync.Mutex
	sent []models.ConfirmationMail
	err  error
}

func (f *fakeMailer) SendConfirmation(_ context.Context, m models.ConfirmationMail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m)
	return nil
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeAvatarStore struct {
	name  string
	data  []byte
	names []string
	url  string
	err  error
}

func (f *fakeAvatarStore) PutAvatar(_ context.Context, name string, r io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.name, f.data = name, b
	f.names = append(f.names, name)
	return f.url, nil
}
