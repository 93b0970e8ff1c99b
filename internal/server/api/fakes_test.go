package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/addressbook/internal/common"
	"github.com/dmitrijs2005/addressbook/internal/logging"
	"github.com/dmitrijs2005/addressbook/internal/server/models"
	"github.com/dmitrijs2005/addressbook/internal/server/services"
)

const validToken = "good-access"

var t0 = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

// ---- fakes ----

type fakeAuth struct {
	user *models.User

	signupIn   services.SignupInput
	signupBase string
	signupErr  error

	loginEmail string
	loginResp  *services.TokenPair
	loginErr   error

	refreshToken string
	refreshResp  *services.TokenPair
	refreshErr   error

	confirmToken  string
	confirmStatus services.ConfirmationStatus
	confirmErr    error

	requestBase   string
	requestStatus services.ConfirmationStatus
	requestErr    error
}

func (f *fakeAuth) Signup(_ context.Context, in services.SignupInput, baseURL string) (*models.User, error) {
	f.signupIn, f.signupBase = in, baseURL
	if f.signupErr != nil {
		return nil, f.signupErr
	}
	avatar := "https://www.gravatar.com/avatar/x"
	return &models.User{ID: 7, UserName: in.UserName, Email: in.Email, CreatedAt: t0, Avatar: &avatar}, nil
}

func (f *fakeAuth) Login(_ context.Context, email, _ string) (*services.TokenPair, error) {
	f.loginEmail = email
	return f.loginResp, f.loginErr
}

func (f *fakeAuth) RefreshSession(_ context.Context, token string) (*services.TokenPair, error) {
	f.refreshToken = token
	return f.refreshResp, f.refreshErr
}

func (f *fakeAuth) ConfirmEmail(_ context.Context, token string) (services.ConfirmationStatus, error) {
	f.confirmToken = token
	return f.confirmStatus, f.confirmErr
}

func (f *fakeAuth) RequestConfirmation(_ context.Context, _, baseURL string) (services.ConfirmationStatus, error) {
	f.requestBase = baseURL
	return f.requestStatus, f.requestErr
}

func (f *fakeAuth) CurrentUser(_ context.Context, token string) (*models.User, error) {
	if token != validToken || f.user == nil {
		return nil, common.ErrorUnauthenticated
	}
	return f.user, nil
}

type fakeContacts struct {
	byID      map[int64]*models.Contact
	created   []models.Contact
	createErr error
	listErr   error
	search    []models.Contact
	lastQuery string
	upcoming  []models.Contact
}

func newFakeContacts(cs ...models.Contact) *fakeContacts {
	f := &fakeContacts{byID: map[int64]*models.Contact{}}
	for i := range cs {
		c := cs[i]
		f.byID[c.ID] = &c
	}
	return f
}

func (f *fakeContacts) owned(userID, id int64) *models.Contact {
	c, ok := f.byID[id]
	if !ok || c.UserID != userID {
		return nil
	}
	return c
}

func (f *fakeContacts) List(_ context.Context, userID int64) ([]models.Contact, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []models.Contact{}
	for _, c := range f.byID {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeContacts) Get(_ context.Context, userID, id int64) (*models.Contact, error) {
	return f.owned(userID, id), nil
}

func (f *fakeContacts) Create(_ context.Context, userID int64, in models.Contact) (*models.Contact, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	in.UserID = userID
	in.ID = int64(100 + len(f.created))
	f.created = append(f.created, in)
	return &in, nil
}

func (f *fakeContacts) Update(_ context.Context, userID, id int64, in models.Contact) (*models.Contact, error) {
	if f.owned(userID, id) == nil {
		return nil, nil
	}
	in.ID, in.UserID = id, userID
	f.byID[id] = &in
	return &in, nil
}

func (f *fakeContacts) Delete(_ context.Context, userID, id int64) (*models.Contact, error) {
	c := f.owned(userID, id)
	if c != nil {
		delete(f.byID, id)
	}
	return c, nil
}

func (f *fakeContacts) Search(_ context.Context, _ int64, query string) ([]models.Contact, error) {
	f.lastQuery = query
	return f.search, nil
}

func (f *fakeContacts) UpcomingBirthdays(context.Context, int64) ([]models.Contact, error) {
	return f.upcoming, nil
}

type fakeUsers struct {
	got []byte
	url string
	err error
}

func (f *fakeUsers) UpdateAvatar(_ context.Context, user *models.User, image io.Reader) (*models.User, error) {
	b, err := io.ReadAll(image)
	if err != nil {
		return nil, err
	}
	f.got = b
	if f.err != nil {
		return nil, f.err
	}
	u := *user
	u.Avatar = &f.url
	return &u, nil
}

// ---- harness ----

type harness struct {
	srv      *Server
	auth     *fakeAuth
	contacts *fakeContacts
	users    *fakeUsers
}

func newHarness(t *testing.T, cs ...models.Contact) *harness {
	t.Helper()

	h := &harness{
		auth:     &fakeAuth{user: &models.User{ID: 1, UserName: "alice", Email: "alice@example.com", CreatedAt: t0, Confirmed: true}},
		contacts: newFakeContacts(cs...),
		users:    &fakeUsers{},
	}
	h.srv = NewServer(Options{Address: "127.0.0.1:0", RateLimitMax: 2, RateLimitWindow: time.Minute},
		logging.Discard(), h.auth, h.contacts, h.users)
	return h
}

func (h *harness) do(t *testing.T, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()

	resp, err := h.srv.App().Test(req, -1)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()

	var out map[string]any
	if len(body) > 0 && body[0] == '{' {
		require.NoError(t, json.Unmarshal(body, &out))
	}
	return resp, out
}

func (h *harness) doList(t *testing.T, req *http.Request) (*http.Response, []map[string]any) {
	t.Helper()

	resp, err := h.srv.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func jsonRequest(t *testing.T, method, target string, v any) *http.Request {
	t.Helper()

	b, err := json.Marshal(v)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(b))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func formRequest(method, target, form string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	return req
}

func withBearer(req *http.Request, token string) *http.Request {
	req.Header.Set(common.AuthorizationHeaderName, common.BearerScheme+" "+token)
	return req
}
