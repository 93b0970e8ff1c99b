package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/addressbook/internal/logging"
	"github.com/dmitrijs2005/addressbook/internal/server/models"
)

type fakeSendClient struct {
	got  *mail.SGMailV3
	resp *rest.Response
	err  error
}

func (f *fakeSendClient) SendWithContext(_ context.Context, m *mail.SGMailV3) (*rest.Response, error) {
	f.got = m
	return f.resp, f.err
}

func newMailerWithFake(t *testing.T, fc *fakeSendClient) *SendGridMailer {
	t.Helper()
	orig := newSendClient
	t.Cleanup(func() { newSendClient = orig })

	var gotKey string
	newSendClient = func(apiKey string) sendClient {
		gotKey = apiKey
		return fc
	}
	m := NewSendGridMailer("SG.key", "noreply@ab.local", "Address Book", logging.Discard())
	require.Equal(t, "SG.key", gotKey)
	return m
}

func TestSendGridMailer_Deliver(t *testing.T) {
	fc := &fakeSendClient{resp: &rest.Response{StatusCode: 202}}
	m := newMailerWithFake(t, fc)

	err := m.Deliver(context.Background(), models.ConfirmationMail{
		To: "ann@example.com", UserName: "ann", Link: "http://x/api/auth/confirmed_email/tok",
	})
	require.NoError(t, err)

	require.NotNil(t, fc.got)
	assert.Equal(t, confirmationSubject, fc.got.Subject)
	assert.Equal(t, "noreply@ab.local", fc.got.From.Address)
	require.Len(t, fc.got.Personalizations, 1)
	require.Len(t, fc.got.Personalizations[0].To, 1)
	assert.Equal(t, "ann@example.com", fc.got.Personalizations[0].To[0].Address)
	require.Len(t, fc.got.Content, 2)
	assert.Contains(t, fc.got.Content[0].Value, "http://x/api/auth/confirmed_email/tok")
}

func TestSendGridMailer_Errors(t *testing.T) {
	cm := models.ConfirmationMail{To: "a@b.c", Link: "l"}

	m := newMailerWithFake(t, &fakeSendClient{err: errors.New("dial")})
	assert.ErrorContains(t, m.Deliver(context.Background(), cm), "dial")

	m = newMailerWithFake(t, &fakeSendClient{resp: &rest.Response{StatusCode: 401, Body: "bad key"}})
	assert.ErrorContains(t, m.Deliver(context.Background(), cm), "status 401")
}

func TestConfirmationBodies_EscapesHTML(t *testing.T) {
	_, h := confirmationBodies(models.ConfirmationMail{UserName: "<b>x</b>", Link: `http://x/?a="1"`})
	assert.NotContains(t, h, "<b>x</b>")
	assert.Contains(t, h, "&lt;b&gt;")
}

type recordingDeliverer struct {
	mu   sync.Mutex
	got  []string
	fail bool
	done chan struct{}
}

func (r *recordingDeliverer) Deliver(_ context.Context, m models.ConfirmationMail) error {
	r.mu.Lock()
	r.got = append(r.got, m.To)
	r.mu.Unlock()
	if r.done != nil {
		r.done <- struct{}{}
	}
	if r.fail {
		return errors.New("nope")
	}
	return nil
}

func (r *recordingDeliverer) recipients() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.got...)
}

func TestQueue_DeliversInOrder(t *testing.T) {
	d := &recordingDeliverer{done: make(chan struct{}, 4)}
	q := NewQueue(4, d, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	for _, to := range []string{"a", "b", "c"} {
		require.NoError(t, q.SendConfirmation(ctx, models.ConfirmationMail{To: to}))
	}
	for i := 0; i < 3; i++ {
		select {
		case <-d.done:
		case <-time.After(2 * time.Second):
			t.Fatal("mail not delivered")
		}
	}
	assert.Equal(t, []string{"a", "b", "c"}, d.recipients())
}

func TestQueue_FullQueueDrops(t *testing.T) {
	q := NewQueue(1, &recordingDeliverer{}, logging.Discard())

	require.NoError(t, q.SendConfirmation(context.Background(), models.ConfirmationMail{To: "a"}))
	assert.ErrorIs(t, q.SendConfirmation(context.Background(), models.ConfirmationMail{To: "b"}), ErrQueueFull)
}

func TestQueue_FlushesOnShutdown(t *testing.T) {
	d := &recordingDeliverer{fail: true}
	q := NewQueue(3, d, logging.Discard())

	for _, to := range []string{"a", "b"} {
		require.NoError(t, q.SendConfirmation(context.Background(), models.ConfirmationMail{To: to}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	finished := make(chan struct{})
	go func() {
		q.Run(ctx)
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.ElementsMatch(t, []string{"a", "b"}, d.recipients())
}

type gatedDeliverer struct {
	started chan struct{}
	release chan struct{}
	mu      sync.Mutex
	errs    []error
}

func (g *gatedDeliverer) Deliver(ctx context.Context, _ models.ConfirmationMail) error {
	g.started <- struct{}{}
	<-g.release
	g.mu.Lock()
	g.errs = append(g.errs, ctx.Err())
	g.mu.Unlock()
	return nil
}

func TestQueue_InFlightMailSurvivesCancel(t *testing.T) {
	g := &gatedDeliverer{started: make(chan struct{}, 2), release: make(chan struct{})}
	q := NewQueue(4, g, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		q.Run(ctx)
		close(finished)
	}()

	require.NoError(t, q.SendConfirmation(ctx, models.ConfirmationMail{To: "a"}))
	select {
	case <-g.started:
	case <-time.After(2 * time.Second):
		t.Fatal("delivery did not start")
	}

	// cancel while "a" is being sent, then enqueue one more
	cancel()
	require.NoError(t, q.SendConfirmation(ctx, models.ConfirmationMail{To: "b"}))
	close(g.release)

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	assert.Equal(t, []error{nil, nil}, g.errs)
}

func TestLogMailer(t *testing.T) {
	assert.NoError(t, NewLogMailer(logging.Discard()).Deliver(context.Background(), models.ConfirmationMail{To: "a"}))
}
