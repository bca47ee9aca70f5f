package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/acme/outline-api/config"
	"github.com/acme/outline-api/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []InvitationEmail
	err  error
}

func (m *recordingMailer) SendInvitationEmail(_ context.Context, email InvitationEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, email)
	return m.err
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// blockingMailer holds every send until release is closed
type blockingMailer struct {
	release chan struct{}
}

func (m *blockingMailer) SendInvitationEmail(context.Context, InvitationEmail) error {
	<-m.release
	return nil
}

func sampleEmail() InvitationEmail {
	return InvitationEmail{
		To:               "b@x.com",
		OrganizationName: "Acme",
		InviterName:      "Alice",
		AcceptURL:        "http://localhost:3000/join-organization?token=abc",
	}
}

func TestInvitationEmail_Subject(t *testing.T) {
	assert.Equal(t, "You've been invited to join Acme on Acme Inc", sampleEmail().Subject())
}

func TestBuildInvitationMessage(t *testing.T) {
	msg, err := buildInvitationMessage("Acme Inc <no-reply@acme.test>", sampleEmail())
	require.NoError(t, err)

	assert.Equal(t, []string{"You've been invited to join Acme on Acme Inc"}, msg.GetGenHeader(mail.HeaderSubject))
	rcpts, err := msg.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"b@x.com"}, rcpts)

	_, err = buildInvitationMessage("Acme Inc <no-reply@acme.test>", InvitationEmail{To: "not an address"})
	assert.Error(t, err)
}

func TestNewMailer_LogOnlyWithoutHost(t *testing.T) {
	m, err := NewMailer(&config.Config{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.IsType(t, &LogMailer{}, m)
}

func TestLogMailer(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewLogMailer(zap.New(core))

	require.NoError(t, m.SendInvitationEmail(context.Background(), sampleEmail()))
	entries := logs.FilterMessage("invitation email").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "b@x.com", entries[0].ContextMap()["to"])
}

func TestDispatcher_DeliversAndDrains(t *testing.T) {
	mailer := &recordingMailer{}
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	d := NewDispatcher(mailer, config.NotifyConfig{Workers: 2, BufferSize: 10}, metrics, zaptest.NewLogger(t))
	require.NoError(t, d.Start())

	for i := 0; i < 5; i++ {
		require.NoError(t, d.Enqueue(sampleEmail()))
	}
	require.NoError(t, d.Stop(time.Second))

	assert.Equal(t, 5, mailer.count())
	assert.Equal(t, float64(5), testutil.ToFloat64(metrics.NotificationsTotal.WithLabelValues(StatusSent)))
}

func TestDispatcher_FailuresAreCountedNotReturned(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("relay refused")}
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	d := NewDispatcher(mailer, config.NotifyConfig{Workers: 1, BufferSize: 1}, metrics, zaptest.NewLogger(t))
	require.NoError(t, d.Start())

	require.NoError(t, d.Enqueue(sampleEmail()))
	require.NoError(t, d.Stop(time.Second))

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.NotificationsTotal.WithLabelValues(StatusFailed)))
}

func TestDispatcher_QueueFull(t *testing.T) {
	mailer := &blockingMailer{release: make(chan struct{})}
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	d := NewDispatcher(mailer, config.NotifyConfig{Workers: 1, BufferSize: 1}, metrics, zaptest.NewLogger(t))
	require.NoError(t, d.Start())

	// one email in flight, one buffered; keep enqueueing until the buffer refuses
	var err error
	for i := 0; i < 3 && err == nil; i++ {
		err = d.Enqueue(sampleEmail())
	}
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.GreaterOrEqual(t, testutil.ToFloat64(metrics.NotificationsTotal.WithLabelValues(StatusDropped)), float64(1))

	close(mailer.release)
	require.NoError(t, d.Stop(time.Second))
}

func TestDispatcher_Lifecycle(t *testing.T) {
	d := NewDispatcher(&recordingMailer{}, config.NotifyConfig{Workers: 1, BufferSize: 1}, nil, zaptest.NewLogger(t))

	assert.ErrorIs(t, d.Enqueue(sampleEmail()), ErrNotRunning)
	assert.ErrorIs(t, d.Stop(time.Second), ErrNotRunning)

	require.NoError(t, d.Start())
	assert.Error(t, d.Start())
	require.NoError(t, d.Stop(time.Second))

	assert.ErrorIs(t, d.Enqueue(sampleEmail()), ErrNotRunning)
}
