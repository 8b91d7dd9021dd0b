package api_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"earnpulse/internal/api"
	"earnpulse/internal/core"
	"earnpulse/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	state *core.State
}

func (m *memStore) State() *core.State           { return m.state }
func (m *memStore) Save() error                  { return nil }
func (m *memStore) Replace(st *core.State) error { m.state = st; return nil }

func newClient(t *testing.T, latency time.Duration) (*api.Client, *memStore) {
	t.Helper()
	ms := &memStore{state: store.DefaultState()}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := core.NewService(ms, logger)
	return api.NewClient(svc, latency), ms
}

func TestCallsWaitForConfiguredLatency(t *testing.T) {
	const latency = 30 * time.Millisecond
	client, _ := newClient(t, latency)

	start := time.Now()
	_, err := client.Tasks(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), latency)
}

func TestCancelledContextAbortsBeforeMutation(t *testing.T) {
	client, ms := newClient(t, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := client.CompleteTask(ctx, "a@x.com", "1")
	assert.ErrorIs(t, err, context.Canceled)
	// the ledger was never touched
	assert.Empty(t, ms.state.Transactions)
	assert.NotContains(t, ms.state.Users, "a@x.com")
}

func TestCancellationDuringWait(t *testing.T) {
	client, ms := newClient(t, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Login(ctx, "a@x.com")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
	assert.NotContains(t, ms.state.Users, "a@x.com")
}

func TestZeroLatencyPassesThrough(t *testing.T) {
	client, _ := newClient(t, 0)

	user, err := client.Login(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", user.ID)

	_, tx, err := client.CompleteTask(context.Background(), "a@x.com", "1")
	require.NoError(t, err)
	assert.Equal(t, 0.85, tx.Amount)
}

func TestSessionCheckSkipsLatency(t *testing.T) {
	client, _ := newClient(t, 200*time.Millisecond)

	start := time.Now()
	user, err := client.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestNegativeLatencyFallsBackToDefault(t *testing.T) {
	// construction only; exercising a 400ms wait per call is not worth the
	// test time
	client, _ := newClient(t, -1)
	require.NotNil(t, client)
}
