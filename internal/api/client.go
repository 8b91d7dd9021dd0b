// Package api is the service boundary the HTTP layer talks to. It stands in
// for a remote API: every call waits a fixed simulated round-trip before
// delegating to the ledger. The wait honors the caller's context, so an
// abandoned request never reaches the ledger.
package api

import (
	"context"
	"time"

	"earnpulse/internal/core"
)

// DefaultLatency is the simulated round-trip time.
const DefaultLatency = 400 * time.Millisecond

// Client wraps the ledger service behind the artificial latency.
type Client struct {
	svc     *core.Service
	latency time.Duration
}

// NewClient creates a Client. A negative latency falls back to the default.
func NewClient(svc *core.Service, latency time.Duration) *Client {
	if latency < 0 {
		latency = DefaultLatency
	}
	return &Client{svc: svc, latency: latency}
}

// wait blocks for the configured latency or until ctx is cancelled.
func (c *Client) wait(ctx context.Context) error {
	if c.latency == 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(c.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) Login(ctx context.Context, email string) (*core.User, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.svc.Login(email)
}

func (c *Client) Logout(ctx context.Context) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	return c.svc.Logout()
}

// CurrentUser skips the artificial latency: the reference boundary answered
// session checks without a round-trip delay.
func (c *Client) CurrentUser(ctx context.Context) (*core.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.svc.CurrentUser()
}

func (c *Client) Tasks(ctx context.Context) ([]*core.Task, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.svc.Tasks()
}

func (c *Client) CompleteTask(ctx context.Context, userID, taskID string) (*core.User, *core.Transaction, error) {
	if err := c.wait(ctx); err != nil {
		return nil, nil, err
	}
	return c.svc.CompleteTask(userID, taskID)
}

func (c *Client) CompleteAd(ctx context.Context, userID string) (*core.User, *core.Transaction, error) {
	if err := c.wait(ctx); err != nil {
		return nil, nil, err
	}
	return c.svc.CompleteAd(userID)
}

func (c *Client) History(ctx context.Context) ([]*core.Transaction, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.svc.History()
}

func (c *Client) RequestPayout(ctx context.Context, userID string, amount float64, method string) (*core.Transaction, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.svc.RequestPayout(userID, amount, method)
}

func (c *Client) SettlePayout(ctx context.Context, txID string, decision core.SettleDecision) (*core.Transaction, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.svc.SettlePayout(txID, decision)
}

func (c *Client) AdjustBalance(ctx context.Context, userID string, balance float64) (*core.User, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.svc.AdjustBalance(userID, balance)
}

func (c *Client) SetUserStatus(ctx context.Context, userID string, status core.UserStatus) (*core.User, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.svc.SetUserStatus(userID, status)
}

func (c *Client) Users(ctx context.Context) ([]*core.User, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.svc.Users()
}

func (c *Client) Transactions(ctx context.Context) ([]*core.Transaction, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.svc.Transactions()
}

func (c *Client) UpsertTask(ctx context.Context, task core.Task) (*core.Task, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.svc.UpsertTask(task)
}

func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	return c.svc.DeleteTask(taskID)
}

func (c *Client) Settings(ctx context.Context) (core.Settings, error) {
	if err := c.wait(ctx); err != nil {
		return core.Settings{}, err
	}
	return c.svc.Settings()
}

func (c *Client) UpdateSettings(ctx context.Context, patch core.SettingsPatch) (core.Settings, error) {
	if err := c.wait(ctx); err != nil {
		return core.Settings{}, err
	}
	return c.svc.UpdateSettings(patch)
}

func (c *Client) Stats(ctx context.Context) (core.Stats, error) {
	if err := c.wait(ctx); err != nil {
		return core.Stats{}, err
	}
	return c.svc.Stats()
}

// Export skips the artificial latency: backups are a local concern, not a
// simulated remote call.
func (c *Client) Export(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.svc.Export()
}

func (c *Client) Import(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.svc.Import(data)
}
