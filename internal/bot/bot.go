// Package bot runs the admin Telegram side-channel: payout requests are
// announced to the configured admin chat with inline settle buttons, and
// /stats answers with the platform overview.
package bot

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"earnpulse/internal/core"

	tele "gopkg.in/telebot.v3"
)

// Bot represents the Telegram bot
type Bot struct {
	bot         *tele.Bot
	svc         *core.Service
	adminChatID int64
	logger      *slog.Logger
}

// NewBot creates a new Bot instance
func NewBot(token string, adminChatID int64, svc *core.Service, logger *slog.Logger) (*Bot, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	bot := &Bot{
		bot:         b,
		svc:         svc,
		adminChatID: adminChatID,
		logger:      logger,
	}

	bot.setupHandlers()
	return bot, nil
}

// Start starts the bot polling
func (b *Bot) Start() {
	b.logger.Info("telegram bot running")
	b.bot.Start()
}

// Stop gracefully stops the bot
func (b *Bot) Stop() {
	b.bot.Stop()
}

// fromAdmin reports whether the update came from the configured admin chat.
func (b *Bot) fromAdmin(c tele.Context) bool {
	return c.Chat() != nil && c.Chat().ID == b.adminChatID
}

func (b *Bot) setupHandlers() {
	b.bot.Handle("/stats", func(c tele.Context) error {
		if !b.fromAdmin(c) {
			return nil
		}
		stats, err := b.svc.Stats()
		if err != nil {
			return c.Send(fmt.Sprintf("Failed to load stats: %v", err))
		}
		msg := fmt.Sprintf(
			"EarnPulse overview\n\nUsers: %d\nTotal balance: $%.2f\nPaid out: $%.2f\nPending payouts: %d\nActive tasks: %d\nAds watched: %d",
			stats.TotalUsers, stats.TotalBalance, stats.TotalPayouts,
			stats.PendingPayouts, stats.ActiveTasks, stats.TotalAdsWatched,
		)
		return c.Send(msg)
	})

	b.bot.Handle(tele.OnCallback, func(c tele.Context) error {
		if !b.fromAdmin(c) {
			return c.Respond(&tele.CallbackResponse{})
		}

		data := strings.TrimPrefix(c.Callback().Data, "\f")
		parts := strings.SplitN(data, ":", 3)
		if len(parts) != 3 || parts[0] != "payout" {
			return c.Respond(&tele.CallbackResponse{})
		}

		decision := core.SettleDecision(parts[1])
		txID := parts[2]

		tx, err := b.svc.SettlePayout(txID, decision)
		if err != nil {
			b.logger.Warn("settlement via bot failed", "tx", txID, "error", err)
			return c.Respond(&tele.CallbackResponse{Text: fmt.Sprintf("Failed: %v", err)})
		}

		verdict := "approved"
		if tx.Status == core.StatusRejected {
			verdict = "rejected, funds returned"
		}
		if err := c.Edit(fmt.Sprintf("Payout %s for %s ($%.2f): %s", tx.ID, tx.UserID, tx.Amount, verdict)); err != nil {
			b.logger.Warn("failed to edit settlement message", "error", err)
		}
		return c.Respond(&tele.CallbackResponse{Text: "Settled"})
	})
}

// PayoutRequested implements core.PayoutNotifier: it announces the new
// pending payout to the admin chat with inline settle buttons.
func (b *Bot) PayoutRequested(tx core.Transaction) {
	msg := fmt.Sprintf(
		"New payout request\n\nUser: %s\nAmount: $%.2f\nMethod: %s\nDate: %s",
		tx.UserID, tx.Amount, tx.Method, tx.Date,
	)

	markup := &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{{
		{Text: "Approve", Data: fmt.Sprintf("payout:%s:%s", core.DecisionApprove, tx.ID)},
		{Text: "Reject", Data: fmt.Sprintf("payout:%s:%s", core.DecisionReject, tx.ID)},
	}}}

	if _, err := b.bot.Send(tele.ChatID(b.adminChatID), msg, markup); err != nil {
		b.logger.Warn("failed to send payout notification", "tx", tx.ID, "error", err)
	}
}
