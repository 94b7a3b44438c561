package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"discount-pin-service/internal/domain/model"
	"discount-pin-service/internal/domain/ports/adapter"
	"discount-pin-service/internal/infra/i18n"
)

var (
	_ adapter.CodeNotifier   = (*Notifier)(nil)
	_ adapter.ReportNotifier = (*Notifier)(nil)
)

// ErrNoChat is returned when the owner has no linked Telegram chat.
var ErrNoChat = errors.New("owner has no telegram chat")

// sender is the part of *tgbotapi.BotAPI the notifier uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier sends new codes to owners and renewal reports to admin chats.
type Notifier struct {
	bot      sender
	adminIDs []int64
	tr       *i18n.Translator
	log      *zerolog.Logger
}

// NewNotifier connects to the Bot API. Messages are rendered in lang.
func NewNotifier(token string, adminIDs []int64, lang string, logger *zerolog.Logger) (*Notifier, error) {
	if token == "" {
		return nil, errors.New("telegram token is empty")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	tr, err := i18n.Load(lang)
	if err != nil {
		return nil, err
	}
	return newNotifier(bot, adminIDs, tr, logger), nil
}

func newNotifier(bot sender, adminIDs []int64, tr *i18n.Translator, logger *zerolog.Logger) *Notifier {
	l := logger.With().Str("component", "telegram_notifier").Str("lang", tr.Lang()).Logger()
	return &Notifier{bot: bot, adminIDs: adminIDs, tr: tr, log: &l}
}

func (n *Notifier) NotifyCodeIssued(ctx context.Context, owner *model.User, code string, validUntil time.Time) error {
	if owner == nil || owner.TelegramID == nil {
		return ErrNoChat
	}
	text := n.tr.T("code_issued", owner.Name(), code, validUntil.Format("2006-01-02 15:04 MST"))
	return n.send(ctx, *owner.TelegramID, text)
}

// NotifyRenewalReport sends the summary to every admin; it fails only if no admin got it.
func (n *Notifier) NotifyRenewalReport(ctx context.Context, r *model.RenewalReport) error {
	if len(n.adminIDs) == 0 {
		return nil
	}
	text := formatReport(n.tr, r)
	var delivered int
	var lastErr error
	for _, id := range n.adminIDs {
		if err := n.send(ctx, id, text); err != nil {
			n.log.Warn().Err(err).Int64("chat_id", id).Msg("report delivery failed")
			lastErr = err
			continue
		}
		delivered++
	}
	if delivered == 0 {
		return lastErr
	}
	return nil
}

func (n *Notifier) send(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	_, err := n.bot.Send(msg)
	return err
}

func formatReport(tr *i18n.Translator, r *model.RenewalReport) string {
	var b strings.Builder
	b.WriteString(tr.T("report_title", r.Period))
	b.WriteString("\n")
	b.WriteString(tr.T("report_counts", r.Renewed, r.Skipped, len(r.Failures)))
	b.WriteString("\n")
	b.WriteString(tr.T("report_took", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond)))
	const maxListed = 10
	for i, f := range r.Failures {
		if i == maxListed {
			b.WriteString("\n")
			b.WriteString(tr.T("report_more", len(r.Failures)-maxListed))
			break
		}
		fmt.Fprintf(&b, "\n- %s: %s", f.PlanID, f.Reason)
	}
	return b.String()
}
