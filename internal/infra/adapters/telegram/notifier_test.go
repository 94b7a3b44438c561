//go:build !integration

package telegram

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"discount-pin-service/internal/domain/model"
	"discount-pin-service/internal/infra/i18n"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func mustLang(t *testing.T, lang string) *i18n.Translator {
	t.Helper()
	tr, err := i18n.Load(lang)
	if err != nil {
		t.Fatalf("load %s: %v", lang, err)
	}
	return tr
}

type fakeSender struct {
	sent   []tgbotapi.MessageConfig
	failOn map[int64]bool
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg := c.(tgbotapi.MessageConfig)
	if f.failOn[msg.ChatID] {
		return tgbotapi.Message{}, errors.New("forbidden: bot was blocked by the user")
	}
	f.sent = append(f.sent, msg)
	return tgbotapi.Message{}, nil
}

func TestNotifier_NotifyCodeIssued(t *testing.T) {
	ctx := context.Background()

	t.Run("should send the code to the owner's chat", func(t *testing.T) {
		// Arrange
		bot := &fakeSender{}
		n := newNotifier(bot, nil, mustLang(t, "en"), newTestLogger())
		chat := int64(4242)
		owner := &model.User{ID: "u-1", DisplayName: "Ana", TelegramID: &chat}

		// Act
		err := n.NotifyCodeIssued(ctx, owner, "1234-5678", time.Date(2026, 10, 31, 23, 59, 59, 0, time.UTC))

		// Assert
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(bot.sent) != 1 || bot.sent[0].ChatID != chat {
			t.Fatalf("expected one message to %d, got %+v", chat, bot.sent)
		}
		if !strings.Contains(bot.sent[0].Text, "1234-5678") || !strings.Contains(bot.sent[0].Text, "2026-10-31") {
			t.Errorf("unexpected text %q", bot.sent[0].Text)
		}
	})

	t.Run("should refuse owners without a chat", func(t *testing.T) {
		n := newNotifier(&fakeSender{}, nil, mustLang(t, "en"), newTestLogger())

		err := n.NotifyCodeIssued(ctx, &model.User{ID: "u-2"}, "1234-5678", time.Now())

		if !errors.Is(err, ErrNoChat) {
			t.Errorf("expected ErrNoChat, got %v", err)
		}
	})
}

func TestNotifier_NotifyRenewalReport(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 10, 1, 0, 5, 0, 0, time.UTC)
	report := &model.RenewalReport{
		Period: "2026-10", Renewed: 3, Skipped: 1,
		Failures:  []model.PlanFailure{{PlanID: "p-9", Reason: "operation failed"}},
		StartedAt: start, FinishedAt: start.Add(1500 * time.Millisecond),
	}

	t.Run("should send to every admin and succeed if one got it", func(t *testing.T) {
		// Arrange
		bot := &fakeSender{failOn: map[int64]bool{2: true}}
		n := newNotifier(bot, []int64{1, 2}, mustLang(t, "en"), newTestLogger())

		// Act
		err := n.NotifyRenewalReport(ctx, report)

		// Assert
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(bot.sent) != 1 {
			t.Fatalf("expected one delivered message, got %d", len(bot.sent))
		}
		text := bot.sent[0].Text
		for _, want := range []string{"2026-10", "renewed: 3", "failed: 1", "p-9"} {
			if !strings.Contains(text, want) {
				t.Errorf("report text missing %q: %q", want, text)
			}
		}
	})

	t.Run("should render the report in the configured language", func(t *testing.T) {
		bot := &fakeSender{}
		n := newNotifier(bot, []int64{7}, mustLang(t, "fa"), newTestLogger())

		if err := n.NotifyRenewalReport(ctx, report); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(bot.sent[0].Text, "تمدید کدها 2026-10") {
			t.Errorf("unexpected text %q", bot.sent[0].Text)
		}
	})

	t.Run("should fail when no admin received it", func(t *testing.T) {
		bot := &fakeSender{failOn: map[int64]bool{1: true}}
		n := newNotifier(bot, []int64{1}, mustLang(t, "en"), newTestLogger())

		if err := n.NotifyRenewalReport(ctx, report); err == nil {
			t.Error("expected an error")
		}
	})
}
