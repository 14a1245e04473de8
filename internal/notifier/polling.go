package notifier

import (
	"context"
	"net/http"
	"strings"
	"time"

	"MetalSentinel/internal/httpclient"

	"go.uber.org/zap"
)

// pollTimeout is the server-side wait of one getUpdates long poll.
const pollTimeout = 30 * time.Second

// CommandHandler is called when a user command is received and returns the reply text.
type CommandHandler func(ctx context.Context, command string) string

type getUpdatesParams struct {
	Offset         int      `json:"offset"`
	Timeout        int      `json:"timeout"`
	AllowedUpdates []string `json:"allowed_updates"`
}

type telegramUpdate struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
	} `json:"message"`
}

// StartPolling long-polls for chat commands and replies to each one. Blocks until ctx is done.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	client := httpclient.WithTimeout(t.Client, pollTimeout+5*time.Second)
	offset := 0
	for ctx.Err() == nil {
		updates, err := t.getUpdates(ctx, client, offset)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			zap.L().Warn("telegram polling failed", zap.Error(err))
			pause(ctx, 5*time.Second)
			continue
		}
		for _, u := range updates {
			offset = u.UpdateID + 1
			t.dispatch(ctx, u, handler)
		}
	}
	zap.L().Info("telegram polling stopped")
}

func (t *TelegramNotifier) getUpdates(ctx context.Context, client *http.Client, offset int) ([]telegramUpdate, error) {
	var updates []telegramUpdate
	err := t.call(ctx, client, "getUpdates", getUpdatesParams{
		Offset:         offset,
		Timeout:        int(pollTimeout / time.Second),
		AllowedUpdates: []string{"message"},
	}, &updates)
	return updates, err
}

func (t *TelegramNotifier) dispatch(ctx context.Context, u telegramUpdate, handler CommandHandler) {
	if u.Message == nil {
		return
	}
	text := strings.TrimSpace(u.Message.Text)
	if text == "" {
		return
	}
	zap.L().Info("received command", zap.Int("update_id", u.UpdateID), zap.String("text", text))
	reply := handler(ctx, text)
	if reply == "" {
		return
	}
	if err := t.Send(ctx, reply); err != nil {
		zap.L().Error("send reply", zap.Int("update_id", u.UpdateID), zap.Error(err))
	}
}
