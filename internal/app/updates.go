package app

import (
	"context"
	"strconv"
	"strings"
	"time"

	"standupbot/internal/storage"
	"standupbot/internal/transport"
	"standupbot/pkg/logx"
)

// pumpUpdates drains chat updates and funnels them into the engine's
// synchronized entry point. Thread replies in the team channel count as
// standup responses; "hc:<mood>" callbacks are health-check answers.
func (a *App) pumpUpdates(ctx context.Context) {
	channelID := a.cfgMgr.Current().Telegram.ChannelID
	for {
		select {
		case <-ctx.Done():
			return
		case up := <-a.updates:
			switch up.Kind {
			case transport.UpdateMessage:
				a.handleMessage(ctx, up.Message, channelID)
			case transport.UpdateCallback:
				a.handleCallback(ctx, up.Callback)
			}
		}
	}
}

func (a *App) handleMessage(ctx context.Context, m *transport.Message, channelID int64) {
	if m == nil || m.ChatID != channelID || m.ThreadID == 0 {
		return
	}
	threadID := strconv.Itoa(m.ThreadID)
	userID := strconv.FormatInt(m.FromID, 10)

	applied := a.eng.RecordResponse(threadID, userID)
	if !applied {
		return
	}
	now := a.eng.Clock().Now()
	sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := a.store.SaveStandupResponse(sctx, storage.StandupResponse{
		Day:      now.Format("2006-01-02"),
		ThreadID: threadID,
		UserID:   userID,
		Text:     m.Text,
		At:       now,
	}); err != nil {
		a.log.Warn("standup response save failed", logx.String("user", userID), logx.Err(err))
	}
}

func (a *App) handleCallback(ctx context.Context, cb *transport.Callback) {
	if cb == nil {
		return
	}
	mood, ok := strings.CutPrefix(strings.TrimSpace(cb.Data), "hc:")
	if !ok {
		return
	}
	switch mood {
	case "great", "okay", "not_great":
	default:
		return
	}

	now := a.eng.Clock().Now()
	userID := strconv.FormatInt(cb.FromID, 10)
	sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := a.store.SaveHealthCheck(sctx, storage.HealthCheckResponse{
		Day:    now.Format("2006-01-02"),
		UserID: userID,
		Mood:   mood,
		At:     now,
	}); err != nil {
		a.log.Warn("health check save failed", logx.String("user", userID), logx.Err(err))
	}
	_ = a.adapter.AnswerCallback(sctx, cb.ID, "Thanks for checking in! 💚")
}
