package recording

import (
	"context"
	"errors"
	"fmt"

	"recapbot/internal/domain"
	"recapbot/internal/metrics"

	"github.com/google/uuid"
)

const (
	startedReply = "✅ *Recording started!*\n\n📝 Conversation recording has begun. Use the stop recording command when you want to generate a summary."

	alreadyRecordingReply = "❌ There is already an active recording in this group! Please end the current recording before starting a new one."
)

// StartCommand returns the command that begins a recording session.
func (r *Recorder) StartCommand() domain.Command {
	return domain.Command{
		Name:        "startRecord",
		Description: "Starts recording a conversation for summary generation",
		Aliases:     []string{"start-record", "record", "start"},
		Category:    domain.CategoryRecording,
		Execute:     r.start,
	}
}

// start creates a pending record for the chat. The store's conditional
// insert is the guard: a chat with an active recording gets a rejection
// reply and no mutation.
func (r *Recorder) start(ctx context.Context, ev domain.ChatEvent, _ []string, resp domain.Responder) error {
	rec := domain.ConversationRecord{
		ID:             uuid.NewString(),
		ChatID:         ev.ChatID,
		ChatName:       ev.ChatName,
		StartMessageID: ev.ID,
		StartTimestamp: r.now(),
		Items:          []string{},
		Status:         domain.StatusPending,
	}

	err := r.store.CreatePendingRecord(ctx, rec)
	if errors.Is(err, domain.ErrAlreadyRecording) {
		retried, rerr := r.expireStalePending(ctx, ev.ChatID, rec)
		if rerr != nil {
			return rerr
		}
		if !retried {
			return resp.Reply(ctx, alreadyRecordingReply)
		}
	} else if err != nil {
		return fmt.Errorf("create record: %w", err)
	}

	metrics.RecordingsStarted.Inc()
	r.logger.Info("recording started", "chat", ev.ChatName, "record", rec.ID)
	return resp.Reply(ctx, startedReply)
}

// expireStalePending retries the create after marking an expired pending
// record failed. Returns true when the retry succeeded. With expiry
// disabled (pendingMaxAge == 0) it never retries.
func (r *Recorder) expireStalePending(ctx context.Context, chatID string, rec domain.ConversationRecord) (bool, error) {
	if r.pendingMaxAge <= 0 {
		return false, nil
	}

	pending, err := r.store.FindPendingRecord(ctx, chatID)
	if err != nil {
		return false, fmt.Errorf("find pending record: %w", err)
	}
	if pending == nil || r.now()-pending.StartTimestamp <= int64(r.pendingMaxAge.Seconds()) {
		return false, nil
	}

	pending.Status = domain.StatusFailed
	if err := r.store.SaveRecord(ctx, *pending); err != nil {
		return false, fmt.Errorf("expire stale record: %w", err)
	}
	r.logger.Warn("expired stale pending recording", "chat", chatID, "record", pending.ID)

	if err := r.store.CreatePendingRecord(ctx, rec); err != nil {
		// A concurrent start slipped in between; treat as the normal
		// already-recording case.
		if errors.Is(err, domain.ErrAlreadyRecording) {
			return false, nil
		}
		return false, fmt.Errorf("create record: %w", err)
	}
	return true, nil
}
