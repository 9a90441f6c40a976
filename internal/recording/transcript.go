package recording

import (
	"context"
	"strings"

	"recapbot/internal/domain"
)

// Transcript concatenates the bodies of incoming messages in [t0, t1],
// oldest first, joined with single spaces. Bounds are inclusive and empty
// bodies participate in the join as-is. No maximum size is enforced; any
// truncation policy belongs to the summarization side.
func Transcript(ctx context.Context, store domain.Store, chatID string, t0, t1 int64) (string, error) {
	msgs, err := store.MessagesBetween(ctx, chatID, t0, t1)
	if err != nil {
		return "", err
	}
	bodies := make([]string, len(msgs))
	for i, m := range msgs {
		bodies[i] = m.Body
	}
	return strings.Join(bodies, " "), nil
}
