package recording

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"recapbot/internal/domain"
	"recapbot/internal/metrics"

	"github.com/google/uuid"
)

const noConversationReply = "❌ No conversation found in the specified time range."

// StopCommand returns the command that ends a recording session and
// generates the summary reply.
func (r *Recorder) StopCommand() domain.Command {
	return domain.Command{
		Name:        "endRecord",
		Description: "Ends recording a conversation and generates a summary with shopping items",
		Aliases:     []string{"end-record", "stop-record", "stop", "summary"},
		Category:    domain.CategoryRecording,
		Execute:     r.stop,
	}
}

// stop closes the recording window, extracts the transcript, obtains the
// summary and item list, enriches each item with catalog products, and
// sends one combined reply.
//
// Without a prior start the window is synthesized from the chat's recent
// history: the oldest of the last N incoming messages opens the window, or
// "now" when the chat has no history at all (a guaranteed-empty window).
func (r *Recorder) stop(ctx context.Context, ev domain.ChatEvent, _ []string, resp domain.Responder) error {
	nowTS := r.now()

	rec, err := r.store.FindPendingRecord(ctx, ev.ChatID)
	if err != nil {
		return fmt.Errorf("find pending record: %w", err)
	}

	existing := rec != nil
	if existing {
		rec.EndMessageID = ev.ID
		rec.EndTimestamp = nowTS
	} else {
		rec = &domain.ConversationRecord{
			ID:             uuid.NewString(),
			ChatID:         ev.ChatID,
			ChatName:       ev.ChatName,
			StartMessageID: ev.ID,
			EndMessageID:   ev.ID,
			StartTimestamp: nowTS,
			EndTimestamp:   nowTS,
			Items:          []string{},
			Status:         domain.StatusPending,
		}
		recent, err := r.store.RecentMessages(ctx, ev.ChatID, r.recentLimit)
		if err != nil {
			return fmt.Errorf("load recent messages: %w", err)
		}
		if len(recent) > 0 {
			// RecentMessages is newest-first; the last entry opens the window.
			oldest := recent[len(recent)-1]
			rec.StartTimestamp = oldest.Timestamp
			rec.StartMessageID = oldest.MessageID
		}
	}

	transcript, err := Transcript(ctx, r.store, ev.ChatID, rec.StartTimestamp, rec.EndTimestamp)
	if err != nil {
		return fmt.Errorf("extract transcript: %w", err)
	}

	if strings.TrimSpace(transcript) == "" {
		// Fallback, not failure: an existing pending record stays pending
		// so stop can be retried once more messages accumulate.
		return resp.Reply(ctx, noConversationReply)
	}

	summary, err := r.summarizer.Summarize(ctx, transcript)
	if err != nil {
		// Adapters degrade internally; a summarizer that errors anyway
		// still yields a usable, low-quality result.
		r.logger.Warn("summarizer returned error, degrading", "chat", ev.ChatID, "err", err)
		summary = degradedSummary()
	}
	if len(summary.Items) == 0 {
		summary.Items = degradedSummary().Items
	}

	rec.Summary = summary.Text
	rec.Items = summary.Items
	rec.Status = domain.StatusCompleted
	if err := r.store.SaveRecord(ctx, *rec); err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	metrics.RecordingsCompleted.Inc()

	enriched := r.enrichItems(ctx, summary.Items)

	r.logger.Info("recording completed",
		"chat", ev.ChatName, "record", rec.ID, "items", len(summary.Items))
	return resp.Reply(ctx, ComposeReply(summary.Text, enriched))
}

// enrichItems looks up catalog products for each item concurrently. Item
// order is preserved and a failed or empty lookup for one item never
// affects the others.
func (r *Recorder) enrichItems(ctx context.Context, items []string) []ItemProducts {
	results := make([]ItemProducts, len(items))
	if r.enricher == nil {
		for i, item := range items {
			results[i] = ItemProducts{Item: item}
		}
		return results
	}

	sem := make(chan struct{}, r.parallelLookups)
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, item string) {
			defer wg.Done()
			defer func() { <-sem }()

			metrics.EnrichmentLookups.Inc()
			products, err := r.enricher.Lookup(ctx, item)
			if err != nil {
				r.logger.Warn("could not fetch products for item", "item", item, "err", err)
				products = nil
			}
			results[i] = ItemProducts{Item: item, Products: products}
		}(i, item)
	}
	wg.Wait()
	return results
}

// degradedSummary is the floor the summarization contract guarantees: a
// usable reply with at least one item, even on a failed or ambiguous call.
func degradedSummary() domain.Summary {
	return domain.Summary{
		Text:  "The conversation could not be summarized right now, please try again later.",
		Items: []string{"general supplies"},
	}
}
