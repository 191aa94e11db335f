package app

import (
	"context"
	"log"

	"github.com/louisbranch/pokeachieve/internal/services/tracker/poll"
	"github.com/louisbranch/pokeachieve/internal/services/tracker/storage"
)

// journalRecorder writes scheduler failures to the failure journal.
type journalRecorder struct {
	store storage.FailureStore
}

func (j journalRecorder) RecordFailure(ctx context.Context, failure poll.Failure) {
	record := storage.FailureRecord{
		Source:    failure.Source,
		Kind:      string(failure.Kind),
		Detail:    failure.Detail,
		CreatedAt: failure.At,
	}
	// shutdown cancels ctx; the last transitions are still worth keeping
	if err := j.store.RecordFailure(context.WithoutCancel(ctx), record); err != nil {
		log.Printf("journal %s from %s: %v", record.Kind, record.Source, err)
	}
}
