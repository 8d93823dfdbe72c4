package ledger

import (
	"context"
	"fmt"

	"github.com/attaboy/gamesocial/internal/domain"
)

// ResetWindow zeroes the day or week counter for every user.
//
// The user set is split into chunks no larger than the store's batch ceiling and
// each chunk commits as its own atomic unit. A failed chunk does not stop the run:
// the remaining chunks are still applied and the result reports exactly how many
// records were reset, wrapped in a PARTIAL_FAILURE error. Re-running is safe since
// zeroing an already-zero counter is a no-op. Once ctx is done no further chunk is
// started and the untried chunks count as failed.
func (e *Engine) ResetWindow(ctx context.Context, window domain.Window) (domain.ResetResult, error) {
	result := domain.ResetResult{Window: window}
	if !window.Resettable() {
		return result, domain.ErrValidation(fmt.Sprintf("window %q cannot be reset", window))
	}

	uids, err := e.scores.ListUIDs(ctx)
	if err != nil {
		return result, domain.ErrStoreUnavailable("list users for reset", err)
	}
	result.Total = len(uids)

	size := e.batchSize
	if maxBatch := e.scores.MaxBatchSize(); maxBatch > 0 && maxBatch < size {
		size = maxBatch
	}

	var firstErr error
	for i, chunk := range chunkUIDs(uids, size) {
		result.Chunks++

		if err := ctx.Err(); err != nil {
			result.FailedChunks++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		if err := e.scores.ResetWindowBatch(ctx, window, chunk); err != nil {
			result.FailedChunks++
			if firstErr == nil {
				firstErr = err
			}
			e.logger.Error("window reset chunk failed",
				"window", window,
				"chunk", i,
				"size", len(chunk),
				"error", err,
			)
			continue
		}
		result.Succeeded += len(chunk)
	}

	e.logger.Info("window reset finished",
		"window", window,
		"total", result.Total,
		"succeeded", result.Succeeded,
		"chunks", result.Chunks,
		"failed_chunks", result.FailedChunks,
	)
	draft, buildErr := domain.NewWindowResetEvent(result)
	e.publish(context.WithoutCancel(ctx), draft, buildErr)

	if result.FailedChunks > 0 {
		return result, domain.ErrPartialFailure(
			fmt.Sprintf("reset %s window", window), result.Succeeded, result.Total, firstErr)
	}
	return result, nil
}

// chunkUIDs splits uids into consecutive slices of at most size elements.
func chunkUIDs(uids []string, size int) [][]string {
	if size <= 0 || len(uids) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(uids)+size-1)/size)
	for start := 0; start < len(uids); start += size {
		end := min(start+size, len(uids))
		chunks = append(chunks, uids[start:end])
	}
	return chunks
}
