// Package worker runs pipeline attempts for batches of recordings, fanning
// the IDs out over a fixed pool of goroutines. It backs the retry sweep that
// picks up failed and stuck recordings.
package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Runner executes one pipeline attempt for a recording.
type Runner interface {
	Process(ctx context.Context, recordingID string) error
}

// RetrySource lists recordings that need another pipeline attempt.
type RetrySource interface {
	ListRetryable(ctx context.Context, stuckAfter time.Duration, limit int) ([]string, error)
}

// DefaultStuckAfter is how long a recording may sit in processing before the
// sweep treats its run as dead.
const DefaultStuckAfter = 30 * time.Minute

// Manager distributes recording IDs to workers.
type Manager struct {
	workerCount int
	runner      Runner
}

// NewManager creates a manager with the given pool size.
func NewManager(workerCount int, runner Runner) *Manager {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &Manager{
		workerCount: workerCount,
		runner:      runner,
	}
}

// ProcessRecordings distributes recording IDs to workers and processes them
// concurrently. Individual failures are logged and counted; the call errors
// only when every recording failed.
func (m *Manager) ProcessRecordings(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	jobChan := make(chan string, len(ids))
	for _, id := range ids {
		jobChan <- id
	}
	close(jobChan)

	type result struct {
		id       string
		workerID int
		err      error
	}
	resultsChan := make(chan result, len(ids))

	var wg sync.WaitGroup
	for i := 0; i < m.workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for id := range jobChan {
				select {
				case <-ctx.Done():
					resultsChan <- result{id: id, workerID: workerID, err: ctx.Err()}
					continue
				default:
				}
				err := m.runner.Process(ctx, id)
				resultsChan <- result{id: id, workerID: workerID, err: err}
			}
		}(i)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	var successCount, errorCount int
	for res := range resultsChan {
		if res.err != nil {
			errorCount++
			log.Printf("worker %d: recording %s: %v", res.workerID, res.id, res.err)
		} else {
			successCount++
		}
	}

	log.Printf("worker: completed %d successful, %d errors (total %d)", successCount, errorCount, len(ids))

	if errorCount > 0 && successCount == 0 {
		return fmt.Errorf("all %d recordings failed to process", errorCount)
	}
	return nil
}

// Sweep fetches retryable recordings and processes them. Returns the number
// of recordings attempted.
func (m *Manager) Sweep(ctx context.Context, source RetrySource, stuckAfter time.Duration, limit int) (int, error) {
	if stuckAfter <= 0 {
		stuckAfter = DefaultStuckAfter
	}
	ids, err := source.ListRetryable(ctx, stuckAfter, limit)
	if err != nil {
		return 0, fmt.Errorf("list retryable recordings: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	log.Printf("worker: sweeping %d retryable recordings", len(ids))
	return len(ids), m.ProcessRecordings(ctx, ids)
}
