package service

import (
	"context"
	"log"
	"sync"
	"time"

	"stream-analytics-service/internal/model"
	"stream-analytics-service/internal/repository"
)

// BatchEventWorker buffers events and flushes them to the repository in
// batches, either when the batch fills or on a timer tick.
type BatchEventWorker interface {
	Enqueue(event model.Event)
	Shutdown()
}

type batchEventWorker struct {
	repo          repository.EventRepository
	eventQueue    chan model.Event
	batchSize     int
	flushInterval time.Duration
	flushTimeout  time.Duration
	wg            sync.WaitGroup
}

// NewBatchEventWorker starts the background flush loop. Enqueue blocks once
// the buffer is full, which back-pressures the ingest endpoint instead of
// dropping events.
func NewBatchEventWorker(repo repository.EventRepository, bufferSize, batchSize int, interval time.Duration) *batchEventWorker {
	worker := &batchEventWorker{
		repo:          repo,
		eventQueue:    make(chan model.Event, bufferSize),
		batchSize:     batchSize,
		flushInterval: interval,
		flushTimeout:  5 * time.Second,
	}
	worker.wg.Add(1)
	go worker.startLoop()
	return worker
}

func (w *batchEventWorker) Enqueue(event model.Event) {
	w.eventQueue <- event
}

// Shutdown closes the queue, drains remaining events and waits for the
// final flush.
func (w *batchEventWorker) Shutdown() {
	close(w.eventQueue)
	w.wg.Wait()
}

func (w *batchEventWorker) startLoop() {
	defer w.wg.Done()

	var batch []model.Event
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.eventQueue:
			if !ok {
				if len(batch) > 0 {
					w.flush(batch)
				}
				return
			}

			batch = append(batch, event)
			if len(batch) >= w.batchSize {
				w.flush(batch)
				batch = nil
			}

		case <-ticker.C:
			if len(batch) > 0 {
				w.flush(batch)
				batch = nil
			}
		}
	}
}

func (w *batchEventWorker) flush(events []model.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), w.flushTimeout)
	defer cancel()

	if err := w.repo.SaveBatch(ctx, events); err != nil {
		log.Printf("[ERROR] event batch flush failed (%d events): %v", len(events), err)
		return
	}
	log.Printf("[INFO] flushed %d events", len(events))
}
