package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/reveriehq/reverie/pkg/types"
)

// Enqueue accepts one extraction task. It never blocks and never rejects
// while the engine is running: the queue is an unbounded slice, and the drain
// goroutine is started on demand when the queue was idle. Returns the task ID.
func (e *Engine) Enqueue(task types.ExtractionTask) string {
	if task.TaskID == "" {
		task.TaskID = uuid.NewString()
	}
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now()
	}

	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		log.Printf("WARNING: engine: task %s rejected, engine is shut down", task.TaskID)
		return task.TaskID
	}
	e.queue = append(e.queue, task)
	e.stats.TotalQueued++
	start := !e.processing
	if start {
		e.processing = true
	}
	e.mu.Unlock()

	if start {
		e.drainWG.Add(1)
		go e.drain()
	}
	return task.TaskID
}

// Status returns a point-in-time snapshot of the queue.
func (e *Engine) Status() types.QueueStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return types.QueueStatus{
		QueueSize:  len(e.queue),
		Processing: e.processing,
		Stats:      e.stats,
	}
}

// drain is the single consumer loop. Exactly one instance runs at a time;
// it exits when the queue is empty and is restarted by the next Enqueue.
func (e *Engine) drain() {
	defer e.drainWG.Done()

	for {
		e.mu.Lock()
		if e.stopped || len(e.queue) == 0 {
			e.processing = false
			e.mu.Unlock()
			return
		}
		task := e.queue[0]
		e.queue = e.queue[1:]
		e.mu.Unlock()

		start := time.Now()
		err := e.runTask(task)
		elapsed := time.Since(start)

		e.mu.Lock()
		if err != nil {
			e.stats.TotalFailed++
			log.Printf("ERROR: engine: task %s failed after %s: %v", task.TaskID, elapsed, err)
		} else {
			e.stats.TotalProcessed++
			ms := float64(elapsed.Microseconds()) / 1000.0
			// Incremental running mean over successful tasks.
			e.stats.AverageProcessingMs += (ms - e.stats.AverageProcessingMs) / float64(e.stats.TotalProcessed)
		}
		e.mu.Unlock()

		// Fixed pause between tasks keeps a burst of turns from saturating
		// the local LLM, success or failure alike.
		time.Sleep(e.cfg.TaskPause)
	}
}

// runTask processes one task with panic isolation: a panicking extraction
// kills the task, not the loop.
func (e *Engine) runTask(task types.ExtractionTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &taskPanicError{taskID: task.TaskID, value: r}
		}
	}()
	return e.processTask(context.Background(), task)
}

type taskPanicError struct {
	taskID string
	value  interface{}
}

func (p *taskPanicError) Error() string {
	return fmt.Sprintf("panic while processing task %s: %v", p.taskID, p.value)
}
