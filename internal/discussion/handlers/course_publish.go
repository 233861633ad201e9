package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/zjrosen/discussions/internal/log"
	"github.com/zjrosen/discussions/internal/modulestore"
)

// CoursePublishHandler refreshes the discussion-id map of a published
// course. With a delay the refresh runs later on its own goroutine and
// Close waits for pending refreshes.
type CoursePublishHandler struct {
	updater DiscussionMapUpdater
	delay   time.Duration

	mu      sync.Mutex
	closed  bool
	pending map[*time.Timer]func()
	wg      sync.WaitGroup
}

// NewCoursePublishHandler creates a CoursePublishHandler. A delay of zero
// updates synchronously.
func NewCoursePublishHandler(updater DiscussionMapUpdater, delay time.Duration) *CoursePublishHandler {
	return &CoursePublishHandler{updater: updater, delay: delay, pending: make(map[*time.Timer]func())}
}

// HandleCoursePublished is the course_published receiver.
func (h *CoursePublishHandler) HandleCoursePublished(ctx context.Context, p modulestore.CoursePublishedPayload) error {
	if h.delay <= 0 {
		return h.updater.UpdateDiscussionsMap(ctx, p.CourseKey)
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		log.Warn(log.CatModulestore, "course publish after close, updating inline", "course_id", p.CourseKey.String())
		return h.updater.UpdateDiscussionsMap(ctx, p.CourseKey)
	}
	defer h.mu.Unlock()

	// The request context ends with the sender; the task keeps its values only.
	taskCtx := context.WithoutCancel(ctx)
	var timer *time.Timer
	run := func() {
		defer h.wg.Done()
		if err := h.updater.UpdateDiscussionsMap(taskCtx, p.CourseKey); err != nil {
			log.ErrorErr(log.CatModulestore, "discussion map update failed", err, "course_id", p.CourseKey.String())
		}
	}
	h.wg.Add(1)
	timer = time.AfterFunc(h.delay, func() {
		h.mu.Lock()
		_, ok := h.pending[timer]
		delete(h.pending, timer)
		h.mu.Unlock()
		if ok {
			run()
		}
	})
	h.pending[timer] = run
	log.Debug(log.CatModulestore, "discussion map update scheduled", "course_id", p.CourseKey.String(), "delay", h.delay)
	return nil
}

// Close runs every pending update now and waits for running ones.
func (h *CoursePublishHandler) Close() {
	h.mu.Lock()
	h.closed = true
	var due []func()
	for timer, run := range h.pending {
		timer.Stop()
		due = append(due, run)
		delete(h.pending, timer)
	}
	h.mu.Unlock()

	for _, run := range due {
		run()
	}
	h.wg.Wait()
}
