package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/SergeiKhy/geolink/internal/device"
	"github.com/SergeiKhy/geolink/internal/models"
	"github.com/SergeiKhy/geolink/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultWorkerCount   = 3
	defaultChannelBuffer = 1000
	defaultMaxRetries    = 3
	defaultRetryDelay    = 100 * time.Millisecond
	defaultTaskTimeout   = 5 * time.Second
)

// ClickProcessor applies the side effects of a redirect in the background.
type ClickProcessor interface {
	Start()
	// Stop refuses new events, drains the queue and waits for the workers.
	Stop()
	// RecordClick never blocks. When the queue is full the event goes to the dead-letter list.
	RecordClick(ctx context.Context, event *models.ClickEvent) error
	// ReplayDeadLetters retries up to limit dead letters once each and reports how many succeeded.
	ReplayDeadLetters(ctx context.Context, limit int) (int, error)
	Stats() QueueStats
}

type ClickProcessorConfig struct {
	Workers     int
	Buffer      int
	MaxRetries  int
	RetryDelay  time.Duration
	TaskTimeout time.Duration
}

// QueueStats describes the worker pool for health reporting.
type QueueStats struct {
	BufferSize  int `json:"bufferSize"`
	BufferUsed  int `json:"bufferUsed"`
	WorkerCount int `json:"workerCount"`
}

// clickProcessor is a fixed worker pool fed by a buffered channel.
type clickProcessor struct {
	clickRepo    repository.ClickRepository
	linkRepo     repository.LinkRepository
	deadLetters  repository.DeadLetterRepository
	logger       *zap.Logger
	cfg          ClickProcessorConfig
	clickChannel chan *models.ClickEvent
	wg           sync.WaitGroup
	startOnce    sync.Once

	mu     sync.RWMutex
	closed bool
}

// NewClickProcessor creates the processor. Call Start before enqueueing.
func NewClickProcessor(
	clickRepo repository.ClickRepository,
	linkRepo repository.LinkRepository,
	deadLetters repository.DeadLetterRepository,
	cfg ClickProcessorConfig,
	logger *zap.Logger,
) ClickProcessor {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkerCount
	}
	if cfg.Buffer < 0 {
		cfg.Buffer = defaultChannelBuffer
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = defaultTaskTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &clickProcessor{
		clickRepo:    clickRepo,
		linkRepo:     linkRepo,
		deadLetters:  deadLetters,
		logger:       logger,
		cfg:          cfg,
		clickChannel: make(chan *models.ClickEvent, cfg.Buffer),
	}
}

// Start launches the workers.
func (p *clickProcessor) Start() {
	p.startOnce.Do(func() {
		p.logger.Info("starting click workers", zap.Int("count", p.cfg.Workers))
		for i := range p.cfg.Workers {
			p.wg.Add(1)
			go p.worker(i)
		}
	})
}

// Stop closes intake and waits until every queued event is processed.
func (p *clickProcessor) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.clickChannel)
	p.mu.Unlock()

	p.logger.Info("draining click queue", zap.Int("pending", len(p.clickChannel)))
	p.wg.Wait()
	p.logger.Info("click processor stopped")
}

func (p *clickProcessor) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("click worker started", zap.Int("id", id))
	for event := range p.clickChannel {
		p.processClick(event)
	}
	p.logger.Debug("click worker stopped", zap.Int("id", id))
}

// processClick runs each side effect independently; one failing does not affect the others.
func (p *clickProcessor) processClick(event *models.ClickEvent) {
	for _, task := range tasksFor(event) {
		p.runWithRetry(task, event)
	}
}

func (p *clickProcessor) runWithRetry(task models.ClickTask, event *models.ClickEvent) {
	var err error
	for attempt := 1; attempt <= p.cfg.MaxRetries; attempt++ {
		err = p.execTask(context.Background(), task, event)
		if err == nil {
			return
		}
		if isPermanent(err) {
			p.logger.Info("dropping click task for missing target",
				zap.String("task", string(task)),
				zap.String("short_code", event.ShortCode),
				zap.Error(err),
			)
			return
		}
		if attempt < p.cfg.MaxRetries {
			p.logger.Debug("retrying click task",
				zap.String("task", string(task)),
				zap.String("short_code", event.ShortCode),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			time.Sleep(time.Duration(attempt) * p.cfg.RetryDelay)
		}
	}

	p.logger.Error("click task failed after all retries",
		zap.String("task", string(task)),
		zap.String("short_code", event.ShortCode),
		zap.Error(err),
	)
	p.deadLetter(context.Background(), task, event, err)
}

func (p *clickProcessor) execTask(ctx context.Context, task models.ClickTask, event *models.ClickEvent) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.TaskTimeout)
	defer cancel()

	switch task {
	case models.TaskRecordClick:
		if event.EventID == uuid.Nil {
			event.EventID = uuid.New()
		}
		click := &models.Click{
			EventID:        event.EventID,
			LinkID:         event.LinkID,
			OwnerID:        event.OwnerID,
			ClickedAt:      event.ClickedAt,
			IPAddress:      event.IPAddress,
			WasGeoRedirect: event.MatchedRuleID != nil,
			MatchedRuleID:  event.MatchedRuleID,
			Geo:            event.Geo,
			Device:         device.Classify(event.UserAgent),
		}
		if click.ClickedAt.IsZero() {
			click.ClickedAt = time.Now()
		}
		// Duplicate EventIDs are ignored by the repository, so retrying a write
		// that committed before failing stores the click once.
		return p.clickRepo.RecordClick(ctx, click)
	case models.TaskIncrementLink:
		return p.linkRepo.IncrementClicks(ctx, event.LinkID)
	case models.TaskIncrementRule:
		if event.MatchedRuleID == nil {
			return nil
		}
		return p.linkRepo.IncrementRuleClicks(ctx, *event.MatchedRuleID)
	default:
		return fmt.Errorf("unknown click task %q", task)
	}
}

func (p *clickProcessor) deadLetter(ctx context.Context, task models.ClickTask, event *models.ClickEvent, cause error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.TaskTimeout)
	defer cancel()

	letter := &models.DeadLetter{
		Task:     task,
		Event:    *event,
		FailedAt: time.Now(),
	}
	if cause != nil {
		letter.Error = cause.Error()
	}

	if err := p.deadLetters.Push(ctx, letter); err != nil {
		p.logger.Error("failed to dead-letter click task, event lost",
			zap.String("task", string(task)),
			zap.String("short_code", event.ShortCode),
			zap.Error(err),
		)
	}
}

// RecordClick enqueues event for the workers without blocking the caller.
func (p *clickProcessor) RecordClick(ctx context.Context, event *models.ClickEvent) error {
	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.deadLetterAll(ctx, event, errors.New("click processor stopped"))
		return nil
	}

	select {
	case p.clickChannel <- event:
		return nil
	default:
		p.logger.Warn("click queue full, dead-lettering event",
			zap.String("short_code", event.ShortCode),
		)
		p.deadLetterAll(ctx, event, errors.New("click queue full"))
		return nil
	}
}

func (p *clickProcessor) deadLetterAll(ctx context.Context, event *models.ClickEvent, cause error) {
	ctx = context.WithoutCancel(ctx)
	for _, task := range tasksFor(event) {
		p.deadLetter(ctx, task, event, cause)
	}
}

// ReplayDeadLetters pops at most limit letters that were queued when the run started.
func (p *clickProcessor) ReplayDeadLetters(ctx context.Context, limit int) (int, error) {
	pending, err := p.deadLetters.Len(ctx)
	if err != nil {
		return 0, err
	}
	if int64(limit) > pending {
		limit = int(pending)
	}

	replayed := 0
	for range limit {
		if err := ctx.Err(); err != nil {
			return replayed, err
		}

		letter, err := p.deadLetters.Pop(ctx)
		if err != nil {
			return replayed, err
		}
		if letter == nil {
			break
		}

		err = p.execTask(ctx, letter.Task, &letter.Event)
		switch {
		case err == nil:
			replayed++
		case isPermanent(err):
			p.logger.Info("discarding dead letter for missing target",
				zap.String("task", string(letter.Task)),
				zap.Int64("link_id", letter.Event.LinkID),
			)
		default:
			letter.Replays++
			letter.Error = err.Error()
			letter.FailedAt = time.Now()
			if pushErr := p.deadLetters.Push(context.WithoutCancel(ctx), letter); pushErr != nil {
				return replayed, errors.Join(err, pushErr)
			}
		}
	}

	return replayed, nil
}

// Stats reports the channel usage for monitoring.
func (p *clickProcessor) Stats() QueueStats {
	return QueueStats{
		BufferSize:  cap(p.clickChannel),
		BufferUsed:  len(p.clickChannel),
		WorkerCount: p.cfg.Workers,
	}
}

func tasksFor(event *models.ClickEvent) []models.ClickTask {
	tasks := []models.ClickTask{models.TaskRecordClick, models.TaskIncrementLink}
	if event.MatchedRuleID != nil {
		tasks = append(tasks, models.TaskIncrementRule)
	}
	return tasks
}

// isPermanent reports errors that retrying cannot fix, such as a link deleted after the redirect.
func isPermanent(err error) bool {
	return errors.Is(err, repository.ErrLinkNotFound) || errors.Is(err, repository.ErrRuleNotFound)
}
