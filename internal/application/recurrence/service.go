package recurrence

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"golang.org/x/sync/singleflight"

	domainRecurrence "github.com/turtacn/taskboard/internal/domain/recurrence"
	"github.com/turtacn/taskboard/internal/domain/task"
	"github.com/turtacn/taskboard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/taskboard/pkg/errors"
)

// Service is the recurrence use-case surface called by the HTTP and CLI
// layers.
type Service interface {
	CompleteRecurring(ctx context.Context, req *CompleteRequest) (*CompleteResponse, error)
	SkipOccurrence(ctx context.Context, taskID string) (*SkipResponse, error)
	Summary(ctx context.Context, taskID string) (*SummaryResponse, error)
	Preview(ctx context.Context, req *PreviewRequest) (*PreviewResponse, error)
}

// ServiceConfig holds tunables.
type ServiceConfig struct {
	DefaultAction   Disposition
	PreviewMaxCount int
	SummaryTTL      time.Duration
}

// Event types published on the activity topic.
const (
	EventCompleted = "task.recurrence.completed"
	EventSkipped   = "task.recurrence.skipped"
)

// ActivityEvent is the payload published after a lifecycle step commits.
type ActivityEvent struct {
	Type        string    `json:"type"`
	TaskID      string    `json:"task_id"`
	RootID      string    `json:"root_id"`
	BoardID     string    `json:"board_id"`
	Outcome     Outcome   `json:"outcome"`
	Action      string    `json:"action,omitempty"`
	NextTaskID  string    `json:"next_task_id,omitempty"`
	NextDueDate string    `json:"next_due_date,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// EventType reports the activity type for the event envelope.
func (e *ActivityEvent) EventType() string { return e.Type }

const (
	summaryKeyPrefix = "recurrence-summary:"
	lockKeyPrefix    = "recurrence-lock:"
)

var errCacheDisabled = errors.New(errors.ErrCodeCacheError, "cache disabled")

// SummaryKey is the cache key of the summary view of taskID.
func SummaryKey(taskID string) string { return summaryKeyPrefix + taskID }

// LockKey is the lock name guarding lifecycle steps on taskID.
func LockKey(taskID string) string { return lockKeyPrefix + taskID }

// ServiceOption customises a Service.
type ServiceOption func(*serviceImpl)

// WithSeriesLocker makes complete and skip hold a lock on the task while they
// run, so two replicas cannot spawn the same occurrence twice.
func WithSeriesLocker(l SeriesLocker) ServiceOption {
	return func(s *serviceImpl) {
		if l != nil {
			s.locker = l
		}
	}
}

type serviceImpl struct {
	repo      task.Repository
	engine    *Engine
	cache     SummaryCache
	publisher EventPublisher
	metrics   Metrics
	locker    SeriesLocker
	log       logging.Logger
	cfg       ServiceConfig
	summaries singleflight.Group
}

// NewService constructs a Service.  cache, publisher and metrics may be nil.
func NewService(
	repo task.Repository,
	engine *Engine,
	cache SummaryCache,
	publisher EventPublisher,
	metrics Metrics,
	log logging.Logger,
	cfg ServiceConfig,
	opts ...ServiceOption,
) Service {
	if engine == nil {
		engine = NewEngine(nil)
	}
	if cache == nil {
		cache = nopCache{}
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	if cfg.DefaultAction == "" {
		cfg.DefaultAction = DispositionArchive
	}
	if cfg.PreviewMaxCount <= 0 {
		cfg.PreviewMaxCount = 50
	}
	if cfg.SummaryTTL <= 0 {
		cfg.SummaryTTL = 10 * time.Minute
	}
	s := &serviceImpl{
		repo:      repo,
		engine:    engine,
		cache:     cache,
		publisher: publisher,
		metrics:   metrics,
		locker:    nopLocker{},
		log:       log.Named("recurrence"),
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ─────────────────────────────────────────────────────────────────────────────
// Complete
// ─────────────────────────────────────────────────────────────────────────────

// CompleteRecurring spawns the next occurrence of the task and then applies
// the requested disposition to it, in one store transaction.  When the series
// has ended and the task survives the disposition, its rule is cleared.
func (s *serviceImpl) CompleteRecurring(ctx context.Context, req *CompleteRequest) (*CompleteResponse, error) {
	start := time.Now()
	if req == nil || req.TaskID == "" {
		return nil, errors.InvalidParam("task id is required")
	}
	action, err := ParseDisposition(req.Action, s.cfg.DefaultAction)
	if err != nil {
		return nil, err
	}
	if action == DispositionComplete && req.DoneColumnID == "" {
		return nil, errors.New(errors.ErrCodeDispositionInvalid, "done_column_id is required for action complete")
	}

	release, err := s.locker.Acquire(ctx, LockKey(req.TaskID))
	if err != nil {
		s.observe("complete", "", start, err)
		return nil, s.logFailure("lock task failed", req.TaskID, err)
	}
	defer release()

	var (
		current *task.Task
		result  *SpawnResult
	)
	err = s.repo.WithTx(ctx, func(tx task.Repository) error {
		t, err := tx.GetByID(ctx, req.TaskID)
		if err != nil {
			return err
		}
		current = t

		if action == DispositionComplete {
			ok, err := tx.ColumnExists(ctx, t.BoardID, req.DoneColumnID)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New(errors.ErrCodeColumnNotFound, "done column not found on the task's board").
					WithDetail("column_id=" + req.DoneColumnID)
			}
		}

		result, err = s.engine.Spawn(ctx, tx, t)
		if err != nil {
			return err
		}
		return s.dispose(ctx, tx, t, action, req.DoneColumnID, result.Outcome.Ended())
	})
	if err != nil {
		s.observe("complete", "", start, err)
		return nil, s.logFailure("complete recurring task failed", req.TaskID, err)
	}
	s.observe("complete", result.Outcome, start, nil)

	s.invalidate(ctx, current.ID, current.RootID())

	resp := &CompleteResponse{
		CompletedTaskID: current.ID,
		Action:          action,
		Outcome:         result.Outcome,
		SeriesEnded:     result.Outcome.Ended(),
		NextTask:        NewTaskDTO(result.Next),
	}
	if resp.SeriesEnded {
		resp.Reason = result.Outcome.Message(nil)
	}

	ev := &ActivityEvent{
		Type:       EventCompleted,
		TaskID:     current.ID,
		RootID:     current.RootID(),
		BoardID:    current.BoardID,
		Outcome:    result.Outcome,
		Action:     string(action),
		OccurredAt: s.engine.now().UTC(),
	}
	if result.Next != nil {
		ev.NextTaskID = result.Next.ID
		ev.NextDueDate = deref(dateString(result.Next.DueDate))
	}
	s.publish(ctx, ev)

	s.log.Info("recurring task completed",
		logging.String(logging.FieldTaskID, current.ID),
		logging.String(logging.FieldRootID, current.RootID()),
		logging.String(logging.FieldOutcome, string(result.Outcome)),
		logging.String("action", string(action)))
	return resp, nil
}

func (s *serviceImpl) dispose(ctx context.Context, tx task.Repository, t *task.Task, action Disposition, doneColumnID string, ended bool) error {
	done := true
	var p task.Patch
	switch action {
	case DispositionDelete:
		return tx.Delete(ctx, t.ID)
	case DispositionArchive:
		archived := true
		p = task.Patch{Completed: &done, Archived: &archived}
	case DispositionComplete:
		col := doneColumnID
		p = task.Patch{Completed: &done, ColumnID: &col}
	}
	p.ClearRecurrence = ended
	_, err := tx.Update(ctx, t.ID, p)
	return err
}

// ─────────────────────────────────────────────────────────────────────────────
// Skip
// ─────────────────────────────────────────────────────────────────────────────

// SkipOccurrence advances the task to its next occurrence without creating a
// new row.
func (s *serviceImpl) SkipOccurrence(ctx context.Context, taskID string) (*SkipResponse, error) {
	start := time.Now()
	if taskID == "" {
		return nil, errors.InvalidParam("task id is required")
	}

	release, err := s.locker.Acquire(ctx, LockKey(taskID))
	if err != nil {
		s.observe("skip", "", start, err)
		return nil, s.logFailure("lock task failed", taskID, err)
	}
	defer release()

	var result *SkipResult
	err = s.repo.WithTx(ctx, func(tx task.Repository) error {
		t, err := tx.GetByID(ctx, taskID)
		if err != nil {
			return err
		}
		result, err = s.engine.Skip(ctx, tx, t)
		return err
	})
	if err != nil {
		s.observe("skip", "", start, err)
		return nil, s.logFailure("skip occurrence failed", taskID, err)
	}
	s.observe("skip", result.Outcome, start, nil)

	updated := result.Task
	s.invalidate(ctx, updated.ID, updated.RootID())
	s.publish(ctx, &ActivityEvent{
		Type:        EventSkipped,
		TaskID:      updated.ID,
		RootID:      updated.RootID(),
		BoardID:     updated.BoardID,
		Outcome:     result.Outcome,
		NextDueDate: deref(dateString(result.NextDue)),
		OccurredAt:  s.engine.now().UTC(),
	})

	s.log.Info("occurrence skipped",
		logging.String(logging.FieldTaskID, updated.ID),
		logging.String(logging.FieldOutcome, string(result.Outcome)))

	return &SkipResponse{
		Outcome:     result.Outcome,
		Message:     result.Outcome.Message(result.NextDue),
		NextDueDate: dateString(result.NextDue),
		Task:        NewTaskDTO(updated),
	}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Summary & preview
// ─────────────────────────────────────────────────────────────────────────────

// Summary returns the recurrence-summary view of a task, served from the
// cache when present.  Concurrent misses for one task share a single load.
func (s *serviceImpl) Summary(ctx context.Context, taskID string) (*SummaryResponse, error) {
	if taskID == "" {
		return nil, errors.InvalidParam("task id is required")
	}

	key := SummaryKey(taskID)
	var cached SummaryResponse
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	v, err, _ := s.summaries.Do(key, func() (interface{}, error) {
		t, err := s.repo.GetByID(ctx, taskID)
		if err != nil {
			return nil, err
		}
		resp := BuildSummary(t)
		if err := s.cache.Set(ctx, key, resp, s.cfg.SummaryTTL); err != nil {
			s.log.Warn("cache summary failed", logging.String(logging.FieldTaskID, taskID), logging.Err(err))
		}
		return resp, nil
	})
	if err != nil {
		return nil, s.logFailure("load task for summary failed", taskID, err)
	}
	resp := *v.(*SummaryResponse)
	return &resp, nil
}

// BuildSummary renders the summary view of t.
func BuildSummary(t *task.Task) *SummaryResponse {
	resp := &SummaryResponse{
		IsRecurring:    t.IsRecurring(),
		CompletedCount: t.RecurrenceCompletedCount,
	}
	if !resp.IsRecurring {
		return resp
	}
	resp.Summary = domainRecurrence.Summarize(t.RecurrenceRule)
	resp.Rule = ruleSpec(t.RecurrenceRule)
	resp.EndDate = dateString(t.RecurrenceEndDate)
	if t.RecurrenceCount != nil {
		n := *t.RecurrenceCount
		resp.Count = &n
	}
	return resp
}

// Preview validates a rule and lists its next occurrences.  Count is capped
// at PreviewMaxCount.
func (s *serviceImpl) Preview(_ context.Context, req *PreviewRequest) (*PreviewResponse, error) {
	if req == nil {
		return nil, errors.InvalidParam("request must not be nil")
	}
	rule, err := domainRecurrence.Parse(req.Rule)
	if err != nil {
		return nil, err
	}

	from := s.engine.Today()
	if req.From != "" {
		from, err = civil.ParseDate(req.From)
		if err != nil {
			return nil, errors.InvalidParam("from must be a YYYY-MM-DD date").WithDetail(req.From)
		}
	}

	n := req.Count
	switch {
	case n < 0:
		return nil, errors.InvalidParam("count must not be negative")
	case n == 0:
		n = DefaultPreviewCount
	case n > s.cfg.PreviewMaxCount:
		n = s.cfg.PreviewMaxCount
	}

	resp := &PreviewResponse{
		Summary: domainRecurrence.Summarize(rule),
		From:    from.String(),
		Dates:   make([]string, 0, n),
	}
	for _, d := range domainRecurrence.Occurrences(from, rule, n) {
		resp.Dates = append(resp.Dates, d.String())
	}
	return resp, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func (s *serviceImpl) invalidate(ctx context.Context, ids ...string) {
	keys := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		keys = append(keys, SummaryKey(id))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.log.Warn("invalidate summary cache failed", logging.Err(err))
	}
}

// publish never fails the operation; the store write has already committed.
func (s *serviceImpl) publish(ctx context.Context, ev *ActivityEvent) {
	if err := s.publisher.Publish(ctx, ev.RootID, ev); err != nil {
		s.log.Warn("publish activity event failed",
			logging.String(logging.FieldTaskID, ev.TaskID),
			logging.String("event_type", ev.Type),
			logging.Err(err))
	}
}

func (s *serviceImpl) observe(op string, outcome Outcome, start time.Time, err error) {
	label := string(outcome)
	if err != nil {
		label = "error"
		if isUsageError(err) {
			label = "rejected"
		}
	}
	s.metrics.ObserveOperation(op, label, time.Since(start))
}

func isUsageError(err error) bool {
	return errors.IsValidation(err) || errors.IsNotFound(err) || errors.IsConflict(err)
}

// logFailure logs store failures at Error and returns err unchanged.  Usage
// errors are not logged.
func (s *serviceImpl) logFailure(msg, taskID string, err error) error {
	if isUsageError(err) {
		return err
	}
	s.log.WithError(err).Error(msg, logging.String(logging.FieldTaskID, taskID))
	return err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

//Personal.AI order the ending
