package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"taskflow-backend/internal/task/domain"

	"github.com/google/uuid"
)

// memoryTaskRepository keeps tasks in process memory. WithTaskLock is a
// per-task mutex, which is enough for single-node deployments and tests.
type memoryTaskRepository struct {
	mu    sync.RWMutex
	tasks map[string]*domain.Task
	order []string

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewMemoryTaskRepository creates an empty in-memory TaskRepository
func NewMemoryTaskRepository() TaskRepository {
	return &memoryTaskRepository{
		tasks: make(map[string]*domain.Task),
		locks: make(map[string]*sync.Mutex),
	}
}

func (r *memoryTaskRepository) Create(ctx context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createLocked(task)
	return nil
}

func (r *memoryTaskRepository) createLocked(task *domain.Task) {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	now := time.Now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	task.Version = 1
	if _, exists := r.tasks[task.ID]; !exists {
		r.order = append(r.order, task.ID)
	}
	r.tasks[task.ID] = task.Clone()
}

func (r *memoryTaskRepository) FindByID(ctx context.Context, id, userID string) (*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.tasks[id]
	if !ok || task.UserID != userID {
		return nil, nil
	}
	return task.Clone(), nil
}

func (r *memoryTaskRepository) FindMany(ctx context.Context, filter TaskFilter, s TaskSort) ([]*domain.Task, error) {
	matched := r.match(filter)
	sort.SliceStable(matched, func(i, j int) bool {
		return less(matched[i], matched[j], s)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []*domain.Task{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (r *memoryTaskRepository) Count(ctx context.Context, filter TaskFilter) (int64, error) {
	return int64(len(r.match(filter))), nil
}

func (r *memoryTaskRepository) match(filter TaskFilter) []*domain.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*domain.Task{}
	for _, id := range r.order {
		task, ok := r.tasks[id]
		if !ok || task.UserID != filter.UserID {
			continue
		}
		if len(filter.Statuses) > 0 && !hasStatus(filter.Statuses, task.Status) {
			continue
		}
		if from := filter.StartAtNilOrFrom; from != nil && task.StartAt != nil && task.StartAt.Before(*from) {
			continue
		}
		out = append(out, task.Clone())
	}
	return out
}

func hasStatus(statuses []domain.TaskStatus, s domain.TaskStatus) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}

func less(a, b *domain.Task, s TaskSort) bool {
	switch s.Field {
	case SortByCreatedAt:
		return timeLess(a.CreatedAt, b.CreatedAt, s.Desc)
	case SortByUpdatedAt:
		return timeLess(a.UpdatedAt, b.UpdatedAt, s.Desc)
	default:
		if (a.DueDate == nil) != (b.DueDate == nil) {
			return a.DueDate != nil
		}
		if a.DueDate != nil && !a.DueDate.Equal(*b.DueDate) {
			return timeLess(*a.DueDate, *b.DueDate, s.Desc)
		}
		return a.CreatedAt.After(b.CreatedAt)
	}
}

func timeLess(a, b time.Time, desc bool) bool {
	if desc {
		return a.After(b)
	}
	return a.Before(b)
}

func (r *memoryTaskRepository) Save(ctx context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveLocked(task)
}

func (r *memoryTaskRepository) saveLocked(task *domain.Task) error {
	current, ok := r.tasks[task.ID]
	if !ok || current.UserID != task.UserID {
		return domain.ErrTaskNotFound
	}
	if current.Version != task.Version {
		return domain.ErrConcurrencyConflict
	}
	task.Version++
	task.UpdatedAt = time.Now()
	task.CreatedAt = current.CreatedAt
	r.tasks[task.ID] = task.Clone()
	return nil
}

func (r *memoryTaskRepository) Delete(ctx context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok || task.UserID != userID {
		return domain.ErrTaskNotFound
	}
	delete(r.tasks, id)
	r.locksMu.Lock()
	delete(r.locks, id)
	r.locksMu.Unlock()
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *memoryTaskRepository) WithTaskLock(ctx context.Context, id, userID string, fn func(task *domain.Task, tx TaskWriter) error) (*domain.Task, error) {
	lock := r.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	task, err := r.FindByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}

	writer := &memoryTaskWriter{}
	if err := fn(task, writer); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.saveLocked(task); err != nil {
		return nil, err
	}
	for _, created := range writer.created {
		r.createLocked(created)
	}
	return task, nil
}

func (r *memoryTaskRepository) lockFor(id string) *sync.Mutex {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()
	l, ok := r.locks[id]
	if !ok {
		l = &sync.Mutex{}
		r.locks[id] = l
	}
	return l
}

// memoryTaskWriter buffers creates until the locked update commits
type memoryTaskWriter struct {
	created []*domain.Task
}

func (w *memoryTaskWriter) Create(task *domain.Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	w.created = append(w.created, task)
	return nil
}
