package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"taskflow-backend/internal/task/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// gormTaskRepository implements TaskRepository using GORM
type gormTaskRepository struct {
	db *gorm.DB
	// rowLocks is set for dialects that understand SELECT ... FOR UPDATE
	rowLocks bool
}

// NewGormTaskRepository creates a new GORM-based TaskRepository
func NewGormTaskRepository(db *gorm.DB) (TaskRepository, error) {
	if err := db.AutoMigrate(&domain.Task{}); err != nil {
		return nil, fmt.Errorf("migrate tasks: %w", err)
	}
	return &gormTaskRepository{
		db:       db,
		rowLocks: db.Dialector.Name() == "postgres",
	}, nil
}

func (r *gormTaskRepository) Create(ctx context.Context, task *domain.Task) error {
	return createTask(r.db.WithContext(ctx), task)
}

func createTask(db *gorm.DB, task *domain.Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	now := time.Now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	task.Version = 1
	return db.Create(task).Error
}

func (r *gormTaskRepository) FindByID(ctx context.Context, id, userID string) (*domain.Task, error) {
	return findTask(r.db.WithContext(ctx), id, userID)
}

func findTask(db *gorm.DB, id, userID string) (*domain.Task, error) {
	var task domain.Task
	err := db.Where("id = ? AND user_id = ?", id, userID).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

func (r *gormTaskRepository) FindMany(ctx context.Context, filter TaskFilter, sort TaskSort) ([]*domain.Task, error) {
	var tasks []*domain.Task
	query := r.filtered(ctx, filter).Order(orderClause(sort))
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	err := query.Find(&tasks).Error
	return tasks, err
}

func (r *gormTaskRepository) Count(ctx context.Context, filter TaskFilter) (int64, error) {
	var total int64
	err := r.filtered(ctx, filter).Count(&total).Error
	return total, err
}

func (r *gormTaskRepository) filtered(ctx context.Context, filter TaskFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&domain.Task{}).Where("user_id = ?", filter.UserID)
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.StartAtNilOrFrom != nil {
		query = query.Where("start_at IS NULL OR start_at >= ?", *filter.StartAtNilOrFrom)
	}
	return query
}

func orderClause(sort TaskSort) string {
	dir := "ASC"
	if sort.Desc {
		dir = "DESC"
	}
	switch sort.Field {
	case SortByCreatedAt:
		return "created_at " + dir + ", id ASC"
	case SortByUpdatedAt:
		return "updated_at " + dir + ", id ASC"
	default:
		// due_date nulls last, then created_at
		return "CASE WHEN due_date IS NULL THEN 1 ELSE 0 END, due_date " + dir + ", created_at DESC, id ASC"
	}
}

func (r *gormTaskRepository) Save(ctx context.Context, task *domain.Task) error {
	return saveTask(r.db.WithContext(ctx), task)
}

// saveTask is a compare-and-swap on Version
func saveTask(db *gorm.DB, task *domain.Task) error {
	prev := task.Version
	task.Version = prev + 1
	task.UpdatedAt = time.Now()

	res := db.Model(task).
		Where("user_id = ? AND version = ?", task.UserID, prev).
		Select("*").Omit("id", "user_id", "created_at").
		Updates(task)
	if res.Error != nil {
		task.Version = prev
		return res.Error
	}
	if res.RowsAffected == 0 {
		task.Version = prev
		return domain.ErrConcurrencyConflict
	}
	return nil
}

func (r *gormTaskRepository) Delete(ctx context.Context, id, userID string) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&domain.Task{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *gormTaskRepository) WithTaskLock(ctx context.Context, id, userID string, fn func(task *domain.Task, tx TaskWriter) error) (*domain.Task, error) {
	var saved *domain.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := r.apply(tx, id, userID, fn)
		saved = task
		return err
	})
	if errors.Is(err, gorm.ErrNotImplemented) || errors.Is(err, gorm.ErrInvalidTransaction) {
		// Store without transactions: the version check is the only guard left
		log.Printf("[TaskRepo] Transactions unavailable (%v), falling back to direct update for task %s", err, id)
		return r.apply(r.db.WithContext(ctx), id, userID, fn)
	}
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (r *gormTaskRepository) apply(db *gorm.DB, id, userID string, fn func(task *domain.Task, tx TaskWriter) error) (*domain.Task, error) {
	read := db
	if r.rowLocks {
		read = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	task, err := findTask(read, id, userID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}

	writer := &gormTaskWriter{db: db}
	if err := fn(task, writer); err != nil {
		return nil, err
	}
	if err := saveTask(db, task); err != nil {
		return nil, err
	}
	return task, nil
}

type gormTaskWriter struct {
	db *gorm.DB
}

func (w *gormTaskWriter) Create(task *domain.Task) error {
	return createTask(w.db, task)
}
