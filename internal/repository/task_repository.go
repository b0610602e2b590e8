package repository

import (
	"github.com/yukikurage/projecthub-api/internal/models"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// CreateAtColumnTail computes the next order index of the task's
// (project, status) column and creates the task, all in one transaction. The
// column rows are locked so two concurrent appends cannot compute the same
// index.
func (r *GormTaskRepository) CreateAtColumnTail(task *models.Task) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		next, err := nextOrderIndex(tx, task.ProjectID, task.Status)
		if err != nil {
			return err
		}

		task.OrderIndex = next
		return tx.Create(task).Error
	})
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// ListByProject lists a project's tasks ordered by order index. Ties are
// broken by ID, which matches insertion order.
func (r *GormTaskRepository) ListByProject(projectID uint64) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.db.Where("project_id = ?", projectID).
		Order("order_index ASC, id ASC").
		Preload("Assignee").
		Preload("Reporter").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListColumn lists one (project, status) column in board order
func (r *GormTaskRepository) ListColumn(projectID uint64, status models.TaskStatus) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.db.Where("project_id = ? AND status = ?", projectID, status).
		Order("order_index ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// Update updates a task
func (r *GormTaskRepository) Update(task *models.Task) error {
	return r.db.Save(task).Error
}

// SaveAtColumnTail re-appends the task at the tail of its current
// (project, status) column and saves it. Used when a status change moves the
// task into a different column.
func (r *GormTaskRepository) SaveAtColumnTail(task *models.Task) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		next, err := nextOrderIndex(tx, task.ProjectID, task.Status)
		if err != nil {
			return err
		}

		task.OrderIndex = next
		return tx.Save(task).Error
	})
}

// Delete soft deletes a task
func (r *GormTaskRepository) Delete(id uint64) error {
	return r.db.Delete(&models.Task{}, id).Error
}

// nextOrderIndex returns max(order_index)+1 for the column, or 0 when the
// column is empty. Must run inside a transaction; the project row lock
// serializes concurrent appends, so the aggregate itself reads unlocked.
func nextOrderIndex(tx *gorm.DB, projectID uint64, status models.TaskStatus) (int, error) {
	if err := lockProject(tx, projectID); err != nil {
		return 0, err
	}

	var max int
	err := tx.Model(&models.Task{}).
		Where("project_id = ? AND status = ?", projectID, status).
		Select("COALESCE(MAX(order_index), -1)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}
