package gorm

import (
	"errors"
	"fmt"

	"github.com/ichigozero/todocal/tasksvc"
	stdgorm "gorm.io/gorm"
)

type taskRepository struct {
	db *stdgorm.DB
}

func NewTaskRepository(db *stdgorm.DB) tasksvc.TaskRepository {
	return &taskRepository{db}
}

func (t taskRepository) Create(task tasksvc.Task) (tasksvc.Task, error) {
	// sqlite orders due_at as text, so every row is stored in UTC.
	task.Date = task.Date.UTC()
	task.CreatedAt = task.CreatedAt.UTC()
	result := t.db.Create(&task)
	if result.Error != nil {
		return tasksvc.Task{}, storageErr(result.Error)
	}
	return task, nil
}

func (t taskRepository) FindAll(userID string) ([]tasksvc.Task, error) {
	tasks := []tasksvc.Task{}
	result := scope(t.db, userID).Order("due_at asc, created_at asc").Find(&tasks)
	if result.Error != nil {
		return nil, storageErr(result.Error)
	}
	return tasks, nil
}

func (t taskRepository) Find(userID, taskID string) (tasksvc.Task, error) {
	var task tasksvc.Task
	result := scope(t.db, userID).Where("id = ?", taskID).First(&task)
	if errors.Is(result.Error, stdgorm.ErrRecordNotFound) {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}
	if result.Error != nil {
		return tasksvc.Task{}, storageErr(result.Error)
	}
	return task, nil
}

func (t taskRepository) Update(task tasksvc.Task) (tasksvc.Task, error) {
	task.Date = task.Date.UTC()
	result := scope(t.db.Model(&tasksvc.Task{}), task.UserID).
		Where("id = ?", task.ID).
		Updates(map[string]interface{}{
			"title":       task.Title,
			"description": task.Description,
			"due_at":      task.Date,
			"priority":    task.Priority,
			"completed":   task.Completed,
		})
	if result.Error != nil {
		return tasksvc.Task{}, storageErr(result.Error)
	}
	if result.RowsAffected == 0 {
		return t.Find(task.UserID, task.ID)
	}
	return task, nil
}

func (t taskRepository) Delete(userID, taskID string) error {
	result := scope(t.db, userID).Where("id = ?", taskID).Delete(&tasksvc.Task{})
	if result.Error != nil {
		return storageErr(result.Error)
	}
	if result.RowsAffected == 0 {
		return tasksvc.ErrTaskNotFound
	}
	return nil
}

func scope(db *stdgorm.DB, userID string) *stdgorm.DB {
	if userID == "" {
		return db
	}
	return db.Where("user_id = ?", userID)
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %v", tasksvc.ErrStorage, err)
}
