package memory

import (
	"sort"
	"sync"

	"github.com/ichigozero/todocal/tasksvc"
)

type taskRepository struct {
	mtx   sync.RWMutex
	tasks []tasksvc.Task
}

func NewTaskRepository() tasksvc.TaskRepository {
	return &taskRepository{}
}

func (r *taskRepository) Create(task tasksvc.Task) (tasksvc.Task, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.tasks = append(r.tasks, task)
	return task, nil
}

func (r *taskRepository) FindAll(userID string) ([]tasksvc.Task, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	return Select(r.tasks, userID), nil
}

func (r *taskRepository) Find(userID, taskID string) (tasksvc.Task, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	i := Index(r.tasks, userID, taskID)
	if i < 0 {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}
	return r.tasks[i], nil
}

func (r *taskRepository) Update(task tasksvc.Task) (tasksvc.Task, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	i := Index(r.tasks, task.UserID, task.ID)
	if i < 0 {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}
	r.tasks[i] = task
	return task, nil
}

func (r *taskRepository) Delete(userID, taskID string) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	i := Index(r.tasks, userID, taskID)
	if i < 0 {
		return tasksvc.ErrTaskNotFound
	}
	r.tasks = append(r.tasks[:i], r.tasks[i+1:]...)
	return nil
}

// Select returns a copy of the tasks visible to userID ordered by due date.
// An empty userID selects every task. Ties keep their stored order.
func Select(tasks []tasksvc.Task, userID string) []tasksvc.Task {
	scope := tasksvc.Auth{UserID: userID}

	out := make([]tasksvc.Task, 0, len(tasks))
	for _, t := range tasks {
		if scope.Owns(t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// Index returns the position of taskID within the scope of userID, or -1.
func Index(tasks []tasksvc.Task, userID, taskID string) int {
	scope := tasksvc.Auth{UserID: userID}
	for i, t := range tasks {
		if t.ID == taskID && scope.Owns(t) {
			return i
		}
	}
	return -1
}
