package jsonfile

import (
	"fmt"
	"sync"

	"github.com/ichigozero/todocal/storage/jsonfile"
	"github.com/ichigozero/todocal/tasksvc"
	"github.com/ichigozero/todocal/tasksvc/db/memory"
)

// taskRepository mirrors the collection to a single JSON array file. Each
// call reads the whole file and each mutation writes it back in full.
type taskRepository struct {
	mtx  sync.Mutex
	path string
}

func NewTaskRepository(path string) tasksvc.TaskRepository {
	return &taskRepository{path: path}
}

func (r *taskRepository) load() []tasksvc.Task {
	var tasks []tasksvc.Task
	jsonfile.Load(r.path, &tasks)
	return tasks
}

func (r *taskRepository) save(tasks []tasksvc.Task) error {
	if tasks == nil {
		tasks = []tasksvc.Task{}
	}
	if err := jsonfile.Save(r.path, tasks); err != nil {
		return fmt.Errorf("%w: %v", tasksvc.ErrStorage, err)
	}
	return nil
}

func (r *taskRepository) Create(task tasksvc.Task) (tasksvc.Task, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	tasks := append(r.load(), task)
	if err := r.save(tasks); err != nil {
		return tasksvc.Task{}, err
	}
	return task, nil
}

func (r *taskRepository) FindAll(userID string) ([]tasksvc.Task, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	return memory.Select(r.load(), userID), nil
}

func (r *taskRepository) Find(userID, taskID string) (tasksvc.Task, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	tasks := r.load()
	i := memory.Index(tasks, userID, taskID)
	if i < 0 {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}
	return tasks[i], nil
}

func (r *taskRepository) Update(task tasksvc.Task) (tasksvc.Task, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	tasks := r.load()
	i := memory.Index(tasks, task.UserID, task.ID)
	if i < 0 {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}
	tasks[i] = task
	if err := r.save(tasks); err != nil {
		return tasksvc.Task{}, err
	}
	return task, nil
}

func (r *taskRepository) Delete(userID, taskID string) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	tasks := r.load()
	i := memory.Index(tasks, userID, taskID)
	if i < 0 {
		return tasksvc.ErrTaskNotFound
	}
	return r.save(append(tasks[:i], tasks[i+1:]...))
}
