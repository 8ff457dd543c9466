package memory

import (
	"testing"

	"github.com/ichigozero/todocal/tasksvc"
	"github.com/ichigozero/todocal/tasksvc/db/dbtest"
)

func TestTaskRepository(t *testing.T) {
	dbtest.TestTaskRepository(t, func(*testing.T) tasksvc.TaskRepository {
		return NewTaskRepository()
	})
}
