// Package dbtest holds the behaviour every tasksvc.TaskRepository must share.
package dbtest

import (
	"testing"
	"time"

	"github.com/ichigozero/todocal/tasksvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func task(id, userID, title string, date time.Time) tasksvc.Task {
	return tasksvc.Task{
		ID:        id,
		UserID:    userID,
		Title:     title,
		Date:      date,
		Priority:  tasksvc.PriorityMedium,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// TestTaskRepository runs the repository contract against a fresh store.
func TestTaskRepository(t *testing.T, newRepo func(t *testing.T) tasksvc.TaskRepository) {
	march := func(day, hour int) time.Time {
		return time.Date(2024, time.March, day, hour, 0, 0, 0, time.UTC)
	}

	t.Run("create and find", func(t *testing.T) {
		repo := newRepo(t)

		created, err := repo.Create(task("t1", "u1", "write report", march(15, 9)))
		require.NoError(t, err)
		assert.Equal(t, "t1", created.ID)

		found, err := repo.Find("u1", "t1")
		require.NoError(t, err)
		assert.Equal(t, "write report", found.Title)
		assert.True(t, found.Date.Equal(march(15, 9)))
	})

	t.Run("find all sorted by due date", func(t *testing.T) {
		repo := newRepo(t)

		for _, tk := range []tasksvc.Task{
			task("t1", "u1", "late", march(20, 9)),
			task("t2", "u1", "early", march(1, 9)),
			task("t3", "u1", "middle", march(10, 9)),
		} {
			_, err := repo.Create(tk)
			require.NoError(t, err)
		}

		tasks, err := repo.FindAll("u1")
		require.NoError(t, err)
		require.Len(t, tasks, 3)
		assert.Equal(t, []string{"t2", "t3", "t1"}, ids(tasks))
	})

	t.Run("find all sorted by instant across offsets", func(t *testing.T) {
		repo := newRepo(t)
		plus5 := time.FixedZone("UTC+5", 5*60*60)

		_, err := repo.Create(task("b", "u1", "six utc", march(1, 6)))
		require.NoError(t, err)
		_, err = repo.Create(task("a", "u1", "five utc", time.Date(2024, time.March, 1, 10, 0, 0, 0, plus5)))
		require.NoError(t, err)

		tasks, err := repo.FindAll("u1")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, ids(tasks))
		assert.True(t, tasks[0].Date.Equal(march(1, 5)))
	})

	t.Run("owner scope", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.Create(task("t1", "u1", "mine", march(1, 9)))
		require.NoError(t, err)
		_, err = repo.Create(task("t2", "u2", "theirs", march(2, 9)))
		require.NoError(t, err)

		tasks, err := repo.FindAll("u1")
		require.NoError(t, err)
		assert.Equal(t, []string{"t1"}, ids(tasks))

		_, err = repo.Find("u1", "t2")
		assert.ErrorIs(t, err, tasksvc.ErrTaskNotFound)

		assert.ErrorIs(t, repo.Delete("u1", "t2"), tasksvc.ErrTaskNotFound)

		other := task("t2", "u1", "hijack", march(2, 9))
		_, err = repo.Update(other)
		assert.ErrorIs(t, err, tasksvc.ErrTaskNotFound)

		all, err := repo.FindAll("")
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("update", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.Create(task("t1", "u1", "draft", march(1, 9)))
		require.NoError(t, err)

		changed := task("t1", "u1", "final", march(2, 10))
		changed.Completed = true
		changed.Priority = tasksvc.PriorityHigh

		updated, err := repo.Update(changed)
		require.NoError(t, err)
		assert.Equal(t, "final", updated.Title)

		found, err := repo.Find("u1", "t1")
		require.NoError(t, err)
		assert.Equal(t, "final", found.Title)
		assert.True(t, found.Completed)
		assert.Equal(t, tasksvc.PriorityHigh, found.Priority)
		assert.True(t, found.Date.Equal(march(2, 10)))
	})

	t.Run("delete", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.Create(task("t1", "u1", "a", march(1, 9)))
		require.NoError(t, err)
		_, err = repo.Create(task("t2", "u1", "b", march(2, 9)))
		require.NoError(t, err)

		require.NoError(t, repo.Delete("u1", "t1"))

		assert.ErrorIs(t, repo.Delete("u1", "t1"), tasksvc.ErrTaskNotFound)
		assert.ErrorIs(t, repo.Delete("u1", "missing"), tasksvc.ErrTaskNotFound)

		tasks, err := repo.FindAll("u1")
		require.NoError(t, err)
		assert.Equal(t, []string{"t2"}, ids(tasks))
	})

	t.Run("empty store", func(t *testing.T) {
		repo := newRepo(t)

		tasks, err := repo.FindAll("u1")
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})
}

func ids(tasks []tasksvc.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}
