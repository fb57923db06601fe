package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jing2uo/finfo2db/database"
)

type recorder struct {
	mu    sync.Mutex
	order []string
}

func (r *recorder) task(name string, deps []string, err error) *Task {
	return &Task{
		Name:      name,
		DependsOn: deps,
		Executor: func(ctx context.Context, db database.DataRepository, args *TaskArgs) (*TaskResult, error) {
			r.mu.Lock()
			r.order = append(r.order, name)
			r.mu.Unlock()
			if err != nil {
				return nil, err
			}
			return &TaskResult{State: StateCompleted}, nil
		},
	}
}

func indexIn(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func TestRunRespectsDependencies(t *testing.T) {
	rec := &recorder{}
	tasks := map[string]*Task{
		"a": rec.task("a", nil, nil),
		"b": rec.task("b", []string{"a"}, nil),
		"c": rec.task("c", []string{"a", "b"}, nil),
	}

	results, err := NewTaskExecutor(nil, tasks).Run(context.Background(), []string{"c", "b", "a"}, &TaskArgs{})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, rec.order)
	for _, name := range []string{"a", "b", "c"} {
		assert.Equal(t, StateCompleted, results[name].State)
	}
}

func TestRunIgnoresUnscheduledDependencies(t *testing.T) {
	rec := &recorder{}
	tasks := map[string]*Task{
		"a": rec.task("a", nil, nil),
		"b": rec.task("b", []string{"a"}, nil),
	}

	_, err := NewTaskExecutor(nil, tasks).Run(context.Background(), []string{"b"}, &TaskArgs{})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, rec.order)
}

func TestRunSkipCondition(t *testing.T) {
	rec := &recorder{}
	skipped := rec.task("b", []string{"a"}, nil)
	skipped.SkipIf = func(ctx context.Context, db database.DataRepository, args *TaskArgs) bool {
		return args.ExportDir == ""
	}
	tasks := map[string]*Task{
		"a": rec.task("a", nil, nil),
		"b": skipped,
		"c": rec.task("c", []string{"b"}, nil),
	}

	results, err := NewTaskExecutor(nil, tasks).Run(context.Background(), []string{"a", "b", "c"}, &TaskArgs{})
	require.NoError(t, err)

	assert.Equal(t, StateSkipped, results["b"].State)
	assert.Equal(t, StateCompleted, results["c"].State)
	assert.Equal(t, -1, indexIn(rec.order, "b"))
}

func TestRunStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	rec := &recorder{}
	always := rec.task("log", []string{"a"}, nil)
	always.RunAlways = true
	tasks := map[string]*Task{
		"a":   rec.task("a", nil, boom),
		"b":   rec.task("b", []string{"a"}, nil),
		"log": always,
	}

	results, err := NewTaskExecutor(nil, tasks).Run(context.Background(), []string{"a", "b", "log"}, &TaskArgs{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, StateFailed, results["a"].State)
	assert.Equal(t, StateCanceled, results["b"].State)
	assert.Equal(t, StateCompleted, results["log"].State)
	assert.Equal(t, []string{"a", "log"}, rec.order)
}

func TestRunSkipModeContinuesIndependentTasks(t *testing.T) {
	rec := &recorder{}
	soft := rec.task("soft", nil, errors.New("warn"))
	soft.OnError = ErrorModeSkip
	tasks := map[string]*Task{
		"soft":  soft,
		"child": rec.task("child", []string{"soft"}, nil),
		"other": rec.task("other", nil, nil),
		"last":  rec.task("last", []string{"other"}, nil),
	}

	results, err := NewTaskExecutor(nil, tasks).Run(context.Background(), []string{"soft", "child", "other", "last"}, &TaskArgs{})
	require.NoError(t, err)

	assert.Equal(t, StateFailed, results["soft"].State)
	assert.Equal(t, StateCanceled, results["child"].State)
	assert.Equal(t, StateCompleted, results["last"].State)
}

func TestRunCancelledContextStillRunsAlwaysTasks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &recorder{}
	always := rec.task("log", nil, nil)
	always.RunAlways = true
	tasks := map[string]*Task{
		"a":   rec.task("a", nil, nil),
		"log": always,
	}

	results, err := NewTaskExecutor(nil, tasks).Run(ctx, []string{"a", "log"}, &TaskArgs{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateCanceled, results["a"].State)
	assert.Equal(t, StateCompleted, results["log"].State)
}

func TestRunRejectsUnknownAndCyclicTasks(t *testing.T) {
	rec := &recorder{}
	tasks := map[string]*Task{
		"a": rec.task("a", []string{"b"}, nil),
		"b": rec.task("b", []string{"a"}, nil),
	}
	te := NewTaskExecutor(nil, tasks)

	_, err := te.Run(context.Background(), []string{"missing"}, &TaskArgs{})
	assert.Error(t, err)

	_, err = te.Run(context.Background(), []string{"a", "b"}, &TaskArgs{})
	assert.Error(t, err)
	assert.Empty(t, rec.order)
}

func TestTaskNames(t *testing.T) {
	te := NewTaskExecutor(nil, DailyTasks())
	assert.Equal(t, []string{NameExportPrices, NameRecordRun, NameSyncPrices}, te.GetTaskNames())
	assert.True(t, te.HasTask(NameRecordRun))
	assert.False(t, te.HasTask("update_daily"))
}
