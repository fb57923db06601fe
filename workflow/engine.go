package workflow

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jing2uo/finfo2db/database"
	"github.com/jing2uo/finfo2db/ingest"
)

// TaskState represents the state of a task execution
type TaskState string

const (
	StatePending   TaskState = "pending"
	StateRunning   TaskState = "running"
	StateCompleted TaskState = "completed"
	StateSkipped   TaskState = "skipped"
	StateFailed    TaskState = "failed"
	// StateCanceled 依赖失败或流程已中止, 任务未执行
	StateCanceled TaskState = "canceled"
)

// TaskResult holds the execution result of a task
type TaskResult struct {
	State   TaskState
	Rows    int
	Message string
	Error   error
}

type ErrorMode int

const (
	ErrorModeStop ErrorMode = iota
	ErrorModeSkip
)

// TaskFunc is the function that executes a task
type TaskFunc func(ctx context.Context, db database.DataRepository, args *TaskArgs) (*TaskResult, error)

// SkipCondition determines if a task should be skipped
type SkipCondition func(ctx context.Context, db database.DataRepository, args *TaskArgs) bool

// Task represents a unit of work with dependencies
type Task struct {
	Name      string
	DependsOn []string
	Executor  TaskFunc
	SkipIf    SkipCondition
	OnError   ErrorMode
	// RunAlways 依赖失败或流程中止后仍然执行, 使用不可取消的 ctx
	RunAlways bool
}

type TaskArgs struct {
	Options      ingest.RunOptions
	Fetcher      ingest.Fetcher
	Logger       *zap.Logger
	ExportDir    string
	ExportFormat string
	Today        time.Time

	// Outcome 由 sync_prices 写入, 下游任务读取
	Outcome *ingest.Outcome
}

// TaskExecutor manages and executes tasks with dependency resolution
type TaskExecutor struct {
	db    database.DataRepository
	tasks map[string]*Task
}

// NewTaskExecutor creates a new task executor
func NewTaskExecutor(db database.DataRepository, tasks map[string]*Task) *TaskExecutor {
	return &TaskExecutor{
		db:    db,
		tasks: tasks,
	}
}

// Run 按依赖分批并发执行, 返回每个任务的结果
// ErrorModeStop 的任务失败后不再启动新任务, 只有 RunAlways 的任务继续执行
func (te *TaskExecutor) Run(ctx context.Context, taskNames []string, args *TaskArgs) (map[string]*TaskResult, error) {
	results := make(map[string]*TaskResult)
	if len(taskNames) == 0 {
		return results, nil
	}

	order, err := te.topologicalSort(taskNames)
	if err != nil {
		return results, fmt.Errorf("failed to resolve task dependencies: %w", err)
	}

	scheduled := make(map[string]bool, len(order))
	pending := make(map[string]bool, len(order))
	for _, name := range order {
		scheduled[name] = true
		pending[name] = true
	}

	var (
		mu      sync.Mutex
		stopErr error
	)

	for len(pending) > 0 {
		if stopErr == nil {
			if err := ctx.Err(); err != nil {
				stopErr = err
			}
		}

		te.cancelBlocked(pending, scheduled, results, stopErr != nil)
		if len(pending) == 0 {
			break
		}

		ready := te.findReadyTasks(pending, scheduled, results)
		if len(ready) == 0 {
			return results, fmt.Errorf("circular dependency detected or no ready tasks")
		}

		var wg sync.WaitGroup
		for _, name := range ready {
			task := te.tasks[name]

			taskCtx := ctx
			if task.RunAlways {
				taskCtx = context.WithoutCancel(ctx)
			}

			if task.SkipIf != nil && task.SkipIf(taskCtx, te.db, args) {
				mu.Lock()
				results[name] = &TaskResult{State: StateSkipped, Message: "skipped by condition"}
				mu.Unlock()
				continue
			}

			mu.Lock()
			results[name] = &TaskResult{State: StateRunning}
			mu.Unlock()
			wg.Add(1)
			go func(c context.Context, n string, t *Task) {
				defer wg.Done()
				r := te.executeTask(c, t, args)
				mu.Lock()
				results[n] = r
				mu.Unlock()
			}(taskCtx, name, task)
		}

		wg.Wait()

		for _, name := range ready {
			result := results[name]
			if result.Error != nil && te.tasks[name].OnError == ErrorModeStop && stopErr == nil {
				stopErr = fmt.Errorf("task %s failed: %w", name, result.Error)
			}
			delete(pending, name)
		}
	}

	return results, stopErr
}

func (te *TaskExecutor) executeTask(ctx context.Context, task *Task, args *TaskArgs) *TaskResult {
	result, err := task.Executor(ctx, te.db, args)
	if err != nil {
		return &TaskResult{
			State: StateFailed,
			Error: err,
		}
	}
	if result == nil {
		return &TaskResult{State: StateCompleted}
	}
	return result
}

// cancelBlocked 把不会再执行的任务标记为 canceled, 直到没有变化
func (te *TaskExecutor) cancelBlocked(pending, scheduled map[string]bool, results map[string]*TaskResult, stopping bool) {
	for changed := true; changed; {
		changed = false
		for name := range pending {
			task := te.tasks[name]
			if task.RunAlways {
				continue
			}

			reason := ""
			if stopping {
				reason = "run stopped"
			} else {
				for _, dep := range task.DependsOn {
					if r, ok := results[dep]; ok && scheduled[dep] &&
						(r.State == StateFailed || r.State == StateCanceled) {
						reason = fmt.Sprintf("dependency %s did not complete", dep)
						break
					}
				}
			}

			if reason != "" {
				results[name] = &TaskResult{State: StateCanceled, Message: reason}
				delete(pending, name)
				changed = true
			}
		}
	}
}

func (te *TaskExecutor) topologicalSort(taskNames []string) ([]string, error) {
	inDegree := make(map[string]int)
	adj := make(map[string][]string)
	taskSet := make(map[string]bool)

	for _, name := range taskNames {
		if _, exists := te.tasks[name]; !exists {
			return nil, fmt.Errorf("task %s not found", name)
		}
		taskSet[name] = true
		inDegree[name] = 0
	}

	for name := range taskSet {
		for _, dep := range te.tasks[name].DependsOn {
			if !taskSet[dep] {
				continue
			}
			adj[dep] = append(adj[dep], name)
			inDegree[name]++
		}
	}

	var queue []string
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	var order []string
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)

		for _, neighbor := range adj[current] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
			}
		}
	}

	if len(order) != len(taskSet) {
		return nil, fmt.Errorf("circular dependency detected")
	}

	return order, nil
}

// findReadyTasks 未被调度的依赖视为已满足
func (te *TaskExecutor) findReadyTasks(pending, scheduled map[string]bool, results map[string]*TaskResult) []string {
	var ready []string

	for name := range pending {
		task := te.tasks[name]

		allDepsDone := true
		for _, dep := range task.DependsOn {
			if !scheduled[dep] {
				continue
			}
			result, exists := results[dep]
			if !exists {
				allDepsDone = false
				break
			}
			if !task.RunAlways && result.State != StateCompleted && result.State != StateSkipped {
				allDepsDone = false
				break
			}
		}

		if allDepsDone {
			ready = append(ready, name)
		}
	}

	sort.Strings(ready)
	return ready
}

func (te *TaskExecutor) GetTaskNames() []string {
	names := make([]string, 0, len(te.tasks))
	for name := range te.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (te *TaskExecutor) HasTask(name string) bool {
	_, exists := te.tasks[name]
	return exists
}
