package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jing2uo/finfo2db/database"
	"github.com/jing2uo/finfo2db/ingest"
	"github.com/jing2uo/finfo2db/model"
	"github.com/jing2uo/finfo2db/utils"
)

const (
	NameSyncPrices   = "sync_prices"
	NameExportPrices = "export_prices"
	NameRecordRun    = "record_run"
)

var (
	TaskSyncPrices   *Task
	TaskExportPrices *Task
	TaskRecordRun    *Task
)

func init() {
	TaskSyncPrices = &Task{
		Name:      NameSyncPrices,
		DependsOn: []string{},
		Executor:  executeSyncPrices,
	}

	TaskExportPrices = &Task{
		Name:      NameExportPrices,
		DependsOn: []string{NameSyncPrices},
		SkipIf: func(ctx context.Context, db database.DataRepository, args *TaskArgs) bool {
			return args.ExportDir == ""
		},
		Executor: executeExportPrices,
		OnError:  ErrorModeSkip,
	}

	TaskRecordRun = &Task{
		Name:      NameRecordRun,
		DependsOn: []string{NameSyncPrices},
		SkipIf: func(ctx context.Context, db database.DataRepository, args *TaskArgs) bool {
			return args.Outcome == nil
		},
		Executor:  executeRecordRun,
		OnError:   ErrorModeSkip,
		RunAlways: true,
	}
}

// DailyTasks 每日任务图, 供 sync 与 daemon 共用
func DailyTasks() map[string]*Task {
	return map[string]*Task{
		TaskSyncPrices.Name:   TaskSyncPrices,
		TaskExportPrices.Name: TaskExportPrices,
		TaskRecordRun.Name:    TaskRecordRun,
	}
}

func DailyTaskNames() []string {
	return []string{NameSyncPrices, NameExportPrices, NameRecordRun}
}

func logger(args *TaskArgs) *zap.Logger {
	if args.Logger == nil {
		return zap.NewNop()
	}
	return args.Logger
}

func executeSyncPrices(ctx context.Context, db database.DataRepository, args *TaskArgs) (*TaskResult, error) {
	fmt.Printf("🐢 开始同步行情数据 %s → %s\n",
		args.Options.FromDate.Format("2006-01-02"), args.Options.ToDate.Format("2006-01-02"))

	orch := ingest.NewOrchestrator(args.Fetcher, db, logger(args))
	out, err := orch.Run(ctx, args.Options)
	args.Outcome = out
	if err != nil {
		return nil, err
	}

	fmt.Printf("📅 行情数据水位为 %s, 拉取 %d 条\n", out.Watermark, out.Fetched)
	if out.Written == 0 {
		fmt.Println("🌲 行情数据无需更新")
		return &TaskResult{State: StateSkipped, Message: "no new price data"}, nil
	}

	fmt.Printf("📈 行情数据写入成功, 新增 %d 条\n", out.Written)
	return &TaskResult{State: StateCompleted, Rows: out.Written, Message: "prices synced"}, nil
}

// executeExportPrices 导出本次新增的记录, 没有新增时不生成文件
func executeExportPrices(ctx context.Context, db database.DataRepository, args *TaskArgs) (*TaskResult, error) {
	if args.Outcome == nil || len(args.Outcome.Records) == 0 {
		return &TaskResult{State: StateSkipped, Message: "nothing to export"}, nil
	}

	format := args.ExportFormat
	if format == "" {
		format = utils.FormatParquet
	}
	name := fmt.Sprintf("%s_%s", model.TablePrices.TableName, args.Today.Format("20060102"))

	path, err := utils.ExportPrices(args.ExportDir, name, format, args.Outcome.Records)
	if err != nil {
		return nil, fmt.Errorf("failed to export prices: %w", err)
	}

	fmt.Printf("📦 新增行情已导出到 %s\n", path)
	return &TaskResult{State: StateCompleted, Rows: len(args.Outcome.Records), Message: path}, nil
}

// executeRecordRun 写入 sync_log, 同步失败时也执行
func executeRecordRun(ctx context.Context, db database.DataRepository, args *TaskArgs) (*TaskResult, error) {
	exists, err := db.TableExists(ctx, model.TableSyncLog.TableName)
	if err != nil {
		return nil, fmt.Errorf("failed to check sync log table: %w", err)
	}
	if !exists {
		if err := db.InitSchema(ctx); err != nil {
			return nil, fmt.Errorf("failed to init schema for sync log: %w", err)
		}
	}

	entry := args.Outcome.SyncLog()
	if err := db.InsertSyncLog(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to insert sync log: %w", err)
	}

	logger(args).Debug("recorded run", zap.String("run_id", entry.RunID), zap.String("status", entry.Status))
	return &TaskResult{State: StateCompleted, Rows: 1, Message: entry.Status}, nil
}
