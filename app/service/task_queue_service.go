package service

import (
	"context"
	"errors"
	"media-forge/app/config"
	"media-forge/app/logger"
	"media-forge/app/model"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Executor 单一任务种类的执行器。Execute 只负责阶段主体逻辑，
// 状态流转、重试和终态上报由队列统一处理。
type Executor interface {
	Kind() model.TaskKind
	Execute(ctx context.Context, task *model.MediaTask) error
}

// PersistentTaskQueue 持久化任务队列。多工作者并发，至少一次投递，
// 任务主体要求幂等：输出路径确定且覆盖写，重复执行不会累积副作用。
type PersistentTaskQueue struct {
	db        *gorm.DB
	cfg       *config.Config
	logger    *logger.Logger
	executors map[model.TaskKind]Executor
	workers   chan struct{} // 控制并发数的信号量
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	running   bool
	mu        sync.Mutex
}

// NewPersistentTaskQueue 创建持久化任务队列
func NewPersistentTaskQueue(db *gorm.DB, cfg *config.Config, log *logger.Logger) *PersistentTaskQueue {
	ctx, cancel := context.WithCancel(context.Background())

	workers := cfg.Queue.Workers
	if workers <= 0 {
		workers = 1
	}

	return &PersistentTaskQueue{
		db:        db,
		cfg:       cfg,
		logger:    log,
		executors: make(map[model.TaskKind]Executor),
		workers:   make(chan struct{}, workers),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Register 注册任务执行器
func (q *PersistentTaskQueue) Register(exec Executor) {
	q.executors[exec.Kind()] = exec
}

// Start 启动任务处理器
func (q *PersistentTaskQueue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return
	}
	q.running = true

	// 启动时把中断的运行中任务重置为待处理
	q.db.Model(&model.MediaTask{}).
		Where("status IN ?", []model.TaskStatus{model.TaskStatusDownloading, model.TaskStatusProcessing}).
		Update("status", model.TaskStatusPending)

	q.wg.Add(1)
	go q.processQueue()

	q.logger.Infof("任务队列处理器已启动，最大并发数: %d", cap(q.workers))
}

// Stop 停止任务处理器，等待在途任务结束
func (q *PersistentTaskQueue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.running {
		return
	}
	q.running = false

	q.cancel()
	q.wg.Wait()
	q.logger.Info("任务队列处理器已停止")
}

// processQueue 轮询待处理任务
func (q *PersistentTaskQueue) processQueue() {
	defer q.wg.Done()

	interval := time.Duration(q.cfg.Queue.PollInterval) * time.Second
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			return
		case <-ticker.C:
			q.dispatchPendingTasks()
		}
	}
}

// dispatchPendingTasks 认领待处理任务并分发给工作者
func (q *PersistentTaskQueue) dispatchPendingTasks() {
	for {
		select {
		case q.workers <- struct{}{}: // 获取工作者槽位
			task, ok := q.claimNextTask()
			if !ok {
				<-q.workers // 没有任务，释放槽位
				return
			}
			q.wg.Add(1)
			go q.executeTask(task)
		default:
			// 没有可用的工作者槽位
			return
		}
	}
}

// claimNextTask 在事务中认领最早的待处理任务并标记为运行状态。
// 重试任务要等到 next_retry_at 之后才会被认领。
func (q *PersistentTaskQueue) claimNextTask() (*model.MediaTask, bool) {
	var task model.MediaTask

	err := q.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("status = ? AND (next_retry_at IS NULL OR next_retry_at <= ?)",
			model.TaskStatusPending, time.Now()).
			Order("created_at ASC").First(&task).Error; err != nil {
			return err
		}

		task.MarkRunning(task.RunningStatus())
		task.JobID = uuid.NewString()
		return tx.Save(&task).Error
	})

	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			q.logger.Errorf("认领任务失败: %v", err)
		}
		return nil, false
	}

	return &task, true
}

// executeTask 执行单个任务
func (q *PersistentTaskQueue) executeTask(claimed *model.MediaTask) {
	defer func() {
		<-q.workers // 释放工作者槽位
		q.wg.Done()
	}()

	// 重新加载任务，容忍重复投递：记录不存在时直接返回
	var task model.MediaTask
	if err := q.db.First(&task, "id = ?", claimed.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			q.logger.Warnf("任务不存在，跳过执行: TaskID=%s", claimed.ID)
			return
		}
		q.logger.Errorf("加载任务失败: TaskID=%s, %v", claimed.ID, err)
		return
	}

	exec, ok := q.executors[task.Kind]
	if !ok {
		q.logger.Errorf("没有 %s 类型的执行器，任务标记为失败: TaskID=%s", task.Kind, task.ID)
		task.MarkFailed(errors.New("没有对应的任务执行器"))
		q.db.Save(&task)
		return
	}

	q.logger.Infof("🔄 开始执行任务: TaskID=%s, Kind=%s, 重试次数: %d", task.ID, task.Kind, task.Retries)
	startTime := time.Now()

	err := exec.Execute(q.ctx, &task)
	executionTime := time.Since(startTime)

	if err != nil {
		q.handleTaskFailure(&task, err, executionTime)
		return
	}

	task.MarkCompleted()
	if saveErr := q.db.Save(&task).Error; saveErr != nil {
		q.logger.Errorf("保存任务完成状态失败: TaskID=%s, %v", task.ID, saveErr)
		return
	}

	q.logger.Infof("✅ 任务完成: TaskID=%s, Kind=%s, 耗时: %v", task.ID, task.Kind, executionTime)
}

// handleTaskFailure 记录失败状态并按固定延迟安排重试。
// 超过重试上限后任务停留在失败态，除非调用方显式创建替代任务。
func (q *PersistentTaskQueue) handleTaskFailure(task *model.MediaTask, err error, executionTime time.Duration) {
	// 无论是否重试，先把失败状态和错误信息落库，状态不留悬空
	task.MarkFailed(err)
	if saveErr := q.db.Save(task).Error; saveErr != nil {
		q.logger.Errorf("保存任务失败状态出错: TaskID=%s, %v", task.ID, saveErr)
		return
	}

	if !task.CanRetry(q.cfg.Queue.RetryLimit) {
		q.logger.Errorf("💀 任务失败(超过重试次数): TaskID=%s, Kind=%s, 总重试次数: %d, 最终错误: %v",
			task.ID, task.Kind, task.Retries, err)
		return
	}

	task.Retries++
	task.ScheduleRetry(q.cfg.Queue.RetryDelayDuration())
	if saveErr := q.db.Save(task).Error; saveErr != nil {
		q.logger.Errorf("安排任务重试失败: TaskID=%s, %v", task.ID, saveErr)
		return
	}

	q.logger.Warnf("❌ 任务执行失败，将在 %v 后重试: TaskID=%s, Kind=%s, 重试次数: %d/%d, 耗时: %v, 错误: %v",
		q.cfg.Queue.RetryDelayDuration(), task.ID, task.Kind, task.Retries, q.cfg.Queue.RetryLimit, executionTime, err)
}

// GetQueueStatus 获取各状态的任务数量
func (q *PersistentTaskQueue) GetQueueStatus() (map[string]int64, error) {
	status := make(map[string]int64)

	statuses := []model.TaskStatus{
		model.TaskStatusPending,
		model.TaskStatusDownloading,
		model.TaskStatusProcessing,
		model.TaskStatusCompleted,
		model.TaskStatusFailed,
	}
	for _, s := range statuses {
		var count int64
		if err := q.db.Model(&model.MediaTask{}).Where("status = ?", s).Count(&count).Error; err != nil {
			return nil, err
		}
		status[string(s)] = count
	}

	return status, nil
}
