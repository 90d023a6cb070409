package service

import (
	"context"
	"errors"
	"media-forge/app/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// recordingExecutor 记录执行次数的测试执行器
type recordingExecutor struct {
	kind  model.TaskKind
	err   error
	calls int
}

func (e *recordingExecutor) Kind() model.TaskKind { return e.kind }

func (e *recordingExecutor) Execute(ctx context.Context, task *model.MediaTask) error {
	e.calls++
	return e.err
}

func newTestQueue(t *testing.T) (*PersistentTaskQueue, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return NewPersistentTaskQueue(db, newTestConfig(t), newTestLogger()), db
}

func createPendingTask(t *testing.T, db *gorm.DB, kind model.TaskKind) *model.MediaTask {
	t.Helper()
	content := createVideoContent(t, db, model.PlatformYoutube, false)
	task := &model.MediaTask{
		Kind:      kind,
		ContentID: content.ID,
		Status:    model.TaskStatusPending,
	}
	require.NoError(t, db.Create(task).Error)
	return task
}

func TestClaimNextTask(t *testing.T) {
	t.Run("认领最早的待处理任务", func(t *testing.T) {
		q, db := newTestQueue(t)
		first := createPendingTask(t, db, model.TaskKindDownload)
		createPendingTask(t, db, model.TaskKindDownload)

		claimed, ok := q.claimNextTask()
		require.True(t, ok)
		assert.Equal(t, first.ID, claimed.ID)
		// 下载任务认领后进入下载状态并获得执行关联ID
		assert.Equal(t, model.TaskStatusDownloading, claimed.Status)
		assert.NotEmpty(t, claimed.JobID)
		assert.NotNil(t, claimed.StartedAt)
	})

	t.Run("非下载任务认领后进入处理状态", func(t *testing.T) {
		q, db := newTestQueue(t)
		createPendingTask(t, db, model.TaskKindSubtitleBurn)

		claimed, ok := q.claimNextTask()
		require.True(t, ok)
		assert.Equal(t, model.TaskStatusProcessing, claimed.Status)
	})

	t.Run("没有待处理任务", func(t *testing.T) {
		q, _ := newTestQueue(t)
		_, ok := q.claimNextTask()
		assert.False(t, ok)
	})

	t.Run("重试时间未到的任务不被认领", func(t *testing.T) {
		q, db := newTestQueue(t)
		task := createPendingTask(t, db, model.TaskKindDownload)

		future := time.Now().Add(time.Minute)
		require.NoError(t, db.Model(task).Update("next_retry_at", &future).Error)

		_, ok := q.claimNextTask()
		assert.False(t, ok)

		// 重试时间已过的任务可以认领
		past := time.Now().Add(-time.Minute)
		require.NoError(t, db.Model(task).Update("next_retry_at", &past).Error)

		claimed, ok := q.claimNextTask()
		require.True(t, ok)
		assert.Equal(t, task.ID, claimed.ID)
	})
}

func TestHandleTaskFailure(t *testing.T) {
	t.Run("失败后安排固定延迟重试", func(t *testing.T) {
		q, db := newTestQueue(t)
		task := createPendingTask(t, db, model.TaskKindDownload)
		task.MarkRunning(model.TaskStatusDownloading)

		q.handleTaskFailure(task, errors.New("下载超时"), time.Second)

		var reloaded model.MediaTask
		require.NoError(t, db.First(&reloaded, "id = ?", task.ID).Error)
		assert.Equal(t, model.TaskStatusPending, reloaded.Status)
		assert.Equal(t, 1, reloaded.Retries)
		assert.Equal(t, "下载超时", reloaded.ErrorMsg)
		require.NotNil(t, reloaded.NextRetryAt)
		assert.WithinDuration(t, time.Now().Add(q.cfg.Queue.RetryDelayDuration()), *reloaded.NextRetryAt, 5*time.Second)
		assert.Nil(t, reloaded.CompletedAt)
	})

	t.Run("超过重试上限后停留在失败态", func(t *testing.T) {
		q, db := newTestQueue(t)
		task := createPendingTask(t, db, model.TaskKindDownload)
		task.Retries = q.cfg.Queue.RetryLimit

		q.handleTaskFailure(task, errors.New("持续失败"), time.Second)

		var reloaded model.MediaTask
		require.NoError(t, db.First(&reloaded, "id = ?", task.ID).Error)
		assert.Equal(t, model.TaskStatusFailed, reloaded.Status)
		assert.Equal(t, q.cfg.Queue.RetryLimit, reloaded.Retries)
		assert.NotNil(t, reloaded.CompletedAt)
		assert.Nil(t, reloaded.NextRetryAt)
	})

	t.Run("首次执行加上限次重试共四次机会", func(t *testing.T) {
		q, db := newTestQueue(t)
		task := createPendingTask(t, db, model.TaskKindDownload)

		attempts := 0
		for i := 0; i <= q.cfg.Queue.RetryLimit; i++ {
			var current model.MediaTask
			require.NoError(t, db.First(&current, "id = ?", task.ID).Error)
			attempts++
			q.handleTaskFailure(&current, errors.New("总是失败"), time.Second)
		}

		assert.Equal(t, q.cfg.Queue.RetryLimit+1, attempts)

		var final model.MediaTask
		require.NoError(t, db.First(&final, "id = ?", task.ID).Error)
		assert.Equal(t, model.TaskStatusFailed, final.Status)
		assert.Equal(t, q.cfg.Queue.RetryLimit, final.Retries)
	})
}

func TestExecuteTask(t *testing.T) {
	t.Run("执行成功后任务完成", func(t *testing.T) {
		q, db := newTestQueue(t)
		exec := &recordingExecutor{kind: model.TaskKindDownload}
		q.Register(exec)

		createPendingTask(t, db, model.TaskKindDownload)
		claimed, ok := q.claimNextTask()
		require.True(t, ok)

		q.workers <- struct{}{}
		q.wg.Add(1)
		q.executeTask(claimed)

		assert.Equal(t, 1, exec.calls)

		var reloaded model.MediaTask
		require.NoError(t, db.First(&reloaded, "id = ?", claimed.ID).Error)
		assert.Equal(t, model.TaskStatusCompleted, reloaded.Status)
		assert.Equal(t, 100, reloaded.Progress)
		assert.NotNil(t, reloaded.CompletedAt)
	})

	t.Run("任务记录不存在时跳过执行", func(t *testing.T) {
		q, db := newTestQueue(t)
		exec := &recordingExecutor{kind: model.TaskKindDownload}
		q.Register(exec)

		createPendingTask(t, db, model.TaskKindDownload)
		claimed, ok := q.claimNextTask()
		require.True(t, ok)

		// 模拟重复投递期间任务被删除
		require.NoError(t, db.Delete(&model.MediaTask{}, "id = ?", claimed.ID).Error)

		q.workers <- struct{}{}
		q.wg.Add(1)
		q.executeTask(claimed)

		assert.Zero(t, exec.calls)
	})

	t.Run("没有对应执行器时标记失败", func(t *testing.T) {
		q, db := newTestQueue(t)

		createPendingTask(t, db, model.TaskKindWatermarkBurn)
		claimed, ok := q.claimNextTask()
		require.True(t, ok)

		q.workers <- struct{}{}
		q.wg.Add(1)
		q.executeTask(claimed)

		var reloaded model.MediaTask
		require.NoError(t, db.First(&reloaded, "id = ?", claimed.ID).Error)
		assert.Equal(t, model.TaskStatusFailed, reloaded.Status)
	})
}

func TestQueueStartAndStop(t *testing.T) {
	t.Run("启动时重置被中断的运行中任务", func(t *testing.T) {
		q, db := newTestQueue(t)
		content := createVideoContent(t, db, model.PlatformYoutube, false)

		interrupted := &model.MediaTask{
			Kind:      model.TaskKindDownload,
			ContentID: content.ID,
			Status:    model.TaskStatusDownloading,
		}
		require.NoError(t, db.Create(interrupted).Error)

		q.Start()
		defer q.Stop()

		var reloaded model.MediaTask
		require.NoError(t, db.First(&reloaded, "id = ?", interrupted.ID).Error)
		assert.Equal(t, model.TaskStatusPending, reloaded.Status)
	})

	t.Run("轮询认领并执行任务", func(t *testing.T) {
		q, db := newTestQueue(t)
		exec := &recordingExecutor{kind: model.TaskKindDownload}
		q.Register(exec)

		task := createPendingTask(t, db, model.TaskKindDownload)

		q.Start()
		defer q.Stop()

		require.Eventually(t, func() bool {
			var reloaded model.MediaTask
			if err := db.First(&reloaded, "id = ?", task.ID).Error; err != nil {
				return false
			}
			return reloaded.Status == model.TaskStatusCompleted
		}, 5*time.Second, 100*time.Millisecond)
	})
}

func TestGetQueueStatus(t *testing.T) {
	q, db := newTestQueue(t)
	createPendingTask(t, db, model.TaskKindDownload)
	createPendingTask(t, db, model.TaskKindSubtitleGenerate)

	status, err := q.GetQueueStatus()
	require.NoError(t, err)
	assert.Equal(t, int64(2), status[string(model.TaskStatusPending)])
	assert.Equal(t, int64(0), status[string(model.TaskStatusFailed)])
}
