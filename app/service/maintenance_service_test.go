package service

import (
	"media-forge/app/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newMaintenanceService(t *testing.T) (*MaintenanceService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return NewMaintenanceService(db, newTestConfig(t), newTestLogger()), db
}

func TestRequeueStaleTasks(t *testing.T) {
	t.Run("卡死任务重新入队并计一次重试", func(t *testing.T) {
		s, db := newMaintenanceService(t)
		content := createVideoContent(t, db, model.PlatformYoutube, false)

		started := time.Now().Add(-2 * time.Hour)
		stale := &model.MediaTask{
			Kind:      model.TaskKindDownload,
			ContentID: content.ID,
			Status:    model.TaskStatusDownloading,
			StartedAt: &started,
		}
		require.NoError(t, db.Create(stale).Error)

		s.RequeueStaleTasks()

		var reloaded model.MediaTask
		require.NoError(t, db.First(&reloaded, "id = ?", stale.ID).Error)
		assert.Equal(t, model.TaskStatusPending, reloaded.Status)
		assert.Equal(t, 1, reloaded.Retries)
		assert.NotNil(t, reloaded.NextRetryAt)
	})

	t.Run("超过重试上限的卡死任务标记为失败", func(t *testing.T) {
		s, db := newMaintenanceService(t)
		content := createVideoContent(t, db, model.PlatformYoutube, false)

		started := time.Now().Add(-2 * time.Hour)
		stale := &model.MediaTask{
			Kind:      model.TaskKindDownload,
			ContentID: content.ID,
			Status:    model.TaskStatusProcessing,
			StartedAt: &started,
			Retries:   s.cfg.Queue.RetryLimit,
		}
		require.NoError(t, db.Create(stale).Error)

		s.RequeueStaleTasks()

		var reloaded model.MediaTask
		require.NoError(t, db.First(&reloaded, "id = ?", stale.ID).Error)
		assert.Equal(t, model.TaskStatusFailed, reloaded.Status)
		assert.NotEmpty(t, reloaded.ErrorMsg)
	})

	t.Run("未超时的运行中任务不受影响", func(t *testing.T) {
		s, db := newMaintenanceService(t)
		content := createVideoContent(t, db, model.PlatformYoutube, false)

		started := time.Now().Add(-time.Minute)
		running := &model.MediaTask{
			Kind:      model.TaskKindDownload,
			ContentID: content.ID,
			Status:    model.TaskStatusDownloading,
			StartedAt: &started,
		}
		require.NoError(t, db.Create(running).Error)

		s.RequeueStaleTasks()

		var reloaded model.MediaTask
		require.NoError(t, db.First(&reloaded, "id = ?", running.ID).Error)
		assert.Equal(t, model.TaskStatusDownloading, reloaded.Status)
		assert.Zero(t, reloaded.Retries)
	})
}

func TestCleanupOldTasks(t *testing.T) {
	s, db := newMaintenanceService(t)
	content := createVideoContent(t, db, model.PlatformYoutube, false)

	oldCompleted := time.Now().AddDate(0, 0, -8)
	recentCompleted := time.Now().AddDate(0, 0, -1)
	oldFailed := time.Now().AddDate(0, 0, -31)
	recentFailed := time.Now().AddDate(0, 0, -10)

	tasks := []*model.MediaTask{
		{Kind: model.TaskKindDownload, ContentID: content.ID, Status: model.TaskStatusCompleted, CompletedAt: &oldCompleted},
		{Kind: model.TaskKindDownload, ContentID: content.ID, Status: model.TaskStatusCompleted, CompletedAt: &recentCompleted},
		{Kind: model.TaskKindSubtitleGenerate, ContentID: content.ID, Status: model.TaskStatusFailed, CompletedAt: &oldFailed},
		{Kind: model.TaskKindSubtitleGenerate, ContentID: content.ID, Status: model.TaskStatusFailed, CompletedAt: &recentFailed},
	}
	for _, task := range tasks {
		require.NoError(t, db.Create(task).Error)
	}

	s.CleanupOldTasks()

	var remaining []model.MediaTask
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 2)
	for _, task := range remaining {
		require.NotNil(t, task.CompletedAt)
		// 留下的都是未过期的
		assert.True(t, task.CompletedAt.After(time.Now().AddDate(0, 0, -30)))
	}
}
