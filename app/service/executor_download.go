package service

import (
	"context"
	"errors"
	"fmt"
	"media-forge/app/config"
	"media-forge/app/logger"
	"media-forge/app/model"
	"media-forge/app/utils/platform"
	"path/filepath"

	"gorm.io/gorm"
)

// 下载任务在固定检查点上报进度，而不是按字节连续上报
const (
	progressAccepted  = 10  // 任务被执行器接收
	progressResolved  = 30  // 远端下载地址解析完成
	progressStreaming = 50  // 开始流式下载
	progressDone      = 100 // 下载完成
)

// DownloadExecutor 下载任务执行器
type DownloadExecutor struct {
	db         *gorm.DB
	cfg        *config.Config
	logger     *logger.Logger
	downloader Downloader
	store      *artifactStore
}

// NewDownloadExecutor 创建下载任务执行器
func NewDownloadExecutor(db *gorm.DB, cfg *config.Config, log *logger.Logger, dl Downloader) *DownloadExecutor {
	return &DownloadExecutor{
		db:         db,
		cfg:        cfg,
		logger:     log,
		downloader: dl,
		store:      &artifactStore{db: db},
	}
}

func (e *DownloadExecutor) Kind() model.TaskKind {
	return model.TaskKindDownload
}

// Execute 下载视频并更新内容的当前媒体产物。
// 输出路径由内容 ID 决定，重复执行覆盖写，满足幂等要求。
func (e *DownloadExecutor) Execute(ctx context.Context, task *model.MediaTask) error {
	var content model.Content
	if err := e.db.First(&content, "id = ?", task.ContentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewNotFoundError("内容", task.ContentID)
		}
		return err
	}

	e.advance(task, model.TaskStatusDownloading, progressAccepted)

	// 未识别的平台在执行时重新识别并回写
	if content.Platform == model.PlatformOther {
		contentType, detected := platform.Detect(content.SourceURL)
		if detected == model.PlatformOther {
			return NewPreconditionError("无法识别来源平台: %s", content.SourceURL)
		}
		content.ContentType = contentType
		content.Platform = detected
		if err := e.db.Model(&content).
			Updates(map[string]interface{}{"platform": detected, "content_type": contentType}).Error; err != nil {
			return err
		}
		e.logger.Infof("重新识别来源平台: ContentID=%s, Platform=%s", content.ID, detected)
	}

	resolved, err := e.downloader.Resolve(ctx, content.SourceURL, content.Platform)
	if err != nil {
		return NewExternalCallError("解析下载地址失败", err)
	}

	// 保存解析出的远端地址，开始流式下载
	task.DownloadURL = resolved.RemoteURL
	e.advance(task, model.TaskStatusDownloading, progressResolved)
	e.advance(task, model.TaskStatusDownloading, progressStreaming)

	destPath := filepath.Join(e.cfg.Storage.MediaDir, fmt.Sprintf("%s.mp4", content.ID))
	size, err := e.downloader.Fetch(ctx, resolved.RemoteURL, destPath)
	if err != nil {
		return NewExternalCallError("下载视频文件失败", err)
	}

	// 下载完毕进入处理阶段：落盘产物指针和文件信息
	e.advance(task, model.TaskStatusProcessing, progressStreaming)

	if err := e.store.UpdateFilePath(content.ID, destPath); err != nil {
		return err
	}

	task.FileSize = size
	if err := e.db.Model(task).Update("file_size", size).Error; err != nil {
		return err
	}

	e.logger.Infof("视频下载完成: ContentID=%s, Path=%s, Size=%d bytes", content.ID, destPath, size)
	return nil
}

// advance 推进任务的运行子阶段和进度检查点并落库，进度只增不减
func (e *DownloadExecutor) advance(task *model.MediaTask, status model.TaskStatus, progress int) {
	task.MarkRunning(status)
	task.SetProgress(progress)

	updates := map[string]interface{}{
		"status":       task.Status,
		"progress":     task.Progress,
		"started_at":   task.StartedAt,
		"download_url": task.DownloadURL,
	}
	if err := e.db.Model(task).Updates(updates).Error; err != nil {
		e.logger.Errorf("更新下载进度失败: TaskID=%s, %v", task.ID, err)
	}
}
