package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskKind 任务种类
type TaskKind string

const (
	TaskKindDownload         TaskKind = "download"
	TaskKindSubtitleGenerate TaskKind = "subtitle_generate"
	TaskKindSubtitleBurn     TaskKind = "subtitle_burn"
	TaskKindWatermarkBurn    TaskKind = "watermark_burn"
)

// TaskStatus 任务状态。downloading/processing 是下载任务的运行子阶段，
// 其余任务种类统一使用 processing 作为运行状态。
type TaskStatus string

const (
	TaskStatusPending     TaskStatus = "pending"
	TaskStatusDownloading TaskStatus = "downloading"
	TaskStatusProcessing  TaskStatus = "processing"
	TaskStatusCompleted   TaskStatus = "completed"
	TaskStatusFailed      TaskStatus = "failed"
)

// ActiveTaskStatuses 非失败且未完成的状态集合，用于唯一性检查
var ActiveTaskStatuses = []TaskStatus{
	TaskStatusPending,
	TaskStatusDownloading,
	TaskStatusProcessing,
}

// NonFailedTaskStatuses 非失败状态集合（含已完成）
var NonFailedTaskStatuses = []TaskStatus{
	TaskStatusPending,
	TaskStatusDownloading,
	TaskStatusProcessing,
	TaskStatusCompleted,
}

// MediaTask 媒体任务模型，四种任务共用一个结构
type MediaTask struct {
	ID            string     `json:"id" gorm:"primarykey;size:36"`
	Kind          TaskKind   `json:"kind" gorm:"size:30;not null;index"`
	ContentID     string     `json:"content_id" gorm:"size:36;not null;index"`
	SubtitleID    *string    `json:"subtitle_id" gorm:"size:36;index;comment:字幕类任务关联的字幕ID"`
	JobID         string     `json:"job_id" gorm:"size:64;comment:执行器本次运行的关联ID"`
	Status        TaskStatus `json:"status" gorm:"size:20;default:pending;index"`
	Progress      int        `json:"progress" gorm:"default:0;comment:下载进度 0-100"`
	ErrorMsg      string     `json:"error_msg" gorm:"type:text"`
	DownloadURL   string     `json:"download_url" gorm:"size:4000;comment:解析出的远端下载地址"`
	FileSize      int64      `json:"file_size" gorm:"default:0;comment:下载文件字节数"`
	OutputPath    string     `json:"output_path" gorm:"size:500;comment:烧录类任务输出文件路径"`
	WatermarkPath string     `json:"watermark_path" gorm:"size:500;comment:水印任务使用的图片路径"`
	Retries       int        `json:"retries" gorm:"default:0"`
	NextRetryAt   *time.Time `json:"next_retry_at" gorm:"index;comment:下次重试时间"`
	StartedAt     *time.Time `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Content  *Content  `json:"content,omitempty" gorm:"foreignKey:ContentID"`
	Subtitle *Subtitle `json:"subtitle,omitempty" gorm:"foreignKey:SubtitleID"`
}

// TableName 指定表名
func (MediaTask) TableName() string {
	return "media_tasks"
}

// BeforeCreate 生成主键
func (t *MediaTask) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// RunningStatus 任务种类对应的首个运行状态
func (t *MediaTask) RunningStatus() TaskStatus {
	if t.Kind == TaskKindDownload {
		return TaskStatusDownloading
	}
	return TaskStatusProcessing
}

// IsTerminal 是否处于终止状态
func (t *MediaTask) IsTerminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

// CanRetry 是否还可以重试
func (t *MediaTask) CanRetry(limit int) bool {
	return t.Retries < limit && t.Status != TaskStatusCompleted
}

// SetProgress 更新进度，进度只增不减
func (t *MediaTask) SetProgress(progress int) {
	if progress > t.Progress {
		t.Progress = progress
	}
}

// MarkRunning 标记为运行状态，首次运行时记录开始时间
func (t *MediaTask) MarkRunning(status TaskStatus) {
	t.Status = status
	if t.StartedAt == nil {
		now := time.Now()
		t.StartedAt = &now
	}
}

// MarkCompleted 标记为已完成。下载任务完成时进度必为 100。
func (t *MediaTask) MarkCompleted() {
	now := time.Now()
	t.Status = TaskStatusCompleted
	t.CompletedAt = &now
	t.ErrorMsg = ""
	t.NextRetryAt = nil
	if t.Kind == TaskKindDownload {
		t.Progress = 100
	}
}

// MarkFailed 标记为失败，进度保持不变
func (t *MediaTask) MarkFailed(err error) {
	now := time.Now()
	t.Status = TaskStatusFailed
	t.ErrorMsg = err.Error()
	t.CompletedAt = &now
}

// ScheduleRetry 安排下一次重试，回到待处理状态
func (t *MediaTask) ScheduleRetry(delay time.Duration) {
	next := time.Now().Add(delay)
	t.Status = TaskStatusPending
	t.CompletedAt = nil
	t.NextRetryAt = &next
}
