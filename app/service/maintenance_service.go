package service

import (
	"errors"
	"media-forge/app/config"
	"media-forge/app/logger"
	"media-forge/app/model"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// MaintenanceService 定时维护服务：清理过期任务、找回卡死的运行中任务
type MaintenanceService struct {
	db     *gorm.DB
	cfg    *config.Config
	logger *logger.Logger
	cron   *cron.Cron
}

// NewMaintenanceService 创建定时维护服务
func NewMaintenanceService(db *gorm.DB, cfg *config.Config, log *logger.Logger) *MaintenanceService {
	return &MaintenanceService{
		db:     db,
		cfg:    cfg,
		logger: log,
		cron:   cron.New(),
	}
}

// Start 注册定时任务并启动
func (s *MaintenanceService) Start() {
	// 每小时找回卡死的任务
	s.cron.AddFunc("@hourly", s.RequeueStaleTasks)
	// 每天凌晨清理过期任务
	s.cron.AddFunc("@daily", s.CleanupOldTasks)

	s.cron.Start()
	s.logger.Info("定时维护服务已启动")
}

// Stop 停止定时维护服务
func (s *MaintenanceService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("定时维护服务已停止")
}

// RequeueStaleTasks 把卡在运行状态超时的任务重置为待处理。
// 按一次重试计数，超过重试上限的直接标记为失败。
func (s *MaintenanceService) RequeueStaleTasks() {
	staleBefore := time.Now().Add(-time.Duration(s.cfg.Queue.StaleMinutes) * time.Minute)

	var tasks []model.MediaTask
	if err := s.db.Where("status IN ? AND started_at < ?",
		[]model.TaskStatus{model.TaskStatusDownloading, model.TaskStatusProcessing}, staleBefore).
		Find(&tasks).Error; err != nil {
		s.logger.Errorf("查询卡死任务失败: %v", err)
		return
	}

	for i := range tasks {
		task := &tasks[i]

		if !task.CanRetry(s.cfg.Queue.RetryLimit) {
			task.MarkFailed(errTaskStale)
			if err := s.db.Save(task).Error; err != nil {
				s.logger.Errorf("标记卡死任务失败出错: TaskID=%s, %v", task.ID, err)
			}
			s.logger.Errorf("任务卡死且超过重试次数，标记为失败: TaskID=%s, Kind=%s", task.ID, task.Kind)
			continue
		}

		task.Retries++
		task.ErrorMsg = errTaskStale.Error()
		task.ScheduleRetry(s.cfg.Queue.RetryDelayDuration())
		if err := s.db.Save(task).Error; err != nil {
			s.logger.Errorf("重置卡死任务失败: TaskID=%s, %v", task.ID, err)
			continue
		}
		s.logger.Warnf("卡死任务已重新入队: TaskID=%s, Kind=%s, 重试次数: %d", task.ID, task.Kind, task.Retries)
	}
}

// CleanupOldTasks 清理过期任务：已完成超过7天、失败超过30天
func (s *MaintenanceService) CleanupOldTasks() {
	completedCutoff := time.Now().AddDate(0, 0, -7)
	result := s.db.Where("status = ? AND completed_at < ?", model.TaskStatusCompleted, completedCutoff).
		Delete(&model.MediaTask{})
	if result.Error != nil {
		s.logger.Errorf("清理已完成任务失败: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		s.logger.Infof("清理了 %d 个已完成的任务（超过7天）", result.RowsAffected)
	}

	failedCutoff := time.Now().AddDate(0, 0, -30)
	result = s.db.Where("status = ? AND completed_at < ?", model.TaskStatusFailed, failedCutoff).
		Delete(&model.MediaTask{})
	if result.Error != nil {
		s.logger.Errorf("清理失败任务失败: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		s.logger.Infof("清理了 %d 个失败的任务（超过30天）", result.RowsAffected)
	}
}

var errTaskStale = errors.New("任务运行超时，疑似进程中断")
