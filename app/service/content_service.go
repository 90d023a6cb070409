package service

import (
	"errors"
	"media-forge/app/logger"
	"media-forge/app/model"
	"media-forge/app/utils/platform"

	"gorm.io/gorm"
)

// ContentService 内容服务。内容在项目选定来源时创建，
// 视频类型的内容会自动创建下载任务。
type ContentService struct {
	db       *gorm.DB
	logger   *logger.Logger
	pipeline *PipelineService
}

// NewContentService 创建内容服务
func NewContentService(db *gorm.DB, log *logger.Logger, pipeline *PipelineService) *ContentService {
	return &ContentService{
		db:       db,
		logger:   log,
		pipeline: pipeline,
	}
}

// CreateContent 从选定的来源 URL 为项目创建内容
func (s *ContentService) CreateContent(projectID, sourceURL string) (*model.Content, error) {
	if projectID == "" || sourceURL == "" {
		return nil, NewPreconditionError("项目ID和来源地址不能为空")
	}

	// 每个项目只允许一条内容
	var count int64
	if err := s.db.Model(&model.Content{}).Where("project_id = ?", projectID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, NewDuplicateError("项目 %s 已存在内容", projectID)
	}

	contentType, sourcePlatform := platform.Detect(sourceURL)

	content := &model.Content{
		ProjectID:   projectID,
		SourceURL:   sourceURL,
		ContentType: contentType,
		Platform:    sourcePlatform,
	}
	if err := s.db.Create(content).Error; err != nil {
		return nil, err
	}

	s.logger.Infof("已创建内容: ContentID=%s, ProjectID=%s, Platform=%s", content.ID, projectID, sourcePlatform)

	// 视频内容自动触发下载
	if content.IsVideo() {
		if _, err := s.pipeline.CreateDownload(content.ID); err != nil {
			return nil, err
		}
	}

	return content, nil
}

// GetContent 按 ID 查询内容，包含字幕和任务
func (s *ContentService) GetContent(contentID string) (*model.Content, error) {
	var content model.Content
	err := s.db.Preload("Subtitles").Preload("Tasks").First(&content, "id = ?", contentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("内容", contentID)
		}
		return nil, err
	}
	return &content, nil
}

// DeleteContent 删除内容并级联删除其任务和字幕
func (s *ContentService) DeleteContent(contentID string) error {
	var content model.Content
	if err := s.db.First(&content, "id = ?", contentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewNotFoundError("内容", contentID)
		}
		return err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("content_id = ?", contentID).Delete(&model.MediaTask{}).Error; err != nil {
			return err
		}
		if err := tx.Where("content_id = ?", contentID).Delete(&model.Subtitle{}).Error; err != nil {
			return err
		}
		return tx.Delete(&content).Error
	})
	if err != nil {
		return err
	}

	s.logger.Infof("已删除内容及其关联记录: ContentID=%s", contentID)
	return nil
}

// ClearFilePath 清除指向指定路径的当前媒体产物指针，
// 返回受影响的内容数量。由媒体目录监控在文件被外部删除时调用。
func (s *ContentService) ClearFilePath(path string) (int64, error) {
	store := &artifactStore{db: s.db}
	return store.ClearFilePathIf(path)
}
