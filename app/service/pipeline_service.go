package service

import (
	"context"
	"errors"
	"media-forge/app/config"
	"media-forge/app/logger"
	"media-forge/app/model"
	"media-forge/app/utils/srt"

	"gorm.io/gorm"
)

// PipelineService 处理流水线协调器。负责校验各阶段的前置条件、
// 创建任务记录并交由任务队列异步执行。翻译是唯一的同步阶段。
type PipelineService struct {
	db         *gorm.DB
	cfg        *config.Config
	logger     *logger.Logger
	translator Translator
}

// NewPipelineService 创建流水线协调器
func NewPipelineService(db *gorm.DB, cfg *config.Config, log *logger.Logger, translator Translator) *PipelineService {
	return &PipelineService{
		db:         db,
		cfg:        cfg,
		logger:     log,
		translator: translator,
	}
}

// CreateDownload 为视频内容创建下载任务
func (s *PipelineService) CreateDownload(contentID string) (*model.MediaTask, error) {
	content, err := s.getContent(contentID)
	if err != nil {
		return nil, err
	}

	if !content.IsVideo() {
		return nil, NewPreconditionError("内容类型 %s 不支持下载，仅支持视频内容", content.ContentType)
	}

	// 同一内容只允许存在一个非失败的下载任务
	var count int64
	if err := s.db.Model(&model.MediaTask{}).
		Where("content_id = ? AND kind = ? AND status IN ?",
			content.ID, model.TaskKindDownload, model.NonFailedTaskStatuses).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, NewDuplicateError("内容 %s 已存在未失败的下载任务", content.ID)
	}

	task := &model.MediaTask{
		Kind:      model.TaskKindDownload,
		ContentID: content.ID,
		Status:    model.TaskStatusPending,
	}
	if err := s.db.Create(task).Error; err != nil {
		return nil, err
	}

	s.logger.Infof("已创建下载任务: TaskID=%s, ContentID=%s", task.ID, content.ID)
	return task, nil
}

// CreateSubtitle 为视频内容创建字幕生成任务。
// instagram/linkedin 没有可直接转写的流地址，必须先完成下载。
func (s *PipelineService) CreateSubtitle(contentID, language string) (*model.Subtitle, *model.MediaTask, error) {
	content, err := s.getContent(contentID)
	if err != nil {
		return nil, nil, err
	}

	if !content.IsVideo() {
		return nil, nil, NewPreconditionError("内容类型 %s 不支持生成字幕", content.ContentType)
	}

	if content.Platform == model.PlatformInstagram || content.Platform == model.PlatformLinkedin {
		if !content.HasFile() {
			return nil, nil, NewPreconditionError("%s 平台的视频必须先完成下载才能生成字幕", content.Platform)
		}
	}

	language = srt.NormalizeLanguage(language)
	if language == "" {
		language = "original"
	}

	// 同一内容同一语言的字幕唯一；失败的旧记录删除后重建
	var existing model.Subtitle
	err = s.db.Where("content_id = ? AND language = ?", content.ID, language).First(&existing).Error
	if err == nil {
		if existing.Status != model.SubtitleStatusFailed {
			return nil, nil, NewDuplicateError("内容 %s 已存在 %s 语言的字幕", content.ID, language)
		}
		if err := s.deleteSubtitleRecords(&existing); err != nil {
			return nil, nil, err
		}
		s.logger.Infof("已删除失败的旧字幕记录: SubtitleID=%s", existing.ID)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	subtitle := &model.Subtitle{
		ContentID: content.ID,
		Language:  language,
		Status:    model.SubtitleStatusPending,
	}
	task := &model.MediaTask{
		Kind:      model.TaskKindSubtitleGenerate,
		ContentID: content.ID,
		Status:    model.TaskStatusPending,
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(subtitle).Error; err != nil {
			return err
		}
		task.SubtitleID = &subtitle.ID
		return tx.Create(task).Error
	}); err != nil {
		return nil, nil, err
	}

	s.logger.Infof("已创建字幕生成任务: TaskID=%s, SubtitleID=%s, Language=%s", task.ID, subtitle.ID, language)
	return subtitle, task, nil
}

// TranslateSubtitle 将已完成的字幕翻译为目标语言。
// 与其他阶段不同，翻译同步执行，阻塞到外部翻译服务返回为止；
// 目标语言已有失败记录时原地复用该记录而不是新建。
func (s *PipelineService) TranslateSubtitle(ctx context.Context, sourceSubtitleID, targetLanguage string) (*model.Subtitle, error) {
	var source model.Subtitle
	if err := s.db.First(&source, "id = ?", sourceSubtitleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("字幕", sourceSubtitleID)
		}
		return nil, err
	}

	if !source.IsCompleted() {
		return nil, NewPreconditionError("源字幕 %s 尚未生成完成，无法翻译", source.ID)
	}

	targetLanguage = srt.NormalizeLanguage(targetLanguage)
	if targetLanguage == "" || targetLanguage == source.Language {
		return nil, NewPreconditionError("目标语言无效: %q", targetLanguage)
	}

	// 目标语言的字幕唯一；失败记录复用，非失败记录拒绝
	var target model.Subtitle
	err := s.db.Where("content_id = ? AND language = ?", source.ContentID, targetLanguage).First(&target).Error
	switch {
	case err == nil:
		if target.Status != model.SubtitleStatusFailed {
			return nil, NewDuplicateError("内容 %s 已存在 %s 语言的字幕", source.ContentID, targetLanguage)
		}
		target.MarkGenerating()
		if err := s.db.Save(&target).Error; err != nil {
			return nil, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		target = model.Subtitle{
			ContentID: source.ContentID,
			Language:  targetLanguage,
		}
		target.MarkGenerating()
		if err := s.db.Create(&target).Error; err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	s.logger.Infof("开始同步翻译字幕: SourceID=%s, TargetID=%s, Language=%s", source.ID, target.ID, targetLanguage)

	translated, err := s.translator.Translate(ctx, source.SubtitleText, targetLanguage)
	if err == nil {
		if vErr := srt.Validate(translated); vErr != nil {
			err = vErr
		}
	}

	if err != nil {
		callErr := NewExternalCallError("翻译字幕失败", err)
		target.MarkFailed(callErr)
		if saveErr := s.db.Save(&target).Error; saveErr != nil {
			s.logger.Errorf("保存字幕失败状态出错: %v", saveErr)
		}
		return nil, callErr
	}

	target.MarkCompleted(translated)
	if err := s.db.Save(&target).Error; err != nil {
		return nil, err
	}

	s.logger.Infof("字幕翻译完成: SubtitleID=%s, Language=%s", target.ID, targetLanguage)
	return &target, nil
}

// CreateSubtitleBurn 为已完成的字幕创建烧录任务
func (s *PipelineService) CreateSubtitleBurn(subtitleID string) (*model.MediaTask, error) {
	var subtitle model.Subtitle
	if err := s.db.First(&subtitle, "id = ?", subtitleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("字幕", subtitleID)
		}
		return nil, err
	}

	if !subtitle.IsCompleted() {
		return nil, NewPreconditionError("字幕 %s 尚未生成完成，无法烧录", subtitle.ID)
	}

	content, err := s.getContent(subtitle.ContentID)
	if err != nil {
		return nil, err
	}
	if !content.HasFile() {
		return nil, NewPreconditionError("内容 %s 还没有媒体文件，无法烧录字幕", content.ID)
	}

	// 同一字幕只允许存在一个非失败的烧录任务
	var count int64
	if err := s.db.Model(&model.MediaTask{}).
		Where("subtitle_id = ? AND kind = ? AND status IN ?",
			subtitle.ID, model.TaskKindSubtitleBurn, model.NonFailedTaskStatuses).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, NewDuplicateError("字幕 %s 已存在未失败的烧录任务", subtitle.ID)
	}

	task := &model.MediaTask{
		Kind:       model.TaskKindSubtitleBurn,
		ContentID:  content.ID,
		SubtitleID: &subtitle.ID,
		Status:     model.TaskStatusPending,
	}
	if err := s.db.Create(task).Error; err != nil {
		return nil, err
	}

	s.logger.Infof("已创建字幕烧录任务: TaskID=%s, SubtitleID=%s", task.ID, subtitle.ID)
	return task, nil
}

// CreateWatermarkBurn 为内容创建水印叠加任务
func (s *PipelineService) CreateWatermarkBurn(contentID, watermarkPath string) (*model.MediaTask, error) {
	content, err := s.getContent(contentID)
	if err != nil {
		return nil, err
	}
	if !content.HasFile() {
		return nil, NewPreconditionError("内容 %s 还没有媒体文件，无法添加水印", content.ID)
	}

	// 同一内容只允许存在一个非失败的水印任务
	var count int64
	if err := s.db.Model(&model.MediaTask{}).
		Where("content_id = ? AND kind = ? AND status IN ?",
			content.ID, model.TaskKindWatermarkBurn, model.NonFailedTaskStatuses).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, NewDuplicateError("内容 %s 已存在未失败的水印任务", content.ID)
	}

	task := &model.MediaTask{
		Kind:          model.TaskKindWatermarkBurn,
		ContentID:     content.ID,
		Status:        model.TaskStatusPending,
		WatermarkPath: watermarkPath,
	}
	if err := s.db.Create(task).Error; err != nil {
		return nil, err
	}

	s.logger.Infof("已创建水印任务: TaskID=%s, ContentID=%s", task.ID, content.ID)
	return task, nil
}

// GetTask 按 ID 查询任务
func (s *PipelineService) GetTask(taskID string) (*model.MediaTask, error) {
	var task model.MediaTask
	if err := s.db.First(&task, "id = ?", taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("任务", taskID)
		}
		return nil, err
	}
	return &task, nil
}

// GetSubtitle 按 ID 查询字幕
func (s *PipelineService) GetSubtitle(subtitleID string) (*model.Subtitle, error) {
	var subtitle model.Subtitle
	if err := s.db.First(&subtitle, "id = ?", subtitleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("字幕", subtitleID)
		}
		return nil, err
	}
	return &subtitle, nil
}

// ListSubtitles 列出内容的全部字幕
func (s *PipelineService) ListSubtitles(contentID string) ([]model.Subtitle, error) {
	var subtitles []model.Subtitle
	if err := s.db.Where("content_id = ?", contentID).
		Order("created_at ASC").Find(&subtitles).Error; err != nil {
		return nil, err
	}
	return subtitles, nil
}

// DeleteSubtitle 删除字幕及其关联任务
func (s *PipelineService) DeleteSubtitle(subtitleID string) error {
	var subtitle model.Subtitle
	if err := s.db.First(&subtitle, "id = ?", subtitleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewNotFoundError("字幕", subtitleID)
		}
		return err
	}
	return s.deleteSubtitleRecords(&subtitle)
}

// deleteSubtitleRecords 级联删除字幕及其任务
func (s *PipelineService) deleteSubtitleRecords(subtitle *model.Subtitle) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("subtitle_id = ?", subtitle.ID).Delete(&model.MediaTask{}).Error; err != nil {
			return err
		}
		return tx.Delete(subtitle).Error
	})
}

// getContent 按 ID 查询内容
func (s *PipelineService) getContent(contentID string) (*model.Content, error) {
	var content model.Content
	if err := s.db.First(&content, "id = ?", contentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("内容", contentID)
		}
		return nil, err
	}
	return &content, nil
}
