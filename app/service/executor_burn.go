package service

import (
	"context"
	"errors"
	"fmt"
	"media-forge/app/config"
	"media-forge/app/logger"
	"media-forge/app/model"
	"media-forge/app/utils/watermark"
	"os"
	"path/filepath"

	"gorm.io/gorm"
)

// SubtitleBurnExecutor 字幕烧录任务执行器
type SubtitleBurnExecutor struct {
	db     *gorm.DB
	cfg    *config.Config
	logger *logger.Logger
	filter VideoFilter
	store  *artifactStore
}

// NewSubtitleBurnExecutor 创建字幕烧录任务执行器
func NewSubtitleBurnExecutor(db *gorm.DB, cfg *config.Config, log *logger.Logger, filter VideoFilter) *SubtitleBurnExecutor {
	return &SubtitleBurnExecutor{
		db:     db,
		cfg:    cfg,
		logger: log,
		filter: filter,
		store:  &artifactStore{db: db},
	}
}

func (e *SubtitleBurnExecutor) Kind() model.TaskKind {
	return model.TaskKindSubtitleBurn
}

// Execute 把字幕烧录进当前媒体文件并替换内容的媒体产物指针。
// 字幕先写入临时文件，成功与否都会清理。
func (e *SubtitleBurnExecutor) Execute(ctx context.Context, task *model.MediaTask) error {
	if task.SubtitleID == nil {
		return errors.New("字幕烧录任务缺少字幕ID")
	}

	var subtitle model.Subtitle
	if err := e.db.First(&subtitle, "id = ?", *task.SubtitleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewNotFoundError("字幕", *task.SubtitleID)
		}
		return err
	}
	if !subtitle.IsCompleted() {
		return NewPreconditionError("字幕 %s 尚未生成完成，无法烧录", subtitle.ID)
	}

	var content model.Content
	if err := e.db.First(&content, "id = ?", task.ContentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewNotFoundError("内容", task.ContentID)
		}
		return err
	}
	if !content.HasFile() {
		return NewPreconditionError("内容 %s 还没有媒体文件，无法烧录字幕", content.ID)
	}

	// 本次执行读取到的媒体文件快照
	videoPath := *content.FilePath

	// 字幕写入临时文件，结束时无论成败都删除
	srtPath, cleanup, err := writeScratchFile(e.cfg.Storage.ScratchDir, "subtitle-*.srt", subtitle.SubtitleText)
	if err != nil {
		return err
	}
	defer cleanup()

	outputPath := filepath.Join(e.cfg.Storage.MediaDir, fmt.Sprintf("%s_%s.mp4", content.ID, subtitle.Language))

	if err := e.filter.BurnSubtitles(ctx, videoPath, srtPath, outputPath, e.cfg.Ffmpeg.SubtitleStyle); err != nil {
		return NewExternalCallError("字幕烧录失败", err)
	}

	task.OutputPath = outputPath
	if err := e.db.Model(task).Update("output_path", outputPath).Error; err != nil {
		return err
	}

	if err := e.store.UpdateFilePath(content.ID, outputPath); err != nil {
		return err
	}

	e.logger.Infof("字幕烧录完成: ContentID=%s, SubtitleID=%s, Output=%s", content.ID, subtitle.ID, outputPath)
	return nil
}

// WatermarkBurnExecutor 水印叠加任务执行器
type WatermarkBurnExecutor struct {
	db     *gorm.DB
	cfg    *config.Config
	logger *logger.Logger
	filter VideoFilter
	store  *artifactStore
}

// NewWatermarkBurnExecutor 创建水印叠加任务执行器
func NewWatermarkBurnExecutor(db *gorm.DB, cfg *config.Config, log *logger.Logger, filter VideoFilter) *WatermarkBurnExecutor {
	return &WatermarkBurnExecutor{
		db:     db,
		cfg:    cfg,
		logger: log,
		filter: filter,
		store:  &artifactStore{db: db},
	}
}

func (e *WatermarkBurnExecutor) Kind() model.TaskKind {
	return model.TaskKindWatermarkBurn
}

// Execute 把水印叠加到当前媒体文件并替换内容的媒体产物指针。
// 任务没带水印图片时退回到配置的默认图片，再退回到文字角标。
func (e *WatermarkBurnExecutor) Execute(ctx context.Context, task *model.MediaTask) error {
	var content model.Content
	if err := e.db.First(&content, "id = ?", task.ContentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewNotFoundError("内容", task.ContentID)
		}
		return err
	}
	if !content.HasFile() {
		return NewPreconditionError("内容 %s 还没有媒体文件，无法添加水印", content.ID)
	}

	videoPath := *content.FilePath

	imagePath, err := e.resolveWatermarkImage(task)
	if err != nil {
		return err
	}

	// 水印图片按配置的最大宽度预缩放，产物是临时文件
	prepared, err := watermark.Prepare(imagePath, e.cfg.Storage.ScratchDir, e.cfg.Watermark.MaxWidth)
	if err != nil {
		return err
	}
	defer os.Remove(prepared)

	outputPath := filepath.Join(e.cfg.Storage.MediaDir, fmt.Sprintf("%s_watermarked.mp4", content.ID))

	if err := e.filter.OverlayWatermark(ctx, videoPath, prepared, outputPath, e.cfg.Watermark.Position); err != nil {
		return NewExternalCallError("水印叠加失败", err)
	}

	task.OutputPath = outputPath
	if err := e.db.Model(task).Update("output_path", outputPath).Error; err != nil {
		return err
	}

	if err := e.store.UpdateFilePath(content.ID, outputPath); err != nil {
		return err
	}

	e.logger.Infof("水印叠加完成: ContentID=%s, Output=%s", content.ID, outputPath)
	return nil
}

// resolveWatermarkImage 确定本次使用的水印图片
func (e *WatermarkBurnExecutor) resolveWatermarkImage(task *model.MediaTask) (string, error) {
	if task.WatermarkPath != "" {
		return task.WatermarkPath, nil
	}
	if e.cfg.Watermark.ImagePath != "" {
		return e.cfg.Watermark.ImagePath, nil
	}

	// 没有任何图片时用品牌文字生成角标
	badgePath := filepath.Join(e.cfg.Storage.WatermarkDir, "brand_badge.png")
	if _, err := os.Stat(badgePath); os.IsNotExist(err) {
		if err := watermark.RenderBadge(e.cfg.Watermark.BrandText, badgePath); err != nil {
			return "", err
		}
		e.logger.Infof("已生成文字水印: %s", badgePath)
	}
	return badgePath, nil
}

// writeScratchFile 把文本写入临时文件，返回路径和清理函数
func writeScratchFile(dir, pattern, text string) (string, func(), error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", nil, fmt.Errorf("创建临时目录失败: %w", err)
	}

	file, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", nil, fmt.Errorf("创建临时文件失败: %w", err)
	}

	path := file.Name()
	cleanup := func() { os.Remove(path) }

	if _, err := file.WriteString(text); err != nil {
		file.Close()
		cleanup()
		return "", nil, fmt.Errorf("写入临时文件失败: %w", err)
	}
	if err := file.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("关闭临时文件失败: %w", err)
	}

	return path, cleanup, nil
}
