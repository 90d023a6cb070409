package service

import (
	"context"
	"errors"
	"media-forge/app/config"
	"media-forge/app/logger"
	"media-forge/app/model"
	"media-forge/app/utils/srt"
	"media-forge/app/utils/transcribe"

	"gorm.io/gorm"
)

// SubtitleGenerateExecutor 字幕生成任务执行器
type SubtitleGenerateExecutor struct {
	db          *gorm.DB
	cfg         *config.Config
	logger      *logger.Logger
	transcriber Transcriber
}

// NewSubtitleGenerateExecutor 创建字幕生成任务执行器
func NewSubtitleGenerateExecutor(db *gorm.DB, cfg *config.Config, log *logger.Logger, tr Transcriber) *SubtitleGenerateExecutor {
	return &SubtitleGenerateExecutor{
		db:          db,
		cfg:         cfg,
		logger:      log,
		transcriber: tr,
	}
}

func (e *SubtitleGenerateExecutor) Kind() model.TaskKind {
	return model.TaskKindSubtitleGenerate
}

// Execute 调用转写服务生成字幕。youtube 直接用来源地址转写，
// 其余平台使用已下载的本地文件。
func (e *SubtitleGenerateExecutor) Execute(ctx context.Context, task *model.MediaTask) error {
	if task.SubtitleID == nil {
		return errors.New("字幕生成任务缺少字幕ID")
	}

	var subtitle model.Subtitle
	if err := e.db.First(&subtitle, "id = ?", *task.SubtitleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewNotFoundError("字幕", *task.SubtitleID)
		}
		return err
	}

	var content model.Content
	if err := e.db.First(&content, "id = ?", task.ContentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewNotFoundError("内容", task.ContentID)
		}
		return err
	}

	subtitle.MarkGenerating()
	if err := e.db.Save(&subtitle).Error; err != nil {
		return err
	}

	text, err := e.generate(ctx, &content)
	if err != nil {
		callErr := NewExternalCallError("生成字幕失败", err)
		subtitle.MarkFailed(callErr)
		if saveErr := e.db.Save(&subtitle).Error; saveErr != nil {
			e.logger.Errorf("保存字幕失败状态出错: SubtitleID=%s, %v", subtitle.ID, saveErr)
		}
		return callErr
	}

	// 识别实际语言，便于后续翻译时知道源语言
	if detected := srt.DetectLanguage(text); detected != "" {
		subtitle.DetectedLanguage = detected
	}

	subtitle.MarkCompleted(text)
	if err := e.db.Save(&subtitle).Error; err != nil {
		return err
	}

	e.logger.Infof("字幕生成完成: SubtitleID=%s, Language=%s, DetectedLanguage=%s",
		subtitle.ID, subtitle.Language, subtitle.DetectedLanguage)
	return nil
}

// generate 按平台选择转写输入并校验输出
func (e *SubtitleGenerateExecutor) generate(ctx context.Context, content *model.Content) (string, error) {
	var source transcribe.Source
	if content.Platform == model.PlatformYoutube {
		// youtube 有可直接转写的流地址
		source.RemoteURL = content.SourceURL
	} else {
		if !content.HasFile() {
			return "", errors.New("内容还没有本地媒体文件，无法转写")
		}
		source.FilePath = *content.FilePath
	}

	text, err := e.transcriber.Generate(ctx, source)
	if err != nil {
		return "", err
	}

	if err := srt.Validate(text); err != nil {
		return "", err
	}
	return text, nil
}
