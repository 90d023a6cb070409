package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubtitleStatus 字幕状态
type SubtitleStatus string

const (
	SubtitleStatusPending    SubtitleStatus = "pending"
	SubtitleStatusGenerating SubtitleStatus = "generating"
	SubtitleStatusCompleted  SubtitleStatus = "completed"
	SubtitleStatusFailed     SubtitleStatus = "failed"
)

// Subtitle 字幕模型，同一内容按语言唯一
type Subtitle struct {
	ID               string         `json:"id" gorm:"primarykey;size:36"`
	ContentID        string         `json:"content_id" gorm:"size:36;not null;index;uniqueIndex:idx_content_language"`
	Language         string         `json:"language" gorm:"size:50;not null;uniqueIndex:idx_content_language;comment:字幕语言"`
	DetectedLanguage string         `json:"detected_language" gorm:"size:50;comment:从文本识别出的语言"`
	Status           SubtitleStatus `json:"status" gorm:"size:20;default:pending;index"`
	SubtitleText     string         `json:"subtitle_text" gorm:"type:text;comment:SRT格式字幕内容"`
	ErrorMsg         string         `json:"error_msg" gorm:"type:text"`
	StartedAt        *time.Time     `json:"started_at"`
	CompletedAt      *time.Time     `json:"completed_at"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`

	Content *Content `json:"content,omitempty" gorm:"foreignKey:ContentID"`
}

// TableName 指定表名
func (Subtitle) TableName() string {
	return "subtitles"
}

// BeforeCreate 生成主键
func (s *Subtitle) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// IsCompleted 是否已生成完成且有内容
func (s *Subtitle) IsCompleted() bool {
	return s.Status == SubtitleStatusCompleted && s.SubtitleText != ""
}

// MarkGenerating 标记为生成中
func (s *Subtitle) MarkGenerating() {
	now := time.Now()
	s.Status = SubtitleStatusGenerating
	s.ErrorMsg = ""
	s.StartedAt = &now
	s.CompletedAt = nil
}

// MarkCompleted 标记为已完成并写入字幕文本
func (s *Subtitle) MarkCompleted(text string) {
	now := time.Now()
	s.Status = SubtitleStatusCompleted
	s.SubtitleText = text
	s.ErrorMsg = ""
	s.CompletedAt = &now
}

// MarkFailed 标记为失败
func (s *Subtitle) MarkFailed(err error) {
	now := time.Now()
	s.Status = SubtitleStatusFailed
	s.ErrorMsg = err.Error()
	s.CompletedAt = &now
}
