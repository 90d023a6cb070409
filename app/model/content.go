package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContentType 内容类型
type ContentType string

const (
	ContentTypeVideo ContentType = "video"
	ContentTypeText  ContentType = "text"
	ContentTypeImage ContentType = "image"
)

// Platform 内容来源平台
type Platform string

const (
	PlatformYoutube   Platform = "youtube"
	PlatformInstagram Platform = "instagram"
	PlatformLinkedin  Platform = "linkedin"
	PlatformOther     Platform = "other"
)

// Content 内容模型，记录用户从搜索结果中选定的媒体资源
type Content struct {
	ID          string      `json:"id" gorm:"primarykey;size:36"`
	ProjectID   string      `json:"project_id" gorm:"size:36;not null;uniqueIndex;comment:所属项目ID"`
	SourceURL   string      `json:"source_url" gorm:"size:1000;not null"`
	ContentType ContentType `json:"content_type" gorm:"size:20;default:text"`
	Platform    Platform    `json:"platform" gorm:"size:50;default:other"`
	FilePath    *string     `json:"file_path" gorm:"size:500;comment:当前最新媒体产物路径"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`

	// 关联关系
	Subtitles []Subtitle  `json:"subtitles,omitempty" gorm:"foreignKey:ContentID"`
	Tasks     []MediaTask `json:"tasks,omitempty" gorm:"foreignKey:ContentID"`
}

// TableName 指定表名
func (Content) TableName() string {
	return "contents"
}

// BeforeCreate 生成主键
func (c *Content) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// IsVideo 是否为视频内容
func (c *Content) IsVideo() bool {
	return c.ContentType == ContentTypeVideo
}

// HasFile 是否已有媒体文件
func (c *Content) HasFile() bool {
	return c.FilePath != nil && *c.FilePath != ""
}
