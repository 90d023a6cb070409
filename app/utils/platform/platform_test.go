package platform

import (
	"media-forge/app/model"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		contentType model.ContentType
		platform    model.Platform
	}{
		{"youtube长链接", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", model.ContentTypeVideo, model.PlatformYoutube},
		{"youtube短链接", "https://youtu.be/dQw4w9WgXcQ", model.ContentTypeVideo, model.PlatformYoutube},
		{"instagram", "https://www.instagram.com/reel/abc123/", model.ContentTypeVideo, model.PlatformInstagram},
		{"instagram短域名", "https://instagr.am/p/abc123/", model.ContentTypeVideo, model.PlatformInstagram},
		{"linkedin", "https://www.linkedin.com/posts/someone_activity-123", model.ContentTypeVideo, model.PlatformLinkedin},
		{"大小写不敏感", "https://WWW.YOUTUBE.COM/watch?v=abc", model.ContentTypeVideo, model.PlatformYoutube},
		{"未知站点", "https://blog.example.com/post/1", model.ContentTypeText, model.PlatformOther},
		{"空字符串", "", model.ContentTypeText, model.PlatformOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contentType, p := Detect(tt.url)
			assert.Equal(t, tt.contentType, contentType)
			assert.Equal(t, tt.platform, p)
		})
	}
}
