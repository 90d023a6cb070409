package platform

import (
	"media-forge/app/model"
	"strings"
)

// Detect 根据 URL 识别内容类型和来源平台。
// 纯函数，大小写不敏感的域名子串匹配，任何输入都有结果。
func Detect(url string) (model.ContentType, model.Platform) {
	lower := strings.ToLower(url)

	switch {
	case strings.Contains(lower, "instagram.com") || strings.Contains(lower, "instagr.am"):
		return model.ContentTypeVideo, model.PlatformInstagram
	case strings.Contains(lower, "youtube.com") || strings.Contains(lower, "youtu.be"):
		return model.ContentTypeVideo, model.PlatformYoutube
	case strings.Contains(lower, "linkedin.com"):
		return model.ContentTypeVideo, model.PlatformLinkedin
	default:
		return model.ContentTypeText, model.PlatformOther
	}
}
