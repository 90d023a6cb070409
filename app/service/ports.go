package service

import (
	"context"
	"media-forge/app/model"
	"media-forge/app/utils/transcribe"
	"media-forge/app/utils/videodl"
)

// Downloader 视频下载能力
type Downloader interface {
	// Resolve 解析视频的远端下载地址
	Resolve(ctx context.Context, videoURL string, platform model.Platform) (*videodl.ResolveResult, error)
	// Fetch 将远端文件下载到本地路径，返回字节数
	Fetch(ctx context.Context, remoteURL, destPath string) (int64, error)
}

// Transcriber 字幕转写能力
type Transcriber interface {
	// Generate 从本地文件或远端流地址生成 SRT 字幕文本
	Generate(ctx context.Context, source transcribe.Source) (string, error)
}

// Translator 字幕翻译能力
type Translator interface {
	// Translate 将 SRT 字幕翻译为目标语言，保留时间轴
	Translate(ctx context.Context, srtText, targetLanguage string) (string, error)
}

// VideoFilter 视频滤镜能力
type VideoFilter interface {
	// BurnSubtitles 将字幕文件烧录进视频
	BurnSubtitles(ctx context.Context, videoPath, srtPath, outputPath, style string) error
	// OverlayWatermark 将水印图片叠加到视频
	OverlayWatermark(ctx context.Context, videoPath, imagePath, outputPath, position string) error
}
