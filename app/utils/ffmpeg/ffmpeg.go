package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"media-forge/app/config"
	"media-forge/app/logger"
	"os/exec"
	"strings"
	"time"
)

// Filter 基于 ffmpeg 的视频滤镜，负责字幕烧录和水印叠加
type Filter struct {
	binPath       string
	filterTimeout time.Duration
	logger        *logger.Logger
}

// New 创建视频滤镜
func New(cfg config.FfmpegConfig, log *logger.Logger) *Filter {
	binPath := cfg.BinPath
	if binPath == "" {
		binPath = "ffmpeg"
	}
	timeout := time.Duration(cfg.FilterTimeout) * time.Minute
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	return &Filter{
		binPath:       binPath,
		filterTimeout: timeout,
		logger:        log,
	}
}

// BurnSubtitles 将 SRT 字幕烧录进视频
func (f *Filter) BurnSubtitles(ctx context.Context, videoPath, srtPath, outputPath, style string) error {
	vf := fmt.Sprintf("subtitles=%s", escapeFilterPath(srtPath))
	if style != "" {
		vf += fmt.Sprintf(":force_style='%s'", style)
	}

	args := []string{
		"-y",
		"-i", videoPath,
		"-vf", vf,
		"-c:a", "copy",
		outputPath,
	}

	return f.run(ctx, args)
}

// OverlayWatermark 将水印图片叠加到视频上
func (f *Filter) OverlayWatermark(ctx context.Context, videoPath, imagePath, outputPath, position string) error {
	args := []string{
		"-y",
		"-i", videoPath,
		"-i", imagePath,
		"-filter_complex", fmt.Sprintf("overlay=%s", overlayExpr(position)),
		"-c:a", "copy",
		outputPath,
	}

	return f.run(ctx, args)
}

// run 执行 ffmpeg 命令，超出时间上限视为失败
func (f *Filter) run(ctx context.Context, args []string) error {
	runCtx, cancel := context.WithTimeout(ctx, f.filterTimeout)
	defer cancel()

	f.logger.Debugf("执行 ffmpeg: %s %s", f.binPath, strings.Join(args, " "))

	cmd := exec.CommandContext(runCtx, f.binPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("ffmpeg 处理超时（超过 %v）", f.filterTimeout)
		}
		return fmt.Errorf("ffmpeg 执行失败: %v, stderr: %s", err, stderrTail(stderr.String()))
	}

	return nil
}

// overlayExpr 根据位置生成 overlay 滤镜表达式，边距固定 10 像素
func overlayExpr(position string) string {
	switch position {
	case "top-left":
		return "10:10"
	case "top-right":
		return "W-w-10:10"
	case "bottom-left":
		return "10:H-h-10"
	default: // bottom-right
		return "W-w-10:H-h-10"
	}
}

// escapeFilterPath 转义 subtitles 滤镜中的路径特殊字符
func escapeFilterPath(path string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`:`, `\:`,
		`'`, `\'`,
	)
	return replacer.Replace(path)
}

// stderrTail 截取 stderr 末尾，ffmpeg 的错误信息在最后几行
func stderrTail(s string) string {
	const limit = 1024
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	return "..." + s[len(s)-limit:]
}
