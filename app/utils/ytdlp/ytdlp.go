package ytdlp

import (
	"bytes"
	"context"
	"fmt"
	"media-forge/app/logger"
	"os/exec"
	"path/filepath"
	"strings"
)

// Result 解析结果
type Result struct {
	URL      string // 可直接下载的远端地址
	Filename string
}

// Runner 本地 yt-dlp 解析器（linkedin 等无托管 API 的平台）
type Runner struct {
	binPath string
	logger  *logger.Logger
}

// New 创建 yt-dlp 解析器
func New(binPath string, log *logger.Logger) *Runner {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	return &Runner{binPath: binPath, logger: log}
}

// Resolve 通过 yt-dlp 解析视频的远端下载地址和文件名
func (r *Runner) Resolve(ctx context.Context, videoURL string) (*Result, error) {
	r.logger.Infof("使用 yt-dlp 解析视频地址: %s", videoURL)

	cmd := exec.CommandContext(ctx, r.binPath,
		"--get-url",
		"--get-filename",
		"-o", "%(id)s.%(ext)s",
		videoURL,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("yt-dlp 执行超时: %w", ctx.Err())
		}
		return nil, fmt.Errorf("yt-dlp 执行失败: %v, stderr: %s", err, tail(stderr.String()))
	}

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) < 2 {
		return nil, fmt.Errorf("yt-dlp 输出格式异常，无法提取下载地址")
	}

	return &Result{
		URL:      strings.TrimSpace(lines[0]),
		Filename: filepath.Base(strings.TrimSpace(lines[1])),
	}, nil
}

// tail 截取 stderr 末尾，避免错误信息过长
func tail(s string) string {
	const limit = 512
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	return "..." + s[len(s)-limit:]
}
