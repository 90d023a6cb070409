package videodl

import (
	"context"
	"fmt"
	"media-forge/app/config"
	"media-forge/app/logger"
	"media-forge/app/model"
	"media-forge/app/utils/apihut"
	"media-forge/app/utils/downloader"
	"media-forge/app/utils/ytdlp"
	"time"
)

// ResolveResult 下载地址解析结果
type ResolveResult struct {
	RemoteURL string
	Filename  string
}

// Client 视频下载客户端。linkedin 走本地 yt-dlp 解析，
// youtube/instagram 走托管下载 API。
type Client struct {
	cfg    config.DownloadConfig
	apihut *apihut.Client
	ytdlp  *ytdlp.Runner
	logger *logger.Logger
}

// New 创建视频下载客户端
func New(cfg config.DownloadConfig, log *logger.Logger) *Client {
	return &Client{
		cfg:    cfg,
		apihut: apihut.New(cfg, log),
		ytdlp:  ytdlp.New(cfg.YtdlpPath, log),
		logger: log,
	}
}

// Resolve 解析视频的远端下载地址
func (c *Client) Resolve(ctx context.Context, videoURL string, platform model.Platform) (*ResolveResult, error) {
	resolveCtx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.ResolveTimeout)*time.Second)
	defer cancel()

	switch platform {
	case model.PlatformLinkedin:
		res, err := c.ytdlp.Resolve(resolveCtx, videoURL)
		if err != nil {
			return nil, err
		}
		return &ResolveResult{RemoteURL: res.URL, Filename: res.Filename}, nil

	case model.PlatformYoutube, model.PlatformInstagram:
		res, err := c.apihut.Resolve(resolveCtx, videoURL, string(platform))
		if err != nil {
			return nil, err
		}
		return &ResolveResult{RemoteURL: res.URL, Filename: res.Filename}, nil

	default:
		return nil, fmt.Errorf("不支持的平台: %s", platform)
	}
}

// Fetch 将远端文件下载到本地路径，返回文件字节数
func (c *Client) Fetch(ctx context.Context, remoteURL, destPath string) (int64, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.FetchTimeout)*time.Minute)
	defer cancel()

	c.logger.Infof("开始下载文件: %s -> %s", remoteURL, destPath)
	return downloader.DownloadToFile(fetchCtx, remoteURL, destPath)
}
