package transcribe

import (
	"context"
	"fmt"
	"media-forge/app/config"
	"media-forge/app/logger"
	"time"

	"resty.dev/v3"
)

// Source 转写输入，本地文件或远端流地址二选一
type Source struct {
	FilePath  string
	RemoteURL string
}

// transcribeResponse 转写服务响应结构
type transcribeResponse struct {
	Success bool   `json:"success"`
	SRT     string `json:"srt"`
	Message string `json:"message"`
}

// Client 字幕转写服务客户端
type Client struct {
	http   *resty.Client
	logger *logger.Logger
}

// New 创建转写服务客户端
func New(cfg config.TranscribeConfig, log *logger.Logger) *Client {
	client := resty.New()
	client.SetBaseURL(cfg.APIURL)
	client.SetTimeout(time.Duration(cfg.Timeout) * time.Second)
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}

	return &Client{http: client, logger: log}
}

// Generate 从视频生成 SRT 格式字幕文本
func (c *Client) Generate(ctx context.Context, source Source) (string, error) {
	req := c.http.R().SetContext(ctx)

	var response transcribeResponse
	req.SetResult(&response)

	if source.FilePath != "" {
		c.logger.Infof("提交本地文件转写: %s", source.FilePath)
		req.SetFile("file", source.FilePath)
		req.SetFormData(map[string]string{"format": "srt"})
	} else if source.RemoteURL != "" {
		c.logger.Infof("提交远端地址转写: %s", source.RemoteURL)
		req.SetBody(map[string]string{"url": source.RemoteURL, "format": "srt"})
	} else {
		return "", fmt.Errorf("转写输入为空")
	}

	resp, err := req.Post("")
	if err != nil {
		return "", fmt.Errorf("请求转写服务失败: %w", err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("转写服务返回错误，状态码: %d, 响应: %s", resp.StatusCode(), resp.String())
	}
	if !response.Success {
		return "", fmt.Errorf("转写失败: %s", response.Message)
	}
	if response.SRT == "" {
		return "", fmt.Errorf("转写服务未返回字幕内容")
	}

	return response.SRT, nil
}
