package translate

import (
	"context"
	"fmt"
	"media-forge/app/config"
	"media-forge/app/logger"
	"time"

	"resty.dev/v3"
)

// translateResponse 翻译服务响应结构
type translateResponse struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
	Message string `json:"message"`
}

// Client 字幕翻译服务客户端
type Client struct {
	http   *resty.Client
	logger *logger.Logger
}

// New 创建翻译服务客户端
func New(cfg config.TranslateConfig, log *logger.Logger) *Client {
	client := resty.New()
	client.SetBaseURL(cfg.APIURL)
	client.SetTimeout(time.Duration(cfg.Timeout) * time.Second)
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}

	return &Client{http: client, logger: log}
}

// Translate 将 SRT 字幕文本翻译为目标语言，保留时间轴
func (c *Client) Translate(ctx context.Context, srtText, targetLanguage string) (string, error) {
	c.logger.Infof("提交字幕翻译，目标语言: %s", targetLanguage)

	var response translateResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"text":            srtText,
			"target_language": targetLanguage,
			"format":          "srt",
		}).
		SetResult(&response).
		Post("")

	if err != nil {
		return "", fmt.Errorf("请求翻译服务失败: %w", err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("翻译服务返回错误，状态码: %d, 响应: %s", resp.StatusCode(), resp.String())
	}
	if !response.Success {
		return "", fmt.Errorf("翻译失败: %s", response.Message)
	}
	if response.Text == "" {
		return "", fmt.Errorf("翻译服务未返回内容")
	}

	return response.Text, nil
}
