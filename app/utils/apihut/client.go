package apihut

import (
	"context"
	"fmt"
	"media-forge/app/config"
	"media-forge/app/logger"
	"time"

	"github.com/patrickmn/go-cache"
	"resty.dev/v3"
)

// Result 解析结果
type Result struct {
	URL      string // 可直接下载的远端地址
	Filename string
}

// resolveResponse 托管下载 API 的响应结构
type resolveResponse struct {
	Success  int    `json:"success"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Data     []struct {
		URL string `json:"url"`
	} `json:"data"`
}

// Client 托管下载 API 客户端（youtube/instagram）
type Client struct {
	http   *resty.Client
	cache  *cache.Cache
	logger *logger.Logger
}

// New 创建托管下载 API 客户端
func New(cfg config.DownloadConfig, log *logger.Logger) *Client {
	client := resty.New()
	client.SetBaseURL(cfg.APIURL)
	client.SetTimeout(time.Duration(cfg.ResolveTimeout) * time.Second)
	client.SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("X-Avatar-Key", cfg.APIKey)
	}

	return &Client{
		http: client,
		// 解析结果短期缓存，重试时避免重复请求解析接口
		cache:  cache.New(10*time.Minute, 30*time.Minute),
		logger: log,
	}
}

// Resolve 解析视频的远端下载地址
func (c *Client) Resolve(ctx context.Context, videoURL, platform string) (*Result, error) {
	cacheKey := platform + "|" + videoURL
	if cached, found := c.cache.Get(cacheKey); found {
		c.logger.Debugf("命中下载地址缓存: %s", videoURL)
		return cached.(*Result), nil
	}

	var response resolveResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"video_url": videoURL,
			"type":      platform,
		}).
		SetResult(&response).
		Post("")

	if err != nil {
		return nil, fmt.Errorf("请求下载 API 失败: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("下载 API 返回错误，状态码: %d, 响应: %s", resp.StatusCode(), resp.String())
	}
	if response.Success == 0 {
		return nil, fmt.Errorf("下载 API 请求未成功: %s", resp.String())
	}

	result := &Result{URL: response.URL, Filename: response.Filename}

	// instagram 的下载地址在 data 数组里
	if platform == "instagram" {
		if len(response.Data) == 0 {
			return nil, fmt.Errorf("下载 API 未返回 instagram 视频数据")
		}
		result.URL = response.Data[0].URL
	}

	if result.URL == "" {
		return nil, fmt.Errorf("下载 API 响应中没有下载地址")
	}

	c.cache.Set(cacheKey, result, cache.DefaultExpiration)
	return result, nil
}
