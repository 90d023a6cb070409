package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Download   DownloadConfig   `mapstructure:"download"`
	Transcribe TranscribeConfig `mapstructure:"transcribe"`
	Translate  TranslateConfig  `mapstructure:"translate"`
	Ffmpeg     FfmpegConfig     `mapstructure:"ffmpeg"`
	Queue      QueueConfig      `mapstructure:"queue"`
	Watermark  WatermarkConfig  `mapstructure:"watermark"`
	Watcher    WatcherConfig    `mapstructure:"watcher"`
}

type ServerConfig struct {
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`      // json 或 text
	Output     string `mapstructure:"output"`      // stdout 或 file
	MaxSize    int    `mapstructure:"max_size"`    // 兆字节
	MaxBackups int    `mapstructure:"max_backups"` // 备份数量
	MaxAge     int    `mapstructure:"max_age"`     // 天数
	Compress   bool   `mapstructure:"compress"`    // 是否压缩旧文件
}

type JWTConfig struct {
	Secret     string `mapstructure:"secret"`      // JWT 密钥
	ExpireTime int    `mapstructure:"expire_time"` // 过期时间（小时）
	Issuer     string `mapstructure:"issuer"`      // 签发者
}

// StorageConfig 媒体文件存储配置
type StorageConfig struct {
	MediaDir     string `mapstructure:"media_dir"`     // 视频产物目录
	ScratchDir   string `mapstructure:"scratch_dir"`   // 临时文件目录（字幕等中间产物）
	WatermarkDir string `mapstructure:"watermark_dir"` // 水印素材目录
}

// DownloadConfig 视频下载配置
type DownloadConfig struct {
	APIURL         string `mapstructure:"api_url"`         // 托管下载 API 地址
	APIKey         string `mapstructure:"api_key"`         // 托管下载 API 密钥
	YtdlpPath      string `mapstructure:"ytdlp_path"`      // yt-dlp 可执行文件路径
	ResolveTimeout int    `mapstructure:"resolve_timeout"` // 解析下载地址超时（秒）
	FetchTimeout   int    `mapstructure:"fetch_timeout"`   // 文件下载超时（分钟）
}

// TranscribeConfig 字幕转写服务配置
type TranscribeConfig struct {
	APIURL  string `mapstructure:"api_url"`
	APIKey  string `mapstructure:"api_key"`
	Timeout int    `mapstructure:"timeout"` // 秒
}

// TranslateConfig 字幕翻译服务配置
type TranslateConfig struct {
	APIURL  string `mapstructure:"api_url"`
	APIKey  string `mapstructure:"api_key"`
	Timeout int    `mapstructure:"timeout"` // 秒
}

// FfmpegConfig 视频滤镜配置
type FfmpegConfig struct {
	BinPath       string `mapstructure:"bin_path"`       // ffmpeg 可执行文件路径
	FilterTimeout int    `mapstructure:"filter_timeout"` // 滤镜处理超时（分钟）
	SubtitleStyle string `mapstructure:"subtitle_style"` // 字幕烧录样式（force_style）
}

// QueueConfig 任务队列配置
type QueueConfig struct {
	Workers      int `mapstructure:"workers"`        // 最大并发工作者数量
	RetryLimit   int `mapstructure:"retry_limit"`    // 最大重试次数
	RetryDelay   int `mapstructure:"retry_delay"`    // 重试延迟（秒）
	PollInterval int `mapstructure:"poll_interval"`  // 队列轮询间隔（秒）
	StaleMinutes int `mapstructure:"stale_minutes"`  // 任务卡死判定时间（分钟）
}

// WatermarkConfig 水印配置
type WatermarkConfig struct {
	ImagePath string `mapstructure:"image_path"` // 默认水印图片
	BrandText string `mapstructure:"brand_text"` // 无图片时生成文字水印
	Position  string `mapstructure:"position"`   // 位置: top-left/top-right/bottom-left/bottom-right
	MaxWidth  int    `mapstructure:"max_width"`  // 水印最大宽度（像素）
}

// WatcherConfig 媒体目录监控配置
type WatcherConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func Load() *Config {
	setDefaults()

	// 读取配置
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("未找到配置文件，使用默认配置")
		} else {
			log.Fatalf("读取配置文件出错: %v", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("无法解码配置: %v", err)
	}

	// 验证配置
	if err := validateConfig(&config); err != nil {
		log.Fatalf("配置验证失败: %v", err)
	}

	return &config
}

// RetryDelayDuration 重试延迟时长
func (q QueueConfig) RetryDelayDuration() time.Duration {
	return time.Duration(q.RetryDelay) * time.Second
}

// setDefaults 设置默认配置
func setDefaults() {
	viper.SetDefault("server.port", "8000")

	// 日志默认配置
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.max_size", 100)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("log.max_age", 28)
	viper.SetDefault("log.compress", true)

	// JWT默认配置
	viper.SetDefault("jwt.secret", "your-secret-key-change-in-production")
	viper.SetDefault("jwt.expire_time", 24) // 24小时
	viper.SetDefault("jwt.issuer", "media-forge")

	// 存储默认配置
	viper.SetDefault("storage.media_dir", "data/media/videos")
	viper.SetDefault("storage.scratch_dir", "data/media/scratch")
	viper.SetDefault("storage.watermark_dir", "data/media/watermarks")

	// 下载默认配置
	viper.SetDefault("download.api_url", "https://apihut.in/api/download/videos")
	viper.SetDefault("download.ytdlp_path", "yt-dlp")
	viper.SetDefault("download.resolve_timeout", 60)
	viper.SetDefault("download.fetch_timeout", 30)

	// 转写/翻译默认配置
	viper.SetDefault("transcribe.timeout", 300)
	viper.SetDefault("translate.timeout", 120)

	// 视频滤镜默认配置
	viper.SetDefault("ffmpeg.bin_path", "ffmpeg")
	viper.SetDefault("ffmpeg.filter_timeout", 10)
	viper.SetDefault("ffmpeg.subtitle_style", "FontSize=24,PrimaryColour=&HFFFFFF&")

	// 队列默认配置
	viper.SetDefault("queue.workers", 2)
	viper.SetDefault("queue.retry_limit", 3)
	viper.SetDefault("queue.retry_delay", 60)
	viper.SetDefault("queue.poll_interval", 1)
	viper.SetDefault("queue.stale_minutes", 30)

	// 水印默认配置
	viper.SetDefault("watermark.position", "bottom-right")
	viper.SetDefault("watermark.max_width", 240)
	viper.SetDefault("watermark.brand_text", "media-forge")

	// 目录监控默认配置
	viper.SetDefault("watcher.enabled", true)
}

// validateConfig 验证配置的有效性
func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return fmt.Errorf("服务器端口未设置")
	}
	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT密钥未设置")
	}
	if config.Queue.Workers <= 0 {
		return fmt.Errorf("队列工作者数量必须大于 0")
	}
	if config.Queue.RetryLimit < 0 {
		return fmt.Errorf("重试次数不能为负数")
	}
	return nil
}
