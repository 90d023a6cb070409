package service

import (
	"context"
	"media-forge/app/config"
	"media-forge/app/logger"
	"media-forge/app/model"
	"media-forge/app/utils/transcribe"
	"media-forge/app/utils/videodl"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const sampleSRT = `1
00:00:01,000 --> 00:00:02,500
Hello world

2
00:00:03,000 --> 00:00:04,000
Second line
`

// newTestDB 创建每个测试独立的 sqlite 数据库
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Content{}, &model.Subtitle{}, &model.MediaTask{}))
	return db
}

func newTestLogger() *logger.Logger {
	return logger.New(config.LogConfig{Level: "error", Format: "text", Output: "stdout"})
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()

	base := t.TempDir()
	return &config.Config{
		Storage: config.StorageConfig{
			MediaDir:     filepath.Join(base, "media"),
			ScratchDir:   filepath.Join(base, "scratch"),
			WatermarkDir: filepath.Join(base, "watermark"),
		},
		Queue: config.QueueConfig{
			Workers:      2,
			RetryLimit:   3,
			RetryDelay:   60,
			PollInterval: 1,
			StaleMinutes: 30,
		},
		Watermark: config.WatermarkConfig{
			BrandText: "MediaForge",
			Position:  "bottom-right",
			MaxWidth:  200,
		},
	}
}

// createVideoContent 创建视频内容测试数据
func createVideoContent(t *testing.T, db *gorm.DB, p model.Platform, withFile bool) *model.Content {
	t.Helper()

	content := &model.Content{
		ProjectID:   "project-" + string(p) + "-" + filepath.Base(t.TempDir()),
		SourceURL:   "https://example.com/video",
		ContentType: model.ContentTypeVideo,
		Platform:    p,
	}
	if withFile {
		path := filepath.Join(t.TempDir(), "video.mp4")
		require.NoError(t, os.WriteFile(path, []byte("fake video"), 0644))
		content.FilePath = &path
	}
	require.NoError(t, db.Create(content).Error)
	return content
}

// createCompletedSubtitle 创建已完成的字幕测试数据
func createCompletedSubtitle(t *testing.T, db *gorm.DB, contentID, lang string) *model.Subtitle {
	t.Helper()

	subtitle := &model.Subtitle{
		ContentID: contentID,
		Language:  lang,
	}
	subtitle.MarkCompleted(sampleSRT)
	require.NoError(t, db.Create(subtitle).Error)
	return subtitle
}

type fakeTranslator struct {
	result string
	err    error
	calls  int
}

func (f *fakeTranslator) Translate(ctx context.Context, srtText, targetLanguage string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.result, nil
}

type fakeTranscriber struct {
	result     string
	err        error
	lastSource transcribe.Source
}

func (f *fakeTranscriber) Generate(ctx context.Context, source transcribe.Source) (string, error) {
	f.lastSource = source
	if f.err != nil {
		return "", f.err
	}
	return f.result, nil
}

type fakeDownloader struct {
	remoteURL  string
	resolveErr error
	fetchSize  int64
	fetchErr   error
	fetchedURL string
	destPath   string
}

func (f *fakeDownloader) Resolve(ctx context.Context, videoURL string, p model.Platform) (*videodl.ResolveResult, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return &videodl.ResolveResult{RemoteURL: f.remoteURL}, nil
}

func (f *fakeDownloader) Fetch(ctx context.Context, remoteURL, destPath string) (int64, error) {
	f.fetchedURL = remoteURL
	f.destPath = destPath
	if f.fetchErr != nil {
		return 0, f.fetchErr
	}
	return f.fetchSize, nil
}

type fakeFilter struct {
	burnErr       error
	overlayErr    error
	burnCalls     int
	overlayCalls  int
	srtExisted    bool
	lastVideoPath string
	lastImagePath string
	lastOutput    string
}

func (f *fakeFilter) BurnSubtitles(ctx context.Context, videoPath, srtPath, outputPath, style string) error {
	f.burnCalls++
	f.lastVideoPath = videoPath
	f.lastOutput = outputPath
	if _, err := os.Stat(srtPath); err == nil {
		f.srtExisted = true
	}
	return f.burnErr
}

func (f *fakeFilter) OverlayWatermark(ctx context.Context, videoPath, imagePath, outputPath, position string) error {
	f.overlayCalls++
	f.lastVideoPath = videoPath
	f.lastImagePath = imagePath
	f.lastOutput = outputPath
	return f.overlayErr
}
