package service

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"media-forge/app/model"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubtitleBurnExecutor(t *testing.T) {
	t.Run("烧录字幕并替换媒体产物指针", func(t *testing.T) {
		db := newTestDB(t)
		cfg := newTestConfig(t)
		filter := &fakeFilter{}
		exec := NewSubtitleBurnExecutor(db, cfg, newTestLogger(), filter)

		content := createVideoContent(t, db, model.PlatformYoutube, true)
		subtitle := createCompletedSubtitle(t, db, content.ID, "es")
		task := &model.MediaTask{
			Kind:       model.TaskKindSubtitleBurn,
			ContentID:  content.ID,
			SubtitleID: &subtitle.ID,
			Status:     model.TaskStatusPending,
		}
		require.NoError(t, db.Create(task).Error)

		require.NoError(t, exec.Execute(context.Background(), task))

		assert.Equal(t, 1, filter.burnCalls)
		assert.Equal(t, *content.FilePath, filter.lastVideoPath)
		// 调用时字幕临时文件存在，结束后被清理
		assert.True(t, filter.srtExisted)
		entries, err := os.ReadDir(cfg.Storage.ScratchDir)
		require.NoError(t, err)
		assert.Empty(t, entries)

		// 输出路径由内容ID和语言决定
		expected := filepath.Join(cfg.Storage.MediaDir, fmt.Sprintf("%s_%s.mp4", content.ID, subtitle.Language))
		assert.Equal(t, expected, filter.lastOutput)

		var reloadedTask model.MediaTask
		require.NoError(t, db.First(&reloadedTask, "id = ?", task.ID).Error)
		assert.Equal(t, expected, reloadedTask.OutputPath)

		var reloadedContent model.Content
		require.NoError(t, db.First(&reloadedContent, "id = ?", content.ID).Error)
		require.NotNil(t, reloadedContent.FilePath)
		assert.Equal(t, expected, *reloadedContent.FilePath)
	})

	t.Run("ffmpeg失败时临时文件仍被清理", func(t *testing.T) {
		db := newTestDB(t)
		cfg := newTestConfig(t)
		filter := &fakeFilter{burnErr: errors.New("ffmpeg 退出码 1")}
		exec := NewSubtitleBurnExecutor(db, cfg, newTestLogger(), filter)

		content := createVideoContent(t, db, model.PlatformYoutube, true)
		subtitle := createCompletedSubtitle(t, db, content.ID, "es")
		task := &model.MediaTask{
			Kind:       model.TaskKindSubtitleBurn,
			ContentID:  content.ID,
			SubtitleID: &subtitle.ID,
			Status:     model.TaskStatusPending,
		}
		require.NoError(t, db.Create(task).Error)

		err := exec.Execute(context.Background(), task)
		assert.True(t, IsExternalCall(err))

		entries, readErr := os.ReadDir(cfg.Storage.ScratchDir)
		require.NoError(t, readErr)
		assert.Empty(t, entries)

		// 失败时不更新媒体产物指针
		var reloaded model.Content
		require.NoError(t, db.First(&reloaded, "id = ?", content.ID).Error)
		assert.Equal(t, *content.FilePath, *reloaded.FilePath)
	})

	t.Run("字幕未完成时拒绝执行", func(t *testing.T) {
		db := newTestDB(t)
		exec := NewSubtitleBurnExecutor(db, newTestConfig(t), newTestLogger(), &fakeFilter{})

		content := createVideoContent(t, db, model.PlatformYoutube, true)
		subtitle := &model.Subtitle{ContentID: content.ID, Language: "es", Status: model.SubtitleStatusFailed}
		require.NoError(t, db.Create(subtitle).Error)
		task := &model.MediaTask{
			Kind:       model.TaskKindSubtitleBurn,
			ContentID:  content.ID,
			SubtitleID: &subtitle.ID,
			Status:     model.TaskStatusPending,
		}
		require.NoError(t, db.Create(task).Error)

		assert.True(t, IsPrecondition(exec.Execute(context.Background(), task)))
	})
}

func TestWatermarkBurnExecutor(t *testing.T) {
	// 生成测试用水印图片
	writeTestImage := func(t *testing.T, path string) {
		t.Helper()
		img := imaging.New(64, 64, color.NRGBA{R: 255, A: 255})
		require.NoError(t, imaging.Save(img, path))
	}

	t.Run("叠加任务指定的水印图片", func(t *testing.T) {
		db := newTestDB(t)
		cfg := newTestConfig(t)
		filter := &fakeFilter{}
		exec := NewWatermarkBurnExecutor(db, cfg, newTestLogger(), filter)

		imagePath := filepath.Join(t.TempDir(), "logo.png")
		writeTestImage(t, imagePath)

		content := createVideoContent(t, db, model.PlatformYoutube, true)
		task := &model.MediaTask{
			Kind:          model.TaskKindWatermarkBurn,
			ContentID:     content.ID,
			Status:        model.TaskStatusPending,
			WatermarkPath: imagePath,
		}
		require.NoError(t, db.Create(task).Error)

		require.NoError(t, exec.Execute(context.Background(), task))

		assert.Equal(t, 1, filter.overlayCalls)
		// 传给 ffmpeg 的是预处理后的图片
		assert.Contains(t, filter.lastImagePath, "_prepared.png")

		expected := filepath.Join(cfg.Storage.MediaDir, fmt.Sprintf("%s_watermarked.mp4", content.ID))
		assert.Equal(t, expected, filter.lastOutput)

		var reloaded model.Content
		require.NoError(t, db.First(&reloaded, "id = ?", content.ID).Error)
		require.NotNil(t, reloaded.FilePath)
		assert.Equal(t, expected, *reloaded.FilePath)
	})

	t.Run("没有图片时退回文字角标", func(t *testing.T) {
		db := newTestDB(t)
		cfg := newTestConfig(t)
		filter := &fakeFilter{}
		exec := NewWatermarkBurnExecutor(db, cfg, newTestLogger(), filter)

		content := createVideoContent(t, db, model.PlatformYoutube, true)
		task := &model.MediaTask{
			Kind:      model.TaskKindWatermarkBurn,
			ContentID: content.ID,
			Status:    model.TaskStatusPending,
		}
		require.NoError(t, db.Create(task).Error)

		require.NoError(t, exec.Execute(context.Background(), task))

		// 品牌文字角标生成在水印素材目录
		badgePath := filepath.Join(cfg.Storage.WatermarkDir, "brand_badge.png")
		_, err := os.Stat(badgePath)
		assert.NoError(t, err)
		assert.Equal(t, 1, filter.overlayCalls)
	})

	t.Run("内容没有媒体文件时拒绝执行", func(t *testing.T) {
		db := newTestDB(t)
		exec := NewWatermarkBurnExecutor(db, newTestConfig(t), newTestLogger(), &fakeFilter{})

		content := createVideoContent(t, db, model.PlatformYoutube, false)
		task := &model.MediaTask{
			Kind:      model.TaskKindWatermarkBurn,
			ContentID: content.ID,
			Status:    model.TaskStatusPending,
		}
		require.NoError(t, db.Create(task).Error)

		assert.True(t, IsPrecondition(exec.Execute(context.Background(), task)))
	})
}
