package service

import (
	"media-forge/app/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContentService(t *testing.T) *ContentService {
	t.Helper()
	db := newTestDB(t)
	pipeline := NewPipelineService(db, newTestConfig(t), newTestLogger(), &fakeTranslator{result: sampleSRT})
	return NewContentService(db, newTestLogger(), pipeline)
}

func TestCreateContent(t *testing.T) {
	t.Run("视频内容自动创建下载任务", func(t *testing.T) {
		s := newContentService(t)

		content, err := s.CreateContent("project-1", "https://www.youtube.com/watch?v=abc")
		require.NoError(t, err)
		assert.Equal(t, model.ContentTypeVideo, content.ContentType)
		assert.Equal(t, model.PlatformYoutube, content.Platform)

		var tasks []model.MediaTask
		require.NoError(t, s.db.Where("content_id = ?", content.ID).Find(&tasks).Error)
		require.Len(t, tasks, 1)
		assert.Equal(t, model.TaskKindDownload, tasks[0].Kind)
		assert.Equal(t, model.TaskStatusPending, tasks[0].Status)
	})

	t.Run("非视频内容不创建任务", func(t *testing.T) {
		s := newContentService(t)

		content, err := s.CreateContent("project-2", "https://blog.example.com/post")
		require.NoError(t, err)
		assert.Equal(t, model.ContentTypeText, content.ContentType)
		assert.Equal(t, model.PlatformOther, content.Platform)

		var count int64
		s.db.Model(&model.MediaTask{}).Where("content_id = ?", content.ID).Count(&count)
		assert.Zero(t, count)
	})

	t.Run("每个项目只允许一条内容", func(t *testing.T) {
		s := newContentService(t)

		_, err := s.CreateContent("project-3", "https://blog.example.com/a")
		require.NoError(t, err)

		_, err = s.CreateContent("project-3", "https://blog.example.com/b")
		assert.True(t, IsDuplicate(err))
	})

	t.Run("空参数拒绝", func(t *testing.T) {
		s := newContentService(t)

		_, err := s.CreateContent("", "https://example.com")
		assert.True(t, IsPrecondition(err))

		_, err = s.CreateContent("project-4", "")
		assert.True(t, IsPrecondition(err))
	})
}

func TestGetContent(t *testing.T) {
	s := newContentService(t)

	content, err := s.CreateContent("project-5", "https://www.youtube.com/watch?v=abc")
	require.NoError(t, err)

	loaded, err := s.GetContent(content.ID)
	require.NoError(t, err)
	assert.Equal(t, content.ID, loaded.ID)
	// 预加载关联任务
	assert.Len(t, loaded.Tasks, 1)

	_, err = s.GetContent("missing")
	assert.True(t, IsNotFound(err))
}

func TestDeleteContent(t *testing.T) {
	s := newContentService(t)

	content, err := s.CreateContent("project-6", "https://www.youtube.com/watch?v=abc")
	require.NoError(t, err)
	createCompletedSubtitle(t, s.db, content.ID, "original")

	require.NoError(t, s.DeleteContent(content.ID))

	var count int64
	s.db.Model(&model.Content{}).Where("id = ?", content.ID).Count(&count)
	assert.Zero(t, count)
	s.db.Model(&model.Subtitle{}).Where("content_id = ?", content.ID).Count(&count)
	assert.Zero(t, count)
	s.db.Model(&model.MediaTask{}).Where("content_id = ?", content.ID).Count(&count)
	assert.Zero(t, count)

	assert.True(t, IsNotFound(s.DeleteContent(content.ID)))
}

func TestClearFilePath(t *testing.T) {
	s := newContentService(t)
	content := createVideoContent(t, s.db, model.PlatformYoutube, true)
	path := *content.FilePath

	cleared, err := s.ClearFilePath(path)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cleared)

	var reloaded model.Content
	require.NoError(t, s.db.First(&reloaded, "id = ?", content.ID).Error)
	assert.Nil(t, reloaded.FilePath)

	// 没有内容指向该路径时不影响任何记录
	cleared, err = s.ClearFilePath(path)
	require.NoError(t, err)
	assert.Zero(t, cleared)
}
