package service

import (
	"media-forge/app/model"

	"gorm.io/gorm"
)

// artifactStore 内容当前媒体产物指针的唯一写入口。
// 各阶段在启动时读取快照，完成时无条件覆盖（最后完成者胜出）。
// 之后若需要更强的一致性，可以在这里升级为带版本号的 CAS。
type artifactStore struct {
	db *gorm.DB
}

// UpdateFilePath 将内容的当前媒体产物指向新路径
func (s *artifactStore) UpdateFilePath(contentID, path string) error {
	return s.db.Model(&model.Content{}).
		Where("id = ?", contentID).
		Update("file_path", path).Error
}

// ClearFilePathIf 清除指向指定路径的当前媒体产物指针。
// 文件在外部被删除时由目录监控调用。
func (s *artifactStore) ClearFilePathIf(path string) (int64, error) {
	result := s.db.Model(&model.Content{}).
		Where("file_path = ?", path).
		Update("file_path", nil)
	return result.RowsAffected, result.Error
}
