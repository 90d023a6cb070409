package database

import (
	"fmt"
	"media-forge/app/config"
	"media-forge/app/logger"
	"media-forge/app/model"
	"media-forge/app/utils"
)

// InitAdminUser 初始化管理员账户
func InitAdminUser(cfg *config.Config, log *logger.Logger) error {
	// 检查配置文件中是否有管理员用户名和密码
	if cfg.Server.Username == "" || cfg.Server.Password == "" {
		log.Warnf("配置文件中未设置管理员账户，跳过管理员初始化")
		return nil
	}

	// 查找是否已存在管理员用户
	var existingAdmin model.User
	result := DB.Where("is_admin = ?", true).First(&existingAdmin)

	if result.Error == nil {
		// 管理员用户已存在，检查是否需要更新用户名和密码
		needUpdate := false

		if existingAdmin.Username != cfg.Server.Username {
			var conflictUser model.User
			conflictResult := DB.Where("username = ? AND id != ?", cfg.Server.Username, existingAdmin.ID).First(&conflictUser)
			if conflictResult.Error == nil {
				return fmt.Errorf("用户名 '%s' 已被其他用户使用，无法更新管理员用户名", cfg.Server.Username)
			}

			existingAdmin.Username = cfg.Server.Username
			needUpdate = true
		}

		if !utils.VerifyPassword(cfg.Server.Password, existingAdmin.Password) {
			expectedHash, err := utils.HashPassword(cfg.Server.Password)
			if err != nil {
				return fmt.Errorf("哈希密码失败: %v", err)
			}
			existingAdmin.Password = expectedHash
			needUpdate = true
		}

		if needUpdate {
			if err := DB.Save(&existingAdmin).Error; err != nil {
				return fmt.Errorf("更新管理员账户失败: %v", err)
			}
			log.Infof("管理员 '%s' 账户信息已更新", cfg.Server.Username)
		}
		return nil
	}

	// 不存在管理员用户，创建新的管理员用户
	hashedPassword, err := utils.HashPassword(cfg.Server.Password)
	if err != nil {
		return fmt.Errorf("哈希密码失败: %v", err)
	}

	adminUser := model.User{
		Username: cfg.Server.Username,
		Password: hashedPassword,
		Email:    "admin@media-forge.com",
		IsActive: true,
		IsAdmin:  true,
	}

	if err := DB.Create(&adminUser).Error; err != nil {
		return fmt.Errorf("创建管理员账户失败: %v", err)
	}

	log.Infof("管理员账户 '%s' 创建成功", cfg.Server.Username)
	return nil
}
