package services

import (
	"gorm.io/gorm"

	"github.com/leyuan/points-mall/models"
	"github.com/leyuan/points-mall/utils"
)

// EnsureBootstrapAdmin creates the initial super admin account when the
// admins table is empty. A blank password leaves the table untouched so a
// fresh deployment without ADMIN_INIT_PASSWORD stays locked down.
func EnsureBootstrapAdmin(db *gorm.DB, username, password string) error {
	if username == "" || password == "" {
		return nil
	}

	var count int64
	if err := db.Model(&models.Admin{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	return db.Create(&models.Admin{
		Username:     username,
		PasswordHash: hash,
		Role:         models.RoleSuperAdmin,
		IsActive:     true,
	}).Error
}
