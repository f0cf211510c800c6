package repository

import (
	"strings"

	"github.com/smysle/raffle-storefront-go/internal/database/models"
	"gorm.io/gorm"
)

// UserRepository 用户仓库
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create 创建用户
func (r *UserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID 根据 ID 获取用户
func (r *UserRepository) GetByID(id string) (*models.User, error) {
	var user models.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail 根据邮箱获取用户（不区分大小写）
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByIDs 批量获取用户
func (r *UserRepository) GetByIDs(ids []string) (map[string]models.User, error) {
	var users []models.User
	if err := r.db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	result := make(map[string]models.User, len(users))
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}

// IsAdmin 检查是否管理员
func (r *UserRepository) IsAdmin(id string) bool {
	var count int64
	r.db.Model(&models.User{}).
		Where("id = ? AND is_admin = ?", id, true).
		Count(&count)
	return count > 0
}
