package repository

import (
	"github.com/smysle/raffle-storefront-go/internal/database/models"
	"gorm.io/gorm"
)

// ProductRepository 商品仓库
type ProductRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓库
func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create 创建商品
func (r *ProductRepository) Create(product *models.Product) error {
	return r.db.Create(product).Error
}

// GetByID 根据 ID 获取商品
func (r *ProductRepository) GetByID(id uint) (*models.Product, error) {
	var product models.Product
	err := r.db.First(&product, id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetByIDs 批量获取商品
func (r *ProductRepository) GetByIDs(ids []uint) ([]models.Product, error) {
	var products []models.Product
	err := r.db.Where("id IN ?", ids).Find(&products).Error
	return products, err
}

// DecrementStock 库存减一（原子操作），库存为 0 时返回 false
func (r *ProductRepository) DecrementStock(id uint) (bool, error) {
	result := r.db.Model(&models.Product{}).
		Where("id = ? AND stock_quantity > 0", id).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
