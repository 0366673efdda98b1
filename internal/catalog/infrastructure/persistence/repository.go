// Package persistence 提供商品目录仓储的 GORM 实现（MySQL/PostgreSQL/SQLite）
package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/wyfcoding/storefront/internal/catalog/domain"
	"github.com/wyfcoding/storefront/pkg/db"
	"github.com/wyfcoding/storefront/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Models 需要迁移的表
func Models() []any {
	return []any{
		&domain.Category{},
		&domain.Product{},
		&domain.ProductVariant{},
		&domain.ProductImage{},
		&domain.HomeHero{},
	}
}

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository 创建分类仓储
func NewCategoryRepository(gormDB *gorm.DB) domain.CategoryRepository {
	return &categoryRepository{db: gormDB}
}

func (r *categoryRepository) Save(ctx context.Context, category *domain.Category) error {
	if err := db.Conn(ctx, r.db).Save(category).Error; err != nil {
		return fmt.Errorf("failed to save category: %w", err)
	}
	return nil
}

func (r *categoryRepository) Get(ctx context.Context, id uint) (*domain.Category, error) {
	var c domain.Category
	if err := db.Conn(ctx, r.db).First(&c, id).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

func (r *categoryRepository) GetBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	var c domain.Category
	if err := db.Conn(ctx, r.db).Where("slug = ?", slug).First(&c).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	var categories []*domain.Category
	if err := db.Conn(ctx, r.db).Order("name asc").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (r *categoryRepository) CountProducts(ctx context.Context, id uint) (int64, error) {
	var n int64
	err := db.Conn(ctx, r.db).Model(&domain.Product{}).Where("category_id = ?", id).Count(&n).Error
	return n, err
}

func (r *categoryRepository) Delete(ctx context.Context, id uint) error {
	res := db.Conn(ctx, r.db).Delete(&domain.Category{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete category: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrCategoryNotFound
	}
	return nil
}

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储
func NewProductRepository(gormDB *gorm.DB) domain.ProductRepository {
	return &productRepository{db: gormDB}
}

func withDetails(tx *gorm.DB) *gorm.DB {
	return tx.
		Preload("Category").
		Preload("Variants", func(q *gorm.DB) *gorm.DB { return q.Order("id asc") }).
		Preload("Images", func(q *gorm.DB) *gorm.DB { return q.Order("sort_order asc, id asc") })
}

func (r *productRepository) Save(ctx context.Context, product *domain.Product) error {
	if err := db.Conn(ctx, r.db).Omit(clause.Associations).Save(product).Error; err != nil {
		logger.Error(ctx, "product_repository.save failed", "slug", product.Slug, "error", err)
		return fmt.Errorf("failed to save product: %w", err)
	}
	return nil
}

func (r *productRepository) Get(ctx context.Context, id uint) (*domain.Product, error) {
	var p domain.Product
	if err := withDetails(db.Conn(ctx, r.db)).First(&p, id).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

func (r *productRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	var p domain.Product
	if err := withDetails(db.Conn(ctx, r.db)).Where("slug = ?", slug).First(&p).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

func (r *productRepository) SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error) {
	var n int64
	q := db.Conn(ctx, r.db).Model(&domain.Product{}).Where("slug = ?", slug)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *productRepository) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, int64, error) {
	q := db.Conn(ctx, r.db).Model(&domain.Product{})
	if filter.CategorySlug != "" {
		q = q.Joins("JOIN categories ON categories.id = products.category_id").
			Where("categories.slug = ?", filter.CategorySlug)
	}
	if filter.CategoryID != 0 {
		q = q.Where("products.category_id = ?", filter.CategoryID)
	}
	if filter.Available != nil {
		q = q.Where("products.is_available = ?", *filter.Available)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(products.name) LIKE ? OR LOWER(products.description) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	q = q.Preload("Category").Order("products.created_at desc, products.id desc")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}
	var products []*domain.Product
	if err := q.Find(&products).Error; err != nil {
		logger.Error(ctx, "product_repository.list failed", "error", err)
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}

func (r *productRepository) Delete(ctx context.Context, id uint) error {
	conn := db.Conn(ctx, r.db)
	if err := conn.Where("product_id = ?", id).Delete(&domain.ProductVariant{}).Error; err != nil {
		return fmt.Errorf("failed to delete variants: %w", err)
	}
	if err := conn.Where("product_id = ?", id).Delete(&domain.ProductImage{}).Error; err != nil {
		return fmt.Errorf("failed to delete images: %w", err)
	}
	res := conn.Delete(&domain.Product{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *productRepository) SaveVariant(ctx context.Context, variant *domain.ProductVariant) error {
	err := db.Conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}, {Name: "size"}},
		DoUpdates: clause.AssignmentColumns([]string{"stock"}),
	}).Create(variant).Error
	if err != nil {
		return fmt.Errorf("failed to save variant: %w", err)
	}
	return nil
}

func (r *productRepository) DeleteVariant(ctx context.Context, productID uint, size domain.Size) error {
	res := db.Conn(ctx, r.db).Where("product_id = ? AND size = ?", productID, size).Delete(&domain.ProductVariant{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete variant: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrSizeUnavailable
	}
	return nil
}

func (r *productRepository) AddImage(ctx context.Context, image *domain.ProductImage) error {
	if err := db.Conn(ctx, r.db).Create(image).Error; err != nil {
		return fmt.Errorf("failed to add image: %w", err)
	}
	return nil
}

func (r *productRepository) DeleteImage(ctx context.Context, productID, imageID uint) error {
	res := db.Conn(ctx, r.db).Where("id = ? AND product_id = ?", imageID, productID).Delete(&domain.ProductImage{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete image: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrImageNotFound
	}
	return nil
}

func (r *productRepository) DecrementStock(ctx context.Context, productID uint, qty int) (bool, error) {
	res := db.Conn(ctx, r.db).Model(&domain.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return false, fmt.Errorf("failed to decrement stock: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *productRepository) DecrementVariantStock(ctx context.Context, productID uint, size domain.Size, qty int) (bool, error) {
	res := db.Conn(ctx, r.db).Model(&domain.ProductVariant{}).
		Where("product_id = ? AND size = ? AND stock >= ?", productID, size, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return false, fmt.Errorf("failed to decrement variant stock: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *productRepository) IncrementStock(ctx context.Context, productID uint, qty int) error {
	res := db.Conn(ctx, r.db).Model(&domain.Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty))
	if res.Error != nil {
		return fmt.Errorf("failed to increment stock: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *productRepository) IncrementVariantStock(ctx context.Context, productID uint, size domain.Size, qty int) (bool, error) {
	res := db.Conn(ctx, r.db).Model(&domain.ProductVariant{}).
		Where("product_id = ? AND size = ?", productID, size).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty))
	if res.Error != nil {
		return false, fmt.Errorf("failed to increment variant stock: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *productRepository) RecomputeStock(ctx context.Context, productID uint, fromVariants bool) error {
	conn := db.Conn(ctx, r.db)
	if fromVariants {
		total := conn.Model(&domain.ProductVariant{}).
			Select("COALESCE(SUM(stock), 0)").
			Where("product_id = ?", productID)
		if err := conn.Model(&domain.Product{}).Where("id = ?", productID).UpdateColumn("stock", total).Error; err != nil {
			return fmt.Errorf("failed to recompute stock: %w", err)
		}
	}
	err := conn.Model(&domain.Product{}).
		Where("id = ?", productID).
		UpdateColumn("is_available", gorm.Expr("stock > 0 AND hidden = ?", false)).Error
	if err != nil {
		return fmt.Errorf("failed to recompute availability: %w", err)
	}
	return nil
}

type heroRepository struct {
	db *gorm.DB
}

// NewHeroRepository 创建首页横幅仓储
func NewHeroRepository(gormDB *gorm.DB) domain.HeroRepository {
	return &heroRepository{db: gormDB}
}

func (r *heroRepository) Get(ctx context.Context) (*domain.HomeHero, error) {
	var h domain.HomeHero
	if err := db.Conn(ctx, r.db).First(&h, 1).Error; err != nil {
		if db.IsNotFound(err) {
			return domain.DefaultHero(), nil
		}
		return nil, fmt.Errorf("failed to get hero: %w", err)
	}
	return &h, nil
}

func (r *heroRepository) Save(ctx context.Context, hero *domain.HomeHero) error {
	hero.ID = 1
	if err := db.Conn(ctx, r.db).Save(hero).Error; err != nil {
		return fmt.Errorf("failed to save hero: %w", err)
	}
	return nil
}
