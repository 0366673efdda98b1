// Package persistence 购物车仓储的 GORM 实现
package persistence

import (
	"context"
	"fmt"

	"github.com/wyfcoding/storefront/internal/cart/domain"
	"github.com/wyfcoding/storefront/pkg/db"
	"gorm.io/gorm"
)

// Models 需要迁移的表
func Models() []any {
	return []any{&domain.Cart{}, &domain.CartItem{}}
}

type cartRepository struct{ db *gorm.DB }

// NewCartRepository 创建购物车仓储
func NewCartRepository(gormDB *gorm.DB) domain.CartRepository {
	return &cartRepository{db: gormDB}
}

func (r *cartRepository) GetByUserID(ctx context.Context, userID uint) (*domain.Cart, error) {
	var cart domain.Cart
	err := db.Conn(ctx, r.db).
		Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("id asc") }).
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, domain.ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return &cart, nil
}

func (r *cartRepository) GetOrCreate(ctx context.Context, userID uint) (*domain.Cart, error) {
	var cart domain.Cart
	conn := db.Conn(ctx, r.db)
	if err := conn.Where(domain.Cart{UserID: userID}).FirstOrCreate(&cart).Error; err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	if err := conn.Where("cart_id = ?", cart.ID).Order("id asc").Find(&cart.Items).Error; err != nil {
		return nil, fmt.Errorf("failed to load cart items: %w", err)
	}
	return &cart, nil
}

func (r *cartRepository) GetItem(ctx context.Context, userID, itemID uint) (*domain.CartItem, error) {
	var item domain.CartItem
	err := db.Conn(ctx, r.db).
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("cart_items.id = ? AND carts.user_id = ?", itemID, userID).
		First(&item).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, domain.ErrCartItemNotFound
		}
		return nil, fmt.Errorf("failed to get cart item: %w", err)
	}
	return &item, nil
}

func (r *cartRepository) SaveItem(ctx context.Context, item *domain.CartItem) error {
	if err := db.Conn(ctx, r.db).Save(item).Error; err != nil {
		return fmt.Errorf("failed to save cart item: %w", err)
	}
	return nil
}

func (r *cartRepository) DeleteItem(ctx context.Context, itemID uint) error {
	res := db.Conn(ctx, r.db).Delete(&domain.CartItem{}, itemID)
	if res.Error != nil {
		return fmt.Errorf("failed to delete cart item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrCartItemNotFound
	}
	return nil
}

func (r *cartRepository) ClearItems(ctx context.Context, userID uint) error {
	conn := db.Conn(ctx, r.db)
	sub := conn.Model(&domain.Cart{}).Select("id").Where("user_id = ?", userID)
	if err := conn.Where("cart_id IN (?)", sub).Delete(&domain.CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
