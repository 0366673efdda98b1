// Package domain 购物车领域模型
package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Cart 用户购物车，每个用户一个
type Cart struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"column:user_id;uniqueIndex;not null" json:"user_id"`
	Items     []CartItem `gorm:"foreignKey:CartID" json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (Cart) TableName() string { return "carts" }

// CartItem 购物车行；同一商品同一尺码只占一行，Size 为空表示无尺码
type CartItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CartID    uint      `gorm:"column:cart_id;index;not null" json:"cart_id"`
	ProductID uint      `gorm:"column:product_id;index;not null" json:"product_id"`
	Size      string    `gorm:"column:size;type:varchar(5)" json:"size,omitempty"`
	Quantity  int       `gorm:"column:quantity;not null" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名
func (CartItem) TableName() string { return "cart_items" }

// ItemCount 件数合计
func (c *Cart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// FindLine 按商品与尺码查找购物车行
func (c *Cart) FindLine(productID uint, size string) *CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID && c.Items[i].Size == size {
			return &c.Items[i]
		}
	}
	return nil
}

// ProductView 购物车所需的商品实时信息
type ProductView struct {
	ID          uint
	Name        string
	Slug        string
	ImageURL    string
	Price       decimal.Decimal
	IsAvailable bool
	Stock       int
	// 尺码 -> 库存；为空表示无尺码商品
	Sizes map[string]int
}

// HasSizes 是否按尺码销售
func (p *ProductView) HasSizes() bool {
	return len(p.Sizes) > 0
}

// StockFor 指定尺码的可售库存
func (p *ProductView) StockFor(size string) int {
	if !p.HasSizes() {
		return p.Stock
	}
	return p.Sizes[size]
}

// ProductLookup 商品查询端口，由商品目录提供
type ProductLookup interface {
	Product(ctx context.Context, id uint) (*ProductView, error)
}

// CartRepository 购物车仓储
type CartRepository interface {
	GetByUserID(ctx context.Context, userID uint) (*Cart, error)
	GetOrCreate(ctx context.Context, userID uint) (*Cart, error)
	GetItem(ctx context.Context, userID, itemID uint) (*CartItem, error)
	SaveItem(ctx context.Context, item *CartItem) error
	DeleteItem(ctx context.Context, itemID uint) error
	ClearItems(ctx context.Context, userID uint) error
}
