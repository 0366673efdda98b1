// Package client 订单访问购物车与库存的适配器
package client

import (
	"context"

	cartapp "github.com/wyfcoding/storefront/internal/cart/application"
	catalogdomain "github.com/wyfcoding/storefront/internal/catalog/domain"
	"github.com/wyfcoding/storefront/internal/order/application"
)

// CartService 购物车服务
type CartService interface {
	View(ctx context.Context, userID uint) (*cartapp.CartView, error)
	Clear(ctx context.Context, userID uint) error
}

// CartClient 将购物车适配为 application.CartPort
type CartClient struct {
	carts CartService
}

// NewCartClient 创建适配器
func NewCartClient(carts CartService) *CartClient {
	return &CartClient{carts: carts}
}

// CheckoutLines 实现 application.CartPort
func (c *CartClient) CheckoutLines(ctx context.Context, userID uint) ([]application.CheckoutLine, error) {
	view, err := c.carts.View(ctx, userID)
	if err != nil {
		return nil, err
	}
	lines := make([]application.CheckoutLine, 0, len(view.Lines))
	for _, l := range view.Lines {
		lines = append(lines, application.CheckoutLine{
			ProductID:      l.ProductID,
			ProductName:    l.ProductName,
			Size:           l.Size,
			Quantity:       l.Quantity,
			UnitPrice:      l.UnitPrice,
			AvailableStock: l.AvailableStock,
		})
	}
	return lines, nil
}

// Clear 实现 application.CartPort
func (c *CartClient) Clear(ctx context.Context, userID uint) error {
	return c.carts.Clear(ctx, userID)
}

// Inventory 商品库存服务
type Inventory interface {
	Reserve(ctx context.Context, productID uint, size catalogdomain.Size, qty int) error
	Release(ctx context.Context, productID uint, size catalogdomain.Size, qty int) error
}

// InventoryClient 将商品库存适配为 application.InventoryPort
type InventoryClient struct {
	inventory Inventory
}

// NewInventoryClient 创建适配器
func NewInventoryClient(inventory Inventory) *InventoryClient {
	return &InventoryClient{inventory: inventory}
}

// Reserve 实现 application.InventoryPort
func (c *InventoryClient) Reserve(ctx context.Context, productID uint, size string, qty int) error {
	return c.inventory.Reserve(ctx, productID, catalogdomain.Size(size), qty)
}

// Release 实现 application.InventoryPort
func (c *InventoryClient) Release(ctx context.Context, productID uint, size string, qty int) error {
	return c.inventory.Release(ctx, productID, catalogdomain.Size(size), qty)
}
