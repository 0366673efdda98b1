// Package application 购物车应用服务
package application

import (
	"context"

	"github.com/wyfcoding/storefront/internal/cart/domain"
)

// CartApplicationService 购物车服务门面，整合命令服务和查询服务
type CartApplicationService struct {
	commandService *CartCommandService
	queryService   *CartQueryService
}

// NewCartApplicationService 创建购物车服务门面实例
func NewCartApplicationService(repo domain.CartRepository, products domain.ProductLookup) *CartApplicationService {
	return &CartApplicationService{
		commandService: NewCartCommandService(repo, products),
		queryService:   NewCartQueryService(repo, products),
	}
}

// View 查看购物车
func (s *CartApplicationService) View(ctx context.Context, userID uint) (*CartView, error) {
	return s.queryService.View(ctx, userID)
}

// ItemCount 购物车件数
func (s *CartApplicationService) ItemCount(ctx context.Context, userID uint) (int, error) {
	return s.queryService.ItemCount(ctx, userID)
}

// AddItem 加入购物车
func (s *CartApplicationService) AddItem(ctx context.Context, userID, productID uint, qty int, size string) (*CartSummary, error) {
	return s.commandService.AddItem(ctx, AddItemCommand{
		UserID:    userID,
		ProductID: productID,
		Quantity:  qty,
		Size:      size,
	})
}

// UpdateQuantity 修改数量
func (s *CartApplicationService) UpdateQuantity(ctx context.Context, userID, itemID uint, qty int) (*UpdateResult, error) {
	return s.commandService.UpdateQuantity(ctx, UpdateQuantityCommand{UserID: userID, ItemID: itemID, Quantity: qty})
}

// RemoveItem 删除购物车行
func (s *CartApplicationService) RemoveItem(ctx context.Context, userID, itemID uint) (*CartSummary, error) {
	return s.commandService.RemoveItem(ctx, RemoveItemCommand{UserID: userID, ItemID: itemID})
}

// Clear 清空购物车
func (s *CartApplicationService) Clear(ctx context.Context, userID uint) error {
	return s.commandService.Clear(ctx, userID)
}
