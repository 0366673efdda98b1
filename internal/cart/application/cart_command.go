package application

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/storefront/internal/cart/domain"
	"github.com/wyfcoding/storefront/pkg/logger"
)

// AddItemCommand 添加商品到购物车命令
type AddItemCommand struct {
	UserID    uint
	ProductID uint
	// 0 表示默认 1 件
	Quantity int
	Size     string
}

// UpdateQuantityCommand 修改数量命令；Quantity<=0 时删除该行
type UpdateQuantityCommand struct {
	UserID   uint
	ItemID   uint
	Quantity int
}

// RemoveItemCommand 删除购物车行命令
type RemoveItemCommand struct {
	UserID uint
	ItemID uint
}

// CartSummary 购物车角标数据
type CartSummary struct {
	CartCount int             `json:"cart_count"`
	CartTotal decimal.Decimal `json:"cart_total"`
}

// UpdateResult 修改数量结果
type UpdateResult struct {
	CartSummary
	ItemRemoved    bool            `json:"item_removed"`
	ItemTotal      decimal.Decimal `json:"item_total"`
	AvailableStock int             `json:"available_stock"`
}

// CartCommandService 购物车命令服务
type CartCommandService struct {
	repo     domain.CartRepository
	products domain.ProductLookup
}

// NewCartCommandService 创建购物车命令服务实例
func NewCartCommandService(repo domain.CartRepository, products domain.ProductLookup) *CartCommandService {
	return &CartCommandService{repo: repo, products: products}
}

// AddItem 加入购物车；同商品同尺码合并，合并后数量不超过可售库存
func (s *CartCommandService) AddItem(ctx context.Context, cmd AddItemCommand) (*CartSummary, error) {
	qty := cmd.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	p, err := s.products.Product(ctx, cmd.ProductID)
	if err != nil {
		return nil, err
	}
	if !p.IsAvailable {
		return nil, domain.ErrProductNotFound
	}

	size := strings.ToUpper(strings.TrimSpace(cmd.Size))
	available := p.Stock
	if p.HasSizes() {
		if size == "" {
			return nil, domain.ErrSizeRequired
		}
		stock, ok := p.Sizes[size]
		if !ok {
			return nil, domain.ErrSizeUnavailable
		}
		available = stock
	} else {
		size = ""
	}
	if available < qty {
		return nil, domain.ErrInsufficientStock
	}

	cart, err := s.repo.GetOrCreate(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	line := cart.FindLine(p.ID, size)
	if line == nil {
		cart.Items = append(cart.Items, domain.CartItem{CartID: cart.ID, ProductID: p.ID, Size: size})
		line = &cart.Items[len(cart.Items)-1]
	}
	line.Quantity = min(line.Quantity+qty, available)
	if err := s.repo.SaveItem(ctx, line); err != nil {
		return nil, err
	}
	logger.Info(ctx, "cart item added", "user_id", cmd.UserID, "product_id", p.ID, "size", size, "quantity", line.Quantity)
	return s.summary(ctx, cmd.UserID)
}

// UpdateQuantity 修改购物车行数量
func (s *CartCommandService) UpdateQuantity(ctx context.Context, cmd UpdateQuantityCommand) (*UpdateResult, error) {
	item, err := s.repo.GetItem(ctx, cmd.UserID, cmd.ItemID)
	if err != nil {
		return nil, err
	}

	if cmd.Quantity <= 0 {
		if err := s.repo.DeleteItem(ctx, item.ID); err != nil {
			return nil, err
		}
		sum, err := s.summary(ctx, cmd.UserID)
		if err != nil {
			return nil, err
		}
		return &UpdateResult{CartSummary: *sum, ItemRemoved: true, ItemTotal: decimal.Zero}, nil
	}

	p, err := s.products.Product(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}
	available := p.StockFor(item.Size)
	if cmd.Quantity > available {
		return nil, domain.ErrInsufficientStock
	}
	item.Quantity = cmd.Quantity
	if err := s.repo.SaveItem(ctx, item); err != nil {
		return nil, err
	}

	sum, err := s.summary(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	return &UpdateResult{
		CartSummary:    *sum,
		ItemTotal:      p.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
		AvailableStock: available,
	}, nil
}

// RemoveItem 删除购物车行
func (s *CartCommandService) RemoveItem(ctx context.Context, cmd RemoveItemCommand) (*CartSummary, error) {
	item, err := s.repo.GetItem(ctx, cmd.UserID, cmd.ItemID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteItem(ctx, item.ID); err != nil {
		return nil, err
	}
	return s.summary(ctx, cmd.UserID)
}

// Clear 清空购物车，由下单在同一事务中调用
func (s *CartCommandService) Clear(ctx context.Context, userID uint) error {
	return s.repo.ClearItems(ctx, userID)
}

func (s *CartCommandService) summary(ctx context.Context, userID uint) (*CartSummary, error) {
	cart, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	view, err := buildView(ctx, s.products, cart)
	if err != nil {
		return nil, err
	}
	return &CartSummary{CartCount: view.ItemCount, CartTotal: view.Total}, nil
}
