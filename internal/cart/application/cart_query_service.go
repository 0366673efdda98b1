package application

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/storefront/internal/cart/domain"
	"github.com/wyfcoding/storefront/pkg/logger"
)

// CartLine 购物车行视图，价格取商品实时价格
type CartLine struct {
	ItemID         uint            `json:"id"`
	ProductID      uint            `json:"product_id"`
	ProductName    string          `json:"product_name"`
	ProductSlug    string          `json:"product_slug"`
	ImageURL       string          `json:"image_url,omitempty"`
	Size           string          `json:"size,omitempty"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Total          decimal.Decimal `json:"total"`
	AvailableStock int             `json:"available_stock"`
}

// CartView 购物车视图
type CartView struct {
	UserID    uint            `json:"user_id"`
	Lines     []CartLine      `json:"items"`
	ItemCount int             `json:"cart_count"`
	Total     decimal.Decimal `json:"cart_total"`
}

// IsEmpty 是否为空
func (v *CartView) IsEmpty() bool {
	return len(v.Lines) == 0
}

// CartQueryService 购物车查询服务
type CartQueryService struct {
	repo     domain.CartRepository
	products domain.ProductLookup
}

// NewCartQueryService 创建购物车查询服务实例
func NewCartQueryService(repo domain.CartRepository, products domain.ProductLookup) *CartQueryService {
	return &CartQueryService{repo: repo, products: products}
}

// View 当前用户购物车；不存在时返回空购物车
func (s *CartQueryService) View(ctx context.Context, userID uint) (*CartView, error) {
	cart, err := s.repo.GetByUserID(ctx, userID)
	if errors.Is(err, domain.ErrCartNotFound) {
		return &CartView{UserID: userID, Total: decimal.Zero}, nil
	}
	if err != nil {
		return nil, err
	}
	return buildView(ctx, s.products, cart)
}

// ItemCount 件数合计
func (s *CartQueryService) ItemCount(ctx context.Context, userID uint) (int, error) {
	cart, err := s.repo.GetByUserID(ctx, userID)
	if errors.Is(err, domain.ErrCartNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return cart.ItemCount(), nil
}

// buildView 按实时商品信息计算每行金额与合计；已删除的商品不计入
func buildView(ctx context.Context, products domain.ProductLookup, cart *domain.Cart) (*CartView, error) {
	view := &CartView{UserID: cart.UserID, Total: decimal.Zero, Lines: make([]CartLine, 0, len(cart.Items))}
	for _, item := range cart.Items {
		p, err := products.Product(ctx, item.ProductID)
		if errors.Is(err, domain.ErrProductNotFound) {
			logger.Warn(ctx, "cart item references missing product", "cart_item_id", item.ID, "product_id", item.ProductID)
			continue
		}
		if err != nil {
			return nil, err
		}
		line := newLine(item, p)
		view.Lines = append(view.Lines, line)
		view.ItemCount += line.Quantity
		view.Total = view.Total.Add(line.Total)
	}
	return view, nil
}

func newLine(item domain.CartItem, p *domain.ProductView) CartLine {
	return CartLine{
		ItemID:         item.ID,
		ProductID:      p.ID,
		ProductName:    p.Name,
		ProductSlug:    p.Slug,
		ImageURL:       p.ImageURL,
		Size:           item.Size,
		Quantity:       item.Quantity,
		UnitPrice:      p.Price,
		Total:          p.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
		AvailableStock: p.StockFor(item.Size),
	}
}
