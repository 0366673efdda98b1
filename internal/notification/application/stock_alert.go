package application

import (
	"context"

	"github.com/wyfcoding/storefront/internal/notification/domain"
	"github.com/wyfcoding/storefront/pkg/logger"
)

// ProductInfo 订阅时需要的商品信息
type ProductInfo struct {
	ID          uint
	Name        string
	Stock       int
	IsAvailable bool
}

// ProductReader 商品查询端口
type ProductReader interface {
	Product(ctx context.Context, id uint) (*ProductInfo, error)
}

// StockAlertService 到货提醒订阅
type StockAlertService struct {
	alerts     domain.StockAlertRepository
	products   ProductReader
	recipients domain.RecipientDirectory
}

// NewStockAlertService 创建到货提醒服务
func NewStockAlertService(alerts domain.StockAlertRepository, products ProductReader, recipients domain.RecipientDirectory) *StockAlertService {
	return &StockAlertService{alerts: alerts, products: products, recipients: recipients}
}

// Subscribe 订阅缺货商品；联系方式取自用户资料
func (s *StockAlertService) Subscribe(ctx context.Context, userID, productID uint) (*ProductInfo, error) {
	product, err := s.products.Product(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.IsAvailable && product.Stock > 0 {
		return nil, domain.ErrAlreadyInStock
	}
	r, err := s.recipients.Recipient(ctx, userID)
	if err != nil {
		return nil, err
	}

	alert := &domain.StockAlert{ProductID: productID, UserID: userID, Email: r.Email, Phone: r.Phone}
	if err := s.alerts.Subscribe(ctx, alert); err != nil {
		return nil, err
	}
	logger.Info(ctx, "stock alert subscribed", "product_id", productID, "user_id", userID)
	return product, nil
}
