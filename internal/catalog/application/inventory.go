package application

import (
	"context"
	"fmt"

	"github.com/wyfcoding/storefront/internal/catalog/domain"
	"github.com/wyfcoding/storefront/pkg/cache"
	"github.com/wyfcoding/storefront/pkg/logger"
	"github.com/wyfcoding/storefront/pkg/metrics"
)

// InventoryService 库存预留与释放，必须在调用方事务内执行
type InventoryService struct {
	repo    domain.ProductRepository
	restock *RestockHandler
	cache   cache.Cache
	metrics *metrics.Metrics
}

// NewInventoryService 创建库存服务
func NewInventoryService(repo domain.ProductRepository, restock *RestockHandler, c cache.Cache, m *metrics.Metrics) *InventoryService {
	return &InventoryService{repo: repo, restock: restock, cache: c, metrics: m}
}

// Reserve 条件扣减库存；并发结账时只有一方能扣减成功
func (s *InventoryService) Reserve(ctx context.Context, productID uint, size domain.Size, qty int) error {
	if qty <= 0 {
		return domain.ErrInvalidProduct.Withf("Invalid quantity: %d", qty)
	}
	product, err := s.repo.Get(ctx, productID)
	if err != nil {
		return err
	}

	var ok bool
	if product.HasSizeVariants() {
		if size == "" {
			return domain.ErrSizeRequired
		}
		ok, err = s.repo.DecrementVariantStock(ctx, productID, size, qty)
	} else {
		ok, err = s.repo.DecrementStock(ctx, productID, qty)
	}
	if err != nil {
		s.metrics.Stock("reserve", "error")
		return err
	}
	if !ok {
		s.metrics.Stock("reserve", "insufficient")
		return domain.ErrInsufficientStock.Withf("Insufficient stock for %s", describe(product.Name, size))
	}
	s.metrics.Stock("reserve", "ok")
	return s.sync(ctx, product)
}

// Release 归还库存（订单取消、支付失败）
func (s *InventoryService) Release(ctx context.Context, productID uint, size domain.Size, qty int) error {
	if qty <= 0 {
		return nil
	}
	product, err := s.repo.Get(ctx, productID)
	if err != nil {
		return err
	}

	if product.HasSizeVariants() && size != "" {
		ok, err := s.repo.IncrementVariantStock(ctx, productID, size, qty)
		if err != nil {
			return err
		}
		if !ok {
			// 尺码已被删除：以归还数量重建该尺码，汇总库存才不会丢失这部分
			if err := s.repo.SaveVariant(ctx, &domain.ProductVariant{ProductID: productID, Size: size, Stock: qty}); err != nil {
				return err
			}
			logger.Info(ctx, "variant recreated on release", "product_id", productID, "size", size, "qty", qty)
		}
	} else if err := s.repo.IncrementStock(ctx, productID, qty); err != nil {
		return err
	}
	s.metrics.Stock("release", "ok")
	return s.sync(ctx, product)
}

// sync 重算商品库存与上架状态，并用变更前后快照触发到货检测
func (s *InventoryService) sync(ctx context.Context, before *domain.Product) error {
	if err := s.repo.RecomputeStock(ctx, before.ID, before.HasSizeVariants()); err != nil {
		return err
	}
	after, err := s.repo.Get(ctx, before.ID)
	if err != nil {
		return err
	}
	if err := s.restock.OnStockChanged(ctx, before.Snapshot(), after.Snapshot()); err != nil {
		return fmt.Errorf("restock handler: %w", err)
	}
	invalidateProduct(ctx, s.cache, after.Slug)
	return nil
}

func describe(name string, size domain.Size) string {
	if size == "" {
		return name
	}
	return fmt.Sprintf("%s (Size %s)", name, size)
}
