// Package application 商品目录应用服务：查询、后台命令、库存预留与到货检测
package application

import (
	"context"
	"strconv"
	"time"

	"github.com/wyfcoding/storefront/internal/catalog/domain"
	"github.com/wyfcoding/storefront/pkg/cache"
	"github.com/wyfcoding/storefront/pkg/logger"
	"github.com/wyfcoding/storefront/pkg/mq"
)

// TxManager 事务管理，事务通过 context 传递给仓储
type TxManager interface {
	WithTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

func productCacheKey(slug string) string {
	return "catalog:product:" + slug
}

func invalidateProduct(ctx context.Context, c cache.Cache, slug string) {
	if c == nil || slug == "" {
		return
	}
	if err := c.Delete(ctx, productCacheKey(slug)); err != nil {
		logger.Warn(ctx, "failed to invalidate product cache", "slug", slug, "error", err)
	}
}

// RestockHandler 库存变更处理器：比较前后快照，由缺货恢复可售时写出到货事件
type RestockHandler struct {
	publisher mq.EventPublisher
	now       func() time.Time
}

// NewRestockHandler 创建到货处理器
func NewRestockHandler(publisher mq.EventPublisher) *RestockHandler {
	return &RestockHandler{publisher: publisher, now: time.Now}
}

// OnStockChanged 在写库存的同一事务中调用
func (h *RestockHandler) OnStockChanged(ctx context.Context, previous, current domain.ProductSnapshot) error {
	if !domain.IsRestock(previous, current) {
		return nil
	}
	logger.Info(ctx, "product back in stock", "product_id", current.ID, "stock", current.Stock)
	return h.publisher.Publish(ctx, domain.TopicProductRestocked, strconv.FormatUint(uint64(current.ID), 10),
		domain.ProductRestockedEvent{Previous: previous, Current: current, OccurredAt: h.now()})
}
