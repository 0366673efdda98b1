package application

import (
	"context"
	"strings"

	"github.com/wyfcoding/storefront/internal/order/domain"
	"github.com/wyfcoding/storefront/pkg/logger"
)

// AdminOrderFilter 后台订单筛选
type AdminOrderFilter struct {
	Status        string
	PaymentMethod string
	// 订单号、收货人或下单用户邮箱
	Search string
	Limit  int
	Offset int
}

// OrderQueryService 处理所有订单相关的查询操作
type OrderQueryService struct {
	repo  domain.OrderRepository
	users UserSearch
}

// NewOrderQueryService 构造函数；users 为 nil 时不支持按邮箱搜索
func NewOrderQueryService(repo domain.OrderRepository, users UserSearch) *OrderQueryService {
	return &OrderQueryService{repo: repo, users: users}
}

// ListForUser 用户全部订单，最新在前
func (s *OrderQueryService) ListForUser(ctx context.Context, userID uint) ([]*domain.Order, error) {
	return s.repo.ListByUser(ctx, userID, 0)
}

// RecentForUser 最近 n 个订单
func (s *OrderQueryService) RecentForUser(ctx context.Context, userID uint, n int) ([]*domain.Order, error) {
	return s.repo.ListByUser(ctx, userID, n)
}

// GetForUser 订单详情，只能查看自己的订单
func (s *OrderQueryService) GetForUser(ctx context.Context, userID, orderID uint) (*domain.Order, error) {
	return s.repo.GetForUser(ctx, userID, orderID)
}

// Get 后台订单详情
func (s *OrderQueryService) Get(ctx context.Context, orderID uint) (*domain.Order, error) {
	return s.repo.Get(ctx, orderID)
}

// AdminList 后台订单列表
func (s *OrderQueryService) AdminList(ctx context.Context, f AdminOrderFilter) ([]*domain.Order, int64, error) {
	filter := domain.OrderFilter{Search: strings.TrimSpace(f.Search), Limit: f.Limit, Offset: f.Offset}
	if f.Status != "" {
		status, err := domain.ParseStatus(f.Status)
		if err != nil {
			return nil, 0, err
		}
		filter.Status = status
	}
	if f.PaymentMethod != "" {
		method, err := domain.ParsePaymentMethod(f.PaymentMethod)
		if err != nil {
			return nil, 0, err
		}
		filter.PaymentMethod = method
	}
	if filter.Search != "" && s.users != nil {
		ids, err := s.users.FindIDsByEmail(ctx, filter.Search)
		if err != nil {
			logger.Warn(ctx, "failed to resolve users for order search", "search", filter.Search, "error", err)
		}
		filter.UserIDs = ids
	}
	return s.repo.List(ctx, filter)
}
