package domain

import "context"

// OrderFilter 后台订单筛选
type OrderFilter struct {
	Status        OrderStatus
	PaymentMethod PaymentMethod
	// 订单号或收货人模糊匹配
	Search string
	// 非空时同时匹配这些用户的订单（按邮箱搜索解析得到）
	UserIDs []uint
	Limit   int
	Offset  int
}

// OrderRepository 订单仓储接口
type OrderRepository interface {
	// Save 新订单连同订单行一起写入，已有订单只更新订单本身
	Save(ctx context.Context, order *Order) error
	Get(ctx context.Context, id uint) (*Order, error)
	// GetForUser 只返回属于该用户的订单
	GetForUser(ctx context.Context, userID, id uint) (*Order, error)
	// ListByUser 按创建时间倒序，limit<=0 不限制
	ListByUser(ctx context.Context, userID uint, limit int) ([]*Order, error)
	List(ctx context.Context, filter OrderFilter) ([]*Order, int64, error)
}
