// Package application 订单应用服务：下单、支付确认、状态流转与查询
package application

import (
	"context"

	"github.com/shopspring/decimal"
)

// TxManager 事务管理，事务通过 context 传递给仓储
type TxManager interface {
	WithTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// CheckoutLine 结账时的购物车行，价格与库存为实时值
type CheckoutLine struct {
	ProductID      uint
	ProductName    string
	Size           string
	Quantity       int
	UnitPrice      decimal.Decimal
	AvailableStock int
}

// CartPort 购物车端口，均在下单事务内调用
type CartPort interface {
	CheckoutLines(ctx context.Context, userID uint) ([]CheckoutLine, error)
	Clear(ctx context.Context, userID uint) error
}

// InventoryPort 库存端口；Reserve 为条件扣减
type InventoryPort interface {
	Reserve(ctx context.Context, productID uint, size string, qty int) error
	Release(ctx context.Context, productID uint, size string, qty int) error
}

// UserSearch 后台按邮箱搜索订单时解析用户 ID
type UserSearch interface {
	FindIDsByEmail(ctx context.Context, query string) ([]uint, error)
}
