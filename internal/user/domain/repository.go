package domain

import (
	"context"
	"time"
)

// PendingUserRepository 待验证注册仓储
type PendingUserRepository interface {
	Create(ctx context.Context, p *PendingUser) error
	Save(ctx context.Context, p *PendingUser) error
	Get(ctx context.Context, id uint) (*PendingUser, error)
	GetByEmail(ctx context.Context, email string) (*PendingUser, error)
	ExistsEmail(ctx context.Context, email string) (bool, error)
	Delete(ctx context.Context, id uint) error
	// DeleteCreatedBefore 清理验证码早于 t 的记录
	DeleteCreatedBefore(ctx context.Context, t time.Time) (int64, error)
}

// UserRepository 账户与资料仓储
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	Save(ctx context.Context, u *User) error
	Get(ctx context.Context, id uint) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	ExistsEmail(ctx context.Context, email string) (bool, error)
	// FindIDsByEmail 邮箱模糊匹配
	FindIDsByEmail(ctx context.Context, query string) ([]uint, error)
	// SaveProfile 按 user_id 插入或更新
	SaveProfile(ctx context.Context, p *Profile) error
	GetProfile(ctx context.Context, userID uint) (*Profile, error)
}
