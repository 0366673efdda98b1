// Package persistence 用户上下文的 gorm 仓储实现
package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wyfcoding/storefront/internal/user/domain"
	"github.com/wyfcoding/storefront/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Models 需要迁移的模型
func Models() []any {
	return []any{&domain.PendingUser{}, &domain.User{}, &domain.Profile{}}
}

type pendingUserRepository struct {
	db *gorm.DB
}

// NewPendingUserRepository 创建待验证注册仓储
func NewPendingUserRepository(gormDB *gorm.DB) domain.PendingUserRepository {
	return &pendingUserRepository{db: gormDB}
}

func (r *pendingUserRepository) Create(ctx context.Context, p *domain.PendingUser) error {
	if err := db.Conn(ctx, r.db).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create pending user: %w", err)
	}
	return nil
}

func (r *pendingUserRepository) Save(ctx context.Context, p *domain.PendingUser) error {
	if err := db.Conn(ctx, r.db).Save(p).Error; err != nil {
		return fmt.Errorf("failed to save pending user: %w", err)
	}
	return nil
}

func (r *pendingUserRepository) Get(ctx context.Context, id uint) (*domain.PendingUser, error) {
	var p domain.PendingUser
	if err := db.Conn(ctx, r.db).First(&p, id).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, domain.ErrPendingNotFound
		}
		return nil, fmt.Errorf("failed to get pending user: %w", err)
	}
	return &p, nil
}

func (r *pendingUserRepository) GetByEmail(ctx context.Context, email string) (*domain.PendingUser, error) {
	var p domain.PendingUser
	if err := db.Conn(ctx, r.db).Where("email = ?", email).First(&p).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, domain.ErrPendingNotFound
		}
		return nil, fmt.Errorf("failed to get pending user: %w", err)
	}
	return &p, nil
}

func (r *pendingUserRepository) ExistsEmail(ctx context.Context, email string) (bool, error) {
	var n int64
	if err := db.Conn(ctx, r.db).Model(&domain.PendingUser{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return false, fmt.Errorf("failed to check pending email: %w", err)
	}
	return n > 0, nil
}

func (r *pendingUserRepository) Delete(ctx context.Context, id uint) error {
	if err := db.Conn(ctx, r.db).Delete(&domain.PendingUser{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete pending user: %w", err)
	}
	return nil
}

func (r *pendingUserRepository) DeleteCreatedBefore(ctx context.Context, t time.Time) (int64, error) {
	res := db.Conn(ctx, r.db).Where("otp_created_at < ?", t).Delete(&domain.PendingUser{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge pending users: %w", res.Error)
	}
	return res.RowsAffected, nil
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建账户仓储
func NewUserRepository(gormDB *gorm.DB) domain.UserRepository {
	return &userRepository{db: gormDB}
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	if err := db.Conn(ctx, r.db).Create(u).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) Save(ctx context.Context, u *domain.User) error {
	if err := db.Conn(ctx, r.db).Save(u).Error; err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (r *userRepository) Get(ctx context.Context, id uint) (*domain.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.first(ctx, "username = ?", username)
}

func (r *userRepository) first(ctx context.Context, query string, arg any) (*domain.User, error) {
	var u domain.User
	if err := db.Conn(ctx, r.db).Where(query, arg).First(&u).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (r *userRepository) ExistsEmail(ctx context.Context, email string) (bool, error) {
	var n int64
	if err := db.Conn(ctx, r.db).Model(&domain.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return false, fmt.Errorf("failed to check user email: %w", err)
	}
	return n > 0, nil
}

func (r *userRepository) FindIDsByEmail(ctx context.Context, query string) ([]uint, error) {
	var ids []uint
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	err := db.Conn(ctx, r.db).Model(&domain.User{}).
		Where("LOWER(email) LIKE ?", pattern).
		Limit(500).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return ids, nil
}

func (r *userRepository) SaveProfile(ctx context.Context, p *domain.Profile) error {
	err := db.Conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"phone"}),
	}).Create(p).Error
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

func (r *userRepository) GetProfile(ctx context.Context, userID uint) (*domain.Profile, error) {
	var p domain.Profile
	if err := db.Conn(ctx, r.db).Where("user_id = ?", userID).First(&p).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}
