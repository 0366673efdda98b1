package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/storefront/internal/user/domain"
	"github.com/wyfcoding/storefront/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

// Contact 通知使用的联系方式
type Contact struct {
	UserID    uint
	Email     string
	FirstName string
	LastName  string
	Phone     string
}

// ProfileView 个人资料
type ProfileView struct {
	User  *domain.User `json:"user"`
	Phone string       `json:"phone"`
}

// AccountService 账户查询与凭据校验
type AccountService struct {
	tx         TxManager
	users      domain.UserRepository
	bcryptCost int
}

// NewAccountService 创建账户服务
func NewAccountService(tx TxManager, users domain.UserRepository, bcryptCost int) *AccountService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AccountService{tx: tx, users: users, bcryptCost: bcryptCost}
}

// Authenticate 按邮箱或用户名校验密码，停用账户拒绝登录
func (s *AccountService) Authenticate(ctx context.Context, login, password string) (*domain.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, domain.ErrMissingFields
	}

	var (
		u   *domain.User
		err error
	)
	if strings.Contains(login, "@") {
		u, err = s.users.GetByEmail(ctx, domain.NormalizeEmail(login))
	} else {
		u, err = s.users.GetByUsername(ctx, login)
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidPassword
	}
	if !u.IsActive {
		return nil, domain.ErrUserDisabled
	}
	return u, nil
}

// Get 按 ID 获取账户
func (s *AccountService) Get(ctx context.Context, userID uint) (*domain.User, error) {
	return s.users.Get(ctx, userID)
}

// Profile 账户与手机号；缺失资料时手机号为空
func (s *AccountService) Profile(ctx context.Context, userID uint) (*ProfileView, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	phone, err := s.Phone(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ProfileView{User: u, Phone: phone}, nil
}

// Phone 用户手机号
func (s *AccountService) Phone(ctx context.Context, userID uint) (string, error) {
	p, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return "", nil
		}
		return "", err
	}
	return p.Phone, nil
}

// Contact 通知收件信息
func (s *AccountService) Contact(ctx context.Context, userID uint) (*Contact, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	phone, err := s.Phone(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Contact{
		UserID:    u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     phone,
	}, nil
}

// UpdatePhone 更新手机号
func (s *AccountService) UpdatePhone(ctx context.Context, userID uint, phone string) error {
	if _, err := s.users.Get(ctx, userID); err != nil {
		return err
	}
	return s.users.SaveProfile(ctx, &domain.Profile{UserID: userID, Phone: strings.TrimSpace(phone)})
}

// FindIDsByEmail 后台订单搜索
func (s *AccountService) FindIDsByEmail(ctx context.Context, query string) ([]uint, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	return s.users.FindIDsByEmail(ctx, query)
}

// EnsureStaff 创建或提升管理员账户，已存在时重置密码
func (s *AccountService) EnsureStaff(ctx context.Context, email, password, firstName string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrMissingFields
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var u *domain.User
	err = s.tx.WithTx(ctx, func(txCtx context.Context) error {
		existing, err := s.users.GetByEmail(txCtx, email)
		switch {
		case err == nil:
			u = existing
		case errors.Is(err, domain.ErrUserNotFound):
			u = &domain.User{Username: email, Email: email, FirstName: firstName}
		default:
			return err
		}
		u.PasswordHash = string(hash)
		u.IsActive = true
		u.IsStaff = true
		if u.ID == 0 {
			if err := s.users.Create(txCtx, u); err != nil {
				return err
			}
			return s.users.SaveProfile(txCtx, &domain.Profile{UserID: u.ID})
		}
		return s.users.Save(txCtx, u)
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "staff account ensured", "user_id", u.ID, "email", email)
	return u, nil
}

// SetStaff 设置管理员标记
func (s *AccountService) SetStaff(ctx context.Context, userID uint, staff bool) error {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	u.IsStaff = staff
	return s.users.Save(ctx, u)
}

// SetActive 启用或停用账户
func (s *AccountService) SetActive(ctx context.Context, userID uint, active bool) error {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	u.IsActive = active
	return s.users.Save(ctx, u)
}

// OrderSummary 个人资料页的订单摘要
type OrderSummary struct {
	ID            uint            `json:"id"`
	OrderNumber   string          `json:"order_number"`
	Status        string          `json:"status"`
	StatusLabel   string          `json:"status_label"`
	PaymentMethod string          `json:"payment_method"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	CreatedAt     time.Time       `json:"created_at"`
}

// OrderHistory 订单查询端口
type OrderHistory interface {
	Recent(ctx context.Context, userID uint, n int) ([]OrderSummary, error)
}
