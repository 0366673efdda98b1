// Package client 通知访问商品目录与用户资料的适配器
package client

import (
	"context"
	"errors"

	catalogdomain "github.com/wyfcoding/storefront/internal/catalog/domain"
	"github.com/wyfcoding/storefront/internal/notification/application"
	"github.com/wyfcoding/storefront/internal/notification/domain"
	userapp "github.com/wyfcoding/storefront/internal/user/application"
)

// CatalogReader 商品目录读取接口
type CatalogReader interface {
	GetProduct(ctx context.Context, id uint) (*catalogdomain.Product, error)
}

// ProductClient 将商品目录适配为 application.ProductReader
type ProductClient struct {
	reader CatalogReader
}

// NewProductClient 创建适配器
func NewProductClient(reader CatalogReader) *ProductClient {
	return &ProductClient{reader: reader}
}

// Product 实现 application.ProductReader
func (c *ProductClient) Product(ctx context.Context, id uint) (*application.ProductInfo, error) {
	p, err := c.reader.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, catalogdomain.ErrProductNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}
	return &application.ProductInfo{ID: p.ID, Name: p.Name, Stock: p.Stock, IsAvailable: p.IsAvailable}, nil
}

// ContactLookup 用户联系方式查询
type ContactLookup interface {
	Contact(ctx context.Context, userID uint) (*userapp.Contact, error)
}

// RecipientClient 将用户资料适配为 domain.RecipientDirectory
type RecipientClient struct {
	users ContactLookup
}

// NewRecipientClient 创建适配器
func NewRecipientClient(users ContactLookup) *RecipientClient {
	return &RecipientClient{users: users}
}

// Recipient 实现 domain.RecipientDirectory
func (c *RecipientClient) Recipient(ctx context.Context, userID uint) (*domain.Recipient, error) {
	contact, err := c.users.Contact(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &domain.Recipient{
		UserID:    contact.UserID,
		Email:     contact.Email,
		FirstName: contact.FirstName,
		LastName:  contact.LastName,
		Phone:     contact.Phone,
	}, nil
}
