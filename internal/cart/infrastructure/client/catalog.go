// Package client 购物车访问商品目录的适配器
package client

import (
	"context"
	"errors"

	"github.com/wyfcoding/storefront/internal/cart/domain"
	catalogdomain "github.com/wyfcoding/storefront/internal/catalog/domain"
)

// CatalogReader 商品目录读取接口
type CatalogReader interface {
	GetProduct(ctx context.Context, id uint) (*catalogdomain.Product, error)
}

// CatalogClient 将商品目录适配为 domain.ProductLookup
type CatalogClient struct {
	reader CatalogReader
}

// NewCatalogClient 创建适配器
func NewCatalogClient(reader CatalogReader) *CatalogClient {
	return &CatalogClient{reader: reader}
}

// Product 实现 domain.ProductLookup
func (c *CatalogClient) Product(ctx context.Context, id uint) (*domain.ProductView, error) {
	p, err := c.reader.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, catalogdomain.ErrProductNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}

	view := &domain.ProductView{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		ImageURL:    p.ImageURL,
		Price:       p.Price,
		IsAvailable: p.IsAvailable,
		Stock:       p.Stock,
	}
	if p.HasSizeVariants() {
		view.Sizes = make(map[string]int, len(p.Variants))
		for _, v := range p.Variants {
			view.Sizes[string(v.Size)] = v.Stock
		}
	}
	return view, nil
}
