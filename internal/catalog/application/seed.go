package application

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/storefront/internal/catalog/domain"
	"github.com/wyfcoding/storefront/pkg/logger"
	"github.com/wyfcoding/storefront/pkg/utils"
)

//go:embed sample_catalog.json
var sampleCatalogJSON []byte

// SampleCategory 示例分类
type SampleCategory struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SampleProduct 示例商品；Sized 为 true 时库存平均拆分到各尺码
type SampleProduct struct {
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Description string          `json:"description"`
	Sized       bool            `json:"sized"`
}

// SampleCatalog 示例目录
type SampleCatalog struct {
	Categories []SampleCategory `json:"categories"`
	Sizes      []domain.Size    `json:"sizes"`
	Products   []SampleProduct  `json:"products"`
}

// SeedResult 导入统计
type SeedResult struct {
	Categories int
	Created    int
	Updated    int
}

// DefaultSampleCatalog 内置示例目录
func DefaultSampleCatalog() (SampleCatalog, error) {
	var c SampleCatalog
	if err := json.Unmarshal(sampleCatalogJSON, &c); err != nil {
		return c, fmt.Errorf("failed to decode sample catalog: %w", err)
	}
	return c, nil
}

// SplitStock 将总库存平均分配到 n 个尺码，余数依次分给靠前的尺码
func SplitStock(total, n int) []int {
	if n <= 0 {
		return nil
	}
	out := make([]int, n)
	for i := range out {
		out[i] = total / n
		if i < total%n {
			out[i]++
		}
	}
	return out
}

// Seed 幂等导入示例目录：按 slug 创建或更新
func (s *CatalogCommandService) Seed(ctx context.Context, sample SampleCatalog) (SeedResult, error) {
	var res SeedResult
	err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		categories := make(map[string]*domain.Category, len(sample.Categories))
		for _, sc := range sample.Categories {
			slug := utils.Slugify(sc.Name)
			c, err := s.categories.GetBySlug(txCtx, slug)
			if errors.Is(err, domain.ErrCategoryNotFound) {
				c = &domain.Category{Name: sc.Name, Slug: slug, Description: sc.Description}
				err = s.categories.Save(txCtx, c)
			}
			if err != nil {
				return err
			}
			categories[sc.Name] = c
		}
		res.Categories = len(categories)

		for _, sp := range sample.Products {
			c, ok := categories[sp.Category]
			if !ok {
				return fmt.Errorf("unknown category %q for product %q", sp.Category, sp.Name)
			}
			if err := s.seedProduct(txCtx, c, sp, sample.Sizes, &res); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return res, err
	}
	logger.Info(ctx, "sample catalog loaded", "categories", res.Categories, "created", res.Created, "updated", res.Updated)
	return res, nil
}

func (s *CatalogCommandService) seedProduct(ctx context.Context, c *domain.Category, sp SampleProduct, sizes []domain.Size, res *SeedResult) error {
	slug := utils.Slugify(sp.Name)
	p, err := s.products.GetBySlug(ctx, slug)
	var before domain.ProductSnapshot
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		p = &domain.Product{Slug: slug}
		res.Created++
	case err != nil:
		return err
	default:
		before = p.Snapshot()
		res.Updated++
	}

	p.Name = sp.Name
	p.CategoryID = c.ID
	p.Category = nil
	p.Price = sp.Price
	p.Description = sp.Description
	p.Stock = sp.Stock
	p.IsAvailable = sp.Stock > 0 && !p.Hidden
	if err := s.products.Save(ctx, p); err != nil {
		return err
	}

	if sp.Sized && len(sizes) > 0 {
		for i, stock := range SplitStock(sp.Stock, len(sizes)) {
			if err := s.products.SaveVariant(ctx, &domain.ProductVariant{ProductID: p.ID, Size: sizes[i], Stock: stock}); err != nil {
				return err
			}
		}
		if err := s.products.RecomputeStock(ctx, p.ID, true); err != nil {
			return err
		}
	}

	if before.ID == 0 {
		return nil
	}
	after, err := s.products.Get(ctx, p.ID)
	if err != nil {
		return err
	}
	invalidateProduct(ctx, s.cache, after.Slug)
	return s.restock.OnStockChanged(ctx, before, after.Snapshot())
}
