package application

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/storefront/internal/catalog/domain"
	"github.com/wyfcoding/storefront/pkg/cache"
	"github.com/wyfcoding/storefront/pkg/logger"
	"github.com/wyfcoding/storefront/pkg/utils"
)

// CategoryCommand 创建/更新分类命令
type CategoryCommand struct {
	ID          uint
	Name        string
	Slug        string
	Description string
}

// ProductCommand 创建/更新商品命令
type ProductCommand struct {
	ID          uint
	CategoryID  uint
	Name        string
	Slug        string
	Description string
	Price       decimal.Decimal
	Stock       int
	ImageURL    string
	// false 下架，true 取消下架，nil 保持不变
	IsAvailable *bool
}

// ImageCommand 添加图集命令
type ImageCommand struct {
	ProductID uint
	URL       string
	AltText   string
	SortOrder int
}

// HeroCommand 更新首页横幅命令
type HeroCommand struct {
	Title               string
	Subtitle            string
	PrimaryButtonText   string
	PrimaryButtonURL    string
	SecondaryButtonText string
	SecondaryButtonURL  string
}

// CatalogCommandService 商品目录命令服务（后台）
type CatalogCommandService struct {
	tx         TxManager
	products   domain.ProductRepository
	categories domain.CategoryRepository
	hero       domain.HeroRepository
	restock    *RestockHandler
	cache      cache.Cache
}

// NewCatalogCommandService 创建商品目录命令服务实例
func NewCatalogCommandService(
	tx TxManager,
	products domain.ProductRepository,
	categories domain.CategoryRepository,
	hero domain.HeroRepository,
	restock *RestockHandler,
	c cache.Cache,
) *CatalogCommandService {
	return &CatalogCommandService{
		tx:         tx,
		products:   products,
		categories: categories,
		hero:       hero,
		restock:    restock,
		cache:      c,
	}
}

// CreateCategory 创建分类
func (s *CatalogCommandService) CreateCategory(ctx context.Context, cmd CategoryCommand) (*domain.Category, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return nil, domain.ErrInvalidProduct.WithMessage("Category name is required")
	}
	slug := slugOrName(cmd.Slug, name)
	if _, err := s.categories.GetBySlug(ctx, slug); err == nil {
		return nil, domain.ErrSlugTaken
	}
	c := &domain.Category{Name: name, Slug: slug, Description: cmd.Description}
	if err := s.categories.Save(ctx, c); err != nil {
		return nil, err
	}
	logger.Info(ctx, "category created", "category_id", c.ID, "slug", c.Slug)
	return c, nil
}

// UpdateCategory 更新分类
func (s *CatalogCommandService) UpdateCategory(ctx context.Context, cmd CategoryCommand) (*domain.Category, error) {
	c, err := s.categories.Get(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(cmd.Name); name != "" {
		c.Name = name
	}
	if cmd.Slug != "" {
		slug := utils.Slugify(cmd.Slug)
		if existing, err := s.categories.GetBySlug(ctx, slug); err == nil && existing.ID != c.ID {
			return nil, domain.ErrSlugTaken
		}
		c.Slug = slug
	}
	c.Description = cmd.Description
	if err := s.categories.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCategory 删除无商品的分类
func (s *CatalogCommandService) DeleteCategory(ctx context.Context, id uint) error {
	n, err := s.categories.CountProducts(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return domain.ErrCategoryInUse
	}
	return s.categories.Delete(ctx, id)
}

// CreateProduct 创建商品，slug 为空时由名称生成
func (s *CatalogCommandService) CreateProduct(ctx context.Context, cmd ProductCommand) (*domain.Product, error) {
	if err := validateProduct(cmd); err != nil {
		return nil, err
	}
	if _, err := s.categories.Get(ctx, cmd.CategoryID); err != nil {
		return nil, err
	}
	slug := slugOrName(cmd.Slug, cmd.Name)
	taken, err := s.products.SlugExists(ctx, slug, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, domain.ErrSlugTaken
	}

	p := &domain.Product{
		CategoryID:  cmd.CategoryID,
		Name:        strings.TrimSpace(cmd.Name),
		Slug:        slug,
		Description: cmd.Description,
		Price:       cmd.Price,
		Stock:       cmd.Stock,
		ImageURL:    cmd.ImageURL,
		Hidden:      cmd.IsAvailable != nil && !*cmd.IsAvailable,
	}
	p.RefreshAvailability()
	if err := s.products.Save(ctx, p); err != nil {
		return nil, err
	}
	logger.Info(ctx, "product created", "product_id", p.ID, "slug", p.Slug)
	return p, nil
}

// UpdateProduct 更新商品；有尺码时库存由尺码汇总
func (s *CatalogCommandService) UpdateProduct(ctx context.Context, cmd ProductCommand) (*domain.Product, error) {
	if err := validateProduct(cmd); err != nil {
		return nil, err
	}
	var (
		updated *domain.Product
		oldSlug string
	)
	err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		p, err := s.products.Get(txCtx, cmd.ID)
		if err != nil {
			return err
		}
		before := p.Snapshot()
		oldSlug = p.Slug

		if cmd.CategoryID != p.CategoryID {
			if _, err := s.categories.Get(txCtx, cmd.CategoryID); err != nil {
				return err
			}
		}
		slug := slugOrName(cmd.Slug, cmd.Name)
		if slug != p.Slug {
			taken, err := s.products.SlugExists(txCtx, slug, p.ID)
			if err != nil {
				return err
			}
			if taken {
				return domain.ErrSlugTaken
			}
		}

		p.CategoryID = cmd.CategoryID
		p.Category = nil
		p.Name = strings.TrimSpace(cmd.Name)
		p.Slug = slug
		p.Description = cmd.Description
		p.Price = cmd.Price
		p.ImageURL = cmd.ImageURL
		if !p.HasSizeVariants() {
			p.Stock = cmd.Stock
		}
		if cmd.IsAvailable != nil {
			p.Hidden = !*cmd.IsAvailable
		}
		p.RefreshAvailability()
		if err := s.products.Save(txCtx, p); err != nil {
			return err
		}
		updated = p
		return s.restock.OnStockChanged(txCtx, before, p.Snapshot())
	})
	if err != nil {
		return nil, err
	}
	invalidateProduct(ctx, s.cache, oldSlug)
	invalidateProduct(ctx, s.cache, updated.Slug)
	return updated, nil
}

// SetVariantStock 设置尺码库存（不存在则创建）
func (s *CatalogCommandService) SetVariantStock(ctx context.Context, productID uint, sizeInput string, stock int) (*domain.Product, error) {
	size, err := domain.ParseSize(sizeInput)
	if err != nil {
		return nil, err
	}
	if stock < 0 {
		return nil, domain.ErrInvalidProduct.WithMessage("Stock cannot be negative")
	}
	return s.changeVariants(ctx, productID, func(txCtx context.Context) error {
		return s.products.SaveVariant(txCtx, &domain.ProductVariant{ProductID: productID, Size: size, Stock: stock})
	})
}

// RemoveVariant 删除尺码
func (s *CatalogCommandService) RemoveVariant(ctx context.Context, productID uint, sizeInput string) (*domain.Product, error) {
	size, err := domain.ParseSize(sizeInput)
	if err != nil {
		return nil, err
	}
	return s.changeVariants(ctx, productID, func(txCtx context.Context) error {
		return s.products.DeleteVariant(txCtx, productID, size)
	})
}

// changeVariants 在事务内修改尺码后重算汇总库存，并以前后快照触发到货检测
func (s *CatalogCommandService) changeVariants(ctx context.Context, productID uint, change func(txCtx context.Context) error) (*domain.Product, error) {
	var after *domain.Product
	err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		before, err := s.products.Get(txCtx, productID)
		if err != nil {
			return err
		}
		if err := change(txCtx); err != nil {
			return err
		}
		reloaded, err := s.products.Get(txCtx, productID)
		if err != nil {
			return err
		}
		if err := s.products.RecomputeStock(txCtx, productID, reloaded.HasSizeVariants()); err != nil {
			return err
		}
		if after, err = s.products.Get(txCtx, productID); err != nil {
			return err
		}
		return s.restock.OnStockChanged(txCtx, before.Snapshot(), after.Snapshot())
	})
	if err != nil {
		return nil, err
	}
	invalidateProduct(ctx, s.cache, after.Slug)
	return after, nil
}

// AddProductImage 添加图集图片
func (s *CatalogCommandService) AddProductImage(ctx context.Context, cmd ImageCommand) (*domain.ProductImage, error) {
	if strings.TrimSpace(cmd.URL) == "" {
		return nil, domain.ErrInvalidProduct.WithMessage("Image URL is required")
	}
	p, err := s.products.Get(ctx, cmd.ProductID)
	if err != nil {
		return nil, err
	}
	img := &domain.ProductImage{ProductID: p.ID, URL: cmd.URL, AltText: cmd.AltText, SortOrder: cmd.SortOrder}
	if err := s.products.AddImage(ctx, img); err != nil {
		return nil, err
	}
	invalidateProduct(ctx, s.cache, p.Slug)
	return img, nil
}

// DeleteProductImage 删除图集图片
func (s *CatalogCommandService) DeleteProductImage(ctx context.Context, productID, imageID uint) error {
	p, err := s.products.Get(ctx, productID)
	if err != nil {
		return err
	}
	if err := s.products.DeleteImage(ctx, productID, imageID); err != nil {
		return err
	}
	invalidateProduct(ctx, s.cache, p.Slug)
	return nil
}

// DeleteProduct 删除商品及其尺码与图集
func (s *CatalogCommandService) DeleteProduct(ctx context.Context, id uint) error {
	var slug string
	err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		p, err := s.products.Get(txCtx, id)
		if err != nil {
			return err
		}
		slug = p.Slug
		return s.products.Delete(txCtx, id)
	})
	if err != nil {
		return err
	}
	invalidateProduct(ctx, s.cache, slug)
	return nil
}

// UpdateHero 更新首页横幅
func (s *CatalogCommandService) UpdateHero(ctx context.Context, cmd HeroCommand) (*domain.HomeHero, error) {
	hero := &domain.HomeHero{
		Title:               cmd.Title,
		Subtitle:            cmd.Subtitle,
		PrimaryButtonText:   cmd.PrimaryButtonText,
		PrimaryButtonURL:    cmd.PrimaryButtonURL,
		SecondaryButtonText: cmd.SecondaryButtonText,
		SecondaryButtonURL:  cmd.SecondaryButtonURL,
	}
	if err := s.hero.Save(ctx, hero); err != nil {
		return nil, err
	}
	return hero, nil
}

func validateProduct(cmd ProductCommand) error {
	switch {
	case strings.TrimSpace(cmd.Name) == "":
		return domain.ErrInvalidProduct.WithMessage("Product name is required")
	case cmd.CategoryID == 0:
		return domain.ErrInvalidProduct.WithMessage("Category is required")
	case cmd.Price.IsNegative():
		return domain.ErrInvalidProduct.WithMessage("Price cannot be negative")
	case cmd.Stock < 0:
		return domain.ErrInvalidProduct.WithMessage("Stock cannot be negative")
	}
	return nil
}

func slugOrName(slug, name string) string {
	if s := utils.Slugify(slug); s != "" {
		return s
	}
	return utils.Slugify(name)
}
