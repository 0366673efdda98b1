package application

import (
	"context"
	"time"

	"github.com/wyfcoding/storefront/internal/catalog/domain"
	"github.com/wyfcoding/storefront/pkg/cache"
	"github.com/wyfcoding/storefront/pkg/logger"
)

// HomepageProductLimit 首页商品数量
const HomepageProductLimit = 12

// Homepage 首页数据
type Homepage struct {
	Categories []*domain.Category `json:"categories"`
	Products   []*domain.Product  `json:"products"`
	Hero       *domain.HomeHero   `json:"hero"`
}

// AdminProductFilter 后台商品筛选
type AdminProductFilter struct {
	CategoryID uint
	Available  *bool
	Search     string
	Limit      int
	Offset     int
}

// CatalogQueryService 商品目录查询服务
type CatalogQueryService struct {
	products   domain.ProductRepository
	categories domain.CategoryRepository
	hero       domain.HeroRepository
	cache      cache.Cache
	ttl        time.Duration
}

// NewCatalogQueryService 创建商品目录查询服务实例；ttl<=0 时不缓存商品详情
func NewCatalogQueryService(
	products domain.ProductRepository,
	categories domain.CategoryRepository,
	hero domain.HeroRepository,
	c cache.Cache,
	ttl time.Duration,
) *CatalogQueryService {
	return &CatalogQueryService{
		products:   products,
		categories: categories,
		hero:       hero,
		cache:      c,
		ttl:        ttl,
	}
}

// Homepage 分类、前 12 个在售商品与横幅
func (s *CatalogQueryService) Homepage(ctx context.Context) (*Homepage, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}
	available := true
	products, _, err := s.products.List(ctx, domain.ProductFilter{Available: &available, Limit: HomepageProductLimit})
	if err != nil {
		return nil, err
	}
	hero, err := s.hero.Get(ctx)
	if err != nil {
		return nil, err
	}
	return &Homepage{Categories: categories, Products: products, Hero: hero}, nil
}

// ListProducts 在售商品，可按分类 slug 与关键字过滤
func (s *CatalogQueryService) ListProducts(ctx context.Context, categorySlug, search string) ([]*domain.Product, error) {
	available := true
	products, _, err := s.products.List(ctx, domain.ProductFilter{
		CategorySlug: categorySlug,
		Search:       search,
		Available:    &available,
	})
	return products, err
}

// GetProductBySlug 在售商品详情（含尺码与图集），命中缓存时不查库
func (s *CatalogQueryService) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	key := productCacheKey(slug)
	if s.cache != nil && s.ttl > 0 {
		var cached domain.Product
		hit, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			logger.Warn(ctx, "product cache read failed", "slug", slug, "error", err)
		} else if hit {
			return &cached, nil
		}
	}

	product, err := s.products.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !product.IsAvailable {
		return nil, domain.ErrProductNotFound
	}

	if s.cache != nil && s.ttl > 0 {
		if err := s.cache.SetJSON(ctx, key, product, s.ttl); err != nil {
			logger.Warn(ctx, "product cache write failed", "slug", slug, "error", err)
		}
	}
	return product, nil
}

// GetProduct 按 ID 获取商品（含尺码），不过滤上架状态
func (s *CatalogQueryService) GetProduct(ctx context.Context, id uint) (*domain.Product, error) {
	return s.products.Get(ctx, id)
}

// ListCategories 全部分类
func (s *CatalogQueryService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.categories.List(ctx)
}

// Hero 首页横幅
func (s *CatalogQueryService) Hero(ctx context.Context) (*domain.HomeHero, error) {
	return s.hero.Get(ctx)
}

// AdminListProducts 后台商品列表
func (s *CatalogQueryService) AdminListProducts(ctx context.Context, f AdminProductFilter) ([]*domain.Product, int64, error) {
	return s.products.List(ctx, domain.ProductFilter{
		CategoryID: f.CategoryID,
		Available:  f.Available,
		Search:     f.Search,
		Limit:      f.Limit,
		Offset:     f.Offset,
	})
}
