package domain

import "context"

// ProductFilter 商品查询条件
type ProductFilter struct {
	CategorySlug string
	CategoryID   uint
	// 名称或描述包含，不区分大小写
	Search string
	// nil 表示不过滤
	Available *bool
	Limit     int
	Offset    int
}

// CategoryRepository 分类仓储
type CategoryRepository interface {
	Save(ctx context.Context, category *Category) error
	Get(ctx context.Context, id uint) (*Category, error)
	GetBySlug(ctx context.Context, slug string) (*Category, error)
	List(ctx context.Context) ([]*Category, error)
	CountProducts(ctx context.Context, id uint) (int64, error)
	Delete(ctx context.Context, id uint) error
}

// ProductRepository 商品仓储
type ProductRepository interface {
	// Save 只写商品本身的列，不级联尺码与图片
	Save(ctx context.Context, product *Product) error
	// Get 加载尺码与图片
	Get(ctx context.Context, id uint) (*Product, error)
	GetBySlug(ctx context.Context, slug string) (*Product, error)
	SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error)
	List(ctx context.Context, filter ProductFilter) ([]*Product, int64, error)
	Delete(ctx context.Context, id uint) error

	SaveVariant(ctx context.Context, variant *ProductVariant) error
	DeleteVariant(ctx context.Context, productID uint, size Size) error
	AddImage(ctx context.Context, image *ProductImage) error
	DeleteImage(ctx context.Context, productID, imageID uint) error

	// DecrementStock 条件扣减 stock >= qty，返回是否扣减成功
	DecrementStock(ctx context.Context, productID uint, qty int) (bool, error)
	DecrementVariantStock(ctx context.Context, productID uint, size Size, qty int) (bool, error)
	IncrementStock(ctx context.Context, productID uint, qty int) error
	IncrementVariantStock(ctx context.Context, productID uint, size Size, qty int) (bool, error)
	// RecomputeStock 在数据库内重算 stock（fromVariants 时为尺码库存之和）与 is_available
	RecomputeStock(ctx context.Context, productID uint, fromVariants bool) error
}

// HeroRepository 首页横幅仓储
type HeroRepository interface {
	Get(ctx context.Context) (*HomeHero, error)
	Save(ctx context.Context, hero *HomeHero) error
}
