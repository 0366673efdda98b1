// Package domain 商品目录领域模型：分类、商品、尺码库存、图集与首页横幅
package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Size 尺码
type Size string

const (
	SizeS   Size = "S"
	SizeM   Size = "M"
	SizeL   Size = "L"
	SizeXL  Size = "XL"
	SizeXXL Size = "XXL"
)

// Sizes 全部尺码，按展示顺序
var Sizes = []Size{SizeS, SizeM, SizeL, SizeXL, SizeXXL}

// ParseSize 解析尺码，忽略大小写与首尾空白
func ParseSize(s string) (Size, error) {
	size := Size(strings.ToUpper(strings.TrimSpace(s)))
	for _, v := range Sizes {
		if v == size {
			return size, nil
		}
	}
	return "", ErrInvalidSize
}

// Category 商品分类
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"column:name;type:varchar(100);not null" json:"name"`
	Slug        string    `gorm:"column:slug;type:varchar(100);uniqueIndex;not null" json:"slug"`
	Description string    `gorm:"column:description;type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName 指定表名
func (Category) TableName() string { return "categories" }

// Product 商品
type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	CategoryID  uint            `gorm:"column:category_id;index;not null" json:"category_id"`
	Category    *Category       `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Name        string          `gorm:"column:name;type:varchar(200);not null" json:"name"`
	Slug        string          `gorm:"column:slug;type:varchar(200);uniqueIndex;not null" json:"slug"`
	Description string          `gorm:"column:description;type:text" json:"description"`
	Price       decimal.Decimal `gorm:"column:price;type:decimal(10,2);not null" json:"price"`
	// 有尺码时为各尺码库存之和
	Stock       int              `gorm:"column:stock;not null;default:0" json:"stock"`
	IsAvailable bool             `gorm:"column:is_available;index;not null" json:"is_available"`
	// 管理员下架；库存变化不会自动恢复上架
	Hidden      bool             `gorm:"column:hidden;not null;default:false" json:"hidden"`
	ImageURL    string           `gorm:"column:image_url;type:varchar(500)" json:"image_url"`
	Images      []ProductImage   `gorm:"foreignKey:ProductID" json:"images,omitempty"`
	Variants    []ProductVariant `gorm:"foreignKey:ProductID" json:"variants,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// TableName 指定表名
func (Product) TableName() string { return "products" }

// ProductVariant 尺码库存
type ProductVariant struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	ProductID uint `gorm:"column:product_id;not null;uniqueIndex:idx_variant_product_size" json:"product_id"`
	Size      Size `gorm:"column:size;type:varchar(5);not null;uniqueIndex:idx_variant_product_size" json:"size"`
	Stock     int  `gorm:"column:stock;not null" json:"stock"`
}

// TableName 指定表名
func (ProductVariant) TableName() string { return "product_variants" }

// ProductImage 商品图集
type ProductImage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID uint      `gorm:"column:product_id;index;not null" json:"product_id"`
	URL       string    `gorm:"column:url;type:varchar(500);not null" json:"url"`
	AltText   string    `gorm:"column:alt_text;type:varchar(200)" json:"alt_text"`
	SortOrder int       `gorm:"column:sort_order;not null;default:0" json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名
func (ProductImage) TableName() string { return "product_images" }

// HasSizeVariants 是否按尺码管理库存
func (p *Product) HasSizeVariants() bool {
	return len(p.Variants) > 0
}

// TotalStock 总库存
func (p *Product) TotalStock() int {
	if !p.HasSizeVariants() {
		return p.Stock
	}
	total := 0
	for _, v := range p.Variants {
		total += v.Stock
	}
	return total
}

// Variant 查找尺码
func (p *Product) Variant(size Size) (*ProductVariant, bool) {
	for i := range p.Variants {
		if p.Variants[i].Size == size {
			return &p.Variants[i], true
		}
	}
	return nil, false
}

// StockFor 指定尺码的可售库存；无尺码商品返回商品库存
func (p *Product) StockFor(size Size) int {
	if !p.HasSizeVariants() {
		return p.Stock
	}
	if v, ok := p.Variant(size); ok {
		return v.Stock
	}
	return 0
}

// RefreshAvailability 按总库存与下架标记重算库存与上架状态
func (p *Product) RefreshAvailability() {
	p.Stock = p.TotalStock()
	p.IsAvailable = p.Stock > 0 && !p.Hidden
}

// Snapshot 当前状态快照
func (p *Product) Snapshot() ProductSnapshot {
	return ProductSnapshot{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Price:       p.Price,
		Stock:       p.Stock,
		IsAvailable: p.IsAvailable,
	}
}

// ProductSnapshot 商品状态的值拷贝，变更处理器比较前后两份快照
type ProductSnapshot struct {
	ID          uint            `json:"id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	IsAvailable bool            `json:"is_available"`
}

// IsRestock 由缺货变为可售
func IsRestock(previous, current ProductSnapshot) bool {
	return previous.Stock == 0 && current.Stock > 0 && current.IsAvailable
}

// HomeHero 首页横幅（单例）
type HomeHero struct {
	ID                  uint      `gorm:"primaryKey" json:"-"`
	Title               string    `gorm:"column:title;type:varchar(200)" json:"title"`
	Subtitle            string    `gorm:"column:subtitle;type:text" json:"subtitle"`
	PrimaryButtonText   string    `gorm:"column:primary_button_text;type:varchar(50)" json:"primary_button_text"`
	PrimaryButtonURL    string    `gorm:"column:primary_button_url;type:varchar(200)" json:"primary_button_url"`
	SecondaryButtonText string    `gorm:"column:secondary_button_text;type:varchar(50)" json:"secondary_button_text"`
	SecondaryButtonURL  string    `gorm:"column:secondary_button_url;type:varchar(200)" json:"secondary_button_url"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// TableName 指定表名
func (HomeHero) TableName() string { return "home_hero" }

// DefaultHero 未配置时的默认横幅
func DefaultHero() *HomeHero {
	return &HomeHero{
		ID:                  1,
		Title:               "Elevate Your Everyday Style",
		Subtitle:            "Premium menswear crafted for comfort and confidence.",
		PrimaryButtonText:   "Shop Now",
		PrimaryButtonURL:    "/products",
		SecondaryButtonText: "New Arrivals",
		SecondaryButtonURL:  "/products?search=new",
	}
}
