// Package http 商品目录 HTTP 接口：前台浏览与后台管理
package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/storefront/internal/catalog/application"
	"github.com/wyfcoding/storefront/pkg/logger"
	"github.com/wyfcoding/storefront/pkg/middleware"
	"github.com/wyfcoding/storefront/pkg/response"
	"github.com/wyfcoding/storefront/pkg/utils"
)

// CartCounter 购物车件数，用于页头角标
type CartCounter interface {
	ItemCount(ctx context.Context, userID uint) (int, error)
}

// CatalogHandler HTTP 处理器
type CatalogHandler struct {
	cmd   *application.CatalogCommandService
	query *application.CatalogQueryService
	carts CartCounter
}

// NewCatalogHandler 创建 HTTP 处理器实例；carts 可为 nil
func NewCatalogHandler(cmd *application.CatalogCommandService, query *application.CatalogQueryService, carts CartCounter) *CatalogHandler {
	return &CatalogHandler{cmd: cmd, query: query, carts: carts}
}

// RegisterRoutes 注册前台路由
func (h *CatalogHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/", h.Homepage)
	router.GET("/home", h.Homepage)
	router.GET("/products", h.ListProducts)
	router.GET("/product/:slug", h.ProductDetail)
	router.GET("/api/categories", h.ListCategories)
}

// RegisterAdminRoutes 注册后台路由，调用方负责挂载管理员鉴权
func (h *CatalogHandler) RegisterAdminRoutes(admin *gin.RouterGroup) {
	categories := admin.Group("/categories")
	{
		categories.GET("", h.ListCategories)
		categories.POST("", h.CreateCategory)
		categories.PUT("/:id", h.UpdateCategory)
		categories.DELETE("/:id", h.DeleteCategory)
	}
	products := admin.Group("/products")
	{
		products.GET("", h.AdminListProducts)
		products.POST("", h.CreateProduct)
		products.PUT("/:id", h.UpdateProduct)
		products.DELETE("/:id", h.DeleteProduct)
		products.PUT("/:id/variants", h.SetVariantStock)
		products.DELETE("/:id/variants/:size", h.RemoveVariant)
		products.POST("/:id/images", h.AddImage)
		products.DELETE("/:id/images/:imageId", h.DeleteImage)
	}
	admin.GET("/hero", h.GetHero)
	admin.PUT("/hero", h.UpdateHero)
}

func (h *CatalogHandler) cartCount(c *gin.Context) int {
	userID := middleware.CurrentUserID(c)
	if h.carts == nil || userID == 0 {
		return 0
	}
	n, err := h.carts.ItemCount(c.Request.Context(), userID)
	if err != nil {
		logger.Warn(c.Request.Context(), "failed to count cart items", "user_id", userID, "error", err)
		return 0
	}
	return n
}

// Homepage 首页
func (h *CatalogHandler) Homepage(c *gin.Context) {
	home, err := h.query.Homepage(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"categories": home.Categories,
		"products":   home.Products,
		"hero":       home.Hero,
		"cart_count": h.cartCount(c),
	})
}

// ListProducts 商品列表
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	category := c.Query("category")
	search := c.Query("search")
	products, err := h.query.ListProducts(c.Request.Context(), category, search)
	if err != nil {
		response.Error(c, err)
		return
	}
	categories, err := h.query.ListCategories(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"products":          products,
		"categories":        categories,
		"selected_category": category,
		"search_query":      search,
		"cart_count":        h.cartCount(c),
	})
}

// ProductDetail 商品详情
func (h *CatalogHandler) ProductDetail(c *gin.Context) {
	product, err := h.query.GetProductBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"product":        product,
		"variants":       product.Variants,
		"gallery_images": product.Images,
		"cart_count":     h.cartCount(c),
	})
}

// ListCategories 分类列表
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.query.ListCategories(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"categories": categories})
}

// CategoryRequest 分类请求
type CategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

// CreateCategory 创建分类
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	category, err := h.cmd.CreateCategory(c.Request.Context(), application.CategoryCommand{
		Name: req.Name, Slug: req.Slug, Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"category": category})
}

// UpdateCategory 更新分类
func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	category, err := h.cmd.UpdateCategory(c.Request.Context(), application.CategoryCommand{
		ID: id, Name: req.Name, Slug: req.Slug, Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"category": category})
}

// DeleteCategory 删除分类
func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.cmd.DeleteCategory(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// AdminListProducts 后台商品列表
func (h *CatalogHandler) AdminListProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	p := utils.NewPagination(page, size)

	filter := application.AdminProductFilter{Search: c.Query("search"), Limit: p.Limit(), Offset: p.Offset()}
	if v := c.Query("category_id"); v != "" {
		id, _ := strconv.ParseUint(v, 10, 64)
		filter.CategoryID = uint(id)
	}
	if v := c.Query("is_available"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			response.BadRequest(c, "invalid is_available")
			return
		}
		filter.Available = &b
	}

	products, total, err := h.query.AdminListProducts(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	p.SetTotal(total)
	response.Success(c, gin.H{"products": products, "pagination": p})
}

// ProductRequest 商品请求
type ProductRequest struct {
	CategoryID  uint            `json:"category_id" binding:"required"`
	Name        string          `json:"name" binding:"required"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	ImageURL    string          `json:"image_url"`
	IsAvailable *bool           `json:"is_available"`
}

func (r ProductRequest) command(id uint) application.ProductCommand {
	return application.ProductCommand{
		ID:          id,
		CategoryID:  r.CategoryID,
		Name:        r.Name,
		Slug:        r.Slug,
		Description: r.Description,
		Price:       r.Price,
		Stock:       r.Stock,
		ImageURL:    r.ImageURL,
		IsAvailable: r.IsAvailable,
	}
}

// CreateProduct 创建商品
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	product, err := h.cmd.CreateProduct(c.Request.Context(), req.command(0))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"product": product})
}

// UpdateProduct 更新商品
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	product, err := h.cmd.UpdateProduct(c.Request.Context(), req.command(id))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"product": product})
}

// DeleteProduct 删除商品
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.cmd.DeleteProduct(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// VariantRequest 尺码库存请求
type VariantRequest struct {
	Size  string `json:"size" binding:"required"`
	Stock int    `json:"stock" binding:"gte=0"`
}

// SetVariantStock 设置尺码库存
func (h *CatalogHandler) SetVariantStock(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req VariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	product, err := h.cmd.SetVariantStock(c.Request.Context(), id, req.Size, req.Stock)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"product": product})
}

// RemoveVariant 删除尺码
func (h *CatalogHandler) RemoveVariant(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	product, err := h.cmd.RemoveVariant(c.Request.Context(), id, c.Param("size"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"product": product})
}

// ImageRequest 图集请求
type ImageRequest struct {
	URL       string `json:"url" binding:"required"`
	AltText   string `json:"alt_text"`
	SortOrder int    `json:"sort_order"`
}

// AddImage 添加图集图片
func (h *CatalogHandler) AddImage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	img, err := h.cmd.AddProductImage(c.Request.Context(), application.ImageCommand{
		ProductID: id, URL: req.URL, AltText: req.AltText, SortOrder: req.SortOrder,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"image": img})
}

// DeleteImage 删除图集图片
func (h *CatalogHandler) DeleteImage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	imageID, ok := pathID(c, "imageId")
	if !ok {
		return
	}
	if err := h.cmd.DeleteProductImage(c.Request.Context(), id, imageID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// GetHero 获取首页横幅
func (h *CatalogHandler) GetHero(c *gin.Context) {
	hero, err := h.query.Hero(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"hero": hero})
}

// HeroRequest 首页横幅请求
type HeroRequest struct {
	Title               string `json:"title" binding:"required"`
	Subtitle            string `json:"subtitle"`
	PrimaryButtonText   string `json:"primary_button_text"`
	PrimaryButtonURL    string `json:"primary_button_url"`
	SecondaryButtonText string `json:"secondary_button_text"`
	SecondaryButtonURL  string `json:"secondary_button_url"`
}

// UpdateHero 更新首页横幅
func (h *CatalogHandler) UpdateHero(c *gin.Context) {
	var req HeroRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	hero, err := h.cmd.UpdateHero(c.Request.Context(), application.HeroCommand(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"hero": hero})
}

func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}
