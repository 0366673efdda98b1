package domain

import "github.com/wyfcoding/storefront/pkg/errorsx"

var (
	ErrProductNotFound   = errorsx.New(errorsx.KindNotFound, "PRODUCT_NOT_FOUND", "Product not found")
	ErrCategoryNotFound  = errorsx.New(errorsx.KindNotFound, "CATEGORY_NOT_FOUND", "Category not found")
	ErrCategoryInUse     = errorsx.New(errorsx.KindConflict, "CATEGORY_IN_USE", "Category still has products")
	ErrSlugTaken         = errorsx.New(errorsx.KindConflict, "SLUG_TAKEN", "Slug is already in use")
	ErrInvalidSize       = errorsx.New(errorsx.KindValidation, "INVALID_SIZE", "Invalid size")
	ErrSizeRequired      = errorsx.New(errorsx.KindValidation, "SIZE_REQUIRED", "Please select a size before adding to cart")
	ErrSizeUnavailable   = errorsx.New(errorsx.KindValidation, "SIZE_UNAVAILABLE", "Selected size is not available")
	ErrInsufficientStock = errorsx.New(errorsx.KindConflict, "INSUFFICIENT_STOCK", "Insufficient stock")
	ErrInvalidProduct    = errorsx.New(errorsx.KindValidation, "INVALID_PRODUCT", "Invalid product")
	ErrImageNotFound     = errorsx.New(errorsx.KindNotFound, "IMAGE_NOT_FOUND", "Image not found")
)
