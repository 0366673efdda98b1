package domain

import "github.com/wyfcoding/storefront/pkg/errorsx"

var (
	ErrCartNotFound      = errorsx.New(errorsx.KindNotFound, "CART_NOT_FOUND", "Cart not found")
	ErrCartItemNotFound  = errorsx.New(errorsx.KindNotFound, "CART_ITEM_NOT_FOUND", "Cart item not found")
	ErrProductNotFound   = errorsx.New(errorsx.KindNotFound, "CART_PRODUCT_NOT_FOUND", "Product not found")
	ErrInvalidQuantity   = errorsx.New(errorsx.KindValidation, "CART_INVALID_QUANTITY", "Quantity must be at least 1")
	ErrSizeRequired      = errorsx.New(errorsx.KindValidation, "CART_SIZE_REQUIRED", "Please select a size before adding to cart")
	ErrSizeUnavailable   = errorsx.New(errorsx.KindValidation, "CART_SIZE_UNAVAILABLE", "Selected size is not available")
	ErrInsufficientStock = errorsx.New(errorsx.KindConflict, "CART_INSUFFICIENT_STOCK", "Insufficient stock for the selected size")
)
