package domain

import "github.com/Mohamed-Hasan-MB/ecommerce-app/internal/apperr"

var (
	ErrItemNotFound      = apperr.New(apperr.ErrNotFound, "item not found in cart")
	ErrInvalidTransition = apperr.New(apperr.ErrInvalidTransition, "order status transition not allowed")
	ErrUnknownStatus     = apperr.New(apperr.ErrValidation, "unknown order status")
	ErrInvalidAddress    = apperr.New(apperr.ErrValidation, "invalid address")
)
