package repository

import "errors"

var (
	// ErrInvalidProductURL indicates the product URL failed validation
	ErrInvalidProductURL = errors.New("invalid product URL")

	// ErrNoProductImages indicates nothing usable as a garment image was found
	ErrNoProductImages = errors.New("no product images found")

	// ErrSourceUnavailable indicates the product page or blob could not be fetched
	ErrSourceUnavailable = errors.New("garment source unavailable")
)
