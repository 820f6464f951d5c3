package repository

import (
	"context"
)

// GarmentRepository defines how a product link becomes garment image bytes
type GarmentRepository interface {
	// FetchGarment resolves productURL to the bytes of one garment image
	FetchGarment(ctx context.Context, productURL string) (*Garment, error)
}

// Garment is a resolved garment image and where it came from
type Garment struct {
	SourceURL string
	MIMEType  string
	Data      []byte
	// Scraped is true when the image was found on an HTML product page
	Scraped bool
}
