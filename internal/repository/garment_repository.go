package repository

import (
	"context"
	"fmt"
	"net/url"

	"go-fitting-room/internal/imaging"
	"go-fitting-room/internal/logger"
	"go-fitting-room/internal/scraper"
	"go-fitting-room/internal/storage"
	"go-fitting-room/pkg/validation"

	"github.com/sirupsen/logrus"
)

const (
	// MaxCandidates bounds how many scraped images are downloaded per page
	MaxCandidates = 5
	// MinGarmentBytes filters out icons and spacers that slipped past the scraper
	MinGarmentBytes = 10 * 1024
)

// HTTPGarmentRepository implements GarmentRepository over web pages and blobs
type HTTPGarmentRepository struct {
	validator *validation.URLValidator
	web       storage.GarmentSource
	blob      storage.GarmentSource
}

// NewHTTPGarmentRepository creates a repository. blob may be nil when Azure is not configured.
func NewHTTPGarmentRepository(validator *validation.URLValidator, web, blob storage.GarmentSource) GarmentRepository {
	if validator == nil {
		validator = validation.NewURLValidator()
	}
	return &HTTPGarmentRepository{
		validator: validator,
		web:       web,
		blob:      blob,
	}
}

// FetchGarment downloads productURL. An image body is returned as is; an HTML
// page is scraped and the first sizeable candidate image wins.
func (r *HTTPGarmentRepository) FetchGarment(ctx context.Context, productURL string) (*Garment, error) {
	parsed, err := r.validator.Parse(productURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProductURL, err)
	}

	obj, err := r.sourceFor(parsed).Fetch(ctx, parsed.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	if imaging.IsImage(obj.Data) {
		return &Garment{
			SourceURL: obj.URL,
			MIMEType:  imaging.DetectMIME(obj.Data),
			Data:      obj.Data,
		}, nil
	}

	pageURL := parsed
	if final, err := url.Parse(obj.URL); err == nil && final.Host != "" {
		pageURL = final
	}

	candidates := scraper.ExtractImageURLs(obj.Data, pageURL)
	logger.WithFields(logrus.Fields{
		"product_url": parsed.String(),
		"candidates":  len(candidates),
	}).Info("Scraped product page")

	if len(candidates) > MaxCandidates {
		candidates = candidates[:MaxCandidates]
	}

	for _, candidate := range candidates {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		img, err := r.web.Fetch(ctx, candidate)
		if err != nil {
			logger.WithError(err).WithField("image_url", candidate).Warn("Failed to download candidate image")
			continue
		}
		if !imaging.IsImage(img.Data) || len(img.Data) <= MinGarmentBytes {
			continue
		}

		return &Garment{
			SourceURL: img.URL,
			MIMEType:  imaging.DetectMIME(img.Data),
			Data:      img.Data,
			Scraped:   true,
		}, nil
	}

	return nil, fmt.Errorf("%w on %s", ErrNoProductImages, parsed.String())
}

// sourceFor sends blobs of the configured account to the blob source. Blobs of
// other accounts are fetched over plain HTTP (public or SAS links).
func (r *HTTPGarmentRepository) sourceFor(u *url.URL) storage.GarmentSource {
	if r.blob == nil || !storage.IsAzureBlobURL(u) {
		return r.web
	}
	if scoped, ok := r.blob.(storage.AccountScoped); ok && !scoped.Serves(u) {
		return r.web
	}
	return r.blob
}
