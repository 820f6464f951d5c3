package service

import (
	"context"
	"errors"
	"image"
	"strings"
	"time"

	apperrors "go-fitting-room/internal/errors"
	"go-fitting-room/internal/gemini"
	"go-fitting-room/internal/imaging"
	"go-fitting-room/internal/logger"
	"go-fitting-room/internal/observer"
	"go-fitting-room/internal/prompt"
	"go-fitting-room/internal/repository"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const notConfiguredDetail = "Gemini model not initialized"

// Generator is the remote image model. *gemini.Client satisfies it.
type Generator interface {
	GenerateContent(ctx context.Context, parts []gemini.Part) (*gemini.Response, error)
	Model() string
}

// TryOnService defines the virtual fitting room operations. Request-level
// problems (bad uploads, unusable product links) come back as errors;
// generation problems come back as a fallback Result.
type TryOnService interface {
	TryOnText(ctx context.Context, person []byte, description string) (*Result, error)
	TryOnImage(ctx context.Context, person, garment []byte, description string) (*Result, error)
	ChangeBackground(ctx context.Context, person []byte, background, cameraAngle string) (*Result, error)
	TryOnURL(ctx context.Context, person []byte, productURL, description string) (*Result, error)

	// Ready reports whether a model client is configured.
	Ready() bool
	Model() string
}

// Options tunes input preparation.
type Options struct {
	Model          string
	MaxInputWidth  int
	MaxInputHeight int
}

type tryOnService struct {
	generator Generator
	garments  repository.GarmentRepository
	events    observer.Subject
	opts      Options
}

// NewTryOnService creates the service. generator may be nil, in which case
// every generation falls back with ReasonNotConfigured.
func NewTryOnService(
	generator Generator,
	garments repository.GarmentRepository,
	events observer.Subject,
	opts Options,
) TryOnService {
	if opts.MaxInputWidth <= 0 {
		opts.MaxInputWidth = 1920
	}
	if opts.MaxInputHeight <= 0 {
		opts.MaxInputHeight = 1080
	}
	if events == nil {
		events = observer.NewEventPublisher()
	}
	return &tryOnService{
		generator: generator,
		garments:  garments,
		events:    events,
		opts:      opts,
	}
}

func (s *tryOnService) Ready() bool {
	return s.generator != nil
}

func (s *tryOnService) Model() string {
	if s.generator != nil {
		return s.generator.Model()
	}
	return s.opts.Model
}

// TryOnText dresses the person in the described clothing.
func (s *tryOnService) TryOnText(ctx context.Context, person []byte, description string) (*Result, error) {
	original, err := decodeUpload(person, "person_image")
	if err != nil {
		return nil, err
	}
	return s.generate(ctx, "text", original, nil, prompt.Build(description, false)), nil
}

// TryOnImage transfers the garment in the second photo onto the person.
func (s *tryOnService) TryOnImage(ctx context.Context, person, garment []byte, description string) (*Result, error) {
	original, err := decodeUpload(person, "person_image")
	if err != nil {
		return nil, err
	}
	clothing, err := decodeUpload(garment, "clothing_image")
	if err != nil {
		return nil, err
	}
	return s.generate(ctx, "image", original, clothing, prompt.Build(description, true)), nil
}

// ChangeBackground replaces the scene behind the person.
func (s *tryOnService) ChangeBackground(ctx context.Context, person []byte, background, cameraAngle string) (*Result, error) {
	original, err := decodeUpload(person, "person_image")
	if err != nil {
		return nil, err
	}
	return s.generate(ctx, "background", original, nil, prompt.ForBackground(background, cameraAngle)), nil
}

// TryOnURL resolves a garment from a product link, then behaves like TryOnImage.
func (s *tryOnService) TryOnURL(ctx context.Context, person []byte, productURL, description string) (*Result, error) {
	if s.garments == nil {
		return nil, apperrors.NewInternalError("garment repository not configured", nil)
	}

	var original, clothing *image.RGBA
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		original, err = decodeUpload(person, "person_image")
		return err
	})
	g.Go(func() error {
		garment, err := s.garments.FetchGarment(gctx, productURL)
		if err != nil {
			// Cancelled by a failed person decode, not a garment failure.
			if gctx.Err() != nil && ctx.Err() == nil {
				return garmentError(err)
			}
			s.events.NotifyObservers(ctx, observer.TryOnEvent{
				EventType:      observer.GarmentFetchFailed,
				RequestID:      logger.RequestID(ctx),
				Mode:           "url",
				ProcessingTime: time.Since(start),
				ErrorMessage:   err.Error(),
			})
			return garmentError(err)
		}

		s.events.NotifyObservers(ctx, observer.TryOnEvent{
			EventType:      observer.GarmentFetched,
			RequestID:      logger.RequestID(ctx),
			Mode:           "url",
			ProcessingTime: time.Since(start),
			Metadata: map[string]interface{}{
				"garment_url": garment.SourceURL,
				"scraped":     garment.Scraped,
				"bytes":       len(garment.Data),
			},
		})

		clothing, err = decodeUpload(garment.Data, "product image")
		if err != nil {
			return apperrors.NewValidationError("product image could not be decoded", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return s.generate(ctx, "url", original, clothing, prompt.Build(description, true)), nil
}

// generate runs one model call. It never returns an error: every failure is
// folded into a fallback Result. The call is detached from ctx cancellation
// so a client hanging up does not abort an in-flight generation.
func (s *tryOnService) generate(ctx context.Context, mode string, original, garment *image.RGBA, text string) *Result {
	start := time.Now()
	log := logger.FromContext(ctx).WithFields(logrus.Fields{"mode": mode, "model": s.Model()})

	s.events.NotifyObservers(ctx, observer.TryOnEvent{
		EventType: observer.GenerationStarted,
		RequestID: logger.RequestID(ctx),
		Mode:      mode,
	})

	result := s.invoke(context.WithoutCancel(ctx), original, garment, text)
	result.Elapsed = time.Since(start)

	event := observer.TryOnEvent{
		RequestID:      logger.RequestID(ctx),
		Mode:           mode,
		ProcessingTime: result.Elapsed,
	}
	if result.Generated() {
		event.EventType = observer.GenerationCompleted
	} else {
		event.EventType = observer.GenerationFallback
		event.Reason = string(result.Reason)
		event.ErrorMessage = result.Detail
		log.WithField("reason", result.Reason).Debug("Generation did not produce an image")
	}
	s.events.NotifyObservers(ctx, event)

	return result
}

func (s *tryOnService) invoke(ctx context.Context, original, garment *image.RGBA, text string) *Result {
	if s.generator == nil {
		return fallback(original, ReasonNotConfigured, notConfiguredDetail)
	}

	parts := make([]gemini.Part, 0, 3)
	for _, img := range []*image.RGBA{original, garment} {
		if img == nil {
			continue
		}
		data, err := imaging.EncodePNG(imaging.Fit(img, s.opts.MaxInputWidth, s.opts.MaxInputHeight))
		if err != nil {
			return fallback(original, ReasonUpstream, err.Error())
		}
		parts = append(parts, gemini.ImagePart("image/png", data))
	}
	parts = append(parts, gemini.TextPart(text))

	resp, err := s.generator.GenerateContent(ctx, parts)
	if err != nil {
		if gemini.IsRateLimited(err) {
			return fallback(original, ReasonRateLimited, err.Error())
		}
		return fallback(original, ReasonUpstream, err.Error())
	}

	blob, ok := resp.FirstImage()
	if !ok {
		return fallback(original, ReasonNoImage, noImageDetail(resp))
	}

	decoded, err := imaging.Decode(blob.Data)
	if err != nil {
		return fallback(original, ReasonInvalidImage, err.Error())
	}

	return &Result{Image: decoded.Image, Original: original}
}

func noImageDetail(resp *gemini.Response) string {
	switch {
	case resp == nil:
		return ""
	case resp.BlockReason != "":
		return "blocked: " + resp.BlockReason
	default:
		return strings.TrimSpace(resp.Text)
	}
}

// decodeUpload turns raw upload bytes into canonical RGB. Failures are
// request-level and surface as a server error carrying the decoder's text.
func decodeUpload(data []byte, field string) (*image.RGBA, error) {
	decoded, err := imaging.Decode(data)
	if err != nil {
		return nil, apperrors.NewDecodeError("failed to decode "+field, err)
	}
	return decoded.Image, nil
}

func garmentError(err error) error {
	switch {
	case errors.Is(err, repository.ErrInvalidProductURL):
		return apperrors.NewValidationError("invalid product URL", err)
	case errors.Is(err, repository.ErrNoProductImages):
		return apperrors.NewValidationError("no product images found on the page", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewTimeoutError("product fetch interrupted", err)
	default:
		return apperrors.NewValidationError("failed to extract product images", err)
	}
}
