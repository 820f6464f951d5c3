package container

import (
	"fmt"
	"net/http"

	"go-fitting-room/internal/config"
	"go-fitting-room/internal/factory"
	"go-fitting-room/internal/gemini"
	"go-fitting-room/internal/logger"
	"go-fitting-room/internal/observer"
	"go-fitting-room/internal/repository"
	"go-fitting-room/internal/service"
	"go-fitting-room/internal/storage"
	"go-fitting-room/internal/transport"
	"go-fitting-room/internal/watermark"
	"go-fitting-room/pkg/validation"

	"github.com/sirupsen/logrus"
)

// Container holds all application dependencies
type Container struct {
	config            *config.Config
	generator         service.Generator
	renderer          *watermark.Renderer
	garmentRepository repository.GarmentRepository
	metrics           *observer.MetricsObserver
	tryOnService      service.TryOnService
	handler           http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	// A missing API key only disables generation; the server still starts.
	var generator service.Generator
	if cfg.GeminiConfigured() {
		client, err := gemini.NewClient(gemini.Options{
			APIKey:  cfg.GeminiAPIKey,
			BaseURL: cfg.GeminiBaseURL,
			Model:   cfg.GeminiModel,
			Timeout: cfg.GeminiTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		generator = client
	} else {
		logger.Warn("GEMINI_API_KEY is not set; try-on requests will return the watermarked original")
	}

	components := factory.NewComponentFactory(cfg)
	web, err := components.StorageFactory.CreateStorage(factory.HTTPStorage)
	if err != nil {
		return nil, err
	}

	var blob storage.GarmentSource
	if cfg.AzureConfigured() {
		blob, err = components.StorageFactory.CreateStorage(factory.AzureStorage)
		if err != nil {
			return nil, fmt.Errorf("failed to create azure storage: %w", err)
		}
	}

	garmentRepository := repository.NewHTTPGarmentRepository(validation.NewURLValidator(), web, blob)

	metrics := observer.NewMetricsObserver()
	events := observer.NewEventPublisher()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)

	tryOnService := service.NewTryOnService(generator, garmentRepository, events, service.Options{
		Model:          cfg.GeminiModel,
		MaxInputWidth:  cfg.MaxInputWidth,
		MaxInputHeight: cfg.MaxInputHeight,
	})

	renderer := watermark.NewRenderer(cfg.WatermarkFontPath, cfg.WatermarkFontSize)
	handler := transport.NewHandler(tryOnService, renderer, metrics, cfg)

	logger.WithFields(logrus.Fields{
		"model":          cfg.GeminiModel,
		"gemini_ready":   generator != nil,
		"azure_enabled":  blob != nil,
		"watermark_font": renderer.Source(),
	}).Info("Container initialized")

	return &Container{
		config:            cfg,
		generator:         generator,
		renderer:          renderer,
		garmentRepository: garmentRepository,
		metrics:           metrics,
		tryOnService:      tryOnService,
		handler:           handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Service returns the try-on service
func (c *Container) Service() service.TryOnService {
	return c.tryOnService
}
