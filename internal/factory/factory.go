package factory

import (
	"fmt"
	"time"

	"go-fitting-room/internal/config"
	"go-fitting-room/internal/storage"
)

// StorageType represents different types of garment sources
type StorageType string

const (
	// HTTPStorage for fetching product pages and images over HTTP(S)
	HTTPStorage StorageType = "http"
	// AzureStorage for Azure blob storage
	AzureStorage StorageType = "azure"
)

// StorageFactory creates garment source implementations
type StorageFactory interface {
	CreateStorage(storageType StorageType) (storage.GarmentSource, error)
}

// storageFactory implements StorageFactory
type storageFactory struct {
	fetchTimeout time.Duration
	azureAccount string
	azureKey     string
}

// NewStorageFactory creates a new storage factory from configuration
func NewStorageFactory(cfg *config.Config) StorageFactory {
	return &storageFactory{
		fetchTimeout: cfg.FetchTimeout,
		azureAccount: cfg.AzureStorageAccount,
		azureKey:     cfg.AzureStorageKey,
	}
}

// CreateStorage creates a garment source based on the specified type
func (f *storageFactory) CreateStorage(storageType StorageType) (storage.GarmentSource, error) {
	switch storageType {
	case HTTPStorage:
		return storage.NewHTTPFetcher(f.fetchTimeout), nil
	case AzureStorage:
		if f.azureAccount == "" || f.azureKey == "" {
			return nil, fmt.Errorf("azure storage requires account name and key")
		}
		return storage.NewAzureStorage(f.azureAccount, f.azureKey)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	StorageFactory StorageFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	return &ComponentFactory{
		StorageFactory: NewStorageFactory(cfg),
	}
}
