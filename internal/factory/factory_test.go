package factory

import (
	"encoding/base64"
	"testing"
	"time"

	"go-fitting-room/internal/config"
	"go-fitting-room/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateStorage(t *testing.T) {
	validKey := base64.StdEncoding.EncodeToString([]byte("not-a-real-azure-key"))

	tests := []struct {
		name        string
		cfg         config.Config
		storageType StorageType
		wantErr     bool
	}{
		{"http", config.Config{FetchTimeout: time.Second}, HTTPStorage, false},
		{"azure configured", config.Config{AzureStorageAccount: "acct", AzureStorageKey: validKey}, AzureStorage, false},
		{"azure missing key", config.Config{AzureStorageAccount: "acct"}, AzureStorage, true},
		{"unknown", config.Config{}, StorageType("local"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			src, err := NewComponentFactory(&cfg).StorageFactory.CreateStorage(tt.storageType)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Implements(t, (*storage.GarmentSource)(nil), src)
		})
	}
}
