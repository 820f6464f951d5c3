package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

const azureBlobHostSuffix = ".blob.core.windows.net"

type azureStorage struct {
	client  *azblob.Client
	account string
	maxSize int64
}

// NewAzureStorage creates a GarmentSource that reads blobs from one storage account
func NewAzureStorage(accountName string, accountKey string) (GarmentSource, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, err
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s%s", accountName, azureBlobHostSuffix),
		credential,
		nil,
	)
	if err != nil {
		return nil, err
	}

	return &azureStorage{client: client, account: accountName, maxSize: DefaultMaxObjectSize}, nil
}

// AccountScoped is implemented by sources that can only read URLs of their own account
type AccountScoped interface {
	Serves(u *url.URL) bool
}

// Serves reports whether u is a blob in the configured storage account
func (s *azureStorage) Serves(u *url.URL) bool {
	if !IsAzureBlobURL(u) {
		return false
	}
	account := strings.TrimSuffix(strings.ToLower(u.Hostname()), azureBlobHostSuffix)
	return strings.EqualFold(account, s.account)
}

// IsAzureBlobURL reports whether u points at an Azure Blob Storage endpoint
func IsAzureBlobURL(u *url.URL) bool {
	if u == nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Hostname()), azureBlobHostSuffix)
}

// ParseBlobURL splits https://<account>.blob.core.windows.net/<container>/<blob>
func ParseBlobURL(blobURL string) (account, container, blob string, err error) {
	parsedURL, err := url.Parse(blobURL)
	if err != nil {
		return "", "", "", fmt.Errorf("invalid blob URL: %w", err)
	}
	if !IsAzureBlobURL(parsedURL) {
		return "", "", "", fmt.Errorf("not an azure blob URL: %s", parsedURL.Host)
	}

	account = strings.TrimSuffix(strings.ToLower(parsedURL.Hostname()), azureBlobHostSuffix)

	path := strings.TrimPrefix(parsedURL.Path, "/")
	container, blob, ok := strings.Cut(path, "/")
	if !ok || container == "" || blob == "" {
		return "", "", "", fmt.Errorf("blob URL must include container and blob name: %s", blobURL)
	}
	return account, container, blob, nil
}

func (s *azureStorage) Fetch(ctx context.Context, blobURL string) (*Object, error) {
	account, containerName, blobName, err := ParseBlobURL(blobURL)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(account, s.account) {
		return nil, fmt.Errorf("blob account %q does not match configured account", account)
	}

	downloadResponse, err := s.client.DownloadStream(ctx, containerName, blobName, nil)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}

	retryReader := downloadResponse.Body
	defer retryReader.Close()

	data, err := io.ReadAll(io.LimitReader(retryReader, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return nil, fmt.Errorf("object exceeds max size of %d bytes", s.maxSize)
	}

	obj := &Object{URL: blobURL, Data: data}
	if downloadResponse.ContentType != nil {
		obj.ContentType = *downloadResponse.ContentType
	}
	return obj, nil
}
