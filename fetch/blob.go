package fetch

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/streaming"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// BlobSource downloads every blob of an Azure Storage container into the
// working directory. Credentials come from AZURE_STORAGE_ACCOUNT_NAME and
// AZURE_STORAGE_ACCOUNT_KEY.
type BlobSource struct {
	ContainerURL string
}

func (s *BlobSource) Fetch(ctx context.Context, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("creating work dir: %w", err)
	}

	containerClient, err := containerClient(s.ContainerURL)
	if err != nil {
		return err
	}

	pager := containerClient.ListBlobsFlat(nil)
	for pager.NextPage(ctx) {
		resp := pager.PageResponse()
		for _, blob := range resp.ContainerListBlobFlatSegmentResult.Segment.BlobItems {
			if blob.Name == nil {
				continue
			}
			if err := downloadBlob(ctx, containerClient, *blob.Name, destDir); err != nil {
				return err
			}
		}
	}
	if err := pager.Err(); err != nil {
		return fmt.Errorf("listing blobs in %s: %w", s.ContainerURL, err)
	}

	return nil
}

func downloadBlob(ctx context.Context, containerClient azblob.ContainerClient, name, destDir string) error {
	blobClient := containerClient.NewBlockBlobClient(name)

	get, err := blobClient.Download(ctx, &azblob.DownloadBlobOptions{})
	if err != nil {
		return fmt.Errorf("downloading blob %s: %w", name, err)
	}

	body := streaming.NewResponseProgress(get.Body(nil), func(bytesTransferred int64) {})
	defer body.Close()

	data := &bytes.Buffer{}
	if _, err := data.ReadFrom(body); err != nil {
		return fmt.Errorf("reading blob %s: %w", name, err)
	}

	target := filepath.Join(destDir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	return os.WriteFile(target, data.Bytes(), 0o644)
}

func containerClient(containerURL string) (azblob.ContainerClient, error) {
	accountName := os.Getenv("AZURE_STORAGE_ACCOUNT_NAME")
	accountKey := os.Getenv("AZURE_STORAGE_ACCOUNT_KEY")

	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return azblob.ContainerClient{}, fmt.Errorf("storage credential: %w", err)
	}

	client, err := azblob.NewContainerClientWithSharedKey(containerURL, credential, nil)
	if err != nil {
		return azblob.ContainerClient{}, fmt.Errorf("container client for %s: %w", containerURL, err)
	}
	return client, nil
}
