package service

import (
	"context"
	"errors"
	"io"

	"ecom-service/internal/media"
	"ecom-service/internal/util"

	"go.uber.org/zap"
)

// Upload is one file received from a client
type Upload struct {
	Filename string
	Reader   io.Reader
}

// saveUploads stores files in order. If one fails, files already written
// are removed again.
func saveUploads(ctx context.Context, storage media.Storage, uploads []Upload) ([]string, error) {
	urls := make([]string, 0, len(uploads))
	for _, u := range uploads {
		url, err := storage.Save(ctx, u.Filename, u.Reader)
		if err != nil {
			discardFiles(ctx, storage, urls)
			if errors.Is(err, media.ErrExtensionNotAllowed) {
				return nil, &Error{Kind: KindInvalid, Message: "file type not allowed: " + u.Filename, Err: err}
			}
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// discardFiles deletes stored files, logging failures
func discardFiles(ctx context.Context, storage media.Storage, urls []string) {
	for _, url := range urls {
		if err := storage.Delete(ctx, url); err != nil {
			util.GetLogger().Warn("Failed to delete media file", zap.String("url", url), zap.Error(err))
		}
	}
}
