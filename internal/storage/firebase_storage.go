package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"trainingportal-backend/internal/logger"
)

// FirebaseStorageService stores documents in the project's Cloud Storage bucket.
type FirebaseStorageService struct {
	bucketName string
	bucket     *gcs.BucketHandle
}

// NewFirebaseStorageService connects to bucketName using the service account in
// credentialsFile, or application default credentials when it is empty.
func NewFirebaseStorageService(ctx context.Context, bucketName, credentialsFile string) (*FirebaseStorageService, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{StorageBucket: bucketName}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage client: %w", err)
	}
	bucket, err := client.DefaultBucket()
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket %s: %w", bucketName, err)
	}

	return &FirebaseStorageService{bucketName: bucketName, bucket: bucket}, nil
}

func (f *FirebaseStorageService) Upload(ctx context.Context, key string, contentType string, data []byte) (string, error) {
	logger.ExternalServiceCall("firebase-storage", "Upload", "key", key, "bytes", len(data))

	w := f.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		w.Close()
		logger.ExternalServiceResult("firebase-storage", "Upload", err, "key", key)
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	if err := w.Close(); err != nil {
		logger.ExternalServiceResult("firebase-storage", "Upload", err, "key", key)
		return "", fmt.Errorf("failed to finalize object: %w", err)
	}

	logger.ExternalServiceResult("firebase-storage", "Upload", nil, "key", key)
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", f.bucketName, url.PathEscape(key)), nil
}

func (f *FirebaseStorageService) FileExists(ctx context.Context, key string) (bool, int64, error) {
	attrs, err := f.bucket.Object(key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return false, 0, nil
		}
		return false, 0, err
	}
	return true, attrs.Size, nil
}

func (f *FirebaseStorageService) ReadFile(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := f.bucket.Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to open object: %w", err)
	}
	return r, nil
}

func (f *FirebaseStorageService) DeleteFile(ctx context.Context, key string) error {
	logger.ExternalServiceCall("firebase-storage", "DeleteFile", "key", key)
	err := f.bucket.Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		logger.ExternalServiceResult("firebase-storage", "DeleteFile", err, "key", key)
		return fmt.Errorf("failed to delete object: %w", err)
	}
	logger.ExternalServiceResult("firebase-storage", "DeleteFile", nil, "key", key)
	return nil
}
