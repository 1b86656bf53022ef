package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
)

const storageCallTimeout = 10 * time.Second

// UploadTicket is a time-boxed signed-URL grant for one upload.
type UploadTicket struct {
	UploadURL        string
	ObjectKey        string
	Bucket           string
	ExpiresInSeconds int
}

// GCSStorage issues signed upload URLs and checks object existence on a
// single backing bucket.
type GCSStorage struct {
	client *storage.Client
	bucket string
	folder string
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

type GCSOption func(*GCSStorage)

func WithUploadTTL(ttl time.Duration) GCSOption {
	return func(g *GCSStorage) { g.ttl = ttl }
}

func WithFolder(folder string) GCSOption {
	return func(g *GCSStorage) { g.folder = folder }
}

func WithClock(now func() time.Time) GCSOption {
	return func(g *GCSStorage) { g.now = now }
}

// NewGCSStorage creates the storage gateway. The bucket name is required;
// a missing one is a configuration error surfaced on first use rather than
// a panic, matching how deployments detect it.
func NewGCSStorage(ctx context.Context, bucket string, logger *zap.Logger, opts ...GCSOption) (*GCSStorage, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	g := &GCSStorage{
		client: client,
		bucket: bucket,
		folder: "audio",
		ttl:    15 * time.Minute,
		logger: logger.Named("gcs"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// IssueUploadURL validates the file against the audio allow-list and returns
// a write-capable v4 signed URL under a namespaced key.
func (g *GCSStorage) IssueUploadURL(ctx context.Context, fileName, mimeType string, sizeBytes int64) (UploadTicket, error) {
	if g.bucket == "" {
		return UploadTicket{}, ErrBucketUnconfigured
	}
	if err := AudioFiles.ValidateFile(fileName, mimeType, sizeBytes); err != nil {
		return UploadTicket{}, err
	}

	objectKey := fmt.Sprintf("%s/%d-%s", g.folder, g.now().UnixMilli(), fileName)

	url, err := g.client.Bucket(g.bucket).SignedURL(objectKey, &storage.SignedURLOptions{
		Scheme:      storage.SigningSchemeV4,
		Method:      "PUT",
		Expires:     g.now().Add(g.ttl),
		ContentType: mimeType,
	})
	if err != nil {
		return UploadTicket{}, fmt.Errorf("sign upload url for %s: %w", objectKey, err)
	}

	g.logger.Info("issued upload url",
		zap.String("object_key", objectKey),
		zap.Duration("ttl", g.ttl))

	return UploadTicket{
		UploadURL:        url,
		ObjectKey:        objectKey,
		Bucket:           g.bucket,
		ExpiresInSeconds: int(g.ttl.Seconds()),
	}, nil
}

// ObjectExists reports whether the object is present in the bucket.
func (g *GCSStorage) ObjectExists(ctx context.Context, objectKey string) (bool, error) {
	if g.bucket == "" {
		return false, ErrBucketUnconfigured
	}

	ctx, cancel := context.WithTimeout(ctx, storageCallTimeout)
	defer cancel()

	_, err := g.client.Bucket(g.bucket).Object(objectKey).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat object %s: %w", objectKey, err)
	}
	return true, nil
}

// Bucket returns the configured bucket name.
func (g *GCSStorage) Bucket() string {
	return g.bucket
}

// Close releases the underlying client.
func (g *GCSStorage) Close() error {
	return g.client.Close()
}
