package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/recallhq/recall/internal/netx"
)

// InlineBlobLimit is the largest artifact payload kept inline in the record
// body. Anything bigger is offloaded to object storage in cloud mode.
const InlineBlobLimit = 64 * 1024

const presignExpiry = 15 * time.Minute

// BlobConfig holds object-storage settings for artifact offload.
type BlobConfig struct {
	Region    string
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
}

// BlobStore moves large, already-sealed artifact payloads to and from the
// managed object store through presigned URLs. Only ciphertext ever leaves
// the process.
type BlobStore struct {
	cfg BlobConfig
}

// NewBlobStore returns a BlobStore for the given object-storage settings.
func NewBlobStore(cfg BlobConfig) *BlobStore {
	return &BlobStore{cfg: cfg}
}

func (b *BlobStore) presignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(b.cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			b.cfg.AccessKey,
			b.cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if b.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(b.cfg.Endpoint)
		}
	})

	return s3.NewPresignClient(client), nil
}

// NewStorageKey returns a fresh object key partitioned by owner and date.
func NewStorageKey(ownerID string) string {
	d := time.Now().UTC()
	return fmt.Sprintf("owners/%s/%d/%02d/%02d/%v", ownerID, d.Year(), d.Month(), d.Day(), uuid.New())
}

// Put uploads a sealed blob under key.
func (b *BlobStore) Put(ctx context.Context, key string, payload []byte) error {
	presign, err := b.presignClient(ctx)
	if err != nil {
		return fmt.Errorf("presign client: %w", err)
	}

	req, err := presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: &b.cfg.Bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return fmt.Errorf("presign put: %w", err)
	}

	if err := netx.UploadToPresignedURL(ctx, req.URL, payload); err != nil {
		return fmt.Errorf("blob upload: %w", err)
	}
	return nil
}

// Get downloads the sealed blob stored under key.
func (b *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	presign, err := b.presignClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("presign client: %w", err)
	}

	req, err := presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &b.cfg.Bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return nil, fmt.Errorf("presign get: %w", err)
	}

	payload, err := netx.DownloadFromPresignedURL(ctx, req.URL)
	if err != nil {
		return nil, fmt.Errorf("blob download: %w", err)
	}
	return payload, nil
}
