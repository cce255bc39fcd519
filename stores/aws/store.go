package aws

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/jackwatters45/gate-cs-ws/core"
)

// ObjectAPI is the subset of the S3 client the store needs.
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type s3Store struct {
	client ObjectAPI
	bucket string
	prefix string
}

// NewStore creates an S3-backed store using the default AWS credential chain.
func NewStore(ctx context.Context, bucketName, prefix string) (*s3Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return NewWithClient(s3.NewFromConfig(cfg), bucketName, prefix), nil
}

func NewWithClient(client ObjectAPI, bucketName, prefix string) *s3Store {
	return &s3Store{client: client, bucket: bucketName, prefix: prefix}
}

// objectKey encodes the room key so that no two keys share an object, even
// ones path.Join would otherwise collapse such as "a/../b" and "b".
func (s *s3Store) objectKey(key string) string {
	return path.Join(s.prefix, base64.RawURLEncoding.EncodeToString([]byte(key))+".json")
}

func (s *s3Store) Get(ctx context.Context, key string) (*core.Document, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("room %s: %w", key, core.ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("failed to get document %s: %w", key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read document data: %w", err)
	}

	var doc core.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document %s: %w", key, err)
	}
	return &doc, nil
}

func (s *s3Store) Set(ctx context.Context, key string, document *core.Document) error {
	data, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to save document %s: %w", key, err)
	}
	return nil
}
