// Package s3 provides an invoice source backed by an S3 bucket. Processed
// objects get a sidecar marker object so they are not ingested again.
package s3

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"payflow/internal/config"
	"payflow/internal/domain"
)

const processedSuffix = ".processed"

// Source lists and fetches invoice documents from a bucket prefix.
type Source struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewSource(cfg *config.S3Config) (*Source, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &Source{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// ListPending returns keys under the configured prefix that have no
// processed marker.
func (s *Source) ListPending(ctx context.Context) ([]string, error) {
	keys := make(map[string]bool)
	markers := make(map[string]bool)

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing s3://%s/%s: %w", s.bucket, s.prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, processedSuffix) {
				markers[strings.TrimSuffix(key, processedSuffix)] = true
			} else if strings.HasSuffix(key, ".json") {
				keys[key] = true
			}
		}
	}

	var pending []string
	for key := range keys {
		if !markers[key] {
			pending = append(pending, key)
		}
	}
	return pending, nil
}

// Fetch downloads and decodes an invoice object.
func (s *Source) Fetch(ctx context.Context, ref string) (*domain.Invoice, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref),
	})
	if err != nil {
		return nil, fmt.Errorf("fetching s3://%s/%s: %w", s.bucket, ref, err)
	}
	defer result.Body.Close()

	raw, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("reading s3://%s/%s: %w", s.bucket, ref, err)
	}

	var inv domain.Invoice
	if err := json.Unmarshal(raw, &inv); err != nil {
		return nil, fmt.Errorf("decoding s3://%s/%s: %w", s.bucket, ref, err)
	}
	inv.FilePath = ref
	inv.Status = domain.StatusNew
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	return &inv, nil
}

// MarkProcessed writes a marker object next to the invoice object.
func (s *Source) MarkProcessed(ctx context.Context, ref string) error {
	stamp := time.Now().UTC().Format(time.RFC3339)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(ref + processedSuffix),
		Body:        strings.NewReader(stamp + "\n"),
		ContentType: aws.String("text/plain"),
	})
	if err != nil {
		return fmt.Errorf("marking s3://%s/%s processed: %w", s.bucket, ref, err)
	}
	log.Printf("s3.Source.MarkProcessed: s3://%s/%s", s.bucket, ref)
	return nil
}
