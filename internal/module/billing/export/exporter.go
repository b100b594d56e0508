// Package export uploads settlement reports to object storage for the payout
// pipeline.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/capecontrol/server/internal/module/billing"
	"github.com/capecontrol/server/internal/shared/config"
	"go.uber.org/zap"
)

// Exporter writes settlement reports to an S3 bucket.
type Exporter struct {
	client *s3.Client
	bucket string
	logger *zap.Logger
}

// NewExporter creates a new settlement report exporter.
func NewExporter(cfg *config.ExportConfig, logger *zap.Logger) (*Exporter, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("export bucket not configured")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Exporter{
		client: client,
		bucket: cfg.Bucket,
		logger: logger,
	}, nil
}

// Export uploads the report as JSON and returns the object key.
func (e *Exporter) Export(ctx context.Context, report *billing.SettlementReport) (string, error) {
	key := ObjectKey(report)

	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal settlement report: %w", err)
	}

	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("upload settlement report: %w", err)
	}

	e.logger.Info("settlement report exported",
		zap.String("bucket", e.bucket),
		zap.String("key", key),
		zap.Int64("total_revenue_cents", report.TotalRevenueCents),
	)
	return key, nil
}

// ObjectKey returns the bucket key a report is stored under.
func ObjectKey(report *billing.SettlementReport) string {
	return fmt.Sprintf("settlements/%s/%s_%s.json",
		report.ModuleID,
		report.WindowStart.UTC().Format("20060102T150405Z"),
		report.WindowEnd.UTC().Format("20060102T150405Z"),
	)
}
