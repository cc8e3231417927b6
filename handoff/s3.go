package handoff

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"trendscout/config"
	"trendscout/types"
)

// ObjectAPI is the subset of the S3 client used for uploads
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Presigner signs GET URLs for uploaded bundles
type Presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Bundle is the document package handed to the content generator
type Bundle struct {
	RunID         string                            `json:"run_id"`
	SessionID     string                            `json:"session_id,omitempty"`
	Query         string                            `json:"query"`
	Intent        *types.QueryIntent                `json:"intent,omitempty"`
	StageStatuses map[types.Stage]types.StageStatus `json:"stage_statuses"`
	Warnings      []string                          `json:"warnings"`
	Documents     []types.ScrapedDocument           `json:"documents"`
	CreatedAt     time.Time                         `json:"created_at"`
}

// S3Bundles uploads bundles as JSON objects and presigns them
type S3Bundles struct {
	client    ObjectAPI
	presigner Presigner
	bucket    string
	prefix    string
	lifetime  time.Duration
}

// NewS3Bundles creates an uploader using the default AWS configuration chain
func NewS3Bundles(ctx context.Context, cfg config.S3Config) (*S3Bundles, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewS3BundlesWithClient(client, s3.NewPresignClient(client), cfg), nil
}

// NewS3BundlesWithClient wires explicit clients
func NewS3BundlesWithClient(client ObjectAPI, presigner Presigner, cfg config.S3Config) *S3Bundles {
	lifetime := cfg.PresignLifetime
	if lifetime <= 0 {
		lifetime = config.PresignLifetime
	}
	return &S3Bundles{
		client:    client,
		presigner: presigner,
		bucket:    cfg.Bucket,
		prefix:    strings.Trim(cfg.Prefix, "/"),
		lifetime:  lifetime,
	}
}

// Key returns the object key for a run
func (s *S3Bundles) Key(sessionID, runID string) string {
	if sessionID == "" {
		sessionID = "adhoc"
	}
	return path.Join(s.prefix, sessionID, runID+".json")
}

// Upload stores the report's bundle and returns its key and a presigned GET URL
func (s *S3Bundles) Upload(ctx context.Context, report *types.RunReport, now time.Time) (string, string, error) {
	bundle := Bundle{
		RunID:         report.RunID,
		SessionID:     report.Query.SessionID,
		Query:         report.Query.Text,
		Intent:        report.Intent,
		StageStatuses: report.StageStatuses,
		Warnings:      report.Warnings,
		Documents:     report.FinalDocuments,
		CreatedAt:     now.UTC(),
	}
	body, err := json.Marshal(bundle)
	if err != nil {
		return "", "", fmt.Errorf("encode bundle: %w", err)
	}

	key := s.Key(report.Query.SessionID, report.RunID)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to upload bundle %s: %w", key, describeAPIError(err))
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.lifetime
	})
	if err != nil {
		return key, "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return key, req.URL, nil
}

// describeAPIError surfaces the S3 error code when there is one
func describeAPIError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s: %w", apiErr.ErrorCode(), apiErr.ErrorMessage(), err)
	}
	return err
}
