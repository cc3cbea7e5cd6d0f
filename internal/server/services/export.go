package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/metaltracker/internal/common"
	"github.com/dmitrijs2005/metaltracker/internal/logging"
	"github.com/dmitrijs2005/metaltracker/internal/server/models"
	"github.com/dmitrijs2005/metaltracker/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) error {
		_, err := c.PutObject(ctx, in)
		return err
	}
	presignGetObject = func(c *s3.Client, ctx context.Context, in *s3.GetObjectInput, ttl time.Duration) (*v4.PresignedHTTPRequest, error) {
		return s3.NewPresignClient(c).PresignGetObject(ctx, in, s3.WithPresignExpires(ttl))
	}
)

// S3Settings locates the export bucket.
type S3Settings struct {
	AccessKey    string
	SecretKey    string
	Bucket       string
	Region       string
	BaseEndpoint string
	URLTTL       time.Duration
}

// ExportService renders a user's positions as CSV and hands out a
// short-lived download link.
type ExportService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	s3          S3Settings
	logger      logging.Logger
	now         func() time.Time
}

func NewExportService(db *sql.DB, m repomanager.RepositoryManager, s S3Settings, logger logging.Logger) *ExportService {
	return &ExportService{
		db:          db,
		repomanager: m,
		s3:          s,
		logger:      logger.With("module", "export"),
		now:         time.Now,
	}
}

// Enabled reports whether a bucket is configured.
func (s *ExportService) Enabled() bool {
	return s.s3.Bucket != ""
}

// ExportKey is the object key of an export made at t.
func ExportKey(userID int64, t time.Time) string {
	return fmt.Sprintf("exports/%d/%s/%s.csv", userID, t.UTC().Format("2006/01/02"), uuid.NewString())
}

// Export uploads the user's positions and returns a presigned GET URL with
// its expiry. Without a bucket it returns common.ErrorUnavailable.
func (s *ExportService) Export(ctx context.Context, userID int64) (string, time.Time, error) {
	if !s.Enabled() {
		return "", time.Time{}, common.ErrorUnavailable
	}

	list, err := s.repomanager.Positions(s.db).List(ctx, userID, nil)
	if err != nil {
		return "", time.Time{}, err
	}

	body, err := PositionsCSV(list)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("error rendering csv: %w", err)
	}

	client, err := s.client(ctx)
	if err != nil {
		return "", time.Time{}, err
	}

	now := s.now()
	key := ExportKey(userID, now)

	err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.s3.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("error uploading export: %w", err)
	}

	req, err := presignGetObject(client, ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.s3.Bucket),
		Key:    aws.String(key),
	}, s.s3.URLTTL)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("error presigning export: %w", err)
	}

	s.logger.Info(ctx, "export created", "user_id", userID, "key", key, "positions", len(list))
	return req.URL, now.Add(s.s3.URLTTL), nil
}

func (s *ExportService) client(ctx context.Context) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(s.s3.Region)}
	if s.s3.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.s3.AccessKey, s.s3.SecretKey, ""),
		))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error loading aws config: %w", err)
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.s3.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.s3.BaseEndpoint)
			o.UsePathStyle = true
		}
	}), nil
}

var csvHeader = []string{
	"id", "metal_type", "product_type", "description", "quantity", "weight_per_unit", "weight_unit",
	"weight_grams", "purchase_price_eur", "purchase_date", "discount_percent",
}

// PositionsCSV renders positions with a header row.
func PositionsCSV(list []*models.Position) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, p := range list {
		description, discount := "", ""
		if p.Description != nil {
			description = *p.Description
		}
		if p.DiscountPercent != nil {
			discount = formatFloat(*p.DiscountPercent)
		}
		err := w.Write([]string{
			strconv.FormatInt(p.ID, 10),
			string(p.MetalType),
			p.ProductType,
			description,
			formatFloat(p.Quantity),
			formatFloat(p.WeightPerUnit),
			string(p.WeightUnit),
			formatFloat(p.WeightGrams),
			strconv.FormatFloat(p.PurchasePriceEUR, 'f', 2, 64),
			p.PurchaseDate.Format(time.DateOnly),
			discount,
		})
		if err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
