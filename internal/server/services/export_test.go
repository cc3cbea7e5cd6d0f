package services

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/metaltracker/internal/common"
	"github.com/dmitrijs2005/metaltracker/internal/logging"
	"github.com/dmitrijs2005/metaltracker/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubS3(t *testing.T) (uploaded *s3.PutObjectInput, body *[]byte) {
	t.Helper()

	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	origPut := putObject
	origPresign := presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
		putObject = origPut
		presignGetObject = origPresign
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "eu-central-1", lo.Region)
		assert.NotNil(t, lo.Credentials)
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		var opts s3.Options
		for _, fn := range optFns {
			fn(&opts)
		}
		require.NotNil(t, opts.BaseEndpoint)
		assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
		assert.True(t, opts.UsePathStyle)
		return &s3.Client{}
	}

	in := &s3.PutObjectInput{}
	var data []byte
	putObject = func(c *s3.Client, ctx context.Context, got *s3.PutObjectInput) error {
		*in = *got
		b, err := io.ReadAll(got.Body)
		require.NoError(t, err)
		data = b
		return nil
	}
	presignGetObject = func(c *s3.Client, ctx context.Context, got *s3.GetObjectInput, ttl time.Duration) (*v4.PresignedHTTPRequest, error) {
		assert.Equal(t, *in.Key, *got.Key)
		assert.Equal(t, 15*time.Minute, ttl)
		return &v4.PresignedHTTPRequest{URL: "https://s3.example/" + *got.Key, Method: http.MethodGet}, nil
	}
	return in, &data
}

func newExportService(f *fixture, bucket string) *ExportService {
	s := NewExportService(f.db, f.rm, S3Settings{
		AccessKey:    "minio",
		SecretKey:    "minio123",
		Bucket:       bucket,
		Region:       "eu-central-1",
		BaseEndpoint: "http://127.0.0.1:9000",
		URLTTL:       15 * time.Minute,
	}, logging.Nop())
	s.now = func() time.Time { return time.Date(2025, 6, 7, 10, 0, 0, 0, time.UTC) }
	return s
}

func TestExportService_Export(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, _ := f.register(t, "export@example.com")

	f.expectTx(1)
	_, err := f.positions.Create(ctx, &Identity{UserID: u.ID, Tier: models.TierFree}, goldBar())
	require.NoError(t, err)

	uploaded, body := stubS3(t)
	svc := newExportService(f, "exports-bucket")

	url, expiresAt, err := svc.Export(ctx, u.ID)
	require.NoError(t, err)

	assert.Equal(t, "exports-bucket", *uploaded.Bucket)
	assert.True(t, strings.HasPrefix(*uploaded.Key, "exports/"+strconv.FormatInt(u.ID, 10)+"/2025/06/07/"), *uploaded.Key)
	assert.True(t, strings.HasSuffix(*uploaded.Key, ".csv"))
	assert.Equal(t, "https://s3.example/"+*uploaded.Key, url)
	assert.Equal(t, time.Date(2025, 6, 7, 10, 15, 0, 0, time.UTC), expiresAt)

	rows, err := csv.NewReader(strings.NewReader(string(*body))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "gold", rows[1][1])
	assert.Equal(t, "62.207", rows[1][7])
	assert.Equal(t, "5000.00", rows[1][8])
	assert.Equal(t, "2024-05-10", rows[1][9])
}

func TestExportService_Unavailable(t *testing.T) {
	f := newFixture(t)
	svc := newExportService(f, "")
	assert.False(t, svc.Enabled())

	_, _, err := svc.Export(context.Background(), 1)
	assert.ErrorIs(t, err, common.ErrorUnavailable)
}

func TestExportService_UploadError(t *testing.T) {
	f := newFixture(t)
	stubS3(t)
	putObject = func(*s3.Client, context.Context, *s3.PutObjectInput) error {
		return errors.New("access denied")
	}

	_, _, err := newExportService(f, "b").Export(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestPositionsCSV_Escaping(t *testing.T) {
	desc := `Krugerrand, "1984"`
	out, err := PositionsCSV([]*models.Position{{
		ID: 3, MetalType: models.MetalGold, ProductType: "coin", Description: &desc,
		Quantity: 1, WeightPerUnit: 1, WeightUnit: models.UnitOunce, WeightGrams: 31.1035,
		PurchasePriceEUR: 1999.5, DiscountPercent: ptr(2.5),
		PurchaseDate: time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC),
	}})
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(string(out))).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "gold", "coin", desc, "1", "1", "oz", "31.1035", "1999.50", "2020-01-02", "2.5"}, rows[1])
}
