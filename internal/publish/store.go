// Package publish stores rendered maps in S3 and on the local filesystem.
package publish

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/wolfman30/clinic-occupancy-maps/internal/report"
	"github.com/wolfman30/clinic-occupancy-maps/internal/schedule"
	"github.com/wolfman30/clinic-occupancy-maps/pkg/logging"
)

var monthFolders = [...]string{
	"01_JANEIRO", "02_FEVEREIRO", "03_MARCO", "04_ABRIL", "05_MAIO", "06_JUNHO",
	"07_JULHO", "08_AGOSTO", "09_SETEMBRO", "10_OUTUBRO", "11_NOVEMBRO", "12_DEZEMBRO",
}

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store uploads rendered maps. If bucket is empty, all operations are no-ops.
type Store struct {
	bucket   string
	prefix   string
	s3Client S3API
	logger   *logging.Logger
}

func NewStore(s3Client S3API, bucket, prefix string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		s3Client: s3Client,
		logger:   logger,
	}
}

// Enabled returns true if uploads are configured.
func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

// Key returns <prefix>/<diario|semanal>/<YYYY>/<MM_MES>/<DD>/<file>.
func (s *Store) Key(kind report.Type, date schedule.Date, fileName string) string {
	parts := make([]string, 0, 6)
	if s.prefix != "" {
		parts = append(parts, s.prefix)
	}
	parts = append(parts,
		folderFor(kind),
		fmt.Sprintf("%04d", date.Year),
		monthFolders[date.Month-time.January],
		fmt.Sprintf("%02d", date.Day),
		fileName,
	)
	return strings.Join(parts, "/")
}

// Upload writes the file, replacing any previous object under the same key. It
// returns the object key, or "" when uploads are disabled.
func (s *Store) Upload(ctx context.Context, meta report.Metadata, file report.Rendered) (string, error) {
	if !s.Enabled() {
		return "", nil
	}
	key := s.Key(meta.Type, meta.From, file.FileName)
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(file.Body),
		ContentType: aws.String(file.ContentType),
	})
	if err != nil {
		return "", fmt.Errorf("publish: s3 put %s: %w", key, err)
	}
	s.logger.Info("map uploaded to S3", "unit_id", meta.UnitID, "s3_key", key, "bytes", len(file.Body))
	return key, nil
}

// SaveLocal writes the file under dir and returns its path.
func SaveLocal(dir string, file report.Rendered) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("publish: create %s: %w", dir, err)
	}
	path := filepath.Join(dir, file.FileName)
	if err := os.WriteFile(path, file.Body, 0o644); err != nil {
		return "", fmt.Errorf("publish: write %s: %w", path, err)
	}
	return path, nil
}

func folderFor(kind report.Type) string {
	if kind == report.TypeWeekly {
		return "semanal"
	}
	return "diario"
}
