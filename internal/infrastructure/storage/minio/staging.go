// Package minio stages remote evidence objects onto local disk so the
// extraction workers, which only read file paths, can process them.
package minio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/turtacn/CyberTrace-Intelligence/internal/config"
	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/monitoring/prometheus"
	apperrors "github.com/turtacn/CyberTrace-Intelligence/pkg/errors"
)

// URIScheme prefixes object references that need staging.  Anything else
// is treated as a local path and passed through untouched.
const URIScheme = "minio://"

// ParseURI splits "minio://bucket/object/key" into its parts.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, URIScheme) {
		return "", "", apperrors.InvalidParam(fmt.Sprintf("not an object URI: %s", uri))
	}
	rest := strings.TrimPrefix(uri, URIScheme)
	bucket, object, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", apperrors.InvalidParam(fmt.Sprintf("malformed object URI: %s", uri))
	}
	return bucket, object, nil
}

// IsObjectURI reports whether path refers to object storage.
func IsObjectURI(path string) bool {
	return strings.HasPrefix(path, URIScheme)
}

// EvidenceStager downloads evidence objects into a local scratch directory.
type EvidenceStager struct {
	client  *minio.Client
	bucket  string
	logger  logging.Logger
	metrics *prometheus.AppMetrics
}

// NewEvidenceStager connects to object storage.
func NewEvidenceStager(cfg config.MinIOConfig, logger logging.Logger, metrics *prometheus.AppMetrics) (*EvidenceStager, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNopAppMetrics()
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeEvidenceStaging, "object storage client failed")
	}
	return &EvidenceStager{
		client:  client,
		bucket:  cfg.Bucket,
		logger:  logger.Named("stager"),
		metrics: metrics,
	}, nil
}

// Stage resolves an evidence reference to a local path.  Local paths pass
// through; object URIs are downloaded into dir, keeping the object's file
// extension so workers can sniff the format.
func (s *EvidenceStager) Stage(ctx context.Context, ref, dir string) (string, error) {
	if !IsObjectURI(ref) {
		return ref, nil
	}
	bucket, object, err := ParseURI(ref)
	if err != nil {
		return "", err
	}

	local := filepath.Join(dir, filepath.Base(object))
	if err := s.client.FGetObject(ctx, bucket, object, local, minio.GetObjectOptions{}); err != nil {
		s.metrics.EvidenceStaged.WithLabelValues("error").Inc()
		return "", apperrors.Wrap(err, apperrors.ErrCodeEvidenceStaging,
			fmt.Sprintf("staging %s failed", ref))
	}
	s.metrics.EvidenceStaged.WithLabelValues("ok").Inc()
	s.logger.Debug("staged evidence object",
		logging.String("bucket", bucket), logging.String("object", object), logging.String("local", local))
	return local, nil
}

// Upload stores a local file as an evidence object and returns its URI.
func (s *EvidenceStager) Upload(ctx context.Context, localPath, object string) (string, error) {
	if _, err := os.Stat(localPath); err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeInvalidParam, "evidence file unreadable")
	}
	if _, err := s.client.FPutObject(ctx, s.bucket, object, localPath, minio.PutObjectOptions{}); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeEvidenceStaging,
			fmt.Sprintf("upload of %s failed", localPath))
	}
	return URIScheme + s.bucket + "/" + object, nil
}
