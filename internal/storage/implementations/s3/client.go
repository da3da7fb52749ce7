package s3

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/sirupsen/logrus"

	"github.com/arx-deidentifier/gta-benchmark/internal/utils/encoding"
	"github.com/arx-deidentifier/gta-benchmark/pkg/errors"
	"github.com/arx-deidentifier/gta-benchmark/pkg/interfaces"
)

// S3Config holds configuration for reference tables kept in a bucket
type S3Config struct {
	Region          string        `json:"region" mapstructure:"region"`
	Bucket          string        `json:"bucket" mapstructure:"bucket"`
	AccessKeyID     string        `json:"access_key_id" mapstructure:"access_key_id"`
	SecretAccessKey string        `json:"secret_access_key" mapstructure:"secret_access_key"`
	SessionToken    string        `json:"session_token,omitempty" mapstructure:"session_token"`
	Endpoint        string        `json:"endpoint,omitempty" mapstructure:"endpoint"`
	ForcePathStyle  bool          `json:"force_path_style" mapstructure:"force_path_style"`
	DisableSSL      bool          `json:"disable_ssl" mapstructure:"disable_ssl"`
	Prefix          string        `json:"prefix" mapstructure:"prefix"`
	Timeout         time.Duration `json:"timeout" mapstructure:"timeout"`
	MaxRetries      int           `json:"max_retries" mapstructure:"max_retries"`
	PartSize        int64         `json:"part_size" mapstructure:"part_size"`
}

// ReferenceStore reads and publishes reference tables in S3
type ReferenceStore struct {
	config   *S3Config
	s3Client *s3.S3
	uploader *s3manager.Uploader
	logger   *logrus.Logger
	mu       sync.RWMutex
	closed   bool
}

var _ interfaces.ReferencePublisher = (*ReferenceStore)(nil)

// NewReferenceStore creates a new S3 reference store. Connect must be called
// before use.
func NewReferenceStore(config *S3Config, logger *logrus.Logger) (*ReferenceStore, error) {
	if config == nil {
		return nil, errors.NewConfigurationError(errors.CodeInvalidSource, "S3 config cannot be nil")
	}

	if config.Bucket == "" {
		return nil, errors.NewConfigurationError(errors.CodeInvalidSource, "S3 bucket is required")
	}

	if logger == nil {
		logger = logrus.New()
	}

	return &ReferenceStore{
		config: config,
		logger: logger,
	}, nil
}

// Connect creates the session and checks that the bucket is reachable
func (s *ReferenceStore) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.s3Client != nil {
		return nil // Already connected
	}

	awsConfig := &aws.Config{
		Region:     aws.String(s.config.Region),
		MaxRetries: aws.Int(s.config.MaxRetries),
	}

	if s.config.AccessKeyID != "" && s.config.SecretAccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(
			s.config.AccessKeyID,
			s.config.SecretAccessKey,
			s.config.SessionToken,
		)
	}

	// S3-compatible services
	if s.config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(s.config.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(s.config.ForcePathStyle)
	}

	if s.config.DisableSSL {
		awsConfig.DisableSSL = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return errors.WrapStorageError(err, errors.CodeConnectionFailed, "Failed to create AWS session")
	}

	client := s3.New(sess)
	uploader := s3manager.NewUploader(sess)
	if s.config.PartSize > 0 {
		uploader.PartSize = s.config.PartSize
	}

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	if _, err := client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.config.Bucket),
	}); err != nil {
		return errors.WrapStorageError(err, errors.CodeConnectionFailed,
			fmt.Sprintf("Failed to access bucket '%s'", s.config.Bucket))
	}

	s.s3Client = client
	s.uploader = uploader
	s.closed = false

	s.logger.WithFields(logrus.Fields{
		"region": s.config.Region,
		"bucket": s.config.Bucket,
	}).Info("Connected to S3")

	return nil
}

// Open streams a table from the bucket. Keys ending in .gz are decompressed.
func (s *ReferenceStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed || s.s3Client == nil {
		return nil, errors.NewStorageError(errors.CodeNotConnected, "S3 not connected")
	}

	key := s.generateKey(name)
	start := time.Now()

	out, err := s.s3Client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, errors.WrapStorageError(errors.ErrSourceNotFound, errors.CodeObjectNotFound,
				fmt.Sprintf("Table '%s' not found", name)).WithContext("key", key)
		}
		return nil, errors.WrapStorageError(err, errors.CodeReadFailed, "Failed to download from S3")
	}

	s.logger.WithFields(logrus.Fields{
		"key":      key,
		"size":     aws.Int64Value(out.ContentLength),
		"duration": time.Since(start),
	}).Debug("Opened reference table")

	rc, err := encoding.DecompressReader(name, out.Body)
	if err != nil {
		return nil, errors.WrapStorageError(err, errors.CodeReadFailed, "Failed to decompress data")
	}
	return rc, nil
}

// Put uploads a table under the prefix of the store
func (s *ReferenceStore) Put(ctx context.Context, name string, body io.Reader) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed || s.uploader == nil {
		return errors.NewStorageError(errors.CodeNotConnected, "S3 not connected")
	}

	key := s.generateKey(name)
	if _, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
		Body:   body,
	}); err != nil {
		return errors.WrapStorageError(err, errors.CodeConnectionFailed, "Failed to upload to S3")
	}

	s.logger.WithFields(logrus.Fields{
		"bucket": s.config.Bucket,
		"key":    key,
	}).Info("Published reference table")
	return nil
}

// Close releases the session
func (s *ReferenceStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.s3Client = nil
	s.uploader = nil
	s.closed = true

	s.logger.Info("S3 connection closed")
	return nil
}

func (s *ReferenceStore) generateKey(name string) string {
	prefix := s.config.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return path.Join(prefix, "population", name)
}

func isNotFound(err error) bool {
	if aerr, ok := err.(awserr.Error); ok {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, s3.ErrCodeNoSuchBucket, "NotFound":
			return true
		}
	}
	return false
}
