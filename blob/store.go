// Package blob wraps the S3 API with the object CRUD operations the
// warehouse connectors need: uploading and downloading lists of staged
// files, deleting them afterwards, and building the path strings that COPY
// and UNLOAD statements reference.
package blob

import (
	"context"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	log "github.com/sirupsen/logrus"
)

// Config holds the settings for building a Store. All fields are optional:
// with none set, credentials and region resolve through the standard AWS
// environment and shared config chain.
type Config struct {
	// Profile selects a named profile from the shared AWS config.
	Profile string
	// Region of the buckets being addressed.
	Region string
	// Endpoint overrides the S3 endpoint, for S3-compatible stores.
	Endpoint string

	// Static credentials, used instead of the default chain when set.
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSSessionToken    string

	// KMSKeyARN switches server-side encryption from AES256 to aws:kms with
	// this key.
	KMSKeyARN string
}

// Store is an S3 client wrapper. It is stateless per call and safe to reuse
// serially; it makes no concurrency claims.
type Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	creds    aws.CredentialsProvider
	kmsKey   string
}

// NewStore builds a Store from cfg. It fails with a CredentialsError if no
// AWS credentials can be resolved, and a StoreError for any other
// initialization problem.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	opts := []func(*awsConfig.LoadOptions) error{}
	if cfg.Profile != "" {
		opts = append(opts, awsConfig.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.Region != "" {
		opts = append(opts, awsConfig.WithRegion(cfg.Region))
	}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, cfg.AWSSessionToken),
		))
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, &StoreError{Msg: "error initializing AWS session", Err: err}
	}

	if _, err := awsCfg.Credentials.Retrieve(ctx); err != nil {
		return nil, &CredentialsError{Err: err}
	}

	clientOpts := []func(*s3.Options){}
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, clientOpts...)
	log.Info("initialized S3 client")

	return &Store{
		client:   client,
		uploader: manager.NewUploader(client),
		creds:    awsCfg.Credentials,
		kmsKey:   cfg.KMSKeyARN,
	}, nil
}

// CredentialsString renders the resolved AWS credentials in the form the
// Redshift COPY and UNLOAD commands expect under CREDENTIALS:
// aws_access_key_id=...;aws_secret_access_key=...[;token=...].
func (s *Store) CredentialsString(ctx context.Context) (string, error) {
	creds, err := s.creds.Retrieve(ctx)
	if err != nil {
		return "", &CredentialsError{Err: err}
	}
	out := "aws_access_key_id=" + creds.AccessKeyID + ";aws_secret_access_key=" + creds.SecretAccessKey
	if creds.SessionToken != "" {
		out += ";token=" + creds.SessionToken
	}
	return out, nil
}

// Upload copies a local file to bucket under key. Server-side encryption is
// always forced: AES256 by default, or aws:kms when a KMS key was
// configured.
func (s *Store) Upload(ctx context.Context, local, bucket, key string) error {
	f, err := os.Open(local)
	if err != nil {
		return &UploadError{Err: err}
	}
	defer f.Close()

	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if s.kmsKey == "" {
		input.ServerSideEncryption = types.ServerSideEncryptionAes256
	} else {
		input.ServerSideEncryption = types.ServerSideEncryptionAwsKms
		input.SSEKMSKeyId = aws.String(s.kmsKey)
	}

	log.WithField("path", Path(bucket, key)).Info("uploading file to S3")
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		log.WithFields(log.Fields{
			"path":   Path(bucket, key),
			"status": httpStatus(err),
		}).WithError(err).Error("error uploading to S3")
		return &UploadError{Err: err}
	}
	return nil
}

// UploadList uploads each file serially to bucket, deriving keys from the
// file basenames with an optional folder prefix, and returns the resulting
// bucket/key identifiers (without the s3:// scheme) in input order. The
// returned identifiers are the handles later passed to DeleteList.
func (s *Store) UploadList(ctx context.Context, paths []string, bucket, folder string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		key := Key(folder, p)
		if err := s.Upload(ctx, p, bucket, key); err != nil {
			return nil, err
		}
		out = append(out, bucket+"/"+key)
	}
	return out, nil
}

// Download copies an object to the named local file.
func (s *Store) Download(ctx context.Context, bucket, key, local string) error {
	f, err := os.Create(local)
	if err != nil {
		return &DownloadError{Err: err}
	}

	log.WithField("path", Path(bucket, key)).Info("downloading file from S3")
	downloader := manager.NewDownloader(s.client)
	if _, err := downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		f.Close()
		log.WithFields(log.Fields{
			"path":   Path(bucket, key),
			"status": httpStatus(err),
		}).WithError(err).Error("error downloading from S3")
		return &DownloadError{Err: err}
	}

	if err := f.Close(); err != nil {
		return &DownloadError{Err: err}
	}
	return nil
}

// DownloadList downloads each identified object serially into localDir
// (default: the current working directory), naming each local file after the
// key's basename, and returns the local paths in input order. Identifiers
// are bucket/key strings, with or without the s3:// scheme. Keys with equal
// basenames under different prefixes collide; avoiding that is the caller's
// responsibility.
func (s *Store) DownloadList(ctx context.Context, ids []string, localDir string) ([]string, error) {
	if localDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, &DownloadError{Err: err}
		}
		localDir = wd
	}

	out := make([]string, 0, len(ids))
	for _, id := range ids {
		bucket, key := ParsePath(id)
		local := filepath.Join(localDir, baseName(key))
		if err := s.Download(ctx, bucket, key, local); err != nil {
			return nil, err
		}
		out = append(out, local)
	}
	return out, nil
}

// Delete removes a single object.
func (s *Store) Delete(ctx context.Context, bucket, key string) error {
	log.WithField("path", Path(bucket, key)).Info("deleting file from S3")
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		log.WithFields(log.Fields{
			"path":   Path(bucket, key),
			"status": httpStatus(err),
		}).WithError(err).Error("error deleting from S3")
		return &DeletionError{Err: err}
	}
	return nil
}

// DeleteList removes each identified object serially. Identifiers are
// bucket/key strings as returned by UploadList or reported by an unload
// manifest.
func (s *Store) DeleteList(ctx context.Context, ids []string) error {
	for _, id := range ids {
		bucket, key := ParsePath(id)
		if err := s.Delete(ctx, bucket, key); err != nil {
			return err
		}
	}
	return nil
}
