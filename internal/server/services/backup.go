package services

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	sc "github.com/sstoianov/liblend/internal/server/config"
)

// Seams so tests can run without pg_dump or an object store.
var (
	runBackupCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return exec.CommandContext(ctx, name, args...).Output()
	}

	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in)
	}
)

// BackupService produces database dumps by running the configured dump
// command and, when a bucket is configured, keeps a copy in S3.
type BackupService struct {
	config *sc.Config
}

func NewBackupService(config *sc.Config) *BackupService {
	return &BackupService{config: config}
}

// BackupStorageKey names an uploaded dump by date plus a random suffix.
func BackupStorageKey() string {
	d := timeNow()
	return fmt.Sprintf("backups/%d/%02d/%02d/%v.sql", d.Year(), d.Month(), d.Day(), uuid.New())
}

// Run executes the dump command against the configured database and
// returns its stdout. With a bucket configured the dump is uploaded
// before being returned; an upload failure fails the backup.
func (s *BackupService) Run(ctx context.Context) ([]byte, error) {
	dump, err := runBackupCommand(ctx, s.config.BackupCommand, "--dbname", s.config.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("running %s: %w", s.config.BackupCommand, err)
	}

	if s.config.S3Bucket != "" {
		if err := s.upload(ctx, dump); err != nil {
			return nil, fmt.Errorf("uploading backup: %w", err)
		}
	}
	return dump, nil
}

func (s *BackupService) upload(ctx context.Context, dump []byte) error {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	})

	bucket := s.config.S3Bucket
	key := BackupStorageKey()
	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
		Body:   bytes.NewReader(dump),
	})
	return err
}
