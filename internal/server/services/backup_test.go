package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	sc "github.com/sstoianov/liblend/internal/server/config"
)

func TestBackupRun_ReturnsDump(t *testing.T) {
	orig := runBackupCommand
	var gotName string
	var gotArgs []string
	runBackupCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotName = name
		gotArgs = args
		return []byte("-- dump"), nil
	}
	defer func() { runBackupCommand = orig }()

	cfg := &sc.Config{BackupCommand: "pg_dump", DatabaseDSN: "postgres://x"}
	s := NewBackupService(cfg)

	dump, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if string(dump) != "-- dump" {
		t.Fatalf("unexpected dump: %q", dump)
	}
	if gotName != "pg_dump" {
		t.Fatalf("command = %q", gotName)
	}
	if len(gotArgs) != 2 || gotArgs[0] != "--dbname" || gotArgs[1] != "postgres://x" {
		t.Fatalf("args = %v", gotArgs)
	}
}

func TestBackupRun_CommandFails(t *testing.T) {
	orig := runBackupCommand
	runBackupCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, errors.New("exit status 1")
	}
	defer func() { runBackupCommand = orig }()

	s := NewBackupService(&sc.Config{BackupCommand: "pg_dump"})
	if _, err := s.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestBackupRun_UploadsWhenBucketConfigured(t *testing.T) {
	origRun := runBackupCommand
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	origPut := putObject
	defer func() {
		runBackupCommand = origRun
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
		putObject = origPut
	}()

	runBackupCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("-- dump"), nil
	}
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return &s3.Client{}
	}

	var gotBucket, gotKey, gotBody string
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		gotBucket = aws.ToString(in.Bucket)
		gotKey = aws.ToString(in.Key)
		body, err := io.ReadAll(in.Body)
		if err != nil {
			t.Fatalf("reading body: %v", err)
		}
		gotBody = string(body)
		return &s3.PutObjectOutput{}, nil
	}

	cfg := &sc.Config{BackupCommand: "pg_dump", S3Bucket: "backups", S3Region: "us-east-1"}
	s := NewBackupService(cfg)

	dump, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if string(dump) != "-- dump" || gotBody != "-- dump" {
		t.Fatalf("dump mismatch: ret=%q uploaded=%q", dump, gotBody)
	}
	if gotBucket != "backups" {
		t.Fatalf("bucket = %q", gotBucket)
	}
	if !strings.HasPrefix(gotKey, "backups/") || !strings.HasSuffix(gotKey, ".sql") {
		t.Fatalf("key = %q", gotKey)
	}
}

func TestBackupRun_UploadFailureFailsBackup(t *testing.T) {
	origRun := runBackupCommand
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	origPut := putObject
	defer func() {
		runBackupCommand = origRun
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
		putObject = origPut
	}()

	runBackupCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("-- dump"), nil
	}
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return &s3.Client{}
	}
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		return nil, errors.New("no such bucket")
	}

	s := NewBackupService(&sc.Config{BackupCommand: "pg_dump", S3Bucket: "backups"})
	if _, err := s.Run(context.Background()); err == nil {
		t.Fatal("expected upload failure to fail the backup")
	}
}
