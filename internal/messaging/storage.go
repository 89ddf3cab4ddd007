// internal/messaging/storage.go

package messaging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
)

// MediaStorage stores attachment bytes and hands back a retrievable URL.
// Message rows only ever carry the URL; the bytes never pass through the
// chat core again.
type MediaStorage interface {
	UploadMedia(ctx context.Context, file io.Reader, filename, contentType string) (string, error)
}

type s3Storage struct {
	client       *s3.S3
	bucketName   string
	cdnURL       string
	maxFileSize  int64
	allowedTypes []string
}

func NewS3Storage(awsSession *session.Session, bucketName, cdnURL string, maxFileSize int64) MediaStorage {
	return &s3Storage{
		client:      s3.New(awsSession),
		bucketName:  bucketName,
		cdnURL:      cdnURL,
		maxFileSize: maxFileSize,
		allowedTypes: []string{
			"image/jpeg", "image/png", "image/gif", "image/webp",
			"audio/mpeg", "audio/wav", "audio/ogg", "audio/mp4",
		},
	}
}

// UploadMedia uploads an attachment to S3 under a unique key
func (s *s3Storage) UploadMedia(ctx context.Context, file io.Reader, filename, contentType string) (string, error) {
	if !s.isAllowedType(contentType) {
		return "", fmt.Errorf("file type %s not allowed", contentType)
	}

	ext := filepath.Ext(filename)
	key := fmt.Sprintf("messages/%s/%s%s",
		time.Now().Format("2006/01/02"),
		uuid.New().String(),
		ext,
	)

	buf := new(bytes.Buffer)
	size, err := io.Copy(buf, io.LimitReader(file, s.maxFileSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read file: %v", err)
	}
	if size > s.maxFileSize {
		return "", fmt.Errorf("file exceeds maximum allowed size %d", s.maxFileSize)
	}

	_, err = s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucketName),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
		ACL:           aws.String("public-read"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %v", err)
	}

	return fmt.Sprintf("%s/%s", s.cdnURL, key), nil
}

func (s *s3Storage) isAllowedType(contentType string) bool {
	for _, allowed := range s.allowedTypes {
		if allowed == contentType {
			return true
		}
	}
	return false
}

// LocalStorage is a development stand-in that records uploads in memory
type LocalStorage struct {
	mu   sync.Mutex
	keys []string
}

func NewLocalStorage() *LocalStorage {
	return &LocalStorage{}
}

func (l *LocalStorage) UploadMedia(ctx context.Context, file io.Reader, filename, contentType string) (string, error) {
	if _, err := io.Copy(io.Discard, file); err != nil {
		return "", err
	}

	key := fmt.Sprintf("local/%s%s", uuid.New().String(), filepath.Ext(filename))

	l.mu.Lock()
	l.keys = append(l.keys, key)
	l.mu.Unlock()

	return key, nil
}
