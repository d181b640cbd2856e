package storage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Storage persists uploaded artifacts. SaveFile returns the reference stored on the row;
// DeleteFile accepts exactly that reference.
type Storage interface {
	SaveFile(fileHeader *multipart.FileHeader, folder string) (string, error)
	DeleteFile(ref string) error
}

var ErrForeignRef = errors.New("reference does not belong to this storage")

// PublicPrefix is the URL path the local upload directory is served under.
const PublicPrefix = "/uploads"

type LocalStorage struct {
	uploadDir string
}

type SpacesStorage struct {
	client s3iface.S3API
	bucket string
	cdnURL string
}

func NewLocalStorage(uploadDir string) *LocalStorage {
	return &LocalStorage{uploadDir: uploadDir}
}

func NewSpacesStorage(endpoint, region, bucket, cdnURL, accessKey, secretKey string) (*SpacesStorage, error) {
	config := &aws.Config{
		Credentials:      credentials.NewStaticCredentials(accessKey, secretKey, ""),
		Endpoint:         aws.String(endpoint),
		Region:           aws.String(region),
		S3ForcePathStyle: aws.Bool(false),
	}

	sess, err := session.NewSession(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return newSpacesStorage(s3.New(sess), bucket, cdnURL), nil
}

func newSpacesStorage(client s3iface.S3API, bucket, cdnURL string) *SpacesStorage {
	return &SpacesStorage{client: client, bucket: bucket, cdnURL: strings.TrimSuffix(cdnURL, "/")}
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// normalizeFilename creates a unique, normalized filename without spaces
func normalizeFilename(originalFilename string) string {
	ext := strings.ToLower(filepath.Ext(originalFilename))
	baseName := strings.TrimSuffix(filepath.Base(originalFilename), filepath.Ext(originalFilename))

	baseName = strings.ReplaceAll(baseName, " ", "_")
	baseName = unsafeChars.ReplaceAllString(baseName, "")
	if baseName == "" {
		baseName = "file"
	}

	timestamp := time.Now().Format("20060102_150405")
	suffix := uuid.NewString()[:8]

	return fmt.Sprintf("%s_%s_%s%s", baseName, timestamp, suffix, ext)
}

func cleanFolder(folder string) string {
	return strings.Trim(unsafeChars.ReplaceAllString(folder, ""), "/")
}

func (ls *LocalStorage) SaveFile(fileHeader *multipart.FileHeader, folder string) (string, error) {
	normalizedFilename := normalizeFilename(fileHeader.Filename)
	folder = cleanFolder(folder)
	log.Debug().Str("original", fileHeader.Filename).Str("normalized", normalizedFilename).Msg("File upload normalized")

	dir := filepath.Join(ls.uploadDir, folder)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(dir, normalizedFilename))
	if err != nil {
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return path.Join(PublicPrefix, folder, normalizedFilename), nil
}

func (ls *LocalStorage) DeleteFile(ref string) error {
	rel := strings.TrimPrefix(ref, PublicPrefix+"/")
	if rel == ref || strings.Contains(rel, "..") {
		return fmt.Errorf("%w: %q", ErrForeignRef, ref)
	}
	if err := os.Remove(filepath.Join(ls.uploadDir, filepath.FromSlash(rel))); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (ss *SpacesStorage) SaveFile(fileHeader *multipart.FileHeader, folder string) (string, error) {
	normalizedFilename := normalizeFilename(fileHeader.Filename)
	log.Debug().Str("original", fileHeader.Filename).Str("normalized", normalizedFilename).Msg("File upload normalized")

	src, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	key := path.Join("uploads", cleanFolder(folder), normalizedFilename)

	contentType, err := detectContentType(src, normalizedFilename)
	if err != nil {
		return "", err
	}

	_, err = ss.client.PutObject(&s3.PutObjectInput{
		Bucket:      aws.String(ss.bucket),
		Key:         aws.String(key),
		Body:        src,
		ContentType: aws.String(contentType),
		ACL:         aws.String("public-read"),
	})
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to upload file to Spaces")
		return "", fmt.Errorf("failed to upload to Spaces: %w", err)
	}

	return ss.cdnURL + "/" + key, nil
}

func (ss *SpacesStorage) DeleteFile(ref string) error {
	key := strings.TrimPrefix(ref, ss.cdnURL+"/")
	if key == ref {
		return fmt.Errorf("%w: %q", ErrForeignRef, ref)
	}
	_, err := ss.client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(ss.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from Spaces: %w", err)
	}
	return nil
}

// detectContentType sniffs the upload and rewinds it; the extension decides when sniffing is inconclusive.
func detectContentType(src multipart.File, filename string) (string, error) {
	mt, err := mimetype.DetectReader(src)
	if _, seekErr := src.Seek(0, io.SeekStart); seekErr != nil {
		return "", fmt.Errorf("failed to rewind upload: %w", seekErr)
	}
	if err != nil || mt.Is("application/octet-stream") || mt.Is("text/plain") {
		return getContentType(filename), nil
	}
	return mt.String(), nil
}

func getContentType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".avi":
		return "video/x-msvideo"
	case ".mov":
		return "video/quicktime"
	default:
		return "application/octet-stream"
	}
}
