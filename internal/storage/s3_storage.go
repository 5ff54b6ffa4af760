package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/h2non/filetype"

	appconfig "github.com/ignatzorin/escrow-backend/internal/config"
)

// ErrUnsupportedFileType возвращается для файлов недопустимого типа.
var ErrUnsupportedFileType = errors.New("недопустимый тип файла")

// ErrFileTooLarge возвращается при превышении лимита на размер файла.
var ErrFileTooLarge = errors.New("размер файла превышает лимит")

// Разрешённые расширения загружаемых файлов.
var allowedExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".webp": {},
	".pdf": {}, ".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {},
	".txt": {}, ".zip": {},
}

// S3Storage выдаёт presigned ссылки на загрузку файлов в объектное
// хранилище. Сами байты идут от клиента напрямую в S3, минуя бекенд.
// Документы KYC — исключение: они проходят через бекенд, где содержимое
// проверяется по магическим байтам.
type S3Storage struct {
	client         *s3.Client
	presigner      *s3.PresignClient
	bucket         string
	region         string
	expiry         time.Duration
	maxUploadBytes int64
}

// NewS3Storage создаёт клиент объектного хранилища.
func NewS3Storage(ctx context.Context, cfg *appconfig.Config) (*S3Storage, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: не удалось загрузить конфигурацию AWS: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)

	return &S3Storage{
		client:         client,
		presigner:      s3.NewPresignClient(client),
		bucket:         cfg.S3Bucket,
		region:         cfg.S3Region,
		expiry:         15 * time.Minute,
		maxUploadBytes: cfg.MaxUploadMB * 1024 * 1024,
	}, nil
}

// PresignUpload возвращает presigned URL для загрузки файла и публичный URL,
// по которому файл будет доступен после загрузки.
func (s *S3Storage) PresignUpload(ctx context.Context, folder, fileName, contentType string) (uploadURL, publicURL string, err error) {
	safeName := sanitizeFilename(fileName)
	if _, ok := allowedExtensions[strings.ToLower(filepath.Ext(safeName))]; !ok {
		return "", "", fmt.Errorf("storage: %w %q", ErrUnsupportedFileType, filepath.Ext(safeName))
	}

	key := fmt.Sprintf("%s/%d-%s", folder, time.Now().UnixNano(), safeName)

	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", "", fmt.Errorf("storage: presign %w", err)
	}

	publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
	return req.URL, publicURL, nil
}

// Upload загружает файл через бекенд, предварительно проверив содержимое
// по магическим байтам. Возвращает публичный URL файла.
func (s *S3Storage) Upload(ctx context.Context, folder, fileName string, r io.Reader) (string, error) {
	safeName := sanitizeFilename(fileName)

	limited := io.LimitedReader{R: r, N: s.maxUploadBytes + 1}
	data, err := io.ReadAll(&limited)
	if err != nil {
		return "", fmt.Errorf("storage: чтение файла %w", err)
	}
	if int64(len(data)) > s.maxUploadBytes {
		return "", fmt.Errorf("storage: %w (%d байт)", ErrFileTooLarge, s.maxUploadBytes)
	}

	contentType, err := detectContentType(safeName, data)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("%s/%d-%s", folder, time.Now().UnixNano(), safeName)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("storage: загрузка файла %w", err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}

// Расширения без магической сигнатуры: для них проверка по содержимому
// невозможна, допускается только само расширение.
var signaturelessExtensions = map[string]struct{}{
	".txt": {},
}

// detectContentType сверяет содержимое файла с его расширением по
// магическим байтам и возвращает MIME-тип для загрузки.
func detectContentType(fileName string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", fmt.Errorf("storage: %w %q", ErrUnsupportedFileType, ext)
	}

	kind, err := filetype.Match(data)
	if err != nil {
		return "", fmt.Errorf("storage: определение типа файла %w", err)
	}

	if kind == filetype.Unknown {
		if _, ok := signaturelessExtensions[ext]; !ok {
			return "", fmt.Errorf("storage: %w %q", ErrUnsupportedFileType, ext)
		}
		return "text/plain; charset=utf-8", nil
	}

	if _, ok := allowedExtensions["."+kind.Extension]; !ok {
		return "", fmt.Errorf("storage: %w %q", ErrUnsupportedFileType, kind.Extension)
	}
	return kind.MIME.Value, nil
}

// sanitizeFilename удаляет потенциально опасные символы.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, " ", "_")
	if name == "" {
		name = "file"
	}
	return name
}
