package service

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-access/internal/config"
	"github.com/stemsi/exstem-access/internal/model"
)

// Sentinel errors for media uploads.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
)

type mediaKind struct {
	ext  string
	kind model.MediaType
}

// Allowed question media MIME types.
var allowedMIMETypes = map[string]mediaKind{
	"image/jpeg": {".jpg", model.MediaTypeImage},
	"image/png":  {".png", model.MediaTypeImage},
	"image/gif":  {".gif", model.MediaTypeImage},
	"image/webp": {".webp", model.MediaTypeImage},
	"video/mp4":  {".mp4", model.MediaTypeVideo},
	"video/webm": {".webm", model.MediaTypeVideo},
}

// UploadedMedia describes a stored attachment ready to reference from a question.
type UploadedMedia struct {
	URL       string          `json:"media_url"`
	MediaType model.MediaType `json:"media_type"`
}

// MediaService handles question media uploads.
type MediaService struct {
	cfg *config.Config
}

// NewMediaService creates a new MediaService.
func NewMediaService(cfg *config.Config) *MediaService {
	return &MediaService{cfg: cfg}
}

// SaveUpload saves an uploaded file to local storage with a UUID filename.
func (s *MediaService) SaveUpload(file multipart.File, header *multipart.FileHeader) (*UploadedMedia, error) {
	contentType := header.Header.Get("Content-Type")
	mk, ok := allowedMIMETypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s (allowed: %s)",
			ErrUnsupportedFileType, contentType, strings.Join(allowedTypes(), ", "))
	}

	if header.Size > s.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes (max: %d)", ErrFileTooLarge, header.Size, s.cfg.MaxUploadBytes)
	}

	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	filename := uuid.New().String() + mk.ext
	dst, err := os.Create(filepath.Join(s.cfg.UploadDir, filename))
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		return nil, fmt.Errorf("write file: %w", err)
	}

	return &UploadedMedia{URL: "/uploads/" + filename, MediaType: mk.kind}, nil
}

func allowedTypes() []string {
	types := make([]string, 0, len(allowedMIMETypes))
	for t := range allowedMIMETypes {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
