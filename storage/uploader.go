package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

type UploadResult struct {
	Key      string `json:"key"`
	Location string `json:"url"`
	ETag     string `json:"etag,omitempty"`
}

// FileUploader stores public objects such as club logos and database backups.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}

var logoTypes = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
}

// LogoExtension returns the file extension for an accepted logo content type.
func LogoExtension(contentType string) (string, bool) {
	ext, ok := logoTypes[strings.ToLower(strings.TrimSpace(contentType))]
	return ext, ok
}

func ClubLogoKey(clubID, ext string, at time.Time) string {
	return path.Join("clubs", clubID, fmt.Sprintf("logo-%d%s", at.Unix(), ext))
}

func BackupKey(fileName string) string {
	return path.Join("backups", path.Base(fileName))
}

// KeyFromURL recovers the object key from a public URL built by GetPublicURL.
func KeyFromURL(publicBaseURL, url string) string {
	base := strings.TrimSuffix(publicBaseURL, "/") + "/"
	if publicBaseURL == "" || !strings.HasPrefix(url, base) {
		return ""
	}
	return strings.TrimPrefix(url, base)
}
