package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	config "github.com/phillip/lets-hang-go/config"
)

const EventsFolder = "events"

var (
	ErrImagesDisabled = errors.New("image uploads are not configured")
	versionSegment    = regexp.MustCompile(`^v\d+$`)
)

// ImageStore uploads flyers and backgrounds to Cloudinary. A store built
// without credentials rejects every call with ErrImagesDisabled.
type ImageStore struct {
	cld *cloudinary.Cloudinary
}

func NewImageStore(cfg *config.Config) (*ImageStore, error) {
	if !cfg.CloudinaryConfigured() {
		return &ImageStore{}, nil
	}
	cld, err := cloudinary.NewFromParams(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary config error: %w", err)
	}
	return &ImageStore{cld: cld}, nil
}

func (s *ImageStore) Enabled() bool {
	return s != nil && s.cld != nil
}

// Upload stores file under folder and returns its secure URL.
func (s *ImageStore) Upload(ctx context.Context, file io.Reader, folder string) (string, error) {
	if !s.Enabled() {
		return "", ErrImagesDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	resp, err := s.cld.Upload.Upload(ctx, file, uploader.UploadParams{Folder: folder})
	if err != nil {
		return "", fmt.Errorf("upload error: %w", err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("upload error: %s", resp.Error.Message)
	}
	return resp.SecureURL, nil
}

// Delete removes the asset behind a full Cloudinary URL.
func (s *ImageStore) Delete(ctx context.Context, imageURL string) error {
	if !s.Enabled() {
		return ErrImagesDisabled
	}

	publicID, err := ExtractPublicID(imageURL)
	if err != nil {
		return fmt.Errorf("could not extract public ID: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID}); err != nil {
		return fmt.Errorf("delete error: %w", err)
	}
	return nil
}

// ExtractPublicID turns
// https://res.cloudinary.com/demo/image/upload/v1234567890/events/abc123.jpg
// into "events/abc123".
func ExtractPublicID(imageURL string) (string, error) {
	parsed, err := url.Parse(imageURL)
	if err != nil {
		return "", err
	}

	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	start := -1
	for i, p := range parts {
		if p == "upload" {
			start = i + 1
			break
		}
	}
	if start < 0 || start >= len(parts) {
		return "", fmt.Errorf("invalid cloudinary URL format")
	}

	rest := parts[start:]
	if len(rest) > 1 && versionSegment.MatchString(rest[0]) {
		rest = rest[1:]
	}

	last := rest[len(rest)-1]
	rest[len(rest)-1] = strings.TrimSuffix(last, path.Ext(last))
	return path.Join(rest...), nil
}
