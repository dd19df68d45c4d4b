package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"net/http"
	"path"
	"strings"

	"postline/internal/config"
	"postline/internal/featureflags"
	"postline/internal/middleware"
	"postline/internal/models"
	"postline/internal/observability"
	"postline/internal/storage"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultImageMaxUploadSizeMB = 5
	ThumbnailMaxSize            = 320
	WebPQuality                 = 70
	imageKeyPrefix              = "posts"
)

// UploadImageInput is a raw image submitted with a post form.
type UploadImageInput struct {
	UserID      uint
	Filename    string
	ContentType string
	Content     []byte
}

// StoredImage holds the storage keys written for one upload.
type StoredImage struct {
	Key          string
	ThumbnailKey string
}

// Keys lists every key that was written.
func (i *StoredImage) Keys() []string {
	if i == nil {
		return nil
	}
	keys := []string{i.Key}
	if i.ThumbnailKey != "" {
		keys = append(keys, i.ThumbnailKey)
	}
	return keys
}

// ImageService validates uploaded images and writes them to storage.
type ImageService struct {
	store              storage.Storage
	flags              *featureflags.Manager
	maxUploadSizeBytes int64
}

func NewImageService(store storage.Storage, flags *featureflags.Manager, cfg *config.Config) *ImageService {
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB
	if cfg != nil && cfg.ImageMaxUploadSizeMB > 0 {
		maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
	}

	return &ImageService{
		store:              store,
		flags:              flags,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

type decodedImage struct {
	img         image.Image
	ext         string
	contentType string
}

// Validate checks that in is a supported, decodable image within the size
// limit. Failures are field validation errors on "image".
func (s *ImageService) Validate(in UploadImageInput) (*decodedImage, error) {
	reject := func(msg string) (*decodedImage, error) {
		observability.ImageUploads.WithLabelValues("rejected").Inc()
		return nil, models.NewFieldValidationError(map[string]string{"image": msg})
	}

	if len(in.Content) == 0 {
		return reject("The submitted file is empty.")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return reject(fmt.Sprintf("File too large (max %dMB).", s.maxUploadSizeBytes/(1024*1024)))
	}

	detected := http.DetectContentType(in.Content)
	if !isAllowedImageMIME(detected) {
		return reject("Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}

	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return reject("Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}

	ext, contentType, ok := formatInfo(format)
	if !ok {
		return reject("Unsupported image format.")
	}
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") && provided != contentType {
		return reject("Image content type does not match its data.")
	}

	return &decodedImage{img: decoded, ext: ext, contentType: contentType}, nil
}

// Save validates in and stores the original bytes under posts/<uuid>.<ext>.
// With the image_thumbnails flag on for the uploader a webp thumbnail is
// written to posts/thumbs/<uuid>.webp as well.
func (s *ImageService) Save(ctx context.Context, in UploadImageInput) (stored *StoredImage, err error) {
	ctx, span := observability.StartSpan(ctx, "image", "save")
	defer func() { observability.EndSpan(span, err) }()

	decoded, err := s.Validate(in)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	stored = &StoredImage{Key: path.Join(imageKeyPrefix, id+"."+decoded.ext)}

	if err = s.store.Save(ctx, stored.Key, bytes.NewReader(in.Content), int64(len(in.Content)), decoded.contentType); err != nil {
		observability.ImageUploads.WithLabelValues("failed").Inc()
		return nil, models.NewInternalError(err)
	}

	if s.flags.Enabled(featureflags.ImageThumbnails, in.UserID) {
		thumb, encErr := encodeWebP(resizeToFit(decoded.img, ThumbnailMaxSize, ThumbnailMaxSize), WebPQuality)
		if encErr == nil {
			thumbKey := path.Join(imageKeyPrefix, "thumbs", id+".webp")
			encErr = s.store.Save(ctx, thumbKey, bytes.NewReader(thumb), int64(len(thumb)), "image/webp")
			if encErr == nil {
				stored.ThumbnailKey = thumbKey
			}
		}
		if encErr != nil {
			middleware.Logger.WarnContext(ctx, "Thumbnail generation failed", "key", stored.Key, "error", encErr)
		}
	}

	observability.ImageUploads.WithLabelValues("stored").Inc()
	return stored, nil
}

// Remove deletes stored keys, logging failures.
func (s *ImageService) Remove(ctx context.Context, keys ...string) {
	if s == nil {
		return
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.store.Delete(ctx, key); err != nil {
			middleware.Logger.WarnContext(ctx, "Failed to remove stored image", "key", key, "error", err)
		}
	}
}

// URL resolves a storage key to its public URL. Empty keys stay empty.
func (s *ImageService) URL(key string) string {
	if s == nil || key == "" {
		return ""
	}
	return s.store.URL(key)
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 || (w <= maxWidth && h <= maxHeight) {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if scaleH := float64(maxHeight) / float64(h); scaleH < scale {
		scale = scaleH
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	if mediaType == "image/jpg" {
		return "image/jpeg"
	}
	return mediaType
}

func formatInfo(format string) (ext, contentType string, ok bool) {
	switch format {
	case "jpeg":
		return "jpg", "image/jpeg", true
	case "png":
		return "png", "image/png", true
	case "gif":
		return "gif", "image/gif", true
	case "webp":
		return "webp", "image/webp", true
	default:
		return "", "", false
	}
}
