// Package photos moves inline base64 photos out of broadcast payloads and into object
// storage, so that the states published to the feed stay small
package photos

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrInvalidDataURL is returned for a data: URL that cannot be decoded as an image
var ErrInvalidDataURL = errors.New("invalid image data URL")

// MaxPhotoBytes bounds the decoded size of a single photo
const MaxPhotoBytes = 5 << 20

var extensions = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/webp":    ".webp",
	"image/gif":     ".gif",
	"image/svg+xml": ".svg",
}

// Offloader uploads data: URLs and replaces them with the resulting object URL. The
// same image is only ever uploaded once.
type Offloader struct {
	storage Storage
	prefix  string

	mu       sync.Mutex
	uploaded map[string]string
}

func NewOffloader(storage Storage, prefix string) *Offloader {
	return &Offloader{
		storage:  storage,
		prefix:   strings.Trim(prefix, "/"),
		uploaded: make(map[string]string),
	}
}

// Resolve returns ref unchanged unless it is a data: URL, in which case the image is
// uploaded and its public URL returned
func (o *Offloader) Resolve(ctx context.Context, ref string) (string, error) {
	if !strings.HasPrefix(ref, "data:") {
		return ref, nil
	}
	contentType, data, err := decodeDataURL(ref)
	if err != nil {
		return "", err
	}

	// Keys are derived from content, so an image already in the bucket maps to the
	// same object
	key := fmt.Sprintf("%s/%s%s", o.prefix, uuid.NewSHA1(uuid.NameSpaceURL, data), extensions[contentType])
	o.mu.Lock()
	url, ok := o.uploaded[key]
	o.mu.Unlock()
	if ok {
		return url, nil
	}

	url, err = o.storage.Upload(ctx, key, contentType, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to upload photo: %w", err)
	}
	o.mu.Lock()
	o.uploaded[key] = url
	o.mu.Unlock()
	fmt.Printf("PHOTOS | Uploaded %d bytes to %s\n", len(data), url)
	return url, nil
}

func decodeDataURL(ref string) (string, []byte, error) {
	header, encoded, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing data", ErrInvalidDataURL)
	}
	params := strings.Split(header, ";")
	contentType := strings.ToLower(strings.TrimSpace(params[0]))
	if _, ok := extensions[contentType]; !ok {
		return "", nil, fmt.Errorf("%w: unsupported content type '%s'", ErrInvalidDataURL, contentType)
	}
	if params[len(params)-1] != "base64" {
		return "", nil, fmt.Errorf("%w: only base64 encoding is supported", ErrInvalidDataURL)
	}
	if base64.StdEncoding.DecodedLen(len(encoded)) > MaxPhotoBytes {
		return "", nil, fmt.Errorf("%w: photo exceeds %d bytes", ErrInvalidDataURL, MaxPhotoBytes)
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	if len(data) == 0 {
		return "", nil, fmt.Errorf("%w: empty image", ErrInvalidDataURL)
	}
	return contentType, data, nil
}
