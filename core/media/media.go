// Package media validates admin image uploads and stores them through an Uploader.
package media

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/khidmat/core"
)

// Folders images can be uploaded to.
const (
	FolderServices = "services"
	FolderBlogs    = "blogs"
	FolderAbout    = "about"
	FolderMisc     = "misc"
)

var (
	Folders = []string{FolderServices, FolderBlogs, FolderAbout, FolderMisc}

	ErrEmptyFile       = errors.New("the file is empty")
	ErrTooLarge        = errors.New("the file is too large")
	ErrUnsupportedType = errors.New("unsupported file type; accepted: jpeg, png, webp, gif, svg")
	ErrInvalidFolder   = errors.New("invalid folder; accepted: services, blogs, about, misc")

	extensions = map[string]string{
		"image/jpeg":    ".jpg",
		"image/png":     ".png",
		"image/webp":    ".webp",
		"image/gif":     ".gif",
		"image/svg+xml": ".svg",
	}
)

// Uploader stores objects and returns their public URL.
type Uploader interface {
	Upload(ctx context.Context, key string, body io.ReadSeeker, size int64, contentType string) (string, error)
}

type Upload struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

type Service struct {
	uploader Uploader
	maxSize  int64
	now      func() time.Time
}

func NewService(uploader Uploader, conf *core.Config) *Service {
	return &Service{uploader: uploader, maxSize: conf.Storage.MaxUploadSize, now: time.Now}
}

func (svc *Service) MaxSize() int64 { return svc.maxSize }

// Upload reads the whole image (at most MaxSize bytes), checks its type and uploads it to `folder`.
func (svc *Service) Upload(ctx context.Context, folder string, r io.Reader) (Upload, error) {
	folder = strings.ToLower(strings.TrimSpace(folder))
	if folder == "" {
		folder = FolderMisc
	}
	if !validFolder(folder) {
		return Upload{}, core.NewValidationError(ErrInvalidFolder, core.FieldError{Field: "folder", Error: ErrInvalidFolder.Error()})
	}

	data, err := io.ReadAll(io.LimitReader(r, svc.maxSize+1))
	if err != nil {
		return Upload{}, errors.Wrap(err, "reading upload")
	}
	switch {
	case len(data) == 0:
		return Upload{}, core.NewValidationError(ErrEmptyFile, core.FieldError{Field: "file", Error: ErrEmptyFile.Error()})
	case int64(len(data)) > svc.maxSize:
		return Upload{}, core.NewValidationError(ErrTooLarge, core.FieldError{Field: "file", Error: ErrTooLarge.Error()})
	}

	contentType := DetectContentType(data)
	ext, ok := extensions[contentType]
	if !ok {
		return Upload{}, core.NewValidationError(ErrUnsupportedType, core.FieldError{Field: "file", Error: ErrUnsupportedType.Error()})
	}

	key := ObjectKey(folder, svc.now(), uuid.New().String(), ext)
	url, err := svc.uploader.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil {
		return Upload{}, errors.Wrap(err, "uploading image")
	}
	return Upload{Key: key, URL: url, ContentType: contentType, Size: int64(len(data))}, nil
}

// ObjectKey returns "<folder>/<yyyy>/<mm>/<id><ext>".
func ObjectKey(folder string, t time.Time, id, ext string) string {
	return path.Join(folder, t.UTC().Format("2006"), t.UTC().Format("01"), id+ext)
}

// DetectContentType sniffs the content type of an image, SVG included.
func DetectContentType(data []byte) string {
	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	if _, ok := extensions[ct]; ok {
		return ct
	}
	if (strings.HasPrefix(ct, "text/xml") || strings.HasPrefix(ct, "text/plain")) && isSVG(data) {
		return "image/svg+xml"
	}
	return ct
}

func isSVG(data []byte) bool {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.Contains(bytes.ToLower(head), []byte("<svg"))
}

func validFolder(folder string) bool {
	for _, f := range Folders {
		if f == folder {
			return true
		}
	}
	return false
}
