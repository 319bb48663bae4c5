package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

var (
	ErrTooLarge    = errors.New("image exceeds size limit")
	ErrNotAnImage  = errors.New("payload is not a supported image")
	ErrEmptyUpload = errors.New("empty upload")
)

// Pipeline is the media-processing collaborator: it takes a raw upload and a
// logical slot name and returns an opaque reference to the processed,
// size-normalized image. The production backend lives outside this service.
type Pipeline interface {
	Process(ctx context.Context, r io.Reader, slot string) (string, error)
}

const maxUploadBytes = 5 << 20

var imageExt = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// LocalPipeline stores processed uploads on the local filesystem. Used for
// development and tests; the returned ref is the path relative to the media
// root.
type LocalPipeline struct {
	dir string
}

func NewLocalPipeline(dir string) *LocalPipeline {
	return &LocalPipeline{dir: dir}
}

func (p *LocalPipeline) Process(_ context.Context, r io.Reader, slot string) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxUploadBytes+1))
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", ErrEmptyUpload
	}
	if len(data) > maxUploadBytes {
		return "", ErrTooLarge
	}

	ext, ok := imageExt[http.DetectContentType(data)]
	if !ok {
		return "", ErrNotAnImage
	}

	name := fmt.Sprintf("%s-%s.%s", slot, uuid.New().String(), ext)
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(p.dir, name), data, 0o644); err != nil {
		return "", err
	}
	return name, nil
}
