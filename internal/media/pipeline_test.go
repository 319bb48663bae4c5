package media

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader is the 8-byte PNG signature followed by enough padding for
// content-type sniffing.
func pngHeader() []byte {
	return append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 64)...)
}

func TestProcess_StoresPNG(t *testing.T) {
	dir := t.TempDir()
	p := NewLocalPipeline(dir)

	ref, err := p.Process(context.Background(), bytes.NewReader(pngHeader()), "shipping-invoice")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "shipping-invoice-"))
	assert.True(t, strings.HasSuffix(ref, ".png"))

	_, err = os.Stat(filepath.Join(dir, ref))
	assert.NoError(t, err, "file exists under the media root")
}

func TestProcess_RejectsNonImage(t *testing.T) {
	p := NewLocalPipeline(t.TempDir())

	_, err := p.Process(context.Background(), strings.NewReader("plain text payload"), "shipping-invoice")

	assert.ErrorIs(t, err, ErrNotAnImage)
}

func TestProcess_RejectsEmptyUpload(t *testing.T) {
	p := NewLocalPipeline(t.TempDir())

	_, err := p.Process(context.Background(), strings.NewReader(""), "shipping-invoice")

	assert.ErrorIs(t, err, ErrEmptyUpload)
}

func TestProcess_RejectsOversizedUpload(t *testing.T) {
	p := NewLocalPipeline(t.TempDir())

	big := append(pngHeader(), make([]byte, maxUploadBytes)...)
	_, err := p.Process(context.Background(), bytes.NewReader(big), "shipping-invoice")

	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestProcess_UniqueNamesPerUpload(t *testing.T) {
	p := NewLocalPipeline(t.TempDir())
	ctx := context.Background()

	a, err := p.Process(ctx, bytes.NewReader(pngHeader()), "shipping-invoice")
	require.NoError(t, err)
	b, err := p.Process(ctx, bytes.NewReader(pngHeader()), "shipping-invoice")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}
