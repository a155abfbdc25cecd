package media

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestThumbnailKeepsAspectRatio(t *testing.T) {
	out, err := Thumbnail(pngBytes(t, 640, 960))
	require.NoError(t, err)

	ct, _, err := DetectImage(out)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", ct)

	img, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, ThumbWidth, img.Bounds().Dx())
	assert.Equal(t, 480, img.Bounds().Dy())
}

func TestDetectImageRejectsText(t *testing.T) {
	_, _, err := DetectImage([]byte("hello, not an image"))
	assert.ErrorIs(t, err, ErrNotImage)

	_, err = Thumbnail([]byte("nope"))
	assert.ErrorIs(t, err, ErrNotImage)

	ct, ext, err := DetectImage(pngBytes(t, 4, 4))
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, ".png", ext)
}

func TestS3StoreURL(t *testing.T) {
	s := &S3Store{bucket: "covers", region: "eu-west-1"}
	assert.Equal(t, "https://covers.s3.eu-west-1.amazonaws.com/books/a%20b.jpg", s.URL("books/a b.jpg"))

	s.publicBaseURL = "https://cdn.example.com"
	assert.Equal(t, "https://cdn.example.com/books/x.jpg", s.URL("books/x.jpg"))
}
