package media

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/disintegration/imaging"
)

const ThumbWidth = 320

var ErrNotImage = errors.New("file is not a supported image")

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// DetectImage sniffs data and returns its content type and file extension.
func DetectImage(data []byte) (contentType, ext string, err error) {
	ct := http.DetectContentType(data)
	ext, ok := allowedTypes[ct]
	if !ok {
		return "", "", ErrNotImage
	}
	return ct, ext, nil
}

// Thumbnail scales the image to ThumbWidth keeping the aspect ratio and
// encodes it as JPEG.
func Thumbnail(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, ErrNotImage
	}
	thumb := imaging.Resize(img, ThumbWidth, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
