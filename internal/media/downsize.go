package media

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/reflecta/backend/internal/errors"
)

// Bootstrap copies are sized like journal previews.
const (
	DownsizeWidth  = 300
	DownsizeHeight = 225
)

// Downsize loads an image from disk and returns a PNG-encoded copy that
// fits within DownsizeWidth x DownsizeHeight. Aspect ratio is preserved;
// images already smaller than the bounds are re-encoded unscaled.
func Downsize(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrPictureNotFound, "cannot open image", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrPictureDecode, "cannot decode image", err)
	}

	fitted := imaging.Fit(img, DownsizeWidth, DownsizeHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, fitted, imaging.PNG); err != nil {
		return nil, errors.Wrap(errors.ErrPictureDecode, "cannot encode image", err)
	}
	return buf.Bytes(), nil
}
