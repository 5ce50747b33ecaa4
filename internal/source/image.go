package source

import (
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// ImageSource decodes a raster file, honouring EXIF orientation.
type ImageSource struct {
	path string
}

func NewImageSource(path string) *ImageSource {
	return &ImageSource{path: path}
}

func (s *ImageSource) Name() string {
	return baseName(s.path)
}

func (s *ImageSource) Image() (image.Image, error) {
	return imaging.Open(s.path, imaging.AutoOrientation(true))
}

func (s *ImageSource) Close() error {
	return nil
}
