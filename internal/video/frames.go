// Package video turns matched photos and a soundtrack into a slideshow video.
package video

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// letterbox scales an image to fit the target frame while keeping its aspect
// ratio, centered on a black background. Mixed input dimensions break
// encoders, so every frame comes out at exactly the same size.
func letterbox(img image.Image, width, height int) *image.RGBA {
	frame := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(frame, frame.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	bounds := img.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()
	if srcW == 0 || srcH == 0 {
		return frame
	}

	// Fit inside the frame.
	scale := min(float64(width)/float64(srcW), float64(height)/float64(srcH))
	dstW := int(float64(srcW) * scale)
	dstH := int(float64(srcH) * scale)
	x0 := (width - dstW) / 2
	y0 := (height - dstH) / 2

	dstRect := image.Rect(x0, y0, x0+dstW, y0+dstH)
	xdraw.BiLinear.Scale(frame, dstRect, img, bounds, xdraw.Over, nil)
	return frame
}

// renderFrame decodes an uploaded photo and letterboxes it into a JPEG frame.
// Supported formats: JPEG, PNG, GIF, BMP, WebP.
func renderFrame(data []byte, width, height int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	frame := letterbox(img, width, height)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return buf.Bytes(), nil
}
