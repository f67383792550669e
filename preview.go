package segconv

// Rendering of segmentation labels onto their images for visual inspection.

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/llgcode/draw2d/draw2dimg"
)

// PreviewOptions configure RenderPreviews.
type PreviewOptions struct {
	OutDir      string  // Output directory, created if missing.
	MaxSide     int     // Downsample images so the longer side is at most this; 0 keeps the size.
	Fill        bool    // Fill polygons translucently in addition to the outline.
	LineWidth   float64 // Outline width in output pixels.
	JPEGQuality int     // Quality of JPEG outputs.
}

// palette holds the outline colours, indexed by class modulo its length.
var palette = []color.RGBA{
	{230, 25, 75, 255},
	{60, 180, 75, 255},
	{255, 225, 25, 255},
	{0, 130, 200, 255},
	{245, 130, 48, 255},
	{145, 30, 180, 255},
	{70, 240, 240, 255},
	{240, 50, 230, 255},
	{210, 245, 60, 255},
	{250, 190, 212, 255},
}

// classColor returns the colour for a class with the given alpha.
func classColor(class int, alpha uint8) color.RGBA {
	c := palette[class%len(palette)]
	// Premultiplied, as color.RGBA requires.
	return color.RGBA{
		R: uint8(uint16(c.R) * uint16(alpha) / 255),
		G: uint8(uint16(c.G) * uint16(alpha) / 255),
		B: uint8(uint16(c.B) * uint16(alpha) / 255),
		A: alpha,
	}
}

// DrawLabels returns a copy of img with the normalised label polygons drawn onto it.
func DrawLabels(img image.Image, lines []LabelLine, fill bool, lineWidth float64) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)

	w, h := float64(b.Dx()), float64(b.Dy())
	if lineWidth <= 0 {
		lineWidth = 2
	}

	gc := draw2dimg.NewGraphicContext(dst)
	gc.SetLineWidth(lineWidth)
	for _, l := range lines {
		p := l.Polygon()
		if len(p) < MinPolygonPoints {
			continue
		}

		gc.BeginPath()
		gc.MoveTo(p[0].X*w, p[0].Y*h)
		for _, v := range p[1:] {
			gc.LineTo(v.X*w, v.Y*h)
		}
		gc.Close()

		gc.SetStrokeColor(classColor(l.Class, 255))
		if fill {
			gc.SetFillColor(classColor(l.Class, 80))
			gc.FillStroke()
		} else {
			gc.Stroke()
		}
	}

	return dst
}

// RenderPreviews draws the labels of every element of data onto its image and writes the result
// to opts.OutDir under the image's file name. Images are processed concurrently; the first error
// is returned after all images have been attempted.
func RenderPreviews(data []LabeledImage, opts PreviewOptions) error {
	if err := os.MkdirAll(opts.OutDir, 0755); err != nil {
		return fmt.Errorf("cannot create directory %q: %v", opts.OutDir, err)
	}
	if len(data) == 0 {
		return nil
	}
	if opts.JPEGQuality < 1 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = 90
	}

	// Limit the number of goroutines in flight, as they hold decoded images in memory.
	numTasks := 2 * runtime.NumCPU()
	if len(data) < numTasks {
		numTasks = len(data)
	}
	workQueue := make(chan *LabeledImage, 2*numTasks)
	errors := make(chan error, 1)
	var wg sync.WaitGroup

	wg.Add(numTasks)
	for i := 0; i < numTasks; i++ {
		go func() {
			defer wg.Done()
			for d := range workQueue {
				if err := renderPreview(d, opts); err != nil {
					log.Printf("Failed to render %q: %v", d.FilePath, err)
					select {
					case errors <- err:
					default:
					}
				}
			}
		}()
	}

	for i := range data {
		workQueue <- &data[i]
	}
	close(workQueue)
	wg.Wait()

	close(errors)
	if len(errors) > 0 {
		return <-errors
	}
	return nil
}

// renderPreview renders a single image.
func renderPreview(d *LabeledImage, opts PreviewOptions) error {
	img, err := loadImage(d.FilePath)
	if err != nil {
		return err
	}
	img = fitImage(img, opts.MaxSide, imaging.Box)

	out := DrawLabels(img, d.Lines, opts.Fill, opts.LineWidth)

	name := filepath.Base(d.FilePath)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".tif", ".tiff", ".bmp":
	default:
		// Formats imaging cannot encode are written as PNG.
		name = strings.TrimSuffix(name, filepath.Ext(name)) + ".png"
	}
	return saveImage(filepath.Join(opts.OutDir, name), out, opts.JPEGQuality)
}
