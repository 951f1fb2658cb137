// Package render turns a resolved layout into raster frames. It owns the one
// mutable canvas a batch draws on, so rendering is strictly sequential.
package render

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"sports-reconnect/certificate-portal/certificate-portal-backend/internal/binding"
	"sports-reconnect/certificate-portal/certificate-portal-backend/internal/layout"
)

// Line height multiplier applied to the font size, matching the editor's
// canvas text metrics.
const lineHeightRatio = 1.2

// Underline geometry relative to the font size.
const (
	underlineThicknessRatio = 0.05
	underlineOffsetRatio    = 0.3
)

// placedImage is a decoded, pre-scaled raster ready to composite.
type placedImage struct {
	img     *image.RGBA
	at      image.Point
	opacity float64
}

// Compositor renders one layout repeatedly onto a single owned canvas, once
// per data row. Background and field images are decoded and scaled once at
// construction; Render only substitutes text and repaints.
//
// The canvas returned by Render is reused by the next Render call, so callers
// must encode or copy it before rendering the next frame.
type Compositor struct {
	layout *layout.Layout
	fonts  *FontManager
	logger *zap.Logger

	canvas     *image.RGBA
	clearColor color.RGBA
	background *placedImage
	images     map[string]*placedImage // field id -> decoded image; absent means unloadable, skipped
}

// NewCompositor prepares a compositor for the given layout snapshot. Field
// images (and the background) that cannot be decoded are logged and skipped;
// they do not fail construction.
func NewCompositor(l *layout.Layout, fonts *FontManager, logger *zap.Logger) (*Compositor, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}

	c := &Compositor{
		layout:     l,
		fonts:      fonts,
		logger:     logger,
		canvas:     image.NewRGBA(image.Rect(0, 0, l.CanvasWidth, l.CanvasHeight)),
		clearColor: color.RGBA{255, 255, 255, 255},
		images:     make(map[string]*placedImage),
	}
	if l.BackgroundColor != nil {
		c.clearColor = color.RGBA{l.BackgroundColor.R, l.BackgroundColor.G, l.BackgroundColor.B, 255}
	}

	if l.Background != nil && len(l.Background.Data) > 0 {
		bg, err := c.fitBackground(l.Background.Data)
		if err != nil {
			logger.Warn("background image unloadable, rendering without it", zap.Error(err))
		} else {
			c.background = bg
		}
	}

	for i := range l.Fields {
		f := &l.Fields[i]
		if f.Type != layout.FieldTypeImage {
			continue
		}
		src, _, err := image.Decode(bytes.NewReader(f.Image.Image.Data))
		if err != nil {
			logger.Warn("field image unloadable, field will be skipped",
				zap.String("field_id", f.ID), zap.Error(err))
			continue
		}
		w, h := int(math.Round(f.Width)), int(math.Round(f.Height))
		scaled := image.NewRGBA(image.Rect(0, 0, w, h))
		xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), src, src.Bounds(), xdraw.Over, nil)
		c.images[f.ID] = &placedImage{
			img:     scaled,
			at:      image.Pt(int(math.Round(f.X)), int(math.Round(f.Y))),
			opacity: f.Image.Opacity,
		}
	}

	return c, nil
}

// fitBackground decodes the background and scales it uniformly so it fits
// inside the canvas, centered, letterboxed on the non-matching axis. The
// scale is never non-uniform and the image is never cropped.
func (c *Compositor) fitBackground(data []byte) (*placedImage, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	sb := src.Bounds()
	cw, ch := float64(c.layout.CanvasWidth), float64(c.layout.CanvasHeight)
	scale := math.Min(cw/float64(sb.Dx()), ch/float64(sb.Dy()))
	dw := int(math.Round(float64(sb.Dx()) * scale))
	dh := int(math.Round(float64(sb.Dy()) * scale))

	scaled := image.NewRGBA(image.Rect(0, 0, dw, dh))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), src, sb, xdraw.Over, nil)
	return &placedImage{
		img:     scaled,
		at:      image.Pt((c.layout.CanvasWidth-dw)/2, (c.layout.CanvasHeight-dh)/2),
		opacity: 1,
	}, nil
}

// Bounds returns the canvas dimensions.
func (c *Compositor) Bounds() image.Rectangle {
	return c.canvas.Bounds()
}

// Render composites the layout with the frame's resolved values and returns
// the shared canvas. Neither the layout nor the frame is mutated. Pixels
// drawn outside the canvas are discarded without error.
func (c *Compositor) Render(frame binding.Frame) (*image.RGBA, error) {
	draw.Draw(c.canvas, c.canvas.Bounds(), image.NewUniform(c.clearColor), image.Point{}, draw.Src)

	if c.background != nil {
		c.compose(c.background)
	}

	for i := range c.layout.Fields {
		f := &c.layout.Fields[i]
		switch f.Type {
		case layout.FieldTypeImage:
			if placed, ok := c.images[f.ID]; ok {
				c.compose(placed)
			}
		case layout.FieldTypeText:
			if err := c.drawTextField(f, frame[f.ID]); err != nil {
				return nil, err
			}
		}
	}
	return c.canvas, nil
}

// compose paints a pre-scaled image at its position, applying its opacity as
// a uniform alpha mask.
func (c *Compositor) compose(p *placedImage) {
	rect := p.img.Bounds().Add(p.at)
	if p.opacity >= 1 {
		draw.Draw(c.canvas, rect, p.img, image.Point{}, draw.Over)
		return
	}
	alpha := uint8(math.Round(p.opacity * 255))
	mask := image.NewUniform(color.Alpha{A: alpha})
	draw.DrawMask(c.canvas, rect, p.img, image.Point{}, mask, image.Point{}, draw.Over)
}

// drawTextField wraps and paints one text field's resolved value. The block
// of wrapped lines is centered vertically in the bounding box and each line
// is centered horizontally; every line is anchored at the vertical middle of
// its own line-height slot.
func (c *Compositor) drawTextField(f *layout.Field, text string) error {
	if text == "" {
		return nil
	}

	attrs := f.Text
	face, synthetic, err := c.fonts.Face(attrs.FontFamily, attrs.FontSize, attrs.Bold, attrs.Italic)
	if err != nil {
		return err
	}

	lines := wrapText(face, text, int(f.Width))
	if len(lines) == 0 {
		return nil
	}

	metrics := face.Metrics()
	ascent := float64(metrics.Ascent) / 64
	descent := float64(metrics.Descent) / 64

	lineHeight := attrs.FontSize * lineHeightRatio
	blockTop := f.Y + f.Height/2 - lineHeight*float64(len(lines))/2
	src := image.NewUniform(color.RGBA{attrs.Color.R, attrs.Color.G, attrs.Color.B, 255})

	for i, line := range lines {
		width := font.MeasureString(face, line).Ceil()
		x := int(math.Round(f.X + (f.Width-float64(width))/2))
		slotCenter := blockTop + (float64(i)+0.5)*lineHeight
		baseline := int(math.Round(slotCenter + (ascent-descent)/2))

		d := &font.Drawer{
			Dst:  c.canvas,
			Src:  src,
			Face: face,
			Dot:  fixed.P(x, baseline),
		}
		d.DrawString(line)
		if synthetic {
			// Requested bold with only a regular face available: re-draw
			// shifted one pixel to embolden the glyphs.
			d.Dot = fixed.P(x+1, baseline)
			d.DrawString(line)
		}

		if attrs.Underline {
			c.drawUnderline(x, width, slotCenter, attrs.FontSize, src)
		}
	}
	return nil
}

// drawUnderline strokes a horizontal rule under one rendered line, spanning
// the line's text width.
func (c *Compositor) drawUnderline(x, width int, slotCenter, fontSize float64, src image.Image) {
	thickness := int(math.Round(fontSize * underlineThicknessRatio))
	if thickness < 1 {
		thickness = 1
	}
	top := int(math.Round(slotCenter + fontSize*underlineOffsetRatio))
	rect := image.Rect(x, top, x+width, top+thickness)
	draw.Draw(c.canvas, rect, src, image.Point{}, draw.Over)
}
