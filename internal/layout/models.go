package layout

import (
	"encoding/json"
	"fmt"
)

type FieldType string

const (
	FieldTypeText  FieldType = "text"
	FieldTypeImage FieldType = "image"
)

// Default canvas dimensions: landscape A4 at the editor's fixed DPI.
const (
	DefaultCanvasWidth  = 1123
	DefaultCanvasHeight = 794
)

// Color represents an RGB color.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// ImageRef holds an embedded raster image (PNG or JPEG bytes).
type ImageRef struct {
	Data []byte `json:"data"`
}

// TextAttrs holds the text-variant attributes of a field.
type TextAttrs struct {
	Content    string `json:"content"`
	BindingKey string `json:"binding_key,omitempty"`
	FontSize   float64 `json:"font_size"`
	FontFamily string `json:"font_family"`
	Color      Color  `json:"color"`
	Bold       bool   `json:"bold"`
	Italic     bool   `json:"italic"`
	Underline  bool   `json:"underline"`
}

// ImageAttrs holds the image-variant attributes of a field.
type ImageAttrs struct {
	Image   ImageRef `json:"image"`
	Opacity float64  `json:"opacity"`
}

// Field is one positioned placeholder on a layout. Exactly one of Text or
// Image is set, matching Type.
type Field struct {
	ID     string    `json:"id"`
	Type   FieldType `json:"type"`
	X      float64   `json:"x"`
	Y      float64   `json:"y"`
	Width  float64   `json:"width"`
	Height float64   `json:"height"`

	Text  *TextAttrs  `json:"text,omitempty"`
	Image *ImageAttrs `json:"image_attrs,omitempty"`
}

// Validate checks field geometry and variant consistency.
func (f *Field) Validate() error {
	if f.ID == "" {
		return &InvalidFieldError{Reason: "field id is empty"}
	}
	if f.Width <= 0 || f.Height <= 0 {
		return &InvalidFieldError{FieldID: f.ID, Reason: fmt.Sprintf("non-positive geometry %gx%g", f.Width, f.Height)}
	}
	switch f.Type {
	case FieldTypeText:
		if f.Text == nil || f.Image != nil {
			return &InvalidFieldError{FieldID: f.ID, Reason: "text field must carry text attributes only"}
		}
		if f.Text.FontSize <= 0 {
			return &InvalidFieldError{FieldID: f.ID, Reason: fmt.Sprintf("non-positive font size %g", f.Text.FontSize)}
		}
	case FieldTypeImage:
		if f.Image == nil || f.Text != nil {
			return &InvalidFieldError{FieldID: f.ID, Reason: "image field must carry image attributes only"}
		}
		if f.Image.Opacity < 0 || f.Image.Opacity > 1 {
			return &InvalidFieldError{FieldID: f.ID, Reason: fmt.Sprintf("opacity %g outside [0,1]", f.Image.Opacity)}
		}
	default:
		return &InvalidFieldError{FieldID: f.ID, Reason: fmt.Sprintf("unknown field type %q", f.Type)}
	}
	return nil
}

// clone returns a deep copy of the field.
func (f *Field) clone() Field {
	c := *f
	if f.Text != nil {
		t := *f.Text
		c.Text = &t
	}
	if f.Image != nil {
		img := *f.Image
		img.Image.Data = append([]byte(nil), f.Image.Image.Data...)
		c.Image = &img
	}
	return c
}

// Layout is a reusable certificate template: a fixed-size canvas, an optional
// background image, and an ordered field list. Field order is paint order
// (earlier fields sit behind later ones).
type Layout struct {
	CanvasWidth     int       `json:"canvas_width"`
	CanvasHeight    int       `json:"canvas_height"`
	BackgroundColor *Color    `json:"background_color,omitempty"`
	Background      *ImageRef `json:"background,omitempty"`
	Fields          []Field   `json:"fields"`
}

// New returns an empty layout with the given canvas size.
func New(width, height int) (*Layout, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("layout: invalid canvas size %dx%d", width, height)
	}
	return &Layout{CanvasWidth: width, CanvasHeight: height}, nil
}

// FromJSON deserializes a layout and validates it.
func FromJSON(data []byte) (*Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("layout: decode: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

// ToJSON serializes the layout.
func (l *Layout) ToJSON() ([]byte, error) {
	return json.Marshal(l)
}

// Validate checks canvas geometry, every field, and id uniqueness.
func (l *Layout) Validate() error {
	if l.CanvasWidth <= 0 || l.CanvasHeight <= 0 {
		return fmt.Errorf("layout: invalid canvas size %dx%d", l.CanvasWidth, l.CanvasHeight)
	}
	seen := make(map[string]struct{}, len(l.Fields))
	for i := range l.Fields {
		f := &l.Fields[i]
		if err := f.Validate(); err != nil {
			return err
		}
		if _, dup := seen[f.ID]; dup {
			return &InvalidFieldError{FieldID: f.ID, Reason: "duplicate field id"}
		}
		seen[f.ID] = struct{}{}
	}
	return nil
}

// Clone returns a deep copy. Batches snapshot the layout with Clone so that
// concurrent editor mutations cannot affect a running generation.
func (l *Layout) Clone() *Layout {
	c := &Layout{
		CanvasWidth:  l.CanvasWidth,
		CanvasHeight: l.CanvasHeight,
	}
	if l.BackgroundColor != nil {
		bc := *l.BackgroundColor
		c.BackgroundColor = &bc
	}
	if l.Background != nil {
		c.Background = &ImageRef{Data: append([]byte(nil), l.Background.Data...)}
	}
	c.Fields = make([]Field, 0, len(l.Fields))
	for i := range l.Fields {
		c.Fields = append(c.Fields, l.Fields[i].clone())
	}
	return c
}
