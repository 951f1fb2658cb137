package layout

// FieldUpdate carries a partial change to an existing field. Nil members are
// left untouched.
type FieldUpdate struct {
	X      *float64
	Y      *float64
	Width  *float64
	Height *float64

	// Text-variant changes.
	Content    *string
	BindingKey *string
	FontSize   *float64
	FontFamily *string
	Color      *Color
	Bold       *bool
	Italic     *bool
	Underline  *bool

	// Image-variant changes.
	Image   *ImageRef
	Opacity *float64
}

func (l *Layout) indexOf(id string) int {
	for i := range l.Fields {
		if l.Fields[i].ID == id {
			return i
		}
	}
	return -1
}

// AddField validates the field and appends it to the paint order.
func (l *Layout) AddField(f Field) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if l.indexOf(f.ID) >= 0 {
		return &InvalidFieldError{FieldID: f.ID, Reason: "duplicate field id"}
	}
	l.Fields = append(l.Fields, f.clone())
	return nil
}

// RemoveField deletes the field with the given id.
func (l *Layout) RemoveField(id string) error {
	i := l.indexOf(id)
	if i < 0 {
		return &NotFoundError{FieldID: id}
	}
	l.Fields = append(l.Fields[:i], l.Fields[i+1:]...)
	return nil
}

// UpdateField applies a partial change to the field with the given id. The
// change is validated as a whole; an update that would leave the field
// invalid is rejected without mutating the layout.
func (l *Layout) UpdateField(id string, update FieldUpdate) error {
	i := l.indexOf(id)
	if i < 0 {
		return &NotFoundError{FieldID: id}
	}

	f := l.Fields[i].clone()
	if update.X != nil {
		f.X = *update.X
	}
	if update.Y != nil {
		f.Y = *update.Y
	}
	if update.Width != nil {
		f.Width = *update.Width
	}
	if update.Height != nil {
		f.Height = *update.Height
	}
	if f.Type == FieldTypeText && f.Text != nil {
		if update.Content != nil {
			f.Text.Content = *update.Content
		}
		if update.BindingKey != nil {
			f.Text.BindingKey = *update.BindingKey
		}
		if update.FontSize != nil {
			f.Text.FontSize = *update.FontSize
		}
		if update.FontFamily != nil {
			f.Text.FontFamily = *update.FontFamily
		}
		if update.Color != nil {
			f.Text.Color = *update.Color
		}
		if update.Bold != nil {
			f.Text.Bold = *update.Bold
		}
		if update.Italic != nil {
			f.Text.Italic = *update.Italic
		}
		if update.Underline != nil {
			f.Text.Underline = *update.Underline
		}
	}
	if f.Type == FieldTypeImage && f.Image != nil {
		if update.Image != nil {
			f.Image.Image = ImageRef{Data: append([]byte(nil), update.Image.Data...)}
		}
		if update.Opacity != nil {
			f.Image.Opacity = *update.Opacity
		}
	}

	if err := f.Validate(); err != nil {
		return err
	}
	l.Fields[i] = f
	return nil
}

// Reorder moves the field with the given id to newIndex in the paint order.
// The target index is clamped into [0, len(fields)-1].
func (l *Layout) Reorder(id string, newIndex int) error {
	i := l.indexOf(id)
	if i < 0 {
		return &NotFoundError{FieldID: id}
	}
	if newIndex < 0 {
		newIndex = 0
	}
	if newIndex > len(l.Fields)-1 {
		newIndex = len(l.Fields) - 1
	}
	if newIndex == i {
		return nil
	}

	f := l.Fields[i]
	l.Fields = append(l.Fields[:i], l.Fields[i+1:]...)
	rest := append([]Field{f}, l.Fields[newIndex:]...)
	l.Fields = append(l.Fields[:newIndex:newIndex], rest...)
	return nil
}

// SetBackground replaces the background image. A nil ref clears it.
func (l *Layout) SetBackground(img *ImageRef) {
	if img == nil {
		l.Background = nil
		return
	}
	l.Background = &ImageRef{Data: append([]byte(nil), img.Data...)}
}
