// Package binding resolves the literal value each layout field renders for a
// given data row.
package binding

import (
	"fmt"

	"sports-reconnect/certificate-portal/certificate-portal-backend/internal/layout"
)

// DataRow is one record of the uploaded dataset: a flat column→value mapping.
// All rows of a batch share the same column set; individual values may be
// missing or empty.
type DataRow map[string]string

// BindingMap maps a field id to the dataset column supplying its per-row
// value. An absent or empty entry leaves the field on its static default.
type BindingMap map[string]string

// Frame holds the fully resolved text value for every text field of a layout,
// ready for compositing. Image fields are static and do not appear here.
type Frame map[string]string

// Resolve returns the literal text a field renders for the given row.
//
// Text fields use the bound column when the binding names a column present in
// the row with a non-empty value; otherwise the field's static content. The
// field's own BindingKey is the default column; an entry in the BindingMap
// overrides it.
// Image fields always render their own embedded image; per-row image binding
// is deliberately unsupported, so Resolve returns the empty string for them.
func Resolve(f *layout.Field, row DataRow, bindings BindingMap) string {
	switch f.Type {
	case layout.FieldTypeText:
		col := bindings[f.ID]
		if col == "" {
			col = f.Text.BindingKey
		}
		if col != "" {
			if v, ok := row[col]; ok && v != "" {
				return v
			}
		}
		return f.Text.Content
	case layout.FieldTypeImage:
		return ""
	}
	return ""
}

// BuildFrame resolves every text field of the layout against one row.
func BuildFrame(l *layout.Layout, row DataRow, bindings BindingMap) Frame {
	frame := make(Frame, len(l.Fields))
	for i := range l.Fields {
		f := &l.Fields[i]
		if f.Type != layout.FieldTypeText {
			continue
		}
		frame[f.ID] = Resolve(f, row, bindings)
	}
	return frame
}

// Validate checks that every binding references an existing text field.
func (b BindingMap) Validate(l *layout.Layout) error {
	byID := make(map[string]*layout.Field, len(l.Fields))
	for i := range l.Fields {
		byID[l.Fields[i].ID] = &l.Fields[i]
	}
	for id, col := range b {
		if col == "" {
			continue
		}
		f, ok := byID[id]
		if !ok {
			return &layout.NotFoundError{FieldID: id}
		}
		if f.Type != layout.FieldTypeText {
			return fmt.Errorf("binding: field %q is not a text field", id)
		}
	}
	return nil
}
