// Package document converts rendered raster frames into single-page PDFs.
package document

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// FileExt is the extension of assembled documents.
const FileExt = "pdf"

// JPEG quality used when the primary PNG embedding fails.
const jpegFallbackQuality = 95

// EncodingError reports that neither the primary nor the fallback raster
// encoding could be embedded. Rows failing this way are skipped, not fatal.
type EncodingError struct {
	Primary  error
	Fallback error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("document: png embedding failed (%v), jpeg fallback failed (%v)", e.Primary, e.Fallback)
}

// Assembler builds one-page PDF documents sized to the frame's pixel
// dimensions, with the frame embedded full-bleed. One page unit equals one
// pixel. Output is byte-deterministic: the PDF creation date is pinned.
type Assembler struct{}

// NewAssembler creates a new document assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Assemble converts a rendered frame into PDF bytes. PNG is the primary
// (lossless) embedding; JPEG at quality 95 is the fallback. Both failing
// yields an EncodingError.
func (a *Assembler) Assemble(frame image.Image) ([]byte, error) {
	var pngBuf bytes.Buffer
	pngErr := png.Encode(&pngBuf, frame)
	if pngErr == nil {
		out, err := a.buildPage(frame.Bounds(), "PNG", pngBuf.Bytes())
		if err == nil {
			return out, nil
		}
		pngErr = err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: jpegFallbackQuality}); err != nil {
		return nil, &EncodingError{Primary: pngErr, Fallback: err}
	}
	out, err := a.buildPage(frame.Bounds(), "JPG", buf.Bytes())
	if err != nil {
		return nil, &EncodingError{Primary: pngErr, Fallback: err}
	}
	return out, nil
}

// buildPage creates a fresh single-page PDF with the encoded raster filling
// the page. A fresh Fpdf per attempt keeps a failed embedding from poisoning
// the fallback (gofpdf error state is sticky).
func (a *Assembler) buildPage(bounds image.Rectangle, imageType string, encoded []byte) ([]byte, error) {
	w := float64(bounds.Dx())
	h := float64(bounds.Dy())

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: w, Ht: h},
	})
	// Both PDF date fields must be pinned or repeated runs differ at
	// second boundaries.
	pdf.SetCreationDate(time.Unix(0, 0).UTC())
	pdf.SetModificationDate(time.Unix(0, 0).UTC())
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	opts := gofpdf.ImageOptions{ImageType: imageType}
	pdf.RegisterImageOptionsReader("frame", opts, bytes.NewReader(encoded))
	pdf.ImageOptions("frame", 0, 0, w, h, false, opts, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
