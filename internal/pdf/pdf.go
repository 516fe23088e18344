// Package pdf recognizes the text of scanned PDF documents.
//
// Scanned pages are stored as embedded raster images. ExtractPages pulls
// those images out with pdfcpu, grouped by page, and ExtractText runs each
// page through the OCR service. Page texts are joined with a
// "--- Page N ---" separator line.
//
// Vector text and pages without embedded images are not rendered; such
// pages contribute nothing.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/screen-ocr/internal/imaging"
	"github.com/ironsheep/screen-ocr/internal/ocr"
)

// ErrNoImages is returned for documents without any decodable page image.
var ErrNoImages = errors.New("pdf contains no page images")

var configOnce sync.Once

// configuration returns a pdfcpu configuration that never touches the
// user's config directory.
func configuration() *model.Configuration {
	configOnce.Do(api.DisableConfigDir)
	return model.NewDefaultConfiguration()
}

// Page holds the decoded images of one page.
type Page struct {
	// Number is 1-based.
	Number int
	Images []image.Image
}

// IsPDF reports whether the file at path is a PDF document, judged by its
// extension or its "%PDF-" header.
func IsPDF(path string) bool {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return true
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	head := make([]byte, 5)
	if _, err := io.ReadFull(f, head); err != nil {
		return false
	}
	return bytes.Equal(head, []byte("%PDF-"))
}

// ExtractPages returns the embedded images of rs, grouped by page in page
// order. Images in formats that cannot be decoded (JPEG 2000, for example)
// are skipped with a warning.
func ExtractPages(rs io.ReadSeeker, log *logrus.Entry) (pages []Page, err error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("panic while extracting PDF images: %v", r)
		}
	}()

	byPage := make(map[int][]image.Image)
	digest := func(img model.Image, _ bool, _ int) error {
		data, err := io.ReadAll(img)
		if err != nil {
			return fmt.Errorf("failed to read image %s on page %d: %w", img.Name, img.PageNr, err)
		}
		decoded, err := imaging.DecodeBytes(data)
		if err != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"page":  img.PageNr,
				"image": img.Name,
				"type":  img.FileType,
			}).Warn("Skipping undecodable PDF image")
			return nil
		}
		byPage[img.PageNr] = append(byPage[img.PageNr], decoded)
		return nil
	}

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	if err := api.ExtractImages(rs, nil, digest, configuration()); err != nil {
		return nil, fmt.Errorf("failed to extract PDF images: %w", err)
	}

	for nr, imgs := range byPage {
		pages = append(pages, Page{Number: nr, Images: imgs})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Number < pages[j].Number })
	return pages, nil
}

// Runner recognizes a single image; *ocr.Service satisfies it.
type Runner interface {
	Run(ctx context.Context, img image.Image, opts ocr.Options) (*ocr.Result, error)
}

// Result is the text of a document.
type Result struct {
	Text string `json:"text"`

	// Pages is the number of pages that carried images.
	Pages int `json:"pages"`

	// PagesWithText counts the pages that produced text.
	PagesWithText int `json:"pages_with_text"`
}

// ExtractText recognizes every page image of the PDF at path.
//
// Images of one page are recognized in order and their texts joined by a
// blank line. A page whose images cannot be recognized is skipped; only a
// cancelled ctx or an unreadable document fails the call.
func ExtractText(ctx context.Context, r Runner, path string, opts ocr.Options, log *logrus.Entry) (*Result, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	pages, err := ExtractPages(f, log)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, ErrNoImages
	}

	res := &Result{Pages: len(pages)}
	var full strings.Builder
	for _, p := range pages {
		text, err := recognizePage(ctx, r, p, opts, log)
		if err != nil {
			return nil, err
		}
		if text == "" {
			continue
		}
		if full.Len() > 0 {
			fmt.Fprintf(&full, "\n\n--- Page %d ---\n\n", p.Number)
		}
		full.WriteString(text)
		res.PagesWithText++
	}
	res.Text = strings.TrimSpace(full.String())

	log.WithFields(logrus.Fields{
		"path":            path,
		"pages":           res.Pages,
		"pages_with_text": res.PagesWithText,
	}).Info("PDF recognized")
	return res, nil
}

func recognizePage(ctx context.Context, r Runner, p Page, opts ocr.Options, log *logrus.Entry) (string, error) {
	var texts []string
	for i, img := range p.Images {
		res, err := r.Run(ctx, img, opts)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			log.WithError(err).WithFields(logrus.Fields{"page": p.Number, "image": i}).Warn("Page image not recognized")
			continue
		}
		if t := strings.TrimSpace(res.Text); t != "" {
			texts = append(texts, t)
		}
	}
	return strings.Join(texts, "\n\n"), nil
}
