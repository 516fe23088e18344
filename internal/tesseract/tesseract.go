package tesseract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
	"golang.org/x/text/language"

	"github.com/ironsheep/screen-ocr/internal/detection"
	imgutil "github.com/ironsheep/screen-ocr/internal/imaging"
	"github.com/ironsheep/screen-ocr/internal/ocr"
)

// Options configures the engine.
type Options struct {
	// TessdataPrefix overrides the traineddata directory.
	TessdataPrefix string

	// AutoLanguages are the BCP-47 tags loaded for auto-detect requests in
	// addition to the request hints.
	AutoLanguages []string

	// MaxClients bounds concurrent Tesseract instances. Zero selects
	// GOMAXPROCS.
	MaxClients int
}

// dictionaryOffConfig holds the init-only parameters that keep Tesseract
// from loading its word lists. They only take effect through a config file
// read at Init, not through SetVariable.
const dictionaryOffConfig = "load_system_dawg F\nload_freq_dawg F\n"

// dictionaryOffVariables stop the language model from penalizing words
// that are missing from the (unloaded) dictionaries.
var dictionaryOffVariables = map[gosseract.SettableVariable]string{
	"language_model_penalty_non_dict_word":      "0",
	"language_model_penalty_non_freq_dict_word": "0",
}

// Engine implements ocr.Recognizer and detection.BlockDetector.
type Engine struct {
	opts Options
	sem  *semaphore.Weighted
	log  *logrus.Entry

	configOnce sync.Once
	configPath string
	configErr  error
}

// New creates an Engine.
func New(opts Options, log *logrus.Entry) *Engine {
	if opts.MaxClients <= 0 {
		opts.MaxClients = runtime.GOMAXPROCS(0)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Engine{
		opts: opts,
		sem:  semaphore.NewWeighted(int64(opts.MaxClients)),
		log:  log.WithField("component", "tesseract"),
	}
}

// Close removes the files the engine created.
func (e *Engine) Close() error {
	if e.configPath == "" {
		return nil
	}
	if err := os.Remove(e.configPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove tesseract config: %w", err)
	}
	return nil
}

// Version returns the linked Tesseract version.
func Version() string {
	return gosseract.Version()
}

// Recognize implements ocr.Recognizer.
func (e *Engine) Recognize(ctx context.Context, req ocr.Request) (string, error) {
	img := req.Image
	if req.Region != nil {
		cropped, err := imgutil.CropNormalized(img, req.Region.Rect())
		if err != nil {
			return "", fmt.Errorf("failed to crop region: %w", err)
		}
		img = cropped
	}

	data, err := encodePNG(img)
	if err != nil {
		return "", err
	}

	langs := req.Languages
	if req.AutoDetect {
		langs = append(append([]string(nil), req.Languages...), e.opts.AutoLanguages...)
	}
	codes := LanguageCodes(langs)

	client, release, err := e.client(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	if err := client.SetLanguage(codes...); err != nil {
		return "", fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(pageSegMode(req.Config.Level)); err != nil {
		return "", fmt.Errorf("failed to set PSM: %w", err)
	}
	if err := e.configureCorrection(client, req.Config.LanguageCorrection); err != nil {
		return "", err
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	minHeight := int(req.Config.MinTextHeight * float64(img.Bounds().Dy()))
	if minHeight > 0 {
		boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
		if err == nil {
			return joinLines(boxes, minHeight), nil
		}
		e.log.WithError(err).Debug("Line boxes unavailable, using plain text")
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// DetectTextBlocks implements detection.BlockDetector using Tesseract's
// block-level layout analysis.
func (e *Engine) DetectTextBlocks(ctx context.Context, img image.Image) ([]detection.Box, error) {
	data, err := encodePNG(img)
	if err != nil {
		return nil, err
	}

	client, release, err := e.client(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := client.SetLanguage(LanguageCodes(e.opts.AutoLanguages)...); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return nil, fmt.Errorf("failed to set PSM: %w", err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	blocks, err := client.GetBoundingBoxes(gosseract.RIL_BLOCK)
	if err != nil {
		return nil, fmt.Errorf("failed to get text blocks: %w", err)
	}

	bounds := img.Bounds()
	boxes := make([]detection.Box, 0, len(blocks))
	for _, b := range blocks {
		if strings.TrimSpace(b.Word) == "" {
			continue
		}
		r := b.Box.Add(bounds.Min).Intersect(bounds)
		if r.Empty() {
			continue
		}
		boxes = append(boxes, detection.BoxFromPixels(r, bounds))
	}
	return boxes, nil
}

// configureCorrection switches the word dictionaries off unless correction
// is wanted. It must run before the client's first recognition, which is
// when gosseract initializes Tesseract.
func (e *Engine) configureCorrection(client *gosseract.Client, correction bool) error {
	if correction {
		return nil
	}
	path, err := e.dictionaryOffConfigFile()
	if err != nil {
		return err
	}
	if err := client.SetConfigFile(path); err != nil {
		return fmt.Errorf("failed to set config file: %w", err)
	}
	for key, value := range dictionaryOffVariables {
		if err := client.SetVariable(key, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}
	return nil
}

// dictionaryOffConfigFile writes dictionaryOffConfig to a temporary file
// once per engine and returns its path.
func (e *Engine) dictionaryOffConfigFile() (string, error) {
	e.configOnce.Do(func() {
		f, err := os.CreateTemp("", "screen-ocr-*.tessconfig")
		if err != nil {
			e.configErr = fmt.Errorf("failed to create tesseract config: %w", err)
			return
		}
		defer f.Close()
		if _, err := f.WriteString(dictionaryOffConfig); err != nil {
			os.Remove(f.Name())
			e.configErr = fmt.Errorf("failed to write tesseract config: %w", err)
			return
		}
		e.configPath = f.Name()
	})
	return e.configPath, e.configErr
}

// client acquires a slot and returns a fresh, configured client together
// with the function that releases both.
func (e *Engine) client(ctx context.Context) (*gosseract.Client, func(), error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, nil, err
	}
	client := gosseract.NewClient()
	release := func() {
		client.Close()
		e.sem.Release(1)
	}
	if e.opts.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(e.opts.TessdataPrefix); err != nil {
			release()
			return nil, nil, fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}
	return client, release, nil
}

func pageSegMode(l ocr.Level) gosseract.PageSegMode {
	if l == ocr.Accurate {
		return gosseract.PSM_AUTO
	}
	return gosseract.PSM_SINGLE_BLOCK
}

// joinLines keeps the text lines at least minHeight pixels tall.
func joinLines(boxes []gosseract.BoundingBox, minHeight int) string {
	var lines []string
	for _, b := range boxes {
		if b.Box.Dy() < minHeight {
			continue
		}
		if line := strings.TrimSpace(b.Word); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func encodePNG(img image.Image) ([]byte, error) {
	if err := imgutil.Validate(img); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// traineddata names that differ from the ISO 639-3 code of the base language.
var specialCodes = map[string]string{
	"zh-Hans": "chi_sim",
	"zh-Hant": "chi_tra",
	"sr-Latn": "srp_latn",
	"uz-Cyrl": "uzb_cyrl",
	"az-Cyrl": "aze_cyrl",
}

// LanguageCodes maps BCP-47 tags to Tesseract language names, dropping
// duplicates and unparsable tags. An empty result selects English.
func LanguageCodes(tags []string) []string {
	seen := make(map[string]bool)
	var codes []string
	for _, t := range tags {
		code, ok := languageCode(t)
		if !ok || seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
	}
	if len(codes) == 0 {
		return []string{"eng"}
	}
	return codes
}

func languageCode(tag string) (string, bool) {
	t, err := language.Parse(tag)
	if err != nil {
		return "", false
	}
	base, _ := t.Base()
	script, _ := t.Script()
	if code, ok := specialCodes[base.String()+"-"+script.String()]; ok {
		return code, true
	}
	iso3 := base.ISO3()
	if iso3 == "" || iso3 == "und" {
		return "", false
	}
	return iso3, true
}
