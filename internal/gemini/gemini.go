// Package gemini implements the recognizer interface on top of the Gemini
// multimodal models.
//
// The fast recognition level uses a lighter model than the accurate one. The
// model is asked for a verbatim transcription, one screen line per output
// line; language hints and the minimum text height are passed in the prompt.
package gemini

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/generative-ai-go/genai"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	imgutil "github.com/ironsheep/screen-ocr/internal/imaging"
	"github.com/ironsheep/screen-ocr/internal/ocr"
)

// noText is the answer the model is told to give for an image without text.
const noText = "NO_TEXT"

const maxAttempts = 3

// Options configures the engine.
type Options struct {
	APIKey    string
	Model     string
	FastModel string
}

// Engine implements ocr.Recognizer.
type Engine struct {
	client    *genai.Client
	model     string
	fastModel string
	log       *logrus.Entry
}

// New connects to the Gemini API.
func New(ctx context.Context, opts Options, log *logrus.Entry) (*Engine, error) {
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil, errors.New("GEMINI_API_KEY is empty")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		return nil, errors.New("gemini: model is required")
	}
	fast := strings.TrimSpace(opts.FastModel)
	if fast == "" {
		fast = model
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(key))
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Engine{
		client:    cl,
		model:     model,
		fastModel: fast,
		log:       log.WithField("component", "gemini"),
	}, nil
}

// Close releases the API client.
func (e *Engine) Close() error {
	return e.client.Close()
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
	if err := imgutil.Validate(img); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	name := e.modelFor(req.Config.Level)
	m := e.client.GenerativeModel(name)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature: ptrFloat32(0),
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	parts := []genai.Part{
		genai.Text(userPrompt(req, img.Bounds())),
		&genai.Blob{MIMEType: "image/png", Data: buf.Bytes()},
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := m.GenerateContent(ctx, parts...)
		if err == nil {
			return cleanResponse(firstText(resp)), nil
		}
		lastErr = err
		e.log.WithError(err).WithFields(logrus.Fields{
			"model":   name,
			"attempt": attempt,
		}).Debug("Gemini request failed")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Duration(attempt) * 300 * time.Millisecond):
		}
	}
	return "", fmt.Errorf("gemini: %w", lastErr)
}

func (e *Engine) modelFor(l ocr.Level) string {
	if l == ocr.Accurate {
		return e.model
	}
	return e.fastModel
}

const systemPrompt = `You are a text recognition engine for screenshots.
Transcribe the text visible in the image exactly as shown, one screen line per output line, top to bottom.
Do not translate, summarize, explain or add formatting. Do not wrap the answer in code fences.
If there is no readable text, answer exactly ` + noText + `.`

// userPrompt describes the per-request options to the model.
func userPrompt(req ocr.Request, bounds image.Rectangle) string {
	var b strings.Builder
	b.WriteString("Transcribe the text in this image.")

	if len(req.Languages) > 0 {
		if req.AutoDetect {
			fmt.Fprintf(&b, " The text is probably in one of: %s, but detect the language yourself.", strings.Join(req.Languages, ", "))
		} else {
			fmt.Fprintf(&b, " The text is in: %s.", strings.Join(req.Languages, ", "))
		}
	}
	if req.Config.LanguageCorrection {
		b.WriteString(" Fix obvious recognition errors in ordinary words.")
	} else {
		b.WriteString(" Do not correct spelling; keep identifiers, codes and numbers exactly as shown.")
	}
	if px := int(req.Config.MinTextHeight * float64(bounds.Dy())); px > 1 {
		fmt.Fprintf(&b, " Ignore text smaller than %d pixels in height.", px)
	}
	return b.String()
}

// cleanResponse strips code fences and the no-text marker.
func cleanResponse(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		} else {
			s = ""
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	if s == noText {
		return ""
	}
	return s
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
