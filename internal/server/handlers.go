package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/ironsheep/screen-ocr/internal/capture"
	"github.com/ironsheep/screen-ocr/internal/detection"
	"github.com/ironsheep/screen-ocr/internal/imaging"
	"github.com/ironsheep/screen-ocr/internal/ocr"
	"github.com/ironsheep/screen-ocr/internal/pdf"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "ocr_image").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.log.WithError(err).WithField("tool", params.Name).Warn("Tool execution failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	if s.service == nil {
		return nil, errors.New("OCR service not configured")
	}
	switch name {
	case "ocr_image":
		return s.handleOCRImage(ctx, args)
	case "ocr_capture_region":
		return s.handleOCRCaptureRegion(ctx, args)
	case "ocr_pdf":
		return s.handleOCRPDF(ctx, args)
	case "ocr_detect_regions":
		return s.handleOCRDetectRegions(ctx, args)
	case "ocr_candidates":
		return s.handleOCRCandidates(ctx, args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// options resolves the accuracy and language arguments against the
// server defaults.
func (s *Server) options(accuracy, language string) (ocr.Options, error) {
	opts := s.defaults
	if accuracy != "" {
		m, err := ocr.ParseAccuracyMode(accuracy)
		if err != nil {
			return opts, err
		}
		opts.Accuracy = m
	}
	if language != "" {
		l, err := ocr.ParseLanguageMode(language)
		if err != nil {
			return opts, err
		}
		opts.Language = l
	}
	return opts, nil
}

func (s *Server) load(path string) (image.Image, error) {
	if path == "" {
		return nil, errors.New("path is required")
	}
	return s.cache.Load(path)
}

// === OCR Handlers ===

type ocrImageArgs struct {
	Path     string `json:"path"`
	Accuracy string `json:"accuracy"`
	Language string `json:"language"`
	X1       *int   `json:"x1"`
	Y1       *int   `json:"y1"`
	X2       *int   `json:"x2"`
	Y2       *int   `json:"y2"`
	Retry    *bool  `json:"retry"`
	Details  bool   `json:"details"`
}

// crop returns the requested crop rectangle, or false when none was given.
func (a ocrImageArgs) crop() (image.Rectangle, bool, error) {
	set := 0
	for _, p := range []*int{a.X1, a.Y1, a.X2, a.Y2} {
		if p != nil {
			set++
		}
	}
	switch set {
	case 0:
		return image.Rectangle{}, false, nil
	case 4:
		return image.Rect(*a.X1, *a.Y1, *a.X2, *a.Y2), true, nil
	}
	return image.Rectangle{}, false, errors.New("crop needs all of x1, y1, x2, y2")
}

// OCRResult is the answer of ocr_image and ocr_capture_region.
type OCRResult struct {
	// Text is the recognized text; empty when nothing was found.
	Text  string `json:"text"`
	Found bool   `json:"found"`

	Label    string `json:"label,omitempty"`
	Accuracy string `json:"accuracy"`
	Strong   bool   `json:"strong"`
	Retried  bool   `json:"retried,omitempty"`

	// Cancelled is set when the selection was too small to be deliberate.
	Cancelled bool `json:"cancelled,omitempty"`

	Details *ocr.Result `json:"details,omitempty"`
}

func newOCRResult(res *ocr.Result, details bool) *OCRResult {
	text := strings.TrimSpace(res.Text)
	out := &OCRResult{
		Text:     text,
		Found:    text != "",
		Label:    res.Label,
		Accuracy: res.Accuracy,
		Strong:   res.Strong,
		Retried:  res.Retried,
	}
	if details {
		out.Details = res
	}
	return out
}

func (s *Server) handleOCRImage(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a ocrImageArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	opts, err := s.options(a.Accuracy, a.Language)
	if err != nil {
		return nil, err
	}
	img, err := s.load(a.Path)
	if err != nil {
		return nil, err
	}

	rect, ok, err := a.crop()
	if err != nil {
		return nil, err
	}
	if ok {
		cropped, err := imaging.Crop(img, rect)
		if err != nil {
			return nil, err
		}
		img = cropped
	}

	var res *ocr.Result
	if a.Retry == nil || *a.Retry {
		res, err = s.service.RunWithRetry(ctx, img, opts)
	} else {
		res, err = s.service.Run(ctx, img, opts)
	}
	if err != nil {
		return nil, err
	}
	return newOCRResult(res, a.Details), nil
}

type ocrCaptureRegionArgs struct {
	Path     string  `json:"path"`
	X        int     `json:"x"`
	Y        int     `json:"y"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Scale    float64 `json:"scale"`
	DisplayX int     `json:"display_x"`
	DisplayY int     `json:"display_y"`
	Accuracy string  `json:"accuracy"`
	Language string  `json:"language"`
}

func (s *Server) handleOCRCaptureRegion(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a ocrCaptureRegionArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	opts, err := s.options(a.Accuracy, a.Language)
	if err != nil {
		return nil, err
	}
	screen, err := s.load(a.Path)
	if err != nil {
		return nil, err
	}

	sb := screen.Bounds()
	origin := image.Pt(a.DisplayX, a.DisplayY)
	src := &capture.ImageCapturer{
		Screen: screen,
		Display: capture.Display{
			Bounds: image.Rectangle{
				Min: origin,
				Max: origin.Add(image.Pt(int(float64(sb.Dx())/a.Scale), int(float64(sb.Dy())/a.Scale))),
			},
			Scale: a.Scale,
		},
	}
	selection := image.Rect(a.X, a.Y, a.X+a.Width, a.Y+a.Height)

	res, err := s.controller.CaptureFrom(ctx, src, selection, opts)
	if errors.Is(err, capture.ErrSelectionTooSmall) {
		return &OCRResult{Accuracy: opts.Accuracy.String(), Cancelled: true}, nil
	}
	if err != nil {
		return nil, err
	}
	return newOCRResult(res, false), nil
}

type ocrPDFArgs struct {
	Path     string `json:"path"`
	Accuracy string `json:"accuracy"`
	Language string `json:"language"`
}

// PDFResult is the answer of ocr_pdf.
type PDFResult struct {
	Text          string `json:"text"`
	Found         bool   `json:"found"`
	Pages         int    `json:"pages"`
	PagesWithText int    `json:"pages_with_text"`
	Accuracy      string `json:"accuracy"`
}

func (s *Server) handleOCRPDF(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a ocrPDFArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	opts, err := s.options(a.Accuracy, a.Language)
	if err != nil {
		return nil, err
	}
	res, err := pdf.ExtractText(ctx, s.service, a.Path, opts, s.log)
	if err != nil {
		return nil, err
	}
	return &PDFResult{
		Text:          res.Text,
		Found:         res.Text != "",
		Pages:         res.Pages,
		PagesWithText: res.PagesWithText,
		Accuracy:      opts.Accuracy.String(),
	}, nil
}

type pathArgs struct {
	Path     string `json:"path"`
	Accuracy string `json:"accuracy"`
}

// DetectRegionsResult is the answer of ocr_detect_regions.
type DetectRegionsResult struct {
	Regions []detection.Region `json:"regions"`
	Count   int                `json:"count"`
	Width   int                `json:"width"`
	Height  int                `json:"height"`
}

func (s *Server) handleOCRDetectRegions(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.load(a.Path)
	if err != nil {
		return nil, err
	}
	analysis, err := s.service.Analyze(ctx, img, ocr.Standard)
	if err != nil {
		return nil, err
	}
	regions := analysis.Regions
	if regions == nil {
		regions = []detection.Region{}
	}
	dims := imaging.Dimensions(img)
	return &DetectRegionsResult{
		Regions: regions,
		Count:   len(regions),
		Width:   dims.Width,
		Height:  dims.Height,
	}, nil
}

// CandidateInfo describes one rendered variant.
type CandidateInfo struct {
	Label   string   `json:"label"`
	Width   int      `json:"width"`
	Height  int      `json:"height"`
	Skipped []string `json:"skipped_stages,omitempty"`
}

// CandidatesResult is the answer of ocr_candidates.
type CandidatesResult struct {
	Accuracy       string          `json:"accuracy"`
	Candidates     []CandidateInfo `json:"candidates"`
	Luminance      float64         `json:"luminance"`
	PreferInverted bool            `json:"prefer_inverted"`
	Scale          float64         `json:"scale"`
	Enhanced       bool            `json:"enhanced"`
	RegionCount    int             `json:"region_count"`
}

func (s *Server) handleOCRCandidates(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	opts, err := s.options(a.Accuracy, "")
	if err != nil {
		return nil, err
	}
	img, err := s.load(a.Path)
	if err != nil {
		return nil, err
	}
	analysis, err := s.service.Analyze(ctx, img, opts.Accuracy)
	if err != nil {
		return nil, err
	}

	set := analysis.Set
	infos := make([]CandidateInfo, len(set.Candidates))
	for i, c := range set.Candidates {
		d := imaging.Dimensions(c.Image)
		infos[i] = CandidateInfo{Label: c.Label, Width: d.Width, Height: d.Height, Skipped: c.Skipped}
	}
	return &CandidatesResult{
		Accuracy:       opts.Accuracy.String(),
		Candidates:     infos,
		Luminance:      set.Luminance,
		PreferInverted: set.PreferInverted,
		Scale:          analysis.Prepared.Scale,
		Enhanced:       analysis.Prepared.Enhanced,
		RegionCount:    len(analysis.Regions),
	}, nil
}
