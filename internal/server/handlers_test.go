package server

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// createTestImageFile writes a PNG with dark bars on a light background,
// roughly the shape of text lines, and returns its path.
func createTestImageFile(t *testing.T, width, height int, bg, fg color.Color) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "handler-test.png")
	writeTestImage(t, path, width, height, bg, fg)
	return path
}

// writeTestImage (re)writes the bar image at path.
func writeTestImage(t *testing.T, path string, width, height int, bg, fg color.Color) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, bg)
		}
	}
	for y := height / 3; y < height/3+height/6; y++ {
		for x := width / 10; x < width*9/10; x++ {
			if (x/4)%3 != 0 {
				img.Set(x, y, fg)
			}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
}

// callTool runs a tools/call request and decodes the JSON text content
// into out. It returns the MCP error, if any.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}, out interface{}) *MCPError {
	t.Helper()

	params, _ := json.Marshal(map[string]interface{}{
		"name":      name,
		"arguments": args,
	})
	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  params,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil {
		return resp.Error
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("unexpected content %v", result["content"])
	}
	text, _ := content[0]["text"].(string)
	if err := json.Unmarshal([]byte(text), out); err != nil {
		t.Fatalf("tool result is not JSON: %v\n%s", err, text)
	}
	return nil
}

func TestOCRImage(t *testing.T) {
	s, _ := newTestServer(t, "Hello World from the screen")
	path := createTestImageFile(t, 300, 120, color.White, color.Black)

	var res OCRResult
	if mcpErr := callTool(t, s, "ocr_image", map[string]interface{}{"path": path}, &res); mcpErr != nil {
		t.Fatalf("unexpected error: %+v", mcpErr)
	}
	if res.Text != "Hello World from the screen" || !res.Found {
		t.Errorf("unexpected result %+v", res)
	}
	if !res.Strong {
		t.Error("a long alphabetic answer should be strong")
	}
	if res.Accuracy != "standard" {
		t.Errorf("accuracy: got %q", res.Accuracy)
	}
	if res.Details != nil {
		t.Error("details should be omitted unless requested")
	}
}

func TestOCRImage_Details(t *testing.T) {
	s, _ := newTestServer(t, "Settings")
	path := createTestImageFile(t, 300, 120, color.White, color.Black)

	var res OCRResult
	args := map[string]interface{}{"path": path, "accuracy": "high", "details": true}
	if mcpErr := callTool(t, s, "ocr_image", args, &res); mcpErr != nil {
		t.Fatalf("unexpected error: %+v", mcpErr)
	}
	if res.Details == nil {
		t.Fatal("details requested but missing")
	}
	if res.Details.Session == "" || len(res.Details.Candidates) == 0 {
		t.Errorf("incomplete details %+v", res.Details)
	}
	if res.Accuracy != "high" {
		t.Errorf("accuracy: got %q", res.Accuracy)
	}
}

func TestOCRImage_RetryAtHigh(t *testing.T) {
	path := createTestImageFile(t, 300, 120, color.White, color.Black)

	s, _ := newTestServer(t, "")
	var res OCRResult
	if mcpErr := callTool(t, s, "ocr_image", map[string]interface{}{"path": path}, &res); mcpErr != nil {
		t.Fatalf("unexpected error: %+v", mcpErr)
	}
	if res.Found || !res.Retried || res.Accuracy != "high" {
		t.Errorf("empty standard run should retry at high: %+v", res)
	}

	var noRetry OCRResult
	args := map[string]interface{}{"path": path, "retry": false}
	if mcpErr := callTool(t, s, "ocr_image", args, &noRetry); mcpErr != nil {
		t.Fatalf("unexpected error: %+v", mcpErr)
	}
	if noRetry.Retried || noRetry.Accuracy != "standard" {
		t.Errorf("retry disabled: %+v", noRetry)
	}
}

func TestOCRImage_Crop(t *testing.T) {
	s, _ := newTestServer(t, "Cropped")
	path := createTestImageFile(t, 300, 120, color.White, color.Black)

	var res OCRResult
	args := map[string]interface{}{"path": path, "x1": 10, "y1": 10, "x2": 200, "y2": 100}
	if mcpErr := callTool(t, s, "ocr_image", args, &res); mcpErr != nil {
		t.Fatalf("unexpected error: %+v", mcpErr)
	}
	if res.Text != "Cropped" {
		t.Errorf("text: got %q", res.Text)
	}
}

func TestOCRImage_Errors(t *testing.T) {
	s, _ := newTestServer(t, "x")
	path := createTestImageFile(t, 100, 50, color.White, color.Black)

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"missing path", map[string]interface{}{}},
		{"nonexistent file", map[string]interface{}{"path": "/nonexistent/path/image.png"}},
		{"bad accuracy", map[string]interface{}{"path": path, "accuracy": "extreme"}},
		{"bad language", map[string]interface{}{"path": path, "language": "not a language!"}},
		{"partial crop", map[string]interface{}{"path": path, "x1": 1, "y1": 1}},
		{"crop outside", map[string]interface{}{"path": path, "x1": 50, "y1": 10, "x2": 500, "y2": 40}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res OCRResult
			mcpErr := callTool(t, s, "ocr_image", tt.args, &res)
			if mcpErr == nil {
				t.Fatal("expected an error")
			}
			if mcpErr.Code != -32000 {
				t.Errorf("code: got %d, want -32000", mcpErr.Code)
			}
		})
	}
}

func TestOCRCaptureRegion(t *testing.T) {
	s, rec := newTestServer(t, "Captured text here")
	path := createTestImageFile(t, 400, 200, color.White, color.Black)

	var res OCRResult
	args := map[string]interface{}{
		"path": path, "x": 10, "y": 20, "width": 80, "height": 40, "scale": 2,
	}
	if mcpErr := callTool(t, s, "ocr_capture_region", args, &res); mcpErr != nil {
		t.Fatalf("unexpected error: %+v", mcpErr)
	}
	if res.Text != "Captured text here" {
		t.Errorf("text: got %q", res.Text)
	}
	if rec.calls == 0 {
		t.Error("recognizer was not called")
	}
}

func TestOCRCaptureRegion_TooSmall(t *testing.T) {
	s, rec := newTestServer(t, "never")
	path := createTestImageFile(t, 400, 200, color.White, color.Black)

	var res OCRResult
	args := map[string]interface{}{"path": path, "x": 10, "y": 20, "width": 8, "height": 40}
	if mcpErr := callTool(t, s, "ocr_capture_region", args, &res); mcpErr != nil {
		t.Fatalf("unexpected error: %+v", mcpErr)
	}
	if !res.Cancelled || res.Found {
		t.Errorf("tiny selection should be cancelled: %+v", res)
	}
	if rec.calls != 0 {
		t.Error("recognizer must not run for a cancelled selection")
	}
}

func TestOCRCaptureRegion_OutsideDisplay(t *testing.T) {
	s, _ := newTestServer(t, "x")
	path := createTestImageFile(t, 400, 200, color.White, color.Black)

	var res OCRResult
	args := map[string]interface{}{"path": path, "x": 1000, "y": 1000, "width": 80, "height": 40}
	mcpErr := callTool(t, s, "ocr_capture_region", args, &res)
	if mcpErr == nil {
		t.Fatal("expected an error")
	}
	if data, _ := mcpErr.Data.(string); !strings.Contains(data, "invalid capture rectangle") {
		t.Errorf("error data: got %v", mcpErr.Data)
	}
}

func TestOCRDetectRegions(t *testing.T) {
	s, _ := newTestServer(t, "x")
	path := createTestImageFile(t, 300, 120, color.White, color.Black)

	var res DetectRegionsResult
	if mcpErr := callTool(t, s, "ocr_detect_regions", map[string]interface{}{"path": path}, &res); mcpErr != nil {
		t.Fatalf("unexpected error: %+v", mcpErr)
	}
	// The test server has no block detector.
	if res.Count != 0 || res.Regions == nil {
		t.Errorf("expected an empty region list, got %+v", res)
	}
	if res.Width != 300 || res.Height != 120 {
		t.Errorf("dimensions: got %dx%d", res.Width, res.Height)
	}
}

func TestOCRDetectRegions_FileOverwritten(t *testing.T) {
	s, _ := newTestServer(t, "x")
	path := createTestImageFile(t, 300, 120, color.White, color.Black)

	var first, second DetectRegionsResult
	if mcpErr := callTool(t, s, "ocr_detect_regions", map[string]interface{}{"path": path}, &first); mcpErr != nil {
		t.Fatalf("unexpected error: %+v", mcpErr)
	}

	writeTestImage(t, path, 640, 480, color.White, color.Black)
	later := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}

	if mcpErr := callTool(t, s, "ocr_detect_regions", map[string]interface{}{"path": path}, &second); mcpErr != nil {
		t.Fatalf("unexpected error: %+v", mcpErr)
	}
	if first.Width != 300 || first.Height != 120 {
		t.Errorf("first call: got %dx%d, want 300x120", first.Width, first.Height)
	}
	if second.Width != 640 || second.Height != 480 {
		t.Errorf("second call: got %dx%d, want 640x480 from the rewritten capture", second.Width, second.Height)
	}
}

func TestOCRImage_WhitespaceIsNotFound(t *testing.T) {
	s, _ := newTestServer(t, " \n\t ")
	path := createTestImageFile(t, 300, 120, color.White, color.Black)

	var res OCRResult
	if mcpErr := callTool(t, s, "ocr_image", map[string]interface{}{"path": path}, &res); mcpErr != nil {
		t.Fatalf("unexpected error: %+v", mcpErr)
	}
	if res.Found || res.Text != "" {
		t.Errorf("whitespace-only recognition should not count as found: %+v", res)
	}
}

// createTestPDFFile embeds one bar image per page into a new PDF.
func createTestPDFFile(t *testing.T, pages int) string {
	t.Helper()
	var images []string
	for i := 0; i < pages; i++ {
		images = append(images, createTestImageFile(t, 300, 120, color.White, color.Black))
	}
	api.DisableConfigDir()
	out := filepath.Join(t.TempDir(), "scan.pdf")
	if err := api.ImportImagesFile(images, out, pdfcpu.DefaultImportConfig(), model.NewDefaultConfiguration()); err != nil {
		t.Fatalf("failed to build PDF: %v", err)
	}
	return out
}

func TestOCRPDF(t *testing.T) {
	s, _ := newTestServer(t, "Quarterly report")
	path := createTestPDFFile(t, 2)

	var res PDFResult
	if mcpErr := callTool(t, s, "ocr_pdf", map[string]interface{}{"path": path}, &res); mcpErr != nil {
		t.Fatalf("unexpected error: %+v", mcpErr)
	}
	want := "Quarterly report\n\n--- Page 2 ---\n\nQuarterly report"
	if res.Text != want || !res.Found {
		t.Errorf("text: got %q, want %q", res.Text, want)
	}
	if res.Pages != 2 || res.PagesWithText != 2 {
		t.Errorf("pages: got %d/%d", res.PagesWithText, res.Pages)
	}
}

func TestOCRPDF_Errors(t *testing.T) {
	s, _ := newTestServer(t, "x")
	pngPath := createTestImageFile(t, 40, 40, color.White, color.Black)

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"missing path", map[string]interface{}{}},
		{"not a pdf", map[string]interface{}{"path": pngPath}},
		{"bad accuracy", map[string]interface{}{"path": pngPath, "accuracy": "max"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res PDFResult
			if mcpErr := callTool(t, s, "ocr_pdf", tt.args, &res); mcpErr == nil || mcpErr.Code != -32000 {
				t.Errorf("expected a tool error, got %+v", mcpErr)
			}
		})
	}
}

func TestOCRCandidates(t *testing.T) {
	s, rec := newTestServer(t, "x")
	light := createTestImageFile(t, 300, 120, color.White, color.Black)

	var standard, high CandidatesResult
	if mcpErr := callTool(t, s, "ocr_candidates", map[string]interface{}{"path": light}, &standard); mcpErr != nil {
		t.Fatalf("unexpected error: %+v", mcpErr)
	}
	if mcpErr := callTool(t, s, "ocr_candidates", map[string]interface{}{"path": light, "accuracy": "high"}, &high); mcpErr != nil {
		t.Fatalf("unexpected error: %+v", mcpErr)
	}

	if len(standard.Candidates) == 0 || len(high.Candidates) < len(standard.Candidates) {
		t.Errorf("candidate counts: standard=%d high=%d", len(standard.Candidates), len(high.Candidates))
	}
	last := standard.Candidates[len(standard.Candidates)-1]
	if last.Label != "original" || last.Width != 300 || last.Height != 120 {
		t.Errorf("last candidate should be the original image, got %+v", last)
	}
	if standard.PreferInverted {
		t.Error("light capture should not prefer inverted candidates")
	}
	if rec.calls != 0 {
		t.Error("listing candidates must not run recognition")
	}
}

func TestHandleToolsCall_UnknownTool(t *testing.T) {
	s, _ := newTestServer(t, "x")
	var out map[string]interface{}
	mcpErr := callTool(t, s, "image_crop", map[string]interface{}{}, &out)
	if mcpErr == nil || mcpErr.Code != -32000 {
		t.Fatalf("expected tool error, got %+v", mcpErr)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s, _ := newTestServer(t, "x")
	resp := s.handleToolsCall(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Params:  json.RawMessage(`{"name": 5}`),
	})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("expected invalid params error, got %+v", resp.Error)
	}
}

func TestHandleToolsCall_NoService(t *testing.T) {
	s := New(nil, Options{}, quietLog())
	var out map[string]interface{}
	if mcpErr := callTool(t, s, "ocr_image", map[string]interface{}{"path": "x"}, &out); mcpErr == nil {
		t.Error("expected an error without a service")
	}
}
