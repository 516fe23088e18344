package gemini

import (
	"context"
	"image"
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"

	"github.com/ironsheep/screen-ocr/internal/ocr"
)

func TestNew_RequiresKeyAndModel(t *testing.T) {
	if _, err := New(context.Background(), Options{Model: "m"}, nil); err == nil {
		t.Error("missing API key should fail")
	}
	if _, err := New(context.Background(), Options{APIKey: "k"}, nil); err == nil {
		t.Error("missing model should fail")
	}
}

func TestModelFor(t *testing.T) {
	e := &Engine{model: "pro", fastModel: "flash"}
	if e.modelFor(ocr.Accurate) != "pro" {
		t.Error("accurate level should use the main model")
	}
	if e.modelFor(ocr.Fast) != "flash" {
		t.Error("fast level should use the fast model")
	}
}

func TestUserPrompt(t *testing.T) {
	bounds := image.Rect(0, 0, 400, 1000)

	tests := []struct {
		name    string
		req     ocr.Request
		want    []string
		notWant []string
	}{
		{
			name: "fixed languages without correction",
			req: ocr.Request{
				Languages: []string{"ru-RU"},
				Config:    ocr.RecognitionConfig{MinTextHeight: 0.006},
			},
			want:    []string{"The text is in: ru-RU.", "Do not correct spelling", "smaller than 6 pixels"},
			notWant: []string{"detect the language"},
		},
		{
			name: "auto detect with correction",
			req: ocr.Request{
				Languages:  []string{"en-US", "ru-RU"},
				AutoDetect: true,
				Config:     ocr.RecognitionConfig{LanguageCorrection: true},
			},
			want:    []string{"one of: en-US, ru-RU", "detect the language yourself", "Fix obvious"},
			notWant: []string{"smaller than"},
		},
		{
			name:    "no hints",
			req:     ocr.Request{},
			want:    []string{"Transcribe the text"},
			notWant: []string{"The text is in", "one of"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := userPrompt(tt.req, bounds)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("prompt %q should contain %q", got, w)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(got, w) {
					t.Errorf("prompt %q should not contain %q", got, w)
				}
			}
		})
	}
}

func TestCleanResponse(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Hello\nWorld \n", "Hello\nWorld"},
		{"```\nline one\nline two\n```", "line one\nline two"},
		{"```text\nПривет\n```", "Привет"},
		{"NO_TEXT", ""},
		{"```\nNO_TEXT\n```", ""},
		{"```", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := cleanResponse(tt.in); got != tt.want {
			t.Errorf("cleanResponse(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFirstText(t *testing.T) {
	if firstText(nil) != "" {
		t.Error("nil response should give empty text")
	}
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: nil},
			{Content: &genai.Content{Parts: []genai.Part{
				&genai.Blob{MIMEType: "image/png"},
				genai.Text("found"),
			}}},
		},
	}
	if got := firstText(resp); got != "found" {
		t.Errorf("firstText: got %q", got)
	}
}
