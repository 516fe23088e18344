package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// Schema fragments shared by several tools.
var (
	pathProperty = map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
	accuracyProperty = map[string]interface{}{
		"type":        "string",
		"enum":        []string{"standard", "high"},
		"description": "standard is faster; high adds upscaled variants for small text. Default from server configuration",
	}
	languageProperty = map[string]interface{}{
		"type":        "string",
		"description": "auto, system, english, russian, or a BCP-47 tag such as de-DE. Default auto",
	}
)

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "ocr_image",
			Description: "Recognize the text in a screenshot or image file. Runs several enhanced variants of the image through the OCR engine and returns the best result.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":     pathProperty,
					"accuracy": accuracyProperty,
					"language": languageProperty,
					"x1": map[string]interface{}{
						"type":        "integer",
						"description": "Optional crop: left edge X coordinate in pixels (0-based)",
					},
					"y1": map[string]interface{}{
						"type":        "integer",
						"description": "Optional crop: top edge Y coordinate in pixels (0-based)",
					},
					"x2": map[string]interface{}{
						"type":        "integer",
						"description": "Optional crop: right edge X coordinate (exclusive)",
					},
					"y2": map[string]interface{}{
						"type":        "integer",
						"description": "Optional crop: bottom edge Y coordinate (exclusive)",
					},
					"retry": map[string]interface{}{
						"type":        "boolean",
						"description": "Retry at high accuracy when a standard run finds nothing. Default true",
						"default":     true,
					},
					"details": map[string]interface{}{
						"type":        "boolean",
						"description": "Include per-candidate results and timing. Default false",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "ocr_capture_region",
			Description: "Recognize the text under a screen selection. The selection is given in screen points and is clipped to the display; the screenshot supplies the pixels. Repeated calls within the debounce window or while a capture is running are rejected.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to a full screenshot of the display",
					},
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "Selection left edge in screen points",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Selection top edge in screen points",
					},
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Selection width in points. Selections of 10 points or less are ignored",
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Selection height in points. Selections of 10 points or less are ignored",
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Pixels per point of the display (2 on HiDPI screens). Default 1.0",
						"default":     1.0,
					},
					"display_x": map[string]interface{}{
						"type":        "integer",
						"description": "Display origin X in screen points. Default 0",
					},
					"display_y": map[string]interface{}{
						"type":        "integer",
						"description": "Display origin Y in screen points. Default 0",
					},
					"accuracy": accuracyProperty,
					"language": languageProperty,
				},
				"required": []string{"path", "x", "y", "width", "height"},
			},
		},
		{
			Name:        "ocr_pdf",
			Description: "Recognize the text of a scanned PDF. The images embedded in each page are run through OCR; page texts are separated by \"--- Page N ---\" lines.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the PDF file",
					},
					"accuracy": accuracyProperty,
					"language": languageProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "ocr_detect_regions",
			Description: "Find text blocks in an image without recognizing them. Returns up to 24 normalized rectangles (0-1, top-left origin) in reading order.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "ocr_candidates",
			Description: "List the image variants that OCR would try, in order, with their sizes. Useful to understand why text was or was not found.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":     pathProperty,
					"accuracy": accuracyProperty,
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
