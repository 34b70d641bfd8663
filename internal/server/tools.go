package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var docTypeEnum = []string{"invoice", "receipt", "shift_report", "lottery_report", "id", "unknown"}

// imageProperties returns the image input properties shared by every
// single-image tool, merged with extra.
func imageProperties(extra map[string]interface{}) map[string]interface{} {
	props := map[string]interface{}{
		"path": map[string]interface{}{
			"type":        "string",
			"description": "Absolute path to the image file. Either path or image_base64 is required.",
		},
		"image_base64": map[string]interface{}{
			"type":        "string",
			"description": "Base64-encoded image bytes (JPEG, PNG, GIF, BMP, TIFF or WebP)",
		},
	}
	for k, v := range extra {
		props[k] = v
	}
	return props
}

func imageSchema(extra map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": imageProperties(extra),
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

var identityRecord = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"name":    map[string]interface{}{"type": "string", "description": "Full name, \"FIRST MIDDLE LAST\" or \"LAST, FIRST MIDDLE\""},
		"address": map[string]interface{}{"type": "string", "description": "Street, city, state and ZIP"},
		"dob":     map[string]interface{}{"type": "string", "description": "Date of birth"},
	},
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Page preparation
		{
			Name:        "document_assess_quality",
			Description: "Measure brightness, sharpness, contrast, skew and edge density of a page photo and return the enhancement plan the pipeline would apply.",
			InputSchema: imageSchema(nil),
		},
		{
			Name:        "document_normalize",
			Description: "Find the page in a photo, flatten its perspective, and fix skew, shadows and blur. Returns the normalized page as base64.",
			InputSchema: imageSchema(map[string]interface{}{
				"format": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"jpeg", "png"},
					"description": "Output format. Default jpeg",
					"default":     "jpeg",
				},
				"quality": map[string]interface{}{
					"type":        "integer",
					"description": "JPEG quality 1-100. Default 90",
					"default":     90,
				},
			}),
		},
		{
			Name:        "document_compress",
			Description: "Re-encode an image at the lowest JPEG quality that keeps its structural similarity (SSIM) at or above the target.",
			InputSchema: imageSchema(map[string]interface{}{
				"target_similarity": map[string]interface{}{
					"type":        "number",
					"description": "Minimum SSIM in (0, 1]. Default from configuration (0.98)",
				},
				"max_dimension": map[string]interface{}{
					"type":        "integer",
					"description": "Longest output side in pixels. Default from configuration (2048)",
				},
			}),
		},
		{
			Name:        "document_crop",
			Description: "Crop a rectangular region from a page and return it as base64-encoded PNG. Use this to zoom into a field that needs a closer look.",
			InputSchema: imageSchema(map[string]interface{}{
				"x1": map[string]interface{}{"type": "integer", "description": "Left edge X coordinate (0-based)"},
				"y1": map[string]interface{}{"type": "integer", "description": "Top edge Y coordinate (0-based)"},
				"x2": map[string]interface{}{"type": "integer", "description": "Right edge X coordinate (exclusive)"},
				"y2": map[string]interface{}{"type": "integer", "description": "Bottom edge Y coordinate (exclusive)"},
				"scale": map[string]interface{}{
					"type":        "number",
					"description": "Optional scale factor (e.g., 2.0 to double size). Default 1.0",
					"default":     1.0,
				},
			}, "x1", "y1", "x2", "y2"),
		},

		// Text and fields
		{
			Name:        "document_ocr",
			Description: "Normalize a page and read its text with Tesseract. Set words to get word boxes with confidences instead.",
			InputSchema: imageSchema(map[string]interface{}{
				"mode": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"auto", "block", "sparse", "single_column"},
					"description": "Page segmentation mode. Default auto",
					"default":     "auto",
				},
				"words": map[string]interface{}{
					"type":        "boolean",
					"description": "Return word boxes instead of plain text",
				},
			}),
		},
		{
			Name:        "document_extract_fields",
			Description: "Run one page through the full pipeline and return its structured fields, validation and routing trace. Low-confidence pages are sent to the vision extractor when one is configured.",
			InputSchema: imageSchema(map[string]interface{}{
				"doc_type": map[string]interface{}{
					"type":        "string",
					"enum":        docTypeEnum,
					"description": "Document type hint. Default unknown (classified from the text)",
				},
				"caller_id": map[string]interface{}{
					"type":        "string",
					"description": "Scopes cached results to one caller",
				},
			}),
		},

		// Documents
		{
			Name:        "document_process",
			Description: "Extract every page of a multi-page submission concurrently and merge pages that belong to the same document.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"pages": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": imageProperties(map[string]interface{}{
								"name": map[string]interface{}{"type": "string", "description": "Original file name"},
							}),
						},
						"description": "Pages in submission order",
					},
					"doc_type": map[string]interface{}{
						"type":        "string",
						"enum":        docTypeEnum,
						"description": "Document type hint applied to every page",
					},
					"caller_id": map[string]interface{}{
						"type":        "string",
						"description": "Scopes cached results to one caller",
					},
				},
				"required": []string{"pages"},
			},
		},
		{
			Name:        "document_merge_pages",
			Description: "Group already extracted page results into documents by invoice number, total, report date and vendor, and continuation pages.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"results": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "object"},
						"description": "Extraction results as returned by document_extract_fields",
					},
				},
				"required": []string{"results"},
			},
		},
		{
			Name:        "document_match_identity",
			Description: "Compare the name, address and date of birth of two identity records and recommend verified, review_required or rejected.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"a": identityRecord,
					"b": identityRecord,
					"fields": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string", "enum": []string{"name", "address", "dob"}},
						"description": "Fields to compare. Default all",
					},
				},
				"required": []string{"a", "b"},
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
