package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	perrors "github.com/sam02425/Document-Portal/internal/errors"
	"github.com/sam02425/Document-Portal/internal/extract"
	"github.com/sam02425/Document-Portal/internal/imaging"
	"github.com/sam02425/Document-Portal/internal/match"
	"github.com/sam02425/Document-Portal/internal/merge"
	"github.com/sam02425/Document-Portal/internal/ocr"
	"github.com/sam02425/Document-Portal/internal/pipeline"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "document_extract_fields").
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
// When the error is a classified *errors.Error its map form is the error
// data; otherwise the data is the error string.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("server.tool.failed", "tool", params.Name, "error", err)
		var perr *perrors.Error
		if errors.As(err, &perr) {
			return s.errorResponse(req.ID, -32000, "Tool execution failed", perr.ToMap())
		}
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}
	s.logger.Debug("server.tool.done", "tool", params.Name, "duration_ms", time.Since(start).Milliseconds())

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
	switch name {
	// Page preparation
	case "document_assess_quality":
		return s.handleAssessQuality(ctx, args)
	case "document_normalize":
		return s.handleNormalize(ctx, args)
	case "document_compress":
		return s.handleCompress(ctx, args)
	case "document_crop":
		return s.handleCrop(args)

	// Text and fields
	case "document_ocr":
		return s.handleOCR(ctx, args)
	case "document_extract_fields":
		return s.handleExtractFields(ctx, args)

	// Documents
	case "document_process":
		return s.handleProcess(ctx, args)
	case "document_merge_pages":
		return s.handleMergePages(args)
	case "document_match_identity":
		return s.handleMatchIdentity(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message string, data interface{}) *MCPResponse {
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
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return perrors.NewInputError("arguments", err)
	}
	return nil
}

// imageArgs locates one image by path or inline base64.
type imageArgs struct {
	Path        string `json:"path"`
	ImageBase64 string `json:"image_base64"`
}

func (a imageArgs) bytes() ([]byte, error) {
	switch {
	case a.Path != "" && a.ImageBase64 != "":
		return nil, perrors.NewInputError("load_image", fmt.Errorf("path and image_base64 are mutually exclusive"))
	case a.Path != "":
		data, err := os.ReadFile(a.Path)
		if err != nil {
			return nil, perrors.NewInputError("load_image", err)
		}
		return data, nil
	case a.ImageBase64 != "":
		// Tolerate data URLs pasted as-is.
		enc := a.ImageBase64
		if i := strings.Index(enc, ";base64,"); i >= 0 && strings.HasPrefix(enc, "data:") {
			enc = enc[i+len(";base64,"):]
		}
		data, err := base64.StdEncoding.DecodeString(enc)
		if err != nil {
			return nil, perrors.NewInputError("load_image", fmt.Errorf("invalid base64: %w", err))
		}
		return data, nil
	default:
		return nil, perrors.NewInputError("load_image", fmt.Errorf("path or image_base64 is required"))
	}
}

func (a imageArgs) name() string {
	if a.Path == "" {
		return ""
	}
	return a.Path[strings.LastIndexAny(a.Path, `/\`)+1:]
}

func parseDocType(s string) (extract.DocType, error) {
	t, err := extract.ParseDocType(s)
	if err != nil {
		return "", perrors.NewInputError("doc_type", err)
	}
	return t, nil
}

// === Page preparation ===

type qualityResult struct {
	Profile imaging.QualityProfile  `json:"profile"`
	Plan    imaging.EnhancementPlan `json:"plan"`
}

func (s *Server) handleAssessQuality(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	data, err := a.bytes()
	if err != nil {
		return nil, err
	}
	profile, err := s.pipeline.Assess(ctx, data)
	if err != nil {
		return nil, err
	}
	return qualityResult{Profile: profile, Plan: imaging.Plan(profile)}, nil
}

type normalizeArgs struct {
	imageArgs
	Format  string `json:"format"`
	Quality int    `json:"quality"`
}

type normalizeResult struct {
	pipeline.NormalizedImage
	Output *imaging.EncodedImage `json:"output"`
}

func (s *Server) handleNormalize(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a normalizeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Format == "" {
		a.Format = "jpeg"
	}
	data, err := a.bytes()
	if err != nil {
		return nil, err
	}
	norm, err := s.pipeline.Normalize(ctx, data)
	if err != nil {
		return nil, err
	}
	out, err := imaging.EncodeBase64(norm.Image, a.Format, a.Quality)
	if err != nil {
		return nil, perrors.NewInputError("format", err)
	}
	return normalizeResult{NormalizedImage: norm, Output: out}, nil
}

type compressArgs struct {
	imageArgs
	TargetSimilarity float64 `json:"target_similarity"`
	MaxDimension     int     `json:"max_dimension"`
}

type compressResult struct {
	imaging.CompressionResult
	Ratio  float64               `json:"ratio"`
	Output *imaging.EncodedImage `json:"output"`
}

func (s *Server) handleCompress(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a compressArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	data, err := a.bytes()
	if err != nil {
		return nil, err
	}
	out, res, err := s.pipeline.Compress(ctx, data, a.TargetSimilarity, a.MaxDimension)
	if err != nil {
		return nil, err
	}
	return compressResult{
		CompressionResult: res,
		Ratio:             res.Ratio(),
		Output:            imaging.WrapBytes(out, http.DetectContentType(out), res.Width, res.Height),
	}, nil
}

type cropArgs struct {
	imageArgs
	X1    int     `json:"x1"`
	Y1    int     `json:"y1"`
	X2    int     `json:"x2"`
	Y2    int     `json:"y2"`
	Scale float64 `json:"scale"`
}

func (s *Server) handleCrop(args json.RawMessage) (interface{}, error) {
	var a cropArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}

	var asset *imaging.Asset
	var err error
	if a.Path != "" && a.ImageBase64 == "" {
		asset, err = imaging.LoadFile(a.Path)
	} else {
		var data []byte
		if data, err = a.bytes(); err == nil {
			asset, err = imaging.Decode(data)
		}
	}
	if err != nil {
		return nil, err
	}

	cropped, err := imaging.Crop(asset.Image, a.X1, a.Y1, a.X2, a.Y2, a.Scale)
	if err != nil {
		return nil, perrors.NewInputError("crop", err)
	}
	return imaging.EncodeBase64(cropped, "png", 0)
}

// === Text and fields ===

type ocrArgs struct {
	imageArgs
	Mode  string `json:"mode"`
	Words bool   `json:"words"`
}

type ocrResult struct {
	Text   string     `json:"text,omitempty"`
	Words  []ocr.Word `json:"words,omitempty"`
	Mode   string     `json:"mode"`
	Cached bool       `json:"cached"`
}

func (s *Server) handleOCR(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a ocrArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	mode := ocr.ModeAuto
	if a.Mode != "" {
		m, err := ocr.ParseMode(a.Mode)
		if err != nil {
			return nil, perrors.NewInputError("mode", err)
		}
		mode = m
	}
	data, err := a.bytes()
	if err != nil {
		return nil, err
	}

	if a.Words {
		words, err := s.pipeline.Words(ctx, data, mode)
		if err != nil {
			return nil, err
		}
		return ocrResult{Words: words, Mode: mode.String()}, nil
	}
	text, err := s.pipeline.Recognize(ctx, data, mode)
	if err != nil {
		return nil, err
	}
	return ocrResult{Text: text.Text, Mode: text.Mode.String(), Cached: text.Cached}, nil
}

type extractArgs struct {
	imageArgs
	DocType  string `json:"doc_type"`
	CallerID string `json:"caller_id"`
}

func (s *Server) handleExtractFields(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a extractArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	hint, err := parseDocType(a.DocType)
	if err != nil {
		return nil, err
	}
	data, err := a.bytes()
	if err != nil {
		return nil, err
	}
	return s.pipeline.ExtractPage(ctx, pipeline.PageInput{Name: a.name(), Data: data}, hint, a.CallerID)
}

// === Documents ===

type pageArgs struct {
	imageArgs
	Name string `json:"name"`
}

type processArgs struct {
	Pages    []pageArgs `json:"pages"`
	DocType  string     `json:"doc_type"`
	CallerID string     `json:"caller_id"`
}

func (s *Server) handleProcess(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a processArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if len(a.Pages) == 0 {
		return nil, perrors.NewInputError("pages", fmt.Errorf("at least one page is required"))
	}
	hint, err := parseDocType(a.DocType)
	if err != nil {
		return nil, err
	}

	inputs := make([]pipeline.PageInput, len(a.Pages))
	for i, p := range a.Pages {
		data, err := p.bytes()
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		name := p.Name
		if name == "" {
			name = p.name()
		}
		if name == "" {
			name = fmt.Sprintf("page-%d", i+1)
		}
		inputs[i] = pipeline.PageInput{Name: name, Data: data}
	}
	return s.pipeline.Process(ctx, inputs, hint, a.CallerID)
}

type mergeArgs struct {
	Results []extract.Result `json:"results"`
}

type mergeResult struct {
	Groups      []merge.Group `json:"groups"`
	Ambiguities []string      `json:"ambiguities,omitempty"`
}

func (s *Server) handleMergePages(args json.RawMessage) (interface{}, error) {
	var a mergeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	groups := s.pipeline.MergePages(a.Results)
	res := mergeResult{Groups: groups}
	for _, err := range merge.Ambiguities(groups) {
		res.Ambiguities = append(res.Ambiguities, err.Error())
	}
	return res, nil
}

type matchArgs struct {
	A      match.Record `json:"a"`
	B      match.Record `json:"b"`
	Fields []string     `json:"fields"`
}

func (s *Server) handleMatchIdentity(args json.RawMessage) (interface{}, error) {
	var a matchArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	var fields []match.Field
	for _, name := range a.Fields {
		f, ok := match.ParseField(name)
		if !ok {
			return nil, perrors.NewInputError("fields", fmt.Errorf("unknown field %q", name))
		}
		fields = append(fields, f)
	}
	return s.pipeline.MatchIdentity(a.A, a.B, fields), nil
}
