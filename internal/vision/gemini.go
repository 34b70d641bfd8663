package vision

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"

	"github.com/sam02425/Document-Portal/internal/logging"
)

// Gemini extracts documents with a Gemini model on Vertex AI.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
	logger *slog.Logger
}

// NewGemini connects to Vertex AI in project and region and configures
// modelName for deterministic JSON output.
func NewGemini(ctx context.Context, project, region, modelName string, logger *slog.Logger) (*Gemini, error) {
	if project == "" || region == "" {
		return nil, fmt.Errorf("NewGemini: project and region cannot be empty")
	}

	client, err := genai.NewClient(ctx, project, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(SystemPrompt)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}

	return &Gemini{client: client, model: model, logger: logging.OrNop(logger)}, nil
}

// Extract sends the image with the extraction prompt and parses the reply.
func (g *Gemini) Extract(ctx context.Context, image []byte, mime string) (Output, error) {
	if mime == "" {
		mime = "image/jpeg"
	}

	start := time.Now()
	resp, err := g.model.GenerateContent(ctx, genai.Blob{MIMEType: mime, Data: image}, genai.Text(UserPrompt))
	if err != nil {
		return Output{}, fmt.Errorf("failed to generate content from gemini: %w", err)
	}

	content := responseText(resp)
	if content == "" {
		return Output{}, fmt.Errorf("gemini returned no content")
	}
	g.logger.Debug("vision.gemini.done",
		"bytes", len(image),
		"response_chars", len(content),
		"duration_ms", time.Since(start).Milliseconds())

	return Parse([]byte(content))
}

// Close releases the Vertex AI client.
func (g *Gemini) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// responseText joins the text parts of the first candidate and strips a
// surrounding code fence.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}

	s := strings.TrimSpace(sb.String())
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
