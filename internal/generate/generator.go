package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/nakulbh/sanka/internal/archive"
)

// FormatError reports malformed model output that cannot be parsed into a
// file list.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "malformed generation output: " + e.Reason
}

// ChatCompleter is the narrow boundary to the completion API.
type ChatCompleter interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// GroqCompleter talks to Groq's OpenAI-compatible chat completion endpoint.
type GroqCompleter struct {
	client openai.Client
	model  string
}

func NewGroqCompleter(apiKey, baseURL, model string) *GroqCompleter {
	return &GroqCompleter{
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(baseURL),
		),
		model: model,
	}
}

func (c *GroqCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Generator turns an app name into a scaffolded file list.
type Generator struct {
	completer ChatCompleter
}

func New(completer ChatCompleter) *Generator {
	return &Generator{completer: completer}
}

func (g *Generator) Generate(ctx context.Context, appName string) ([]archive.File, error) {
	text, err := g.completer.Complete(ctx, scaffoldSystemPrompt, userPrompt(appName))
	if err != nil {
		return nil, err
	}
	return parseFileList(text)
}

type fileListResponse struct {
	Files json.RawMessage `json:"files"`
}

func parseFileList(text string) ([]archive.File, error) {
	text = stripFences(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, &FormatError{Reason: "no JSON object found in response"}
	}

	var resp fileListResponse
	if err := json.Unmarshal([]byte(text[start:end+1]), &resp); err != nil {
		return nil, &FormatError{Reason: "invalid JSON: " + err.Error()}
	}
	if len(resp.Files) == 0 {
		return nil, &FormatError{Reason: "files field is missing"}
	}

	var files []archive.File
	if err := json.Unmarshal(resp.Files, &files); err != nil {
		return nil, &FormatError{Reason: "files is not an array"}
	}
	if len(files) == 0 {
		return nil, &FormatError{Reason: "files array is empty"}
	}

	for i, f := range files {
		cleaned, err := archive.CleanPath(f.Path)
		if err != nil {
			return nil, fmt.Errorf("generated file %d: %w", i, err)
		}
		files[i].Path = cleaned
		if files[i].Encoding == "" {
			files[i].Encoding = archive.EncodingUTF8
		}
	}
	return files, nil
}

// stripFences removes optional markdown code-fence markers around the JSON.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
