package analysis

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Ollama implements the Analyzer interface using a local Ollama server.
// Vision-capable models (llava, qwen2-vl, bakllava) are required for
// image scans; text-only models work for questions and chat.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllama creates a new Ollama Analyzer instance
func NewOllama(baseURL string, modelName string) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if modelName == "" {
		modelName = "llava"
	}

	return &Ollama{
		baseURL: baseURL,
		model:   modelName,
		client: &http.Client{
			Timeout: 120 * time.Second, // local vision models can be slow
		},
	}, nil
}

// ollamaChatRequest represents the request body for Ollama's chat API
type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaOptions struct {
	Temperature float32 `json:"temperature,omitempty"`
	NumPredict  int32   `json:"num_predict,omitempty"`
}

// ollamaChatResponse represents the response from Ollama's chat API
type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// ollamaRole maps our turn roles onto Ollama's chat roles
func ollamaRole(role string) string {
	if role == RoleModel {
		return "assistant"
	}
	return "user"
}

// Generate sends a composed prompt and returns the raw text reply
func (o *Ollama) Generate(prompt Prompt) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	messages := make([]ollamaMessage, 0, len(prompt.History)+2)
	if prompt.System != "" {
		messages = append(messages, ollamaMessage{Role: "system", Content: prompt.System})
	}

	// Replay prior turns in send order so the model keeps context
	for _, turn := range prompt.History {
		msg := ollamaMessage{Role: ollamaRole(turn.Role), Content: turn.Text}
		if len(turn.Image) > 0 {
			encoded, err := encodeMedia(turn.Image, "")
			if err != nil {
				return "", err
			}
			msg.Images = []string{encoded}
		}
		messages = append(messages, msg)
	}

	current := ollamaMessage{Role: "user", Content: prompt.Text}
	if len(prompt.Image) > 0 {
		encoded, err := encodeMedia(prompt.Image, prompt.ImageType)
		if err != nil {
			return "", err
		}
		current.Images = []string{encoded}
	}
	messages = append(messages, current)

	reqBody := ollamaChatRequest{
		Model:    o.model,
		Stream:   false,
		Messages: messages,
	}
	if prompt.Temperature > 0 || prompt.MaxTokens > 0 {
		reqBody.Options = &ollamaOptions{
			Temperature: prompt.Temperature,
			NumPredict:  prompt.MaxTokens,
		}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/api/chat", o.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling ollama API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(body))
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	reply := strings.TrimSpace(chatResp.Message.Content)
	if reply == "" {
		return "", fmt.Errorf("empty response from ollama")
	}
	return reply, nil
}

// encodeMedia normalizes an image to PNG and base64-encodes it the way
// the Ollama API expects
func encodeMedia(image []byte, contentType string) (string, error) {
	pngData, _, _, err := prepareMedia(image, contentType)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(pngData), nil
}

// Close closes the Ollama client (no-op for HTTP client)
func (o *Ollama) Close() error {
	return nil
}
