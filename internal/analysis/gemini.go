package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini implements the Analyzer interface using Google Gemini
type Gemini struct {
	client    *genai.Client
	modelName string
}

// NewGemini creates a new Gemini Analyzer instance
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client:    client,
		modelName: modelName,
	}, nil
}

// Generate sends a composed prompt and returns the raw text reply
func (g *Gemini) Generate(prompt Prompt) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// A fresh model per call: system instruction and generation
	// parameters vary between scan, interaction, and chat prompts
	model := g.client.GenerativeModel(g.modelName)
	if prompt.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(prompt.System)},
		}
	}
	if prompt.Temperature > 0 {
		model.SetTemperature(prompt.Temperature)
	}
	if prompt.MaxTokens > 0 {
		model.SetMaxOutputTokens(prompt.MaxTokens)
	}

	parts, err := turnParts(prompt.Text, prompt.Image, prompt.ImageType)
	if err != nil {
		return "", err
	}

	var resp *genai.GenerateContentResponse
	if len(prompt.History) > 0 {
		session := model.StartChat()
		for _, turn := range prompt.History {
			replayed, err := turnParts(turn.Text, turn.Image, "")
			if err != nil {
				return "", err
			}
			session.History = append(session.History, &genai.Content{
				Role:  turn.Role,
				Parts: replayed,
			})
		}
		resp, err = session.SendMessage(ctx, parts...)
	} else {
		resp, err = model.GenerateContent(ctx, parts...)
	}
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from gemini")
	}

	var replyText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			replyText.WriteString(string(text))
		}
	}

	reply := strings.TrimSpace(replyText.String())
	if reply == "" {
		return "", fmt.Errorf("empty response from gemini")
	}
	return reply, nil
}

// turnParts assembles the content parts for one turn, image first so
// the image travels as binary payload rather than inlined text
func turnParts(text string, image []byte, contentType string) ([]genai.Part, error) {
	parts := make([]genai.Part, 0, 2)
	if len(image) > 0 {
		pngData, _, _, err := prepareMedia(image, contentType)
		if err != nil {
			return nil, err
		}
		parts = append(parts, genai.ImageData("png", pngData))
	}
	if text != "" {
		parts = append(parts, genai.Text(text))
	}
	return parts, nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
