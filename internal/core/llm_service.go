package core

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	defaultModelName = "gemini-1.5-flash-latest"

	// Returned (and persisted) when the endpoint answers 200 but the
	// expected candidate/part structure is absent.
	noValidResponse = "I couldn't produce a valid response. Please try again."
)

// Gateway is the single outbound call to the generative endpoint.
// A non-nil error is a hard failure for the call; no retry, no backoff.
type Gateway interface {
	Generate(ctx context.Context, prompt string, image *ImageAttachment) (string, error)
}

// LLMService implements Gateway against the hosted Gemini API.
type LLMService struct {
	client *genai.Client
}

func NewLLMService(ctx context.Context, apiKey string) (*LLMService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &LLMService{client: client}, nil
}

func (s *LLMService) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			log.Printf("Error closing GenAI client: %v", err)
		}
	}
}

// Generate sends the fully assembled template as a single user turn: a
// text part plus, when an image is attached, an inline-data part.
func (s *LLMService) Generate(ctx context.Context, prompt string, image *ImageAttachment) (string, error) {
	model := s.client.GenerativeModel(defaultModelName)

	parts := []genai.Part{genai.Text(prompt)}
	if image != nil {
		parts = append(parts, genai.Blob{MIMEType: image.MIMEType, Data: image.Data})
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini generate request failed: %w", err)
	}

	return extractText(resp), nil
}

// extractText pulls the first candidate's text parts. A structurally
// absent response substitutes a fixed placeholder rather than failing.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		log.Println("Gemini response was empty or had no valid candidates/parts.")
		return noValidResponse
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			responseText.WriteString(string(txt))
		} else {
			log.Printf("Gemini response part was not text: %T", part)
		}
	}

	if responseText.Len() == 0 {
		return noValidResponse
	}
	return responseText.String()
}
