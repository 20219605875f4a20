package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"google.golang.org/genai"
)

// ImageGenerationError means the image model answered with text instead of
// an image. The text is kept (truncated) for diagnosis.
type ImageGenerationError struct {
	Model        string
	TextFallback string
}

func (e *ImageGenerationError) Error() string {
	return fmt.Sprintf("no image returned from %s, text response: %s", e.Model, truncateString(e.TextFallback, 1200))
}

const imageGenTimeout = 240 * time.Second

// GeminiService renders full 3x3 comic pages with the Gemini image model.
type GeminiService struct {
	apiKey string
	model  string
}

func NewGeminiService(apiKey, model string) *GeminiService {
	return &GeminiService{
		apiKey: apiKey,
		model:  model,
	}
}

// GenerateGridImage renders one comic page from the full page prompt and
// returns the raw PNG bytes. Temperature is pinned to 0 so retries of the
// same prompt converge on the same page.
func (s *GeminiService) GenerateGridImage(ctx context.Context, prompt string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, imageGenTimeout)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	log.Printf("[Gemini] Generating grid image via %s (prompt: %d chars)", s.model, len(prompt))

	config := &genai.GenerateContentConfig{
		Temperature:        genai.Ptr[float32](0),
		CandidateCount:     1,
		ResponseModalities: []string{"IMAGE"},
	}

	resp, err := client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), config)
	if err != nil {
		return nil, fmt.Errorf("image generation request failed: %w", err)
	}

	var textFallback string
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil {
				continue
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				log.Printf("[Gemini] Grid image received (%d bytes, mime=%s)", len(part.InlineData.Data), part.InlineData.MIMEType)
				return part.InlineData.Data, nil
			}
			if part.Text != "" {
				textFallback += part.Text
			}
		}
	}

	return nil, &ImageGenerationError{Model: s.model, TextFallback: textFallback}
}
