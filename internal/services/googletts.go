package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

const googleTTSEndpoint = "https://texttospeech.googleapis.com/v1/text:synthesize"

// GoogleTTSService synthesizes Indonesian narration via the Google Cloud
// Text-to-Speech REST API. Implements TTSService.
type GoogleTTSService struct {
	apiKey       string
	voice        string
	languageCode string
	speakingRate float64
	pitch        float64
	client       *http.Client
}

func NewGoogleTTSService(apiKey, voice, languageCode string, speakingRate, pitch float64) *GoogleTTSService {
	return &GoogleTTSService{
		apiKey:       apiKey,
		voice:        voice,
		languageCode: languageCode,
		speakingRate: speakingRate,
		pitch:        pitch,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type googleTTSRequest struct {
	Input struct {
		SSML string `json:"ssml"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name"`
		SSMLGender   string `json:"ssmlGender"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string  `json:"audioEncoding"`
		SpeakingRate  float64 `json:"speakingRate"`
		Pitch         float64 `json:"pitch"`
	} `json:"audioConfig"`
}

// GenerateSpeech converts text to MP3 narration. Duration is left at zero;
// callers measure the actual audio length with ffprobe.
func (s *GoogleTTSService) GenerateSpeech(ctx context.Context, text string) (*TTSResponse, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty text for speech synthesis")
	}

	var reqBody googleTTSRequest
	reqBody.Input.SSML = wrapSSML(text)
	reqBody.Voice.LanguageCode = s.languageCode
	reqBody.Voice.Name = s.voice
	reqBody.Voice.SSMLGender = "MALE"
	reqBody.AudioConfig.AudioEncoding = "MP3"
	reqBody.AudioConfig.SpeakingRate = s.speakingRate
	reqBody.AudioConfig.Pitch = s.pitch

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tts request: %w", err)
	}

	url := fmt.Sprintf("%s?key=%s", googleTTSEndpoint, s.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("tts failed with status %d: %s", resp.StatusCode, truncateString(string(body), 500))
	}

	var result struct {
		AudioContent string `json:"audioContent"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse tts response: %w", err)
	}
	if result.AudioContent == "" {
		return nil, fmt.Errorf("tts returned no audio content")
	}

	audio, err := base64.StdEncoding.DecodeString(result.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio content: %w", err)
	}

	log.Printf("[TTS] Synthesized %d bytes for %d chars of text", len(audio), len(text))

	return &TTSResponse{
		AudioData: audio,
		Format:    "mp3",
	}, nil
}

// wrapSSML escapes the text and wraps it in a paragraph so the engine
// breathes at sentence boundaries.
func wrapSSML(text string) string {
	escaped := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	).Replace(text)
	return "<speak><p>" + escaped + "</p></speak>"
}
