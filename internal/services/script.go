package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nanobanana/comicd/internal/models"
)

// GenerationError means the text model could not produce a valid script even
// after the repair pass.
type GenerationError struct {
	Stage string // "generate" or "repair"
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("script generation failed at %s: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ScriptService turns a user story into a validated two-part comic script.
type ScriptService struct {
	client *openai.Client
	model  string
}

func NewScriptService(apiKey, model string) *ScriptService {
	return NewScriptServiceWithClient(openai.NewClient(apiKey), model)
}

// NewScriptServiceWithClient takes a preconfigured client; tests point one
// at a local server via openai.ClientConfig.BaseURL.
func NewScriptServiceWithClient(client *openai.Client, model string) *ScriptService {
	return &ScriptService{
		client: client,
		model:  model,
	}
}

const scriptSystemPrompt = `Kamu adalah editor komik profesional.

Tugas:
- Ubah input user menjadi naskah komik dalam 2 BAGIAN besar.
- Output WAJIB JSON valid dan hanya JSON (tanpa teks lain).
- Konsistensi karakter harus ketat.
- Setiap BAGIAN wajib tepat 9 PANEL.
- Family-friendly.
- Setiap panel wajib ada:
  panel_no, panel_title, narration, dialogues (max 2 baris), panel_context (visual wajib).
- Untuk BAGIAN 1 PANEL 1: itu adalah poster film + judul komik (desain poster, cinematic).
- panel_context harus konkret (tempat, aksi, ekspresi, objek penting).`

// GenerateScript calls the text model once at creative temperature; on a
// parse or shape failure it makes a single deterministic repair call before
// giving up.
func (s *ScriptService) GenerateScript(ctx context.Context, story, styleID string, nuances []string) (*models.Script, error) {
	style := GetStyle(styleID)
	chosen := NormalizeNuances(nuances)
	summary := NuanceLabelSummary(chosen)

	userPrompt := buildScriptUserPrompt(story, style, chosen, summary)

	log.Printf("[Script] Generating 2-part script via %s (style=%s, nuances=%v)", s.model, style.ID, chosen)

	rawText, err := s.callTextModel(ctx, scriptSystemPrompt, userPrompt, 0.35)
	if err != nil {
		return nil, &GenerationError{Stage: "generate", Err: err}
	}

	script, parseErr := parseAndValidate(rawText)
	if parseErr != nil {
		log.Printf("[Script] WARNING: parse/shape failed, attempting repair: %v", parseErr)
		logRawResponse("Script", rawText)

		repaired, err := s.callTextModel(ctx, "", buildRepairPrompt(rawText), 0.0)
		if err != nil {
			return nil, &GenerationError{Stage: "repair", Err: err}
		}
		script, parseErr = parseAndValidate(repaired)
		if parseErr != nil {
			logRawResponse("Script", repaired)
			return nil, &GenerationError{Stage: "repair", Err: parseErr}
		}
	}

	// The model sometimes rewrites nuance metadata; pin it to the request.
	script.Global.Nuances.SelectedIDs = chosen
	script.Global.Nuances.SelectedLabels = summary

	log.Printf("[Script] Script generated: %q, %d parts", script.Global.ComicTitle, len(script.Parts))
	return script, nil
}

func (s *ScriptService) callTextModel(ctx context.Context, systemPrompt, userPrompt string, temperature float32) (string, error) {
	messages := []openai.ChatCompletionMessage{}
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userPrompt,
	})

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    s.model,
		Messages: messages,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: temperature,
		MaxTokens:   4096,
	})
	if err != nil {
		return "", fmt.Errorf("text model request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from text model")
	}
	return resp.Choices[0].Message.Content, nil
}

func parseAndValidate(rawText string) (*models.Script, error) {
	cleaned, err := safeJSONFromText(rawText)
	if err != nil {
		return nil, err
	}
	var script models.Script
	if err := json.Unmarshal([]byte(cleaned), &script); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if err := script.Validate(); err != nil {
		return nil, err
	}
	return &script, nil
}

var (
	codeFenceRe  = regexp.MustCompile("(?im)^```(?:json)?\\s*|\\s*```$")
	jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)
)

// safeJSONFromText extracts a JSON object from model output that may be
// wrapped in code fences or prose.
func safeJSONFromText(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", fmt.Errorf("empty response from text model")
	}
	cleaned := strings.TrimSpace(codeFenceRe.ReplaceAllString(trimmed, ""))

	if json.Valid([]byte(cleaned)) {
		return cleaned, nil
	}
	if m := jsonObjectRe.FindString(cleaned); m != "" {
		return m, nil
	}
	return "", fmt.Errorf("cannot find JSON object in response: %s", truncateString(cleaned, 800))
}

func logRawResponse(tag, raw string) {
	const maxLogLen = 2000
	if len(raw) > maxLogLen {
		log.Printf("[%s] raw response (truncated): %s...", tag, raw[:maxLogLen])
	} else {
		log.Printf("[%s] raw response: %s", tag, raw)
	}
}

func buildScriptUserPrompt(story string, style Style, chosen []string, nuanceSummary string) string {
	var nuanceLines []string
	for _, id := range chosen {
		label := id
		if n, ok := nuanceByID(id); ok {
			label = n.Label
		}
		nuanceLines = append(nuanceLines, fmt.Sprintf("- %s (%s)", id, label))
	}
	chosenJSON, _ := json.Marshal(chosen)

	return fmt.Sprintf(`Buat naskah komik dari input user berikut.

USER_INPUT:
%s

STYLE CHOICE (apply consistently):
- style_id: %s
- style_label: %s
- art_style: %s
- color_mood: %s
- line_style: %s
- camera: %s

NUANCE / MOOD CHOICE (apply consistently):
%s

RULES TAMBAHAN NUANSA:
%s

RULES KETAT:
- Output harus 2 BAGIAN besar: part_no 1 dan 2.
- Masing-masing BAGIAN harus punya tepat 9 PANEL (panel_no 1..9).
- Konsistensi karakter wajib ketat (nama/ciri/outfit).
- Family-friendly.
- Setiap panel wajib punya:
  - panel_no (1..9)
  - panel_title
  - narration (1-2 kalimat)
  - dialogues (list max 2 baris; format "Nama: ...")
  - panel_context (visual wajib; jelas, konkret)
- BAGIAN 1 PANEL 1: harus berupa POSTER FILM + JUDUL KOMIK.
  - Komposisi poster: hero shot karakter utama, title besar, tagline singkat.
  - Tetap panel #1 dalam grid 3x3.

OUTPUT FORMAT (JSON):
{
  "global": {
    "comic_title": "...",
    "tagline": "...",
    "style": {
      "style_id": "%s",
      "style_label": "%s",
      "art_style": "%s",
      "color_mood": "%s",
      "line_style": "%s",
      "camera": "%s"
    },
    "nuances": {
      "selected_ids": %s,
      "selected_labels": "%s"
    },
    "characters": [
      {
        "name": "...",
        "appearance": "...",
        "outfit": "...",
        "personality": "..."
      }
    ]
  },
  "parts": [
    {
      "part_no": 1,
      "part_title": "...",
      "part_summary": "...",
      "panels": [ { "panel_no": 1, "panel_title": "...", "narration": "...", "dialogues": ["A: ..."], "panel_context": "..." } ]
    },
    {
      "part_no": 2,
      "part_title": "...",
      "part_summary": "...",
      "panels": [ { "panel_no": 1, "panel_title": "...", "narration": "...", "dialogues": ["A: ..."], "panel_context": "..." } ]
    }
  ]
}`,
		story,
		style.ID, style.Label, style.ArtStyle, style.ColorMood, style.LineStyle, style.Camera,
		strings.Join(nuanceLines, "\n"),
		nuanceRulesText(chosen),
		style.ID, style.Label, style.ArtStyle, style.ColorMood, style.LineStyle, style.Camera,
		string(chosenJSON), nuanceSummary,
	)
}

func buildRepairPrompt(brokenJSON string) string {
	return fmt.Sprintf(`Kamu adalah "JSON Repair Bot".
TUGAS: Perbaiki JSON berikut agar valid JSON dan sesuai schema output yang diminta sebelumnya.

ATURAN KETAT:
- Output HARUS hanya JSON valid. Tidak boleh ada teks lain.
- Jangan menambah cerita baru. Hanya perbaiki sintaks JSON (koma, kutip, kurung, array/object).
- Pertahankan struktur yang diminta:
  - object root dengan "global" dan "parts"
  - "parts" harus 2 item, masing-masing punya part_no 1 dan 2
  - tiap part punya "panels" berisi 9 panel (panel_no 1..9)
  - tiap panel punya: panel_no, panel_title, narration, dialogues, panel_context

JSON_RUSAK:
%s`, brokenJSON)
}

// truncateString truncates a string to maxLen and appends "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
