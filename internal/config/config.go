package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Supabase storage (panel/grid/video blobs)
	SupabaseURL           string
	SupabaseServiceKey    string
	SupabaseStorageBucket string

	// OpenAI (used for script generation)
	OpenAIKey string
	TextModel string

	// Gemini (used for grid image generation)
	GeminiKey  string
	ImageModel string

	// Google Cloud TTS (used for read-along narration)
	GoogleTTSKey    string
	TTSVoice        string
	TTSLanguage     string
	TTSSpeakingRate float64
	TTSPitch        float64

	// Local export area: job records, grid previews, PDFs
	ExportDir string

	// Audio
	BackgroundMusicPath string // Path to optional background music file

	// Video
	VideoWidth  int
	VideoHeight int
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:               getEnv("API_PORT", "8080"),
		BackendAPIKey:         getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins:    getEnv("CORS_ALLOWED_ORIGINS", ""),
		SupabaseURL:           getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBucket: getEnv("SUPABASE_STORAGE_BUCKET", "nanobanana-comics"),
		OpenAIKey:             getEnv("OPENAI_API_KEY", ""),
		TextModel:             getEnv("TEXT_MODEL", "gpt-4o-mini"),
		GeminiKey:             getEnv("GEMINI_API_KEY", ""),
		ImageModel:            getEnv("IMAGE_MODEL", "gemini-3-pro-image-preview"),
		GoogleTTSKey:          getEnv("GOOGLE_TTS_API_KEY", ""),
		TTSVoice:              getEnv("TTS_VOICE", "id-ID-Wavenet-D"),
		TTSLanguage:           getEnv("TTS_LANGUAGE", "id-ID"),
		TTSSpeakingRate:       getEnvFloat("TTS_SPEAKING_RATE", 0.85),
		TTSPitch:              getEnvFloat("TTS_PITCH", -2.0),
		ExportDir:             getEnv("EXPORT_DIR", "exports"),
		BackgroundMusicPath:   getEnv("BACKGROUND_MUSIC_PATH", ""),
		VideoWidth:            getEnvInt("VIDEO_WIDTH", 720),
		VideoHeight:           getEnvInt("VIDEO_HEIGHT", 1280),
	}

	// Validate required fields
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	if cfg.GeminiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" {
		return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required")
	}

	if err := os.MkdirAll(cfg.ExportDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating export dir %s: %w", cfg.ExportDir, err)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}
