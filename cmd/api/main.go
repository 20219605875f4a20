package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nanobanana/comicd/internal/api"
	"github.com/nanobanana/comicd/internal/config"
	"github.com/nanobanana/comicd/internal/jobstore"
	"github.com/nanobanana/comicd/internal/renderer"
	"github.com/nanobanana/comicd/internal/services"
	"github.com/nanobanana/comicd/internal/storage"
	"github.com/nanobanana/comicd/internal/video"
	"github.com/nanobanana/comicd/internal/worker"
)

func main() {
	log.Println("Starting Comicd API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize storage
	stor := storage.New(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket)
	log.Println("Initialized Supabase storage")

	// Job store: in-memory with disk persistence under the export dir, so
	// in-flight job records survive a restart until the TTL sweeps them.
	files := jobstore.NewFileStore(cfg.ExportDir)
	store := jobstore.New(files)

	// Initialize services
	scriptSvc := services.NewScriptService(cfg.OpenAIKey, cfg.TextModel)
	geminiSvc := services.NewGeminiService(cfg.GeminiKey, cfg.ImageModel)

	rend := &renderer.Renderer{
		Images:      geminiSvc,
		Blobs:       stor,
		ImageModel:  cfg.ImageModel,
		PreviewPath: files.GridPreviewPath,
	}
	orch := worker.NewOrchestrator(store, rend)

	// TTS is optional: without a key the video is built silent.
	var ttsSvc services.TTSService
	if cfg.GoogleTTSKey != "" {
		ttsSvc = services.NewGoogleTTSService(cfg.GoogleTTSKey, cfg.TTSVoice, cfg.TTSLanguage, cfg.TTSSpeakingRate, cfg.TTSPitch)
		log.Printf("TTS provider: Google Cloud TTS (voice: %s)", cfg.TTSVoice)
	} else {
		log.Println("WARNING: No GOOGLE_TTS_API_KEY set — videos will have no narration")
	}

	ffmpegSvc := services.NewFFmpegService()

	videoBuilder := &video.Builder{
		FFmpeg:    ffmpegSvc,
		TTS:       ttsSvc,
		Blobs:     stor,
		Width:     cfg.VideoWidth,
		Height:    cfg.VideoHeight,
		MusicPath: cfg.BackgroundMusicPath,
	}

	// Create API handler
	handler := api.NewHandler(scriptSvc, orch, store, files, videoBuilder)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set — API is unprotected (dev mode)")
	}

	// Periodic GC: jobs expire 30 minutes after creation even if nobody
	// polls them again.
	gcCtx, gcCancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				store.Cleanup()
			case <-gcCtx.Done():
				return
			}
		}
	}()

	// Start HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	gcCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
