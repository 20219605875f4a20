// Package video builds the narrated comic video: per-panel Ken Burns clips,
// crossfade concatenation, TTS narration with silence padding, and an
// optional background music layer.
package video

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/nanobanana/comicd/internal/models"
	"github.com/nanobanana/comicd/internal/services"
	"github.com/nanobanana/comicd/internal/storage"
)

const (
	// TransitionDuration is the crossfade length between panels.
	TransitionDuration = 0.5

	// MinPanelDuration floors every panel's screen time. There is no upper
	// cap: long dialogue extends its panel instead of being cut off.
	MinPanelDuration = 3.0

	// defaultPanelDuration is used for panels without narration audio.
	defaultPanelDuration = 4.0

	// audioBuffer is breathing room after the narration ends.
	audioBuffer = 0.5
)

// ErrFFmpegUnavailable means ffmpeg/ffprobe are missing; the whole video
// stage is refused up front.
var ErrFFmpegUnavailable = errors.New("ffmpeg unavailable")

// BlobStore is the slice of the storage client the builder needs.
type BlobStore interface {
	UploadFile(ctx context.Context, storagePath, localPath, contentType string) error
	Download(ctx context.Context, path string) ([]byte, error)
	GetPublicURL(path string) string
}

// Builder assembles the cinematic video for a finished job.
type Builder struct {
	FFmpeg *services.FFmpegService
	TTS    services.TTSService // nil disables narration
	Blobs  BlobStore

	Width     int
	Height    int
	MusicPath string // optional background music file
}

// panelClip is the working state for one panel while the video is built.
type panelClip struct {
	partNo    int
	panelIdx  int
	imagePath string
	audioPath string  // empty when the panel has no narration
	audioDur  float64 // seconds of narration audio
	duration  float64 // on-screen seconds
	clipPath  string
}

// BuildVideo renders the full 18-panel video into outputPath, uploads it,
// and returns the public URL. If the upload fails the local path is returned
// instead so the caller still gets a playable artifact.
func (b *Builder) BuildVideo(ctx context.Context, job *models.Job, outputPath string) (string, error) {
	if err := b.FFmpeg.CheckAvailable(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrFFmpegUnavailable, err)
	}
	if job.Status != models.JobStatusDone {
		return "", fmt.Errorf("job %s is %s, video export requires done", job.JobID, job.Status)
	}
	if job.Script == nil || job.Part1 == nil || job.Part2 == nil {
		return "", fmt.Errorf("job %s is missing rendered parts", job.JobID)
	}

	workDir, err := os.MkdirTemp("", "comic_video_")
	if err != nil {
		return "", fmt.Errorf("creating work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	clips, err := b.prepareClips(ctx, job, workDir)
	if err != nil {
		return "", err
	}
	if len(clips) == 0 {
		return "", fmt.Errorf("no usable panels for video")
	}

	if err := b.renderClips(ctx, clips, workDir); err != nil {
		return "", err
	}

	concatenated := filepath.Join(workDir, "concatenated.mp4")
	if err := b.concatClips(ctx, clips, concatenated); err != nil {
		return "", err
	}

	withAudio := concatenated
	if b.TTS != nil {
		narration := filepath.Join(workDir, "narration_full.mp3")
		if err := b.assembleNarration(ctx, clips, workDir, narration); err != nil {
			return "", err
		}
		muxed := filepath.Join(workDir, "final_with_audio.mp4")
		if b.MusicPath != "" && fileExists(b.MusicPath) {
			err = b.FFmpeg.MuxWithBackgroundMusic(ctx, concatenated, narration, b.MusicPath, muxed)
		} else {
			err = b.FFmpeg.MuxAudioVideo(ctx, concatenated, narration, muxed)
		}
		if err != nil {
			return "", err
		}
		withAudio = muxed
	}

	if err := copyFile(withAudio, outputPath); err != nil {
		return "", fmt.Errorf("writing final video: %w", err)
	}

	videoPath := storage.VideoPath(job.JobID)
	if err := b.Blobs.UploadFile(ctx, videoPath, outputPath, "video/mp4"); err != nil {
		log.Printf("[Video] WARNING: upload failed, returning local path: %v", err)
		return outputPath, nil
	}

	url := b.Blobs.GetPublicURL(videoPath)
	log.Printf("[Video] Job %s video uploaded: %s", job.JobID, url)
	return url, nil
}

// prepareClips fetches and normalizes each panel image and, when a TTS
// provider is wired, synthesizes its narration and derives its duration.
func (b *Builder) prepareClips(ctx context.Context, job *models.Job, workDir string) ([]*panelClip, error) {
	var clips []*panelClip

	globalIdx := 0
	for partNo := 1; partNo <= models.PartCount; partNo++ {
		rendered := job.PartByNo(partNo)
		scriptPart := job.Script.PartByNo(partNo)
		if rendered == nil || scriptPart == nil {
			return nil, fmt.Errorf("part %d missing from job", partNo)
		}
		panels := scriptPart.SortedPanels()

		for idx := range rendered.Panels {
			data, err := b.panelImage(ctx, job.JobID, rendered, partNo, idx)
			if err != nil {
				log.Printf("[Video] WARNING: skipping part %d panel %d: %v", partNo, idx, err)
				globalIdx++
				continue
			}

			rawPath := filepath.Join(workDir, fmt.Sprintf("panel_%02d_raw.png", globalIdx))
			if err := os.WriteFile(rawPath, data, 0o644); err != nil {
				return nil, err
			}
			preparedPath := filepath.Join(workDir, fmt.Sprintf("panel_%02d.png", globalIdx))
			if err := b.FFmpeg.PreparePanelImage(ctx, rawPath, preparedPath, b.Width, b.Height); err != nil {
				return nil, fmt.Errorf("preparing panel %d: %w", globalIdx, err)
			}

			clip := &panelClip{
				partNo:    partNo,
				panelIdx:  idx,
				imagePath: preparedPath,
				duration:  defaultPanelDuration,
			}

			if b.TTS != nil && idx < len(panels) {
				text := NarrationText(panels[idx])
				if text != "" {
					audioPath := filepath.Join(workDir, fmt.Sprintf("narration_%02d.mp3", globalIdx))
					if err := b.synthesize(ctx, text, audioPath); err != nil {
						log.Printf("[Video] WARNING: TTS failed for panel %d, panel will be silent: %v", globalIdx, err)
					} else {
						dur, err := b.FFmpeg.GetAudioDuration(ctx, audioPath)
						if err != nil {
							return nil, fmt.Errorf("measuring narration %d: %w", globalIdx, err)
						}
						clip.audioPath = audioPath
						clip.audioDur = dur
						clip.duration = ComputePanelDuration(dur)
					}
				}
			}

			clips = append(clips, clip)
			globalIdx++
		}
	}

	return clips, nil
}

// panelImage fetches the panel PNG, preferring the uploaded blob and falling
// back to the base64 copy stored in the job.
func (b *Builder) panelImage(ctx context.Context, jobID string, part *models.RenderedPart, partNo, idx int) ([]byte, error) {
	if idx < len(part.PanelURLs) && part.PanelURLs[idx] != "" {
		data, err := b.Blobs.Download(ctx, storage.PanelPath(jobID, partNo, idx))
		if err == nil {
			return data, nil
		}
		log.Printf("[Video] WARNING: blob fetch failed for part %d panel %d, using embedded copy: %v", partNo, idx, err)
	}
	if idx < len(part.Panels) && part.Panels[idx] != "" {
		return decodeBase64(part.Panels[idx])
	}
	return nil, fmt.Errorf("no image data")
}

// renderClips renders each panel clip with Ken Burns motion, falling back
// to a static render per panel when the motion filter fails.
func (b *Builder) renderClips(ctx context.Context, clips []*panelClip, workDir string) error {
	staticFallbacks := 0
	for i, clip := range clips {
		clipPath := filepath.Join(workDir, fmt.Sprintf("panel_video_%02d.mp4", i))
		err := b.FFmpeg.RenderPanelClip(ctx, clip.imagePath, clipPath, i, clip.duration, b.Width, b.Height)
		if err != nil {
			log.Printf("[Video] WARNING: motion render failed for panel %d, falling back to static render: %v", i, err)
			if err := b.FFmpeg.RenderStaticClip(ctx, clip.imagePath, clipPath, clip.duration); err != nil {
				return fmt.Errorf("panel %d: static fallback failed: %w", i, err)
			}
			staticFallbacks++
		}
		clip.clipPath = clipPath
	}
	if staticFallbacks > 0 {
		log.Printf("[Video] %d/%d panels rendered via static fallback", staticFallbacks, len(clips))
	}
	return nil
}

// concatClips joins the clips with crossfades, degrading to a plain
// list-file concat when the filter graph fails.
func (b *Builder) concatClips(ctx context.Context, clips []*panelClip, outputPath string) error {
	paths := make([]string, len(clips))
	durations := make([]float64, len(clips))
	for i, c := range clips {
		paths[i] = c.clipPath
		durations[i] = c.duration
	}

	if err := b.FFmpeg.ConcatWithCrossfade(ctx, paths, durations, TransitionDuration, outputPath); err != nil {
		log.Printf("[Video] WARNING: crossfade concat failed, using plain concat: %v", err)
		if err := b.FFmpeg.ConcatSimple(ctx, paths, outputPath); err != nil {
			return fmt.Errorf("concatenation failed: %w", err)
		}
	}
	return nil
}

// assembleNarration concatenates per-panel narration, padding every panel
// with silence so narration plus silence exactly fills its screen time.
func (b *Builder) assembleNarration(ctx context.Context, clips []*panelClip, workDir, outputPath string) error {
	var parts []string
	for i, clip := range clips {
		if clip.audioPath != "" {
			parts = append(parts, clip.audioPath)
		}
		silence := clip.duration - clip.audioDur
		if silence > 0.05 {
			silencePath := filepath.Join(workDir, fmt.Sprintf("silence_%02d.mp3", i))
			if err := b.FFmpeg.GenerateSilence(ctx, silence, silencePath); err != nil {
				return fmt.Errorf("panel %d: generating silence: %w", i, err)
			}
			parts = append(parts, silencePath)
		}
	}
	if len(parts) == 0 {
		return fmt.Errorf("no narration audio to assemble")
	}
	return b.FFmpeg.ConcatAudio(ctx, parts, outputPath)
}

func (b *Builder) synthesize(ctx context.Context, text, outputPath string) error {
	resp, err := b.TTS.GenerateSpeech(ctx, text)
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, resp.AudioData, 0o644)
}

// ComputePanelDuration derives a panel's screen time from its narration
// length: floored at the minimum, extended without cap for long audio.
func ComputePanelDuration(audioDur float64) float64 {
	d := audioDur + TransitionDuration + audioBuffer
	if d < MinPanelDuration {
		return MinPanelDuration
	}
	return d
}

// NarrationText builds the spoken text for a panel: narration followed by
// the dialogue lines reformatted for natural speech, all label noise
// stripped.
func NarrationText(panel models.Panel) string {
	parts := []string{strings.TrimSpace(panel.Narration)}
	for _, d := range models.NormalizeDialogues(panel.Dialogues) {
		parts = append(parts, ReformatDialogue(d))
	}
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return models.CleanTTSText(strings.Join(nonEmpty, " "))
}

// ReformatDialogue turns a "Name: text" dialogue line into spoken
// attribution form, "text, ucap Name". Lines without a speaker prefix are
// returned unchanged.
func ReformatDialogue(line string) string {
	line = strings.TrimSpace(line)
	name, text, found := strings.Cut(line, ":")
	if !found {
		return line
	}
	name = strings.TrimSpace(name)
	text = strings.TrimSpace(text)
	if name == "" || text == "" {
		return line
	}
	text = strings.TrimRight(text, ".")
	return fmt.Sprintf("%s, ucap %s.", text, name)
}

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
