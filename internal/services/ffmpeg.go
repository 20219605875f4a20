package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
)

// ---------------------------------------------------------------------------
// Ken Burns motion patterns — each panel clip gets one, cycling by panel index
// ---------------------------------------------------------------------------

// MotionPattern describes a zoom/pan trajectory over a clip's duration.
// Positions are fractions of the frame (0.5 = centered).
type MotionPattern struct {
	Name      string
	StartZoom float64
	EndZoom   float64
	StartX    float64
	StartY    float64
	EndX      float64
	EndY      float64
}

// motionPatterns is the fixed cycle of camera moves. Adjacent panels get
// different moves so the video never repeats the same motion back to back.
var motionPatterns = []MotionPattern{
	{Name: "zoom_in_center", StartZoom: 1.0, EndZoom: 1.12, StartX: 0.5, StartY: 0.5, EndX: 0.5, EndY: 0.5},
	{Name: "zoom_out_pan_right", StartZoom: 1.15, EndZoom: 1.0, StartX: 0.45, StartY: 0.5, EndX: 0.55, EndY: 0.5},
	{Name: "pan_left_right", StartZoom: 1.1, EndZoom: 1.1, StartX: 0.3, StartY: 0.5, EndX: 0.7, EndY: 0.5},
	{Name: "pan_top_bottom", StartZoom: 1.1, EndZoom: 1.1, StartX: 0.5, StartY: 0.35, EndX: 0.5, EndY: 0.65},
	{Name: "zoom_in_pan_br", StartZoom: 1.0, EndZoom: 1.15, StartX: 0.4, StartY: 0.4, EndX: 0.6, EndY: 0.6},
}

// PatternForPanel returns the motion pattern for a panel index.
func PatternForPanel(panelIndex int) MotionPattern {
	return motionPatterns[panelIndex%len(motionPatterns)]
}

const videoFPS = 30

// ---------------------------------------------------------------------------
// FFmpegService
// ---------------------------------------------------------------------------

type FFmpegService struct{}

func NewFFmpegService() *FFmpegService {
	return &FFmpegService{}
}

// CheckAvailable verifies ffmpeg and ffprobe are on PATH.
func (s *FFmpegService) CheckAvailable() error {
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("%s not found in PATH: %w", bin, err)
		}
	}
	return nil
}

// PreparePanelImage normalizes a panel image to the target resolution using
// a blurred cover background with the full panel fitted and centered on top.
// Nothing is cropped; the blur fills whatever the aspect mismatch leaves.
func (s *FFmpegService) PreparePanelImage(ctx context.Context, inputPath, outputPath string, width, height int) error {
	filter := fmt.Sprintf(
		"[0:v]scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,boxblur=20:5[bg];"+
			"[0:v]scale=%d:%d:force_original_aspect_ratio=decrease[fg];"+
			"[bg][fg]overlay=(W-w)/2:(H-h)/2",
		width, height, width, height, width, height,
	)

	args := []string{
		"-i", inputPath,
		"-filter_complex", filter,
		"-frames:v", "1",
		"-y",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg prepare panel image failed: %w (%s)", err, truncateString(string(out), 500))
	}
	return nil
}

// BuildKenBurnsFilter constructs the zoompan filter for one panel clip. The
// expressions are time-based so the motion completes exactly over the clip
// duration regardless of frame count.
func BuildKenBurnsFilter(panelIndex int, duration float64, width, height int) string {
	p := PatternForPanel(panelIndex)

	zoomExpr := fmt.Sprintf("%g+(%g-%g)*time/%g", p.StartZoom, p.EndZoom, p.StartZoom, duration)
	xExpr := fmt.Sprintf("(iw-iw/zoom)/2+(%g-0.5)*iw*(1-time/%g)+(%g-0.5)*iw*time/%g", p.StartX, duration, p.EndX, duration)
	yExpr := fmt.Sprintf("(ih-ih/zoom)/2+(%g-0.5)*ih*(1-time/%g)+(%g-0.5)*ih*time/%g", p.StartY, duration, p.EndY, duration)

	return fmt.Sprintf("zoompan=z='%s':x='%s':y='%s':d=%d:s=%dx%d:fps=%d",
		zoomExpr, xExpr, yExpr, int(duration*videoFPS), width, height, videoFPS)
}

// RenderPanelClip renders one silent panel clip with Ken Burns motion and a
// subtle vignette.
func (s *FFmpegService) RenderPanelClip(ctx context.Context, imagePath, outputPath string, panelIndex int, duration float64, width, height int) error {
	filter := BuildKenBurnsFilter(panelIndex, duration, width, height) + ",vignette=PI/4"

	args := []string{
		"-loop", "1",
		"-i", imagePath,
		"-filter_complex", filter,
		"-t", fmt.Sprintf("%.3f", duration),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-y",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg panel clip failed (pattern=%s): %w (%s)",
			PatternForPanel(panelIndex).Name, err, truncateString(string(out), 500))
	}
	return nil
}

// RenderStaticClip renders a motionless clip of the panel. Used when the
// motion render fails.
func (s *FFmpegService) RenderStaticClip(ctx context.Context, imagePath, outputPath string, duration float64) error {
	args := []string{
		"-loop", "1",
		"-i", imagePath,
		"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2",
		"-t", fmt.Sprintf("%.3f", duration),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-y",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg static clip failed: %w (%s)", err, truncateString(string(out), 500))
	}
	return nil
}

// BuildXfadeGraph builds the filter_complex string chaining all clips with
// fade transitions. Each transition's offset is the cumulative sum of the
// prior clip durations minus one transition length per boundary crossed.
// Returns the graph and the label of the final output stream.
func BuildXfadeGraph(durations []float64, transition float64) (graph, finalLabel string) {
	n := len(durations)
	if n < 2 {
		return "", ""
	}

	var parts []string
	offset := durations[0] - transition
	parts = append(parts, fmt.Sprintf("[0][1]xfade=transition=fade:duration=%g:offset=%.3f[v01]", transition, offset))
	prev := "v01"
	for i := 1; i < n-1; i++ {
		offset += durations[i] - transition
		next := fmt.Sprintf("v%02d%02d", i, i+1)
		parts = append(parts, fmt.Sprintf("[%s][%d]xfade=transition=fade:duration=%g:offset=%.3f[%s]", prev, i+1, transition, offset, next))
		prev = next
	}
	return strings.Join(parts, ";"), prev
}

// ConcatWithCrossfade joins clips with fade transitions.
func (s *FFmpegService) ConcatWithCrossfade(ctx context.Context, clipPaths []string, durations []float64, transition float64, outputPath string) error {
	if len(clipPaths) == 0 {
		return fmt.Errorf("no clips to concatenate")
	}
	if len(clipPaths) == 1 {
		return copyFile(clipPaths[0], outputPath)
	}

	graph, finalLabel := BuildXfadeGraph(durations, transition)

	args := []string{}
	for _, p := range clipPaths {
		args = append(args, "-i", p)
	}
	args = append(args,
		"-filter_complex", graph,
		"-map", "["+finalLabel+"]",
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-y",
		outputPath,
	)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg crossfade concat failed: %w (%s)", err, truncateString(string(out), 500))
	}
	return nil
}

// concatListPath is the ffmpeg concat list file for an output. It sits next
// to the output inside the build's own work dir, so concurrent builds never
// read each other's lists.
func concatListPath(outputPath string) string {
	return outputPath + ".list.txt"
}

// ConcatSimple joins clips back to back via a list file, no transitions.
func (s *FFmpegService) ConcatSimple(ctx context.Context, clipPaths []string, outputPath string) error {
	if len(clipPaths) == 0 {
		return fmt.Errorf("no clips to concatenate")
	}

	listPath := concatListPath(outputPath)
	f, err := os.Create(listPath)
	if err != nil {
		return fmt.Errorf("failed to create concat list: %w", err)
	}
	for _, path := range clipPaths {
		fmt.Fprintf(f, "file '%s'\n", path)
	}
	f.Close()
	defer os.Remove(listPath)

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-y",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg concat failed: %w (%s)", err, truncateString(string(out), 500))
	}
	return nil
}

// GenerateSilence writes an MP3 of silence with the given duration.
func (s *FFmpegService) GenerateSilence(ctx context.Context, duration float64, outputPath string) error {
	args := []string{
		"-f", "lavfi",
		"-i", "anullsrc=r=44100:cl=stereo",
		"-t", fmt.Sprintf("%.3f", duration),
		"-c:a", "libmp3lame",
		"-y",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg silence failed: %w (%s)", err, truncateString(string(out), 500))
	}
	return nil
}

// ConcatAudio joins audio files back to back into one MP3.
func (s *FFmpegService) ConcatAudio(ctx context.Context, audioPaths []string, outputPath string) error {
	if len(audioPaths) == 0 {
		return fmt.Errorf("no audio files to concatenate")
	}

	listPath := concatListPath(outputPath)
	f, err := os.Create(listPath)
	if err != nil {
		return fmt.Errorf("failed to create audio list: %w", err)
	}
	for _, path := range audioPaths {
		fmt.Fprintf(f, "file '%s'\n", path)
	}
	f.Close()
	defer os.Remove(listPath)

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c:a", "libmp3lame",
		"-y",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg audio concat failed: %w (%s)", err, truncateString(string(out), 500))
	}
	return nil
}

// MuxAudioVideo replaces the video's audio track with the narration track.
func (s *FFmpegService) MuxAudioVideo(ctx context.Context, videoPath, audioPath, outputPath string) error {
	args := []string{
		"-i", videoPath,
		"-i", audioPath,
		"-c:v", "copy",
		"-c:a", "aac",
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-shortest",
		"-y",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg mux failed: %w (%s)", err, truncateString(string(out), 500))
	}
	return nil
}

// MuxWithBackgroundMusic muxes narration onto the video while layering a
// looping music track at low volume under it.
func (s *FFmpegService) MuxWithBackgroundMusic(ctx context.Context, videoPath, audioPath, musicPath, outputPath string) error {
	log.Printf("[FFmpeg] Mixing background music from %s", musicPath)

	filterComplex := "[1:a]volume=1.0[narr];[2:a]volume=0.15[music];[narr][music]amix=inputs=2:duration=shortest[aout]"

	args := []string{
		"-i", videoPath,
		"-i", audioPath,
		"-stream_loop", "-1",
		"-i", musicPath,
		"-filter_complex", filterComplex,
		"-map", "0:v:0",
		"-map", "[aout]",
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		"-y",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg music mix failed: %w (%s)", err, truncateString(string(out), 500))
	}
	return nil
}

// GetAudioDuration returns the duration of an audio file in seconds.
func (s *FFmpegService) GetAudioDuration(ctx context.Context, audioPath string) (float64, error) {
	return s.probeDuration(ctx, audioPath)
}

func (s *FFmpegService) probeDuration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	cmd := exec.CommandContext(ctx, "ffprobe", args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	var durationSec float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(output)), "%f", &durationSec); err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}
	return durationSec, nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
