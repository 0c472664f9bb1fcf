package tts

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/book-expert/audiobook-service/internal/core"
	"github.com/book-expert/logger"
)

// ChatLLMConfig holds the model paths for the local chatllm backend.
type ChatLLMConfig struct {
	ModelPath     string
	SnacModelPath string
}

// ChatLLMSynthesizer implements core.Synthesizer by calling the chatllm
// binary. It is the offline alternative to the HTTP client.
type ChatLLMSynthesizer struct {
	config ChatLLMConfig
	log    *logger.Logger
}

// NewChatLLM creates a new chatllm-backed synthesizer.
func NewChatLLM(cfg ChatLLMConfig, log *logger.Logger) *ChatLLMSynthesizer {
	return &ChatLLMSynthesizer{config: cfg, log: log}
}

// Synthesize renders the text in the given voice by invoking the chatllm
// binary and reading back the exported WAV file.
func (s *ChatLLMSynthesizer) Synthesize(
	ctx context.Context,
	text, voice string,
	params core.SynthesisParams,
) ([]byte, error) {
	if text == "" {
		return nil, ErrTextEmpty
	}

	if voice == "" {
		return nil, ErrVoiceEmpty
	}

	tempFile, err := os.CreateTemp("", "narration-*.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file for tts output: %w", err)
	}

	defer func() {
		removeErr := os.Remove(tempFile.Name())
		if removeErr != nil {
			s.log.Warn("Failed to remove temp file '%s': %v", tempFile.Name(), removeErr)
		}
	}()

	args := []string{
		"-m", s.config.ModelPath,
		"--snac_model", s.config.SnacModelPath,
		"-p", fmt.Sprintf("{%s}: %s", voice, text),
		"--tts_export", tempFile.Name(),
		"--temp", fmt.Sprintf("%.2f", params.Temperature),
	}

	// #nosec G204 -- arguments come from validated configuration and markup
	cmd := exec.CommandContext(ctx, "chatllm", args...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("chatllm binary execution failed: %w - output: %s", err, string(output))
	}

	audioData, err := os.ReadFile(tempFile.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data from temp file: %w", err)
	}

	return audioData, nil
}
