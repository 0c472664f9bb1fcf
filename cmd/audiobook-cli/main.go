// Command audiobook-cli compiles a markup file into a WAV audiobook locally,
// without going through the NATS worker.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/book-expert/audiobook-service/internal/compiler"
	"github.com/book-expert/audiobook-service/internal/core"
	"github.com/book-expert/audiobook-service/internal/fsutil"
	"github.com/book-expert/audiobook-service/internal/soundlib"
	"github.com/book-expert/audiobook-service/internal/tts"
	"github.com/book-expert/logger"
)

// Flag names.
const (
	flagInput    = "input"
	flagOutput   = "output"
	flagSFXDir   = "sfx-dir"
	flagBGDir    = "bg-dir"
	flagTTSURL   = "tts-url"
	flagTimeout  = "timeout"
	flagLanguage = "language"
	flagValidate = "validate"
	flagHealth   = "health"
)

// Flag descriptions.
const (
	flagInputDesc    = "Markup text file to compile"
	flagOutputDesc   = "Output file path (.wav); defaults to the input name"
	flagSFXDirDesc   = "Sound effect library directory"
	flagBGDirDesc    = "Background track library directory"
	flagTTSURLDesc   = "Base URL of the TTS service"
	flagTimeoutDesc  = "Per-request TTS timeout in seconds"
	flagLanguageDesc = "Language code passed to the TTS service"
	flagValidateDesc = "Only validate the markup and exit"
	flagHealthDesc   = "Check TTS service health and exit"
)

// Defaults.
const (
	defaultTTSURL     = "http://localhost:8000"
	defaultTimeoutSec = 120
	defaultLanguage   = "en"
	defaultSFXDir     = "sounds/sfx"
	defaultBGDir      = "sounds/background"

	outputExt    = ".wav"
	msPerSecond  = 1000.0
	filePermMode = 0o600
)

// Static errors.
var (
	errInputRequired = errors.New("--input must be provided")
	errInvalidMarkup = errors.New("markup has validation issues")
)

type options struct {
	input    string
	output   string
	sfxDir   string
	bgDir    string
	ttsURL   string
	timeout  int
	language string
	validate bool
	health   bool
}

func parseFlags() options {
	var opts options

	flag.StringVar(&opts.input, flagInput, "", flagInputDesc)
	flag.StringVar(&opts.output, flagOutput, "", flagOutputDesc)
	flag.StringVar(&opts.sfxDir, flagSFXDir, defaultSFXDir, flagSFXDirDesc)
	flag.StringVar(&opts.bgDir, flagBGDir, defaultBGDir, flagBGDirDesc)
	flag.StringVar(&opts.ttsURL, flagTTSURL, defaultTTSURL, flagTTSURLDesc)
	flag.IntVar(&opts.timeout, flagTimeout, defaultTimeoutSec, flagTimeoutDesc)
	flag.StringVar(&opts.language, flagLanguage, defaultLanguage, flagLanguageDesc)
	flag.BoolVar(&opts.validate, flagValidate, false, flagValidateDesc)
	flag.BoolVar(&opts.health, flagHealth, false, flagHealthDesc)
	flag.Parse()

	return opts
}

// deriveOutputPath returns the output WAV path for a markup input path,
// sanitizing the base name.
func deriveOutputPath(inputPath string) string {
	base := filepath.Base(inputPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	return fsutil.SanitizeFilename(base) + outputExt
}

func run() error {
	opts := parseFlags()

	log, err := logger.New(os.TempDir(), "audiobook-cli.log")
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	defer func() {
		closeErr := log.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing logger: %v\n", closeErr)
		}
	}()

	client := tts.NewHTTPClient(opts.ttsURL, time.Duration(opts.timeout)*time.Second)

	if opts.health {
		healthErr := client.HealthCheck(context.Background())
		if healthErr != nil {
			return fmt.Errorf("TTS service is not healthy: %w", healthErr)
		}

		fmt.Println("TTS service is healthy")

		return nil
	}

	if opts.input == "" {
		return errInputRequired
	}

	markupData, err := os.ReadFile(opts.input)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	library, err := soundlib.New(opts.sfxDir, opts.bgDir, log)
	if err != nil {
		return fmt.Errorf("failed to open sound library: %w", err)
	}

	params := core.SynthesisParams{Language: opts.language, Temperature: 0}
	comp := compiler.New(client, library, params, log)

	issues := comp.Validate(string(markupData))
	for _, issue := range issues {
		fmt.Fprintf(os.Stderr, "validation: %s\n", issue)
	}

	if len(issues) > 0 {
		return errInvalidMarkup
	}

	if opts.validate {
		fmt.Println("Markup is valid")

		return nil
	}

	result, err := comp.Compile(context.Background(), string(markupData))
	if err != nil {
		return fmt.Errorf("compile failed: %w", err)
	}

	outputPath := opts.output
	if outputPath == "" {
		outputPath = deriveOutputPath(opts.input)
	}

	err = os.WriteFile(outputPath, result.Audio, filePermMode)
	if err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	fmt.Printf("Rendered %s of audio (%d sections, %d events, %d skipped) to %s\n",
		fsutil.FormatDuration(result.DurationMS/msPerSecond),
		result.Sections, result.Events, result.SkippedAssets, outputPath)

	return nil
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "audiobook-cli: %v\n", err)
		os.Exit(1)
	}
}
