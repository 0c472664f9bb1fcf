// Package worker provides a NATS worker that processes audiobook compile
// jobs: it downloads markup text from the object store, runs the compiler,
// and uploads the rendered WAV.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/book-expert/audiobook-service/internal/compiler"
	"github.com/book-expert/audiobook-service/internal/core"
	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// A whole book render can take a while; synthesis dominates.
const handleMessageTimeout = 10 * time.Minute

const audioKeySuffix = ".wav"

// ErrMarkupInvalid is returned when advisory validation finds issues; the job
// fails before any synthesis work starts.
var ErrMarkupInvalid = errors.New("markup validation failed")

// AudiobookCompiler is the slice of the compiler the worker needs.
type AudiobookCompiler interface {
	Validate(markupText string) []string
	Compile(ctx context.Context, markupText string) (*compiler.Result, error)
}

// NatsWorker listens for audiobook jobs on a NATS subject and processes them
// one at a time; each job is a single sequential pipeline.
type NatsWorker struct {
	natsConnection   *nats.Conn
	jetstreamContext nats.JetStreamContext
	subject          string
	store            core.ObjectStore
	comp             AudiobookCompiler
	log              *logger.Logger
}

// NewNatsWorker creates a new instance of the audiobook worker.
func NewNatsWorker(
	natsConnection *nats.Conn,
	jetstreamContext nats.JetStreamContext,
	subject string,
	store core.ObjectStore,
	comp AudiobookCompiler,
	log *logger.Logger,
) (*NatsWorker, error) {
	return &NatsWorker{
		natsConnection:   natsConnection,
		jetstreamContext: jetstreamContext,
		subject:          subject,
		store:            store,
		comp:             comp,
		log:              log,
	}, nil
}

// Run starts the worker and begins listening for messages until the context
// is cancelled.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.Subscribe(w.subject, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, err)
	}

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleMessageTimeout)
	defer cancel()

	event, err := parseEvent(msg)
	if err != nil {
		w.log.Error("Failed to parse audiobook job event: %v", err)

		return
	}

	audioKey, processErr := w.processJob(ctx, event)
	if processErr != nil {
		w.log.Error("Audiobook job failed for workflow %s: %v", event.Header.WorkflowID, processErr)

		return
	}

	replyEvent := &events.AudioChunkCreatedEvent{
		Header:     event.Header,
		AudioKey:   audioKey,
		PageNumber: event.PageNumber,
		TotalPages: event.TotalPages,
	}

	err = w.publishReplyEvent(msg, replyEvent)
	if err != nil {
		w.log.Error("Failed to publish reply event for workflow %s: %v", event.Header.WorkflowID, err)
	}
}

// processJob downloads the markup, validates it, compiles it, and uploads the
// rendered audio. The uploaded key is returned.
func (w *NatsWorker) processJob(ctx context.Context, event *events.TextProcessedEvent) (string, error) {
	markupData, err := w.store.Download(ctx, event.TextKey)
	if err != nil {
		return "", fmt.Errorf("failed to download markup for key '%s': %w", event.TextKey, err)
	}

	markupText := string(markupData)

	// Advisory validation runs first so content errors fail the job before
	// any synthesis calls are spent.
	issues := w.comp.Validate(markupText)
	if len(issues) > 0 {
		return "", fmt.Errorf("%w: %s", ErrMarkupInvalid, strings.Join(issues, "; "))
	}

	result, err := w.comp.Compile(ctx, markupText)
	if err != nil {
		return "", fmt.Errorf("failed to compile audiobook: %w", err)
	}

	if result.SkippedAssets > 0 {
		w.log.Warn("Workflow %s completed with %d skipped sound asset(s)",
			event.Header.WorkflowID, result.SkippedAssets)
	}

	audioKey := uuid.NewString() + audioKeySuffix

	err = w.store.Upload(ctx, audioKey, result.Audio)
	if err != nil {
		return "", fmt.Errorf("failed to upload audio for key '%s': %w", audioKey, err)
	}

	w.log.Info("Workflow %s rendered %.0f ms of audio to %s",
		event.Header.WorkflowID, result.DurationMS, audioKey)

	return audioKey, nil
}

// publishReplyEvent marshals and responds with the AudioChunkCreatedEvent.
func (w *NatsWorker) publishReplyEvent(msg *nats.Msg, replyEvent *events.AudioChunkCreatedEvent) error {
	replyData, err := json.Marshal(replyEvent)
	if err != nil {
		return fmt.Errorf("failed to marshal reply event: %w", err)
	}

	err = msg.Respond(replyData)
	if err != nil {
		return fmt.Errorf("failed to publish reply event: %w", err)
	}

	return nil
}

func parseEvent(msg *nats.Msg) (*events.TextProcessedEvent, error) {
	var event events.TextProcessedEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	return &event, nil
}
