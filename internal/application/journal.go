package application

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"voice-journal/internal/domain"
)

type Providers struct {
	STT     SpeechToText
	Cleaner TextCleaner
	Tagger  Tagger
	// Converter is optional; audio is sent to the STT provider as uploaded when nil.
	Converter AudioConverter
}

type JournalConfig struct {
	TranscribeTimeout time.Duration
	CleanTimeout      time.Duration
	TagTimeout        time.Duration
	MaxUploadBytes    int64
}

func DefaultJournalConfig() JournalConfig {
	return JournalConfig{
		TranscribeTimeout: 60 * time.Second,
		CleanTimeout:      15 * time.Second,
		TagTimeout:        10 * time.Second,
		MaxUploadBytes:    50 << 20,
	}
}

type Transcription struct {
	Text     string
	Duration time.Duration
	// DurationKnown is false when the audio could not be measured, e.g. without ffmpeg.
	DurationKnown bool
}

// Journal runs the voice note pipeline: convert, transcribe, clean, tag and persist.
type Journal struct {
	providers Providers
	thoughts  ThoughtStore
	profiles  ProfileStore
	events    EventPublisher
	cfg       JournalConfig
	logger    *slog.Logger
}

func NewJournal(
	providers Providers,
	thoughts ThoughtStore,
	profiles ProfileStore,
	events EventPublisher,
	cfg JournalConfig,
	logger *slog.Logger,
) *Journal {
	if providers.STT == nil {
		providers.STT = &NoopSTT{}
	}
	if providers.Cleaner == nil {
		providers.Cleaner = &NoopCleaner{}
	}
	if providers.Tagger == nil {
		providers.Tagger = &NoopTagger{}
	}
	if events == nil {
		events = &NoopPublisher{}
	}
	defaults := DefaultJournalConfig()
	if cfg.TranscribeTimeout <= 0 {
		cfg.TranscribeTimeout = defaults.TranscribeTimeout
	}
	if cfg.CleanTimeout <= 0 {
		cfg.CleanTimeout = defaults.CleanTimeout
	}
	if cfg.TagTimeout <= 0 {
		cfg.TagTimeout = defaults.TagTimeout
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaults.MaxUploadBytes
	}

	return &Journal{
		providers: providers,
		thoughts:  thoughts,
		profiles:  profiles,
		events:    events,
		cfg:       cfg,
		logger:    logger,
	}
}

func (j *Journal) MaxUploadBytes() int64 {
	return j.cfg.MaxUploadBytes
}

// Transcribe converts and transcribes audio. When user is non-nil the tier
// limits are enforced and the measured minutes are charged to the profile.
func (j *Journal) Transcribe(ctx context.Context, audio []byte, filename string, user *domain.Profile) (*Transcription, error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("audio file is empty: %w", domain.ErrInvalidInput)
	}
	if int64(len(audio)) > j.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("audio is %d bytes, limit is %d: %w", len(audio), j.cfg.MaxUploadBytes, domain.ErrTooLarge)
	}

	start := time.Now()
	audio, filename = j.convert(ctx, audio, filename)
	duration, known := WAVDuration(audio)

	if user != nil {
		if known {
			if err := user.CanRecord(duration); err != nil {
				return nil, fmt.Errorf("recording of %s on %s tier: %w", duration.Round(time.Second), user.Tier, err)
			}
		} else if user.MinutesRemaining() <= 0 {
			return nil, fmt.Errorf("no minutes left on %s tier: %w", user.Tier, domain.ErrLimitExceeded)
		}
	}

	tctx, cancel := context.WithTimeout(ctx, j.cfg.TranscribeTimeout)
	defer cancel()

	text, err := j.providers.STT.Transcribe(tctx, audio, filename)
	if err != nil {
		return nil, fmt.Errorf("transcribing audio: %w", err)
	}
	text = strings.TrimSpace(text)

	j.logger.Info("audio transcribed",
		"bytes", len(audio),
		"duration", duration.Round(time.Millisecond),
		"chars", len(text),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	if user != nil && known && j.profiles != nil {
		if err := j.profiles.AddUsage(ctx, user.UserID, duration.Minutes(), 0); err != nil {
			j.logger.Error("failed to record usage", "user_id", user.UserID, "error", err)
		} else {
			user.MinutesUsed += duration.Minutes()
			j.publish(domain.EventProfileUpdated, user.UserID, map[string]any{
				"minutes_used": user.MinutesUsed,
			})
		}
	}

	return &Transcription{Text: text, Duration: duration, DurationKnown: known}, nil
}

func (j *Journal) convert(ctx context.Context, audio []byte, filename string) ([]byte, string) {
	if j.providers.Converter == nil {
		return audio, filename
	}

	converted, err := j.providers.Converter.Convert(ctx, audio, filename)
	if err != nil {
		j.logger.Warn("audio conversion failed, sending original", "filename", filename, "error", err)
		return audio, filename
	}

	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if base == "" || base == "." {
		base = "audio"
	}
	return converted, base + ".wav"
}

// Clean never fails because of the provider: on error or timeout the
// original text comes back with Cleaned=false.
func (j *Journal) Clean(ctx context.Context, text string) (*CleanResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("text is required: %w", domain.ErrInvalidInput)
	}

	cctx, cancel := context.WithTimeout(ctx, j.cfg.CleanTimeout)
	defer cancel()

	cleaned, err := j.providers.Cleaner.Clean(cctx, text)
	if err != nil {
		j.logger.Warn("cleaning failed, returning original text", "error", err)
		return &CleanResult{Text: text}, nil
	}

	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		j.logger.Warn("cleaner returned empty text, returning original")
		return &CleanResult{Text: text}, nil
	}

	return &CleanResult{Text: cleaned, Cleaned: true}, nil
}

// Tag degrades to no tags and the uncategorized category.
func (j *Journal) Tag(ctx context.Context, text string) (*TagResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("text is required: %w", domain.ErrInvalidInput)
	}

	tctx, cancel := context.WithTimeout(ctx, j.cfg.TagTimeout)
	defer cancel()

	fallback := &TagResult{Tags: []string{}, Category: domain.CategoryUncategorized}

	result, err := j.providers.Tagger.Tag(tctx, text)
	if err != nil {
		j.logger.Warn("tagging failed, returning no tags", "error", err)
		return fallback, nil
	}
	if result == nil {
		return fallback, nil
	}

	return &TagResult{
		Tags:     domain.NormalizeTags(result.Tags),
		Category: domain.NormalizeCategory(result.Category),
		Tagged:   true,
	}, nil
}

// Process runs the full pipeline for an uploaded recording and saves the thought.
func (j *Journal) Process(ctx context.Context, user *domain.Profile, audio []byte, filename string) (*domain.Thought, error) {
	if user == nil {
		return nil, domain.ErrUnauthorized
	}

	transcription, err := j.Transcribe(ctx, audio, filename, user)
	if err != nil {
		return nil, err
	}
	if transcription.Text == "" {
		return nil, fmt.Errorf("no speech detected: %w", domain.ErrInvalidInput)
	}

	cleaned, err := j.Clean(ctx, transcription.Text)
	if err != nil {
		return nil, err
	}

	tags, err := j.Tag(ctx, cleaned.Text)
	if err != nil {
		return nil, err
	}

	thought := &domain.Thought{
		UserID:          user.UserID,
		RawTranscript:   transcription.Text,
		CleanedText:     cleaned.Text,
		Tags:            tags.Tags,
		Category:        tags.Category,
		DurationSeconds: transcription.Duration.Seconds(),
	}
	if err := j.thoughts.Create(ctx, thought); err != nil {
		return nil, fmt.Errorf("saving thought: %w", err)
	}

	if credits := countTrue(cleaned.Cleaned, tags.Tagged); credits > 0 && j.profiles != nil {
		if err := j.profiles.AddUsage(ctx, user.UserID, 0, credits); err != nil {
			j.logger.Error("failed to record credits", "user_id", user.UserID, "error", err)
		}
	}

	j.logger.Info("thought processed",
		"thought_id", thought.ID,
		"user_id", user.UserID,
		"cleaned", cleaned.Cleaned,
		"tags", thought.Tags,
	)
	j.publish(domain.EventThoughtCreated, user.UserID, thought)

	return thought, nil
}

type NewThought struct {
	RawTranscript string
	CleanedText   string
	Tags          []string
	Category      string
	DurationSecs  float64
}

// CreateThought saves a thought whose text was produced client-side.
func (j *Journal) CreateThought(ctx context.Context, userID string, in NewThought) (*domain.Thought, error) {
	raw := strings.TrimSpace(in.RawTranscript)
	cleaned := strings.TrimSpace(in.CleanedText)
	if raw == "" && cleaned == "" {
		return nil, fmt.Errorf("raw_transcript or cleaned_text is required: %w", domain.ErrInvalidInput)
	}
	if raw == "" {
		raw = cleaned
	}
	if in.DurationSecs < 0 {
		return nil, fmt.Errorf("duration_seconds must not be negative: %w", domain.ErrInvalidInput)
	}

	thought := &domain.Thought{
		UserID:          userID,
		RawTranscript:   raw,
		CleanedText:     cleaned,
		Tags:            domain.NormalizeTags(in.Tags),
		Category:        domain.NormalizeCategory(in.Category),
		DurationSeconds: in.DurationSecs,
	}
	if err := j.thoughts.Create(ctx, thought); err != nil {
		return nil, fmt.Errorf("saving thought: %w", err)
	}

	j.publish(domain.EventThoughtCreated, userID, thought)
	return thought, nil
}

func (j *Journal) ListThoughts(ctx context.Context, userID string, opts ListOptions) ([]domain.Thought, int, error) {
	thoughts, total, err := j.thoughts.List(ctx, userID, opts.Normalize())
	if err != nil {
		return nil, 0, fmt.Errorf("listing thoughts: %w", err)
	}
	return thoughts, total, nil
}

func (j *Journal) GetThought(ctx context.Context, userID, id string) (*domain.Thought, error) {
	return j.thoughts.Get(ctx, userID, id)
}

func (j *Journal) DeleteThought(ctx context.Context, userID, id string) error {
	if err := j.thoughts.Delete(ctx, userID, id); err != nil {
		return err
	}
	j.publish(domain.EventThoughtDeleted, userID, map[string]string{"id": id})
	return nil
}

// AllThoughts pages through every thought of a user, newest first.
func (j *Journal) AllThoughts(ctx context.Context, userID string) ([]domain.Thought, error) {
	var all []domain.Thought
	opts := ListOptions{Limit: MaxListLimit}
	for {
		page, total, err := j.thoughts.List(ctx, userID, opts)
		if err != nil {
			return nil, fmt.Errorf("listing thoughts: %w", err)
		}
		all = append(all, page...)
		if len(page) == 0 || len(all) >= total {
			return all, nil
		}
		opts.Offset += len(page)
	}
}

// Profile returns the caller's profile, creating a trial profile on first use.
func (j *Journal) Profile(ctx context.Context, userID, email string) (*domain.Profile, error) {
	profile, err := j.profiles.GetOrCreate(ctx, userID, email)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	return profile, nil
}

func (j *Journal) publish(eventType domain.EventType, userID string, payload any) {
	j.events.Publish(domain.Event{
		Type:      eventType,
		UserID:    userID,
		Payload:   payload,
		Timestamp: time.Now(),
	})
}

func countTrue(values ...bool) int {
	n := 0
	for _, v := range values {
		if v {
			n++
		}
	}
	return n
}
