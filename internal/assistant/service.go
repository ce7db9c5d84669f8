package assistant

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thanaphumeng-byte/Dose-DISH-APP/internal/analysis"
)

var (
	// ErrProfileRequired is returned when an operation needs a saved
	// profile and none exists yet
	ErrProfileRequired = errors.New("a saved profile is required")

	// ErrEmptyInput is returned when a request carries neither text nor
	// an image; rejected before any prompt is composed
	ErrEmptyInput = errors.New("input must include text or an image")
)

// historyContextLimit caps how many history entries are serialized into
// prompts, newest last, so long-lived profiles don't bloat every call
const historyContextLimit = 20

// IDGenerator generates unique IDs for history items and chat messages
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service orchestrates scans, interaction checks, and chat: it builds
// prompts from profile state, delegates to the analyzer, interprets the
// reply, and applies the history-append policy.
type Service struct {
	db          DB
	analyzer    analysis.Analyzer
	idGenerator IDGenerator
	timeSource  TimeSource

	// chat session state; strictly append-ordered, never persisted
	mu   sync.Mutex
	chat []ChatMessage
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, analyzer analysis.Analyzer) *Service {
	return &Service{
		db:          db,
		analyzer:    analyzer,
		idGenerator: &defaultIDGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, analyzer analysis.Analyzer, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		analyzer:    analyzer,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// SaveProfile validates and stores the profile. Identity fields are a
// full replace; recorded history survives an edit unless the caller
// supplies its own.
func (s *Service) SaveProfile(profile *UserProfile) error {
	if strings.TrimSpace(profile.Name) == "" {
		return fmt.Errorf("profile name is required")
	}
	if profile.Age < 0 {
		return fmt.Errorf("age must not be negative")
	}

	if profile.History == nil {
		if existing, err := s.db.GetProfile(); err == nil {
			profile.History = existing.History
		}
	}
	profile.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveProfile(profile); err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	return nil
}

// Profile returns the saved profile
func (s *Service) Profile() (*UserProfile, error) {
	profile, err := s.db.GetProfile()
	if err != nil {
		return nil, fmt.Errorf("getting profile: %w", err)
	}
	return profile, nil
}

// SaveTheme stores the theme preference
func (s *Service) SaveTheme(theme string) error {
	if theme != "light" && theme != "dark" {
		return fmt.Errorf("unknown theme %q", theme)
	}
	if err := s.db.SaveTheme(theme); err != nil {
		return fmt.Errorf("saving theme: %w", err)
	}
	return nil
}

// Theme returns the saved theme preference
func (s *Service) Theme() (string, error) {
	theme, err := s.db.GetTheme()
	if err != nil {
		return "", fmt.Errorf("getting theme: %w", err)
	}
	return theme, nil
}

// profileContext serializes a profile snapshot for prompt embedding
func profileContext(profile *UserProfile) analysis.ProfileContext {
	ctx := analysis.ProfileContext{
		Name:        profile.Name,
		Age:         profile.Age,
		Conditions:  profile.Conditions,
		Medications: profile.Medications,
		Allergies:   profile.Allergies,
	}

	history := profile.History
	if len(history) > historyContextLimit {
		history = history[len(history)-historyContextLimit:]
	}
	for _, item := range history {
		line := fmt.Sprintf("%s [%s] %s", item.Date, item.Type, item.Name)
		if item.Value != "" {
			line += " = " + item.Value
		}
		ctx.History = append(ctx.History, line)
	}
	return ctx
}

// isScannable reports whether a mode may be scanned and recorded
func isScannable(mode analysis.ScanMode) bool {
	switch mode {
	case analysis.ModeMedication, analysis.ModeMeal, analysis.ModeLabResult:
		return true
	}
	return false
}

// Scan analyzes a photographed or described medication, meal, or lab
// result. The reply is classified into a risk level and, when the
// extraction heuristic finds a real name or value, appended to the
// profile's history.
func (s *Service) Scan(input analysis.ScanInput, mode analysis.ScanMode, lang analysis.Language) (*AnalysisResult, error) {
	if strings.TrimSpace(input.Text) == "" && len(input.Image) == 0 {
		return nil, ErrEmptyInput
	}
	if !isScannable(mode) {
		return nil, fmt.Errorf("invalid scan mode %q", mode)
	}

	profile, err := s.db.GetProfile()
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, ErrProfileRequired
		}
		return nil, fmt.Errorf("getting profile: %w", err)
	}

	prompt := analysis.ComposeScan(mode, input, profileContext(profile), lang)

	text, err := s.analyzer.Generate(prompt)
	if err != nil {
		slog.Error("Analyzer call failed", "mode", mode, "error", err)
		// Failures collapse to a fixed localized string that flows
		// through the same classifier and extractor as any reply
		text = analysis.LocaleOrDefault(lang).AnalyzeFailure
	}

	now := s.timeSource.Now()
	result := &AnalysisResult{
		Text:      text,
		RiskLevel: analysis.Classify(text),
		Timestamp: now,
		Mode:      mode,
	}

	record, found := analysis.Extract(text, mode)
	if found {
		result.Extracted = &record
		item := HistoryItem{
			ID:        s.idGenerator.Generate(),
			Type:      mode,
			Name:      record.Name,
			Value:     record.Value,
			Date:      now.Format("2006-01-02"),
			Timestamp: now,
		}
		profile.History = append(profile.History, item)
		profile.UpdatedAt = now
		if err := s.db.SaveProfile(profile); err != nil {
			// The analysis itself is still usable
			slog.Warn("Failed to record scan in history", "item", item.Name, "error", err)
		}
	}

	return result, nil
}

// CheckInteraction runs a direct food/drug interaction check. Works
// without a profile by substituting a Guest context; never writes
// history.
func (s *Service) CheckInteraction(item, drug string, lang analysis.Language) (*AnalysisResult, error) {
	if strings.TrimSpace(item) == "" {
		return nil, ErrEmptyInput
	}

	ctx := analysis.Guest()
	if profile, err := s.db.GetProfile(); err == nil {
		ctx = profileContext(profile)
	}

	prompt := analysis.ComposeInteraction(item, drug, ctx, lang)

	text, err := s.analyzer.Generate(prompt)
	if err != nil {
		slog.Error("Interaction check failed", "item", item, "drug", drug, "error", err)
		text = analysis.LocaleOrDefault(lang).InteractionFailure
	}

	return &AnalysisResult{
		Text:      text,
		RiskLevel: analysis.Classify(text),
		Timestamp: s.timeSource.Now(),
		Mode:      analysis.ModeInteraction,
	}, nil
}

// Chat sends one pharmacist-chat turn. Prior turns are replayed in send
// order; the model reply is appended to the session and returned.
func (s *Service) Chat(text string, image []byte, contentType string, lang analysis.Language) (*ChatMessage, error) {
	if strings.TrimSpace(text) == "" && len(image) == 0 {
		return nil, ErrEmptyInput
	}

	profile, err := s.db.GetProfile()
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, ErrProfileRequired
		}
		return nil, fmt.Errorf("getting profile: %w", err)
	}

	s.mu.Lock()
	turns := make([]analysis.Turn, 0, len(s.chat))
	for _, msg := range s.chat {
		turns = append(turns, analysis.Turn{Role: msg.Role, Text: msg.Text, Image: msg.Image})
	}
	s.chat = append(s.chat, ChatMessage{
		ID:        s.idGenerator.Generate(),
		Role:      analysis.RoleUser,
		Text:      text,
		Image:     image,
		Timestamp: s.timeSource.Now(),
	})
	s.mu.Unlock()

	prompt := analysis.ComposeChat(turns, text, image, contentType, profileContext(profile), lang)

	replyText, err := s.analyzer.Generate(prompt)
	if err != nil {
		slog.Error("Chat call failed", "error", err)
		replyText = analysis.LocaleOrDefault(lang).AnalyzeFailure
	}

	reply := ChatMessage{
		ID:        s.idGenerator.Generate(),
		Role:      analysis.RoleModel,
		Text:      replyText,
		Timestamp: s.timeSource.Now(),
	}

	s.mu.Lock()
	s.chat = append(s.chat, reply)
	s.mu.Unlock()

	return &reply, nil
}

// ChatHistory returns a copy of the session conversation in send order
func (s *Service) ChatHistory() []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := make([]ChatMessage, len(s.chat))
	copy(history, s.chat)
	return history
}

// ResetChat clears the session conversation
func (s *Service) ResetChat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chat = nil
}

// LabSeries derives chartable points from recorded lab results, oldest
// first. An absent profile yields an empty series, not an error.
func (s *Service) LabSeries() ([]LabPoint, error) {
	profile, err := s.db.GetProfile()
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return []LabPoint{}, nil
		}
		return nil, fmt.Errorf("getting profile: %w", err)
	}

	points := make([]LabPoint, 0)
	for _, item := range profile.History {
		if item.Type != analysis.ModeLabResult || item.Value == "" {
			continue
		}
		value, err := strconv.ParseFloat(item.Value, 64)
		if err != nil {
			continue
		}
		points = append(points, LabPoint{
			Date:   item.Date,
			Value:  value,
			Metric: item.Name,
		})
	}
	return points, nil
}
