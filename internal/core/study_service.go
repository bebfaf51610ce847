package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/studymate-ai/studymate/internal/store"
)

// ErrGateway wraps failures of the outbound generative call so the API
// layer can distinguish them from store and validation errors.
var ErrGateway = errors.New("gateway call failed")

// StudyService orchestrates one submission: precondition check, template
// assembly, the gateway call, and — only on success — persisting the
// exchange and notifying the feed.
type StudyService struct {
	store   *store.SQLiteStore
	gateway Gateway
	feed    *Feed
}

func NewStudyService(st *store.SQLiteStore, gw Gateway, feed *Feed) *StudyService {
	return &StudyService{store: st, gateway: gw, feed: feed}
}

// AskInput is the transient pending request for one submission.
type AskInput struct {
	Mode  string
	Text  string
	Image *ImageAttachment
}

// Ask runs one prompt through its mode's template and the gateway.
// Validation failures (ErrEmptyPrompt, ErrProfileRequired, ErrUnknownMode)
// are returned before any network call. A failed gateway call persists
// nothing; a successful one appends exactly one exchange.
func (s *StudyService) Ask(ctx context.Context, identity string, in AskInput) (*store.Exchange, error) {
	mode, ok := ModeByName(in.Mode)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, in.Mode)
	}

	profile, err := s.store.GetProfile(identity)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	req := PromptRequest{Text: in.Text, Image: in.Image}
	if profile != nil {
		req.Category = profile.MBTICategory
	}

	if err := mode.Precondition(req); err != nil {
		return nil, err
	}

	responseText, err := s.gateway.Generate(ctx, mode.Template(req), in.Image)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	ex := &store.Exchange{
		Identity:     identity,
		Mode:         mode.Name,
		PromptText:   in.Text,
		ResponseText: responseText,
	}
	if req.Category != "" {
		category := req.Category
		ex.MBTICategory = &category
	}

	if err := s.store.CreateExchange(ex); err != nil {
		return nil, fmt.Errorf("failed to store exchange: %w", err)
	}

	s.feed.Notify(identity)
	return ex, nil
}

// Profile returns the identity's learning-style document, or nil when
// none has been selected yet (the first-run condition).
func (s *StudyService) Profile(identity string) (*store.Profile, error) {
	return s.store.GetProfile(identity)
}

// SaveProfile merge-writes the category after validating it against the
// 16 known codes.
func (s *StudyService) SaveProfile(identity, category string) error {
	if !IsValidCategory(category) {
		return fmt.Errorf("%w: %q", ErrBadCategory, category)
	}
	return s.store.SaveProfile(identity, category)
}

// History returns the identity's sorted history snapshot.
func (s *StudyService) History(identity string) ([]store.Exchange, error) {
	return s.feed.Snapshot(identity)
}
