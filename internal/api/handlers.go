package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/studymate-ai/studymate/internal/auth"
	"github.com/studymate-ai/studymate/internal/core"
	"github.com/studymate-ai/studymate/internal/store"
)

type contextKey string

const identityKey contextKey = "identity"

type APIHandler struct {
	auth  *auth.Manager
	study *core.StudyService
	feed  *core.Feed
}

func NewAPIHandler(am *auth.Manager, study *core.StudyService, feed *core.Feed) *APIHandler {
	return &APIHandler{auth: am, study: study, feed: feed}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// SessionAuthMiddleware restores the identity from a bearer token.
// Tokens supplied as a query parameter are promoted into the header by
// promoteQueryToken before this runs.
func (h *APIHandler) SessionAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if tokenString == "" {
			writeError(w, http.StatusUnauthorized, "Authorization is required")
			return
		}

		identity, err := h.auth.VerifySessionToken(tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired session token")
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type SessionRequest struct {
	CustomToken string `json:"custom_token,omitempty"`
}

type SessionResponse struct {
	Token    string `json:"token"`
	Identity string `json:"identity"`
}

// SessionHandler establishes an identity: anonymous sign-in by default,
// or a custom-token exchange when a pre-provisioned credential is sent.
func (h *APIHandler) SessionHandler(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	var identity string
	if req.CustomToken != "" {
		var err error
		identity, err = h.auth.ExchangeCustomToken(req.CustomToken)
		if err != nil {
			log.Printf("Custom token exchange failed: %v", err)
			writeError(w, http.StatusUnauthorized, "Custom token exchange failed")
			return
		}
	} else {
		identity = h.auth.AnonymousIdentity()
	}

	token, err := h.auth.IssueSessionToken(identity)
	if err != nil {
		log.Printf("Error issuing session token for %s: %v", identity, err)
		writeError(w, http.StatusInternalServerError, "Failed to establish session")
		return
	}

	writeJSON(w, http.StatusOK, SessionResponse{Token: token, Identity: identity})
}

type ProfileResponse struct {
	MBTICategory *string `json:"mbti_category"`
}

// GetProfileHandler returns the learning-style category, null when no
// profile exists yet so the page can open the first-run selection.
func (h *APIHandler) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	identity := r.Context().Value(identityKey).(string)

	profile, err := h.study.Profile(identity)
	if err != nil {
		log.Printf("Error loading profile for %s: %v", identity, err)
		writeError(w, http.StatusInternalServerError, "Failed to load profile")
		return
	}

	var resp ProfileResponse
	if profile != nil {
		resp.MBTICategory = &profile.MBTICategory
	}
	writeJSON(w, http.StatusOK, resp)
}

type SaveProfileRequest struct {
	MBTICategory string `json:"mbti_category"`
}

func (h *APIHandler) SaveProfileHandler(w http.ResponseWriter, r *http.Request) {
	identity := r.Context().Value(identityKey).(string)

	var req SaveProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := h.study.SaveProfile(identity, req.MBTICategory); err != nil {
		if errors.Is(err, core.ErrBadCategory) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("Error saving profile for %s: %v", identity, err)
		writeError(w, http.StatusInternalServerError, "Failed to save profile")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) ListExchangesHandler(w http.ResponseWriter, r *http.Request) {
	identity := r.Context().Value(identityKey).(string)

	exchanges, err := h.study.History(identity)
	if err != nil {
		log.Printf("Error listing exchanges for %s: %v", identity, err)
		writeError(w, http.StatusInternalServerError, "Failed to list history")
		return
	}
	if exchanges == nil {
		exchanges = []store.Exchange{}
	}
	writeJSON(w, http.StatusOK, exchanges)
}

// StreamExchangesHandler pushes full history snapshots over SSE: the
// current snapshot on connect, then one event per change. The
// subscription is released when the request context ends.
func (h *APIHandler) StreamExchangesHandler(w http.ResponseWriter, r *http.Request) {
	identity := r.Context().Value(identityKey).(string)

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	updates, unsubscribe := h.feed.Subscribe(identity)
	defer unsubscribe()

	writeSnapshot := func(exchanges []store.Exchange) bool {
		if exchanges == nil {
			exchanges = []store.Exchange{}
		}
		data, err := json.Marshal(exchanges)
		if err != nil {
			log.Printf("Error marshaling snapshot for %s: %v", identity, err)
			return false
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	snapshot, err := h.feed.Snapshot(identity)
	if err != nil {
		log.Printf("Error loading initial snapshot for %s: %v", identity, err)
		fmt.Fprintf(w, "data: {\"error\": %q}\n\n", "Failed to load history")
		flusher.Flush()
		return
	}
	if !writeSnapshot(snapshot) {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case exchanges := <-updates:
			if !writeSnapshot(exchanges) {
				return
			}
		}
	}
}

type AskRequest struct {
	Mode       string       `json:"mode"`
	PromptText string       `json:"prompt_text"`
	Image      *InlineImage `json:"image,omitempty"`
}

type InlineImage struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"` // base64
}

// AskHandler validates, templates, and forwards one submission. A
// blocked mentor submission carries profile_required so the page can
// open the first-run selection instead of showing a plain error.
func (h *APIHandler) AskHandler(w http.ResponseWriter, r *http.Request) {
	identity := r.Context().Value(identityKey).(string)

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	var image *core.ImageAttachment
	if req.Image != nil {
		data, err := base64.StdEncoding.DecodeString(req.Image.Data)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid image encoding: "+err.Error())
			return
		}
		image = &core.ImageAttachment{MIMEType: req.Image.MIMEType, Data: data}
	}

	exchange, err := h.study.Ask(r.Context(), identity, core.AskInput{
		Mode:  req.Mode,
		Text:  req.PromptText,
		Image: image,
	})
	if err != nil {
		switch {
		case errors.Is(err, core.ErrProfileRequired):
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":            err.Error(),
				"profile_required": true,
			})
		case errors.Is(err, core.ErrEmptyPrompt), errors.Is(err, core.ErrUnknownMode):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, core.ErrGateway):
			log.Printf("Gateway error for %s: %v", identity, err)
			writeError(w, http.StatusBadGateway, "The assistant could not be reached. Please try again.")
		default:
			log.Printf("Error handling submission for %s: %v", identity, err)
			writeError(w, http.StatusInternalServerError, "Failed to process submission")
		}
		return
	}

	writeJSON(w, http.StatusCreated, exchange)
}
