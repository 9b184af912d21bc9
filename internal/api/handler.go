package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/perfil/perfil/internal/backend"
	"github.com/perfil/perfil/internal/extract"
	"github.com/perfil/perfil/internal/identity"
	"github.com/perfil/perfil/internal/pipeline"
	"github.com/perfil/perfil/internal/profile"
	"github.com/perfil/perfil/internal/storage"
)

const maxUploadSize = 10 << 20     // 10MB
const maxRequestBodySize = 1 << 20 // 1MB

// ProfilePipeline is the slice of the generation pipeline the API needs.
type ProfilePipeline interface {
	Reformulate(ctx context.Context, extracted, secondary, token string) (profile.Data, error)
	Augment(ctx context.Context, current profile.Data, instructions, token string) (profile.Data, error)
	Render(ctx context.Context, data profile.Data, opts pipeline.RenderOptions, token string) (string, error)
}

// MediumSource supplies the optional Medium article digest for uploads.
type MediumSource interface {
	Enabled() bool
	Digest(ctx context.Context, username string) string
}

type Deps struct {
	Store    *storage.Store
	Pipeline ProfilePipeline
	Medium   MediumSource // optional; nil disables Medium enrichment
	// Extract converts PDF bytes to plain text. Defaults to extract.Text.
	Extract func(data []byte) (string, error)
	// ServiceToken guards the whole API when non-empty.
	ServiceToken string
	// BackendToken is forwarded to the free text backend on every call.
	BackendToken string
}

func NewHandler(deps Deps) http.Handler {
	if deps.Extract == nil {
		deps.Extract = extract.Text
	}

	r := chi.NewRouter()
	r.Get("/health", handleHealth)
	r.Get("/p/{slug}", handlePage(deps))

	r.Group(func(r chi.Router) {
		r.Use(ServiceAuth(deps.ServiceToken))
		r.Post("/pdf", handleUploadPDF(deps))
		r.Get("/profile", handleGetProfile(deps))
		r.Post("/profile/augment", handleAugment(deps))
		r.Post("/profile/render", handleRender(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type profileResponse struct {
	Slug        string       `json:"slug"`
	DisplayName string       `json:"display_name"`
	Profile     profile.Data `json:"profile"`
	HasMarkup   bool         `json:"has_markup"`
}

func toResponse(rec storage.Profile) (profileResponse, error) {
	var data profile.Data
	if rec.ProfileJSON != "" {
		if err := json.Unmarshal([]byte(rec.ProfileJSON), &data); err != nil {
			return profileResponse{}, fmt.Errorf("decoding stored profile: %w", err)
		}
	}
	return profileResponse{
		Slug:        rec.Slug,
		DisplayName: rec.DisplayName,
		Profile:     data,
		HasMarkup:   rec.ProfileHTML != "",
	}, nil
}

func handleUploadPDF(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		src, ok := identityFrom(r)
		if !ok {
			httpError(w, http.StatusUnauthorized, "authentication_error", "missing user identity")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid multipart form: %v", err)
			return
		}

		file, _, err := r.FormFile("file")
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "file field is required")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "reading upload: %v", err)
			return
		}

		mediumUsername := r.FormValue("medium_username")

		// Text extraction and the Medium fetch are independent, run them
		// concurrently. The digest is best effort and never fails the upload.
		var extracted, digest string
		g, gctx := errgroup.WithContext(r.Context())
		g.Go(func() error {
			var err error
			extracted, err = deps.Extract(data)
			return err
		})
		if deps.Medium != nil && deps.Medium.Enabled() && mediumUsername != "" {
			g.Go(func() error {
				digest = deps.Medium.Digest(gctx, mediumUsername)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			if errors.Is(err, extract.ErrNoText) {
				httpError(w, http.StatusUnprocessableEntity, "invalid_request_error", "the PDF contains no extractable text")
				return
			}
			var exErr *extract.ExtractionError
			if errors.As(err, &exErr) {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "could not read PDF: %v", exErr.Cause)
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "extraction failed: %v", err)
			return
		}

		result, err := deps.Pipeline.Reformulate(r.Context(), extracted, digest, deps.BackendToken)
		if err != nil {
			writePipelineError(w, err)
			return
		}

		id := identity.Derive(src)
		profileJSON, err := json.Marshal(result)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "encoding profile: %v", err)
			return
		}

		rec := storage.Profile{
			ID:          uuid.New().String(),
			AuthUserID:  src.AuthID,
			Slug:        id.Slug,
			DisplayName: id.DisplayName,
			Username:    src.Username,
			Email:       id.Email,
			PDFText:     extracted,
			ProfileJSON: string(profileJSON),
		}
		if err := deps.Store.SaveProfile(rec); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "saving profile: %v", err)
			return
		}

		// The upsert keeps the original slug for returning users.
		stored, err := deps.Store.GetProfileByAuthID(src.AuthID)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "loading saved profile: %v", err)
			return
		}

		resp, err := toResponse(stored)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func handleGetProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		src, ok := identityFrom(r)
		if !ok {
			httpError(w, http.StatusUnauthorized, "authentication_error", "missing user identity")
			return
		}

		rec, err := deps.Store.GetProfileByAuthID(src.AuthID)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "no profile for this user")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "loading profile: %v", err)
			return
		}

		resp, err := toResponse(rec)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

type augmentRequest struct {
	Instructions string `json:"instructions"`
}

func handleAugment(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		src, ok := identityFrom(r)
		if !ok {
			httpError(w, http.StatusUnauthorized, "authentication_error", "missing user identity")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req augmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Instructions == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "instructions is required")
			return
		}

		rec, current, ok := loadProfileData(w, deps, src.AuthID)
		if !ok {
			return
		}

		updated, err := deps.Pipeline.Augment(r.Context(), current, req.Instructions, deps.BackendToken)
		if err != nil {
			writePipelineError(w, err)
			return
		}

		updatedJSON, err := json.Marshal(updated)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "encoding profile: %v", err)
			return
		}
		if err := deps.Store.UpdateProfileJSON(src.AuthID, string(updatedJSON)); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "saving profile: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(profileResponse{
			Slug:        rec.Slug,
			DisplayName: rec.DisplayName,
			Profile:     updated,
			HasMarkup:   rec.ProfileHTML != "",
		})
	}
}

type renderRequest struct {
	Instructions string `json:"instructions"`
	Backend      string `json:"backend"`
}

type renderResponse struct {
	Slug string `json:"slug"`
	HTML string `json:"html"`
}

func handleRender(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		src, ok := identityFrom(r)
		if !ok {
			httpError(w, http.StatusUnauthorized, "authentication_error", "missing user identity")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req renderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		rec, data, ok := loadProfileData(w, deps, src.AuthID)
		if !ok {
			return
		}

		opts := pipeline.RenderOptions{
			Username:         rec.DisplayName,
			Instructions:     req.Instructions,
			PreferredBackend: req.Backend,
		}
		// Revise the existing page instead of starting over when the user
		// gives instructions and a previous render exists.
		if req.Instructions != "" && rec.ProfileHTML != "" {
			opts.PreviousMarkup = rec.ProfileHTML
		}

		markup, err := deps.Pipeline.Render(r.Context(), data, opts, deps.BackendToken)
		if err != nil {
			writePipelineError(w, err)
			return
		}

		if err := deps.Store.UpdateProfileHTML(src.AuthID, markup); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "saving markup: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(renderResponse{Slug: rec.Slug, HTML: markup})
	}
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<script src="https://cdn.tailwindcss.com"></script>
</head>
<body>
{{.Markup}}
</body>
</html>
`))

func handlePage(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")

		rec, err := deps.Store.GetProfileBySlug(slug)
		if errors.Is(err, storage.ErrNotFound) || (err == nil && rec.ProfileHTML == "") {
			httpError(w, http.StatusNotFound, "not_found", "profile page not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "loading profile: %v", err)
			return
		}

		title := rec.DisplayName
		if title == "" {
			title = rec.Slug
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		// Markup is sanitized at render time before it reaches storage.
		pageTemplate.Execute(w, struct {
			Title  string
			Markup template.HTML
		}{Title: title, Markup: template.HTML(rec.ProfileHTML)})
	}
}

// loadProfileData fetches the caller's profile row and decodes its sections
// document, writing the HTTP error itself on failure.
func loadProfileData(w http.ResponseWriter, deps Deps, authUserID string) (storage.Profile, profile.Data, bool) {
	rec, err := deps.Store.GetProfileByAuthID(authUserID)
	if errors.Is(err, storage.ErrNotFound) {
		httpError(w, http.StatusNotFound, "not_found", "no profile for this user; upload a PDF first")
		return storage.Profile{}, profile.Data{}, false
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "loading profile: %v", err)
		return storage.Profile{}, profile.Data{}, false
	}
	if rec.ProfileJSON == "" {
		httpError(w, http.StatusConflict, "invalid_request_error", "profile has no content yet; upload a PDF first")
		return storage.Profile{}, profile.Data{}, false
	}

	var data profile.Data
	if err := json.Unmarshal([]byte(rec.ProfileJSON), &data); err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "decoding stored profile: %v", err)
		return storage.Profile{}, profile.Data{}, false
	}
	return rec, data, true
}

// writePipelineError maps generation failures onto HTTP statuses.
func writePipelineError(w http.ResponseWriter, err error) {
	var cfgErr *backend.ConfigError
	if errors.As(err, &cfgErr) {
		httpError(w, http.StatusBadGateway, "api_error", "backend rejected the request: %v", err)
		return
	}
	var malformed *profile.MalformedError
	if errors.As(err, &malformed) {
		httpError(w, http.StatusBadGateway, "api_error", "model returned an unusable profile: %v", err)
		return
	}
	var exhausted *backend.ExhaustedError
	if errors.As(err, &exhausted) {
		httpError(w, http.StatusBadGateway, "api_error", "text generation unavailable: %v", err)
		return
	}
	httpError(w, http.StatusBadGateway, "api_error", "generation failed: %v", err)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
