package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/lee-tech/locations/internal/constants"
	"github.com/lee-tech/locations/internal/models"
	"github.com/lee-tech/locations/internal/repository"
	"github.com/lee-tech/locations/internal/service"
)

var validate = validator.New()

// OptionResolver is the resolver surface the handler depends on.
type OptionResolver interface {
	ResolveOptions(req *models.FilterRequest) (*models.FilterResult, error)
}

// LocationFilterHandler exposes the location filter resolver over HTTP.
type LocationFilterHandler struct {
	filters   OptionResolver
	bookmarks *service.BookmarkService
	// translateDefault is the deployment-wide translation default; a
	// request's translate parameter overrides it either way.
	translateDefault bool
	logger           *zap.Logger
}

// NewLocationFilterHandler constructs a new handler instance.
func NewLocationFilterHandler(filters OptionResolver, bookmarks *service.BookmarkService, translateDefault bool, logger *zap.Logger) *LocationFilterHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocationFilterHandler{
		filters:          filters,
		bookmarks:        bookmarks,
		translateDefault: translateDefault,
		logger:           logger,
	}
}

// RegisterRoutes wires the filter routes.
func (h *LocationFilterHandler) RegisterRoutes(router *mux.Router) {
	if h.filters == nil {
		return
	}

	v1 := router.PathPrefix("/v1/locations").Subrouter()
	v1.HandleFunc("/filter-options", h.FilterOptions).Methods(http.MethodGet)
	if h.bookmarks != nil {
		v1.HandleFunc("/bookmarks", h.CreateBookmark).Methods(http.MethodPost)
	}

	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
}

// FilterOptions resolves the per-level option sets and hierarchy tree for
// the requested candidate set.
func (h *LocationFilterHandler) FilterOptions(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseFilterRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid filter request: "+err.Error())
		return
	}

	result, err := h.filters.ResolveOptions(req)
	if err != nil {
		h.writeResolveError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// CreateBookmark issues a signed token for a selected-value set.
func (h *LocationFilterHandler) CreateBookmark(w http.ResponseWriter, r *http.Request) {
	var req models.BookmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "selected values are required")
		return
	}

	token, err := h.bookmarks.Issue(req.Selected)
	if err != nil {
		if errors.Is(err, service.ErrInvalidBookmark) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to issue bookmark", zap.Error(err),
			zap.String("request_id", RequestIDFromContext(r.Context())))
		respondError(w, http.StatusInternalServerError, "failed to issue bookmark")
		return
	}

	respondJSON(w, http.StatusCreated, models.BookmarkResponse{
		Token:     token,
		ExpiresIn: int(h.bookmarks.TTL().Seconds()),
	})
}

// Health reports liveness.
func (h *LocationFilterHandler) Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseFilterRequest maps query parameters onto a FilterRequest. Selected
// values arrive either as "<level>__belongs" parameters (comma-separated,
// repeatable) or inside a signed bookmark token.
func (h *LocationFilterHandler) parseFilterRequest(r *http.Request) (*models.FilterRequest, error) {
	query := r.URL.Query()

	req := &models.FilterRequest{
		Levels:          splitParam(query.Get("levels")),
		Resource:        query.Get("resource"),
		Field:           query.Get("field"),
		Language:        query.Get("language"),
		Translate:       boolParam(query.Get("translate"), h.translateDefault),
		InjectHierarchy: boolParam(query.Get("hierarchy"), true),
	}

	for _, raw := range splitParam(query.Get("ids")) {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, errors.New("ids must be a comma-separated list of numeric identifiers")
		}
		req.FixedIDs = append(req.FixedIDs, id)
	}

	selected := make(map[string][]string)
	suffix := "__" + constants.FilterOperator
	for key, values := range query {
		if !strings.HasSuffix(key, suffix) {
			continue
		}
		for _, value := range values {
			selected[key] = append(selected[key], splitParam(value)...)
		}
	}

	if token := query.Get("bookmark"); token != "" && h.bookmarks != nil {
		saved, err := h.bookmarks.Parse(token)
		if err != nil {
			return nil, err
		}
		for key, values := range saved {
			selected[key] = append(selected[key], values...)
		}
	}
	if len(selected) > 0 {
		req.Selected = selected
	}

	return req, nil
}

// writeResolveError maps resolver errors to HTTP statuses: configuration
// defects are client-visible, integrity failures are not.
func (h *LocationFilterHandler) writeResolveError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repository.ErrUnknownResource),
		errors.Is(err, repository.ErrInvalidSelector),
		errors.Is(err, service.ErrIncompleteSelector):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrHierarchyCycle):
		h.logger.Error("location hierarchy integrity failure", zap.Error(err),
			zap.String("request_id", RequestIDFromContext(r.Context())))
		respondError(w, http.StatusInternalServerError, "location hierarchy integrity failure")
	default:
		h.logger.Error("failed to resolve filter options", zap.Error(err),
			zap.String("request_id", RequestIDFromContext(r.Context())))
		respondError(w, http.StatusInternalServerError, "failed to resolve filter options")
	}
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func boolParam(raw string, fallback bool) bool {
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
