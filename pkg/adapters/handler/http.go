package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/wadjakorntonsri/go-shortlinks/pkg/config"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/core/domain"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/ports"
)

const maxBodyBytes = 1 << 20

type HTTPHandler struct {
	links           ports.LinkService
	stats           ports.StatsService
	logger          *slog.Logger
	baseURL         string
	defaultValidity int
}

func NewHTTPHandler(cfg *config.Config, links ports.LinkService, stats ports.StatsService, logger *slog.Logger) *HTTPHandler {
	if logger == nil {
		logger = slog.Default()
	}
	validity := cfg.DefaultValidityMinutes
	if validity == 0 {
		validity = domain.DefaultValidityMinutes
	}
	return &HTTPHandler{
		links:           links,
		stats:           stats,
		logger:          logger,
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		defaultValidity: validity,
	}
}

// Create a batch of links
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req CreateLinksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_json", "Invalid request body")
		return
	}

	reqs := make([]domain.CreationRequest, len(req.Links))
	for i, l := range req.Links {
		validity := h.defaultValidity
		if l.ValidityMinutes != nil {
			validity = *l.ValidityMinutes
		}
		reqs[i] = domain.CreationRequest{
			URL:             l.URL,
			CustomShortcode: l.CustomShortcode,
			ValidityMinutes: validity,
		}
	}

	links, err := h.links.CreateLinks(r.Context(), reqs)
	if err != nil {
		h.handleCreateError(w, err)
		return
	}

	resp := CreateLinksResponse{Links: make([]LinkResponse, len(links))}
	for i, l := range links {
		resp.Links[i] = LinkResponse{ShortURL: h.shortURL(l.ShortCode), ShortLink: l}
	}
	h.writeJSON(w, http.StatusCreated, resp)
}

func (h *HTTPHandler) handleCreateError(w http.ResponseWriter, err error) {
	var batchErr *domain.BatchError
	switch {
	case errors.As(err, &batchErr):
		resp := ErrorResponse{Error: "invalid_batch", Message: "No links were created"}
		for _, e := range batchErr.Entries {
			resp.Entries = append(resp.Entries, EntryErrorResponse{Index: e.Index, Message: e.Err.Error()})
		}
		status := http.StatusBadRequest
		if !domain.IsValidation(err) {
			h.logger.Error("creating links", slog.Any("error", err))
			status = http.StatusInternalServerError
		}
		h.writeJSON(w, status, resp)
	case errors.Is(err, domain.ErrInvalidBatchSize):
		h.writeError(w, http.StatusBadRequest, "invalid_batch_size", err.Error())
	case errors.Is(err, domain.ErrShortcodeInUse):
		h.writeError(w, http.StatusConflict, "shortcode_in_use", "A shortcode was taken concurrently, please retry")
	default:
		h.logger.Error("creating links", slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to save links")
	}
}

// Redirect to original URL. Every redirect records a click.
func (h *HTTPHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	out := h.links.Resolve(r.Context(), r.PathValue("short_code"), domain.RequestContext{
		UserAgent: r.UserAgent(),
		Referrer:  r.Referer(),
		IP:        clientIP(r),
	})

	switch out.Status {
	case domain.StatusRedirecting:
		if out.ClickErr != nil {
			h.logger.Warn("click not recorded", slog.String("short_code", out.ShortCode), slog.Any("error", out.ClickErr))
		}
		http.Redirect(w, r, out.Destination, http.StatusFound)
	case domain.StatusMissingInput:
		h.writeError(w, http.StatusBadRequest, string(out.Status), out.Reason)
	case domain.StatusNotFound:
		h.writeError(w, http.StatusNotFound, string(out.Status), out.Reason)
	case domain.StatusExpired, domain.StatusDeactivated:
		h.writeError(w, http.StatusGone, string(out.Status), out.Reason)
	default:
		h.logger.Error("resolving link", slog.String("short_code", out.ShortCode), slog.Any("error", out.Err))
		h.writeError(w, http.StatusInternalServerError, string(out.Status), out.Reason)
	}
}

// Stats over every link
func (h *HTTPHandler) Stats(w http.ResponseWriter, r *http.Request) {
	snap, err := h.stats.Snapshot(r.Context())
	if err != nil {
		h.logger.Error("computing stats", slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to load stats")
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

// LinkStats for a single short code
func (h *HTTPHandler) LinkStats(w http.ResponseWriter, r *http.Request) {
	ls, err := h.stats.Link(r.Context(), r.PathValue("short_code"))
	if err != nil {
		h.handleLinkError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ls)
}

func (h *HTTPHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("short_code")
	if err := h.links.Deactivate(r.Context(), code); err != nil {
		h.handleLinkError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"short_code": code, "status": string(domain.LinkInactive)})
}

// ClearAll deletes every link. There is no undo.
func (h *HTTPHandler) ClearAll(w http.ResponseWriter, r *http.Request) {
	if err := h.links.ClearAll(r.Context()); err != nil {
		h.logger.Error("clearing links", slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to clear links")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
}

func (h *HTTPHandler) handleLinkError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "not_found", "Short URL not found")
	case errors.Is(err, domain.ErrEmptyInput):
		h.writeError(w, http.StatusBadRequest, "missing_input", "No shortcode provided")
	default:
		h.logger.Error("link operation failed", slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

func (h *HTTPHandler) shortURL(code string) string {
	if h.baseURL == "" {
		return code
	}
	return h.baseURL + "/" + code
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.Any("error", err))
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, status int, errCode, message string) {
	h.writeJSON(w, status, ErrorResponse{Error: errCode, Message: message})
}

// clientIP prefers the first X-Forwarded-For hop (Vercel and most proxies set it).
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
