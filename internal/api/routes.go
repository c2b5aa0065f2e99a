package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reelforge/reelforge/internal/render"
	"github.com/reelforge/reelforge/internal/renders"
	"github.com/reelforge/reelforge/internal/timeline"
)

// maxBodyBytes bounds request bodies. Requests reference media by URL, so
// they stay small.
const maxBodyBytes = 1 << 20

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSAllowlist(cfg.AllowedOrigins))

	r.Get("/health", healthHandler(cfg))
	r.Post("/callbacks/render", callbackHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))
		r.Post("/renders", createRenderHandler(cfg))
		r.Get("/renders", listRendersHandler(cfg))
		r.Get("/renders/{id}", getRenderHandler(cfg))
		r.Get("/renders/{id}/timeline", renderTimelineHandler(cfg))
		r.Get("/renders/{id}/edl", renderEDLHandler(cfg))
		r.Post("/timeline/preview", previewHandler(cfg))
		r.Post("/subtitles/transform", transformHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		version := cfg.Version
		if version == "" {
			version = "dev"
		}
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		counts, err := cfg.Service.Counts(ctx)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to count renders", "INTERNAL_ERROR")
			return
		}
		active := counts[renders.StatusPending] + counts[renders.StatusSubmitted] + counts[renders.StatusRendering]

		state := "idle"
		if active > 0 {
			state = "rendering"
		}
		if cfg.Runner != nil && cfg.Runner.IsPaused() {
			state = "paused"
		}

		resp := StatusResponse{State: state, ActiveRenders: active, Counts: counts}

		recent, _ := cfg.Service.List(ctx, 10)
		for _, rd := range recent {
			if rd.Status == renders.StatusFailed && rd.Error != "" {
				resp.LastError = rd.Error
				break
			}
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (*timeline.Request, bool) {
	var req timeline.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return nil, false
	}
	return &req, true
}

// writeServiceError maps render service errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, cfg ServerConfig, err error) {
	var verr *renders.ValidationError
	var serr *renders.SubmitError
	switch {
	case errors.As(err, &verr):
		WriteError(w, http.StatusBadRequest, verr.Error(), "BAD_REQUEST")
	case errors.Is(err, renders.ErrNotFound):
		WriteError(w, http.StatusNotFound, "render not found", "NOT_FOUND")
	case errors.As(err, &serr):
		WriteError(w, http.StatusBadGateway, serr.Error(), "RENDER_FAILED")
	default:
		cfg.Logger.Error("request failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}

func createRenderHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeRequest(w, r)
		if !ok {
			return
		}

		rd, err := cfg.Service.Create(r.Context(), req, renders.SourceAPI)
		if err != nil {
			writeServiceError(w, cfg, err)
			return
		}

		WriteJSON(w, http.StatusAccepted, CreateRenderResponse{
			ID:         rd.ID,
			Status:     rd.Status,
			RendererID: rd.RendererID,
		})
	}
}

func listRendersHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				WriteError(w, http.StatusBadRequest, "limit must be a positive integer", "BAD_REQUEST")
				return
			}
			limit = min(n, 500)
		}

		list, err := cfg.Service.List(r.Context(), limit)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list renders", "INTERNAL_ERROR")
			return
		}

		resp := RendersResponse{Renders: make([]RenderResponse, len(list))}
		for i, rd := range list {
			resp.Renders[i] = RenderToResponse(rd)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getRenderHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rd, err := cfg.Service.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg, err)
			return
		}
		WriteJSON(w, http.StatusOK, RenderToResponse(rd))
	}
}

func renderTimelineHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		edit, err := cfg.Service.Edit(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg, err)
			return
		}
		WriteJSON(w, http.StatusOK, edit)
	}
}

func previewHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeRequest(w, r)
		if !ok {
			return
		}

		edit, d, err := cfg.Service.Preview(r.Context(), req)
		if err != nil {
			writeServiceError(w, cfg, err)
			return
		}

		WriteJSON(w, http.StatusOK, PreviewResponse{
			Edit:           edit,
			TotalDuration:  d.Total,
			DurationSource: d.Source,
			Segmented:      d.Segmented,
		})
	}
}

func transformHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TransformRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		switch req.TextTransform {
		case "", timeline.TransformNone, timeline.TransformUppercase:
		default:
			WriteError(w, http.StatusBadRequest, "textTransform must be none or uppercase", "BAD_REQUEST")
			return
		}

		WriteJSON(w, http.StatusOK, TransformResponse{
			Content: timeline.ApplyTextTransform(req.Content, req.TextTransform),
		})
	}
}

// callbackHandler receives status pushes from the renderer. It is not behind
// auth: the render id in the query and the job id in the body must agree.
func callbackHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "id is required", "BAD_REQUEST")
			return
		}

		var st render.Status
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&st); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if err := cfg.Service.HandleCallback(r.Context(), id, st); err != nil {
			writeServiceError(w, cfg, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
