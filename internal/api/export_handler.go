package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/reelforge/reelforge/internal/export"
)

// renderEDLHandler serves the media track of an archived render as an EDL
// attachment.
func renderEDLHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		rd, err := cfg.Service.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, cfg, err)
			return
		}
		edit, err := cfg.Service.Edit(r.Context(), id)
		if err != nil {
			writeServiceError(w, cfg, err)
			return
		}

		clips := export.FromTimeline(edit.Timeline)
		if len(clips) == 0 {
			WriteError(w, http.StatusUnprocessableEntity, "render has no media clips", "NO_MEDIA")
			return
		}

		title := rd.Title
		if title == "" {
			title = rd.ID
		}
		fps := export.ParseFrameRate(r.URL.Query().Get("fps"))
		filename := export.SanitizeName(title, 120)
		if filename == "" {
			filename = rd.ID
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`.edl"`)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(export.Generate(edit.Timeline, title, fps)))
	}
}
