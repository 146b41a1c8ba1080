package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/moodreel/internal/ai"
	"github.com/kozaktomas/moodreel/internal/constants"
	"github.com/kozaktomas/moodreel/internal/detect"
	"github.com/kozaktomas/moodreel/internal/emotion"
	"github.com/kozaktomas/moodreel/internal/pipeline"
	"github.com/kozaktomas/moodreel/internal/session"
	"github.com/kozaktomas/moodreel/internal/video"
)

// ReelHandler exposes the slideshow pipeline over HTTP. All state lives in
// the caller's session.
type ReelHandler struct {
	pipeline  *pipeline.Pipeline
	sessions  *session.Manager
	captioner ai.Provider // nil disables captions
}

// NewReelHandler creates a new reel handler.
func NewReelHandler(pipe *pipeline.Pipeline, sessions *session.Manager, captioner ai.Provider) *ReelHandler {
	return &ReelHandler{
		pipeline:  pipe,
		sessions:  sessions,
		captioner: captioner,
	}
}

// readUploadedPhotos extracts image files from a multipart form.
func readUploadedPhotos(r *http.Request) ([]detect.Photo, error) {
	if err := r.ParseMultipartForm(constants.MaxUploadBytes); err != nil {
		return nil, fmt.Errorf("failed to parse multipart form: %w", err)
	}

	files := r.MultipartForm.File["files"]
	photos := make([]detect.Photo, 0, len(files))
	for _, fileHeader := range files {
		file, err := fileHeader.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open file %s", filepath.Base(fileHeader.Filename))
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s", filepath.Base(fileHeader.Filename))
		}
		photos = append(photos, detect.Photo{
			Name: filepath.Base(fileHeader.Filename),
			Data: data,
		})
	}
	return photos, nil
}

// Session returns the caller's session, creating one when needed.
func (h *ReelHandler) Session(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Ensure(w, r)
	respondJSON(w, http.StatusOK, sess.ToJSON())
}

// SetReferences handles reference photo uploads. The uploaded set replaces
// any previously configured references.
func (h *ReelHandler) SetReferences(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Ensure(w, r)

	photos, err := readUploadedPhotos(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(photos) == 0 {
		respondError(w, http.StatusBadRequest, "no files provided")
		return
	}

	var refCount int
	err = sess.WithState(func(st *pipeline.State) error {
		if err := h.pipeline.SetReferences(r.Context(), st, photos); err != nil {
			return err
		}
		refCount = st.References.Size()
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrNoFaceInReference):
			respondError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to set references: %v", err))
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"references": len(photos),
		"faces":      refCount,
	})
}

// UploadPhotos appends candidate photos to the session.
func (h *ReelHandler) UploadPhotos(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Ensure(w, r)

	photos, err := readUploadedPhotos(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(photos) == 0 {
		respondError(w, http.StatusBadRequest, "no files provided")
		return
	}

	var total int
	_ = sess.WithState(func(st *pipeline.State) error {
		st.Photos = append(st.Photos, photos...)
		st.Analysis = nil // stale against the new batch
		total = len(st.Photos)
		return nil
	})

	respondJSON(w, http.StatusOK, map[string]any{
		"uploaded": len(photos),
		"total":    total,
	})
}

// Analyze runs identity matching and emotion aggregation over the uploaded
// photos.
func (h *ReelHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Ensure(w, r)

	var result *pipeline.AnalysisResult
	err := sess.WithState(func(st *pipeline.State) error {
		if len(st.Photos) == 0 {
			return errors.New("no photos uploaded")
		}
		res, err := h.pipeline.Analyze(r.Context(), st, st.Photos)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrNoReferences):
			respondError(w, http.StatusConflict, "set reference photos before analyzing")
		case errors.Is(err, pipeline.ErrNoMatches):
			respondError(w, http.StatusUnprocessableEntity, "no photos matched the reference person")
		default:
			respondError(w, http.StatusInternalServerError, fmt.Sprintf("analysis failed: %v", err))
		}
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Report returns the mood report for the latest analysis, with an optional
// AI-generated caption.
func (h *ReelHandler) Report(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Ensure(w, r)

	var report emotion.Report
	var matched []pipeline.MatchedPhoto
	err := sess.WithState(func(st *pipeline.State) error {
		if st.Analysis == nil {
			return pipeline.ErrNoMatches
		}
		report = emotion.BuildReport(st.Analysis.Tally)
		matched = st.Analysis.Matched
		return nil
	})
	if err != nil {
		respondError(w, http.StatusConflict, "no analysis available, run analyze first")
		return
	}

	if h.captioner != nil {
		caption, err := h.captioner.HighlightCaption(r.Context(), emotion.ThemeFor(report.DominantEmotion), report.EmotionCounts, len(matched))
		if err != nil {
			log.Printf("caption generation failed: %v", err)
		} else {
			report.Caption = caption.Text
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"report":  report,
		"matched": matched,
	})
}

// generateVideoRequest is the JSON body for video generation.
type generateVideoRequest struct {
	DurationSeconds float64 `json:"duration_seconds"`
}

// GenerateVideo renders the matched photos into a slideshow video.
func (h *ReelHandler) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Ensure(w, r)

	var req generateVideoRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if req.DurationSeconds == 0 {
		req.DurationSeconds = constants.DefaultVideoDuration
	}

	var artifact *video.Artifact
	err := sess.WithState(func(st *pipeline.State) error {
		a, err := h.pipeline.GenerateVideo(r.Context(), st, req.DurationSeconds)
		if err != nil {
			return err
		}
		artifact = a
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrNoMatches):
			respondError(w, http.StatusConflict, "no analysis available, run analyze first")
		default:
			respondError(w, http.StatusInternalServerError, fmt.Sprintf("video generation failed: %v", err))
		}
		return
	}

	respondJSON(w, http.StatusOK, artifact)
}

// DownloadVideo streams a previously rendered video.
func (h *ReelHandler) DownloadVideo(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Ensure(w, r)
	id := chi.URLParam(r, "id")

	var path string
	_ = sess.WithState(func(st *pipeline.State) error {
		if artifact, ok := st.Videos[id]; ok {
			path = artifact.Path
		}
		return nil
	})
	if path == "" {
		respondError(w, http.StatusNotFound, "video not found")
		return
	}

	log.Printf("serving video %s", sanitizeForLog(id))
	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".mp4"))
	http.ServeFile(w, r, path)
}

// Reset discards all pipeline state for the session.
func (h *ReelHandler) Reset(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Ensure(w, r)
	sess.Reset()
	respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
