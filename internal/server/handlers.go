package server

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/ytget/yt-web/internal/download"
	"github.com/ytget/yt-web/internal/model"
	"github.com/ytget/yt-web/internal/platform"
)

// Client-facing messages
const (
	MsgFileNotFound     = "file not found"
	MsgInvalidURL       = "invalid URL"
	MsgHistoryDisabled  = "history is disabled"
	MsgServiceStopping  = "service is shutting down"
	MsgInvalidLimit     = "invalid limit"
	MsgMissingTaskParam = "missing task id"
)

type previewRequest struct {
	URL string `json:"url"`
}

type downloadRequest struct {
	URL     string `json:"url"`
	Format  string `json:"format"`
	Quality string `json:"quality"`
}

type downloadResponse struct {
	TaskID string `json:"task_id"`
}

type statusResponse struct {
	Status model.TaskStatus `json:"status"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := staticFiles.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(page); err != nil {
		log.Printf("write index page: %v", err)
	}
}

func (s *Server) handleHealth(r *http.Request) (any, error) {
	return map[string]string{"status": "ok"}, nil
}

func (s *Server) handlePreview(r *http.Request) (any, error) {
	var req previewRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}
	target := strings.TrimSpace(req.URL)
	if !validURL(target) {
		return nil, httpError(http.StatusBadRequest, MsgInvalidURL+": "+target)
	}

	info, err := s.extractor.Info(r.Context(), target)
	if err != nil {
		return nil, httpError(http.StatusBadRequest, err.Error())
	}
	return info, nil
}

func (s *Server) handleDownload(r *http.Request) (any, error) {
	var req downloadRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}

	job, err := s.downloads.Submit(model.Request{
		URL:     strings.TrimSpace(req.URL),
		Format:  model.Format(req.Format),
		Quality: req.Quality,
	})
	if err != nil {
		if errors.Is(err, download.ErrClosed) {
			return nil, httpError(http.StatusServiceUnavailable, MsgServiceStopping)
		}
		return nil, err
	}
	return downloadResponse{TaskID: job.ID}, nil
}

func (s *Server) handleStatus(r *http.Request) (any, error) {
	id := chi.URLParam(r, "taskID")
	if id == "" {
		return nil, httpError(http.StatusBadRequest, MsgMissingTaskParam)
	}

	task := s.downloads.GetTask(id)
	if task.Status == model.TaskStatusUnknown {
		return statusResponse{Status: model.TaskStatusUnknown}, nil
	}
	return task, nil
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	task := s.downloads.GetTask(chi.URLParam(r, "taskID"))
	if task.Status != model.TaskStatusDone || !platform.FileExists(task.Filename) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: MsgFileNotFound})
		return
	}

	file, err := os.Open(task.Filename)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: MsgFileNotFound})
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}

	name := filepath.Base(task.Filename)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, info.ModTime(), file)
}

func (s *Server) handleHistory(r *http.Request) (any, error) {
	if s.history == nil {
		return nil, httpError(http.StatusNotFound, MsgHistoryDisabled)
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, httpError(http.StatusBadRequest, MsgInvalidLimit)
		}
		limit = n
	}

	return s.history.List(r.Context(), limit)
}

// validURL accepts absolute http and https URLs only
func validURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
