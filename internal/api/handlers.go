// internal/api/handlers.go
package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"

	"committer/internal/errors"
	"committer/internal/journal"
	"committer/internal/logging"
	"committer/internal/tree"
	"committer/internal/validation"
	"committer/internal/vcs"

	"go.uber.org/zap"
)

// Committer is the repository session the handlers drive.
type Committer interface {
	Root() string
	Status(ctx context.Context) (tree.FileGroup, error)
	Add(ctx context.Context, paths []string) error
	Commit(ctx context.Context, paths []string, message string) (string, error)
	Push(ctx context.Context) error
	Pull(ctx context.Context) error
	Revert(ctx context.Context, paths []string) error
	History(limit int) ([]journal.Entry, error)
}

type RepoHandler struct {
	repo   Committer
	events *Notifier
	logger *logging.Logger
}

func NewRepoHandler(repo Committer, logger *logging.Logger) *RepoHandler {
	if logger == nil {
		logger = logging.Nop()
	}
	return &RepoHandler{repo: repo, logger: logger}
}

// WithEvents enables GET /api/events, streaming what n publishes.
func (h *RepoHandler) WithEvents(n *Notifier) *RepoHandler {
	h.events = n
	return h
}

// Register mounts every route on mux.
func (h *RepoHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /api/status", h.Status)
	mux.HandleFunc("POST /api/add", h.Add)
	mux.HandleFunc("POST /api/commit", h.Commit)
	mux.HandleFunc("POST /api/revert", h.Revert)
	mux.HandleFunc("POST /api/push", h.Push)
	mux.HandleFunc("POST /api/pull", h.Pull)
	mux.HandleFunc("GET /api/journal", h.Journal)
	if h.events != nil {
		mux.HandleFunc("GET /api/events", h.Events)
	}
}

// CommitResponse is returned by a successful commit.
type CommitResponse struct {
	Hash string `json:"hash"`
}

func (h *RepoHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"root":   h.repo.Root(),
	})
}

func (h *RepoHandler) Status(w http.ResponseWriter, r *http.Request) {
	group, err := h.repo.Status(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (h *RepoHandler) Add(w http.ResponseWriter, r *http.Request) {
	req, err := validation.ValidatePathsRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.repo.Add(r.Context(), req.Paths); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RepoHandler) Commit(w http.ResponseWriter, r *http.Request) {
	req, err := validation.ValidateCommitRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	hash, err := h.repo.Commit(r.Context(), req.Paths, req.Message)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CommitResponse{Hash: hash})
}

func (h *RepoHandler) Revert(w http.ResponseWriter, r *http.Request) {
	req, err := validation.ValidatePathsRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.repo.Revert(r.Context(), req.Paths); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RepoHandler) Push(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Push(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RepoHandler) Pull(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Pull(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RepoHandler) Journal(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			h.writeError(w, r, errors.ValidationError("limit must be a non-negative integer", s))
			return
		}
		limit = n
	}
	entries, err := h.repo.History(limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// writeError renders err as an *errors.Error body. Backend sentinels are
// mapped onto the matching error type first.
func (h *RepoHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *errors.Error
	switch {
	case stderrors.As(err, &appErr):
	case stderrors.Is(err, vcs.ErrNoPaths), stderrors.Is(err, vcs.ErrEmptyMessage),
		stderrors.Is(err, vcs.ErrOutsideRoot):
		appErr = errors.ValidationError(err.Error(), nil)
	case stderrors.Is(err, vcs.ErrNothingToCommit):
		appErr = errors.InvalidState(err.Error())
	default:
		appErr = errors.Internal(err.Error())
	}

	log := h.logger.WithRequestID(r.Context())
	if appErr.Code >= http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		log.Debug("request rejected", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, errors.HTTPStatus(appErr), appErr)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
