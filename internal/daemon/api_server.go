package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"converto/internal/aggregate"
	"converto/internal/config"
	"converto/internal/history"
	"converto/internal/logging"
	"converto/internal/media"
	"converto/internal/pipeline"
	"converto/internal/request"
	"converto/internal/services"
	"converto/internal/strategy"
)

const maxRequestBody = 1 << 20

// HistoryReader is the read side of the task history store.
type HistoryReader interface {
	ListByUser(ctx context.Context, userID int64, limit int) ([]history.Record, error)
	ListByService(ctx context.Context, service media.ServiceType, limit int) ([]history.Record, error)
	ListAll(ctx context.Context, limit int) ([]history.Record, error)
}

type transformBody struct {
	InputPaths   []string `json:"input_paths"`
	OutputFormat string   `json:"output_format"`
	Quality      int      `json:"quality"`
	Bitrate      string   `json:"bitrate"`
	Level        string   `json:"level"`
	ReduceColors bool     `json:"reduce_colors"`
	Archive      bool     `json:"archive"`
}

type taskListResponse struct {
	Tasks []history.Record `json:"tasks"`
}

type apiServer struct {
	bind   string
	tokens map[string]int64
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Server.Bind),
		tokens: cfg.Server.Tokens,
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /convert_to/{category}", s.identityMiddleware(s.handleConvert))
	mux.HandleFunc("POST /compress/{kind}", s.identityMiddleware(s.handleCompress))
	mux.HandleFunc("POST /remove_background", s.identityMiddleware(s.handleRemoveBackground))
	mux.HandleFunc("GET /task/task_by_user", s.identityMiddleware(s.handleTasksByUser))
	mux.HandleFunc("GET /task/task_by_service/{id}", s.identityMiddleware(s.handleTasksByService))
	mux.HandleFunc("GET /task/all_tasks", s.identityMiddleware(s.handleAllTasks))
	return mux
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "api server error", "api_serve_failed", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) address() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.bind
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *apiServer) handleConvert(w http.ResponseWriter, r *http.Request) {
	category, err := request.ConvertCategory(r.PathValue("category"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.transform(w, r, category, "")
}

func (s *apiServer) handleCompress(w http.ResponseWriter, r *http.Request) {
	s.transform(w, r, media.CategoryCompression, r.PathValue("kind"))
}

func (s *apiServer) handleRemoveBackground(w http.ResponseWriter, r *http.Request) {
	s.transform(w, r, media.CategoryBackgroundRemoval, "")
}

func (s *apiServer) transform(w http.ResponseWriter, r *http.Request, category media.Category, kind string) {
	var body transformBody
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := decoder.Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	userID, _ := services.UserIDFromContext(r.Context())
	result, err := s.daemon.executor.Execute(r.Context(), request.Request{
		Category: category,
		Kind:     kind,
		Sources:  body.InputPaths,
		Params: strategy.Params{
			OutputFormat: body.OutputFormat,
			Quality:      body.Quality,
			Bitrate:      body.Bitrate,
			Level:        body.Level,
			ReduceColors: body.ReduceColors,
		},
		ForceArchive: body.Archive,
		UserID:       userID,
	})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	defer result.Release()
	s.writeResult(w, r, result)
}

func (s *apiServer) writeResult(w http.ResponseWriter, r *http.Request, result *pipeline.Result) {
	resp := result.Response
	header := w.Header()
	header.Set("X-Total-Files", strconv.Itoa(resp.TotalFiles))
	header.Set("X-Failed-Files", strconv.Itoa(resp.FailedFiles))
	header.Set("X-Total-Original-Size", strconv.FormatInt(resp.OriginalBytes, 10))
	header.Set("X-Total-Converted-Size", strconv.FormatInt(resp.OutputBytes, 10))
	header.Set("Content-Type", resp.MediaType)
	header.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": resp.DownloadName}))

	logger := logging.WithContext(r.Context(), s.logger)
	if resp.IsArchive() {
		w.WriteHeader(http.StatusOK)
		if err := aggregate.WriteArchive(w, resp.Entries); err != nil {
			logging.WarnWithContext(logger, "archive stream interrupted", "archive_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "client received a truncated archive"),
			)
		}
		return
	}

	if result.Batch.Category == media.CategoryCompression {
		if ratio := aggregate.CompressionRatio(resp.OriginalBytes, resp.OutputBytes); ratio != "" {
			header.Set("X-Compression-Ratio", ratio)
		}
	}
	file, err := os.Open(resp.Single.Path)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "output unavailable")
		return
	}
	defer file.Close()
	header.Set("Content-Length", strconv.FormatInt(resp.Single.Size, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, file); err != nil {
		logging.WarnWithContext(logger, "artifact stream interrupted", "artifact_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "client received a truncated file"),
		)
	}
}

func (s *apiServer) handleTasksByUser(w http.ResponseWriter, r *http.Request) {
	userID, _ := services.UserIDFromContext(r.Context())
	records, err := s.daemon.history.ListByUser(r.Context(), userID, limitParam(r))
	s.writeTasks(w, r, records, err)
}

func (s *apiServer) handleTasksByService(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid service type id")
		return
	}
	records, err := s.daemon.history.ListByService(r.Context(), media.ServiceType(id), limitParam(r))
	s.writeTasks(w, r, records, err)
}

func (s *apiServer) handleAllTasks(w http.ResponseWriter, r *http.Request) {
	records, err := s.daemon.history.ListAll(r.Context(), limitParam(r))
	s.writeTasks(w, r, records, err)
}

func (s *apiServer) writeTasks(w http.ResponseWriter, r *http.Request, records []history.Record, err error) {
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if records == nil {
		records = []history.Record{}
	}
	s.writeJSON(w, http.StatusOK, taskListResponse{Tasks: records})
}

func limitParam(r *http.Request) int {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return limit
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	var allFailed *pipeline.AllFailedError
	switch {
	case errors.As(err, &allFailed):
		return http.StatusInternalServerError
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	logger := logging.WithContext(r.Context(), s.logger)
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logger, "request failed", "request_failed",
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
			logging.Error(err),
		)
	} else {
		logger.Info("request rejected",
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
			logging.Error(err),
		)
	}
	s.writeError(w, status, err.Error())
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.ErrorWithContext(s.logger, "failed to encode response", "api_encode_failed", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
