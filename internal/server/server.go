// Package server exposes document processing over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/rezonia/docintel/internal/model"
	"github.com/rezonia/docintel/internal/processor"
	"github.com/rezonia/docintel/internal/report"
	"github.com/rezonia/docintel/internal/store"
)

// DefaultMaxUploadBytes bounds uploaded documents
const DefaultMaxUploadBytes = 32 << 20

// Config holds server configuration
type Config struct {
	Address        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
	MaxUploadBytes int64
	Debug          bool
}

// Server represents the HTTP API server
type Server struct {
	config   *Config
	router   *gin.Engine
	pipeline *processor.Pipeline
	store    store.Store
	log      zerolog.Logger
}

// NewServer creates a new API server. A nil store disables persistence and
// the export and correction endpoints answer 503.
func NewServer(config *Config, pipeline *processor.Pipeline, st store.Store, log zerolog.Logger) *Server {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 2 * time.Minute
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if pipeline == nil {
		pipeline = processor.NewPipeline(processor.WithLogger(log))
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))

	s := &Server{
		config:   config,
		router:   router,
		pipeline: pipeline,
		store:    st,
		log:      log,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.handleHealth)

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/upload", s.handleUpload)
		v1.POST("/extract_text_only", s.handleExtractTextOnly)
		v1.POST("/extract", s.handleExtract)

		v1.GET("/documents", s.handleListDocuments)
		v1.GET("/export/json", s.handleExportJSON)
		v1.GET("/export/xlsx", s.handleExportXLSX)
		v1.GET("/export/text", s.handleExportText)

		v1.POST("/corrections", s.handleCorrections)
	}
}

// Run starts the HTTP server and shuts it down when ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("address", s.config.Address).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info().Msg("shutting down server")
		return srv.Shutdown(shutdownCtx)
	}
}

// Handler returns the http.Handler for use with custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
		"store":  s.store != nil,
	})
}

func (s *Server) handleUpload(c *gin.Context) {
	filename, data, ok := s.readDocument(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.config.RequestTimeout)
	defer cancel()

	result := s.pipeline.ProcessDocument(ctx, filename, data)
	rec := result.Record()
	if result.Error != nil {
		c.JSON(http.StatusOK, rec)
		return
	}

	if s.store != nil {
		if err := s.store.Save(ctx, rec); err != nil {
			s.log.Error().Str("filename", filename).Err(err).Msg("failed to save record")
			result.Warnings = append(result.Warnings, "result not saved")
			rec.Warnings = result.Warnings
		}
	}

	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleExtractTextOnly(c *gin.Context) {
	filename, data, ok := s.readDocument(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.config.RequestTimeout)
	defer cancel()

	result := s.pipeline.ExtractText(ctx, filename, data)
	resp := TextResponse{
		Filename:  filename,
		Text:      result.Text,
		CleanText: result.CleanText,
	}
	if result.Error != nil {
		resp.Error = model.StringPtr(result.Error.Error())
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleExtract(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.config.MaxUploadBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty request body"})
		return
	}

	result := s.pipeline.ProcessText(c.Request.Context(), "", string(body))
	c.JSON(http.StatusOK, ExtractResponse{
		Fields:   result.Fields,
		Summary:  result.Summary,
		Warnings: result.Warnings,
	})
}

func (s *Server) handleListDocuments(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}

	recs, err := s.store.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "list_failed", Details: err.Error()})
		return
	}

	docs := make([]DocumentInfo, 0, len(recs))
	for _, r := range recs {
		docs = append(docs, DocumentInfo{ID: r.ID, Filename: r.Filename, HasFields: r.HasFields(), Error: r.Error})
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

func (s *Server) handleExportJSON(c *gin.Context) {
	rec, ok := s.lookup(c)
	if !ok {
		return
	}

	attachment(c, rec.Filename+".json")
	c.IndentedJSON(http.StatusOK, rec)
}

func (s *Server) handleExportXLSX(c *gin.Context) {
	rec, ok := s.lookup(c)
	if !ok {
		return
	}

	data, err := report.XLSX(rec)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "xlsx_failed", Details: err.Error()})
		return
	}

	attachment(c, stem(rec.Filename)+"_summary.xlsx")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (s *Server) handleExportText(c *gin.Context) {
	rec, ok := s.lookup(c)
	if !ok {
		return
	}

	data, err := report.Text(rec)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "text_failed", Details: err.Error()})
		return
	}

	attachment(c, stem(rec.Filename)+"_summary.txt")
	c.Data(http.StatusOK, report.TextContentType, data)
}

func (s *Server) handleCorrections(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}

	var req CorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "bad_request", Details: err.Error()})
		return
	}
	if req.Filename == "" || len(req.Fields) == 0 || string(req.Fields) == "null" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "bad_request", Details: "filename and fields required"})
		return
	}

	fields, err := model.ParseCorrection(req.Fields)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "invalid_fields", Details: err.Error()})
		return
	}

	if err := s.store.SaveFields(c.Request.Context(), req.Filename, fields); err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "bad_request", Details: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "save_failed", Details: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Helper functions

// readDocument reads a multipart "file" field or, failing that, the raw body
// named by the filename query parameter.
func (s *Server) readDocument(c *gin.Context) (string, []byte, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.config.MaxUploadBytes)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
			return "", nil, false
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
			return "", nil, false
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
			return "", nil, false
		}
		return uploadName(fh.Filename), data, true
	}

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return "", nil, false
	}

	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty request body"})
		return "", nil, false
	}
	return uploadName(c.Query("filename")), body, true
}

func uploadName(name string) string {
	clean, err := store.CleanFilename(name)
	if err != nil {
		return "uploaded_file"
	}
	return clean
}

func (s *Server) requireStore(c *gin.Context) bool {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "store_unavailable"})
		return false
	}
	return true
}

func (s *Server) lookup(c *gin.Context) (*model.Record, bool) {
	if !s.requireStore(c) {
		return nil, false
	}

	filename := c.Query("filename")
	if filename == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "bad_request", Details: "filename query parameter required"})
		return nil, false
	}

	rec, err := s.store.Get(c.Request.Context(), filename)
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Details: fmt.Sprintf("no record for %s", filename)})
		return nil, false
	case err != nil:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "read_failed", Details: err.Error()})
		return nil, false
	}
	return rec, true
}

func attachment(c *gin.Context, name string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
}

func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
