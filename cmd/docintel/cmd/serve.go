package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/docintel/internal/server"
)

var (
	serverAddr     string
	serverDebug    bool
	readTimeout    time.Duration
	writeTimeout   time.Duration
	requestTimeout time.Duration
	maxUpload      int64
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP API server for processing documents.

The API provides endpoints for:
  - POST /api/v1/upload              - Extract, summarize and store a document
  - POST /api/v1/extract_text_only   - Return the document text
  - POST /api/v1/extract             - Extract fields without storing
  - GET  /api/v1/documents           - List stored documents
  - GET  /api/v1/export/json         - Download a stored record
  - GET  /api/v1/export/xlsx         - Download a spreadsheet report
  - GET  /api/v1/export/text         - Download a Latin-1 text report
  - POST /api/v1/corrections         - Replace the fields of a record
  - GET  /health                     - Health check

Examples:
  # Start server on default port
  docintel serve

  # Keep records in SQLite
  docintel serve --store sqlite --data-dir ./data

  # Start in debug mode
  docintel serve --debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverAddr, "address", ":8080", "Server listen address")
	serveCmd.Flags().BoolVar(&serverDebug, "debug", false, "Enable debug mode")
	serveCmd.Flags().DurationVar(&readTimeout, "read-timeout", 30*time.Second, "HTTP read timeout")
	serveCmd.Flags().DurationVar(&writeTimeout, "write-timeout", 5*time.Minute, "HTTP write timeout")
	serveCmd.Flags().DurationVar(&requestTimeout, "request-timeout", 2*time.Minute, "Processing timeout per request")
	serveCmd.Flags().Int64Var(&maxUpload, "max-upload", server.DefaultMaxUploadBytes, "Maximum upload size in bytes")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := newLogger()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	config := &server.Config{
		Address:        serverAddr,
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		RequestTimeout: requestTimeout,
		MaxUploadBytes: maxUpload,
		Debug:          serverDebug,
	}
	srv := server.NewServer(config, newPipeline(log), st, log)

	fmt.Printf("Starting server on %s\n", serverAddr)
	if apiKey != "" {
		fmt.Println("LLM summaries enabled")
	} else {
		fmt.Println("LLM summaries disabled (no API key)")
	}

	return srv.Run(ctx)
}
