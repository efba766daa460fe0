package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/picpress/picpress/internal/config"
	"github.com/picpress/picpress/internal/render"
	"github.com/picpress/picpress/internal/web"
	"github.com/picpress/picpress/internal/web/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the picpress web server. The server provides an HTTP API
for uploading images, reordering them, and generating the PDF.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().String("page", "", "Page preset: a4, letter or legal (default a4)")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	page := cfg.PageSpec(mustGetString(cmd, "page"))

	renderer := render.NewChromeRenderer(page, time.Duration(cfg.Render.TimeoutSeconds)*time.Second)
	session, err := handlers.NewSession(renderer, handlers.SessionOptions{
		Page:        page,
		Title:       "document",
		Concurrency: cfg.Render.Concurrency,
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(session, port, host)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting picpress on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
