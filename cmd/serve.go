package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve generated JSON for dashboard development",
	Long: `Serve the output directory over HTTP with permissive CORS so the
dashboard can be developed against live data. Reads are safe during a
concurrent fetch run because every output file is replaced atomically.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		dir, _ := cmd.Flags().GetString("dir")
		port, _ := cmd.Flags().GetInt("port")
		if port == 0 {
			port = cfg.Server.Port
		}
		if dir == "" {
			dir = cfg.Output.Dir
		}
		if dir == "" {
			return eris.New("serve: --dir or output.dir is required")
		}

		r := chi.NewRouter()
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		}))

		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		})
		r.Handle("/data/*", http.StripPrefix("/data/", http.FileServer(http.Dir(dir))))

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.ListenAndServe()
		}()

		zap.L().Info("serving output directory",
			zap.String("dir", dir),
			zap.Int("port", port),
		)

		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case err := <-errCh:
			if err != nil && err != http.ErrServerClosed {
				return eris.Wrap(err, "serve")
			}
			return nil
		}
	},
}

func init() {
	serveCmd.Flags().String("dir", "", "directory of generated JSON to serve (default from config)")
	serveCmd.Flags().Int("port", 0, "listen port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
