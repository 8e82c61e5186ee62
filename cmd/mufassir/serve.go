// Copyright 2025 The Mufassir Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServeCmd starts the HTTP server.
type ServeCmd struct {
	Port int `help:"Port to listen on (overrides config)." default:"0"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	p, err := buildPipeline(cli.Config)
	if err != nil {
		return err
	}
	defer p.Close()

	port := p.Config.Server.Port
	if c.Port != 0 {
		port = c.Port
	}
	addr := fmt.Sprintf("%s:%d", p.Config.Server.Host, port)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/", p.Orchestrator.Handler())

	aliases := []string{"retriever", "generator", "summarizer", "tafsir", "translation"}
	for _, alias := range aliases {
		srv, _ := p.ServerFor(alias)
		r.Mount("/agents/"+alias, srv.Handler())
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Printf("mufassir server ready on http://%s\n", addr)
	fmt.Printf("   Query:   POST http://%s/query\n", addr)
	fmt.Printf("   Health:  GET  http://%s/healthz\n", addr)
	fmt.Printf("   Metrics: GET  http://%s/metrics\n", addr)
	for _, alias := range aliases {
		fmt.Printf("   Tools:   http://%s/agents/%s/tools\n", addr, alias)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}
