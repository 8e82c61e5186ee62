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

// Command mufassir is the CLI for the Quran Q&A pipeline.
//
// Usage:
//
//	mufassir serve --config config.yaml
//	mufassir ask "What does the Quran say about patience?" --surah 2
//	mufassir tools list
//	mufassir tools serve --agent tafsir
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/mufassir-ai/mufassir/pkg/orchestrator"
	"github.com/mufassir-ai/mufassir/pkg/toolserver"
)

// CLI defines the command-line interface.
type CLI struct {
	Version VersionCmd `cmd:"" help:"Show version information."`
	Serve   ServeCmd   `cmd:"" help:"Start the HTTP server."`
	Ask     AskCmd     `cmd:"" help:"Ask a single question and print the answer."`
	Tools   ToolsCmd   `cmd:"" help:"Inspect or serve the agent tool servers."`

	Config   string `short:"c" help:"Path to config file." type:"path"`
	LogLevel string `help:"Log level (debug, info, warn, error)." default:"info"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("mufassir version %s\n", buildVersion())
	return nil
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			return info.Main.Version
		}
	}
	return "dev"
}

// AskCmd runs one query through the pipeline and prints the result.
type AskCmd struct {
	Query string `arg:"" help:"The question to ask."`

	Surah        *int   `help:"Restrict retrieval to one surah."`
	Verse        *int   `help:"Restrict retrieval to one verse."`
	K            int    `help:"Number of results to retrieve." default:"5"`
	DirectTafsir bool   `name:"direct-tafsir" help:"Also perform a direct tafsir lookup (needs --surah and --verse)."`
	Model        string `help:"Override the generation model."`
	JSON         bool   `help:"Print the full response as JSON."`
}

func (c *AskCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	p, err := buildPipeline(cli.Config)
	if err != nil {
		return err
	}
	defer p.Close()

	resp, err := p.Orchestrator.ProcessQuery(ctx, &orchestrator.QueryRequest{
		Query:           c.Query,
		SurahFilter:     c.Surah,
		VerseFilter:     c.Verse,
		K:               c.K,
		UseDirectTafsir: c.DirectTafsir,
		Model:           c.Model,
	})
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Println(resp.Answer)
	if len(resp.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, s := range resp.Sources {
			fmt.Printf("  - [%s %s]\n", s.SourceType, s.Reference)
		}
	}
	return nil
}

// ToolsCmd inspects or serves the agent tool servers.
type ToolsCmd struct {
	List  ToolsListCmd  `cmd:"" help:"List all tool servers and their tools."`
	Serve ToolsServeCmd `cmd:"" help:"Serve one agent's tools over MCP stdio."`
}

// ToolsListCmd prints every server's tool listing.
type ToolsListCmd struct{}

func (c *ToolsListCmd) Run(cli *CLI) error {
	p, err := buildPipeline(cli.Config)
	if err != nil {
		return err
	}
	defer p.Close()

	for _, s := range p.ToolServers {
		fmt.Printf("%s:\n", s.Name())
		for _, def := range s.Tools() {
			fmt.Printf("  %-20s %s\n", def.Name, def.Description)
		}
	}
	return nil
}

// ToolsServeCmd serves one agent's tools over MCP stdio.
type ToolsServeCmd struct {
	Agent string `arg:"" help:"Agent to serve: retriever, generator, summarizer, tafsir, translation."`
}

func (c *ToolsServeCmd) Run(cli *CLI) error {
	p, err := buildPipeline(cli.Config)
	if err != nil {
		return err
	}
	defer p.Close()

	srv, ok := p.ServerFor(c.Agent)
	if !ok {
		names := make([]string, 0, len(p.ToolServers))
		for name := range p.serversByAlias {
			names = append(names, name)
		}
		return fmt.Errorf("unknown agent %q (available: %s)", c.Agent, strings.Join(names, ", "))
	}

	slog.Info("Serving tools over MCP stdio", "server", srv.Name())
	return toolserver.ServeMCPStdio(srv)
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func setupLogging(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	return nil
}

func main() {
	cli := &CLI{}
	kctx := kong.Parse(cli,
		kong.Name("mufassir"),
		kong.Description("Quran Q&A agent pipeline."),
		kong.UsageOnError(),
	)

	if err := setupLogging(cli.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	if err := kctx.Run(cli); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
