// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-mode chat for doubtbot.
//
// The same submit flow as the TUI, on a readline prompt. History lives in
// memory only and is gone when the command exits.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/doubtbot/internal/conversation"
	"github.com/jeranaias/doubtbot/internal/export"
	"github.com/jeranaias/doubtbot/internal/format"
	"github.com/jeranaias/doubtbot/internal/gemini"
	"github.com/jeranaias/doubtbot/internal/model"
	"github.com/jeranaias/doubtbot/internal/ui/styles"
)

// =============================================================================
// INPUT
// =============================================================================

// LineReader reads prompted lines. *liner.State satisfies it.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	Close() error
}

// newLiner creates a liner prompt where Ctrl+C aborts the prompt.
func newLiner() *liner.State {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	return line
}

// =============================================================================
// CHAT REPL
// =============================================================================

// ChatREPL is an interactive line-mode conversation.
type ChatREPL struct {
	env      *Env
	in       LineReader
	session  *conversation.Session
	renderer format.Renderer
	modelID  string
	quiet    bool

	// requests counts remote calls; failed counts the ones that failed.
	requests int
	failed   int
}

// NewChatREPL creates a REPL reading from in and asking gen.
func NewChatREPL(env *Env, in LineReader, gen conversation.Generator, modelID string, rec conversation.Recorder) *ChatREPL {
	opts := []conversation.SessionOption{conversation.WithClassifier(gemini.Classify)}
	if rec != nil {
		opts = append(opts, conversation.WithRecorder(rec, modelID))
	}
	return &ChatREPL{
		env:      env,
		in:       in,
		session:  conversation.NewSession(gen, opts...),
		renderer: env.Renderer(GetTerminalWidth()),
		modelID:  modelID,
	}
}

// HandleChat handles the "chat" command.
func HandleChat(args Args) error {
	env, err := LoadEnv(args)
	if err != nil {
		return err
	}
	if !IsTTY() {
		return fmt.Errorf("chat needs an interactive terminal; use: doubtbot ask")
	}

	client := env.Client()
	if !client.IsConfigured() {
		fmt.Fprintln(env.Err, RenderWarning("Gemini API key not configured; every reply will fail. Set GEMINI_API_KEY."))
	}

	store, err := env.OpenTelemetry()
	if err != nil {
		fmt.Fprintln(env.Err, RenderWarning(err.Error()))
	}
	var rec conversation.Recorder
	if store != nil {
		defer store.Close()
		rec = store
	}

	repl := NewChatREPL(env, newLiner(), client, client.Model(), rec)
	repl.quiet = args.Quiet
	defer repl.in.Close()
	return repl.Run(context.Background())
}

// Run reads and answers lines until /quit, Ctrl+C at the prompt, or EOF.
func (r *ChatREPL) Run(ctx context.Context) error {
	if !r.quiet {
		r.printWelcome()
	}

	for {
		input, err := r.in.Prompt("doubtbot> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(r.env.Out)
				r.printExitSummary()
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		r.in.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if !r.handleSlashCommand(input) {
				r.printExitSummary()
				return nil
			}
			continue
		}

		r.ask(ctx, input)
	}
}

// ask submits one prompt. Ctrl+C while waiting cancels just this request.
func (r *ChatREPL) ask(ctx context.Context, input string) {
	reqCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if !r.quiet {
		fmt.Fprintln(r.env.Err, DimStyle.Render("Thinking..."))
	}
	turn, err := r.session.Submit(reqCtx, input)
	if err != nil {
		fmt.Fprintln(r.env.Err, styles.RenderError(err.Error()))
		return
	}
	r.requests++

	theme := r.env.Theme()
	fmt.Fprintln(r.env.Out, theme.AssistantLabel.Render(model.RoleAssistant.DisplayName()))
	body := turn.Content
	if turn.Failed {
		body = theme.Fallback.Render(body)
	} else {
		body = r.renderer.Render(body)
	}
	fmt.Fprintln(r.env.Out, strings.TrimRight(body, "\n"))
	fmt.Fprintln(r.env.Out)

	if res, ok := r.session.LastResult(); ok && res.Err != nil {
		r.failed++
		fmt.Fprintln(r.env.Err, DimStyle.Render(fmt.Sprintf("(request failed: %s)", gemini.Classify(res.Err))))
	}
}

// handleSlashCommand runs a /command. It returns false when the REPL
// should exit.
func (r *ChatREPL) handleSlashCommand(input string) bool {
	fields := strings.Fields(strings.TrimPrefix(input, "/"))
	if len(fields) == 0 {
		r.printHelp()
		return true
	}

	switch strings.ToLower(fields[0]) {
	case "quit", "q", "exit":
		return false

	case "clear", "c":
		if err := r.session.Clear(); err != nil {
			fmt.Fprintln(r.env.Err, styles.RenderError(err.Error()))
			return true
		}
		fmt.Fprintln(r.env.Out, RenderOK("Conversation cleared"))

	case "export", "e":
		r.export(strings.Join(fields[1:], " "))

	case "models", "m":
		r.printModels()

	case "help", "h", "?":
		r.printHelp()

	default:
		fmt.Fprintln(r.env.Err, styles.RenderError("unknown command /"+fields[0]))
		r.printHelp()
	}
	return true
}

// export writes the transcript to path, or to a generated HTML file in the
// current directory.
func (r *ChatREPL) export(path string) {
	transcript := r.session.State().Transcript
	if transcript.IsEmpty() {
		fmt.Fprintln(r.env.Err, RenderWarning("Nothing to export yet"))
		return
	}

	opts := export.DefaultOptions()
	opts.OutputDir = "."
	opts.IncludeTimestamps = r.env.Config.UI.ShowTimestamps
	opts.VerbatimCodeBlocks = r.env.Config.Format.VerbatimCodeBlocks

	exporter, err := export.ForPath(path, opts)
	if err == nil {
		path, err = export.ToFile(transcript, exporter, export.Meta{Model: r.modelID}, path, opts)
	}
	if err != nil {
		fmt.Fprintln(r.env.Err, styles.RenderError(err.Error()))
		return
	}
	fmt.Fprintln(r.env.Out, RenderOK("Exported to "+path))
}

// =============================================================================
// DISPLAY
// =============================================================================

func (r *ChatREPL) printWelcome() {
	fmt.Fprintln(r.env.Out, TitleStyle.Render("doubtbot")+" "+DimStyle.Render(model.DisplayName(r.modelID)))
	fmt.Fprintln(r.env.Out, DimStyle.Render("Type a question and press Enter. /help lists commands, Ctrl+D exits."))
	fmt.Fprintln(r.env.Out)
}

func (r *ChatREPL) printHelp() {
	fmt.Fprintln(r.env.Out, SectionStyle.Render("Commands"))
	fmt.Fprintln(r.env.Out, RenderField("/clear", "Start a new conversation"))
	fmt.Fprintln(r.env.Out, RenderField("/export [path]", "Write the conversation (html, md, json, yaml)"))
	fmt.Fprintln(r.env.Out, RenderField("/models", "List model aliases for --model"))
	fmt.Fprintln(r.env.Out, RenderField("/quit", "Exit"))
}

func (r *ChatREPL) printModels() {
	fmt.Fprintln(r.env.Out, SectionStyle.Render("Models"))
	for _, alias := range model.ModelAliases() {
		info := model.Models[alias]
		line := RenderField(alias, info.ID)
		if info.ID == r.modelID {
			line += " " + DimStyle.Render("(in use)")
		}
		fmt.Fprintln(r.env.Out, line)
	}
}

func (r *ChatREPL) printExitSummary() {
	if r.quiet {
		return
	}
	turns := r.session.State().Transcript.Len()
	fmt.Fprintln(r.env.Out, DimStyle.Render(fmt.Sprintf("%d requests (%d failed), %d turns in the current conversation", r.requests, r.failed, turns)))
}
