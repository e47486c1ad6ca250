// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// stats.go - The "stats" command: local usage statistics.

package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/doubtbot/internal/telemetry"
)

// HandleStats handles the "stats" command.
func HandleStats(args Args) error {
	env, err := LoadEnv(args)
	if err != nil {
		return err
	}
	return runStats(context.Background(), env, args, time.Now())
}

func runStats(ctx context.Context, env *Env, args Args, now time.Time) error {
	since, err := ParseSince(args.Since, now)
	if err != nil {
		return err
	}

	store, err := env.OpenTelemetry()
	if err != nil {
		return NewCommandError("stats", "open", "usage store unavailable", err)
	}
	if store == nil {
		return NewCommandError("stats", "show", "usage telemetry is disabled; enable it with: doubtbot config set telemetry.enabled true", nil)
	}
	defer store.Close()

	summary, err := store.Summary(ctx, since)
	if err != nil {
		return NewCommandError("stats", "show", "summary query failed", err)
	}
	var recent []telemetry.Usage
	if args.Recent > 0 {
		if recent, err = store.Recent(ctx, args.Recent); err != nil {
			return NewCommandError("stats", "show", "recent query failed", err)
		}
	}

	if args.JSON {
		return NewJSONResponse("stats", StatsData{Summary: summary, Recent: recent, Path: store.Path()}).Write(env.Out)
	}
	printStats(env, summary, recent, store.Path())
	return nil
}

// ParseSince parses a --since value: a duration like 90m, 24h or 7d, a date
// (2006-01-02), an RFC3339 time, or "all".
func ParseSince(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	switch value {
	case "", "all":
		return time.Time{}, nil
	}

	if days, ok := strings.CutSuffix(value, "d"); ok {
		if n, err := strconv.Atoi(days); err == nil && n >= 0 {
			return now.AddDate(0, 0, -n), nil
		}
	}
	if d, err := time.ParseDuration(value); err == nil && d >= 0 {
		return now.Add(-d), nil
	}
	if t, err := time.ParseInLocation("2006-01-02", value, now.Location()); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, strings.ToUpper(value)); err == nil {
		return t, nil
	}
	return time.Time{}, ErrInvalidFormat("--since", value, "24h, 7d, 2025-01-31 or all")
}

func printStats(env *Env, s telemetry.Summary, recent []telemetry.Usage, path string) {
	out := env.Out
	fmt.Fprintln(out, TitleStyle.Render("doubtbot usage"))
	fmt.Fprintln(out, RenderSeparator(40))

	since := "the beginning"
	if !s.Since.IsZero() {
		since = s.Since.Local().Format("2006-01-02 15:04")
	}
	fmt.Fprintln(out, RenderField("Since:", since))
	fmt.Fprintln(out, RenderField("Requests:", strconv.Itoa(s.Requests)))
	if s.Requests == 0 {
		fmt.Fprintln(out, RenderField("Store:", path))
		return
	}
	fmt.Fprintln(out, RenderField("Succeeded:", strconv.Itoa(s.Succeeded)))
	fmt.Fprintln(out, RenderField("Failed:", strconv.Itoa(s.Failed)))
	fmt.Fprintln(out, RenderField("Success rate:", fmt.Sprintf("%.0f%%", s.SuccessRate()*100)))
	fmt.Fprintln(out, RenderField("Avg latency:", formatLatency(s.AvgLatency)))
	fmt.Fprintln(out, RenderField("Max latency:", formatLatency(s.MaxLatency)))
	fmt.Fprintln(out, RenderField("Prompt chars:", strconv.FormatInt(s.PromptChars, 10)))
	fmt.Fprintln(out, RenderField("Reply chars:", strconv.FormatInt(s.ReplyChars, 10)))
	if !s.LastActivity.IsZero() {
		fmt.Fprintln(out, RenderField("Last activity:", s.LastActivity.Local().Format("2006-01-02 15:04:05")))
	}

	printCounts(env, "By model", s.ByModel)
	printCounts(env, "By error", s.ByErrorKind)

	if len(recent) > 0 {
		fmt.Fprintln(out, SectionStyle.Render("Recent"))
		for _, u := range recent {
			outcome := SuccessStyle.Render(u.Outcome)
			if u.Outcome != telemetry.OutcomeOK {
				outcome = ErrorStyle.Render(u.Outcome + " " + u.ErrorKind)
			}
			fmt.Fprintf(out, "  %s  %-18s %8s  %s\n",
				u.At.Local().Format("01-02 15:04:05"), u.Model, formatLatency(u.Latency), outcome)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, DimStyle.Render("Store: "+path))
}

func printCounts(env *Env, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	fmt.Fprintln(env.Out, SectionStyle.Render(title))
	for _, k := range keys {
		fmt.Fprintln(env.Out, RenderField(k, strconv.Itoa(counts[k])))
	}
}

// formatLatency formats a latency for display.
func formatLatency(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
