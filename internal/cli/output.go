package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/osvaldoandrade/extrepo/internal/app/build"
	"github.com/osvaldoandrade/extrepo/internal/app/history"
	"github.com/osvaldoandrade/extrepo/internal/domain"
	"github.com/spf13/cobra"
)

type buildSummary struct {
	build.Summary
	Strategy string
}

type groupOutput struct {
	Published int `json:"published"`
	UpToDate  int `json:"up_to_date"`
	Skipped   int `json:"skipped"`
}

type resultOutput struct {
	Manifest   string         `json:"manifest"`
	Name       string         `json:"name,omitempty"`
	Repo       string         `json:"repo,omitempty"`
	Version    string         `json:"version,omitempty"`
	Theme      bool           `json:"theme,omitzero"`
	Outcome    string         `json:"outcome"`
	Reason     string         `json:"reason,omitempty"`
	Error      string         `json:"error,omitempty"`
	Downloaded int64          `json:"downloaded_bytes,omitzero"`
	Changes    jsontext.Value `json:"changes,omitzero"`
}

type buildOutput struct {
	RunID        string         `json:"run_id"`
	Strategy     string         `json:"strategy"`
	StartedAt    string         `json:"started_at"`
	FinishedAt   string         `json:"finished_at"`
	Packages     int            `json:"packages"`
	Extensions   groupOutput    `json:"extensions"`
	Themes       groupOutput    `json:"themes"`
	IndexPath    string         `json:"index_path"`
	IndexChanged bool           `json:"index_changed"`
	IndexDigest  string         `json:"index_digest,omitempty"`
	JournalError string         `json:"journal_error,omitempty"`
	Results      []resultOutput `json:"results"`
}

type resolveOutput struct {
	Upstream   string `json:"upstream"`
	Strategy   string `json:"strategy"`
	Version    string `json:"version"`
	ArchiveURL string `json:"archive_url,omitempty"`
}

type manifestOutput struct {
	File     string `json:"file"`
	Theme    bool   `json:"theme,omitzero"`
	ID       string `json:"id,omitempty"`
	Upstream string `json:"upstream,omitempty"`
	Valid    bool   `json:"valid"`
	Error    string `json:"error,omitempty"`
}

type validateOutput struct {
	Valid     int              `json:"valid"`
	Invalid   int              `json:"invalid"`
	Manifests []manifestOutput `json:"manifests"`
}

type runOutput struct {
	ID           string `json:"id"`
	StartedAt    string `json:"started_at"`
	FinishedAt   string `json:"finished_at"`
	DurationMS   int64  `json:"duration_ms"`
	Packages     int    `json:"packages"`
	Published    int    `json:"published"`
	UpToDate     int    `json:"up_to_date"`
	Skipped      int    `json:"skipped"`
	IndexChanged bool   `json:"index_changed"`
	IndexDigest  string `json:"index_digest,omitempty"`
}

type outcomeOutput struct {
	Manifest string         `json:"manifest"`
	Name     string         `json:"name,omitempty"`
	Repo     string         `json:"repo,omitempty"`
	Version  string         `json:"version,omitempty"`
	Theme    bool           `json:"theme,omitzero"`
	Outcome  string         `json:"outcome"`
	Reason   string         `json:"reason,omitempty"`
	Error    string         `json:"error,omitempty"`
	Changes  jsontext.Value `json:"changes,omitzero"`
}

type runDetailOutput struct {
	Run      runOutput       `json:"run"`
	Outcomes []outcomeOutput `json:"outcomes"`
}

func writeJSON(out io.Writer, value any) error {
	payload, err := json.Marshal(value, jsontext.WithIndent("  "))
	if err != nil {
		return err
	}
	_, err = out.Write(append(payload, '\n'))
	return err
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func rawJSON(data []byte) jsontext.Value {
	if len(data) == 0 {
		return nil
	}
	return jsontext.Value(data)
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func writeBuildSummary(cmd *cobra.Command, summary buildSummary, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		payload := buildOutput{
			RunID:        summary.RunID,
			Strategy:     summary.Strategy,
			StartedAt:    formatTime(summary.StartedAt),
			FinishedAt:   formatTime(summary.FinishedAt),
			Packages:     summary.Packages(),
			Extensions:   groupOutput(summary.Extensions),
			Themes:       groupOutput(summary.Themes),
			IndexPath:    summary.IndexPath,
			IndexChanged: summary.IndexChanged,
			IndexDigest:  summary.IndexDigest,
			JournalError: errorText(summary.JournalErr),
			Results:      make([]resultOutput, 0, len(summary.Results)),
		}
		for _, result := range summary.Results {
			payload.Results = append(payload.Results, resultOutput{
				Manifest:   result.FileName,
				Name:       result.Name,
				Repo:       result.RepoName,
				Version:    result.Version,
				Theme:      result.Theme,
				Outcome:    string(result.Outcome),
				Reason:     string(result.Reason),
				Error:      errorText(result.Err),
				Downloaded: result.Downloaded,
				Changes:    rawJSON(result.Changes),
			})
		}
		return writeJSON(out, payload)
	}

	ui := newRenderer(out, asJSON)
	for _, result := range summary.Results {
		if err := writeResultLine(out, ui, result); err != nil {
			return err
		}
	}

	published := summary.Extensions.Published + summary.Themes.Published
	current := summary.Extensions.UpToDate + summary.Themes.UpToDate
	skipped := summary.Extensions.Skipped + summary.Themes.Skipped
	index := summary.IndexPath
	if summary.IndexChanged {
		index += " " + ui.ok("(updated)")
	} else {
		index += " " + ui.dim("(unchanged)")
	}

	rows := [][2]string{
		{"Run", summary.RunID},
		{"Strategy", summary.Strategy},
		{"Extensions", groupLine(ui, summary.Extensions)},
		{"Themes", groupLine(ui, summary.Themes)},
		{"Packages", fmt.Sprintf("%s %s", ui.outcomeBar(20, published, current, skipped), countLabel(summary.Packages(), "indexed"))},
		{"Index", index},
		{"Digest", summary.IndexDigest},
		{"Duration", summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond).String()},
	}
	if summary.JournalErr != nil {
		rows = append(rows, [2]string{"Journal", ui.warn(summary.JournalErr.Error())})
	}
	for _, row := range rows {
		if err := writeKV(out, ui, row[0], row[1]); err != nil {
			return err
		}
	}
	return nil
}

func writeResultLine(out io.Writer, ui renderer, result build.Result) error {
	label := result.FileName
	if result.RepoName != "" {
		label = fmt.Sprintf("%s (%s)", result.FileName, result.RepoName)
	}
	switch result.Outcome {
	case domain.OutcomePublished:
		size := ""
		if result.Downloaded > 0 {
			size = " " + ui.dim(humanize.Bytes(uint64(result.Downloaded)))
		}
		_, err := fmt.Fprintf(out, "%s %s %s%s\n", ui.ok("published"), label, result.Version, size)
		return err
	case domain.OutcomeUpToDate:
		_, err := fmt.Fprintf(out, "%s %s %s\n", ui.dim("current  "), label, result.Version)
		return err
	default:
		_, err := fmt.Fprintf(out, "%s %s %s: %s\n", ui.warn("skipped  "), label, result.Reason, errorText(result.Err))
		return err
	}
}

func groupLine(ui renderer, group build.GroupSummary) string {
	skipped := countLabel(group.Skipped, "skipped")
	if group.Skipped > 0 {
		skipped = ui.warn(skipped)
	}
	return fmt.Sprintf("%d: %s, %s, %s",
		group.Total(),
		ui.ok(countLabel(group.Published, "published")),
		countLabel(group.UpToDate, "up to date"),
		skipped,
	)
}

func writeResolveResult(cmd *cobra.Command, upstream, strategy string, release domain.Release, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		return writeJSON(out, resolveOutput{
			Upstream:   upstream,
			Strategy:   strategy,
			Version:    release.Version,
			ArchiveURL: release.ArchiveURL,
		})
	}
	ui := newRenderer(out, asJSON)
	if err := writeKV(out, ui, "Upstream", upstream); err != nil {
		return err
	}
	if err := writeKV(out, ui, "Strategy", strategy); err != nil {
		return err
	}
	if err := writeKV(out, ui, "Version", ui.accent(release.Version)); err != nil {
		return err
	}
	if release.ArchiveURL != "" {
		return writeKV(out, ui, "Archive", release.ArchiveURL)
	}
	return nil
}

func writeValidateReport(cmd *cobra.Command, report build.ManifestReport, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		payload := validateOutput{
			Valid:     report.Valid,
			Invalid:   report.Invalid,
			Manifests: make([]manifestOutput, 0, len(report.Entries)),
		}
		for _, entry := range report.Entries {
			payload.Manifests = append(payload.Manifests, manifestOutput{
				File:     entry.FileName,
				Theme:    entry.Theme,
				ID:       entry.Manifest.ID,
				Upstream: entry.Manifest.Upstream,
				Valid:    entry.Err == nil,
				Error:    errorText(entry.Err),
			})
		}
		return writeJSON(out, payload)
	}

	ui := newRenderer(out, asJSON)
	for _, entry := range report.Entries {
		if entry.Err != nil {
			if _, err := fmt.Fprintf(out, "%s %s: %s\n", ui.err("invalid"), entry.FileName, entry.Err); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(out, "%s %s %s\n", ui.ok("ok     "), entry.FileName, ui.dim(entry.Manifest.ID)); err != nil {
			return err
		}
	}
	return writeKV(out, ui, "Manifests", fmt.Sprintf("%s, %s", countLabel(report.Valid, "valid"), countLabel(report.Invalid, "invalid")))
}

func toRunOutput(run history.Run) runOutput {
	return runOutput{
		ID:           run.ID,
		StartedAt:    formatTime(run.StartedAt),
		FinishedAt:   formatTime(run.FinishedAt),
		DurationMS:   run.Duration().Milliseconds(),
		Packages:     run.Packages,
		Published:    run.Published,
		UpToDate:     run.UpToDate,
		Skipped:      run.Skipped,
		IndexChanged: run.IndexChanged,
		IndexDigest:  run.IndexDigest,
	}
}

func writeHistory(cmd *cobra.Command, runs []history.Run, now time.Time, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		payload := make([]runOutput, 0, len(runs))
		for _, run := range runs {
			payload = append(payload, toRunOutput(run))
		}
		return writeJSON(out, payload)
	}

	ui := newRenderer(out, asJSON)
	if len(runs) == 0 {
		_, err := fmt.Fprintln(out, ui.dim("no recorded runs"))
		return err
	}
	for _, run := range runs {
		changed := ui.dim("unchanged")
		if run.IndexChanged {
			changed = ui.ok("updated")
		}
		_, err := fmt.Fprintf(out, "%s  %-16s  %s published, %d current, %s skipped  %s\n",
			ui.key(run.ID),
			humanize.RelTime(run.StartedAt, now, "ago", "from now"),
			ui.ok(formatCount(run.Published)),
			run.UpToDate,
			skippedCount(ui, run.Skipped),
			changed,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func writeRunDetail(cmd *cobra.Command, detail history.RunDetail, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		payload := runDetailOutput{
			Run:      toRunOutput(detail.Run),
			Outcomes: make([]outcomeOutput, 0, len(detail.Outcomes)),
		}
		for _, outcome := range detail.Outcomes {
			payload.Outcomes = append(payload.Outcomes, outcomeOutput{
				Manifest: outcome.FileName,
				Name:     outcome.Name,
				Repo:     outcome.RepoName,
				Version:  outcome.Version,
				Theme:    outcome.Theme,
				Outcome:  outcome.Outcome,
				Reason:   outcome.Reason,
				Error:    outcome.Error,
				Changes:  rawJSON([]byte(outcome.Changes)),
			})
		}
		return writeJSON(out, payload)
	}

	ui := newRenderer(out, asJSON)
	run := detail.Run
	rows := [][2]string{
		{"Run", run.ID},
		{"Started", formatTime(run.StartedAt)},
		{"Duration", run.Duration().Round(time.Millisecond).String()},
		{"Packages", formatCount(run.Packages)},
		{"Digest", run.IndexDigest},
	}
	for _, row := range rows {
		if err := writeKV(out, ui, row[0], row[1]); err != nil {
			return err
		}
	}
	for _, outcome := range detail.Outcomes {
		line := fmt.Sprintf("%s %s", outcomeLabel(ui, outcome.Outcome), outcome.FileName)
		if outcome.Version != "" {
			line += " " + outcome.Version
		}
		if outcome.Reason != "" {
			line += fmt.Sprintf(" %s: %s", outcome.Reason, outcome.Error)
		}
		if outcome.Changes != "" {
			line += " " + ui.dim(outcome.Changes)
		}
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}

func outcomeLabel(ui renderer, outcome string) string {
	switch domain.Outcome(outcome) {
	case domain.OutcomePublished:
		return ui.ok("published")
	case domain.OutcomeUpToDate:
		return ui.dim("current  ")
	default:
		return ui.warn("skipped  ")
	}
}

func skippedCount(ui renderer, n int) string {
	if n > 0 {
		return ui.warn(formatCount(n))
	}
	return formatCount(n)
}

func formatCount(n int) string {
	return humanize.Comma(int64(n))
}

func writeKV(out io.Writer, ui renderer, key, value string) error {
	_, err := fmt.Fprintf(out, "%s: %s\n", ui.key(key), value)
	return err
}
