package reporter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"

	"killfocus/internal/config"
	"killfocus/internal/killer"
	"killfocus/pkg/utils"
)

// Protection resolves the packages that may never be killed
type Protection interface {
	ProtectedSet(ctx context.Context) killer.ProtectedSet
}

// UsageRow is one app in the usage view
type UsageRow struct {
	PackageID string    `json:"package_id"`
	EventType string    `json:"event_type"`
	LastUsed  time.Time `json:"last_used"`
	Protected bool      `json:"protected"`
	Selected  bool      `json:"selected"`
}

// UsageView is the usage window as the killer sees it
type UsageView struct {
	Start       time.Time           `json:"start"`
	End         time.Time           `json:"end"`
	Rows        []UsageRow          `json:"apps"`
	Protected   killer.ProtectedSet `json:"protected"`
	Decision    killer.KillDecision `json:"decision"`
	GeneratedAt time.Time           `json:"generated_at"`
}

// Reporter handles usage view generation
type Reporter struct {
	config     *config.Config
	usage      killer.UsageSource
	protection Protection
	now        func() time.Time
}

// New creates a new reporter
func New(cfg *config.Config, usage killer.UsageSource, protection Protection) *Reporter {
	return &Reporter{
		config:     cfg,
		usage:      usage,
		protection: protection,
		now:        time.Now,
	}
}

// GenerateUsage lists every app seen inside the usage window, most recent
// first, and marks the one the next kill would pick.
func (r *Reporter) GenerateUsage(ctx context.Context) (*UsageView, error) {
	end := r.now()
	start := end.Add(-r.config.Killer.UsageWindow)

	records, err := r.usage.QueryRecentUsage(ctx, start, end)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query usage")
	}

	var protected killer.ProtectedSet
	if r.protection != nil {
		protected = r.protection.ProtectedSet(ctx)
	}
	decision := killer.Resolve(records, protected)

	rows := make([]UsageRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, UsageRow{
			PackageID: rec.PackageID,
			EventType: rec.LastEventType.String(),
			LastUsed:  time.UnixMilli(rec.LastUsed),
			Protected: protected.Contains(rec.PackageID),
			Selected:  decision.HasTarget() && strings.EqualFold(rec.PackageID, decision.TargetPackageID),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].LastUsed.After(rows[j].LastUsed)
	})

	return &UsageView{
		Start:       start,
		End:         end,
		Rows:        rows,
		Protected:   protected,
		Decision:    decision,
		GeneratedAt: end,
	}, nil
}

// WriteUsageText renders the view as a table
func (r *Reporter) WriteUsageText(w io.Writer, view *UsageView) {
	fmt.Fprintf(w, "App usage from %s to %s\n",
		view.Start.Format("2006-01-02 15:04"),
		view.End.Format("2006-01-02 15:04"))

	if len(view.Rows) == 0 {
		fmt.Fprintln(w, "No activity recorded in this window.")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Application", "Last Event", "Last Used", "Ago", "Notes"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)

	for _, row := range view.Rows {
		table.Append([]string{
			truncate(row.PackageID, 30),
			row.EventType,
			row.LastUsed.Format("15:04:05"),
			utils.FormatAgo(view.End, row.LastUsed),
			notes(row),
		})
	}
	table.Render()

	fmt.Fprintln(w, describeDecision(view.Decision))
}

// FormatUsageJSON formats the view as JSON
func (r *Reporter) FormatUsageJSON(view *UsageView) (string, error) {
	data, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal JSON")
	}
	return string(data), nil
}

func notes(row UsageRow) string {
	var parts []string
	if row.Protected {
		parts = append(parts, "protected")
	}
	if row.Selected {
		parts = append(parts, "next kill")
	}
	return strings.Join(parts, ", ")
}

func describeDecision(d killer.KillDecision) string {
	switch {
	case d.HasTarget():
		return fmt.Sprintf("Next kill: %s", d.TargetPackageID)
	case d.Reason == killer.ReasonProtected:
		return fmt.Sprintf("Next kill: none (%s is protected)", d.DisplayName)
	default:
		return "Nothing to kill."
	}
}

// truncate truncates a string to the specified length
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
