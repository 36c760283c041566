// ColorStdoutWriter prints human-friendly, colorized traces to STDOUT.
package sim

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"intrusion-sim/internal/config"
	"intrusion-sim/internal/lifecycle"
	"intrusion-sim/internal/metrics"
	"intrusion-sim/internal/stage"
)

var stageAbbrev = map[stage.Name]string{
	stage.Reconnaissance:      "REC",
	stage.ResourceDevelopment: "RES",
	stage.InitialAccess:       "IA",
	stage.Execution:           "EXE",
	stage.Persistence:         "PER",
	stage.PrivilegeEscalation: "PRV",
	stage.DefenseEvasion:      "EVA",
	stage.CredentialAccess:    "CRD",
	stage.Discovery:           "DSC",
	stage.LateralMovement:     "LAT",
	stage.Collection:          "COL",
	stage.CommandAndControl:   "C2",
	stage.Exfiltration:        "EXF",
	stage.Impact:              "IMP",
}

// ColorStdoutWriter prints one line per run and a table per summary.
type ColorStdoutWriter struct {
	cfg  *config.SimulationConfig
	out  io.Writer
	once sync.Once

	ok, fail, gated, muted lipgloss.Style
	outcome                map[string]lipgloss.Style
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter(cfg *config.SimulationConfig) *ColorStdoutWriter {
	return newColorWriter(cfg, os.Stdout)
}

func newColorWriter(cfg *config.SimulationConfig, out io.Writer) *ColorStdoutWriter {
	r := lipgloss.NewRenderer(out)
	return &ColorStdoutWriter{
		cfg:   cfg,
		out:   out,
		ok:    r.NewStyle().Foreground(lipgloss.Color("2")),
		fail:  r.NewStyle().Foreground(lipgloss.Color("1")),
		gated: r.NewStyle().Foreground(lipgloss.Color("8")),
		muted: r.NewStyle().Foreground(lipgloss.Color("244")),
		outcome: map[string]lipgloss.Style{
			metrics.OutcomeBlocked:   r.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
			metrics.OutcomeContained: r.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
			metrics.OutcomeImpact:    r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		},
	}
}

func (w *ColorStdoutWriter) printOverview() {
	if w.cfg == nil {
		return
	}
	fmt.Fprintln(w.out, "Simulation Configuration:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Runs:\t%d\n", w.cfg.Runs)
	fmt.Fprintf(tw, "Seed:\t%d\n", w.cfg.Seed)
	fmt.Fprintf(tw, "Workers:\t%d\n", w.cfg.Workers)
	if w.cfg.Posture != nil {
		fmt.Fprintf(tw, "Posture:\t%.2f (%s)\n", *w.cfg.Posture, w.cfg.PostureScale)
	} else {
		d := w.cfg.Defender
		fmt.Fprintf(tw, "Defender:\ttraining %.0f, awareness %.0f, hardening %.2f\n", d.Training, d.Awareness, d.Hardening)
	}
	if w.cfg.Category != "" {
		fmt.Fprintf(tw, "Attacker pool:\t%s (irrational %.2f)\n", w.cfg.Category, w.cfg.IrrationalBehavior)
	} else {
		fmt.Fprintf(tw, "Attacker:\tresources %.0f, motivation %.0f\n", w.cfg.Attacker.Resources, w.cfg.Attacker.Motivation)
	}
	tw.Flush()
	fmt.Fprintln(w.out)
}

// WriteTrace outputs a single run in colorized format.
func (w *ColorStdoutWriter) WriteTrace(t *lifecycle.Trace) error {
	w.once.Do(w.printOverview)

	var chain []string
	for _, r := range t.Records {
		label := stageAbbrev[r.Stage]
		switch {
		case r.Gated:
			chain = append(chain, w.gated.Render(label))
		case r.Success:
			chain = append(chain, w.ok.Render(label))
		default:
			chain = append(chain, w.fail.Render(label))
		}
	}
	outcome := metrics.Outcome(t)
	detail := "ended at " + string(t.EndedAt)
	if t.Final.Impact != nil {
		detail = *t.Final.Impact
	}
	switch {
	case t.Evicted():
		detail += ", detected, evicted"
	case t.Response != nil:
		detail += fmt.Sprintf(", detected, contained to %.0f", t.Response.Resources)
	case t.Detected:
		detail += ", detected"
	}
	who := ""
	if t.AttackerType != "" {
		who = " " + w.muted.Render(t.AttackerType)
	}
	_, err := fmt.Fprintf(w.out, "run %04d posture %.2f resources %3.0f→%3.0f%s  %s  %s %s\n",
		t.Run, t.Posture, t.Attacker.Resources, t.Final.Resources, who,
		strings.Join(chain, " "), w.outcome[outcome].Render(outcome), w.muted.Render(detail))
	return err
}

// WriteSummary prints per-stage rates for the batch.
func (w *ColorStdoutWriter) WriteSummary(s Summary) error {
	w.once.Do(w.printOverview)

	fmt.Fprintf(w.out, "\nRuns: %d  compromised: %.1f%%  impact: %.1f%%  detected: %.1f%%  evicted: %.1f%%\n",
		s.Runs, 100*s.CompromiseRate(), 100*s.ImpactRate(), 100*s.DetectionRate(), 100*s.EvictionRate())
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Stage\tAttempts\tSuccess\tMean chance\tGated\n")
	for _, name := range stage.Order {
		st, ok := s.Stages[name]
		if !ok {
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%.1f%%\t%.3f\t%d\n", name, st.Attempts, 100*st.SuccessRate(), st.MeanChance(), st.Gated)
	}
	return tw.Flush()
}
