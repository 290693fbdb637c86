// Package report renders conformance outcomes for terminals and machines
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/brendan.keane/featcheck/internal/conformance"
	"github.com/brendan.keane/featcheck/internal/errors"
	"github.com/charmbracelet/lipgloss"
)

const (
	FormatPretty = "pretty"
	FormatJSON   = "json"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#5B47E0")).
			Padding(0, 2)

	statusStyles = map[conformance.Status]lipgloss.Style{
		conformance.StatusPass: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#98C379")).
			Padding(0, 1),
		conformance.StatusFail: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#E06C75")).
			Padding(0, 1),
		conformance.StatusSkip: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#E5C07B")).
			Padding(0, 1),
	}

	checkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#61AFEF")).
			Bold(true)

	subjectStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ABB2BF"))

	requirementStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#5C6370"))

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ABB2BF")).
			MarginLeft(7)

	violationStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E06C75")).
			MarginLeft(9)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5B47E0")).
			Padding(0, 1).
			MarginTop(1)
)

// Report is the result of one run
type Report struct {
	IUT                string                `json:"iut"`
	Description        string                `json:"description,omitempty"`
	ConformanceClasses []string              `json:"conformanceClasses"`
	Summary            conformance.Summary   `json:"summary"`
	Outcomes           []conformance.Outcome `json:"outcomes"`
}

// New builds a report and its summary
func New(iut, description string, classes []string, outcomes []conformance.Outcome) *Report {
	if classes == nil {
		classes = []string{}
	}
	if outcomes == nil {
		outcomes = []conformance.Outcome{}
	}
	return &Report{
		IUT:                iut,
		Description:        description,
		ConformanceClasses: classes,
		Summary:            conformance.Summarize(outcomes),
		Outcomes:           outcomes,
	}
}

// Passed reports whether no outcome failed
func (r *Report) Passed() bool {
	return r.Summary.Failed == 0
}

// Render writes the report in the given format
func Render(w io.Writer, format string, r *Report) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, r)
	case FormatPretty, "":
		_, err := io.WriteString(w, Pretty(r))
		return err
	default:
		return errors.Newf(errors.ErrorTypeConfig, "unknown output format %q", format).
			WithContext("config_type", "output")
	}
}

// RenderPoints writes resolved test points in the given format
func RenderPoints(w io.Writer, format string, points []conformance.TestPoint) error {
	switch format {
	case FormatJSON:
		if points == nil {
			points = []conformance.TestPoint{}
		}
		return writeJSON(w, points)
	case FormatPretty, "":
		var output strings.Builder
		if len(points) == 0 {
			output.WriteString(subjectStyle.Render("No test points resolved"))
			output.WriteString("\n")
		}
		for _, tp := range points {
			output.WriteString(checkStyle.Render(tp.URL()))
			output.WriteString(" ")
			output.WriteString(requirementStyle.Render(tp.PathTemplate))
			output.WriteString("\n")
		}
		_, err := io.WriteString(w, output.String())
		return err
	default:
		return errors.Newf(errors.ErrorTypeConfig, "unknown output format %q", format).
			WithContext("config_type", "output")
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode report")
	}
	return nil
}

// Pretty renders the report for a terminal
func Pretty(r *Report) string {
	var output strings.Builder

	output.WriteString(titleStyle.Render(fmt.Sprintf(" OGC API Features conformance: %s ", r.IUT)))
	output.WriteString("\n")
	if r.Description != "" {
		output.WriteString(requirementStyle.Render("API description: " + r.Description))
		output.WriteString("\n")
	}
	output.WriteString("\n")

	for _, o := range r.Outcomes {
		output.WriteString(statusStyles[o.Status].Render(strings.ToUpper(string(o.Status))))
		output.WriteString(" ")
		output.WriteString(checkStyle.Render(o.Check))
		output.WriteString(" ")
		output.WriteString(subjectStyle.Render(o.Subject))
		if o.Requirement != "" {
			output.WriteString(" ")
			output.WriteString(requirementStyle.Render(o.Requirement))
		}
		output.WriteString("\n")

		if o.Status == conformance.StatusPass {
			continue
		}
		if o.Message != "" {
			output.WriteString(messageStyle.Render(o.Message))
			output.WriteString("\n")
		}
		for _, v := range o.Violations {
			output.WriteString(violationStyle.Render("- " + v))
			output.WriteString("\n")
		}
	}

	s := r.Summary
	output.WriteString(boxStyle.Render(fmt.Sprintf("%d checks: %d passed, %d failed, %d skipped",
		s.Total, s.Passed, s.Failed, s.Skipped)))
	output.WriteString("\n")
	return output.String()
}
