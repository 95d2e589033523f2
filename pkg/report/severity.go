// Package report turns findings into diagnostics and renders them for
// terminals, machines and browsers.
package report

import (
	"fmt"
	"strings"

	"github.com/sw33tLie/baseline-lite/pkg/baseline"
)

type Severity string

const (
	SeverityWarning     Severity = "warning"
	SeverityInformation Severity = "information"
	SeverityHint        Severity = "hint"
	SeverityNone        Severity = "none"
)

// ParseSeverity accepts the configured severity names, case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	switch sev := Severity(strings.ToLower(strings.TrimSpace(s))); sev {
	case SeverityWarning, SeverityInformation, SeverityHint, SeverityNone:
		return sev, nil
	case "info":
		return SeverityInformation, nil
	case "":
		return SeverityInformation, nil
	}
	return "", fmt.Errorf("unknown severity %q (want warning, information, hint or none)", s)
}

// Policy maps statuses to severities. Newly available findings are always
// warnings; Limited decides how limited availability findings are shown.
type Policy struct {
	Limited Severity
}

func DefaultPolicy() Policy {
	return Policy{Limited: SeverityInformation}
}

// For returns the severity for a status. SeverityNone means the finding is
// dropped from output.
func (p Policy) For(st baseline.Status) Severity {
	switch st {
	case baseline.NewlyAvailable:
		return SeverityWarning
	case baseline.Limited:
		if p.Limited == "" {
			return SeverityInformation
		}
		return p.Limited
	}
	return SeverityNone
}

// Message is the one-line diagnostic text for a finding.
func Message(f baseline.Finding) string {
	label := f.Label
	if label == "" {
		label = f.Key
	}
	return fmt.Sprintf("%s: %s – not fully supported across all major browsers", label, baseline.Label(f.Status))
}

// Diagnostic is a finding with its severity and message attached.
type Diagnostic struct {
	Range    baseline.Range  `json:"range" yaml:"range"`
	Severity Severity        `json:"severity" yaml:"severity"`
	Status   baseline.Status `json:"status" yaml:"status"`
	Label    string          `json:"label" yaml:"label"`
	Key      string          `json:"key" yaml:"key"`
	Message  string          `json:"message" yaml:"message"`
}

// Diagnostics applies the policy, dropping findings mapped to SeverityNone.
func (p Policy) Diagnostics(fs []baseline.Finding) []Diagnostic {
	out := make([]Diagnostic, 0, len(fs))
	for _, f := range fs {
		sev := p.For(f.Status)
		if sev == SeverityNone {
			continue
		}
		out = append(out, Diagnostic{
			Range:    f.Range,
			Severity: sev,
			Status:   f.Status,
			Label:    f.Label,
			Key:      f.Key,
			Message:  Message(f),
		})
	}
	return out
}

// Worst reports the least mature status among diagnostics, or false when
// there are none.
func Worst(ds []Diagnostic) (baseline.Status, bool) {
	var worst baseline.Status
	for _, d := range ds {
		if worst == 0 || d.Status < worst {
			worst = d.Status
		}
	}
	return worst, worst != 0
}
