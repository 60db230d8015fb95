package extractor

import (
	"github.com/asgen-go/asgen/internal/hints"
	"github.com/asgen-go/asgen/internal/model"
)

// ValidationIssue is one structural problem found in a parsed component,
// forwarded to the owning GeneratorResult as an "asv-<tag>" hint (spec
// §4.5). No Go binding for the upstream appstreamcli validator exists
// anywhere in the reference pack, so this package carries a small built-in
// structural check instead; see DESIGN.md for that call.
type ValidationIssue struct {
	Tag      string
	Severity hints.Severity
}

// ValidateMetainfo runs asgen's built-in structural checks against a parsed
// component. Issues that would otherwise be ERROR severity are remapped to
// WARNING by the caller: a single malformed tag in an otherwise-usable
// metainfo file shouldn't drop the whole component outright (that judgment
// is reserved for finalize()'s minimum-validation pass).
func ValidateMetainfo(c *model.Component) []ValidationIssue {
	var issues []ValidationIssue

	if len(c.Name) == 0 {
		issues = append(issues, ValidationIssue{Tag: "component-name-missing", Severity: hints.SeverityError})
	}
	if len(c.Summary) == 0 {
		issues = append(issues, ValidationIssue{Tag: "summary-missing", Severity: hints.SeverityWarning})
	}
	if c.Kind == model.KindUnknown {
		issues = append(issues, ValidationIssue{Tag: "unknown-component-type", Severity: hints.SeverityError})
	}
	if c.Kind.Installable() && len(c.Launchables) == 0 {
		issues = append(issues, ValidationIssue{Tag: "no-launchable", Severity: hints.SeverityInfo})
	}
	for _, icon := range c.Icons {
		if icon.Name == "" {
			issues = append(issues, ValidationIssue{Tag: "icon-missing-name", Severity: hints.SeverityWarning})
		}
	}

	return issues
}
