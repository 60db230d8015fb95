package exporter

import (
	"fmt"
	"strings"
	"time"

	"github.com/asgen-go/asgen/internal/appconfig"
	"github.com/asgen-go/asgen/internal/model"
)

// catalogExt returns the file extension the configured metadata type gets
// in the on-disk layout (spec §6: "Components-<arch>.{xml,yml}.{gz,xz}").
func catalogExt(cfg *appconfig.Config) string {
	if cfg.MetadataType == appconfig.MetadataYAML {
		return "yml"
	}
	return "xml"
}

// mediaBaseURLFor rewrites the configured media base URL to point at the
// suite-pinned copy when immutableSuites is enabled for an immutable suite
// (spec §4.6 step 4).
func mediaBaseURLFor(cfg *appconfig.Config, suite model.Suite) string {
	base := cfg.MediaBaseUrl
	if base == "" {
		return ""
	}
	if cfg.Features.ImmutableSuites && suite.Immutable {
		return strings.TrimRight(base, "/") + "/" + suite.Name
	}
	return base
}

// buildCatalog assembles the full catalog document: header, each
// component's already-serialized metadata blob in input order, and (for
// XML) the closing tag (spec §4.6 step 4).
func buildCatalog(cfg *appconfig.Config, suite model.Suite, section string, bodies []string) string {
	origin := fmt.Sprintf("%s-%s-%s", cfg.ProjectName, suite.Name, section)
	mediaBaseURL := mediaBaseURLFor(cfg, suite)

	var ts string
	if cfg.Features.MetadataTimestamps {
		ts = time.Now().UTC().Format(time.RFC3339)
	}

	if cfg.MetadataType == appconfig.MetadataYAML {
		return buildYAMLCatalog(cfg, origin, mediaBaseURL, suite, ts, bodies)
	}
	return buildXMLCatalog(cfg, origin, mediaBaseURL, suite, ts, bodies)
}

func buildXMLCatalog(cfg *appconfig.Config, origin, mediaBaseURL string, suite model.Suite, ts string, bodies []string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	fmt.Fprintf(&b, `<components version=%q origin=%q`, cfg.FormatVersion, origin)
	if suite.DataPriority != 0 {
		fmt.Fprintf(&b, ` priority="%d"`, suite.DataPriority)
	}
	if mediaBaseURL != "" {
		fmt.Fprintf(&b, ` media_baseurl=%q`, mediaBaseURL)
	}
	if ts != "" {
		fmt.Fprintf(&b, ` time=%q`, ts)
	}
	b.WriteString(">\n")
	for _, body := range bodies {
		b.WriteString(body)
		b.WriteString("\n")
	}
	b.WriteString("</components>\n")
	return b.String()
}

func buildYAMLCatalog(cfg *appconfig.Config, origin, mediaBaseURL string, suite model.Suite, ts string, bodies []string) string {
	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString("File: DEP-11\n")
	fmt.Fprintf(&b, "Version: '%s'\n", cfg.FormatVersion)
	fmt.Fprintf(&b, "Origin: %s\n", origin)
	if mediaBaseURL != "" {
		fmt.Fprintf(&b, "MediaBaseUrl: %s\n", mediaBaseURL)
	}
	if suite.DataPriority != 0 {
		fmt.Fprintf(&b, "Priority: %d\n", suite.DataPriority)
	}
	if ts != "" {
		fmt.Fprintf(&b, "Time: %s\n", ts)
	}
	for _, body := range bodies {
		b.WriteString(body)
	}
	return b.String()
}
