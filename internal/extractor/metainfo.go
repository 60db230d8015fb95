package extractor

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/asgen-go/asgen/internal/model"
)

// rawComponent mirrors the subset of the AppStream metainfo XML schema
// asgen reads: identifier, translated name/summary/description, categories,
// launchables, icons, and provided ids.
type rawComponent struct {
	XMLName      xml.Name        `xml:"component"`
	Type         string          `xml:"type,attr"`
	ID           string          `xml:"id"`
	Names        []rawTranslated `xml:"name"`
	Summaries    []rawTranslated `xml:"summary"`
	Descriptions []rawTranslated `xml:"description"`
	Categories   []string        `xml:"categories>category"`
	Launchables  []rawLaunchable `xml:"launchable"`
	Icons        []rawIcon       `xml:"icon"`
	Provides     []string        `xml:"provides>id"`
}

type rawTranslated struct {
	Lang  string `xml:"lang,attr"`
	Value string `xml:",chardata"`
}

type rawLaunchable struct {
	Kind  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type rawIcon struct {
	Kind   string `xml:"type,attr"`
	Value  string `xml:",chardata"`
	Width  int    `xml:"width,attr"`
	Height int    `xml:"height,attr"`
}

// ParseMetainfo parses one metainfo XML document into a Component. The raw
// bytes are mixed into the component's GCID seed as the first ingredient
// (spec §3: "the checksum aggregates the component's serialized metainfo
// bytes and associated files").
func ParseMetainfo(data []byte) (*model.Component, error) {
	var raw rawComponent
	if err := xml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse metainfo: %w", err)
	}
	if strings.TrimSpace(raw.ID) == "" {
		return nil, fmt.Errorf("metainfo has an empty or missing <id>")
	}

	c := &model.Component{
		ID:          strings.TrimSpace(raw.ID),
		Kind:        model.Kind(raw.Type),
		Name:        translatedMap(raw.Names),
		Summary:     translatedMap(raw.Summaries),
		Description: translatedMap(raw.Descriptions),
		Categories:  raw.Categories,
		ProvidesIDs: raw.Provides,
	}

	for _, l := range raw.Launchables {
		c.Launchables = append(c.Launchables, model.Launchable{Kind: l.Kind, Value: strings.TrimSpace(l.Value)})
	}
	for _, icon := range raw.Icons {
		kind := model.IconKind(icon.Kind)
		switch kind {
		case model.IconKindCached, model.IconKindRemote, model.IconKindStock:
		default:
			kind = model.IconKindStock
		}
		c.Icons = append(c.Icons, model.Icon{
			Kind:   kind,
			Name:   strings.TrimSpace(icon.Value),
			Width:  icon.Width,
			Height: icon.Height,
		})
	}

	c.MixSeed(data)
	return c, nil
}

func translatedMap(entries []rawTranslated) map[string]string {
	if len(entries) == 0 {
		return nil
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		lang := e.Lang
		if lang == "" {
			lang = "C"
		}
		out[lang] = strings.TrimSpace(e.Value)
	}
	return out
}
