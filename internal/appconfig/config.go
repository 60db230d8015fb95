// Package appconfig loads and validates asgen's workspace configuration,
// grounded on the teacher's internal/config package: JSON-primary with an
// optional YAML override, environment-variable overrides at the highest
// precedence, and an explicit Validate step before the config is handed to
// the engine.
package appconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// MetadataType selects the serialization format written to export/data.
type MetadataType string

const (
	MetadataXML  MetadataType = "xml"
	MetadataYAML MetadataType = "yaml"
)

// IconSizeRule controls whether a requested icon size is cached locally,
// left as a remote reference, or both (spec §6's Icons map).
type IconSizeRule struct {
	Cached bool `json:"cached" yaml:"cached"`
	Remote bool `json:"remote" yaml:"remote"`
}

// Features toggles optional processing steps, matching the boolean map in
// spec §6 exactly (one field per feature, so unknown-key typos fail to
// compile rather than silently no-op).
type Features struct {
	ValidateMetainfo            bool `json:"validateMetainfo" yaml:"validateMetainfo"`
	ProcessDesktop               bool `json:"processDesktop" yaml:"processDesktop"`
	NoDownloads                  bool `json:"noDownloads" yaml:"noDownloads"`
	CreateScreenshotsStore       bool `json:"createScreenshotsStore" yaml:"createScreenshotsStore"`
	OptimizePNGSize              bool `json:"optimizePNGSize" yaml:"optimizePNGSize"`
	MetadataTimestamps           bool `json:"metadataTimestamps" yaml:"metadataTimestamps"`
	ImmutableSuites              bool `json:"immutableSuites" yaml:"immutableSuites"`
	ProcessFonts                 bool `json:"processFonts" yaml:"processFonts"`
	AllowIconUpscaling           bool `json:"allowIconUpscaling" yaml:"allowIconUpscaling"`
	ProcessGStreamer             bool `json:"processGStreamer" yaml:"processGStreamer"`
	ProcessLocale                bool `json:"processLocale" yaml:"processLocale"`
	ScreenshotVideos             bool `json:"screenshotVideos" yaml:"screenshotVideos"`
	PropagateMetaInfoArtifacts   bool `json:"propagateMetaInfoArtifacts" yaml:"propagateMetaInfoArtifacts"`
	WarnNoMetaInfo               bool `json:"warnNoMetaInfo" yaml:"warnNoMetaInfo"`
}

// SuiteDef is one entry of the Suites configuration object.
type SuiteDef struct {
	Sections         []string `json:"sections" yaml:"sections"`
	Architectures    []string `json:"architectures" yaml:"architectures"`
	BaseSuite        string   `json:"baseSuite,omitempty" yaml:"baseSuite,omitempty"`
	IconTheme        string   `json:"iconTheme,omitempty" yaml:"iconTheme,omitempty"`
	DataPriority     int      `json:"dataPriority,omitempty" yaml:"dataPriority,omitempty"`
	Immutable        bool     `json:"immutable,omitempty" yaml:"immutable,omitempty"`
	ExtraMetainfoDir string   `json:"extraMetainfoDir,omitempty" yaml:"extraMetainfoDir,omitempty"`
}

// ExportDirs overrides the default export/{media,data,hints,html} paths.
type ExportDirs struct {
	Media string `json:"media,omitempty" yaml:"media,omitempty"`
	Data  string `json:"data,omitempty" yaml:"data,omitempty"`
	Hints string `json:"hints,omitempty" yaml:"hints,omitempty"`
	HTML  string `json:"html,omitempty" yaml:"html,omitempty"`
}

// Config is asgen's workspace configuration, matching the key table in
// spec §6. JSON is the primary format (per spec); a workspace may also
// carry an asgen.yaml override, mirroring the teacher's project-file
// precedence layer.
type Config struct {
	WorkspaceDir      string                  `json:"WorkspaceDir" yaml:"workspaceDir"`
	ProjectName       string                  `json:"ProjectName" yaml:"projectName"`
	ArchiveRoot       string                  `json:"ArchiveRoot" yaml:"archiveRoot"`
	MediaBaseUrl      string                  `json:"MediaBaseUrl" yaml:"mediaBaseUrl"`
	HtmlBaseUrl       string                  `json:"HtmlBaseUrl" yaml:"htmlBaseUrl"`
	MetadataType      MetadataType            `json:"MetadataType" yaml:"metadataType"`
	FormatVersion     string                  `json:"FormatVersion" yaml:"formatVersion"`
	Backend           string                  `json:"Backend" yaml:"backend"`
	Suites            map[string]SuiteDef     `json:"Suites" yaml:"suites"`
	Oldsuites         []string                `json:"Oldsuites,omitempty" yaml:"oldsuites,omitempty"`
	ExtraMetainfoDir  string                  `json:"ExtraMetainfoDir,omitempty" yaml:"extraMetainfoDir,omitempty"`
	ExportDirs        ExportDirs              `json:"ExportDirs,omitempty" yaml:"exportDirs,omitempty"`
	Icons             map[string]IconSizeRule `json:"Icons" yaml:"icons"`
	MaxVideoFileSize  int                     `json:"MaxVideoFileSize" yaml:"maxVideoFileSize"`
	AllowedCustomKeys []string                `json:"AllowedCustomKeys,omitempty" yaml:"allowedCustomKeys,omitempty"`
	CAInfo            string                  `json:"CAInfo,omitempty" yaml:"caInfo,omitempty"`
	Features          Features                `json:"Features" yaml:"features"`

	// LogLevel is an ambient (non-spec) addition mirroring the teacher's
	// ServerConfig.LogLevel, overridable via ASGEN_LOG_LEVEL.
	LogLevel string `json:"LogLevel,omitempty" yaml:"logLevel,omitempty"`
}

// NewConfig returns a Config with the defaults spec §6 documents: XML
// metadata, Debian backend, and a standard icon size set.
func NewConfig() *Config {
	return &Config{
		MetadataType:     MetadataXML,
		FormatVersion:    "0.14",
		Backend:          "debian",
		Suites:           map[string]SuiteDef{},
		Icons: map[string]IconSizeRule{
			"48x48":      {Cached: true},
			"64x64":      {Cached: true},
			"64x64@2":    {Cached: true},
			"128x128":    {Cached: true},
			"128x128@2":  {Cached: true},
		},
		MaxVideoFileSize: 64,
		Features: Features{
			ValidateMetainfo:           true,
			ProcessDesktop:             true,
			CreateScreenshotsStore:     true,
			OptimizePNGSize:            true,
			ProcessFonts:               true,
			ProcessGStreamer:           true,
			ProcessLocale:              true,
			ScreenshotVideos:           false,
			PropagateMetaInfoArtifacts: true,
			WarnNoMetaInfo:             false,
		},
		LogLevel: "info",
	}
}

// Load reads the workspace's asgen-config.json (required, per spec §6),
// merges an optional asgen.yaml override in the same directory, applies
// ASGEN_* environment overrides, and validates the result.
func Load(workspaceDir string) (*Config, error) {
	cfg := NewConfig()
	cfg.WorkspaceDir = workspaceDir

	jsonPath := filepath.Join(workspaceDir, "asgen-config.json")
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", jsonPath, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", jsonPath, err)
	}

	yamlPath := filepath.Join(workspaceDir, "asgen.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		if err := cfg.mergeYAML(yamlPath); err != nil {
			return nil, fmt.Errorf("merge override %s: %w", yamlPath, err)
		}
	}

	// WorkspaceDir is always the directory Load was pointed at, not
	// whatever the config file happens to say.
	cfg.WorkspaceDir = workspaceDir

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// mergeYAML merges a YAML override on top of an already JSON-populated cfg.
// Only non-zero fields in the override take effect, matching the teacher's
// mergeWith semantics.
func (c *Config) mergeYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var override Config
	if err := yaml.Unmarshal(data, &override); err != nil {
		return err
	}

	if override.ProjectName != "" {
		c.ProjectName = override.ProjectName
	}
	if override.ArchiveRoot != "" {
		c.ArchiveRoot = override.ArchiveRoot
	}
	if override.MediaBaseUrl != "" {
		c.MediaBaseUrl = override.MediaBaseUrl
	}
	if override.HtmlBaseUrl != "" {
		c.HtmlBaseUrl = override.HtmlBaseUrl
	}
	if override.MetadataType != "" {
		c.MetadataType = override.MetadataType
	}
	if override.FormatVersion != "" {
		c.FormatVersion = override.FormatVersion
	}
	if override.Backend != "" {
		c.Backend = override.Backend
	}
	for name, def := range override.Suites {
		c.Suites[name] = def
	}
	if len(override.Oldsuites) > 0 {
		c.Oldsuites = override.Oldsuites
	}
	for size, rule := range override.Icons {
		c.Icons[size] = rule
	}
	if override.MaxVideoFileSize != 0 {
		c.MaxVideoFileSize = override.MaxVideoFileSize
	}
	if override.LogLevel != "" {
		c.LogLevel = override.LogLevel
	}
	return nil
}

// applyEnvOverrides applies ASGEN_* environment variable overrides, the
// highest-precedence layer per the teacher's config-loading order.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ASGEN_WORKSPACE_DIR"); v != "" {
		c.WorkspaceDir = v
	}
	if v := os.Getenv("ASGEN_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("ASGEN_METADATA_TYPE"); v != "" {
		c.MetadataType = MetadataType(v)
	}
	if v := os.Getenv("ASGEN_MAX_VIDEO_FILE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxVideoFileSize = n
		}
	}
}

// Validate checks the loaded configuration for the invariants spec §6/§9
// depend on: a workspace directory, an archive root, at least one suite,
// and a recognized metadata type.
func (c *Config) Validate() error {
	if c.WorkspaceDir == "" {
		return fmt.Errorf("WorkspaceDir is required")
	}
	if c.ArchiveRoot == "" {
		return fmt.Errorf("ArchiveRoot is required")
	}
	if len(c.Suites) == 0 {
		return fmt.Errorf("at least one entry in Suites is required")
	}
	switch c.MetadataType {
	case MetadataXML, MetadataYAML:
	default:
		return fmt.Errorf("MetadataType must be \"xml\" or \"yaml\", got %q", c.MetadataType)
	}
	for name, def := range c.Suites {
		if len(def.Sections) == 0 {
			return fmt.Errorf("suite %q: at least one section is required", name)
		}
		if len(def.Architectures) == 0 {
			return fmt.Errorf("suite %q: at least one architecture is required", name)
		}
	}
	return nil
}

// DBDir returns the datastore directory under the workspace.
func (c *Config) DBDir() string { return filepath.Join(c.WorkspaceDir, "db", "main") }

// CacheDir returns the contents-store cache directory under the workspace.
func (c *Config) CacheDir() string { return filepath.Join(c.WorkspaceDir, "cache") }

// TmpDir returns the per-run scratch root under the workspace.
func (c *Config) TmpDir() string { return filepath.Join(c.CacheDir(), "tmp") }

// ExportDataDir returns export/data, honoring an ExportDirs.Data override.
func (c *Config) ExportDataDir() string {
	if c.ExportDirs.Data != "" {
		return c.ExportDirs.Data
	}
	return filepath.Join(c.WorkspaceDir, "export", "data")
}

// ExportHintsDir returns export/hints, honoring an ExportDirs.Hints override.
func (c *Config) ExportHintsDir() string {
	if c.ExportDirs.Hints != "" {
		return c.ExportDirs.Hints
	}
	return filepath.Join(c.WorkspaceDir, "export", "hints")
}

// ExportMediaDir returns export/media, honoring an ExportDirs.Media override.
func (c *Config) ExportMediaDir() string {
	if c.ExportDirs.Media != "" {
		return c.ExportDirs.Media
	}
	return filepath.Join(c.WorkspaceDir, "export", "media")
}

// ExportHTMLDir returns export/html, honoring an ExportDirs.HTML override.
func (c *Config) ExportHTMLDir() string {
	if c.ExportDirs.HTML != "" {
		return c.ExportDirs.HTML
	}
	return filepath.Join(c.WorkspaceDir, "export", "html")
}

// LockPath returns the workspace-wide advisory lock file path used to
// prevent concurrent asgen runs (spec §5).
func (c *Config) LockPath() string {
	return filepath.Join(c.WorkspaceDir, ".asgen.lock")
}

// IsCustomKeyAllowed reports whether key is permitted in a component's
// <custom/> block, per spec §6's AllowedCustomKeys allow-set. An empty
// allow-set permits nothing, matching the spec's "allow-set" framing.
func (c *Config) IsCustomKeyAllowed(key string) bool {
	for _, k := range c.AllowedCustomKeys {
		if k == key {
			return true
		}
	}
	return false
}

// FindWorkspaceRoot walks up from startDir looking for asgen-config.json,
// mirroring the teacher's FindProjectRoot walk-up-to-marker-file pattern.
func FindWorkspaceRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolve start dir: %w", err)
	}

	dir := absDir
	for {
		if fileExists(filepath.Join(dir, "asgen-config.json")) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no asgen-config.json found above %s", startDir)
		}
		dir = parent
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// SplitIconSize parses a "WxH" or "WxH@S" icon size key into its width,
// height, and scale components. Scale defaults to 1 when absent.
func SplitIconSize(key string) (width, height, scale int, err error) {
	scale = 1
	rest := key
	if idx := strings.IndexByte(key, '@'); idx >= 0 {
		rest = key[:idx]
		scale, err = strconv.Atoi(key[idx+1:])
		if err != nil {
			return 0, 0, 0, fmt.Errorf("bad icon scale in %q: %w", key, err)
		}
	}
	parts := strings.SplitN(rest, "x", 2)
	if len(parts) != 2 {
		return 0, 0, 0, fmt.Errorf("bad icon size %q: expected WxH[@S]", key)
	}
	width, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("bad icon width in %q: %w", key, err)
	}
	height, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("bad icon height in %q: %w", key, err)
	}
	return width, height, scale, nil
}
