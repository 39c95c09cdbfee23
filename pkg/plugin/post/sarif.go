// Package post holds the built-in Post handlers (spec section 6),
// registered into pkg/plugin's static registry at init time.
package post

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/obscura-sec/warden/pkg/caze"
	"github.com/obscura-sec/warden/pkg/plugin"
	"github.com/obscura-sec/warden/pkg/types"
)

func init() {
	plugin.Posts.Register(NewSarif())
}

// SARIF 2.1.0 constants, adapted from the teacher's pkg/sarif.
const (
	schemaURI   = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json"
	sarifVersion = "2.1.0"
	toolName    = "warden"
	toolVersion = "0.1.0"
)

type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type sarifResult struct {
	RuleID    string         `json:"ruleId"`
	Level     string         `json:"level"`
	Message   sarifMessage   `json:"message"`
	Locations []sarifLocation `json:"locations"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	ByteOffset int          `json:"byteOffset"`
	Snippet    *sarifSnippet `json:"snippet,omitempty"`
}

type sarifSnippet struct {
	Text string `json:"text"`
}

// Sarif renders the case's line-delimited matches file as a SARIF 2.1.0
// log, adapted from the teacher's pkg/sarif report builder. The byte-range
// match model here has no line/column information (unlike the teacher's
// text-search matches), so each result's region is expressed with
// byteOffset instead of startLine/startColumn.
type Sarif struct{}

// NewSarif returns the sarif post-processing plugin.
func NewSarif() *Sarif { return &Sarif{} }

func (s *Sarif) Name() string          { return "sarif" }
func (s *Sarif) SupportedOS() []string { return nil }

func (s *Sarif) Run(c *caze.Case) error {
	f, err := os.Open(c.MatchesPath)
	if err != nil {
		return fmt.Errorf("opening matches file %s: %w", c.MatchesPath, err)
	}
	defer f.Close()

	report := sarifReport{
		Schema:  schemaURI,
		Version: sarifVersion,
		Runs: []sarifRun{
			{Tool: sarifTool{Driver: sarifDriver{Name: toolName, Version: toolVersion}}},
		},
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record types.MatchRecord
		if err := json.Unmarshal(line, &record); err != nil {
			c.Log.Warnf("sarif: skipping malformed match record: %v", err)
			continue
		}
		report.Runs[0].Results = append(report.Runs[0].Results, toSarifResult(record))
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading matches file %s: %w", c.MatchesPath, err)
	}

	out := sarifPath(c.MatchesPath)
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling sarif report: %w", err)
	}
	if err := os.WriteFile(out, data, 0o600); err != nil {
		return fmt.Errorf("writing sarif report %s: %w", out, err)
	}
	return nil
}

func toSarifResult(record types.MatchRecord) sarifResult {
	region := sarifRegion{}
	var snippet *sarifSnippet
	if len(record.Match.Strings) > 0 {
		region.ByteOffset = int(record.Match.Strings[0].Offset)
		snippet = &sarifSnippet{Text: record.Match.Strings[0].Literal}
	}
	region.Snippet = snippet

	return sarifResult{
		RuleID:  record.Match.Rule,
		Level:   "warning",
		Message: sarifMessage{Text: record.Match.Rule},
		Locations: []sarifLocation{
			{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: formatFileURI(record.Target.Identifier)},
					Region:           region,
				},
			},
		},
	}
}

func formatFileURI(path string) string {
	if filepath.IsAbs(path) {
		path = filepath.ToSlash(path)
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		return "file://" + path
	}
	return filepath.ToSlash(path)
}

func sarifPath(matchesPath string) string {
	ext := filepath.Ext(matchesPath)
	base := strings.TrimSuffix(matchesPath, ext)
	return base + ".sarif.json"
}
