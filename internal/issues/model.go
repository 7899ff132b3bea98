package issues

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/skippr/skippr-mcp/internal/protocol"
)

// Severity ranks how urgent an issue is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return true
	}
	return false
}

// AgentType names the reviewer persona that raised an issue.
type AgentType string

const (
	AgentUX      AgentType = "ux"
	AgentA11y    AgentType = "a11y"
	AgentPM      AgentType = "pm"
	AgentPMM     AgentType = "pmm"
	AgentLegal   AgentType = "legal"
	AgentContent AgentType = "content"
	AgentUsers   AgentType = "users"
)

// Valid reports whether a is a known agent type.
func (a AgentType) Valid() bool {
	switch a {
	case AgentUX, AgentA11y, AgentPM, AgentPMM, AgentLegal, AgentContent, AgentUsers:
		return true
	}
	return false
}

// Frontmatter is the YAML header of an issue file.
type Frontmatter struct {
	ID              string                    `yaml:"id" json:"id"`
	ReviewID        string                    `yaml:"reviewId" json:"reviewId"`
	Title           string                    `yaml:"title" json:"title"`
	Severity        Severity                  `yaml:"severity" json:"severity"`
	Resolved        bool                      `yaml:"resolved" json:"resolved"`
	AgentTypes      []AgentType               `yaml:"agentTypes" json:"agentTypes"`
	ElementMetadata *protocol.ElementMetadata `yaml:"elementMetadata,omitempty" json:"elementMetadata,omitempty"`
	CreatedAt       string                    `yaml:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt       string                    `yaml:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// Issue is a parsed issue file. Markdown is the body after the frontmatter.
type Issue struct {
	ProjectID string `json:"projectId"`
	Frontmatter
	Markdown string `json:"markdown"`
}

// Summary is the lightweight listing form of an issue.
type Summary struct {
	ProjectID  string      `json:"projectId"`
	ID         string      `json:"id"`
	ReviewID   string      `json:"reviewId"`
	Title      string      `json:"title"`
	Severity   Severity    `json:"severity"`
	Resolved   bool        `json:"resolved"`
	AgentTypes []AgentType `json:"agentTypes"`
}

// ListFilter narrows List results. Empty fields match everything.
type ListFilter struct {
	ProjectID string
	ReviewID  string
	Severity  Severity
	AgentType AgentType
	Resolved  *bool
}

// ProjectSummary counts the stored artifacts of one project.
type ProjectSummary struct {
	ProjectID   string `json:"projectId"`
	ReviewCount int    `json:"reviewCount"`
	IssueCount  int    `json:"issueCount"`
}

func (f *Frontmatter) summary(projectID string) Summary {
	return Summary{
		ProjectID:  projectID,
		ID:         f.ID,
		ReviewID:   f.ReviewID,
		Title:      f.Title,
		Severity:   f.Severity,
		Resolved:   f.Resolved,
		AgentTypes: f.AgentTypes,
	}
}

func (f *Frontmatter) validate() error {
	if err := validateUUID("id", f.ID); err != nil {
		return err
	}
	if err := validateUUID("reviewId", f.ReviewID); err != nil {
		return err
	}
	if !f.Severity.Valid() {
		return fmt.Errorf("%w: unknown severity %q", ErrInvalidIssue, f.Severity)
	}
	for _, a := range f.AgentTypes {
		if !a.Valid() {
			return fmt.Errorf("%w: unknown agent type %q", ErrInvalidIssue, a)
		}
	}
	if m := f.ElementMetadata; m != nil && len(m.BoundingBox) != 0 && len(m.BoundingBox) != 4 {
		return fmt.Errorf("%w: bounding_box needs 4 values, got %d", ErrInvalidIssue, len(m.BoundingBox))
	}
	return nil
}

func (f ListFilter) validate() error {
	if f.ProjectID != "" {
		if err := validateProjectID(f.ProjectID); err != nil {
			return err
		}
	}
	if f.ReviewID != "" {
		if err := validateUUID("reviewId", f.ReviewID); err != nil {
			return err
		}
	}
	if f.Severity != "" && !f.Severity.Valid() {
		return fmt.Errorf("%w: unknown severity %q", ErrInvalidIssue, f.Severity)
	}
	if f.AgentType != "" && !f.AgentType.Valid() {
		return fmt.Errorf("%w: unknown agent type %q", ErrInvalidIssue, f.AgentType)
	}
	return nil
}

func (f ListFilter) matches(fm *Frontmatter) bool {
	if f.ReviewID != "" && fm.ReviewID != f.ReviewID {
		return false
	}
	if f.Severity != "" && fm.Severity != f.Severity {
		return false
	}
	if f.AgentType != "" && !containsAgent(fm.AgentTypes, f.AgentType) {
		return false
	}
	if f.Resolved != nil && fm.Resolved != *f.Resolved {
		return false
	}
	return true
}

func containsAgent(list []AgentType, a AgentType) bool {
	for _, v := range list {
		if v == a {
			return true
		}
	}
	return false
}

func validateUUID(field, value string) error {
	if _, err := uuid.Parse(value); err != nil {
		return fmt.Errorf("%w: %s must be a UUID, got %q", ErrInvalidIssue, field, value)
	}
	return nil
}

// validateProjectID keeps project ids usable as a single path segment.
func validateProjectID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: projectId is required", ErrInvalidIssue)
	}
	if id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, 0) {
		return fmt.Errorf("%w: projectId %q is not a valid path segment", ErrInvalidIssue, id)
	}
	return nil
}
