package issues

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/skippr/skippr-mcp/internal/protocol"
)

const issueExt = ".md"

// Store keeps issues as markdown files under
// <root>/.skippr/projects/<projectId>/reviews/<reviewId>/issues/<issueId>.md.
type Store struct {
	root   string
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates a store rooted at root.
func NewStore(root string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{root: root, logger: logger.With("component", "issues"), now: time.Now}
}

// Root returns the directory that holds the .skippr tree.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) projectsDir() string {
	return filepath.Join(s.root, ".skippr", "projects")
}

func (s *Store) issuePath(projectID, reviewID, issueID string) string {
	return filepath.Join(s.projectsDir(), projectID, "reviews", reviewID, "issues", issueID+issueExt)
}

// WriteIssue validates msg and writes it, replacing any previous version.
func (s *Store) WriteIssue(ctx context.Context, msg *protocol.WriteIssue) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg == nil {
		return fmt.Errorf("%w: nil issue", ErrInvalidIssue)
	}
	if err := validateProjectID(msg.ProjectID); err != nil {
		return err
	}

	resolved := false
	if msg.Resolved != nil {
		resolved = *msg.Resolved
	}
	agents := make([]AgentType, 0, len(msg.AgentTypes))
	for _, a := range msg.AgentTypes {
		agents = append(agents, AgentType(a))
	}
	fm := &Frontmatter{
		ID:              msg.IssueID,
		ReviewID:        msg.ReviewID,
		Title:           msg.Title,
		Severity:        Severity(msg.Severity),
		Resolved:        resolved,
		AgentTypes:      agents,
		ElementMetadata: msg.ElementMetadata,
	}
	if err := fm.validate(); err != nil {
		return err
	}

	path := s.issuePath(msg.ProjectID, msg.ReviewID, msg.IssueID)
	now := s.now().UTC().Format(time.RFC3339)
	fm.CreatedAt, fm.UpdatedAt = now, now
	if prev, err := s.readFile(path); err == nil && prev.CreatedAt != "" {
		fm.CreatedAt = prev.CreatedAt
	}

	content, err := render(fm, body(msg.Details, msg.AgentPrompt, msg.Ticket))
	if err != nil {
		return err
	}
	if err := writeFileAtomic(path, content); err != nil {
		return fmt.Errorf("write issue %s: %w", msg.IssueID, err)
	}
	s.logger.Info("issue saved", "project_id", msg.ProjectID, "review_id", msg.ReviewID, "issue_id", msg.IssueID)
	return nil
}

// DeleteIssue removes one issue file. Empty review directories are left in place.
func (s *Store) DeleteIssue(ctx context.Context, projectID, reviewID, issueID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateLookup(projectID, reviewID, issueID); err != nil {
		return err
	}
	if err := os.Remove(s.issuePath(projectID, reviewID, issueID)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrIssueNotFound, issueID)
		}
		return fmt.Errorf("delete issue %s: %w", issueID, err)
	}
	s.logger.Info("issue deleted", "project_id", projectID, "review_id", reviewID, "issue_id", issueID)
	return nil
}

// Read loads one issue with its raw markdown body.
func (s *Store) Read(ctx context.Context, projectID, reviewID, issueID string) (*Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateLookup(projectID, reviewID, issueID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.issuePath(projectID, reviewID, issueID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrIssueNotFound, issueID)
		}
		return nil, fmt.Errorf("read issue %s: %w", issueID, err)
	}
	fm, markdown, err := parse(data)
	if err != nil {
		return nil, err
	}
	return &Issue{ProjectID: projectID, Frontmatter: *fm, Markdown: markdown}, nil
}

// List returns summaries of every issue matching filter. Files that cannot be
// parsed are skipped and logged.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]Summary, error) {
	if err := filter.validate(); err != nil {
		return nil, err
	}

	projects := []string{filter.ProjectID}
	if filter.ProjectID == "" {
		var err error
		if projects, err = subdirs(s.projectsDir()); err != nil {
			return nil, err
		}
	}

	out := []Summary{}
	for _, projectID := range projects {
		reviewsDir := filepath.Join(s.projectsDir(), projectID, "reviews")
		reviews := []string{filter.ReviewID}
		if filter.ReviewID == "" {
			var err error
			if reviews, err = subdirs(reviewsDir); err != nil {
				return nil, err
			}
		}
		for _, reviewID := range reviews {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			paths, err := issueFiles(filepath.Join(reviewsDir, reviewID, "issues"))
			if err != nil {
				return nil, err
			}
			for _, path := range paths {
				fm, err := s.readFile(path)
				if err != nil {
					s.logger.Warn("skipping unreadable issue file", "path", path, "error", err)
					continue
				}
				if filter.matches(fm) {
					out = append(out, fm.summary(projectID))
				}
			}
		}
	}
	return out, nil
}

// ListProjects returns every project directory with its review and issue counts.
func (s *Store) ListProjects(ctx context.Context) ([]ProjectSummary, error) {
	projects, err := subdirs(s.projectsDir())
	if err != nil {
		return nil, err
	}
	out := make([]ProjectSummary, 0, len(projects))
	for _, projectID := range projects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		reviewsDir := filepath.Join(s.projectsDir(), projectID, "reviews")
		reviews, err := subdirs(reviewsDir)
		if err != nil {
			return nil, err
		}
		summary := ProjectSummary{ProjectID: projectID, ReviewCount: len(reviews)}
		for _, reviewID := range reviews {
			paths, err := issueFiles(filepath.Join(reviewsDir, reviewID, "issues"))
			if err != nil {
				return nil, err
			}
			summary.IssueCount += len(paths)
		}
		out = append(out, summary)
	}
	return out, nil
}

func (s *Store) readFile(path string) (*Frontmatter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fm, _, err := parse(data)
	return fm, err
}

func validateLookup(projectID, reviewID, issueID string) error {
	if err := validateProjectID(projectID); err != nil {
		return err
	}
	if err := validateUUID("reviewId", reviewID); err != nil {
		return err
	}
	return validateUUID("issueId", issueID)
}

// subdirs lists directory names under dir, sorted. A missing dir is empty.
func subdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func issueFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), issueExt) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".issue-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
