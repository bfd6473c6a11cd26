package ops

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sabis-tools/sabis/internal/config"
	"github.com/sabis-tools/sabis/internal/errors"
	"github.com/sabis-tools/sabis/internal/extract"
)

// Limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100

	// MaxHTMLBytes caps pasted or file HTML input.
	MaxHTMLBytes = 5 << 20
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Fetcher is the portal surface the collect operations need.
type Fetcher interface {
	FetchAnnouncements(ctx context.Context) (*extract.AssignmentPayload, error)
	FetchExams(ctx context.Context) (*extract.ExamPayload, error)
}

// ExtractOptions builds the extractor options for cfg. A configured rules
// file replaces the built-in heuristics.
func ExtractOptions(cfg *config.Config) (extract.Options, error) {
	opts := extract.Options{Location: cfg.Location()}
	if cfg.RulesPath != "" {
		rules, err := extract.LoadRules(cfg.RulesPath)
		if err != nil {
			return extract.Options{}, errors.NewInvalidRequest(fmt.Sprintf("rules file %s: %v", cfg.RulesPath, err))
		}
		opts.Rules = rules
	}
	return opts, nil
}

// ReadHTMLFile reads an HTML document from disk, refusing symlinks and
// anything larger than MaxHTMLBytes.
func ReadHTMLFile(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.NewInvalidRequest("path is required")
	}

	f, err := openFileNoFollowRead(path)
	if err != nil {
		if _, ok := err.(*errors.SabisError); ok {
			return "", err
		}
		return "", errors.NewInternal(fmt.Errorf("failed to open %s: %w", path, err))
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil && info.Size() > MaxHTMLBytes {
		return "", errors.NewFileTooLarge(MaxHTMLBytes, info.Size())
	}

	data, err := io.ReadAll(io.LimitReader(f, MaxHTMLBytes+1))
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to read %s: %w", path, err))
	}
	if len(data) > MaxHTMLBytes {
		return "", errors.NewFileTooLarge(MaxHTMLBytes, int64(len(data)))
	}
	return string(data), nil
}

// htmlInput resolves the HTML of an input that names either inline HTML or a file.
func htmlInput(html, path string) (string, error) {
	html = strings.TrimSpace(html)
	path = strings.TrimSpace(path)
	switch {
	case html != "" && path != "":
		return "", errors.NewInvalidRequest("specify either html or path, not both")
	case html != "":
		if len(html) > MaxHTMLBytes {
			return "", errors.NewFileTooLarge(MaxHTMLBytes, int64(len(html)))
		}
		return html, nil
	case path != "":
		return ReadHTMLFile(path)
	}
	return "", errors.NewInvalidRequest("html or path is required")
}
