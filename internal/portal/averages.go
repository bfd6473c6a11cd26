package portal

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/sabis-tools/sabis/internal/errors"
	"github.com/sabis-tools/sabis/internal/grade"
)

// Sources of a class average.
const (
	SourceSummary = "notlar"
	SourceClass   = "sinif_ortalama"
	SourceRows    = "row_mean"
)

// ClassAverage is what the portal publishes about one course group.
type ClassAverage struct {
	GroupID   string             `json:"group_id"`
	Average   *float64           `json:"average"`
	Source    string             `json:"source,omitempty"`
	Rows      map[string]float64 `json:"rows,omitempty"`
	FetchedAt time.Time          `json:"fetched_at"`
}

// FetchClassAverage returns the class average of a course group. The grade
// summary fragment is asked first; the class average fragment supplies
// both the fallback value and the per-work-type averages. Results are
// cached per group id.
func (c *Client) FetchClassAverage(ctx context.Context, groupID, token string) (*ClassAverage, error) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return nil, errors.NewInvalidRequest("course group id is required")
	}

	if cached, ok := c.opts.Averages.Get(ctx, groupID); ok {
		return cached, nil
	}

	form := url.Values{"dersGrupId": {groupID}}
	if token != "" {
		form.Set("__RequestVerificationToken", token)
	}

	result := &ClassAverage{GroupID: groupID, FetchedAt: time.Now().UTC()}

	summary, err := c.PostForm(ctx, "grade_summary", resolveURL("/Grup/Notlar", c.opts.HomeURL), form, true)
	switch {
	case err != nil:
		logger.Debug.Printf("grade summary for group %s failed: %v", groupID, err)
	case strings.Contains(summary.Body, "Login") || strings.Contains(summary.Body, "Giriş Yap"):
		logger.Debug.Printf("grade summary for group %s answered with a login form", groupID)
	default:
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(summary.Body)); err == nil {
			if v := grade.ParseSummaryAverage(doc); v != nil {
				result.Average, result.Source = v, SourceSummary
			}
		}
	}

	page, err := c.PostForm(ctx, "class_average", resolveURL("/Grup/SinifOrtalama", c.opts.HomeURL), form, true)
	if err != nil {
		if result.Average == nil {
			return nil, err
		}
		logger.Debug.Printf("class average for group %s failed: %v", groupID, err)
	} else {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.Body))
		if err != nil {
			return nil, errors.NewParseFailed("class average", err)
		}
		result.Rows = grade.ParseRowAverages(doc)
		if result.Average == nil {
			if v := grade.ParseClassAverage(doc); v != nil {
				result.Average, result.Source = v, SourceClass
			} else if v := grade.MeanAverage(result.Rows); v != nil {
				result.Average, result.Source = v, SourceRows
			}
		}
	}

	if err := c.opts.Averages.Set(ctx, result); err != nil {
		logger.Error.Printf("failed to cache class average for group %s: %v", groupID, err)
	}
	return result, nil
}
