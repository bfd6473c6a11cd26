package portal

import (
	"context"
	"net/url"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/sabis-tools/sabis/internal/errors"
	"github.com/sabis-tools/sabis/internal/extract"
)

// announcementPaths are tried, relative to the home page, when neither the
// home page nor the announcement component listed any assignment.
var announcementPaths = []string{
	"Duyuru",
	"Duyuru/",
	"Duyurular",
	"Duyurular/",
	"Duyuru/Index",
	"Duyuru/Announcements",
	"Home/Duyuru",
	"Home/Duyurular",
	"Home/Announcements",
	"Announcement",
	"Announcements",
}

// FetchAnnouncements collects assignments from the portal. Sources are tried
// in order until one yields at least one assignment: the home page, the
// announcement component, the first announcement link on the home page, and
// the well-known announcement routes. When all are empty the last parsed
// payload is returned.
func (c *Client) FetchAnnouncements(ctx context.Context) (*extract.AssignmentPayload, error) {
	home, err := c.fetchPage(ctx, "home", c.opts.HomeURL)
	if err != nil {
		return nil, err
	}
	payload, err := c.parseAssignments(home)
	if err != nil || len(payload.Assignments) > 0 {
		return payload, err
	}

	if token := ExtractToken(home.Body); token != "" {
		endpoint := resolveURL("/Component/GenelDuyuru", home.URL)
		page, err := c.PostForm(ctx, "announcement_component", endpoint, url.Values{"__RequestVerificationToken": {token}}, false)
		if err != nil {
			return nil, err
		}
		if IsLoggedOut(page.URL, page.Body) {
			return nil, errors.NewSessionExpired(page.URL)
		}
		if payload, err = c.parseAssignments(page); err != nil || len(payload.Assignments) > 0 {
			return payload, err
		}
	}

	tried := map[string]bool{home.URL: true}
	if link := findAnnouncementURL(home.Body, home.URL); link != "" && !tried[link] {
		page, err := c.fetchPage(ctx, "announcement_link", link)
		if err != nil {
			return nil, err
		}
		tried[page.URL] = true
		if payload, err = c.parseAssignments(page); err != nil || len(payload.Assignments) > 0 {
			return payload, err
		}
	}

	for _, path := range announcementPaths {
		candidate := resolveURL(path, c.opts.HomeURL)
		if candidate == "" || tried[candidate] {
			continue
		}
		page, err := c.fetchPage(ctx, "announcement_path", candidate)
		if err != nil {
			if errors.Is(err, errors.ErrSessionExpired) {
				return nil, err
			}
			logger.Debug.Printf("announcement route %s failed: %v", candidate, err)
			continue
		}
		tried[page.URL] = true
		if payload, err = c.parseAssignments(page); err != nil || len(payload.Assignments) > 0 {
			return payload, err
		}
	}

	logger.Info.Printf("no assignments found on %s or its announcement routes", c.opts.HomeURL)
	return payload, nil
}

// FetchExams collects exam rows from the online exam page.
func (c *Client) FetchExams(ctx context.Context) (*extract.ExamPayload, error) {
	page, err := c.fetchPage(ctx, "exams", c.opts.ExamURL)
	if err != nil {
		return nil, err
	}
	return extract.ParseExams(c.opts.Parser, page.Body, page.URL, c.opts.Extract)
}

// fetchPage GETs target and rejects the portal's sign-in page.
func (c *Client) fetchPage(ctx context.Context, endpoint, target string) (*Page, error) {
	page, err := c.Get(ctx, endpoint, target)
	if err != nil {
		return nil, err
	}
	if IsLoggedOut(page.URL, page.Body) {
		return nil, errors.NewSessionExpired(page.URL)
	}
	return page, nil
}

func (c *Client) parseAssignments(page *Page) (*extract.AssignmentPayload, error) {
	return extract.ParseAssignments(c.opts.Parser, page.Body, page.URL, c.opts.Extract)
}
