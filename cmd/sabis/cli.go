package main

import (
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"
	"github.com/urfave/cli/v2"

	"github.com/sabis-tools/sabis/internal/config"
	"github.com/sabis-tools/sabis/internal/errors"
	"github.com/sabis-tools/sabis/internal/mcp"
	"github.com/sabis-tools/sabis/internal/notify"
	"github.com/sabis-tools/sabis/internal/ops"
	"github.com/sabis-tools/sabis/internal/web"
)

// now is the clock used for categorizing; tests pin it.
var now = time.Now

// digestDialer overrides the SMTP dialer of the digest command; nil dials cfg.SMTP.
var digestDialer notify.Dialer

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config, p mcp.Portal) *cli.App {
	app := &cli.App{
		Name:    "sabis",
		Usage:   "Assignment and quiz deadlines from the SABIS portal",
		Version: Version,
		Commands: []*cli.Command{
			assignmentsCmd(db, cfg, p),
			examsCmd(db, cfg, p),
			gradeCmd(cfg, p),
			calendarCmd(cfg),
			snapshotsCmd(db, cfg),
			digestCmd(db, cfg, p),
			serveCmd(db, cfg, p),
			mcpCmd(db, cfg, p),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func deadlineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Extract from a saved HTML page instead of the portal"},
		&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Usage: "Address the saved page came from (resolves relative links)"},
		&cli.BoolFlag{Name: "refresh", Aliases: []string{"r"}, Usage: "Ignore a fresh cached snapshot"},
		&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "Case-insensitive title filter"},
		&cli.StringFlag{Name: "sort", Usage: "dateAsc|dateDesc|nameAsc|nameDesc"},
	}
}

// assignmentsCmd creates the assignments command.
func assignmentsCmd(db *sql.DB, cfg *config.Config, p mcp.Portal) *cli.Command {
	return &cli.Command{
		Name:  "assignments",
		Usage: "Collect assignment deadlines and group them by urgency",
		Flags: deadlineFlags(),
		Action: func(c *cli.Context) error {
			var result mcp.AssignmentsResult

			if file := c.String("file"); file != "" {
				opts, err := ops.ExtractOptions(cfg)
				if err != nil {
					return outputError(err)
				}
				payload, err := ops.ExtractAssignments(ops.ExtractInput{Path: file, SourceURL: c.String("url")}, opts)
				if err != nil {
					return outputError(err)
				}
				result.AssignmentPayload = payload
			} else {
				if p == nil {
					return outputError(errors.NewInvalidRequest("portal client is not configured"))
				}
				out, err := ops.CollectAssignments(c.Context, db, cfg, p, ops.CollectInput{Refresh: c.Bool("refresh")})
				if err != nil {
					return outputError(err)
				}
				result.AssignmentPayload, result.Snapshot = out.AssignmentPayload, &out.Snapshot
			}

			buckets, err := ops.Categorize(
				ops.AssignmentEntries(result.Assignments, cfg.Location()),
				ops.CategorizeInputFor(cfg, c.String("search"), c.String("sort"), now()),
			)
			if err != nil {
				return outputError(err)
			}
			result.Buckets = buckets

			return outputJSON(result)
		},
	}
}

// examsCmd creates the exams command.
func examsCmd(db *sql.DB, cfg *config.Config, p mcp.Portal) *cli.Command {
	return &cli.Command{
		Name:  "exams",
		Usage: "Collect the quiz schedule and group it by urgency",
		Flags: deadlineFlags(),
		Action: func(c *cli.Context) error {
			var result mcp.ExamsResult

			if file := c.String("file"); file != "" {
				opts, err := ops.ExtractOptions(cfg)
				if err != nil {
					return outputError(err)
				}
				payload, err := ops.ExtractExams(ops.ExtractInput{Path: file, SourceURL: c.String("url")}, opts)
				if err != nil {
					return outputError(err)
				}
				result.ExamPayload = payload
			} else {
				if p == nil {
					return outputError(errors.NewInvalidRequest("portal client is not configured"))
				}
				out, err := ops.CollectExams(c.Context, db, cfg, p, ops.CollectInput{Refresh: c.Bool("refresh")})
				if err != nil {
					return outputError(err)
				}
				result.ExamPayload, result.Snapshot = out.ExamPayload, &out.Snapshot
			}

			buckets, err := ops.Categorize(
				ops.ExamEntries(result.Exams, cfg.Location()),
				ops.CategorizeInputFor(cfg, c.String("search"), c.String("sort"), now()),
			)
			if err != nil {
				return outputError(err)
			}
			result.Buckets = buckets

			return outputJSON(result)
		},
	}
}

// gradeCmd creates the grade command.
func gradeCmd(cfg *config.Config, p mcp.Portal) *cli.Command {
	return &cli.Command{
		Name:  "grade",
		Usage: "Project letter grades from a saved grades page (file or stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Saved grades page"},
			&cli.StringFlag{Name: "page-url", Usage: "Address of the grades page (resolves course group ids)"},
			&cli.Float64Flag{Name: "class-avg", Usage: "Class average to curve against"},
			&cli.IntFlag{Name: "year", Usage: "Academic year the course was taken"},
			&cli.IntFlag{Name: "semester", Usage: "1 (fall), 2 (spring) or 3 (summer)"},
		},
		Action: func(c *cli.Context) error {
			input := ops.GradeInput{
				Path:     c.String("file"),
				PageURL:  c.String("page-url"),
				Year:     c.Int("year"),
				Semester: c.Int("semester"),
			}
			if c.IsSet("class-avg") {
				avg := c.Float64("class-avg")
				input.ClassAverage = &avg
			}

			if input.Path == "" {
				if !stdinHasData() {
					return outputError(errors.NewInvalidRequest("pass --file or pipe the grades page via stdin"))
				}
				html, err := readStdin(ops.MaxHTMLBytes)
				if err != nil {
					return outputError(err)
				}
				input.HTML = html
			}

			var src ops.AverageSource
			if p != nil {
				src = p
			}
			output, err := ops.ProjectGrade(c.Context, cfg, src, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// calendarCmd creates the calendar command.
func calendarCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "calendar",
		Usage: "Print a Google Calendar link for a deadline",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Required: true, Usage: "Assignment or course title"},
			&cli.StringFlag{Name: "due", Aliases: []string{"d"}, Required: true, Usage: "Deadline (RFC 3339, epoch ms or dd.MM.yyyy [HH:mm])"},
			&cli.BoolFlag{Name: "exam", Usage: "Label the event as a quiz"},
		},
		Action: func(c *cli.Context) error {
			title := strings.TrimSpace(c.String("title"))
			if title == "" {
				return outputError(errors.NewInvalidRequest("title is required"))
			}
			loc := cfg.Location()
			due, err := mcp.ParseDue(c.String("due"), loc)
			if err != nil {
				return outputError(err)
			}

			link := ops.AssignmentCalendarURL(title, due, loc)
			if c.Bool("exam") {
				link = ops.ExamCalendarURL(title, due, loc)
			}
			return outputJSON(mcp.CalendarResult{URL: link, DueTimestamp: due.UnixMilli()})
		},
	}
}

// snapshotsCmd creates the snapshots command group.
func snapshotsCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	kindFlag := &cli.StringFlag{Name: "kind", Aliases: []string{"k"}, Usage: "assignments|exams (default: all)"}

	return &cli.Command{
		Name:  "snapshots",
		Usage: "Manage stored collection snapshots",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List snapshots newest first",
				Flags: []cli.Flag{
					kindFlag,
					&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Max results"},
					&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Pagination offset"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.ListSnapshots(db, ops.ListSnapshotsInput{
						Kind:   c.String("kind"),
						Limit:  c.Int("limit"),
						Offset: c.Int("offset"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "purge",
				Usage: "Delete old snapshots",
				Flags: []cli.Flag{
					kindFlag,
					&cli.StringFlag{Name: "older-than", Usage: "Only purge snapshots older than N days (e.g., 30d); default purges all"},
					&cli.BoolFlag{Name: "keep-latest", Usage: "Keep the newest snapshot of each kind"},
				},
				Action: func(c *cli.Context) error {
					input := ops.PurgeInput{
						Kind:       c.String("kind"),
						KeepLatest: c.Bool("keep-latest"),
					}
					if olderThan := c.String("older-than"); olderThan != "" {
						days, err := parseDuration(olderThan)
						if err != nil {
							return outputError(errors.NewInvalidRequest(err.Error()))
						}
						input.OlderThanDays = days
					}

					output, err := ops.PurgeSnapshots(db, input, time.Now())
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "export",
				Usage: "Export snapshots to a JSONL file",
				Flags: []cli.Flag{
					kindFlag,
					&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.sabis/exports/<kind>-<timestamp>.jsonl)"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.ExportSnapshots(c.Context, db, cfg, ops.ExportInput{
						Path: c.String("path"),
						Kind: c.String("kind"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "import",
				Usage: "Import snapshots from a JSONL export",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.ImportSnapshots(db, cfg, ops.ImportInput{Path: c.String("path")})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// digestOutput reports a sent digest.
type digestOutput struct {
	Subject string `json:"subject"`
	Count   int    `json:"count"`
	Sent    bool   `json:"sent"`
}

// digestCmd creates the digest command.
func digestCmd(db *sql.DB, cfg *config.Config, p mcp.Portal) *cli.Command {
	return &cli.Command{
		Name:  "digest",
		Usage: "Mail (or print) the overdue and due-soon deadlines",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "Print the markdown digest instead of mailing it"},
			&cli.BoolFlag{Name: "refresh", Aliases: []string{"r"}, Usage: "Ignore fresh cached snapshots"},
		},
		Action: func(c *cli.Context) error {
			if p == nil {
				return outputError(errors.NewInvalidRequest("portal client is not configured"))
			}
			at := now()
			loc := cfg.Location()
			input := ops.CollectInput{Refresh: c.Bool("refresh")}

			assignments, err := ops.CollectAssignments(c.Context, db, cfg, p, input)
			if err != nil {
				return outputError(err)
			}
			assignmentBuckets, err := ops.Categorize(ops.AssignmentEntries(assignments.Assignments, loc), ops.CategorizeInputFor(cfg, "", "", at))
			if err != nil {
				return outputError(err)
			}

			examBuckets := &ops.Buckets{}
			if exams, err := ops.CollectExams(c.Context, db, cfg, p, input); err != nil {
				logger.Error.Printf("digest without exams: %v", err)
			} else if examBuckets, err = ops.Categorize(ops.ExamEntries(exams.Exams, loc), ops.CategorizeInputFor(cfg, "", "", at)); err != nil {
				return outputError(err)
			}

			d, err := notify.Build(assignmentBuckets, examBuckets, at)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}

			if c.Bool("dry-run") || !cfg.SMTP.Enabled() {
				_, err := fmt.Fprint(os.Stdout, d.Markdown)
				return err
			}

			if err := notify.NewSender(cfg.SMTP, digestDialer).Send(d); err != nil {
				return outputError(err)
			}
			return outputJSON(digestOutput{Subject: d.Subject, Count: d.Count, Sent: !d.Empty()})
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(db *sql.DB, cfg *config.Config, p mcp.Portal) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the local dashboard",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			var wp web.Portal
			if p != nil {
				wp = p
			}
			srv, err := web.NewServer(db, cfg, wp, Version, c.String("bind"), c.Int("port"))
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return web.Run(srv)
		},
	}
}

// mcpCmd creates the mcp command, the same server started by a bare piped invocation.
func mcpCmd(db *sql.DB, cfg *config.Config, p mcp.Portal) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP server on stdio",
		Action: func(c *cli.Context) error {
			return mcp.Run(db, cfg, p, Version)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var sErr *errors.SabisError
	if stderrors.As(err, &sErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", sErr.Code, sErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads at most limit bytes from stdin.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", errors.NewInternal(err)
	}
	if int64(len(data)) > limit {
		return "", errors.NewFileTooLarge(limit, int64(len(data)))
	}
	return strings.TrimSpace(string(data)), nil
}

// parseDuration parses "7d" format to days.
func parseDuration(s string) (int, error) {
	if numStr, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(numStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		if days < 0 {
			return 0, fmt.Errorf("duration must be non-negative")
		}
		return days, nil
	}
	return 0, fmt.Errorf("duration must end with 'd' (days), e.g., 7d")
}
