package mcp

import "github.com/mark3labs/mcp-go/mcp"

var sortEnum = mcp.Enum("dateAsc", "dateDesc", "nameAsc", "nameDesc")
var kindEnum = mcp.Enum("assignments", "exams")

var extractAssignmentsToolDef = mcp.NewTool("extract_assignments",
	mcp.WithDescription("Extract assignment deadlines from a saved or pasted SABIS announcements page and group them by urgency."),
	mcp.WithString("html", mcp.Description("Page HTML. Give either html or path.")),
	mcp.WithString("path", mcp.Description("Path to a saved page.")),
	mcp.WithString("source_url", mcp.Description("URL the page was loaded from; used to resolve links.")),
	mcp.WithString("search", mcp.Description("Case-insensitive title filter.")),
	mcp.WithString("sort", mcp.Description("Sort order within each group."), sortEnum),
)

var extractExamsToolDef = mcp.NewTool("extract_exams",
	mcp.WithDescription("Extract quiz rows from a saved or pasted SABIS exam schedule page."),
	mcp.WithString("html", mcp.Description("Page HTML. Give either html or path.")),
	mcp.WithString("path", mcp.Description("Path to a saved page.")),
	mcp.WithString("source_url", mcp.Description("URL the page was loaded from; used to resolve join links.")),
	mcp.WithString("search", mcp.Description("Case-insensitive title filter.")),
	mcp.WithString("sort", mcp.Description("Sort order within each group."), sortEnum),
)

var collectAssignmentsToolDef = mcp.NewTool("collect_assignments",
	mcp.WithDescription("Fetch current assignments from the SABIS portal, using the snapshot cache when it is fresh."),
	mcp.WithBoolean("refresh", mcp.Description("Ignore a fresh cached snapshot.")),
	mcp.WithString("search", mcp.Description("Case-insensitive title filter.")),
	mcp.WithString("sort", mcp.Description("Sort order within each group."), sortEnum),
)

var collectExamsToolDef = mcp.NewTool("collect_exams",
	mcp.WithDescription("Fetch the quiz schedule from the SABIS exam portal, using the snapshot cache when it is fresh."),
	mcp.WithBoolean("refresh", mcp.Description("Ignore a fresh cached snapshot.")),
	mcp.WithString("search", mcp.Description("Case-insensitive title filter.")),
	mcp.WithString("sort", mcp.Description("Sort order within each group."), sortEnum),
)

var projectGradeToolDef = mcp.NewTool("project_grade",
	mcp.WithDescription("Project letter grades for the course tables on a SABIS grades page."),
	mcp.WithString("html", mcp.Description("Grades page or course table HTML. Give either html or path.")),
	mcp.WithString("path", mcp.Description("Path to a saved page.")),
	mcp.WithString("page_url", mcp.Description("Course page URL such as .../Ders/2025/1; selects the term.")),
	mcp.WithNumber("class_average", mcp.Description("Class average to curve against; skips the portal lookup.")),
	mcp.WithNumber("year", mcp.Description("Academic year, overrides page_url.")),
	mcp.WithNumber("semester", mcp.Description("1 autumn, 2 spring, 3 summer.")),
)

var calendarURLToolDef = mcp.NewTool("calendar_url",
	mcp.WithDescription("Build a Google Calendar link for an assignment deadline or a quiz."),
	mcp.WithString("title", mcp.Required(), mcp.Description("Assignment or course title.")),
	mcp.WithString("due", mcp.Required(), mcp.Description("RFC 3339 time, epoch milliseconds, or dd.MM.yyyy HH:mm.")),
	mcp.WithString("kind", mcp.Description("assignment (default) or exam."), mcp.Enum("assignment", "exam")),
)

var listSnapshotsToolDef = mcp.NewTool("list_snapshots",
	mcp.WithDescription("List cached collection snapshots, newest first."),
	mcp.WithString("kind", mcp.Description("Filter by kind."), kindEnum),
	mcp.WithNumber("limit", mcp.Description("Page size, default 20, max 100.")),
	mcp.WithNumber("offset", mcp.Description("Items to skip.")),
)

var purgeSnapshotsToolDef = mcp.NewTool("purge_snapshots",
	mcp.WithDescription("Delete old cached snapshots."),
	mcp.WithString("kind", mcp.Description("Only purge this kind."), kindEnum),
	mcp.WithNumber("older_than_days", mcp.Description("Only purge snapshots older than this many days; 0 purges all.")),
	mcp.WithBoolean("keep_latest", mcp.Description("Keep the newest snapshot of each kind.")),
)

var exportSnapshotsToolDef = mcp.NewTool("export_snapshots",
	mcp.WithDescription("Write cached snapshots to a JSONL file under ~/.sabis/exports or an allowed path."),
	mcp.WithString("path", mcp.Description("Destination .jsonl file.")),
	mcp.WithString("kind", mcp.Description("Only export this kind."), kindEnum),
)

var importSnapshotsToolDef = mcp.NewTool("import_snapshots",
	mcp.WithDescription("Load snapshots from a JSONL export. Existing ids are skipped."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Export file to read.")),
)
