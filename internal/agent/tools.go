package agent

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/mcp-brightspace/internal/brightspace"
)

// toolDef pairs a tool schema with its handler.
type toolDef struct {
	tool    mcp.Tool
	handler server.ToolHandlerFunc
}

// toolKind selects the behaviour hints advertised for a tool.
type toolKind int

const (
	kindRead   toolKind = iota // GET against Brightspace
	kindCreate                 // POST that adds a record
	kindUpdate                 // PUT that replaces a record
	kindDelete                 // DELETE
	kindAny                    // caller chooses the method
	kindLocal                  // no network access
)

func newTool(name, description string, kind toolKind, opts ...mcp.ToolOption) mcp.Tool {
	hints := []mcp.ToolOption{mcp.WithDescription(description)}
	switch kind {
	case kindRead:
		hints = append(hints, mcp.WithReadOnlyHintAnnotation(true), mcp.WithIdempotentHintAnnotation(true))
	case kindCreate:
		hints = append(hints, mcp.WithReadOnlyHintAnnotation(false), mcp.WithDestructiveHintAnnotation(false), mcp.WithIdempotentHintAnnotation(false))
	case kindUpdate:
		hints = append(hints, mcp.WithReadOnlyHintAnnotation(false), mcp.WithDestructiveHintAnnotation(true), mcp.WithIdempotentHintAnnotation(true))
	case kindDelete:
		hints = append(hints, mcp.WithReadOnlyHintAnnotation(false), mcp.WithDestructiveHintAnnotation(true), mcp.WithIdempotentHintAnnotation(true))
	case kindAny:
		hints = append(hints, mcp.WithReadOnlyHintAnnotation(false), mcp.WithDestructiveHintAnnotation(true), mcp.WithIdempotentHintAnnotation(false))
	case kindLocal:
		hints = append(hints, mcp.WithReadOnlyHintAnnotation(true), mcp.WithIdempotentHintAnnotation(true))
	}
	hints = append(hints, mcp.WithOpenWorldHintAnnotation(kind != kindLocal))
	return mcp.NewTool(name, append(hints, opts...)...)
}

func requiredID(name, description string) mcp.ToolOption {
	return mcp.WithNumber(name, mcp.Required(), mcp.Description(description))
}

var (
	orgUnitIDParam = requiredID("org_unit_id", "Org unit (course offering) id")
	userIDParam    = requiredID("user_id", "User id")
	bodyParam      = mcp.WithObject("body", mcp.Required(), mcp.Description("Valence JSON body, sent as is"))
	paramsParam    = mcp.WithObject("params", mcp.Description("Query parameters; arrays repeat the key"))
	headersParam   = mcp.WithObject("headers", mcp.Description("Extra request headers (string values)"))
	bookmarkParam  = mcp.WithString("bookmark", mcp.Description("Bookmark returned by the previous page"))
)

func pageSizeParam(def int) mcp.ToolOption {
	return mcp.WithNumber("page_size", mcp.Description("Page size"), mcp.DefaultNumber(float64(def)))
}

// toolDefs is the complete tool surface, generic tools first.
func (m *MCPServer) toolDefs() []toolDef {
	return []toolDef{
		{newTool(toolAPICall,
			"Call ANY Brightspace REST endpoint. Args: method, path (must start with /d2l/api/...), optional params, body, headers. Returns {status, data, headers}.",
			kindAny,
			mcp.WithString("method", mcp.Required(), mcp.Description("HTTP method")),
			mcp.WithString("path", mcp.Required(), mcp.Description("Host-relative path, e.g. /d2l/api/lp/1.46/users/whoami")),
			paramsParam, mcp.WithObject("body", mcp.Description("JSON request body")), headersParam,
		), m.handleAPICall},
		{newTool(toolRequest,
			"Alias for bs.api_call. Call ANY Brightspace REST endpoint. Args: method, path (must start with /d2l/api/...), optional params, body, headers.",
			kindAny,
			mcp.WithString("method", mcp.Required(), mcp.Description("HTTP method")),
			mcp.WithString("path", mcp.Required(), mcp.Description("Host-relative path")),
			paramsParam, mcp.WithObject("body", mcp.Description("JSON request body")), headersParam,
		), m.handleAPICall},
		{newTool(toolLP,
			"Call a Learning Platform route by its tail (e.g. /users/whoami). Configured lp versions are tried until one does not answer 404/410.",
			kindAny, familyParams()...,
		), m.handleFamily(brightspace.FamilyLP)},
		{newTool(toolLE,
			"Call a Learning Environment route by its tail (e.g. /6606/news/). Configured le versions are tried until one does not answer 404/410.",
			kindAny, familyParams()...,
		), m.handleFamily(brightspace.FamilyLE)},
		{newTool(toolPaginate,
			"Bookmark pagination helper for list endpoints. Args: path, page_size=100, max_pages=10, params={}. Returns {status, items, bookmarks, last_bookmark}.",
			kindRead,
			mcp.WithString("path", mcp.Required(), mcp.Description("List route path")),
			pageSizeParam(brightspace.DefaultPageSize),
			mcp.WithNumber("max_pages", mcp.Description("Maximum pages to fetch"), mcp.DefaultNumber(brightspace.DefaultMaxPages)),
			paramsParam,
		), m.handlePaginate},
		{newTool(toolBuildPath,
			"Build a versioned API path. Args: service ('lp' or 'le'), tail (e.g. '/users/whoami'), version optional (defaults to env). Returns '/d2l/api/<service>/<ver><tail>'.",
			kindLocal,
			mcp.WithString("service", mcp.Required(), mcp.Enum("lp", "le"), mcp.Description("API family")),
			mcp.WithString("tail", mcp.Required(), mcp.Description("Route below the version")),
			mcp.WithString("version", mcp.Description("API version; defaults to the configured one")),
		), m.handleBuildPath},
		{newTool(toolUploadMultipart,
			"Multipart upload to a Brightspace path. Args: path, fields (dict), files (dict name -> {filename, content_b64, mime}).",
			kindCreate,
			mcp.WithString("path", mcp.Required(), mcp.Description("Upload route path")),
			mcp.WithObject("fields", mcp.Description("Plain form fields")),
			mcp.WithObject("files", mcp.Description("File parts: name -> {filename, content_b64, mime}")),
			headersParam,
		), m.handleUploadMultipart},
		{newTool(toolDownloadB64,
			"GET a binary resource and return base64. Args: path, optional params. Response: {status, data_b64, headers}.",
			kindRead,
			mcp.WithString("path", mcp.Required(), mcp.Description("Resource path")),
			paramsParam,
		), m.handleDownloadB64},
		{newTool(toolDiscoverVersions,
			"List the API versions the tenant supports per product, newest first. Optional family filter ('lp' or 'le').",
			kindRead,
			mcp.WithString("family", mcp.Enum("lp", "le"), mcp.Description("Only return this product's versions")),
		), m.handleDiscoverVersions},

		// Wrappers
		{newTool(toolWhoAmI, "Return the current Brightspace user context.", kindRead), m.handleWhoAmI},
		{newTool(toolListCourses, "List courses. Supports page_size and optional bookmark.", kindRead,
			pageSizeParam(10), bookmarkParam,
		), m.handleListCourses},
		{newTool("bs.create_announcement", "Create a course announcement. Requires org_unit_id, title, html.", kindCreate,
			orgUnitIDParam,
			mcp.WithString("title", mcp.Required(), mcp.Description("Announcement title")),
			mcp.WithString("html", mcp.Required(), mcp.Description("Announcement body as HTML")),
		), m.handleCreateAnnouncement},
		{newTool(toolListOrgUnits, "List organizational units. Args: page_size=100, bookmark, org_unit_type_id, search.", kindRead,
			pageSizeParam(brightspace.DefaultPageSize), bookmarkParam,
			mcp.WithNumber("org_unit_type_id", mcp.Description("Org unit type filter (3 = course offering)")),
			mcp.WithString("search", mcp.Description("Name search")),
		), m.handleListOrgUnits},
		{newTool(toolListUsers, "List users. Args: page_size=100, bookmark, search_term, org_unit_id.", kindRead,
			pageSizeParam(brightspace.DefaultPageSize), bookmarkParam,
			mcp.WithString("search_term", mcp.Description("User search term")),
			mcp.WithNumber("org_unit_id", mcp.Description("Restrict to one org unit")),
		), m.handleListUsers},
		{newTool("bs.get_user", "Get a user by ID.", kindRead, userIDParam), m.handleGetUser},
		{newTool("bs.my_enrollments", "List current user's enrollments. Args: page_size=100, bookmark.", kindRead,
			pageSizeParam(brightspace.DefaultPageSize), bookmarkParam,
		), m.handleMyEnrollments},
		{newTool("bs.list_announcements", "List course announcements. Args: org_unit_id, page_size=100, bookmark.", kindRead,
			orgUnitIDParam, pageSizeParam(brightspace.DefaultPageSize), bookmarkParam,
		), m.handleListAnnouncements},
		{newTool("bs.get_content_toc", "Get course Content TOC. Args: org_unit_id.", kindRead, orgUnitIDParam), m.handleGetContentTOC},
		{newTool("bs.list_discussion_forums", "List discussion forums of a course.", kindRead, orgUnitIDParam), m.handleListDiscussionForums},
		{newTool("bs.list_discussion_topics", "List discussion topics of a course.", kindRead, orgUnitIDParam), m.handleListDiscussionTopics},
		{newTool("bs.list_quizzes", "List quizzes of a course. Args: org_unit_id, page_size=100, bookmark.", kindRead,
			orgUnitIDParam, pageSizeParam(brightspace.DefaultPageSize), bookmarkParam,
		), m.handleListQuizzes},
		{newTool("bs.get_quiz", "Get one quiz.", kindRead, orgUnitIDParam, requiredID("quiz_id", "Quiz id")), m.handleGetQuiz},
		{newTool("bs.get_content_topic", "Get the metadata of a content topic.", kindRead,
			orgUnitIDParam, requiredID("topic_id", "Content topic id"),
		), m.handleGetContentTopic},
		{newTool("bs.download_content_topic_file", "Download the file of a content topic as base64. Response: {status, data_b64, headers}.", kindRead,
			orgUnitIDParam, requiredID("topic_id", "Content topic id"),
		), m.handleDownloadContentTopicFile},
		{newTool("bs.list_grade_items", "List grade items of a course.", kindRead, orgUnitIDParam), m.handleListGradeItems},
		{newTool("bs.get_user_grades", "Get all grade values of a user in a course.", kindRead, orgUnitIDParam, userIDParam), m.handleGetUserGrades},
		{newTool("bs.create_discussion_forum", "Create a discussion forum from a Valence body.", kindCreate, orgUnitIDParam, bodyParam), m.handleCreateDiscussionForum},
		{newTool("bs.create_discussion_topic", "Create a discussion topic from a Valence body.", kindCreate, orgUnitIDParam, bodyParam), m.handleCreateDiscussionTopic},
		{newTool("bs.create_grade_item", "Create a grade item from a Valence body.", kindCreate, orgUnitIDParam, bodyParam), m.handleCreateGradeItem},
		{newTool("bs.upsert_user_grade_value", "Set a user's grade value. method is PUT (default) or POST.", kindUpdate,
			orgUnitIDParam, userIDParam, bodyParam,
			mcp.WithString("method", mcp.Enum("PUT", "POST"), mcp.DefaultString("PUT"), mcp.Description("HTTP method")),
		), m.handleUpsertUserGradeValue},
		{newTool("bs.list_course_enrollments", "List users enrolled in an org unit. Args: org_unit_id, role_id, page_size=100, bookmark.", kindRead,
			orgUnitIDParam, mcp.WithNumber("role_id", mcp.Description("Only this role")),
			pageSizeParam(brightspace.DefaultPageSize), bookmarkParam,
		), m.handleListCourseEnrollments},
		{newTool("bs.enroll_user", "Enroll a user in an org unit with a role.", kindCreate,
			orgUnitIDParam, userIDParam, requiredID("role_id", "Role id"),
		), m.handleEnrollUser},
		{newTool("bs.unenroll_user", "Remove a user's enrollment from an org unit.", kindDelete, orgUnitIDParam, userIDParam), m.handleUnenrollUser},
		{newTool("bs.get_course_offering", "Get a course offering.", kindRead, orgUnitIDParam), m.handleGetCourseOffering},
		{newTool("bs.create_course_offering", "Create a course offering from a Valence body.", kindCreate, bodyParam), m.handleCreateCourseOffering},
		{newTool("bs.list_assignments", "List assignment (dropbox) folders of a course.", kindRead, orgUnitIDParam), m.handleListAssignments},
		{newTool("bs.get_assignment", "Get one assignment (dropbox) folder.", kindRead,
			orgUnitIDParam, requiredID("folder_id", "Dropbox folder id"),
		), m.handleGetAssignment},
		{newTool("bs.create_assignment", "Create an assignment (dropbox) folder from a Valence body.", kindCreate, orgUnitIDParam, bodyParam), m.handleCreateAssignment},
		{newTool("bs.create_content_module", "Create a root content module from a Valence body.", kindCreate, orgUnitIDParam, bodyParam), m.handleCreateContentModule},
		{newTool("bs.create_content_topic", "Create a topic inside a content module from a Valence body.", kindCreate,
			orgUnitIDParam, requiredID("module_id", "Content module id"), bodyParam,
		), m.handleCreateContentTopic},
		{newTool("bs.update_announcement", "Replace an announcement with a Valence body.", kindUpdate,
			orgUnitIDParam, requiredID("news_id", "Announcement id"), bodyParam,
		), m.handleUpdateAnnouncement},
		{newTool("bs.delete_announcement", "Delete an announcement.", kindDelete,
			orgUnitIDParam, requiredID("news_id", "Announcement id"),
		), m.handleDeleteAnnouncement},
	}
}

func familyParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("method", mcp.Required(), mcp.Description("HTTP method")),
		mcp.WithString("tail", mcp.Required(), mcp.Description("Route below the version, e.g. /users/whoami")),
		paramsParam,
		mcp.WithObject("body", mcp.Description("JSON request body")),
		headersParam,
		mcp.WithArray("versions", mcp.Description("Versions to try after the default; replaces the configured candidates"), mcp.Items(map[string]interface{}{"type": "string"})),
	}
}
