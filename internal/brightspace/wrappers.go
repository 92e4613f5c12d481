package brightspace

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// ListOptions selects one page of a bookmark-paged listing.
type ListOptions struct {
	PageSize int    `json:"page_size,omitempty"`
	Bookmark string `json:"bookmark,omitempty"`
}

func (o ListOptions) params(defaultSize int) map[string]interface{} {
	size := o.PageSize
	if size <= 0 {
		size = defaultSize
	}
	params := map[string]interface{}{PageSizeParam: size}
	if o.Bookmark != "" {
		params[BookmarkParam] = o.Bookmark
	}
	return params
}

// OrgUnitQuery filters ListOrgUnits.
type OrgUnitQuery struct {
	ListOptions
	OrgUnitTypeID *int   `json:"org_unit_type_id,omitempty"`
	Search        string `json:"search,omitempty"`
}

// UserQuery filters ListUsers.
type UserQuery struct {
	ListOptions
	SearchTerm string `json:"search_term,omitempty"`
	OrgUnitID  *int   `json:"org_unit_id,omitempty"`
}

// callFamily dispatches req and turns status >= 400 into a *RemoteError.
func (s *Session) callFamily(ctx context.Context, op string, family Family, req Request) (*Response, error) {
	req.ExpectStructured = true
	resp, err := s.Dispatch(ctx, family, req, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, &RemoteError{Op: op, StatusCode: resp.StatusCode, Body: resp.Body}
	}
	return resp, nil
}

// object runs callFamily and requires a JSON object in the answer.
func (s *Session) object(ctx context.Context, op string, family Family, req Request) (map[string]interface{}, error) {
	resp, err := s.callFamily(ctx, op, family, req)
	if err != nil {
		return nil, err
	}
	obj, ok := resp.Body.Object()
	if !ok {
		return nil, &BodyMismatchError{Op: op, Want: BodyStructured, Got: resp.Body.Kind()}
	}
	return obj, nil
}

// value runs callFamily and returns the body whatever its shape; several
// routes answer with a list on some versions and an object on others.
func (s *Session) value(ctx context.Context, op string, family Family, req Request) (interface{}, error) {
	resp, err := s.callFamily(ctx, op, family, req)
	if err != nil {
		return nil, err
	}
	return resp.Body.Value(), nil
}

func get(tail string, params map[string]interface{}) Request {
	return Request{Method: http.MethodGet, Path: tail, Params: params}
}

// WhoAmI returns the identity behind the current token.
func (s *Session) WhoAmI(ctx context.Context) (map[string]interface{}, error) {
	return s.object(ctx, "whoami", FamilyLP, get("/users/whoami", nil))
}

// ListCourses returns one page of courses. The default page size is 10.
func (s *Session) ListCourses(ctx context.Context, opts ListOptions) (map[string]interface{}, error) {
	return s.object(ctx, "list_courses", FamilyLP, get("/courses/", opts.params(10)))
}

// CreateAnnouncement publishes an HTML news item in an org unit.
func (s *Session) CreateAnnouncement(ctx context.Context, orgUnitID int, title, html string) (map[string]interface{}, error) {
	payload := map[string]interface{}{
		"Title":       title,
		"IsPublished": true,
		"Body": map[string]interface{}{
			"Content": html,
			"Type":    "Html",
		},
	}
	return s.object(ctx, "create_announcement", FamilyLE, Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/%d/news/", orgUnitID),
		Body:   payload,
	})
}

// ListOrgUnits returns one page of the org structure.
func (s *Session) ListOrgUnits(ctx context.Context, q OrgUnitQuery) (map[string]interface{}, error) {
	params := q.params(DefaultPageSize)
	if q.OrgUnitTypeID != nil {
		params["orgUnitTypeId"] = *q.OrgUnitTypeID
	}
	if q.Search != "" {
		params["search"] = q.Search
	}
	return s.object(ctx, "list_org_units", FamilyLP, get("/orgstructure/", params))
}

// ListUsers returns one page of users.
func (s *Session) ListUsers(ctx context.Context, q UserQuery) (map[string]interface{}, error) {
	params := q.params(DefaultPageSize)
	if q.SearchTerm != "" {
		params["searchTerm"] = q.SearchTerm
	}
	if q.OrgUnitID != nil {
		params["orgUnitId"] = *q.OrgUnitID
	}
	return s.object(ctx, "list_users", FamilyLP, get("/users/", params))
}

// GetUser fetches one user.
func (s *Session) GetUser(ctx context.Context, userID int) (map[string]interface{}, error) {
	return s.object(ctx, "get_user", FamilyLP, get(fmt.Sprintf("/users/%d", userID), nil))
}

// MyEnrollments returns one page of the caller's enrollments.
func (s *Session) MyEnrollments(ctx context.Context, opts ListOptions) (map[string]interface{}, error) {
	return s.object(ctx, "my_enrollments", FamilyLP, get("/enrollments/myenrollments/", opts.params(DefaultPageSize)))
}

// ListAnnouncements returns the news items of an org unit.
func (s *Session) ListAnnouncements(ctx context.Context, orgUnitID int, opts ListOptions) (interface{}, error) {
	return s.value(ctx, "list_announcements", FamilyLE, get(fmt.Sprintf("/%d/news/", orgUnitID), opts.params(DefaultPageSize)))
}

// GetContentTOC returns the table of contents of a course.
func (s *Session) GetContentTOC(ctx context.Context, orgUnitID int) (map[string]interface{}, error) {
	return s.object(ctx, "get_content_toc", FamilyLE, get(fmt.Sprintf("/%d/content/toc", orgUnitID), nil))
}

// ListDiscussionForums lists the forums of an org unit.
func (s *Session) ListDiscussionForums(ctx context.Context, orgUnitID int) (interface{}, error) {
	return s.value(ctx, "list_discussion_forums", FamilyLE, get(fmt.Sprintf("/%d/discussions/forums/", orgUnitID), nil))
}

// ListDiscussionTopics lists the discussion topics of an org unit.
func (s *Session) ListDiscussionTopics(ctx context.Context, orgUnitID int) (interface{}, error) {
	return s.value(ctx, "list_discussion_topics", FamilyLE, get(fmt.Sprintf("/%d/discussions/topics/", orgUnitID), nil))
}

// ListQuizzes returns one page of quizzes.
func (s *Session) ListQuizzes(ctx context.Context, orgUnitID int, opts ListOptions) (map[string]interface{}, error) {
	return s.object(ctx, "list_quizzes", FamilyLE, get(fmt.Sprintf("/%d/quizzes/quizzes/", orgUnitID), opts.params(DefaultPageSize)))
}

// GetQuiz fetches one quiz.
func (s *Session) GetQuiz(ctx context.Context, orgUnitID, quizID int) (map[string]interface{}, error) {
	return s.object(ctx, "get_quiz", FamilyLE, get(fmt.Sprintf("/%d/quizzes/quizzes/%d", orgUnitID, quizID), nil))
}

// GetContentTopic fetches the metadata of one content topic.
func (s *Session) GetContentTopic(ctx context.Context, orgUnitID, topicID int) (map[string]interface{}, error) {
	return s.object(ctx, "get_content_topic", FamilyLE, get(fmt.Sprintf("/%d/content/topics/%d", orgUnitID, topicID), nil))
}

// DownloadContentTopicFile fetches the file behind a content topic using the
// default LE version. Failures are reported in the status field.
func (s *Session) DownloadContentTopicFile(ctx context.Context, orgUnitID, topicID int) (*Download, error) {
	return s.DownloadBase64(ctx, s.Path(FamilyLE, fmt.Sprintf("/%d/content/topics/%d/file", orgUnitID, topicID), ""), nil)
}

// ListGradeItems lists the grade items of an org unit.
func (s *Session) ListGradeItems(ctx context.Context, orgUnitID int) (interface{}, error) {
	return s.value(ctx, "list_grade_items", FamilyLE, get(fmt.Sprintf("/%d/grades/", orgUnitID), nil))
}

// GetUserGrades returns the grade values of one user.
func (s *Session) GetUserGrades(ctx context.Context, orgUnitID, userID int) (interface{}, error) {
	return s.value(ctx, "get_user_grades", FamilyLE, get(fmt.Sprintf("/%d/grades/values/user/%d/", orgUnitID, userID), nil))
}

// CreateDiscussionForum creates a forum from a raw Valence body.
func (s *Session) CreateDiscussionForum(ctx context.Context, orgUnitID int, body interface{}) (interface{}, error) {
	return s.value(ctx, "create_discussion_forum", FamilyLE, Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/%d/discussions/forums/", orgUnitID),
		Body:   body,
	})
}

// CreateDiscussionTopic creates a topic from a raw Valence body.
func (s *Session) CreateDiscussionTopic(ctx context.Context, orgUnitID int, body interface{}) (interface{}, error) {
	return s.value(ctx, "create_discussion_topic", FamilyLE, Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/%d/discussions/topics/", orgUnitID),
		Body:   body,
	})
}

// CreateGradeItem creates a grade item from a raw Valence body.
func (s *Session) CreateGradeItem(ctx context.Context, orgUnitID int, body interface{}) (interface{}, error) {
	return s.value(ctx, "create_grade_item", FamilyLE, Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/%d/grades/", orgUnitID),
		Body:   body,
	})
}

// UpsertUserGradeValue writes a user's grade value. method must be PUT or
// POST; empty means PUT.
func (s *Session) UpsertUserGradeValue(ctx context.Context, orgUnitID, userID int, body interface{}, method string) (interface{}, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodPut
	}
	if method != http.MethodPut && method != http.MethodPost {
		return nil, invalidArgument("method must be PUT or POST, got %q", method)
	}
	return s.value(ctx, "upsert_user_grade_value", FamilyLE, Request{
		Method: method,
		Path:   fmt.Sprintf("/%d/grades/values/user/%d/", orgUnitID, userID),
		Body:   body,
	})
}

// status runs callFamily for routes whose answer carries no useful body.
func (s *Session) status(ctx context.Context, op string, family Family, req Request) (int, error) {
	resp, err := s.callFamily(ctx, op, family, req)
	if err != nil {
		return 0, err
	}
	return resp.StatusCode, nil
}

// ListCourseEnrollments returns one page of the users enrolled in an org
// unit, optionally restricted to one role.
func (s *Session) ListCourseEnrollments(ctx context.Context, orgUnitID int, opts ListOptions, roleID *int) (map[string]interface{}, error) {
	params := opts.params(DefaultPageSize)
	if roleID != nil {
		params["roleId"] = *roleID
	}
	return s.object(ctx, "list_course_enrollments", FamilyLP, get(fmt.Sprintf("/enrollments/orgUnits/%d/users/", orgUnitID), params))
}

// EnrollUser enrolls a user in an org unit with the given role.
func (s *Session) EnrollUser(ctx context.Context, orgUnitID, userID, roleID int) (interface{}, error) {
	return s.value(ctx, "enroll_user", FamilyLP, Request{
		Method: http.MethodPost,
		Path:   "/enrollments/",
		Body:   map[string]interface{}{"OrgUnitId": orgUnitID, "UserId": userID, "RoleId": roleID},
	})
}

// UnenrollUser removes a user's enrollment and returns the response status.
func (s *Session) UnenrollUser(ctx context.Context, orgUnitID, userID int) (int, error) {
	return s.status(ctx, "unenroll_user", FamilyLP, Request{
		Method: http.MethodDelete,
		Path:   fmt.Sprintf("/enrollments/users/%d/orgUnits/%d", userID, orgUnitID),
	})
}

// GetCourseOffering fetches one course offering.
func (s *Session) GetCourseOffering(ctx context.Context, orgUnitID int) (map[string]interface{}, error) {
	return s.object(ctx, "get_course_offering", FamilyLP, get(fmt.Sprintf("/courses/%d", orgUnitID), nil))
}

// CreateCourseOffering creates a course offering from a raw Valence body.
func (s *Session) CreateCourseOffering(ctx context.Context, body interface{}) (interface{}, error) {
	return s.value(ctx, "create_course_offering", FamilyLP, Request{Method: http.MethodPost, Path: "/courses/", Body: body})
}

// ListAssignments lists the dropbox folders of an org unit.
func (s *Session) ListAssignments(ctx context.Context, orgUnitID int) (interface{}, error) {
	return s.value(ctx, "list_assignments", FamilyLE, get(fmt.Sprintf("/%d/dropbox/folders/", orgUnitID), nil))
}

// GetAssignment fetches one dropbox folder.
func (s *Session) GetAssignment(ctx context.Context, orgUnitID, folderID int) (map[string]interface{}, error) {
	return s.object(ctx, "get_assignment", FamilyLE, get(fmt.Sprintf("/%d/dropbox/folders/%d", orgUnitID, folderID), nil))
}

// CreateAssignment creates a dropbox folder from a raw Valence body.
func (s *Session) CreateAssignment(ctx context.Context, orgUnitID int, body interface{}) (interface{}, error) {
	return s.value(ctx, "create_assignment", FamilyLE, Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/%d/dropbox/folders/", orgUnitID),
		Body:   body,
	})
}

// CreateContentModule adds a root module to a course's content.
func (s *Session) CreateContentModule(ctx context.Context, orgUnitID int, body interface{}) (interface{}, error) {
	return s.value(ctx, "create_content_module", FamilyLE, Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/%d/content/modules/", orgUnitID),
		Body:   body,
	})
}

// CreateContentTopic adds a topic under a content module.
func (s *Session) CreateContentTopic(ctx context.Context, orgUnitID, moduleID int, body interface{}) (interface{}, error) {
	return s.value(ctx, "create_content_topic", FamilyLE, Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/%d/content/modules/%d/structure/", orgUnitID, moduleID),
		Body:   body,
	})
}

// UpdateAnnouncement replaces a news item.
func (s *Session) UpdateAnnouncement(ctx context.Context, orgUnitID, newsID int, body interface{}) (interface{}, error) {
	return s.value(ctx, "update_announcement", FamilyLE, Request{
		Method: http.MethodPut,
		Path:   fmt.Sprintf("/%d/news/%d", orgUnitID, newsID),
		Body:   body,
	})
}

// DeleteAnnouncement deletes a news item and returns the response status.
func (s *Session) DeleteAnnouncement(ctx context.Context, orgUnitID, newsID int) (int, error) {
	return s.status(ctx, "delete_announcement", FamilyLE, Request{
		Method: http.MethodDelete,
		Path:   fmt.Sprintf("/%d/news/%d", orgUnitID, newsID),
	})
}
