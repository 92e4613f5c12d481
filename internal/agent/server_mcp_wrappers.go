package agent

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/mcp-brightspace/internal/brightspace"
)

type orgUnitArgs struct {
	OrgUnitID int `json:"org_unit_id" validate:"required"`
}

type orgUnitPageArgs struct {
	brightspace.ListOptions
	OrgUnitID int `json:"org_unit_id" validate:"required"`
}

type orgUnitBodyArgs struct {
	OrgUnitID int         `json:"org_unit_id" validate:"required"`
	Body      interface{} `json:"body" validate:"required"`
}

type orgUnitUserArgs struct {
	OrgUnitID int `json:"org_unit_id" validate:"required"`
	UserID    int `json:"user_id" validate:"required"`
}

type statusResult struct {
	Status int `json:"status"`
}

func (m *MCPServer) handleWhoAmI(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return m.invoke(ctx, request, nil, func(ctx context.Context) (interface{}, error) {
		return m.session.WhoAmI(ctx)
	})
}

func (m *MCPServer) handleListCourses(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args brightspace.ListOptions
	return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
		return m.session.ListCourses(ctx, args)
	})
}

func (m *MCPServer) handleCreateAnnouncement(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		OrgUnitID int    `json:"org_unit_id" validate:"required"`
		Title     string `json:"title" validate:"required"`
		HTML      string `json:"html" validate:"required"`
	}
	return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
		return m.session.CreateAnnouncement(ctx, args.OrgUnitID, args.Title, args.HTML)
	})
}

func (m *MCPServer) handleListOrgUnits(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args brightspace.OrgUnitQuery
	return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
		return m.session.ListOrgUnits(ctx, args)
	})
}

func (m *MCPServer) handleListUsers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args brightspace.UserQuery
	return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
		return m.session.ListUsers(ctx, args)
	})
}

func (m *MCPServer) handleGetUser(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		UserID int `json:"user_id" validate:"required"`
	}
	return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
		return m.session.GetUser(ctx, args.UserID)
	})
}

func (m *MCPServer) handleMyEnrollments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args brightspace.ListOptions
	return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
		return m.session.MyEnrollments(ctx, args)
	})
}

func (m *MCPServer) handleListAnnouncements(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args orgUnitPageArgs
	return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
		return m.session.ListAnnouncements(ctx, args.OrgUnitID, args.ListOptions)
	})
}

func (m *MCPServer) handleGetContentTOC(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args orgUnitArgs
	return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
		return m.session.GetContentTOC(ctx, args.OrgUnitID)
	})
}

func (m *MCPServer) handleListDiscussionForums(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args orgUnitArgs
	return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
		return m.session.ListDiscussionForums(ctx, args.OrgUnitID)
	})
}

func (m *MCPServer) handleListDiscussionTopics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args orgUnitArgs
	return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
		return m.session.ListDiscussionTopics(ctx, args.OrgUnitID)
	})
}

func (m *MCPServer) handleListQuizzes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args orgUnitPageArgs
	return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
		return m.session.ListQuizzes(ctx, args.OrgUnitID, args.ListOptions)
	})
}

func (m *MCPServer) handleGetQuiz(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		OrgUnitID int `json:"org_unit_id" validate:"required"`
		QuizID    int `json:"quiz_id" validate:"required"`
	}
	return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
		return m.session.GetQuiz(ctx, args.OrgUnitID, args.QuizID)
	})
}

type topicArgs struct {
	OrgUnitID int `json:"org_unit_id" validate:"required"`
	TopicID   int `json:"topic_id" validate:"required"`
}

func (m *MCPServer) handleGetContentTopic(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args topicArgs
	return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
		return m.session.GetContentTopic(ctx, args.OrgUnitID, args.TopicID)
	})
}

func (m *MCPServer) handleDownloadContentTopicFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args topicArgs
	return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
		return m.session.DownloadContentTopicFile(ctx, args.OrgUnitID, args.TopicID)
	})
}

func (m *MCPServer) handleListGradeItems(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args orgUnitArgs
	return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
		return m.session.ListGradeItems(ctx, args.OrgUnitID)
	})
}

func (m *MCPServer) handleGetUserGrades(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args orgUnitUserArgs
	return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
		return m.session.GetUserGrades(ctx, args.OrgUnitID, args.UserID)
	})
}

func (m *MCPServer) handleCreateDiscussionForum(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args orgUnitBodyArgs
	return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
		return m.session.CreateDiscussionForum(ctx, args.OrgUnitID, args.Body)
	})
}

func (m *MCPServer) handleCreateDiscussionTopic(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args orgUnitBodyArgs
	return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
		return m.session.CreateDiscussionTopic(ctx, args.OrgUnitID, args.Body)
	})
}

func (m *MCPServer) handleCreateGradeItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args orgUnitBodyArgs
	return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
		return m.session.CreateGradeItem(ctx, args.OrgUnitID, args.Body)
	})
}

func (m *MCPServer) handleUpsertUserGradeValue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		OrgUnitID int         `json:"org_unit_id" validate:"required"`
		UserID    int         `json:"user_id" validate:"required"`
		Body      interface{} `json:"body" validate:"required"`
		Method    string      `json:"method"`
	}
	return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
		return m.session.UpsertUserGradeValue(ctx, args.OrgUnitID, args.UserID, args.Body, args.Method)
	})
}

func (m *MCPServer) handleListCourseEnrollments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		brightspace.ListOptions
		OrgUnitID int  `json:"org_unit_id" validate:"required"`
		RoleID    *int `json:"role_id"`
	}
	return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
		return m.session.ListCourseEnrollments(ctx, args.OrgUnitID, args.ListOptions, args.RoleID)
	})
}

func (m *MCPServer) handleEnrollUser(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		OrgUnitID int `json:"org_unit_id" validate:"required"`
		UserID    int `json:"user_id" validate:"required"`
		RoleID    int `json:"role_id" validate:"required"`
	}
	return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
		return m.session.EnrollUser(ctx, args.OrgUnitID, args.UserID, args.RoleID)
	})
}

func (m *MCPServer) handleUnenrollUser(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args orgUnitUserArgs
	return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
		status, err := m.session.UnenrollUser(ctx, args.OrgUnitID, args.UserID)
		if err != nil {
			return nil, err
		}
		return statusResult{Status: status}, nil
	})
}

func (m *MCPServer) handleGetCourseOffering(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args orgUnitArgs
	return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
		return m.session.GetCourseOffering(ctx, args.OrgUnitID)
	})
}

func (m *MCPServer) handleCreateCourseOffering(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Body interface{} `json:"body" validate:"required"`
	}
	return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
		return m.session.CreateCourseOffering(ctx, args.Body)
	})
}

func (m *MCPServer) handleListAssignments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args orgUnitArgs
	return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
		return m.session.ListAssignments(ctx, args.OrgUnitID)
	})
}

func (m *MCPServer) handleGetAssignment(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		OrgUnitID int `json:"org_unit_id" validate:"required"`
		FolderID  int `json:"folder_id" validate:"required"`
	}
	return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
		return m.session.GetAssignment(ctx, args.OrgUnitID, args.FolderID)
	})
}

func (m *MCPServer) handleCreateAssignment(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args orgUnitBodyArgs
	return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
		return m.session.CreateAssignment(ctx, args.OrgUnitID, args.Body)
	})
}

func (m *MCPServer) handleCreateContentModule(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args orgUnitBodyArgs
	return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
		return m.session.CreateContentModule(ctx, args.OrgUnitID, args.Body)
	})
}

func (m *MCPServer) handleCreateContentTopic(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		OrgUnitID int         `json:"org_unit_id" validate:"required"`
		ModuleID  int         `json:"module_id" validate:"required"`
		Body      interface{} `json:"body" validate:"required"`
	}
	return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
		return m.session.CreateContentTopic(ctx, args.OrgUnitID, args.ModuleID, args.Body)
	})
}

type newsArgs struct {
	OrgUnitID int `json:"org_unit_id" validate:"required"`
	NewsID    int `json:"news_id" validate:"required"`
}

func (m *MCPServer) handleUpdateAnnouncement(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		OrgUnitID int         `json:"org_unit_id" validate:"required"`
		NewsID    int         `json:"news_id" validate:"required"`
		Body      interface{} `json:"body" validate:"required"`
	}
	return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
		return m.session.UpdateAnnouncement(ctx, args.OrgUnitID, args.NewsID, args.Body)
	})
}

func (m *MCPServer) handleDeleteAnnouncement(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args newsArgs
	return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
		status, err := m.session.DeleteAnnouncement(ctx, args.OrgUnitID, args.NewsID)
		if err != nil {
			return nil, err
		}
		return statusResult{Status: status}, nil
	})
}
