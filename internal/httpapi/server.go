// Package httpapi exposes the taskhub services over HTTP/JSON.
package httpapi

import (
	"io"
	"mime/multipart"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/otabek-dev/taskhub/internal/models"
	"github.com/otabek-dev/taskhub/internal/services"
	"github.com/otabek-dev/taskhub/internal/token"
)

// Server wires the service layer into a gin router.
type Server struct {
	sessions    *services.SessionService
	accounts    *services.AccountService
	users       *services.UserService
	projects    *services.ProjectService
	tasks       *services.TaskService
	subtasks    *services.SubtaskService
	comments    *services.CommentService
	tags        *services.TagService
	attachments *services.AttachmentService
	tokens      *token.Manager
	log         *zap.SugaredLogger

	secureCookies bool
}

type Deps struct {
	Sessions    *services.SessionService
	Accounts    *services.AccountService
	Users       *services.UserService
	Projects    *services.ProjectService
	Tasks       *services.TaskService
	Subtasks    *services.SubtaskService
	Comments    *services.CommentService
	Tags        *services.TagService
	Attachments *services.AttachmentService
	Tokens      *token.Manager
	Log         *zap.SugaredLogger

	// SecureCookies marks the refresh cookie Secure; set for HTTPS
	// deployments.
	SecureCookies bool
}

func NewServer(d Deps) *Server {
	return &Server{
		sessions:    d.Sessions,
		accounts:    d.Accounts,
		users:       d.Users,
		projects:    d.Projects,
		tasks:       d.Tasks,
		subtasks:    d.Subtasks,
		comments:    d.Comments,
		tags:        d.Tags,
		attachments: d.Attachments,
		tokens:      d.Tokens,
		log:         d.Log,

		secureCookies: d.SecureCookies,
	}
}

// Router builds the full route table under /api.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(s.recovery(), s.requestLogger())

	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/signup", s.handleSignUp)
		auth.POST("/signin", s.handleSignIn)
		auth.POST("/refresh", s.handleRefresh)
		auth.POST("/signout", s.requireAuth(), s.handleSignOut)
		auth.POST("/forgot-password", s.handleForgotPassword)
		auth.POST("/reset-password/:token", s.handleResetPassword)
		auth.POST("/request-reactivation", s.handleRequestReactivation)
		auth.GET("/confirm-reactivation/:token", s.handleConfirmReactivation)
		auth.POST("/change-password", s.requireAuth(), s.handleChangePassword)
	}

	users := api.Group("/users")
	{
		users.GET("/activate/:code", s.handleActivate)
		users.GET("/confirm-email-change", s.handleConfirmEmailChange)

		users.GET("/me", s.requireAuth(), s.handleGetMe)
		users.PATCH("/me", s.requireAuth(), s.handleUpdateProfile)
		users.DELETE("/me", s.requireAuth(), s.handleDeactivateSelf)
		users.POST("/request-email-change", s.requireAuth(), s.handleRequestEmailChange)

		admin := users.Group("", s.requireAuth(),
			s.requireGlobalRole(models.RoleAdmin, models.RoleSuperAdmin))
		{
			admin.POST("", s.handleCreateUser)
			admin.GET("", s.handleListUsers)
			admin.GET("/admins", s.handleListAdmins)
			admin.GET("/regular", s.handleListPlainUsers)
			admin.GET("/:id", s.handleGetUser)
			admin.PATCH("/:id/role", s.requireGlobalRole(models.RoleSuperAdmin), s.handleUpdateRole)
			admin.PATCH("/:id/password", s.handleAdminResetPassword)
			admin.DELETE("/:id", s.handleDeactivateUser)
		}
	}

	projects := api.Group("/projects", s.requireAuth())
	{
		projects.POST("", s.handleCreateProject)
		projects.GET("", s.handleListProjects)
		projects.GET("/:projectID", s.handleGetProject)
		projects.PATCH("/:projectID", s.handleUpdateProject)
		projects.DELETE("/:projectID", s.handleDeleteProject)

		projects.POST("/:projectID/members", s.handleAddMember)
		projects.GET("/:projectID/members", s.handleListMembers)
		projects.PATCH("/:projectID/members/:userID", s.handleUpdateMemberRole)
		projects.DELETE("/:projectID/members/:userID", s.handleRemoveMember)

		projects.POST("/:projectID/tasks", s.handleCreateTask)
		projects.GET("/:projectID/tasks", s.handleListTasks)
	}

	tasks := api.Group("/tasks", s.requireAuth())
	{
		tasks.GET("/:taskID", s.handleGetTask)
		tasks.PATCH("/:taskID", s.handleUpdateTask)
		tasks.DELETE("/:taskID", s.handleDeleteTask)
		tasks.GET("/:taskID/tags", s.handleListTaskTags)

		tasks.POST("/:taskID/subtasks", s.handleCreateSubtask)
		tasks.GET("/:taskID/subtasks", s.handleListSubtasks)

		tasks.POST("/:taskID/comments", s.handleCreateComment)
		tasks.GET("/:taskID/comments", s.handleListComments)

		tasks.POST("/:taskID/attachments", s.handleUploadAttachment)
		tasks.GET("/:taskID/attachments", s.handleListAttachments)
	}

	api.PATCH("/subtasks/:subtaskID", s.requireAuth(), s.handleUpdateSubtask)
	api.DELETE("/subtasks/:subtaskID", s.requireAuth(), s.handleDeleteSubtask)

	api.PATCH("/comments/:commentID", s.requireAuth(), s.handleUpdateComment)
	api.DELETE("/comments/:commentID", s.requireAuth(), s.handleDeleteComment)

	api.DELETE("/attachments/:attachmentID", s.requireAuth(), s.handleDeleteAttachment)

	tags := api.Group("/tags", s.requireAuth())
	{
		tags.POST("", s.handleCreateTag)
		tags.GET("", s.handleListTags)
		tags.GET("/:tagID", s.handleGetTag)
		tags.PATCH("/:tagID", s.handleUpdateTag)
		tags.DELETE("/:tagID", s.handleDeleteTag)
	}

	return r
}

// fileFromForm reads an optional multipart file field. A missing field
// returns (nil, nil).
func fileFromForm(c *gin.Context, field string) (*services.FileUpload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, nil
	}
	return readUpload(fh)
}

func readUpload(fh *multipart.FileHeader) (*services.FileUpload, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &services.FileUpload{
		Data:        data,
		ContentType: fh.Header.Get("Content-Type"),
		FileName:    fh.Filename,
	}, nil
}
