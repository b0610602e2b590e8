package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/projecthub-api/internal/dto"
	apierrors "github.com/yukikurage/projecthub-api/internal/errors"
	"github.com/yukikurage/projecthub-api/internal/middleware"
	"github.com/yukikurage/projecthub-api/internal/models"
	"github.com/yukikurage/projecthub-api/internal/services"
)

// InviteHandler coordinates project invite HTTP handlers.
type InviteHandler struct {
	inviteService *services.InviteService
}

// NewInviteHandler creates a new InviteHandler.
func NewInviteHandler(inviteService *services.InviteService) *InviteHandler {
	return &InviteHandler{
		inviteService: inviteService,
	}
}

// Invite issues a project invite for an email address.
func (h *InviteHandler) Invite(c *gin.Context) {
	userID, projectID, ok := projectRequest(c)
	if !ok {
		return
	}

	type InviteRequest struct {
		Email string             `json:"email" binding:"required"`
		Role  models.ProjectRole `json:"role"`
	}

	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	invite, err := h.inviteService.Invite(userID, projectID, services.InviteInput{
		Email: req.Email,
		Role:  req.Role,
	})
	if err != nil {
		respondInviteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToInviteDTO(*invite))
}

// AcceptInvite redeems an invite token for the current user.
func (h *InviteHandler) AcceptInvite(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	token := c.Param("token")

	invite, err := h.inviteService.AcceptInvite(userID, token)
	if err != nil {
		respondInviteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Invite accepted",
		"project_id": invite.ProjectID,
	})
}

func respondInviteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidInviteEmail),
		errors.Is(err, services.ErrInvalidInviteRole),
		errors.Is(err, services.ErrInviteAlreadyAccepted),
		errors.Is(err, services.ErrInviteExpired):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrDuplicatePendingInvite):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrNotProjectMember),
		errors.Is(err, services.ErrInsufficientRole):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrInviteNotFound),
		errors.Is(err, services.ErrProjectNotFound):
		apierrors.NotFound(c, err.Error())
	default:
		apierrors.InternalError(c, "")
	}
}
