package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"dispatch/internal/http/middleware"
	"dispatch/internal/services"
)

// PostAction handles a structured action request.
func (a *API) PostAction(c *gin.Context) {
	var req services.ActionRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	req.UserID = middleware.UserID(c)
	respondAction(c, a.actions(c).Request(c.Request.Context(), req))
}

// PostCommand handles a natural-language command.
func (a *API) PostCommand(c *gin.Context) {
	var req services.CommandRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	req.UserID = middleware.UserID(c)
	respondAction(c, a.actions(c).Command(c.Request.Context(), a.Parser, req))
}

func (a *API) GetSession(c *gin.Context) {
	sess, err := a.actions(c).Session(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "session": sess})
}

type confirmRequest struct {
	Approve *bool `json:"approve"`
}

// ConfirmSession approves or discards a pending action.
func (a *API) ConfirmSession(c *gin.Context) {
	var req confirmRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if req.Approve == nil {
		RespondError(c, http.StatusBadRequest, "MissingParameter", "approve wajib diisi")
		return
	}
	resp, err := a.actions(c).Confirm(c.Request.Context(), c.Param("id"), *req.Approve)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
