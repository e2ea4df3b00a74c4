package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jcondon11/lilibet-backend/internal/data/repos"
	"github.com/jcondon11/lilibet-backend/internal/http/response"
	"github.com/jcondon11/lilibet-backend/internal/modules/tutor"
	"github.com/jcondon11/lilibet-backend/internal/pkg/ctxutil"
	"github.com/jcondon11/lilibet-backend/internal/pkg/dbctx"
)

type UserHandler struct {
	userRepo repos.UserRepo
}

func NewUserHandler(userRepo repos.UserRepo) *UserHandler {
	return &UserHandler{userRepo: userRepo}
}

// GET /me
func (uh *UserHandler) GetMe(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing identity"))
		return
	}
	users, err := uh.userRepo.GetByIDs(dbctx.Context{Ctx: c.Request.Context()}, []uuid.UUID{rd.UserID})
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "fetch_me_failed", err)
		return
	}
	if len(users) == 0 {
		response.RespondError(c, http.StatusNotFound, "not_found", fmt.Errorf("user not found"))
		return
	}
	response.RespondOK(c, gin.H{"me": users[0]})
}

// PATCH /me/level
// body: { "default_level": "elementary" | "middle" | "high" | "advanced" }
func (uh *UserHandler) ChangeDefaultLevel(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing identity"))
		return
	}
	var req struct {
		DefaultLevel string `json:"default_level"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	level := tutor.NormalizeLevel(req.DefaultLevel)
	if err := uh.userRepo.UpdateFields(dbctx.Context{Ctx: c.Request.Context()}, rd.UserID, map[string]interface{}{
		"default_level": string(level),
	}); err != nil {
		response.RespondError(c, http.StatusInternalServerError, "change_level_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true, "default_level": string(level)})
}
