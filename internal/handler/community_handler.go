package handler

import (
	"context"
	"net/http"

	"Lee_Library/internal/middleware"
	"Lee_Library/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type CommunityHandler struct {
	svc *service.CommunityService
	log *logrus.Logger
}

type CommunityCreateReq struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type TargetUserReq struct {
	UserID uint64 `json:"user_id" binding:"required"`
}

func NewCommunityHandler(svc *service.CommunityService, log *logrus.Logger) *CommunityHandler {
	return &CommunityHandler{svc: svc, log: log}
}

func (h *CommunityHandler) Create(c *gin.Context) {
	var req CommunityCreateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}

	community, err := h.svc.CreateCommunity(c.Request.Context(), middleware.UserID(c), req.Name, req.Description)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":        0,
		"id":          community.ID,
		"name":        community.Name,
		"description": community.Description,
	})
}

func (h *CommunityHandler) Get(c *gin.Context) {
	communityID, ok := pathID(c, "id")
	if !ok {
		return
	}
	view, err := h.svc.GetCommunity(c.Request.Context(), middleware.UserID(c), communityID)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "community": view})
}

func (h *CommunityHandler) List(c *gin.Context) {
	page, size := pageQuery(c)
	list, err := h.svc.ListCommunities(c.Request.Context(), page, size)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "list": list})
}

func (h *CommunityHandler) Join(c *gin.Context) {
	communityID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.JoinCommunity(c.Request.Context(), middleware.UserID(c), communityID); err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "ok"})
}

func (h *CommunityHandler) Leave(c *gin.Context) {
	communityID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.LeaveCommunity(c.Request.Context(), middleware.UserID(c), communityID); err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "ok"})
}

func (h *CommunityHandler) Members(c *gin.Context) {
	communityID, ok := pathID(c, "id")
	if !ok {
		return
	}
	members, err := h.svc.ListMembers(c.Request.Context(), communityID)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "list": members})
}

func (h *CommunityHandler) AssignModerator(c *gin.Context) {
	h.moderate(c, h.svc.AssignModerator)
}

func (h *CommunityHandler) RemoveModerator(c *gin.Context) {
	h.moderate(c, h.svc.RemoveModerator)
}

// target 解析社区 id 和请求体里的目标用户
func (h *CommunityHandler) target(c *gin.Context) (communityID, targetID uint64, ok bool) {
	if communityID, ok = pathID(c, "id"); !ok {
		return 0, 0, false
	}
	var req TargetUserReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return 0, 0, false
	}
	return communityID, req.UserID, true
}

func (h *CommunityHandler) moderate(c *gin.Context, op func(ctx context.Context, requesterID, communityID, targetID uint64) error) {
	communityID, targetID, ok := h.target(c)
	if !ok {
		return
	}
	if err := op(c.Request.Context(), middleware.UserID(c), communityID, targetID); err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "ok"})
}

func (h *CommunityHandler) Ban(c *gin.Context) {
	communityID, targetID, ok := h.target(c)
	if !ok {
		return
	}
	removed, err := h.svc.BanUser(c.Request.Context(), middleware.UserID(c), communityID, targetID)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "changed": removed})
}

func (h *CommunityHandler) Unban(c *gin.Context) {
	communityID, targetID, ok := h.target(c)
	if !ok {
		return
	}
	added, err := h.svc.UnbanUser(c.Request.Context(), middleware.UserID(c), communityID, targetID)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "changed": added})
}
