package handler

import (
	"net/http"

	"Lee_Library/internal/middleware"
	"Lee_Library/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type PostLikeHandler struct {
	svc *service.PostLikeService
	log *logrus.Logger
}

type SharePostReq struct {
	CommunityID *uint64 `json:"community_id"`
}

func NewPostLikeHandler(svc *service.PostLikeService, log *logrus.Logger) *PostLikeHandler {
	return &PostLikeHandler{svc: svc, log: log}
}

func (h *PostLikeHandler) Like(c *gin.Context) {
	pid, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.LikePost(c.Request.Context(), middleware.UserID(c), pid); err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "ok"})
}

func (h *PostLikeHandler) Unlike(c *gin.Context) {
	pid, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.UnlikePost(c.Request.Context(), middleware.UserID(c), pid); err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "ok"})
}

// Share 请求体为空表示分享到个人
func (h *PostLikeHandler) Share(c *gin.Context) {
	pid, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req SharePostReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid params")
			return
		}
	}
	share, err := h.svc.SharePost(c.Request.Context(), middleware.UserID(c), pid, req.CommunityID)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "id": share.ID})
}

func (h *PostLikeHandler) IsLiked(c *gin.Context) {
	pid, ok := pathID(c, "id")
	if !ok {
		return
	}
	liked, err := h.svc.IsLiked(c.Request.Context(), middleware.UserID(c), pid)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "liked": liked})
}

func (h *PostLikeHandler) Count(c *gin.Context) {
	pid, ok := pathID(c, "id")
	if !ok {
		return
	}
	cnt, err := h.svc.GetLikeCount(c.Request.Context(), pid)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "count": cnt})
}
