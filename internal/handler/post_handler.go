package handler

import (
	"net/http"

	"Lee_Library/internal/middleware"
	"Lee_Library/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type PostHandler struct {
	svc *service.PostService
	log *logrus.Logger
}

type CreatePostReq struct {
	Content  string `json:"content" binding:"required"`
	ImageURL string `json:"image_url"`
}

type CreateCommentReq struct {
	Content  string `json:"content" binding:"required"`
	ImageURL string `json:"image_url"`
}

func NewPostHandler(svc *service.PostService, log *logrus.Logger) *PostHandler {
	return &PostHandler{svc: svc, log: log}
}

// CreatePost 创建帖子接口，社区 id 在路径上
func (h *PostHandler) CreatePost(c *gin.Context) {
	communityID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req CreatePostReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}

	post, err := h.svc.CreatePost(c.Request.Context(), middleware.UserID(c), communityID, req.Content, req.ImageURL)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "id": post.ID, "post": post})
}

func (h *PostHandler) GetPost(c *gin.Context) {
	postID, ok := pathID(c, "id")
	if !ok {
		return
	}
	post, err := h.svc.GetPost(c.Request.Context(), middleware.UserID(c), postID)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "post": post})
}

// ListByCommunity 社区帖子列表，页码分页
func (h *PostHandler) ListByCommunity(c *gin.Context) {
	communityID, ok := pathID(c, "id")
	if !ok {
		return
	}
	page, size := pageQuery(c)
	list, err := h.svc.ListCommunityPosts(c.Request.Context(), middleware.UserID(c), communityID, page, size)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "list": list})
}

// Feed 全站帖子
func (h *PostHandler) Feed(c *gin.Context) {
	page, size := pageQuery(c)
	list, err := h.svc.ListAllPosts(c.Request.Context(), middleware.UserID(c), page, size)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "list": list})
}

func (h *PostHandler) DeletePost(c *gin.Context) {
	postID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeletePost(c.Request.Context(), middleware.UserID(c), postID); err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "ok"})
}

func (h *PostHandler) AddComment(c *gin.Context) {
	postID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req CreateCommentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}

	comment, err := h.svc.AddComment(c.Request.Context(), middleware.UserID(c), postID, req.Content, req.ImageURL)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "id": comment.ID, "comment": comment})
}

func (h *PostHandler) ListComments(c *gin.Context) {
	postID, ok := pathID(c, "id")
	if !ok {
		return
	}
	list, err := h.svc.ListPostComments(c.Request.Context(), postID)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "list": list})
}

func (h *PostHandler) DeleteComment(c *gin.Context) {
	commentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteComment(c.Request.Context(), middleware.UserID(c), commentID); err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "ok"})
}
