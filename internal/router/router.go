package router

import (
	"net/http"

	"Lee_Library/internal/handler"
	"Lee_Library/internal/metrics"
	"Lee_Library/internal/middleware"
	"Lee_Library/internal/pkg"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Options struct {
	Verifier *pkg.TokenVerifier
	// Limiter 为空时不限流
	Limiter *middleware.KeyedLimiter
	Logger  *logrus.Logger

	Community    *handler.CommunityHandler
	Post         *handler.PostHandler
	PostLike     *handler.PostLikeHandler
	Notification *handler.NotificationHandler
}

func InitRouter(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(opts.Logger))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	authed := []gin.HandlerFunc{middleware.AuthMiddleware(opts.Verifier)}
	if opts.Limiter != nil {
		authed = append(authed, middleware.RateLimit(opts.Limiter))
	}

	community, post, like, notify := opts.Community, opts.Post, opts.PostLike, opts.Notification

	// 社区相关接口
	communityGroup := r.Group("/api/community", authed...)
	{
		communityGroup.POST("/create", community.Create)
		communityGroup.GET("/list", community.List)
		communityGroup.GET("/feed", post.Feed)
		communityGroup.GET("/:id", community.Get)
		communityGroup.POST("/:id/join", community.Join)
		communityGroup.POST("/:id/leave", community.Leave)
		communityGroup.GET("/:id/members", community.Members)
		communityGroup.POST("/:id/moderators/assign", community.AssignModerator)
		communityGroup.POST("/:id/moderators/remove", community.RemoveModerator)
		communityGroup.POST("/:id/ban", community.Ban)
		communityGroup.POST("/:id/unban", community.Unban)
		communityGroup.POST("/:id/posts", post.CreatePost)
		communityGroup.GET("/:id/posts", post.ListByCommunity)
	}

	// 帖子相关接口
	postGroup := r.Group("/api/post", authed...)
	{
		postGroup.GET("/:id", post.GetPost)
		postGroup.DELETE("/:id", post.DeletePost)
		postGroup.POST("/:id/like", like.Like)
		postGroup.DELETE("/:id/like", like.Unlike)
		postGroup.GET("/:id/liked", like.IsLiked)
		postGroup.GET("/:id/like-count", like.Count)
		postGroup.POST("/:id/share", like.Share)
		postGroup.POST("/:id/comments", post.AddComment)
		postGroup.GET("/:id/comments", post.ListComments)
	}

	commentGroup := r.Group("/api/comment", authed...)
	{
		commentGroup.DELETE("/:id", post.DeleteComment)
	}

	// 通知相关接口
	notifyGroup := r.Group("/api/notification", authed...)
	{
		notifyGroup.GET("/latest", notify.Latest)
		notifyGroup.POST("/:id/read", notify.MarkRead)
		notifyGroup.GET("/stream", notify.Stream)
	}

	return r
}
