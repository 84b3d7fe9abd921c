package handler

import (
	"errors"
	"net/http"
	"strconv"

	apperr "Lee_Library/internal/errors"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// fail 业务错误按错误码映射状态码；内部错误只记日志，不把原因返回给客户端
func fail(c *gin.Context, log *logrus.Logger, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) || e.Code == apperr.CodeInternal {
		log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"code": 1, "error": apperr.CodeInternal, "msg": "internal error"})
		return
	}
	body := gin.H{"code": 1, "error": e.Code, "msg": e.Message}
	if e.Details != nil {
		body["details"] = e.Details
	}
	c.JSON(e.HTTPStatus(), body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"code": 1, "error": apperr.CodeValidation, "msg": msg})
}

// pathID 解析路径参数里的 id，失败时已写好 400
func pathID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

func pageQuery(c *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(c.Query("page"))
	size, _ = strconv.Atoi(c.Query("size"))
	return page, size
}
