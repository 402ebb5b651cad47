package response

import "github.com/gin-gonic/gin"

const (
	CodeOK                  = 0
	CodeBadRequest          = 40000
	CodeDocumentFailed      = 40001
	CodeUnauthorized        = 40100
	CodeChatNotFound        = 40401
	CodeDocumentNotFound    = 40402
	CodeCategoryNotFound    = 40403
	CodeCategoryExists      = 40901
	CodeFileTooLarge        = 41300
	CodeUnsupportedFileType = 41500
	CodeTooManyRequests     = 42900
	CodeInternalServer      = 50000
)

type APIResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(200, APIResponse{
		Code:    CodeOK,
		Message: "ok",
		Data:    data,
	})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}
