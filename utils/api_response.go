package utils

import "github.com/gin-gonic/gin"

type ApiResponse struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

func NewApiResponse(status int, data any, message string) ApiResponse {
	if message == "" {
		message = "Success"
	}
	return ApiResponse{StatusCode: status, Data: data, Message: message, Success: status < 400}
}

// Respond writes a success envelope with the given HTTP status.
func Respond(c *gin.Context, status int, data any, message string) {
	c.JSON(status, NewApiResponse(status, data, message))
}

type errorBody struct {
	StatusCode int      `json:"statusCode"`
	Data       any      `json:"data"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
}

// RespondError aborts the request with the JSON error envelope for err.
func RespondError(c *gin.Context, err *ApiError) {
	c.AbortWithStatusJSON(err.StatusCode, errorBody{
		StatusCode: err.StatusCode,
		Data:       nil,
		Message:    err.Message,
		Success:    false,
		Errors:     err.Errors,
	})
}
