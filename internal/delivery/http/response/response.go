package response

import (
	"time"

	"github.com/gin-gonic/gin"
)

// Response standardizes the API JSON response
type Response struct {
	Success     bool           `json:"success"`
	Message     string         `json:"message"`
	ReferenceID string         `json:"referenceId,omitempty"`
	EmailSent   *bool          `json:"emailSent,omitempty"`
	Warning     string         `json:"warning,omitempty"`
	Errors      []string       `json:"errors,omitempty"`
	Code        string         `json:"code,omitempty"`
	Timestamp   string         `json:"timestamp"`
	RequestID   string         `json:"requestId,omitempty"`
	Debug       map[string]any `json:"debug,omitempty"`
}

// JSON fills in the timestamp and request id and writes resp.
func JSON(c *gin.Context, code int, resp Response) {
	resp.Timestamp = time.Now().UTC().Format(time.RFC3339)
	resp.RequestID = RequestID(c)
	c.JSON(code, resp)
}

// Success sends a success response
func Success(c *gin.Context, code int, message string) {
	JSON(c, code, Response{Success: true, Message: message})
}

// Error sends an error response
func Error(c *gin.Context, code int, message string, errs []string) {
	JSON(c, code, Response{Success: false, Message: message, Errors: errs})
}

// RequestID returns the id assigned by the RequestID middleware.
func RequestID(c *gin.Context) string {
	reqID, _ := c.Get("RequestID")
	idStr, _ := reqID.(string) // Safe type assertion
	return idStr
}

func Bool(b bool) *bool { return &b }
