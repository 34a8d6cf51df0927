package v1

import (
	"net/http"
	"strconv"
	"time"

	"almeone-contact-api/internal/delivery/http/response"
	"almeone-contact-api/internal/domain"
	"almeone-contact-api/internal/usecase"
	"almeone-contact-api/pkg/apperror"
	"almeone-contact-api/pkg/ratelimit"

	"github.com/gin-gonic/gin"
)

const (
	maxBodyBytes = 64 << 10

	MsgInvalidBody      = "Invalid request body"
	WarnPartialDelivery = "Partial email delivery"
)

type ContactHandler struct {
	contactUC domain.ContactUsecase
}

// NewContactHandler registers the contact routes (public, no auth required)
func NewContactHandler(public *gin.RouterGroup, contactUC domain.ContactUsecase) {
	handler := &ContactHandler{
		contactUC: contactUC,
	}

	public.POST("/contact", handler.SubmitContact)
	// Preflight is answered by the CORS middleware; this keeps the route
	// visible for clients that send OPTIONS without an Origin.
	public.OPTIONS("/contact", func(c *gin.Context) { c.Status(http.StatusOK) })
}

// SubmitContact godoc
// @Summary      Submit Contact Form
// @Description  Relays a website contact form submission to the operator mailbox and acknowledges the submitter.
// @Tags         contact
// @Accept       json
// @Produce      json
// @Param        contact  body      domain.SubmissionRequest  true  "Contact Form Data"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Failure      429      {object}  response.Response
// @Failure      500      {object}  response.Response
// @Router       /contact [post]
func (h *ContactHandler) SubmitContact(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	var req domain.SubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest(MsgInvalidBody))
		return
	}

	meta := domain.RequestMeta{
		ClientIP:  ratelimit.ClientKey(c.Request),
		UserAgent: c.Request.UserAgent(),
		Origin:    c.GetHeader("Origin"),
		RequestID: response.RequestID(c),
	}

	res, err := h.contactUC.Submit(c.Request.Context(), req, meta)
	if err != nil {
		c.Error(err)
		return
	}

	setRateLimitHeaders(c, res.RateLimit)

	resp := response.Response{
		Success:     true,
		Message:     usecase.MsgSuccess,
		ReferenceID: res.ReferenceID,
		EmailSent:   response.Bool(res.Delivery == domain.DeliveryFull),
	}
	if res.Delivery == domain.DeliveryPartial {
		resp.Message = usecase.MsgPartialSuccess
		resp.Warning = WarnPartialDelivery
	}
	response.JSON(c, http.StatusOK, resp)
}

func setRateLimitHeaders(c *gin.Context, d domain.RateLimitDecision) {
	if d.Limit == 0 {
		return
	}
	c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	c.Header("X-RateLimit-Reset", d.ResetAt.UTC().Format(time.RFC3339))
}
