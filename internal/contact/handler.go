package contact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/powermaps/contact/common"
	"github.com/powermaps/contact/internal/dto"
	"go.uber.org/zap"
)

type Handler struct {
	service ServiceInterface
	log     *zap.Logger
}

func NewHandler(s ServiceInterface, log *zap.Logger) *Handler {
	return &Handler{service: s, log: log}
}

var _ HandlerInterface = (*Handler)(nil)

// Submit handles POST /contact. The body must be exactly one JSON object
// matching the form; anything else is answered with 500, and an oversized
// body with 413.
func (h *Handler) Submit(c *gin.Context) {
	req, err := decodeForm(c.Request.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.Error(common.Errf(http.StatusRequestEntityTooLarge, "request body too large"))
			return
		}

		h.log.Warn("unreadable contact request", zap.Error(err))
		c.Error(common.Errf(http.StatusInternalServerError, "%s", MsgSendFailed))
		return
	}

	resp, err := h.service.Submit(c.Request.Context(), req, dto.ClientMeta{
		RemoteIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Get handles GET /admin/submissions/:id. The response carries the
// submission with the state of its notification email job; an unknown
// id is a 404.
func (h *Handler) Get(c *gin.Context) {
	resp, err := h.service.GetSubmission(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// List handles GET /admin/submissions?limit=&offset=, newest first.
// An absent limit uses the service default; negative or non-numeric
// paging values are rejected with 400.
func (h *Handler) List(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset")
	if !ok {
		return
	}

	subs, err := h.service.ListSubmissions(c.Request.Context(), limit, offset)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, subs)
}

var errMalformedBody = errors.New("malformed request body")

// decodeForm reads a single JSON value from body and requires the input to
// end after it.
func decodeForm(body io.Reader) (*dto.ContactRequest, error) {
	dec := json.NewDecoder(body)

	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, fmt.Errorf("%w: null", errMalformedBody)
	}

	if err := dec.Decode(&json.RawMessage{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return nil, fmt.Errorf("%w: more than one JSON value", errMalformedBody)
		}
		return nil, fmt.Errorf("%w: trailing data: %w", errMalformedBody, err)
	}

	var req dto.ContactRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func queryInt(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.Error(common.NewAPIError(http.StatusBadRequest, "invalid "+key, map[string]any{key: raw}))
		return 0, false
	}
	return n, true
}
