package job

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/powermaps/contact/common"
)

type JobHandler struct {
	service JobServiceInterface
}

func NewJobHandler(s JobServiceInterface) *JobHandler {
	return &JobHandler{service: s}
}

var _ JobHandlerInterface = (*JobHandler)(nil)

// parseID reads the :id path parameter. Anything that is not a positive
// integer is reported as 400 on c.
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil || id < 1 {
		c.Error(common.Errf(http.StatusBadRequest, "Invalid ID"))
		return 0, false
	}
	return uint(id), true
}

// Get handles HTTP requests to fetch a job by its ID.
// It validates the job ID, calls the JobService, and returns
// HTTP 200 with the job data, 400 for a malformed ID or 404 when missing.
func (h *JobHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	resp, err := h.service.GetJobByID(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// List handles HTTP requests to retrieve all jobs for a given queue.
// The queue query parameter is required and must name a known queue;
// jobs are returned oldest first with HTTP 200.
func (h *JobHandler) List(c *gin.Context) {
	queue := c.Query("queue")
	if queue == "" {
		c.Error(common.Errf(http.StatusBadRequest, "queue parameter is required"))
		return
	}

	jobs, err := h.service.ListJobs(c.Request.Context(), queue)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, jobs)
}

// Retry handles HTTP requests to requeue a failed job with a fresh set of
// attempts. It returns HTTP 200 with the updated job, 409 when the job is
// in any other state and 404 when it does not exist.
func (h *JobHandler) Retry(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	resp, err := h.service.Requeue(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
