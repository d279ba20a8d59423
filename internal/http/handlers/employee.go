package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/attrition-backend/internal/data/repos"
	types "github.com/yungbote/attrition-backend/internal/domain"
	"github.com/yungbote/attrition-backend/internal/http/response"
	"github.com/yungbote/attrition-backend/internal/platform/apierr"
	"github.com/yungbote/attrition-backend/internal/platform/dbctx"
	"github.com/yungbote/attrition-backend/internal/services"
)

type EmployeeHandler struct {
	ingestion services.IngestionService
	reporting services.ReportingService
}

func NewEmployeeHandler(ingestion services.IngestionService, reporting services.ReportingService) *EmployeeHandler {
	return &EmployeeHandler{ingestion: ingestion, reporting: reporting}
}

// POST /api/feedback
func (h *EmployeeHandler) SubmitFeedback(c *gin.Context) {
	var req types.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	in, err := services.FeedbackAttributes(req)
	if err != nil {
		response.RespondErr(c, err, http.StatusBadRequest, "invalid_input")
		return
	}
	res, err := h.ingestion.SubmitFeedback(dbctx.Context{Ctx: c.Request.Context()}, in)
	if err != nil {
		response.RespondErr(c, err, http.StatusInternalServerError, "feedback_failed")
		return
	}
	c.JSON(http.StatusCreated, res)
}

// POST /api/uploads/csv (multipart, field "file")
func (h *EmployeeHandler) UploadCSV(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", fmt.Errorf("multipart field \"file\" is required: %w", err))
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}
	defer f.Close()

	res, err := h.ingestion.UploadCSV(dbctx.Context{Ctx: c.Request.Context()}, f)
	if err != nil {
		response.RespondErr(c, err, http.StatusInternalServerError, "upload_failed")
		return
	}
	response.RespondOK(c, res)
}

// GET /api/employees
func (h *EmployeeHandler) List(c *gin.Context) {
	f, err := filterFromQuery(c)
	if err != nil {
		response.RespondErr(c, err, http.StatusBadRequest, "invalid_query")
		return
	}
	page, err := h.reporting.List(dbctx.Context{Ctx: c.Request.Context()}, f)
	if err != nil {
		response.RespondErr(c, err, http.StatusInternalServerError, "list_failed")
		return
	}
	response.RespondOK(c, page)
}

// GET /api/employees/:employee_id
func (h *EmployeeHandler) Get(c *gin.Context) {
	e, err := h.reporting.Get(dbctx.Context{Ctx: c.Request.Context()}, c.Param("employee_id"))
	if err != nil {
		response.RespondErr(c, err, http.StatusInternalServerError, "get_failed")
		return
	}
	response.RespondOK(c, gin.H{"employee": e})
}

// GET /api/employees/export
func (h *EmployeeHandler) Export(c *gin.Context) {
	f, err := filterFromQuery(c)
	if err != nil {
		response.RespondErr(c, err, http.StatusBadRequest, "invalid_query")
		return
	}
	name := fmt.Sprintf("employees-%s.csv", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Status(http.StatusOK)
	if _, err := h.reporting.ExportCSV(dbctx.Context{Ctx: c.Request.Context()}, f, c.Writer); err != nil {
		// Headers are already sent; record the failure for the request log.
		_ = c.Error(err)
	}
}

// GET /api/reports/summary
func (h *EmployeeHandler) Summary(c *gin.Context) {
	f, err := filterFromQuery(c)
	if err != nil {
		response.RespondErr(c, err, http.StatusBadRequest, "invalid_query")
		return
	}
	s, err := h.reporting.Summary(dbctx.Context{Ctx: c.Request.Context()}, f)
	if err != nil {
		response.RespondErr(c, err, http.StatusInternalServerError, "summary_failed")
		return
	}
	response.RespondOK(c, gin.H{"summary": s})
}

// filterFromQuery reads gender, marital_status, data_source, risk_category,
// attrition (0|1), retained (bool), q, limit and offset.
func filterFromQuery(c *gin.Context) (repos.EmployeeFilter, error) {
	f := repos.EmployeeFilter{
		Gender:        c.Query("gender"),
		MaritalStatus: c.Query("marital_status"),
		DataSource:    c.Query("data_source"),
		RiskCategory:  c.Query("risk_category"),
		Search:        c.Query("q"),
	}
	var errs []string
	intParam := func(name string) *int {
		raw := strings.TrimSpace(c.Query(name))
		if raw == "" {
			return nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			errs = append(errs, fmt.Sprintf("%s must be a non-negative integer", name))
			return nil
		}
		return &n
	}
	if v := intParam("attrition"); v != nil {
		if *v > 1 {
			errs = append(errs, "attrition must be 0 or 1")
		} else {
			f.Attrition = v
		}
	}
	if raw := strings.TrimSpace(c.Query("retained")); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, "retained must be a boolean")
		} else {
			f.Retained = &b
		}
	}
	if v := intParam("limit"); v != nil {
		f.Limit = *v
	}
	if v := intParam("offset"); v != nil {
		f.Offset = *v
	}
	if len(errs) > 0 {
		return f, apierr.BadRequest("invalid_query", errors.New(strings.Join(errs, "; ")))
	}
	return f, nil
}
