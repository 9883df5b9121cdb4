package handler

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-access/internal/model"
	"github.com/stemsi/exstem-access/internal/response"
	"github.com/stemsi/exstem-access/internal/service"
	"github.com/stemsi/exstem-access/internal/validator"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// TestHandler handles test authoring, code issuing and results for admins.
type TestHandler struct {
	testService    *service.TestService
	catalogService *service.CatalogService
	codeService    *service.AccessCodeService
	resultService  *service.ResultService
	proctorService *service.ProctorService
	log            zerolog.Logger
}

// NewTestHandler creates a new TestHandler.
func NewTestHandler(
	testService *service.TestService,
	catalogService *service.CatalogService,
	codeService *service.AccessCodeService,
	resultService *service.ResultService,
	proctorService *service.ProctorService,
	log zerolog.Logger,
) *TestHandler {
	return &TestHandler{
		testService:    testService,
		catalogService: catalogService,
		codeService:    codeService,
		resultService:  resultService,
		proctorService: proctorService,
		log:            log.With().Str("component", "test_handler").Logger(),
	}
}

// CreateTest godoc
// POST /api/v1/admin/tests
// Creates a test with all of its questions in one step.
func (h *TestHandler) CreateTest(c *gin.Context) {
	var req model.CreateTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	t, err := h.testService.Create(c.Request.Context(), &req)
	if err != nil {
		h.internal(c, err, "Create test failed")
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"test": t})
}

// ListTests godoc
// GET /api/v1/admin/tests
// Lists every test without answer keys.
func (h *TestHandler) ListTests(c *gin.Context) {
	tests, err := h.catalogService.List(c.Request.Context())
	if err != nil {
		h.internal(c, err, "List tests failed")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"tests": tests})
}

// GetTest godoc
// GET /api/v1/admin/tests/:test_id
// Returns the full test record, answer keys included.
func (h *TestHandler) GetTest(c *gin.Context) {
	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	t, err := h.testService.Get(c.Request.Context(), testID)
	if err != nil {
		h.failTest(c, err, "Get test failed")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"test": t})
}

// IssueCode godoc
// POST /api/v1/admin/tests/:test_id/codes
// Issues a single-use access code, optionally expiring after expires_in_hours.
func (h *TestHandler) IssueCode(c *gin.Context) {
	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	var req model.IssueCodeRequest
	if c.Request.ContentLength != 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}

	h.issue(c, testID, req.ExpiresInHours)
}

// GenerateCode godoc
// POST /api/v1/admin/generate-code
// Same as IssueCode with the test ID in the body.
func (h *TestHandler) GenerateCode(c *gin.Context) {
	var req model.GenerateCodeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	h.issue(c, uuid.MustParse(req.TestID), req.ExpiresInHours)
}

func (h *TestHandler) issue(c *gin.Context, testID uuid.UUID, ttlHours *int) {
	ac, err := h.codeService.Issue(c.Request.Context(), testID, ttlHours)
	if err != nil {
		if errors.Is(err, service.ErrCodeGenerationFailed) {
			response.Fail(c, http.StatusServiceUnavailable, response.ErrCodeGenerationFailed)
			return
		}
		h.failTest(c, err, "Issue code failed")
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"access_code": ac})
}

// ListResults godoc
// GET /api/v1/admin/tests/:test_id/results
// Lists graded submissions, most recent first.
func (h *TestHandler) ListResults(c *gin.Context) {
	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	results, err := h.resultService.ListByTest(c.Request.Context(), testID)
	if err != nil {
		h.internal(c, err, "List results failed")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"results": results})
}

// ExportResults godoc
// GET /api/v1/admin/tests/:test_id/results/export
// Downloads the results as an XLSX workbook.
func (h *TestHandler) ExportResults(c *gin.Context) {
	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	name, err := h.resultService.ExportXLSX(c.Request.Context(), testID, &buf)
	if err != nil {
		h.failTest(c, err, "Export results failed")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ProctorTally godoc
// GET /api/v1/admin/codes/:code/proctor
// Returns live proctoring event counts for a code.
func (h *TestHandler) ProctorTally(c *gin.Context) {
	code := service.NormalizeCode(c.Param("code"))
	tally, err := h.proctorService.Tally(c.Request.Context(), code)
	if err != nil {
		h.internal(c, err, "Proctor tally failed")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"code": code, "events": tally})
}

func (h *TestHandler) failTest(c *gin.Context, err error, msg string) {
	if errors.Is(err, service.ErrTestNotFound) {
		response.Fail(c, http.StatusNotFound, response.ErrTestNotFound)
		return
	}
	h.internal(c, err, msg)
}

func (h *TestHandler) internal(c *gin.Context, err error, msg string) {
	h.log.Error().Err(err).Str("request_id", response.RequestID(c)).Msg(msg)
	response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
}

func parseTestID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
