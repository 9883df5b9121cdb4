package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-access/internal/model"
	"github.com/stemsi/exstem-access/internal/response"
	"github.com/stemsi/exstem-access/internal/service"
	"github.com/stemsi/exstem-access/internal/validator"
)

// CandidateHandler serves the unauthenticated exam endpoints. The access
// code is the only credential.
type CandidateHandler struct {
	examService *service.ExamService
	log         zerolog.Logger
}

// NewCandidateHandler creates a new CandidateHandler.
func NewCandidateHandler(examService *service.ExamService, log zerolog.Logger) *CandidateHandler {
	return &CandidateHandler{
		examService: examService,
		log:         log.With().Str("component", "candidate_handler").Logger(),
	}
}

// VerifyCode godoc
// POST /api/v1/test/verify-code
// Returns the test bound to an unused, unexpired code without answer keys.
// The code is not consumed.
func (h *CandidateHandler) VerifyCode(c *gin.Context) {
	var req model.VerifyCodeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	resp, err := h.examService.VerifyCode(c.Request.Context(), req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCodeNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrCodeNotFound)
		case errors.Is(err, service.ErrCodeExpired):
			response.Fail(c, http.StatusBadRequest, response.ErrCodeExpired)
		case errors.Is(err, service.ErrTestNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrTestNotFound)
		case errors.Is(err, service.ErrTestNotDeliverable):
			response.Fail(c, http.StatusConflict, response.ErrTestNotDeliverable)
		default:
			h.log.Error().Err(err).Str("request_id", response.RequestID(c)).Msg("Verify code failed")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, resp)
}

// SubmitExam godoc
// POST /api/v1/test/submit
// Grades the attempt, consumes the code and returns the stored result.
func (h *CandidateHandler) SubmitExam(c *gin.Context) {
	var req model.SubmitExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.examService.Submit(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCodeNotFound):
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidOrUsedCode)
		case errors.Is(err, service.ErrCodeAlreadyUsed):
			response.Fail(c, http.StatusConflict, response.ErrInvalidOrUsedCode)
		case errors.Is(err, service.ErrTestNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrTestNotFound)
		default:
			h.log.Error().Err(err).Str("request_id", response.RequestID(c)).Msg("Submit failed")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, result)
}
