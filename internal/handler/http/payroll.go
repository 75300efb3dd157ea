package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/payroll-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/payroll-backend-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type PayrollHandler interface {
	// Runs
	CreateRun(w http.ResponseWriter, r *http.Request)
	ListRuns(w http.ResponseWriter, r *http.Request)
	GetRun(w http.ResponseWriter, r *http.Request)
	ExportRun(w http.ResponseWriter, r *http.Request)

	// Transitions
	SubmitForReview(w http.ResponseWriter, r *http.Request)
	ApproveReview(w http.ResponseWriter, r *http.Request)
	ApproveFinance(w http.ResponseWriter, r *http.Request)
	Lock(w http.ResponseWriter, r *http.Request)
	Unlock(w http.ResponseWriter, r *http.Request)
	Reject(w http.ResponseWriter, r *http.Request)
	EditRejected(w http.ResponseWriter, r *http.Request)

	// Details
	ListDetails(w http.ResponseWriter, r *http.Request)
	GetPayslip(w http.ResponseWriter, r *http.Request)
	EscalateIrregularity(w http.ResponseWriter, r *http.Request)
	ResolveIrregularity(w http.ResponseWriter, r *http.Request)
}

type payrollHandlerImpl struct {
	payrollService payroll.PayrollService
}

func NewPayrollHandler(payrollService payroll.PayrollService) PayrollHandler {
	return &payrollHandlerImpl{payrollService: payrollService}
}

// ========== RUNS ==========

func (h *payrollHandlerImpl) CreateRun(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req payroll.CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.CreateRun(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Payroll run created", result)
}

func (h *payrollHandlerImpl) ListRuns(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	req := payroll.ListRunsRequest{Page: 1, Limit: 20}
	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if page, err := strconv.Atoi(pageStr); err == nil && page > 0 {
			req.Page = page
		}
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			req.Limit = limit
		}
	}
	if period := query.Get("period"); period != "" {
		req.Period = &period
	}
	if entityID := query.Get("entity_id"); entityID != "" {
		req.EntityID = &entityID
	}
	if status := query.Get("status"); status != "" {
		req.Status = &status
	}

	result, err := h.payrollService.ListRuns(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Runs, &response.Meta{
		Page:       result.Page,
		Limit:      result.Limit,
		TotalItems: result.TotalCount,
		TotalPages: result.TotalPages,
	})
}

func (h *payrollHandlerImpl) GetRun(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	result, err := h.payrollService.GetRun(r.Context(), actor, chi.URLParam(r, "runID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) ExportRun(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	runID := chi.URLParam(r, "runID")
	data, err := h.payrollService.ExportRun(r.Context(), actor, runID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="payroll-register-%s.xlsx"`, runID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ========== TRANSITIONS ==========

type runTransition func(ctx context.Context, actor user.Actor, req payroll.TransitionRequest) (payroll.RunResponse, error)

func (h *payrollHandlerImpl) SubmitForReview(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Payroll run submitted for review", h.payrollService.SubmitForReview)
}

func (h *payrollHandlerImpl) ApproveReview(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Payroll run review approved", h.payrollService.ApproveReview)
}

func (h *payrollHandlerImpl) ApproveFinance(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Payroll run approved", h.payrollService.ApproveFinance)
}

func (h *payrollHandlerImpl) Lock(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Payroll run locked", h.payrollService.Lock)
}

func (h *payrollHandlerImpl) Unlock(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Payroll run unlocked", h.payrollService.Unlock)
}

func (h *payrollHandlerImpl) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Payroll run rejected", h.payrollService.Reject)
}

func (h *payrollHandlerImpl) EditRejected(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Payroll run reopened", h.payrollService.EditRejected)
}

func (h *payrollHandlerImpl) transition(w http.ResponseWriter, r *http.Request, message string, op runTransition) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req payroll.TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.RunID = chi.URLParam(r, "runID")

	result, err := op(r.Context(), actor, req)
	if err != nil {
		if errors.Is(err, payroll.ErrRunProcessingFailed) && result.ID != "" {
			response.ProcessingFailed(w, err, result)
			return
		}
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, message, result)
}

// ========== DETAILS ==========

func (h *payrollHandlerImpl) ListDetails(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	result, err := h.payrollService.ListDetails(r.Context(), actor, chi.URLParam(r, "runID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) GetPayslip(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	result, err := h.payrollService.GetPayslip(r.Context(), actor, chi.URLParam(r, "runID"), chi.URLParam(r, "employeeID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) EscalateIrregularity(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req payroll.EscalateIrregularityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.DetailID = chi.URLParam(r, "detailID")
	req.IrregularityID = chi.URLParam(r, "irregularityID")

	result, err := h.payrollService.EscalateIrregularity(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Irregularity escalated", result)
}

func (h *payrollHandlerImpl) ResolveIrregularity(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req payroll.ResolveIrregularityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.DetailID = chi.URLParam(r, "detailID")
	req.IrregularityID = chi.URLParam(r, "irregularityID")

	result, err := h.payrollService.ResolveIrregularity(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Irregularity resolved", result)
}

func requireActor(w http.ResponseWriter, r *http.Request) (user.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing actor")
		return user.Actor{}, false
	}
	return actor, true
}
