package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vanshika/creditscore/internal/domain"
	"github.com/vanshika/creditscore/internal/scoreapi"
	"github.com/vanshika/creditscore/internal/service"
)

const maxRequestBytes = 64 << 10

// ScoreBackend is the action contract served on the credit-score endpoint.
type ScoreBackend interface {
	CheckScore(ctx context.Context, req domain.CheckScoreRequest) (domain.ScoreOutcome, error)
	VerifyOTP(ctx context.Context, sessionID, code string) error
	Subscribe(ctx context.Context, userID string, planID domain.PlanID, paymentID string) (domain.Subscription, error)
	GetReport(ctx context.Context, userID string) (domain.Report, error)
}

// APIHandlers exposes HTTP handlers for the REST API.
type APIHandlers struct {
	logger  *slog.Logger
	backend ScoreBackend
	metrics *Metrics
}

// NewAPIHandlers constructs an APIHandlers instance. metrics may be nil.
func NewAPIHandlers(logger *slog.Logger, backend ScoreBackend, metrics *Metrics) *APIHandlers {
	return &APIHandlers{
		logger:  logger,
		backend: backend,
		metrics: metrics,
	}
}

func (h *APIHandlers) handleAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req scoreapi.Request
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := decodeJSON(r, &req); err != nil {
		h.metrics.observeAction("invalid", "error")
		writeFailure(w, http.StatusBadRequest, domain.CodeValidation, "invalid request body: "+err.Error())
		return
	}

	action := strings.TrimSpace(req.Action)
	resp, err := h.dispatch(r.Context(), action, req)
	if err != nil {
		status, code, msg := classify(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("action failed", "action", action, "error", err)
		} else {
			h.logger.Info("action rejected", "action", action, "code", code, "error", err)
		}
		h.metrics.observeAction(action, "error")
		writeFailure(w, status, code, msg)
		return
	}

	h.metrics.observeAction(action, "success")
	resp.Success = true
	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) dispatch(ctx context.Context, action string, req scoreapi.Request) (scoreapi.Response, error) {
	switch action {
	case domain.ActionCheckScore:
		outcome, err := h.backend.CheckScore(ctx, domain.CheckScoreRequest{
			Form:        req.Form(),
			Consent:     req.Consent,
			OTPVerified: req.OTPVerified,
			SessionID:   req.SessionID,
		})
		if err != nil {
			return scoreapi.Response{}, err
		}
		switch o := outcome.(type) {
		case domain.ScoreReady:
			score := o.CreditScore
			return scoreapi.Response{CreditScore: &score}, nil
		case domain.OTPChallenge:
			return scoreapi.Response{OTPRequired: true, SessionID: o.SessionID}, nil
		default:
			return scoreapi.Response{}, fmt.Errorf("unexpected check score outcome %T", outcome)
		}

	case domain.ActionVerifyOTP:
		if err := h.backend.VerifyOTP(ctx, req.SessionID, req.OTP); err != nil {
			return scoreapi.Response{}, err
		}
		return scoreapi.Response{}, nil

	case domain.ActionSubscribe:
		sub, err := h.backend.Subscribe(ctx, req.UserID, domain.PlanID(req.PlanID), req.PaymentID)
		if err != nil {
			return scoreapi.Response{}, err
		}
		return scoreapi.Response{Subscription: &sub}, nil

	case domain.ActionGetReport:
		report, err := h.backend.GetReport(ctx, req.UserID)
		if err != nil {
			return scoreapi.Response{}, err
		}
		return scoreapi.Response{Report: &report}, nil

	default:
		return scoreapi.Response{}, errUnknownAction{action: action}
	}
}

func (h *APIHandlers) handlePlans(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"plans": domain.Plans()})
}

type errUnknownAction struct {
	action string
}

func (e errUnknownAction) Error() string {
	return fmt.Sprintf("unknown action %q", e.action)
}

// classify maps a backend error onto an HTTP status, error code and client message.
func classify(err error) (int, string, string) {
	var (
		verr    *domain.ValidationError
		unknown errUnknownAction
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, domain.CodeValidation, verr.Error()
	case errors.As(err, &unknown):
		return http.StatusBadRequest, domain.CodeUnknownAction, unknown.Error()
	case errors.Is(err, domain.ErrInvalidOTP):
		return http.StatusUnauthorized, domain.CodeInvalidOTP, "Invalid OTP"
	case errors.Is(err, service.ErrOTPExpired), errors.Is(err, service.ErrUnknownSession):
		return http.StatusGone, domain.CodeOTPExpired, "OTP session expired. Please request a new OTP."
	case errors.Is(err, service.ErrTooManyAttempts):
		return http.StatusTooManyRequests, domain.CodeTooManyTries, "Too many incorrect attempts. Please request a new OTP."
	case errors.Is(err, domain.ErrUnknownPlan):
		return http.StatusBadRequest, domain.CodeUnknownPlan, "Unknown plan"
	case errors.Is(err, domain.ErrNoSubscription):
		return http.StatusNotFound, domain.CodeNoSubscription, "No active subscription"
	case errors.Is(err, service.ErrNoScore):
		return http.StatusConflict, domain.CodeNoScore, "Check your credit score first"
	default:
		return http.StatusInternalServerError, domain.CodeInternal, "Something went wrong. Please try again."
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	return nil
}

func writeFailure(w http.ResponseWriter, status int, code, msg string) {
	respondJSON(w, status, scoreapi.Response{Success: false, Error: msg, Code: code})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
