// Package scoreclient talks to the score backend's action endpoint. It holds
// no flow state: every call is one request/response exchange with no retry.
package scoreclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vanshika/creditscore/internal/domain"
	"github.com/vanshika/creditscore/internal/scoreapi"
)

const maxResponseBytes = 1 << 20

// RequestIDHeader is re-exported for callers that only import the client.
const RequestIDHeader = scoreapi.RequestIDHeader

// Options configures a Client.
type Options struct {
	Endpoint   string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client issues checkScore, verifyOtp, subscribe and getReport calls.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *slog.Logger
}

// ErrMissingEndpoint indicates no backend endpoint was configured.
var ErrMissingEndpoint = errors.New("score endpoint is required")

// New constructs a Client.
func New(opts Options) (*Client, error) {
	if opts.Endpoint == "" {
		return nil, ErrMissingEndpoint
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint: opts.Endpoint,
		http:     httpClient,
		logger:   logger,
	}, nil
}

// CheckScore requests a score. The outcome is either domain.ScoreReady or
// domain.OTPChallenge; every failure is an error.
func (c *Client) CheckScore(ctx context.Context, req domain.CheckScoreRequest) (domain.ScoreOutcome, error) {
	resp, err := c.do(ctx, scoreapi.CheckScoreRequest(req))
	if err != nil {
		return nil, err
	}

	switch {
	case resp.OTPRequired:
		if resp.SessionID == "" {
			return nil, &domain.RemoteError{Action: domain.ActionCheckScore, Message: "otp required without session id"}
		}
		return domain.OTPChallenge{SessionID: resp.SessionID}, nil
	case resp.CreditScore != nil:
		return domain.ScoreReady{CreditScore: *resp.CreditScore}, nil
	default:
		return nil, &domain.RemoteError{Action: domain.ActionCheckScore, Message: "response carries neither score nor otp challenge"}
	}
}

// VerifyOTP submits a one-time password for sessionID. A rejected code
// yields an error wrapping domain.ErrInvalidOTP.
func (c *Client) VerifyOTP(ctx context.Context, sessionID, otp string) error {
	_, err := c.do(ctx, scoreapi.Request{
		Action:    domain.ActionVerifyOTP,
		SessionID: sessionID,
		OTP:       otp,
	})
	return err
}

// Subscribe activates planID for userID against a completed payment.
func (c *Client) Subscribe(ctx context.Context, userID string, planID domain.PlanID, paymentID string) (domain.Subscription, error) {
	resp, err := c.do(ctx, scoreapi.Request{
		Action:    domain.ActionSubscribe,
		UserID:    userID,
		PlanID:    string(planID),
		PaymentID: paymentID,
	})
	if err != nil {
		return domain.Subscription{}, err
	}
	if resp.Subscription == nil {
		return domain.Subscription{}, &domain.RemoteError{Action: domain.ActionSubscribe, Message: "response carries no subscription"}
	}
	return *resp.Subscription, nil
}

// GetReport fetches the credit report for userID.
func (c *Client) GetReport(ctx context.Context, userID string) (domain.Report, error) {
	resp, err := c.do(ctx, scoreapi.Request{
		Action: domain.ActionGetReport,
		UserID: userID,
	})
	if err != nil {
		return domain.Report{}, err
	}
	if resp.Report == nil {
		return domain.Report{}, &domain.RemoteError{Action: domain.ActionGetReport, Message: "response carries no report"}
	}
	return *resp.Report, nil
}

func (c *Client) do(ctx context.Context, payload scoreapi.Request) (scoreapi.Response, error) {
	action := payload.Action
	body, err := json.Marshal(payload)
	if err != nil {
		return scoreapi.Response{}, fmt.Errorf("encode %s request: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return scoreapi.Response{}, fmt.Errorf("build %s request: %w", action, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return scoreapi.Response{}, &domain.RemoteError{Action: action, Message: "request failed", Err: err}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return scoreapi.Response{}, &domain.RemoteError{Action: action, Status: res.StatusCode, Message: "read response", Err: err}
	}

	c.logger.Debug("score backend call",
		"action", action,
		"status", res.StatusCode,
		"request_id", requestID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	var out scoreapi.Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return scoreapi.Response{}, &domain.RemoteError{Action: action, Status: res.StatusCode, Message: "malformed response", Err: err}
	}

	if res.StatusCode >= 300 || !out.Success {
		return scoreapi.Response{}, remoteFailure(action, res.StatusCode, out)
	}
	return out, nil
}

func remoteFailure(action string, status int, resp scoreapi.Response) error {
	msg := resp.Error
	if msg == "" {
		msg = http.StatusText(status)
	}
	remote := &domain.RemoteError{Action: action, Status: status, Code: resp.Code, Message: msg}
	switch resp.Code {
	case domain.CodeInvalidOTP:
		remote.Err = domain.ErrInvalidOTP
	case domain.CodeNoSubscription:
		remote.Err = domain.ErrNoSubscription
	case domain.CodeUnknownPlan:
		remote.Err = domain.ErrUnknownPlan
	}
	return remote
}
