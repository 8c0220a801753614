package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vanshika/creditscore/internal/domain"
)

var (
	// ErrUnknownSession marks a session id that was never issued or was dropped.
	ErrUnknownSession = errors.New("unknown OTP session")
	// ErrOTPExpired marks a session past its TTL.
	ErrOTPExpired = errors.New("OTP expired")
	// ErrTooManyAttempts marks a session dropped after repeated wrong codes.
	ErrTooManyAttempts = errors.New("too many OTP attempts")
)

// OTPSender delivers a one-time password to a mobile number.
type OTPSender interface {
	Send(ctx context.Context, mobile, code string) error
}

// LogSender writes codes to the log instead of sending an SMS.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(_ context.Context, mobile, code string) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("otp issued", "mobile", maskMobile(mobile), "code", code)
	return nil
}

type otpSession struct {
	mobile    string
	code      string
	expiresAt time.Time
	attempts  int
	verified  bool
}

// otpStore keeps OTP sessions in memory.
type otpStore struct {
	mu          sync.Mutex
	sessions    map[string]*otpSession
	ttl         time.Duration
	maxAttempts int
	fixedCode   string
}

func newOTPStore(ttl time.Duration, maxAttempts int, fixedCode string) *otpStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &otpStore{
		sessions:    map[string]*otpSession{},
		ttl:         ttl,
		maxAttempts: maxAttempts,
		fixedCode:   fixedCode,
	}
}

// open issues a session for mobile and returns its id and code.
func (s *otpStore) open(mobile string, now time.Time) (string, string, error) {
	code := s.fixedCode
	if code == "" {
		n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
		if err != nil {
			return "", "", fmt.Errorf("generate otp: %w", err)
		}
		code = fmt.Sprintf("%06d", n.Int64())
	}

	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(now)
	s.sessions[id] = &otpSession{mobile: mobile, code: code, expiresAt: now.Add(s.ttl)}
	return id, code, nil
}

// verify checks code against the session. Wrong codes count towards the
// attempt limit; the session is dropped once the limit is reached.
func (s *otpStore) verify(id, code string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrUnknownSession
	}
	if !now.Before(sess.expiresAt) {
		delete(s.sessions, id)
		return ErrOTPExpired
	}
	if sess.code != code {
		sess.attempts++
		if sess.attempts >= s.maxAttempts {
			delete(s.sessions, id)
			return ErrTooManyAttempts
		}
		return domain.ErrInvalidOTP
	}
	sess.verified = true
	return nil
}

// checkVerified confirms id names a verified, unexpired session issued for
// mobile. The session stays open so a failed score lookup can be retried.
func (s *otpStore) checkVerified(id, mobile string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || !sess.verified || sess.mobile != mobile {
		return fmt.Errorf("%w: session not verified", domain.ErrInvalidOTP)
	}
	if !now.Before(sess.expiresAt) {
		delete(s.sessions, id)
		return ErrOTPExpired
	}
	return nil
}

// release drops a session once its score has been served.
func (s *otpStore) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func (s *otpStore) pruneLocked(now time.Time) {
	for id, sess := range s.sessions {
		if !now.Before(sess.expiresAt) {
			delete(s.sessions, id)
		}
	}
}

func (s *otpStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
