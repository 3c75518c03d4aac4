package adapter

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/quillforge/aiengine/internal/domain"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   ErrorKind
	}{
		{"too many requests", http.StatusTooManyRequests, KindRateLimited},
		{"unauthorized", http.StatusUnauthorized, KindAuthFailed},
		{"forbidden", http.StatusForbidden, KindAuthFailed},
		{"bad request", http.StatusBadRequest, KindTransport},
		{"not found", http.StatusNotFound, KindTransport},
		{"internal server error", http.StatusInternalServerError, KindTransport},
		{"bad gateway", http.StatusBadGateway, KindTransport},
		{"service unavailable", http.StatusServiceUnavailable, KindTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyStatus(tt.status); got != tt.want {
				t.Errorf("classifyStatus(%d) = %s, want %s", tt.status, got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	rateLimited := httpError(domain.ProviderOpenAI, http.StatusTooManyRequests, "slow down")

	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"adapter error", rateLimited, KindRateLimited},
		{"wrapped adapter error", fmt.Errorf("generate: %w", rateLimited), KindRateLimited},
		{"empty result", emptyError(domain.ProviderGemini, http.StatusOK), KindEmpty},
		{"plain error", errors.New("connection refused"), KindTransport},
		{"context deadline", fmt.Errorf("call: %w", errors.New("deadline exceeded")), KindTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestError_Reached(t *testing.T) {
	if !httpError(domain.ProviderOpenAI, 401, "no").Reached() {
		t.Error("httpError.Reached() = false, want true")
	}
	if transportError(domain.ProviderOpenAI, errors.New("dial tcp: refused")).Reached() {
		t.Error("transportError.Reached() = true, want false")
	}
}

func TestIsRateLimited(t *testing.T) {
	if !IsRateLimited(httpError(domain.ProviderGroq, 429, "quota")) {
		t.Error("IsRateLimited(429 error) = false, want true")
	}
	if IsRateLimited(httpError(domain.ProviderGroq, 500, "boom")) {
		t.Error("IsRateLimited(500 error) = true, want false")
	}
}
