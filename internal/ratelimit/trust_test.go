package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cleberrangel/workscan-api/internal/client"
	"github.com/cleberrangel/workscan-api/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSiteVerifier struct {
	resp  *client.SiteVerifyResponse
	err   error
	calls int
}

func (s *stubSiteVerifier) SiteVerify(context.Context, string) (*client.SiteVerifyResponse, error) {
	s.calls++
	return s.resp, s.err
}

func TestScoreVerifier(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		resp       *client.SiteVerifyResponse
		err        error
		wantReason string
		wantErr    error
	}{
		{name: "accepts good score", token: "tok", resp: &client.SiteVerifyResponse{Success: true, Score: 0.9}},
		{name: "accepts score at threshold", token: "tok", resp: &client.SiteVerifyResponse{Success: true, Score: 0.5}},
		{name: "rejects failed token", token: "tok", resp: &client.SiteVerifyResponse{Success: false}, wantReason: model.ReasonCaptchaFailed},
		{name: "rejects low score", token: "tok", resp: &client.SiteVerifyResponse{Success: true, Score: 0.1}, wantReason: model.ReasonBotDetected},
		{name: "rejects missing token", token: "", wantReason: model.ReasonCaptchaFailed},
		{name: "surfaces outage", token: "tok", err: errors.New("dial tcp: timeout"), wantErr: model.ErrTrustUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewScoreVerifier(&stubSiteVerifier{resp: tt.resp, err: tt.err}, 0.5)
			err := v.Verify(context.Background(), tt.token)

			switch {
			case tt.wantReason != "":
				var trustErr *model.TrustError
				require.ErrorAs(t, err, &trustErr)
				assert.Equal(t, tt.wantReason, trustErr.Reason)
				assert.ErrorIs(t, err, model.ErrTrustFailed)
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.NotErrorIs(t, err, model.ErrTrustFailed)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestScoreVerifierAgainstHTTPService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "secret", r.PostForm.Get("secret"))
		score := 0.9
		if r.PostForm.Get("response") == "bot" {
			score = 0.2
		}
		_ = json.NewEncoder(w).Encode(client.SiteVerifyResponse{Success: true, Score: score})
	}))
	defer srv.Close()

	v := NewScoreVerifier(client.NewRecaptchaClient("secret", srv.URL, time.Second), 0.5)

	assert.NoError(t, v.Verify(context.Background(), "human"))

	var trustErr *model.TrustError
	require.ErrorAs(t, v.Verify(context.Background(), "bot"), &trustErr)
	assert.Equal(t, model.ReasonBotDetected, trustErr.Reason)
}

func TestScoreVerifierServiceDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	v := NewScoreVerifier(client.NewRecaptchaClient("secret", srv.URL, time.Second), 0.5)
	assert.ErrorIs(t, v.Verify(context.Background(), "tok"), model.ErrTrustUnavailable)
}

func TestGovernorChecksTrustBeforeQuota(t *testing.T) {
	clock := newFakeClock()
	stub := &stubSiteVerifier{resp: &client.SiteVerifyResponse{Success: false}}
	g := NewGovernor(NewSlidingWindow(1, time.Hour, clock), NewScoreVerifier(stub, 0.5))

	err := g.Admit(context.Background(), "1.2.3.4", "tok")
	assert.ErrorIs(t, err, model.ErrTrustFailed)
	assert.Equal(t, 0, g.Window().Count("1.2.3.4"), "rejected bot must not consume quota")

	stub.resp = &client.SiteVerifyResponse{Success: true, Score: 0.9}
	require.NoError(t, g.Admit(context.Background(), "1.2.3.4", "tok"))

	err = g.Admit(context.Background(), "1.2.3.4", "tok")
	var rl *model.RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, time.Hour, rl.RetryAfter)
	assert.ErrorIs(t, err, model.ErrRateLimited)
}

func TestGovernorBypass(t *testing.T) {
	g := NewGovernor(NewSlidingWindow(2, time.Hour, newFakeClock()), nil)
	assert.NoError(t, g.Admit(context.Background(), "c", ""))
	assert.NoError(t, g.Admit(context.Background(), "c", ""))
	assert.ErrorIs(t, g.Admit(context.Background(), "c", ""), model.ErrRateLimited)
}
