package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/barber-club/internal/domain/subscriptions"
	"github.com/Spok95/barber-club/internal/infra/logger"
	"github.com/Spok95/barber-club/internal/reports"
)

const testSecret = "super-secret-jwt-key"

type mockUsage struct{ mock.Mock }

func (m *mockUsage) Check(ctx context.Context, clientID, barbershopID, serviceID uuid.UUID) subscriptions.UsageStatus {
	return m.Called(ctx, clientID, barbershopID, serviceID).Get(0).(subscriptions.UsageStatus)
}

func (m *mockUsage) RecordUsage(ctx context.Context, subscriptionID, serviceID uuid.UUID, appointmentID *uuid.UUID) bool {
	return m.Called(ctx, subscriptionID, serviceID, appointmentID).Bool(0)
}

func (m *mockUsage) Summary(ctx context.Context, subscriptionID uuid.UUID) ([]subscriptions.ItemUsage, error) {
	args := m.Called(ctx, subscriptionID)
	items, _ := args.Get(0).([]subscriptions.ItemUsage)
	return items, args.Error(1)
}

type mockRenew struct{ mock.Mock }

func (m *mockRenew) Renew(ctx context.Context, in subscriptions.RenewalInput) (*subscriptions.RenewalResult, error) {
	args := m.Called(ctx, in)
	res, _ := args.Get(0).(*subscriptions.RenewalResult)
	return res, args.Error(1)
}

type mockReports struct{ mock.Mock }

func (m *mockReports) Build(ctx context.Context, barbershopID uuid.UUID, month string) (*reports.Report, error) {
	args := m.Called(ctx, barbershopID, month)
	rep, _ := args.Get(0).(*reports.Report)
	return rep, args.Error(1)
}

type testEnv struct {
	router  http.Handler
	usage   *mockUsage
	renew   *mockRenew
	reports *mockReports
}

func newEnv(secret string) testEnv {
	log := logger.Discard()
	env := testEnv{usage: &mockUsage{}, renew: &mockRenew{}, reports: &mockReports{}}
	env.router = NewRouter(Options{JWTSecret: secret, ExposeMetrics: true}, Deps{
		Subscriptions: NewSubscriptionsHandler(env.usage, env.renew, subscriptions.FailOpen, log),
		Reports:       NewReportsHandler(env.reports, time.UTC, log),
		CancelFunc: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Caller", UserID(r.Context()))
			w.WriteHeader(http.StatusTeapot)
		}),
	}, log)
	return env
}

func signToken(t *testing.T, secret, sub string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func do(h http.Handler, method, target, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndMetrics(t *testing.T) {
	env := newEnv(testSecret)

	rec := do(env.router, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = do(env.router, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

const cancelPath = "/functions/v1/asaas-subscription-actions"

func TestCancelFunction_RequiresToken(t *testing.T) {
	env := newEnv(testSecret)

	rec := do(env.router, http.MethodPost, cancelPath, "{}", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(env.router, http.MethodPost, cancelPath, "{}", signToken(t, "other", "user-1", time.Now().Add(time.Hour)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(env.router, http.MethodPost, cancelPath, "{}", signToken(t, testSecret, "user-1", time.Now().Add(time.Hour)))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "user-1", rec.Header().Get("X-Caller"))
}

func TestCancelFunction_PreflightWithoutToken(t *testing.T) {
	env := newEnv(testSecret)

	rec := do(env.router, http.MethodOptions, cancelPath, "", "")
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestCancelFunction_OpenWithoutSecret(t *testing.T) {
	env := newEnv("")

	rec := do(env.router, http.MethodPost, cancelPath, "{}", "")
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Caller"))
}

func TestJWTAuth(t *testing.T) {
	env := newEnv(testSecret)
	env.usage.On("Summary", mock.Anything, mock.Anything).Return([]subscriptions.ItemUsage{}, nil)
	target := "/api/v1/subscriptions/" + uuid.NewString() + "/usage"

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"garbage", "not-a-jwt", http.StatusUnauthorized},
		{"wrong secret", signToken(t, "other", "user-1", time.Now().Add(time.Hour)), http.StatusUnauthorized},
		{"expired", signToken(t, testSecret, "user-1", time.Now().Add(-time.Hour)), http.StatusUnauthorized},
		{"no subject", signToken(t, testSecret, "", time.Now().Add(time.Hour)), http.StatusUnauthorized},
		{"valid", signToken(t, testSecret, "user-1", time.Now().Add(time.Hour)), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(env.router, http.MethodGet, target, "", tt.token)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestJWTAuth_DisabledWithoutSecret(t *testing.T) {
	env := newEnv("")
	rec := do(env.router, http.MethodGet, "/api/v1/subscriptions/renewal-preview?next_due_date=2025-01-31", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCheckUsage(t *testing.T) {
	env := newEnv("")
	clientID, shopID, serviceID := uuid.New(), uuid.New(), uuid.New()
	env.usage.On("Check", mock.Anything, clientID, shopID, serviceID).Return(subscriptions.UsageStatus{
		HasActiveSubscription: true,
		IsServiceInPlan:       true,
		IsWithinLimit:         true,
		CurrentUsage:          0,
		Outcome:               subscriptions.OutcomeIndeterminate,
	})

	rec := do(env.router, http.MethodGet, "/api/v1/subscriptions/usage?client_id="+clientID.String()+
		"&barbershop_id="+shopID.String()+"&service_id="+serviceID.String(), "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "indeterminate", body["outcome"])
	assert.Equal(t, true, body["isWithinLimit"])
	assert.Equal(t, true, body["allowed"])
	assert.Equal(t, false, body["coveredByPlan"])
}

func TestCheckUsage_BadQuery(t *testing.T) {
	env := newEnv("")
	rec := do(env.router, http.MethodGet, "/api/v1/subscriptions/usage?client_id=x", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"client_id must be a UUID"}`, rec.Body.String())
	env.usage.AssertNotCalled(t, "Check", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordUsage(t *testing.T) {
	env := newEnv("")
	subID, serviceID, apptID := uuid.New(), uuid.New(), uuid.New()
	env.usage.On("RecordUsage", mock.Anything, subID, serviceID, &apptID).Return(true)

	rec := do(env.router, http.MethodPost, "/api/v1/subscriptions/"+subID.String()+"/usage",
		`{"service_id":"`+serviceID.String()+`","appointment_id":"`+apptID.String()+`"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"recorded":true}`, rec.Body.String())
}

func TestRecordUsage_Validation(t *testing.T) {
	env := newEnv("")
	rec := do(env.router, http.MethodPost, "/api/v1/subscriptions/"+uuid.NewString()+"/usage", `{}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "service_id is required")
}

func TestUsageSummary_NotFound(t *testing.T) {
	env := newEnv("")
	env.usage.On("Summary", mock.Anything, mock.Anything).Return(nil, subscriptions.ErrNotFound)

	rec := do(env.router, http.MethodGet, "/api/v1/subscriptions/"+uuid.NewString()+"/usage", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRenew(t *testing.T) {
	env := newEnv("")
	subID, clientID, shopID := uuid.New(), uuid.New(), uuid.New()
	in := subscriptions.RenewalInput{
		SubscriptionID: subID, ClientID: clientID, BarbershopID: shopID,
		PlanPrice: 89.9, NextDueDate: "2025-01-31",
	}
	env.renew.On("Renew", mock.Anything, in).Return(&subscriptions.RenewalResult{
		SubscriptionID: subID,
		TransactionID:  uuid.New(),
		Amount:         89.9,
		RenewalPreview: subscriptions.RenewalPreview{NewDueDate: "2025-03-02", NewDueLabel: "02/03/2025"},
	}, nil)

	rec := do(env.router, http.MethodPost, "/api/v1/subscriptions/"+subID.String()+"/renew",
		`{"client_id":"`+clientID.String()+`","barbershop_id":"`+shopID.String()+`","plan_price":89.9,"next_due_date":"2025-01-31"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2025-03-02", body["newDueDate"])
	assert.Equal(t, "02/03/2025", body["newDueLabel"])
	env.renew.AssertNumberOfCalls(t, "Renew", 1)
}

func TestRenew_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid", subscriptions.ErrInvalidRenewal, http.StatusBadRequest},
		{"not found", subscriptions.ErrNotFound, http.StatusNotFound},
		{"store", errors.New("commit renew tx: conn reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newEnv("")
			env.renew.On("Renew", mock.Anything, mock.Anything).Return(nil, tt.err)

			rec := do(env.router, http.MethodPost, "/api/v1/subscriptions/"+uuid.NewString()+"/renew",
				`{"client_id":"`+uuid.NewString()+`","barbershop_id":"`+uuid.NewString()+`","plan_price":50,"next_due_date":"2025-02-01"}`, "")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRenew_RejectsZeroPrice(t *testing.T) {
	env := newEnv("")
	rec := do(env.router, http.MethodPost, "/api/v1/subscriptions/"+uuid.NewString()+"/renew",
		`{"client_id":"`+uuid.NewString()+`","barbershop_id":"`+uuid.NewString()+`","plan_price":0,"next_due_date":"2025-02-01"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env.renew.AssertNotCalled(t, "Renew", mock.Anything, mock.Anything)
}

func TestRenewalPreview(t *testing.T) {
	env := newEnv("")

	rec := do(env.router, http.MethodGet, "/api/v1/subscriptions/renewal-preview?next_due_date=2024-01-31", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"currentDueDate":"2024-01-31","newDueDate":"2024-03-01","currentDueLabel":"31/01/2024","newDueLabel":"01/03/2024"}`,
		rec.Body.String())

	rec = do(env.router, http.MethodGet, "/api/v1/subscriptions/renewal-preview?next_due_date=tomorrow", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVIPClubReport(t *testing.T) {
	env := newEnv("")
	shopID := uuid.New()
	env.reports.On("Build", mock.Anything, shopID, "2025-03").
		Return(&reports.Report{FileName: "clube_vip_2025-03.xlsx", Data: []byte("PK")}, nil)

	rec := do(env.router, http.MethodGet, "/api/v1/barbershops/"+shopID.String()+"/reports/vip-club?month=2025-03", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "PK", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "clube_vip_2025-03.xlsx")
}

func TestVIPClubReport_BadMonth(t *testing.T) {
	env := newEnv("")
	env.reports.On("Build", mock.Anything, mock.Anything, "13-2025").Return(nil, reports.ErrInvalidMonth)

	rec := do(env.router, http.MethodGet, "/api/v1/barbershops/"+uuid.NewString()+"/reports/vip-club?month=13-2025", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserID(t *testing.T) {
	ctx := context.WithValue(context.Background(), UserIDKey, "user-9")
	assert.Equal(t, "user-9", UserID(ctx))
	assert.Empty(t, UserID(context.Background()))
}
