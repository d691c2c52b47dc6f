package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"alcyxob/protocol-engine/internal/assembler"
	"alcyxob/protocol-engine/internal/domain"
	"alcyxob/protocol-engine/internal/knowledge"
	"alcyxob/protocol-engine/internal/repository/memory"
	"alcyxob/protocol-engine/internal/safety"
	"alcyxob/protocol-engine/internal/sanitize"
	"alcyxob/protocol-engine/internal/service"
	"alcyxob/protocol-engine/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubDrafter struct{}

func (stubDrafter) Generate(_ context.Context, req *domain.GenerationRequest, _ domain.NutritionFocus) (*domain.RawArtifactDraft, error) {
	days := make([]domain.DraftDay, req.DurationDays)
	for i := range days {
		days[i] = domain.DraftDay{Day: i + 1, Meals: []domain.Meal{
			{MealType: "lunch", Name: "Lentil bowl", Ingredients: []string{"Lentils", "Spinach"}, Macros: domain.Macros{Calories: 600}},
		}}
	}
	return &domain.RawArtifactDraft{Days: days, Attempts: 1}, nil
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	base := knowledge.MustDefault()
	sanitizer := sanitize.Default()
	validator := safety.NewValidator(base, safety.DefaultLimits())
	users := memory.NewUserRepository()
	plans := memory.NewProtocolPlanRepository()
	instances := memory.NewProtocolInstanceRepository()
	snapshots := storage.NewMemoryStorage("")

	protocols := service.NewProtocolService(base, sanitizer, validator, stubDrafter{}, assembler.New(base), nil)
	router := gin.New()
	router.Use(RequestLogger(zap.NewNop()), gin.Recovery())
	SetupRoutes(router, "api-test-secret", 5*time.Second,
		service.NewAuthService(users, "api-test-secret", time.Hour),
		service.NewTrainerService(users, validator),
		protocols,
		service.NewPlanService(plans, instances, users, protocols, sanitizer, snapshots, nil),
		service.NewCustomerService(instances, snapshots, nil),
	)
	return &testServer{t: t, router: router}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// login registers a user and returns its token and ID.
func (s *testServer) login(name, email string, role domain.Role) (string, string) {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/v1/auth/register", "", RegisterRequest{Name: name, Email: email, Password: "long-password", Role: role})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	w = s.do(http.MethodPost, "/api/v1/auth/login", "", LoginRequest{Email: email, Password: "long-password"})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[LoginResponse](s.t, w)
	return resp.Token, resp.User.ID
}

func wizardConfig() domain.GenerationRequest {
	return domain.GenerationRequest{
		ProtocolKind:         domain.KindAilmentTargeted,
		DurationDays:         5,
		Intensity:            domain.IntensityModerate,
		ExperienceLevel:      domain.ExperienceExperienced,
		SelectedConditionIDs: []string{"bloating", "constipation"},
		PriorityLevel:        domain.PriorityMedium,
		DailyCalorieTarget:   2200,
	}
}

func TestAPI_PlanLifecycle(t *testing.T) {
	s := newTestServer(t)
	trainerToken, _ := s.login("Tess", "tess@example.com", domain.RoleTrainer)
	customerToken, customerID := s.login("Cam", "cam@example.com", domain.RoleCustomer)

	w := s.do(http.MethodPost, "/api/v1/trainer/customers", trainerToken, AddCustomerRequest{CustomerEmail: "cam@example.com"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/v1/trainer/protocol-plans", trainerToken, SavePlanRequest{PlanName: "Gut Reset", WizardConfiguration: wizardConfig()})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	plan := decode[PlanResponse](t, w)

	w = s.do(http.MethodGet, "/api/v1/trainer/protocol-plans?search=gut", trainerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]PlanResponse](t, w), 1)

	w = s.do(http.MethodPost, "/api/v1/trainer/protocol-plans/"+plan.ID+"/assign", trainerToken, AssignPlanRequest{CustomerID: customerID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	instance := decode[InstanceResponse](t, w)
	assert.Len(t, instance.Artifact.DailySchedules, 5)
	assert.True(t, instance.Exportable)

	w = s.do(http.MethodGet, "/api/v1/customer/protocols", customerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]InstanceSummary](t, w), 1)

	w = s.do(http.MethodPost, "/api/v1/customer/protocols/"+instance.ID+"/acknowledge", customerToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotNil(t, decode[InstanceSummary](t, w).AcknowledgedAt)

	w = s.do(http.MethodGet, "/api/v1/customer/protocols/"+instance.ID+"/export", customerToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, decode[ExportResponse](t, w).URL)

	w = s.do(http.MethodDelete, "/api/v1/trainer/protocol-plans/"+plan.ID, trainerToken, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, domain.CodePlanInUse, decode[ErrorResponse](t, w).Code)

	w = s.do(http.MethodPatch, "/api/v1/trainer/protocol-instances/"+instance.ID+"/status", trainerToken, UpdateStatusRequest{Status: domain.InstanceCompleted})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodDelete, "/api/v1/trainer/protocol-plans/"+plan.ID, trainerToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAPI_GenerateErrors(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.login("Tess", "tess@example.com", domain.RoleTrainer)

	cleanse := wizardConfig()
	cleanse.ProtocolKind = domain.KindParasiteCleanse
	cleanse.PregnancyOrBreastfeeding = true
	cleanse.HealthcareProviderConsent = true
	w := s.do(http.MethodPost, "/api/v1/trainer/protocols/generate", token, cleanse)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, domain.CodeContraindication, decode[ErrorResponse](t, w).Code)

	unsafe := wizardConfig()
	unsafe.Notes = "<img src=x onerror=alert(1)>"
	w = s.do(http.MethodPost, "/api/v1/trainer/protocols/generate", token, unsafe)
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[ErrorResponse](t, w)
	assert.Equal(t, domain.CodeUnsafeInput, body.Code)
	assert.Equal(t, "notes", body.Field)
	assert.NotContains(t, w.Body.String(), "onerror")

	long := wizardConfig()
	long.DurationDays = 365
	w = s.do(http.MethodPost, "/api/v1/trainer/protocols/generate", token, long)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "durationDays", decode[ErrorResponse](t, w).Field)

	w = s.do(http.MethodPost, "/api/v1/trainer/protocols/generate", token, wizardConfig())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[GenerateResponse](t, w)
	assert.Len(t, resp.Artifact.DailySchedules, 5)
	assert.NotNil(t, resp.Warnings)
}

func TestAPI_AccessControl(t *testing.T) {
	s := newTestServer(t)
	customerToken, _ := s.login("Cam", "cam@example.com", domain.RoleCustomer)

	w := s.do(http.MethodGet, "/api/v1/conditions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/api/v1/conditions", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/api/v1/conditions", customerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode[[]ConditionResponse](t, w))

	w = s.do(http.MethodGet, "/api/v1/trainer/protocol-plans", customerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/api/v1/customer/protocols/not-an-id", customerToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/v1/auth/register", "", RegisterRequest{Name: "Cam", Email: "cam@example.com", Password: "long-password", Role: domain.RoleCustomer})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAPI_RequestIDAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/ping", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	w = s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
