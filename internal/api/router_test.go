package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Maneldor/la-publica-new-sub022/internal/app"
	testutil "github.com/Maneldor/la-publica-new-sub022/internal/database/testutil"
	"github.com/Maneldor/la-publica-new-sub022/internal/models"
	"github.com/Maneldor/la-publica-new-sub022/pkg/mail"
)

func testConfig() *app.Config {
	return &app.Config{
		Server:     app.ServerConfig{Port: 0, LogLevel: "error"},
		Assignment: app.AssignmentConfig{DefaultCapacity: 20},
		Requests:   app.RequestsConfig{TTL: 720 * time.Hour, SweepSchedule: "@hourly", AuditRetentionDays: 90},
		Features: app.FeatureConfig{
			Notifications: app.NotificationConfig{Enabled: false},
			Metrics:       app.MetricsConfig{Enabled: true, Endpoint: "/metrics"},
		},
	}
}

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	cfg := testConfig()

	mailer, err := mail.NewSMTPMailer(mail.SMTPSettings{})
	if err != nil {
		t.Fatalf("mailer: %v", err)
	}

	svcs, err := BuildServices(db, cfg, nil, mailer)
	if err != nil {
		t.Fatalf("services: %v", err)
	}

	router, err := NewRouter(db, cfg, svcs, nil)
	if err != nil {
		t.Fatalf("router: %v", err)
	}

	return router, db
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("expected 200 for /health, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/metrics", nil)
	router.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("expected 200 for /metrics, got %d", w.Code)
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/nope", nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown route, got %d", w.Code)
	}
}

func TestRouter_LeadLifecycle(t *testing.T) {
	router, db := newTestRouter(t)

	manager := &models.User{Username: "gestor", Email: "gestor@example.com", Role: models.RoleManager, IsActive: true}
	if err := db.Create(manager).Error; err != nil {
		t.Fatalf("seed manager: %v", err)
	}

	// Create a lead
	body := strings.NewReader(`{"name":"Acme Renewal","priority":"high"}`)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/leads", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-ID", manager.ID)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating lead, got %d: %s", w.Code, w.Body.String())
	}

	var created struct {
		Data struct {
			ID           string  `json:"id"`
			UrgencyScore float64 `json:"urgency_score"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.Data.ID == "" {
		t.Fatal("expected a lead id in the response")
	}
	if created.Data.UrgencyScore <= 0 {
		t.Fatalf("expected a positive urgency score, got %f", created.Data.UrgencyScore)
	}

	// Assign it to the manager
	assignBody := strings.NewReader(`{"manager_id":"` + manager.ID + `"}`)
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/api/v1/leads/"+created.Data.ID+"/assign", assignBody)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-ID", manager.ID)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 assigning lead, got %d: %s", w.Code, w.Body.String())
	}

	// Workload should now report one active lead
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/v1/workload/"+manager.ID, nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for workload, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"active_leads":1`) {
		t.Fatalf("expected workload to count the assigned lead: %s", w.Body.String())
	}
}

func TestRouter_RequestFlow(t *testing.T) {
	router, db := newTestRouter(t)

	alice := &models.User{Username: "alice", Email: "alice@example.com", Role: models.RoleEmployee, IsActive: true}
	bob := &models.User{Username: "bob", Email: "bob@example.com", Role: models.RoleEmployee, IsActive: true}
	for _, u := range []*models.User{alice, bob} {
		if err := db.Create(u).Error; err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}

	body := strings.NewReader(`{"target_id":"` + bob.ID + `"}`)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/connections/requests", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-ID", alice.ID)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating request, got %d: %s", w.Code, w.Body.String())
	}

	var created struct {
		Data struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.Data.Status != "pending" {
		t.Fatalf("expected pending status, got %q", created.Data.Status)
	}

	// Missing actor header is rejected
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/api/v1/requests/"+created.Data.ID+"/approve", nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without actor header, got %d", w.Code)
	}

	// Recipient approves
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/api/v1/requests/"+created.Data.ID+"/approve", nil)
	req.Header.Set("X-Actor-ID", bob.ID)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 approving request, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"status":"approved"`) {
		t.Fatalf("expected approved status in response: %s", w.Body.String())
	}
}
