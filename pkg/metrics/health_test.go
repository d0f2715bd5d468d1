package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func resetHealthChecker() {
	healthChecker = &HealthChecker{
		components: make(map[string]ComponentHealth),
		startTime:  time.Now(),
	}
}

func TestRegisterComponent(t *testing.T) {
	resetHealthChecker()

	RegisterComponent("config", true, "loaded")

	if len(healthChecker.components) != 1 {
		t.Errorf("expected 1 component, got %d", len(healthChecker.components))
	}

	comp := healthChecker.components["config"]
	if !comp.Healthy {
		t.Error("component should be healthy")
	}
	if comp.Critical {
		t.Error("RegisterComponent should not mark the component critical")
	}
	if comp.Message != "loaded" {
		t.Errorf("expected message 'loaded', got '%s'", comp.Message)
	}
}

func TestRegisterCriticalComponent(t *testing.T) {
	resetHealthChecker()

	RegisterCriticalComponent("scheduler", true, "running")

	comp := healthChecker.components["scheduler"]
	if !comp.Critical {
		t.Error("RegisterCriticalComponent should mark the component critical")
	}
}

func TestGetHealth_AllHealthy(t *testing.T) {
	resetHealthChecker()
	healthChecker.version = "1.0.0"

	RegisterCriticalComponent("cluster-client", true, "")
	RegisterCriticalComponent("scheduler", true, "")

	health := GetHealth()

	if health.Status != "healthy" {
		t.Errorf("expected status 'healthy', got '%s'", health.Status)
	}

	if len(health.Components) != 2 {
		t.Errorf("expected 2 components, got %d", len(health.Components))
	}

	if health.Version != "1.0.0" {
		t.Errorf("expected version '1.0.0', got '%s'", health.Version)
	}
}

func TestGetHealth_OneUnhealthy(t *testing.T) {
	resetHealthChecker()

	RegisterCriticalComponent("cluster-client", true, "")
	RegisterCriticalComponent("scheduler", false, "not connected")

	health := GetHealth()

	if health.Status != "unhealthy" {
		t.Errorf("expected status 'unhealthy', got '%s'", health.Status)
	}

	if health.Components["scheduler"] != "unhealthy: not connected" {
		t.Errorf("unexpected scheduler status: %s", health.Components["scheduler"])
	}
}

func TestGetHealth_NonCriticalComponentCountsToo(t *testing.T) {
	// GetHealth (unlike GetReadiness) reports on every registered
	// component regardless of criticality.
	resetHealthChecker()

	RegisterComponent("config", false, "reload failed")

	health := GetHealth()

	if health.Status != "unhealthy" {
		t.Errorf("expected status 'unhealthy', got '%s'", health.Status)
	}
}

func TestGetReadiness_AllCriticalReady(t *testing.T) {
	resetHealthChecker()

	RegisterCriticalComponent("scheduler", true, "")
	RegisterCriticalComponent("cluster-client", true, "")
	RegisterComponent("config", true, "")

	readiness := GetReadiness()

	if readiness.Status != "ready" {
		t.Errorf("expected status 'ready', got '%s'", readiness.Status)
	}
}

func TestGetReadiness_NonCriticalComponentNeverGatesReadiness(t *testing.T) {
	// An unhealthy component registered via RegisterComponent (not
	// RegisterCriticalComponent) must never flip /ready to not_ready —
	// e.g. an unconfigured cluster-client in a dry run.
	resetHealthChecker()

	RegisterCriticalComponent("scheduler", true, "")
	RegisterComponent("config", false, "reload failed")

	readiness := GetReadiness()

	if readiness.Status != "ready" {
		t.Errorf("expected status 'ready' despite unhealthy non-critical component, got '%s'", readiness.Status)
	}
}

func TestGetReadiness_NothingRegisteredCriticalIsReady(t *testing.T) {
	// With no component ever registered critical (e.g. before the
	// scheduler has started), readiness has nothing to wait on.
	resetHealthChecker()

	readiness := GetReadiness()

	if readiness.Status != "ready" {
		t.Errorf("expected status 'ready' with no critical components registered, got '%s'", readiness.Status)
	}
}

func TestGetReadiness_CriticalComponentUnhealthy(t *testing.T) {
	resetHealthChecker()

	RegisterCriticalComponent("scheduler", false, "loop stalled")
	RegisterCriticalComponent("cluster-client", true, "")

	readiness := GetReadiness()

	if readiness.Status != "not_ready" {
		t.Errorf("expected status 'not_ready', got '%s'", readiness.Status)
	}

	if readiness.Message == "" {
		t.Error("expected message explaining why not ready")
	}
}

func TestHealthHandler(t *testing.T) {
	resetHealthChecker()
	healthChecker.version = "test"

	RegisterComponent("test", true, "")

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	handler := HealthHandler()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var health HealthStatus
	if err := json.NewDecoder(w.Body).Decode(&health); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if health.Status != "healthy" {
		t.Errorf("expected healthy status, got %s", health.Status)
	}

	if health.Version != "test" {
		t.Errorf("expected version 'test', got %s", health.Version)
	}
}

func TestHealthHandler_Unhealthy(t *testing.T) {
	resetHealthChecker()

	RegisterComponent("test", false, "broken")

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	handler := HealthHandler()
	handler(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}

	var health HealthStatus
	if err := json.NewDecoder(w.Body).Decode(&health); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if health.Status != "unhealthy" {
		t.Errorf("expected unhealthy status, got %s", health.Status)
	}
}

func TestReadyHandler(t *testing.T) {
	resetHealthChecker()

	RegisterCriticalComponent("scheduler", true, "")
	RegisterCriticalComponent("cluster-client", true, "")
	RegisterComponent("config", true, "")

	req := httptest.NewRequest("GET", "/ready", nil)
	w := httptest.NewRecorder()

	handler := ReadyHandler()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var readiness HealthStatus
	if err := json.NewDecoder(w.Body).Decode(&readiness); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if readiness.Status != "ready" {
		t.Errorf("expected ready status, got %s", readiness.Status)
	}
}

func TestReadyHandler_NotReady(t *testing.T) {
	resetHealthChecker()

	RegisterComponent("config", true, "")
	RegisterCriticalComponent("scheduler", false, "not started")

	req := httptest.NewRequest("GET", "/ready", nil)
	w := httptest.NewRecorder()

	handler := ReadyHandler()
	handler(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}

	var readiness HealthStatus
	if err := json.NewDecoder(w.Body).Decode(&readiness); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if readiness.Status != "not_ready" {
		t.Errorf("expected not_ready status, got %s", readiness.Status)
	}
}

func TestLivenessHandler(t *testing.T) {
	resetHealthChecker()

	req := httptest.NewRequest("GET", "/live", nil)
	w := httptest.NewRecorder()

	handler := LivenessHandler()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var response map[string]string
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response["status"] != "alive" {
		t.Errorf("expected status 'alive', got '%s'", response["status"])
	}

	if response["uptime"] == "" {
		t.Error("uptime should not be empty")
	}
}

func TestUpdateComponent(t *testing.T) {
	resetHealthChecker()

	RegisterComponent("test", true, "ok")
	UpdateComponent("test", false, "error")

	comp := healthChecker.components["test"]
	if comp.Healthy {
		t.Error("component should be unhealthy after update")
	}

	if comp.Message != "error" {
		t.Errorf("expected message 'error', got '%s'", comp.Message)
	}
}

func TestUpdateComponent_PreservesCriticalFlag(t *testing.T) {
	// UpdateComponent must not silently demote a critical component to
	// non-critical, or /ready would stop waiting on it after its first
	// health transition.
	resetHealthChecker()

	RegisterCriticalComponent("scheduler", true, "running")
	UpdateComponent("scheduler", false, "loop stalled")

	comp := healthChecker.components["scheduler"]
	if !comp.Critical {
		t.Error("UpdateComponent should preserve the Critical flag set at registration")
	}

	if GetReadiness().Status != "not_ready" {
		t.Error("readiness should reflect the updated unhealthy critical component")
	}
}
