package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/ehr/healthreport/internal/config"
	"github.com/ehr/healthreport/internal/domain/healthreport"
	"github.com/ehr/healthreport/internal/platform/docstore"
	"github.com/ehr/healthreport/internal/platform/metrics"
)

const yamlSnapshot = `patient:
  name: Jane Doe
  date_of_birth: "1980-10-19"
  identifier: MRN-123456
medications:
  - name: Metformin
    dosage: 500 mg
    active: true
medical_records:
  - id: rec-1
    title: Blood Panel
    type: lab_result
    record_date: "2026-09-01"
  - id: rec-2
    title: Chest X-Ray
    type: imaging
`

const jsonSnapshot = `{
  "patient": {"name": "John Roe", "gender": "male"},
  "water_intake": [{"amount_ml": 2000, "logged_at": "2026-10-17T08:00:00Z"}],
  "metrics": [{"type": "steps", "value": 10000, "recorded_at": "2026-10-17T20:00:00Z"}]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLoadSnapshot_YAML(t *testing.T) {
	d, err := loadSnapshot(writeFile(t, "snap.yaml", yamlSnapshot))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Patient.Name != "Jane Doe" {
		t.Errorf("expected Jane Doe, got %q", d.Patient.Name)
	}
	if len(d.Medications) != 1 || !d.Medications[0].Active {
		t.Errorf("expected one active medication, got %+v", d.Medications)
	}
	if len(d.MedicalRecords) != 2 {
		t.Errorf("expected 2 records, got %d", len(d.MedicalRecords))
	}
}

func TestLoadSnapshot_JSON(t *testing.T) {
	d, err := loadSnapshot(writeFile(t, "snap.json", jsonSnapshot))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Patient.Gender != "male" {
		t.Errorf("expected male, got %q", d.Patient.Gender)
	}
	if len(d.WaterIntake) != 1 || d.WaterIntake[0].AmountML != 2000 {
		t.Errorf("unexpected water intake: %+v", d.WaterIntake)
	}
}

func TestLoadSnapshot_Errors(t *testing.T) {
	if _, err := loadSnapshot(writeFile(t, "snap.txt", "patient: {}")); err == nil {
		t.Error("expected error for unsupported extension")
	}
	if _, err := loadSnapshot(writeFile(t, "snap.json", "{not json")); err == nil {
		t.Error("expected decode error")
	}
	if _, err := loadSnapshot(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestRenderCommand_DefaultOutput(t *testing.T) {
	input := writeFile(t, "jane.yaml", yamlSnapshot)

	out, err := execute(t, "render", "--input", input)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	want := strings.TrimSuffix(input, ".yaml") + ".pdf"
	content, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("expected output at %s: %v", want, err)
	}
	if !bytes.HasPrefix(content, []byte("%PDF")) {
		t.Error("expected a PDF file")
	}
	if !strings.Contains(out, want) {
		t.Errorf("expected output path in %q", out)
	}
}

func TestRenderCommand_Kinds(t *testing.T) {
	input := writeFile(t, "jane.yaml", yamlSnapshot)
	dir := t.TempDir()

	for _, args := range [][]string{
		{"--kind", "records"},
		{"--kind", "record", "--record-id", "rec-2"},
	} {
		output := filepath.Join(dir, args[1]+".pdf")
		full := append([]string{"render", "--input", input, "--output", output}, args...)
		if _, err := execute(t, full...); err != nil {
			t.Fatalf("render %v failed: %v", args, err)
		}
		if _, err := os.Stat(output); err != nil {
			t.Errorf("expected %s: %v", output, err)
		}
	}
}

func TestRenderCommand_Errors(t *testing.T) {
	input := writeFile(t, "jane.yaml", yamlSnapshot)
	output := filepath.Join(t.TempDir(), "out.pdf")

	cases := map[string][]string{
		"missing input":  {"render"},
		"unknown kind":   {"render", "--input", input, "--output", output, "--kind", "summary"},
		"unknown record": {"render", "--input", input, "--output", output, "--kind", "record", "--record-id", "nope"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := execute(t, args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestScoreCommand(t *testing.T) {
	out, err := execute(t, "score", "--input", writeFile(t, "jane.yaml", yamlSnapshot))
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}
	// symptoms 25 + medications 20 over two factors
	if !strings.Contains(out, "Score: 9.0 / 10 (Excellent)") {
		t.Errorf("unexpected score output:\n%s", out)
	}
	for _, factor := range []string{"symptoms", "medications"} {
		if !strings.Contains(out, factor) {
			t.Errorf("expected factor %q in output", factor)
		}
	}
	if strings.Contains(out, "steps") {
		t.Error("steps factor should be absent without step readings")
	}
}

func testServer(t *testing.T, cfg *config.Config) (*echo.Echo, *docstore.MemoryStore) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	store := docstore.NewMemoryStore(1<<20, 10)
	svc := healthreport.NewService(nil, healthreport.Config{
		Report:  reportOptions(cfg),
		Creator: creator,
		Store:   store,
		Metrics: m,
		Logger:  zerolog.Nop(),
	})
	return newServer(cfg, zerolog.Nop(), deps{Service: svc, Store: store, Metrics: m}), store
}

func devConfig() *config.Config {
	return &config.Config{
		Env:         "development",
		BodyLimit:   "2M",
		CORSOrigins: []string{"*"},
		PageWidth:   210,
		PageHeight:  297,
		PageMargin:  20,
		HeaderBand:  40,
		FooterBand:  25,
	}
}

func TestServer_HealthAndMetrics(t *testing.T) {
	h, _ := testServer(t, devConfig())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /health, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), version) {
		t.Errorf("expected version in %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "healthreport_archived_documents") {
		t.Error("expected archive gauge in metrics output")
	}
}

func TestServer_RenderAndArchive(t *testing.T) {
	h, store := testServer(t, devConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports/render", strings.NewReader(jsonSnapshot))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	id := rec.Header().Get(healthreport.HeaderDocumentID)
	if id == "" {
		t.Fatal("expected archived document id")
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 archived document, got %d", store.Len())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/documents/"+id, nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if store.Len() != 0 {
		t.Errorf("expected empty archive, got %d", store.Len())
	}
}

func TestServer_ProductionRequiresToken(t *testing.T) {
	cfg := devConfig()
	cfg.Env = "production"
	cfg.JWTSigningKey = "0123456789abcdef0123456789abcdef"
	h, _ := testServer(t, cfg)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected public /health, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}
}

func TestServer_DevAuthValidatesBearerTokens(t *testing.T) {
	cfg := devConfig()
	cfg.JWTSigningKey = "0123456789abcdef0123456789abcdef"
	h, _ := testServer(t, cfg)

	claims := jwt.MapClaims{"sub": "dr-1", "roles": []string{"clinician"}, "exp": time.Now().Add(time.Hour).Unix()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSigningKey))
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with a valid token, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with a bad token, got %d", rec.Code)
	}
}
