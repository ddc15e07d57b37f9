package router

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citysmiles/dental-admin/internal/handler"
	appointmenth "github.com/citysmiles/dental-admin/internal/handler/appointment"
	dashboardh "github.com/citysmiles/dental-admin/internal/handler/dashboard"
	"github.com/citysmiles/dental-admin/internal/handler/health"
	inventoryh "github.com/citysmiles/dental-admin/internal/handler/inventory"
	lookuph "github.com/citysmiles/dental-admin/internal/handler/lookup"
	patienth "github.com/citysmiles/dental-admin/internal/handler/patient"
	prescriptionh "github.com/citysmiles/dental-admin/internal/handler/prescription"
	"github.com/citysmiles/dental-admin/internal/handler/prometheus"
	treatmenth "github.com/citysmiles/dental-admin/internal/handler/treatment"
	"github.com/citysmiles/dental-admin/internal/middleware"
	"github.com/citysmiles/dental-admin/internal/model"
	"github.com/citysmiles/dental-admin/internal/readmodel"
	"github.com/citysmiles/dental-admin/internal/remote"
	"github.com/citysmiles/dental-admin/internal/remote/memstore"
	"github.com/citysmiles/dental-admin/internal/service"
	"github.com/citysmiles/dental-admin/internal/service/appointment"
	"github.com/citysmiles/dental-admin/internal/service/dashboard"
	"github.com/citysmiles/dental-admin/internal/service/inventory"
	"github.com/citysmiles/dental-admin/internal/service/patient"
	"github.com/citysmiles/dental-admin/internal/service/prescription"
	"github.com/citysmiles/dental-admin/internal/service/treatment"
	"github.com/citysmiles/dental-admin/pkg/metrics"
)

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type app struct {
	store  *memstore.Store
	engine *gin.Engine
}

func newApp(t *testing.T, ready error) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	store := memstore.New()
	reg := promclient.NewRegistry()
	m := metrics.NewMetrics("test", reg)
	opts := service.Options{Metrics: m, Clock: func() time.Time {
		return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	}}

	patients := patient.NewService(store, opts)
	appointments := appointment.NewService(store, opts)
	treatments := treatment.NewService(store, opts)
	items := inventory.NewService(store, opts)
	rxs := prescription.NewService(store, false, opts)
	for _, open := range []func(context.Context) error{patients.Open, appointments.Open, treatments.Open, items.Open, rxs.Open} {
		require.NoError(t, open(ctx))
	}
	t.Cleanup(func() {
		patients.Close()
		appointments.Close()
		treatments.Close()
		items.Close()
		rxs.Close()
	})
	lookup := readmodel.NewLookupCache(store, time.Minute, nil)

	routes := []handler.Route{
		dashboardh.NewHandler(dashboard.NewService(store, opts)),
		patienth.NewHandler(patients, lookup),
		appointmenth.NewHandler(appointments),
		treatmenth.NewHandler(treatments),
		inventoryh.NewHandler(items),
		prescriptionh.NewHandler(rxs),
		lookuph.NewHandler(lookup),
	}
	h := health.NewHandler(map[string]health.Check{
		"database": func(context.Context) error { return ready },
	})
	r := NewRouter(h, prometheus.New(reg, m), nil, routes, RouterConfig{
		CORSConfig:   middleware.DefaultCORSConfig(),
		MaxBodyBytes: 1 << 20,
	})
	r.Setup()
	return &app{store: store, engine: r.Engine()}
}

func (a *app) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var payload string
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = string(raw)
	}
	req := httptest.NewRequest(method, path, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestPatientLifecycle(t *testing.T) {
	a := newApp(t, nil)

	w, env := a.do(t, "POST", "/api/v1/patients", map[string]any{
		"first_name": "Ahmed", "last_name": "Hassan", "phone": "0501234567",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var listing patient.Listing
	require.NoError(t, json.Unmarshal(env.Data, &listing))
	require.Len(t, listing.Patients, 1)
	id := listing.Patients[0].ID

	w, env = a.do(t, "GET", "/api/v1/patients?q=hassan", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &listing))
	assert.Len(t, listing.Patients, 1)

	w, _ = a.do(t, "PUT", "/api/v1/patients/"+id, map[string]any{"blood_group": "O+"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "O+", a.store.Rows(model.TablePatients)[0]["blood_group"])
	assert.Equal(t, "Ahmed", a.store.Rows(model.TablePatients)[0]["first_name"])

	w, _ = a.do(t, "DELETE", "/api/v1/patients/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, a.store.Rows(model.TablePatients))

	w, env = a.do(t, "DELETE", "/api/v1/patients/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "error", env.Status)
}

func TestValidationFailureDoesNotWrite(t *testing.T) {
	a := newApp(t, nil)

	w, env := a.do(t, "POST", "/api/v1/patients", map[string]any{"last_name": "Hassan"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "first_name is required", env.Message)
	assert.Zero(t, a.store.Writes(model.TablePatients))

	w, _ = a.do(t, "GET", "/api/v1/patients/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRemoteErrorMessageIsVerbatim(t *testing.T) {
	a := newApp(t, nil)
	a.store.FailNext(memstore.OpInsert, model.TableInventory,
		stderrors.New(`duplicate key value violates unique constraint "inventory_item_name_key"`))

	w, env := a.do(t, "POST", "/api/v1/inventory", map[string]any{"item_name": "Gloves", "quantity": 5})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, `duplicate key value violates unique constraint "inventory_item_name_key"`, env.Message)
}

func TestPrescriptionAndDashboard(t *testing.T) {
	a := newApp(t, nil)
	pid := a.store.Seed(model.TablePatients, remote.Row{"first_name": "Ahmed", "last_name": "Hassan"})[0].ID()
	a.store.Seed(model.TableAppointments, remote.Row{
		"patient_id": pid, "title": "Checkup", "appointment_date": "2026-03-14", "appointment_time": "09:30",
	})

	w, env := a.do(t, "POST", "/api/v1/prescriptions", map[string]any{
		"patient_id": pid,
		"items":      []map[string]any{{"medicine_name": "Amoxicillin", "dosage": "500mg"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var rx prescription.Listing
	require.NoError(t, json.Unmarshal(env.Data, &rx))
	assert.Len(t, a.store.Rows(model.TablePrescriptionItems), 1)

	w, env = a.do(t, "POST", "/api/v1/prescriptions", map[string]any{"patient_id": pid})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "items must contain at least 1 entries", env.Message)

	w, env = a.do(t, "GET", "/api/v1/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sum dashboard.Summary
	require.NoError(t, json.Unmarshal(env.Data, &sum))
	assert.Equal(t, 1, sum.PatientCount)
	assert.Equal(t, 1, sum.TodayAppointments)
	require.Len(t, sum.RecentAppointments, 1)
	assert.Equal(t, "Hassan", sum.RecentAppointments[0].Patient.LastName)
}

func TestLookups(t *testing.T) {
	a := newApp(t, nil)
	a.store.Seed(model.TablePatients,
		remote.Row{"first_name": "Sara", "last_name": "Yousef"},
		remote.Row{"first_name": "Ahmed", "last_name": "Hassan"},
	)

	w, env := a.do(t, "GET", "/api/v1/lookups/patients", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var refs []model.PatientRef
	require.NoError(t, json.Unmarshal(env.Data, &refs))
	require.Len(t, refs, 2)
	assert.Equal(t, "Hassan", refs[0].LastName)

	w, env = a.do(t, "GET", "/api/v1/lookups/vocabulary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "Root Canal")
}

func TestHealthAndMetrics(t *testing.T) {
	a := newApp(t, nil)
	w, _ := a.do(t, "GET", "/health/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	a.do(t, "GET", "/api/v1/patients", nil)
	w, _ = a.do(t, "GET", "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_http_requests_total")

	down := newApp(t, stderrors.New("connection refused"))
	w, _ = down.do(t, "GET", "/health/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	w, _ = down.do(t, "GET", "/health/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
