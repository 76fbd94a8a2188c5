package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/matryer/is"

	"github.com/langchou/fieldops/internal/api/handlers"
	"github.com/langchou/fieldops/internal/metrics"
	"github.com/langchou/fieldops/internal/models"
	"github.com/langchou/fieldops/internal/repository/sqlite"
	"github.com/langchou/fieldops/internal/service"
	"github.com/langchou/fieldops/internal/state"
	"github.com/langchou/fieldops/internal/store"
)

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	return newRouterWith(t, nil)
}

// newRouterWith serves the routes over wrap(store) when wrap is set.
func newRouterWith(t *testing.T, wrap func(store.Store) store.Store) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx := context.Background()
	st, err := sqlite.Open(ctx, ":memory:", nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	var backing store.Store = st
	if wrap != nil {
		backing = wrap(st)
	}

	m := metrics.New()
	svc := service.New(service.Deps{Store: backing, Cache: state.NewCache(backing), Metrics: m}, state.PolicyPermissive)

	r := gin.New()
	r.Use(handlers.RequestID(), handlers.Metrics(m))
	handlers.NewHandler(nil, svc, backing, nil, m).RegisterRoutes(r)
	return r
}

type response struct {
	Code int
	Body map[string]any
}

func do(t *testing.T, r http.Handler, method, path, body string) response {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	res := response{Code: w.Code}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &res.Body); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return res
}

func data(res response) map[string]any {
	d, _ := res.Body["data"].(map[string]any)
	return d
}

const anaTeam = `{"operador":"Ana","auxiliar":"Bia","unidade":"U1","placa":"ABC1234"}`

func TestTeamRoutes(t *testing.T) {
	is := is.New(t)
	r := newRouter(t)

	res := do(t, r, http.MethodGet, "/equipes/ativa", "")
	is.Equal(res.Code, http.StatusNotFound)

	res = do(t, r, http.MethodPost, "/equipes", `{"operador":"A","auxiliar":"","unidade":"","placa":"X"}`)
	is.Equal(res.Code, http.StatusBadRequest)
	is.True(res.Body["details"] != nil)

	res = do(t, r, http.MethodPost, "/equipes", `{not json`)
	is.Equal(res.Code, http.StatusBadRequest)

	res = do(t, r, http.MethodPost, "/equipes", anaTeam)
	is.Equal(res.Code, http.StatusCreated)
	is.Equal(data(res)["status"], "ativa")
	id := data(res)["id"].(float64)

	res = do(t, r, http.MethodGet, "/equipes/ativa", "")
	is.Equal(res.Code, http.StatusOK)
	is.Equal(data(res)["id"], id)

	res = do(t, r, http.MethodGet, "/equipes/999", "")
	is.Equal(res.Code, http.StatusNotFound)

	res = do(t, r, http.MethodGet, "/equipes/abc", "")
	is.Equal(res.Code, http.StatusBadRequest)

	res = do(t, r, http.MethodGet, "/equipes?page=1&limit=5", "")
	is.Equal(res.Code, http.StatusOK)
	p := res.Body["pagination"].(map[string]any)
	is.Equal(p["total"], float64(1))
	is.Equal(p["limit"], float64(5))
}

func TestOperationRoutes(t *testing.T) {
	is := is.New(t)
	r := newRouter(t)

	res := do(t, r, http.MethodPost, "/operacoes", `{"tipo":"PIG"}`)
	is.Equal(res.Code, http.StatusBadRequest) // no active team

	do(t, r, http.MethodPost, "/equipes", anaTeam)

	res = do(t, r, http.MethodPost, "/operacoes", `{"tipo":"XYZ"}`)
	is.Equal(res.Code, http.StatusBadRequest)

	res = do(t, r, http.MethodPost, "/operacoes", `{"tipo":"PIG","poco":"P-7","cidade":"Mossoró"}`)
	is.Equal(res.Code, http.StatusCreated)
	op := data(res)
	is.Equal(op["etapa"], "MOBILIZANDO")
	path := "/operacoes/" + strconv.Itoa(int(op["id"].(float64)))

	res = do(t, r, http.MethodPost, "/operacoes", `{"tipo":"LIMPEZA"}`)
	is.Equal(res.Code, http.StatusBadRequest) // already active

	res = do(t, r, http.MethodPut, path+"/etapa", `{"etapa":"OPERANDO"}`)
	is.Equal(res.Code, http.StatusOK)
	is.Equal(data(res)["etapa"], "OPERANDO")

	res = do(t, r, http.MethodPut, path+"/etapa", `{"etapa":"PAUSADA"}`)
	is.Equal(res.Code, http.StatusBadRequest)

	res = do(t, r, http.MethodPut, path+"/etapa", `{"etapa":"FINALIZADA"}`)
	is.Equal(res.Code, http.StatusOK)
	is.Equal(data(res)["status"], "inativa")
	is.True(data(res)["data_fim"] != nil)

	res = do(t, r, http.MethodGet, "/operacoes/ativa", "")
	is.Equal(res.Code, http.StatusNotFound)

	res = do(t, r, http.MethodGet, path, "")
	is.Equal(res.Code, http.StatusOK)
	is.Equal(data(res)["etapa"], "FINALIZADA")

	res = do(t, r, http.MethodGet, "/operacoes", "")
	is.Equal(res.Code, http.StatusOK)
	is.Equal(len(res.Body["data"].([]any)), 1)
}

func TestActivityRoutes(t *testing.T) {
	is := is.New(t)
	r := newRouter(t)

	res := do(t, r, http.MethodPost, "/refeicoes", `{}`)
	is.Equal(res.Code, http.StatusBadRequest) // no active team

	do(t, r, http.MethodPost, "/equipes", anaTeam)

	res = do(t, r, http.MethodPost, "/deslocamentos", `{"origem":"Base","destino":"Poço 7"}`)
	is.Equal(res.Code, http.StatusBadRequest) // km_inicial missing

	res = do(t, r, http.MethodPost, "/deslocamentos", `{"origem":"Base","destino":"Poço 7","km_inicial":100}`)
	is.Equal(res.Code, http.StatusCreated)
	id := int(data(res)["id"].(float64))
	is.Equal(data(res)["hora_fim"], nil)

	res = do(t, r, http.MethodPost, "/deslocamentos", `{"origem":"Base","destino":"Poço 8","km_inicial":100}`)
	is.Equal(res.Code, http.StatusBadRequest) // already open

	res = do(t, r, http.MethodGet, "/deslocamentos/ativo", "")
	is.Equal(res.Code, http.StatusOK)
	is.Equal(data(res)["id"], float64(id))

	path := "/deslocamentos/" + strconv.Itoa(id) + "/finalizar"
	res = do(t, r, http.MethodPut, path, `{"km_final":90}`)
	is.Equal(res.Code, http.StatusBadRequest) // odometer went backwards

	res = do(t, r, http.MethodPut, path, `{"km_final":142.5}`)
	is.Equal(res.Code, http.StatusOK)
	is.Equal(data(res)["distancia_km"], 42.5)
	is.True(data(res)["hora_fim"] != nil)

	res = do(t, r, http.MethodPut, path, `{"km_final":150}`)
	is.Equal(res.Code, http.StatusBadRequest) // already finished

	res = do(t, r, http.MethodPut, "/deslocamentos/999/finalizar", `{"km_final":150}`)
	is.Equal(res.Code, http.StatusNotFound)

	res = do(t, r, http.MethodGet, "/deslocamentos/ativo", "")
	is.Equal(res.Code, http.StatusNotFound)

	res = do(t, r, http.MethodGet, "/deslocamentos?equipe_id=1", "")
	is.Equal(res.Code, http.StatusOK)
	is.Equal(len(res.Body["data"].([]any)), 1)

	res = do(t, r, http.MethodGet, "/deslocamentos?equipe_id=x", "")
	is.Equal(res.Code, http.StatusBadRequest)

	res = do(t, r, http.MethodPost, "/abastecimentos", `{"tipo_abastecimento":"GASOLINA"}`)
	is.Equal(res.Code, http.StatusBadRequest)

	res = do(t, r, http.MethodPost, "/abastecimentos", `{"tipo_abastecimento":"AGUA"}`)
	is.Equal(res.Code, http.StatusCreated)
	is.Equal(data(res)["tipo_abastecimento"], "AGUA")

	res = do(t, r, http.MethodPost, "/aguardos", `{"operacao_id":77,"motivo":"Chuva"}`)
	is.Equal(res.Code, http.StatusBadRequest) // unknown operation
}

func TestHealthAndMetrics(t *testing.T) {
	is := is.New(t)
	r := newRouter(t)

	res := do(t, r, http.MethodGet, "/health", "")
	is.Equal(res.Code, http.StatusOK)
	is.Equal(res.Body["database"], "ok")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	is.Equal(w.Code, http.StatusOK)
	is.True(strings.Contains(w.Body.String(), "fieldops_http_requests_total"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	is := is.New(t)
	r := newRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	is.Equal(w.Header().Get("X-Request-ID"), "abc-123")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	is.True(w.Header().Get("X-Request-ID") != "")
}

var errStoreDown = errors.New("connection reset by peer")

type brokenTeams struct {
	store.Store
}

func (brokenTeams) CountTeams(context.Context) (int64, error) { return 0, errStoreDown }

func (brokenTeams) ListTeams(context.Context, int, int) ([]*models.Team, error) {
	return nil, errStoreDown
}

type lostReadBack struct {
	store.Store
	finished atomic.Bool
}

func (s *lostReadBack) FinishActivity(ctx context.Context, kind models.ActivityKind, id int64, p store.FinishParams) error {
	if err := s.Store.FinishActivity(ctx, kind, id, p); err != nil {
		return err
	}
	s.finished.Store(true)
	return nil
}

func (s *lostReadBack) GetActivity(ctx context.Context, kind models.ActivityKind, id int64) (*models.Activity, error) {
	if s.finished.Load() {
		return nil, errStoreDown
	}
	return s.Store.GetActivity(ctx, kind, id)
}

func TestStoreFailureIs500(t *testing.T) {
	is := is.New(t)
	r := newRouterWith(t, func(st store.Store) store.Store { return brokenTeams{Store: st} })

	res := do(t, r, http.MethodGet, "/equipes", "")
	is.Equal(res.Code, http.StatusInternalServerError)
	is.Equal(res.Body["error"], "list teams failed")
	is.Equal(res.Body["details"], nil)
}

func TestFinishWithoutReadBackReturnsSummary(t *testing.T) {
	is := is.New(t)
	r := newRouterWith(t, func(st store.Store) store.Store { return &lostReadBack{Store: st} })

	do(t, r, http.MethodPost, "/equipes", anaTeam)
	res := do(t, r, http.MethodPost, "/refeicoes", `{}`)
	is.Equal(res.Code, http.StatusCreated)
	id := int(data(res)["id"].(float64))

	res = do(t, r, http.MethodPut, "/refeicoes/"+strconv.Itoa(id)+"/finalizar", `{}`)
	is.Equal(res.Code, http.StatusOK)
	is.Equal(data(res)["message"], "activity finished")
	_, ok := data(res)["duracao_segundos"].(float64)
	is.True(ok)
	is.Equal(data(res)["id"], nil)
}

func TestHugePageDoesNotWrap(t *testing.T) {
	is := is.New(t)
	r := newRouter(t)
	do(t, r, http.MethodPost, "/equipes", anaTeam)

	res := do(t, r, http.MethodGet, "/equipes?page=922337203685477582", "")
	is.Equal(res.Code, http.StatusOK)
	is.Equal(len(res.Body["data"].([]any)), 0)
	p := res.Body["pagination"].(map[string]any)
	is.Equal(p["total"], float64(1))
}
