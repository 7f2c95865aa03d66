package refdata

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
)

type mockRepo struct {
	rows map[Kind][]Item
	fail error
}

func newMockRepo() *mockRepo {
	return &mockRepo{rows: make(map[Kind][]Item)}
}

func (m *mockRepo) List(_ context.Context, kind Kind) ([]Item, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	return append([]Item{}, m.rows[kind]...), nil
}

func (m *mockRepo) GetByID(_ context.Context, kind Kind, id int) (*Item, error) {
	for _, it := range m.rows[kind] {
		if it.ID == id {
			it := it
			return &it, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockRepo) GetByCode(_ context.Context, kind Kind, code string) (*Item, error) {
	for _, it := range m.rows[kind] {
		if it.Code == code {
			it := it
			return &it, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockRepo) Insert(_ context.Context, kind Kind, item Item) (bool, error) {
	for _, it := range m.rows[kind] {
		if it.Code == item.Code {
			return false, nil
		}
	}
	item.ID = len(m.rows[kind]) + 1
	m.rows[kind] = append(m.rows[kind], item)
	return true, nil
}

func seeded(t *testing.T) (*Service, *mockRepo) {
	t.Helper()
	repo := newMockRepo()
	svc := NewService(repo)
	if _, err := svc.Seed(context.Background()); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	return svc, repo
}

func TestSeed_Idempotent(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	first, err := svc.Seed(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := 0
	for _, items := range Defaults() {
		want += len(items)
	}
	if first != want {
		t.Errorf("first seed added %d rows, want %d", first, want)
	}
	second, err := svc.Seed(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if second != 0 {
		t.Errorf("second seed added %d rows, want 0", second)
	}
}

func TestResolve_Defaults(t *testing.T) {
	svc, repo := seeded(t)
	ctx := context.Background()

	for kind, code := range map[Kind]string{
		KindPatientType:       DefaultPatientType,
		KindLanguage:          DefaultLanguage,
		KindContactPreference: DefaultContactPreference,
	} {
		id, err := svc.Resolve(ctx, kind, code)
		if err != nil {
			t.Fatalf("Resolve(%s, %s): %v", kind, code, err)
		}
		it, _ := repo.GetByID(ctx, kind, id)
		if it == nil || it.Code != code {
			t.Errorf("Resolve(%s, %s) = %d, which is %+v", kind, code, id, it)
		}
	}
}

func TestResolve_UnseededIsInternal(t *testing.T) {
	svc := NewService(newMockRepo())
	_, err := svc.Resolve(context.Background(), KindLanguage, "French")
	if !apperr.IsKind(err, apperr.KindInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestCheck(t *testing.T) {
	svc, _ := seeded(t)
	ctx := context.Background()

	if err := svc.Check(ctx, "patientTypeId", KindPatientType, 1); err != nil {
		t.Errorf("Check existing id: %v", err)
	}
	err := svc.Check(ctx, "patientTypeId", KindPatientType, 99)
	e := apperr.As(err)
	if e.Kind != apperr.KindValidation || len(e.Fields) != 1 || e.Fields[0] != "patientTypeId" {
		t.Errorf("Check unknown id = %+v", e)
	}
}

func TestCode(t *testing.T) {
	svc, _ := seeded(t)
	ctx := context.Background()

	code, err := svc.Code(ctx, "statusId", KindAppointmentStatus, 1)
	if err != nil {
		t.Fatalf("Code: %v", err)
	}
	if code != Defaults()[KindAppointmentStatus][0].Code {
		t.Errorf("Code(1) = %q", code)
	}
	if _, err := svc.Code(ctx, "statusId", KindAppointmentStatus, 42); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error for unknown id, got %v", err)
	}
}

func TestCatalog_RepoFailure(t *testing.T) {
	repo := newMockRepo()
	repo.fail = errors.New("connection reset")
	_, err := NewService(repo).Catalog(context.Background())
	if !apperr.IsKind(err, apperr.KindInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestKindTable(t *testing.T) {
	if _, err := Kind("users").table(); err == nil {
		t.Error("expected unknown kind to be rejected")
	}
	for _, k := range Kinds {
		if !k.Valid() {
			t.Errorf("%s should be valid", k)
		}
	}
}

func TestHandler_List(t *testing.T) {
	svc, _ := seeded(t)
	h := NewHandler(svc)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reference-data", nil)
	req = req.WithContext(auth.WithPrincipal(req.Context(), auth.Principal{UserID: uuid.New(), Role: auth.RolePatient}))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.List(c); err != nil {
		t.Fatalf("List: %v", err)
	}
	var body map[string][]Item
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body) != len(Kinds) {
		t.Errorf("expected %d kinds, got %d", len(Kinds), len(body))
	}
	if len(body["notificationTypes"]) != 4 {
		t.Errorf("notificationTypes = %v", body["notificationTypes"])
	}
}

func TestHandler_ListAnonymous(t *testing.T) {
	svc, _ := seeded(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reference-data", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	err := NewHandler(svc).List(c)
	if !apperr.IsKind(err, apperr.KindAuthentication) {
		t.Fatalf("expected authentication error, got %v", err)
	}
}
