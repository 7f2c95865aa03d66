package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/db"
)

// -- Mocks --

type mockUserRepo struct {
	users      map[uuid.UUID]*User
	failCreate error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*User)}
}

func (m *mockUserRepo) Create(_ context.Context, u *User) error {
	if m.failCreate != nil {
		return m.failCreate
	}
	for _, existing := range m.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return &pgconn.PgError{Code: "23505", ConstraintName: constraintUsername}
		}
		if u.PatientID != nil && existing.PatientID != nil && *existing.PatientID == *u.PatientID {
			return &pgconn.PgError{Code: "23505", ConstraintName: constraintPatientLink}
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = time.Now()
	m.users[u.ID] = u
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockUserRepo) Update(_ context.Context, u *User) error {
	for id, existing := range m.users {
		if id != u.ID && u.PatientID != nil && existing.PatientID != nil && *existing.PatientID == *u.PatientID {
			return &pgconn.PgError{Code: "23505", ConstraintName: constraintPatientLink}
		}
	}
	u.UpdatedAt = time.Now()
	m.users[u.ID] = u
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.users, id)
	return nil
}

func (m *mockUserRepo) List(_ context.Context, role *auth.Role, limit, offset int) ([]*User, int, error) {
	var result []*User
	for _, u := range m.users {
		if role == nil || u.Role == *role {
			result = append(result, u)
		}
	}
	return result, len(result), nil
}

type mockPatients struct {
	patients map[uuid.UUID]PatientRegistration
}

func newMockPatients() *mockPatients {
	return &mockPatients{patients: make(map[uuid.UUID]PatientRegistration)}
}

func (m *mockPatients) Register(_ context.Context, in PatientRegistration) (uuid.UUID, error) {
	id := uuid.New()
	m.patients[id] = in
	return id, nil
}

func (m *mockPatients) Summary(_ context.Context, id uuid.UUID) (*PatientSummary, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, apperr.NotFound("patient")
	}
	email := p.Email
	return &PatientSummary{ID: id, FirstName: p.FirstName, LastName: p.LastName, Email: &email}, nil
}

func (m *mockPatients) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := m.patients[id]
	return ok, nil
}

// snapshotTx discards patients registered inside a failed transaction.
type snapshotTx struct {
	patients *mockPatients
	failures int
}

func (s *snapshotTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	before := make(map[uuid.UUID]PatientRegistration, len(s.patients.patients))
	for k, v := range s.patients.patients {
		before[k] = v
	}
	if err := fn(ctx); err != nil {
		s.failures++
		s.patients.patients = before
		return err
	}
	return nil
}

var _ db.TxRunner = (*snapshotTx)(nil)

type fixture struct {
	svc      *Service
	users    *mockUserRepo
	patients *mockPatients
	tx       *snapshotTx
	tokens   *auth.TokenIssuer
	hasher   *auth.PasswordHasher
}

func newFixture() *fixture {
	f := &fixture{
		users:    newMockUserRepo(),
		patients: newMockPatients(),
		tokens:   auth.NewTokenIssuer([]byte("identity-test-secret-0123456789ab"), "clinic-test", time.Hour),
		hasher:   auth.NewPasswordHasher(bcrypt.MinCost),
	}
	f.tx = &snapshotTx{patients: f.patients}
	f.svc = NewService(f.users, f.patients, f.tokens, f.hasher, f.tx, zerolog.Nop())
	return f
}

func (f *fixture) addUser(t *testing.T, username, password string, role auth.Role) *User {
	t.Helper()
	u := &User{Username: username, Role: role}
	if err := u.SetPassword(f.hasher, password); err != nil {
		t.Fatal(err)
	}
	if err := f.users.Create(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	return u
}

var registration = RegisterInput{
	FirstName: "Jeanne",
	LastName:  "Martin",
	Email:     "Jeanne.Martin@example.com",
	Password:  "s3cret-pass",
}

// -- Tests --

func TestLogin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := f.addUser(t, "dr.house@clinic.test", "correct-horse", auth.RoleDoctor)

	resp, err := f.svc.Login(ctx, LoginInput{Username: "DR.House@clinic.test", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.ID != u.ID || resp.Role != auth.RoleDoctor || resp.Token == "" {
		t.Errorf("unexpected response %+v", resp)
	}
	pr, err := f.tokens.Parse(resp.Token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if pr.UserID != u.ID || pr.Role != auth.RoleDoctor || pr.PatientID != nil {
		t.Errorf("token principal = %+v", pr)
	}
}

func TestLogin_Failures(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.addUser(t, "admin", "admin-password", auth.RoleAdministrator)

	tests := []struct {
		name string
		in   LoginInput
		kind apperr.Kind
	}{
		{"missing password", LoginInput{Username: "admin"}, apperr.KindValidation},
		{"missing both", LoginInput{}, apperr.KindValidation},
		{"unknown user", LoginInput{Username: "nobody", Password: "whatever1"}, apperr.KindAuthentication},
		{"wrong password", LoginInput{Username: "admin", Password: "wrong-password"}, apperr.KindAuthentication},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Login(ctx, tt.in)
			if !apperr.IsKind(err, tt.kind) {
				t.Fatalf("expected %s, got %v", tt.kind, err)
			}
		})
	}
}

func TestRegisterPatient(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	resp, err := f.svc.RegisterPatient(ctx, registration)
	if err != nil {
		t.Fatalf("RegisterPatient: %v", err)
	}
	if resp.Role != auth.RolePatient || resp.PatientID == nil {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Username != "jeanne.martin@example.com" {
		t.Errorf("username = %q", resp.Username)
	}
	pr, err := f.tokens.Parse(resp.Token)
	if err != nil {
		t.Fatal(err)
	}
	if pr.PatientID == nil || *pr.PatientID != *resp.PatientID {
		t.Errorf("token patient id = %v, want %v", pr.PatientID, *resp.PatientID)
	}
	if _, ok := f.patients.patients[*resp.PatientID]; !ok {
		t.Error("patient record not created")
	}
}

func TestRegisterPatient_EmailAlreadyUsed(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.svc.RegisterPatient(ctx, registration); err != nil {
		t.Fatal(err)
	}

	dup := registration
	dup.Email = "JEANNE.MARTIN@example.com"
	dup.FirstName = "Other"
	_, err := f.svc.RegisterPatient(ctx, dup)
	e := apperr.As(err)
	if e.Kind != apperr.KindConflict || e.Message != "email already used" || e.Status() != http.StatusBadRequest {
		t.Fatalf("expected 400 conflict, got %+v", e)
	}
	if len(f.users.users) != 1 || len(f.patients.patients) != 1 {
		t.Errorf("duplicate rows created: %d users, %d patients", len(f.users.users), len(f.patients.patients))
	}
}

func TestRegisterPatient_UserInsertFailureRollsBack(t *testing.T) {
	f := newFixture()
	f.users.failCreate = &pgconn.PgError{Code: "23505", ConstraintName: constraintUsername}

	_, err := f.svc.RegisterPatient(context.Background(), registration)
	if err != ErrEmailUsed {
		t.Fatalf("expected ErrEmailUsed, got %v", err)
	}
	if f.tx.failures != 1 {
		t.Errorf("transaction failures = %d", f.tx.failures)
	}
	if len(f.patients.patients) != 0 {
		t.Error("orphan patient left behind")
	}
}

func TestMe(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	resp, err := f.svc.RegisterPatient(ctx, registration)
	if err != nil {
		t.Fatal(err)
	}

	me, err := f.svc.Me(ctx, auth.Principal{UserID: resp.ID, Role: auth.RolePatient, PatientID: resp.PatientID})
	if err != nil {
		t.Fatal(err)
	}
	if me.Patient == nil || me.Patient.FirstName != "Jeanne" {
		t.Errorf("patient summary = %+v", me.Patient)
	}

	doc := f.addUser(t, "doc", "doctor-pass", auth.RoleDoctor)
	me, err = f.svc.Me(ctx, doc.Principal())
	if err != nil {
		t.Fatal(err)
	}
	if me.Patient != nil {
		t.Error("doctor should have no patient summary")
	}
}

func TestChangePassword(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := f.addUser(t, "admin", "old-password", auth.RoleAdministrator)
	pr := u.Principal()

	err := f.svc.ChangePassword(ctx, pr, ChangePasswordInput{OldPassword: "nope-nope", NewPassword: "new-password"})
	e := apperr.As(err)
	if e.Kind != apperr.KindValidation || e.Message != "current password is incorrect" {
		t.Fatalf("wrong old password: got %+v", e)
	}
	if len(e.Fields) != 1 || e.Fields[0] != "oldPassword" {
		t.Errorf("wrong old password fields = %v", e.Fields)
	}
	if err := f.svc.ChangePassword(ctx, pr, ChangePasswordInput{OldPassword: "old-password", NewPassword: "short"}); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("short new password: got %v", err)
	}
	if err := f.svc.ChangePassword(ctx, pr, ChangePasswordInput{OldPassword: "old-password", NewPassword: "new-password"}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Login(ctx, LoginInput{Username: "admin", Password: "new-password"}); err != nil {
		t.Errorf("login with new password: %v", err)
	}
	if _, err := f.svc.Login(ctx, LoginInput{Username: "admin", Password: "old-password"}); err == nil {
		t.Error("old password still accepted")
	}
}

func TestSetPassword_AlwaysRehashes(t *testing.T) {
	h := auth.NewPasswordHasher(bcrypt.MinCost)
	u := &User{}
	if err := u.SetPassword(h, "same-password"); err != nil {
		t.Fatal(err)
	}
	first := u.PasswordHash
	if err := u.SetPassword(h, "same-password"); err != nil {
		t.Fatal(err)
	}
	if u.PasswordHash == first {
		t.Error("expected a fresh hash on every call")
	}
	if !u.CheckPassword(h, "same-password") {
		t.Error("hash does not verify")
	}
}

func TestCreateUser_PatientLink(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	pid, _ := f.patients.Register(ctx, PatientRegistration{FirstName: "A", LastName: "B"})
	unknown := uuid.New()

	tests := []struct {
		name string
		in   CreateUserInput
		kind apperr.Kind
	}{
		{"doctor", CreateUserInput{Username: "doc", Password: "password1", Role: "Doctor"}, ""},
		{"patient linked", CreateUserInput{Username: "pat", Password: "password1", Role: "patient", PatientID: &pid}, ""},
		{"second link to same patient", CreateUserInput{Username: "pat2", Password: "password1", Role: "Patient", PatientID: &pid}, apperr.KindConflict},
		{"duplicate username", CreateUserInput{Username: "DOC", Password: "password1", Role: "Doctor"}, apperr.KindConflict},
		{"patient without link", CreateUserInput{Username: "p3", Password: "password1", Role: "Patient"}, apperr.KindValidation},
		{"patient unknown link", CreateUserInput{Username: "p4", Password: "password1", Role: "Patient", PatientID: &unknown}, apperr.KindValidation},
		{"doctor with link", CreateUserInput{Username: "d2", Password: "password1", Role: "Doctor", PatientID: &pid}, apperr.KindValidation},
		{"bad role", CreateUserInput{Username: "n", Password: "password1", Role: "Nurse"}, apperr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateUser(ctx, tt.in)
			if tt.kind == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !apperr.IsKind(err, tt.kind) {
				t.Fatalf("expected %s, got %v", tt.kind, err)
			}
		})
	}
}

func TestUpdateUser_RoleChangeDropsLink(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	pid, _ := f.patients.Register(ctx, PatientRegistration{FirstName: "A", LastName: "B"})
	u, err := f.svc.CreateUser(ctx, CreateUserInput{Username: "pat", Password: "password1", Role: "Patient", PatientID: &pid})
	if err != nil {
		t.Fatal(err)
	}

	role := "Doctor"
	updated, err := f.svc.UpdateUser(ctx, u.ID, UpdateUserInput{Role: &role})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Role != auth.RoleDoctor || updated.PatientID != nil {
		t.Errorf("unexpected user %+v", updated)
	}

	pw := "rotated-password"
	if _, err := f.svc.UpdateUser(ctx, u.ID, UpdateUserInput{Password: &pw}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Login(ctx, LoginInput{Username: "pat", Password: pw}); err != nil {
		t.Errorf("login after reset: %v", err)
	}
}

func TestDeleteUser(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	admin := f.addUser(t, "admin", "admin-password", auth.RoleAdministrator)
	doc := f.addUser(t, "doc", "doctor-pass", auth.RoleDoctor)

	if err := f.svc.DeleteUser(ctx, admin.Principal(), admin.ID); !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("self delete: got %v", err)
	}
	if err := f.svc.DeleteUser(ctx, admin.Principal(), doc.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.DeleteUser(ctx, admin.Principal(), doc.ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("second delete: got %v", err)
	}
}

func TestListUsers_RoleFilter(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.addUser(t, "admin", "admin-password", auth.RoleAdministrator)
	f.addUser(t, "doc1", "doctor-pass", auth.RoleDoctor)
	f.addUser(t, "doc2", "doctor-pass", auth.RoleDoctor)

	items, total, err := f.svc.ListUsers(ctx, "doctor", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(items) != 2 {
		t.Errorf("got %d/%d doctors", len(items), total)
	}
	if _, _, err := f.svc.ListUsers(ctx, "Nurse", 10, 0); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("bad role filter: got %v", err)
	}
}

// -- Handler Tests --

func TestHandler_RegisterPatientCreated(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)
	e := echo.New()

	body := `{"firstName":"Jeanne","lastName":"Martin","email":"jm@example.com","password":"s3cret-pass"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register-patient", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := h.RegisterPatient(e.NewContext(req, rec)); err != nil {
		t.Fatalf("RegisterPatient: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"token"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestHandler_RegisterPatientMissingFields(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register-patient", strings.NewReader(`{"email":"jm@example.com"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	err := h.RegisterPatient(e.NewContext(req, httptest.NewRecorder()))
	e2 := apperr.As(err)
	if e2.Kind != apperr.KindValidation || len(e2.Fields) != 3 {
		t.Fatalf("expected validation naming three fields, got %+v", e2)
	}
}

func TestHandler_UsersRequireAdministrator(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	req = req.WithContext(auth.WithPrincipal(req.Context(), auth.Principal{UserID: uuid.New(), Role: auth.RoleDoctor}))
	err := h.ListUsers(e.NewContext(req, httptest.NewRecorder()))
	if !apperr.IsKind(err, apperr.KindAuthorization) {
		t.Fatalf("expected authorization error, got %v", err)
	}
}
