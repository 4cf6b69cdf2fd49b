package handler

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/siswa-admin/internal/middleware"
	"github.com/noah-isme/siswa-admin/internal/models"
	"github.com/noah-isme/siswa-admin/internal/service"
	"github.com/noah-isme/siswa-admin/internal/session"
	"github.com/noah-isme/siswa-admin/pkg/config"
)

type fakeUserRepo struct {
	users map[string]models.User
}

func (f *fakeUserRepo) FindByUsername(_ context.Context, username string) (*models.User, error) {
	if user, ok := f.users[username]; ok {
		return &user, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	f.users[user.Username] = *user
	return nil
}

type fakeStudentRepo struct {
	students map[string]models.Student
	niks     map[string]bool
}

func (f *fakeStudentRepo) List(context.Context) ([]models.Student, error) {
	list := make([]models.Student, 0, len(f.students))
	for _, s := range f.students {
		list = append(list, s)
	}
	return list, nil
}

func (f *fakeStudentRepo) FindByNISN(_ context.Context, nisn string) (*models.Student, error) {
	if s, ok := f.students[nisn]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentRepo) ExistsByNIK(_ context.Context, nik string) (bool, error) {
	return f.niks[nik], nil
}

func (f *fakeStudentRepo) ExistsByNISN(_ context.Context, nisn string) (bool, error) {
	_, ok := f.students[nisn]
	return ok, nil
}

func (f *fakeStudentRepo) Create(_ context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = "generated"
	}
	f.students[student.NISN] = *student
	f.niks[student.NIK] = true
	return nil
}

func (f *fakeStudentRepo) UpdateByNISN(_ context.Context, update models.StudentUpdate) error {
	if s, ok := f.students[update.NISN]; ok {
		s.Tingkat = update.Tingkat
		s.Rombel = update.Rombel
		s.TglMasuk = update.TglMasuk
		s.Terdaftar = update.Terdaftar
		f.students[update.NISN] = s
	}
	return nil
}

func (f *fakeStudentRepo) DeleteByNISN(_ context.Context, nisn string) error {
	delete(f.students, nisn)
	return nil
}

type testApp struct {
	server   http.Handler
	students *fakeStudentRepo
	cookies  []*http.Cookie
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.MinCost)
	require.NoError(t, err)
	userRepo := &fakeUserRepo{users: map[string]models.User{
		"admin": {ID: "u-1", Username: "admin", PasswordHash: string(hash)},
	}}
	studentRepo := &fakeStudentRepo{students: make(map[string]models.Student), niks: make(map[string]bool)}

	sessions := session.NewManager(session.NewMemoryStore(), config.SessionConfig{CookieName: "siswa_session", TTL: time.Hour})
	cutoff := time.Date(2025, time.November, 26, 0, 0, 0, 0, time.UTC)

	authSvc := service.NewAuthService(userRepo, nil, zap.NewNop())
	studentSvc := service.NewStudentService(studentRepo, cutoff, zap.NewNop())

	authHandler := NewAuthHandler(authSvc, sessions, zap.NewNop())
	studentHandler := NewStudentHandler(studentSvc, sessions, zap.NewNop())

	r := gin.New()
	r.LoadHTMLGlob("../../web/templates/*.html")

	r.GET("/login", authHandler.ShowLogin)
	r.POST("/login", authHandler.Login)
	r.GET("/logout", authHandler.Logout)
	r.GET("/about", studentHandler.About)

	gate := middleware.RequireSession(sessions, zap.NewNop())
	r.GET("/", gate, studentHandler.Home)

	siswa := r.Group("/data-siswa", gate)
	siswa.GET("", studentHandler.List)
	siswa.GET("/add", studentHandler.AddForm)
	siswa.POST("", studentHandler.Create)
	siswa.DELETE("", studentHandler.Delete)
	siswa.GET("/edit/:nisn", studentHandler.EditForm)
	siswa.PUT("", studentHandler.Update)
	siswa.GET("/export", studentHandler.Export)

	return &testApp{server: middleware.MethodOverride(r), students: studentRepo}
}

func (a *testApp) do(t *testing.T, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, cookie := range a.cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	a.server.ServeHTTP(rec, req)
	if cookies := rec.Result().Cookies(); len(cookies) > 0 {
		a.cookies = cookies
	}
	return rec
}

func (a *testApp) login(t *testing.T) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/login", url.Values{"username": {"admin"}, "password": {"admin"}})
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/", rec.Header().Get("Location"))
}

func validStudentForm() url.Values {
	return url.Values{
		"nik":       {"1234567890123456"},
		"nisn":      {"1234567890"},
		"nama":      {"Budi"},
		"tingkat":   {"X"},
		"rombel":    {"X-1"},
		"tgl_masuk": {"2024-07-15"},
		"terdaftar": {"Aktif"},
	}
}

func TestAuthGateRedirectsAnonymous(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = app.do(t, http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Silakan login terlebih dahulu!")

	// Flash is one-shot.
	rec = app.do(t, http.MethodGet, "/login", nil)
	assert.NotContains(t, rec.Body.String(), "Silakan login terlebih dahulu!")
}

func TestLoginEmptyFields(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/login", url.Values{"username": {""}, "password": {""}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Username harus diisi!")
	assert.Contains(t, rec.Body.String(), "Password harus diisi!")

	rec = app.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestLoginWrongCredentials(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/login", url.Values{"username": {"admin"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Username atau password salah!")

	rec = app.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestLoginSuccessAndIdempotentLoginPage(t *testing.T) {
	app := newTestApp(t)
	app.login(t)

	rec := app.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Login berhasil!")
	assert.Contains(t, rec.Body.String(), "admin")

	rec = app.do(t, http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestLogout(t *testing.T) {
	app := newTestApp(t)
	app.login(t)

	rec := app.do(t, http.MethodGet, "/logout", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = app.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestAboutIsPublic(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/about", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateStudentValidationFailure(t *testing.T) {
	app := newTestApp(t)
	app.login(t)

	form := validStudentForm()
	form.Set("nik", "123")
	rec := app.do(t, http.MethodPost, "/data-siswa", form)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "NIK harus 16 digit!")
	// Submitted values are preserved on the re-rendered form.
	assert.Contains(t, rec.Body.String(), "Budi")
	assert.Empty(t, app.students.students)
}

func TestCreateStudentAfterCutoff(t *testing.T) {
	app := newTestApp(t)
	app.login(t)

	form := validStudentForm()
	form.Set("tgl_masuk", "2025-12-01")
	rec := app.do(t, http.MethodPost, "/data-siswa", form)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Tanggal masuk tidak boleh melebihi 26 November 2025!")
	assert.Empty(t, app.students.students)
}

func TestCreateStudentSuccess(t *testing.T) {
	app := newTestApp(t)
	app.login(t)

	rec := app.do(t, http.MethodPost, "/data-siswa", validStudentForm())
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/data-siswa", rec.Header().Get("Location"))

	rec = app.do(t, http.MethodGet, "/data-siswa", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Data Siswa berhasil ditambahkan!")
	assert.Contains(t, rec.Body.String(), "1234567890")
}

func TestEditFormRoundTrip(t *testing.T) {
	app := newTestApp(t)
	app.login(t)
	app.do(t, http.MethodPost, "/data-siswa", validStudentForm())

	rec := app.do(t, http.MethodGet, "/data-siswa/edit/1234567890", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Budi")
	assert.Contains(t, rec.Body.String(), "2024-07-15")
}

func TestEditFormMissingRecordRendersEmpty(t *testing.T) {
	app := newTestApp(t)
	app.login(t)

	rec := app.do(t, http.MethodGet, "/data-siswa/edit/0000000000", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateStudentViaMethodOverride(t *testing.T) {
	app := newTestApp(t)
	app.login(t)
	app.do(t, http.MethodPost, "/data-siswa", validStudentForm())

	form := url.Values{
		"_method":   {"PUT"},
		"nisn":      {"1234567890"},
		"tingkat":   {"XI"},
		"rombel":    {"XI-2"},
		"tgl_masuk": {"2024-07-15"},
		"terdaftar": {"Tidak Aktif"},
	}
	rec := app.do(t, http.MethodPost, "/data-siswa", form)
	require.Equal(t, http.StatusFound, rec.Code)

	stored := app.students.students["1234567890"]
	assert.Equal(t, "XI", stored.Tingkat)
	assert.Equal(t, "Budi", stored.Nama)
}

func TestUpdateRequiresDate(t *testing.T) {
	app := newTestApp(t)
	app.login(t)

	form := url.Values{"_method": {"PUT"}, "nisn": {"1234567890"}, "tgl_masuk": {""}}
	rec := app.do(t, http.MethodPost, "/data-siswa", form)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Tanggal masuk harus diisi!")
}

func TestDeleteMissingStudentStillSucceeds(t *testing.T) {
	app := newTestApp(t)
	app.login(t)
	app.do(t, http.MethodPost, "/data-siswa", validStudentForm())

	form := url.Values{"_method": {"DELETE"}, "nisn": {"0000000000"}}
	rec := app.do(t, http.MethodPost, "/data-siswa", form)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Len(t, app.students.students, 1)

	rec = app.do(t, http.MethodGet, "/data-siswa", nil)
	assert.Contains(t, rec.Body.String(), "Data Siswa berhasil dihapus!")
}

func TestExportCSV(t *testing.T) {
	app := newTestApp(t)
	app.login(t)
	app.do(t, http.MethodPost, "/data-siswa", validStudentForm())

	rec := app.do(t, http.MethodGet, "/data-siswa/export?format=csv", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Body.String(), "Budi")
}
