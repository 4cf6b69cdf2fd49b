package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/siswa-admin/internal/models"
	"github.com/noah-isme/siswa-admin/internal/service"
	"github.com/noah-isme/siswa-admin/internal/session"
	appErrors "github.com/noah-isme/siswa-admin/pkg/errors"
)

// StudentHandler exposes the server-rendered student record pages.
type StudentHandler struct {
	students *service.StudentService
	sessions *session.Manager
	logger   *zap.Logger
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students *service.StudentService, sessions *session.Manager, logger *zap.Logger) *StudentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentHandler{students: students, sessions: sessions, logger: logger}
}

// Home renders the landing page with the record list.
func (h *StudentHandler) Home(c *gin.Context) {
	students, err := h.students.List(c.Request.Context())
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	nama := "Admin"
	if sess, err := h.sessions.Current(c); err == nil && sess.Authenticated() {
		nama = sess.Username
	}

	render(c, h.sessions, h.logger, http.StatusOK, "home.html", gin.H{
		"title":  "Home Page",
		"nama":   nama,
		"siswas": students,
	})
}

// About renders the static info page.
func (h *StudentHandler) About(c *gin.Context) {
	render(c, h.sessions, h.logger, http.StatusOK, "about.html", gin.H{
		"title": "About Page",
	})
}

// List renders the student listing page.
func (h *StudentHandler) List(c *gin.Context) {
	students, err := h.students.List(c.Request.Context())
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	render(c, h.sessions, h.logger, http.StatusOK, "data-siswa.html", gin.H{
		"title":  "Data Siswa",
		"siswas": students,
	})
}

// AddForm renders the empty add-student form.
func (h *StudentHandler) AddForm(c *gin.Context) {
	render(c, h.sessions, h.logger, http.StatusOK, "add-siswa.html", gin.H{
		"title": "Add Data Siswa Form",
	})
}

// Create validates the submission and inserts the record. Validation
// failures re-render the form with the submitted values preserved.
func (h *StudentHandler) Create(c *gin.Context) {
	var form service.StudentForm
	_ = c.ShouldBind(&form)

	fieldErrs, err := h.students.Create(c.Request.Context(), form)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	if len(fieldErrs) > 0 {
		render(c, h.sessions, h.logger, http.StatusOK, "add-siswa.html", gin.H{
			"title":  "Add Data Siswa Form",
			"errors": fieldErrs,
			"siswa":  form,
		})
		return
	}

	if err := h.sessions.Flash(c, "Data Siswa berhasil ditambahkan!"); err != nil {
		h.logger.Error("failed to set flash", zap.Error(err))
	}
	c.Redirect(http.StatusFound, "/data-siswa")
}

// EditForm renders the edit form pre-filled by NISN. A NISN matching no
// record renders the form with an empty record instead of a 404.
func (h *StudentHandler) EditForm(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("nisn"))
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	if student == nil {
		student = &models.Student{}
	}

	render(c, h.sessions, h.logger, http.StatusOK, "edit-siswa.html", gin.H{
		"title": "Edit Data Siswa Form",
		"siswa": student,
	})
}

// Update validates the submission and applies the partial update by NISN.
func (h *StudentHandler) Update(c *gin.Context) {
	var form service.StudentEditForm
	_ = c.ShouldBind(&form)

	fieldErrs, err := h.students.Update(c.Request.Context(), form)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	if len(fieldErrs) > 0 {
		render(c, h.sessions, h.logger, http.StatusOK, "edit-siswa.html", gin.H{
			"title":  "Edit Data Siswa Form",
			"errors": fieldErrs,
			"siswa":  form,
		})
		return
	}

	if err := h.sessions.Flash(c, "Data Siswa berhasil diedit!"); err != nil {
		h.logger.Error("failed to set flash", zap.Error(err))
	}
	c.Redirect(http.StatusFound, "/data-siswa")
}

// Delete removes the record named by the nisn form field. There is no
// existence check; the flow always redirects with a success message.
func (h *StudentHandler) Delete(c *gin.Context) {
	if err := h.students.Delete(c.Request.Context(), c.PostForm("nisn")); err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	if err := h.sessions.Flash(c, "Data Siswa berhasil dihapus!"); err != nil {
		h.logger.Error("failed to set flash", zap.Error(err))
	}
	c.Redirect(http.StatusFound, "/data-siswa")
}

// Export streams the record list as a CSV or PDF download.
func (h *StudentHandler) Export(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))

	filename, contentType, payload, err := h.students.Export(c.Request.Context(), format)
	if err != nil {
		_ = c.AbortWithError(appErrors.FromError(err).Status, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}
