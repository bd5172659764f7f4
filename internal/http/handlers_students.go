package http

import (
	"errors"
	"net/http"

	"tutordesk/internal/core"
	applog "tutordesk/internal/log"
)

type studentsView struct {
	page
	Query    string
	Students []core.Student
	Total    int
	Levels   []string
	Edit     core.Student
	Editing  bool
}

func (s *Server) handleStudents(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ledger.Snapshot(r.Context())
	if err != nil {
		s.fail(w, r, applog.ComponentStudents, applog.OpList, err)
		return
	}

	q := sanitizeInput(r.URL.Query().Get("q"))
	view := studentsView{
		page:     page{Title: "Élèves", Active: "students"},
		Query:    q,
		Students: core.FilterStudents(snap.Students, q),
		Total:    len(snap.Students),
		Levels:   snap.Levels,
	}
	if id := r.URL.Query().Get("edit"); id != "" {
		view.Edit, view.Editing = snap.StudentByID(id)
	}

	if isHTMX(r) && r.Header.Get("HX-Target") == "student-rows" {
		s.writeStudentRows(w, r, NewHTMXResponse(), view.Students)
		return
	}
	s.render(w, r, http.StatusOK, "students.html", view)
}

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	st, err := parseStudent(NewRequestBodyParser(w, r))
	if err != nil {
		s.fail(w, r, applog.ComponentStudents, applog.OpParse, err)
		return
	}

	id, snap, err := s.ledger.AddStudent(r.Context(), st)
	if err != nil && !errors.Is(err, core.ErrStaleSnapshot) {
		s.fail(w, r, applog.ComponentStudents, applog.OpCreate, err)
		return
	}
	s.reqLog.LogStudentSaved(r.Context(), applog.OpCreate, id, st.Level)

	b := NewHTMXResponse().TriggerStudentSaved(id).TriggerFormReset()
	if err != nil {
		s.savedStale(w, r, "/students", applog.ComponentStudents, applog.OpCreate, err, b)
		return
	}
	s.studentsChanged(w, r, snap, b.TriggerSuccessNotification("Élève ajouté."))
}

func (s *Server) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	st, err := parseStudent(NewRequestBodyParser(w, r))
	if err != nil {
		s.fail(w, r, applog.ComponentStudents, applog.OpParse, err)
		return
	}

	snap, err := s.ledger.UpdateStudent(r.Context(), id, st)
	if err != nil && !errors.Is(err, core.ErrStaleSnapshot) {
		s.fail(w, r, applog.ComponentStudents, applog.OpUpdate, err)
		return
	}
	s.reqLog.LogStudentSaved(r.Context(), applog.OpUpdate, id, st.Level)

	b := NewHTMXResponse().TriggerStudentSaved(id).TriggerFormReset()
	if err != nil {
		s.savedStale(w, r, "/students", applog.ComponentStudents, applog.OpUpdate, err, b)
		return
	}
	s.studentsChanged(w, r, snap, b.TriggerSuccessNotification("Élève modifié."))
}

func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	snap, err := s.ledger.DeleteStudent(r.Context(), id)
	if err != nil && !errors.Is(err, core.ErrStaleSnapshot) {
		s.fail(w, r, applog.ComponentStudents, applog.OpDelete, err)
		return
	}
	s.reqLog.LogStudentSaved(r.Context(), applog.OpDelete, id, "")

	b := NewHTMXResponse().TriggerStudentDeleted(id)
	if err != nil {
		s.savedStale(w, r, "/students", applog.ComponentStudents, applog.OpDelete, err, b)
		return
	}
	s.studentsChanged(w, r, snap, b.TriggerSuccessNotification("Élève supprimé."))
}

// studentsChanged answers a successful student write: the refreshed rows for
// HTMX, a redirect to the list otherwise.
func (s *Server) studentsChanged(w http.ResponseWriter, r *http.Request, snap core.Snapshot, b *HTMXResponseBuilder) {
	if !isHTMX(r) {
		http.Redirect(w, r, "/students", http.StatusSeeOther)
		return
	}
	s.writeStudentRows(w, r, b, snap.Students)
}

func (s *Server) writeStudentRows(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, students []core.Student) {
	body, err := s.renderFragment("student_rows", students)
	if err != nil {
		s.reqLog.LogError(r.Context(), "Template execution failed", err, applog.ComponentTemplate, "student_rows", applog.NewFields())
		http.Error(w, "Erreur interne", http.StatusInternalServerError)
		return
	}
	b.BodyHTML(body).Write(w)
}
