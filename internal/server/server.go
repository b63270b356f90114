// Package server exposes the portal's HTTP surface: auth, uploads, the
// PDF explainer, chat (SSE and JSON), recommended questions, contacts
// and admin user management.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"studyportal/internal/app"
	"studyportal/internal/ratelimit"
	"studyportal/internal/util"
	"studyportal/pkg/domain"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App

	// Limiter guards signup, login and contact creation. Nil disables
	// rate limiting (tests).
	Limiter *ratelimit.FixedWindowLimiter

	// MaxUploadBytes caps multipart PDF uploads.
	MaxUploadBytes int64
}

// Server routes HTTP requests to the application core.
type Server struct {
	app            *app.App
	limiter        *ratelimit.FixedWindowLimiter
	maxUploadBytes int64
	mux            *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 20 << 20
	}
	s := &Server{
		app:            cfg.App,
		limiter:        cfg.Limiter,
		maxUploadBytes: maxUpload,
		mux:            http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the handler with the middleware chain applied.
func (s *Server) Router() http.Handler {
	var h http.Handler = s.mux
	h = util.WithCORS(h)
	h = util.WithSecurityHeaders(h)
	h = util.WithRequestLog(h)
	h = util.WithRequestID(h)
	return h
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	s.mux.HandleFunc("/api/auth/signup", s.handleSignup)
	s.mux.HandleFunc("/api/auth/login", s.handleLogin)
	s.mux.Handle("/api/users/me", s.authenticated(s.handleMe))

	s.mux.Handle("/api/admin/users", s.adminOnly(s.handleAdminUsers))
	s.mux.Handle("/api/admin/users/", s.adminOnly(s.handleAdminUserByID))

	s.mux.HandleFunc("/api/uploads", s.handleUploads)
	s.mux.HandleFunc("/api/uploads/", s.handleUploadByID)

	s.mux.HandleFunc("/api/pdf", s.handlePDF)
	s.mux.HandleFunc("/api/questions", s.handleQuestions)
	s.mux.HandleFunc("/api/chat", s.handleChat)

	s.mux.HandleFunc("/api/contacts", s.handleContacts)
	s.mux.HandleFunc("/api/contacts/", s.handleContactByID)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// auth wrappers

type authHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) adminOnly(next authHandler) http.Handler {
	return s.authenticated(func(w http.ResponseWriter, r *http.Request, user domain.User) {
		if user.Role != domain.RoleAdmin {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) authorize(r *http.Request) (domain.User, bool) {
	token, ok := bearerToken(r)
	if !ok {
		return domain.User{}, false
	}
	return s.app.UserFromToken(token)
}

func (s *Server) allow(w http.ResponseWriter, r *http.Request) bool {
	if s.limiter == nil {
		return true
	}
	if !s.limiter.Allow(util.ClientIP(r)) {
		writeError(w, http.StatusTooManyRequests, "too many requests")
		return false
	}
	return true
}

// auth handlers

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allow(w, r) {
		return
	}
	var req signupRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, token, err := s.app.SignUp(req.Name, req.Email, req.Password)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allow(w, r) {
		return
	}
	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, token, err := s.app.Login(req.Email, req.Password)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// admin user handlers

func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	users, err := s.app.ListUsers()
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleAdminUserByID(w http.ResponseWriter, r *http.Request, _ domain.User) {
	id := strings.TrimPrefix(r.URL.Path, "/api/admin/users/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	if err := s.app.DeleteUser(id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted"})
}

// upload handlers

func (s *Server) handleUploads(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listUploads(w, r)
	case http.MethodPost:
		s.createUpload(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) listUploads(w http.ResponseWriter, r *http.Request) {
	filter, err := uploadFilterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	uploads, err := s.app.ListUploads(filter)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, uploads)
}

func (s *Server) createUpload(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authorize(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	// Both creation variants write to the curated library, so both
	// require the admin role.
	if user.Role != domain.RoleAdmin {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	if r.URL.Query().Get("stream") == "1" {
		in, err := s.uploadInputFromMultipart(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		sink, err := newSSESink(w)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.app.CreateUploadStream(r.Context(), in, sink)
		return
	}

	in, err := s.uploadInputFromMultipart(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	upload, err := s.app.CreateUpload(r.Context(), in)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Upload created successfully",
		"upload":  upload,
	})
}

func (s *Server) handleUploadByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/uploads/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	user, ok := s.authorize(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if user.Role != domain.RoleAdmin {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	if err := s.app.DeleteUpload(r.Context(), id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Upload deleted"})
}

// uploadInputFromMultipart reads the multipart form into a
// CreateUploadInput. Field validation belongs to the app layer; only
// transport-level failures error here.
func (s *Server) uploadInputFromMultipart(r *http.Request) (app.CreateUploadInput, error) {
	var in app.CreateUploadInput
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		return in, errors.New("invalid multipart form")
	}
	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		data, readErr := io.ReadAll(io.LimitReader(file, s.maxUploadBytes))
		if readErr != nil {
			return in, errors.New("failed to read uploaded file")
		}
		in.FileName = header.Filename
		in.ContentType = header.Header.Get("Content-Type")
		in.Data = data
	}
	in.Year = r.FormValue("year")
	in.UniversityYear = r.FormValue("universityYear")
	in.Semester = r.FormValue("semester")
	in.Module = r.FormValue("module")
	in.Type = r.FormValue("type")
	in.Speciality = r.FormValue("speciality")
	in.Solution = r.FormValue("solution")
	return in, nil
}

// pdf explainer

func (s *Server) handlePDF(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	in, err := s.uploadInputFromMultipart(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if r.URL.Query().Get("stream") == "1" {
		sink, err := newSSESink(w)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.app.ExplainPDFStream(r.Context(), in.Data, sink)
		return
	}

	explanation, err := s.app.ExplainPDF(r.Context(), in.Data)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"explanation": explanation})
}

// recommended questions

type questionsRequest struct {
	Year       json.Number `json:"year"`
	Semester   json.Number `json:"semester"`
	Module     string      `json:"module"`
	Type       string      `json:"type"`
	Speciality string      `json:"speciality"`
}

func (s *Server) handleQuestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req questionsRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	questions, err := s.app.RecommendedQuestions(r.Context(), app.QuestionRequest{
		Year:       req.Year.String(),
		Semester:   req.Semester.String(),
		Module:     req.Module,
		Type:       req.Type,
		Speciality: req.Speciality,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": questions})
}

// chat

type chatJSONRequest struct {
	Message    string      `json:"message"`
	Year       json.Number `json:"year"`
	Semester   json.Number `json:"semester"`
	Module     string      `json:"module"`
	Type       string      `json:"type"`
	Speciality string      `json:"speciality"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.chatStream(w, r)
	case http.MethodPost:
		s.chatJSON(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) chatStream(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := app.ChatRequest{
		Message:    q.Get("message"),
		Year:       q.Get("year"),
		Semester:   q.Get("semester"),
		Module:     q.Get("module"),
		Type:       q.Get("type"),
		Speciality: q.Get("speciality"),
	}
	sink, err := newSSESink(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.app.ChatStream(r.Context(), req, sink)
}

func (s *Server) chatJSON(w http.ResponseWriter, r *http.Request) {
	var req chatJSONRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	reply, err := s.app.ChatJSON(r.Context(), app.ChatRequest{
		Message:    req.Message,
		Year:       req.Year.String(),
		Semester:   req.Semester.String(),
		Module:     req.Module,
		Type:       req.Type,
		Speciality: req.Speciality,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

// contacts

type contactRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Message  string `json:"message"`
}

type contactSeenRequest struct {
	IsSeen bool `json:"isSeen"`
}

func (s *Server) handleContacts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		if !s.allow(w, r) {
			return
		}
		var req contactRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		contact, err := s.app.CreateContact(req.FullName, req.Email, req.Message)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"message": "Contact inquiry submitted successfully",
			"contact": contact,
		})
	case http.MethodGet:
		s.adminOnly(func(w http.ResponseWriter, r *http.Request, _ domain.User) {
			contacts, err := s.app.ListContacts()
			if err != nil {
				s.writeAppError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, contacts)
		}).ServeHTTP(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleContactByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/contacts/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	s.adminOnly(func(w http.ResponseWriter, r *http.Request, _ domain.User) {
		switch r.Method {
		case http.MethodPatch:
			var req contactSeenRequest
			if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid JSON body")
				return
			}
			contact, err := s.app.SetContactSeen(id, req.IsSeen)
			if err != nil {
				s.writeAppError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"message": "Contact status updated successfully",
				"contact": contact,
			})
		case http.MethodDelete:
			if err := s.app.DeleteContact(id); err != nil {
				s.writeAppError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"message": "Contact deleted successfully"})
		default:
			methodNotAllowed(w)
		}
	}).ServeHTTP(w, r)
}

// helpers

func uploadFilterFromQuery(r *http.Request) (domain.UploadFilter, error) {
	var f domain.UploadFilter
	q := r.URL.Query()
	var err error
	if f.Year, err = intQueryParam(q.Get("year"), "year"); err != nil {
		return f, err
	}
	if f.UniversityYear, err = intQueryParam(q.Get("universityYear"), "universityYear"); err != nil {
		return f, err
	}
	if f.Semester, err = intQueryParam(q.Get("semester"), "semester"); err != nil {
		return f, err
	}
	f.Type = domain.UploadType(q.Get("type"))
	f.Module = q.Get("module")
	f.Speciality = domain.Speciality(q.Get("speciality"))
	return f, nil
}

func intQueryParam(raw, name string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil, errors.New("invalid query parameter: " + name)
	}
	return &n, nil
}

func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case app.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrUploadNotFound),
		errors.Is(err, app.ErrContactNotFound),
		errors.Is(err, app.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		util.LoggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "Server error")
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
