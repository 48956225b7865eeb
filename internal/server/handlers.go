package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/anirbandas/job-apply-agent/internal/agent"
	"github.com/anirbandas/job-apply-agent/internal/auth"
	"github.com/anirbandas/job-apply-agent/internal/profile"
	"github.com/anirbandas/job-apply-agent/internal/queue"
	"github.com/anirbandas/job-apply-agent/internal/utils"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type registerRequest struct {
	FullName   string   `json:"full_name"`
	Email      string   `json:"email"`
	Password   string   `json:"password"`
	Phone      string   `json:"phone"`
	Skills     []string `json:"skills"`
	Education  []string `json:"education"`
	Experience []string `json:"experience"`
	Locations  []string `json:"locations"`
	VisaType   string   `json:"visa_type"`
	Summary    string   `json:"summary"`
}

type authResponse struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.FullName == "" || req.Email == "" {
		respondError(w, http.StatusBadRequest, "full_name and email are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	p := &profile.Profile{
		FullName:     req.FullName,
		Email:        req.Email,
		Phone:        req.Phone,
		Skills:       req.Skills,
		Education:    req.Education,
		Experience:   req.Experience,
		Locations:    req.Locations,
		VisaType:     req.VisaType,
		Summary:      req.Summary,
		PasswordHash: hash,
	}

	id, err := s.profiles.Create(r.Context(), p)
	if err != nil {
		if errors.Is(err, profile.ErrDuplicateEmail) {
			respondError(w, http.StatusConflict, "email already registered")
			return
		}
		s.logger.Error("profile creation failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	s.manager.Register(utils.SanitizeUserID(id))

	token, err := s.tokens.IssueToken(id, req.Email)
	if err != nil {
		s.logger.Error("token issue failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	respondJSON(w, http.StatusCreated, authResponse{UserID: id, Token: token})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := s.profiles.GetByEmail(r.Context(), strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		s.logger.Error("profile lookup failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "login failed")
		return
	}

	if err := auth.CheckPassword(p.PasswordHash, req.Password); err != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	// Make sure the lifecycle handle exists even after a process restart.
	s.manager.Register(utils.SanitizeUserID(p.ID))

	token, err := s.tokens.IssueToken(p.ID, p.Email)
	if err != nil {
		s.logger.Error("token issue failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "login failed")
		return
	}

	respondJSON(w, http.StatusOK, authResponse{UserID: p.ID, Token: token})
}

func (s *Server) handleVerifyToken(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	respondJSON(w, http.StatusOK, map[string]string{
		"user_id": claims.UserID,
		"email":   claims.Email,
	})
}

type parseResumeRequest struct {
	ResumeText string `json:"resume_text"`
}

const maxResumeUploadBytes = 10 << 20

// handleParseResume extracts a profile from uploaded resumes. The browser
// sends a multipart form with one or more "files" parts; API clients may
// post a JSON body with resume_text instead. Multiple files are concatenated
// and extracted as a single profile.
func (s *Server) handleParseResume(w http.ResponseWriter, r *http.Request) {
	var text string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		uploaded, err := readResumeUploads(r)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		text = uploaded
	} else {
		var req parseResumeRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		text = req.ResumeText
	}

	if strings.TrimSpace(text) == "" {
		respondError(w, http.StatusBadRequest, "no resume content provided")
		return
	}

	p, err := s.extractor.Extract(r.Context(), text)
	if err != nil {
		s.logger.Warn("resume extraction failed", zap.Error(err))
		respondError(w, http.StatusUnprocessableEntity, "could not extract a profile from the resume")
		return
	}

	respondJSON(w, http.StatusOK, p.Redacted())
}

// readResumeUploads reads every "files" part of the multipart form and glues
// them into one resume text.
func readResumeUploads(r *http.Request) (string, error) {
	if err := r.ParseMultipartForm(maxResumeUploadBytes); err != nil {
		return "", errors.New("invalid multipart form")
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		return "", errors.New("no files uploaded")
	}

	var parts []string
	for _, header := range files {
		f, err := header.Open()
		if err != nil {
			return "", fmt.Errorf("reading upload %q", header.Filename)
		}

		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return "", fmt.Errorf("reading upload %q", header.Filename)
		}

		parts = append(parts, string(data))
	}

	return strings.Join(parts, "\n\n"), nil
}

func (s *Server) handleAgentStart(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	userID := utils.SanitizeUserID(claims.UserID)

	if _, err := s.profiles.GetByID(r.Context(), claims.UserID); err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			respondError(w, http.StatusNotFound, "profile not found")
			return
		}
		s.logger.Error("profile lookup failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "start failed")
		return
	}

	s.manager.Register(userID)
	if err := s.manager.Start(s.baseCtx, userID); err != nil {
		s.logger.Error("agent start failed", zap.String("user_id", userID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "start failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"user_id": userID, "active": true})
}

func (s *Server) handleAgentStop(w http.ResponseWriter, r *http.Request) {
	userID := utils.SanitizeUserID(claimsFrom(r).UserID)

	if err := s.manager.Stop(userID); err != nil {
		if errors.Is(err, agent.ErrUnknownUser) {
			respondError(w, http.StatusNotFound, "agent not registered")
			return
		}
		respondError(w, http.StatusInternalServerError, "stop failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"user_id": userID, "active": false})
}

func (s *Server) handleAgentStatus(w http.ResponseWriter, r *http.Request) {
	userID := utils.SanitizeUserID(claimsFrom(r).UserID)

	active, err := s.manager.Status(userID)
	if err != nil {
		if errors.Is(err, agent.ErrUnknownUser) {
			respondError(w, http.StatusNotFound, "agent not registered")
			return
		}
		respondError(w, http.StatusInternalServerError, "status failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"user_id": userID, "active": active})
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	userID := utils.SanitizeUserID(claimsFrom(r).UserID)

	status := queue.Status(chi.URLParam(r, "status"))
	if !status.Valid() {
		respondError(w, http.StatusBadRequest, "unknown queue status")
		return
	}

	records, err := s.queues.ReadAll(r.Context(), userID, status)
	if err != nil {
		if errors.Is(err, queue.ErrLocked) {
			respondError(w, http.StatusServiceUnavailable, "queue is busy, retry shortly")
			return
		}
		s.logger.Error("queue read failed", zap.String("user_id", userID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "queue read failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":  status,
		"records": records,
	})
}
