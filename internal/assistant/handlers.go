package assistant

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/thanaphumeng-byte/Dose-DISH-APP/internal/analysis"
)

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON encodes a JSON response body
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// serviceError maps service sentinel errors onto HTTP responses
func serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrProfileRequired):
		corsError(w, "Please complete your profile first", http.StatusPreconditionFailed)
	case errors.Is(err, ErrEmptyInput):
		corsError(w, "Text or an image is required", http.StatusBadRequest)
	default:
		corsError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// handleGetProfile returns the saved profile
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.service.Profile()
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			corsError(w, "No profile saved", http.StatusNotFound)
			return
		}
		slog.Error("Error getting profile", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// handleSaveProfile stores the submitted profile
func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	var profile UserProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.service.SaveProfile(&profile); err != nil {
		slog.Error("Error saving profile", "error", err)
		setCORSHeaders(w)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// handleGetTheme returns the theme preference
func (s *Server) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := s.service.Theme()
	if err != nil {
		slog.Error("Error getting theme", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"theme": theme})
}

// handleSaveTheme stores the theme preference
func (s *Server) handleSaveTheme(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Theme string `json:"theme"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.service.SaveTheme(req.Theme); err != nil {
		setCORSHeaders(w)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"theme": req.Theme})
}

// handleScan analyzes a multipart scan submission: mode and language
// fields plus either a text field or an uploaded file
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	// 50MB cap to handle high-resolution phone photos
	maxFormSize := int64(50 << 20)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		setCORSHeaders(w)
		errorMsg := "Error parsing form"
		if err.Error() == "http: request body too large" {
			errorMsg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errorMsg})
		return
	}

	mode := analysis.ScanMode(r.FormValue("mode"))
	lang := analysis.Language(r.FormValue("language"))
	input := analysis.ScanInput{Text: r.FormValue("text")}

	f, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer f.Close()
		if header.Size > maxFormSize {
			corsError(w, "File is too large. Maximum size is 50MB.", http.StatusBadRequest)
			return
		}
		data, readErr := io.ReadAll(f)
		if readErr != nil {
			slog.Error("Error reading file data", "error", readErr, "filename", header.Filename)
			corsError(w, "Error reading file", http.StatusBadRequest)
			return
		}
		input.Image = data
		input.ContentType = header.Header.Get("Content-Type")
	case errors.Is(err, http.ErrMissingFile):
		// text-only scan
	default:
		slog.Error("Error getting file from form", "error", err)
		corsError(w, "Invalid file upload", http.StatusBadRequest)
		return
	}

	result, err := s.service.Scan(input, mode, lang)
	if err != nil {
		slog.Error("Error processing scan", "mode", mode, "error", err)
		serviceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleInteractionCheck runs a direct food/drug interaction check
func (s *Server) handleInteractionCheck(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Food     string `json:"food"`
		Drug     string `json:"drug"`
		Language string `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := s.service.CheckInteraction(req.Food, req.Drug, analysis.Language(req.Language))
	if err != nil {
		slog.Error("Error checking interaction", "food", req.Food, "drug", req.Drug, "error", err)
		serviceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleChatHistory returns the session conversation in send order
func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	history := s.service.ChatHistory()
	if history == nil {
		history = []ChatMessage{}
	}
	writeJSON(w, http.StatusOK, history)
}

// handleChatSend sends one chat turn. The optional image arrives as
// base64 with any data-URI prefix already stripped by the client.
func (s *Server) handleChatSend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message   string `json:"message"`
		Image     string `json:"image,omitempty"`
		ImageType string `json:"image_type,omitempty"`
		Language  string `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var image []byte
	if req.Image != "" {
		// Tolerate clients that send the full data URI anyway
		if idx := strings.Index(req.Image, ","); idx != -1 && strings.HasPrefix(req.Image, "data:") {
			req.Image = req.Image[idx+1:]
		}
		decoded, err := base64.StdEncoding.DecodeString(req.Image)
		if err != nil {
			corsError(w, "Invalid image encoding", http.StatusBadRequest)
			return
		}
		image = decoded
	}

	reply, err := s.service.Chat(req.Message, image, req.ImageType, analysis.Language(req.Language))
	if err != nil {
		slog.Error("Error sending chat message", "error", err)
		serviceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

// handleChatReset clears the session conversation
func (s *Server) handleChatReset(w http.ResponseWriter, r *http.Request) {
	s.service.ResetChat()
	w.WriteHeader(http.StatusNoContent)
}

// handleLabSeries returns chartable lab history points
func (s *Server) handleLabSeries(w http.ResponseWriter, r *http.Request) {
	points, err := s.service.LabSeries()
	if err != nil {
		slog.Error("Error listing lab series", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, points)
}
