package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/dgnsrekt/voicify-tts/internal/tts"
)

// multipartMemory is held in memory while parsing multipart forms.
const multipartMemory = 32 << 20

// Response messages.
const (
	msgNoText            = "No text provided"
	msgTooLarge          = "Request body too large"
	msgGenerateFailed    = "Failed to generate speech"
	msgGenerateErrorFmt  = "Error generating speech: %v"
	msgUnavailable       = "Voicify TTS not available"
	msgUnavailableDetail = "Voicify TTS engine is not installed or failed to load. Install it to enable speech synthesis."
)

// SpeechRequest is the JSON body of POST /text-to-speech.
type SpeechRequest struct {
	Text string `json:"text"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// UnavailableResponse is returned with 503 when no backend is loaded.
type UnavailableResponse struct {
	Error          string `json:"error"`
	Message        string `json:"message"`
	InstallCommand string `json:"install_command"`
}

// HealthResponse represents the response body for /health.
type HealthResponse struct {
	Status           string `json:"status"`
	Service          string `json:"service"`
	VoicifyAvailable bool   `json:"voicify_available"`
}

// handleHealth handles GET /health requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:           "healthy",
		Service:          ServiceName,
		VoicifyAvailable: s.synth.Available(),
	})
}

// handleTextToSpeech handles POST /text-to-speech requests.
func (s *Server) handleTextToSpeech(w http.ResponseWriter, r *http.Request) {
	scope := chimiddleware.GetReqID(r.Context())
	if scope == "" {
		scope = uuid.NewString()
	}

	// Runs last, after the body has been handed to the transport.
	defer func() {
		if n := s.artifacts.ReleaseAll(scope); n > 0 {
			s.logger.Debug("released artifacts", "scope", scope, "count", n)
		}
	}()
	defer func() {
		if rec := recover(); rec != nil {
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			s.logger.Error("panic while generating speech", "scope", scope, "panic", rec)
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: fmt.Sprintf(msgGenerateErrorFmt, rec)})
		}
	}()

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)

	text, err := readText(r)
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		s.logger.Warn("speech request too large", "scope", scope, "limit", tooLarge.Limit)
		writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: msgTooLarge})
		return
	case err != nil:
		s.logger.Warn("failed to read speech request", "scope", scope, "error", err)
	}
	if text == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msgNoText})
		return
	}

	art, err := s.synth.Synthesize(scope, text)
	if err != nil {
		s.writeSynthesisError(w, scope, err)
		return
	}
	s.artifacts.Register(scope, art.Path)

	w.Header().Set("Content-Type", art.Format.ContentType())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": art.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(art.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(art.Data); err != nil {
		s.logger.Warn("failed to write audio response", "scope", scope, "error", err)
	}
}

// readText returns the text field from a JSON body or a form body. The query
// string is never consulted.
func readText(r *http.Request) (string, error) {
	contentType := r.Header.Get("Content-Type")
	if isJSON(contentType) {
		var req SpeechRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", fmt.Errorf("decode JSON body: %w", err)
		}
		return req.Text, nil
	}

	var err error
	if mediaType, _, _ := mime.ParseMediaType(contentType); mediaType == "multipart/form-data" {
		err = r.ParseMultipartForm(multipartMemory)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return "", fmt.Errorf("parse form: %w", err)
	}
	return r.PostForm.Get("text"), nil
}

func (s *Server) writeSynthesisError(w http.ResponseWriter, scope string, err error) {
	var unavailable *tts.UnavailableError
	switch {
	case errors.Is(err, tts.ErrBackendUnavailable):
		install := s.cfg.InstallCommand
		if errors.As(err, &unavailable) && unavailable.InstallCommand != "" {
			install = unavailable.InstallCommand
		}
		writeJSON(w, http.StatusServiceUnavailable, UnavailableResponse{
			Error:          msgUnavailable,
			Message:        msgUnavailableDetail,
			InstallCommand: install,
		})
	case errors.Is(err, tts.ErrSynthesisFailed):
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: msgGenerateFailed})
	default:
		s.logger.Error("error generating speech", "scope", scope, "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: fmt.Sprintf(msgGenerateErrorFmt, err)})
	}
}

// isJSON reports whether a Content-Type names a JSON body.
func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
