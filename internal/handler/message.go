package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"fakearchive/internal/archive"
	"fakearchive/internal/model"
	"fakearchive/internal/service"
)

// maxBodyBytes はリクエストボディの上限 (1MB)
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) isOriginAllowed(origin string) bool {
	for _, allowed := range h.Config.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}

	return false
}

// GetMessages handles GET /messages
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	log.Printf("[GET /messages] Request received from %s", r.RemoteAddr)

	if origin := r.Header.Get("Origin"); origin != "" && !h.isOriginAllowed(origin) {
		log.Printf("[GET /messages] ❌ Forbidden origin: %s", origin)
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}

	msgList, err := h.Service.List(r.Context())
	if err != nil {
		log.Printf("[GET /messages] ❌ Storage error: %v", err)
		writeError(w, http.StatusInternalServerError, "Storage error")
		return
	}

	log.Printf("[GET /messages] ✅ Returned %d messages", len(msgList))
	writeJSON(w, http.StatusOK, msgList)
}

// CreateMessage handles POST /messages
func (h *Handler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	log.Printf("[POST /messages] Request received from %s", r.RemoteAddr)

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var msg model.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		log.Printf("[POST /messages] ❌ Bad Request: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if msg.Content == "" {
		log.Printf("[POST /messages] ❌ Bad Request: missing or empty content")
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	if msg.ID <= 0 {
		log.Printf("[POST /messages] ❌ Bad Request: invalid id %d", msg.ID)
		writeError(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}

	// 保存時刻をタイムスタンプとする
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}

	if err := h.Service.Append(r.Context(), msg); err != nil {
		log.Printf("[POST /messages] ❌ Storage error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to archive message")
		return
	}

	log.Printf("[POST /messages] ✅ Archived message: ID=%d", msg.ID)
	h.notify(model.ArchiveEvent{Type: model.EventArchived, ID: msg.ID, Timestamp: msg.Timestamp})

	writeJSON(w, http.StatusCreated, msg)
}

// DeleteMessage handles DELETE /messages/{id}
func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	rawID := mux.Vars(r)["id"]
	log.Printf("[DELETE /messages/%s] Request received from %s", rawID, r.RemoteAddr)

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		log.Printf("[DELETE /messages/%s] ❌ Bad Request: %v", rawID, err)
		writeError(w, http.StatusBadRequest, "Invalid message id")
		return
	}

	if err := h.deleteMessage(r, id); err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			log.Printf("[DELETE /messages/%d] ❌ Not Found", id)
			writeError(w, http.StatusNotFound, "Message not found")
			return
		}
		log.Printf("[DELETE /messages/%d] ❌ Storage error: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to delete message")
		return
	}

	log.Printf("[DELETE /messages/%d] ✅ Deleted successfully", id)
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAndReload handles GET /messages/{id}/delete, the target of the
// delete controls rendered into the archive view. After removing the
// message it sends the browser back to the page it came from.
func (h *Handler) DeleteAndReload(w http.ResponseWriter, r *http.Request) {
	rawID := mux.Vars(r)["id"]
	log.Printf("[GET /messages/%s/delete] Request received from %s", rawID, r.RemoteAddr)

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		log.Printf("[GET /messages/%s/delete] ❌ Bad Request: %v", rawID, err)
		writeError(w, http.StatusBadRequest, "Invalid message id")
		return
	}

	// 存在しない場合も元のページに戻す
	if err := h.deleteMessage(r, id); err != nil && !errors.Is(err, archive.ErrNotFound) {
		log.Printf("[GET /messages/%d/delete] ❌ Storage error: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to delete message")
		return
	}

	target := h.redirectTarget(r)
	if target == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	log.Printf("[GET /messages/%d/delete] ✅ Reloading %s", id, target)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) deleteMessage(r *http.Request, id int64) error {
	if err := h.Service.Delete(r.Context(), id); err != nil {
		return err
	}
	h.notify(model.ArchiveEvent{Type: model.EventRemoved, ID: id, Timestamp: time.Now().UnixMilli()})
	log.Printf("[WebSocket] 📢 Broadcasting remove event for message: %d", id)
	return nil
}

// redirectTarget returns the "redirect" parameter or the Referer when its
// origin is allowed, and "" otherwise.
func (h *Handler) redirectTarget(r *http.Request) string {
	for _, candidate := range []string{r.URL.Query().Get("redirect"), r.Referer()} {
		if candidate == "" {
			continue
		}
		parsed, err := url.Parse(candidate)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			continue
		}
		if h.isOriginAllowed(fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)) {
			return candidate
		}
	}
	return ""
}

// ProcessPage handles POST /page. The body is the host page markup; the
// response is the same page with the archive rendered or the store links
// hooked.
func (h *Handler) ProcessPage(w http.ResponseWriter, r *http.Request) {
	log.Printf("[POST /page] Request received from %s", r.RemoteAddr)

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("[POST /page] ❌ Bad Request: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.Service.Process(r.Context(), string(body))
	if err != nil {
		log.Printf("[POST /page] ❌ Processing error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to process page")
		return
	}
	if res.Failures != nil {
		log.Printf("[POST /page] ⚠️  %s mode incomplete: %v", res.Mode, res.Failures)
	}

	log.Printf("[POST /page] ✅ Processed page in %s mode (captured=%d)", res.Mode, res.Captured)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Archive-Mode", string(res.Mode))
	io.WriteString(w, res.Markup)
}

// SaveMessage handles GET /save/{token}
func (h *Handler) SaveMessage(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	log.Printf("[GET /save/%s] Request received from %s", token, r.RemoteAddr)

	msg, err := h.Service.Save(r.Context(), token)
	if err != nil {
		if errors.Is(err, service.ErrUnknownToken) {
			log.Printf("[GET /save/%s] ❌ Not Found", token)
			writeError(w, http.StatusNotFound, "Unknown save token")
			return
		}
		log.Printf("[GET /save/%s] ❌ Storage error: %v", token, err)
		writeError(w, http.StatusInternalServerError, "Failed to archive message")
		return
	}

	log.Printf("[GET /save/%s] ✅ Archived message: ID=%d", token, msg.ID)
	h.notify(model.ArchiveEvent{Type: model.EventArchived, ID: msg.ID, Timestamp: msg.Timestamp})

	w.WriteHeader(http.StatusNoContent)
}
