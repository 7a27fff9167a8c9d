// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package apitest

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jeranaias/assist-tui/internal/api"
)

// =============================================================================
// AUTH & USERS
// =============================================================================

func (s *Server) login(c *gin.Context) {
	var req api.Credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{{"loc": []string{"body"}, "msg": "invalid json"}}})
		return
	}

	s.mu.Lock()
	u, ok := s.users[strings.ToLower(req.Email)]
	s.mu.Unlock()
	if !ok || !u.checkPassword(req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Incorrect email or password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": s.Token(u.Email, s.TokenTTL),
		"token_type":   "bearer",
	})
}

func (s *Server) logout(c *gin.Context) {
	s.mu.Lock()
	s.revoked[c.GetString("apitest.token")] = true
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}

func (s *Server) register(c *gin.Context) {
	var req api.Registration
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{{"loc": []string{"body"}, "msg": "invalid json"}}})
		return
	}
	if !strings.Contains(req.Email, "@") {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{{
			"loc": []string{"body", "email"},
			"msg": "value is not a valid email address",
		}}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[strings.ToLower(req.Email)]; exists {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Email already registered"})
		return
	}
	u, err := s.addUserLocked(req.Email, req.FullName, req.Password)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{{"loc": []string{"body", "password"}, "msg": err.Error()}}})
		return
	}
	c.JSON(http.StatusOK, u.User)
}

func (s *Server) me(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c).User)
}

// =============================================================================
// ASSISTANTS
// =============================================================================

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{{
			"loc": []string{"path", name},
			"msg": "value is not a valid integer",
		}}})
		return 0, false
	}
	return id, true
}

// ownedAssistant loads the :id assistant and checks ownership. The caller
// must not hold s.mu.
func (s *Server) ownedAssistant(c *gin.Context) (*api.Assistant, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}
	s.mu.Lock()
	a, found := s.assistants[id]
	s.mu.Unlock()
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Help assistant not found"})
		return nil, false
	}
	if a.UserID != currentUser(c).ID {
		c.JSON(http.StatusForbidden, gin.H{"detail": "Not authorized to access this help assistant"})
		return nil, false
	}
	return a, true
}

func (s *Server) listAssistants(c *gin.Context) {
	uid := currentUser(c).ID
	s.mu.Lock()
	out := make([]api.Assistant, 0)
	for id := int64(1); id <= s.nextID; id++ {
		if a, ok := s.assistants[id]; ok && a.UserID == uid {
			out = append(out, *a)
		}
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, out)
}

func (s *Server) createAssistant(c *gin.Context) {
	var in api.AssistantInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{{"loc": []string{"body"}, "msg": "invalid json"}}})
		return
	}
	if in.Name == "" || in.Mission == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{{"loc": []string{"body", "name"}, "msg": "field required"}}})
		return
	}

	u := currentUser(c)
	s.mu.Lock()
	s.nextID++
	a := assistantFrom(s.nextID, u.ID, in)
	s.assistants[a.ID] = a
	s.mu.Unlock()
	c.JSON(http.StatusOK, a)
}

func assistantFrom(id, userID int64, in api.AssistantInput) *api.Assistant {
	pic := in.OperatorPic
	if pic == "" {
		pic = fmt.Sprintf("https://avatars.example.com/%d.png", id)
	}
	return &api.Assistant{
		ID:             id,
		UserID:         userID,
		Name:           in.Name,
		URL:            in.URL,
		Mission:        in.Mission,
		Description:    in.Description,
		Tone:           in.Tone,
		Authorizations: in.Authorizations,
		OperatorName:   in.OperatorName,
		OperatorPic:    pic,
		Model:          in.Model,
	}
}

func (s *Server) getAssistant(c *gin.Context) {
	if a, ok := s.ownedAssistant(c); ok {
		c.JSON(http.StatusOK, a)
	}
}

func (s *Server) updateAssistant(c *gin.Context) {
	a, ok := s.ownedAssistant(c)
	if !ok {
		return
	}
	var in api.AssistantInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{{"loc": []string{"body"}, "msg": "invalid json"}}})
		return
	}
	s.mu.Lock()
	updated := assistantFrom(a.ID, a.UserID, in)
	s.assistants[a.ID] = updated
	s.mu.Unlock()
	c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteAssistant(c *gin.Context) {
	a, ok := s.ownedAssistant(c)
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.assistants, a.ID)
	delete(s.files, a.ID)
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"message": "Assistant deleted successfully"})
}

func (s *Server) tones(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"PROFESSIONAL": "Formal, precise and courteous",
		"FRIENDLY":     "Warm and conversational",
		"CONCISE":      "Short answers, no small talk",
	})
}

func (s *Server) models(c *gin.Context) {
	c.JSON(http.StatusOK, []gin.H{
		{"id": "mistral-small", "name": "Mistral Small", "provider": "albert"},
		{"id": "llama-3.1-70b", "name": "Llama 3.1 70B", "provider": "albert"},
	})
}

// =============================================================================
// CHAT
// =============================================================================

func (s *Server) initChat(c *gin.Context) {
	a, ok := s.ownedAssistant(c)
	if !ok {
		return
	}
	owner := currentUser(c).Email

	s.mu.Lock()
	var found *chat
	for _, ch := range s.chats {
		if ch.assistantID == a.ID && ch.owner == owner {
			found = ch
			break
		}
	}
	if found == nil {
		s.nextID++
		found = &chat{id: s.nextID, assistantID: a.ID, owner: owner}
		s.chats[found.id] = found
	}
	history := append([]api.ChatMessage{}, found.messages...)
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"chat_id":   found.id,
		"assistant": a,
		"messages":  history,
	})
}

func (s *Server) sendMessage(c *gin.Context) {
	a, ok := s.ownedAssistant(c)
	if !ok {
		return
	}
	chatID, ok := paramID(c, "chatId")
	if !ok {
		return
	}
	var body struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Content) == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{{"loc": []string{"body", "content"}, "msg": "field required"}}})
		return
	}

	if gate := s.ReplyGate; gate != nil {
		select {
		case <-gate:
		case <-c.Request.Context().Done():
			return
		}
	}

	s.mu.Lock()
	ch, found := s.chats[chatID]
	if !found || ch.assistantID != a.ID {
		s.mu.Unlock()
		c.JSON(http.StatusNotFound, gin.H{"detail": "Chat not found"})
		return
	}
	var sources []string
	for _, f := range s.files[a.ID] {
		sources = append(sources, f.Filename)
	}
	now := time.Now().UTC()
	s.nextID++
	ch.messages = append(ch.messages, api.ChatMessage{
		ID: s.nextID, Content: body.Content, Emitter: api.EmitterUser, CreatedAt: api.Timestamp{Time: now},
	})
	s.nextID++
	reply := api.ChatMessage{
		ID:        s.nextID,
		Content:   fmt.Sprintf("%s here. You said: %s", a.DisplayName(), body.Content),
		Emitter:   api.EmitterAssistant,
		CreatedAt: api.Timestamp{Time: now},
	}
	ch.messages = append(ch.messages, reply)
	s.mu.Unlock()

	resp := gin.H{"message": gin.H{"content": reply.Content, "created_at": now.Format("2006-01-02T15:04:05.999999")}}
	if len(sources) > 0 {
		resp["sources"] = sources
	}
	c.JSON(http.StatusOK, resp)
}

// =============================================================================
// FILES & COLLECTION
// =============================================================================

func (s *Server) listFiles(c *gin.Context) {
	a, ok := s.ownedAssistant(c)
	if !ok {
		return
	}
	s.mu.Lock()
	out := make([]api.File, 0, len(s.files[a.ID]))
	for _, f := range s.files[a.ID] {
		out = append(out, f.File)
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, out)
}

func (s *Server) uploadFile(c *gin.Context) {
	a, ok := s.ownedAssistant(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "No file provided"})
		return
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if ext != ".pdf" && ext != ".md" && ext != ".txt" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "File type not allowed"})
		return
	}
	src, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	s.mu.Lock()
	s.nextID++
	f := &storedFile{
		File: api.File{
			ID:          s.nextID,
			AssistantID: a.ID,
			Filename:    fh.Filename,
			FileType:    fh.Header.Get("Content-Type"),
			FileSize:    int64(len(data)),
			UploadedAt:  api.Timestamp{Time: time.Now().UTC()},
		},
		data: data,
	}
	s.files[a.ID] = append(s.files[a.ID], f)
	s.mu.Unlock()
	c.JSON(http.StatusOK, f.File)
}

// findFile returns the index of :fileId in the assistant's files, or -1.
// The caller holds s.mu.
func (s *Server) findFileLocked(assistantID, fileID int64) int {
	for i, f := range s.files[assistantID] {
		if f.ID == fileID {
			return i
		}
	}
	return -1
}

func (s *Server) deleteFile(c *gin.Context) {
	a, ok := s.ownedAssistant(c)
	if !ok {
		return
	}
	fileID, ok := paramID(c, "fileId")
	if !ok {
		return
	}
	s.mu.Lock()
	i := s.findFileLocked(a.ID, fileID)
	if i >= 0 {
		s.files[a.ID] = append(s.files[a.ID][:i], s.files[a.ID][i+1:]...)
	}
	s.mu.Unlock()
	if i < 0 {
		c.JSON(http.StatusNotFound, gin.H{"detail": "File not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "File deleted successfully"})
}

func (s *Server) downloadFile(c *gin.Context) {
	a, ok := s.ownedAssistant(c)
	if !ok {
		return
	}
	fileID, ok := paramID(c, "fileId")
	if !ok {
		return
	}
	s.mu.Lock()
	var f *storedFile
	if i := s.findFileLocked(a.ID, fileID); i >= 0 {
		f = s.files[a.ID][i]
	}
	s.mu.Unlock()
	if f == nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "File not found"})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Filename))
	c.Data(http.StatusOK, "application/octet-stream", f.data)
}

func (s *Server) collection(c *gin.Context) {
	a, ok := s.ownedAssistant(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":                a.ID,
		"albert_id":         fmt.Sprintf("assistant_%d_collection", a.ID),
		"help_assistant_id": a.ID,
		"created_at":        time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) search(c *gin.Context) {
	a, ok := s.ownedAssistant(c)
	if !ok {
		return
	}
	var body struct {
		Query string `json:"query"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{{"loc": []string{"body", "query"}, "msg": "field required"}}})
		return
	}

	s.mu.Lock()
	s.queries = append(s.queries, body.Query)
	hook := s.SearchHook
	fixed, hasFixed := s.results[body.Query]
	var names []string
	for _, f := range s.files[a.ID] {
		names = append(names, f.Filename)
	}
	s.mu.Unlock()

	if hook != nil {
		hook(body.Query)
	}

	if hasFixed {
		c.JSON(http.StatusOK, gin.H{"results": fixed})
		return
	}
	results := make([]gin.H, 0, len(names))
	for i, name := range names {
		results = append(results, gin.H{
			"content":  fmt.Sprintf("%s matched %q", name, body.Query),
			"score":    1.0 / float64(i+1),
			"metadata": gin.H{"document_name": name},
		})
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}
