package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/practice-sem-2/chat-service/internal/auth"
	"github.com/practice-sem-2/chat-service/internal/models"
	storage "github.com/practice-sem-2/chat-service/internal/storages"
	"github.com/practice-sem-2/chat-service/internal/updates"
	usecase "github.com/practice-sem-2/chat-service/internal/usecases"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokens map[string]*auth.UserClaims

func (t tokens) Verify(token string) (*auth.UserClaims, error) {
	if token == "" {
		return nil, auth.ErrMissingToken
	}
	claims, ok := t[token]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return claims, nil
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	logger, _ := test.NewNullLogger()

	mem := storage.NewMemoryRegistry()
	verifier := tokens{}
	for _, id := range []string{"alice", "bob", "carol"} {
		mem.AddUser(models.User{ID: id, Username: id + "_name"})
		verifier[id+"-token"] = &auth.UserClaims{UID: id, Username: id + "_name"}
	}

	chats := usecase.NewChatsUsecase(mem, updates.NewBus(validator.New()), logger)
	srv := NewChatServer(chats, verifier, validator.New(), logger)

	app := fiber.New(fiber.Config{ErrorHandler: srv.ErrorHandler})
	srv.Register(app)
	return app
}

func call(t *testing.T, app *fiber.App, method, path, token string, body any, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func Test_ChatServer_PrivateConversation(t *testing.T) {
	app := newTestApp(t)

	var chat models.PrivateChatDTO
	code := call(t, app, http.MethodPost, "/chats/private", "alice-token", CreatePrivateChatRequest{ParticipantID: "bob"}, &chat)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, models.PrivateChatKind, chat.Type)
	require.Len(t, chat.Participants, 2)

	var sent []models.MessageDTO
	code = call(t, app, http.MethodGet, "/chats/"+chat.ID+"/messages", "bob-token", nil, &sent)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, sent)

	for _, cursor := range []string{"x", "4f6bbc43-8c4f-4bd4-9d44-4c1c4bca0e47"} {
		code = call(t, app, http.MethodGet, "/chats/"+chat.ID+"/messages?beforeMessageId="+cursor, "bob-token", nil, nil)
		assert.Equal(t, http.StatusNotFound, code, cursor)
	}

	var chats models.UserChatsDTO
	code = call(t, app, http.MethodGet, "/chats", "bob-token", nil, &chats)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, chats.PrivateChats, 1)
	assert.Equal(t, chat.ID, chats.PrivateChats[0].ID)
	assert.Empty(t, chats.GroupChats)

	var details models.PrivateChatDTO
	code = call(t, app, http.MethodGet, "/chats/"+chat.ID, "alice-token", nil, &details)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, chat.ID, details.ID)
	assert.Zero(t, details.UnreadCount)

	var failure map[string]string
	code = call(t, app, http.MethodGet, "/chats/"+chat.ID, "carol-token", nil, &failure)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, usecase.ErrUnauthorizedChatAccess.Error(), failure["error"])

	var left models.PrivateChatDTO
	code = call(t, app, http.MethodPost, "/chats/private/"+chat.ID+"/leave", "bob-token", nil, &left)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, http.StatusForbidden, call(t, app, http.MethodGet, "/chats/"+chat.ID, "bob-token", nil, nil))
}

func Test_ChatServer_GroupManagement(t *testing.T) {
	app := newTestApp(t)

	var group models.GroupChatDTO
	code := call(t, app, http.MethodPost, "/chats/group", "alice-token", CreateGroupChatRequest{
		Name:           "Team",
		ParticipantIDs: []string{"bob"},
	}, &group)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Team", group.Name)
	require.Len(t, group.Participants, 2)
	assert.True(t, group.Participants[0].IsAdmin)

	code = call(t, app, http.MethodPost, "/chats/group/"+group.ID+"/members", "alice-token", AddMemberRequest{UserID: "carol"}, &group)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, group.Participants, 3)

	code = call(t, app, http.MethodPost, "/chats/group/"+group.ID+"/members", "bob-token", AddMemberRequest{UserID: "carol"}, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code = call(t, app, http.MethodPost, "/chats/group/"+group.ID+"/admins/bob", "alice-token", nil, &group)
	require.Equal(t, http.StatusOK, code)

	code = call(t, app, http.MethodDelete, "/chats/group/"+group.ID+"/admins/alice", "bob-token", nil, &group)
	require.Equal(t, http.StatusOK, code)

	code = call(t, app, http.MethodDelete, "/chats/group/"+group.ID+"/admins/bob", "bob-token", nil, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code = call(t, app, http.MethodPatch, "/chats/group/"+group.ID, "bob-token", RenameGroupRequest{Name: "Dream Team"}, &group)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Dream Team", group.Name)

	code = call(t, app, http.MethodDelete, "/chats/group/"+group.ID+"/members/carol", "bob-token", nil, &group)
	require.Equal(t, http.StatusOK, code)

	code = call(t, app, http.MethodPost, "/chats/group/"+group.ID+"/leave", "alice-token", nil, &group)
	require.Equal(t, http.StatusOK, code)

	var chats models.UserChatsDTO
	code = call(t, app, http.MethodGet, "/chats", "carol-token", nil, &chats)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, chats.GroupChats)
}

func Test_ChatServer_RequestErrors(t *testing.T) {
	app := newTestApp(t)

	testCases := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		code   int
	}{
		{"missing token", http.MethodGet, "/chats", "", nil, http.StatusUnauthorized},
		{"forged token", http.MethodGet, "/chats", "forged", nil, http.StatusUnauthorized},
		{"missing participant", http.MethodPost, "/chats/private", "alice-token", CreatePrivateChatRequest{}, http.StatusBadRequest},
		{"chat with yourself", http.MethodPost, "/chats/private", "alice-token", CreatePrivateChatRequest{ParticipantID: "alice"}, http.StatusBadRequest},
		{"unknown participant", http.MethodPost, "/chats/private", "alice-token", CreatePrivateChatRequest{ParticipantID: "ghost"}, http.StatusNotFound},
		{"short group name", http.MethodPost, "/chats/group", "alice-token", CreateGroupChatRequest{Name: "ab"}, http.StatusBadRequest},
		{"unknown chat", http.MethodGet, "/chats/4f6bbc43-8c4f-4bd4-9d44-4c1c4bca0e47", "alice-token", nil, http.StatusNotFound},
		{"negative limit", http.MethodGet, "/chats/4f6bbc43-8c4f-4bd4-9d44-4c1c4bca0e47/messages?limit=-1", "alice-token", nil, http.StatusBadRequest},
		{"unknown message", http.MethodPost, "/messages/4f6bbc43-8c4f-4bd4-9d44-4c1c4bca0e47/read", "alice-token", nil, http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var failure map[string]string
			code := call(t, app, tc.method, tc.path, tc.token, tc.body, &failure)
			assert.Equal(t, tc.code, code)
			assert.NotEmpty(t, failure["error"])
		})
	}
}

func Test_ChatServer_ErrorHandlerHidesInternalErrors(t *testing.T) {
	logger, hook := test.NewNullLogger()
	srv := NewChatServer(nil, tokens{}, validator.New(), logger)

	app := fiber.New(fiber.Config{ErrorHandler: srv.ErrorHandler})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return wrapError(io.ErrUnexpectedEOF)
	})

	var failure map[string]string
	code := call(t, app, http.MethodGet, "/boom", "", nil, &failure)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, fiber.ErrInternalServerError.Message, failure["error"])

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, io.ErrUnexpectedEOF, hook.LastEntry().Data["error"])
}

func Test_wrapError(t *testing.T) {
	testCases := []struct {
		err  error
		code int
	}{
		{models.ErrChatNotFound, fiber.StatusNotFound},
		{models.ErrUserNotFound, fiber.StatusNotFound},
		{usecase.ErrUnauthorizedChatAccess, fiber.StatusForbidden},
		{models.ErrAdminRequired, fiber.StatusForbidden},
		{usecase.ErrAuthenticationRequired, fiber.StatusUnauthorized},
		{models.ErrEmptyMessage, fiber.StatusBadRequest},
		{models.ErrLastAdmin, fiber.StatusBadRequest},
	}

	for _, tc := range testCases {
		var fe *fiber.Error
		require.ErrorAs(t, wrapError(tc.err), &fe)
		assert.Equal(t, tc.code, fe.Code, tc.err.Error())
	}

	assert.NoError(t, wrapError(nil))
}
