package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"atfal-portal/internal/authz"
	"atfal-portal/internal/mocks"
	"atfal-portal/internal/models"
	"atfal-portal/pkg/apperr"
)

func tiflParty() authz.Party {
	majlisID := uuid.New()
	return authz.Party{ID: uuid.New(), Role: models.RoleTifl, MajlisID: &majlisID}
}

func TestListFriendRequestsAnnotatesDirectionAndNames(t *testing.T) {
	actor := tiflParty()
	peer := uuid.New()
	stranger := uuid.New()

	requests := new(mocks.FriendRequestRepositoryMock)
	users := new(mocks.DirectoryMock)
	handler := NewFriendHandler(requests, new(mocks.FriendshipRepositoryMock), users, nil)
	router := newTestRouter(actor)
	registerFriendRoutes(router, handler)

	requests.On("ListForUser", mock.Anything, actor.ID).Return([]models.FriendRequest{
		{ID: uuid.New(), FromUserID: actor.ID, ToUserID: peer, Status: models.FriendRequestPending},
		{ID: uuid.New(), FromUserID: stranger, ToUserID: actor.ID, Status: models.FriendRequestAccepted},
	}, nil).Once()
	users.On("UsersByIDs", mock.Anything, []uuid.UUID{peer, stranger}).Return(map[uuid.UUID]models.User{
		peer: {ID: peer, Name: "Bilal"},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/friend-requests", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		List []models.FriendRequestView `json:"list"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.List, 2)
	assert.Equal(t, "outgoing", resp.List[0].Direction)
	assert.Equal(t, "Bilal", resp.List[0].OtherName)
	assert.Equal(t, "incoming", resp.List[1].Direction)
	assert.Equal(t, "—", resp.List[1].OtherName)

	requests.AssertExpectations(t)
	users.AssertExpectations(t)
}

func TestListFriendRequestsNameLookupDegrades(t *testing.T) {
	actor := tiflParty()
	peer := uuid.New()

	requests := new(mocks.FriendRequestRepositoryMock)
	users := new(mocks.DirectoryMock)
	handler := NewFriendHandler(requests, new(mocks.FriendshipRepositoryMock), users, nil)
	router := newTestRouter(actor)
	registerFriendRoutes(router, handler)

	requests.On("ListForUser", mock.Anything, actor.ID).Return([]models.FriendRequest{
		{ID: uuid.New(), FromUserID: actor.ID, ToUserID: peer, Status: models.FriendRequestPending},
	}, nil).Once()
	users.On("UsersByIDs", mock.Anything, mock.Anything).Return(nil, assert.AnError).Once()

	req := httptest.NewRequest(http.MethodGet, "/friend-requests", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		List []models.FriendRequestView `json:"list"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.List, 1)
	assert.Equal(t, "—", resp.List[0].OtherName)
}

func TestListFriendRequestsNonTiflForbidden(t *testing.T) {
	actor := authz.Party{ID: uuid.New(), Role: models.RoleLocalNazim}
	handler := NewFriendHandler(new(mocks.FriendRequestRepositoryMock), new(mocks.FriendshipRepositoryMock), new(mocks.DirectoryMock), nil)
	router := newTestRouter(actor)
	registerFriendRoutes(router, handler)

	req := httptest.NewRequest(http.MethodGet, "/friend-requests", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func sendFriendRequestBody(toUserID uuid.UUID, message string) *bytes.Buffer {
	payload := map[string]string{"to_user_id": toUserID.String()}
	if message != "" {
		payload["initial_message"] = message
	}
	body, _ := json.Marshal(payload)
	return bytes.NewBuffer(body)
}

func TestSendFriendRequestSuccess(t *testing.T) {
	actor := tiflParty()
	target := uuid.New()

	requests := new(mocks.FriendRequestRepositoryMock)
	friendships := new(mocks.FriendshipRepositoryMock)
	users := new(mocks.DirectoryMock)
	handler := NewFriendHandler(requests, friendships, users, nil)
	router := newTestRouter(actor)
	registerFriendRoutes(router, handler)

	users.On("GetUser", mock.Anything, target).Return(models.User{ID: target, Role: models.RoleTifl}, nil).Once()
	friendships.On("AreFriends", mock.Anything, actor.ID, target).Return(false, nil).Once()
	requests.On("ExistsForPair", mock.Anything, actor.ID, target).Return(false, nil).Once()
	hi := "hi"
	requests.On("Create", mock.Anything, actor.ID, target, &hi).
		Return(models.FriendRequest{ID: uuid.New(), FromUserID: actor.ID, ToUserID: target, Status: models.FriendRequestPending}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/friend-requests", sendFriendRequestBody(target, "hi"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	requests.AssertExpectations(t)
	friendships.AssertExpectations(t)
	users.AssertExpectations(t)
}

func TestSendFriendRequestToSelf(t *testing.T) {
	actor := tiflParty()
	handler := NewFriendHandler(new(mocks.FriendRequestRepositoryMock), new(mocks.FriendshipRepositoryMock), new(mocks.DirectoryMock), nil)
	router := newTestRouter(actor)
	registerFriendRoutes(router, handler)

	req := httptest.NewRequest(http.MethodPost, "/friend-requests", sendFriendRequestBody(actor.ID, ""))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendFriendRequestTargetNotTifl(t *testing.T) {
	actor := tiflParty()
	target := uuid.New()

	users := new(mocks.DirectoryMock)
	handler := NewFriendHandler(new(mocks.FriendRequestRepositoryMock), new(mocks.FriendshipRepositoryMock), users, nil)
	router := newTestRouter(actor)
	registerFriendRoutes(router, handler)

	users.On("GetUser", mock.Anything, target).Return(models.User{ID: target, Role: models.RoleLocalNazim}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/friend-requests", sendFriendRequestBody(target, ""))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendFriendRequestAlreadyFriends(t *testing.T) {
	actor := tiflParty()
	target := uuid.New()

	friendships := new(mocks.FriendshipRepositoryMock)
	users := new(mocks.DirectoryMock)
	handler := NewFriendHandler(new(mocks.FriendRequestRepositoryMock), friendships, users, nil)
	router := newTestRouter(actor)
	registerFriendRoutes(router, handler)

	users.On("GetUser", mock.Anything, target).Return(models.User{ID: target, Role: models.RoleTifl}, nil).Once()
	friendships.On("AreFriends", mock.Anything, actor.ID, target).Return(true, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/friend-requests", sendFriendRequestBody(target, ""))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestSendFriendRequestDuplicateBlocked(t *testing.T) {
	actor := tiflParty()
	target := uuid.New()

	requests := new(mocks.FriendRequestRepositoryMock)
	friendships := new(mocks.FriendshipRepositoryMock)
	users := new(mocks.DirectoryMock)
	handler := NewFriendHandler(requests, friendships, users, nil)
	router := newTestRouter(actor)
	registerFriendRoutes(router, handler)

	users.On("GetUser", mock.Anything, target).Return(models.User{ID: target, Role: models.RoleTifl}, nil).Once()
	friendships.On("AreFriends", mock.Anything, actor.ID, target).Return(false, nil).Once()
	// Any prior request, even a rejected one, blocks a new identical-direction
	// request.
	requests.On("ExistsForPair", mock.Anything, actor.ID, target).Return(true, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/friend-requests", sendFriendRequestBody(target, ""))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	requests.AssertExpectations(t)
}

func respondBody(status string) *bytes.Buffer {
	return bytes.NewBufferString(fmt.Sprintf(`{"status":%q}`, status))
}

func TestRespondFriendRequestAccept(t *testing.T) {
	actor := tiflParty()
	sender := uuid.New()
	requestID := uuid.New()

	requests := new(mocks.FriendRequestRepositoryMock)
	handler := NewFriendHandler(requests, new(mocks.FriendshipRepositoryMock), new(mocks.DirectoryMock), nil)
	router := newTestRouter(actor)
	registerFriendRoutes(router, handler)

	requests.On("GetByID", mock.Anything, requestID).
		Return(models.FriendRequest{ID: requestID, FromUserID: sender, ToUserID: actor.ID, Status: models.FriendRequestPending}, nil).Once()
	requests.On("Accept", mock.Anything, requestID).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPatch, "/friend-requests/"+requestID.String(), respondBody("accepted"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	requests.AssertExpectations(t)
}

func TestRespondFriendRequestOnlyRecipient(t *testing.T) {
	actor := tiflParty()
	requestID := uuid.New()

	requests := new(mocks.FriendRequestRepositoryMock)
	handler := NewFriendHandler(requests, new(mocks.FriendshipRepositoryMock), new(mocks.DirectoryMock), nil)
	router := newTestRouter(actor)
	registerFriendRoutes(router, handler)

	// The actor is the sender, not the recipient.
	requests.On("GetByID", mock.Anything, requestID).
		Return(models.FriendRequest{ID: requestID, FromUserID: actor.ID, ToUserID: uuid.New(), Status: models.FriendRequestPending}, nil).Once()

	req := httptest.NewRequest(http.MethodPatch, "/friend-requests/"+requestID.String(), respondBody("rejected"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	requests.AssertExpectations(t)
}

func TestRespondFriendRequestAlreadyTerminal(t *testing.T) {
	actor := tiflParty()
	requestID := uuid.New()

	requests := new(mocks.FriendRequestRepositoryMock)
	handler := NewFriendHandler(requests, new(mocks.FriendshipRepositoryMock), new(mocks.DirectoryMock), nil)
	router := newTestRouter(actor)
	registerFriendRoutes(router, handler)

	requests.On("GetByID", mock.Anything, requestID).
		Return(models.FriendRequest{ID: requestID, FromUserID: uuid.New(), ToUserID: actor.ID, Status: models.FriendRequestAccepted}, nil).Once()
	requests.On("Accept", mock.Anything, requestID).Return(apperr.ErrRequestResponded).Once()

	req := httptest.NewRequest(http.MethodPatch, "/friend-requests/"+requestID.String(), respondBody("accepted"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestRespondFriendRequestInvalidStatus(t *testing.T) {
	actor := tiflParty()
	handler := NewFriendHandler(new(mocks.FriendRequestRepositoryMock), new(mocks.FriendshipRepositoryMock), new(mocks.DirectoryMock), nil)
	router := newTestRouter(actor)
	registerFriendRoutes(router, handler)

	req := httptest.NewRequest(http.MethodPatch, "/friend-requests/"+uuid.NewString(), respondBody("maybe"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchShortQueryReturnsEmptyList(t *testing.T) {
	actor := tiflParty()
	handler := NewFriendHandler(new(mocks.FriendRequestRepositoryMock), new(mocks.FriendshipRepositoryMock), new(mocks.DirectoryMock), nil)
	router := newTestRouter(actor)
	registerFriendRoutes(router, handler)

	req := httptest.NewRequest(http.MethodGet, "/friends/search?q=a", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Users []models.User `json:"users"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Empty(t, resp.Users)
}

func TestSearchExcludesFriendsAndPending(t *testing.T) {
	actor := tiflParty()
	friend := uuid.New()
	pending := uuid.New()
	fresh := uuid.New()

	requests := new(mocks.FriendRequestRepositoryMock)
	friendships := new(mocks.FriendshipRepositoryMock)
	users := new(mocks.DirectoryMock)
	handler := NewFriendHandler(requests, friendships, users, nil)
	router := newTestRouter(actor)
	registerFriendRoutes(router, handler)

	friendships.On("FriendIDs", mock.Anything, actor.ID).Return([]uuid.UUID{friend}, nil).Once()
	requests.On("PendingCounterparties", mock.Anything, actor.ID).Return([]uuid.UUID{pending}, nil).Once()
	users.On("SearchTifls", mock.Anything, "ahmad", friendSearchLimit).Return([]models.User{
		{ID: friend, Name: "Ahmad One"},
		{ID: pending, Name: "Ahmad Two"},
		{ID: actor.ID, Name: "Ahmad Self"},
		{ID: fresh, Name: "Ahmad Three"},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/friends/search?q=ahmad", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Users []struct {
			ID   uuid.UUID `json:"id"`
			Name string    `json:"name"`
		} `json:"users"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Users, 1)
	assert.Equal(t, fresh, resp.Users[0].ID)
}

func TestNazimContacts(t *testing.T) {
	actor := tiflParty()
	local := models.User{ID: uuid.New(), Name: "Local", Role: models.RoleLocalNazim}
	regional := models.User{ID: uuid.New(), Name: "", Role: models.RoleRegionalNazim}

	users := new(mocks.DirectoryMock)
	handler := NewFriendHandler(new(mocks.FriendRequestRepositoryMock), new(mocks.FriendshipRepositoryMock), users, nil)
	router := newTestRouter(actor)
	registerFriendRoutes(router, handler)

	users.On("NazimContacts", mock.Anything, actor.MajlisID).Return(&local, &regional, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/nazim-contacts", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Local", resp["local_nazim"]["name"])
	assert.Equal(t, "Regional Nazim Atfal", resp["regional_nazim"]["name"])
}
