package closure

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"clearhaven/internal/brokerage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doJSON(t *testing.T, fn func(http.ResponseWriter, *http.Request), method, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer user-token")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	fn(w, req)
	return w
}

func TestHandlerOwnershipFailuresAre403(t *testing.T) {
	store := newMemStore()
	store.put(Record{UserID: "bob", AccountID: "acct-b", Status: StatusPendingClosure})
	h := NewHandler(newTestService(store, &fakeBackend{}))

	w := doJSON(t, func(w http.ResponseWriter, r *http.Request) {
		h.Progress(w, r, "alice", "acct-b")
	}, http.MethodGet, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "access denied", resp["error"], "no detail may leak about why")
}

func TestHandlerValidationFailuresAre400WithField(t *testing.T) {
	store := newMemStore()
	store.put(activeRecord("alice", "acct-a"))
	h := NewHandler(newTestService(store, &fakeBackend{}))

	w := doJSON(t, func(w http.ResponseWriter, r *http.Request) {
		h.Initiate(w, r, "alice", "acct-a")
	}, http.MethodPost, `{"ach_relationship_id":"rel_1","confirm_liquidation":true,"confirm_irreversible":false}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "confirm_irreversible")
}

func TestHandlerRejectsUnknownFields(t *testing.T) {
	store := newMemStore()
	store.put(activeRecord("alice", "acct-a"))
	h := NewHandler(newTestService(store, &fakeBackend{}))

	w := doJSON(t, func(w http.ResponseWriter, r *http.Request) {
		h.Initiate(w, r, "alice", "acct-a")
	}, http.MethodPost, `{"ach_relationship_id":"rel_1","confirm_liquidation":true,"confirm_irreversible":true,"bonus":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerUpstreamFailureIs502(t *testing.T) {
	store := newMemStore()
	store.put(Record{UserID: "alice", AccountID: "acct-a", Status: StatusPendingClosure})
	backend := &fakeBackend{closeErr: brokerage.ErrUpstream}
	h := NewHandler(newTestService(store, backend))

	w := doJSON(t, func(w http.ResponseWriter, r *http.Request) {
		h.Close(w, r, "alice", "acct-a")
	}, http.MethodPost, `{"final_confirmation":true}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestHandlerBackend4xxPassesThrough(t *testing.T) {
	store := newMemStore()
	store.put(activeRecord("alice", "acct-a"))
	backend := &fakeBackend{initiateErr: &brokerage.StatusError{Code: 409, Message: "liquidation already open"}}
	h := NewHandler(newTestService(store, backend))

	w := doJSON(t, func(w http.ResponseWriter, r *http.Request) {
		h.Initiate(w, r, "alice", "acct-a")
	}, http.MethodPost, `{"ach_relationship_id":"rel_1","confirm_liquidation":true,"confirm_irreversible":true}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "liquidation already open")
}

func TestHandlerStatusReturnsNullWithoutConfirmation(t *testing.T) {
	store := newMemStore()
	// Externally flipped status without a confirmation number.
	store.put(Record{UserID: "alice", AccountID: "acct-a", Status: StatusPendingClosure})
	h := NewHandler(newTestService(store, &fakeBackend{}))

	w := doJSON(t, func(w http.ResponseWriter, r *http.Request) {
		h.Status(w, r, "alice")
	}, http.MethodGet, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":null}`, w.Body.String())
}

func TestHandlerCloseAfterCloseIs400(t *testing.T) {
	store := newMemStore()
	store.put(Record{UserID: "alice", AccountID: "acct-a", Status: StatusPendingClosure})
	h := NewHandler(newTestService(store, &fakeBackend{}))

	w := doJSON(t, func(w http.ResponseWriter, r *http.Request) {
		h.Close(w, r, "alice", "acct-a")
	}, http.MethodPost, `{"final_confirmation":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	var out CloseOutcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, StatusClosed, out.Status)
	assert.NotNil(t, out.CompletedAt)

	w = doJSON(t, func(w http.ResponseWriter, r *http.Request) {
		h.Close(w, r, "alice", "acct-a")
	}, http.MethodPost, `{"final_confirmation":true}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "pending_closure")
}

func TestHandlerUpdateStatusValidatesEnum(t *testing.T) {
	store := newMemStore()
	store.put(activeRecord("alice", "acct-a"))
	h := NewHandler(newTestService(store, &fakeBackend{}))

	w := doJSON(t, func(w http.ResponseWriter, r *http.Request) {
		h.UpdateStatus(w, r, "alice")
	}, http.MethodPost, `{"status":"reopened"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, func(w http.ResponseWriter, r *http.Request) {
		h.UpdateStatus(w, r, "alice")
	}, http.MethodPost, `{"status":"closed","confirmationNumber":"CLS-1"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"closed"}`, w.Body.String())
}
