package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aptscout/aptscout/internal/listing"
	"github.com/aptscout/aptscout/internal/places"
	"github.com/aptscout/aptscout/internal/search"
)

var testSecret = []byte("test-secret")

type mockApartments struct {
	mock.Mock
}

func (m *mockApartments) List(ctx context.Context, f listing.Filter) ([]listing.Apartment, error) {
	args := m.Called(ctx, f)
	apts, _ := args.Get(0).([]listing.Apartment)
	return apts, args.Error(1)
}

func (m *mockApartments) Get(ctx context.Context, id uuid.UUID) (*listing.Apartment, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*listing.Apartment)
	return a, args.Error(1)
}

func (m *mockApartments) Create(ctx context.Context, userID string, in listing.CreateInput) (*listing.Apartment, error) {
	args := m.Called(ctx, userID, in)
	a, _ := args.Get(0).(*listing.Apartment)
	return a, args.Error(1)
}

func (m *mockApartments) Update(ctx context.Context, id uuid.UUID, in listing.UpdateInput) (*listing.Apartment, error) {
	args := m.Called(ctx, id, in)
	a, _ := args.Get(0).(*listing.Apartment)
	return a, args.Error(1)
}

func (m *mockApartments) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockApartments) IDs(ctx context.Context, c listing.Criteria) ([]uuid.UUID, error) {
	args := m.Called(ctx, c)
	ids, _ := args.Get(0).([]uuid.UUID)
	return ids, args.Error(1)
}

func (m *mockApartments) Matches(ctx context.Context, c listing.Criteria) ([]listing.Match, error) {
	args := m.Called(ctx, c)
	ms, _ := args.Get(0).([]listing.Match)
	return ms, args.Error(1)
}

type fakePlaces struct {
	list     []places.Place
	nearby   []places.NearbyPlace
	err      error
	gotList  places.ListOpts
	gotQuery places.NearbyQuery
}

func (f *fakePlaces) ListPlaces(_ context.Context, opts places.ListOpts) ([]places.Place, error) {
	f.gotList = opts
	return f.list, f.err
}

func (f *fakePlaces) Nearby(_ context.Context, q places.NearbyQuery) ([]places.NearbyPlace, error) {
	f.gotQuery = q
	return f.nearby, f.err
}

type fakeSearcher struct {
	res *search.Result
	err error
	got string
}

func (f *fakeSearcher) Search(_ context.Context, q string) (*search.Result, error) {
	f.got = q
	return f.res, f.err
}

type testServer struct {
	handler    http.Handler
	apartments *mockApartments
	places     *fakePlaces
	search     *fakeSearcher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		apartments: &mockApartments{},
		places:     &fakePlaces{},
		search:     &fakeSearcher{},
	}
	ts.handler = NewRouter(Deps{
		Apartments: ts.apartments,
		Places:     ts.places,
		Nearby:     ts.places,
		Search:     ts.search,
		JWTSecret:  testSecret,
	})
	t.Cleanup(func() { ts.apartments.AssertExpectations(t) })
	return ts
}

func (ts *testServer) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			json.NewEncoder(&buf).Encode(body) //nolint:errcheck
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func signToken(t *testing.T, secret []byte, claims jwt.RegisteredClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return tok
}

func validToken(t *testing.T, sub string) string {
	return signToken(t, testSecret, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
}

func errorBody(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body["error"]
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(http.MethodGet, "/health", nil, "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	assert.NotEmpty(t, rr.Header().Get(requestIDHeader))
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestRequestIDPropagated(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	assert.Equal(t, "abc-123", rr.Header().Get(requestIDHeader))
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/apartments", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestListApartments(t *testing.T) {
	ts := newTestServer(t)
	id := uuid.New()
	ts.apartments.On("List", mock.Anything, listing.Filter{Status: listing.StatusRented}).
		Return([]listing.Apartment{{ID: id, Title: "Loft", Status: listing.StatusRented, Images: []string{}}}, nil)

	rr := ts.do(http.MethodGet, "/api/apartments?status=rented", nil, "")

	require.Equal(t, http.StatusOK, rr.Code)
	var got []listing.Apartment
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
}

func TestListApartments_EmptyIsArray(t *testing.T) {
	ts := newTestServer(t)
	ts.apartments.On("List", mock.Anything, listing.Filter{}).Return(nil, nil)

	rr := ts.do(http.MethodGet, "/api/apartments", nil, "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestListApartments_InvalidStatus(t *testing.T) {
	ts := newTestServer(t)
	ts.apartments.On("List", mock.Anything, listing.Filter{Status: "vacant"}).
		Return(nil, &listing.ValidationError{Problems: []string{`status "vacant" is not one of available, rented, sold`}})

	rr := ts.do(http.MethodGet, "/api/apartments?status=vacant", nil, "")

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, errorBody(t, rr), "vacant")
}

func TestGetApartment(t *testing.T) {
	ts := newTestServer(t)
	id := uuid.New()
	ts.apartments.On("Get", mock.Anything, id).Return(&listing.Apartment{ID: id, Title: "Loft"}, nil)

	rr := ts.do(http.MethodGet, "/api/apartments/"+id.String(), nil, "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"title":"Loft"`)
}

func TestGetApartment_BadID(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(http.MethodGet, "/api/apartments/not-a-uuid", nil, "")

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid apartment id", errorBody(t, rr))
}

func TestGetApartment_NotFound(t *testing.T) {
	ts := newTestServer(t)
	id := uuid.New()
	ts.apartments.On("Get", mock.Anything, id).Return(nil, listing.ErrNotFound)

	rr := ts.do(http.MethodGet, "/api/apartments/"+id.String(), nil, "")

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetApartment_StoreError(t *testing.T) {
	ts := newTestServer(t)
	id := uuid.New()
	ts.apartments.On("Get", mock.Anything, id).Return(nil, eris.New("conn reset"))

	rr := ts.do(http.MethodGet, "/api/apartments/"+id.String(), nil, "")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "internal server error", errorBody(t, rr))
}

func TestCreateApartment_RequiresToken(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(http.MethodPost, "/api/apartments", map[string]any{"title": "Loft"}, "")

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "missing bearer token", errorBody(t, rr))
}

func TestCreateApartment_RejectsBadTokens(t *testing.T) {
	ts := newTestServer(t)

	cases := map[string]string{
		"wrong secret": signToken(t, []byte("other"), jwt.RegisteredClaims{
			Subject: "u1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}),
		"expired": signToken(t, testSecret, jwt.RegisteredClaims{
			Subject: "u1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		}),
		"no expiry": signToken(t, testSecret, jwt.RegisteredClaims{Subject: "u1"}),
		"garbage":   "not.a.jwt",
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			rr := ts.do(http.MethodPost, "/api/apartments", map[string]any{"title": "Loft"}, tok)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Equal(t, "invalid token", errorBody(t, rr))
		})
	}
}

func TestCreateApartment_TokenWithoutSubject(t *testing.T) {
	ts := newTestServer(t)
	tok := validToken(t, "")

	rr := ts.do(http.MethodPost, "/api/apartments", map[string]any{"title": "Loft"}, tok)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCreateApartment(t *testing.T) {
	ts := newTestServer(t)
	id := uuid.New()
	in := listing.CreateInput{Title: "Loft", Address: "1 Main St", Price: 1200, Latitude: 40.7, Longitude: -74}
	ts.apartments.On("Create", mock.Anything, "user-1", in).
		Return(&listing.Apartment{ID: id, Title: "Loft", UserID: "user-1", Status: listing.StatusAvailable}, nil)

	rr := ts.do(http.MethodPost, "/api/apartments", in, validToken(t, "user-1"))

	require.Equal(t, http.StatusCreated, rr.Code)
	var got listing.Apartment
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "user-1", got.UserID)
}

func TestCreateApartment_BadBody(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(http.MethodPost, "/api/apartments", "{not json", validToken(t, "user-1"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid request body", errorBody(t, rr))
}

func TestCreateApartment_ValidationError(t *testing.T) {
	ts := newTestServer(t)
	ts.apartments.On("Create", mock.Anything, "user-1", listing.CreateInput{}).
		Return(nil, &listing.ValidationError{Problems: []string{"title is required", "address is required"}})

	rr := ts.do(http.MethodPost, "/api/apartments", map[string]any{}, validToken(t, "user-1"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid apartment: title is required; address is required", errorBody(t, rr))
}

func TestUpdateApartment(t *testing.T) {
	ts := newTestServer(t)
	id := uuid.New()
	price := 999.0
	ts.apartments.On("Update", mock.Anything, id, listing.UpdateInput{Price: &price}).
		Return(&listing.Apartment{ID: id, Price: 999}, nil)

	rr := ts.do(http.MethodPatch, "/api/apartments/"+id.String(), map[string]any{"price": 999}, validToken(t, "user-1"))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"price":999`)
}

func TestUpdateApartment_ClearDescription(t *testing.T) {
	ts := newTestServer(t)
	id := uuid.New()
	ts.apartments.On("Update", mock.Anything, id, listing.UpdateInput{Description: listing.SetNull()}).
		Return(&listing.Apartment{ID: id}, nil)

	rr := ts.do(http.MethodPatch, "/api/apartments/"+id.String(), map[string]any{"description": nil}, validToken(t, "user-1"))

	require.Equal(t, http.StatusOK, rr.Code)
}

func TestUpdateApartment_NotFound(t *testing.T) {
	ts := newTestServer(t)
	id := uuid.New()
	title := "New"
	ts.apartments.On("Update", mock.Anything, id, listing.UpdateInput{Title: &title}).Return(nil, listing.ErrNotFound)

	rr := ts.do(http.MethodPatch, "/api/apartments/"+id.String(), map[string]any{"title": "New"}, validToken(t, "user-1"))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDeleteApartment(t *testing.T) {
	ts := newTestServer(t)
	id := uuid.New()
	ts.apartments.On("Delete", mock.Anything, id).Return(nil)

	rr := ts.do(http.MethodDelete, "/api/apartments/"+id.String(), nil, validToken(t, "user-1"))

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())
}

func TestDeleteApartment_NotFound(t *testing.T) {
	ts := newTestServer(t)
	id := uuid.New()
	ts.apartments.On("Delete", mock.Anything, id).Return(listing.ErrNotFound)

	rr := ts.do(http.MethodDelete, "/api/apartments/"+id.String(), nil, validToken(t, "user-1"))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSearch(t *testing.T) {
	ts := newTestServer(t)
	id := uuid.New()
	ts.search.res = &search.Result{Apartments: []uuid.UUID{id}, Places: []int64{3}, Criteria: &search.Criteria{}}

	rr := ts.do(http.MethodPost, "/api/search", map[string]string{"query": "2 bed near bars"}, "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "2 bed near bars", ts.search.got)
	var got search.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, []uuid.UUID{id}, got.Apartments)
	assert.Equal(t, []int64{3}, got.Places)
}

func TestSearch_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"empty query", search.ErrEmptyQuery, http.StatusBadRequest, "query is required"},
		{"backend down", search.ErrBackendUnavailable, http.StatusServiceUnavailable, "unable to connect to the database, please try again later"},
		{"no provider", search.ErrProviderUnavailable, http.StatusServiceUnavailable, "search is not configured"},
		{"no analysis", eris.Wrap(search.ErrEmptyAnalysis, "search: analyze query"), http.StatusBadGateway, "failed to analyze search query"},
		{"other", eris.New("boom"), http.StatusInternalServerError, "search failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.search.err = tt.err

			rr := ts.do(http.MethodPost, "/api/search", map[string]string{"query": "x"}, "")

			assert.Equal(t, tt.code, rr.Code)
			assert.Equal(t, tt.msg, errorBody(t, rr))
		})
	}
}

func TestListPlaces(t *testing.T) {
	ts := newTestServer(t)
	ts.places.list = []places.Place{{ID: 1, Name: "Bar One", Types: []string{"bar"}}}

	rr := ts.do(http.MethodGet, "/api/places?type=bar&limit=5&offset=10", nil, "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, places.ListOpts{Types: []string{"bar"}, Limit: 5, Offset: 10}, ts.places.gotList)
	assert.Contains(t, rr.Body.String(), "Bar One")
}

func TestListPlaces_BadParams(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{
		"/api/places?type=cafe",
		"/api/places?limit=abc",
		"/api/places?offset=-1",
	} {
		rr := ts.do(http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code, path)
	}
}

func TestNearbyPlaces(t *testing.T) {
	ts := newTestServer(t)
	ts.places.nearby = []places.NearbyPlace{{Place: places.Place{ID: 2, Name: "Diner"}, DistanceMeters: 42}}

	rr := ts.do(http.MethodGet, "/api/places/nearby?lat=40.7&lng=-74&radius=800&type=restaurant", nil, "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, places.NearbyQuery{
		Lat: 40.7, Lng: -74, RadiusMeters: 800, Types: []string{"restaurant"},
	}, ts.places.gotQuery)
	assert.Contains(t, rr.Body.String(), "Diner")
}

func TestNearbyPlaces_DefaultRadius(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(http.MethodGet, "/api/places/nearby?lat=1&lng=2", nil, "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.InDelta(t, 500.0, ts.places.gotQuery.RadiusMeters, 1e-9)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestNearbyPlaces_BadParams(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{
		"/api/places/nearby?lng=2",
		"/api/places/nearby?lat=91&lng=2",
		"/api/places/nearby?lat=1&lng=abc",
		"/api/places/nearby?lat=1&lng=2&radius=0",
	} {
		rr := ts.do(http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code, path)
	}
}

func TestNearbyPlaces_NonFiniteParams(t *testing.T) {
	for _, path := range []string{
		"/api/places/nearby?lat=NaN&lng=NaN",
		"/api/places/nearby?lat=1&lng=-Inf",
		"/api/places/nearby?lat=1&lng=2&radius=NaN",
		"/api/places/nearby?lat=1&lng=2&radius=Inf",
		"/api/places/nearby?lat=1&lng=2&radius=%2BInf",
	} {
		ts := newTestServer(t)
		rr := ts.do(http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code, path)
		assert.Equal(t, places.NearbyQuery{}, ts.places.gotQuery, path)
	}
}

func TestNearbyPlaces_BackendError(t *testing.T) {
	ts := newTestServer(t)
	ts.places.err = eris.New("es down")

	rr := ts.do(http.MethodGet, "/api/places/nearby?lat=1&lng=2", nil, "")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
