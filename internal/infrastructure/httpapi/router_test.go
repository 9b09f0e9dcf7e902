package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LensInventory/internal/adapter"
	"LensInventory/internal/domain"
	"LensInventory/internal/quality"
	"LensInventory/internal/rules"
	"LensInventory/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeGenerator struct {
	imageReq  usecase.ImageRequest
	requestID string
	platforms []string
	limit     int
	err       error
	recent    []domain.GeneratedListing
}

func (f *fakeGenerator) FromImage(_ context.Context, req usecase.ImageRequest) (domain.GenerationResult, error) {
	f.imageReq = req
	if f.err != nil {
		return domain.GenerationResult{}, f.err
	}
	return domain.GenerationResult{ID: req.RequestID}, nil
}

func (f *fakeGenerator) FromAnalysis(_ context.Context, requestID string, _ domain.ProductAnalysis, platforms []string) (domain.GenerationResult, error) {
	f.requestID = requestID
	f.platforms = platforms
	if f.err != nil {
		return domain.GenerationResult{}, f.err
	}
	return domain.GenerationResult{ID: requestID}, nil
}

func (f *fakeGenerator) Recent(_ context.Context, limit int) ([]domain.GeneratedListing, error) {
	f.limit = limit
	return f.recent, f.err
}

func newTestRouter(gen ListingGenerator) *gin.Engine {
	return NewRouter(Deps{Listings: gen, Platforms: rules.MustDefault().Platforms(), MaxImageBytes: 16})
}

func do(t *testing.T, r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthAndRequestID(t *testing.T) {
	t.Parallel()

	r := newTestRouter(&fakeGenerator{})

	w := do(t, r, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc")
	w = do(t, r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc", w.Header().Get(requestIDHeader))
}

func TestPlatforms(t *testing.T) {
	t.Parallel()

	w := do(t, newTestRouter(&fakeGenerator{}), httptest.NewRequest(http.MethodGet, "/platforms", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Platforms []struct {
			ID string `json:"id"`
		} `json:"platforms"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	var ids []string
	for _, p := range body.Platforms {
		ids = append(ids, p.ID)
	}
	assert.ElementsMatch(t, []string{"facebook", "instagram", "leboncoin"}, ids)
}

func multipartRequest(t *testing.T, image []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if image != nil {
		fw, err := mw.CreateFormFile("image", "photo.jpg")
		require.NoError(t, err)
		_, err = fw.Write(image)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/analyze", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(requestIDHeader, "req-7")
	return req
}

func TestAnalyze(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{}
	w := do(t, newTestRouter(gen), multipartRequest(t, []byte("jpeg"), map[string]string{
		"condition": "like new",
		"platforms": "facebook, instagram",
		"image_url": "https://img.example/a.jpg",
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "req-7", gen.imageReq.RequestID)
	assert.Equal(t, []byte("jpeg"), gen.imageReq.Image)
	assert.Equal(t, "like new", gen.imageReq.Condition)
	assert.Equal(t, "https://img.example/a.jpg", gen.imageReq.ImageURL)
	assert.Equal(t, []string{"facebook", "instagram"}, gen.imageReq.Platforms)
}

func TestAnalyzeImageTooLarge(t *testing.T) {
	t.Parallel()

	w := do(t, newTestRouter(&fakeGenerator{}), multipartRequest(t, bytes.Repeat([]byte("x"), 64), nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"missing field", &domain.MissingFieldError{Field: "technical_details"}, http.StatusUnprocessableEntity},
		{"no image", usecase.ErrNoImage, http.StatusBadRequest},
		{"upstream", &usecase.UpstreamError{Service: "object detection", Err: errors.New("down")}, http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := do(t, newTestRouter(&fakeGenerator{err: tt.err}), multipartRequest(t, []byte("jpeg"), nil))
			assert.Equal(t, tt.want, w.Code)

			var body errorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "req-7", body.RequestID)
		})
	}
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	book := rules.MustDefault()
	svc := usecase.NewListingService(usecase.ListingDeps{
		Adapter:   adapter.New(book),
		Auditor:   quality.NewAuditor(book, quality.DefaultOptions(), nil),
		Platforms: []string{"facebook"},
	})
	r := NewRouter(Deps{Listings: svc, Platforms: book.Platforms()})

	body := `{
	  "analysis": {
	    "product_information": {"product_name": "Canon EOS 80D", "condition": "like new"},
	    "market_analysis": {"price_range": {"min": 499, "max": 799}, "market_categories": ["camera"],
	      "competition_analysis": {"price_competitiveness": "competitive"}},
	    "technical_details": {"specifications": ["24.2 MP sensor"], "features": ["Wi-Fi"]}
	  },
	  "platforms": ["instagram", "leboncoin"]
	}`
	req := httptest.NewRequest(http.MethodPost, "/listings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := do(t, r, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res domain.GenerationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res.Platforms, 2)
	assert.Equal(t, "instagram", res.Platforms[0].Platform)
	assert.Equal(t, "leboncoin", res.Platforms[1].Platform)
	assert.Equal(t, w.Header().Get(requestIDHeader), res.ID)
}

func TestGenerateValidation(t *testing.T) {
	t.Parallel()

	r := newTestRouter(&fakeGenerator{})

	req := httptest.NewRequest(http.MethodPost, "/listings", strings.NewReader(`{`))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, do(t, r, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/listings", strings.NewReader(`{"platforms":["facebook"]}`))
	req.Header.Set("Content-Type", "application/json")
	w := do(t, r, req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"analysis"`)
}

func TestRecent(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{}
	r := newTestRouter(gen)

	w := do(t, r, httptest.NewRequest(http.MethodGet, "/listings/recent", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":[]}`, w.Body.String())
	assert.Equal(t, defaultRecentLimit, gen.limit)

	do(t, r, httptest.NewRequest(http.MethodGet, "/listings/recent?limit=500", nil))
	assert.Equal(t, maxRecentLimit, gen.limit)

	w = do(t, r, httptest.NewRequest(http.MethodGet, "/listings/recent?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
