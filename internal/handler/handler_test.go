package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/clearfunnel/attribution-engine/internal/domain"
	"github.com/clearfunnel/attribution-engine/internal/dto"
)

type MockIngestor struct {
	mock.Mock
}

func (m *MockIngestor) ProcessEvent(ctx context.Context, req *dto.IngestEventRequest) (*dto.IngestEventResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.IngestEventResponse), args.Error(1)
}

func (m *MockIngestor) PublishBulk(ctx context.Context, reqs []dto.IngestEventRequest) (*dto.IngestBulkResponse, error) {
	args := m.Called(ctx, reqs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.IngestBulkResponse), args.Error(1)
}

type MockQuerier struct {
	mock.Mock
}

func (m *MockQuerier) Overview(req *dto.RangeRequest) (*dto.OverviewResponse, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.OverviewResponse), args.Error(1)
}

func (m *MockQuerier) PlatformStatuses(req *dto.RangeRequest) (*dto.PlatformStatusResponse, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.PlatformStatusResponse), args.Error(1)
}

func (m *MockQuerier) TimeSeries(req *dto.RangeRequest) (*dto.TimeSeriesResponse, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.TimeSeriesResponse), args.Error(1)
}

func (m *MockQuerier) Funnel(req *dto.RangeRequest) (*dto.FunnelResponse, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.FunnelResponse), args.Error(1)
}

func (m *MockQuerier) TrustScores(req *dto.RangeRequest) (*dto.TrustResponse, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.TrustResponse), args.Error(1)
}

func (m *MockQuerier) MLPredictions(req *dto.RangeRequest) (*dto.MLPredictionsResponse, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.MLPredictionsResponse), args.Error(1)
}

func (m *MockQuerier) Bids(req *dto.RangeRequest) (*dto.BidMetricsResponse, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.BidMetricsResponse), args.Error(1)
}

func (m *MockQuerier) RecentEvents(limit int) *dto.RecentEventsResponse {
	args := m.Called(limit)
	return args.Get(0).(*dto.RecentEventsResponse)
}

func (m *MockQuerier) EventsByType(req *dto.RangeRequest) (*dto.EventsByTypeResponse, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.EventsByTypeResponse), args.Error(1)
}

func newTestHandler(t *testing.T) (*Handler, *MockIngestor, *MockQuerier) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ingest := &MockIngestor{}
	query := &MockQuerier{}
	return NewHandler(ingest, query, zap.NewNop()), ingest, query
}

func rangeQuery() string {
	now := time.Now().Unix()
	return fmt.Sprintf("from=%d&to=%d", now-3600, now)
}

func TestHealthCheck(t *testing.T) {
	h, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIngestEvent_ReturnsDecision(t *testing.T) {
	h, ingest, _ := newTestHandler(t)
	ingest.On("ProcessEvent", mock.Anything, mock.Anything).Return(&dto.IngestEventResponse{
		EventID:    "evt-1",
		TrustScore: 90,
		Action:     "allow",
	}, nil).Once()

	body, _ := json.Marshal(dto.IngestEventRequest{
		EventName: "purchase",
		SSIID:     "user-1",
		Value:     10,
		Timestamp: time.Now().Unix(),
	})
	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.IngestEventResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "evt-1", resp.EventID)
	assert.Equal(t, "allow", resp.Action)
	ingest.AssertExpectations(t)
}

func TestIngestEvent_MissingRequiredFields_BadRequest(t *testing.T) {
	h, ingest, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader([]byte(`{"value":5}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	ingest.AssertNotCalled(t, "ProcessEvent", mock.Anything, mock.Anything)
}

func TestIngestEvent_InvalidEvent_BadRequest(t *testing.T) {
	h, ingest, _ := newTestHandler(t)
	ingest.On("ProcessEvent", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: unknown event name", domain.ErrInvalidEvent)).Once()

	body, _ := json.Marshal(dto.IngestEventRequest{
		EventName: "checkout_completed",
		Timestamp: time.Now().Unix(),
	})
	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIngestEventsBulk_Accepted(t *testing.T) {
	h, ingest, _ := newTestHandler(t)
	ingest.On("PublishBulk", mock.Anything, mock.Anything).
		Return(&dto.IngestBulkResponse{Accepted: 2}, nil).Once()

	body, _ := json.Marshal(dto.IngestEventsBulkRequest{
		Events: []dto.IngestEventRequest{
			{EventName: "pageview", Timestamp: time.Now().Unix()},
			{EventName: "purchase", Timestamp: time.Now().Unix()},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/events/bulk", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	ingest.AssertExpectations(t)
}

func TestIngestEventsBulk_EmptyList_BadRequest(t *testing.T) {
	h, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/events/bulk", bytes.NewReader([]byte(`{"events":[]}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetOverview(t *testing.T) {
	h, _, query := newTestHandler(t)
	query.On("Overview", mock.Anything).
		Return(&dto.OverviewResponse{TotalEvents: 42}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/overview?"+rangeQuery(), nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.OverviewResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(42), resp.TotalEvents)
}

func TestGetOverview_MissingRange_BadRequest(t *testing.T) {
	h, _, query := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/overview", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	query.AssertNotCalled(t, "Overview", mock.Anything)
}

func TestGetRecentEvents_DefaultLimit(t *testing.T) {
	h, _, query := newTestHandler(t)
	query.On("RecentEvents", 50).
		Return(&dto.RecentEventsResponse{Events: []dto.RecentEventData{}}).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/recent", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	query.AssertExpectations(t)
}

func TestGetRecentEvents_ExplicitLimit(t *testing.T) {
	h, _, query := newTestHandler(t)
	query.On("RecentEvents", 5).
		Return(&dto.RecentEventsResponse{Events: []dto.RecentEventData{}}).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/recent?limit=5", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	query.AssertExpectations(t)
}

func TestGetFunnel(t *testing.T) {
	h, _, query := newTestHandler(t)
	query.On("Funnel", mock.Anything).Return(&dto.FunnelResponse{
		Stages: []dto.FunnelStageData{{Stage: "pageview", Count: 10}},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/funnel?"+rangeQuery(), nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
