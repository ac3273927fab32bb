package sink

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/clearfunnel/attribution-engine/internal/domain"
)

func sinkEvent() *domain.ConversionEvent {
	return &domain.ConversionEvent{
		EventID:   "evt-1",
		SSIID:     "user-1",
		Name:      domain.EventPurchase,
		Value:     30,
		Timestamp: time.Now(),
	}
}

func TestHTTPSink_Send_PostsPayload(t *testing.T) {
	var received map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := NewHTTPSink(domain.PlatformMeta, server.URL, zap.NewNop())

	err := s.Send(context.Background(), sinkEvent(),
		domain.BidDecision{Strategy: domain.StrategyAggressive, Multiplier: 2.2})

	assert.NoError(t, err)
	assert.Equal(t, "evt-1", received["event_id"])
	assert.Equal(t, "purchase", received["event_name"])
	assert.Equal(t, "aggressive", received["bid_strategy"])
	assert.Equal(t, 2.2, received["bid_multiplier"])
}

func TestHTTPSink_Send_ServerError_Transient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	s := NewHTTPSink(domain.PlatformMeta, server.URL, zap.NewNop())

	err := s.Send(context.Background(), sinkEvent(), domain.BidDecision{})

	var sendErr *SendError
	assert.ErrorAs(t, err, &sendErr)
	assert.True(t, sendErr.Transient)
}

func TestHTTPSink_Send_ClientError_Permanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	s := NewHTTPSink(domain.PlatformMeta, server.URL, zap.NewNop())

	err := s.Send(context.Background(), sinkEvent(), domain.BidDecision{})

	var sendErr *SendError
	assert.ErrorAs(t, err, &sendErr)
	assert.False(t, sendErr.Transient)
}

func TestHTTPSink_Send_TransportError_Transient(t *testing.T) {
	s := NewHTTPSink(domain.PlatformMeta, "http://127.0.0.1:1", zap.NewNop())

	err := s.Send(context.Background(), sinkEvent(), domain.BidDecision{})

	var sendErr *SendError
	assert.ErrorAs(t, err, &sendErr)
	assert.True(t, sendErr.Transient)
}

type MockWarehouseWriter struct {
	mock.Mock
}

func (m *MockWarehouseWriter) WriteConversion(ctx context.Context, event *domain.ConversionEvent, decision domain.BidDecision) error {
	args := m.Called(ctx, event, decision)
	return args.Error(0)
}

func TestWarehouseSink_Send_WritesRow(t *testing.T) {
	writer := &MockWarehouseWriter{}
	writer.On("WriteConversion", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	s := NewWarehouseSink(writer, zap.NewNop())

	assert.Equal(t, domain.PlatformBigQuery, s.Platform())
	assert.NoError(t, s.Send(context.Background(), sinkEvent(), domain.BidDecision{}))
	writer.AssertExpectations(t)
}

func TestWarehouseSink_Send_WriteFailure_Transient(t *testing.T) {
	writer := &MockWarehouseWriter{}
	writer.On("WriteConversion", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("connection reset")).Once()

	s := NewWarehouseSink(writer, zap.NewNop())

	err := s.Send(context.Background(), sinkEvent(), domain.BidDecision{})

	var sendErr *SendError
	assert.ErrorAs(t, err, &sendErr)
	assert.True(t, sendErr.Transient)
}
