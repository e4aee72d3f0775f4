package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	integrationapp "github.com/erp/syncbridge/internal/application/integration"
	"github.com/erp/syncbridge/internal/domain/integration"
	"github.com/erp/syncbridge/internal/interfaces/http/dto"
)

// MockSyncResultQuery is a mock implementation of SyncResultQuery
type MockSyncResultQuery struct {
	mock.Mock
}

func (m *MockSyncResultQuery) ListRecent(ctx context.Context, limit int) ([]integrationapp.SyncResultResponse, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integrationapp.SyncResultResponse), args.Error(1)
}

func TestSyncResultHandler_List(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantLimit int
	}{
		{"explicit limit", "?limit=5", 5},
		{"missing limit", "", 0},
		{"non-numeric limit", "?limit=abc", 0},
		{"negative limit passes through", "?limit=-2", -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query := new(MockSyncResultQuery)
			query.On("ListRecent", mock.Anything, tt.wantLimit).Return([]integrationapp.SyncResultResponse{
				{ID: 2, BillKey: "BILL-2", ErpKey: "BILL-2", SyncState: 2, SyncMsg: "Errors: bad Qty for P1", ErrorCode: 1001},
				{ID: 1, BillKey: "BILL-1", ErpKey: "BILL-1", SyncState: 1, SyncMsg: "Synced 1/1 details"},
			}, nil)

			r := newTestRouter()
			r.GET("/sync-results", NewSyncResultHandler(query).List)
			w := serve(r, httptest.NewRequest(http.MethodGet, "/sync-results"+tt.query, nil))

			assert.Equal(t, http.StatusOK, w.Code)
			resp := decodeResponse(t, w)
			assert.True(t, resp.Success)
			rows := resp.Data.([]any)
			require.Len(t, rows, 2)
			first := rows[0].(map[string]any)
			assert.Equal(t, float64(2), first["id"])
			assert.Equal(t, "BILL-2", first["bill_key"])
			assert.Equal(t, "BILL-2", first["erp_key"])
			assert.Equal(t, float64(1001), first["error_code"])
			assert.Contains(t, first, "created_at")
			query.AssertExpectations(t)
		})
	}
}

func TestSyncResultHandler_List_StorageUnavailable(t *testing.T) {
	query := new(MockSyncResultQuery)
	query.On("ListRecent", mock.Anything, mock.Anything).
		Return(nil, integration.NewStorageError("list", errors.New("unable to open database file")))

	r := newTestRouter()
	r.GET("/sync-results", NewSyncResultHandler(query).List)
	w := serve(r, httptest.NewRequest(http.MethodGet, "/sync-results", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeStorageUnavailable, resp.Error.Code)
}
