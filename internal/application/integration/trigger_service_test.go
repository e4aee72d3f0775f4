package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erp/syncbridge/internal/domain/integration"
	"github.com/erp/syncbridge/internal/infrastructure/config"
	"github.com/erp/syncbridge/internal/infrastructure/credential"
)

// MockTokenRequester is a mock implementation of TokenRequester
type MockTokenRequester struct {
	mock.Mock
}

func (m *MockTokenRequester) Acquire(ctx context.Context) (*credential.Grant, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credential.Grant), args.Error(1)
}

func (m *MockTokenRequester) Preview(mask func(string) string) credential.RequestPreview {
	return credential.RequestPreview{
		URL:     "http://token.local/token",
		Method:  "POST",
		Payload: map[string]any{"appId": "app", "appSecret": mask("super-secret")},
	}
}

// MockBillDispatcher is a mock implementation of BillDispatcher
type MockBillDispatcher struct {
	mock.Mock
}

func (m *MockBillDispatcher) DispatchBills(ctx context.Context, target string, bills []integration.Bill) ([]integration.SyncOutcome, error) {
	args := m.Called(ctx, target, bills)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.SyncOutcome), args.Error(1)
}

func newTriggerService(tokens TokenRequester, dispatcher BillDispatcher) *TriggerService {
	return NewTriggerService(tokens, dispatcher, TriggerConfig{
		DefaultTarget: "localhost:50051",
		Mask:          config.MaskSecret,
	}, zap.NewNop())
}

func TestTriggerService_GetToken_DryRun(t *testing.T) {
	tokens := new(MockTokenRequester)
	svc := newTriggerService(tokens, nil)

	result, err := svc.Execute(context.Background(), integration.TriggerRequest{
		Action: integration.TriggerActionGetToken,
		DryRun: true,
	})
	require.NoError(t, err)

	tokenResult, ok := result.(*TokenResult)
	require.True(t, ok)
	assert.Equal(t, ModeDryRun, tokenResult.Mode)
	assert.Empty(t, tokenResult.Token)

	preview := tokenResult.Request.(credential.RequestPreview)
	assert.Equal(t, "supe********", preview.Payload["appSecret"])
	tokens.AssertNotCalled(t, "Acquire", mock.Anything)
}

func TestTriggerService_GetToken_Live(t *testing.T) {
	tokens := new(MockTokenRequester)
	tokens.On("Acquire", mock.Anything).Return(&credential.Grant{
		Token:    "abcdef123456",
		TTL:      10 * time.Second,
		TTLKnown: true,
	}, nil)
	svc := newTriggerService(tokens, nil)

	result, err := svc.Execute(context.Background(), integration.TriggerRequest{
		Action: integration.TriggerActionGetToken,
	})
	require.NoError(t, err)

	tokenResult := result.(*TokenResult)
	assert.Equal(t, ModeLive, tokenResult.Mode)
	assert.Equal(t, "abcd********", tokenResult.Token)
	assert.Equal(t, int64(10), tokenResult.ExpiresIn)
	assert.True(t, tokenResult.TTLKnown)
}

func TestTriggerService_GetToken_LiveAlwaysHitsEndpoint(t *testing.T) {
	tokens := new(MockTokenRequester)
	tokens.On("Acquire", mock.Anything).Return(&credential.Grant{Token: "abcdef123456"}, nil).Twice()
	svc := newTriggerService(tokens, nil)

	for i := 0; i < 2; i++ {
		_, err := svc.GetToken(context.Background(), false)
		require.NoError(t, err)
	}
	tokens.AssertNumberOfCalls(t, "Acquire", 2)
}

func TestTriggerService_GetToken_LiveFailure(t *testing.T) {
	acqErr := &credential.AcquisitionError{PostErr: errors.New("status 500"), GetErr: errors.New("status 500")}
	tokens := new(MockTokenRequester)
	tokens.On("Acquire", mock.Anything).Return(nil, acqErr)
	svc := newTriggerService(tokens, nil)

	_, err := svc.Execute(context.Background(), integration.TriggerRequest{Action: integration.TriggerActionGetToken})
	assert.True(t, credential.IsAcquisitionError(err))
}

func TestTriggerService_GetToken_NotConfigured(t *testing.T) {
	svc := newTriggerService(nil, nil)
	_, err := svc.GetToken(context.Background(), true)
	assert.ErrorIs(t, err, integration.ErrInvalidTriggerRequest)
}

func TestTriggerService_CallOrder_DryRun(t *testing.T) {
	dispatcher := new(MockBillDispatcher)
	svc := newTriggerService(nil, dispatcher)

	result, err := svc.Execute(context.Background(), integration.TriggerRequest{
		Action: integration.TriggerActionCallOrder,
		DryRun: true,
	})
	require.NoError(t, err)

	callResult := result.(*CallOrderResult)
	assert.Equal(t, ModeDryRun, callResult.Mode)
	assert.Equal(t, "localhost:50051", callResult.Target)
	require.Len(t, callResult.Request, 1)
	assert.Equal(t, "BILL-UI-1", callResult.Request[0].BillKey)
	require.Len(t, callResult.Request[0].Details, 1)
	assert.Equal(t, "PROD-UI-1", callResult.Request[0].Details[0].ProductKey)
	assert.Empty(t, callResult.Response)
	dispatcher.AssertNotCalled(t, "DispatchBills", mock.Anything, mock.Anything, mock.Anything)
}

func TestTriggerService_CallOrder_LiveUsesTargetOverride(t *testing.T) {
	dispatcher := new(MockBillDispatcher)
	dispatcher.On("DispatchBills", mock.Anything, "erp.internal:6000", SampleBills()).Return([]integration.SyncOutcome{
		{BillKey: "BILL-UI-1", ErpKey: "BILL-UI-1", SyncState: integration.SyncStateSuccess, SyncMsg: "Synced 1/1 details"},
	}, nil)
	svc := newTriggerService(nil, dispatcher)

	result, err := svc.Execute(context.Background(), integration.TriggerRequest{
		Action: integration.TriggerActionCallOrder,
		Target: " erp.internal:6000 ",
	})
	require.NoError(t, err)

	callResult := result.(*CallOrderResult)
	assert.Equal(t, ModeLive, callResult.Mode)
	assert.Equal(t, "erp.internal:6000", callResult.Target)
	require.Len(t, callResult.Response, 1)
	assert.Equal(t, "SUCCESS", callResult.Response[0].SyncState)
	dispatcher.AssertExpectations(t)
}

func TestTriggerService_CallOrder_NoTarget(t *testing.T) {
	svc := NewTriggerService(nil, new(MockBillDispatcher), TriggerConfig{}, zap.NewNop())
	_, err := svc.CallOrder(context.Background(), "", false)
	assert.ErrorIs(t, err, integration.ErrInvalidTriggerRequest)
}

func TestTriggerService_UnknownAction(t *testing.T) {
	svc := newTriggerService(nil, nil)
	result, err := svc.Execute(context.Background(), integration.TriggerRequest{Action: "reboot"})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, integration.ErrUnknownAction)
	assert.Contains(t, err.Error(), "reboot")
}

func TestTriggerService_Report(t *testing.T) {
	dispatcher := new(MockBillDispatcher)
	dispatcher.On("DispatchBills", mock.Anything, "localhost:50051", ReportBills()).Return([]integration.SyncOutcome{
		{BillKey: "ERPGRPC-REPORT-1", ErpKey: "ERPGRPC-REPORT-1", SyncState: integration.SyncStateSuccess},
	}, nil)
	svc := newTriggerService(nil, dispatcher)

	report := svc.Report(context.Background())
	assert.True(t, report.OK)
	assert.Empty(t, report.Error)
	require.Len(t, report.Response, 1)
	assert.Equal(t, "ERPGRPC-REPORT-1", report.Response[0].BillKey)
}

func TestTriggerService_Report_Error(t *testing.T) {
	dispatcher := new(MockBillDispatcher)
	dispatcher.On("DispatchBills", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))
	svc := newTriggerService(nil, dispatcher)

	report := svc.Report(context.Background())
	assert.False(t, report.OK)
	assert.Equal(t, "connection refused", report.Error)
	assert.Empty(t, report.Response)
}

func TestReportBills(t *testing.T) {
	bills := ReportBills()
	require.Len(t, bills, 1)
	assert.Equal(t, "ERPGRPC-REPORT-1", bills[0].BillKey)
	assert.Equal(t, "1.23", bills[0].TotalPrice.String())
	require.Len(t, bills[0].Details, 1)
	assert.Equal(t, "REPORT-PROD", bills[0].Details[0].ProductKey)

	outcomes := integration.ClassifyBills(bills)
	assert.True(t, outcomes[0].IsSuccess())
}
