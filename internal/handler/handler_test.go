package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bankrec-engine/internal/domain"
	"bankrec-engine/internal/service"
	"bankrec-engine/pkg/response"
)

type mockImportService struct{ mock.Mock }

func (m *mockImportService) Import(ctx context.Context, req service.ImportRequest) (*domain.ImportResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*domain.ImportResult)
	return result, args.Error(1)
}

func (m *mockImportService) GetBatch(ctx context.Context, id string) (*domain.ImportBatch, error) {
	args := m.Called(ctx, id)
	batch, _ := args.Get(0).(*domain.ImportBatch)
	return batch, args.Error(1)
}

func (m *mockImportService) ListBatches(ctx context.Context, venueID string, limit int) ([]domain.ImportBatch, error) {
	args := m.Called(ctx, venueID, limit)
	batches, _ := args.Get(0).([]domain.ImportBatch)
	return batches, args.Error(1)
}

type mockTransactionService struct{ mock.Mock }

func (m *mockTransactionService) List(ctx context.Context, filter domain.TransactionFilter) (*domain.TransactionPage, error) {
	args := m.Called(ctx, filter)
	page, _ := args.Get(0).(*domain.TransactionPage)
	return page, args.Error(1)
}

func (m *mockTransactionService) Get(ctx context.Context, id string) (*domain.BankTransaction, error) {
	args := m.Called(ctx, id)
	tx, _ := args.Get(0).(*domain.BankTransaction)
	return tx, args.Error(1)
}

func (m *mockTransactionService) ManualMatch(ctx context.Context, id, entryID, accountID, actor string) (*domain.BankTransaction, error) {
	args := m.Called(ctx, id, entryID, accountID, actor)
	tx, _ := args.Get(0).(*domain.BankTransaction)
	return tx, args.Error(1)
}

func (m *mockTransactionService) Ignore(ctx context.Context, id, actor string) (*domain.BankTransaction, error) {
	args := m.Called(ctx, id, actor)
	tx, _ := args.Get(0).(*domain.BankTransaction)
	return tx, args.Error(1)
}

type mockRuleService struct{ mock.Mock }

func (m *mockRuleService) rules(args mock.Arguments) ([]domain.ReconciliationRule, error) {
	rules, _ := args.Get(0).([]domain.ReconciliationRule)
	return rules, args.Error(1)
}

func (m *mockRuleService) rule(args mock.Arguments) (*domain.ReconciliationRule, error) {
	rule, _ := args.Get(0).(*domain.ReconciliationRule)
	return rule, args.Error(1)
}

func (m *mockRuleService) List(ctx context.Context, direction domain.Direction) ([]domain.ReconciliationRule, error) {
	return m.rules(m.Called(ctx, direction))
}

func (m *mockRuleService) Get(ctx context.Context, id string) (*domain.ReconciliationRule, error) {
	return m.rule(m.Called(ctx, id))
}

func (m *mockRuleService) Create(ctx context.Context, input service.RuleInput) (*domain.ReconciliationRule, error) {
	return m.rule(m.Called(ctx, input))
}

func (m *mockRuleService) Update(ctx context.Context, id string, input service.RuleInput) (*domain.ReconciliationRule, error) {
	return m.rule(m.Called(ctx, id, input))
}

func (m *mockRuleService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRuleService) Reorder(ctx context.Context, direction domain.Direction, ids []string) ([]domain.ReconciliationRule, error) {
	return m.rules(m.Called(ctx, direction, ids))
}

func (m *mockRuleService) MoveToTop(ctx context.Context, id string) ([]domain.ReconciliationRule, error) {
	return m.rules(m.Called(ctx, id))
}

func (m *mockRuleService) MoveToBottom(ctx context.Context, id string) ([]domain.ReconciliationRule, error) {
	return m.rules(m.Called(ctx, id))
}

type mockReconciliationService struct{ mock.Mock }

func (m *mockReconciliationService) ClassifyTransaction(ctx context.Context, id string) (*domain.BankTransaction, error) {
	args := m.Called(ctx, id)
	tx, _ := args.Get(0).(*domain.BankTransaction)
	return tx, args.Error(1)
}

func (m *mockReconciliationService) ReconcileVenue(ctx context.Context, venueID string) (*service.RunSummary, error) {
	args := m.Called(ctx, venueID)
	summary, _ := args.Get(0).(*service.RunSummary)
	return summary, args.Error(1)
}

func (m *mockReconciliationService) ReconcileIDs(ctx context.Context, ids []string) (*service.RunSummary, error) {
	args := m.Called(ctx, ids)
	summary, _ := args.Get(0).(*service.RunSummary)
	return summary, args.Error(1)
}

type mocks struct {
	imports *mockImportService
	txs     *mockTransactionService
	rules   *mockRuleService
	recon   *mockReconciliationService
}

func newTestRouter(t *testing.T, maxUpload int64) (*gin.Engine, *mocks) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m := &mocks{
		imports: &mockImportService{},
		txs:     &mockTransactionService{},
		rules:   &mockRuleService{},
		recon:   &mockReconciliationService{},
	}
	t.Cleanup(func() {
		m.imports.AssertExpectations(t)
		m.txs.AssertExpectations(t)
		m.rules.AssertExpectations(t)
		m.recon.AssertExpectations(t)
	})

	router := NewRouter(Handlers{
		Imports:        NewImportHandler(m.imports),
		Transactions:   NewTransactionHandler(m.txs),
		Rules:          NewRuleHandler(m.rules),
		Reconciliation: NewReconciliationHandler(m.recon),
	}, maxUpload)
	return router, m
}

func perform(router *gin.Engine, req *http.Request) (*httptest.ResponseRecorder, response.Response) {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var body response.Response
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadRequest(t *testing.T, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t, 0)
	w, _ := perform(router, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestImport_Created(t *testing.T) {
	router, m := newTestRouter(t, 1<<20)
	content := []byte("Data;Valuta;Importo;Descrizione;Saldo;Riferimento\n01/03/2024;;-10,00;COMMISSIONI;;\n")

	m.imports.On("Import", mock.Anything, mock.MatchedBy(func(req service.ImportRequest) bool {
		return req.Filename == "marzo.csv" && req.VenueID == "venue-1" && req.ImportedBy == "mario" &&
			bytes.Equal(req.Content, content) && req.Config == nil
	})).Return(&domain.ImportResult{BatchID: "batch-1", Source: domain.SourceCSV, RecordsImported: 1, Errors: []domain.ParseError{}}, nil)

	w, body := perform(router, uploadRequest(t, "marzo.csv", content, map[string]string{"venue_id": "venue-1", "imported_by": "mario"}))
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, body.Success)
	assert.Contains(t, w.Body.String(), `"batch_id":"batch-1"`)
}

func TestImport_InlineConfigOverridesDefaults(t *testing.T) {
	router, m := newTestRouter(t, 0)

	m.imports.On("Import", mock.Anything, mock.MatchedBy(func(req service.ImportRequest) bool {
		return req.Config != nil && req.Config.Delimited.Delimiter == "," &&
			req.Config.Delimited.DateFormat == "DD/MM/YYYY" && req.Config.FixedWidth.MovementType == "62"
	})).Return(&domain.ImportResult{BatchID: "batch-2"}, nil)

	w, _ := perform(router, uploadRequest(t, "export.csv", []byte("x"), map[string]string{
		"venue_id": "venue-1",
		"config":   `{"delimited":{"delimiter":","}}`,
	}))
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestImport_Failures(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		router, _ := newTestRouter(t, 0)
		w, body := perform(router, uploadRequest(t, "", nil, map[string]string{"venue_id": "venue-1"}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	})

	t.Run("bad inline config", func(t *testing.T) {
		router, _ := newTestRouter(t, 0)
		w, _ := perform(router, uploadRequest(t, "a.csv", []byte("x"), map[string]string{"config": "{"}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("zero valid rows", func(t *testing.T) {
		router, m := newTestRouter(t, 0)
		m.imports.On("Import", mock.Anything, mock.Anything).Return(nil, &domain.EmptyResultError{
			Filename: "a.csv",
			Errors:   []domain.ParseError{{Row: 2, Field: "date", Message: "bad date"}},
		})

		w, body := perform(router, uploadRequest(t, "a.csv", []byte("x"), map[string]string{"venue_id": "venue-1"}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "EMPTY_RESULT", body.Error.Code)
		assert.Contains(t, w.Body.String(), `"field":"date"`)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		router, m := newTestRouter(t, 0)
		m.imports.On("Import", mock.Anything, mock.Anything).Return(nil, &domain.FormatRejectedError{Filename: "a.pdf", Extension: ".pdf"})

		w, body := perform(router, uploadRequest(t, "a.pdf", []byte("x"), map[string]string{"venue_id": "venue-1"}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "FORMAT_REJECTED", body.Error.Code)
	})

	t.Run("too large", func(t *testing.T) {
		router, _ := newTestRouter(t, 64)
		w, body := perform(router, uploadRequest(t, "a.csv", bytes.Repeat([]byte("x"), 4096), map[string]string{"venue_id": "venue-1"}))
		assert.Contains(t, []int{http.StatusRequestEntityTooLarge, http.StatusBadRequest}, w.Code)
		assert.False(t, body.Success)
	})
}

func TestGetBatch_NotFound(t *testing.T) {
	router, m := newTestRouter(t, 0)
	m.imports.On("GetBatch", mock.Anything, "nope").Return(nil, domain.ErrNotFound)

	w, body := perform(router, httptest.NewRequest(http.MethodGet, "/api/v1/imports/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, body.Success)
}

func TestListTransactions(t *testing.T) {
	router, m := newTestRouter(t, 0)

	m.txs.On("List", mock.Anything, mock.MatchedBy(func(f domain.TransactionFilter) bool {
		return f.VenueID == "venue-1" && f.Status == domain.StatusToReview && f.Search == "acme" &&
			f.Page == 2 && f.PageSize == 25 && f.From != nil && f.From.Format("2006-01-02") == "2024-03-01" && f.To == nil
	})).Return(&domain.TransactionPage{Items: []domain.BankTransaction{}, Total: 0, Page: 2, PageSize: 25}, nil)

	w, body := perform(router, httptest.NewRequest(http.MethodGet,
		"/api/v1/transactions?venue_id=venue-1&status=TO_REVIEW&q=acme&page=2&page_size=25&from=2024-03-01", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, body.Success)
}

func TestListTransactions_Validation(t *testing.T) {
	router, _ := newTestRouter(t, 0)

	w, _ := perform(router, httptest.NewRequest(http.MethodGet, "/api/v1/transactions", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = perform(router, httptest.NewRequest(http.MethodGet, "/api/v1/transactions?venue_id=v&from=01/03/2024", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestManualMatch(t *testing.T) {
	router, m := newTestRouter(t, 0)
	entry := "JE-1"
	m.txs.On("ManualMatch", mock.Anything, "tx-1", "JE-1", "ACC-1", "mario").
		Return(&domain.BankTransaction{ID: "tx-1", Status: domain.StatusManual, MatchedEntryID: &entry}, nil)
	m.txs.On("ManualMatch", mock.Anything, "tx-2", "JE-1", "", "").
		Return(nil, &domain.InvalidTransitionError{TransactionID: "tx-2", From: domain.StatusMatched, To: domain.StatusManual})

	w, _ := perform(router, jsonRequest(http.MethodPost, "/api/v1/transactions/tx-1/match", `{"entry_id":"JE-1","account_id":"ACC-1","actor":"mario"}`))
	assert.Equal(t, http.StatusOK, w.Code)

	w, body := perform(router, jsonRequest(http.MethodPost, "/api/v1/transactions/tx-2/match", `{"entry_id":"JE-1"}`))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", body.Error.Code)

	w, _ = perform(router, jsonRequest(http.MethodPost, "/api/v1/transactions/tx-1/match", `{}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIgnore_WithoutBody(t *testing.T) {
	router, m := newTestRouter(t, 0)
	m.txs.On("Ignore", mock.Anything, "tx-1", "").Return(&domain.BankTransaction{ID: "tx-1", Status: domain.StatusIgnored}, nil)

	w, _ := perform(router, httptest.NewRequest(http.MethodPost, "/api/v1/transactions/tx-1/ignore", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReconcile(t *testing.T) {
	router, m := newTestRouter(t, 0)
	m.recon.On("ReconcileVenue", mock.Anything, "venue-1").Return(&service.RunSummary{Processed: 3, Matched: 1, Unmatched: 2}, nil)
	m.recon.On("ReconcileIDs", mock.Anything, []string{"tx-1"}).Return(&service.RunSummary{Processed: 1, ToReview: 1}, nil)

	w, _ := perform(router, jsonRequest(http.MethodPost, "/api/v1/reconcile", `{"venue_id":"venue-1"}`))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"matched":1`)

	w, _ = perform(router, jsonRequest(http.MethodPost, "/api/v1/reconcile", `{"transaction_ids":["tx-1"]}`))
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = perform(router, jsonRequest(http.MethodPost, "/api/v1/reconcile", `{}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRules(t *testing.T) {
	router, m := newTestRouter(t, 0)
	rules := []domain.ReconciliationRule{{ID: "r2", Direction: domain.DirectionIssued, Order: 0}, {ID: "r1", Direction: domain.DirectionIssued, Order: 1}}

	m.rules.On("List", mock.Anything, domain.DirectionIssued).Return(rules, nil)
	m.rules.On("Create", mock.Anything, service.RuleInput{Direction: domain.DirectionIssued, Action: domain.ActionAutoMatch, TargetAccountID: "ACC"}).
		Return(&domain.ReconciliationRule{ID: "r3", Direction: domain.DirectionIssued, Order: 2}, nil)
	m.rules.On("Reorder", mock.Anything, domain.DirectionIssued, []string{"r2", "r1"}).Return(rules, nil)
	m.rules.On("Reorder", mock.Anything, domain.DirectionIssued, []string{"r2"}).Return(nil, domain.ErrRuleSetMismatch)
	m.rules.On("MoveToTop", mock.Anything, "r2").Return(rules, nil)
	m.rules.On("MoveToBottom", mock.Anything, "r9").Return(nil, domain.ErrNotFound)
	m.rules.On("Update", mock.Anything, "r1", mock.Anything).Return(&domain.ReconciliationRule{ID: "r1"}, nil)
	m.rules.On("Delete", mock.Anything, "r1").Return(nil)

	w, _ := perform(router, httptest.NewRequest(http.MethodGet, "/api/v1/rules?direction=emessi", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = perform(router, jsonRequest(http.MethodPost, "/api/v1/rules", `{"direction":"emessi","action":"AUTO_MATCH","target_account_id":"ACC"}`))
	assert.Equal(t, http.StatusCreated, w.Code)

	w, _ = perform(router, jsonRequest(http.MethodPut, "/api/v1/rules/order", `{"direction":"emessi","rule_ids":["r2","r1"]}`))
	assert.Equal(t, http.StatusOK, w.Code)

	w, body := perform(router, jsonRequest(http.MethodPut, "/api/v1/rules/order", `{"direction":"emessi","rule_ids":["r2"]}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "RULE_SET_MISMATCH", body.Error.Code)

	w, _ = perform(router, httptest.NewRequest(http.MethodPost, "/api/v1/rules/r2/move-top", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = perform(router, httptest.NewRequest(http.MethodPost, "/api/v1/rules/r9/move-bottom", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = perform(router, jsonRequest(http.MethodPut, "/api/v1/rules/r1", `{"action":"FLAG_REVIEW"}`))
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = perform(router, httptest.NewRequest(http.MethodDelete, "/api/v1/rules/r1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
