package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"insidertracker/src/auth"
	"insidertracker/src/model"
	"insidertracker/src/repository"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

type mockMyTradeStore struct {
	trades   map[uint]*model.MyTrade
	created  *model.MyTrade
	deleted  []uint
	searches int
}

func newMockMyTradeStore() *mockMyTradeStore {
	return &mockMyTradeStore{trades: map[uint]*model.MyTrade{}}
}

func (m *mockMyTradeStore) Search(_ context.Context, _ repository.MyTradeSearchOptions) ([]model.MyTrade, error) {
	m.searches++
	out := make([]model.MyTrade, 0, len(m.trades))
	for _, t := range m.trades {
		out = append(out, *t)
	}
	return out, nil
}

func (m *mockMyTradeStore) FindByID(_ context.Context, id, userID uint) (*model.MyTrade, error) {
	t, ok := m.trades[id]
	if !ok || t.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return t, nil
}

func (m *mockMyTradeStore) CreateWithPerformance(_ context.Context, trade *model.MyTrade) error {
	trade.ID = uint(len(m.trades) + 1)
	trade.Performance = &model.Performance{MyTradeID: trade.ID, Ticker: trade.Ticker, PriceAtTrade: trade.Price}
	m.trades[trade.ID] = trade
	m.created = trade
	return nil
}

func (m *mockMyTradeStore) Correct(_ context.Context, trade *model.MyTrade, updates *model.UpdateMyTradePayload) error {
	if updates.Price != nil {
		trade.Price = *updates.Price
	}
	if updates.Shares != nil {
		trade.Shares = *updates.Shares
	}
	trade.TotalValue = model.ComputeTotalValue(trade.Shares, trade.Price)
	return nil
}

func (m *mockMyTradeStore) Delete(_ context.Context, trade *model.MyTrade) error {
	m.deleted = append(m.deleted, trade.ID)
	delete(m.trades, trade.ID)
	return nil
}

func asUser(req *http.Request, userID uint) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), auth.UserKey, &model.User{ID: userID, Username: "alice"}))
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx, ok := req.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestCreateMyTradeHandler_Unauthorized(t *testing.T) {
	handler := CreateMyTradeHandler(newMockMyTradeStore())

	req := httptest.NewRequest(http.MethodPost, "/my-trades", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

func TestCreateMyTradeHandler_Validation(t *testing.T) {
	handler := CreateMyTradeHandler(newMockMyTradeStore())

	cases := []struct {
		name string
		body string
	}{
		{"missing ticker", `{"trade_type":"buy","trade_date":"2024-03-14","shares":10,"price":5}`},
		{"bad trade type", `{"ticker":"AAPL","trade_type":"hold","trade_date":"2024-03-14","shares":10,"price":5}`},
		{"zero shares", `{"ticker":"AAPL","trade_type":"buy","trade_date":"2024-03-14","shares":0,"price":5}`},
		{"negative price", `{"ticker":"AAPL","trade_type":"buy","trade_date":"2024-03-14","shares":10,"price":-5}`},
		{"bad date", `{"ticker":"AAPL","trade_type":"buy","trade_date":"14/03/2024","shares":10,"price":5}`},
		{"unknown field", `{"ticker":"AAPL","trade_type":"buy","trade_date":"2024-03-14","shares":10,"price":5,"bogus":1}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := asUser(httptest.NewRequest(http.MethodPost, "/my-trades", strings.NewReader(tc.body)), 1)
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", rr.Code)
			}
		})
	}
}

func TestCreateMyTradeHandler_Success(t *testing.T) {
	store := newMockMyTradeStore()
	handler := CreateMyTradeHandler(store)

	body := `{"ticker":"aapl","trade_type":"buy","trade_date":"2024-03-14","shares":10,"price":172.10}`
	req := asUser(httptest.NewRequest(http.MethodPost, "/my-trades", strings.NewReader(body)), 7)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if store.created == nil {
		t.Fatal("trade was not stored")
	}
	if store.created.UserID != 7 {
		t.Fatalf("trade bound to wrong user: %d", store.created.UserID)
	}
	if store.created.Ticker != "AAPL" {
		t.Fatalf("ticker should be upcased, got %q", store.created.Ticker)
	}
	if store.created.TotalValue != 1721.0 {
		t.Fatalf("expected total value 1721.00, got %v", store.created.TotalValue)
	}
	if store.created.Performance == nil || store.created.Performance.PriceAtTrade != 172.10 {
		t.Fatalf("performance record not initialized: %+v", store.created.Performance)
	}
}

func TestGetMyTradeHandler_NotFound(t *testing.T) {
	handler := GetMyTradeHandler(newMockMyTradeStore())

	req := asUser(withURLParam(httptest.NewRequest(http.MethodGet, "/my-trades/99", nil), "id", "99"), 1)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestGetMyTradeHandler_OtherUsersTradeIsHidden(t *testing.T) {
	store := newMockMyTradeStore()
	store.trades[5] = &model.MyTrade{ID: 5, UserID: 2, Ticker: "AAPL"}
	handler := GetMyTradeHandler(store)

	req := asUser(withURLParam(httptest.NewRequest(http.MethodGet, "/my-trades/5", nil), "id", "5"), 1)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for another user's trade, got %d", rr.Code)
	}
}

func TestUpdateMyTradeHandler_RecomputesTotalValue(t *testing.T) {
	store := newMockMyTradeStore()
	store.trades[5] = &model.MyTrade{ID: 5, UserID: 1, Ticker: "AAPL", Shares: 10, Price: 100, TotalValue: 1000}
	handler := UpdateMyTradeHandler(store)

	req := asUser(withURLParam(httptest.NewRequest(http.MethodPatch, "/my-trades/5", strings.NewReader(`{"price":150}`)), "id", "5"), 1)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp model.MyTrade
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Price != 150 || resp.TotalValue != 1500 {
		t.Fatalf("expected price 150 / total 1500, got %v / %v", resp.Price, resp.TotalValue)
	}
}

func TestUpdateMyTradeHandler_RejectsNonPositive(t *testing.T) {
	store := newMockMyTradeStore()
	store.trades[5] = &model.MyTrade{ID: 5, UserID: 1, Ticker: "AAPL", Shares: 10, Price: 100}
	handler := UpdateMyTradeHandler(store)

	req := asUser(withURLParam(httptest.NewRequest(http.MethodPatch, "/my-trades/5", strings.NewReader(`{"shares":0}`)), "id", "5"), 1)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestDeleteMyTradeHandler(t *testing.T) {
	store := newMockMyTradeStore()
	store.trades[5] = &model.MyTrade{ID: 5, UserID: 1, Ticker: "AAPL"}
	handler := DeleteMyTradeHandler(store)

	req := asUser(withURLParam(httptest.NewRequest(http.MethodDelete, "/my-trades/5", nil), "id", "5"), 1)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if len(store.deleted) != 1 || store.deleted[0] != 5 {
		t.Fatalf("trade not deleted: %+v", store.deleted)
	}
}
