package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tally/internal/auth"
	"tally/internal/budget"
	"tally/internal/core"
	"tally/internal/kv"
	"tally/internal/log"
	"tally/internal/report"
	"tally/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	store := kv.NewMemoryStore()
	logger := log.New(log.DefaultConfig())

	users := storage.NewUserRepository(store, logger)
	sessions := storage.NewSessionRepository(store, logger)
	ledgers := storage.NewLedgerRepository(store, logger)
	budgets := storage.NewBudgetRepository(store, logger)

	s := NewServer(":0", Dependencies{
		Auth:    auth.NewService(users, sessions, ledgers, budgets, logger),
		Tracker: budget.NewTracker(budgets, logger),
		Reports: report.NewEngine(ledgers),
		Ledgers: ledgers,
		Logger:  logger,
	})
	t.Cleanup(func() {
		close(s.stopCacheCleanup)
		s.rateLimiter.stop()
	})
	return s
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, s *Server, email, password string) {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/api/login", map[string]string{
		"email": email, "password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", email, rec.Code, rec.Body.String())
	}
}

func signupAndLogin(t *testing.T, s *Server, name, email string) {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/api/signup", map[string]string{
		"name": name, "email": email, "password": "secret",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: status %d body %s", rec.Code, rec.Body.String())
	}
	login(t, s, email, "secret")
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, s, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d", path, rec.Code)
		}
	}
}

func TestSignupLoginMe(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/signup", map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "secret",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: status %d body %s", rec.Code, rec.Body.String())
	}
	var created core.User
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Password != "" {
		t.Fatalf("password leaked in signup response")
	}
	if created.IsAdmin {
		t.Fatalf("signup must not grant admin")
	}

	// Signup does not log in.
	if rec := doJSON(t, s, http.MethodGet, "/api/me", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("me before login: status %d", rec.Code)
	}

	login(t, s, "ada@example.com", "secret")
	rec = doJSON(t, s, http.MethodGet, "/api/me", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: status %d", rec.Code)
	}
	var me core.User
	if err := json.Unmarshal(rec.Body.Bytes(), &me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me.Email != "ada@example.com" || me.Password != "" {
		t.Fatalf("me = %+v", me)
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	s := newTestServer(t)
	signupAndLogin(t, s, "Ada", "ada@example.com")

	rec := doJSON(t, s, http.MethodPost, "/api/signup", map[string]string{
		"name": "Eve", "email": "ada@example.com", "password": "other",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate signup: status %d", rec.Code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/login", map[string]string{
		"email": storage.AdminEmail, "password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	s := newTestServer(t)
	signupAndLogin(t, s, "Ada", "ada@example.com")

	if rec := doJSON(t, s, http.MethodPost, "/api/logout", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("logout: status %d", rec.Code)
	}
	if rec := doJSON(t, s, http.MethodGet, "/api/me", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("me after logout: status %d", rec.Code)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	s := newTestServer(t)
	signupAndLogin(t, s, "Ada", "ada@example.com")

	rec := doJSON(t, s, http.MethodPost, "/api/transactions", map[string]any{
		"type": "income", "amount": 250000, "description": "salary",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create income: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodPost, "/api/transactions", map[string]any{
		"type": "expense", "amount": 4500, "description": "groceries", "category": "Food",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create expense: status %d body %s", rec.Code, rec.Body.String())
	}
	var created createTransactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Transaction.ID == "" || created.Transaction.Category != core.CategoryFood {
		t.Fatalf("transaction = %+v", created.Transaction)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/transactions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d", rec.Code)
	}
	var listed []core.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("listed %d transactions, want 2", len(listed))
	}
	// Newest first.
	if listed[0].Description != "groceries" {
		t.Fatalf("first = %q", listed[0].Description)
	}
}

func TestTransactionValidation(t *testing.T) {
	s := newTestServer(t)
	signupAndLogin(t, s, "Ada", "ada@example.com")

	cases := []struct {
		name string
		body map[string]any
		want int
	}{
		{"bad type", map[string]any{"type": "transfer", "amount": 100, "description": "xx"}, http.StatusUnprocessableEntity},
		{"zero amount", map[string]any{"type": "income", "amount": 0, "description": "xx"}, http.StatusUnprocessableEntity},
		{"short description", map[string]any{"type": "income", "amount": 100, "description": "x"}, http.StatusUnprocessableEntity},
		{"expense without category", map[string]any{"type": "expense", "amount": 100, "description": "taxi"}, http.StatusUnprocessableEntity},
		{"unknown category", map[string]any{"type": "expense", "amount": 100, "description": "taxi", "category": "Gadgets"}, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodPost, "/api/transactions", tc.body)
			if rec.Code != tc.want {
				t.Fatalf("status %d, want %d (body %s)", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestBudgetAlertsOverAPI(t *testing.T) {
	s := newTestServer(t)
	signupAndLogin(t, s, "Ada", "ada@example.com")

	rec := doJSON(t, s, http.MethodPut, "/api/budget", map[string]any{"amount": 100000})
	if rec.Code != http.StatusOK {
		t.Fatalf("set budget: status %d", rec.Code)
	}

	spend := func(cents int64) budget.Status {
		t.Helper()
		rec := doJSON(t, s, http.MethodPost, "/api/transactions", map[string]any{
			"type": "expense", "amount": cents, "description": "spending", "category": "Shopping",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("spend: status %d body %s", rec.Code, rec.Body.String())
		}
		var resp createTransactionResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return resp.Budget
	}

	if st := spend(50000); len(st.Alerts) != 0 {
		t.Fatalf("alerts at 50%%: %v", st.Alerts)
	}
	st := spend(35000)
	if len(st.Alerts) != 1 || st.Alerts[0] != budget.AlertWarning80 {
		t.Fatalf("alerts at 85%%: %v", st.Alerts)
	}
	st = spend(20000)
	if len(st.Alerts) != 1 || st.Alerts[0] != budget.AlertExceeded100 {
		t.Fatalf("alerts at 105%%: %v", st.Alerts)
	}
	// Latched: further spending repeats nothing.
	if st := spend(1000); len(st.Alerts) != 0 {
		t.Fatalf("alerts repeated: %v", st.Alerts)
	}
}

func TestBudgetResetAndGet(t *testing.T) {
	s := newTestServer(t)
	signupAndLogin(t, s, "Ada", "ada@example.com")

	if rec := doJSON(t, s, http.MethodPut, "/api/budget", map[string]any{"amount": 5000}); rec.Code != http.StatusOK {
		t.Fatalf("set: status %d", rec.Code)
	}

	rec := doJSON(t, s, http.MethodGet, "/api/budget", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status %d", rec.Code)
	}
	var st budget.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Budget == nil || st.Budget.Amount.Cents != 5000 {
		t.Fatalf("status = %+v", st)
	}
	// Budgets are scoped to the UTC month so they line up with ledger
	// timestamps regardless of host timezone.
	if want := core.MonthKey(time.Now().UTC()); st.Budget.Month != want {
		t.Fatalf("budget month = %q, want %q", st.Budget.Month, want)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/transactions", map[string]any{
		"type": "expense", "amount": 1200, "description": "lunch", "category": "Food",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("spend: status %d", rec.Code)
	}
	rec = doJSON(t, s, http.MethodGet, "/api/budget", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode after spend: %v", err)
	}
	if st.MonthlyExpenses.Cents != 1200 {
		t.Fatalf("monthly expenses = %d, want 1200", st.MonthlyExpenses.Cents)
	}

	if rec := doJSON(t, s, http.MethodDelete, "/api/budget", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("reset: status %d", rec.Code)
	}
	rec = doJSON(t, s, http.MethodGet, "/api/budget", nil)
	// Zero the struct: a reset budget is omitted from the JSON, which would
	// otherwise leave the previous decode's Budget pointer in place.
	st = budget.Status{}
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode after reset: %v", err)
	}
	if st.Budget != nil {
		t.Fatalf("budget survived reset: %+v", st.Budget)
	}
}

func TestDashboardSummaryReflectsWrites(t *testing.T) {
	s := newTestServer(t)
	signupAndLogin(t, s, "Ada", "ada@example.com")

	get := func() report.Totals {
		t.Helper()
		rec := doJSON(t, s, http.MethodGet, "/api/dashboard/summary", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("summary: status %d", rec.Code)
		}
		var totals report.Totals
		if err := json.Unmarshal(rec.Body.Bytes(), &totals); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return totals
	}

	if totals := get(); totals.Balance.Cents != 0 {
		t.Fatalf("fresh balance = %d", totals.Balance.Cents)
	}

	doJSON(t, s, http.MethodPost, "/api/transactions", map[string]any{
		"type": "income", "amount": 10000, "description": "salary",
	})
	// The write must have invalidated the cached view.
	totals := get()
	if totals.TotalIncome.Cents != 10000 || totals.Balance.Cents != 10000 {
		t.Fatalf("totals after income = %+v", totals)
	}

	rec := doJSON(t, s, http.MethodGet, "/api/dashboard/weekly", nil)
	var weekly []report.Bucket
	if err := json.Unmarshal(rec.Body.Bytes(), &weekly); err != nil {
		t.Fatalf("decode weekly: %v", err)
	}
	if len(weekly) != 7 {
		t.Fatalf("weekly buckets = %d", len(weekly))
	}
	if weekly[6].Income.Cents != 10000 {
		t.Fatalf("today's bucket = %+v", weekly[6])
	}

	rec = doJSON(t, s, http.MethodGet, "/api/dashboard/monthly", nil)
	var monthly []report.Bucket
	if err := json.Unmarshal(rec.Body.Bytes(), &monthly); err != nil {
		t.Fatalf("decode monthly: %v", err)
	}
	if len(monthly) != 6 {
		t.Fatalf("monthly buckets = %d", len(monthly))
	}
}

func TestAdminGuards(t *testing.T) {
	s := newTestServer(t)

	// Anonymous.
	if rec := doJSON(t, s, http.MethodGet, "/api/admin/users", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: status %d", rec.Code)
	}

	// Regular user.
	signupAndLogin(t, s, "Ada", "ada@example.com")
	if rec := doJSON(t, s, http.MethodGet, "/api/admin/users", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin: status %d", rec.Code)
	}

	// Seeded admin.
	login(t, s, storage.AdminEmail, storage.AdminPassword)
	rec := doJSON(t, s, http.MethodGet, "/api/admin/users", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin: status %d", rec.Code)
	}
	var users []core.User
	if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("users = %d, want 2", len(users))
	}
	for _, u := range users {
		if u.Password != "" {
			t.Fatalf("password leaked for %s", u.ID)
		}
	}
}

func TestAdminTransactionsAcrossUsers(t *testing.T) {
	s := newTestServer(t)

	for i := 0; i < 2; i++ {
		email := fmt.Sprintf("u%d@example.com", i)
		signupAndLogin(t, s, fmt.Sprintf("User %d", i), email)
		rec := doJSON(t, s, http.MethodPost, "/api/transactions", map[string]any{
			"type": "income", "amount": 1000 * (i + 1), "description": "deposit",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create: status %d", rec.Code)
		}
	}

	login(t, s, storage.AdminEmail, storage.AdminPassword)
	rec := doJSON(t, s, http.MethodGet, "/api/admin/transactions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var all []core.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &all); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("transactions = %d, want 2", len(all))
	}
	if all[0].UserID == all[1].UserID {
		t.Fatalf("expected two distinct owners")
	}
}

func TestAdminDeleteUser(t *testing.T) {
	s := newTestServer(t)
	signupAndLogin(t, s, "Ada", "ada@example.com")

	rec := doJSON(t, s, http.MethodGet, "/api/me", nil)
	var ada core.User
	if err := json.Unmarshal(rec.Body.Bytes(), &ada); err != nil {
		t.Fatalf("decode me: %v", err)
	}

	login(t, s, storage.AdminEmail, storage.AdminPassword)

	if rec := doJSON(t, s, http.MethodDelete, "/api/admin/users/"+ada.ID, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d body %s", rec.Code, rec.Body.String())
	}
	if rec := doJSON(t, s, http.MethodDelete, "/api/admin/users/"+ada.ID, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("delete again: status %d", rec.Code)
	}
	// The seeded admin is the last one left.
	if rec := doJSON(t, s, http.MethodDelete, "/api/admin/users/"+storage.AdminID, nil); rec.Code != http.StatusConflict {
		t.Fatalf("delete last admin: status %d", rec.Code)
	}
}

func TestProfileUpdate(t *testing.T) {
	s := newTestServer(t)
	signupAndLogin(t, s, "Ada", "ada@example.com")

	rec := doJSON(t, s, http.MethodPut, "/api/profile", map[string]any{"name": "Ada L."})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status %d body %s", rec.Code, rec.Body.String())
	}
	var updated core.User
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.Name != "Ada L." {
		t.Fatalf("name = %q", updated.Name)
	}

	if rec := doJSON(t, s, http.MethodPut, "/api/profile", map[string]any{}); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty update: status %d", rec.Code)
	}

	// Password change takes effect on next login.
	pw := "newsecret"
	if rec := doJSON(t, s, http.MethodPut, "/api/profile", map[string]any{"password": pw}); rec.Code != http.StatusOK {
		t.Fatalf("password update: status %d", rec.Code)
	}
	doJSON(t, s, http.MethodPost, "/api/logout", nil)
	if rec := doJSON(t, s, http.MethodPost, "/api/login", map[string]string{"email": "ada@example.com", "password": "secret"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("old password accepted: status %d", rec.Code)
	}
	login(t, s, "ada@example.com", pw)
}
