package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"paylio/config"
	"paylio/database"
	"paylio/middleware"
	"paylio/models"
	"paylio/services"
	"paylio/utils"

	"github.com/gin-gonic/gin"
)

type testApp struct {
	handler http.Handler
	db      *database.Database
	users   *services.UserService
}

func setupTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{}
	cfg.JWT.SecretKey = "test-secret"
	cfg.JWT.ExpiresIn = 1
	cfg.CardHMACKey = "test-card-key"
	cfg.SiteURL = "https://paylio.example"

	handler, err := NewRouter(cfg, db, utils.NewMetrics())
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	return &testApp{handler: handler, db: db, users: services.NewUserService(db)}
}

func (app *testApp) createUser(t *testing.T, email, username, password string) *models.User {
	t.Helper()
	user, _, err := app.users.UpsertUser(services.UpsertUserParams{Email: email, Username: username, Password: password})
	if err != nil {
		t.Fatalf("UpsertUser() error = %v", err)
	}
	if _, _, err := app.users.EnsureAccount(user); err != nil {
		t.Fatalf("EnsureAccount() error = %v", err)
	}
	return user
}

func (app *testApp) do(req *http.Request, cookies []*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	app.handler.ServeHTTP(rr, req)
	return rr
}

func (app *testApp) get(path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	return app.do(httptest.NewRequest(http.MethodGet, path, nil), cookies)
}

func (app *testApp) postForm(path string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return app.do(req, cookies)
}

func (app *testApp) postJSON(path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return app.do(req, nil)
}

func (app *testApp) getJSON(path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return app.do(req, nil)
}

// signIn входит через форму и возвращает cookie сессии
func (app *testApp) signIn(t *testing.T, identifier, password string) []*http.Cookie {
	t.Helper()
	rr := app.postForm("/user/sign-in/", url.Values{"username": {identifier}, "password": {password}}, nil)
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/account/account/" {
		t.Fatalf("sign-in status %d location %q", rr.Code, rr.Header().Get("Location"))
	}
	for _, c := range rr.Result().Cookies() {
		if c.Name == middleware.SessionCookie && c.Value != "" {
			return []*http.Cookie{c}
		}
	}
	t.Fatal("sign-in did not set a session cookie")
	return nil
}

func (app *testApp) apiToken(t *testing.T, identifier, password string) string {
	t.Helper()
	rr := app.postJSON("/api/auth/signIn", `{"username":"`+identifier+`","password":"`+password+`"}`, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("signIn status %d body %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Token struct {
			Token string `json:"token"`
		} `json:"token"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode signIn response: %v", err)
	}
	return resp.Token.Token
}

func TestPublicPages(t *testing.T) {
	app := setupTestApp(t)

	for _, path := range []string{"/", "/about/", "/contact/", "/user/sign-in/", "/user/sign-up/"} {
		if rr := app.get(path, nil); rr.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, rr.Code)
		}
	}

	rr := app.get("/sitemap.xml", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "<loc>https://paylio.example/about/</loc>") {
		t.Errorf("sitemap status %d body %s", rr.Code, rr.Body.String())
	}

	if rr := app.get("/no-such-page/", nil); rr.Code != http.StatusNotFound {
		t.Errorf("unknown page status = %d, want 404", rr.Code)
	}
}

func TestAdminViewUserPermissionBoundary(t *testing.T) {
	app := setupTestApp(t)
	app.createUser(t, "plain@example.com", "plain", "Plain1234")
	target := app.createUser(t, "target@example.com", "target", "Target123")
	if _, _, err := app.users.EnsureSuperuser("admin@example.com", "admin", "Admin12345"); err != nil {
		t.Fatalf("EnsureSuperuser() error = %v", err)
	}
	account, err := app.db.GetAccountByUserID(target.ID)
	if err != nil {
		t.Fatalf("GetAccountByUserID() error = %v", err)
	}

	path := "/account/admin/view-user/" + itoa(target.ID) + "/"

	if rr := app.get(path, nil); rr.Code != http.StatusNotFound {
		t.Errorf("anonymous status = %d, want 404", rr.Code)
	}

	plain := app.signIn(t, "plain", "Plain1234")
	if rr := app.get(path, plain); rr.Code != http.StatusNotFound {
		t.Errorf("non-superuser status = %d, want 404", rr.Code)
	}

	admin := app.signIn(t, "admin", "Admin12345")
	rr := app.get(path, admin)
	if rr.Code != http.StatusOK {
		t.Fatalf("superuser status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), account.AccountNumber) {
		t.Error("page does not show the target account number")
	}

	if rr := app.get("/account/admin/view-user/9999/", admin); rr.Code != http.StatusNotFound {
		t.Errorf("missing user status = %d, want 404", rr.Code)
	}
}

func TestSignUpFlow(t *testing.T) {
	app := setupTestApp(t)

	bad := url.Values{"username": {"alice"}, "email": {"alice@example.com"}, "password1": {"Wonder123"}, "password2": {"Wonder999"}}
	rr := app.postForm("/user/sign-up/", bad, nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "password2") {
		t.Errorf("invalid sign-up status %d, want form re-rendered with error", rr.Code)
	}
	var n int64
	app.db.DB.Model(&models.User{}).Count(&n)
	if n != 0 {
		t.Fatalf("users = %d after invalid sign-up, want 0", n)
	}

	good := url.Values{"username": {"alice"}, "email": {"alice@example.com"}, "password1": {"Wonder123"}, "password2": {"Wonder123"}}
	rr = app.postForm("/user/sign-up/", good, nil)
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/account/account/" {
		t.Fatalf("sign-up status %d location %q", rr.Code, rr.Header().Get("Location"))
	}

	var session []*http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			session = append(session, c)
		}
	}
	if len(session) != 1 || !session[0].HttpOnly {
		t.Fatalf("session cookie = %+v", session)
	}
	if rr := app.get("/account/account/", session); rr.Code != http.StatusOK {
		t.Errorf("account page status = %d, want 200", rr.Code)
	}
}

func TestSignInFailure(t *testing.T) {
	app := setupTestApp(t)
	app.createUser(t, "alice@example.com", "alice", "Wonder123")

	rr := app.postForm("/user/sign-in/", url.Values{"username": {"alice"}, "password": {"wrong"}}, nil)
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/user/sign-in/" {
		t.Errorf("status %d location %q", rr.Code, rr.Header().Get("Location"))
	}
	for _, c := range rr.Result().Cookies() {
		if c.Name == middleware.SessionCookie && c.Value != "" {
			t.Error("failed sign-in set a session cookie")
		}
	}

	// Вход по email тоже работает
	app.signIn(t, "alice@example.com", "Wonder123")
}

func TestSignInRateLimit(t *testing.T) {
	app := setupTestApp(t)
	app.createUser(t, "alice@example.com", "alice", "Wonder123")
	wrong := url.Values{"username": {"alice"}, "password": {"wrong"}}

	for i := 0; i < signInAttempts-1; i++ {
		if rr := app.postForm("/user/sign-in/", wrong, nil); rr.Code != http.StatusFound {
			t.Fatalf("attempt %d status %d, want %d", i+1, rr.Code, http.StatusFound)
		}
	}

	// Успешный вход обнуляет счетчик попыток
	app.signIn(t, "alice", "Wonder123")

	rr := app.postForm("/user/sign-in/", wrong, nil)
	if rr.Code != http.StatusFound {
		t.Fatalf("status after successful sign-in %d, want %d", rr.Code, http.StatusFound)
	}
	if got := rr.Header().Get("X-RateLimit-Remaining"); got != strconv.Itoa(signInAttempts-1) {
		t.Errorf("X-RateLimit-Remaining = %s, want %d", got, signInAttempts-1)
	}

	for i := 1; i < signInAttempts; i++ {
		app.postForm("/user/sign-in/", wrong, nil)
	}
	if rr := app.postForm("/user/sign-in/", wrong, nil); rr.Code != http.StatusTooManyRequests {
		t.Errorf("status over the limit %d, want %d", rr.Code, http.StatusTooManyRequests)
	}
}

func TestDashboardRequiresLogin(t *testing.T) {
	app := setupTestApp(t)

	for _, path := range []string{"/account/", "/account/account/", "/account/kyc-reg/"} {
		rr := app.get(path, nil)
		if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/user/sign-in/" {
			t.Errorf("GET %s status %d location %q", path, rr.Code, rr.Header().Get("Location"))
		}
	}
}

func TestDashboardAndAddCard(t *testing.T) {
	app := setupTestApp(t)
	user := app.createUser(t, "alice@example.com", "alice", "Wonder123")
	session := app.signIn(t, "alice", "Wonder123")

	rr := app.get("/account/", session)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Complete your KYC") {
		t.Errorf("dashboard status %d, want KYC notice", rr.Code)
	}

	card := url.Values{
		"name": {"Alice"}, "number": {"4242424242424242"}, "month": {"12"}, "year": {"2099"},
		"cvv": {"123"}, "amount": {"10"}, "card_type": {"visa"},
	}
	rr = app.postForm("/account/", card, session)
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/account/" {
		t.Fatalf("add card status %d location %q body %s", rr.Code, rr.Header().Get("Location"), rr.Body.String())
	}

	var notifications []models.Notification
	app.db.DB.Where("user_id = ?", user.ID).Find(&notifications)
	if len(notifications) != 1 || notifications[0].NotificationType != models.NotificationAddedCreditCard {
		t.Errorf("notifications = %+v", notifications)
	}

	card.Set("number", "4242424242424241")
	rr = app.postForm("/account/", card, session)
	if rr.Code != http.StatusOK {
		t.Errorf("invalid card status = %d, want form re-render", rr.Code)
	}
	var cards int64
	app.db.DB.Model(&models.CreditCard{}).Count(&cards)
	if cards != 1 {
		t.Errorf("cards = %d, want 1", cards)
	}
}

func TestKYCRegistration(t *testing.T) {
	app := setupTestApp(t)
	user := app.createUser(t, "alice@example.com", "alice", "Wonder123")
	session := app.signIn(t, "alice", "Wonder123")

	form := url.Values{
		"full_name": {"Alice Liddell"}, "gender": {"female"}, "marrital_status": {"single"},
		"identity_type": {"international_passport"}, "date_of_birth": {"1990-01-02"},
		"country": {"UK"}, "mobile": {"+440000000"},
	}

	invalid := url.Values{}
	for k, v := range form {
		invalid[k] = v
	}
	invalid.Set("gender", "robot")
	rr := app.postForm("/account/kyc-reg/", invalid, session)
	if rr.Code != http.StatusOK {
		t.Errorf("invalid KYC status = %d, want re-render", rr.Code)
	}
	var n int64
	app.db.DB.Model(&models.KYC{}).Count(&n)
	if n != 0 {
		t.Fatalf("KYC rows = %d after invalid form, want 0", n)
	}

	rr = app.postForm("/account/kyc-reg/", form, session)
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/account/account/" {
		t.Fatalf("KYC status %d location %q", rr.Code, rr.Header().Get("Location"))
	}
	account, _ := app.db.GetAccountByUserID(user.ID)
	if !account.KYCSubmitted {
		t.Error("KYCSubmitted not set")
	}

	rr = app.get("/account/kyc-reg/", session)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Alice Liddell") {
		t.Errorf("KYC page status %d, want prefilled form", rr.Code)
	}
}

func TestAPIAuthAndAdminAccess(t *testing.T) {
	app := setupTestApp(t)

	rr := app.postJSON("/api/auth/signUp", `{"username":"bob","email":"bob@example.com","password1":"Builder123","password2":"Builder123"}`, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("signUp status %d body %s", rr.Code, rr.Body.String())
	}
	rr = app.postJSON("/api/auth/signUp", `{"username":"bob","email":"bob2@example.com","password1":"Builder123","password2":"Builder123"}`, "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("duplicate signUp status = %d, want 400", rr.Code)
	}

	if rr := app.postJSON("/api/auth/signIn", `{"username":"bob","password":"nope"}`, ""); rr.Code != http.StatusUnauthorized {
		t.Errorf("bad signIn status = %d, want 401", rr.Code)
	}

	plainToken := app.apiToken(t, "bob", "Builder123")
	if _, _, err := app.users.EnsureSuperuser("admin@example.com", "admin", "Admin12345"); err != nil {
		t.Fatalf("EnsureSuperuser() error = %v", err)
	}
	staffToken := app.apiToken(t, "admin@example.com", "Admin12345")

	if rr := app.getJSON("/api/admin/accounts", ""); rr.Code != http.StatusUnauthorized {
		t.Errorf("anonymous admin status = %d, want 401", rr.Code)
	}
	if rr := app.getJSON("/api/admin/accounts", plainToken); rr.Code != http.StatusNotFound {
		t.Errorf("non-staff admin status = %d, want 404", rr.Code)
	}

	rr = app.getJSON("/api/admin/accounts", staffToken)
	if rr.Code != http.StatusOK {
		t.Fatalf("staff admin status = %d", rr.Code)
	}
	var accounts []services.AdminAccountDTO
	if err := json.NewDecoder(rr.Body).Decode(&accounts); err != nil || len(accounts) != 2 {
		t.Errorf("accounts = %d, %v; want 2", len(accounts), err)
	}

	rr = app.getJSON("/api/admin/accounts/export.xml", staffToken)
	if rr.Code != http.StatusOK || !strings.HasPrefix(rr.Header().Get("Content-Type"), "application/xml") {
		t.Errorf("export status %d content-type %q", rr.Code, rr.Header().Get("Content-Type"))
	}

	bob, err := app.db.GetUserByUsername("bob")
	if err != nil {
		t.Fatalf("GetUserByUsername() error = %v", err)
	}
	rr = app.getJSON("/api/admin/users/"+itoa(bob.ID)+"/dashboard", staffToken)
	if rr.Code != http.StatusOK {
		t.Errorf("user dashboard status = %d, want 200", rr.Code)
	}

	rr = app.getJSON("/api/admin/metrics", staffToken)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "total_requests") {
		t.Errorf("metrics status %d body %s", rr.Code, rr.Body.String())
	}
}

func TestAPIAccountPatch(t *testing.T) {
	app := setupTestApp(t)
	bob := app.createUser(t, "bob@example.com", "bob", "Builder123")
	if _, _, err := app.users.EnsureSuperuser("admin@example.com", "admin", "Admin12345"); err != nil {
		t.Fatalf("EnsureSuperuser() error = %v", err)
	}
	token := app.apiToken(t, "admin", "Admin12345")
	account, _ := app.db.GetAccountByUserID(bob.ID)

	req := httptest.NewRequest(http.MethodPatch, "/api/admin/accounts/"+itoa(account.ID), strings.NewReader(`{"account_status":"active","account_balance":"250.00"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rr := app.do(req, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("patch status %d body %s", rr.Code, rr.Body.String())
	}

	var dto services.AdminAccountDTO
	if err := json.NewDecoder(rr.Body).Decode(&dto); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dto.Balance != "250.00" || dto.Status != "active" {
		t.Errorf("patched account = %+v", dto)
	}

	req = httptest.NewRequest(http.MethodPatch, "/api/admin/accounts/"+itoa(account.ID), strings.NewReader(`{"account_status":"frozen"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	if rr := app.do(req, nil); rr.Code != http.StatusBadRequest {
		t.Errorf("invalid patch status = %d, want 400", rr.Code)
	}
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
