package services

import (
	"math/rand/v2"
	"testing"
	"time"

	"paylio/database"
	"paylio/models"
	"paylio/utils"
)

// testNow фиксированный момент времени для детерминированных тестов
var testNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

type fakeNotifier struct {
	sent []string
	err  error
}

func (f *fakeNotifier) SendKYCSubmitted(to, fullName string) error {
	f.sent = append(f.sent, to)
	return f.err
}

type testEnv struct {
	db       *database.Database
	users    *UserService
	accounts *AccountService
	seed     *SeedService
	notifier *fakeNotifier
	metrics  *utils.Metrics
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	env := &testEnv{db: db, notifier: &fakeNotifier{}, metrics: utils.NewMetrics()}
	env.users = NewUserService(db)
	env.accounts = NewAccountService(db, env.notifier)
	env.seed = NewSeedService(db, env.users, env.accounts, env.metrics)
	return env
}

func testSource(seed uint64) SeedSource {
	return SeedSource{
		Rand: rand.New(rand.NewPCG(seed, seed)),
		Now:  func() time.Time { return testNow },
	}
}

func (env *testEnv) createUser(t *testing.T, email, username, password string) (*models.User, *models.Account) {
	t.Helper()
	user, _, err := env.users.UpsertUser(UpsertUserParams{Email: email, Username: username, Password: password})
	if err != nil {
		t.Fatalf("UpsertUser(%s) error = %v", email, err)
	}
	account, _, err := env.users.EnsureAccount(user)
	if err != nil {
		t.Fatalf("EnsureAccount(%s) error = %v", email, err)
	}
	return user, account
}

func (env *testEnv) count(t *testing.T, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := env.db.DB.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	return n
}
