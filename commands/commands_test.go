package commands

import (
	"bytes"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"paylio/database"
	"paylio/models"
	"paylio/utils"
)

var testNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func setupDeps(t *testing.T) (Deps, *bytes.Buffer) {
	t.Helper()

	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	out := &bytes.Buffer{}
	deps := Deps{
		DB:      db,
		Metrics: utils.NewMetrics(),
		Out:     out,
	}
	deps.Source.Rand = rand.New(rand.NewPCG(7, 7))
	deps.Source.Now = func() time.Time { return testNow }
	return deps, out
}

func run(t *testing.T, deps Deps, out *bytes.Buffer, name string, args ...string) string {
	t.Helper()
	out.Reset()
	if err := Run(name, args, deps); err != nil {
		t.Fatalf("%s failed: %v\noutput:\n%s", name, err, out.String())
	}
	return out.String()
}

func assertContains(t *testing.T, output string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(output, w) {
			t.Errorf("Expected output to contain %q, got:\n%s", w, output)
		}
	}
}

func TestSeedDemoDefaults(t *testing.T) {
	deps, out := setupDeps(t)

	output := run(t, deps, out, "seed-demo", "--transactions", "4")
	assertContains(t, output,
		"Created superuser admin@example.com",
		"Created demo user demo@example.com",
		"set to balance 987654321.00",
		"Created 4 completed transactions for demo user.",
		"Seeding complete.",
	)
	if strings.Contains(output, "Warning") {
		t.Errorf("Unexpected fallback warning:\n%s", output)
	}

	output = run(t, deps, out, "seed-demo", "--transactions", "2")
	assertContains(t, output,
		"Superuser admin@example.com already exists (ensured privileges).",
		"Demo user demo@example.com already exists.",
		"Created 2 completed transactions for demo user.",
	)

	var count int64
	deps.DB.DB.Model(&models.Transaction{}).Count(&count)
	if count != 6 {
		t.Errorf("Expected 6 transactions after two runs, got %d", count)
	}
}

func TestSeedDemoBalanceFallback(t *testing.T) {
	deps, out := setupDeps(t)

	output := run(t, deps, out, "seed-demo", "--transactions", "1", "--balance", "lots")
	assertContains(t, output,
		`Warning: balance "lots" is not a decimal, using 987654321.00`,
		"set to balance 987654321.00",
	)
}

func TestSeedDemoOptionPrecedence(t *testing.T) {
	deps, out := setupDeps(t)
	t.Setenv("DEMO_EMAIL", "env-demo@example.com")
	t.Setenv("SUPERUSER_EMAIL", "env-admin@example.com")
	t.Setenv("DEMO_TX_COUNT", "3")

	output := run(t, deps, out, "seed-demo", "--superuser-email", "flag-admin@example.com")
	assertContains(t, output,
		"Created superuser flag-admin@example.com",
		"Created demo user env-demo@example.com",
		"Created 3 completed transactions for demo user.",
	)

	if _, err := deps.DB.GetUserByEmail("env-admin@example.com"); err == nil {
		t.Errorf("Flag should take precedence over SUPERUSER_EMAIL")
	}
}

func TestSeedDemoListsFailedItems(t *testing.T) {
	deps, out := setupDeps(t)
	if err := deps.DB.DB.Migrator().DropTable(&models.Notification{}); err != nil {
		t.Fatalf("DropTable() error = %v", err)
	}

	output := run(t, deps, out, "seed-demo", "--transactions", "3")
	assertContains(t, output,
		"Created 0 completed transactions for demo user.",
		"3 transactions failed:",
		"  #0 received: ",
		"  #1 transfer: ",
		"  #2 received: ",
		"Seeding complete.",
	)
}

func TestHelpIsNotAFailure(t *testing.T) {
	deps, out := setupDeps(t)

	for _, name := range []string{"seed-demo", "ensure-superuser", "list-staff"} {
		out.Reset()
		if err := Run(name, []string{"--help"}, deps); err != nil {
			t.Errorf("%s --help error = %v, want nil", name, err)
		}
	}

	out.Reset()
	if err := Run("seed-demo", []string{"-h"}, deps); err != nil {
		t.Fatalf("seed-demo -h error = %v, want nil", err)
	}
	assertContains(t, out.String(), "--transactions", "--demo-email")
}

func TestSeedDemoInvalidCount(t *testing.T) {
	deps, _ := setupDeps(t)

	err := Run("seed-demo", []string{"--transactions", "many"}, deps)
	if !errors.Is(err, ErrPrecondition) {
		t.Errorf("Expected precondition error, got %v", err)
	}
}

func TestGenerateDemoData(t *testing.T) {
	deps, out := setupDeps(t)

	output := run(t, deps, out, "generate-demo-data", "--accounts", "3", "--transactions", "2")
	assertContains(t, output,
		"Creating 3 demo accounts...",
		"Successfully created 3 accounts and 6 transactions",
	)

	output = run(t, deps, out, "generate-demo-data", "--accounts", "3", "--transactions", "1")
	assertContains(t, output, "Successfully created 0 accounts and 3 transactions")

	var users int64
	deps.DB.DB.Model(&models.User{}).Count(&users)
	if users != 3 {
		t.Errorf("Expected 3 demo users, got %d", users)
	}
}

func TestCreateTestUsers(t *testing.T) {
	deps, out := setupDeps(t)

	output := run(t, deps, out, "create-test-users")
	assertContains(t, output,
		"Created user: john_doe",
		"Created user: david_wilson",
		"Password: password123",
	)

	output = run(t, deps, out, "create-test-users")
	assertContains(t, output, "User john_doe already exists, skipping...")
	if strings.Contains(output, "Created user:") {
		t.Errorf("Second run should not create users:\n%s", output)
	}
}

func TestEnsureSuperuser(t *testing.T) {
	deps, out := setupDeps(t)

	output := run(t, deps, out, "ensure-superuser", "--email", "root@example.com", "--password", "Secret123")
	assertContains(t, output, "Created superuser: root@example.com")
	if strings.Contains(output, "Secret123") {
		t.Errorf("Password must not be printed")
	}

	output = run(t, deps, out, "ensure-superuser", "--email", "root@example.com", "--password", "Other123")
	assertContains(t, output, "Updated superuser: root@example.com")

	user, err := deps.DB.GetUserByEmail("root@example.com")
	if err != nil {
		t.Fatalf("Failed to load superuser: %v", err)
	}
	if !user.IsSuperuser || !user.IsStaff || !user.IsActive {
		t.Errorf("Expected superuser privileges, got %+v", user)
	}
	if user.Username != "root" {
		t.Errorf("Expected username root, got %q", user.Username)
	}
}

func TestEnsureSuperuserRequiresCredentials(t *testing.T) {
	deps, _ := setupDeps(t)

	err := Run("ensure-superuser", []string{"--email", "root@example.com"}, deps)
	if !errors.Is(err, ErrPrecondition) {
		t.Errorf("Expected precondition error, got %v", err)
	}
}

func TestSetSuperuserPassword(t *testing.T) {
	deps, out := setupDeps(t)

	err := Run("set-superuser-password", []string{"--email", "nobody@example.com", "--password", "x"}, deps)
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("Expected precondition error, got %v", err)
	}
	if !strings.Contains(err.Error(), "No superuser found with email: nobody@example.com") {
		t.Errorf("Unexpected error message: %v", err)
	}

	run(t, deps, out, "ensure-superuser", "--email", "root@example.com", "--password", "Secret123")
	output := run(t, deps, out, "set-superuser-password", "--email", "root@example.com", "--password", "NewSecret1")
	assertContains(t, output, "Password updated for root@example.com")
}

func TestListSuperusersAndStaff(t *testing.T) {
	deps, out := setupDeps(t)

	assertContains(t, run(t, deps, out, "list-superusers"), "No superusers found.")
	assertContains(t, run(t, deps, out, "list-staff"), "No staff accounts found in database.")

	run(t, deps, out, "ensure-superuser", "--email", "root@example.com", "--password", "Secret123", "--username", "boss")

	assertContains(t, run(t, deps, out, "list-superusers"), "email=root@example.com username=boss active=true")
	assertContains(t, run(t, deps, out, "list-staff"),
		"Found 1 staff account(s):",
		"Email: root@example.com",
		"Superuser: Yes",
	)
}

func TestUnknownCommand(t *testing.T) {
	deps, _ := setupDeps(t)

	err := Run("launch-rockets", nil, deps)
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("Expected unknown command error, got %v", err)
	}
	if errors.Is(err, ErrPrecondition) {
		t.Errorf("Unknown command is not a precondition failure")
	}
}
