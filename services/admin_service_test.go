package services

import (
	"errors"
	"strings"
	"testing"

	"paylio/models"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestAdminListAndUpdateAccounts(t *testing.T) {
	env := setupTestEnv(t)
	admin := NewAdminService(env.db)
	_, alice := env.createUser(t, "alice@example.com", "alice", "Alice1234")
	env.createUser(t, "bob@example.com", "bob", "Bobby1234")

	updated, err := admin.UpdateAccount(alice.ID, AccountPatch{
		AccountStatus:  strPtr("active"),
		AccountBalance: strPtr("1500.456"),
		KYCConfirmed:   boolPtr(true),
	})
	if err != nil {
		t.Fatalf("UpdateAccount() error = %v", err)
	}
	if !updated.AccountBalance.Equal(decimal.RequireFromString("1500.46")) || !updated.IsActive() || !updated.KYCConfirmed {
		t.Errorf("UpdateAccount() = balance %s status %s kyc %v", updated.AccountBalance, updated.AccountStatus, updated.KYCConfirmed)
	}

	active, err := admin.ListAccounts(AccountFilter{Status: "active"})
	if err != nil {
		t.Fatalf("ListAccounts() error = %v", err)
	}
	if len(active) != 1 || active[0].ID != alice.ID || active[0].User.Username != "alice" {
		t.Errorf("ListAccounts(active) = %+v", active)
	}

	byQuery, err := admin.ListAccounts(AccountFilter{Query: "BOB@"})
	if err != nil {
		t.Fatalf("ListAccounts() error = %v", err)
	}
	if len(byQuery) != 1 || byQuery[0].User.Email != "bob@example.com" {
		t.Errorf("ListAccounts(query) = %+v", byQuery)
	}

	confirmed, err := admin.ListAccounts(AccountFilter{KYCConfirmed: boolPtr(false)})
	if err != nil {
		t.Fatalf("ListAccounts() error = %v", err)
	}
	if len(confirmed) != 1 {
		t.Errorf("ListAccounts(kyc unconfirmed) = %d, want 1", len(confirmed))
	}
}

func TestAdminUpdateAccountErrors(t *testing.T) {
	env := setupTestEnv(t)
	admin := NewAdminService(env.db)
	_, account := env.createUser(t, "alice@example.com", "alice", "Alice1234")

	if _, err := admin.UpdateAccount(9999, AccountPatch{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateAccount(missing) error = %v, want ErrNotFound", err)
	}

	var verr *ValidationError
	if _, err := admin.UpdateAccount(account.ID, AccountPatch{AccountStatus: strPtr("frozen")}); !errors.As(err, &verr) {
		t.Errorf("UpdateAccount(bad status) error = %v, want ValidationError", err)
	}
	if _, err := admin.UpdateAccount(account.ID, AccountPatch{AccountBalance: strPtr("many")}); !errors.As(err, &verr) {
		t.Errorf("UpdateAccount(bad balance) error = %v, want ValidationError", err)
	}
}

func TestAdminTransactions(t *testing.T) {
	env := setupTestEnv(t)
	admin := NewAdminService(env.db)
	user, account := env.createUser(t, "demo@example.com", "demo", "Demo12345")
	env.seed.GenerateTransactions(account, user, 4, BatchOptions{SeedSource: testSource(9)})

	received, err := admin.ListTransactions(TransactionFilter{TransactionType: "received"})
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(received) != 2 {
		t.Fatalf("ListTransactions(received) = %d, want 2", len(received))
	}

	tx, err := admin.UpdateTransaction(received[0].ID, TransactionPatch{Status: strPtr("failed"), Amount: strPtr("12.5")})
	if err != nil {
		t.Fatalf("UpdateTransaction() error = %v", err)
	}
	if tx.Status != models.TransactionStatusFailed || !tx.Amount.Equal(decimal.RequireFromString("12.50")) {
		t.Errorf("UpdateTransaction() = %s %s", tx.Status, tx.Amount)
	}

	failed, _ := admin.ListTransactions(TransactionFilter{Status: "failed", UserID: user.ID})
	if len(failed) != 1 {
		t.Errorf("ListTransactions(failed) = %d, want 1", len(failed))
	}

	var verr *ValidationError
	if _, err := admin.UpdateTransaction(received[0].ID, TransactionPatch{TransactionType: strPtr("refund")}); !errors.As(err, &verr) {
		t.Errorf("UpdateTransaction(bad type) error = %v, want ValidationError", err)
	}
	if _, err := admin.UpdateTransaction(9999, TransactionPatch{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateTransaction(missing) error = %v, want ErrNotFound", err)
	}

	notifications, err := admin.ListNotifications()
	if err != nil || len(notifications) != 4 {
		t.Errorf("ListNotifications() = %d, %v; want 4", len(notifications), err)
	}
}

func TestExportAccountsXML(t *testing.T) {
	env := setupTestEnv(t)
	admin := NewAdminService(env.db)
	env.createUser(t, "alice@example.com", "alice", "Alice1234")
	env.createUser(t, "bob@example.com", "bob", "Bobby1234")

	data, err := admin.ExportAccountsXML(AccountFilter{}, testNow)
	if err != nil {
		t.Fatalf("ExportAccountsXML() error = %v", err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		t.Fatalf("exported XML does not parse: %v", err)
	}
	root := doc.SelectElement("accounts")
	if root == nil || root.SelectAttrValue("count", "") != "2" {
		t.Fatalf("root = %v, want accounts count=2", root)
	}
	emails := doc.FindElements("//account/owner/email")
	if len(emails) != 2 {
		t.Fatalf("owner emails = %d, want 2", len(emails))
	}
	for _, el := range doc.FindElements("//account/balance") {
		if !strings.Contains(el.Text(), ".") {
			t.Errorf("balance %q not fixed-point", el.Text())
		}
	}
}

func TestBuildSitemap(t *testing.T) {
	data, err := BuildSitemap("https://paylio.example/", PublicPages, testNow)
	if err != nil {
		t.Fatalf("BuildSitemap() error = %v", err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		t.Fatalf("sitemap does not parse: %v", err)
	}
	locs := doc.FindElements("//url/loc")
	if len(locs) != len(PublicPages) {
		t.Fatalf("locs = %d, want %d", len(locs), len(PublicPages))
	}
	if locs[0].Text() != "https://paylio.example/" {
		t.Errorf("first loc = %q", locs[0].Text())
	}
	if ns := doc.Root().SelectAttrValue("xmlns", ""); ns != sitemapNamespace {
		t.Errorf("xmlns = %q", ns)
	}
}
