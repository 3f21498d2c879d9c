package commands

import (
	"strconv"

	"paylio/services"
)

func init() {
	register(&Command{
		Name:  "seed-demo",
		Usage: "create a superuser and a demo user with a large balance and transactions",
		Run:   seedDemo,
	})
	register(&Command{
		Name:  "generate-demo-data",
		Usage: "create demo accounts with random deposits, withdrawals and transfers",
		Run:   generateDemoData,
	})
	register(&Command{
		Name:  "create-test-users",
		Usage: "create five test users with password123",
		Run:   createTestUsers,
	})
}

var seedDemoOptions = []option{
	{"superuser-email", "SUPERUSER_EMAIL", "admin@example.com", "superuser email"},
	{"superuser-password", "SUPERUSER_PASSWORD", "Admin12345", "superuser password"},
	{"demo-email", "DEMO_EMAIL", "demo@example.com", "demo user email"},
	{"demo-password", "DEMO_PASSWORD", "Demo12345", "demo user password"},
	{"transactions", "DEMO_TX_COUNT", strconv.Itoa(services.DefaultDemoTransactions), "number of transactions to create"},
	{"balance", "DEMO_BALANCE", services.DefaultDemoBalance, "demo account balance"},
}

func seedDemo(deps Deps, args []string) error {
	v, err := parseOptions("seed-demo", args, deps.Out, seedDemoOptions)
	if err != nil {
		return err
	}
	transactions, err := intOption(v, "transactions")
	if err != nil {
		return err
	}

	batch := services.DefaultBatchOptions()
	batch.SeedSource = deps.Source

	report, err := deps.seedService().SeedDemo(services.SeedDemoOptions{
		SuperuserEmail:    v.GetString("superuser-email"),
		SuperuserPassword: v.GetString("superuser-password"),
		DemoEmail:         v.GetString("demo-email"),
		DemoPassword:      v.GetString("demo-password"),
		Transactions:      transactions,
		Balance:           v.GetString("balance"),
		Batch:             batch,
	})
	if err != nil {
		return err
	}

	if report.SuperuserCreated {
		deps.printf("Created superuser %s", report.Superuser.Email)
	} else {
		deps.printf("Superuser %s already exists (ensured privileges).", report.Superuser.Email)
	}
	if report.DemoCreated {
		deps.printf("Created demo user %s", report.DemoUser.Email)
	} else {
		deps.printf("Demo user %s already exists.", report.DemoUser.Email)
	}
	if report.Balance.FellBack {
		deps.printf("Warning: balance %q is not a decimal, using %s", report.Balance.Input, services.DefaultDemoBalance)
	}
	deps.printf("Demo account %s set to balance %s", report.Account.AccountNumber, report.Balance.Balance.StringFixed(2))

	tx := report.Transactions
	deps.printf("Created %d completed transactions for demo user.", tx.Succeeded())
	if tx.Failed() > 0 {
		deps.printf("%d transactions failed:", tx.Failed())
		for _, item := range tx.Items {
			if item.Err != nil {
				deps.printf("  #%d %s: %v", item.Index, item.Kind, item.Err)
			}
		}
	}
	deps.printf("Seeding complete.")
	return nil
}

var generateDemoDataOptions = []option{
	{"accounts", "", "10", "number of demo accounts"},
	{"transactions", "", "5", "transactions per account"},
}

func generateDemoData(deps Deps, args []string) error {
	v, err := parseOptions("generate-demo-data", args, deps.Out, generateDemoDataOptions)
	if err != nil {
		return err
	}
	accounts, err := intOption(v, "accounts")
	if err != nil {
		return err
	}
	perAccount, err := intOption(v, "transactions")
	if err != nil {
		return err
	}

	deps.printf("Creating %d demo accounts...", accounts)
	report := deps.seedService().GenerateDemoData(accounts, perAccount, deps.Source)
	for _, f := range report.Failures {
		deps.printf("Error with account %d: %v", f.Index, f.Err)
	}
	deps.printf("Successfully created %d accounts and %d transactions", report.AccountsCreated, report.TransactionsCreated)
	return nil
}

func createTestUsers(deps Deps, args []string) error {
	if _, err := parseOptions("create-test-users", args, deps.Out, nil); err != nil {
		return err
	}

	deps.printf("Creating test users with accounts and transactions...")
	report, err := deps.seedService().CreateTestUsers(deps.Source)
	for _, username := range report.Skipped {
		deps.printf("User %s already exists, skipping...", username)
	}
	for _, r := range report.Created {
		deps.printf("Created user: %s | Account: %s | Balance: $%s", r.User.Username, r.Account.AccountNumber, r.Balance.StringFixed(2))
		deps.printf("   Created %d transactions", r.Transactions)
	}
	if err != nil {
		return err
	}

	deps.printf("Login credentials for all users:")
	deps.printf("   Password: password123")
	for _, r := range report.Created {
		deps.printf("   Username: %s | Email: %s", r.User.Username, r.User.Email)
	}
	return nil
}
