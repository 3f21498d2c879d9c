package commands

import (
	"errors"
	"strings"

	"paylio/models"
	"paylio/services"
)

func init() {
	register(&Command{
		Name:  "ensure-superuser",
		Usage: "create a superuser or reset privileges and password of an existing user",
		Run:   ensureSuperuser,
	})
	register(&Command{
		Name:  "set-superuser-password",
		Usage: "set the password of an existing superuser",
		Run:   setSuperuserPassword,
	})
	register(&Command{
		Name:  "list-superusers",
		Usage: "list superusers",
		Run:   listSuperusers,
	})
	register(&Command{
		Name:  "list-staff",
		Usage: "list staff and superuser accounts",
		Run:   listStaff,
	})
}

var credentialOptions = []option{
	{"email", "", "", "user email (required)"},
	{"password", "", "", "new password (required)"},
}

func requireCredentials(args []string, deps Deps, name string, extra ...option) (email, password string, username string, err error) {
	v, err := parseOptions(name, args, deps.Out, append(credentialOptions, extra...))
	if err != nil {
		return "", "", "", err
	}
	email = strings.TrimSpace(v.GetString("email"))
	password = v.GetString("password")
	if email == "" || password == "" {
		return "", "", "", preconditionf("--email and --password are required")
	}
	return email, password, strings.TrimSpace(v.GetString("username")), nil
}

func ensureSuperuser(deps Deps, args []string) error {
	email, password, username, err := requireCredentials(args, deps, "ensure-superuser",
		option{"username", "", "", "username (defaults to the email prefix)"})
	if err != nil {
		return err
	}

	_, created, err := deps.userService().EnsureSuperuser(email, username, password)
	if err != nil {
		return err
	}
	if created {
		deps.printf("Created superuser: %s", email)
	} else {
		deps.printf("Updated superuser: %s", email)
	}
	deps.printf("Login with email %s and the password you provided.", email)
	return nil
}

func setSuperuserPassword(deps Deps, args []string) error {
	email, password, _, err := requireCredentials(args, deps, "set-superuser-password")
	if err != nil {
		return err
	}

	err = deps.userService().SetSuperuserPassword(email, password)
	if errors.Is(err, services.ErrNotFound) {
		return preconditionf("No superuser found with email: %s", email)
	}
	if err != nil {
		return err
	}
	deps.printf("Password updated for %s", email)
	return nil
}

func listSuperusers(deps Deps, args []string) error {
	if _, err := parseOptions("list-superusers", args, deps.Out, nil); err != nil {
		return err
	}

	users, err := deps.userService().ListSuperusers()
	if err != nil {
		return err
	}
	if len(users) == 0 {
		deps.printf("No superusers found.")
		return nil
	}
	for _, u := range users {
		deps.printf("email=%s username=%s active=%t", u.Email, u.Username, u.IsActive)
	}
	return nil
}

func listStaff(deps Deps, args []string) error {
	if _, err := parseOptions("list-staff", args, deps.Out, nil); err != nil {
		return err
	}

	users, err := deps.userService().ListStaff()
	if err != nil {
		return err
	}
	if len(users) == 0 {
		deps.printf("No staff accounts found in database.")
		return nil
	}

	separator := strings.Repeat("-", 60)
	deps.printf("Found %d staff account(s):", len(users))
	for _, u := range users {
		printStaff(deps, separator, &u)
	}
	deps.printf("%s", separator)
	deps.printf("Note: passwords are hashed. Use ensure-superuser to reset.")
	return nil
}

func printStaff(deps Deps, separator string, u *models.User) {
	deps.printf("%s", separator)
	deps.printf("Email: %s", u.Email)
	deps.printf("Username: %s", u.Username)
	deps.printf("Name: %s", u.FullName())
	deps.printf("Superuser: %s", yesNo(u.IsSuperuser))
	deps.printf("Staff: %s", yesNo(u.IsStaff))
	deps.printf("Active: %s", yesNo(u.IsActive))
	deps.printf("Date joined: %s", u.CreatedAt.Format("2006-01-02 15:04:05"))
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
