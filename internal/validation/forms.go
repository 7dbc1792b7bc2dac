package validation

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

var (
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	emailRe    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	nameRe     = regexp.MustCompile(`^[a-zA-Z\s]+$`)
	upperRe    = regexp.MustCompile(`[A-Z]`)
	lowerRe    = regexp.MustCompile(`[a-z]`)
	digitRe    = regexp.MustCompile(`\d`)

	reservedUsernames = []string{"admin", "root", "administrator", "user", "test"}
	disposableDomains = []string{"10minutemail.com", "tempmail.org", "guerrillamail.com"}
	commonPasswords   = []string{"password", "123456", "qwerty", "admin", "letmein", "welcome"}
)

// Lookup answers uniqueness questions against stored accounts.
type Lookup interface {
	UsernameTaken(ctx context.Context, username string) (bool, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
}

type RegistrationForm struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password1 string
	Password2 string
}

// ValidateRegistration checks every field of f and collects all failures.
// Names are normalised in place. The returned error is non-nil only when
// lookup fails.
func ValidateRegistration(ctx context.Context, f *RegistrationForm, lookup Lookup) (Errors, error) {
	errs := Errors{}
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)

	if err := checkUsername(ctx, errs, f.Username, lookup); err != nil {
		return nil, err
	}
	if err := checkEmail(ctx, errs, f.Email, lookup); err != nil {
		return nil, err
	}
	f.FirstName = checkName(errs, "first_name", "First name", f.FirstName)
	f.LastName = checkName(errs, "last_name", "Last name", f.LastName)

	passwordOK := checkPassword(errs, "password1", f.Password1)
	if f.Password2 == "" {
		errs.Add("password2", requiredMsg)
	} else if passwordOK && f.Password1 != f.Password2 {
		errs.Add(NonField, "Passwords do not match. Please make sure both passwords are identical.")
	}
	return errs, nil
}

func checkUsername(ctx context.Context, errs Errors, username string, lookup Lookup) error {
	const field = "username"
	switch {
	case username == "":
		errs.Add(field, "Username is required.")
		return nil
	case utf8.RuneCountInString(username) > 150:
		errs.Add(field, "Username cannot exceed 150 characters.")
		return nil
	case !usernameRe.MatchString(username):
		errs.Add(field, "Username can only contain letters, numbers, and underscores.")
		return nil
	}

	taken, err := lookup.UsernameTaken(ctx, username)
	if err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	switch {
	case taken:
		errs.Add(field, "This username is already taken. Please choose a different one.")
	case len(username) < 3:
		errs.Add(field, "Username must be at least 3 characters long.")
	case slices.Contains(reservedUsernames, strings.ToLower(username)):
		errs.Add(field, "This username is not allowed. Please choose a different one.")
	}
	return nil
}

func checkEmail(ctx context.Context, errs Errors, email string, lookup Lookup) error {
	const field = "email"
	switch {
	case email == "":
		errs.Add(field, "Email address is required.")
		return nil
	case !emailRe.MatchString(email):
		errs.Add(field, "Please enter a valid email address.")
		return nil
	}

	taken, err := lookup.EmailTaken(ctx, email)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	domain := strings.ToLower(email[strings.LastIndex(email, "@")+1:])
	switch {
	case taken:
		errs.Add(field, "This email address is already in use. Please use a different email or try logging in.")
	case slices.Contains(disposableDomains, domain):
		errs.Add(field, "Please use a valid email address. Disposable email addresses are not allowed.")
	}
	return nil
}

// checkName validates a first or last name and returns its normalised form.
func checkName(errs Errors, field, label, value string) string {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		errs.Add(field, label+" is required.")
		return value
	case utf8.RuneCountInString(value) > 30:
		errs.Add(field, label+" cannot exceed 30 characters.")
		return value
	case !nameRe.MatchString(value):
		errs.Add(field, "Name can only contain letters and spaces.")
		return value
	}
	value = NormalizeName(value)
	if len(value) < 2 {
		errs.Add(field, label+" must be at least 2 characters long.")
	}
	return value
}

func checkPassword(errs Errors, field, password string) bool {
	var msg string
	switch {
	case password == "":
		msg = requiredMsg
	case len(password) < 8:
		msg = "Password must be at least 8 characters long."
	case !upperRe.MatchString(password):
		msg = "Password must contain at least one uppercase letter."
	case !lowerRe.MatchString(password):
		msg = "Password must contain at least one lowercase letter."
	case !digitRe.MatchString(password):
		msg = "Password must contain at least one number."
	case slices.Contains(commonPasswords, strings.ToLower(password)):
		msg = "This password is too common. Please choose a more secure password."
	default:
		return true
	}
	errs.Add(field, msg)
	return false
}

type LoginForm struct {
	Identifier string
	Password   string
}

// ValidateLogin trims the identifier and requires both inputs.
func ValidateLogin(f *LoginForm) Errors {
	errs := Errors{}
	f.Identifier = strings.TrimSpace(f.Identifier)
	if f.Identifier == "" {
		errs.Add("username", "Username or email is required.")
	}
	if f.Password == "" {
		errs.Add("password", "Password is required.")
	}
	return errs
}

type ChangePasswordForm struct {
	CurrentPassword string
	NewPassword1    string
	NewPassword2    string
}

// ValidateChangePassword checks the new password pair. The current password
// is verified by whoever holds the stored hash.
func ValidateChangePassword(f *ChangePasswordForm) Errors {
	errs := Errors{}
	switch {
	case f.CurrentPassword == "":
		errs.Add("current_password", "Current password is required.")
	case f.NewPassword1 != f.NewPassword2:
		errs.Add(NonField, "New passwords do not match.")
	case len(f.NewPassword1) < 8:
		errs.Add("new_password1", "Password must be at least 8 characters long.")
	}
	return errs
}
