package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/nextlevelbuilder/mcpgate/internal/auth"
)

// errNoTerminal is returned instead of blocking on a piped stdin.
var errNoTerminal = errors.New("interactive prompt needs a terminal (pass the value as a flag)")

// SelectOption is one entry in a select or multi-select prompt.
type SelectOption[T any] struct {
	Label string
	Value T
}

// filterThreshold turns on type-to-filter for longer option lists.
const filterThreshold = 5

// ask runs fields as one form. Ctrl-C maps to errCancelled.
func ask(fields ...huh.Field) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return errNoTerminal
	}
	err := huh.NewForm(huh.NewGroup(fields...)).WithShowHelp(true).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return errCancelled
	}
	return err
}

// promptString reads one line. defaultVal doubles as the placeholder and is
// returned on a bare Enter; validators see the raw input.
func promptString(title, description, defaultVal string, validators ...func(string) error) (string, error) {
	var value string
	in := huh.NewInput().Title(title).Description(description).Placeholder(defaultVal).Value(&value)
	if len(validators) > 0 {
		in = in.Validate(func(s string) error {
			if s == "" && defaultVal != "" {
				s = defaultVal
			}
			for _, v := range validators {
				if err := v(s); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := ask(in); err != nil {
		return "", err
	}
	if value == "" {
		return defaultVal, nil
	}
	return value, nil
}

// promptInt reads an integer in [lo, hi].
func promptInt(title, description string, defaultVal, lo, hi int) (int, error) {
	raw, err := promptString(title, description, strconv.Itoa(defaultVal), func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return errors.New("enter a whole number")
		}
		if n < lo || n > hi {
			return fmt.Errorf("must be between %d and %d", lo, hi)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(raw))
}

// promptPassword reads a secret without echo. Used for API keys and DSNs.
func promptPassword(title, description string) (string, error) {
	var value string
	in := huh.NewInput().Title(title).Description(description).EchoMode(huh.EchoModePassword).Value(&value)
	if err := ask(in); err != nil {
		return "", err
	}
	return value, nil
}

// promptNewPassword asks for an account password twice on one screen and
// applies the same rules registration does.
func promptNewPassword(username string) (string, error) {
	var pw, again string
	first := huh.NewInput().
		Title("Password for " + username).
		EchoMode(huh.EchoModePassword).
		Validate(auth.ValidatePassword).
		Value(&pw)
	second := huh.NewInput().
		Title("Repeat password").
		EchoMode(huh.EchoModePassword).
		Validate(func(s string) error {
			if s != pw {
				return errors.New("passwords do not match")
			}
			return nil
		}).
		Value(&again)
	if err := ask(first, second); err != nil {
		return "", err
	}
	return pw, nil
}

func promptSelect[T comparable](title string, options []SelectOption[T], defaultIdx int) (T, error) {
	var value T
	opts := make([]huh.Option[T], len(options))
	for i, o := range options {
		opts[i] = huh.NewOption(o.Label, o.Value).Selected(i == defaultIdx)
	}
	sel := huh.NewSelect[T]().Title(title).Options(opts...).Value(&value).
		Filtering(len(options) > filterThreshold)
	if err := ask(sel); err != nil {
		var zero T
		return zero, err
	}
	return value, nil
}

func promptMultiSelect[T comparable](title, description string, options []SelectOption[T], preselected []T) ([]T, error) {
	var values []T
	pre := make(map[T]bool, len(preselected))
	for _, v := range preselected {
		pre[v] = true
	}
	opts := make([]huh.Option[T], len(options))
	for i, o := range options {
		opts[i] = huh.NewOption(o.Label, o.Value).Selected(pre[o.Value])
	}
	ms := huh.NewMultiSelect[T]().Title(title).Description(description).Options(opts...).Value(&values).
		Filtering(len(options) > filterThreshold)
	if err := ask(ms); err != nil {
		return nil, err
	}
	return values, nil
}

func promptConfirm(title string, defaultYes bool) (bool, error) {
	value := defaultYes
	c := huh.NewConfirm().Title(title).Affirmative("Yes").Negative("No").Value(&value)
	if err := ask(c); err != nil {
		return false, err
	}
	return value, nil
}
