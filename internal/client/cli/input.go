package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// terminalPassword reads without echo when in is a terminal. Otherwise it
// returns nil and the password is read as a plain line.
func terminalPassword(in io.Reader) func() ([]byte, error) {
	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return nil
	}
	return func() ([]byte, error) {
		return term.ReadPassword(int(f.Fd()))
	}
}

func (a *App) readLine(prompt string) (string, error) {
	fmt.Fprint(a.out, prompt)
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (a *App) readPassword(prompt string) (string, error) {
	if a.noEcho == nil {
		return a.readLine(prompt)
	}
	fmt.Fprint(a.out, prompt)
	pw, err := a.noEcho()
	fmt.Fprintln(a.out)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

// credentials returns the email from args or a prompt, then the password.
func (a *App) credentials(args []string, confirm bool) (string, string, error) {
	var email string
	if len(args) > 0 {
		email = strings.TrimSpace(args[0])
	} else {
		var err error
		if email, err = a.readLine("Email: "); err != nil {
			return "", "", err
		}
	}
	if email == "" {
		return "", "", errors.New("email is required")
	}

	password, err := a.readPassword("Password: ")
	if err != nil {
		return "", "", err
	}
	if password == "" {
		return "", "", errors.New("password is required")
	}
	if confirm {
		again, err := a.readPassword("Repeat password: ")
		if err != nil {
			return "", "", err
		}
		if again != password {
			return "", "", errors.New("passwords do not match")
		}
	}
	return email, password, nil
}
