package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInputApp(input string) (*App, *bytes.Buffer) {
	var out bytes.Buffer
	return NewApp(nil, nil, strings.NewReader(input), &out), &out
}

func TestTerminalPassword_NotATerminal(t *testing.T) {
	assert.Nil(t, terminalPassword(strings.NewReader("secret\n")))
}

func TestReadLine(t *testing.T) {
	a, out := newInputApp("  bob@example.com  \nlast")

	line, err := a.readLine("Email: ")
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", line)
	assert.Equal(t, "Email: ", out.String())

	// a final line without a newline still counts
	line, err = a.readLine("> ")
	require.NoError(t, err)
	assert.Equal(t, "last", line)

	_, err = a.readLine("> ")
	assert.Error(t, err)
}

func TestReadPassword_UsesNoEcho(t *testing.T) {
	a, out := newInputApp("")
	a.noEcho = func() ([]byte, error) { return []byte("hidden1"), nil }

	pw, err := a.readPassword("Password: ")
	require.NoError(t, err)
	assert.Equal(t, "hidden1", pw)
	assert.Equal(t, "Password: \n", out.String())

	a.noEcho = func() ([]byte, error) { return nil, errors.New("tty gone") }
	_, err = a.readPassword("Password: ")
	assert.EqualError(t, err, "tty gone")
}

func TestCredentials(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		input   string
		confirm bool
		email   string
		wantErr string
	}{
		{name: "email from args", args: []string{" a@example.com "}, input: "password1\n", email: "a@example.com"},
		{name: "email prompted", input: "a@example.com\npassword1\n", email: "a@example.com"},
		{name: "confirmed", input: "a@example.com\npassword1\npassword1\n", confirm: true, email: "a@example.com"},
		{name: "empty email", input: "\npassword1\n", wantErr: "email is required"},
		{name: "empty password", args: []string{"a@example.com"}, input: "\n", wantErr: "password is required"},
		{name: "mismatch", args: []string{"a@example.com"}, input: "password1\npassword2\n", confirm: true, wantErr: "passwords do not match"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := newInputApp(tt.input)
			email, password, err := a.credentials(tt.args, tt.confirm)
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.email, email)
			assert.Equal(t, "password1", password)
		})
	}
}
