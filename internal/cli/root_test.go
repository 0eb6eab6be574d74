package cli

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fragmede/shopterm/internal/api"
)

func TestVersionCommand(t *testing.T) {
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "shopterm version dev\n", out.String())
}

func TestRootCommandTree(t *testing.T) {
	cmd := NewRootCmd()
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"version", "login", "logout", "whoami", "orders", "doctor"} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("api-url"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("log-level"))
}

func TestCommandError(t *testing.T) {
	ended := fmt.Errorf("%w: %w", api.ErrSessionTerminated, errors.New("refresh rejected"))
	err := commandError("listing orders", ended)
	assert.Contains(t, err.Error(), "listing orders: Your session has expired")
	assert.Contains(t, err.Error(), "shopterm login")

	err = commandError("loading profile", &api.Error{StatusCode: http.StatusNotFound, Detail: "Not found."})
	assert.Equal(t, "loading profile: Not found.", err.Error())
}
