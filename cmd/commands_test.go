package cmd

import (
	"bytes"
	"strings"
	"testing"

	"ticket-ledger/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashTokenCommand(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		stdin string
	}{
		{name: "Token argument", args: []string{"s3cret"}},
		{name: "Token from stdin", stdin: "s3cret\n"},
		{name: "Stdin without newline", stdin: "s3cret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			cmd := newHashTokenCommand()
			cmd.SetArgs(tt.args)
			cmd.SetIn(strings.NewReader(tt.stdin))
			cmd.SetOut(&out)

			require.NoError(t, cmd.Execute())

			hash := strings.TrimSpace(out.String())
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
		})
	}
}

func TestHashTokenCommand_EmptyToken(t *testing.T) {
	var out bytes.Buffer
	cmd := newHashTokenCommand()
	cmd.SetArgs(nil)
	cmd.SetIn(strings.NewReader("\n"))
	cmd.SetOut(&out)
	cmd.SetErr(&out)

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not be empty")
}

func TestAuditCommand_NoBackend(t *testing.T) {
	var out bytes.Buffer
	cmd := newAuditCommand(nil, &config.Config{ArchiveBackend: config.ArchiveNone, Difficulty: 2})
	cmd.SetArgs(nil)
	cmd.SetOut(&out)
	cmd.SetErr(&out)

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ARCHIVE_BACKEND")
}
