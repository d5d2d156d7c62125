package cli

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapschema/internal/cli/config"
	clitest "github.com/leapstack-labs/leapschema/internal/cli/testutil"
	"github.com/leapstack-labs/leapschema/pkg/manifest"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestRoot_Subcommands(t *testing.T) {
	cmd := NewRootCmd()
	names := make([]string, 0)
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"version", "generate", "history", "completion"}, names)

	for _, flag := range []string{"config", "target", "state", "no-state", "verbose", "output", "log-format"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestRoot_GenerateEndToEnd(t *testing.T) {
	dir := clitest.SetupTestProject(t)
	t.Chdir(dir)

	out, _, err := execute(t, "generate", "--no-state", "-o", "markdown", "--output-dir", "build/schemas")
	require.NoError(t, err)
	clitest.AssertNoANSI(t, out)
	assert.Contains(t, out, "- **Written:** 2")
	assert.FileExists(t, filepath.Join(dir, "build", "schemas", "models", "marts", "orders_schema.yml"))
	assert.NoFileExists(t, filepath.Join(dir, ".leapschema", "state.db"))
}

func TestRoot_ExitCodes(t *testing.T) {
	dir := clitest.SetupTestProject(t)
	t.Chdir(dir)

	t.Run("missing manifest", func(t *testing.T) {
		_, _, err := execute(t, "generate", "--no-state", filepath.Join(dir, "nope.json"))
		var inputErr *manifest.InputError
		require.ErrorAs(t, err, &inputErr)
		assert.Equal(t, 1, ExitCode(err))
	})

	t.Run("invalid config", func(t *testing.T) {
		_, _, err := execute(t, "generate", "--no-state", "--workers=-2")
		var cfgErr *config.Error
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, 1, ExitCode(err))
	})

	t.Run("unknown target", func(t *testing.T) {
		_, _, err := execute(t, "generate", "--target", "prod")
		assert.ErrorContains(t, err, `unknown target "prod"`)
	})

	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 130, ExitCode(errors.Join(errors.New("run"), context.Canceled)))
}

func TestRoot_VerboseLogsJSON(t *testing.T) {
	dir := clitest.SetupTestProject(t)
	t.Chdir(dir)

	_, errOut, err := execute(t, "generate", "--no-state", "-o", "json", "-v", "--log-format", "json")
	require.NoError(t, err)
	assert.Contains(t, errOut, `"msg":"starting schema generation"`)
}

func TestRoot_Completion(t *testing.T) {
	out, _, err := execute(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "leapschema")
}
