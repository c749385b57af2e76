package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes a YAML config into a temp dir and returns its path.
func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taskboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const memoryConfig = `
database:
  driver: memory
kafka:
  brokers: ["broker-1:9092"]
  topic: tasks.activity
`

// runCLI executes the root command with args and captures its output.
func runCLI(t *testing.T, deps Dependencies, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCommand(deps)
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestNewRootCommand_Metadata(t *testing.T) {
	cmd := NewRootCommand(Dependencies{})
	assert.Equal(t, "taskboard", cmd.Use)
	assert.True(t, cmd.SilenceUsage)
	assert.True(t, cmd.SilenceErrors)

	for _, name := range []string{"config", "log-level", "output", "verbose", "timeout", "server"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "flag %s", name)
	}

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"recurrence", "task", "migrate", "events", "version"}, names)
}

func TestVersionCommand(t *testing.T) {
	cfg := writeConfig(t, memoryConfig)

	out, _, err := runCLI(t, Dependencies{}, "version", "-c", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "taskboard "+Version)
	assert.Contains(t, out, "commit: "+GitCommit)

	out, _, err = runCLI(t, Dependencies{}, "version", "-c", cfg, "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"version": "`+Version+`"`)
}

func TestPersistentPreRun_BadConfigPath(t *testing.T) {
	_, _, err := runCLI(t, Dependencies{}, "version", "-c", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config initialization failed")
}

func TestPersistentPreRun_BadLogLevel(t *testing.T) {
	cfg := writeConfig(t, memoryConfig)
	_, _, err := runCLI(t, Dependencies{}, "version", "-c", cfg, "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logger initialization failed")
}

func TestGetCLIContext_Missing(t *testing.T) {
	cmd := &cobra.Command{}
	_, err := GetCLIContext(cmd)
	assert.Error(t, err)

	cmd.SetContext(context.Background())
	_, err = GetCLIContext(cmd)
	assert.Error(t, err)
}

func TestInitClient_ServerFromConfig(t *testing.T) {
	cfg := writeConfig(t, memoryConfig+"server:\n  host: 0.0.0.0\n  port: 9191\n")

	var captured *CLIContext
	root := NewRootCommand(Dependencies{})
	probe := &cobra.Command{
		Use: "probe",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := GetCLIContext(cmd)
			captured = c
			return err
		},
	}
	root.AddCommand(probe)
	root.SetArgs([]string{"probe", "-c", cfg})
	require.NoError(t, root.ExecuteContext(context.Background()))

	require.NotNil(t, captured)
	require.NotNil(t, captured.Client)
	assert.Equal(t, 9191, captured.Config.Server.Port)
	assert.Equal(t, "http://localhost:9191", captured.Client.BaseURL())
}

func TestFormatTable(t *testing.T) {
	out := FormatTable([]string{"ID", "TITLE"}, [][]string{
		{"1", "Water plants"},
		{"22", "Pay rent"},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "ID  TITLE       ", lines[0])
	assert.Equal(t, "--  ------------", lines[1])
	assert.Equal(t, "1   Water plants", lines[2])
	assert.Equal(t, "22  Pay rent    ", lines[3])

	assert.Empty(t, FormatTable(nil, nil))
}

func TestPadRight(t *testing.T) {
	assert.Equal(t, "ab  ", padRight("ab", 4))
	assert.Equal(t, "abcdef", padRight("abcdef", 3))
}

//Personal.AI order the ending
