package version

import (
	"bytes"
	"runtime"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// TestVersionStrings ensures Short, Full and UserAgent return consistent information.
func TestVersionStrings(t *testing.T) {
	t.Parallel()

	require.NotEmpty(t, Short())
	require.Contains(t, Full(), Short())
	require.Contains(t, Full(), runtime.Version())
	require.True(t, strings.HasPrefix(UserAgent(), "chromium-fetch/"))
	require.True(t, strings.HasSuffix(UserAgent(), "/"+Short()))
}

// TestAttachCobraVersionCommand checks both the flag and the subcommand.
func TestAttachCobraVersionCommand(t *testing.T) {
	t.Parallel()

	newRoot := func() (*cobra.Command, *bytes.Buffer) {
		root := &cobra.Command{
			Use: "chromium-fetch",
			RunE: func(*cobra.Command, []string) error {
				return nil
			},
		}

		AttachCobraVersionCommand(root)

		out := new(bytes.Buffer)
		root.SetOut(out)

		return root, out
	}

	root, out := newRoot()
	root.SetArgs([]string{"-v"})
	require.NoError(t, root.Execute())
	require.Equal(t, Short()+"\n", out.String())

	root, out = newRoot()
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	require.Equal(t, Full()+"\n", out.String())
}
