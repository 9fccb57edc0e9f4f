package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/touchicons/internal/cli/styles"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a profile's cache and database state",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	st, err := a.Status(a.Ctx(), profileID)
	if err != nil {
		return err
	}

	r := styles.NewIconRenderer(a.Theme)
	out := cmd.OutOrStdout()
	fmt.Fprint(out, r.RenderPath(fmt.Sprintf("%s (%d/%d icons)", st.Profile, st.Icons, st.Capacity), st.Dir))
	fmt.Fprint(out, r.RenderDatabase(st.Database, st.DatabaseOpen, st.SchemaVersion))
	if len(st.PrefKeys) > 0 {
		fmt.Fprintf(out, "  %s %s\n",
			a.Theme.Normal.Render("pref keys"),
			a.Theme.Subtle.Render(strings.Join(st.PrefKeys, ", ")))
	}
	return nil
}
