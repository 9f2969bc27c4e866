package cli

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AAriam/rdkit/internal/domain/charge"
	"github.com/AAriam/rdkit/pkg/errors"
)

func newCatalogCmd() *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect acid/base catalogs",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the acid/base pairs in strength order (strongest acid first)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if cliCtx.App == nil {
				return errors.NotReady("standardizer is not initialized")
			}
			return PrintResult(cmd, catalogListing(cliCtx.App.Service.Catalog()))
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Compile a catalog file and report the first problem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := charge.LoadAcidBaseCatalogFile(args[0])
			if err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("%s: %d acid/base pairs", args[0], cat.Len()))
			return nil
		},
	}

	catalogCmd.AddCommand(listCmd, checkCmd)
	return catalogCmd
}

// catalogListing renders catalog entries. Text output uses the TSV catalog
// format so it can be edited and loaded back with --catalog.
type catalogListing []charge.AcidBaseEntry

func (c catalogListing) String() string {
	var sb strings.Builder
	sb.WriteString("// name\tacid\tbase\n")
	for _, e := range c {
		sb.WriteString(e.Name + "\t" + e.Acid + "\t" + e.Base + "\n")
	}
	return sb.String()
}

func (c catalogListing) TableHeaders() []string {
	return []string{"RANK", "NAME", "ACID", "BASE"}
}

func (c catalogListing) TableRows() [][]string {
	rows := make([][]string, len(c))
	for i, e := range c {
		rows[i] = []string{strconv.Itoa(i), e.Name, e.Acid, e.Base}
	}
	return rows
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "chargefix %s\n  commit:  %s\n  built:   %s\n  go:      %s\n",
				Version, GitCommit, BuildDate, runtime.Version())
			return nil
		},
	}
}
