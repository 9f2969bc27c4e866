package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AAriam/rdkit/internal/application/standardize"
	"github.com/AAriam/rdkit/internal/domain/molecule"
	"github.com/AAriam/rdkit/internal/infrastructure/monitoring/logging"
	"github.com/AAriam/rdkit/pkg/errors"
)

// maxLineSize bounds one SMILES line read from --input.
const maxLineSize = 1 << 20

func newReionizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reionize [SMILES...]",
		Short: "Move protons so the strongest acids are ionized first",
		Long: "Apply the charge corrections, then move protons from the strongest\n" +
			"protonated acid to the weakest ionized base until the catalog order holds.",
		Example: "  chargefix reionize 'OC(=O)CC[O-]'\n  chargefix reionize -i molecules.smi -o json",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperations(cmd, args, []standardize.Operation{standardize.OpReionize})
		},
	}
}

func newUnchargeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uncharge [SMILES...]",
		Short: "Neutralize formal charges by adding or removing hydrogens",
		Example: "  chargefix uncharge '[NH3+]CC(=O)[O-]'\n" +
			"  chargefix uncharge --force 'C[N+](C)(C)C.CC(=O)[O-]'",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperations(cmd, args, []standardize.Operation{standardize.OpUncharge})
		},
	}
}

func newStandardizeCmd() *cobra.Command {
	var ops []string
	cmd := &cobra.Command{
		Use:   "standardize [SMILES...]",
		Short: "Run reionize then uncharge (or the operations given by --ops)",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed := make([]standardize.Operation, 0, len(ops))
			for _, name := range ops {
				op, err := standardize.ParseOperation(name)
				if err != nil {
					return err
				}
				parsed = append(parsed, op)
			}
			return runOperations(cmd, args, parsed)
		},
	}
	cmd.Flags().StringSliceVar(&ops, "ops", nil, "comma-separated operations in order (reionize, uncharge)")
	return cmd
}

// runOperations standardizes every input molecule, prints the results and
// fails when any molecule failed.
func runOperations(cmd *cobra.Command, args []string, ops []standardize.Operation) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	if cliCtx.App == nil {
		return errors.NotReady("standardizer is not initialized")
	}

	reqs, err := readRequests(cmd, args, cliCtx.InputPath)
	if err != nil {
		return err
	}
	for i := range reqs {
		reqs[i].Operations = ops
	}

	results, err := cliCtx.App.Service.StandardizeBatch(cmd.Context(), reqs)
	if err != nil {
		return err
	}
	if err := PrintResult(cmd, resultSet(results)); err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	cliCtx.Logger.Info("standardization finished",
		logging.Int("molecules", len(results)),
		logging.Int("failed", failed))
	if failed > 0 {
		return errors.Newf(errors.ErrCodeInvalidParam, "%d of %d molecules failed", failed, len(results))
	}
	return nil
}

// readRequests collects molecules from positional arguments and --input.
func readRequests(cmd *cobra.Command, args []string, inputPath string) ([]standardize.Request, error) {
	reqs := make([]standardize.Request, 0, len(args))
	for i, arg := range args {
		reqs = append(reqs, standardize.Request{ID: "arg:" + strconv.Itoa(i+1), Input: arg})
	}

	if inputPath != "" {
		var r io.Reader
		if inputPath == "-" {
			r = cmd.InOrStdin()
		} else {
			f, err := os.Open(inputPath)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeInvalidParam, "open input").WithDetail(inputPath)
			}
			defer f.Close()
			r = f
		}
		fromInput, err := parseInputStream(r)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, fromInput...)
	}

	if len(reqs) == 0 {
		return nil, errors.InvalidParam("no molecules given; pass SMILES arguments or --input")
	}
	return reqs, nil
}

// parseInputStream reads either an SD file (molfile records separated by
// $$$$) or one "SMILES [name]" per line. Blank lines and lines starting
// with # are skipped.
func parseInputStream(r io.Reader) ([]standardize.Request, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidParam, "read input")
	}
	text := string(data)
	if molecule.IsMolBlock(text) {
		return splitSDF(text), nil
	}

	var reqs []standardize.Request
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for sc.Scan() {
		line++
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		reqs = append(reqs, standardize.Request{ID: "line:" + strconv.Itoa(line), Input: s})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidParam, "read input").WithDetail(fmt.Sprintf("line=%d", line+1))
	}
	return reqs, nil
}

func splitSDF(text string) []standardize.Request {
	var (
		reqs    []standardize.Request
		current strings.Builder
	)
	flush := func() {
		if strings.TrimSpace(current.String()) != "" {
			reqs = append(reqs, standardize.Request{
				ID:    "record:" + strconv.Itoa(len(reqs)+1),
				Input: current.String(),
			})
		}
		current.Reset()
	}
	for _, l := range strings.SplitAfter(text, "\n") {
		if strings.TrimRight(l, "\r\n") == "$$$$" {
			flush()
			continue
		}
		current.WriteString(l)
	}
	flush()
	return reqs
}

// resultSet renders batch results for PrintResult.
type resultSet []*standardize.Result

// String prints one "SMILES [name]" line per molecule so the output can be
// fed back to --input. Failures become comment lines.
func (rs resultSet) String() string {
	var sb strings.Builder
	for _, r := range rs {
		if r.Error != "" {
			fmt.Fprintf(&sb, "# %s: %s\n", r.ID, r.Error)
			continue
		}
		sb.WriteString(r.SMILES)
		if r.Name != "" {
			sb.WriteString(" ")
			sb.WriteString(r.Name)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (rs resultSet) TableHeaders() []string {
	return []string{"ID", "NAME", "CHARGE", "EVENTS", "SMILES"}
}

func (rs resultSet) TableRows() [][]string {
	rows := make([][]string, 0, len(rs))
	for _, r := range rs {
		if r.Error != "" {
			rows = append(rows, []string{r.ID, r.Name, "-", "-", "error: " + r.Error})
			continue
		}
		rows = append(rows, []string{
			r.ID,
			r.Name,
			fmt.Sprintf("%+d -> %+d", r.ChargeBefore, r.ChargeAfter),
			strconv.Itoa(len(r.Events)),
			r.SMILES,
		})
	}
	return rows
}
