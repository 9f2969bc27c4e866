package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AAriam/rdkit/internal/application/standardize"
	"github.com/AAriam/rdkit/internal/domain/charge"
	"github.com/AAriam/rdkit/internal/domain/molecule"
	"github.com/AAriam/rdkit/internal/testutil"
	"github.com/AAriam/rdkit/pkg/errors"
)

func decodeResults(t *testing.T, out string) []standardize.Result {
	t.Helper()
	var results []standardize.Result
	require.NoError(t, json.Unmarshal([]byte(out), &results), out)
	return results
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestUnchargeCmd_JSON(t *testing.T) {
	out, err := execute(t, "", "-o", "json", "uncharge", "C[NH3+]")
	require.NoError(t, err)

	results := decodeResults(t, out)
	require.Len(t, results, 1)
	r := results[0]
	assert.Equal(t, "arg:1", r.ID)
	assert.Equal(t, []standardize.Operation{standardize.OpUncharge}, r.Operations)
	assert.Equal(t, 1, r.ChargeBefore)
	assert.Equal(t, 0, r.ChargeAfter)
	require.Len(t, r.Events, 1)
	assert.Equal(t, charge.EventPositiveNeutralized, r.Events[0].Kind)
}

func TestUnchargeCmd_Force(t *testing.T) {
	out, err := execute(t, "", "-o", "json", "uncharge", testutil.TetramethylAcetate)
	require.NoError(t, err)
	assert.Equal(t, 0, decodeResults(t, out)[0].ChargeAfter)

	out, err = execute(t, "", "-o", "json", "--force", "uncharge", testutil.TetramethylAcetate)
	require.NoError(t, err)
	assert.Equal(t, 1, decodeResults(t, out)[0].ChargeAfter)
}

func TestReionizeCmd(t *testing.T) {
	out, err := execute(t, "", "-o", "json", "reionize", testutil.AcidAlkoxide)
	require.NoError(t, err)

	r := decodeResults(t, out)[0]
	assert.Equal(t, -1, r.ChargeAfter)
	require.NotEmpty(t, r.Events)
	assert.Equal(t, charge.EventProtonMoved, r.Events[0].Kind)
}

func TestStandardizeCmd_Ops(t *testing.T) {
	out, err := execute(t, "", "-o", "json", "standardize", testutil.AcidAlkoxide)
	require.NoError(t, err)
	r := decodeResults(t, out)[0]
	assert.Equal(t, standardize.DefaultOperations, r.Operations)
	assert.Equal(t, 0, r.ChargeAfter)

	out, err = execute(t, "", "-o", "json", "standardize", "--ops", "uncharge,reionize", testutil.AcidAlkoxide)
	require.NoError(t, err)
	assert.Equal(t, []standardize.Operation{standardize.OpUncharge, standardize.OpReionize}, decodeResults(t, out)[0].Operations)

	_, err = execute(t, "", "standardize", "--ops", "tautomerize", "C")
	assert.True(t, errors.IsCode(err, errors.ErrCodeOperationUnsupported))
}

func TestStandardizeCmd_InputFileText(t *testing.T) {
	path := writeFile(t, "in.smi", "# header\n\n"+testutil.AcidAlkoxide+" hydroxypropanoate\nC[NH3+] methylammonium\n")

	out, err := execute(t, "", "-i", path, "standardize")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], " hydroxypropanoate"), lines[0])
	assert.True(t, strings.HasSuffix(lines[1], " methylammonium"), lines[1])
	for _, line := range lines {
		m, err := molecule.ParseSMILES(strings.Fields(line)[0])
		require.NoError(t, err, line)
		assert.Equal(t, 0, m.TotalCharge(), line)
	}
}

func TestStandardizeCmd_Stdin(t *testing.T) {
	out, err := execute(t, "C[NH3+]\n"+testutil.GlycineZwitterion+" glycine\n", "-o", "json", "-i", "-", "uncharge")
	require.NoError(t, err)

	results := decodeResults(t, out)
	require.Len(t, results, 2)
	assert.Equal(t, "line:1", results[0].ID)
	assert.Equal(t, "line:2", results[1].ID)
	assert.Equal(t, "glycine", results[1].Name)
}

func TestStandardizeCmd_SDF(t *testing.T) {
	path := writeFile(t, "in.sdf", testutil.AcetateMolBlock+"$$$$\n"+testutil.AcetateMolBlock+"$$$$\n")

	out, err := execute(t, "", "-o", "json", "-i", path, "uncharge")
	require.NoError(t, err)

	results := decodeResults(t, out)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, "acetate", r.Name)
		assert.Equal(t, -1, r.ChargeBefore)
		assert.Equal(t, 0, r.ChargeAfter)
	}
	assert.Equal(t, "record:2", results[1].ID)
}

func TestStandardizeCmd_PartialFailure(t *testing.T) {
	out, err := execute(t, "", "uncharge", "C[NH3+]", "C1CC")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidParam))
	assert.Contains(t, err.Error(), "1 of 2 molecules failed")

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "# arg:2: "), lines[1])
	assert.Contains(t, lines[1], string(errors.ErrCodeMoleculeInvalidSMILES))
}

func TestStandardizeCmd_NoInput(t *testing.T) {
	_, err := execute(t, "", "uncharge")
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidParam))

	_, err = execute(t, "", "-i", filepath.Join(t.TempDir(), "missing.smi"), "uncharge")
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidParam))
}

func TestStandardizeCmd_Table(t *testing.T) {
	out, err := execute(t, "", "-o", "table", "uncharge", "C[NH3+]", "C1CC")
	require.Error(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[2], "+1 -> +0")
	assert.Contains(t, lines[3], "error: ")
}

func TestParseInputStream(t *testing.T) {
	reqs, err := parseInputStream(strings.NewReader("  CCO ethanol \r\n#skip\n\nC\n"))
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, standardize.Request{ID: "line:1", Input: "CCO ethanol"}, reqs[0])
	assert.Equal(t, "line:4", reqs[1].ID)
}

func TestCatalogList(t *testing.T) {
	out, err := execute(t, "", "catalog", "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 32)
	assert.Equal(t, "// name\tacid\tbase", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "-OSO3H\t"), lines[1])

	// the text listing loads back as a catalog
	path := writeFile(t, "pairs.txt", out)
	cat, err := charge.LoadAcidBaseCatalogFile(path)
	require.NoError(t, err)
	assert.Equal(t, 31, cat.Len())

	out, err = execute(t, "", "-o", "table", "--catalog", path, "catalog", "list")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "RANK"))
	assert.Contains(t, out, "-CO2H")
}

func TestCatalogCheck(t *testing.T) {
	good := writeFile(t, "good.txt", "carboxylic\tC(=O)[OH]\tC(=O)[O-]\n")
	out, err := execute(t, "", "catalog", "check", good)
	require.NoError(t, err)
	assert.Equal(t, "OK: "+good+": 1 acid/base pairs\n", out)

	bad := writeFile(t, "bad.txt", "broken\tC(=O)[OH]\n")
	_, err = execute(t, "", "catalog", "check", bad)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCatalogInvalid))

	_, err = execute(t, "", "catalog", "check")
	assert.Error(t, err)
}
