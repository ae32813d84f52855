package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/deploymenttheory/go-disk-defrag/internal/defrag"
	"github.com/deploymenttheory/go-disk-defrag/internal/diskimage"
)

// fragmentedImage writes an image whose only file (inode 1, three blocks)
// is stored backwards at the end of the data region
func fragmentedImage(t *testing.T, dir string) (string, []byte) {
	t.Helper()
	img, err := diskimage.Create(diskimage.Geometry{BlockSize: 512, InodeBlocks: 1, DataBlocks: 8, SwapBlocks: 1})
	if err != nil {
		t.Fatal(err)
	}
	in, err := img.ReadInode(1)
	if err != nil {
		t.Fatal(err)
	}
	in.NLink, in.Size = 1, 1400
	in.Direct[0], in.Direct[1], in.Direct[2] = 7, 6, 5
	if err := img.WriteInode(1, in); err != nil {
		t.Fatal(err)
	}
	for i, b := range []int{7, 6, 5} {
		block, _ := img.Block(b)
		for j := range block {
			block[j] = byte(i + 1)
		}
	}

	path := filepath.Join(dir, "disk.img")
	if err := os.WriteFile(path, img.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path, img.Bytes()
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(newRootCmd(), append([]string{"--quiet"}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestDefragWritesOutputAndVerifies(t *testing.T) {
	dir := t.TempDir()
	input, raw := fragmentedImage(t, dir)

	res, err := defrag.Run(raw, defrag.Options{})
	if err != nil {
		t.Fatal(err)
	}
	expected := filepath.Join(dir, "expected.gz")
	if err := diskimage.Save(expected, res.Output.Bytes()); err != nil {
		t.Fatal(err)
	}

	output := filepath.Join(dir, "disk_defrag")
	code, stdout, stderr := runCLI(t, input, "--output", output, "--verify", expected)
	if code != ExitOK {
		t.Fatalf("exit = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "Verify: Images are identical") {
		t.Errorf("stdout = %q", stdout)
	}

	written, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(written, res.Output.Bytes()) {
		t.Error("written image differs from the defragmented image")
	}
}

func TestDefragVerifyMismatch(t *testing.T) {
	dir := t.TempDir()
	input, _ := fragmentedImage(t, dir)
	output := filepath.Join(dir, "out.img")

	// the fragmented input is not what a defragmented run produces
	code, stdout, _ := runCLI(t, input, "-o", output, "--verify", input)
	if code != ExitOK || !strings.Contains(stdout, "Verify: Images differ") {
		t.Errorf("exit = %d, stdout = %q", code, stdout)
	}

	code, _, stderr := runCLI(t, input, "-o", output, "--verify", input, "--fail-on-mismatch", "--digest", "sha256")
	if code != ExitFailure {
		t.Errorf("fail-on-mismatch exit = %d, want %d (stderr %s)", code, ExitFailure, stderr)
	}
}

func TestDefragUsageErrors(t *testing.T) {
	tests := [][]string{
		{},
		{"a.img", "b.img"},
		{"--no-such-flag", "a.img"},
		{"--log-format", "xml", "a.img"},
	}
	for _, args := range tests {
		code, _, stderr := runCLI(t, args...)
		if code != ExitUsage {
			t.Errorf("args %v: exit = %d, want %d (stderr %s)", args, code, ExitUsage, stderr)
		}
	}
}

func TestDefragFailuresLeaveNoOutput(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "disk_defrag")

	code, _, _ := runCLI(t, filepath.Join(dir, "missing.img"), "-o", output)
	if code != ExitFailure {
		t.Errorf("missing input: exit = %d, want %d", code, ExitFailure)
	}

	truncated := filepath.Join(dir, "short.img")
	if err := os.WriteFile(truncated, make([]byte, 600), 0o644); err != nil {
		t.Fatal(err)
	}
	code, _, _ = runCLI(t, truncated, "-o", output)
	if code != ExitFailure {
		t.Errorf("truncated input: exit = %d, want %d", code, ExitFailure)
	}

	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Errorf("output exists after failed runs: %v", err)
	}
}

func TestDefragWritesReport(t *testing.T) {
	dir := t.TempDir()
	input, _ := fragmentedImage(t, dir)
	reportPath := filepath.Join(dir, "report.yaml")

	code, _, stderr := runCLI(t, input, "-o", filepath.Join(dir, "out.img"), "--report", reportPath)
	if code != ExitOK {
		t.Fatalf("exit = %d, stderr: %s", code, stderr)
	}
	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "applied: true") || !strings.Contains(string(data), "next_free: 3") {
		t.Errorf("report:\n%s", data)
	}
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	input, _ := fragmentedImage(t, dir)

	code, stdout, stderr := runCLI(t, "inspect", input)
	if code != ExitOK {
		t.Fatalf("exit = %d, stderr: %s", code, stderr)
	}
	for _, want := range []string{"blocksize    = 512", "Used inodes: 1", "inode=1 size=1400 start=0 ptr_blocks=0 data_blocks=3 fragments=3"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, stdout)
		}
	}
}

func TestVersion(t *testing.T) {
	code, stdout, _ := runCLI(t, "version")
	if code != ExitOK || !strings.Contains(stdout, "defrag v"+Version) {
		t.Errorf("exit = %d, stdout = %q", code, stdout)
	}
}

func TestWorkflowCommand(t *testing.T) {
	dir := t.TempDir()
	input, _ := fragmentedImage(t, dir)
	output := filepath.Join(dir, "batch.img")
	wfPath := filepath.Join(dir, "batch.yaml")
	body := "name: batch\nsteps:\n  - name: compact\n    type: defrag\n    input: " + input + "\n    output: " + output + "\n"
	if err := os.WriteFile(wfPath, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	code, _, stderr := runCLI(t, "workflow", wfPath)
	if code != ExitOK {
		t.Fatalf("exit = %d, stderr: %s", code, stderr)
	}
	if _, err := os.Stat(output); err != nil {
		t.Errorf("workflow output missing: %v", err)
	}

	if code, _, _ := runCLI(t, "workflow"); code != ExitUsage {
		t.Errorf("missing file argument: exit = %d, want %d", code, ExitUsage)
	}
}
