package cmd

import (
	"fmt"

	commonerrors "github.com/deploymenttheory/go-disk-defrag/internal/common/errors"
	"github.com/deploymenttheory/go-disk-defrag/internal/common/cryptoutil"
	"github.com/deploymenttheory/go-disk-defrag/internal/config"
	"github.com/deploymenttheory/go-disk-defrag/internal/defrag"
	"github.com/deploymenttheory/go-disk-defrag/internal/diskimage"
	"github.com/deploymenttheory/go-disk-defrag/internal/logger"
	"github.com/deploymenttheory/go-disk-defrag/internal/report"
	"github.com/deploymenttheory/go-disk-defrag/internal/verify"
	"github.com/spf13/cobra"
)

// runDefrag loads the input image, defragments it and writes the output.
// Nothing is written unless every stage succeeded.
func runDefrag(cmd *cobra.Command, args []string) error {
	cfg := config.Instance
	inputPath, outputPath := args[0], cfg.Defrag.Output

	input, err := diskimage.Load(inputPath)
	if err != nil {
		return err
	}
	logger.LogInfo("Loaded image", map[string]interface{}{
		"path":  inputPath,
		"bytes": len(input),
	})

	res, err := defrag.Run(input, defrag.Options{
		RebuildInodeFreeList: cfg.Defrag.RebuildInodeFreeList,
	})
	if err != nil {
		return err
	}

	if err := diskimage.Save(outputPath, res.Output.Bytes()); err != nil {
		return err
	}
	logger.LogInfo("Wrote defragmented image", map[string]interface{}{
		"path": outputPath,
	})

	if cfg.Report.Path != "" {
		r := report.BuildFromResult(res)
		r.Input, r.Output = inputPath, outputPath
		if err := writeReport(r, cfg.Report.Path, cfg.Report.Format); err != nil {
			return err
		}
	}

	if cfg.Verify.Expected != "" {
		return verifyOutput(cmd, res.Output.Bytes(), cfg)
	}
	return nil
}

func writeReport(r *report.Report, path, formatName string) error {
	format, err := report.ParseFormat(formatName, path)
	if err != nil {
		return err
	}
	if err := r.Write(path, format); err != nil {
		return err
	}
	logger.LogInfo("Wrote report", map[string]interface{}{
		"path":   path,
		"format": format,
	})
	return nil
}

// verifyOutput reports whether the produced image matches the expected one.
// A difference or a failed comparison only fails the command when
// fail_on_mismatch is set.
func verifyOutput(cmd *cobra.Command, produced []byte, cfg config.AppConfig) error {
	out := cmd.OutOrStdout()

	outcome, err := verify.Compare(produced, cfg.Verify.Expected, cryptoutil.HashAlgorithm(cfg.Verify.Digest))
	if err != nil {
		fmt.Fprintln(out, "Verify: Comparison failed")
		logger.LogError("Verification could not run", err, map[string]interface{}{
			"expected": cfg.Verify.Expected,
		})
		if cfg.Verify.FailOnMismatch {
			return err
		}
		return nil
	}

	if outcome.Identical {
		fmt.Fprintln(out, "Verify: Images are identical")
	} else {
		fmt.Fprintln(out, "Verify: Images differ")
	}
	logger.LogInfo("Verification finished", map[string]interface{}{
		"identical":       outcome.Identical,
		"first_diff":      outcome.FirstDiff,
		"digest":          outcome.Algorithm,
		"produced_digest": outcome.ProducedDigest,
		"expected_digest": outcome.ExpectedDigest,
	})

	if !outcome.Identical && cfg.Verify.FailOnMismatch {
		return commonerrors.NewDefragError(commonerrors.ErrCorruptImage, "verify", cfg.Verify.Expected, outcome.String())
	}
	return nil
}
