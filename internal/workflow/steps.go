package workflow

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
	"github.com/spf13/cast"
)

// stepHandler executes one step type. Results are merged into the workflow variables.
type stepHandler struct {
	required []string
	run      func(params map[string]interface{}) (map[string]interface{}, error)
}

var handlers = map[string]stepHandler{
	"defrag":  {required: []string{"input"}, run: handleDefragStep},
	"inspect": {required: []string{"input"}, run: handleInspectStep},
	"verify":  {required: []string{"produced", "expected"}, run: handleVerifyStep},
	"convert": {required: []string{"source", "destination"}, run: handleConvertStep},
}

func stringParam(params map[string]interface{}, key, fallback string) (string, error) {
	value, ok := params[key]
	if !ok || value == nil {
		return fallback, nil
	}
	s, err := cast.ToStringE(value)
	if err != nil {
		return "", fmt.Errorf("%w: parameter '%s': %v", commonerrors.ErrInvalidArgument, key, err)
	}
	return s, nil
}

func boolParam(params map[string]interface{}, key string, fallback bool) (bool, error) {
	value, ok := params[key]
	if !ok || value == nil {
		return fallback, nil
	}
	b, err := cast.ToBoolE(value)
	if err != nil {
		return false, fmt.Errorf("%w: parameter '%s': %v", commonerrors.ErrInvalidArgument, key, err)
	}
	return b, nil
}

func requireParam(params map[string]interface{}, key string) (string, error) {
	s, err := stringParam(params, key, "")
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", fmt.Errorf("%w: parameter '%s' is empty", commonerrors.ErrInvalidArgument, key)
	}
	return s, nil
}

// writeStepReport writes r when the step names a report path
func writeStepReport(params map[string]interface{}, r *report.Report) error {
	path, err := stringParam(params, "report", "")
	if err != nil || path == "" {
		return err
	}
	formatName, err := stringParam(params, "report_format", "")
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(formatName, path)
	if err != nil {
		return err
	}
	return r.Write(path, format)
}

// handleDefragStep defragments input into output (default: the configured output path)
func handleDefragStep(params map[string]interface{}) (map[string]interface{}, error) {
	input, err := requireParam(params, "input")
	if err != nil {
		return nil, err
	}
	output, err := stringParam(params, "output", config.Instance.Defrag.Output)
	if err != nil {
		return nil, err
	}
	if output == "" {
		output = config.DefaultOutput
	}
	rebuild, err := boolParam(params, "rebuild_inode_freelist", config.Instance.Defrag.RebuildInodeFreeList)
	if err != nil {
		return nil, err
	}

	data, err := diskimage.Load(input)
	if err != nil {
		return nil, err
	}
	res, err := defrag.Run(data, defrag.Options{RebuildInodeFreeList: rebuild})
	if err != nil {
		return nil, err
	}
	if err := diskimage.Save(output, res.Output.Bytes()); err != nil {
		return nil, err
	}

	r := report.BuildFromResult(res)
	r.Input, r.Output = input, output
	if err := writeStepReport(params, r); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"last_output": output,
		"next_free":   res.NextFree,
		"files":       len(res.Records),
	}, nil
}

// handleInspectStep plans input without writing an image
func handleInspectStep(params map[string]interface{}) (map[string]interface{}, error) {
	input, err := requireParam(params, "input")
	if err != nil {
		return nil, err
	}
	data, err := diskimage.Load(input)
	if err != nil {
		return nil, err
	}
	plan, err := defrag.Inspect(data)
	if err != nil {
		return nil, err
	}

	r := report.Build(plan)
	r.Input = input
	if err := writeStepReport(params, r); err != nil {
		return nil, err
	}

	fragmented := 0
	for _, f := range r.Files {
		if f.Fragments > 1 {
			fragmented++
		}
	}
	return map[string]interface{}{
		"next_free":  plan.NextFree,
		"files":      len(plan.Records),
		"fragmented": fragmented,
	}, nil
}

// handleVerifyStep compares two image files. A difference fails the step
// only when fail_on_mismatch is set.
func handleVerifyStep(params map[string]interface{}) (map[string]interface{}, error) {
	produced, err := requireParam(params, "produced")
	if err != nil {
		return nil, err
	}
	expected, err := requireParam(params, "expected")
	if err != nil {
		return nil, err
	}
	digest, err := stringParam(params, "digest", config.Instance.Verify.Digest)
	if err != nil {
		return nil, err
	}
	if digest == "" {
		digest = string(cryptoutil.BLAKE2b256)
	}
	failOnMismatch, err := boolParam(params, "fail_on_mismatch", config.Instance.Verify.FailOnMismatch)
	if err != nil {
		return nil, err
	}

	data, err := diskimage.Load(produced)
	if err != nil {
		return nil, err
	}
	outcome, err := verify.Compare(data, expected, cryptoutil.HashAlgorithm(digest))
	if err != nil {
		return nil, err
	}
	logger.LogInfo("Verification finished", map[string]interface{}{
		"produced":  produced,
		"expected":  expected,
		"identical": outcome.Identical,
	})
	if !outcome.Identical && failOnMismatch {
		return nil, commonerrors.NewDefragError(commonerrors.ErrCorruptImage, "verify", expected, outcome.String())
	}

	return map[string]interface{}{
		"identical":       outcome.Identical,
		"produced_digest": outcome.ProducedDigest,
	}, nil
}

// handleConvertStep re-encodes an image, for example from .xz to raw
func handleConvertStep(params map[string]interface{}) (map[string]interface{}, error) {
	src, err := requireParam(params, "source")
	if err != nil {
		return nil, err
	}
	dst, err := requireParam(params, "destination")
	if err != nil {
		return nil, err
	}

	data, err := diskimage.Load(src)
	if err != nil {
		return nil, err
	}
	// Only well-formed images are passed along
	if _, err := diskimage.New(data); err != nil {
		return nil, err
	}
	if err := diskimage.Save(dst, data); err != nil {
		return nil, err
	}
	return map[string]interface{}{"last_output": dst}, nil
}
