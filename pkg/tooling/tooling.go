// Package tooling exposes image defragmentation and batch workflows to other Go programs
package tooling

import (
	"fmt"
	"os"
	"strings"

	"github.com/deploymenttheory/go-disk-defrag/internal/config"
	"github.com/deploymenttheory/go-disk-defrag/internal/defrag"
	"github.com/deploymenttheory/go-disk-defrag/internal/diskimage"
	"github.com/deploymenttheory/go-disk-defrag/internal/logger"
	"github.com/deploymenttheory/go-disk-defrag/internal/workflow"
)

// InitOptions contains options for initializing the tooling API
type InitOptions struct {
	ConfigFile  string // Path to configuration file
	Debug       bool   // Enable debug logging
	LogFormat   string // Log format: "human" or "json"
	LogFile     string // Path to log file
	SuppressLog bool   // Suppress all logging
}

// DefragOptions tunes a single defragmentation
type DefragOptions struct {
	RebuildInodeFreeList bool
}

// DefragResult summarises a completed defragmentation
type DefragResult struct {
	Output        string
	Files         int
	MappedBlocks  int
	NextFree      int
	FreeBlockHead int32
	FreeInodeHead int32
}

// WorkflowResult contains the results of a workflow execution
type WorkflowResult struct {
	Success      bool                   // Whether the workflow completed successfully
	ErrorMessage string                 // Error message if any
	Variables    map[string]interface{} // Final state of variables after workflow execution
}

var initialized bool

// Initialize initializes the tooling API with the given options
func Initialize(options InitOptions) error {
	if initialized {
		return nil
	}

	configErr := config.Initialize(options.ConfigFile)

	// Update config with provided options
	if options.Debug {
		config.Instance.Debug = true
	}
	if options.LogFormat != "" {
		config.Instance.LogFormat = options.LogFormat
	}
	if options.LogFile != "" {
		config.Instance.LogFile = options.LogFile
	}

	if !options.SuppressLog {
		logConfig := logger.LoggerConfig{
			Debug:     config.Instance.Debug,
			Quiet:     config.Instance.Quiet,
			LogFormat: config.Instance.LogFormat,
			LogFile:   config.Instance.LogFile,
		}
		if err := logger.InitLogger(logConfig); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		logger.LogInfo("Tooling API initialized", map[string]interface{}{
			"config_file": options.ConfigFile,
			"debug":       options.Debug,
			"log_format":  options.LogFormat,
		})
		if configErr != nil {
			logger.LogWarn("Configuration initialization warning", map[string]interface{}{
				"error": configErr.Error(),
			})
		}
	}

	initialized = true
	return nil
}

// DefaultOptions returns the default initialization options
func DefaultOptions() InitOptions {
	return InitOptions{
		LogFormat:   "human",
		SuppressLog: true,
	}
}

func ensureInitialized() error {
	if initialized {
		return nil
	}
	if err := Initialize(DefaultOptions()); err != nil {
		return fmt.Errorf("failed to initialize tooling API: %w", err)
	}
	return nil
}

// Defragment reads the image at input and writes its defragmented form to
// output. Nothing is written when any stage fails.
func Defragment(input, output string, opts DefragOptions) (*DefragResult, error) {
	if err := ensureInitialized(); err != nil {
		return nil, err
	}
	if output == "" {
		output = config.Instance.Defrag.Output
	}

	data, err := diskimage.Load(input)
	if err != nil {
		return nil, err
	}
	res, err := defrag.Run(data, defrag.Options{RebuildInodeFreeList: opts.RebuildInodeFreeList})
	if err != nil {
		return nil, err
	}
	if err := diskimage.Save(output, res.Output.Bytes()); err != nil {
		return nil, err
	}

	return &DefragResult{
		Output:        output,
		Files:         len(res.Records),
		MappedBlocks:  res.BlockMap.Len(),
		NextFree:      res.NextFree,
		FreeBlockHead: res.FreeBlockHead,
		FreeInodeHead: res.FreeInodeHead,
	}, nil
}

// ExecuteWorkflow executes a workflow defined in a file
func ExecuteWorkflow(workflowFile string) (*WorkflowResult, error) {
	if err := ensureInitialized(); err != nil {
		return nil, err
	}

	logger.LogInfo("Executing workflow", map[string]interface{}{
		"file": workflowFile,
	})

	wf, err := workflow.Load(workflowFile)
	if err != nil {
		return &WorkflowResult{
			Success:      false,
			ErrorMessage: fmt.Sprintf("Failed to load workflow: %s", err.Error()),
		}, err
	}

	if errs := workflow.Validate(wf); len(errs) > 0 {
		var errorMessages []string
		for _, err := range errs {
			errorMessages = append(errorMessages, err.Error())
		}

		errorMessage := fmt.Sprintf("Workflow validation failed with %d errors: %s",
			len(errs), strings.Join(errorMessages, "; "))

		return &WorkflowResult{
			Success:      false,
			ErrorMessage: errorMessage,
		}, fmt.Errorf("%s", errorMessage)
	}

	if err := workflow.Execute(wf); err != nil {
		return &WorkflowResult{
			Success:      false,
			ErrorMessage: fmt.Sprintf("Workflow execution failed: %s", err.Error()),
			Variables:    wf.Variables,
		}, err
	}

	return &WorkflowResult{
		Success:   true,
		Variables: wf.Variables,
	}, nil
}

// ExecuteWorkflowFromYAML executes a workflow defined in a YAML string
func ExecuteWorkflowFromYAML(workflowYAML string) (*WorkflowResult, error) {
	tempFile, err := os.CreateTemp("", "workflow-*.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tempFile.Name())

	if _, err := tempFile.WriteString(workflowYAML); err != nil {
		tempFile.Close()
		return nil, fmt.Errorf("failed to write workflow to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temporary file: %w", err)
	}

	return ExecuteWorkflow(tempFile.Name())
}

// SetOutputPath sets the default output path for Defragment and defrag workflow steps
func SetOutputPath(path string) {
	_ = ensureInitialized()
	config.Instance.Defrag.Output = path
}

// GetVersion returns the current version of the tooling API
func GetVersion() string {
	return "0.1.0"
}

// Shutdown performs any necessary cleanup before the application exits
func Shutdown() error {
	if initialized {
		logger.LogInfo("Tooling API shutting down", nil)
		_ = logger.Sync()
	}
	return nil
}
