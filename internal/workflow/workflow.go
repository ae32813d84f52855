// Package workflow runs batches of image operations described in a YAML,
// JSON or TOML file. Step parameters are Go templates over the workflow
// variables, which earlier steps extend with their results.
package workflow

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	commonerrors "github.com/deploymenttheory/go-disk-defrag/internal/common/errors"
	"github.com/deploymenttheory/go-disk-defrag/internal/config"
	"github.com/deploymenttheory/go-disk-defrag/internal/logger"
	"github.com/spf13/viper"
)

// Step represents a single step in a workflow
type Step struct {
	Name        string                 `mapstructure:"name"`
	Type        string                 `mapstructure:"type"`
	Description string                 `mapstructure:"description"`
	Condition   string                 `mapstructure:"condition"`
	Parameters  map[string]interface{} `mapstructure:",remain"`
}

// Workflow represents an ordered batch of steps
type Workflow struct {
	Name        string                 `mapstructure:"name"`
	Description string                 `mapstructure:"description"`
	Version     string                 `mapstructure:"version"`
	Author      string                 `mapstructure:"author"`
	Steps       []Step                 `mapstructure:"steps"`
	Variables   map[string]interface{} `mapstructure:"variables"`
}

// Load reads a workflow from a file
func Load(filePath string) (*Workflow, error) {
	// Create a new viper instance for the workflow
	v := viper.New()

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: workflow %s", commonerrors.ErrFileNotFound, filePath)
	}

	v.SetConfigFile(filePath)

	// Determine the file extension for type
	ext := strings.ToLower(filepath.Ext(filePath))
	if ext != "" {
		v.SetConfigType(ext[1:])
	} else {
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: reading workflow: %v", commonerrors.ErrConfigParseError, err)
	}

	workflow := &Workflow{}
	if err := v.Unmarshal(workflow); err != nil {
		return nil, fmt.Errorf("%w: parsing workflow: %v", commonerrors.ErrConfigParseError, err)
	}

	if workflow.Variables == nil {
		workflow.Variables = make(map[string]interface{})
	}
	addSystemVariables(workflow, filePath)

	return workflow, nil
}

// addSystemVariables adds system and config variables to the workflow's variables
func addSystemVariables(workflow *Workflow, filePath string) {
	workflow.Variables["default_output"] = config.Instance.Defrag.Output
	workflow.Variables["digest"] = config.Instance.Verify.Digest
	workflow.Variables["workflow_dir"] = filepath.Dir(filePath)

	if cwd, err := os.Getwd(); err == nil {
		workflow.Variables["current_dir"] = cwd
	}

	workflow.Variables["timestamp"] = fmt.Sprintf("%d", time.Now().Unix())
}

// processParameters renders every string parameter of a step
func processParameters(step Step, variables map[string]interface{}) (map[string]interface{}, error) {
	processed := make(map[string]interface{}, len(step.Parameters))
	for key, value := range step.Parameters {
		strValue, ok := value.(string)
		if !ok {
			processed[key] = value
			continue
		}
		out, err := processTemplate(strValue, variables)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", key, err)
		}
		processed[key] = out
	}
	return processed, nil
}

// processTemplate processes a single template string
func processTemplate(templateString string, variables map[string]interface{}) (string, error) {
	if !strings.Contains(templateString, "{{") {
		return templateString, nil
	}

	tmpl, err := template.New("inline").Option("missingkey=error").Parse(templateString)
	if err != nil {
		return "", err
	}

	var buffer bytes.Buffer
	if err := tmpl.Execute(&buffer, variables); err != nil {
		return "", err
	}
	return buffer.String(), nil
}

// evaluateCondition renders a condition and treats true, yes and 1 as true
func evaluateCondition(condition string, variables map[string]interface{}) (bool, error) {
	result, err := processTemplate(condition, variables)
	if err != nil {
		return false, err
	}

	result = strings.TrimSpace(strings.ToLower(result))
	return result == "true" || result == "yes" || result == "1", nil
}

// Validate checks the workflow structure and each step's required parameters
func Validate(workflow *Workflow) []error {
	var errs []error

	if workflow.Name == "" {
		errs = append(errs, fmt.Errorf("workflow name is required"))
	}
	if len(workflow.Steps) == 0 {
		errs = append(errs, fmt.Errorf("workflow must contain at least one step"))
	}

	for i, step := range workflow.Steps {
		if step.Name == "" {
			errs = append(errs, fmt.Errorf("step %d: name is required", i+1))
		}
		handler, ok := handlers[step.Type]
		if !ok {
			errs = append(errs, fmt.Errorf("step %d (%s): invalid type '%s'", i+1, step.Name, step.Type))
			continue
		}
		for _, key := range handler.required {
			if _, ok := step.Parameters[key]; !ok {
				errs = append(errs, fmt.Errorf("step %d (%s): missing required parameter '%s'", i+1, step.Name, key))
			}
		}
	}

	return errs
}

// Execute runs the steps in order, merging each step's results into the
// workflow variables. The first failing step stops the workflow.
func Execute(workflow *Workflow) error {
	logger.LogInfo("Starting workflow execution", map[string]interface{}{
		"workflow": workflow.Name,
		"steps":    len(workflow.Steps),
	})

	for i, step := range workflow.Steps {
		logger.LogInfo(fmt.Sprintf("Executing step %d/%d: %s", i+1, len(workflow.Steps), step.Name),
			map[string]interface{}{
				"type":        step.Type,
				"description": step.Description,
			})

		if step.Condition != "" {
			shouldRun, err := evaluateCondition(step.Condition, workflow.Variables)
			if err != nil {
				return fmt.Errorf("error evaluating condition for step '%s': %w", step.Name, err)
			}
			if !shouldRun {
				logger.LogInfo(fmt.Sprintf("Skipping step %d/%d: %s (condition not met)", i+1, len(workflow.Steps), step.Name), nil)
				continue
			}
		}

		handler, found := handlers[step.Type]
		if !found {
			return fmt.Errorf("%w: no handler for step type '%s'", commonerrors.ErrInvalidArgument, step.Type)
		}

		params, err := processParameters(step, workflow.Variables)
		if err != nil {
			return fmt.Errorf("error processing step '%s': %w", step.Name, err)
		}

		result, err := handler.run(params)
		if err != nil {
			return fmt.Errorf("error executing step '%s': %w", step.Name, err)
		}
		for k, v := range result {
			workflow.Variables[k] = v
		}

		logger.LogInfo(fmt.Sprintf("Completed step %d/%d: %s", i+1, len(workflow.Steps), step.Name), nil)
	}

	logger.LogInfo("Workflow execution completed successfully", map[string]interface{}{
		"workflow": workflow.Name,
	})
	return nil
}
