package openai

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// Prompt is one prompt with its model parameters
type Prompt struct {
	Temperature  float32 `yaml:"temperature"`
	TopP         float32 `yaml:"top_p"`
	MaxTokens    int     `yaml:"max_tokens"`
	System       string  `yaml:"system"`
	UserTemplate string  `yaml:"user_template"`
}

// PromptConfig holds the prompts used by the extractor and the narrator
type PromptConfig struct {
	ReceiptExtraction Prompt `yaml:"receipt_extraction"`
	TaxSummary        Prompt `yaml:"tax_summary"`
}

// DefaultPrompts returns the built-in prompt configuration
func DefaultPrompts() (*PromptConfig, error) {
	return parsePrompts(defaultPrompts)
}

// LoadPrompts loads prompt configuration from a YAML file. Sections missing
// from the file keep their built-in values; an empty path means built-ins only.
func LoadPrompts(promptsPath string) (*PromptConfig, error) {
	prompts, err := DefaultPrompts()
	if err != nil {
		return nil, err
	}
	if promptsPath == "" {
		return prompts, nil
	}

	data, err := os.ReadFile(promptsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}
	if err := yaml.Unmarshal(data, prompts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prompts: %w", err)
	}
	return prompts, prompts.validate()
}

func parsePrompts(data []byte) (*PromptConfig, error) {
	var prompts PromptConfig
	if err := yaml.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prompts: %w", err)
	}
	return &prompts, prompts.validate()
}

func (p *PromptConfig) validate() error {
	if strings.TrimSpace(p.ReceiptExtraction.UserTemplate) == "" {
		return fmt.Errorf("receipt_extraction.user_template is empty")
	}
	if strings.TrimSpace(p.TaxSummary.UserTemplate) == "" {
		return fmt.Errorf("tax_summary.user_template is empty")
	}
	return nil
}

var templateFuncs = template.FuncMap{
	"join": strings.Join,
}

// renderTemplate renders a template with provided data
func renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("prompt").Funcs(templateFuncs).Option("missingkey=error").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}
