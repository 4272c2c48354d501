package profile

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/draftflow/draftflow/internal/errors"
	"github.com/draftflow/draftflow/internal/workflow"
)

// Definition is the YAML shape of a template-driven profile.
//
//	name: article
//	description: Long-form article drafting
//	prompts:
//	  plan: |
//	    Draft a plan for: {{ .Objective }}
//	  generate: |
//	    Follow this plan:
//	    {{ .Plan }}
type Definition struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Prompts     map[string]string `yaml:"prompts"`
}

// TemplateProfile renders phase prompts from text templates and parses
// responses with the shared tag markup. It covers every content domain
// that does not need custom Go logic.
type TemplateProfile struct {
	def       Definition
	templates map[workflow.Phase]*template.Template
}

// NewTemplateProfile compiles a definition. Every active pipeline phase
// must have a prompt template.
func NewTemplateProfile(def Definition) (*TemplateProfile, error) {
	if def.Name == "" {
		return nil, errors.NewValidationError("profile definition requires a name").
			WithField("name")
	}

	p := &TemplateProfile{
		def:       def,
		templates: make(map[workflow.Phase]*template.Template),
	}

	for _, phase := range []workflow.Phase{workflow.PhasePlan, workflow.PhaseGenerate, workflow.PhaseReview, workflow.PhaseRevise} {
		text, ok := def.Prompts[string(phase)]
		if !ok || strings.TrimSpace(text) == "" {
			return nil, errors.NewValidationError("profile definition missing prompt template").
				WithField("prompts." + string(phase)).WithValue(def.Name)
		}

		tmpl, err := template.New(string(phase)).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, errors.NewValidationError("invalid prompt template").
				WithField("prompts." + string(phase)).WithCause(err)
		}
		p.templates[phase] = tmpl
	}

	return p, nil
}

// LoadDefinition reads a YAML profile definition from a file.
func LoadDefinition(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("failed to read profile definition: %w", err)
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, errors.NewValidationError("malformed profile definition").
			WithValue(path).WithCause(err)
	}
	return def, nil
}

// Name returns the profile's registry name.
func (p *TemplateProfile) Name() string {
	return p.def.Name
}

// Description returns the human-readable profile description.
func (p *TemplateProfile) Description() string {
	return p.def.Description
}

// GeneratePrompt renders the phase's prompt template against the context.
func (p *TemplateProfile) GeneratePrompt(phase workflow.Phase, pctx Context) (string, error) {
	tmpl, ok := p.templates[phase]
	if !ok {
		return "", errors.NewProviderError("no prompt template for phase", nil).
			WithProvider(p.def.Name).WithOperation("generate_prompt:" + string(phase))
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, pctx); err != nil {
		return "", errors.NewProviderError("failed to render prompt template", err).
			WithProvider(p.def.Name).WithOperation("generate_prompt:" + string(phase))
	}

	prompt := buf.String()
	if pctx.Feedback != "" {
		prompt += "\n\nFeedback on the previous attempt, address it:\n" + pctx.Feedback + "\n"
	}
	return prompt, nil
}

// ProcessResponse parses a response into a structured result. Empty
// responses fail the phase; review responses must carry a verdict tag.
func (p *TemplateProfile) ProcessResponse(phase workflow.Phase, content string, iteration int) (Result, error) {
	if strings.TrimSpace(content) == "" {
		return Result{}, errors.NewProviderError("empty response", nil).
			WithProvider(p.def.Name).WithOperation("process_response:" + string(phase))
	}

	res := Result{
		Status:    workflow.StatusSuccess,
		WritePlan: extractWritePlan(content),
		Message:   extractSummary(content),
	}

	if phase == workflow.PhaseReview {
		verdict, ok := extractVerdict(content)
		if !ok {
			return Result{
				Status:  workflow.StatusFailed,
				Message: "review response carries no verdict",
			}, nil
		}
		res.Verdict = verdict
	}

	return res, nil
}

// DefaultDefinitions returns the built-in profile definitions.
func DefaultDefinitions() []Definition {
	return []Definition{articleDefinition, codeDefinition}
}

// NewDefaultRegistry builds a registry holding the built-in profiles.
func NewDefaultRegistry() (*Registry, error) {
	reg := NewRegistry()
	for _, def := range DefaultDefinitions() {
		p, err := NewTemplateProfile(def)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(p); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

var articleDefinition = Definition{
	Name:        "article",
	Description: "Long-form article drafting with plan, draft and editorial review",
	Prompts: map[string]string{
		"plan": `You are planning a written piece.

Objective: {{ .Objective }}

Produce an outline: audience, thesis, section list with one sentence per
section. Wrap a one-line summary in <summary></summary> tags.`,
		"generate": `Write the full draft following this approved plan.

Objective: {{ .Objective }}

Plan:
{{ .Plan }}

Emit the draft as a file block:
<file path="draft.md">
...
</file>`,
		"review": `Review the draft against the plan. Be specific about gaps.

Plan:
{{ .Plan }}

Draft:
{{ .Draft }}

End with <verdict>pass</verdict> or <verdict>fail</verdict> and list the
findings above the verdict.`,
		"revise": `Revise the draft to address every review finding.

Findings:
{{ .Findings }}

Current draft:
{{ .Draft }}

Emit the revised draft as a file block:
<file path="draft.md">
...
</file>`,
	},
}

var codeDefinition = Definition{
	Name:        "code",
	Description: "Source file generation with plan, implementation and review",
	Prompts: map[string]string{
		"plan": `You are planning an implementation.

Objective: {{ .Objective }}

List the files to create and the responsibility of each. Wrap a one-line
summary in <summary></summary> tags.`,
		"generate": `Implement the plan. Emit one file block per file:
<file path="relative/path">
...
</file>

Objective: {{ .Objective }}

Plan:
{{ .Plan }}`,
		"review": `Review the implementation against the plan. Check correctness
and completeness.

Plan:
{{ .Plan }}

Implementation:
{{ .Draft }}

End with <verdict>pass</verdict> or <verdict>fail</verdict>.`,
		"revise": `Rework the implementation to address the review findings.
Emit complete file blocks for every changed file.

Findings:
{{ .Findings }}

Current implementation:
{{ .Draft }}`,
	},
}
