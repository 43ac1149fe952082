package cli

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/roach88/soltest/internal/artifact"
	"github.com/roach88/soltest/internal/config"
	"github.com/roach88/soltest/internal/harness"
	"github.com/roach88/soltest/internal/linker"
)

// SuiteCheck is the validation result of one manifest suite.
type SuiteCheck struct {
	Contract string   `json:"contract"`
	Mode     string   `json:"mode,omitempty"`
	Hooks    []string `json:"hooks"`
	Tests    []string `json:"tests"`
	Unlinked []string `json:"unlinked,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// OK reports whether the suite can be run.
func (c SuiteCheck) OK() bool {
	return c.Error == "" && len(c.Unlinked) == 0
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool         `json:"valid"`
	Suites []SuiteCheck `json:"suites"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <manifest>",
		Short: "Validate a manifest without touching a chain",
		Long: `Validate a manifest and the artifacts it names without deploying.

Checks that every suite's contract and libraries resolve, lists the hooks
and tests each contract exposes, and reports library placeholders that no
listed library (or the Assert library) would fill.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, manifestPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	m, err := config.Load(manifestPath)
	if err != nil {
		return commandError(formatter, ErrCodeManifest, "failed to load manifest", err)
	}
	formatter.VerboseLog("Artifacts: %s", m.Artifacts)

	resolver := artifact.NewDirResolver(m.Artifacts)
	result := ValidationResult{Valid: true}
	for _, s := range m.Suites {
		check := checkSuite(resolver, s)
		if !check.OK() {
			result.Valid = false
		}
		result.Suites = append(result.Suites, check)
	}

	return outputValidation(formatter, result)
}

// checkSuite resolves a suite statically. Libraries are linked at the zero
// address into a copy of the bytecode, so the cached artifact is untouched.
func checkSuite(resolver artifact.Resolver, s config.Suite) SuiteCheck {
	check := SuiteCheck{
		Contract: s.Contract,
		Mode:     s.Mode,
		Hooks:    []string{},
		Tests:    []string{},
	}

	a, err := resolver.Resolve(s.Contract)
	if err != nil {
		check.Error = err.Error()
		return check
	}
	for _, u := range harness.Discover(a.ABI) {
		if u.Kind == harness.Hook {
			check.Hooks = append(check.Hooks, u.Name)
		} else {
			check.Tests = append(check.Tests, u.Name)
		}
	}

	bytecode := a.Bytecode
	for _, lib := range append([]string{harness.AssertLibrary}, s.Libraries...) {
		libArtifact, err := resolver.Resolve(lib)
		if err != nil {
			check.Error = fmt.Sprintf("library %s: %v", lib, err)
			return check
		}
		placeholder, err := linker.Placeholder(lib)
		if err != nil {
			check.Error = err.Error()
			return check
		}
		bytecode = linker.Link(bytecode, placeholder, common.Address{})
		if libArtifact.SourcePath != "" {
			bytecode = linker.Link(bytecode, linker.HashedPlaceholder(libArtifact.SourcePath, lib), common.Address{})
		}
	}

	for _, p := range artifact.Placeholders(bytecode) {
		if name := artifact.PlaceholderName(p); name != "" {
			check.Unlinked = append(check.Unlinked, name)
		} else {
			check.Unlinked = append(check.Unlinked, p)
		}
	}
	return check
}

func outputValidation(formatter *OutputFormatter, result ValidationResult) error {
	failed := 0
	for _, c := range result.Suites {
		if !c.OK() {
			failed++
		}
	}

	if formatter.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result}
		if failed > 0 {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    ErrCodeArtifact,
				Message: fmt.Sprintf("%d suite(s) invalid", failed),
			}
		}
		if err := encodeIndented(formatter.Writer, response); err != nil {
			return err
		}
	} else {
		for _, c := range result.Suites {
			switch {
			case c.Error != "":
				fmt.Fprintf(formatter.Writer, "✗ %s: %s\n", c.Contract, c.Error)
			case len(c.Unlinked) > 0:
				fmt.Fprintf(formatter.Writer, "✗ %s: unlinked libraries: %s\n", c.Contract, strings.Join(c.Unlinked, ", "))
			default:
				fmt.Fprintf(formatter.Writer, "✓ %s: %d test(s), %d hook(s)\n", c.Contract, len(c.Tests), len(c.Hooks))
			}
		}
	}

	if failed > 0 {
		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed for %d suite(s)", failed))
	}
	return nil
}
