package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/soltest/internal/artifact"
	"github.com/roach88/soltest/internal/harness"
)

// ListedUnit is one function of a contract and how it is classified.
type ListedUnit struct {
	Name string `json:"name"`
	Kind string `json:"kind"` // "hook" | "test" | "ignored"
	Hook string `json:"hook,omitempty"`
}

// ListResult is the JSON payload of the list command.
type ListResult struct {
	Contract string       `json:"contract"`
	Units    []ListedUnit `json:"units"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <artifacts-dir> <contract>",
		Short: "Show how a contract's functions are classified",
		Long: `List every function of a contract's interface, in interface order,
with the role it gets when the contract is registered: lifecycle hook,
test, or ignored.

Example:
  soltest list build/contracts SortedDoublyLLFixture`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runList(opts *RootOptions, dir, contract string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	a, err := artifact.NewDirResolver(dir).Resolve(contract)
	if err != nil {
		return commandError(formatter, ErrCodeArtifact, "failed to resolve contract", err)
	}

	result := ListResult{Contract: a.Name, Units: []ListedUnit{}}
	for _, e := range a.ABI {
		if !e.IsFunction() {
			continue
		}
		u := harness.Classify(e)
		listed := ListedUnit{Name: e.Name, Kind: u.Kind.String()}
		if u.Kind == harness.Hook {
			listed.Hook = u.Hook.String()
		}
		result.Units = append(result.Units, listed)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	for _, u := range result.Units {
		fmt.Fprintf(formatter.Writer, "%-8s %s\n", u.Kind, u.Name)
	}
	return nil
}
