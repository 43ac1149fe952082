package cli

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/roach88/soltest/internal/artifact"
	"github.com/roach88/soltest/internal/linker"
)

// LinkOptions holds flags for the link command.
type LinkOptions struct {
	*RootOptions
	Libraries []string // Name=0xaddress, in link order
}

// LinkResult is the JSON payload of the link command.
type LinkResult struct {
	Contract string   `json:"contract"`
	Bytecode string   `json:"bytecode"`
	Unlinked []string `json:"unlinked,omitempty"`
}

// NewLinkCommand creates the link command.
func NewLinkCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LinkOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "link <artifacts-dir> <contract>",
		Short: "Link already-deployed library addresses into bytecode",
		Long: `Replace library placeholders in a contract's bytecode with the
addresses of libraries that are already deployed, and print the result.
Nothing is deployed.

Exits with code 1 if placeholders remain after linking.

Example:
  soltest link build/contracts SortedDoublyLLFixture \
    --lib Assert=0x5FbDB2315678afecb367f032d93F642f64180aa3 \
    --lib SortedDoublyLL=0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLink(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Libraries, "lib", nil, "library address as Name=0xaddress (repeatable)")

	return cmd
}

// parseLibrary splits a Name=0xaddress flag value.
func parseLibrary(value string) (string, common.Address, error) {
	name, addr, ok := strings.Cut(value, "=")
	if !ok || name == "" {
		return "", common.Address{}, fmt.Errorf("invalid --lib %q: want Name=0xaddress", value)
	}
	if !common.IsHexAddress(addr) {
		return "", common.Address{}, fmt.Errorf("invalid --lib %q: %q is not an address", value, addr)
	}
	return name, common.HexToAddress(addr), nil
}

func runLink(opts *LinkOptions, dir, contract string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	resolver := artifact.NewDirResolver(dir)
	a, err := resolver.Resolve(contract)
	if err != nil {
		return commandError(formatter, ErrCodeArtifact, "failed to resolve contract", err)
	}

	bytecode := a.Bytecode
	for _, value := range opts.Libraries {
		name, addr, err := parseLibrary(value)
		if err != nil {
			return commandError(formatter, ErrCodeLink, "failed to parse library", err)
		}
		placeholder, err := linker.Placeholder(name)
		if err != nil {
			return commandError(formatter, ErrCodeLink, "failed to link library", err)
		}
		bytecode = linker.Link(bytecode, placeholder, addr)

		// Hashed placeholders need the library's source path
		if lib, err := resolver.Resolve(name); err == nil && lib.SourcePath != "" {
			bytecode = linker.Link(bytecode, linker.HashedPlaceholder(lib.SourcePath, name), addr)
		}
		formatter.VerboseLog("Linked %s at %s", name, addr.Hex())
	}

	result := LinkResult{
		Contract: a.Name,
		Bytecode: bytecode,
		Unlinked: artifact.Placeholders(bytecode),
	}

	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(formatter.Writer, result.Bytecode)
	}

	if len(result.Unlinked) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("bytecode still has unlinked placeholders: %s", strings.Join(result.Unlinked, ", ")))
	}
	return nil
}
