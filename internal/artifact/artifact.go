package artifact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Interface entry types from the Solidity ABI JSON format.
const (
	TypeFunction    = "function"
	TypeEvent       = "event"
	TypeConstructor = "constructor"
	TypeFallback    = "fallback"
	TypeReceive     = "receive"
	TypeError       = "error"
)

// ErrUnlinked is returned by Code when the bytecode still carries a library
// placeholder.
var ErrUnlinked = errors.New("bytecode has unlinked library placeholder")

// Entry is one element of a contract's interface description.
type Entry struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// IsFunction reports whether the entry describes a callable function.
func (e Entry) IsFunction() bool {
	return e.Type == TypeFunction
}

// Artifact is a compiled contract descriptor.
//
// Bytecode is mutable: linking rewrites it in place, and the change is
// visible to every holder of the pointer.
type Artifact struct {
	// Name is the contract name.
	Name string

	// SourcePath is the Solidity source the contract was compiled from.
	// Empty when the toolchain does not record it.
	SourcePath string

	// Bytecode is the creation bytecode as a 0x-prefixed hex string,
	// possibly containing library placeholders.
	Bytecode string

	// ABI lists the interface entries in declaration order.
	ABI []Entry

	// RawABI is the undecoded ABI JSON, kept for go-ethereum.
	RawABI json.RawMessage
}

// rawArtifact mirrors the on-disk JSON. Bytecode is either a hex string or,
// in the Foundry layout, an object with an "object" field.
type rawArtifact struct {
	ContractName string          `json:"contractName"`
	SourcePath   string          `json:"sourcePath"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     json.RawMessage `json:"bytecode"`
}

type rawBytecodeObject struct {
	Object string `json:"object"`
}

// Parse decodes an artifact from its JSON representation. fallbackName is
// used when the file does not carry a contract name (Foundry artifacts).
func Parse(data []byte, fallbackName string) (*Artifact, error) {
	var raw rawArtifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse artifact JSON: %w", err)
	}

	name := raw.ContractName
	if name == "" {
		name = fallbackName
	}
	if name == "" {
		return nil, fmt.Errorf("artifact has no contract name")
	}

	if len(raw.ABI) == 0 {
		return nil, fmt.Errorf("artifact %s: abi is required", name)
	}
	var entries []Entry
	if err := json.Unmarshal(raw.ABI, &entries); err != nil {
		return nil, fmt.Errorf("artifact %s: failed to parse abi: %w", name, err)
	}
	var err error
	rawABI := raw.ABI
	untyped := false
	for i := range entries {
		// The ABI format lets "type" be omitted for functions.
		if entries[i].Type == "" {
			entries[i].Type = TypeFunction
			untyped = true
		}
	}
	if untyped {
		// go-ethereum rejects entries without a type.
		if rawABI, err = fillFunctionTypes(raw.ABI); err != nil {
			return nil, fmt.Errorf("artifact %s: %w", name, err)
		}
	}

	bytecode, err := decodeBytecodeField(raw.Bytecode)
	if err != nil {
		return nil, fmt.Errorf("artifact %s: %w", name, err)
	}

	return &Artifact{
		Name:       name,
		SourcePath: raw.SourcePath,
		Bytecode:   bytecode,
		ABI:        entries,
		RawABI:     rawABI,
	}, nil
}

func fillFunctionTypes(rawABI json.RawMessage) (json.RawMessage, error) {
	var fields []map[string]json.RawMessage
	if err := json.Unmarshal(rawABI, &fields); err != nil {
		return nil, fmt.Errorf("failed to parse abi: %w", err)
	}
	for _, f := range fields {
		if t, ok := f["type"]; !ok || string(t) == `""` {
			f["type"] = json.RawMessage(`"function"`)
		}
	}
	out, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to rewrite abi: %w", err)
	}
	return out, nil
}

func decodeBytecodeField(field json.RawMessage) (string, error) {
	field = bytes.TrimSpace(field)
	if len(field) == 0 || string(field) == "null" {
		return "", nil
	}
	if field[0] == '{' {
		var obj rawBytecodeObject
		if err := json.Unmarshal(field, &obj); err != nil {
			return "", fmt.Errorf("failed to parse bytecode object: %w", err)
		}
		return normalizeHex(obj.Object), nil
	}
	var s string
	if err := json.Unmarshal(field, &s); err != nil {
		return "", fmt.Errorf("failed to parse bytecode: %w", err)
	}
	return normalizeHex(s), nil
}

func normalizeHex(s string) string {
	if s == "" {
		return ""
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return "0x" + s
	}
	return s
}

// ParsedABI returns the go-ethereum view of the interface description.
func (a *Artifact) ParsedABI() (abi.ABI, error) {
	parsed, err := abi.JSON(bytes.NewReader(a.RawABI))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("artifact %s: invalid abi: %w", a.Name, err)
	}
	return parsed, nil
}

// Code decodes the bytecode for deployment.
// Fails with ErrUnlinked if a library placeholder is still present.
func (a *Artifact) Code() ([]byte, error) {
	if a.Bytecode == "" || a.Bytecode == "0x" {
		return nil, fmt.Errorf("artifact %s has no bytecode (abstract contract or interface?)", a.Name)
	}
	if p := FirstPlaceholder(a.Bytecode); p != "" {
		return nil, fmt.Errorf("artifact %s: %w %q", a.Name, ErrUnlinked, p)
	}
	body := strings.TrimPrefix(strings.TrimPrefix(a.Bytecode, "0x"), "0X")
	if len(body)%2 != 0 {
		return nil, fmt.Errorf("artifact %s: bytecode has odd hex length %d", a.Name, len(body))
	}
	code := common.FromHex(body)
	if len(code)*2 != len(body) {
		return nil, fmt.Errorf("artifact %s: bytecode is not valid hex", a.Name)
	}
	return code, nil
}

// FirstPlaceholder returns the first library placeholder slot in bytecode,
// or "" when the bytecode is fully linked. A slot is the 40-character
// window starting at the first '_' or '$' character, neither of which can
// occur in hex.
func FirstPlaceholder(bytecode string) string {
	i := strings.IndexAny(bytecode, "_$")
	if i < 0 {
		return ""
	}
	end := i + 40
	if end > len(bytecode) {
		end = len(bytecode)
	}
	return bytecode[i:end]
}

// Placeholders returns every distinct placeholder slot in bytecode, in
// order of first occurrence.
func Placeholders(bytecode string) []string {
	var out []string
	for {
		p := FirstPlaceholder(bytecode)
		if p == "" {
			return out
		}
		out = append(out, p)
		bytecode = strings.ReplaceAll(bytecode, p, "")
	}
}

// PlaceholderName returns the library name held by a legacy placeholder,
// or "" for a hashed one.
func PlaceholderName(placeholder string) string {
	if strings.HasPrefix(placeholder, "__$") {
		return ""
	}
	return strings.Trim(placeholder, "_")
}
