package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/soltest/internal/artifact"
)

func fn(name string) artifact.Entry {
	return artifact.Entry{Name: name, Type: artifact.TypeFunction}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		entry artifact.Entry
		want  Unit
	}{
		{fn("beforeAll"), Unit{Kind: Hook, Hook: BeforeAll, Name: "beforeAll"}},
		{fn("beforeEach"), Unit{Kind: Hook, Hook: BeforeEach, Name: "beforeEach"}},
		{fn("afterEach"), Unit{Kind: Hook, Hook: AfterEach, Name: "afterEach"}},
		{fn("afterAll"), Unit{Kind: Hook, Hook: AfterAll, Name: "afterAll"}},
		{fn("test_foo"), Unit{Kind: Test, Name: "test_foo"}},
		{fn("testInsert"), Unit{Kind: Test, Name: "testInsert"}},
		{fn("test"), Unit{Kind: Test, Name: "test"}},
		{fn("helper"), Unit{Kind: Ignored, Name: "helper"}},
		{fn("Testing"), Unit{Kind: Ignored, Name: "Testing"}},
		{fn("beforeall"), Unit{Kind: Ignored, Name: "beforeall"}},
		{artifact.Entry{Name: "testEvent", Type: artifact.TypeEvent}, Unit{Kind: Ignored, Name: "testEvent"}},
		{artifact.Entry{Name: "beforeAll", Type: artifact.TypeEvent}, Unit{Kind: Ignored, Name: "beforeAll"}},
		{artifact.Entry{Type: artifact.TypeConstructor}, Unit{Kind: Ignored}},
	}

	for _, tt := range tests {
		t.Run(tt.entry.Type+"/"+tt.entry.Name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.entry))
		})
	}
}

func TestDiscover_KeepsOrderAndDropsIgnored(t *testing.T) {
	units := Discover([]artifact.Entry{
		fn("beforeAll"),
		fn("test_foo"),
		fn("helper"),
		fn("afterAll"),
	})

	assert.Equal(t, []Unit{
		{Kind: Hook, Hook: BeforeAll, Name: "beforeAll"},
		{Kind: Test, Name: "test_foo"},
		{Kind: Hook, Hook: AfterAll, Name: "afterAll"},
	}, units)
}

func TestDiscover_Empty(t *testing.T) {
	assert.Empty(t, Discover(nil))
	assert.Empty(t, Discover([]artifact.Entry{fn("owner"), {Name: "Transfer", Type: artifact.TypeEvent}}))
}

func TestKindStrings(t *testing.T) {
	assert.Equal(t, "beforeEach", BeforeEach.String())
	assert.Equal(t, "unknown", HookKind(9).String())
	assert.Equal(t, "hook", Hook.String())
	assert.Equal(t, "test", Test.String())
	assert.Equal(t, "ignored", Ignored.String())
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeNormal, ModeOnly, ModeSkip} {
		parsed, ok := ParseMode(m.String())
		assert.True(t, ok)
		assert.Equal(t, m, parsed)
	}
	_, ok := ParseMode("exclusive")
	assert.False(t, ok)
}
