package plugin

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_LookupUnknown(t *testing.T) {
	r := newRegistry[Callback]()
	_, err := r.Lookup("nope")
	require.Error(t, err)
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := newRegistry[Pre]()
	h := fakePre{name: "test-pre", os: nil}
	r.Register(h)

	got, err := r.Lookup("test-pre")
	require.NoError(t, err)
	assert.Equal(t, "test-pre", got.Name())
}

func TestRegistry_RefusesUnsupportedOS(t *testing.T) {
	r := newRegistry[Pre]()
	other := "windows"
	if runtime.GOOS == "windows" {
		other = "plan9"
	}
	r.Register(fakePre{name: "only-other", os: []string{other}})

	_, err := r.Lookup("only-other")
	assert.Error(t, err)
}

func TestRegistry_DuplicateNamePanics(t *testing.T) {
	r := newRegistry[Pre]()
	r.Register(fakePre{name: "dup"})
	assert.Panics(t, func() {
		r.Register(fakePre{name: "dup"})
	})
}

type fakePre struct {
	name string
	os   []string
}

func (f fakePre) Name() string          { return f.name }
func (f fakePre) SupportedOS() []string { return f.os }
func (f fakePre) Run(string) ([]string, func(), error) { return nil, nil, nil }
