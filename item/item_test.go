package item

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemRoundTrip(t *testing.T) {
	cases := []Item{
		FromComponents(CrateComponent("crate")),
		FromComponents(CrateComponent("crate"), StrComponent("a"), StrComponent("b")),
		FromComponents(CrateComponent("crate"), StrComponent("a"), IDComponent(3), StrComponent("closure")),
	}
	for _, it := range cases {
		rt := FromComponents(it.Components()...)
		assert.True(t, it.Equal(rt), "round trip should preserve components for %s", it)
		assert.Equal(t, it.Hash(), rt.Hash(), "hash must be stable across runs for %s", it)
	}
}

func TestHashStableAcrossCalls(t *testing.T) {
	a := FromComponents(CrateComponent("crate"), StrComponent("a"), StrComponent("b"))
	b := FromComponents(CrateComponent("crate"), StrComponent("a"), StrComponent("b"))
	assert.Equal(t, a.Hash(), b.Hash())
}

func TestHashDistinguishesComponentKind(t *testing.T) {
	asID := FromComponents(CrateComponent("crate"), IDComponent(0))
	asStr := FromComponents(CrateComponent("crate"), StrComponent("0"))
	assert.NotEqual(t, asID.Hash(), asStr.Hash())
}

func TestInstanceHashMixesTypeAndName(t *testing.T) {
	ty := FromComponents(CrateComponent("crate"), StrComponent("Point"))
	h1 := ty.InstanceHash("add")
	h2 := ty.InstanceHash("sub")
	assert.NotEqual(t, h1, h2)

	other := FromComponents(CrateComponent("crate"), StrComponent("Line"))
	assert.NotEqual(t, h1, other.InstanceHash("add"))
}

func TestVisibility(t *testing.T) {
	root := FromComponents(CrateComponent("crate"))
	a := root.Join(StrComponent("a"))
	bParent, _ := a.Join(StrComponent("b")).Parent()

	require.True(t, Visible(Public, root, a))
	require.True(t, Visible(Inherited, a, a))
	require.False(t, Visible(Inherited, root, a))
	// b's parent is a; Super visibility on b reaches from == a's parent
	// (root) and its descendants.
	require.True(t, Visible(Super, root, bParent))
}

func TestPoolInterning(t *testing.T) {
	p := NewPool()
	it := FromComponents(CrateComponent("crate"), StrComponent("a"))
	id1 := p.Intern(it)
	id2 := p.Intern(FromComponents(CrateComponent("crate"), StrComponent("a")))
	assert.Equal(t, id1, id2)
	assert.True(t, p.Get(id1).Equal(it))
}
