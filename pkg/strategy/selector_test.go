package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func tree() []Element {
	return []Element{
		{ResourceID: "root", Children: []Element{
			{ResourceID: "btn_a", ClassName: "Button", Clickable: true},
			{ResourceID: "btn_b", Text: "Submit", Clickable: true},
		}},
	}
}

func TestSelectorEmptyMatchesEverything(t *testing.T) {
	all := FindAll(tree(), Selector{})
	assert.Len(t, all, 3)
}

func TestSelectorByResourceID(t *testing.T) {
	all := FindAll(tree(), Selector{ResourceID: "btn_a"})
	assert.Len(t, all, 1)
	assert.Equal(t, "btn_a", all[0].ResourceID)
}

func TestSelectorMissReturnsEmpty(t *testing.T) {
	_, ok := FindFirst(tree(), Selector{ResourceID: "btn_x"})
	assert.False(t, ok)
}

func TestSelectorTextContains(t *testing.T) {
	all := FindAll(tree(), Selector{Text: "Sub", TextMatch: TextContains})
	assert.Len(t, all, 1)
}

func TestSelectorBooleanFlag(t *testing.T) {
	yes := true
	all := FindAll(tree(), Selector{Clickable: &yes})
	assert.Len(t, all, 2)
}

func TestSelectorPreOrderFirstEncounter(t *testing.T) {
	el, ok := FindFirst(tree(), Selector{Clickable: func() *bool { b := true; return &b }()})
	assert.True(t, ok)
	assert.Equal(t, "btn_a", el.ResourceID)
}

func TestSelectorChildRestrictsToSubtreeMatch(t *testing.T) {
	all := FindAll(tree(), Selector{ResourceID: "root", Child: &Selector{ResourceID: "btn_a"}})
	assert.Len(t, all, 1)
	assert.Equal(t, "root", all[0].ResourceID)

	none := FindAll(tree(), Selector{ResourceID: "root", Child: &Selector{ResourceID: "btn_x"}})
	assert.Len(t, none, 0)
}

func TestSelectorParentRestrictsToAncestorMatch(t *testing.T) {
	all := FindAll(tree(), Selector{ResourceID: "btn_a", Parent: &Selector{ResourceID: "root"}})
	assert.Len(t, all, 1)
	assert.Equal(t, "btn_a", all[0].ResourceID)

	none := FindAll(tree(), Selector{ResourceID: "btn_a", Parent: &Selector{ResourceID: "btn_b"}})
	assert.Len(t, none, 0)
}
