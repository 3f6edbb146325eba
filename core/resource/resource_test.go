package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroup(t *testing.T) {
	resources := []Resource{
		{ID: "1", Type: TypeDocument},
		{ID: "2", Type: TypeVideo},
		{ID: "3", Type: TypeTemplate},
		{ID: "4", Type: TypeCourse},
		{ID: "5", Type: TypeSoftware},
		{ID: "6", Type: "podcast"},
	}
	g := Group(resources)

	ids := func(rs []Resource) []string {
		out := make([]string, 0, len(rs))
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}
	assert.Equal(t, []string{"1"}, ids(g.Documents))
	assert.Equal(t, []string{"3"}, ids(g.Templates))
	assert.Equal(t, []string{"2", "4"}, ids(g.Videos))
	assert.Equal(t, []string{"5"}, ids(g.Software))

	empty := Group(nil)
	assert.NotNil(t, empty.Documents)
	assert.Empty(t, empty.Videos)
}

func TestQueryFilter_Clean(t *testing.T) {
	tests := []struct {
		name   string
		filter QueryFilter
		want   QueryFilter
	}{
		{name: "all is no category", filter: QueryFilter{Category: "All"}, want: QueryFilter{}},
		{name: "category kept", filter: QueryFilter{Category: " Design "}, want: QueryFilter{Category: "Design"}},
		{name: "search lowered", filter: QueryFilter{Search: " FEA Guide"}, want: QueryFilter{Search: "fea guide"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.filter.Clean()
			assert.Equal(t, tt.want, tt.filter)
		})
	}
}
