package core

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// Columns maps the orderings to sql columns using `allowed` ({field: column}); unknown fields are dropped.
func Columns(orderings []DBOrdering, allowed map[string]string) []DBOrdering {
	cols := make([]DBOrdering, 0, len(orderings))
	for _, ord := range orderings {
		if col, ok := allowed[ord.Field]; ok {
			cols = append(cols, DBOrdering{Field: col, Ascending: ord.Ascending})
		}
	}
	return cols
}
