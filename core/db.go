package core

// DBOrdering is a storage-agnostic sort key.
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

// Desc is a shorthand for descending orderings.
func Desc(fields ...string) []DBOrdering {
	ords := make([]DBOrdering, 0, len(fields))
	for _, f := range fields {
		ords = append(ords, DBOrdering{Field: f})
	}
	return ords
}
