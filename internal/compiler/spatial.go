package compiler

import (
	"fmt"

	"github.com/paperdex/paperdex/internal/catalog"
	"github.com/paperdex/paperdex/internal/domain/query"
)

// spatialPredicate renders a point-in-rectangle predicate against the
// projected-embedding column. The `<@ box` form is index-assisted, and a
// document with a NULL projected point yields NULL, which WHERE treats as
// excluded.
func spatialPredicate(bbox *query.BoundingBox, binder *Binder) string {
	return fmt.Sprintf("%s.\"projected_embedding\" <@ box(point(%s, %s), point(%s, %s))",
		catalog.BaseAlias,
		binder.Bind(bbox.MinX()), binder.Bind(bbox.MinY()),
		binder.Bind(bbox.MaxX()), binder.Bind(bbox.MaxY()),
	)
}
