// Package executor implements a prefetch-first GraphQL executor over a
// schema-typed entity store, with explicit resolver hooks for batched
// fetching, abstract-type resolution, and leaf coercion.
//
// # Overview
//
// Execution happens in two phases:
//
//  1. Prefetch. The whole selection set is handed to Resolver.Prefetch,
//     which walks it level by level and satisfies every relation in batched
//     store queries, returning a materialized value tree keyed by response
//     key. Planning errors found here (unknown fields, conflicting
//     arguments) abort the execution as a unit.
//  2. Completion. The executor walks the prefetched tree against the query,
//     applying the GraphQL value completion rules: lists, leafs, objects,
//     abstract types, and Non-Null null propagation. Scalar and enum leafs
//     are read from entity attribute maps and passed through the resolver's
//     leaf hooks.
//
// A resolver that returns (nil, nil) from Prefetch opts out of the first
// phase; relation fields are then resolved one at a time through
// ResolveObject and ResolveObjects.
//
// # Planning
//
// CollectFields turns one selection set into a resolution plan for one
// concrete type: fragments whose type conditions match the concrete type are
// flattened, and fields with the same response key are merged into a single
// planned field. Merging fields whose arguments differ is an error. Field
// names are validated against the scope the selection is declared in, so a
// bad field selected through an interface is reported with the interface's
// name even though planning happens per concrete implementor. Plans are
// cached per (position, concrete type) pair, so sibling entities of the same
// type share one plan.
//
// Values at interface and union positions carry a __typename tag stamped by
// whatever produced them. ResolveAbstractType maps the tag to the concrete
// type definition; a value without a valid tag is an invariant violation and
// panics.
//
// # Errors and Partial Success
//
// Resolution errors are accumulated as located errors (message + path)
// alongside partial data. Planning errors are deduplicated so one offending
// reference is reported once, not once per matching entity. A null value for
// a Non-Null field nullifies the nearest nullable ancestor.
package executor
