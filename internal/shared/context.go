// Package shared holds cross-module request context and audit helpers.
package shared

import "context"

// Role names the department roles that submit workflow transitions. Identity
// and role verification happen upstream; the gateway forwards the resolved
// role with each request.
type Role string

const (
	RoleSales     Role = "SALES"
	RoleCredit    Role = "CREDIT_CONTROL"
	RoleWarehouse Role = "WAREHOUSE"
	RoleLogistics Role = "LOGISTICS"
	RoleBilling   Role = "BILLING"
	RoleFleet     Role = "FLEET"
	RoleDriver    Role = "DRIVER"
	RoleAdmin     Role = "ADMIN"
)

// Actor identifies who submits a transition.
type Actor struct {
	ID   int64
	Role Role
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) Actor {
	actor, _ := ctx.Value(actorContextKey{}).(Actor)
	return actor
}
