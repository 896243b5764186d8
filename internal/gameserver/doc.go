// Package gameserver hosts the realm: it serves ResolveAction over gRPC,
// runs the post-commit effects of resolved actions, advances each room's
// world clock, and seeds rooms from realm content.
package gameserver
