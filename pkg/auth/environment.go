package auth

import "context"

// Environment is the per-request state downstream handlers read. The
// middleware copies a base Environment for every request; the gate
// mutates only that copy.
type Environment struct {
	// Secret is the active API secret. Empty disables authentication.
	Secret string

	// ServiceAccount is the active service-account payload as JSON text.
	ServiceAccount string

	// ProjectID is the active provider project.
	ProjectID string
}

// environmentKey is a private type for the environment context key.
type environmentKey struct{}

// WithEnvironment stores the resolved environment in the context.
func WithEnvironment(ctx context.Context, env Environment) context.Context {
	return context.WithValue(ctx, environmentKey{}, env)
}

// EnvironmentFromContext retrieves the resolved environment.
// The boolean is false when the request did not pass through the middleware.
func EnvironmentFromContext(ctx context.Context) (Environment, bool) {
	env, ok := ctx.Value(environmentKey{}).(Environment)
	return env, ok
}
