// Package auth provides the bearer-credential gate that fronts keygate's
// protected routes.
//
// A request is authenticated by running a fixed sequence of steps, each of
// which either decides or defers to the next:
//
//  1. public paths (default "/" and "/health") are bypassed;
//  2. an empty static secret disables authentication;
//  3. the Authorization header must be present and match "Bearer <token>";
//  4. a token equal to the static secret is accepted as is;
//  5. otherwise the token is looked up in the credential map, loaded from
//     a CredentialMapStore and seeded from a fallback on a miss.
//
// A token found in the credential map activates that tenant's provider
// configuration (service account and project id) in a per-request
// Environment and invalidates the cached downstream token. If no step
// decides, the configured fall-through applies: allow by default.
//
// Auth is implemented as HTTP middleware. The resolved Environment is
// carried in the request context; see EnvironmentFromContext.
package auth
