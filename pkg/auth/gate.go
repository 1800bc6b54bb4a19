package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/rhuss/keygate/pkg/api"
	"github.com/rhuss/keygate/pkg/debug"
	"github.com/rhuss/keygate/pkg/storage"
)

// Default store keys and public paths.
const (
	DefaultMapKey   = "GEMINI_PROJECT_MAP"
	DefaultTokenKey = "gemini_token"
)

// DefaultPublicPaths lists the paths that skip authentication.
var DefaultPublicPaths = []string{"/", "/health"}

// bearerPattern matches "Bearer <token>": case-sensitive scheme, one or
// more whitespace characters, then a non-empty token.
var bearerPattern = regexp.MustCompile(`^Bearer\s+(.+)$`)

// CredentialMapStore is the cache the gate reads the credential map from
// and invalidates cached downstream tokens in. Put and Delete failures
// are logged and discarded.
type CredentialMapStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// State is the terminal state of one authentication attempt.
type State int

const (
	// StateBypassed means the path is public or authentication is disabled.
	StateBypassed State = iota

	// StateRejected means the request must be answered with a 401.
	StateRejected

	// StateResolvedStatic means the token matched the static secret.
	StateResolvedStatic

	// StateResolvedDynamic means the token was found in the credential map
	// and the environment now carries its provider configuration.
	StateResolvedDynamic

	// StatePassthrough means no step reached a decision and the
	// fall-through default allowed the request.
	StatePassthrough
)

func (s State) String() string {
	switch s {
	case StateBypassed:
		return "bypassed"
	case StateRejected:
		return "rejected"
	case StateResolvedStatic:
		return "resolved_static"
	case StateResolvedDynamic:
		return "resolved_dynamic"
	case StatePassthrough:
		return "passthrough"
	default:
		return "unknown"
	}
}

// Outcome carries the result of Authenticate.
type Outcome struct {
	State State
	Err   *api.APIError // populated only when State == StateRejected
}

// Allowed reports whether the request may proceed.
func (o Outcome) Allowed() bool {
	return o.State != StateRejected
}

func reject(code, message string) Outcome {
	return Outcome{State: StateRejected, Err: api.NewAuthenticationError(code, message)}
}

// attempt is the scratch state threaded through the steps of one call.
type attempt struct {
	token string
}

// step inspects the request and either decides (done == true) or lets
// the next step run.
type step func(ctx context.Context, r *http.Request, env *Environment, a *attempt) (out Outcome, done bool)

// Gate authenticates requests against a static secret or a credential map.
// A Gate holds no per-request state and is safe for concurrent use.
type Gate struct {
	store       CredentialMapStore
	publicPaths map[string]bool
	mapKey      string
	tokenKey    string
	fallbackRaw string
	fallback    CredentialMap
	failOpen    bool
	logger      *slog.Logger
	steps       []step
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithPublicPaths replaces the paths that skip authentication.
// Matching is exact string equality on the URL path.
func WithPublicPaths(paths ...string) GateOption {
	return func(g *Gate) {
		g.publicPaths = make(map[string]bool, len(paths))
		for _, p := range paths {
			g.publicPaths[p] = true
		}
	}
}

// WithMapKey sets the store key holding the credential map.
func WithMapKey(key string) GateOption {
	return func(g *Gate) { g.mapKey = key }
}

// WithTokenKey sets the store key of the cached downstream token.
func WithTokenKey(key string) GateOption {
	return func(g *Gate) { g.tokenKey = key }
}

// WithFallbackMap sets the JSON credential map used to seed the store
// when the map key is absent.
func WithFallbackMap(raw string) GateOption {
	return func(g *Gate) { g.fallbackRaw = raw }
}

// WithFallThrough sets the decision applied when no step decides.
// The default is to allow.
func WithFallThrough(allow bool) GateOption {
	return func(g *Gate) { g.failOpen = allow }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) GateOption {
	return func(g *Gate) { g.logger = l }
}

// NewGate creates a Gate backed by store. The store must not be nil.
func NewGate(store CredentialMapStore, opts ...GateOption) *Gate {
	g := &Gate{
		store:    store,
		mapKey:   DefaultMapKey,
		tokenKey: DefaultTokenKey,
		failOpen: true,
		logger:   slog.Default(),
	}
	WithPublicPaths(DefaultPublicPaths...)(g)

	for _, opt := range opts {
		opt(g)
	}

	g.fallback = ParseFallbackMap(g.fallbackRaw, g.logger)
	g.steps = []step{
		g.checkPublicPath,
		g.checkDisabled,
		g.extractBearer,
		g.matchStatic,
		g.resolveDynamic,
	}
	return g
}

// Authenticate runs the decision procedure for r. On StateResolvedDynamic
// env has been updated with the tenant's provider configuration and
// secret; in every other state env is left untouched.
func (g *Gate) Authenticate(ctx context.Context, r *http.Request, env *Environment) Outcome {
	a := &attempt{}
	for _, s := range g.steps {
		if out, done := s(ctx, r, env, a); done {
			return out
		}
	}

	if g.failOpen {
		return Outcome{State: StatePassthrough}
	}
	return reject(api.CodeInvalidAPIKey, "Invalid API key")
}

func (g *Gate) checkPublicPath(_ context.Context, r *http.Request, _ *Environment, _ *attempt) (Outcome, bool) {
	if g.publicPaths[r.URL.Path] {
		return Outcome{State: StateBypassed}, true
	}
	return Outcome{}, false
}

func (g *Gate) checkDisabled(_ context.Context, _ *http.Request, env *Environment, _ *attempt) (Outcome, bool) {
	if env.Secret == "" {
		return Outcome{State: StateBypassed}, true
	}
	return Outcome{}, false
}

func (g *Gate) extractBearer(_ context.Context, r *http.Request, _ *Environment, a *attempt) (Outcome, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return reject(api.CodeMissingAuthorization, "Missing Authorization header"), true
	}

	m := bearerPattern.FindStringSubmatch(header)
	if m == nil {
		return reject(api.CodeInvalidAuthorizationFormat,
			"Invalid Authorization header format. Expected: Bearer <token>"), true
	}

	a.token = m[1]
	return Outcome{}, false
}

func (g *Gate) matchStatic(_ context.Context, _ *http.Request, env *Environment, a *attempt) (Outcome, bool) {
	if secretEqual(a.token, env.Secret) {
		return Outcome{State: StateResolvedStatic}, true
	}
	return Outcome{}, false
}

func (g *Gate) resolveDynamic(ctx context.Context, _ *http.Request, env *Environment, a *attempt) (Outcome, bool) {
	creds := g.loadMap(ctx)

	provider, ok := creds.Lookup(a.token)
	if !ok {
		debug.Log("auth", "token not in credential map", "entries", len(creds))
		return reject(api.CodeInvalidAPIKey, "Invalid API key"), true
	}
	debug.Log("auth", "token resolved from credential map",
		"service_account", provider.HasServiceAccount(),
		"project_id", provider.ProjectID != nil,
	)

	if provider.HasServiceAccount() {
		env.ServiceAccount = provider.ServiceAccountText()
	}
	if provider.ProjectID != nil {
		env.ProjectID = *provider.ProjectID
	}

	// The token differs from the static secret (matchStatic ran first), so
	// any cached downstream token was minted for another identity.
	if err := g.store.Delete(ctx, g.tokenKey); err != nil {
		g.logger.WarnContext(ctx, "failed to clear cached token", "key", g.tokenKey, "error", err)
	} else {
		g.logger.DebugContext(ctx, "cleared cached token", "key", g.tokenKey)
	}

	env.Secret = a.token
	return Outcome{State: StateResolvedDynamic}, true
}

// loadMap returns the credential map for this call. A miss, a null or an
// undecodable cached value is seeded from the fallback and written back.
// A read error uses the fallback but never writes it.
func (g *Gate) loadMap(ctx context.Context) CredentialMap {
	data, err := g.store.Get(ctx, g.mapKey)
	switch {
	case err == nil:
		creds, skipped, decErr := DecodeCredentialMap(data)
		switch {
		case decErr != nil:
			g.logger.WarnContext(ctx, "cached credential map is corrupt, reseeding", "key", g.mapKey, "error", decErr)
		case creds == nil:
			g.logger.WarnContext(ctx, "cached credential map is null, reseeding", "key", g.mapKey)
		default:
			if len(skipped) > 0 {
				g.logger.WarnContext(ctx, "cached credential map has malformed entries", "skipped", len(skipped))
			}
			return creds
		}
	case errors.Is(err, storage.ErrNotFound):
		// Seed below.
	default:
		g.logger.WarnContext(ctx, "failed to read credential map, using fallback", "key", g.mapKey, "error", err)
		return g.fallback
	}

	g.seed(ctx)
	return g.fallback
}

func (g *Gate) seed(ctx context.Context) {
	data, err := g.fallback.Encode()
	if err != nil {
		g.logger.WarnContext(ctx, "failed to encode fallback credential map", "error", err)
		return
	}
	if err := g.store.Put(ctx, g.mapKey, data); err != nil {
		g.logger.WarnContext(ctx, "failed to save credential map", "key", g.mapKey, "error", err)
		return
	}
	g.logger.InfoContext(ctx, "saved credential map", "key", g.mapKey, "entries", len(g.fallback))
}

// secretEqual compares two secrets in constant time. Hashing first keeps
// the comparison independent of the inputs' lengths.
func secretEqual(a, b string) bool {
	ha := sha256.Sum256([]byte(a))
	hb := sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(ha[:], hb[:]) == 1
}
