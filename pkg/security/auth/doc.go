/*
Package auth provides bearer token authentication for the Warden HTTP API.

The /v1 routes expose installed bindings and the decision audit trail, which
can reveal which resources a user declined. When authentication is enabled,
every /v1 request must carry one of the configured tokens. Health probes and
metrics stay open.

# Basic Usage

	validator := auth.NewValidator([]*auth.TokenInfo{
		{Name: "dashboard", Token: "wdn-3f9c...", Enabled: true},
	})

	sources := []auth.Source{
		{Type: "header", Name: "Authorization", Scheme: "Bearer"},
		{Type: "header", Name: "X-Warden-Token"},
	}

	mux.Handle("/v1/", auth.NewMiddleware(validator, sources, logger).Handle(api))

Inside a handler, the authenticated token's metadata is available:

	info, ok := auth.TokenFrom(r.Context())

Token values are never logged, only their names.

# Configuration Example

	server:
	  auth:
	    enabled: true
	    tokens:
	      - name: dashboard
	        token: "wdn-3f9c..."

WARDEN_SERVER_AUTH_TOKEN adds a token named "env".
*/
package auth
