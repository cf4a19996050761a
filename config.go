package forgeauth

// Config holds the options the service and controller read. Host apps wire
// their own implementation; SimpleConfig covers tests and examples.
type Config interface {
	GetSigningKey() string
	GetTokenExpiration() int
	GetIssuer() string
	GetAudience() []string
	GetContextKey() string
	GetGroupPathPrefix() string
	GetTokenName() string
	// GetAllowExistingForgeUser gates the development-only fallback that
	// adopts an existing forge user when creation returns a conflict. Keep
	// this off in production.
	GetAllowExistingForgeUser() bool
	GetRejectedRouteDefault() string
}

// SimpleConfig is a plain struct Config implementation.
type SimpleConfig struct {
	SigningKey             string
	TokenExpiration        int
	Issuer                 string
	Audience               []string
	ContextKey             string
	GroupPathPrefix        string
	TokenName              string
	AllowExistingForgeUser bool
	RejectedRouteDefault   string
}

func (c SimpleConfig) GetSigningKey() string { return c.SigningKey }

func (c SimpleConfig) GetTokenExpiration() int {
	if c.TokenExpiration <= 0 {
		return 24
	}
	return c.TokenExpiration
}

func (c SimpleConfig) GetIssuer() string { return c.Issuer }

func (c SimpleConfig) GetAudience() []string { return c.Audience }

func (c SimpleConfig) GetContextKey() string {
	if c.ContextKey == "" {
		return "user"
	}
	return c.ContextKey
}

func (c SimpleConfig) GetGroupPathPrefix() string {
	if c.GroupPathPrefix == "" {
		return "people"
	}
	return c.GroupPathPrefix
}

func (c SimpleConfig) GetTokenName() string {
	if c.TokenName == "" {
		return "default"
	}
	return c.TokenName
}

func (c SimpleConfig) GetAllowExistingForgeUser() bool { return c.AllowExistingForgeUser }

func (c SimpleConfig) GetRejectedRouteDefault() string {
	if c.RejectedRouteDefault == "" {
		return "/login"
	}
	return c.RejectedRouteDefault
}

var _ Config = SimpleConfig{}
