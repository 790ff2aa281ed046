package cfg

type Cfg struct {
	// HTTP server configuration
	Port    string
	BaseUrl string

	// Upstream fetch configuration
	UserAgent   string
	HTTPTimeout int

	// Cache configuration
	RedisAddr string
	CacheTTL  int

	// Aggregation behavior
	SectionPolicy string

	// Proxy passthrough configuration
	ProxyProviders string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}

// Strict fails a request when any resolved list page cannot be fetched;
// tolerant keeps going as long as at least one section succeeds.
const (
	SectionPolicyTolerant = "tolerant"
	SectionPolicyStrict   = "strict"
)
