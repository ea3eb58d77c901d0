package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "fact-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "gpt-4o-mini").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// DiscoverConfig holds settings for the discovery stage.
type DiscoverConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxCandidates caps the ranked candidate list (default 50).
	MaxCandidates int `json:"max_candidates" yaml:"max_candidates"`

	// EnableBrave controls whether the Brave Search backend is queried.
	EnableBrave bool `json:"enable_brave" yaml:"enable_brave"`

	// BraveAPIKey authenticates against the Brave Search API.
	BraveAPIKey string `json:"brave_api_key,omitempty" yaml:"brave_api_key,omitempty"`

	// EnableSerpAPI controls whether the SerpAPI backend is queried.
	EnableSerpAPI bool `json:"enable_serpapi" yaml:"enable_serpapi"`

	// SerpAPIKey authenticates against SerpAPI.
	SerpAPIKey string `json:"serpapi_key,omitempty" yaml:"serpapi_key,omitempty"`

	// QueryConcurrency bounds concurrent provider queries (default 6).
	QueryConcurrency int `json:"query_concurrency" yaml:"query_concurrency"`

	// RecencyHalfLife controls how fast the recency boost decays
	// (default 365 days).
	RecencyHalfLife time.Duration `json:"recency_half_life" yaml:"recency_half_life"`

	// CategoryBonus is added to the first candidate covering an otherwise
	// uncovered search category (default 1.5).
	CategoryBonus float64 `json:"category_bonus" yaml:"category_bonus"`
}

// FetchConfig holds settings for the fetch stage.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// Concurrency is the global bound on simultaneous fetches (default 6).
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// DomainInterval is the minimum interval between requests to one
	// domain (default 1s). robots.txt crawl-delay raises it per host.
	DomainInterval time.Duration `json:"domain_interval" yaml:"domain_interval"`

	// MaxBodyBytes caps the response body size read per page (default 2 MiB).
	MaxBodyBytes int64 `json:"max_body_bytes" yaml:"max_body_bytes"`

	// MaxRedirects caps redirect chains (default 3).
	MaxRedirects int `json:"max_redirects" yaml:"max_redirects"`

	// MaxRetries is the number of in-place retries for one URL on transient
	// failures (default 2). Exhaustion records the failure on the page and
	// the batch moves on.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// ExtractConfig holds settings for the content extraction stage.
type ExtractConfig struct {
	// MaxQuotes caps the number of detected quotes kept per document (default 20).
	MaxQuotes int `json:"max_quotes" yaml:"max_quotes"`

	// Workers bounds concurrent per-document extraction (default 6).
	Workers int `json:"workers" yaml:"workers"`
}

// ClaimsBackend selects the claim-candidate proposer.
type ClaimsBackend string

const (
	// BackendOpenAI proposes candidates with an OpenAI chat model.
	BackendOpenAI ClaimsBackend = "openai"

	// BackendHeuristic proposes candidates with offline pattern rules.
	BackendHeuristic ClaimsBackend = "heuristic"
)

// ClaimsConfig holds settings for the claim building stage.
type ClaimsConfig struct {
	AIConfig `yaml:",inline"`

	// Backend selects the candidate proposer: openai or heuristic.
	Backend ClaimsBackend `json:"backend" yaml:"backend"`

	// MaxPerSource caps accepted candidates per source (default 25).
	MaxPerSource int `json:"max_per_source" yaml:"max_per_source"`

	// Workers bounds concurrent per-source claim building (default 6).
	Workers int `json:"workers" yaml:"workers"`
}

// GraphConfig holds the fact graph merge and scoring settings. The defaults
// satisfy the ordering contract: confidence never decreases with more
// distinct-domain corroboration, higher minimum source tier, or tighter date
// agreement, and a single-source claim stays below the HIGH band.
type GraphConfig struct {
	// DateToleranceDays is the window within which two dated candidates
	// still merge into one claim (default 30).
	DateToleranceDays int `json:"date_tolerance_days" yaml:"date_tolerance_days"`

	// MinSources is the distinct-domain count required for HIGH (default 2).
	MinSources int `json:"min_sources" yaml:"min_sources"`

	// SingleSourceCap caps the confidence of single-domain claims (default 0.65).
	SingleSourceCap float64 `json:"single_source_cap" yaml:"single_source_cap"`

	// CorroborationBase and CorroborationStep shape the corroboration term:
	// base + step*min(n, 4) for n distinct domains.
	CorroborationBase float64 `json:"corroboration_base" yaml:"corroboration_base"`
	CorroborationStep float64 `json:"corroboration_step" yaml:"corroboration_step"`

	// TierStep is the per-tier bonus applied for the minimum source tier.
	TierStep float64 `json:"tier_step" yaml:"tier_step"`

	// DateWeight scales the date-agreement term.
	DateWeight float64 `json:"date_weight" yaml:"date_weight"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// GuardConfig holds the hallucination guard thresholds.
type GuardConfig struct {
	// MinRatio is the normalized edit-similarity a sentence must reach
	// against some evidence span when it is not contained verbatim
	// (default 0.82).
	MinRatio float64 `json:"min_ratio" yaml:"min_ratio"`
}

// ReportConfig holds settings for the report stage.
type ReportConfig struct {
	// TopPerCategory is the number of claims shown per search category (default 3).
	TopPerCategory int `json:"top_per_category" yaml:"top_per_category"`

	// PDF additionally renders the Markdown report to PDF through a
	// containerized pandoc when a container runtime is available.
	PDF bool `json:"pdf" yaml:"pdf"`
}

// RetryConfig holds the stage retry envelope settings.
type RetryConfig struct {
	// MaxAttempts bounds stage executions before the run halts (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// BaseDelay is the first backoff delay (default 2s).
	BaseDelay time.Duration `json:"base_delay" yaml:"base_delay"`

	// MaxDelay caps the backoff delay (default 30s).
	MaxDelay time.Duration `json:"max_delay" yaml:"max_delay"`
}

// Config groups all stage configurations for the pipeline.
type Config struct {
	// WorkDir is the base directory holding the fact database and per-run
	// artifacts (default "research").
	WorkDir string `json:"work_dir" yaml:"work_dir"`

	Discover DiscoverConfig `json:"discover" yaml:"discover"`
	Fetch    FetchConfig    `json:"fetch" yaml:"fetch"`
	Extract  ExtractConfig  `json:"extract" yaml:"extract"`
	Claims   ClaimsConfig   `json:"claims" yaml:"claims"`
	Graph    GraphConfig    `json:"graph" yaml:"graph"`
	Guard    GuardConfig    `json:"guard" yaml:"guard"`
	Report   ReportConfig   `json:"report" yaml:"report"`
	Retry    RetryConfig    `json:"retry" yaml:"retry"`
}

// DefaultConfig returns the configuration defaults used when a field is unset.
func DefaultConfig() Config {
	return Config{
		WorkDir: "research",
		Discover: DiscoverConfig{
			HTTPConfig:       HTTPConfig{Timeout: 30 * time.Second, UserAgent: DefaultUserAgent},
			MaxCandidates:    50,
			EnableBrave:      true,
			EnableSerpAPI:    true,
			QueryConcurrency: 6,
			RecencyHalfLife:  365 * 24 * time.Hour,
			CategoryBonus:    1.5,
		},
		Fetch: FetchConfig{
			HTTPConfig:     HTTPConfig{Timeout: 30 * time.Second, UserAgent: DefaultUserAgent},
			Concurrency:    6,
			DomainInterval: time.Second,
			MaxBodyBytes:   2 << 20,
			MaxRedirects:   3,
			MaxRetries:     2,
		},
		Extract: ExtractConfig{MaxQuotes: 20, Workers: 6},
		Claims: ClaimsConfig{
			AIConfig:     AIConfig{Model: "gpt-4o-mini", MaxRetries: 3},
			Backend:      BackendHeuristic,
			MaxPerSource: 25,
			Workers:      6,
		},
		Graph: GraphConfig{
			DateToleranceDays: 30,
			MinSources:        2,
			SingleSourceCap:   0.65,
			CorroborationBase: 0.40,
			CorroborationStep: 0.15,
			TierStep:          0.05,
			DateWeight:        0.10,
			MaxResults:        20,
		},
		Guard:  GuardConfig{MinRatio: 0.82},
		Report: ReportConfig{TopPerCategory: 3},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
			MaxDelay:    30 * time.Second,
		},
	}
}

// DefaultUserAgent identifies the crawler in HTTP requests and robots lookups.
const DefaultUserAgent = "fact-engine/0.1"
