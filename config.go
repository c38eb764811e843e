package engram

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// FileConfig is the on-disk/environment shape of configuration: scalar
// fields only, unmarshalled by viper and then folded into a Config.
// Config itself carries provider interfaces that viper cannot bind.
type FileConfig struct {
	Storage struct {
		DBPath string `mapstructure:"db_path"`
	} `mapstructure:"storage"`

	Embedding struct {
		Provider  string `mapstructure:"provider"` // gemini | ollama | openai
		APIKey    string `mapstructure:"api_key"`
		Dimension int    `mapstructure:"dimension"`
		Host      string `mapstructure:"host"` // ollama base URL
		Model     string `mapstructure:"model"`
	} `mapstructure:"embedding"`

	WritePath struct {
		MergeThreshold    float64 `mapstructure:"merge_threshold"`
		AutoLinkThreshold float64 `mapstructure:"auto_link_threshold"`
		MaxAutoLinks      int     `mapstructure:"max_auto_links"`
		AutoLinkBuffer    int     `mapstructure:"auto_link_buffer"`
	} `mapstructure:"write_path"`

	Consolidation struct {
		DecayRate      float64 `mapstructure:"decay_rate"`
		PruneThreshold float64 `mapstructure:"prune_threshold"`
		MergeThreshold float64 `mapstructure:"merge_threshold"`
		BoostFactor    float64 `mapstructure:"boost_factor"`
		BoostMinAccess int     `mapstructure:"boost_min_access"`
	} `mapstructure:"consolidation"`

	Logging struct {
		Trace bool `mapstructure:"trace"`
	} `mapstructure:"logging"`
}

// LoadConfig loads configuration from an optional YAML file plus
// ENGRAM_-prefixed environment variables, viper's usual precedence
// (env overrides file overrides default).
func LoadConfig(configPath string) (*FileConfig, error) {
	v := viper.New()
	setConfigDefaults(v)

	v.SetEnvPrefix("ENGRAM")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("engram")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/engram/")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg FileConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return &cfg, nil
}

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("storage.db_path", "./data/engram.db")

	v.SetDefault("embedding.provider", "gemini")
	v.SetDefault("embedding.dimension", EmbeddingDim)
	v.SetDefault("embedding.model", "")

	v.SetDefault("write_path.merge_threshold", 0.92)
	v.SetDefault("write_path.auto_link_threshold", 0.7)
	v.SetDefault("write_path.max_auto_links", 3)
	v.SetDefault("write_path.auto_link_buffer", 5)

	v.SetDefault("consolidation.decay_rate", 0.95)
	v.SetDefault("consolidation.prune_threshold", 0.05)
	v.SetDefault("consolidation.merge_threshold", 0.92)
	v.SetDefault("consolidation.boost_factor", 1.1)
	v.SetDefault("consolidation.boost_min_access", 3)

	v.SetDefault("logging.trace", false)
}

// ToEngramConfig builds the provider-bearing Config Init expects,
// constructing the configured embedding provider from its scalar
// settings.
func (fc *FileConfig) ToEngramConfig() (Config, error) {
	cfg := Config{
		DBPath:            fc.Storage.DBPath,
		MergeThreshold:    fc.WritePath.MergeThreshold,
		AutoLinkThreshold: fc.WritePath.AutoLinkThreshold,
		MaxAutoLinks:      fc.WritePath.MaxAutoLinks,
		AutoLinkBuffer:    fc.WritePath.AutoLinkBuffer,
		GeminiAPIKey:      fc.Embedding.APIKey,
		EmbedDimension:    fc.Embedding.Dimension,
		Consolidation: ConsolidationOptions{
			DecayRate:      fc.Consolidation.DecayRate,
			PruneThreshold: fc.Consolidation.PruneThreshold,
			MergeThreshold: fc.Consolidation.MergeThreshold,
			BoostFactor:    fc.Consolidation.BoostFactor,
			BoostMinAccess: fc.Consolidation.BoostMinAccess,
		},
	}

	switch fc.Embedding.Provider {
	case "ollama":
		model := fc.Embedding.Model
		if model == "" {
			model = "nomic-embed-text"
		}
		var opts []OllamaOption
		if fc.Embedding.Host != "" {
			opts = append(opts, WithOllamaHost(fc.Embedding.Host))
		}
		dim := fc.Embedding.Dimension
		if dim == 0 {
			dim = EmbeddingDim
		}
		cfg.Embedder = NewOllamaEmbedder(model, dim, opts...)
	case "openai":
		var opts []OpenAIOption
		if fc.Embedding.Model != "" {
			opts = append(opts, WithOpenAIModel(fc.Embedding.Model))
		}
		if fc.Embedding.Dimension != 0 {
			opts = append(opts, WithOpenAIDimension(fc.Embedding.Dimension))
		}
		cfg.Embedder = NewOpenAIEmbedder(fc.Embedding.APIKey, opts...)
	case "gemini", "":
		// nil Embedder: Init builds the default GeminiEmbedder lazily.
	default:
		return Config{}, invalidArgument("embedding.provider", fmt.Sprintf("unknown provider %q", fc.Embedding.Provider))
	}

	return cfg, nil
}
