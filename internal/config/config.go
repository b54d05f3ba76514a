// Package config loads ragsum's configuration surface (spec.md §6) via
// viper + godotenv, the same stack the teacher repo uses.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the full configuration surface.
type Config struct {
	App       App       `mapstructure:"app"`
	AI        AI        `mapstructure:"ai"`
	Extraction Extraction `mapstructure:"extraction"`
	Retrieval Retrieval `mapstructure:"retrieval"`
	BertRAG   BertRAG   `mapstructure:"bert_rag"`
	Template  Template  `mapstructure:"template"`
	Logging   Logging   `mapstructure:"logging"`
}

// App holds general application configuration.
type App struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	DataDir  string `mapstructure:"data_dir"`
}

// AI holds the embedder/generator model configuration.
type AI struct {
	Gemini GeminiConfig `mapstructure:"gemini"`
}

// GeminiConfig configures the google.golang.org/genai backed Embedder/Generator.
type GeminiConfig struct {
	APIKey         string  `mapstructure:"api_key"`
	Model          string  `mapstructure:"model"`
	EmbeddingModel string  `mapstructure:"embedding_model"`
	Temperature    float32 `mapstructure:"temperature"`
	MaxRetries     int     `mapstructure:"max_retries"`
}

// Extraction configures SegmentExtractor behavior.
type Extraction struct {
	MMRLambda         float64 `mapstructure:"mmr_lambda"`
	ExtractionRatio   float64 `mapstructure:"extraction_ratio"`
	MinSegments       int     `mapstructure:"min_segments"`
	MaxSegments       int     `mapstructure:"max_segments"`
	FallbackBucketSize int    `mapstructure:"fallback_bucket_size"`
	IncludeCodeBlocks bool    `mapstructure:"include_code_blocks"`
	IncludeListItems  bool    `mapstructure:"include_list_items"`
}

// Retrieval configures the Retriever's fusion strategy and bounds.
type Retrieval struct {
	Alpha              float64 `mapstructure:"alpha"`
	TopK               int     `mapstructure:"top_k"`
	MinTopK            int     `mapstructure:"min_top_k"`
	MaxTopK            int     `mapstructure:"max_top_k"`
	UseRRF             bool    `mapstructure:"use_rrf"`
	UseHybridSearch    bool    `mapstructure:"use_hybrid_search"`
	RRFK               int     `mapstructure:"rrf_k"`
	FallbackCount      int     `mapstructure:"fallback_count"`
	MinSimilarity      float64 `mapstructure:"min_similarity"`
	AdaptiveTopK       bool    `mapstructure:"adaptive_top_k"`
	MinCoveragePercent float64 `mapstructure:"min_coverage_percent"`
	NarrativeBoost     float64 `mapstructure:"narrative_boost"`
}

// BertRAG configures the VectorStore backend and persistence behavior.
type BertRAG struct {
	CollectionName          string `mapstructure:"collection_name"`
	PersistVectors          bool   `mapstructure:"persist_vectors"`
	ReuseExistingEmbeddings bool   `mapstructure:"reuse_existing_embeddings"`
	VectorStoreBackend      string `mapstructure:"vector_store_backend"` // "memory" | "sqlite" | "pgvector"
	PostgresDSN             string `mapstructure:"postgres_dsn"`
	SQLitePath              string `mapstructure:"sqlite_path"`
}

// Template configures the default SummaryTemplate.
type Template struct {
	Name                    string `mapstructure:"name"`
	TargetWords             int    `mapstructure:"target_words"`
	OutputStyle             string `mapstructure:"output_style"`
	IncludeCoverageMetadata bool   `mapstructure:"include_coverage_metadata"`
	ExecutivePromptTemplate string `mapstructure:"executive_prompt_template"`
}

// Logging configures the zerolog-backed logger.
type Logging struct {
	Level string `mapstructure:"level"`
}

var globalConfig *Config

// Load reads configuration from an explicit config file (or a
// `.ragsum.yaml` in the working directory or home), environment variables,
// and defaults; environment variables override file values, which
// override defaults. A `.env` file in the working directory is loaded
// first if present, matching the teacher's bootstrap.
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("warning: error loading .env file: %v\n", err)
		}
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
		v.SetConfigName(".ragsum")
		v.SetConfigType("yaml")
	}

	setDefaults(v)
	bindEnvironmentVariables(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := postProcessConfig(config); err != nil {
		return nil, fmt.Errorf("error post-processing config: %w", err)
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it with defaults if
// Load has not yet been called.
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// Reset clears the cached global config; used by tests.
func Reset() {
	globalConfig = nil
}

func postProcessConfig(config *Config) error {
	if config.App.DataDir != "" && strings.HasPrefix(config.App.DataDir, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			config.App.DataDir = filepath.Join(home, strings.TrimPrefix(config.App.DataDir, "~"))
		}
	}
	if config.AI.Gemini.APIKey == "" {
		for _, envKey := range []string{"GEMINI_API_KEY", "GOOGLE_GEMINI_API_KEY", "GOOGLE_AI_API_KEY"} {
			if v := os.Getenv(envKey); v != "" {
				config.AI.Gemini.APIKey = v
				break
			}
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.debug", false)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.data_dir", "~/.docsummarizer")

	v.SetDefault("ai.gemini.model", "gemini-flash-lite-latest")
	v.SetDefault("ai.gemini.embedding_model", "gemini-embedding-001")
	v.SetDefault("ai.gemini.temperature", 0.3)
	v.SetDefault("ai.gemini.max_retries", 3)

	v.SetDefault("extraction.mmr_lambda", 0.5)
	v.SetDefault("extraction.extraction_ratio", 0.3)
	v.SetDefault("extraction.min_segments", 5)
	v.SetDefault("extraction.max_segments", 200)
	v.SetDefault("extraction.fallback_bucket_size", 50)
	v.SetDefault("extraction.include_code_blocks", true)
	v.SetDefault("extraction.include_list_items", true)

	v.SetDefault("retrieval.alpha", 0.6)
	v.SetDefault("retrieval.top_k", 10)
	v.SetDefault("retrieval.min_top_k", 3)
	v.SetDefault("retrieval.max_top_k", 30)
	v.SetDefault("retrieval.use_rrf", true)
	v.SetDefault("retrieval.use_hybrid_search", false)
	v.SetDefault("retrieval.rrf_k", 60)
	v.SetDefault("retrieval.fallback_count", 3)
	v.SetDefault("retrieval.min_similarity", 0.0)
	v.SetDefault("retrieval.adaptive_top_k", false)
	v.SetDefault("retrieval.min_coverage_percent", 15.0)
	v.SetDefault("retrieval.narrative_boost", 1.2)

	v.SetDefault("bert_rag.collection_name", "ragsum_default")
	v.SetDefault("bert_rag.persist_vectors", true)
	v.SetDefault("bert_rag.reuse_existing_embeddings", true)
	v.SetDefault("bert_rag.vector_store_backend", "sqlite")
	v.SetDefault("bert_rag.sqlite_path", "~/.docsummarizer/vectors.db")

	v.SetDefault("template.name", "default")
	v.SetDefault("template.target_words", 200)
	v.SetDefault("template.output_style", "prose")
	v.SetDefault("template.include_coverage_metadata", true)

	v.SetDefault("logging.level", "info")
}

func bindEnvironmentVariables(v *viper.Viper) {
	bindEnvKeys(v, "ai.gemini.api_key", []string{"GEMINI_API_KEY", "GOOGLE_GEMINI_API_KEY", "GOOGLE_AI_API_KEY"})
	bindEnvKeys(v, "app.log_level", []string{"RAGSUM_LOG_LEVEL"})
	bindEnvKeys(v, "bert_rag.postgres_dsn", []string{"RAGSUM_POSTGRES_DSN", "DATABASE_URL"})
}

func bindEnvKeys(v *viper.Viper, viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		_ = v.BindEnv(viperKey, envKey)
	}
}

func GetExtraction() Extraction     { return Get().Extraction }
func GetRetrieval() Retrieval       { return Get().Retrieval }
func GetBertRAG() BertRAG           { return Get().BertRAG }
func GetTemplate() Template         { return Get().Template }
func GetLogging() Logging           { return Get().Logging }
func GetAIGemini() GeminiConfig     { return Get().AI.Gemini }
func IsDebugMode() bool             { return Get().App.Debug }
