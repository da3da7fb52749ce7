package constants

// Application constants
const (
	// Application metadata
	AppName        = "gta-cli"
	AppDescription = "Cost-benefit re-identification game for anonymization decisions"
	AppVersion     = "0.1.0"

	// Environment variable prefix for configuration overrides
	EnvPrefix = "GTA"

	// Default game parameters
	DefaultAdversaryCost    = 4.0
	DefaultAdversaryGain    = 300.0
	DefaultPublisherLoss    = 300.0
	DefaultPublisherBenefit = 1200.0

	// Quality model defaults. A factor of 0.5 weighs generalization and
	// suppression equally.
	DefaultGSFactor = 0.5

	// Reference data defaults
	DefaultDelimiter          = ";"
	DefaultVocabularyName     = "vocabulary.csv"
	DefaultFrequenciesName    = "frequencies.csv"
	DefaultPopulationBasePath = "data"

	// Worker defaults
	DefaultWorkerConcurrency = 4

	// Metrics defaults
	DefaultMetricsNamespace = "gta"
	DefaultMetricsPort      = 9090
	DefaultMetricsPath      = "/metrics"
)

// Log levels
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Log formats
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Attacker models
const (
	AttackerModelProsecutor = "prosecutor"
	AttackerModelJournalist = "journalist"
)

// Reference sources
const (
	SourceTypeFile  = "file"
	SourceTypeS3    = "s3"
	SourceTypeRedis = "redis"
)

// CensusFieldOrder maps the dimensions of the census reference tables to the
// field order of the records: the tables store (race, sex, age, zip) while the
// records carry (sex, zip, age, race). Entry i is the record field stored in
// table dimension i.
var CensusFieldOrder = []int{3, 0, 2, 1}

// Parameter grids used by the sweep command
var (
	SweepAdversaryCost = []float64{1, 1.01, 1.1, 2, 4, 6, 8, 10, 12, 14, 16, 18, 20, 50, 100, 150, 200,
		250, 300, 350, 400, 450, 500, 750, 1000, 1250, 1500, 1750, 2000}
	SweepAdversaryGain = []float64{1, 1.01, 1.1, 2, 4, 6, 8, 10, 12, 14, 16, 18, 20, 50, 100, 150, 200,
		250, 300, 350, 400, 450, 500, 750, 1000, 1250, 1500, 1750, 2000}
	SweepPublisherLoss    = []float64{0, 250, 500, 750, 1000, 1250, 1500, 1750, 2000}
	SweepPublisherBenefit = []float64{250, 500, 750, 1000, 1250, 1500, 1750, 2000}
)
