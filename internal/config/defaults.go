package config

const (
	defaultEntrezBaseURL        = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	defaultEntrezTool           = "genomefetch"
	defaultSearchDB             = "bioproject"
	defaultAssemblyDB           = "assembly"
	defaultMaxRecords           = 1000
	defaultEntrezTimeoutSeconds = 120
	defaultArchiveBaseURL       = "ftp://ftp.ncbi.nlm.nih.gov/genomes/all"
	defaultArchiveLayout        = LayoutFlat
	defaultArchiveTimeout       = 300
	defaultOutputDir            = "."
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Archive path layouts.
const (
	// LayoutFlat places assembly folders directly under the archive root.
	LayoutFlat = "flat"
	// LayoutNested places assembly folders under GCA/000/000/000/ style prefixes.
	LayoutNested = "nested"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Entrez: Entrez{
			BaseURL:        defaultEntrezBaseURL,
			Tool:           defaultEntrezTool,
			SearchDB:       defaultSearchDB,
			AssemblyDB:     defaultAssemblyDB,
			MaxRecords:     defaultMaxRecords,
			TimeoutSeconds: defaultEntrezTimeoutSeconds,
		},
		Archive: Archive{
			BaseURL:        defaultArchiveBaseURL,
			Layout:         defaultArchiveLayout,
			TimeoutSeconds: defaultArchiveTimeout,
		},
		Output: Output{
			Dir: defaultOutputDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
