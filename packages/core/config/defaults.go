package config

// Template keys
const (
	KeyIntro            = "intro"
	KeySetResult        = "setResult"
	KeyTotalResult      = "totalResult"
	KeyBuildOK          = "buildOk"
	KeyBuildKO          = "buildKo"
	KeyTestOutputFormat = "testOutputFormat"
	KeyTestSuccess      = "testSuccess"
	KeyTestFailure      = "testFailure"
	KeyTestDirtyFailure = "testDirtyFailure"
	KeyErrorNoSetFound  = "errorNoSetFound"
)

// Color categories
const (
	CategoryIntro            = "intro"
	CategorySetIntro         = "setIntro"
	CategorySetResult        = "setResult"
	CategoryTotalResult      = "totalResult"
	CategoryBuildOK          = "buildOk"
	CategoryBuildKO          = "buildKo"
	CategoryTestSuccess      = "testSuccess"
	CategoryTestFailure      = "testFailure"
	CategoryTestDirtyFailure = "testDirtyFailure"
	CategoryErrors           = "errors"
)

var defaultStrings = map[string]string{
	KeyIntro:            "Launching tests\n",
	KeySetResult:        "Total for {className} : {nb_tests_passed} / {nb_tests_total} successful tests ({percent}%)\n---\n",
	KeyTotalResult:      "Total : {nb_tests_passed} / {nb_tests_total} successful tests ({percent}%)",
	KeyBuildOK:          "\n\n  [BUILD: OK]\n\n",
	KeyBuildKO:          "\n\n  [BUILD: KO]\n\n",
	KeyTestOutputFormat: "[{success}] [code : {return_code}] [{elapsed}ms] {doc}",
	KeyTestSuccess:      "OK",
	KeyTestFailure:      "KO",
	KeyTestDirtyFailure: "[KO] [DIRTY]",
	KeyErrorNoSetFound:  "No tests found. Exiting.",
}

var defaultColors = map[string]string{
	CategoryIntro:            "magenta",
	CategorySetIntro:         "cyan",
	CategorySetResult:        "cyan",
	CategoryTotalResult:      "magenta",
	CategoryBuildOK:          "green",
	CategoryBuildKO:          "red",
	CategoryTestSuccess:      "green",
	CategoryTestFailure:      "red",
	CategoryTestDirtyFailure: "red",
	CategoryErrors:           "red",
}

// DefaultTable returns the stock templates and colors
func DefaultTable() Table {
	return NewTable(defaultStrings, defaultColors)
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Verbosity: 0,
		NoColor:   BoolPtr(false),
		Output:    "terminal",
		Server: ServerConfig{
			Addr: "127.0.0.1:8765",
		},
		Notify: NotifyConfig{
			On: "failure",
		},
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.Verbosity == defaults.Verbosity &&
		c.GetNoColor() == defaults.GetNoColor() &&
		c.Output == defaults.Output &&
		c.Rate == defaults.Rate &&
		c.History == defaults.History &&
		c.EnvFile == "" &&
		len(c.Env) == 0 &&
		c.Server.Addr == defaults.Server.Addr &&
		c.Server.Token == "" &&
		c.Notify.On == defaults.Notify.On &&
		c.Notify.SlackWebhook == "" &&
		len(c.Strings) == 0 &&
		len(c.Colors) == 0
}
