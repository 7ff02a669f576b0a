package output

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/suitecast/packages/core/config"
	"github.com/abdul-hamid-achik/suitecast/packages/event"
)

// Params holds the named values substituted into a template
type Params map[string]any

// TemplateKeyError is returned when a template is missing from the table.
// It is a configuration bug, not something a caller can recover from.
type TemplateKeyError struct {
	Key string
}

func (e *TemplateKeyError) Error() string {
	return fmt.Sprintf("template %q not found in string table", e.Key)
}

// RequiredKeys lists every template the reporters render from
var RequiredKeys = []string{
	config.KeyIntro,
	config.KeySetResult,
	config.KeyTotalResult,
	config.KeyBuildOK,
	config.KeyBuildKO,
	config.KeyTestOutputFormat,
	config.KeyTestSuccess,
	config.KeyTestFailure,
	config.KeyTestDirtyFailure,
	config.KeyErrorNoSetFound,
}

// Formatter turns events into terminal text or structured envelopes. It keeps
// no state besides the lookup table it was built from.
type Formatter struct {
	table  config.Table
	colors map[string]ColorToken
}

// NewFormatter creates a formatter over table. Every color name in the table
// must be a known color.
func NewFormatter(table config.Table) (*Formatter, error) {
	f := &Formatter{
		table:  table,
		colors: make(map[string]ColorToken),
	}
	for category, name := range table.Colors() {
		c, err := ParseColor(name)
		if err != nil {
			return nil, fmt.Errorf("color for %q: %w", category, err)
		}
		f.colors[category] = c
	}
	return f, nil
}

// Validate checks that every required template is present, returning a
// *TemplateKeyError for the first missing one.
func (f *Formatter) Validate() error {
	for _, key := range RequiredKeys {
		if _, ok := f.table.String(key); !ok {
			return &TemplateKeyError{Key: key}
		}
	}
	return nil
}

// RenderText looks up the template registered under key and substitutes
// {name} placeholders with params. Placeholders without a value are kept.
func (f *Formatter) RenderText(key string, params Params) (string, error) {
	tmpl, ok := f.table.String(key)
	if !ok {
		return "", &TemplateKeyError{Key: key}
	}
	if len(params) == 0 {
		return tmpl, nil
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, 2*len(names))
	for _, name := range names {
		pairs = append(pairs, "{"+name+"}", formatParam(params[name]))
	}
	return strings.NewReplacer(pairs...).Replace(tmpl), nil
}

func formatParam(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	}
	return fmt.Sprint(v)
}

// Colorize wraps text in the escape sequence of the category's color when
// colorCapable is set. Unmapped categories use DefaultColor.
func (f *Formatter) Colorize(text, category string, colorCapable bool) string {
	if !colorCapable {
		return text
	}
	c, ok := f.colors[category]
	if !ok {
		c = DefaultColor
	}
	return c.Wrap(text)
}

// Text renders ev the way the terminal shows it
func (f *Formatter) Text(ev event.Event, colorCapable bool) (string, error) {
	switch e := ev.(type) {
	case event.NoSetFound:
		s, err := f.RenderText(config.KeyErrorNoSetFound, nil)
		if err != nil {
			return "", err
		}
		return f.Colorize(s, config.CategoryErrors, colorCapable), nil

	case event.Intro:
		s, err := f.RenderText(config.KeyIntro, nil)
		if err != nil {
			return "", err
		}
		return f.Colorize(s, config.CategoryIntro, colorCapable), nil

	case event.SetIntro:
		return f.Colorize(e.SetName+": "+e.SetDoc, config.CategorySetIntro, colorCapable), nil

	case event.TestOutcome:
		statusKey, statusCategory := config.KeyTestSuccess, config.CategoryTestSuccess
		if !e.Success {
			statusKey, statusCategory = config.KeyTestFailure, config.CategoryTestFailure
		}
		status, err := f.RenderText(statusKey, nil)
		if err != nil {
			return "", err
		}
		return f.RenderText(config.KeyTestOutputFormat, Params{
			"success":     f.Colorize(status, statusCategory, colorCapable),
			"return_code": e.ExitCode,
			"elapsed":     e.ElapsedMs,
			"doc":         e.Doc,
		})

	case event.DirtyFailure:
		status, err := f.RenderText(config.KeyTestDirtyFailure, nil)
		if err != nil {
			return "", err
		}
		return f.Colorize(status, config.CategoryTestDirtyFailure, colorCapable) + " " + e.ExceptionMessage, nil

	case event.SetResult:
		pct, err := e.Percentage()
		if err != nil {
			return "", err
		}
		s, err := f.RenderText(config.KeySetResult, Params{
			"className":       e.SetName,
			"nb_tests_passed": e.TestsPassed,
			"nb_tests_total":  e.TestsTotal,
			"percent":         pct,
		})
		if err != nil {
			return "", err
		}
		return f.Colorize(s, config.CategorySetResult, colorCapable), nil

	case event.TotalResult:
		pct, err := e.Percentage()
		if err != nil {
			return "", err
		}
		s, err := f.RenderText(config.KeyTotalResult, Params{
			"nb_tests_passed": e.TestsPassed,
			"nb_tests_total":  e.TestsTotal,
			"percent":         pct,
		})
		if err != nil {
			return "", err
		}
		return f.Colorize(s, config.CategoryTotalResult, colorCapable), nil

	case event.BuildResult:
		key, category := config.KeyBuildOK, config.CategoryBuildOK
		if !e.OK {
			key, category = config.KeyBuildKO, config.CategoryBuildKO
		}
		s, err := f.RenderText(key, nil)
		if err != nil {
			return "", err
		}
		return f.Colorize(s, category, colorCapable), nil
	}

	return "", fmt.Errorf("unsupported event %T", ev)
}
