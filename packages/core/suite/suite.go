package suite

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Suite is a parsed suite file
type Suite struct {
	Path string `yaml:"-"`
	Name string `yaml:"name,omitempty"`
	Sets []*Set `yaml:"sets"`
}

// Set is a named group of tests reported together
type Set struct {
	Name  string  `yaml:"name"`
	Doc   string  `yaml:"doc,omitempty"`
	Tests []*Test `yaml:"tests"`
}

// Test is a single shell command. It passes when it exits with ExpectCode.
type Test struct {
	Doc        string            `yaml:"doc"`
	Run        string            `yaml:"run"`
	ExpectCode int               `yaml:"expect_code,omitempty"`
	Timeout    time.Duration     `yaml:"timeout,omitempty"`
	Dir        string            `yaml:"dir,omitempty"`
	Env        map[string]string `yaml:"env,omitempty"`
}

// TestCount returns the number of tests across all sets
func (s *Suite) TestCount() int {
	n := 0
	for _, set := range s.Sets {
		n += len(set.Tests)
	}
	return n
}

// DisplayName returns the suite name, falling back to the file name
func (s *Suite) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	if s.Path != "" {
		return strings.TrimSuffix(filepath.Base(s.Path), filepath.Ext(s.Path))
	}
	return "suite"
}

// Parse validates and decodes suite data
func Parse(data []byte) (*Suite, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}

	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding suite: %w", err)
	}
	return &s, nil
}

// ParseFile reads and parses the suite at path. Relative test directories
// are resolved against the suite file's directory.
func ParseFile(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Path = path

	baseDir := filepath.Dir(path)
	for _, set := range s.Sets {
		for _, t := range set.Tests {
			switch {
			case t.Dir == "":
				t.Dir = baseDir
			case !filepath.IsAbs(t.Dir):
				t.Dir = filepath.Join(baseDir, t.Dir)
			}
		}
	}
	return s, nil
}

// IsSuiteFile reports whether path looks like a suite file
func IsSuiteFile(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	return strings.HasSuffix(base, ".suite.yaml") || strings.HasSuffix(base, ".suite.yml")
}

// CollectFiles expands files and directories into the list of suite files
func CollectFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		err = filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && IsSuiteFile(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return files, nil
}
