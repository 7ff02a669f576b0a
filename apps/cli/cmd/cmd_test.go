package cmd

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/suitecast/packages/core/config"
	"github.com/abdul-hamid-achik/suitecast/packages/core/runner"
	"github.com/abdul-hamid-achik/suitecast/packages/core/suite"
	"github.com/abdul-hamid-achik/suitecast/packages/output"
	"github.com/abdul-hamid-achik/suitecast/packages/transport/ws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingSuite = `sets:
  - name: usecase1
    doc: first set
    tests:
      - doc: passes
        run: "true"
      - doc: expected failure code
        run: exit 3
        expect_code: 3
`

const failingSuite = `sets:
  - name: broken
    doc: always fails
    tests:
      - doc: fails
        run: "false"
`

func writeSuite(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func resetRunFlags() {
	verboseFlag = 0
	noColorFlag = false
	outputFlag = ""
	configFlag = ""
	rateFlag = 0
	historyFlag = ""
	envFileFlag = ""
	watchFlag = false
	notifyFlag = ""
	notifyOnFlag = ""
	slackWebhookFlag = ""
	slackChannelFlag = ""
}

func TestExitError(t *testing.T) {
	inner := errors.New("bad config")
	err := exitWith(ExitConfigError, inner)

	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "bad config", err.Error())

	silent := exitWith(ExitTestFailure, nil)
	assert.Equal(t, "exit status 1", silent.Error())
}

func TestReportError(t *testing.T) {
	var stderr bytes.Buffer
	rootCmd.SetErr(&stderr)
	defer rootCmd.SetErr(nil)

	assert.Equal(t, ExitTestFailure, reportError(rootCmd, exitWith(ExitTestFailure, nil)))
	assert.Empty(t, stderr.String())

	assert.Equal(t, ExitConfigError, reportError(rootCmd, exitWith(ExitConfigError, errors.New("boom"))))
	assert.Contains(t, stderr.String(), "Error: boom")

	stderr.Reset()
	assert.Equal(t, ExitTestFailure, reportError(rootCmd, errors.New("plain")))
	assert.Contains(t, stderr.String(), "Error: plain")
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("SUITECAST_TEST_STRING", "value")
	t.Setenv("SUITECAST_TEST_BOOL", "yes")
	t.Setenv("SUITECAST_TEST_INT", "12")
	t.Setenv("SUITECAST_TEST_FLOAT", "2.5")
	t.Setenv("SUITECAST_TEST_BAD_INT", "twelve")

	assert.Equal(t, "value", getEnvString("SUITECAST_TEST_STRING", "default"))
	assert.Equal(t, "default", getEnvString("SUITECAST_TEST_MISSING", "default"))
	assert.True(t, getEnvBool("SUITECAST_TEST_BOOL", false))
	assert.Equal(t, 12, getEnvInt("SUITECAST_TEST_INT", 0))
	assert.Equal(t, 7, getEnvInt("SUITECAST_TEST_BAD_INT", 7))
	assert.Equal(t, 2.5, getEnvFloat("SUITECAST_TEST_FLOAT", 0))
}

func TestColorCapable(t *testing.T) {
	assert.False(t, colorCapable(&bytes.Buffer{}, false))
	assert.False(t, colorCapable(os.Stdout, true))
}

func TestToNotifySummary(t *testing.T) {
	s := &runner.Summary{
		Suite:  "api",
		Total:  3,
		Passed: 2,
		Dirty:  1,
		P95:    20 * time.Millisecond,
		Sets: []*runner.SetSummary{
			{Name: "good", Total: 1, Passed: 1},
			{Name: "bad", Total: 2, Passed: 1},
		},
	}

	n := toNotifySummary(s)
	assert.Equal(t, "api", n.Suite)
	assert.Equal(t, 3, n.TotalTests)
	assert.Equal(t, 2, n.PassedTests)
	assert.Equal(t, 1, n.DirtyTests)
	assert.Equal(t, 66, n.Percentage)
	assert.False(t, n.BuildOK)
	require.Len(t, n.FailedSets, 1)
	assert.Equal(t, "bad", n.FailedSets[0].Name)
}

func TestNewNotifyManager(t *testing.T) {
	cfg := config.DefaultConfig()

	m, err := newNotifyManager(testContext(t), cfg, "", nil)
	require.NoError(t, err)
	assert.Nil(t, m)

	_, err = newNotifyManager(testContext(t), cfg, "slack", nil)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, ExitUsageError, exitErr.Code)

	_, err = newNotifyManager(testContext(t), cfg, "pager", nil)
	require.ErrorAs(t, err, &exitErr)

	cfg.Notify.SlackWebhook = "http://127.0.0.1:1/hook"
	m, err = newNotifyManager(testContext(t), cfg, "slack", nil)
	require.NoError(t, err)
	assert.NotNil(t, m)
}

type fakeSource struct {
	messages [][]byte
	err      error
}

func (f *fakeSource) Next() ([]byte, error) {
	if len(f.messages) == 0 {
		if f.err != nil {
			return nil, f.err
		}
		return nil, ws.ErrClosed
	}
	msg := f.messages[0]
	f.messages = f.messages[1:]
	return msg, nil
}

func TestRenderEnvelopes(t *testing.T) {
	f, err := output.NewFormatter(config.DefaultTable())
	require.NoError(t, err)

	src := &fakeSource{messages: [][]byte{
		[]byte(`{"success":true,"category":"intro","object":"Launching tests\n"}`),
		[]byte(`not json`),
		[]byte(`{"success":true,"category":"test_output","object":{"code":0,"response_time":12,"doc":"ping"}}`),
		[]byte(`{"success":true,"category":"total_result","object":{"nb_tests_passed":1,"nb_tests_total":1,"percentage":100}}`),
		[]byte(`{"success":true,"category":"build_result","object":"\n\n  [BUILD: OK]\n\n"}`),
	}}

	var out bytes.Buffer
	ok, err := renderEnvelopes(src, f, &out, false)
	require.NoError(t, err)
	assert.True(t, ok)

	text := out.String()
	assert.Contains(t, text, "Launching tests")
	assert.Contains(t, text, "[OK] [code : 0] [12ms] ping")
	assert.Contains(t, text, "Total : 1 / 1 successful tests (100%)")
	assert.Contains(t, text, "[BUILD: OK]")
}

func TestRenderEnvelopes_BuildKO(t *testing.T) {
	f, err := output.NewFormatter(config.DefaultTable())
	require.NoError(t, err)

	src := &fakeSource{messages: [][]byte{
		[]byte(`{"success":false,"category":"build_result","object":"KO"}`),
	}}
	ok, err := renderEnvelopes(src, f, &bytes.Buffer{}, false)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRenderEnvelopes_ConnectionLost(t *testing.T) {
	f, err := output.NewFormatter(config.DefaultTable())
	require.NoError(t, err)

	lost := errors.New("connection reset")
	_, err = renderEnvelopes(&fakeSource{err: lost}, f, &bytes.Buffer{}, false)
	assert.ErrorIs(t, err, lost)
}

func TestRenderEnvelopes_EveryBuildMustPass(t *testing.T) {
	f, err := output.NewFormatter(config.DefaultTable())
	require.NoError(t, err)

	koThenOK := &fakeSource{messages: [][]byte{
		[]byte(`{"success":false,"category":"build_result","object":"KO"}`),
		[]byte(`{"success":true,"category":"build_result","object":"OK"}`),
	}}
	ok, err := renderEnvelopes(koThenOK, f, &bytes.Buffer{}, false)
	require.NoError(t, err)
	assert.False(t, ok)

	allOK := &fakeSource{messages: [][]byte{
		[]byte(`{"success":true,"category":"build_result","object":"OK"}`),
		[]byte(`{"success":true,"category":"build_result","object":"OK"}`),
	}}
	ok, err = renderEnvelopes(allOK, f, &bytes.Buffer{}, false)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = renderEnvelopes(&fakeSource{}, f, &bytes.Buffer{}, false)
	require.NoError(t, err)
	assert.False(t, ok, "a run without any build signal is not OK")
}

func TestRenderEnvelopes_Aborted(t *testing.T) {
	f, err := output.NewFormatter(config.DefaultTable())
	require.NoError(t, err)

	src := &fakeSource{
		messages: [][]byte{[]byte(`{"success":true,"category":"build_result","object":"OK"}`)},
		err:      &ws.AbortedError{Reason: "b.suite.yaml: bad yaml"},
	}
	ok, err := renderEnvelopes(src, f, &bytes.Buffer{}, false)
	assert.False(t, ok)

	var aborted *ws.AbortedError
	require.ErrorAs(t, err, &aborted)
}

func TestObserveResult(t *testing.T) {
	assert.NoError(t, observeResult(true, nil))

	tests := []struct {
		name    string
		buildOK bool
		err     error
		code    int
	}{
		{"build KO", false, nil, ExitTestFailure},
		{"aborted after an OK build", true, &ws.AbortedError{Reason: "parse error"}, ExitTestFailure},
		{"connection lost", true, errors.New("connection reset"), ExitNetworkError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var exitErr *ExitError
			require.ErrorAs(t, observeResult(tt.buildOK, tt.err), &exitErr)
			assert.Equal(t, tt.code, exitErr.Code)
		})
	}
}

func TestSessionHandler_AbortsOnParseError(t *testing.T) {
	dir := t.TempDir()
	good := writeSuite(t, dir, "a.suite.yaml", passingSuite)
	broken := writeSuite(t, dir, "b.suite.yaml", "sets: [oops")

	server := ws.NewServer(newSessionHandler([]string{good, broken}, config.DefaultTable(), &runner.Config{}, nil))
	mux := http.NewServeMux()
	server.SetupRoutes(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	in, err := ws.Dial(testContext(t), "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", "", 0)
	require.NoError(t, err)
	defer in.Close()

	f, err := output.NewFormatter(config.DefaultTable())
	require.NoError(t, err)

	var out bytes.Buffer
	ok, err := renderEnvelopes(in, f, &out, false)
	assert.False(t, ok)
	assert.Contains(t, out.String(), "[BUILD: OK]")

	var aborted *ws.AbortedError
	require.ErrorAs(t, err, &aborted)
	assert.NotEmpty(t, aborted.Reason)

	var exitErr *ExitError
	require.ErrorAs(t, observeResult(ok, err), &exitErr)
	assert.Equal(t, ExitTestFailure, exitErr.Code)

	server.Wait()
}

func TestInitProject(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	initCmd.SetOut(&out)
	defer initCmd.SetOut(nil)

	require.NoError(t, initProject(initCmd, dir))
	assert.Contains(t, out.String(), "suitecast project initialized!")

	cfg, err := config.LoadConfig(filepath.Join(dir, ".suitecast.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultTable().Strings(), cfg.Table().Strings())

	s, err := suite.ParseFile(filepath.Join(dir, "example.suite.yaml"))
	require.NoError(t, err)
	assert.Len(t, s.Sets, 2)

	err = initProject(initCmd, dir)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, ExitUsageError, exitErr.Code)
}

func TestRunCommand_Terminal(t *testing.T) {
	resetRunFlags()
	defer resetRunFlags()

	dir := t.TempDir()
	path := writeSuite(t, dir, "ok.suite.yaml", passingSuite)

	var out bytes.Buffer
	runCmd.SetOut(&out)
	defer runCmd.SetOut(nil)
	verboseFlag = 2

	require.NoError(t, runCommand(runCmd, []string{path}))

	text := out.String()
	assert.Contains(t, text, "Launching tests")
	assert.Contains(t, text, "usecase1: first set")
	assert.Contains(t, text, "[OK] [code : 3]")
	assert.Contains(t, text, "Total for usecase1 : 2 / 2 successful tests (100%)")
	assert.Contains(t, text, "Total : 2 / 2 successful tests (100%)")
	assert.Contains(t, text, "[BUILD: OK]")
	assert.NotContains(t, text, "\x1b[")
}

func TestRunCommand_FailureExitCode(t *testing.T) {
	resetRunFlags()
	defer resetRunFlags()

	dir := t.TempDir()
	path := writeSuite(t, dir, "bad.suite.yaml", failingSuite)

	var out bytes.Buffer
	runCmd.SetOut(&out)
	defer runCmd.SetOut(nil)

	err := runCommand(runCmd, []string{path})
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, ExitTestFailure, exitErr.Code)
	assert.Contains(t, out.String(), "[BUILD: KO]")
	assert.NotContains(t, out.String(), "Total for broken")
}

func TestRunCommand_StreamWithHistory(t *testing.T) {
	resetRunFlags()
	defer resetRunFlags()

	dir := t.TempDir()
	path := writeSuite(t, dir, "ok.suite.yaml", passingSuite)

	var out bytes.Buffer
	runCmd.SetOut(&out)
	defer runCmd.SetOut(nil)
	outputFlag = "stream"
	verboseFlag = 1
	historyFlag = filepath.Join(dir, "runs.db")

	require.NoError(t, runCommand(runCmd, []string{path}))

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 5)
	assert.Contains(t, string(lines[0]), `"category":"intro"`)
	assert.Contains(t, string(lines[1]), `"category":"test_set_intro"`)
	assert.Contains(t, string(lines[2]), `"category":"test_set_result"`)
	assert.Contains(t, string(lines[3]), `"category":"total_result"`)
	assert.Contains(t, string(lines[4]), `"category":"build_result"`)

	store, err := openHistory(historyFlag)
	require.NoError(t, err)
	defer store.Close()

	last, err := store.Last(testContext(t), "")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, 2, last.Total)
	assert.True(t, last.BuildOK)
}

func TestRunCommand_NoFiles(t *testing.T) {
	resetRunFlags()
	defer resetRunFlags()

	err := runCommand(runCmd, []string{t.TempDir()})
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, ExitUsageError, exitErr.Code)
}

func TestRunCommand_UnknownOutput(t *testing.T) {
	resetRunFlags()
	defer resetRunFlags()
	outputFlag = "xml"

	dir := t.TempDir()
	path := writeSuite(t, dir, "ok.suite.yaml", passingSuite)

	err := runCommand(runCmd, []string{path})
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, ExitUsageError, exitErr.Code)
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	writeSuite(t, dir, "ok.suite.yaml", passingSuite)
	writeSuite(t, dir, "bad.suite.yaml", "sets:\n  - name: x\n")

	var out, errOut bytes.Buffer
	validateCmd.SetOut(&out)
	validateCmd.SetErr(&errOut)
	defer validateCmd.SetOut(nil)
	defer validateCmd.SetErr(nil)

	err := validateCommand(validateCmd, []string{dir})
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, ExitParseError, exitErr.Code)
	assert.Contains(t, out.String(), "ok.suite.yaml")
	assert.Contains(t, out.String()+errOut.String(), "bad.suite.yaml")
}

func TestListCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeSuite(t, dir, "ok.suite.yaml", passingSuite)

	var out bytes.Buffer
	listCmd.SetOut(&out)
	defer listCmd.SetOut(nil)

	require.NoError(t, listCommand(listCmd, []string{path}))
	assert.Contains(t, out.String(), "(2 tests)")
	assert.Contains(t, out.String(), "usecase1: first set")
	assert.Contains(t, out.String(), "- expected failure code")
}

func TestRunCommand_EnvFile(t *testing.T) {
	resetRunFlags()
	defer resetRunFlags()

	dir := t.TempDir()
	path := writeSuite(t, dir, "env.suite.yaml", `sets:
  - name: env
    tests:
      - doc: sees the env file
        run: test "$GREETING" = "hello world"
`)
	envFileFlag = filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFileFlag, []byte(`GREETING="hello world"`), 0644))

	var out bytes.Buffer
	runCmd.SetOut(&out)
	defer runCmd.SetOut(nil)

	require.NoError(t, runCommand(runCmd, []string{path}))
	assert.Contains(t, out.String(), "[BUILD: OK]")
}

func TestTestEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("HOST=localhost\nPORT=80"), 0644))

	cfg := config.DefaultConfig()
	cfg.EnvFile = envFile
	cfg.Env = map[string]string{"URL": "http://${HOST}:8080", "PORT": "8080"}

	vars, err := testEnv(cfg)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"HOST": "localhost",
		"PORT": "8080",
		"URL":  "http://localhost:8080",
	}, vars)

	cfg.EnvFile = filepath.Join(dir, "missing.env")
	_, err = testEnv(cfg)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, ExitConfigError, exitErr.Code)
}

// testContext stands in for testing.T.Context (Go 1.24+): the returned
// context is canceled when the test finishes.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
