package output

import (
	"fmt"

	"github.com/abdul-hamid-achik/suitecast/packages/core/config"
	"github.com/abdul-hamid-achik/suitecast/packages/event"
)

// Envelope categories sent to remote observers
const (
	CategoryError         = "error"
	CategoryIntro         = "intro"
	CategoryTestSetIntro  = "test_set_intro"
	CategoryTestOutput    = "test_output"
	CategoryTestSetResult = "test_set_result"
	CategoryTotalResult   = "total_result"
	CategoryBuildResult   = "build_result"
)

// Envelope is the JSON message a remote observer receives for one event
type Envelope struct {
	Success  bool   `json:"success"`
	Category string `json:"category"`
	Object   any    `json:"object"`
}

// SetIntroPayload is the object of a test_set_intro envelope
type SetIntroPayload struct {
	ClassName string `json:"class_name"`
	Doc       string `json:"doc"`
}

// TestOutputPayload is the object of a test_output envelope
type TestOutputPayload struct {
	Code         int     `json:"code"`
	ResponseTime float64 `json:"response_time"`
	Doc          string  `json:"doc"`
}

// ExceptionPayload is the object of an error envelope for a dirty failure
type ExceptionPayload struct {
	Exception string `json:"exception"`
}

// SetResultPayload is the object of a test_set_result envelope
type SetResultPayload struct {
	NbTestsPassed int    `json:"nb_tests_passed"`
	NbTestsTotal  int    `json:"nb_tests_total"`
	Percentage    int    `json:"percentage"`
	ClassName     string `json:"class_name"`
}

// TotalResultPayload is the object of a total_result envelope
type TotalResultPayload struct {
	NbTestsPassed int `json:"nb_tests_passed"`
	NbTestsTotal  int `json:"nb_tests_total"`
	Percentage    int `json:"percentage"`
}

// ToStructured converts ev into an envelope carrying its raw fields. Nothing
// is colored or substituted; the observer renders the data itself.
func (f *Formatter) ToStructured(ev event.Event) (Envelope, error) {
	switch e := ev.(type) {
	case event.NoSetFound:
		s, err := f.RenderText(config.KeyErrorNoSetFound, nil)
		if err != nil {
			return Envelope{}, err
		}
		return Envelope{Success: false, Category: CategoryError, Object: s}, nil

	case event.Intro:
		s, err := f.RenderText(config.KeyIntro, nil)
		if err != nil {
			return Envelope{}, err
		}
		return Envelope{Success: true, Category: CategoryIntro, Object: s}, nil

	case event.SetIntro:
		return Envelope{
			Success:  true,
			Category: CategoryTestSetIntro,
			Object:   SetIntroPayload{ClassName: e.SetName, Doc: e.SetDoc},
		}, nil

	case event.TestOutcome:
		return Envelope{
			Success:  e.Success,
			Category: CategoryTestOutput,
			Object: TestOutputPayload{
				Code:         e.ExitCode,
				ResponseTime: e.ElapsedMs,
				Doc:          e.Doc,
			},
		}, nil

	case event.DirtyFailure:
		return Envelope{
			Success:  false,
			Category: CategoryError,
			Object:   ExceptionPayload{Exception: e.ExceptionMessage},
		}, nil

	case event.SetResult:
		pct, err := e.Percentage()
		if err != nil {
			return Envelope{}, err
		}
		return Envelope{
			Success:  true,
			Category: CategoryTestSetResult,
			Object: SetResultPayload{
				NbTestsPassed: e.TestsPassed,
				NbTestsTotal:  e.TestsTotal,
				Percentage:    pct,
				ClassName:     e.SetName,
			},
		}, nil

	case event.TotalResult:
		pct, err := e.Percentage()
		if err != nil {
			return Envelope{}, err
		}
		return Envelope{
			Success:  true,
			Category: CategoryTotalResult,
			Object: TotalResultPayload{
				NbTestsPassed: e.TestsPassed,
				NbTestsTotal:  e.TestsTotal,
				Percentage:    pct,
			},
		}, nil

	case event.BuildResult:
		key := config.KeyBuildOK
		if !e.OK {
			key = config.KeyBuildKO
		}
		s, err := f.RenderText(key, nil)
		if err != nil {
			return Envelope{}, err
		}
		return Envelope{Success: e.OK, Category: CategoryBuildResult, Object: s}, nil
	}

	return Envelope{}, fmt.Errorf("unsupported event %T", ev)
}
