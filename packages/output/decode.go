package output

import (
	"fmt"

	"github.com/abdul-hamid-achik/suitecast/packages/event"
	"github.com/tidwall/gjson"
)

// Decode turns an envelope received by a remote observer back into the event
// it was produced from, so the observer can render it locally.
func Decode(data []byte) (event.Event, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("envelope is not valid JSON")
	}

	msg := gjson.ParseBytes(data)
	category := msg.Get("category").String()
	obj := msg.Get("object")

	switch category {
	case CategoryIntro:
		return event.Intro{}, nil

	case CategoryError:
		if obj.IsObject() && obj.Get("exception").Exists() {
			return event.DirtyFailure{ExceptionMessage: obj.Get("exception").String()}, nil
		}
		return event.NoSetFound{}, nil

	case CategoryTestSetIntro:
		return event.SetIntro{
			SetName: obj.Get("class_name").String(),
			SetDoc:  obj.Get("doc").String(),
		}, nil

	case CategoryTestOutput:
		return event.TestOutcome{
			Success:   msg.Get("success").Bool(),
			ExitCode:  int(obj.Get("code").Int()),
			ElapsedMs: obj.Get("response_time").Float(),
			Doc:       obj.Get("doc").String(),
		}, nil

	case CategoryTestSetResult:
		return event.SetResult{
			SetName:     obj.Get("class_name").String(),
			TestsTotal:  int(obj.Get("nb_tests_total").Int()),
			TestsPassed: int(obj.Get("nb_tests_passed").Int()),
		}, nil

	case CategoryTotalResult:
		return event.TotalResult{
			TestsTotal:  int(obj.Get("nb_tests_total").Int()),
			TestsPassed: int(obj.Get("nb_tests_passed").Int()),
		}, nil

	case CategoryBuildResult:
		return event.BuildResult{OK: msg.Get("success").Bool()}, nil
	}

	return nil, fmt.Errorf("unknown envelope category %q", category)
}
