package runner

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"benchq/internal/settings"
)

// evaluate applies the scenario's validity rules to a finished run. Earlier
// failures (drain timeout, contract violations, missing data) are kept and
// the floors and latency target are checked on top of them.
func (c *Controller) evaluate(res *Result, failures []error) {
	var result *multierror.Error
	for _, err := range failures {
		result = multierror.Append(result, err)
	}

	s := c.settings
	if s.Mode.RunsPerformance() {
		if s.Scenario == settings.Offline {
			if planned := s.OfflineQueryCount(); res.QueryCount < planned {
				result = multierror.Append(result, errors.Errorf(
					"issued %d queries, planned %d", res.QueryCount, planned))
			}
		} else {
			if res.QueryCount < s.MinQueryCount {
				result = multierror.Append(result, errors.Errorf(
					"issued %d queries, minimum is %d", res.QueryCount, s.MinQueryCount))
			}
			if res.Duration < s.MinDuration {
				result = multierror.Append(result, errors.Errorf(
					"ran for %s, minimum is %s", res.Duration, s.MinDuration))
			}
		}

		if got, target, ok := res.TargetLatency(); ok && got > target {
			result = multierror.Append(result, errors.Errorf(
				"p%g latency %s exceeds target %s", s.TargetLatencyPercentile*100, got, target))
		}
	}

	res.Err = result.ErrorOrNil()
	res.Valid = res.Err == nil
	if result != nil {
		for _, err := range result.Errors {
			res.Reasons = append(res.Reasons, err.Error())
		}
	}
}
