package logger

import "time"

// Timed runs op and logs how long it took: Debug on success, Error on
// failure. The value and error pass through unchanged, so it composes
// around any monitor call without altering its result.
func Timed[T any](log Logger, name string, op func() (T, error)) (T, error) {
	start := time.Now()
	value, err := op()
	elapsed := time.Since(start).Round(time.Millisecond)
	if err != nil {
		log.Error("%s failed after %s: %v", name, elapsed, err)
		return value, err
	}
	log.Debug("%s completed in %s", name, elapsed)
	return value, nil
}
