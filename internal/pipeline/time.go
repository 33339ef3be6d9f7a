package pipeline

import "time"

// timeNow is a package-level variable for testability.
// Tests replace it to get stable run timestamps and latencies.
var timeNow = time.Now
