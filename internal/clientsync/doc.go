// Package clientsync implements the client-side historical time
// reconstruction: given a running list of non-overlapping server
// intervals observed from the engine status feed, it replays a smooth,
// monotonic server clock against an unreliable client animation-frame
// cadence, softly absorbing jitter via a buffer-health-dependent rate
// and hard-clamping so the reconstructed time never lags the latest
// observed server time by more than HardClampMs (1250 ms).
package clientsync
