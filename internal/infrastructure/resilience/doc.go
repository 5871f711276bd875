/*
Package resilience provides a circuit breaker for calls into the host platform.

The bridge wraps every application registry query and launch request in a
Breaker. When the platform keeps failing (registry unreadable, launcher
missing) the breaker opens and further calls fail fast with ErrCircuitOpen,
which the dispatcher reports as a PlatformError instead of blocking the
channel on a broken dependency.

Negative answers ("not installed", "not launchable") are successes as far as
the breaker is concerned. Only errors count as failures, and context.Canceled
is never counted as one.

# Usage

	breaker := resilience.New("registry", resilience.Settings{
		Timeout:     30 * time.Second,
		ReadyToTrip: resilience.ConsecutiveFailures(5),
	})

	err := breaker.Do(ctx, func(ctx context.Context) error {
		found, err = registry.IsInstalled(ctx, id)
		return err
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           v
	                                         Open
*/
package resilience
