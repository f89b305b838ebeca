// Package instagram implements the platform.Collector interface for
// Instagram's web surface.
//
// Profiles come from the web_profile_info JSON endpoint with a scrape of
// the public profile page as fallback. Posts and comments come from the
// persisted GraphQL queries the web app itself issues, paginated by
// cursor. All requests flow through a request executor, which applies
// proxy rotation, rate-limit gating and retry behavior before anything
// reaches Instagram.
//
// Example usage:
//
//	exec := executor.New(cfg, platform.Instagram, pool, limiter, log)
//	collector := instagram.New(exec, cfg, log)
//
//	if err := collector.Authenticate(ctx); err != nil {
//		log.Fatal("session bootstrap failed: " + err.Error())
//	}
//
//	profile, err := collector.CollectProfile(ctx, "@nasa")
//	if err != nil {
//		log.Fatal(err.Error())
//	}
//
//	posts, err := collector.CollectPosts(ctx, profile.ExternalID, 50)
package instagram
