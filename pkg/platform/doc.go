// Package platform defines the collector contract shared by every
// supported platform, the normalized record shapes collectors produce,
// and the cursor-pagination helper they page with.
//
// Collectors are registered in a Registry keyed by platform identifier;
// the orchestrator looks them up per task and never depends on a
// concrete platform. Normalization isolates platform payload shapes
// behind Profile, Post and Comment so new platforms plug in without
// touching the engine.
package platform
