package version

// Version is overridden at build time with
// -ldflags "-X github.com/birmacher/dealing-with-ai/version.Version=..."
var Version = "0.1.0"
