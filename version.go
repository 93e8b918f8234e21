package silt

// Version is the library version. Overridden at build time via
// -ldflags "-X github.com/aretw0/silt.Version=v1.2.3".
var Version = "dev"
