package ctuscan

// Version is the ctuscan release version, overridden at link time with
// -ldflags "-X github.com/nthu-pllab/ctuscan.Version=...".
var Version = "dev"
