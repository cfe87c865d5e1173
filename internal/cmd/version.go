package cmd

// Version is the plugwatch release version, overridden at build time:
//
//	go build -ldflags "-X github.com/plugwatch/plugwatch/internal/cmd.Version=v0.4.0"
var Version = "0.3.0"
