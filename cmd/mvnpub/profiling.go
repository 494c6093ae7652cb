package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/spf13/pflag"
)

var (
	profileName   string
	profileOutput string
	cpuProfile    *os.File
)

func addProfilingFlags(flags *pflag.FlagSet) {
	flags.StringVar(&profileName, "profile", "none",
		"Name of profile to capture. One of (none|cpu|heap|goroutine|threadcreate|block|mutex)")
	flags.StringVar(&profileOutput, "profile-output", "profile.pprof", "Name of the file to write the profile to")
}

func startProfiling() error {
	switch profileName {
	case "none", "":
		return nil
	case "cpu":
		f, err := os.Create(profileOutput)
		if err != nil {
			return err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return err
		}
		cpuProfile = f
	// Block and mutex profiles need a call to Set{Block,Mutex}ProfileRate to
	// output anything. We choose to sample all events.
	case "block":
		runtime.SetBlockProfileRate(1)
	case "mutex":
		runtime.SetMutexProfileFraction(1)
	default:
		// Check the profile name is valid.
		if profile := pprof.Lookup(profileName); profile == nil {
			return fmt.Errorf("unknown profile '%s'", profileName)
		}
	}
	return nil
}

// stopProfiling writes the selected profile. It runs after every command,
// including failed and interrupted ones.
func stopProfiling() error {
	switch profileName {
	case "none", "":
		return nil
	case "cpu":
		if cpuProfile == nil {
			return nil
		}
		pprof.StopCPUProfile()
		err := cpuProfile.Close()
		cpuProfile = nil
		return err
	case "heap":
		runtime.GC()
	}

	profile := pprof.Lookup(profileName)
	if profile == nil {
		return nil
	}
	f, err := os.Create(profileOutput)
	if err != nil {
		return err
	}
	defer f.Close()
	return profile.WriteTo(f, 0)
}
