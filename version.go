// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Heavily inspired by https://github.com/btcsuite/btcd/blob/master/version.go
// Copyright (C) 2015-2022 The Lightning Network Developers

package udtforge

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Commit is the commit this binary was built from. It can be set with
// -ldflags, otherwise it is taken from the VCS stamp of the build.
var Commit string

const (
	AppMajor uint = 0
	AppMinor uint = 1
	AppPatch uint = 0

	// AppStatus is the release status, e.g. alpha or beta.
	AppStatus = "alpha"

	// AppPreRelease must only hold runes of semverAlphabet.
	AppPreRelease = ""

	// semverAlphabet is what pre-release fields may contain.
	semverAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

	// initiatorAlphabet is what the initiator of a user agent may
	// contain.
	initiatorAlphabet = semverAlphabet + "-. "

	agentName = "udtforge"

	// maxInitiatorLen bounds the initiator part of the user agent.
	maxInitiatorLen = 150
)

func init() {
	if Commit != "" {
		return
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	var revision, dirty string
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			if setting.Value == "true" {
				dirty = "-dirty"
			}
		}
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	if revision != "" {
		Commit = revision + dirty
	}
}

// keepRunes drops every rune of s that isn't in alphabet.
func keepRunes(s, alphabet string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(alphabet, r) {
			return r
		}

		return -1
	}, s)
}

// semanticVersion returns major.minor.patch with the status and pre-release
// fields appended, e.g. 0.1.0-alpha.
func semanticVersion() string {
	version := fmt.Sprintf("%d.%d.%d", AppMajor, AppMinor, AppPatch)

	var pre []string
	for _, field := range []string{AppStatus, AppPreRelease} {
		if field := keepRunes(field, semverAlphabet); field != "" {
			pre = append(pre, field)
		}
	}
	if len(pre) == 0 {
		return version
	}

	return version + "-" + strings.Join(pre, ".")
}

// Version returns the version shown by the CLI.
func Version() string {
	return fmt.Sprintf("%s commit=%s", semanticVersion(), Commit)
}

// UserAgent returns the user agent sent to the node with every RPC call.
// Runes outside a small safe alphabet are dropped from the initiator.
func UserAgent(initiator string) string {
	var agent strings.Builder
	fmt.Fprintf(&agent, "%s/v%s/commit=%s", agentName, semanticVersion(),
		Commit)

	initiator = keepRunes(strings.TrimSpace(initiator), initiatorAlphabet)
	if initiator == "" {
		return agent.String()
	}

	field := ",initiator=" + initiator
	if len(field) > maxInitiatorLen {
		field = field[:maxInitiatorLen]
	}
	agent.WriteString(field)

	return agent.String()
}
