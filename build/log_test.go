package build

import (
	"testing"

	"github.com/btcsuite/btclog"
	"github.com/stretchr/testify/require"
)

func newTestWriter() *RotatingLogWriter {
	w := NewRotatingLogWriter()
	for _, subsystem := range []string{"UWLT", "UGDN", "UDDB"} {
		w.RegisterSubLogger(subsystem, w.GenSubLogger(subsystem))
	}

	return w
}

// TestParseAndSetDebugLevels checks the global level and per subsystem
// overrides are applied, and bad input is refused.
func TestParseAndSetDebugLevels(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		level  string
		levels map[string]btclog.Level
		err    string
	}{{
		name:  "global",
		level: "debug",
		levels: map[string]btclog.Level{
			"UWLT": btclog.LevelDebug,
			"UGDN": btclog.LevelDebug,
			"UDDB": btclog.LevelDebug,
		},
	}, {
		name:  "global with override",
		level: "warn,UGDN=trace",
		levels: map[string]btclog.Level{
			"UWLT": btclog.LevelWarn,
			"UGDN": btclog.LevelTrace,
			"UDDB": btclog.LevelWarn,
		},
	}, {
		name:  "override only",
		level: "UDDB=error",
		levels: map[string]btclog.Level{
			"UWLT": btclog.LevelInfo,
			"UGDN": btclog.LevelInfo,
			"UDDB": btclog.LevelError,
		},
	}, {
		name:  "invalid global",
		level: "loud",
		err:   "the specified debug level [loud] is invalid",
	}, {
		name:  "unknown subsystem",
		level: "info,NOPE=debug",
		err:   "the specified subsystem [NOPE] is invalid",
	}, {
		name:  "bad pair",
		level: "info,UGDN",
		err:   "invalid subsystem/level pair",
	}, {
		name:  "too many fields",
		level: "UGDN=info=debug",
		err:   "invalid format",
	}}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			w := newTestWriter()
			err := ParseAndSetDebugLevels(tc.level, w)
			if tc.err != "" {
				require.ErrorContains(t, err, tc.err)
				return
			}
			require.NoError(t, err)

			for subsystem, level := range tc.levels {
				logger := w.SubLoggers()[subsystem]
				require.Equal(t, level, logger.Level(), subsystem)
			}
		})
	}
}

func TestSupportedSubsystems(t *testing.T) {
	t.Parallel()

	w := newTestWriter()
	require.Equal(
		t, []string{"UDDB", "UGDN", "UWLT"}, w.SupportedSubsystems(),
	)
}
