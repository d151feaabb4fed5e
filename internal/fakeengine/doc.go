// Package fakeengine is a scripted stand-in for a UCI chess engine.
//
// A Script (YAML) lists the banner, option declarations, per-position eval
// dumps and search output. Run plays it over any reader/writer pair, so the
// same script can back an in-process test, a re-executed test binary, or
// the hidden "kibitz fake-engine" command.
//
// Example script:
//
//	name: basic
//	banner: Fake 1.0 by kibitz
//	id: ["id name Fake 1.0", "id author kibitz", ""]
//	options:
//	  - option name Threads type spin default 1 min 1 max 512
//	evals:
//	  default:
//	    - "     Term    |    White    |    Black    |    Total"
//	    - "Material | 0.10 0"
//	    - "Mobility | 0.20 0"
//	    - "Threats  | 0.30 0"
//	    - "Final evaluation: +0.60 (white side)"
package fakeengine
